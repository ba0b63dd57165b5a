package workflow

import (
	"errors"
	"testing"
	"time"

	"bitbucket.org/hbfadata/mylar_backend/models"
	"github.com/shopspring/decimal"
)

func decimalFromString(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("bad decimal literal %q: %v", s, err)
	}
	return d
}

func TestRenumberUnits(t *testing.T) {
	cases := []struct {
		unitName string
		unit     string
		want     string
	}{
		{"SoMi Condos 205", "205", "1205"},
		{"somi condos tower", "200", "1200"},
		{"SoMi Condos 101", "101", "101"},
		{"SoMi Towns 205", "205", "205"},
		{"SoMi Condos PH-2", "PH-2", "PH-2"},
		{"", "450", "450"},
	}
	for _, c := range cases {
		if got := RenumberUnits(c.unitName, c.unit); got != c.want {
			t.Fatalf("RenumberUnits(%q, %q) = %q, want %q", c.unitName, c.unit, got, c.want)
		}
	}
}

func TestGenerateAltProjectName(t *testing.T) {
	cases := []struct {
		project  string
		unitName string
		want     string
	}{
		{"SoMi Hayward", "SoMi HayPark 12", "SoMi Towns"},
		{"SoMi Hayward", "SoMi Haypark 205", "SoMi Condos"},
		{"SoMi Hayward", "SoMi HayView A-306", "SoMi HayView"},
		{"SoMi Hayward", "Lot 9", "SoMi Hayward"},
		{"Aria", "SoMi HayPark 12", "Aria"},
	}
	for _, c := range cases {
		if got := GenerateAltProjectName(c.project, c.unitName); got != c.want {
			t.Fatalf("GenerateAltProjectName(%q, %q) = %q, want %q", c.project, c.unitName, got, c.want)
		}
	}
}

func TestCombineBuyers(t *testing.T) {
	cases := []struct {
		names []string
		want  string
	}{
		{[]string{"Ana Cruz", "Ben Cruz"}, "Ana Cruz and Ben Cruz"},
		{[]string{"Ana Cruz", ""}, "Ana Cruz"},
		{[]string{"", "Ben Cruz"}, "Ben Cruz"},
		{[]string{"Ana Cruz", "Ana Cruz"}, "Ana Cruz"},
		{[]string{"", ""}, ""},
	}
	for _, c := range cases {
		if got := CombineBuyers(c.names...); got != c.want {
			t.Fatalf("CombineBuyers(%v) = %q, want %q", c.names, got, c.want)
		}
	}
}

func TestNormalizeRow(t *testing.T) {
	extracted := time.Date(2025, 6, 2, 8, 0, 0, 0, time.UTC)
	row := models.ExportRow{
		models.ColProjectName:        "SoMi Hayward",
		models.ColUnitName:           "SoMi Haypark 205",
		models.ColContractUnitNumber: "205.0",
		models.ColStatus:             "Offer - Out for signature",
		models.ColBuyer1FullName:     " Ana Cruz ",
		models.ColBuyer2FullName:     "Ben Cruz",
		models.ColFinalPrice:         "$1,250,000.00",
		models.ColCash:               "Yes",
		models.ColCoeDate:            "2025-07-15",
	}

	offer, err := NormalizeRow(row, "weekly.xlsx", extracted, 3)
	if err != nil {
		t.Fatalf("NormalizeRow failed: %v", err)
	}
	if offer.ContractUnitNumber != "1205" {
		t.Fatalf("unit number = %q, want renumbered 1205", offer.ContractUnitNumber)
	}
	if offer.AltProjectName != "SoMi Condos" {
		t.Fatalf("alt project = %q, want SoMi Condos", offer.AltProjectName)
	}
	if offer.StatusNumeric != 3 {
		t.Fatalf("status numeric = %d, want 3", offer.StatusNumeric)
	}
	if offer.BuyersCombined != "Ana Cruz and Ben Cruz" {
		t.Fatalf("buyers = %q", offer.BuyersCombined)
	}
	if !offer.FinalPrice.Equal(decimalFromString(t, "1250000")) {
		t.Fatalf("final price = %s", offer.FinalPrice)
	}
	if offer.Cash == nil || !*offer.Cash {
		t.Fatalf("cash flag not parsed")
	}
	if offer.CoeDate == nil || offer.CoeDate.Format("2006-01-02") != "2025-07-15" {
		t.Fatalf("coe date = %v", offer.CoeDate)
	}
	if offer.SourceFile != "weekly.xlsx" || !offer.ExtractedAt.Equal(extracted) || offer.RowIndex != 3 {
		t.Fatalf("provenance not carried: %+v", offer)
	}
}

func TestNormalizeRows_SkipsBadRowsAndContinues(t *testing.T) {
	extracted := time.Date(2025, 6, 2, 8, 0, 0, 0, time.UTC)
	rows := []models.ExportRow{
		{models.ColProjectName: "Aria", models.ColContractUnitNumber: "101", models.ColStatus: "Available"},
		{models.ColProjectName: "Aria", models.ColContractUnitNumber: "102", models.ColStatus: "Sold Out"},
		{models.ColProjectName: "", models.ColContractUnitNumber: "103", models.ColStatus: "Available"},
		{models.ColProjectName: "Aria", models.ColContractUnitNumber: "104", models.ColStatus: "Closed"},
	}

	offers, skipped := NormalizeRows(rows, "weekly.xlsx", extracted)
	if len(offers) != 2 {
		t.Fatalf("expected 2 good rows, got %d", len(offers))
	}
	if len(skipped) != 2 {
		t.Fatalf("expected 2 skipped rows, got %d", len(skipped))
	}

	var statusErr *StatusMappingError
	if !errors.As(skipped[0], &statusErr) {
		t.Fatalf("first skip should be a status mapping error, got %v", skipped[0])
	}
	if statusErr.Status != "Sold Out" || statusErr.RowIndex != 1 {
		t.Fatalf("unexpected status mapping error: %+v", statusErr)
	}
}
