package workflow

import (
	"reflect"
	"testing"

	"bitbucket.org/hbfadata/mylar_backend/models"
)

func resolvedRow(project, unit string, statusNumeric int) ResolvedReportRow {
	status, _ := models.StatusForNumeric(statusNumeric)
	return ResolvedReportRow{
		Record: &models.SalesOffer{
			ProjectName:        project,
			AltProjectName:     project,
			ContractUnitNumber: unit,
		},
		EffectiveStatus:        status,
		EffectiveStatusNumeric: statusNumeric,
	}
}

func TestAssembleReportRows_ClosedKeptOnlyForCurrentYear(t *testing.T) {
	today := day("2025-06-01")

	thisYear := resolvedRow("Aria", "101", 1)
	thisYear.Record.CoeDate = dayPtr("2025-02-10")
	lastYear := resolvedRow("Aria", "102", 1)
	lastYear.Record.CoeDate = dayPtr("2024-11-20")
	noCoe := resolvedRow("Aria", "103", 1)
	open := resolvedRow("Aria", "104", 4)

	rows := AssembleReportRows([]ResolvedReportRow{thisYear, lastYear, noCoe, open}, today)
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0].Record.ContractUnitNumber != "101" || rows[1].Record.ContractUnitNumber != "104" {
		t.Fatalf("unexpected survivors: %q, %q", rows[0].Record.ContractUnitNumber, rows[1].Record.ContractUnitNumber)
	}
}

func TestAssembleReportRows_SortOrder(t *testing.T) {
	today := day("2025-06-01")

	vidaOffer := resolvedRow("Vida", "9", 3)
	ariaOffer10 := resolvedRow("Aria", "10", 3)
	ariaOffer9 := resolvedRow("Aria", "9", 3)
	ariaBacklog := resolvedRow("Aria", "50", 2)
	ariaClosedLate := resolvedRow("Aria", "1", 1)
	ariaClosedLate.Record.CoeDate = dayPtr("2025-03-15")
	ariaClosedEarly := resolvedRow("Aria", "2", 1)
	ariaClosedEarly.Record.CoeDate = dayPtr("2025-01-15")

	rows := AssembleReportRows([]ResolvedReportRow{
		vidaOffer, ariaOffer10, ariaOffer9, ariaBacklog, ariaClosedLate, ariaClosedEarly,
	}, today)

	got := make([]string, len(rows))
	for i, r := range rows {
		got[i] = r.Record.AltProjectName + "/" + r.Record.ContractUnitNumber
	}
	want := []string{
		"Aria/2",  // closed, earliest COE
		"Aria/1",  // closed, later COE
		"Aria/50", // backlog
		"Aria/9",  // offers sort numerically, 9 before 10
		"Aria/10",
		"Vida/9",
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("row %d = %q, want %q (full order %v)", i, got[i], want[i], got)
		}
	}
}

func TestUnitSortLess_NumericAware(t *testing.T) {
	cases := []struct {
		a, b string
		want bool
	}{
		{"9", "10", true},
		{"10", "9", false},
		{"205.0", "1205", true},
		{"9", "PH-2", true},  // numbers before non-numbers
		{"PH-2", "9", false},
		{"PH-1", "ph-2", true},
	}
	for _, c := range cases {
		if got := unitSortLess(c.a, c.b); got != c.want {
			t.Fatalf("unitSortLess(%q, %q) = %v, want %v", c.a, c.b, got, c.want)
		}
	}
}

// Week-over-week scenario: the same physical unit arrives as "205.0" in one
// extraction and "205" in the next, with an ops milestone keyed a third way.
// The report must show one row carrying the newest sales values and the
// resolved override.
func TestResolveRecords_RepeatedRunsAreIdentical(t *testing.T) {
	today := day("2025-06-01")

	closed := snapshot("Aria", "101", day("2025-05-01"), "week22.xlsx")
	closed.Status = models.StatusClosed
	closed.StatusNumeric = 1
	closed.CoeDate = dayPtr("2025-03-15")
	older := snapshot("SoMi Towns", "205.0", day("2025-05-01"), "week22.xlsx")
	newer := snapshot("SoMi Towns", "205", day("2025-05-08"), "week23.xlsx")
	newer.Status = models.StatusOffer
	newer.StatusNumeric = 3
	offers := []*models.SalesOffer{closed, older, newer}

	entries := []OverrideEntry{
		buildingMilestone("Aria", "Bldg 1", "PT", "2025-04-01", day("2025-04-02"), 0),
		unitMilestone("SoMi Haypark", "Bldg 2", "Towns-205", "DW", "2025-04-20", day("2025-04-21"), 1),
	}

	run := func() []ResolvedReportRow {
		return AssembleReportRows(ResolveRecords(offers, entries, today, MergeOptions{}, DefaultResolveOptions()), today)
	}

	first := run()
	second := run()
	if len(first) == 0 {
		t.Fatalf("expected report rows")
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("repeated runs over the same input diverge:\nfirst:  %+v\nsecond: %+v", first, second)
	}
}

func TestResolveRecords_ReingestedUnitEndToEnd(t *testing.T) {
	today := day("2025-06-01")

	week1 := snapshot("SoMi Towns", "205.0", day("2025-05-01"), "week22.xlsx")
	week1.Status = models.StatusAvailable
	week1.StatusNumeric = 4
	week2 := snapshot("SoMi Towns", "205", day("2025-05-08"), "week23.xlsx")
	week2.Status = models.StatusOffer
	week2.StatusNumeric = 3

	entries := []OverrideEntry{
		unitMilestone("SoMi Haypark", "Bldg 2", "Towns-205", "DW", "2025-04-20", day("2025-04-21"), 0),
	}

	rows := ResolveRecords([]*models.SalesOffer{week1, week2}, entries, today, MergeOptions{}, DefaultResolveOptions())
	if len(rows) != 1 {
		t.Fatalf("expected one merged row, got %d", len(rows))
	}
	row := rows[0]
	if row.Record.SourceFile != "week23.xlsx" {
		t.Fatalf("merge kept %q, want the newer extraction", row.Record.SourceFile)
	}
	if row.EffectiveStatusNumeric != 3 || row.StatusOverridden {
		t.Fatalf("status = %d overridden=%v, want native offer rank 3", row.EffectiveStatusNumeric, row.StatusOverridden)
	}
	if row.MilestoneCode != "DW" {
		t.Fatalf("milestone = %q, want DW via the suffix key form", row.MilestoneCode)
	}
	if row.BuildingID != "Bldg 2" {
		t.Fatalf("building = %q", row.BuildingID)
	}

	assembled := AssembleReportRows(rows, today)
	if len(assembled) != 1 {
		t.Fatalf("assembled rows = %d", len(assembled))
	}
}
