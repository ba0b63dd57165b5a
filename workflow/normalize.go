package workflow

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"bitbucket.org/hbfadata/mylar_backend/config"
	"bitbucket.org/hbfadata/mylar_backend/models"
	"bitbucket.org/hbfadata/mylar_backend/utils"
	"github.com/shopspring/decimal"
)

// StatusMappingError marks a row whose status text is not in the fixed
// status table. The row is skipped and logged; the batch continues.
type StatusMappingError struct {
	Status   string
	RowIndex int
}

func (e *StatusMappingError) Error() string {
	return fmt.Sprintf("row %d: unrecognized status %q", e.RowIndex, e.Status)
}

// Date layouts the export has been seen using.
var exportDateLayouts = []string{
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02T15:04:05",
	"2006-01-02",
	"01/02/2006",
	"1/2/2006",
	"01-02-06",
	"Jan 2, 2006",
}

func parseExportDate(value string) *time.Time {
	text := strings.TrimSpace(value)
	if text == "" {
		return nil
	}
	for _, layout := range exportDateLayouts {
		if t, err := time.Parse(layout, text); err == nil {
			return &t
		}
	}
	return nil
}

func parseExportDecimal(value string) decimal.Decimal {
	d, err := utils.ParseDecimal(value)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// CombineBuyers joins the non-empty buyer names with " and ", dropping a
// duplicate second name.
func CombineBuyers(names ...string) string {
	var kept []string
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		duplicate := false
		for _, existing := range kept {
			if existing == name {
				duplicate = true
				break
			}
		}
		if !duplicate {
			kept = append(kept, name)
		}
	}
	return strings.Join(kept, " and ")
}

// RenumberUnits shifts SoMi Condos units >= 200 to 1000+n. Those unit
// numbers collide with SoMi Towns units in the downstream Access database,
// so identity stays unique only after the shift.
func RenumberUnits(unitName string, contractUnitNumber string) string {
	if !strings.Contains(strings.ToLower(unitName), "somi condos") {
		return contractUnitNumber
	}
	n, err := strconv.Atoi(strings.TrimSpace(contractUnitNumber))
	if err != nil {
		return contractUnitNumber
	}
	if n >= 200 {
		return strconv.Itoa(1000 + n)
	}
	return contractUnitNumber
}

// GenerateAltProjectName maps the sales system's umbrella "SoMi Hayward"
// project onto the display/ops project names, keyed by the unit name. The
// HayPark/Haypark casing difference is meaningful upstream.
func GenerateAltProjectName(projectName string, unitName string) string {
	if projectName != "SoMi Hayward" {
		return projectName
	}
	switch {
	case strings.Contains(unitName, "SoMi HayPark"):
		return "SoMi Towns"
	case strings.Contains(unitName, "SoMi Haypark"):
		return "SoMi Condos"
	case strings.Contains(unitName, "SoMi HayView"):
		return "SoMi HayView"
	}
	return "SoMi Hayward"
}

// NormalizeRow converts one raw export row into a canonical SalesOffer.
// Returns a StatusMappingError for unrecognized status text; callers skip
// the row and keep going.
func NormalizeRow(row models.ExportRow, sourceFile string, extractedAt time.Time, rowIndex int) (*models.SalesOffer, error) {
	projectName := strings.TrimSpace(row[models.ColProjectName])
	if projectName == "" {
		return nil, fmt.Errorf("row %d: missing project name", rowIndex)
	}

	statusText := strings.TrimSpace(row[models.ColStatus])
	statusNumeric := models.AssignStatusNumeric(statusText)
	if statusNumeric == models.StatusNumericUnknown {
		return nil, &StatusMappingError{Status: statusText, RowIndex: rowIndex}
	}

	unitName := strings.TrimSpace(row[models.ColUnitName])

	unitNumber := utils.NormalizeUnitNumber(row[models.ColContractUnitNumber])
	if unitNumber == "" {
		unitNumber = utils.NormalizeUnitNumber(row[models.ColUnitNumber])
	}
	if unitNumber == "" {
		unitNumber = utils.NormalizeUnitNumber(row[models.ColLotNumber])
	}
	unitNumber = RenumberUnits(unitName, unitNumber)

	offer := &models.SalesOffer{
		ProjectName:        projectName,
		ContractUnitNumber: unitNumber,
		AltProjectName:     GenerateAltProjectName(projectName, unitName),
		UnitName:           unitName,
		LotNumber:          strings.TrimSpace(row[models.ColLotNumber]),
		EscrowNumber:       strings.TrimSpace(row[models.ColEscrowNumber]),
		UnitPhase:          strings.TrimSpace(row[models.ColUnitPhase]),

		Status:        statusText,
		StatusNumeric: statusNumeric,

		Buyer1FullName:   strings.TrimSpace(row[models.ColBuyer1FullName]),
		Buyer2FullName:   strings.TrimSpace(row[models.ColBuyer2FullName]),
		BuyerEmail:       strings.TrimSpace(row[models.ColBuyerEmail]),
		Buyer2Email:      strings.TrimSpace(row[models.ColBuyer2Email]),
		BuyerMobilePhone: strings.TrimSpace(row[models.ColBuyerMobilePhone]),

		PrimaryLender:       strings.TrimSpace(row[models.ColPrimaryLender]),
		PrimaryLoanOfficer:  strings.TrimSpace(row[models.ColPrimaryLoanOfficer]),
		AgentBrokerage:      strings.TrimSpace(row[models.ColAgentBrokerage]),
		ReferringAgentName:  strings.TrimSpace(row[models.ColReferringAgent]),
		ReferringAgentEmail: strings.TrimSpace(row[models.ColReferringAgentMail]),

		ListPrice:              parseExportDecimal(row[models.ColListPrice]),
		BasePrice:              parseExportDecimal(row[models.ColBasePrice]),
		FinalPrice:             parseExportDecimal(row[models.ColFinalPrice]),
		InitialDepositAmount:   parseExportDecimal(row[models.ColInitialDeposit]),
		DepositsReceivedToDate: parseExportDecimal(row[models.ColDepositsReceived]),
		TotalCredits:           parseExportDecimal(row[models.ColTotalCredits]),
		SellerCredit:           parseExportDecimal(row[models.ColSellerCredit]),
		HoaCredit:              parseExportDecimal(row[models.ColHoaCredit]),
		UpgradeCredit:          parseExportDecimal(row[models.ColUpgradeCredit]),
		TotalUpgradesSolar:     parseExportDecimal(row[models.ColUpgradesSolar]),

		Cash:          utils.ParseBoolish(row[models.ColCash]),
		InvestorOwner: utils.ParseBoolish(row[models.ColInvestorOwner]),

		ContractSentDate:          parseExportDate(row[models.ColContractSentDate]),
		AppraiserVisitDate:        parseExportDate(row[models.ColAppraiserVisit]),
		WeekRatifiedDate:          parseExportDate(row[models.ColWeekRatifiedDate]),
		CoeDate:                   parseExportDate(row[models.ColCoeDate]),
		ExtendedAdjustedCoe:       parseExportDate(row[models.ColExtendedCoe]),
		ProjectedClosingDate:      parseExportDate(row[models.ColProjectedClosing]),
		FinancingContingencyDate:  parseExportDate(row[models.ColFinancingDate]),
		FullyExecutedDate:         parseExportDate(row[models.ColFullyExecutedDate]),
		InitialDepositReceiptDate: parseExportDate(row[models.ColDepositReceiptDate]),

		Notes: strings.TrimSpace(row[models.ColNotes]),

		SourceFile:  sourceFile,
		ExtractedAt: extractedAt,
		RowIndex:    rowIndex,
	}

	offer.BuyersCombined = CombineBuyers(offer.Buyer1FullName, offer.Buyer2FullName)

	return offer, nil
}

// NormalizeRows normalizes a batch, skipping bad rows. Skipped rows come
// back as errors so callers can count and log them; they never fail the
// batch.
func NormalizeRows(rows []models.ExportRow, sourceFile string, extractedAt time.Time) ([]*models.SalesOffer, []error) {
	logger := config.GetLogger()

	var offers []*models.SalesOffer
	var skipped []error
	for i, row := range rows {
		offer, err := NormalizeRow(row, sourceFile, extractedAt, i)
		if err != nil {
			skipped = append(skipped, err)
			config.LogWarn(logger, "workflow", "NormalizeRows", "row skipped", map[string]any{
				"source": sourceFile,
				"row":    i,
				"reason": err.Error(),
			})
			continue
		}
		offers = append(offers, offer)
	}
	return offers, skipped
}
