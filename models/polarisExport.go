package models

import (
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Export column headers as the sales system writes them. The normalizer
// addresses raw rows by these names.
const (
	ColProjectName        = "Project Name"
	ColContractUnitNumber = "Contract Unit Number"
	ColUnitName           = "Unit Name"
	ColUnitNumber         = "Unit Number"
	ColLotNumber          = "Lot Number"
	ColStatus             = "Status"
	ColBuyer1FullName     = "Buyer Contract: Buyer 1: Full Name"
	ColBuyer2FullName     = "Buyer Contract: Buyer 2: Full Name"
	ColBuyerEmail         = "Buyer Contract: Buyer - Email"
	ColBuyer2Email        = "Buyer Contract: Buyer 2 Email"
	ColBuyerMobilePhone   = "Buyer Contract: Buyer - Mobile Phone"
	ColBasePrice          = "Buyer Contract: Base Price"
	ColListPrice          = "List Price"
	ColFinalPrice         = "Final Price"
	ColInitialDeposit     = "Buyer Contract: Initial Deposit Amount"
	ColDepositsReceived   = "Buyer Contract: Deposits Received to Date"
	ColTotalCredits       = "Buyer Contract: Total Credits"
	ColSellerCredit       = "Buyer Contract: Seller Credit"
	ColHoaCredit          = "Buyer Contract: HOA Credit"
	ColUpgradeCredit      = "Buyer Contract: Upgrade Credit"
	ColUpgradesSolar      = "Buyer Contract: Total Upgrades + Solar"
	ColCash               = "Buyer Contract: Cash?"
	ColInvestorOwner      = "Buyer Contract: Investor/Owner"
	ColContractSentDate   = "Buyer Contract: Contract Sent Date"
	ColAppraiserVisit     = "Buyer Contract: Appraiser Visit Date"
	ColWeekRatifiedDate   = "Buyer Contract: Week Ratified Date"
	ColCoeDate            = "Buyer Contract: COE Date"
	ColExtendedCoe        = "Buyer Contract: Extended/Adjusted COE"
	ColProjectedClosing   = "Buyer Contract: Projected Closing Date"
	ColFinancingDate      = "Buyer Contract: Financing Contingency Date"
	ColFullyExecutedDate  = "Buyer Contract: Fully Executed Date"
	ColDepositReceiptDate = "Buyer Contract: Initial Deposit Receipt Date"
	ColEscrowNumber       = "Escrow Number"
	ColUnitPhase          = "Buyer Contract: Unit Phase"
	ColPrimaryLender      = "Buyer Contract: Primary Lender"
	ColPrimaryLoanOfficer = "Buyer Contract: Primary Loan Officer: Full Name"
	ColAgentBrokerage     = "Buyer Contract: Agent Brokerage"
	ColReferringAgent     = "Buyer Contract: Referring Agent: Full Name"
	ColReferringAgentMail = "Buyer Contract: Referring Agent: Email"
	ColNotes              = "Buyer Contract: Notes"
)

const (
	DefaultSheetName = "HBFA Report"
	DefaultSkipRows  = 11
)

// ExportRow is one raw export row keyed by trimmed column header.
type ExportRow map[string]string

var totalRowPattern = regexp.MustCompile(`(?i)\bTotal\b`)

// ParsePolarisExport reads the weekly sales export workbook and returns raw
// rows. Leading banner rows are skipped, headers are trimmed, and the export's
// trailing summary block (first row whose leading cell says "Total") ends the
// data region. No normalization happens here.
func ParsePolarisExport(r io.Reader, sheetName string, skipRows int) ([]ExportRow, error) {
	if sheetName == "" {
		sheetName = DefaultSheetName
	}
	if skipRows < 0 {
		skipRows = DefaultSkipRows
	}

	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %v", sheetName, err)
	}
	if len(rows) <= skipRows {
		return nil, fmt.Errorf("sheet %q has no rows after skipping %d header rows", sheetName, skipRows)
	}

	headers := make([]string, len(rows[skipRows]))
	for i, h := range rows[skipRows] {
		headers[i] = strings.TrimSpace(h)
	}

	var out []ExportRow
	for _, row := range rows[skipRows+1:] {
		if len(row) == 0 {
			continue
		}
		first := strings.TrimSpace(row[0])
		if totalRowPattern.MatchString(first) {
			// Summary block; everything below is totals.
			break
		}
		record := make(ExportRow, len(headers))
		empty := true
		for i, header := range headers {
			if header == "" || i >= len(row) {
				continue
			}
			value := strings.TrimSpace(row[i])
			if value != "" {
				empty = false
			}
			record[header] = value
		}
		if empty {
			continue
		}
		out = append(out, record)
	}
	return out, nil
}
