package models

import (
	"context"
	"time"

	"bitbucket.org/hbfadata/mylar_backend/config"
	"github.com/shopspring/decimal"
)

// SalesOffer is one canonical per-unit sales record. The table is an
// append-only snapshot log: a later ingestion of the same
// (ProjectName, ContractUnitNumber) supersedes the older row by ExtractedAt,
// it never mutates it. Deduplication happens at merge time.
type SalesOffer struct {
	ID int `gorm:"primary_key" json:"id"`

	ProjectName        string `gorm:"size:100;index:idx_sales_offer_identity;not null" json:"project_name"`
	ContractUnitNumber string `gorm:"size:50;index:idx_sales_offer_identity;not null" json:"contract_unit_number"`
	AltProjectName     string `gorm:"size:100;index" json:"alt_project_name"`
	UnitName           string `gorm:"size:150" json:"unit_name"`
	LotNumber          string `gorm:"size:50" json:"lot_number"`
	EscrowNumber       string `gorm:"size:50" json:"escrow_number"`
	UnitPhase          string `gorm:"size:50" json:"unit_phase"`

	Status        string `gorm:"size:50" json:"status"`
	StatusNumeric int    `gorm:"index" json:"status_numeric"`

	Buyer1FullName   string `gorm:"size:150" json:"buyer_1_full_name"`
	Buyer2FullName   string `gorm:"size:150" json:"buyer_2_full_name"`
	BuyersCombined   string `gorm:"size:300" json:"buyers_combined"`
	BuyerEmail       string `gorm:"size:150" json:"buyer_email"`
	Buyer2Email      string `gorm:"size:150" json:"buyer_2_email"`
	BuyerMobilePhone string `gorm:"size:50" json:"buyer_mobile_phone"`

	PrimaryLender      string `gorm:"size:150" json:"primary_lender"`
	PrimaryLoanOfficer string `gorm:"size:150" json:"primary_loan_officer"`
	AgentBrokerage     string `gorm:"size:150" json:"agent_brokerage"`
	ReferringAgentName string `gorm:"size:150" json:"referring_agent_name"`
	ReferringAgentEmail string `gorm:"size:150" json:"referring_agent_email"`

	ListPrice              decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"list_price"`
	BasePrice              decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"base_price"`
	FinalPrice             decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"final_price"`
	InitialDepositAmount   decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"initial_deposit_amount"`
	DepositsReceivedToDate decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"deposits_received_to_date"`
	TotalCredits           decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"total_credits"`
	SellerCredit           decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"seller_credit"`
	HoaCredit              decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"hoa_credit"`
	UpgradeCredit          decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"upgrade_credit"`
	TotalUpgradesSolar     decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"total_upgrades_solar"`

	Cash          *bool `json:"cash"`
	InvestorOwner *bool `json:"investor_owner"`

	ContractSentDate          *time.Time `json:"contract_sent_date"`
	AppraiserVisitDate        *time.Time `json:"appraiser_visit_date"`
	WeekRatifiedDate          *time.Time `json:"week_ratified_date"`
	CoeDate                   *time.Time `gorm:"index" json:"coe_date"`
	ExtendedAdjustedCoe       *time.Time `json:"extended_adjusted_coe"`
	ProjectedClosingDate      *time.Time `json:"projected_closing_date"`
	FinancingContingencyDate  *time.Time `json:"financing_contingency_date"`
	FullyExecutedDate         *time.Time `json:"fully_executed_date"`
	InitialDepositReceiptDate *time.Time `json:"initial_deposit_receipt_date"`

	Notes string `gorm:"type:text" json:"notes"`

	SourceFile  string    `gorm:"size:200" json:"source_file"`
	ExtractedAt time.Time `gorm:"index;not null" json:"extracted_at"`
	RowIndex    int       `json:"row_index"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// ListSalesOffers returns the full canonical store snapshot, oldest
// extraction first so merge tie-breaks stay stable.
func ListSalesOffers(ctx context.Context) ([]*SalesOffer, error) {
	var offers []*SalesOffer
	db := config.GetDB()
	if err := db.WithContext(ctx).
		Order("extracted_at asc, id asc").
		Find(&offers).Error; err != nil {
		return nil, err
	}
	return offers, nil
}

// SaveSalesOffers appends one ingestion batch.
func SaveSalesOffers(ctx context.Context, offers []*SalesOffer) error {
	if len(offers) == 0 {
		return nil
	}
	db := config.GetDB()
	return db.WithContext(ctx).CreateInBatches(offers, 200).Error
}
