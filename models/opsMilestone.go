package models

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"bitbucket.org/hbfadata/mylar_backend/config"
	"github.com/go-playground/validator/v10"
)

// BuildingSentinel is the sort-key value marking a building-level entry.
const BuildingSentinel = "#building"

// OpsMilestoneItem mirrors the operations team's milestone store: a two-part
// key (pk = project, sk = unit key or BuildingSentinel) with the payload
// nested under a data attribute that must be decoded before use.
type OpsMilestoneItem struct {
	Pk string `gorm:"column:pk;primaryKey;size:200" json:"pk"`
	Sk string `gorm:"column:sk;primaryKey;size:200" json:"sk"`

	ItemType   string `gorm:"size:20" json:"type"`
	ProjectId  string `gorm:"size:100;index" json:"project_id"`
	BuildingId string `gorm:"size:100;index" json:"building_id"`
	UnitNumber string `gorm:"size:100" json:"unit_number"`

	Data string `gorm:"type:json" json:"data"`

	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (OpsMilestoneItem) TableName() string {
	return "ops_milestones"
}

func (m *OpsMilestoneItem) IsBuildingLevel() bool {
	return m.Sk == BuildingSentinel
}

// OpsMilestone is one milestone override inside a payload.
type OpsMilestone struct {
	Code     string `json:"code" validate:"required,len=2"`
	Date     string `json:"date" validate:"required,datetime=2006-01-02"`
	Category string `json:"category" validate:"omitempty,oneof=closed backlog offer inventory unreleased projected_coe"`
}

func (m OpsMilestone) DateValue() (time.Time, error) {
	return time.Parse("2006-01-02", m.Date)
}

type OpsBuildingPayload struct {
	ProjectId  string `json:"project_id"`
	BuildingId string `json:"building_id"`
	PreKickoff bool   `json:"pre_kickoff"`
}

type OpsUnitPayload struct {
	ProjectId  string `json:"project_id"`
	BuildingId string `json:"building_id"`
	UnitNumber string `json:"unit_number"`
}

// OpsMilestonePayload is the decoded form of OpsMilestoneItem.Data.
type OpsMilestonePayload struct {
	Building   *OpsBuildingPayload `json:"building,omitempty"`
	Unit       *OpsUnitPayload     `json:"unit,omitempty"`
	Milestones []OpsMilestone      `json:"milestones" validate:"dive"`
}

var payloadValidate = validator.New()

// DecodePayload parses and validates the nested data attribute. A malformed
// payload excludes the entry from the override index; it never aborts index
// construction.
func (m *OpsMilestoneItem) DecodePayload() (*OpsMilestonePayload, error) {
	raw := strings.TrimSpace(m.Data)
	if raw == "" {
		return nil, fmt.Errorf("ops milestone %s#%s: empty data payload", m.Pk, m.Sk)
	}
	var payload OpsMilestonePayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, fmt.Errorf("ops milestone %s#%s: undecodable data payload: %w", m.Pk, m.Sk, err)
	}
	if err := payloadValidate.Struct(&payload); err != nil {
		return nil, fmt.Errorf("ops milestone %s#%s: invalid data payload: %w", m.Pk, m.Sk, err)
	}
	return &payload, nil
}

// BuildingKey resolves the building an item belongs to, preferring the
// explicit column over the payload.
func (m *OpsMilestoneItem) BuildingKey(payload *OpsMilestonePayload) string {
	if strings.TrimSpace(m.BuildingId) != "" {
		return strings.TrimSpace(m.BuildingId)
	}
	if payload != nil {
		if payload.Building != nil && payload.Building.BuildingId != "" {
			return payload.Building.BuildingId
		}
		if payload.Unit != nil && payload.Unit.BuildingId != "" {
			return payload.Unit.BuildingId
		}
	}
	return ""
}

// ListOpsMilestones returns the full ops milestone set ordered by update
// time so ingestion order is reproducible.
func ListOpsMilestones(ctx context.Context) ([]*OpsMilestoneItem, error) {
	var items []*OpsMilestoneItem
	db := config.GetDB()
	if err := db.WithContext(ctx).
		Order("updated_at asc, pk asc, sk asc").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}
