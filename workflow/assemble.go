package workflow

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"time"

	"bitbucket.org/hbfadata/mylar_backend/models"
	"bitbucket.org/hbfadata/mylar_backend/utils"
)

// ResolvedReportRow is one merged sales record with its effective ops state
// attached. EffectiveStatus and EffectiveStatusNumeric reflect the override
// when one applied, the record's native status otherwise.
type ResolvedReportRow struct {
	Record *models.SalesOffer

	BuildingID             string
	MilestoneCode          string
	MilestoneDate          *time.Time
	PreKickoff             bool
	EffectiveStatus        string
	EffectiveStatusNumeric int
	StatusOverridden       bool
}

// ResolveRecords merges the snapshot log and attaches the effective ops
// state to every surviving record. No rows are filtered or reordered here;
// summary aggregation needs the full set.
func ResolveRecords(offers []*models.SalesOffer, entries []OverrideEntry, today time.Time, mergeOpts MergeOptions, resolveOpts ResolveOptions) []ResolvedReportRow {
	merged := MergeRecords(offers, mergeOpts)
	idx := BuildOverrideIndex(entries)

	rows := make([]ResolvedReportRow, 0, len(merged))
	for _, record := range merged {
		res := ResolveOverride(idx, record, today, resolveOpts)
		rows = append(rows, ResolvedReportRow{
			Record:                 record,
			BuildingID:             res.BuildingID,
			MilestoneCode:          res.MilestoneCode,
			MilestoneDate:          res.MilestoneDate,
			PreKickoff:             res.PreKickoff,
			EffectiveStatus:        res.Status,
			EffectiveStatusNumeric: res.StatusNumeric,
			StatusOverridden:       res.StatusOverridden,
		})
	}
	return rows
}

// AssembleReportRows filters and orders resolved rows for presentation:
// closed rows are kept only when they closed in today's year, and the sort
// is project, then status rank, then close date for closed rows, then
// numeric-aware unit number.
func AssembleReportRows(rows []ResolvedReportRow, today time.Time) []ResolvedReportRow {
	year := today.Year()
	out := make([]ResolvedReportRow, 0, len(rows))
	for _, row := range rows {
		if row.EffectiveStatusNumeric == models.OverrideCategoryNumeric[models.CategoryClosed] {
			if row.Record.CoeDate == nil || row.Record.CoeDate.Year() != year {
				continue
			}
		}
		out = append(out, row)
	}

	sort.SliceStable(out, func(a, b int) bool {
		ra, rb := out[a], out[b]
		if ra.Record.AltProjectName != rb.Record.AltProjectName {
			return ra.Record.AltProjectName < rb.Record.AltProjectName
		}
		if ra.EffectiveStatusNumeric != rb.EffectiveStatusNumeric {
			return ra.EffectiveStatusNumeric < rb.EffectiveStatusNumeric
		}
		closed := models.OverrideCategoryNumeric[models.CategoryClosed]
		if ra.EffectiveStatusNumeric == closed {
			da, db := coeSortValue(ra.Record.CoeDate), coeSortValue(rb.Record.CoeDate)
			if !da.Equal(db) {
				return da.Before(db)
			}
		}
		return unitSortLess(ra.Record.ContractUnitNumber, rb.Record.ContractUnitNumber)
	})
	return out
}

func coeSortValue(t *time.Time) time.Time {
	if t == nil {
		// Unknown close dates sort last among closed rows.
		return time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC)
	}
	return *t
}

// unitSortLess orders unit numbers numerically when both parse, falling
// back to a case-insensitive string compare so "9" sorts before "10" but
// "PH-2" still lands deterministically.
func unitSortLess(a, b string) bool {
	na, errA := strconv.Atoi(utils.NormalizeUnitNumber(a))
	nb, errB := strconv.Atoi(utils.NormalizeUnitNumber(b))
	switch {
	case errA == nil && errB == nil:
		return na < nb
	case errA == nil:
		return true
	case errB == nil:
		return false
	default:
		return strings.ToLower(a) < strings.ToLower(b)
	}
}

// BuildReport is the full pipeline over the canonical store: load both
// sources, resolve, and assemble. An entirely empty store is the one fatal
// condition; a missing side on its own is not.
func BuildReport(ctx context.Context, today time.Time, mergeOpts MergeOptions, resolveOpts ResolveOptions) ([]ResolvedReportRow, error) {
	offers, err := models.ListSalesOffers(ctx)
	if err != nil {
		return nil, err
	}
	items, err := models.ListOpsMilestones(ctx)
	if err != nil {
		return nil, err
	}
	if len(offers) == 0 && len(items) == 0 {
		return nil, utils.ErrorEmptyInput
	}

	entries, _ := EntriesFromOpsItems(items)
	resolved := ResolveRecords(offers, entries, today, mergeOpts, resolveOpts)
	return AssembleReportRows(resolved, today), nil
}
