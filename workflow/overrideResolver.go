package workflow

import (
	"time"

	"bitbucket.org/hbfadata/mylar_backend/models"
)

// ResolveOptions controls optional resolver behavior. StatusOverride gates
// the category-based status replacement; milestone resolution itself is not
// toggleable.
type ResolveOptions struct {
	StatusOverride bool
}

// DefaultResolveOptions mirrors production behavior.
func DefaultResolveOptions() ResolveOptions {
	return ResolveOptions{StatusOverride: true}
}

// Resolution is the effective ops state of one sales record as of a given
// day. A zero MilestoneCode with a nil MilestoneDate means no override
// applies and downstream renders blanks, never a stale placeholder.
type Resolution struct {
	BuildingID       string
	MilestoneCode    string
	MilestoneDate    *time.Time
	PreKickoff       bool
	Status           string
	StatusNumeric    int
	StatusOverridden bool
}

// ResolveOverride computes the effective milestone and status for a record.
// The reference day is an explicit parameter so the same inputs always give
// the same output.
//
// Selection rules, in order:
//   - a pre-kickoff building suppresses every override for its units; the
//     record keeps its native status and only the building id is attached
//   - unit-level entries with a qualifying date take total precedence over
//     building-level ones; building-level entries apply only when the unit
//     has no qualifying entry of its own
//   - among candidates, the maximum milestone date not after today wins;
//     date ties go to the latest update, then to ingestion order
//   - no qualifying entry leaves the milestone blank
func ResolveOverride(idx *OverrideIndex, record *models.SalesOffer, today time.Time, opts ResolveOptions) Resolution {
	res := Resolution{
		Status:        record.Status,
		StatusNumeric: record.StatusNumeric,
	}

	opsProject := MapAltToOpsProject(record.AltProjectName, record.ProjectName)
	if opsProject == "" {
		return res
	}

	building, unitEntries := idx.LookupUnit(opsProject, record.ContractUnitNumber)
	if building == "" {
		building = idx.SoleBuilding(opsProject)
	}
	res.BuildingID = building
	if building == "" {
		return res
	}

	if idx.PreKickoff(opsProject, building) {
		res.PreKickoff = true
		return res
	}

	today = truncateToDay(today)
	pool := qualifying(unitEntries, today)
	if len(pool) == 0 {
		pool = qualifying(idx.BuildingEntries(opsProject, building), today)
	}
	if len(pool) == 0 {
		return res
	}

	selected := pool[0]
	for _, entry := range pool[1:] {
		if entryBeats(entry, selected) {
			selected = entry
		}
	}
	date := selected.MilestoneDate
	res.MilestoneCode = selected.MilestoneCode
	res.MilestoneDate = &date

	if opts.StatusOverride {
		if category, ok := dominantCategory(pool); ok {
			res.Status = models.OverrideCategoryLabel[category]
			res.StatusNumeric = models.OverrideCategoryNumeric[category]
			res.StatusOverridden = true
		}
	}
	return res
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func qualifying(entries []OverrideEntry, today time.Time) []OverrideEntry {
	var out []OverrideEntry
	for _, e := range entries {
		if !e.hasMilestone() {
			continue
		}
		if e.MilestoneDate.After(today) {
			continue
		}
		out = append(out, e)
	}
	return out
}

// entryBeats orders candidates: later milestone date, then later update,
// then later ingestion.
func entryBeats(a, b OverrideEntry) bool {
	if !a.MilestoneDate.Equal(b.MilestoneDate) {
		return a.MilestoneDate.After(b.MilestoneDate)
	}
	if !a.UpdatedAt.Equal(b.UpdatedAt) {
		return a.UpdatedAt.After(b.UpdatedAt)
	}
	return a.Seq > b.Seq
}

// dominantCategory picks the highest-priority category present among the
// qualifying entries.
func dominantCategory(pool []OverrideEntry) (models.OverrideCategory, bool) {
	present := make(map[models.OverrideCategory]bool, len(pool))
	for _, e := range pool {
		if e.Category.Valid() {
			present[e.Category] = true
		}
	}
	for _, category := range models.OverrideCategoryPriority {
		if present[category] {
			return category, true
		}
	}
	return "", false
}
