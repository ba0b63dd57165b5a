package workflow

import (
	"sort"
	"strings"
	"time"

	"bitbucket.org/hbfadata/mylar_backend/config"
	"bitbucket.org/hbfadata/mylar_backend/models"
	"bitbucket.org/hbfadata/mylar_backend/utils"
)

// OverrideEntry is one flattened operations milestone, scoped to
// (Project, BuildingID) for building-level entries and additionally UnitKey
// for unit-level ones. Seq preserves ingestion order for tie-breaks.
type OverrideEntry struct {
	Project       string
	BuildingID    string
	UnitKey       string // empty for building-level entries
	MilestoneCode string
	MilestoneDate time.Time
	Category      models.OverrideCategory
	PreKickoff    bool
	UpdatedAt     time.Time
	Seq           int
}

func (e OverrideEntry) isBuildingLevel() bool {
	return e.UnitKey == ""
}

// hasMilestone reports whether the entry carries an actual milestone, as
// opposed to only a pre-kickoff flag.
func (e OverrideEntry) hasMilestone() bool {
	return e.MilestoneCode != "" && !e.MilestoneDate.IsZero()
}

// altProjectToOps maps display project names onto the operations team's
// project naming. Lookups are lowercased.
var altProjectToOps = map[string]string{
	"aria":         "Aria",
	"fusion":       "Fusion",
	"somi towns":   "SoMi Haypark",
	"somi condos":  "SoMi HayView",
	"somi hayview": "SoMi HayView",
	"somi haypark": "SoMi Haypark",
	"vida":         "Vida",
	"vida 2":       "Vida 2",
}

// MapAltToOpsProject translates a sales record's display project name into
// the ops project naming, falling back to the raw project name.
func MapAltToOpsProject(altProjectName string, projectName string) string {
	for _, candidate := range []string{altProjectName, projectName} {
		text := strings.TrimSpace(candidate)
		if text == "" {
			continue
		}
		if mapped, ok := altProjectToOps[strings.ToLower(text)]; ok {
			return mapped
		}
		return text
	}
	return ""
}

var unitKeySeparators = "-_# "

// unitKeyDerivations is the ordered list of unit-key forms tried when
// matching inconsistent unit naming between the sales and ops systems
// ("HayView-306" vs "306"). First index hit wins. Kept as data so new forms
// are an append, not new branching.
var unitKeyDerivations = []func(string) string{
	func(key string) string { return key },
	func(key string) string {
		if i := strings.LastIndexAny(key, unitKeySeparators); i >= 0 && i+1 < len(key) {
			return key[i+1:]
		}
		return ""
	},
	func(key string) string { return utils.DigitsOnly(key) },
}

func normalizeUnitKey(key string) string {
	return strings.ToLower(utils.NormalizeUnitNumber(key))
}

func normalizeProjectKey(project string) string {
	return strings.ToLower(strings.TrimSpace(project))
}

type buildingRef struct {
	project  string
	building string
}

// OverrideIndex is a derived, read-only lookup over the current override
// entries. It is rebuilt from scratch every run, which sidesteps cache
// invalidation entirely.
type OverrideIndex struct {
	buildingEntries map[buildingRef][]OverrideEntry
	// unitEntries[ref][derivation][derivedKey] → entries, grouped by the
	// derivation that produced the key on the storage side.
	unitEntries map[buildingRef][]map[string][]OverrideEntry
	preKickoff  map[buildingRef]bool

	buildingsByProject map[string][]string // normalized project → sorted display building ids
}

// BuildOverrideIndex builds the lookup from the flattened entry set. Source
// entries are never mutated.
func BuildOverrideIndex(entries []OverrideEntry) *OverrideIndex {
	idx := &OverrideIndex{
		buildingEntries:    make(map[buildingRef][]OverrideEntry),
		unitEntries:        make(map[buildingRef][]map[string][]OverrideEntry),
		preKickoff:         make(map[buildingRef]bool),
		buildingsByProject: make(map[string][]string),
	}

	seenBuilding := make(map[buildingRef]string)
	for _, entry := range entries {
		ref := buildingRef{
			project:  normalizeProjectKey(entry.Project),
			building: strings.ToLower(strings.TrimSpace(entry.BuildingID)),
		}
		if ref.project == "" || ref.building == "" {
			continue
		}
		if _, ok := seenBuilding[ref]; !ok {
			seenBuilding[ref] = strings.TrimSpace(entry.BuildingID)
		}
		if entry.PreKickoff {
			idx.preKickoff[ref] = true
		}

		if entry.isBuildingLevel() {
			if entry.hasMilestone() {
				idx.buildingEntries[ref] = append(idx.buildingEntries[ref], entry)
			}
			continue
		}
		if !entry.hasMilestone() {
			continue
		}

		maps := idx.unitEntries[ref]
		if maps == nil {
			maps = make([]map[string][]OverrideEntry, len(unitKeyDerivations))
			for i := range maps {
				maps[i] = make(map[string][]OverrideEntry)
			}
			idx.unitEntries[ref] = maps
		}
		stored := normalizeUnitKey(entry.UnitKey)
		for i, derive := range unitKeyDerivations {
			derived := derive(stored)
			if derived == "" {
				continue
			}
			maps[i][derived] = append(maps[i][derived], entry)
		}
	}

	for ref, display := range seenBuilding {
		idx.buildingsByProject[ref.project] = append(idx.buildingsByProject[ref.project], display)
	}
	for project := range idx.buildingsByProject {
		sort.Strings(idx.buildingsByProject[project])
	}

	return idx
}

// PreKickoff reports whether the building is flagged pre-kickoff. The flag
// is building-scoped regardless of which entry set it.
func (idx *OverrideIndex) PreKickoff(project string, buildingID string) bool {
	return idx.preKickoff[buildingRef{
		project:  normalizeProjectKey(project),
		building: strings.ToLower(strings.TrimSpace(buildingID)),
	}]
}

// BuildingEntries returns the building-level milestones for a building.
func (idx *OverrideIndex) BuildingEntries(project string, buildingID string) []OverrideEntry {
	return idx.buildingEntries[buildingRef{
		project:  normalizeProjectKey(project),
		building: strings.ToLower(strings.TrimSpace(buildingID)),
	}]
}

// SoleBuilding returns the project's only building with override entries, if
// it has exactly one. With several buildings and no unit-level hit there is
// no way to attribute a unit, so the caller gets "".
func (idx *OverrideIndex) SoleBuilding(project string) string {
	buildings := idx.buildingsByProject[normalizeProjectKey(project)]
	if len(buildings) == 1 {
		return buildings[0]
	}
	return ""
}

// LookupUnit finds the unit-level entries for a sales unit, trying each
// key-derivation form in priority order across the project's buildings.
// Returns the display building id of the match (or "" when none) and the
// matched entries. An ambiguous match is logged and resolved by declared
// priority, never silently ignored.
func (idx *OverrideIndex) LookupUnit(project string, unitNumber string) (string, []OverrideEntry) {
	projectKey := normalizeProjectKey(project)
	queryKey := normalizeUnitKey(unitNumber)
	if projectKey == "" || queryKey == "" {
		return "", nil
	}

	buildings := idx.buildingsByProject[projectKey]
	for i, derive := range unitKeyDerivations {
		derived := derive(queryKey)
		if derived == "" {
			continue
		}

		var matchedBuilding string
		var matched []OverrideEntry
		for _, display := range buildings {
			ref := buildingRef{project: projectKey, building: strings.ToLower(display)}
			maps := idx.unitEntries[ref]
			if maps == nil {
				continue
			}
			entries := maps[i][derived]
			if len(entries) == 0 {
				continue
			}
			entries = disambiguate(project, display, derived, entries)
			if matched == nil {
				matchedBuilding = display
				matched = entries
				continue
			}
			// Same derived key in more than one building of the project.
			config.LogWarn(config.GetLogger(), "workflow", "LookupUnit", "override lookup ambiguity across buildings", map[string]any{
				"project":  project,
				"unit_key": derived,
				"kept":     matchedBuilding,
				"dropped":  display,
			})
		}
		if matched != nil {
			return matchedBuilding, matched
		}
	}
	return "", nil
}

// disambiguate keeps one stored unit key when a derived form fans out to
// several distinct stored keys in the same building.
func disambiguate(project string, building string, derived string, entries []OverrideEntry) []OverrideEntry {
	firstKey := entries[0].UnitKey
	distinct := false
	for _, e := range entries[1:] {
		if e.UnitKey != firstKey {
			distinct = true
			break
		}
	}
	if !distinct {
		return entries
	}

	config.LogWarn(config.GetLogger(), "workflow", "LookupUnit", "override lookup ambiguity within building", map[string]any{
		"project":  project,
		"building": building,
		"unit_key": derived,
		"kept":     firstKey,
	})
	var kept []OverrideEntry
	for _, e := range entries {
		if e.UnitKey == firstKey {
			kept = append(kept, e)
		}
	}
	return kept
}

// EntriesFromOpsItems flattens stored ops milestone items into override
// entries. Items with undecodable payloads are excluded and returned as
// errors; index construction continues without them.
func EntriesFromOpsItems(items []*models.OpsMilestoneItem) ([]OverrideEntry, []error) {
	logger := config.GetLogger()

	var entries []OverrideEntry
	var excluded []error
	seq := 0
	for _, item := range items {
		payload, err := item.DecodePayload()
		if err != nil {
			excluded = append(excluded, err)
			config.LogWarn(logger, "workflow", "EntriesFromOpsItems", "ops milestone excluded", map[string]any{
				"pk":     item.Pk,
				"sk":     item.Sk,
				"reason": err.Error(),
			})
			continue
		}

		project := item.ProjectId
		if project == "" {
			project = item.Pk
		}
		building := item.BuildingKey(payload)
		preKickoff := payload.Building != nil && payload.Building.PreKickoff

		unitKey := ""
		if !item.IsBuildingLevel() {
			unitKey = item.UnitNumber
			if unitKey == "" && payload.Unit != nil {
				unitKey = payload.Unit.UnitNumber
			}
			if unitKey == "" {
				unitKey = item.Sk
			}
		}

		if len(payload.Milestones) == 0 {
			// Flag-only items still register the building (and its
			// pre-kickoff state).
			entries = append(entries, OverrideEntry{
				Project:    project,
				BuildingID: building,
				UnitKey:    unitKey,
				PreKickoff: preKickoff,
				UpdatedAt:  item.UpdatedAt,
				Seq:        seq,
			})
			seq++
			continue
		}

		for _, m := range payload.Milestones {
			date, derr := m.DateValue()
			if derr != nil {
				excluded = append(excluded, derr)
				continue
			}
			entries = append(entries, OverrideEntry{
				Project:       project,
				BuildingID:    building,
				UnitKey:       unitKey,
				MilestoneCode: m.Code,
				MilestoneDate: date,
				Category:      models.OverrideCategory(m.Category),
				PreKickoff:    preKickoff,
				UpdatedAt:     item.UpdatedAt,
				Seq:           seq,
			})
			seq++
		}
	}
	return entries, excluded
}
