package workflow

import (
	"testing"
	"time"

	"bitbucket.org/hbfadata/mylar_backend/models"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func dayPtr(s string) *time.Time {
	t := day(s)
	return &t
}

func offerRecord(project, alt, unit, status string) *models.SalesOffer {
	return &models.SalesOffer{
		ProjectName:        project,
		AltProjectName:     alt,
		ContractUnitNumber: unit,
		Status:             status,
		StatusNumeric:      models.AssignStatusNumeric(status),
	}
}

func buildingMilestone(project, building, code, date string, updated time.Time, seq int) OverrideEntry {
	return OverrideEntry{
		Project:       project,
		BuildingID:    building,
		MilestoneCode: code,
		MilestoneDate: day(date),
		UpdatedAt:     updated,
		Seq:           seq,
	}
}

func unitMilestone(project, building, unit, code, date string, updated time.Time, seq int) OverrideEntry {
	e := buildingMilestone(project, building, code, date, updated, seq)
	e.UnitKey = unit
	return e
}

func TestResolveOverride_BuildingMaxQualifyingDateWins(t *testing.T) {
	updated := day("2025-05-01")
	idx := BuildOverrideIndex([]OverrideEntry{
		buildingMilestone("Aria", "Bldg 1", "FR", "2025-03-01", updated, 0),
		buildingMilestone("Aria", "Bldg 1", "DW", "2025-05-10", updated, 1),
		buildingMilestone("Aria", "Bldg 1", "PT", "2025-09-01", updated, 2),
	})
	record := offerRecord("Aria", "Aria", "101", models.StatusAvailable)

	res := ResolveOverride(idx, record, day("2025-06-01"), DefaultResolveOptions())
	if res.MilestoneCode != "DW" {
		t.Fatalf("milestone = %q, want DW (latest date on or before today)", res.MilestoneCode)
	}
	if res.BuildingID != "Bldg 1" {
		t.Fatalf("building = %q, want Bldg 1", res.BuildingID)
	}
	if res.MilestoneDate == nil || !res.MilestoneDate.Equal(day("2025-05-10")) {
		t.Fatalf("milestone date = %v", res.MilestoneDate)
	}
}

func TestResolveOverride_FutureOnlyLeavesBlank(t *testing.T) {
	idx := BuildOverrideIndex([]OverrideEntry{
		buildingMilestone("Aria", "Bldg 1", "PT", "2025-09-01", day("2025-05-01"), 0),
	})
	record := offerRecord("Aria", "Aria", "101", models.StatusAvailable)

	res := ResolveOverride(idx, record, day("2025-06-01"), DefaultResolveOptions())
	if res.MilestoneCode != "" || res.MilestoneDate != nil {
		t.Fatalf("expected blank milestone, got %q %v", res.MilestoneCode, res.MilestoneDate)
	}
	if res.BuildingID != "Bldg 1" {
		t.Fatalf("building id should still hydrate, got %q", res.BuildingID)
	}
	if res.Status != models.StatusAvailable {
		t.Fatalf("status should pass through, got %q", res.Status)
	}
}

func TestResolveOverride_DateTieGoesToLatestUpdate(t *testing.T) {
	idx := BuildOverrideIndex([]OverrideEntry{
		buildingMilestone("Aria", "Bldg 1", "FR", "2025-05-10", day("2025-05-01"), 0),
		buildingMilestone("Aria", "Bldg 1", "DW", "2025-05-10", day("2025-05-20"), 1),
	})
	record := offerRecord("Aria", "Aria", "101", models.StatusAvailable)

	res := ResolveOverride(idx, record, day("2025-06-01"), DefaultResolveOptions())
	if res.MilestoneCode != "DW" {
		t.Fatalf("milestone = %q, want the later-updated DW", res.MilestoneCode)
	}
}

func TestResolveOverride_EqualUpdateTieGoesToIngestionOrder(t *testing.T) {
	updated := day("2025-05-01")
	idx := BuildOverrideIndex([]OverrideEntry{
		buildingMilestone("Aria", "Bldg 1", "FR", "2025-05-10", updated, 0),
		buildingMilestone("Aria", "Bldg 1", "DW", "2025-05-10", updated, 1),
	})
	record := offerRecord("Aria", "Aria", "101", models.StatusAvailable)

	res := ResolveOverride(idx, record, day("2025-06-01"), DefaultResolveOptions())
	if res.MilestoneCode != "DW" {
		t.Fatalf("milestone = %q, want the later-ingested DW", res.MilestoneCode)
	}
}

func TestResolveOverride_UnitEntriesTakeTotalPrecedence(t *testing.T) {
	updated := day("2025-05-01")
	idx := BuildOverrideIndex([]OverrideEntry{
		buildingMilestone("SoMi HayView", "Building A", "DW", "2025-05-20", updated, 0),
		unitMilestone("SoMi HayView", "Building A", "HayView-306", "FR", "2025-03-01", updated, 1),
	})
	record := offerRecord("SoMi Hayward", "SoMi HayView", "306", models.StatusAvailable)

	res := ResolveOverride(idx, record, day("2025-06-01"), DefaultResolveOptions())
	if res.MilestoneCode != "FR" {
		t.Fatalf("milestone = %q, want unit-level FR even though the building has a later date", res.MilestoneCode)
	}
	if res.BuildingID != "Building A" {
		t.Fatalf("building = %q", res.BuildingID)
	}
}

func TestResolveOverride_UnitWithoutQualifyingFallsBackToBuilding(t *testing.T) {
	updated := day("2025-05-01")
	idx := BuildOverrideIndex([]OverrideEntry{
		buildingMilestone("SoMi HayView", "Building A", "DW", "2025-05-20", updated, 0),
		unitMilestone("SoMi HayView", "Building A", "HayView-306", "PT", "2025-09-01", updated, 1),
	})
	record := offerRecord("SoMi Hayward", "SoMi HayView", "306", models.StatusAvailable)

	res := ResolveOverride(idx, record, day("2025-06-01"), DefaultResolveOptions())
	if res.MilestoneCode != "DW" {
		t.Fatalf("milestone = %q, want building DW when the unit entry is still in the future", res.MilestoneCode)
	}
}

func TestResolveOverride_PreKickoffSuppressesEverything(t *testing.T) {
	updated := day("2025-05-01")
	idx := BuildOverrideIndex([]OverrideEntry{
		{Project: "Vida", BuildingID: "Tower 1", PreKickoff: true, UpdatedAt: updated, Seq: 0},
		buildingMilestone("Vida", "Tower 1", "DW", "2025-05-20", updated, 1),
		unitMilestone("Vida", "Tower 1", "101", "FR", "2025-03-01", updated, 2),
	})
	record := offerRecord("Vida", "Vida", "101", models.StatusPendingRelease)

	res := ResolveOverride(idx, record, day("2025-06-01"), DefaultResolveOptions())
	if !res.PreKickoff {
		t.Fatalf("pre-kickoff flag not carried")
	}
	if res.MilestoneCode != "" || res.MilestoneDate != nil {
		t.Fatalf("pre-kickoff building must suppress milestones, got %q", res.MilestoneCode)
	}
	if res.StatusOverridden || res.Status != models.StatusPendingRelease {
		t.Fatalf("pre-kickoff building must keep the native status, got %q", res.Status)
	}
	if res.BuildingID != "Tower 1" {
		t.Fatalf("building id should still attach, got %q", res.BuildingID)
	}
}

func TestResolveOverride_Monotonicity(t *testing.T) {
	// Moving today forward can only move the effective milestone forward.
	updated := day("2025-01-01")
	idx := BuildOverrideIndex([]OverrideEntry{
		buildingMilestone("Aria", "Bldg 1", "FR", "2025-02-01", updated, 0),
		buildingMilestone("Aria", "Bldg 1", "DW", "2025-04-01", updated, 1),
		buildingMilestone("Aria", "Bldg 1", "PT", "2025-06-01", updated, 2),
	})
	record := offerRecord("Aria", "Aria", "101", models.StatusAvailable)

	var prev time.Time
	for d := day("2025-01-15"); d.Before(day("2025-07-15")); d = d.AddDate(0, 0, 7) {
		res := ResolveOverride(idx, record, d, DefaultResolveOptions())
		if res.MilestoneDate == nil {
			if !prev.IsZero() {
				t.Fatalf("milestone disappeared at %s", d.Format("2006-01-02"))
			}
			continue
		}
		if res.MilestoneDate.Before(prev) {
			t.Fatalf("milestone date moved backwards at %s: %s < %s",
				d.Format("2006-01-02"), res.MilestoneDate.Format("2006-01-02"), prev.Format("2006-01-02"))
		}
		prev = *res.MilestoneDate
	}
}

func TestResolveOverride_StatusOverrideByCategoryPriority(t *testing.T) {
	updated := day("2025-05-01")
	offer := buildingMilestone("Aria", "Bldg 1", "FR", "2025-03-01", updated, 0)
	offer.Category = models.CategoryOffer
	closed := buildingMilestone("Aria", "Bldg 1", "DW", "2025-02-01", updated, 1)
	closed.Category = models.CategoryClosed
	idx := BuildOverrideIndex([]OverrideEntry{offer, closed})
	record := offerRecord("Aria", "Aria", "101", models.StatusAvailable)

	res := ResolveOverride(idx, record, day("2025-06-01"), DefaultResolveOptions())
	if !res.StatusOverridden {
		t.Fatalf("status should be overridden")
	}
	if res.Status != models.StatusClosed || res.StatusNumeric != 1 {
		t.Fatalf("closed must outrank offer: got %q (%d)", res.Status, res.StatusNumeric)
	}
}

func TestResolveOverride_StatusOverrideToggleOff(t *testing.T) {
	updated := day("2025-05-01")
	entry := buildingMilestone("Aria", "Bldg 1", "FR", "2025-03-01", updated, 0)
	entry.Category = models.CategoryClosed
	idx := BuildOverrideIndex([]OverrideEntry{entry})
	record := offerRecord("Aria", "Aria", "101", models.StatusAvailable)

	res := ResolveOverride(idx, record, day("2025-06-01"), ResolveOptions{StatusOverride: false})
	if res.StatusOverridden || res.Status != models.StatusAvailable {
		t.Fatalf("toggle off must keep native status, got %q", res.Status)
	}
	if res.MilestoneCode != "FR" {
		t.Fatalf("milestone resolution is not toggleable, got %q", res.MilestoneCode)
	}
}

func TestResolveOverride_NoEntriesForProject(t *testing.T) {
	idx := BuildOverrideIndex(nil)
	record := offerRecord("Aria", "Aria", "101", models.StatusAvailable)

	res := ResolveOverride(idx, record, day("2025-06-01"), DefaultResolveOptions())
	if res.BuildingID != "" || res.MilestoneCode != "" || res.StatusOverridden {
		t.Fatalf("expected a passthrough resolution, got %+v", res)
	}
}

func TestLookupUnit_KeyVariants(t *testing.T) {
	updated := day("2025-05-01")
	idx := BuildOverrideIndex([]OverrideEntry{
		unitMilestone("SoMi HayView", "Building A", "HayView-306", "FR", "2025-03-01", updated, 0),
	})

	cases := []struct {
		query string
		hit   bool
	}{
		{"HayView-306", true}, // exact
		{"306", true},         // suffix / digits
		{"306.0", true},       // float artifact collapses first
		{"307", false},
	}
	for _, c := range cases {
		building, entries := idx.LookupUnit("SoMi HayView", c.query)
		if c.hit && (building != "Building A" || len(entries) != 1) {
			t.Fatalf("LookupUnit(%q): building=%q entries=%d, want a hit", c.query, building, len(entries))
		}
		if !c.hit && len(entries) != 0 {
			t.Fatalf("LookupUnit(%q): unexpected hit", c.query)
		}
	}
}

func TestLookupUnit_ExactOutranksDerivedForms(t *testing.T) {
	updated := day("2025-05-01")
	idx := BuildOverrideIndex([]OverrideEntry{
		unitMilestone("SoMi HayView", "Building A", "306", "FR", "2025-03-01", updated, 0),
		unitMilestone("SoMi HayView", "Building A", "HayView-306", "DW", "2025-04-01", updated, 1),
	})

	_, entries := idx.LookupUnit("SoMi HayView", "306")
	if len(entries) != 1 || entries[0].MilestoneCode != "FR" {
		t.Fatalf("exact key must win before suffix matching, got %+v", entries)
	}
}

func TestLookupUnit_AmbiguousDerivedKeyWithinBuilding(t *testing.T) {
	updated := day("2025-05-01")
	// Two distinct stored keys collapse to the digits form "205". The first
	// registered key wins; the other is dropped from the match.
	idx := BuildOverrideIndex([]OverrideEntry{
		unitMilestone("SoMi Haypark", "Bldg 2", "Towns-205", "DW", "2025-03-01", updated, 0),
		unitMilestone("SoMi Haypark", "Bldg 2", "Block-205", "FR", "2025-04-01", updated, 1),
	})

	building, entries := idx.LookupUnit("SoMi Haypark", "205")
	if building != "Bldg 2" || len(entries) != 1 {
		t.Fatalf("building=%q entries=%d, want one entry from Bldg 2", building, len(entries))
	}
	if entries[0].UnitKey != "Towns-205" || entries[0].MilestoneCode != "DW" {
		t.Fatalf("ambiguous digits match kept %q (%s), want the first stored key Towns-205", entries[0].UnitKey, entries[0].MilestoneCode)
	}
}

func TestLookupUnit_AmbiguousKeyAcrossBuildings(t *testing.T) {
	updated := day("2025-05-01")
	// The same unit key in two buildings of one project resolves to the first
	// building in sorted order, regardless of entry declaration order.
	idx := BuildOverrideIndex([]OverrideEntry{
		unitMilestone("SoMi HayView", "Building B", "205", "FR", "2025-04-01", updated, 0),
		unitMilestone("SoMi HayView", "Building A", "205", "DW", "2025-03-01", updated, 1),
	})

	building, entries := idx.LookupUnit("SoMi HayView", "205")
	if building != "Building A" {
		t.Fatalf("building = %q, want Building A", building)
	}
	if len(entries) != 1 || entries[0].MilestoneCode != "DW" {
		t.Fatalf("entries = %+v, want the Building A milestone", entries)
	}
}

func TestResolveOverride_SoleBuildingHydration(t *testing.T) {
	updated := day("2025-05-01")
	idx := BuildOverrideIndex([]OverrideEntry{
		buildingMilestone("Aria", "Bldg 1", "PT", "2025-09-01", updated, 0),
	})
	record := offerRecord("Aria", "Aria", "401", models.StatusAvailable)

	res := ResolveOverride(idx, record, day("2025-06-01"), DefaultResolveOptions())
	if res.BuildingID != "Bldg 1" {
		t.Fatalf("sole building should hydrate the id, got %q", res.BuildingID)
	}
}

func TestEntriesFromOpsItems_MalformedPayloadExcluded(t *testing.T) {
	items := []*models.OpsMilestoneItem{
		{
			Pk: "Aria", Sk: models.BuildingSentinel, ProjectId: "Aria", BuildingId: "Bldg 1",
			Data:      `{"building":{"project_id":"Aria","building_id":"Bldg 1"},"milestones":[{"code":"DW","date":"2025-05-10"}]}`,
			UpdatedAt: day("2025-05-11"),
		},
		{
			Pk: "Aria", Sk: "101", ProjectId: "Aria", BuildingId: "Bldg 1",
			Data:      `{"milestones":[{"code":"FRAMING","date":"yesterday"}]}`,
			UpdatedAt: day("2025-05-12"),
		},
		{
			Pk: "Aria", Sk: "102", ProjectId: "Aria", BuildingId: "Bldg 1",
			Data:      `not json`,
			UpdatedAt: day("2025-05-13"),
		},
	}

	entries, excluded := EntriesFromOpsItems(items)
	if len(entries) != 1 {
		t.Fatalf("expected 1 usable entry, got %d", len(entries))
	}
	if len(excluded) != 2 {
		t.Fatalf("expected 2 exclusions, got %d", len(excluded))
	}
	if entries[0].MilestoneCode != "DW" || entries[0].BuildingID != "Bldg 1" {
		t.Fatalf("unexpected entry: %+v", entries[0])
	}
}

func TestEntriesFromOpsItems_PreKickoffFlagOnly(t *testing.T) {
	items := []*models.OpsMilestoneItem{
		{
			Pk: "Vida", Sk: models.BuildingSentinel, ProjectId: "Vida", BuildingId: "Tower 1",
			Data:      `{"building":{"project_id":"Vida","building_id":"Tower 1","pre_kickoff":true},"milestones":[]}`,
			UpdatedAt: day("2025-05-11"),
		},
	}

	entries, excluded := EntriesFromOpsItems(items)
	if len(excluded) != 0 {
		t.Fatalf("unexpected exclusions: %v", excluded)
	}
	if len(entries) != 1 || !entries[0].PreKickoff {
		t.Fatalf("flag-only item must still produce a building entry: %+v", entries)
	}

	idx := BuildOverrideIndex(entries)
	if !idx.PreKickoff("Vida", "Tower 1") {
		t.Fatalf("pre-kickoff flag lost in the index")
	}
}
