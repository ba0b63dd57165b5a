package opssync

import (
	"testing"

	"bitbucket.org/hbfadata/mylar_backend/models"
)

func TestCanonicalProjectKey(t *testing.T) {
	cases := []struct {
		pk       string
		building string
		want     string
	}{
		{"SoMi Towns", "", "SoMi Towns"},
		{"somi haypark", "", "SoMi Towns"},
		{"SoMi Haypark", "", "SoMi Towns"},
		{"somi hayview", "", "SoMi B"},
		{"somi hayview", "Building A", "SoMi A"},
		{"somi hayview", "Tower A", "SoMi A"},
		{"somi hayview", "Bldg B", "SoMi B"},
		{"fusion", "", "Fusion"},
		{"Lakeview", "", "Lakeview"},
		{" Aria ", "", "Aria"},
	}
	for _, c := range cases {
		if got := CanonicalProjectKey(c.pk, c.building); got != c.want {
			t.Fatalf("CanonicalProjectKey(%q, %q) = %q, want %q", c.pk, c.building, got, c.want)
		}
	}
}

func TestCanonicalUnitKey(t *testing.T) {
	cases := []struct {
		project string
		sk      string
		want    string
	}{
		{"SoMi A", "6", "HayView-006"},
		{"SoMi A", "306", "HayView-306"},
		{"SoMi B", "HayView-306", "HayView-306"},
		{"SoMi B", "306.0", "HayView-306"},
		{"SoMi Towns", "205.0", "205"},
		{"SoMi Towns", "205", "205"},
		{"Aria", models.BuildingSentinel, models.BuildingSentinel},
		{"SoMi A", models.BuildingSentinel, models.BuildingSentinel},
		{"SoMi A", "TBD", "TBD"},
	}
	for _, c := range cases {
		if got := CanonicalUnitKey(c.project, c.sk); got != c.want {
			t.Fatalf("CanonicalUnitKey(%q, %q) = %q, want %q", c.project, c.sk, got, c.want)
		}
	}
}
