package config

import (
	"os"
	"strings"
)

// OpsStatusOverrideEnabled controls the legacy policy where qualifying ops
// milestone entries replace the sales-system status/status numeric. Milestone
// code/date resolution is unaffected by this flag.
//
// The sales system is becoming the sole owner of unit status; once that
// migration lands this flag is retired.
//
// Set via env:
// - OPS_STATUS_OVERRIDE=false to turn the override step off (default on)
func OpsStatusOverrideEnabled() bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv("OPS_STATUS_OVERRIDE")))
	if v == "" {
		return true
	}
	return v == "1" || v == "true" || v == "yes" || v == "y" || v == "on"
}

// IncludeExcludedProjects re-enables projects that are dropped from the merged
// record set because their upstream feed is unreliable (currently Fusion).
//
// Set via env:
// - INCLUDE_EXCLUDED_PROJECTS=true
func IncludeExcludedProjects() bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv("INCLUDE_EXCLUDED_PROJECTS")))
	return v == "1" || v == "true" || v == "yes" || v == "y" || v == "on"
}
