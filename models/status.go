package models

// Unit status labels as the sales system exports them. StatusOrder is the
// single source of truth for sort order and row highlight color.
const (
	StatusClosed         = "Closed"
	StatusBacklog        = "Ratified - Fully executed"
	StatusOffer          = "Offer - Out for signature"
	StatusAvailable      = "Available"
	StatusPendingRelease = "Pending Release"
	StatusProjectedCoe   = "Projected COE"
)

// StatusNumericUnknown marks rows whose status text is not in StatusOrder.
// Such rows are excluded from the report and logged, never fatal.
const StatusNumericUnknown = 99

var StatusOrder = map[string]int{
	StatusClosed:         1,
	StatusBacklog:        2,
	StatusOffer:          3,
	StatusAvailable:      4,
	StatusPendingRelease: 5,
}

var statusForNumeric = map[int]string{
	1: StatusClosed,
	2: StatusBacklog,
	3: StatusOffer,
	4: StatusAvailable,
	5: StatusPendingRelease,
}

// AssignStatusNumeric maps status text to its rank, StatusNumericUnknown when
// the text is not recognized.
func AssignStatusNumeric(status string) int {
	if n, ok := StatusOrder[status]; ok {
		return n
	}
	return StatusNumericUnknown
}

func StatusForNumeric(n int) (string, bool) {
	s, ok := statusForNumeric[n]
	return s, ok
}

// HighlightColors gives the RGB fill used by the presentation layer per
// status numeric. Lives next to StatusOrder so the two cannot drift.
var HighlightColors = map[int][3]int{
	1: {244, 121, 131},
	2: {255, 196, 79},
	3: {255, 196, 79},
	4: {173, 221, 142},
	5: {200, 200, 200},
}

// OverrideCategory classifies an ops milestone entry for the legacy status
// override step.
type OverrideCategory string

const (
	CategoryClosed       OverrideCategory = "closed"
	CategoryBacklog      OverrideCategory = "backlog"
	CategoryOffer        OverrideCategory = "offer"
	CategoryInventory    OverrideCategory = "inventory"
	CategoryUnreleased   OverrideCategory = "unreleased"
	CategoryProjectedCoe OverrideCategory = "projected_coe"
)

// OverrideCategoryPriority is the fixed business policy for which category
// wins when several qualify. Ordered data, not branching code, so retiring
// the status override stays a single toggle.
var OverrideCategoryPriority = []OverrideCategory{
	CategoryClosed,
	CategoryBacklog,
	CategoryOffer,
	CategoryInventory,
	CategoryUnreleased,
	CategoryProjectedCoe,
}

var OverrideCategoryNumeric = map[OverrideCategory]int{
	CategoryClosed:       1,
	CategoryBacklog:      2,
	CategoryOffer:        3,
	CategoryInventory:    4,
	CategoryUnreleased:   5,
	CategoryProjectedCoe: 6,
}

var OverrideCategoryLabel = map[OverrideCategory]string{
	CategoryClosed:       StatusClosed,
	CategoryBacklog:      StatusBacklog,
	CategoryOffer:        StatusOffer,
	CategoryInventory:    StatusAvailable,
	CategoryUnreleased:   StatusPendingRelease,
	CategoryProjectedCoe: StatusProjectedCoe,
}

func (c OverrideCategory) Valid() bool {
	_, ok := OverrideCategoryNumeric[c]
	return ok
}
