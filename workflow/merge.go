package workflow

import (
	"sort"
	"strings"

	"bitbucket.org/hbfadata/mylar_backend/config"
	"bitbucket.org/hbfadata/mylar_backend/models"
	"bitbucket.org/hbfadata/mylar_backend/utils"
	"github.com/sirupsen/logrus"
)

// excludedProjects are dropped from every merged set unless the inclusion
// flag re-enables them. Keys are lowercased.
var excludedProjects = map[string]bool{
	"fusion": true,
}

// MergeOptions controls merged-set construction.
type MergeOptions struct {
	IncludeExcludedProjects bool
	Logger                  *logrus.Logger
}

// DefaultMergeOptions reads the feature flags.
func DefaultMergeOptions() MergeOptions {
	return MergeOptions{
		IncludeExcludedProjects: config.IncludeExcludedProjects(),
		Logger:                  config.GetLogger(),
	}
}

type identityKey struct {
	project string
	unit    string
}

func identityOf(offer *models.SalesOffer) identityKey {
	return identityKey{
		project: strings.ToLower(strings.TrimSpace(offer.ProjectName)),
		unit:    strings.ToLower(utils.NormalizeUnitNumber(offer.ContractUnitNumber)),
	}
}

// MergeRecords collapses the append-only snapshot log to one row per
// (project, unit) identity: the latest extraction wins, and an exact
// extraction-time tie goes to the later input position so re-running over
// the same store is reproducible. Ties are logged, not swallowed. Input
// order is preserved for the survivors.
func MergeRecords(offers []*models.SalesOffer, opts MergeOptions) []*models.SalesOffer {
	logger := opts.Logger
	if logger == nil {
		logger = config.GetLogger()
	}

	type slot struct {
		offer *models.SalesOffer
		pos   int
	}
	byIdentity := make(map[identityKey]*slot, len(offers))
	order := make([]identityKey, 0, len(offers))

	for i, offer := range offers {
		if offer == nil {
			continue
		}
		if !opts.IncludeExcludedProjects && excludedProjects[strings.ToLower(strings.TrimSpace(offer.ProjectName))] {
			continue
		}

		key := identityOf(offer)
		existing, ok := byIdentity[key]
		if !ok {
			byIdentity[key] = &slot{offer: offer, pos: i}
			order = append(order, key)
			continue
		}
		if offer.ExtractedAt.Before(existing.offer.ExtractedAt) {
			continue
		}
		if offer.ExtractedAt.Equal(existing.offer.ExtractedAt) {
			config.LogWarn(logger, "workflow", "MergeRecords", "identity collision at equal extraction time", map[string]any{
				"project":      offer.ProjectName,
				"unit":         offer.ContractUnitNumber,
				"extracted_at": offer.ExtractedAt,
				"kept_source":  offer.SourceFile,
				"lost_source":  existing.offer.SourceFile,
			})
		}
		existing.offer = offer
		existing.pos = i
	}

	merged := make([]*models.SalesOffer, 0, len(order))
	for _, key := range order {
		merged = append(merged, byIdentity[key].offer)
	}
	sort.SliceStable(merged, func(a, b int) bool {
		return byIdentity[identityOf(merged[a])].pos < byIdentity[identityOf(merged[b])].pos
	})
	return merged
}
