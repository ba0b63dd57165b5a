package opssync

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"strings"

	"bitbucket.org/hbfadata/mylar_backend/config"
	"bitbucket.org/hbfadata/mylar_backend/models"
	"bitbucket.org/hbfadata/mylar_backend/utils"
	mysqlDriver "github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
)

func isDuplicateKeyErr(err error) bool {
	var mysqlErr *mysqlDriver.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == 1062
	}
	return false
}

// Canonical project names for the ops milestone store. Anything else is a
// historical alias that the key sync rewrites.
var canonicalProjects = map[string]bool{
	"SoMi Towns": true,
	"SoMi A":     true,
	"SoMi B":     true,
	"Fusion":     true,
	"Aria":       true,
	"Vida":       true,
}

// projectAliasMap resolves lowercased legacy project keys. "somi hayview"
// defaults to SoMi B; the building split below refines it.
var projectAliasMap = map[string]string{
	"somi haypark": "SoMi Towns",
	"somi hayview": "SoMi B",
	"fusion":       "Fusion",
	"aria":         "Aria",
	"vida":         "Vida",
}

// projectByBuilding splits the old combined "somi hayview" project by
// building spelling. Keys are (lowercased project alias, lowercased
// building).
var projectByBuilding = map[[2]string]string{
	{"somi hayview", "building a"}: "SoMi A",
	{"somi hayview", "bldg a"}:     "SoMi A",
	{"somi hayview", "tower a"}:    "SoMi A",
	{"somi hayview", "a"}:          "SoMi A",
	{"somi hayview", "building b"}: "SoMi B",
	{"somi hayview", "bldg b"}:     "SoMi B",
	{"somi hayview", "tower b"}:    "SoMi B",
	{"somi hayview", "b"}:          "SoMi B",
}

// unitPrefixByProject carries the unit-key prefix the ops team uses for the
// split HayView buildings. Digits are zero-padded to three.
var unitPrefixByProject = map[string]string{
	"SoMi A": "HayView-",
	"SoMi B": "HayView-",
}

// CanonicalProjectKey maps a stored project key (plus the item's building,
// when known) to its canonical name. Unknown projects pass through trimmed.
func CanonicalProjectKey(pk string, buildingId string) string {
	trimmed := strings.TrimSpace(pk)
	if canonicalProjects[trimmed] {
		return trimmed
	}
	alias := strings.ToLower(trimmed)
	building := strings.ToLower(strings.TrimSpace(buildingId))
	if building != "" {
		if project, ok := projectByBuilding[[2]string{alias, building}]; ok {
			return project
		}
	}
	if project, ok := projectAliasMap[alias]; ok {
		return project
	}
	return trimmed
}

// CanonicalUnitKey rewrites a stored unit key for its canonical project.
// The building sentinel is never touched.
func CanonicalUnitKey(project string, sk string) string {
	if sk == models.BuildingSentinel {
		return sk
	}
	normalized := utils.NormalizeUnitNumber(sk)
	prefix, ok := unitPrefixByProject[project]
	if !ok {
		return normalized
	}
	digits := utils.DigitsOnly(normalized)
	if digits == "" {
		return normalized
	}
	for len(digits) < 3 {
		digits = "0" + digits
	}
	return prefix + digits
}

type KeyChange struct {
	OldPk string `json:"old_pk"`
	OldSk string `json:"old_sk"`
	NewPk string `json:"new_pk"`
	NewSk string `json:"new_sk"`
}

type KeySyncOptions struct {
	// Apply writes the rewrites; the default is a dry run that only
	// reports them.
	Apply bool
	// Limit caps the number of rewrites applied, 0 for no cap.
	Limit int
	// BackupPath receives the original rows as JSONL before an apply.
	BackupPath string
}

type KeySyncResult struct {
	Scanned int
	Changed int
	Applied int
	Changes []KeyChange
}

// NormalizeOpsKeys scans the ops milestone store and rewrites legacy
// project and unit keys to the canonical form.
func NormalizeOpsKeys(ctx context.Context, opts KeySyncOptions) (*KeySyncResult, error) {
	logger := config.GetLogger()

	items, err := models.ListOpsMilestones(ctx)
	if err != nil {
		return nil, err
	}

	result := &KeySyncResult{Scanned: len(items)}
	var pending []*models.OpsMilestoneItem
	for _, item := range items {
		newPk := CanonicalProjectKey(item.Pk, item.BuildingId)
		newSk := CanonicalUnitKey(newPk, item.Sk)
		if newPk == item.Pk && newSk == item.Sk {
			continue
		}
		result.Changed++
		result.Changes = append(result.Changes, KeyChange{
			OldPk: item.Pk, OldSk: item.Sk, NewPk: newPk, NewSk: newSk,
		})
		pending = append(pending, item)
		if opts.Limit > 0 && len(pending) >= opts.Limit {
			break
		}
	}

	if !opts.Apply || len(pending) == 0 {
		return result, nil
	}

	if opts.BackupPath != "" {
		if err := writeBackup(opts.BackupPath, pending); err != nil {
			return nil, err
		}
	}

	db := config.GetDB().WithContext(ctx)
	err = db.Transaction(func(tx *gorm.DB) error {
		for i, item := range pending {
			change := result.Changes[i]

			err := tx.Model(&models.OpsMilestoneItem{}).
				Where("pk = ? AND sk = ?", item.Pk, item.Sk).
				Updates(map[string]interface{}{
					"pk":         change.NewPk,
					"sk":         change.NewSk,
					"project_id": change.NewPk,
				}).Error
			if isDuplicateKeyErr(err) {
				// Target key already holds a row; this one stays put.
				config.LogWarn(logger, "opssync", "NormalizeOpsKeys", "target key already exists, skipped", map[string]any{
					"old_pk": change.OldPk, "old_sk": change.OldSk,
					"new_pk": change.NewPk, "new_sk": change.NewSk,
				})
				continue
			}
			if err != nil {
				return err
			}
			result.Applied++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func writeBackup(path string, items []*models.OpsMilestoneItem) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	for _, item := range items {
		if err := enc.Encode(item); err != nil {
			return err
		}
	}
	return nil
}
