package workflow

import (
	"fmt"

	"gorm.io/gorm"
)

// AcquireReportRunLock serializes report generation across instances using
// MySQL advisory locks.
// NOTE: GET_LOCK is connection-scoped, so this must be called on the same *gorm.DB that will run the pipeline.
func AcquireReportRunLock(tx *gorm.DB, runDate string) error {
	lockName := fmt.Sprintf("report_run:%s", runDate)
	var ok int
	if err := tx.Raw("SELECT GET_LOCK(?, 30)", lockName).Scan(&ok).Error; err != nil {
		return err
	}
	if ok != 1 {
		return fmt.Errorf("could not acquire report run lock for run_date=%s", runDate)
	}
	return nil
}

func ReleaseReportRunLock(tx *gorm.DB, runDate string) {
	lockName := fmt.Sprintf("report_run:%s", runDate)
	var _ok int
	_ = tx.Raw("SELECT RELEASE_LOCK(?)", lockName).Scan(&_ok).Error
}
