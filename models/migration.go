package models

import (
	"log"

	"bitbucket.org/hbfadata/mylar_backend/config"
)

func MigrateTable() {
	db := config.GetDB()

	err := db.AutoMigrate(
		&SalesOffer{},
		&OpsMilestoneItem{},
		&ReportRun{},
	)
	if err != nil {
		log.Fatal(err)
	}
}
