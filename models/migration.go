package models

import (
	"log"

	"bitbucket.org/mmdatafocus/checks_backend/config"
)

func MigrateTable() {
	db := config.GetDB()

	err := db.AutoMigrate(
		&User{},
		&Document{},
		&UnmatchedReport{},
		&Notification{},
		&IdempotencyKey{},
	)
	if err != nil {
		log.Fatal(err)
	}
}
