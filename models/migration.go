package models

import (
	"log"

	"bitbucket.org/lgugso/assets_backend/config"
)

func MigrateTable() {
	db := config.GetDB()

	err := db.AutoMigrate(
		&User{},
		&PpeEntry{},
		&ParRecord{},
		&IcsRecord{},
	)
	if err != nil {
		log.Fatal(err)
	}
}
