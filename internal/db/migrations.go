package db

import (
	"fmt"

	"gorm.io/gorm"
)

var migrationStatements = []string{
	`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`,
	`CREATE TABLE IF NOT EXISTS decision_records (
		id                  UUID PRIMARY KEY,
		plate               TEXT,
		plate_raw           TEXT,
		plate_ambiguous     BOOLEAN NOT NULL DEFAULT FALSE,
		parity              TEXT NOT NULL,
		capture_date        DATE NOT NULL,
		restricted_class    TEXT NOT NULL,
		verdict             TEXT NOT NULL,
		failure_reason      TEXT,
		detector_confidence NUMERIC(5,2),
		ocr_confidence      NUMERIC(5,2),
		image_ref           TEXT,
		raw_payload         JSONB,
		created_at          TIMESTAMPTZ NOT NULL DEFAULT now()
	);`,
	`CREATE INDEX IF NOT EXISTS idx_decision_records_capture_date ON decision_records(capture_date);`,
	`CREATE INDEX IF NOT EXISTS idx_decision_records_verdict ON decision_records(verdict);`,
	`CREATE INDEX IF NOT EXISTS idx_decision_records_plate ON decision_records(plate);`,
}

func runMigrations(db *gorm.DB) error {
	for i, stmt := range migrationStatements {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}
	return nil
}
