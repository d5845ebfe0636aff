package database

import (
	"fmt"

	"neighborfit/server/internal/models"
)

const textIndexTable = "neighborhoods_fts"

func (d *Database) RunMigrations() error {
	if err := d.db.AutoMigrate(&models.Neighborhood{}); err != nil {
		return fmt.Errorf("failed to migrate neighborhoods table: %w", err)
	}

	// The text index is optional; search falls back to name matching without it
	if err := d.createTextIndex(); err != nil {
		d.logger.WithError(err).Warn("Full-text index unavailable, text search will use name matching")
		d.fullText = false
		return nil
	}
	d.fullText = true
	return nil
}

func (d *Database) createTextIndex() error {
	statements := []string{
		`CREATE VIRTUAL TABLE IF NOT EXISTS neighborhoods_fts
			USING fts4(id, name, description, notindexed=id);`,
		`CREATE TRIGGER IF NOT EXISTS neighborhoods_fts_insert AFTER INSERT ON neighborhoods
		BEGIN
			INSERT INTO neighborhoods_fts (id, name, description)
			VALUES (new.id, new.name, COALESCE(new.description, ''));
		END;`,
		`CREATE TRIGGER IF NOT EXISTS neighborhoods_fts_update AFTER UPDATE OF name, description ON neighborhoods
		BEGIN
			UPDATE neighborhoods_fts
			SET name = new.name, description = COALESCE(new.description, '')
			WHERE id = old.id;
		END;`,
		`CREATE TRIGGER IF NOT EXISTS neighborhoods_fts_delete AFTER DELETE ON neighborhoods
		BEGIN
			DELETE FROM neighborhoods_fts WHERE id = old.id;
		END;`,
		// Backfill rows written before the index existed
		`INSERT INTO neighborhoods_fts (id, name, description)
		SELECT id, name, COALESCE(description, '') FROM neighborhoods
		WHERE id NOT IN (SELECT id FROM neighborhoods_fts);`,
	}

	for _, stmt := range statements {
		if err := d.db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("failed to create text index: %w", err)
		}
	}
	return nil
}
