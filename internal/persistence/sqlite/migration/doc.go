// Package migration applies versioned SQL schema changes to a SQLite
// database.
//
// Migrations are read from an fs.FS, normally an embed.FS compiled into the
// binary, and must be named {version}_{description}.sql (for example
// "001_initial_schema.sql"). Applied versions are recorded in the
// schema_migrations table together with a BLAKE3 checksum of the file, so a
// migration edited after it shipped is reported instead of silently skipped.
//
// Example usage:
//
//	manager := migration.NewManager(db, migrationFiles, logger)
//	if _, err := manager.Run(ctx); err != nil {
//		return err
//	}
package migration
