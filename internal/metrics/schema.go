package metrics

import (
	"database/sql"

	"codeberg.org/mutker/viturectl/internal/errors"
	"codeberg.org/mutker/viturectl/internal/logger"
)

const (
	SchemaVersion = 1

	createTablesSQL = `
	   CREATE TABLE IF NOT EXISTS schema_versions (
	       version     INTEGER PRIMARY KEY,
	       applied_at  TEXT NOT NULL
	   );
	   CREATE TABLE IF NOT EXISTS relay_stats (
	       id               INTEGER PRIMARY KEY AUTOINCREMENT,
	       timestamp        INTEGER NOT NULL CHECK (typeof(timestamp) = 'integer'),
	       frames_sent      INTEGER NOT NULL CHECK (frames_sent >= 0),
	       send_errors      INTEGER NOT NULL CHECK (send_errors >= 0),
	       commands_applied INTEGER NOT NULL CHECK (commands_applied >= 0),
	       records_skipped  INTEGER NOT NULL CHECK (records_skipped >= 0),
	       sessions_opened  INTEGER NOT NULL CHECK (sessions_opened >= 0),
	       session_failures INTEGER NOT NULL CHECK (session_failures >= 0),
	       device_active    INTEGER NOT NULL CHECK (device_active IN (0, 1))
	   );
	   CREATE INDEX IF NOT EXISTS relay_stats_timestamp ON relay_stats (timestamp);`

	insertSnapshotSQL = `
    INSERT INTO relay_stats (
        timestamp,
        frames_sent, send_errors,
        commands_applied, records_skipped,
        sessions_opened, session_failures,
        device_active
    ) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
)

// managedTables lists every table the schema owns, dependents first.
var managedTables = []string{"relay_stats", "schema_versions"}

// withTx runs fn in a transaction and commits it. Any error from fn rolls
// the transaction back and is returned as is.
func withTx(db *sql.DB, log logger.Logger, code errors.ErrorCode, fn func(*sql.Tx) error) error {
	errFactory := errors.New()

	tx, err := db.Begin()
	if err != nil {
		return errFactory.Wrap(code, err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			log.Debug().Err(rbErr).Msg("Failed to roll back transaction")
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return errFactory.Wrap(code, err)
	}

	return nil
}

// InitSchema creates the tables and records SchemaVersion.
func InitSchema(db *sql.DB, log logger.Logger) error {
	errFactory := errors.New()

	err := withTx(db, log, ErrSchemaInitFailed, func(tx *sql.Tx) error {
		if _, err := tx.Exec(createTablesSQL); err != nil {
			return errFactory.WithData(ErrSchemaInitFailed, struct {
				Phase string
				Error string
			}{
				Phase: "create_tables",
				Error: err.Error(),
			})
		}

		if _, err := tx.Exec(
			`INSERT INTO schema_versions (version, applied_at) VALUES (?, datetime('now'))`,
			SchemaVersion,
		); err != nil {
			return errFactory.WithData(ErrSchemaInitFailed, struct {
				Phase string
				Error string
			}{
				Phase: "record_version",
				Error: err.Error(),
			})
		}

		return nil
	})
	if err != nil {
		return err
	}

	log.Info().Int("version", SchemaVersion).Msg("Metrics schema initialized")

	return nil
}

// GetSchemaVersion returns the recorded schema version, or 0 for an empty
// database.
func GetSchemaVersion(db *sql.DB) (int, error) {
	errFactory := errors.New()

	exists, err := TableExists(db, "schema_versions")
	if err != nil || !exists {
		return 0, err
	}

	var version int
	err = db.QueryRow(`SELECT version FROM schema_versions ORDER BY version DESC LIMIT 1`).Scan(&version)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return 0, nil
	case err != nil:
		return 0, errFactory.WithData(ErrSchemaValidationFailed, struct {
			Phase string
			Error string
		}{
			Phase: "get_version",
			Error: err.Error(),
		})
	}

	return version, nil
}

// TableExists reports whether tableName is present in the database.
func TableExists(db *sql.DB, tableName string) (bool, error) {
	var exists bool

	err := db.QueryRow(
		`SELECT EXISTS (SELECT 1 FROM sqlite_master WHERE type = 'table' AND name = ?)`,
		tableName,
	).Scan(&exists)
	if err != nil {
		return false, errors.New().WithData(ErrSchemaValidationFailed, struct {
			Phase string
			Table string
			Error string
		}{
			Phase: "check_table_exists",
			Table: tableName,
			Error: err.Error(),
		})
	}

	return exists, nil
}

// GetInsertSnapshotSQL returns the SQL to insert a relay statistics snapshot
func GetInsertSnapshotSQL() string {
	return insertSnapshotSQL
}
