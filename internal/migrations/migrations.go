package migrations

import (
	"database/sql"
	"embed"
	"errors"

	ierr "github.com/flexprice/reconciler/internal/errors"
	"github.com/flexprice/reconciler/internal/logger"
	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed sql/*.sql
var sqlFS embed.FS

// Migrator applies the embedded schema. The unique constraints it creates are
// what makes concurrent webhook deliveries converge on one row.
type Migrator struct {
	m      *migrate.Migrate
	logger *logger.Logger
}

// New builds a migrator over an open connection
func New(db *sql.DB, logger *logger.Logger) (*Migrator, error) {
	driver, err := migratepg.WithInstance(db, &migratepg.Config{})
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to create migration driver").
			Mark(ierr.ErrDatabase)
	}

	source, err := iofs.New(sqlFS, "sql")
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to open embedded migrations").
			Mark(ierr.ErrSystem)
	}

	m, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to initialise migrations").
			Mark(ierr.ErrDatabase)
	}

	return &Migrator{m: m, logger: logger}, nil
}

// Up applies pending migrations. An up-to-date schema is not an error.
func (mg *Migrator) Up() error {
	before := mg.version()
	if err := mg.m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			mg.logger.Infow("schema is up to date", "version", before)
			return nil
		}
		return ierr.WithError(err).
			WithHint("Failed to apply migrations").
			Mark(ierr.ErrDatabase)
	}
	mg.logger.Infow("applied migrations", "from_version", before, "to_version", mg.version())
	return nil
}

// Down rolls back the given number of migrations
func (mg *Migrator) Down(steps int) error {
	if err := mg.m.Steps(-steps); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return ierr.WithError(err).
			WithHintf("Failed to roll back %d migrations", steps).
			Mark(ierr.ErrDatabase)
	}
	mg.logger.Infow("rolled back migrations", "steps", steps, "version", mg.version())
	return nil
}

// Version returns the current schema version and whether it is dirty
func (mg *Migrator) Version() (uint, bool, error) {
	v, dirty, err := mg.m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return v, dirty, err
}

func (mg *Migrator) version() uint {
	v, _, err := mg.Version()
	if err != nil {
		mg.logger.Warnw("unable to read schema version", "error", err)
	}
	return v
}

// Close releases the source and database handles held by the migrator
func (mg *Migrator) Close() error {
	srcErr, dbErr := mg.m.Close()
	return errors.Join(srcErr, dbErr)
}
