package postgres

import (
	ierr "github.com/flexprice/reconciler/internal/errors"
	"github.com/flexprice/reconciler/internal/postgres"
)

// writeError maps an insert or update failure. A unique violation means a
// concurrent writer won and is reported as ErrAlreadyExists. A foreign key
// violation means the parent row is gone, e.g. an order removed after its
// item failed.
func writeError(err error, entity string, details map[string]any) error {
	if postgres.IsUniqueViolation(err) {
		details["constraint"] = postgres.ConstraintName(err)
		return ierr.WithError(err).
			WithHintf("A %s with these identifiers already exists", entity).
			WithReportableDetails(details).
			Mark(ierr.ErrAlreadyExists)
	}
	if postgres.IsForeignKeyViolation(err) {
		details["constraint"] = postgres.ConstraintName(err)
		return ierr.WithError(err).
			WithHintf("The %s references a row that does not exist", entity).
			WithReportableDetails(details).
			Mark(ierr.ErrNotFound)
	}
	return ierr.WithError(err).
		WithHintf("Failed to write %s", entity).
		WithReportableDetails(details).
		Mark(ierr.ErrDatabase)
}

// readError maps a lookup failure. sql.ErrNoRows becomes ErrNotFound.
func readError(err error, entity string, details map[string]any) error {
	if postgres.IsNoRows(err) {
		return ierr.WithError(err).
			WithHintf("%s not found", entity).
			WithReportableDetails(details).
			Mark(ierr.ErrNotFound)
	}
	return ierr.WithError(err).
		WithHintf("Failed to read %s", entity).
		WithReportableDetails(details).
		Mark(ierr.ErrDatabase)
}

// notFoundIfNoRowsAffected turns an update that matched nothing into ErrNotFound
func notFoundIfNoRowsAffected(affected int64, entity string, details map[string]any) error {
	if affected == 0 {
		return ierr.NewErrorf("%s not found", entity).
			WithHintf("%s not found", entity).
			WithReportableDetails(details).
			Mark(ierr.ErrNotFound)
	}
	return nil
}
