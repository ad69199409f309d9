package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// IsPgNoRowsError reports whether the query matched no rows. Repositories
// translate it to a domain NotFoundError at the call site, where the
// resource name is known.
func IsPgNoRowsError(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

// IsPgForeignKeyError reports a foreign key violation (SQLSTATE 23503).
// Seen when an insert races a cascade delete of its parent row.
func IsPgForeignKeyError(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}
