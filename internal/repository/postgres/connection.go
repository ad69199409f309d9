package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"athena/internal/domain/repositories"
)

// RepositoryConfig holds configuration for repository implementations
type RepositoryConfig struct {
	Pool   *pgxpool.Pool
	Tables *TableNames
	Logger *slog.Logger
}

// TableNames holds dynamically prefixed table names
type TableNames struct {
	Conversations string
	Messages      string
	Documents     string
	Chunks        string
	SparseIndexes string
}

// NewTableNames creates table names with the given prefix
func NewTableNames(prefix string) *TableNames {
	return &TableNames{
		Conversations: fmt.Sprintf("%sconversations", prefix),
		Messages:      fmt.Sprintf("%smessages", prefix),
		Documents:     fmt.Sprintf("%sdocuments", prefix),
		Chunks:        fmt.Sprintf("%schunks", prefix),
		SparseIndexes: fmt.Sprintf("%ssparse_indexes", prefix),
	}
}

// CreateConnectionPool creates a pgx connection pool and verifies the
// database is reachable. A failure here is fatal: there is no safe
// fallback for losing the conversation store.
func CreateConnectionPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse connection string: %w", err)
	}

	config.MaxConns = 25
	config.MinConns = 5

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return pool, nil
}

// GetExecutor returns the appropriate query executor for the context.
// If a transaction is present in the context, it returns the
// transaction; otherwise the pool. This lets repositories participate
// in transactions transparently.
func GetExecutor(ctx context.Context, pool *pgxpool.Pool) repositories.DBTX {
	if tx := repositories.GetTx(ctx); tx != nil {
		return tx
	}
	return pool
}
