// Command seed creates or resets the database schema. It is a dev
// tool: production schema changes go through migrations, this exists
// so a fresh checkout can get a working database in one command.
package main

import (
	"context"
	"flag"
	"log"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"athena/internal/config"
	"athena/internal/repository/postgres"
)

func main() {
	dropTables := flag.Bool("drop-tables", false, "Drop all tables before creating the schema (fresh start)")
	flag.Parse()

	_ = godotenv.Load()

	cfg := config.Load()

	// SAFETY: Prevent destructive operations in production
	if cfg.Environment == "prod" && *dropTables {
		log.Fatalf("BLOCKED: cannot run --drop-tables in production environment")
	}

	ctx := context.Background()
	pool, err := postgres.CreateConnectionPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	tables := postgres.NewTableNames(cfg.TablePrefix)

	if *dropTables {
		log.Println("Dropping all tables...")
		if err := dropAllTables(ctx, pool, tables); err != nil {
			log.Fatalf("Failed to drop tables: %v", err)
		}
		log.Println("Tables dropped")
	}

	log.Println("Ensuring database schema is up to date...")
	if err := runSchema(ctx, pool, tables, cfg.TablePrefix); err != nil {
		log.Fatalf("Failed to run schema: %v", err)
	}
	log.Println("Schema ready")
}

// runSchema creates tables if they don't exist
func runSchema(ctx context.Context, pool *pgxpool.Pool, tables *postgres.TableNames, tablePrefix string) error {
	if _, err := pool.Exec(ctx, `CREATE EXTENSION IF NOT EXISTS "uuid-ossp"`); err != nil {
		return err
	}

	createConversations := `
		CREATE TABLE IF NOT EXISTS ` + tables.Conversations + ` (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			user_id UUID NOT NULL,
			title TEXT NOT NULL,
			token_count INTEGER NOT NULL DEFAULT 0,
			message_count INTEGER NOT NULL DEFAULT 0,
			summary TEXT,
			summarized_up_to_id BIGINT NOT NULL DEFAULT 0,
			last_active TIMESTAMPTZ DEFAULT NOW(),
			created_at TIMESTAMPTZ DEFAULT NOW()
		)
	`
	if _, err := pool.Exec(ctx, createConversations); err != nil {
		return err
	}

	createMessages := `
		CREATE TABLE IF NOT EXISTS ` + tables.Messages + ` (
			id BIGSERIAL PRIMARY KEY,
			conversation_id UUID NOT NULL REFERENCES ` + tables.Conversations + `(id) ON DELETE CASCADE,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			model TEXT,
			created_at TIMESTAMPTZ DEFAULT NOW()
		)
	`
	if _, err := pool.Exec(ctx, createMessages); err != nil {
		return err
	}

	createDocuments := `
		CREATE TABLE IF NOT EXISTS ` + tables.Documents + ` (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			user_id UUID NOT NULL,
			filename TEXT NOT NULL,
			status TEXT NOT NULL,
			error TEXT,
			chunk_count INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ DEFAULT NOW()
		)
	`
	if _, err := pool.Exec(ctx, createDocuments); err != nil {
		return err
	}

	createChunks := `
		CREATE TABLE IF NOT EXISTS ` + tables.Chunks + ` (
			id UUID PRIMARY KEY,
			document_id UUID NOT NULL REFERENCES ` + tables.Documents + `(id) ON DELETE CASCADE,
			chunk_index INTEGER NOT NULL,
			content TEXT NOT NULL,
			token_count INTEGER NOT NULL
		)
	`
	if _, err := pool.Exec(ctx, createChunks); err != nil {
		return err
	}

	createSparseIndexes := `
		CREATE TABLE IF NOT EXISTS ` + tables.SparseIndexes + ` (
			document_id UUID PRIMARY KEY REFERENCES ` + tables.Documents + `(id) ON DELETE CASCADE,
			chunk_ids JSONB NOT NULL,
			corpus JSONB NOT NULL
		)
	`
	if _, err := pool.Exec(ctx, createSparseIndexes); err != nil {
		return err
	}

	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_` + tablePrefix + `conversations_user_active ON ` + tables.Conversations + `(user_id, last_active DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_` + tablePrefix + `messages_conversation ON ` + tables.Messages + `(conversation_id, id)`,
		`CREATE INDEX IF NOT EXISTS idx_` + tablePrefix + `documents_user ON ` + tables.Documents + `(user_id, status)`,
		`CREATE INDEX IF NOT EXISTS idx_` + tablePrefix + `chunks_document ON ` + tables.Chunks + `(document_id, chunk_index)`,
	}
	for _, indexSQL := range indexes {
		if _, err := pool.Exec(ctx, indexSQL); err != nil {
			return err
		}
	}

	return nil
}

// dropAllTables drops all tables in reverse order (to respect foreign keys)
func dropAllTables(ctx context.Context, pool *pgxpool.Pool, tables *postgres.TableNames) error {
	tableNames := []string{
		tables.SparseIndexes,
		tables.Chunks,
		tables.Documents,
		tables.Messages,
		tables.Conversations,
	}
	for _, name := range tableNames {
		if _, err := pool.Exec(ctx, `DROP TABLE IF EXISTS `+name+` CASCADE`); err != nil {
			return err
		}
	}
	return nil
}
