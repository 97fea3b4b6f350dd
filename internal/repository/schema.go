package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// schema is applied on startup. Statements are idempotent so repeated runs
// are safe. The users table backs session identity handled outside this
// service.
const schema = `
CREATE TABLE IF NOT EXISTS workflows (
	id UUID PRIMARY KEY,
	name TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL DEFAULT 'draft',
	current_agent TEXT NOT NULL,
	variables JSONB NOT NULL DEFAULT '[]',
	constitution_snapshot TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS documents (
	id UUID PRIMARY KEY,
	workflow_id UUID REFERENCES workflows(id) ON DELETE CASCADE,
	agent_type TEXT NOT NULL,
	title TEXT NOT NULL,
	content TEXT NOT NULL,
	output_type TEXT NOT NULL,
	version INT NOT NULL DEFAULT 1,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_documents_workflow ON documents (workflow_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_documents_agent ON documents (agent_type, created_at DESC);

CREATE TABLE IF NOT EXISTS document_versions (
	id UUID PRIMARY KEY,
	document_id UUID NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
	version INT NOT NULL,
	content TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_document_versions_document ON document_versions (document_id, version DESC);

CREATE TABLE IF NOT EXISTS settings (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS users (
	id UUID PRIMARY KEY,
	username TEXT UNIQUE NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// Migrate creates the service's tables if they do not exist.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, schema)
	return err
}
