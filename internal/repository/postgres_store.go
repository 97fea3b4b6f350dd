package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"scribeflow/backend/pkg/models"
)

// PostgresStore is a PostgreSQL implementation of the Store interface.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// CreateWorkflow inserts a new workflow, assigning an ID if unset.
func (s *PostgresStore) CreateWorkflow(ctx context.Context, w *models.Workflow) error {
	if w.ID == "" {
		w.ID = uuid.New().String()
	}
	if w.Status == "" {
		w.Status = models.StatusDraft
	}
	vars, err := json.Marshal(variablesOrEmpty(w.Variables))
	if err != nil {
		return fmt.Errorf("failed to encode variables: %w", err)
	}
	row := s.db.QueryRow(ctx,
		`INSERT INTO workflows (id, name, description, status, current_agent, variables, constitution_snapshot)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING created_at, updated_at`,
		w.ID, w.Name, w.Description, w.Status, w.CurrentAgent, vars, w.ConstitutionSnapshot)
	return row.Scan(&w.CreatedAt, &w.UpdatedAt)
}

// GetWorkflow retrieves a workflow by its ID.
func (s *PostgresStore) GetWorkflow(ctx context.Context, id string) (*models.Workflow, error) {
	row := s.db.QueryRow(ctx,
		`SELECT id, name, description, status, current_agent, variables, constitution_snapshot, created_at, updated_at
		 FROM workflows WHERE id = $1`, id)
	return scanWorkflow(row)
}

// ListWorkflows returns all workflows, newest first.
func (s *PostgresStore) ListWorkflows(ctx context.Context) ([]*models.Workflow, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, name, description, status, current_agent, variables, constitution_snapshot, created_at, updated_at
		 FROM workflows ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var workflows []*models.Workflow
	for rows.Next() {
		w, err := scanWorkflow(rows)
		if err != nil {
			return nil, err
		}
		workflows = append(workflows, w)
	}
	return workflows, rows.Err()
}

// UpdateWorkflowStatus sets the workflow's status field.
func (s *PostgresStore) UpdateWorkflowStatus(ctx context.Context, id string, status models.WorkflowStatus) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE workflows SET status = $1, updated_at = now() WHERE id = $2`, status, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateWorkflowVariables replaces the workflow's variable list wholesale.
func (s *PostgresStore) UpdateWorkflowVariables(ctx context.Context, id string, vars []models.ContextVariable) error {
	encoded, err := json.Marshal(variablesOrEmpty(vars))
	if err != nil {
		return fmt.Errorf("failed to encode variables: %w", err)
	}
	tag, err := s.db.Exec(ctx,
		`UPDATE workflows SET variables = $1, updated_at = now() WHERE id = $2`, encoded, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SetWorkflowAgent moves the workflow's current agent pointer.
func (s *PostgresStore) SetWorkflowAgent(ctx context.Context, id string, agent models.AgentType) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE workflows SET current_agent = $1, updated_at = now() WHERE id = $2`, agent, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteWorkflow removes a workflow; documents and versions cascade.
func (s *PostgresStore) DeleteWorkflow(ctx context.Context, id string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM workflows WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// CreateDocument inserts a new document with version 1.
func (s *PostgresStore) CreateDocument(ctx context.Context, d *models.Document) error {
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	d.Version = 1
	row := s.db.QueryRow(ctx,
		`INSERT INTO documents (id, workflow_id, agent_type, title, content, output_type, version)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING created_at, updated_at`,
		d.ID, nullableID(d.WorkflowID), d.AgentType, d.Title, d.Content, d.OutputType, d.Version)
	return row.Scan(&d.CreatedAt, &d.UpdatedAt)
}

// GetDocument retrieves a document by its ID.
func (s *PostgresStore) GetDocument(ctx context.Context, id string) (*models.Document, error) {
	row := s.db.QueryRow(ctx,
		`SELECT id, workflow_id, agent_type, title, content, output_type, version, created_at, updated_at
		 FROM documents WHERE id = $1`, id)
	return scanDocument(row)
}

// ListWorkflowDocuments returns a workflow's documents, newest first.
func (s *PostgresStore) ListWorkflowDocuments(ctx context.Context, workflowID string) ([]*models.Document, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, workflow_id, agent_type, title, content, output_type, version, created_at, updated_at
		 FROM documents WHERE workflow_id = $1 ORDER BY created_at DESC`, workflowID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectDocuments(rows)
}

// ListAgentDocuments returns an agent's documents, newest first.
func (s *PostgresStore) ListAgentDocuments(ctx context.Context, agent models.AgentType) ([]*models.Document, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, workflow_id, agent_type, title, content, output_type, version, created_at, updated_at
		 FROM documents WHERE agent_type = $1 ORDER BY created_at DESC`, agent)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectDocuments(rows)
}

// UpdateDocument snapshots the pre-update content into document_versions,
// applies the partial update and bumps the version by one. Both writes run
// in one transaction so a missing document or failed insert leaves no
// partial state.
func (s *PostgresStore) UpdateDocument(ctx context.Context, id string, upd models.DocumentUpdate) (*models.Document, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx,
		`SELECT id, workflow_id, agent_type, title, content, output_type, version, created_at, updated_at
		 FROM documents WHERE id = $1 FOR UPDATE`, id)
	current, err := scanDocument(row)
	if err != nil {
		return nil, err
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO document_versions (id, document_id, version, content) VALUES ($1, $2, $3, $4)`,
		uuid.New().String(), current.ID, current.Version, current.Content)
	if err != nil {
		return nil, fmt.Errorf("failed to snapshot document version: %w", err)
	}

	title := current.Title
	if upd.Title != nil {
		title = *upd.Title
	}
	content := current.Content
	if upd.Content != nil {
		content = *upd.Content
	}

	row = tx.QueryRow(ctx,
		`UPDATE documents SET title = $1, content = $2, version = version + 1, updated_at = now()
		 WHERE id = $3
		 RETURNING id, workflow_id, agent_type, title, content, output_type, version, created_at, updated_at`,
		title, content, id)
	updated, err := scanDocument(row)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return updated, nil
}

// ListDocumentVersions returns a document's snapshots, highest version first.
func (s *PostgresStore) ListDocumentVersions(ctx context.Context, documentID string) ([]*models.DocumentVersion, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, document_id, version, content, created_at
		 FROM document_versions WHERE document_id = $1 ORDER BY version DESC`, documentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var versions []*models.DocumentVersion
	for rows.Next() {
		var v models.DocumentVersion
		if err := rows.Scan(&v.ID, &v.DocumentID, &v.Version, &v.Content, &v.CreatedAt); err != nil {
			return nil, err
		}
		versions = append(versions, &v)
	}
	return versions, rows.Err()
}

// DeleteDocument removes a document and, by cascade, its versions.
func (s *PostgresStore) DeleteDocument(ctx context.Context, id string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM documents WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// GetSetting reads a settings value; ErrNotFound when the key is unset.
func (s *PostgresStore) GetSetting(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRow(ctx, `SELECT value FROM settings WHERE key = $1`, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return value, nil
}

// PutSetting writes a settings value, overwriting in place.
func (s *PostgresStore) PutSetting(ctx context.Context, key, value string) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO settings (key, value) VALUES ($1, $2)
		 ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`,
		key, value)
	return err
}

func scanWorkflow(row pgx.Row) (*models.Workflow, error) {
	var (
		w       models.Workflow
		encoded []byte
	)
	err := row.Scan(&w.ID, &w.Name, &w.Description, &w.Status, &w.CurrentAgent,
		&encoded, &w.ConstitutionSnapshot, &w.CreatedAt, &w.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(encoded, &w.Variables); err != nil {
		return nil, fmt.Errorf("failed to decode variables: %w", err)
	}
	return &w, nil
}

func scanDocument(row pgx.Row) (*models.Document, error) {
	var (
		d    models.Document
		wfID *string
	)
	err := row.Scan(&d.ID, &wfID, &d.AgentType, &d.Title, &d.Content,
		&d.OutputType, &d.Version, &d.CreatedAt, &d.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if wfID != nil {
		d.WorkflowID = *wfID
	}
	return &d, nil
}

func collectDocuments(rows pgx.Rows) ([]*models.Document, error) {
	var documents []*models.Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		documents = append(documents, d)
	}
	return documents, rows.Err()
}

// nullableID maps an empty string to SQL NULL for optional UUID columns.
func nullableID(id string) *string {
	if id == "" {
		return nil
	}
	return &id
}

// variablesOrEmpty keeps nil variable lists encoding as [] rather than null.
func variablesOrEmpty(vars []models.ContextVariable) []models.ContextVariable {
	if vars == nil {
		return []models.ContextVariable{}
	}
	return vars
}
