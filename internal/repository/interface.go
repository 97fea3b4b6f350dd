package repository

import (
	"context"
	"errors"

	"scribeflow/backend/pkg/models"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// ConstitutionKey is the settings key under which the singleton
// constitution document is stored.
const ConstitutionKey = "constitution"

// Store is the persistence interface for workflows, documents, document
// versions and the settings singleton.
type Store interface {
	// CreateWorkflow inserts a new workflow, assigning an ID if unset.
	CreateWorkflow(ctx context.Context, w *models.Workflow) error
	// GetWorkflow retrieves a workflow by its ID.
	GetWorkflow(ctx context.Context, id string) (*models.Workflow, error)
	// ListWorkflows returns all workflows, newest first.
	ListWorkflows(ctx context.Context) ([]*models.Workflow, error)
	// UpdateWorkflowStatus sets the workflow's status field.
	UpdateWorkflowStatus(ctx context.Context, id string, status models.WorkflowStatus) error
	// UpdateWorkflowVariables replaces the workflow's variable list wholesale.
	UpdateWorkflowVariables(ctx context.Context, id string, vars []models.ContextVariable) error
	// SetWorkflowAgent moves the workflow's current agent pointer.
	SetWorkflowAgent(ctx context.Context, id string, agent models.AgentType) error
	// DeleteWorkflow removes a workflow; its documents and their versions
	// are removed by cascade.
	DeleteWorkflow(ctx context.Context, id string) error

	// CreateDocument inserts a new document with version 1.
	CreateDocument(ctx context.Context, d *models.Document) error
	// GetDocument retrieves a document by its ID.
	GetDocument(ctx context.Context, id string) (*models.Document, error)
	// ListWorkflowDocuments returns a workflow's documents, newest first.
	ListWorkflowDocuments(ctx context.Context, workflowID string) ([]*models.Document, error)
	// ListAgentDocuments returns an agent's documents, newest first.
	ListAgentDocuments(ctx context.Context, agent models.AgentType) ([]*models.Document, error)
	// UpdateDocument snapshots the pre-update content into a version row,
	// applies the partial update and bumps the version by one. The snapshot
	// and the update are a single transaction.
	UpdateDocument(ctx context.Context, id string, upd models.DocumentUpdate) (*models.Document, error)
	// ListDocumentVersions returns a document's version snapshots, highest
	// version first. The live content is not included.
	ListDocumentVersions(ctx context.Context, documentID string) ([]*models.DocumentVersion, error)
	// DeleteDocument removes a document and, by cascade, its versions.
	DeleteDocument(ctx context.Context, id string) error

	// GetSetting reads a settings value; ErrNotFound when the key is unset.
	GetSetting(ctx context.Context, key string) (string, error)
	// PutSetting writes a settings value, overwriting in place.
	PutSetting(ctx context.Context, key, value string) error
}
