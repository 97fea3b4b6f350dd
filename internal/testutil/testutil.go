// Package testutil provides in-memory test doubles for the store and the
// LLM provider.
package testutil

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/google/uuid"

	"scribeflow/backend/internal/repository"
	"scribeflow/backend/pkg/models"
)

// MemStore is an in-memory repository.Store.
type MemStore struct {
	mu        sync.Mutex
	workflows map[string]*models.Workflow
	documents map[string]*models.Document
	versions  map[string][]*models.DocumentVersion
	settings  map[string]string
	seq       int // creation order tiebreaker for newest-first listings
	order     map[string]int
}

// NewMemStore creates an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{
		workflows: map[string]*models.Workflow{},
		documents: map[string]*models.Document{},
		versions:  map[string][]*models.DocumentVersion{},
		settings:  map[string]string{},
		order:     map[string]int{},
	}
}

func (m *MemStore) CreateWorkflow(_ context.Context, w *models.Workflow) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if w.ID == "" {
		w.ID = uuid.New().String()
	}
	if w.Status == "" {
		w.Status = models.StatusDraft
	}
	m.seq++
	m.order[w.ID] = m.seq
	cp := *w
	m.workflows[w.ID] = &cp
	return nil
}

func (m *MemStore) GetWorkflow(_ context.Context, id string) (*models.Workflow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.workflows[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *w
	return &cp, nil
}

func (m *MemStore) ListWorkflows(_ context.Context) ([]*models.Workflow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Workflow
	for _, w := range m.workflows {
		cp := *w
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return m.order[out[i].ID] > m.order[out[j].ID] })
	return out, nil
}

func (m *MemStore) UpdateWorkflowStatus(_ context.Context, id string, status models.WorkflowStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.workflows[id]
	if !ok {
		return repository.ErrNotFound
	}
	w.Status = status
	return nil
}

func (m *MemStore) UpdateWorkflowVariables(_ context.Context, id string, vars []models.ContextVariable) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.workflows[id]
	if !ok {
		return repository.ErrNotFound
	}
	w.Variables = vars
	return nil
}

func (m *MemStore) SetWorkflowAgent(_ context.Context, id string, agent models.AgentType) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.workflows[id]
	if !ok {
		return repository.ErrNotFound
	}
	w.CurrentAgent = agent
	return nil
}

func (m *MemStore) DeleteWorkflow(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.workflows[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.workflows, id)
	for docID, d := range m.documents {
		if d.WorkflowID == id {
			delete(m.documents, docID)
			delete(m.versions, docID)
		}
	}
	return nil
}

func (m *MemStore) CreateDocument(_ context.Context, d *models.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	d.Version = 1
	m.seq++
	m.order[d.ID] = m.seq
	cp := *d
	m.documents[d.ID] = &cp
	return nil
}

func (m *MemStore) GetDocument(_ context.Context, id string) (*models.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.documents[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *d
	return &cp, nil
}

func (m *MemStore) ListWorkflowDocuments(_ context.Context, workflowID string) ([]*models.Document, error) {
	return m.listDocuments(func(d *models.Document) bool { return d.WorkflowID == workflowID })
}

func (m *MemStore) ListAgentDocuments(_ context.Context, agent models.AgentType) ([]*models.Document, error) {
	return m.listDocuments(func(d *models.Document) bool { return d.AgentType == agent })
}

func (m *MemStore) listDocuments(match func(*models.Document) bool) ([]*models.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Document
	for _, d := range m.documents {
		if match(d) {
			cp := *d
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return m.order[out[i].ID] > m.order[out[j].ID] })
	return out, nil
}

func (m *MemStore) UpdateDocument(_ context.Context, id string, upd models.DocumentUpdate) (*models.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.documents[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	m.versions[id] = append(m.versions[id], &models.DocumentVersion{
		ID:         uuid.New().String(),
		DocumentID: id,
		Version:    d.Version,
		Content:    d.Content,
	})
	if upd.Title != nil {
		d.Title = *upd.Title
	}
	if upd.Content != nil {
		d.Content = *upd.Content
	}
	d.Version++
	cp := *d
	return &cp, nil
}

func (m *MemStore) ListDocumentVersions(_ context.Context, documentID string) ([]*models.DocumentVersion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := append([]*models.DocumentVersion(nil), m.versions[documentID]...)
	sort.Slice(out, func(i, j int) bool { return out[i].Version > out[j].Version })
	return out, nil
}

func (m *MemStore) DeleteDocument(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.documents[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.documents, id)
	delete(m.versions, id)
	return nil
}

func (m *MemStore) GetSetting(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.settings[key]
	if !ok {
		return "", repository.ErrNotFound
	}
	return v, nil
}

func (m *MemStore) PutSetting(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settings[key] = value
	return nil
}

// ScriptedProvider replays canned chunks, optionally failing after
// FailAfter chunks have been delivered. FailAfter < 0 disables failure.
type ScriptedProvider struct {
	Chunks    []string
	FailAfter int
	Response  string

	mu         sync.Mutex
	LastSystem string
	LastUser   string
}

func (p *ScriptedProvider) Stream(_ context.Context, system, user string, onDelta func(string) error) (string, error) {
	p.mu.Lock()
	p.LastSystem, p.LastUser = system, user
	p.mu.Unlock()

	var full string
	for i, chunk := range p.Chunks {
		if p.FailAfter >= 0 && i == p.FailAfter {
			return "", errors.New("provider stream severed")
		}
		full += chunk
		if err := onDelta(chunk); err != nil {
			return "", err
		}
	}
	if p.FailAfter >= 0 && p.FailAfter >= len(p.Chunks) {
		return "", errors.New("provider stream severed")
	}
	return full, nil
}

func (p *ScriptedProvider) Complete(_ context.Context, system, user string) (string, error) {
	p.mu.Lock()
	p.LastSystem, p.LastUser = system, user
	p.mu.Unlock()
	if p.FailAfter == 0 {
		return "", errors.New("provider call failed")
	}
	return p.Response, nil
}
