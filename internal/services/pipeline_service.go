// Package services contains the execution orchestration between the prompt
// templates, the persistence layer and the LLM provider.
package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"scribeflow/backend/internal/llm"
	"scribeflow/backend/internal/logging"
	"scribeflow/backend/internal/prompts"
	"scribeflow/backend/internal/repository"
	"scribeflow/backend/pkg/models"
)

// ErrInvalidInput marks request-shaped failures that never reach the
// provider or the store.
var ErrInvalidInput = errors.New("invalid input")

// userInstruction is the fixed second message of every generation request.
const userInstruction = "Generate the document. Be thorough and professional."

// genericFailure is what callers see when the provider call fails; the
// underlying detail stays in the server log.
const genericFailure = "document generation failed"

// ExecutionSink receives relay events in delivery order. Content is called
// once per provider chunk; exactly one of Done or Fail terminates the
// stream.
type ExecutionSink interface {
	Content(chunk string) error
	Step(index int) error
	Done(doc *models.Document) error
	Fail(message string) error
}

// PipelineService drives agent executions and owns the per-workflow
// execution locks.
type PipelineService struct {
	store    repository.Store
	provider llm.Provider
	logger   *logging.Logger

	execLocks sync.Map // workflow id -> *sync.Mutex
}

// NewPipelineService creates a new PipelineService.
func NewPipelineService(store repository.Store, provider llm.Provider, logger *logging.Logger) *PipelineService {
	return &PipelineService{
		store:    store,
		provider: provider,
		logger:   logger,
	}
}

// CreateWorkflow persists a new draft workflow. The current agent defaults
// to the first pipeline stage and, when no variables are supplied, the
// variable list is pre-populated with the agent's template keys so the user
// can fill them in before executing.
func (s *PipelineService) CreateWorkflow(ctx context.Context, w *models.Workflow) error {
	if w.Name == "" {
		return fmt.Errorf("%w: workflow name is required", ErrInvalidInput)
	}
	if w.CurrentAgent == "" {
		w.CurrentAgent = models.PipelineOrder[0]
	}
	if !w.CurrentAgent.Valid() {
		return fmt.Errorf("%w: unknown agent type %q", ErrInvalidInput, w.CurrentAgent)
	}
	if len(w.Variables) == 0 {
		for _, key := range prompts.DefaultVariables(w.CurrentAgent) {
			w.Variables = append(w.Variables, models.ContextVariable{Key: key})
		}
	}
	w.Status = models.StatusDraft
	return s.store.CreateWorkflow(ctx, w)
}

// ExecuteWorkflow runs the workflow's current agent to completion: renders
// the prompt, relays the provider stream to sink in order and persists the
// accumulated text as a new document. Status moves to in_progress before
// the provider call and to completed or error after the stream ends.
// Executions of the same workflow are serialized by a per-workflow lock.
func (s *PipelineService) ExecuteWorkflow(ctx context.Context, workflowID string, sink ExecutionSink) error {
	mu := s.lockFor(workflowID)
	mu.Lock()
	defer mu.Unlock()

	w, err := s.store.GetWorkflow(ctx, workflowID)
	if err != nil {
		return err
	}

	constitution, err := s.constitutionFor(ctx, w)
	if err != nil {
		return err
	}

	rendered, err := prompts.Render(w.CurrentAgent, w.Variables, constitution)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	next, err := w.Status.Transition(models.StatusInProgress)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if err := s.store.UpdateWorkflowStatus(ctx, w.ID, next); err != nil {
		return err
	}

	if err := sink.Step(w.CurrentAgent.StepIndex()); err != nil {
		// the client is already gone; the workflow must not stay in_progress
		s.markError(ctx, w.ID)
		return err
	}

	full, streamErr := s.provider.Stream(ctx, rendered, userInstruction, sink.Content)
	if streamErr != nil {
		s.logger.Error("provider stream failed: workflow=%s agent=%s err=%v", w.ID, w.CurrentAgent, streamErr)
		s.markError(ctx, w.ID)
		if err := sink.Fail(genericFailure); err != nil {
			return err
		}
		return streamErr
	}

	doc := &models.Document{
		WorkflowID: w.ID,
		AgentType:  w.CurrentAgent,
		Title:      fmt.Sprintf("%s: %s", w.Name, w.CurrentAgent.DisplayName()),
		Content:    full,
		OutputType: w.CurrentAgent.OutputType(),
	}
	if err := s.store.CreateDocument(ctx, doc); err != nil {
		s.logger.Error("failed to persist document: workflow=%s err=%v", w.ID, err)
		s.markError(ctx, w.ID)
		if sinkErr := sink.Fail(genericFailure); sinkErr != nil {
			return sinkErr
		}
		return err
	}

	if err := s.store.UpdateWorkflowStatus(ctx, w.ID, models.StatusCompleted); err != nil {
		s.markError(ctx, w.ID)
		return err
	}
	return sink.Done(doc)
}

// ExecuteAgent runs one agent standalone with an explicit variable list.
// The produced document has no workflow association and no workflow status
// is touched.
func (s *PipelineService) ExecuteAgent(ctx context.Context, agent models.AgentType, vars []models.ContextVariable, sink ExecutionSink) error {
	if !agent.Valid() {
		return fmt.Errorf("%w: unknown agent type %q", ErrInvalidInput, agent)
	}

	constitution, err := s.Constitution(ctx)
	if err != nil {
		return err
	}

	rendered, err := prompts.Render(agent, vars, constitution)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	full, streamErr := s.provider.Stream(ctx, rendered, userInstruction, sink.Content)
	if streamErr != nil {
		s.logger.Error("provider stream failed: agent=%s err=%v", agent, streamErr)
		if err := sink.Fail(genericFailure); err != nil {
			return err
		}
		return streamErr
	}

	doc := &models.Document{
		AgentType:  agent,
		Title:      fmt.Sprintf("%s run", agent.DisplayName()),
		Content:    full,
		OutputType: agent.OutputType(),
	}
	if err := s.store.CreateDocument(ctx, doc); err != nil {
		if sinkErr := sink.Fail(genericFailure); sinkErr != nil {
			return sinkErr
		}
		return err
	}
	return sink.Done(doc)
}

// Constitution returns the live constitution text; an unset setting reads
// as empty.
func (s *PipelineService) Constitution(ctx context.Context) (string, error) {
	value, err := s.store.GetSetting(ctx, repository.ConstitutionKey)
	if errors.Is(err, repository.ErrNotFound) {
		return "", nil
	}
	return value, err
}

// SaveConstitution overwrites the constitution singleton in place.
func (s *PipelineService) SaveConstitution(ctx context.Context, text string) error {
	return s.store.PutSetting(ctx, repository.ConstitutionKey, text)
}

// constitutionFor prefers the workflow's snapshot over the live setting.
func (s *PipelineService) constitutionFor(ctx context.Context, w *models.Workflow) (string, error) {
	if w.ConstitutionSnapshot != "" {
		return w.ConstitutionSnapshot, nil
	}
	return s.Constitution(ctx)
}

// markError is best effort: the execution already failed and the original
// error is what the caller needs to see. The request context may already be
// cancelled when the failure came from a client disconnect, so the status
// write runs detached from it; a workflow left in_progress would otherwise
// be unexecutable forever.
func (s *PipelineService) markError(ctx context.Context, workflowID string) {
	ctx = context.WithoutCancel(ctx)
	if err := s.store.UpdateWorkflowStatus(ctx, workflowID, models.StatusError); err != nil {
		s.logger.Error("failed to mark workflow %s as errored: %v", workflowID, err)
	}
}

func (s *PipelineService) lockFor(workflowID string) *sync.Mutex {
	mu, _ := s.execLocks.LoadOrStore(workflowID, &sync.Mutex{})
	return mu.(*sync.Mutex)
}
