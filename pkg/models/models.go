// Package models defines the domain models for the document pipeline service
package models

import (
	"fmt"
	"time"
)

// AgentType identifies one of the five fixed pipeline roles.
type AgentType string

const (
	AgentDecisionAuthor AgentType = "decision_author"
	AgentAnalyst        AgentType = "analyst"
	AgentArchitect      AgentType = "architect"
	AgentScrumMaster    AgentType = "scrum_master"
	AgentDeveloper      AgentType = "developer"
)

// PipelineOrder is the fixed execution order of the five agents.
var PipelineOrder = []AgentType{
	AgentDecisionAuthor,
	AgentAnalyst,
	AgentArchitect,
	AgentScrumMaster,
	AgentDeveloper,
}

// Valid reports whether the agent type is one of the five known roles.
func (a AgentType) Valid() bool {
	for _, t := range PipelineOrder {
		if a == t {
			return true
		}
	}
	return false
}

// StepIndex returns the agent's position in the pipeline, or -1 for an
// unknown agent.
func (a AgentType) StepIndex() int {
	for i, t := range PipelineOrder {
		if a == t {
			return i
		}
	}
	return -1
}

// DisplayName returns the human-readable role name.
func (a AgentType) DisplayName() string {
	switch a {
	case AgentDecisionAuthor:
		return "Decision Author"
	case AgentAnalyst:
		return "Analyst"
	case AgentArchitect:
		return "Architect"
	case AgentScrumMaster:
		return "Scrum Master"
	case AgentDeveloper:
		return "Developer"
	}
	return string(a)
}

// OutputType returns the label attached to documents produced by this agent.
func (a AgentType) OutputType() string {
	switch a {
	case AgentDecisionAuthor:
		return "decision_framework"
	case AgentAnalyst:
		return "requirements_analysis"
	case AgentArchitect:
		return "architecture_design"
	case AgentScrumMaster:
		return "user_stories"
	case AgentDeveloper:
		return "implementation_plan"
	}
	return "document"
}

// WorkflowStatus is the lifecycle state of a workflow.
type WorkflowStatus string

const (
	StatusDraft      WorkflowStatus = "draft"
	StatusInProgress WorkflowStatus = "in_progress"
	StatusCompleted  WorkflowStatus = "completed"
	StatusError      WorkflowStatus = "error"
)

// validTransitions is the enforced transition table. A completed or errored
// workflow may be re-executed, which moves it back through in_progress.
var validTransitions = map[WorkflowStatus][]WorkflowStatus{
	StatusDraft:      {StatusInProgress},
	StatusInProgress: {StatusCompleted, StatusError},
	StatusCompleted:  {StatusInProgress},
	StatusError:      {StatusInProgress},
}

// CanTransitionTo reports whether moving from s to next is allowed.
func (s WorkflowStatus) CanTransitionTo(next WorkflowStatus) bool {
	for _, t := range validTransitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

// Transition returns next if the move is legal, or an error naming the
// rejected pair.
func (s WorkflowStatus) Transition(next WorkflowStatus) (WorkflowStatus, error) {
	if !s.CanTransitionTo(next) {
		return s, fmt.Errorf("invalid workflow status transition %s -> %s", s, next)
	}
	return next, nil
}

// ContextVariable is a named value substituted into an agent's prompt
// template. Keys are free-form; uniqueness is expected but not enforced.
type ContextVariable struct {
	Key         string `json:"key"`
	Value       string `json:"value"`
	Description string `json:"description,omitempty"`
}

// Workflow tracks one run of the agent pipeline and its generated documents.
type Workflow struct {
	ID                   string            `json:"id" db:"id"`
	Name                 string            `json:"name" db:"name"`
	Description          string            `json:"description,omitempty" db:"description"`
	Status               WorkflowStatus    `json:"status" db:"status"`
	CurrentAgent         AgentType         `json:"current_agent" db:"current_agent"`
	Variables            []ContextVariable `json:"variables" db:"variables"`
	ConstitutionSnapshot string            `json:"constitution_snapshot,omitempty" db:"constitution_snapshot"`
	CreatedAt            time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt            time.Time         `json:"updated_at" db:"updated_at"`
}

// Document is one generated text artifact. WorkflowID is empty for
// standalone agent runs. Version starts at 1 and is bumped by each edit.
type Document struct {
	ID         string    `json:"id" db:"id"`
	WorkflowID string    `json:"workflow_id,omitempty" db:"workflow_id"`
	AgentType  AgentType `json:"agent_type" db:"agent_type"`
	Title      string    `json:"title" db:"title"`
	Content    string    `json:"content" db:"content"`
	OutputType string    `json:"output_type" db:"output_type"`
	Version    int       `json:"version" db:"version"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}

// DocumentVersion is an immutable snapshot of a document's content taken
// immediately before an edit. Append-only.
type DocumentVersion struct {
	ID         string    `json:"id" db:"id"`
	DocumentID string    `json:"document_id" db:"document_id"`
	Version    int       `json:"version" db:"version"`
	Content    string    `json:"content" db:"content"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// DocumentUpdate is a partial update applied by the edit-and-version
// operation. Nil fields are left untouched.
type DocumentUpdate struct {
	Title   *string `json:"title,omitempty"`
	Content *string `json:"content,omitempty"`
}

// QualityReport is the structured result of a document quality validation
// call. Parsed is false when the provider response could not be decoded;
// the remaining fields are then zero and Reason explains why.
type QualityReport struct {
	Parsed       bool     `json:"parsed"`
	Reason       string   `json:"reason,omitempty"`
	Score        int      `json:"score,omitempty"`
	Strengths    []string `json:"strengths,omitempty"`
	Improvements []string `json:"improvements,omitempty"`
	Summary      string   `json:"summary,omitempty"`
}

// HealthStatus represents the health check response
type HealthStatus struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Service   string    `json:"service"`
	Version   string    `json:"version"`
}

// ProblemDetails represents an RFC 7807 Problem Details response
type ProblemDetails struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`
}
