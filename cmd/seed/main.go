package main

import (
	"context"
	"fmt"
	"log"

	"github.com/jackc/pgx/v5/pgxpool"

	"scribeflow/backend/internal/config"
	"scribeflow/backend/internal/logging"
	"scribeflow/backend/internal/repository"
	"scribeflow/backend/pkg/models"
)

const defaultConstitution = `All generated documents follow these rules:
- Write in clear, direct prose. No filler.
- Every recommendation names its trade-off.
- Use the project's own terminology consistently.`

func main() {
	ctx := context.Background()
	logger := logging.NewLogger()

	// Load config
	cfg, err := config.LoadConfig("")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Connect to DB
	connStr := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.DB.Host, cfg.DB.Port, cfg.DB.User, cfg.DB.Password, cfg.DB.Name, cfg.DB.SSLMode,
	)
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		log.Fatalf("Failed to connect to DB: %v", err)
	}
	defer pool.Close()

	if err := repository.Migrate(ctx, pool); err != nil {
		log.Fatalf("Failed to migrate schema: %v", err)
	}

	store := repository.NewPostgresStore(pool)

	// 1. Seed the constitution if unset
	if _, err := store.GetSetting(ctx, repository.ConstitutionKey); err != nil {
		logger.Info("Seeding default constitution")
		if err := store.PutSetting(ctx, repository.ConstitutionKey, defaultConstitution); err != nil {
			log.Fatalf("Failed to seed constitution: %v", err)
		}
	} else {
		logger.Info("Constitution already present, skipping")
	}

	// 2. Check for existing workflows to prevent duplicates
	existingWorkflows, err := store.ListWorkflows(ctx)
	if err != nil {
		log.Fatalf("Failed to list existing workflows: %v", err)
	}

	existingMap := make(map[string]bool)
	for _, w := range existingWorkflows {
		existingMap[w.Name] = true
	}

	// 3. Create seed workflows
	workflows := []struct {
		Name        string
		Description string
		Agent       models.AgentType
		Variables   []models.ContextVariable
	}{
		{
			Name:        "Checkout Redesign",
			Description: "Rework the checkout funnel for the storefront.",
			Agent:       models.AgentDecisionAuthor,
			Variables: []models.ContextVariable{
				{Key: "project_name", Value: "Checkout Redesign"},
				{Key: "problem_statement", Value: "Cart abandonment is at 70% on mobile."},
				{Key: "business_context", Value: "E-commerce storefront, 200k monthly visitors."},
				{Key: "stakeholders", Value: "Head of Product, payments team, support lead."},
			},
		},
		{
			Name:        "Internal Audit Trail",
			Description: "Add a tamper-evident audit log to the admin console.",
			Agent:       models.AgentAnalyst,
			Variables: []models.ContextVariable{
				{Key: "project_name", Value: "Internal Audit Trail"},
				{Key: "problem_statement", Value: "Admin actions are currently untracked."},
				{Key: "target_users", Value: "Compliance officers and on-call engineers."},
			},
		},
	}

	for _, w := range workflows {
		if existingMap[w.Name] {
			logger.Info("Skipping existing workflow %s", w.Name)
			continue
		}

		wf := &models.Workflow{
			Name:         w.Name,
			Description:  w.Description,
			Status:       models.StatusDraft,
			CurrentAgent: w.Agent,
			Variables:    w.Variables,
		}

		if err := store.CreateWorkflow(ctx, wf); err != nil {
			log.Printf("Failed to create workflow %s: %v", w.Name, err)
		} else {
			logger.Info("Seeded workflow %s id=%s", w.Name, wf.ID)
		}
	}
	logger.Info("Seeding complete!")
}
