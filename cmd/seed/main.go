package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"usecase-workflow/backend/internal/config"
	"usecase-workflow/backend/internal/logging"
	"usecase-workflow/backend/pkg/models"
)

const schema = `
CREATE TABLE IF NOT EXISTS employees (
	id UUID PRIMARY KEY,
	resource JSONB NOT NULL
);
CREATE TABLE IF NOT EXISTS workflows (
	id UUID PRIMARY KEY,
	name TEXT NOT NULL,
	arn TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS usecases (
	id UUID PRIMARY KEY,
	workflow_id UUID REFERENCES workflows(id),
	usecase JSONB NOT NULL,
	arn TEXT,
	version BIGINT NOT NULL DEFAULT 1
);
CREATE TABLE IF NOT EXISTS tasks (
	id UUID PRIMARY KEY,
	usecase_id UUID NOT NULL REFERENCES usecases(id),
	task JSONB NOT NULL
);`

func main() {
	stateMachineARN := flag.String("state-machine-arn", "", "ARN of the workflow's state machine")
	configFile := flag.String("config", "", "Path to config file")
	flag.Parse()

	ctx := context.Background()
	logger := logging.NewLogger()
	defer logger.Sync()

	if *stateMachineARN == "" {
		log.Fatal("--state-machine-arn is required")
	}

	// Load config
	cfg, err := config.LoadConfig(*configFile)
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

	// 1. Ensure the schema exists
	if _, err := pool.Exec(ctx, schema); err != nil {
		log.Fatalf("Failed to create schema: %v", err)
	}
	logger.Info("Schema ensured")

	// 2. Seed an employee to attribute updates to
	employeeID := uuid.New().String()
	_, err = pool.Exec(ctx,
		`INSERT INTO employees (id, resource) VALUES ($1, '{"name": "Dev Seeder", "image": "https://img.example/dev.png"}')`,
		employeeID)
	if err != nil {
		log.Fatalf("Failed to seed employee: %v", err)
	}
	logger.Info("Seeded employee", "id", employeeID)

	// 3. Seed a workflow bound to the real state machine
	wf := models.Workflow{
		ID:   uuid.New().String(),
		Name: "checkout",
		ARN:  *stateMachineARN,
	}
	_, err = pool.Exec(ctx,
		"INSERT INTO workflows (id, name, arn) VALUES ($1, $2, $3)",
		wf.ID, wf.Name, wf.ARN)
	if err != nil {
		log.Fatalf("Failed to seed workflow: %v", err)
	}
	logger.Info("Seeded workflow", "id", wf.ID, "arn", wf.ARN)

	// 4. Seed a use case with a couple of tasks
	useCaseID := uuid.New().String()
	meta := models.UseCaseMeta{Name: "checkout-1"}
	_, err = pool.Exec(ctx,
		"INSERT INTO usecases (id, workflow_id, usecase) VALUES ($1, $2, $3)",
		useCaseID, wf.ID, meta)
	if err != nil {
		log.Fatalf("Failed to seed use case: %v", err)
	}

	tasks := []struct {
		Name   string
		Status string
	}{
		{"collect requirements", "done"},
		{"draft stages", "pending"},
	}
	for _, task := range tasks {
		_, err = pool.Exec(ctx,
			"INSERT INTO tasks (id, usecase_id, task) VALUES ($1, $2, $3)",
			uuid.New().String(), useCaseID,
			map[string]string{"name": task.Name, "status": task.Status})
		if err != nil {
			log.Fatalf("Failed to seed task %q: %v", task.Name, err)
		}
	}

	logger.Info("Seeded use case", "id", useCaseID, "tasks", len(tasks))
	logger.Info("Seeding complete!")
}
