package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ldi/sitesafe/internal/auth"
	"github.com/ldi/sitesafe/internal/config"
	"github.com/ldi/sitesafe/internal/db"
	"github.com/ldi/sitesafe/internal/logger"
	"github.com/ldi/sitesafe/internal/mcp"
	"github.com/ldi/sitesafe/internal/report"
	"github.com/ldi/sitesafe/internal/rules"
	"github.com/ldi/sitesafe/internal/tracker"
	"github.com/ldi/sitesafe/internal/ui"
	"github.com/ldi/sitesafe/pkg/models"
)

var (
	configPath string
	dbPath     string
	verbose    bool
)

func main() {
	flag.StringVar(&configPath, "config", "", "Path to YAML config file")
	flag.StringVar(&dbPath, "db-path", "", "Path to database file (overrides config)")
	flag.BoolVar(&verbose, "verbose", false, "Enable verbose logging")
	flag.Parse()

	var command string
	var args []string

	if flag.NArg() == 0 {
		selected, err := ui.RunMenu()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error running menu: %v\n", err)
			os.Exit(1)
		}
		if selected == "" {
			os.Exit(0)
		}
		command = selected
		args = []string{}
	} else {
		command = flag.Arg(0)
		args = flag.Args()[1:]
	}

	var err error
	switch command {
	case "init":
		err = runInit(args)
	case "mcp":
		err = runMCP(args)
	case "register":
		err = runRegister(args)
	case "workers":
		err = runWorkers(args)
	case "assign":
		err = runAssign(args)
	case "violation":
		err = runViolation(args)
	case "submit":
		err = runSubmit(args)
	case "delete-task":
		err = runDeleteTask(args)
	case "list-tasks":
		err = runListTasks(args)
	case "my-tasks":
		err = runMyTasks(args)
	case "add-rule":
		err = runAddRule(args)
	case "delete-rule":
		err = runDeleteRule(args)
	case "feedback":
		err = runFeedback(args)
	case "list-rules":
		err = runListRules(args)
	case "list-feedback":
		err = runListFeedback(args)
	case "status":
		err = runStatus(args)
	default:
		fmt.Printf("Unknown command: %s\n", command)
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig resolves the effective configuration: file if given,
// defaults otherwise, with the -db-path flag taking precedence.
func loadConfig() (*config.Config, error) {
	cfg := config.Default()
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if dbPath != "" {
		cfg.DBPath = dbPath
	}
	return cfg, nil
}

func openDB() (*db.DB, *config.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	database, err := db.Open(cfg.DBPath)
	if err != nil {
		return nil, nil, err
	}
	return database, cfg, nil
}

func runInit(args []string) error {
	targetDir := "."
	if len(args) > 0 {
		targetDir = args[0]
	}

	stateDir := filepath.Join(targetDir, ".sitesafe")
	if err := os.MkdirAll(stateDir, 0755); err != nil {
		return fmt.Errorf("failed to create .sitesafe directory: %w", err)
	}
	fmt.Println("✓ Created .sitesafe/ directory")

	gitignorePath := filepath.Join(stateDir, ".gitignore")
	if err := os.WriteFile(gitignorePath, []byte("sitesafe.db*\n"), 0644); err != nil {
		return fmt.Errorf("failed to create .gitignore: %w", err)
	}
	fmt.Println("✓ Created .sitesafe/.gitignore")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	finalDBPath := cfg.DBPath
	if cfg.DBPath == ".sitesafe/sitesafe.db" {
		finalDBPath = filepath.Join(stateDir, "sitesafe.db")
	}

	finalSnapshotPath := cfg.SnapshotPath
	if cfg.SnapshotPath == ".sitesafe/snapshot.jsonl" {
		finalSnapshotPath = filepath.Join(stateDir, "snapshot.jsonl")
	}

	database, err := db.Open(finalDBPath)
	if err != nil {
		return err
	}
	defer database.Close()

	ctx := context.Background()
	if err := database.Init(ctx); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	fmt.Printf("✓ Initialized database at %s\n", finalDBPath)

	if _, err := os.Stat(finalSnapshotPath); err == nil {
		if err := database.ImportSnapshot(ctx, finalSnapshotPath); err != nil {
			return fmt.Errorf("failed to import snapshot: %w", err)
		}
		fmt.Printf("✓ Imported snapshot from %s\n", finalSnapshotPath)
	}

	fmt.Println("✓ SiteSafe initialized successfully")
	return nil
}

func runMCP(args []string) error {
	database, cfg, err := openDB()
	if err != nil {
		return err
	}
	defer database.Close()

	ctx := context.Background()
	if err := database.Init(ctx); err != nil {
		return err
	}

	database.EnableAutoSnapshot(cfg.SnapshotPath)

	log, err := logger.New(verbose)
	if err != nil {
		return err
	}
	defer log.Sync()

	timeout, err := cfg.TransferTimeout()
	if err != nil {
		return err
	}

	tr := tracker.New(database)
	executor := report.NewExecutor(tr, report.Config{
		UploadsDir:    cfg.Uploads.Dir,
		Timeout:       timeout,
		MaxConcurrent: cfg.Uploads.MaxConcurrent,
		Logger:        log,
	})

	s := mcp.NewServer(mcp.Services{
		Tracker:  tr,
		Rules:    rules.New(database),
		Executor: executor,
	})

	err = mcp.Serve(s)
	executor.Wait()
	return err
}

func runRegister(args []string) error {
	fs := flag.NewFlagSet("register", flag.ContinueOnError)
	username := fs.String("username", "", "Username")
	password := fs.String("password", "", "Password")
	role := fs.String("role", "worker", "Role (worker or manager)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	database, _, err := openDB()
	if err != nil {
		return err
	}
	defer database.Close()

	ctx := context.Background()
	u, err := auth.New(database).Register(ctx, *username, *password, models.Role(*role))
	if err != nil {
		return err
	}

	fmt.Printf("Registered %s %q with id %d\n", u.Role, u.Username, u.ID)
	return nil
}

func runWorkers(args []string) error {
	database, _, err := openDB()
	if err != nil {
		return err
	}
	defer database.Close()

	workers, err := auth.New(database).ListWorkers(context.Background())
	if err != nil {
		return err
	}

	fmt.Printf("%-6s %-20s\n", "ID", "USERNAME")
	fmt.Println("---------------------------")
	for _, w := range workers {
		fmt.Printf("%-6d %-20s\n", w.ID, w.Username)
	}
	return nil
}

func runAssign(args []string) error {
	fs := flag.NewFlagSet("assign", flag.ContinueOnError)
	workerID := fs.Int64("worker", 0, "Worker ID")
	description := fs.String("desc", "", "Task description")
	if err := fs.Parse(args); err != nil {
		return err
	}

	database, _, err := openDB()
	if err != nil {
		return err
	}
	defer database.Close()

	t, err := tracker.New(database).Assign(context.Background(), *workerID, *description)
	if err != nil {
		return err
	}

	fmt.Printf("Task %d assigned to %s (status: %s)\n", t.ID, t.WorkerUsername, t.Status)
	return nil
}

func runViolation(args []string) error {
	fs := flag.NewFlagSet("violation", flag.ContinueOnError)
	taskID := fs.Int64("task", 0, "Task ID")
	status := fs.String("status", "violation", "New status (e.g. violation, incomplete)")
	comment := fs.String("comment", "", "Violation comment")
	if err := fs.Parse(args); err != nil {
		return err
	}

	database, _, err := openDB()
	if err != nil {
		return err
	}
	defer database.Close()

	if err := tracker.New(database).ReportViolation(context.Background(), *taskID, *status, *comment); err != nil {
		return err
	}

	fmt.Printf("Task %d updated with violation info\n", *taskID)
	return nil
}

func runSubmit(args []string) error {
	fs := flag.NewFlagSet("submit", flag.ContinueOnError)
	taskID := fs.Int64("task", 0, "Task ID")
	workerID := fs.Int64("worker", 0, "Worker ID")
	reportText := fs.String("report", "", "Report text")
	mediaPath := fs.String("media", "", "Path to the media file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	database, cfg, err := openDB()
	if err != nil {
		return err
	}
	defer database.Close()

	log, err := logger.New(verbose)
	if err != nil {
		return err
	}
	defer log.Sync()

	timeout, err := cfg.TransferTimeout()
	if err != nil {
		return err
	}

	tr := tracker.New(database)
	executor := report.NewExecutor(tr, report.Config{
		UploadsDir:    cfg.Uploads.Dir,
		Timeout:       timeout,
		MaxConcurrent: cfg.Uploads.MaxConcurrent,
		Logger:        log,
	})

	ctx := context.Background()
	job, err := executor.Submit(ctx, *taskID, *workerID, *reportText, *mediaPath)
	if err != nil {
		return err
	}

	fmt.Printf("Report dispatched (job %s), transferring media...\n", job.ID)

	// One-shot process: wait for the background unit before exiting.
	if err := job.Wait(ctx); err != nil {
		return err
	}

	fmt.Printf("Task %d completed\n", *taskID)
	return nil
}

func runDeleteTask(args []string) error {
	fs := flag.NewFlagSet("delete-task", flag.ContinueOnError)
	taskID := fs.Int64("task", 0, "Task ID")
	if err := fs.Parse(args); err != nil {
		return err
	}

	database, _, err := openDB()
	if err != nil {
		return err
	}
	defer database.Close()

	if err := tracker.New(database).Delete(context.Background(), *taskID); err != nil {
		return err
	}

	fmt.Printf("Task %d deleted\n", *taskID)
	return nil
}

func runListTasks(args []string) error {
	database, _, err := openDB()
	if err != nil {
		return err
	}
	defer database.Close()

	tasks, err := tracker.New(database).ListAll(context.Background())
	if err != nil {
		return err
	}

	fmt.Printf("%-6s %-10s %-15s %-12s %-30s\n", "ID", "WORKER", "USERNAME", "STATUS", "DESCRIPTION")
	fmt.Println("--------------------------------------------------------------------------------")
	for _, t := range tasks {
		fmt.Printf("%-6d %-10d %-15s %-12s %-30s\n", t.ID, t.WorkerID, t.WorkerUsername, t.Status, t.Description)
	}
	return nil
}

func runMyTasks(args []string) error {
	fs := flag.NewFlagSet("my-tasks", flag.ContinueOnError)
	workerID := fs.Int64("worker", 0, "Worker ID")
	if err := fs.Parse(args); err != nil {
		return err
	}

	database, _, err := openDB()
	if err != nil {
		return err
	}
	defer database.Close()

	tasks, err := tracker.New(database).ListForWorker(context.Background(), *workerID)
	if err != nil {
		return err
	}

	fmt.Printf("%-6s %-12s %-30s\n", "ID", "STATUS", "DESCRIPTION")
	fmt.Println("--------------------------------------------------")
	for _, t := range tasks {
		fmt.Printf("%-6d %-12s %-30s\n", t.ID, t.Status, t.Description)
	}
	return nil
}

func runAddRule(args []string) error {
	fs := flag.NewFlagSet("add-rule", flag.ContinueOnError)
	text := fs.String("text", "", "Rule text")
	if err := fs.Parse(args); err != nil {
		return err
	}

	database, _, err := openDB()
	if err != nil {
		return err
	}
	defer database.Close()

	r, err := rules.New(database).AddRule(context.Background(), *text)
	if err != nil {
		return err
	}

	fmt.Printf("Rule %d added\n", r.ID)
	return nil
}

func runDeleteRule(args []string) error {
	fs := flag.NewFlagSet("delete-rule", flag.ContinueOnError)
	ruleID := fs.Int64("rule", 0, "Rule ID")
	if err := fs.Parse(args); err != nil {
		return err
	}

	database, _, err := openDB()
	if err != nil {
		return err
	}
	defer database.Close()

	if err := rules.New(database).DeleteRule(context.Background(), *ruleID); err != nil {
		return err
	}

	fmt.Printf("Rule %d deleted\n", *ruleID)
	return nil
}

func runFeedback(args []string) error {
	fs := flag.NewFlagSet("feedback", flag.ContinueOnError)
	ruleID := fs.Int64("rule", 0, "Rule ID")
	text := fs.String("text", "", "Feedback text")
	if err := fs.Parse(args); err != nil {
		return err
	}

	database, _, err := openDB()
	if err != nil {
		return err
	}
	defer database.Close()

	if err := rules.New(database).GiveFeedback(context.Background(), *ruleID, *text); err != nil {
		return err
	}

	fmt.Printf("Feedback recorded for rule %d\n", *ruleID)
	return nil
}

func runListRules(args []string) error {
	database, _, err := openDB()
	if err != nil {
		return err
	}
	defer database.Close()

	list, err := rules.New(database).ListRules(context.Background())
	if err != nil {
		return err
	}

	fmt.Printf("%-6s %-50s %-20s\n", "ID", "RULE", "CREATED")
	fmt.Println("------------------------------------------------------------------------------")
	for _, r := range list {
		fmt.Printf("%-6d %-50s %-20s\n", r.ID, r.Text, r.Timestamp.Format("2006-01-02 15:04:05"))
	}
	return nil
}

func runListFeedback(args []string) error {
	database, _, err := openDB()
	if err != nil {
		return err
	}
	defer database.Close()

	list, err := rules.New(database).ListFeedback(context.Background())
	if err != nil {
		return err
	}

	if len(list) == 0 {
		fmt.Println("No feedback yet.")
		return nil
	}

	for _, r := range list {
		fmt.Printf("Rule %d: %s\n", r.ID, r.Text)
		fmt.Printf("  Feedback: %s\n", *r.Feedback)
	}
	return nil
}

func runStatus(args []string) error {
	database, _, err := openDB()
	if err != nil {
		return err
	}
	defer database.Close()

	ctx := context.Background()
	tasks, err := tracker.New(database).ListAll(ctx)
	if err != nil {
		return err
	}

	list, err := rules.New(database).ListRules(ctx)
	if err != nil {
		return err
	}

	fmt.Println("SiteSafe Status")
	fmt.Println("===============")
	fmt.Printf("Total Tasks: %d\n", len(tasks))
	fmt.Printf("Rules:       %d\n", len(list))

	statusCounts := make(map[models.TaskStatus]int)
	for _, t := range tasks {
		statusCounts[t.Status]++
	}

	fmt.Println("\nTask Breakdown:")
	fmt.Printf("  Pending:    %d\n", statusCounts[models.TaskStatusPending])
	fmt.Printf("  Completed:  %d\n", statusCounts[models.TaskStatusCompleted])
	fmt.Printf("  Violation:  %d\n", statusCounts[models.TaskStatusViolation])
	fmt.Printf("  Incomplete: %d\n", statusCounts[models.TaskStatusIncomplete])
	fmt.Printf("  Failed:     %d\n", statusCounts[models.TaskStatusFailed])

	return nil
}
