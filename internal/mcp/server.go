package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/ldi/sitesafe/internal/report"
	"github.com/ldi/sitesafe/internal/rules"
	"github.com/ldi/sitesafe/internal/tracker"
)

// Services bundles the domain components the MCP tools operate on.
type Services struct {
	Tracker  *tracker.Tracker
	Rules    *rules.Ledger
	Executor *report.Executor
}

// NewServer creates a new MCP server exposing the task and rule
// operations as tools.
func NewServer(svc Services) *server.MCPServer {
	s := server.NewMCPServer("SiteSafe", "0.1.0")

	// Task lifecycle
	s.AddTool(mcp.NewTool("assign_task",
		mcp.WithDescription("Assign a safety task to a worker. The task starts in the pending status."),
		mcp.WithNumber("worker_id", mcp.Description("ID of the worker"), mcp.Required()),
		mcp.WithString("description", mcp.Description("Task description"), mcp.Required()),
	), assignTaskHandler(svc.Tracker))

	s.AddTool(mcp.NewTool("report_violation",
		mcp.WithDescription("Record a violation on a task: overwrites its status and stores the comment with a timestamp."),
		mcp.WithNumber("task_id", mcp.Description("ID of the task"), mcp.Required()),
		mcp.WithString("status", mcp.Description("New status (e.g. violation, incomplete); any non-numeric text is accepted"), mcp.Required()),
		mcp.WithString("comment", mcp.Description("Violation comment"), mcp.Required()),
	), reportViolationHandler(svc.Tracker))

	s.AddTool(mcp.NewTool("submit_report",
		mcp.WithDescription("Submit a worker's completion report with a media file. The transfer runs in the background; poll the returned job id for the outcome."),
		mcp.WithNumber("task_id", mcp.Description("ID of the task"), mcp.Required()),
		mcp.WithNumber("worker_id", mcp.Description("ID of the reporting worker"), mcp.Required()),
		mcp.WithString("report", mcp.Description("Report text"), mcp.Required()),
		mcp.WithString("media_path", mcp.Description("Path to the media file to upload"), mcp.Required()),
	), submitReportHandler(svc.Executor))

	s.AddTool(mcp.NewTool("report_job_status",
		mcp.WithDescription("Get the status of a previously submitted report job."),
		mcp.WithString("job_id", mcp.Description("Job ID returned by submit_report"), mcp.Required()),
	), reportJobStatusHandler(svc.Executor))

	s.AddTool(mcp.NewTool("list_tasks",
		mcp.WithDescription("List all tasks, including worker ids (manager view)."),
	), listTasksHandler(svc.Tracker))

	s.AddTool(mcp.NewTool("list_worker_tasks",
		mcp.WithDescription("List the tasks assigned to one worker (worker view, without worker ids)."),
		mcp.WithNumber("worker_id", mcp.Description("ID of the worker"), mcp.Required()),
	), listWorkerTasksHandler(svc.Tracker))

	s.AddTool(mcp.NewTool("delete_task",
		mcp.WithDescription("Delete a task."),
		mcp.WithNumber("task_id", mcp.Description("ID of the task"), mcp.Required()),
	), deleteTaskHandler(svc.Tracker))

	// Safety rules
	s.AddTool(mcp.NewTool("add_rule",
		mcp.WithDescription("Add a safety rule."),
		mcp.WithString("text", mcp.Description("Rule text"), mcp.Required()),
	), addRuleHandler(svc.Rules))

	s.AddTool(mcp.NewTool("delete_rule",
		mcp.WithDescription("Delete a safety rule."),
		mcp.WithNumber("rule_id", mcp.Description("ID of the rule"), mcp.Required()),
	), deleteRuleHandler(svc.Rules))

	s.AddTool(mcp.NewTool("give_feedback",
		mcp.WithDescription("Overwrite the feedback slot of a rule. Last writer wins."),
		mcp.WithNumber("rule_id", mcp.Description("ID of the rule"), mcp.Required()),
		mcp.WithString("feedback", mcp.Description("Feedback text"), mcp.Required()),
	), giveFeedbackHandler(svc.Rules))

	s.AddTool(mcp.NewTool("list_rules",
		mcp.WithDescription("List all safety rules."),
	), listRulesHandler(svc.Rules))

	s.AddTool(mcp.NewTool("list_feedback",
		mcp.WithDescription("List the rules that currently carry feedback."),
	), listFeedbackHandler(svc.Rules))

	return s
}

// Serve starts the MCP server on stdio.
func Serve(s *server.MCPServer) error {
	return server.ServeStdio(s)
}

func assignTaskHandler(tr *tracker.Tracker) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		workerID := mcp.ParseInt(request, "worker_id", 0)
		description := mcp.ParseString(request, "description", "")

		t, err := tr.Assign(ctx, int64(workerID), description)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("Task %d assigned to %s (status: %s)", t.ID, t.WorkerUsername, t.Status)), nil
	}
}

func reportViolationHandler(tr *tracker.Tracker) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		taskID := mcp.ParseInt(request, "task_id", 0)
		status := mcp.ParseString(request, "status", "")
		comment := mcp.ParseString(request, "comment", "")

		if err := tr.ReportViolation(ctx, int64(taskID), status, comment); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("Task %d updated with violation info", taskID)), nil
	}
}

func submitReportHandler(ex *report.Executor) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		taskID := mcp.ParseInt(request, "task_id", 0)
		workerID := mcp.ParseInt(request, "worker_id", 0)
		reportText := mcp.ParseString(request, "report", "")
		mediaPath := mcp.ParseString(request, "media_path", "")

		job, err := ex.Submit(ctx, int64(taskID), int64(workerID), reportText, mediaPath)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("Report for task %d dispatched (job %s). Poll 'report_job_status' for the outcome.", taskID, job.ID)), nil
	}
}

func reportJobStatusHandler(ex *report.Executor) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		jobID := mcp.ParseString(request, "job_id", "")

		job, ok := ex.Job(jobID)
		if !ok {
			return mcp.NewToolResultError(fmt.Sprintf("job not found: %s", jobID)), nil
		}
		if err := job.Err(); err != nil {
			return mcp.NewToolResultText(fmt.Sprintf("Job %s: %s (%v)", job.ID, job.Status(), err)), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("Job %s: %s", job.ID, job.Status())), nil
	}
}

func listTasksHandler(tr *tracker.Tracker) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		tasks, err := tr.ListAll(ctx)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		data, err := json.MarshalIndent(tasks, "", "  ")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(string(data)), nil
	}
}

func listWorkerTasksHandler(tr *tracker.Tracker) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		workerID := mcp.ParseInt(request, "worker_id", 0)

		tasks, err := tr.ListForWorker(ctx, int64(workerID))
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		data, err := json.MarshalIndent(tasks, "", "  ")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(string(data)), nil
	}
}

func deleteTaskHandler(tr *tracker.Tracker) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		taskID := mcp.ParseInt(request, "task_id", 0)

		if err := tr.Delete(ctx, int64(taskID)); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("Task %d deleted", taskID)), nil
	}
}

func addRuleHandler(l *rules.Ledger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		text := mcp.ParseString(request, "text", "")

		r, err := l.AddRule(ctx, text)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("Rule %d added", r.ID)), nil
	}
}

func deleteRuleHandler(l *rules.Ledger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		ruleID := mcp.ParseInt(request, "rule_id", 0)

		if err := l.DeleteRule(ctx, int64(ruleID)); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("Rule %d deleted", ruleID)), nil
	}
}

func giveFeedbackHandler(l *rules.Ledger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		ruleID := mcp.ParseInt(request, "rule_id", 0)
		feedback := mcp.ParseString(request, "feedback", "")

		if err := l.GiveFeedback(ctx, int64(ruleID), feedback); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("Feedback recorded for rule %d", ruleID)), nil
	}
}

func listRulesHandler(l *rules.Ledger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		list, err := l.ListRules(ctx)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		data, err := json.MarshalIndent(list, "", "  ")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(string(data)), nil
	}
}

func listFeedbackHandler(l *rules.Ledger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		list, err := l.ListFeedback(ctx)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		data, err := json.MarshalIndent(list, "", "  ")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(string(data)), nil
	}
}
