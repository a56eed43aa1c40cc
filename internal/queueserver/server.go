// Package queueserver exposes the sprint task queue to Claude Code as a
// read-only MCP server.
package queueserver

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/lindwerg/taskgate/internal/config"
	"github.com/lindwerg/taskgate/internal/verify"
)

// Server answers tool calls for one project.
type Server struct {
	cfg      *config.Config
	verifier *verify.Verifier
}

// New creates a Server for cfg's project.
func New(cfg *config.Config) *Server {
	return &Server{cfg: cfg, verifier: verify.New(cfg)}
}

// Run starts the task queue MCP server over stdio.
// It blocks until the client disconnects or the context is cancelled.
func Run(ctx context.Context, cfg *config.Config, version string) error {
	return New(cfg).MCPServer(version).Run(ctx, &mcp.StdioTransport{})
}

// MCPServer registers the tools on a new mcp.Server.
func (s *Server) MCPServer(version string) *mcp.Server {
	server := mcp.NewServer(
		&mcp.Implementation{
			Name:    "taskqueue",
			Version: version,
		},
		nil,
	)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_queue_status",
		Description: "Get the sprint task queue status: sprint number, task counts per status, the current task id and whether the sprint is waiting for validation. Read-only.",
	}, s.handleGetQueueStatus)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_current_task",
		Description: "Get the task current_task points at, with its expected outputs and acceptance criteria. Fails when no task is current.",
	}, s.handleGetCurrentTask)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "check_task_outputs",
		Description: "Check which declared outputs of a task exist on disk. Glob patterns are expanded relative to the project root. Defaults to the current task. Does not run quality gates or modify the queue. Example: check_task_outputs(task_id: \"T-004\")",
	}, s.handleCheckTaskOutputs)

	return server
}
