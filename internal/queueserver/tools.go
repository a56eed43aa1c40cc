package queueserver

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/lindwerg/taskgate/internal/taskqueue"
	"github.com/lindwerg/taskgate/internal/verify"
)

type emptyInput struct{}

func (s *Server) handleGetQueueStatus(ctx context.Context, req *mcp.CallToolRequest, input emptyInput) (*mcp.CallToolResult, QueueStatus, error) {
	st, err := LoadStatus(s.cfg)
	if err != nil {
		return nil, QueueStatus{}, fmt.Errorf("failed to load task queue: %w", err)
	}
	return nil, *st, nil
}

type taskOutput struct {
	ID               string   `json:"id"`
	StoryID          string   `json:"story_id,omitempty"`
	Title            string   `json:"title"`
	Type             string   `json:"type,omitempty"`
	Status           string   `json:"status"`
	EstimatedMinutes int      `json:"estimated_minutes,omitempty"`
	DependsOn        []string `json:"depends_on"`
	Outputs          []string `json:"outputs"`
	Acceptance       []string `json:"acceptance"`
	StartedAt        string   `json:"started_at,omitempty"`
	Retries          int      `json:"retries"`
	MaxRetries       int      `json:"max_retries,omitempty"`
}

func (s *Server) handleGetCurrentTask(ctx context.Context, req *mcp.CallToolRequest, input emptyInput) (*mcp.CallToolResult, taskOutput, error) {
	store := taskqueue.NewStore(s.cfg.QueuePath(), s.cfg.LockPath(), s.cfg.LockTimeout)
	doc, err := store.Load()
	if err != nil {
		return nil, taskOutput{}, fmt.Errorf("failed to load task queue: %w", err)
	}
	task, ok := doc.CurrentTask()
	if !ok {
		return nil, taskOutput{}, verify.ErrNoCurrentTask
	}
	return nil, taskOutput{
		ID:               task.ID,
		StoryID:          task.StoryID,
		Title:            task.Title,
		Type:             task.Type,
		Status:           string(task.Status),
		EstimatedMinutes: task.EstimatedMinutes,
		DependsOn:        nonNil(task.DependsOn),
		Outputs:          nonNil(task.Outputs),
		Acceptance:       nonNil(task.Acceptance),
		StartedAt:        task.StartedAt,
		Retries:          task.Retries,
		MaxRetries:       task.MaxRetries,
	}, nil
}

type checkOutputsInput struct {
	TaskID string `json:"task_id,omitempty" jsonschema:"Task id to check. Defaults to the current task."`
}

type outputStatus struct {
	Pattern string   `json:"pattern"`
	Exists  bool     `json:"exists"`
	Files   []string `json:"files"`
}

type checkOutputsOutput struct {
	TaskID    string         `json:"task_id"`
	Complete  bool           `json:"complete"`
	Satisfied int            `json:"satisfied"`
	Total     int            `json:"total"`
	Missing   []string       `json:"missing"`
	Outputs   []outputStatus `json:"outputs"`
}

func (s *Server) handleCheckTaskOutputs(ctx context.Context, req *mcp.CallToolRequest, input checkOutputsInput) (*mcp.CallToolResult, checkOutputsOutput, error) {
	var (
		p   *verify.Preview
		err error
	)
	if input.TaskID == "" {
		p, err = s.verifier.Preview(ctx, false)
	} else {
		p, err = s.verifier.PreviewTask(input.TaskID)
	}
	if err != nil {
		if errors.Is(err, verify.ErrNoCurrentTask) {
			return nil, checkOutputsOutput{}, fmt.Errorf("no task_id given and %w", err)
		}
		return nil, checkOutputsOutput{}, err
	}

	out := checkOutputsOutput{
		TaskID:    p.Task.ID,
		Complete:  p.Outputs.Complete(),
		Satisfied: p.Outputs.Satisfied,
		Total:     p.Outputs.Total,
		Missing:   nonNil(p.Outputs.Missing),
		Outputs:   []outputStatus{},
	}
	for _, r := range p.Outputs.Results {
		files := []string{}
		for _, f := range r.Files {
			files = append(files, s.relative(f))
		}
		out.Outputs = append(out.Outputs, outputStatus{Pattern: r.Pattern, Exists: r.Exists(), Files: files})
	}
	return nil, out, nil
}

func (s *Server) relative(p string) string {
	if rel, err := filepath.Rel(s.cfg.ProjectDir, p); err == nil {
		return filepath.ToSlash(rel)
	}
	return p
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
