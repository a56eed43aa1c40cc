package queueserver

import (
	"github.com/lindwerg/taskgate/internal/config"
	"github.com/lindwerg/taskgate/internal/taskqueue"
)

// QueueStatus summarises a task queue.
type QueueStatus struct {
	Project           string         `json:"project,omitempty"`
	Sprint            int            `json:"sprint"`
	TotalTasks        int            `json:"total_tasks"`
	Counts            map[string]int `json:"counts"`
	Stories           int            `json:"stories"`
	CurrentTask       string         `json:"current_task,omitempty"`
	ValidationPending bool           `json:"validation_pending"`
	SessionActive     bool           `json:"session_active"`
}

// LoadStatus reads the queue of cfg's project and summarises it.
func LoadStatus(cfg *config.Config) (*QueueStatus, error) {
	store := taskqueue.NewStore(cfg.QueuePath(), cfg.LockPath(), cfg.LockTimeout)
	doc, err := store.Load()
	if err != nil {
		return nil, err
	}
	q := doc.Queue()

	st := &QueueStatus{
		Project:           q.Project,
		Sprint:            q.Sprint,
		TotalTasks:        len(q.Tasks),
		Counts:            map[string]int{},
		Stories:           taskqueue.CountStories(q.Tasks),
		ValidationPending: cfg.ValidationPending(),
		SessionActive:     cfg.SessionActive(),
	}
	for _, s := range taskqueue.AllStatuses() {
		st.Counts[string(s)] = 0
	}
	for s, n := range taskqueue.CountByStatus(q.Tasks) {
		st.Counts[string(s)] = n
	}
	if q.CurrentTask != nil {
		st.CurrentTask = *q.CurrentTask
	}
	return st, nil
}
