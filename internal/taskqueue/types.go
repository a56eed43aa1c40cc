// Package taskqueue models the sprint task-queue document (.bmad/task-queue.yaml)
// and the single state transition this tool is allowed to make on it.
package taskqueue

// Status is the lifecycle state of a task.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusDone       Status = "done"
	StatusRetrying   Status = "retrying"
	StatusBlocked    Status = "blocked"
)

// AllStatuses lists every valid status in lifecycle order.
func AllStatuses() []Status {
	return []Status{StatusPending, StatusInProgress, StatusDone, StatusRetrying, StatusBlocked}
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusDone, StatusRetrying, StatusBlocked:
		return true
	default:
		return false
	}
}

// Task is one unit of work in a sprint.
type Task struct {
	ID               string   `yaml:"id"`
	StoryID          string   `yaml:"story_id,omitempty"`
	Title            string   `yaml:"title"`
	Type             string   `yaml:"type,omitempty"`
	EstimatedMinutes int      `yaml:"estimated_minutes,omitempty"`
	Status           Status   `yaml:"status"`
	DependsOn        []string `yaml:"depends_on,omitempty"`
	Outputs          []string `yaml:"outputs"`
	Acceptance       []string `yaml:"acceptance,omitempty"`
	StartedAt        string   `yaml:"started_at,omitempty"`
	CompletedAt      string   `yaml:"completed_at,omitempty"`
	// Retries and MaxRetries are carried through untouched; nothing here drives retries.
	Retries       int      `yaml:"retries,omitempty"`
	MaxRetries    int      `yaml:"max_retries,omitempty"`
	BlockerReason string   `yaml:"blocker_reason,omitempty"`
	Receipt       *Receipt `yaml:"receipt,omitempty"`
}

// Receipt is the completion record an agent attaches to a finished task.
type Receipt struct {
	WorkSummary     string   `yaml:"work_summary"`
	FilesCreated    []string `yaml:"files_created,omitempty"`
	FilesModified   []string `yaml:"files_modified,omitempty"`
	TestsPassed     bool     `yaml:"tests_passed"`
	CommitHash      string   `yaml:"commit_hash,omitempty"`
	Notes           string   `yaml:"notes,omitempty"`
	DurationMinutes int      `yaml:"duration_minutes,omitempty"`
}

// QualityGate is a command that must exit zero before a task can be done.
type QualityGate struct {
	Name        string `yaml:"name"`
	Command     string `yaml:"command"`
	Required    bool   `yaml:"required"`
	Description string `yaml:"description,omitempty"`
}

// Summary holds the sprint's running counters.
type Summary struct {
	TotalStories   int     `yaml:"total_stories,omitempty"`
	TotalTasks     int     `yaml:"total_tasks,omitempty"`
	EstimatedHours float64 `yaml:"estimated_hours,omitempty"`
	CompletedTasks int     `yaml:"completed_tasks"`
	BlockedTasks   int     `yaml:"blocked_tasks,omitempty"`
}

// Scratchpad collects free-form notes accumulated during a sprint.
type Scratchpad struct {
	Blockers  []string `yaml:"blockers,omitempty"`
	Decisions []string `yaml:"decisions,omitempty"`
	Warnings  []string `yaml:"warnings,omitempty"`
	Learnings []string `yaml:"learnings,omitempty"`
}

// ExecutionContext is state the agent keeps between tasks.
type ExecutionContext struct {
	LastUpdated     string   `yaml:"last_updated,omitempty"`
	TestsStatus     string   `yaml:"tests_status,omitempty"`
	RecentLearnings []string `yaml:"recent_learnings,omitempty"`
}

// Queue is the typed view of the whole document.
type Queue struct {
	Version          string           `yaml:"version,omitempty"`
	Project          string           `yaml:"project,omitempty"`
	Sprint           int              `yaml:"sprint,omitempty"`
	CreatedAt        string           `yaml:"created_at,omitempty"`
	Summary          Summary          `yaml:"summary"`
	CurrentTask      *string          `yaml:"current_task"`
	QualityGates     []QualityGate    `yaml:"quality_gates,omitempty"`
	ExecutionContext ExecutionContext `yaml:"execution_context,omitempty"`
	Scratchpad       Scratchpad       `yaml:"scratchpad,omitempty"`
	Tasks            []Task           `yaml:"tasks"`
}

// Task returns the task with the given id.
func (q *Queue) Task(id string) (*Task, bool) {
	for i := range q.Tasks {
		if q.Tasks[i].ID == id {
			return &q.Tasks[i], true
		}
	}
	return nil, false
}

// Current returns the task current_task points at. A missing or dangling
// pointer yields false.
func (q *Queue) Current() (*Task, bool) {
	if q.CurrentTask == nil || *q.CurrentTask == "" {
		return nil, false
	}
	return q.Task(*q.CurrentTask)
}

// RequiredGates returns the required gates in declaration order.
func (q *Queue) RequiredGates() []QualityGate {
	var gates []QualityGate
	for _, g := range q.QualityGates {
		if g.Required {
			gates = append(gates, g)
		}
	}
	return gates
}
