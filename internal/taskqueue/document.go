package taskqueue

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

var (
	// ErrMalformed wraps every parse or shape failure of the queue document.
	ErrMalformed = errors.New("malformed task queue")
	// ErrTaskNotCurrent is returned when a completion targets a task that is
	// no longer the current, unfinished task.
	ErrTaskNotCurrent = errors.New("task is not the current task")
)

// ValidationError reports a shape problem at a specific field.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", ErrMalformed, e.Msg)
	}
	return fmt.Sprintf("%s: %s: %s", ErrMalformed, e.Field, e.Msg)
}

func (e *ValidationError) Unwrap() error { return ErrMalformed }

func invalidf(field, format string, args ...any) error {
	return &ValidationError{Field: field, Msg: fmt.Sprintf(format, args...)}
}

// Document is a parsed queue that keeps the original YAML node tree so a
// rewrite only touches the fields that actually changed.
type Document struct {
	root  yaml.Node
	queue Queue
}

// Parse decodes and validates a queue document.
func Parse(data []byte) (*Document, error) {
	d := &Document{}
	if err := yaml.Unmarshal(data, &d.root); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if d.root.Kind != yaml.DocumentNode || len(d.root.Content) == 0 {
		return nil, invalidf("", "empty document")
	}
	top := d.root.Content[0]
	if top.Kind != yaml.MappingNode {
		return nil, invalidf("", "top level must be a mapping")
	}
	tasks := mappingValue(top, "tasks")
	if tasks == nil {
		return nil, invalidf("tasks", "missing")
	}
	if tasks.Kind != yaml.SequenceNode && !isNull(tasks) {
		return nil, invalidf("tasks", "must be a list")
	}
	if summary := mappingValue(top, "summary"); summary != nil && summary.Kind != yaml.MappingNode && !isNull(summary) {
		return nil, invalidf("summary", "must be a mapping")
	}

	if err := d.root.Decode(&d.queue); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if err := d.queue.validate(); err != nil {
		return nil, err
	}
	return d, nil
}

func (q *Queue) validate() error {
	seen := make(map[string]bool, len(q.Tasks))
	for i, t := range q.Tasks {
		field := fmt.Sprintf("tasks[%d]", i)
		if t.ID == "" {
			return invalidf(field+".id", "required")
		}
		if seen[t.ID] {
			return invalidf(field+".id", "duplicate id %q", t.ID)
		}
		seen[t.ID] = true
		if !t.Status.Valid() {
			return invalidf(field+".status", "unknown status %q", t.Status)
		}
	}
	for i, g := range q.QualityGates {
		if g.Name == "" {
			return invalidf(fmt.Sprintf("quality_gates[%d].name", i), "required")
		}
	}
	return nil
}

// Queue returns the typed view of the document.
func (d *Document) Queue() *Queue {
	return &d.queue
}

// CurrentTask resolves current_task against the task list.
func (d *Document) CurrentTask() (*Task, bool) {
	return d.queue.Current()
}

// MarkDone applies the completion transition to task id: status becomes done,
// completed_at is stamped, summary.completed_tasks is incremented and
// current_task is cleared. Nothing else in the document changes.
func (d *Document) MarkDone(id string, at time.Time) error {
	task, ok := d.queue.Current()
	if !ok || task.ID != id || task.Status == StatusDone {
		return fmt.Errorf("%w: %s", ErrTaskNotCurrent, id)
	}

	top := d.root.Content[0]
	taskNode := findTaskNode(top, id)
	if taskNode == nil {
		return fmt.Errorf("%w: %s", ErrTaskNotCurrent, id)
	}

	completedAt := at.UTC().Format(time.RFC3339)
	completed := d.queue.Summary.CompletedTasks + 1

	setScalar(taskNode, "status", "!!str", string(StatusDone), 0)
	setScalar(taskNode, "completed_at", "!!str", completedAt, yaml.DoubleQuotedStyle)

	summary := mappingValue(top, "summary")
	if summary == nil || summary.Kind != yaml.MappingNode {
		summary = &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		setNode(top, "summary", summary)
	}
	setScalar(summary, "completed_tasks", "!!int", strconv.Itoa(completed), 0)
	setScalar(top, "current_task", "!!null", "null", 0)

	task.Status = StatusDone
	task.CompletedAt = completedAt
	d.queue.Summary.CompletedTasks = completed
	d.queue.CurrentTask = nil
	return nil
}

// Bytes re-encodes the document.
func (d *Document) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&d.root); err != nil {
		return nil, fmt.Errorf("failed to encode task queue: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to encode task queue: %w", err)
	}
	return buf.Bytes(), nil
}

func findTaskNode(top *yaml.Node, id string) *yaml.Node {
	tasks := mappingValue(top, "tasks")
	if tasks == nil || tasks.Kind != yaml.SequenceNode {
		return nil
	}
	for _, item := range tasks.Content {
		if item.Kind != yaml.MappingNode {
			continue
		}
		if v := mappingValue(item, "id"); v != nil && v.Kind == yaml.ScalarNode && v.Value == id {
			return item
		}
	}
	return nil
}

func mappingValue(m *yaml.Node, key string) *yaml.Node {
	if m == nil || m.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			return m.Content[i+1]
		}
	}
	return nil
}

// setScalar overwrites the value in place so comments attached to it survive,
// or appends the key when it is absent.
func setScalar(m *yaml.Node, key, tag, value string, style yaml.Style) {
	if v := mappingValue(m, key); v != nil {
		v.Kind = yaml.ScalarNode
		v.Tag = tag
		v.Value = value
		v.Style = style
		v.Content = nil
		v.Alias = nil
		v.Anchor = ""
		return
	}
	setNode(m, key, &yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: value, Style: style})
}

func setNode(m *yaml.Node, key string, value *yaml.Node) {
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			m.Content[i+1] = value
			return
		}
	}
	m.Content = append(m.Content,
		&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key},
		value,
	)
}

func isNull(n *yaml.Node) bool {
	return n.Kind == yaml.ScalarNode && n.Tag == "!!null"
}
