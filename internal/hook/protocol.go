// Package hook implements the Claude Code hook wire protocol: one JSON object
// on stdin describing the event, one JSON verdict on stdout.
package hook

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/tidwall/gjson"
)

// Verdict values understood by the hook runtime.
const (
	ResultContinue = "continue"
	ResultBlock    = "block"
)

// Input is the event payload Claude Code writes to a hook's stdin.
type Input struct {
	SessionID string          `json:"session_id,omitempty"`
	Cwd       string          `json:"cwd,omitempty"`
	ToolName  string          `json:"tool_name,omitempty"`
	ToolInput json.RawMessage `json:"tool_input,omitempty"`
}

// Output is the single verdict a hook writes to stdout.
type Output struct {
	Result  string `json:"result"`
	Message string `json:"message,omitempty"`
}

// ReadInput reads and decodes a hook payload.
func ReadInput(r io.Reader) (*Input, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read hook input: %w", err)
	}
	var in Input
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, fmt.Errorf("failed to parse hook input: %w", err)
	}
	return &in, nil
}

// FilePath returns tool_input.file_path, or "" when the tool carried none.
func (in *Input) FilePath() string {
	if in == nil || len(in.ToolInput) == 0 {
		return ""
	}
	v := gjson.GetBytes(in.ToolInput, "file_path")
	if v.Type != gjson.String {
		return ""
	}
	return v.String()
}

// IsWriteOrEdit reports whether the event came from a file-writing tool.
func (in *Input) IsWriteOrEdit() bool {
	if in == nil {
		return false
	}
	return in.ToolName == "Write" || in.ToolName == "Edit"
}

// Continue lets the pipeline proceed without a message.
func Continue() Output {
	return Output{Result: ResultContinue}
}

// ContinueWith lets the pipeline proceed with message.
func ContinueWith(message string) Output {
	return Output{Result: ResultContinue, Message: message}
}

// Continuef lets the pipeline proceed with an informational message.
func Continuef(format string, args ...any) Output {
	return Output{Result: ResultContinue, Message: fmt.Sprintf(format, args...)}
}

// Block stops the pipeline with the given reason.
func Block(message string) Output {
	return Output{Result: ResultBlock, Message: message}
}

// Write encodes the verdict as one line of JSON.
func Write(w io.Writer, out Output) error {
	if out.Result == "" {
		out.Result = ResultContinue
	}
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("failed to write hook output: %w", err)
	}
	return nil
}
