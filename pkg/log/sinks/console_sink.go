package sinks

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/arnavsurve/portalstep/pkg/log"
	"github.com/arnavsurve/portalstep/pkg/types"
	"github.com/fatih/color"
)

// ConsoleSink prints colored, human-readable log lines. It writes to stderr
// by default so stdout stays reserved for the event stream.
type ConsoleSink struct {
	mu  sync.Mutex
	out io.Writer
}

func NewConsoleSink() *ConsoleSink {
	return NewConsoleSinkTo(color.Error)
}

func NewConsoleSinkTo(w io.Writer) *ConsoleSink {
	if w == nil {
		w = os.Stderr
	}
	return &ConsoleSink{out: w}
}

var levelColorMap = map[types.Level]*color.Color{
	types.DebugLevel: color.New(color.FgCyan),
	types.InfoLevel:  color.New(color.FgGreen),
	types.WarnLevel:  color.New(color.FgYellow),
	types.ErrorLevel: color.New(color.FgRed),
	types.FatalLevel: color.New(color.FgRed, color.Bold),
}

func (c *ConsoleSink) Write(event *log.LogEvent) error {
	stepPath := getStringField(event.Fields, "step_path")
	stepID := getStringField(event.Fields, "step_id")
	stepType := getStringField(event.Fields, "step_type")
	errorMsg := getStringField(event.Fields, "error")
	msg := event.Message
	levelStr := strings.ToUpper(log.LevelString(event.Level))
	timestampStr := event.Timestamp.Format(time.RFC3339)

	levelFmt := color.New(color.FgWhite).SprintFunc()
	if lc, ok := levelColorMap[event.Level]; ok {
		levelFmt = lc.SprintFunc()
	}
	timestampFmt := color.New(color.FgWhite).SprintFunc()

	stepLabel := "workflow"
	switch {
	case stepPath != "" && stepID != "":
		stepLabel = stepPath + ":" + stepID
	case stepID != "":
		stepLabel = stepID
	}
	if stepType != "" {
		stepLabel += "/" + stepType
	}

	commonPrefix := fmt.Sprintf("[%s %s] %s: ",
		levelFmt(levelStr),
		timestampFmt(timestampStr),
		color.CyanString(stepLabel),
	)

	var output string
	switch {
	case msg != "" && errorMsg != "":
		output = fmt.Sprintf("%s%s: %s", commonPrefix, msg, color.RedString(errorMsg))
	case errorMsg != "":
		output = commonPrefix + errorMsg
	case msg != "":
		output = commonPrefix + msg
	default:
		fieldsStr, _ := json.MarshalIndent(event.Fields, "", "  ")
		output = commonPrefix + string(fieldsStr)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := fmt.Fprintln(c.out, output)
	return err
}

// Helper to safely get string field from LogEvent.Fields
func getStringField(fields map[string]any, key string) string {
	if val, ok := fields[key]; ok {
		if strVal, isStr := val.(string); isStr {
			return strVal
		}
	}
	return ""
}

func (c *ConsoleSink) Close() error {
	return nil // Console doesn't need closing
}
