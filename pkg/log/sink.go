package log

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/arnavsurve/portalstep/pkg/security"
	"github.com/arnavsurve/portalstep/pkg/types"
	"github.com/rs/zerolog"
)

// LogEvent represents a log event that will be written to sinks
type LogEvent struct {
	Level     types.Level
	Message   string
	Fields    map[string]any
	Timestamp time.Time
}

// Sink defines the interface for log output destinations
type Sink interface {
	Write(event *LogEvent) error
	io.Closer
}

// Router is the io.Writer behind the zerolog logger. It decodes each JSON
// line, redacts secrets and routes the event to every sink.
type Router struct {
	sinks    []Sink
	Redactor *security.Redactor
}

func NewRouter(sinks ...Sink) *Router {
	return &Router{sinks: sinks}
}

var reservedFields = map[string]struct{}{
	zerolog.LevelFieldName:     {},
	zerolog.MessageFieldName:   {},
	zerolog.TimestampFieldName: {},
}

func (r *Router) Write(p []byte) (n int, err error) {
	var zerologOutput map[string]any
	if err := json.Unmarshal(p, &zerologOutput); err != nil {
		fmt.Fprintf(os.Stderr, "Router: Error unmarshaling log line: %v, data: %s\n", err, string(p))
		return len(p), nil
	}

	evt := &LogEvent{
		Level:     types.InfoLevel,
		Fields:    make(map[string]any),
		Timestamp: time.Now(),
	}

	if lvlStr, ok := zerologOutput[zerolog.LevelFieldName].(string); ok {
		if zlLevel, err := zerolog.ParseLevel(lvlStr); err == nil {
			evt.Level = ConvertZerologLevel(zlLevel)
		}
	}
	if msg, ok := zerologOutput[zerolog.MessageFieldName].(string); ok {
		evt.Message = msg
	}
	if tsStr, ok := zerologOutput[zerolog.TimestampFieldName].(string); ok {
		if ts, err := time.Parse(time.RFC3339Nano, tsStr); err == nil {
			evt.Timestamp = ts
		}
	}
	for k, v := range zerologOutput {
		if _, isReserved := reservedFields[k]; !isReserved {
			evt.Fields[k] = v
		}
	}

	if r.Redactor != nil {
		evt.Message = r.Redactor.Redact(evt.Message)
		for k, v := range evt.Fields {
			evt.Fields[k] = r.redactValue(v)
		}
	}

	for _, sink := range r.sinks {
		if err := sink.Write(evt); err != nil {
			fmt.Fprintf(os.Stderr, "Router: Error writing to sink: %v\n", err)
		}
	}

	return len(p), nil
}

func (r *Router) redactValue(v any) any {
	switch typed := v.(type) {
	case string:
		return r.Redactor.Redact(typed)
	case map[string]any:
		for k, vv := range typed {
			typed[k] = r.redactValue(vv)
		}
		return typed
	case []any:
		for i, vv := range typed {
			typed[i] = r.redactValue(vv)
		}
		return typed
	default:
		return v
	}
}

func ConvertZerologLevel(zl zerolog.Level) types.Level {
	switch zl {
	case zerolog.DebugLevel:
		return types.DebugLevel
	case zerolog.InfoLevel:
		return types.InfoLevel
	case zerolog.WarnLevel:
		return types.WarnLevel
	case zerolog.ErrorLevel:
		return types.ErrorLevel
	case zerolog.FatalLevel:
		return types.FatalLevel
	default:
		return types.InfoLevel
	}
}

// LevelString is the lowercase name of l.
func LevelString(l types.Level) string {
	switch l {
	case types.DebugLevel:
		return "debug"
	case types.InfoLevel:
		return "info"
	case types.WarnLevel:
		return "warn"
	case types.ErrorLevel:
		return "error"
	case types.FatalLevel:
		return "fatal"
	default:
		return "unknown"
	}
}

func (r *Router) AddSink(sink Sink) {
	r.sinks = append(r.sinks, sink)
}

func (r *Router) Close() error {
	var firstErr error
	for _, sink := range r.sinks {
		if err := sink.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
