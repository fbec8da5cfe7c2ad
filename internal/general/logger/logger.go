package logger

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"runtime/debug"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/segmentio/ksuid"
)

// Level orders log severities. Lines below the logger's level are skipped.
type Level int32

const (
	LevelDebug Level = iota
	LevelInfo
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	default:
		return "ERROR"
	}
}

// ParseLevel accepts debug, info or error in any case.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "info", "":
		return LevelInfo, nil
	case "error":
		return LevelError, nil
	default:
		return LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}

// ErrorObject is emitted only for error logs.
type ErrorObject struct {
	Msg   string `json:"msg"`
	Stack string `json:"stack"`
}

// LogEntry is the single-line JSON format written to the output.
type LogEntry struct {
	Timestamp    string       `json:"timestamp"`
	Level        string       `json:"level"`
	Service      string       `json:"service"`
	Action       string       `json:"action"` // snake_case event name, e.g. lap_recorded
	Message      string       `json:"message"`
	Hostname     string       `json:"hostname"`
	RequestID    string       `json:"request_id,omitempty"`
	RaceID       string       `json:"race_id,omitempty"`
	CompetitorID string       `json:"competitor_id,omitempty"`
	Details      any          `json:"details,omitempty"`
	Error        *ErrorObject `json:"error,omitempty"`
}

// Logger writes one JSON object per line. It is safe for concurrent use.
type Logger struct {
	service  string
	hostname string
	level    atomic.Int32

	mu  sync.Mutex
	out io.Writer
}

// New creates a logger for service writing to stdout at info level.
func New(service string) *Logger {
	return NewWithWriter(service, os.Stdout)
}

// NewWithWriter creates a logger writing to w at info level. A nil w discards.
func NewWithWriter(service string, w io.Writer) *Logger {
	hn, err := os.Hostname()
	if err != nil || strings.TrimSpace(hn) == "" {
		hn = "unknown-hostname"
	}
	if strings.TrimSpace(service) == "" {
		service = "unknown-service"
	}
	if w == nil {
		w = io.Discard
	}
	l := &Logger{service: service, hostname: hn, out: w}
	l.SetLevel(LevelInfo)
	return l
}

// SetLevel changes the minimum level written.
func (l *Logger) SetLevel(level Level) { l.level.Store(int32(level)) }

// Enabled reports whether lines at level are written.
func (l *Logger) Enabled(level Level) bool { return int32(level) >= l.level.Load() }

func (l *Logger) Debug(ctx context.Context, action, msg string, details any) {
	l.log(ctx, LevelDebug, action, msg, nil, details)
}

func (l *Logger) Info(ctx context.Context, action, msg string, details any) {
	l.log(ctx, LevelInfo, action, msg, nil, details)
}

// Error writes an ERROR line carrying err and the current stack.
func (l *Logger) Error(ctx context.Context, action, msg string, err error, details any) {
	if err == nil {
		err = fmt.Errorf("unknown error")
	}
	l.log(ctx, LevelError, action, msg, err, details)
}

func (l *Logger) log(ctx context.Context, level Level, action, msg string, err error, details any) {
	if !l.Enabled(level) {
		return
	}
	e := LogEntry{
		Timestamp:    time.Now().UTC().Format(time.RFC3339Nano),
		Level:        level.String(),
		Service:      l.service,
		Action:       strings.TrimSpace(action),
		Message:      strings.TrimSpace(msg),
		Hostname:     l.hostname,
		RequestID:    fromCtx(ctx, ctxKeyRequestID),
		RaceID:       fromCtx(ctx, ctxKeyRaceID),
		CompetitorID: fromCtx(ctx, ctxKeyCompetitorID),
		Details:      details,
	}
	if e.Action == "" {
		e.Action = "unspecified"
	}
	if err != nil {
		e.Error = &ErrorObject{Msg: strings.TrimSpace(err.Error()), Stack: string(debug.Stack())}
	}
	l.write(e)
}

// write marshals e, retrying without Details, which is the only field
// callers fill with arbitrary values.
func (l *Logger) write(e LogEntry) {
	b, err := json.Marshal(e)
	if err != nil {
		e.Details = map[string]any{"details_error": err.Error()}
		if b, err = json.Marshal(e); err != nil {
			fmt.Fprintf(os.Stderr, "log marshal failed: %v\n", err)
			return
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	_, _ = l.out.Write(append(b, '\n'))
}

// ----- context correlation -----

type ctxKey string

const (
	ctxKeyRequestID    ctxKey = "racegap_request_id"
	ctxKeyRaceID       ctxKey = "racegap_race_id"
	ctxKeyCompetitorID ctxKey = "racegap_competitor_id"
)

// WithRequestID returns a new context carrying request_id.
func (l *Logger) WithRequestID(ctx context.Context, reqID string) context.Context {
	return withValue(ctx, ctxKeyRequestID, reqID)
}

// WithRaceID returns a new context carrying race_id.
func (l *Logger) WithRaceID(ctx context.Context, raceID string) context.Context {
	return withValue(ctx, ctxKeyRaceID, raceID)
}

// WithCompetitorID returns a new context carrying competitor_id.
func (l *Logger) WithCompetitorID(ctx context.Context, competitorID string) context.Context {
	return withValue(ctx, ctxKeyCompetitorID, competitorID)
}

// NewRequestID returns a sortable, collision-resistant correlation id.
func NewRequestID() string {
	return ksuid.New().String()
}

// RequestIDFrom returns the request_id carried by ctx, if any.
func RequestIDFrom(ctx context.Context) string {
	return fromCtx(ctx, ctxKeyRequestID)
}

func withValue(ctx context.Context, key ctxKey, v string) context.Context {
	if strings.TrimSpace(v) == "" {
		return ctx
	}
	return context.WithValue(ctx, key, v)
}

func fromCtx(ctx context.Context, key ctxKey) string {
	if ctx == nil {
		return ""
	}
	s, _ := ctx.Value(key).(string)
	return s
}
