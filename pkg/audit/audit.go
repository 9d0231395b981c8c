// Package audit records an append-only trail of lottery runs: who ran the
// lottery, on which input, with which seed and what came out of it.
package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"lottery/pkg/config"
)

// Action represents the type of action performed in an audit event.
type Action string

const (
	// ActionSolve indicates a full lottery run.
	ActionSolve Action = "SOLVE"
	// ActionReplay indicates an offline replay of a diagnostic dump.
	ActionReplay Action = "REPLAY"
	// ActionExport indicates writing assignment files.
	ActionExport Action = "EXPORT"
	// ActionMigrate indicates applying database migrations.
	ActionMigrate Action = "MIGRATE"
)

// Outcome represents the result of an audit action.
type Outcome string

const (
	// OutcomeSuccess indicates that the action completed successfully.
	OutcomeSuccess Outcome = "SUCCESS"
	// OutcomeFailure indicates that the action failed due to an error.
	OutcomeFailure Outcome = "FAILURE"
	// OutcomeCached indicates that the result was served from the assignment cache.
	OutcomeCached Outcome = "CACHED"
)

// Entry represents a single audit log record.
type Entry struct {
	ID           string         `json:"id"`
	Timestamp    time.Time      `json:"timestamp"`
	Service      string         `json:"service"`
	Command      string         `json:"command"` // CLI command that produced the entry
	Action       Action         `json:"action"`
	Outcome      Outcome        `json:"outcome"`
	Operator     string         `json:"operator,omitempty"` // OS user who started the run
	Host         string         `json:"host,omitempty"`
	RunID        string         `json:"run_id,omitempty"`
	InputHash    string         `json:"input_hash,omitempty"`
	Seed         int64          `json:"seed,omitempty"`
	DurationMs   int64          `json:"duration_ms"`
	ErrorCode    string         `json:"error_code,omitempty"`
	ErrorMessage string         `json:"error_message,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

// Logger is the interface that audit loggers must implement.
type Logger interface {
	// Log records an audit event.
	Log(ctx context.Context, entry *Entry) error

	// Query retrieves audit logs based on a filter.
	// Not all loggers may support querying.
	Query(ctx context.Context, filter *QueryFilter) ([]*Entry, error)

	// Close shuts down the logger and releases any resources.
	Close() error
}

// QueryFilter defines criteria for querying audit log entries.
type QueryFilter struct {
	StartTime *time.Time // inclusive
	EndTime   *time.Time // exclusive
	Action    Action
	Outcome   Outcome
	RunID     string
	Limit     int
	Offset    int
}

// Match reports whether the entry satisfies the filter, ignoring Limit and Offset.
func (f *QueryFilter) Match(e *Entry) bool {
	if f == nil {
		return true
	}
	if f.StartTime != nil && e.Timestamp.Before(*f.StartTime) {
		return false
	}
	if f.EndTime != nil && !e.Timestamp.Before(*f.EndTime) {
		return false
	}
	if f.Action != "" && e.Action != f.Action {
		return false
	}
	if f.Outcome != "" && e.Outcome != f.Outcome {
		return false
	}
	if f.RunID != "" && e.RunID != f.RunID {
		return false
	}
	return true
}

// Config holds configuration parameters for the audit logger.
type Config struct {
	Enabled     bool
	Backend     string // "file", "stdout" or "noop"
	FilePath    string
	BufferSize  int
	FlushPeriod time.Duration
}

// DefaultConfig returns a Config struct with default values.
func DefaultConfig() *Config {
	return &Config{
		Enabled:     true,
		Backend:     "stdout",
		BufferSize:  16,
		FlushPeriod: time.Second,
	}
}

// FromConfig converts the audit section of the application config.
func FromConfig(cfg *config.AuditConfig) *Config {
	return &Config{
		Enabled:     cfg.Enabled,
		Backend:     cfg.Backend,
		FilePath:    cfg.FilePath,
		BufferSize:  cfg.BufferSize,
		FlushPeriod: cfg.FlushPeriod,
	}
}

// Builder provides a fluent API for constructing an Entry object.
type Builder struct {
	entry *Entry
}

// NewEntry creates a Builder initialized with a timestamp and an empty metadata map.
func NewEntry() *Builder {
	return &Builder{
		entry: &Entry{
			Timestamp: time.Now().UTC(),
			Metadata:  make(map[string]any),
		},
	}
}

// Service sets the service name for the audit entry.
func (b *Builder) Service(s string) *Builder {
	b.entry.Service = s
	return b
}

// Command sets the CLI command for the audit entry.
func (b *Builder) Command(c string) *Builder {
	b.entry.Command = c
	return b
}

// Action sets the action type for the audit entry.
func (b *Builder) Action(a Action) *Builder {
	b.entry.Action = a
	return b
}

// Outcome sets the outcome for the audit entry.
func (b *Builder) Outcome(o Outcome) *Builder {
	b.entry.Outcome = o
	return b
}

// Operator sets the operator and host that started the run.
func (b *Builder) Operator(user, host string) *Builder {
	b.entry.Operator = user
	b.entry.Host = host
	return b
}

// Run sets the run identifier, input hash and shuffle seed.
func (b *Builder) Run(runID, inputHash string, seed int64) *Builder {
	b.entry.RunID = runID
	b.entry.InputHash = inputHash
	b.entry.Seed = seed
	return b
}

// Duration sets the duration of the operation.
func (b *Builder) Duration(d time.Duration) *Builder {
	b.entry.DurationMs = d.Milliseconds()
	return b
}

// Error sets the error code and message if the outcome was a failure.
func (b *Builder) Error(code, message string) *Builder {
	b.entry.ErrorCode = code
	b.entry.ErrorMessage = message
	return b
}

// Meta adds a key-value pair to the metadata map of the audit entry.
func (b *Builder) Meta(key string, value any) *Builder {
	b.entry.Metadata[key] = value
	return b
}

// Build finalizes the Entry construction and returns the Entry object.
// It generates a unique ID if one is not already set.
func (b *Builder) Build() *Entry {
	if b.entry.ID == "" {
		b.entry.ID = uuid.NewString()
	}
	return b.entry
}

// MarshalJSON customizes the JSON serialization of an Entry.
func (e *Entry) MarshalJSON() ([]byte, error) {
	type Alias Entry
	return json.Marshal((*Alias)(e))
}
