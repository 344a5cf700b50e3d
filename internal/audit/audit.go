// Package audit receives the outcome of every access decision. The engine only
// depends on Sink; hosts choose where decisions go.
package audit

import (
	"context"
	"log/slog"

	"github.com/frahmantamala/salescrm/internal/core/identity"
)

const (
	OpList    = "list"
	OpGet     = "get"
	OpByOwner = "by_owner"
	OpSearch  = "search"
	OpStats   = "stats"
	OpByAttr  = "by_attribute"
)

// Decision is one access decision and its inputs.
type Decision struct {
	Operation  string
	Resource   string
	UserID     string
	Role       identity.Role
	TenantID   string
	ResourceID string
	Granted    bool
	Count      int
}

// NewDecision fills the caller fields from id.
func NewDecision(op, resource string, id identity.Identity) Decision {
	return Decision{
		Operation: op,
		Resource:  resource,
		UserID:    id.UserID,
		Role:      id.Role,
		TenantID:  id.TenantID,
	}
}

type Sink interface {
	Record(ctx context.Context, d Decision)
}

// Multi fans a decision out to every sink.
type Multi []Sink

func (m Multi) Record(ctx context.Context, d Decision) {
	for _, s := range m {
		s.Record(ctx, d)
	}
}

type Nop struct{}

func (Nop) Record(context.Context, Decision) {}

// LogSink writes decisions as structured log lines. Denials are logged at warn.
type LogSink struct {
	logger *slog.Logger
}

func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Record(ctx context.Context, d Decision) {
	level := slog.LevelDebug
	if !d.Granted {
		level = slog.LevelWarn
	}
	s.logger.Log(ctx, level, "access decision",
		"operation", d.Operation,
		"resource", d.Resource,
		"user_id", d.UserID,
		"role", d.Role.String(),
		"tenant_id", d.TenantID,
		"resource_id", d.ResourceID,
		"granted", d.Granted,
		"count", d.Count)
}
