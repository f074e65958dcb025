package interactions

import (
	"context"
	"errors"
	"time"

	"claims-dialer/pkg/logger"

	"github.com/google/uuid"
)

// Repository is the persistence contract for interaction entries.
// It is append-only; no Update/Delete methods exist.
type Repository interface {
	Append(ctx context.Context, e Entry) error
}

var ErrInvalidEntry = errors.New("interactions: invalid entry")

// Recorder is the single interaction-logging capability injected into the
// call orchestrator and the webhook receiver. Interaction logging is a
// side effect of the call flow, never a gate on it: RecordBestEffort is
// the only method those callers use.
type Recorder struct {
	repo  Repository
	clock func() time.Time
}

func NewRecorder(repo Repository) *Recorder {
	return &Recorder{repo: repo, clock: time.Now}
}

// Record validates, stamps, and appends an entry.
func (r *Recorder) Record(ctx context.Context, e Entry) error {
	if r.repo == nil {
		return errors.New("interactions: repository not configured")
	}
	if e.LeadID == "" {
		return ErrInvalidEntry
	}
	if e.Type == "" {
		return ErrInvalidEntry
	}

	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = r.clock().UTC()
	}
	return r.repo.Append(ctx, e)
}

// RecordBestEffort appends an entry, logging and swallowing any failure.
// Webhook acknowledgements and call setup must not fail because the
// interaction log is unavailable.
func (r *Recorder) RecordBestEffort(ctx context.Context, e Entry) {
	if err := r.Record(ctx, e); err != nil {
		logger.From(ctx).Warn("interaction log write failed",
			"lead_id", e.LeadID,
			"type", string(e.Type),
			"call_sid", e.CallSid,
			"err", err,
		)
	}
}
