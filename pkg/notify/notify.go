// Package notify delivers workflow notifications to validators and
// submitters.
//
// Delivery is best effort. The Dispatcher runs notifiers in the background
// after a transaction has committed and logs failures instead of returning
// them, so a lost email never undoes an approval.
package notify

import (
	"context"
	"log/slog"

	"github.com/unisdr/delta/pkg/contracts"
)

// ValidatorNotice asks validators to review a submitted record.
type ValidatorNotice struct {
	EntityID     string               `json:"entity_id"`
	EntityType   contracts.EntityType `json:"entity_type"`
	ValidatorIDs []string             `json:"validator_ids"`
	SubmitterID  string               `json:"submitter_id"`
	Context      map[string]string    `json:"context,omitempty"`
}

// SubmitterNotice tells the submitter their record changed status.
type SubmitterNotice struct {
	EntityID    string                   `json:"entity_id"`
	EntityType  contracts.EntityType     `json:"entity_type"`
	SubmitterID string                   `json:"submitter_id"`
	NewStatus   contracts.ApprovalStatus `json:"new_status"`
	Comment     string                   `json:"comment,omitempty"`
	ActorID     string                   `json:"actor_id,omitempty"`
}

// Notifier is the notification collaborator.
type Notifier interface {
	NotifyValidators(ctx context.Context, n ValidatorNotice) error
	NotifySubmitter(ctx context.Context, n SubmitterNotice) error
}

// LogNotifier writes notices to a structured log. It is the fallback when no
// outbox is configured.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier creates a notifier logging to l, or to the default logger
// when l is nil.
func NewLogNotifier(l *slog.Logger) *LogNotifier {
	if l == nil {
		l = slog.Default()
	}
	return &LogNotifier{logger: l.With("component", "notify")}
}

func (n *LogNotifier) NotifyValidators(ctx context.Context, v ValidatorNotice) error {
	n.logger.InfoContext(ctx, "validators notified",
		"entity_id", v.EntityID,
		"entity_type", v.EntityType,
		"validators", v.ValidatorIDs,
		"submitter_id", v.SubmitterID,
	)
	return nil
}

func (n *LogNotifier) NotifySubmitter(ctx context.Context, s SubmitterNotice) error {
	n.logger.InfoContext(ctx, "submitter notified",
		"entity_id", s.EntityID,
		"entity_type", s.EntityType,
		"submitter_id", s.SubmitterID,
		"status", s.NewStatus,
		"has_comment", s.Comment != "",
	)
	return nil
}
