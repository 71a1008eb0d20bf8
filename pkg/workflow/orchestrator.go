package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/unisdr/delta/pkg/approval"
	"github.com/unisdr/delta/pkg/assignment"
	"github.com/unisdr/delta/pkg/causal"
	"github.com/unisdr/delta/pkg/contracts"
	"github.com/unisdr/delta/pkg/identity"
	"github.com/unisdr/delta/pkg/notify"
	"github.com/unisdr/delta/pkg/store"
)

// Dispatcher receives notices after commit. *notify.Dispatcher implements it.
type Dispatcher interface {
	Validators(ctx context.Context, n notify.ValidatorNotice)
	Submitter(ctx context.Context, n notify.SubmitterNotice)
}

// Tracker wraps an operation in a span. *observability.Provider implements it.
type Tracker interface {
	TrackOperation(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, func(error))
}

// Metrics counts outcomes. *observability.WorkflowMetrics implements it.
type Metrics interface {
	TransitionApplied(entityType, action, status string)
	TransitionRejected(entityType, action string)
	RelationshipEdited(outcome string)
}

// Request is one mutation of one record.
type Request struct {
	EntityID   string
	EntityType contracts.EntityType
	// Action is optional when the payload only changes the causal parent.
	Action  contracts.Action
	Actor   identity.Actor
	Payload Payload
}

// Result describes what Apply changed.
type Result struct {
	Record         contracts.ApprovableRecord
	PreviousStatus contracts.ApprovalStatus
	Decision       *approval.Decision
	Parent         *causal.Change
	Assignments    []contracts.ValidationAssignment
	// Notified lists the notice kinds handed to the dispatcher.
	Notified []string
}

// Orchestrator composes the state machine, the relationship editor and the
// assignment manager over a store.
type Orchestrator struct {
	store       store.Store
	editor      *causal.Editor
	assignments *assignment.Manager
	dispatcher  Dispatcher
	tracker     Tracker
	metrics     Metrics
	clock       func() time.Time
	logger      *slog.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithEditor overrides the relationship editor.
func WithEditor(e *causal.Editor) Option {
	return func(o *Orchestrator) { o.editor = e }
}

// WithAssignments overrides the assignment manager.
func WithAssignments(m *assignment.Manager) Option {
	return func(o *Orchestrator) { o.assignments = m }
}

// WithDispatcher sets where notices go after commit.
func WithDispatcher(d Dispatcher) Option {
	return func(o *Orchestrator) { o.dispatcher = d }
}

// WithTracker enables tracing.
func WithTracker(t Tracker) Option {
	return func(o *Orchestrator) { o.tracker = t }
}

// WithMetrics enables outcome counters.
func WithMetrics(m Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// WithClock sets the clock used for workflow stamps.
func WithClock(clock func() time.Time) Option {
	return func(o *Orchestrator) { o.clock = clock }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = l.With("component", "workflow") }
}

// New creates an orchestrator over s.
func New(s store.Store, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		store:       s,
		editor:      causal.NewEditor(),
		assignments: assignment.NewManager(),
		clock:       time.Now,
		logger:      slog.Default().With("component", "workflow"),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// pending holds notices planned inside the transaction.
type pending struct {
	validators *notify.ValidatorNotice
	submitter  *notify.SubmitterNotice
}

// Apply performs req atomically. Validation failures are returned before
// anything is written; storage failures roll the transaction back and are
// returned wrapped but otherwise unchanged.
func (o *Orchestrator) Apply(ctx context.Context, req Request) (res *Result, err error) {
	if o.tracker != nil {
		var done func(error)
		ctx, done = o.tracker.TrackOperation(ctx, "workflow.apply",
			attribute.String("entity_type", string(req.EntityType)),
			attribute.String("action", string(req.Action)),
		)
		defer func() { done(err) }()
	}

	if err := validateRequest(req); err != nil {
		return nil, err
	}

	var (
		result Result
		notes  pending
	)
	err = o.store.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		result, notes = Result{}, pending{}

		rec, err := tx.GetRecord(ctx, req.EntityType, req.EntityID)
		if err != nil {
			return err
		}
		result.PreviousStatus = rec.Status
		result.Record = rec

		var decision *approval.Decision
		if req.Action != "" {
			d, err := approval.Transition(rec.Status, req.Action, req.Actor.Role, approval.Input{
				ValidatorIDs: req.Payload.ValidatorIDs,
				Comment:      req.Payload.Comment,
			})
			if err != nil {
				o.logger.WarnContext(ctx, "workflow action rejected",
					"entity_id", req.EntityID,
					"entity_type", req.EntityType,
					"action", req.Action,
					"role", req.Actor.Role,
					"status", rec.Status,
					"error", err,
				)
				if o.metrics != nil {
					o.metrics.TransitionRejected(string(req.EntityType), string(req.Action))
				}
				return err
			}
			decision = &d
		}

		if req.Payload.Parent != nil {
			change, err := o.editParent(ctx, tx, req.EntityID, req.Payload.Parent.ID)
			if err != nil {
				return err
			}
			result.Parent = &change
		}

		if decision == nil {
			return nil
		}

		patch := o.patchFor(*decision, req.Actor.UserID)
		if err := tx.UpdateRecord(ctx, req.EntityType, req.EntityID, patch); err != nil {
			return fmt.Errorf("update %s %s: %w", req.EntityType, req.EntityID, err)
		}
		result.Record = rec.Apply(patch)
		result.Decision = decision

		switch {
		case decision.Has(approval.EffectCreateAssignments):
			rows, err := o.assignments.Assign(ctx, tx, req.EntityID, req.EntityType, req.Payload.ValidatorIDs, req.Actor.UserID)
			if err != nil {
				return err
			}
			result.Assignments = rows
		case decision.Has(approval.EffectDeleteAssignments):
			if err := o.assignments.Clear(ctx, tx, req.EntityID, req.EntityType); err != nil {
				return err
			}
		default:
			rows, err := o.assignments.List(ctx, tx, req.EntityID, req.EntityType)
			if err != nil {
				return err
			}
			result.Assignments = rows
		}

		notes = o.planNotices(ctx, req, rec, *decision)
		return nil
	})
	if err != nil {
		return nil, err
	}

	if d := result.Decision; d != nil && o.metrics != nil {
		o.metrics.TransitionApplied(string(req.EntityType), string(d.Action), string(d.Next))
	}
	result.Notified = o.dispatch(ctx, notes)

	o.logger.InfoContext(ctx, "workflow request applied",
		"entity_id", req.EntityID,
		"entity_type", req.EntityType,
		"action", req.Action,
		"from", result.PreviousStatus,
		"to", result.Record.Status,
		"parent_changed", result.Parent != nil && result.Parent.Changed(),
	)
	return &result, nil
}

// SetParent changes only the causal parent of a hazardous event.
func (o *Orchestrator) SetParent(ctx context.Context, actor identity.Actor, childID string, parentID *string) (causal.Change, error) {
	res, err := o.Apply(ctx, Request{
		EntityID:   childID,
		EntityType: contracts.EntityHazardousEvent,
		Actor:      actor,
		Payload:    Payload{Parent: &ParentChange{ID: parentID}},
	})
	if err != nil {
		return causal.Change{}, err
	}
	return *res.Parent, nil
}

func validateRequest(req Request) error {
	if req.EntityID == "" {
		return fmt.Errorf("%w: entity id is required", contracts.ErrValidation)
	}
	if !req.EntityType.Valid() {
		return fmt.Errorf("%w: unknown entity type %q", contracts.ErrValidation, req.EntityType)
	}
	if req.Action == "" && req.Payload.Parent == nil {
		return fmt.Errorf("%w: request has neither an action nor a parent change", contracts.ErrValidation)
	}
	if req.Payload.Parent != nil {
		if req.EntityType != contracts.EntityHazardousEvent {
			return fmt.Errorf("%w: causal links apply to hazardous events only", contracts.ErrValidation)
		}
		if !req.Actor.Role.CanEdit() {
			return fmt.Errorf("%w: role %q may not edit causal links", contracts.ErrValidation, req.Actor.Role)
		}
	}
	return nil
}

func (o *Orchestrator) editParent(ctx context.Context, tx store.Tx, childID string, parentID *string) (causal.Change, error) {
	if err := o.editor.Check(ctx, tx, childID, parentID); err != nil {
		o.recordEdit(rejectionKind(err))
		return causal.Change{}, err
	}
	change, err := o.editor.Apply(ctx, tx, childID, parentID)
	if err != nil {
		return causal.Change{}, err
	}
	o.recordEdit("applied")
	return change, nil
}

func (o *Orchestrator) recordEdit(outcome string) {
	if o.metrics != nil {
		o.metrics.RelationshipEdited(outcome)
	}
}

func rejectionKind(err error) string {
	var (
		self     *causal.SelfReferenceError
		cycle    *causal.CycleError
		temporal *causal.TemporalOrderError
	)
	switch {
	case errors.As(err, &self):
		return "self_reference"
	case errors.As(err, &cycle):
		return "cycle"
	case errors.As(err, &temporal):
		return "temporal"
	case contracts.IsNotFound(err):
		return "not_found"
	default:
		return "error"
	}
}

func (o *Orchestrator) patchFor(d approval.Decision, actorID string) contracts.RecordPatch {
	now := o.clock().UTC()
	patch := contracts.RecordPatch{Status: d.Next}
	for _, e := range d.Effects {
		switch e {
		case approval.EffectSetSubmitted:
			patch.Submitted = contracts.SetStamp(actorID, now)
		case approval.EffectClearSubmitted:
			patch.Submitted = contracts.ClearStamp()
		case approval.EffectSetValidated:
			patch.Validated = contracts.SetStamp(actorID, now)
		case approval.EffectClearValidated:
			patch.Validated = contracts.ClearStamp()
		case approval.EffectSetPublished:
			patch.Published = contracts.SetStamp(actorID, now)
		case approval.EffectClearPublished:
			patch.Published = contracts.ClearStamp()
		}
	}
	return patch
}

// planNotices builds notices from the record as it was before the patch, so
// the submitter is the one who sent the record for review.
func (o *Orchestrator) planNotices(ctx context.Context, req Request, before contracts.ApprovableRecord, d approval.Decision) pending {
	var p pending
	if d.Has(approval.EffectNotifyValidators) {
		p.validators = &notify.ValidatorNotice{
			EntityID:     req.EntityID,
			EntityType:   req.EntityType,
			ValidatorIDs: approval.NormalizeIDs(req.Payload.ValidatorIDs),
			SubmitterID:  req.Actor.UserID,
			Context:      req.Payload.Context,
		}
	}
	if d.Has(approval.EffectNotifySubmitter) {
		if before.Submitted == nil || before.Submitted.UserID == "" {
			o.logger.WarnContext(ctx, "no submitter to notify",
				"entity_id", req.EntityID, "entity_type", req.EntityType, "action", d.Action)
		} else {
			p.submitter = &notify.SubmitterNotice{
				EntityID:    req.EntityID,
				EntityType:  req.EntityType,
				SubmitterID: before.Submitted.UserID,
				NewStatus:   d.Next,
				Comment:     req.Payload.Comment,
				ActorID:     req.Actor.UserID,
			}
		}
	}
	return p
}

func (o *Orchestrator) dispatch(ctx context.Context, p pending) []string {
	var kinds []string
	if p.validators != nil {
		kinds = append(kinds, "validators")
	}
	if p.submitter != nil {
		kinds = append(kinds, "submitter")
	}
	if o.dispatcher == nil {
		if len(kinds) > 0 {
			o.logger.DebugContext(ctx, "no dispatcher configured, notices dropped", "kinds", kinds)
		}
		return nil
	}
	if p.validators != nil {
		o.dispatcher.Validators(ctx, *p.validators)
	}
	if p.submitter != nil {
		o.dispatcher.Submitter(ctx, *p.submitter)
	}
	return kinds
}
