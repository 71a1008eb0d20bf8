package contracts

import "time"

// ApprovalStatus is the workflow stage of an approvable record.
type ApprovalStatus string

const (
	StatusDraft                ApprovalStatus = "draft"
	StatusWaitingForValidation ApprovalStatus = "waiting-for-validation"
	StatusNeedsRevision        ApprovalStatus = "needs-revision"
	StatusValidated            ApprovalStatus = "validated"
	StatusPublished            ApprovalStatus = "published"
)

// AllStatuses lists every approval status in workflow order.
var AllStatuses = []ApprovalStatus{
	StatusDraft,
	StatusWaitingForValidation,
	StatusNeedsRevision,
	StatusValidated,
	StatusPublished,
}

// Valid reports whether s is a known status.
func (s ApprovalStatus) Valid() bool {
	for _, known := range AllStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// Action is a workflow action requested on a record.
type Action string

const (
	ActionSubmitValidation Action = "submit-validation"
	ActionSubmitDraft      Action = "submit-draft"
	ActionSubmitValidate   Action = "submit-validate"
	ActionSubmitPublish    Action = "submit-publish"
	ActionSubmitReject     Action = "submit-reject"

	// ActionApprove and ActionPublish close the review loop: a validator
	// approves a record that is waiting for them, an admin publishes a record
	// that is already validated.
	ActionApprove Action = "approve"
	ActionPublish Action = "publish"
)

// AllActions lists every workflow action.
var AllActions = []Action{
	ActionSubmitValidation,
	ActionSubmitDraft,
	ActionSubmitValidate,
	ActionSubmitPublish,
	ActionSubmitReject,
	ActionApprove,
	ActionPublish,
}

// EntityType names the three kinds of approvable records.
type EntityType string

const (
	EntityHazardousEvent EntityType = "hazardous_event"
	EntityDisasterEvent  EntityType = "disaster_event"
	EntityDisasterRecord EntityType = "disaster_records"
)

// AllEntityTypes lists every approvable entity type.
var AllEntityTypes = []EntityType{
	EntityHazardousEvent,
	EntityDisasterEvent,
	EntityDisasterRecord,
}

// Valid reports whether t is a known entity type.
func (t EntityType) Valid() bool {
	switch t {
	case EntityHazardousEvent, EntityDisasterEvent, EntityDisasterRecord:
		return true
	}
	return false
}

// Stamp records who completed a workflow stage and when.
type Stamp struct {
	UserID string    `json:"user_id"`
	At     time.Time `json:"at"`
}

// ApprovableRecord is the workflow view of a hazardous event, disaster event
// or disaster record.
type ApprovableRecord struct {
	ID          string         `json:"id"`
	EntityType  EntityType     `json:"entity_type"`
	Status      ApprovalStatus `json:"approval_status"`
	StartDate   string         `json:"start_date,omitempty"`
	EndDate     string         `json:"end_date,omitempty"`
	Description string         `json:"description,omitempty"`

	Submitted *Stamp `json:"submitted,omitempty"`
	Validated *Stamp `json:"validated,omitempty"`
	Published *Stamp `json:"published,omitempty"`
}

// Event returns the causal-node view of a hazardous event record.
func (r *ApprovableRecord) Event() Event {
	kind := EventKindDisaster
	if r.EntityType == EntityHazardousEvent {
		kind = EventKindHazardous
	}
	return Event{
		ID:          r.ID,
		Kind:        kind,
		StartDate:   r.StartDate,
		EndDate:     r.EndDate,
		Description: r.Description,
	}
}

// StampOp says what a patch does to one actor/timestamp pair.
type StampOp int

const (
	StampKeep StampOp = iota
	StampSet
	StampClear
)

// StampUpdate is one actor/timestamp pair change inside a RecordPatch.
type StampUpdate struct {
	Op    StampOp
	Stamp Stamp
}

// SetStamp returns an update that populates the pair.
func SetStamp(userID string, at time.Time) StampUpdate {
	return StampUpdate{Op: StampSet, Stamp: Stamp{UserID: userID, At: at}}
}

// ClearStamp returns an update that nulls the pair.
func ClearStamp() StampUpdate {
	return StampUpdate{Op: StampClear}
}

func (u StampUpdate) apply(cur *Stamp) *Stamp {
	switch u.Op {
	case StampSet:
		s := u.Stamp
		return &s
	case StampClear:
		return nil
	default:
		return cur
	}
}

// RecordPatch is the workflow mutation applied to one record.
type RecordPatch struct {
	Status    ApprovalStatus
	Submitted StampUpdate
	Validated StampUpdate
	Published StampUpdate
}

// Apply returns a copy of r with the patch applied.
func (r ApprovableRecord) Apply(p RecordPatch) ApprovableRecord {
	if p.Status != "" {
		r.Status = p.Status
	}
	r.Submitted = p.Submitted.apply(r.Submitted)
	r.Validated = p.Validated.apply(r.Validated)
	r.Published = p.Published.apply(r.Published)
	return r
}

// ValidationAssignment is a pending obligation for a user to review a record.
type ValidationAssignment struct {
	ID               string     `json:"id"`
	EntityID         string     `json:"entity_id"`
	EntityType       EntityType `json:"entity_type"`
	AssignedToUserID string     `json:"assigned_to_user_id"`
	AssignedByUserID string     `json:"assigned_by_user_id"`
	AssignedAt       time.Time  `json:"assigned_at"`
}
