package contracts

// EventKind distinguishes the two causal node families.
type EventKind string

const (
	EventKindHazardous EventKind = "hazardous"
	EventKindDisaster  EventKind = "disaster"
)

// RelationCausedBy is the only relationship type the causal graph tracks.
const RelationCausedBy = "caused_by"

// Event is a node in the causal graph.
//
// StartDate and EndDate hold partial-precision dates as stored: "2021",
// "2021-06" or "2021-06-15". Empty means unknown.
type Event struct {
	ID          string    `json:"id"`
	Kind        EventKind `json:"kind"`
	StartDate   string    `json:"start_date,omitempty"`
	EndDate     string    `json:"end_date,omitempty"`
	Description string    `json:"description,omitempty"`
}

// CausalEdge is a directed "child was caused by parent" relation between two
// hazardous events.
type CausalEdge struct {
	ID       string `json:"id"`
	ParentID string `json:"parent_id"`
	ChildID  string `json:"child_id"`
	Type     string `json:"type"`
}

// IsCausedBy reports whether the edge participates in the acyclic graph.
func (e CausalEdge) IsCausedBy() bool {
	return e.Type == RelationCausedBy
}
