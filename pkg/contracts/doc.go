// Package contracts defines the shared data model of the disaster-impact
// approval engine: causal events and edges, approvable records with their
// workflow metadata, and validator assignments.
//
// Every other package speaks in these types. Storage implementations map them
// to rows; the causal and approval packages reason about them without knowing
// how they are persisted.
package contracts
