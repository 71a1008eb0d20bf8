// Package workflow is the entry point of the approval engine.
//
// An Orchestrator applies one request to one record: an optional approval
// action and an optional causal parent change. Everything the request
// changes is written in a single storage transaction. Notifications are
// handed to a dispatcher only after that transaction commits.
package workflow
