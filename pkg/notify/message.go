package notify

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
	"text/template"

	"github.com/unisdr/delta/pkg/contracts"
)

// Message is a rendered email handed to the mail service.
type Message struct {
	Kind       string               `json:"kind"`
	To         []string             `json:"to"`
	Subject    string               `json:"subject"`
	Body       string               `json:"body"`
	EntityID   string               `json:"entity_id"`
	EntityType contracts.EntityType `json:"entity_type"`
}

var entityNames = map[contracts.EntityType]string{
	contracts.EntityHazardousEvent: "hazardous event",
	contracts.EntityDisasterEvent:  "disaster event",
	contracts.EntityDisasterRecord: "disaster record",
}

var statusNames = map[contracts.ApprovalStatus]string{
	contracts.StatusDraft:                "draft",
	contracts.StatusWaitingForValidation: "waiting for validation",
	contracts.StatusNeedsRevision:        "needs revision",
	contracts.StatusValidated:            "validated",
	contracts.StatusPublished:            "published",
}

var (
	validatorBody = template.Must(template.New("validator").Parse(
		`A {{.Entity}} ({{.ID}}) was submitted for your validation by {{.Submitter}}.
{{range .Context}}
{{.Key}}: {{.Value}}{{end}}
`))
	submitterBody = template.Must(template.New("submitter").Parse(
		`Your {{.Entity}} ({{.ID}}) is now {{.Status}}.
{{if .Comment}}
Reviewer comment:
{{.Comment}}
{{end}}`))
)

type kv struct{ Key, Value string }

// RenderValidator renders the email for a ValidatorNotice.
func RenderValidator(n ValidatorNotice) (Message, error) {
	keys := make([]string, 0, len(n.Context))
	for k := range n.Context {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	ctx := make([]kv, 0, len(keys))
	for _, k := range keys {
		ctx = append(ctx, kv{Key: k, Value: n.Context[k]})
	}

	var body bytes.Buffer
	err := validatorBody.Execute(&body, map[string]any{
		"Entity":    entityName(n.EntityType),
		"ID":        n.EntityID,
		"Submitter": n.SubmitterID,
		"Context":   ctx,
	})
	if err != nil {
		return Message{}, fmt.Errorf("render validator notice: %w", err)
	}
	return Message{
		Kind:       "validation-request",
		To:         append([]string(nil), n.ValidatorIDs...),
		Subject:    fmt.Sprintf("Validation requested: %s %s", entityName(n.EntityType), n.EntityID),
		Body:       body.String(),
		EntityID:   n.EntityID,
		EntityType: n.EntityType,
	}, nil
}

// RenderSubmitter renders the email for a SubmitterNotice.
func RenderSubmitter(n SubmitterNotice) (Message, error) {
	var body bytes.Buffer
	err := submitterBody.Execute(&body, map[string]any{
		"Entity":  entityName(n.EntityType),
		"ID":      n.EntityID,
		"Status":  statusName(n.NewStatus),
		"Comment": strings.TrimSpace(n.Comment),
	})
	if err != nil {
		return Message{}, fmt.Errorf("render submitter notice: %w", err)
	}
	return Message{
		Kind:       "status-change",
		To:         []string{n.SubmitterID},
		Subject:    fmt.Sprintf("Your %s is %s", entityName(n.EntityType), statusName(n.NewStatus)),
		Body:       body.String(),
		EntityID:   n.EntityID,
		EntityType: n.EntityType,
	}, nil
}

func entityName(t contracts.EntityType) string {
	if n, ok := entityNames[t]; ok {
		return n
	}
	return string(t)
}

func statusName(s contracts.ApprovalStatus) string {
	if n, ok := statusNames[s]; ok {
		return n
	}
	return string(s)
}
