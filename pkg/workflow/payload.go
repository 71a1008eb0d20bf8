package workflow

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/unisdr/delta/pkg/contracts"
)

const payloadSchemaURL = "https://delta.schemas.local/workflow/payload.schema.json"

const payloadSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "additionalProperties": false,
  "properties": {
    "validatorIds": {
      "type": "array",
      "items": {"type": "string"}
    },
    "comment": {"type": "string"},
    "parent": {
      "type": "object",
      "additionalProperties": false,
      "required": ["set"],
      "properties": {
        "set": {"type": "boolean"},
        "id": {"type": ["string", "null"]}
      }
    },
    "context": {
      "type": "object",
      "additionalProperties": {"type": "string"}
    }
  }
}`

var compiledPayloadSchema = mustCompilePayloadSchema()

func mustCompilePayloadSchema() *jsonschema.Schema {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	if err := c.AddResource(payloadSchemaURL, strings.NewReader(payloadSchema)); err != nil {
		panic(fmt.Sprintf("workflow payload schema load failed: %v", err))
	}
	return c.MustCompile(payloadSchemaURL)
}

// ParentChange requests a new caused_by parent. A nil ID removes the parent.
type ParentChange struct {
	ID *string
}

// Payload is the request body accompanying a workflow action.
type Payload struct {
	ValidatorIDs []string
	Comment      string
	Parent       *ParentChange
	Context      map[string]string
}

type wirePayload struct {
	ValidatorIDs []string          `json:"validatorIds"`
	Comment      string            `json:"comment"`
	Parent       *wireParent       `json:"parent"`
	Context      map[string]string `json:"context"`
}

type wireParent struct {
	Set bool    `json:"set"`
	ID  *string `json:"id"`
}

// PayloadError reports a malformed request payload.
type PayloadError struct {
	Reason string
}

func (e *PayloadError) Error() string {
	return "invalid payload: " + e.Reason
}

func (e *PayloadError) Is(target error) bool {
	return target == contracts.ErrValidation
}

// DecodePayload validates data against the payload schema and decodes it.
// Empty input and JSON null decode to an empty payload.
func DecodePayload(data []byte) (Payload, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return Payload{}, nil
	}

	var doc interface{}
	if err := json.Unmarshal(trimmed, &doc); err != nil {
		return Payload{}, &PayloadError{Reason: err.Error()}
	}
	if err := compiledPayloadSchema.Validate(doc); err != nil {
		return Payload{}, &PayloadError{Reason: err.Error()}
	}

	var w wirePayload
	if err := json.Unmarshal(trimmed, &w); err != nil {
		return Payload{}, &PayloadError{Reason: err.Error()}
	}

	p := Payload{
		ValidatorIDs: w.ValidatorIDs,
		Comment:      w.Comment,
		Context:      w.Context,
	}
	if w.Parent != nil && w.Parent.Set {
		change := &ParentChange{}
		if w.Parent.ID != nil {
			id := strings.TrimSpace(*w.Parent.ID)
			if id == "" {
				return Payload{}, &PayloadError{Reason: "parent id must not be blank; use null to remove the parent"}
			}
			change.ID = &id
		}
		p.Parent = change
	}
	return p, nil
}
