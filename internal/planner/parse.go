package planner

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fyrsmithlabs/planner/internal/plan"
	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"
)

var (
	// ErrInvalidStructure means the document lacks a title or a tasks array.
	ErrInvalidStructure = errors.New("invalid plan structure received from model")

	// ErrNoValidTasks means every task in the document was rejected.
	ErrNoValidTasks = errors.New("no valid tasks found in model response")

	errTrailingData = errors.New("unexpected data after JSON document")
)

const planSchemaJSON = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["title", "tasks"],
  "properties": {
    "title": {"type": "string", "minLength": 1},
    "tasks": {"type": "array"}
  }
}`

const taskSchemaJSON = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["id", "title", "dueDate", "priority", "emoji"],
  "properties": {
    "id": {
      "anyOf": [
        {"type": "string", "minLength": 1},
        {"type": "number", "not": {"const": 0}}
      ]
    },
    "title": {"type": "string", "minLength": 1},
    "dueDate": {"type": "string", "minLength": 1},
    "priority": {"enum": ["High", "Medium", "Low"]},
    "emoji": {"type": "string", "minLength": 1}
  }
}`

var (
	planSchema = jsonschema.MustCompileString("plan.schema.json", planSchemaJSON)
	taskSchema = jsonschema.MustCompileString("task.schema.json", taskSchemaJSON)
)

// Parsed is a normalized model response.
type Parsed struct {
	Plan    plan.StructuredPlan
	Dropped int // tasks rejected by the task schema
}

// ParseResponse decodes and validates a model response for req.
//
// Markdown code fences are stripped first. Tasks failing the task schema are
// dropped; at least one must survive. A missing description is replaced with
// the default for req.Goal and a missing or unknown timeHorizon with
// req.TimeHorizon. Either field may have any type; a non-string counts as
// missing.
func ParseResponse(content string, req plan.GenerateRequest) (*Parsed, error) {
	raw := stripCodeFence(content)
	if raw == "" {
		return nil, fmt.Errorf("%w: empty content", ErrInvalidStructure)
	}

	var doc map[string]any
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decoding model response: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decoding model response: %w", errTrailingData)
	}

	if err := planSchema.Validate(doc); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidStructure, schemaErrorSummary(err))
	}

	rawTasks, _ := doc["tasks"].([]any)
	tasks := make([]plan.Task, 0, len(rawTasks))
	dropped := 0
	for _, rt := range rawTasks {
		if err := taskSchema.Validate(rt); err != nil {
			dropped++
			continue
		}
		tasks = append(tasks, taskFromDoc(rt.(map[string]any)))
	}
	if len(tasks) == 0 {
		return nil, ErrNoValidTasks
	}

	description, _ := doc["description"].(string)
	if description == "" {
		description = fmt.Sprintf(plan.DefaultDescriptionFormat, req.Goal)
	}

	horizon := req.TimeHorizon
	if h, ok := doc["timeHorizon"].(string); ok && plan.TimeHorizon(h).Valid() {
		horizon = plan.TimeHorizon(h)
	}

	title, _ := doc["title"].(string)
	return &Parsed{
		Plan: plan.StructuredPlan{
			Title:       title,
			Description: description,
			Tasks:       tasks,
			TimeHorizon: horizon,
		},
		Dropped: dropped,
	}, nil
}

func taskFromDoc(m map[string]any) plan.Task {
	t := plan.Task{
		Title:    m["title"].(string),
		DueDate:  m["dueDate"].(string),
		Priority: plan.Priority(m["priority"].(string)),
		Emoji:    m["emoji"].(string),
	}
	switch id := m["id"].(type) {
	case string:
		t.ID = id
	case json.Number:
		t.ID = id.String()
	case float64:
		t.ID = strconv.FormatFloat(id, 'f', -1, 64)
	}
	if notes, ok := m["notes"].(string); ok {
		t.Notes = notes
	}
	if done, ok := m["completed"].(bool); ok {
		t.Completed = done
	}
	return t
}

// stripCodeFence removes a surrounding ```json ... ``` block if present.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	} else {
		s = strings.TrimPrefix(s, "json")
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func schemaErrorSummary(err error) string {
	ve, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return err.Error()
	}
	var msgs []string
	collectSchemaErrors(ve, &msgs)
	return strings.Join(msgs, "; ")
}

func collectSchemaErrors(ve *jsonschema.ValidationError, msgs *[]string) {
	if len(ve.Causes) == 0 {
		loc := ve.InstanceLocation
		if loc == "" {
			loc = "/"
		}
		*msgs = append(*msgs, loc+": "+ve.Message)
		return
	}
	for _, cause := range ve.Causes {
		collectSchemaErrors(cause, msgs)
	}
}
