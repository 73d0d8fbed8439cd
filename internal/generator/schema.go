package generator

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// Option count bounds for a generated question.
const (
	MinOptions = 2
	MaxOptions = 5
)

const questionSchemaURL = "schema://generated-question.json"

var questionSchema = fmt.Sprintf(`{
  "type": "object",
  "required": ["prompt", "options", "correct_answer", "explanation"],
  "properties": {
    "prompt": {"type": "string", "minLength": 1},
    "options": {
      "type": "array",
      "minItems": %d,
      "maxItems": %d,
      "items": {"type": "string"}
    },
    "correct_answer": {"type": "string", "minLength": 1},
    "explanation": {"type": "string"}
  }
}`, MinOptions, MaxOptions)

var (
	compileOnce sync.Once
	compiled    *jsonschema.Schema
	compileErr  error
)

func compiledSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader([]byte(questionSchema)))
		if err != nil {
			compileErr = fmt.Errorf("parse question schema: %w", err)
			return
		}
		c := jsonschema.NewCompiler()
		if err := c.AddResource(questionSchemaURL, doc); err != nil {
			compileErr = fmt.Errorf("add question schema: %w", err)
			return
		}
		compiled, compileErr = c.Compile(questionSchemaURL)
	})
	return compiled, compileErr
}

// validateSchema rejects responses whose JSON shape is wrong before any
// field-level checks run.
func validateSchema(raw []byte) error {
	schema, err := compiledSchema()
	if err != nil {
		return err
	}
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("failed to parse JSON response: %w", err)
	}
	if err := schema.Validate(doc); err != nil {
		return &ValidationError{Errors: []string{fmt.Sprintf("schema: %v", err)}}
	}
	return nil
}
