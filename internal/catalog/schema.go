package catalog

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/arong/lmsengine/internal/apperr"
)

//go:embed schema.json
var schemaJSON []byte

const schemaURL = "schema://lmsengine/catalog.json"

var (
	compileOnce    sync.Once
	compiledSchema *jsonschema.Schema
	compileErr     error
)

func catalogSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(schemaJSON))
		if err != nil {
			compileErr = fmt.Errorf("parse catalog schema: %w", err)
			return
		}
		c := jsonschema.NewCompiler()
		if err := c.AddResource(schemaURL, doc); err != nil {
			compileErr = fmt.Errorf("add catalog schema: %w", err)
			return
		}
		compiledSchema, compileErr = c.Compile(schemaURL)
	})
	return compiledSchema, compileErr
}

// validateSchema checks the decoded YAML tree against the embedded schema.
// The tree is round-tripped through JSON so the validator sees JSON types.
func validateSchema(tree any) error {
	schema, err := catalogSchema()
	if err != nil {
		return err
	}

	raw, err := json.Marshal(tree)
	if err != nil {
		return fmt.Errorf("encode catalog for validation: %w", err)
	}
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("decode catalog for validation: %w", err)
	}

	if err := schema.Validate(inst); err != nil {
		var problems []string
		for _, line := range strings.Split(err.Error(), "\n") {
			if line = strings.TrimSpace(line); line != "" {
				problems = append(problems, line)
			}
		}
		return apperr.NewValidation("catalog schema", problems)
	}
	return nil
}
