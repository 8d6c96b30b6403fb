package gates

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/kaidhar/prism-cli/api/schemas"
)

//go:embed schema/manifest.schema.json
var manifestSchemaJSON string

//go:embed schema/design-tokens.schema.json
var tokensSchemaJSON string

var (
	manifestSchema = mustCompileSchema("https://prism-cli.dev/schemas/manifest.schema.json", manifestSchemaJSON)
	tokensSchema   = mustCompileSchema("https://prism-cli.dev/schemas/design-tokens.schema.json", tokensSchemaJSON)
)

func mustCompileSchema(url, schema string) *jsonschema.Schema {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	if err := c.AddResource(url, strings.NewReader(schema)); err != nil {
		panic(fmt.Sprintf("embedded schema %s failed to load: %v", url, err))
	}
	return c.MustCompile(url)
}

// loadAndValidate reads path, validates the raw document against schema, and
// decodes it into out. Returns a short description of what failed.
func loadAndValidate(path string, schema *jsonschema.Schema, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("unreadable: %w", err)
	}

	var raw any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return fmt.Errorf("not valid JSON: %w", err)
	}
	if err := schema.Validate(raw); err != nil {
		return fmt.Errorf("schema violation: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("could not decode: %w", err)
	}
	return nil
}

func (e *Engine) loadManifest() (*schemas.Manifest, error) {
	var m schemas.Manifest
	if err := loadAndValidate(e.manifestPath(), manifestSchema, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func (e *Engine) loadTokens() (*schemas.DesignTokenSet, error) {
	var t schemas.DesignTokenSet
	if err := loadAndValidate(e.tokensPath(), tokensSchema, &t); err != nil {
		return nil, err
	}
	return &t, nil
}
