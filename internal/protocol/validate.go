package protocol

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/*.schema.json
var schemaFS embed.FS

const schemaBaseURL = "https://factorytycoon.dev/schemas/"

var schemaFiles = map[string]string{
	TypeHello:    "hello.schema.json",
	TypePurchase: "purchase.schema.json",
	TypeCollect:  "command.schema.json",
	TypeReset:    "command.schema.json",
	TypeAck:      "ack.schema.json",
	TypeWelcome:  "welcome.schema.json",
	TypeFrame:    "frame.schema.json",
}

// Validator checks raw messages against the schema for their type.
type Validator struct {
	byType map[string]*jsonschema.Schema
}

func NewValidator() (*Validator, error) {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020

	ents, err := schemaFS.ReadDir("schemas")
	if err != nil {
		return nil, err
	}
	for _, e := range ents {
		b, err := schemaFS.ReadFile("schemas/" + e.Name())
		if err != nil {
			return nil, err
		}
		if err := c.AddResource(schemaBaseURL+e.Name(), bytes.NewReader(b)); err != nil {
			return nil, fmt.Errorf("schema %s: %w", e.Name(), err)
		}
	}

	compiled := map[string]*jsonschema.Schema{}
	v := &Validator{byType: map[string]*jsonschema.Schema{}}
	for typ, file := range schemaFiles {
		s, ok := compiled[file]
		if !ok {
			s, err = c.Compile(schemaBaseURL + file)
			if err != nil {
				return nil, fmt.Errorf("compile %s: %w", file, err)
			}
			compiled[file] = s
		}
		v.byType[typ] = s
	}
	return v, nil
}

// Validate decodes raw and validates it against the schema of its "type".
func (v *Validator) Validate(raw []byte) error {
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return err
	}
	obj, ok := doc.(map[string]any)
	if !ok {
		return fmt.Errorf("message is not an object")
	}
	typ, _ := obj["type"].(string)
	s, ok := v.byType[typ]
	if !ok {
		return fmt.Errorf("no schema for message type %q", typ)
	}
	return s.Validate(doc)
}
