package bundle

import (
	"bytes"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// validateSchema checks raw against <schemaDir>/<name>.schema.json when that
// schema exists. Documents without a schema skip this step.
func validateSchema(schemaDir string, raw rawDoc) error {
	schemaFile := raw.name + ".schema.json"
	path := filepath.Join(schemaDir, schemaFile)
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return &ValidationError{File: schemaFile, Message: "read schema failed: " + err.Error()}
	}

	url := "file:///bundle/schemas/" + schemaFile
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	if err := c.AddResource(url, bytes.NewReader(data)); err != nil {
		return &ValidationError{File: schemaFile, Message: "load schema failed: " + err.Error()}
	}
	sch, err := c.Compile(url)
	if err != nil {
		return &ValidationError{File: schemaFile, Message: "compile schema failed: " + err.Error()}
	}

	dec := json.NewDecoder(bytes.NewReader(raw.data))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return &ValidationError{File: raw.file, Message: "parse failed: " + err.Error()}
	}

	if err := sch.Validate(doc); err != nil {
		var verr *jsonschema.ValidationError
		if errors.As(err, &verr) {
			leaf := deepestCause(verr)
			return &ValidationError{
				File:    raw.file,
				Field:   pointerToField(leaf.InstanceLocation),
				Message: "schema: " + leaf.Message,
			}
		}
		return &ValidationError{File: raw.file, Message: "schema: " + err.Error()}
	}
	return nil
}

func deepestCause(e *jsonschema.ValidationError) *jsonschema.ValidationError {
	for len(e.Causes) > 0 {
		e = e.Causes[0]
	}
	return e
}

// pointerToField turns "/rules/3/pack_id" into "rules[3].pack_id".
func pointerToField(ptr string) string {
	ptr = strings.TrimPrefix(ptr, "/")
	if ptr == "" {
		return ""
	}
	var b strings.Builder
	for i, seg := range strings.Split(ptr, "/") {
		if isIndex(seg) {
			b.WriteString("[" + seg + "]")
			continue
		}
		if i > 0 {
			b.WriteString(".")
		}
		b.WriteString(seg)
	}
	return b.String()
}

func isIndex(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
