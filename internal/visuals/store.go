package visuals

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// ErrInvalidIndex is returned when a visuals document does not match the schema.
var ErrInvalidIndex = errors.New("visuals: invalid index")

//go:embed schema.json
var schemaJSON []byte

var compileSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("visuals.schema.json", bytes.NewReader(schemaJSON)); err != nil {
		return nil, fmt.Errorf("load visuals schema: %w", err)
	}
	return compiler.Compile("visuals.schema.json")
})

// Decode reads and validates a visuals document.
func Decode(r io.Reader) ([]Entry, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read visuals: %w", err)
	}
	schema, err := compileSchema()
	if err != nil {
		return nil, err
	}
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidIndex, err)
	}
	if err := schema.Validate(doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidIndex, err)
	}
	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidIndex, err)
	}
	return entries, nil
}

// Load reads and validates visuals.json at path.
func Load(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open visuals: %w", err)
	}
	defer f.Close()
	return Decode(f)
}

// Encode writes entries as indented JSON.
func Encode(w io.Writer, entries []Entry) error {
	if entries == nil {
		entries = []Entry{}
	}
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(entries)
}

// Save writes entries to path.
func Save(path string, entries []Entry) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create visuals: %w", err)
	}
	if err := Encode(f, entries); err != nil {
		f.Close()
		return fmt.Errorf("write visuals: %w", err)
	}
	return f.Close()
}
