package output

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/dshills/prchanges/internal/changes"
)

// document is the machine-readable shape of a view: the selected commit, or
// the whole bundle when every commit is selected.
type document struct {
	Title     string                  `json:"title,omitempty" yaml:"title,omitempty"`
	Selection string                  `json:"selection" yaml:"selection"`
	Index     int                     `json:"index" yaml:"index"`
	Commit    *changes.CommitPatchSet `json:"commit,omitempty" yaml:"commit,omitempty"`
	Bundle    *changes.Bundle         `json:"bundle,omitempty" yaml:"bundle,omitempty"`
}

func newDocument(v *View) document {
	doc := document{
		Title:     v.Title,
		Selection: v.Selection.Label(),
		Index:     v.Selection.Index(),
	}
	if set, ok := v.Selection.Commit(); ok {
		doc.Commit = &set
	} else {
		doc.Bundle = v.Bundle
	}
	return doc
}

// JSONWriter outputs the view as JSON.
type JSONWriter struct{}

func (j *JSONWriter) Write(w io.Writer, v *View) error {
	data, err := json.MarshalIndent(newDocument(v), "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	_, err = w.Write(data)
	if err != nil {
		return fmt.Errorf("writing JSON: %w", err)
	}
	_, err = fmt.Fprintln(w)
	return err
}

// YAMLWriter outputs the view as YAML.
type YAMLWriter struct{}

func (y *YAMLWriter) Write(w io.Writer, v *View) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(newDocument(v)); err != nil {
		return fmt.Errorf("writing YAML: %w", err)
	}
	return enc.Close()
}
