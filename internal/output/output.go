package output

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/src-d/enry/v2"

	"github.com/dshills/prchanges/internal/changes"
	"github.com/dshills/prchanges/internal/selection"
)

// ErrUnsupportedFormat is returned for unknown format names.
var ErrUnsupportedFormat = errors.New("unsupported output format")

// View is what gets rendered: a bundle, the part of it that is selected and a
// title naming the request.
type View struct {
	Title     string
	Bundle    *changes.Bundle
	Selection *selection.State
}

// NewView selects the whole request of b.
func NewView(title string, b *changes.Bundle) *View {
	return &View{Title: title, Bundle: b, Selection: selection.New(b)}
}

// Options control the human-readable formats.
type Options struct {
	// ShowPatch prints patch bodies after the file table.
	ShowPatch bool
	// WordDiff highlights changed words within paired -/+ lines.
	WordDiff bool
	// Color enables ANSI colours in text output.
	Color bool
}

// Writer writes a view in a specific format.
type Writer interface {
	Write(w io.Writer, v *View) error
}

// GetWriter returns a writer for the specified format.
func GetWriter(format string, opts Options) (Writer, error) {
	switch format {
	case "text":
		return &TextWriter{Options: opts}, nil
	case "json":
		return &JSONWriter{}, nil
	case "yaml":
		return &YAMLWriter{}, nil
	case "markdown":
		return &MarkdownWriter{Options: opts}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
}

// WriteBundle writes the view to the specified output (file path or stdout).
func WriteBundle(v *View, format, outPath string, opts Options) error {
	writer, err := GetWriter(format, opts)
	if err != nil {
		return err
	}

	var w io.Writer
	if outPath != "" {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("creating output file: %w", err)
		}
		defer f.Close()
		w = f
	} else {
		w = os.Stdout
	}

	return writer.Write(w, v)
}

// language names the programming language of path, or "" when unknown.
func language(path string) string {
	return enry.GetLanguage(filepath.Base(path), nil)
}
