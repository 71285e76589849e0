// Package ux renders command output as text, JSON or YAML.
package ux

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Formatter writes one command result.
type Formatter interface {
	Format(data interface{}) error
}

// TextRenderer is implemented by views that have a human-readable form.
type TextRenderer interface {
	RenderText(w io.Writer, styles Styles) error
}

// FormatterOptions contains configuration for formatters
type FormatterOptions struct {
	// Writer is where output is written (defaults to os.Stdout)
	Writer io.Writer
	// NoColor disables colored output for text formatters
	NoColor bool
	// Compact drops indentation from JSON and YAML.
	Compact bool
}

// Supported output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// Formats lists the values accepted by --format.
var Formats = []string{FormatText, FormatJSON, FormatYAML}

// NewFormatter returns the formatter for format; "" means text.
func NewFormatter(format string, opts *FormatterOptions) (Formatter, error) {
	o := FormatterOptions{Writer: os.Stdout}
	if opts != nil {
		o = *opts
		if o.Writer == nil {
			o.Writer = os.Stdout
		}
	}

	switch format {
	case FormatJSON:
		return encoderFormatter(func(v interface{}) error {
			enc := json.NewEncoder(o.Writer)
			enc.SetEscapeHTML(false)
			if !o.Compact {
				enc.SetIndent("", "  ")
			}
			return enc.Encode(v)
		}), nil
	case FormatYAML:
		return encoderFormatter(func(v interface{}) error {
			enc := yaml.NewEncoder(o.Writer)
			if !o.Compact {
				enc.SetIndent(2)
			}
			if err := enc.Encode(v); err != nil {
				return err
			}
			return enc.Close()
		}), nil
	case FormatText, "":
		styles := DefaultStyles()
		if o.NoColor {
			styles = PlainStyles()
		}
		return &TextFormatter{w: o.Writer, styles: styles}, nil
	default:
		return nil, fmt.Errorf("unknown format: %s (supported: text, json, yaml)", format)
	}
}

// encoderFormatter serializes the value as is; views carry json and yaml tags.
type encoderFormatter func(v interface{}) error

func (f encoderFormatter) Format(data interface{}) error { return f(data) }

// TextFormatter renders views for a terminal.
type TextFormatter struct {
	w      io.Writer
	styles Styles
}

// Format writes data as formatted text. data must be a TextRenderer, a
// fmt.Stringer or a string.
func (f *TextFormatter) Format(data interface{}) error {
	switch v := data.(type) {
	case TextRenderer:
		return v.RenderText(f.w, f.styles)
	case string:
		_, err := fmt.Fprintln(f.w, v)
		return err
	case fmt.Stringer:
		_, err := fmt.Fprintln(f.w, v.String())
		return err
	default:
		return fmt.Errorf("text formatter cannot render %T; use --format json or yaml", data)
	}
}
