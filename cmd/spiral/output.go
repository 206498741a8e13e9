package main

import (
	"encoding/json"
	"fmt"
	"io"
	"iter"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/chazu/cathedral/pkg/spiral"
)

const (
	formatJSON  = "json"
	formatYAML  = "yaml"
	formatJSONL = "jsonl"
)

func checkFormat(format string, allowed ...string) error {
	if !slices.Contains(allowed, format) {
		return fmt.Errorf("unknown format %q (want one of %v)", format, allowed)
	}
	return nil
}

// writeValue encodes v as indented JSON or YAML.
func writeValue(w io.Writer, format string, v any) error {
	if err := checkFormat(format, formatJSON, formatYAML); err != nil {
		return err
	}
	if format == formatYAML {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// writeLines streams one compact JSON object per node.
func writeLines(w io.Writer, seq iter.Seq[spiral.Node]) error {
	enc := json.NewEncoder(w)
	for n := range seq {
		if err := enc.Encode(n); err != nil {
			return err
		}
	}
	return nil
}
