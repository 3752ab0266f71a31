package rspec

import (
	"encoding/json"
	"fmt"
	"strings"
)

type Format string

const (
	FormatXML  Format = "xml"
	FormatJSON Format = "json"
)

// ParseFormat accepts "xml" or "json" in any case; empty means XML.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(FormatXML):
		return FormatXML, nil
	case string(FormatJSON):
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unsupported output format %q (valid: xml, json)", s)
	}
}

func (f Format) ContentType() string {
	if f == FormatJSON {
		return "application/json"
	}
	return "application/xml"
}

// Encode serializes the request in the given format. XML is what the portal consumes;
// JSON is a readable dump of the same document.
func Encode(r *Request, f Format) ([]byte, error) {
	switch f {
	case FormatXML:
		return Marshal(r)
	case FormatJSON:
		if r == nil {
			return nil, fmt.Errorf("cannot marshal nil request")
		}
		out, err := json.MarshalIndent(r, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("could not serialize RSpec to JSON: %w", err)
		}
		return append(out, '\n'), nil
	default:
		return nil, fmt.Errorf("unsupported output format %q", f)
	}
}
