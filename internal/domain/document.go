package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/tidwall/jsonc"
)

// Document is anything persisted as a schema document: rigs and sessions.
type Document interface {
	SchemaName() string
}

// MarshalDocument renders a document as indented JSON.
func MarshalDocument(doc any) ([]byte, error) {
	b, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal document: %w", err)
	}
	return b, nil
}

// UnmarshalDocument parses a document. Comments and trailing commas are
// tolerated since config libraries are edited by hand.
func UnmarshalDocument(data []byte, doc any) error {
	if err := json.Unmarshal(jsonc.ToJSON(data), doc); err != nil {
		return fmt.Errorf("parse document: %w", err)
	}
	return nil
}

// SchemaFileName is "<SchemaName>.json".
func SchemaFileName(doc Document) string {
	return doc.SchemaName() + ".json"
}

// SessionFileName is "<session>_session.json".
func SessionFileName(sessionName string) string {
	return sessionName + "_session.json"
}

// RigFileName is "<session>_rig.json".
func RigFileName(sessionName string) string {
	return sessionName + "_rig.json"
}

// unmodeledFields returns the parts of data that known does not serialize:
// keys the Go types do not declare, at any depth. The acquisition app reads
// the whole document, so those keys have to be written back out unchanged.
func unmodeledFields(data []byte, known any) (map[string]any, error) {
	kb, err := json.Marshal(known)
	if err != nil {
		return nil, err
	}
	var raw, top any
	if err := decodeNumbers(data, &raw); err != nil {
		return nil, err
	}
	if err := decodeNumbers(kb, &top); err != nil {
		return nil, err
	}
	rest, ok := residual(raw, top)
	if !ok {
		return nil, nil
	}
	m, _ := rest.(map[string]any)
	return m, nil
}

// marshalWithUnmodeled serializes known and folds extra back in. Declared
// fields always win over extra.
func marshalWithUnmodeled(known any, extra map[string]any) ([]byte, error) {
	kb, err := json.Marshal(known)
	if err != nil || len(extra) == 0 {
		return kb, err
	}
	var top any
	if err := decodeNumbers(kb, &top); err != nil {
		return nil, err
	}
	return json.Marshal(overlay(extra, top))
}

func decodeNumbers(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec.Decode(v)
}

func residual(raw, top any) (any, bool) {
	switch r := raw.(type) {
	case map[string]any:
		t, ok := top.(map[string]any)
		if !ok {
			return nil, false
		}
		out := make(map[string]any)
		for k, v := range r {
			tv, declared := t[k]
			if !declared {
				if !sameNumericKey(k, t) {
					out[k] = v
				}
				continue
			}
			if rest, ok := residual(v, tv); ok {
				out[k] = rest
			}
		}
		return out, len(out) > 0
	case []any:
		t, ok := top.([]any)
		if !ok || len(t) != len(r) {
			return nil, false
		}
		out := make([]any, len(r))
		found := false
		for i := range r {
			if rest, ok := residual(r[i], t[i]); ok {
				out[i] = rest
				found = true
			}
		}
		return out, found
	default:
		return nil, false
	}
}

// sameNumericKey reports whether k is a number that top already spells
// differently, as lookup-table keys are reformatted on output ("0.10" vs "0.1").
func sameNumericKey(k string, top map[string]any) bool {
	f, err := strconv.ParseFloat(k, 64)
	if err != nil {
		return false
	}
	for tk := range top {
		if g, err := strconv.ParseFloat(tk, 64); err == nil && g == f {
			return true
		}
	}
	return false
}

func overlay(base, top any) any {
	switch t := top.(type) {
	case map[string]any:
		b, ok := base.(map[string]any)
		if !ok {
			return t
		}
		out := make(map[string]any, len(b)+len(t))
		for k, v := range b {
			out[k] = v
		}
		for k, v := range t {
			out[k] = overlay(b[k], v)
		}
		return out
	case []any:
		b, ok := base.([]any)
		if !ok || len(b) != len(t) {
			return t
		}
		out := make([]any, len(t))
		for i := range t {
			out[i] = overlay(b[i], t[i])
		}
		return out
	default:
		return top
	}
}
