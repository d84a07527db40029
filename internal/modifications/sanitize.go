// Package modifications validates and normalizes structured resume
// modifications produced by the model.
package modifications

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// DefaultMaxBytes is the serialized size ceiling for one modification set.
const DefaultMaxBytes = 50 * 1024

type fieldKind int

const (
	kindText fieldKind = iota
	kindList
	kindEntries
)

// Fields recognized in a tailoring response and how each is normalized.
var recognized = map[string]fieldKind{
	"summary":            kindText,
	"headline":           kindText,
	"skills":             kindList,
	"emphasized_skills":  kindList,
	"achievements":       kindList,
	"keywords":           kindList,
	"reordered_sections": kindList,
	"experience":         kindEntries,
}

// Sanitizer normalizes model output before it is persisted.
type Sanitizer struct {
	MaxBytes              int
	CaseInsensitiveDedupe bool
}

// NewSanitizer returns a sanitizer with default limits.
func NewSanitizer() Sanitizer {
	return Sanitizer{MaxBytes: DefaultMaxBytes, CaseInsensitiveDedupe: true}
}

// RecognizedKeys lists the accepted top-level fields.
func RecognizedKeys() []string {
	keys := make([]string, 0, len(recognized))
	for k := range recognized {
		keys = append(keys, k)
	}
	return keys
}

// Sanitize trims strings, drops empties, de-duplicates lists and enforces the
// size ceiling. Unrecognized keys are dropped.
func (s Sanitizer) Sanitize(data map[string]any) (Content, error) {
	keys := make([]string, 0, len(data))
	for key := range data {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	// Keys differing only in case collapse to one field: the exact lowercase
	// spelling wins, otherwise the first in sorted order.
	out := Content{}
	for _, name := range keys {
		raw := data[name]
		key := strings.ToLower(strings.TrimSpace(name))
		kind, ok := recognized[key]
		if !ok {
			continue
		}
		if _, taken := out[key]; taken && name != key {
			continue
		}
		var val any
		switch kind {
		case kindText:
			if str := cleanText(raw); str != "" {
				val = str
			}
		case kindList:
			if list := s.cleanList(raw); len(list) > 0 {
				val = list
			}
		case kindEntries:
			if entries := s.cleanEntries(raw); len(entries) > 0 {
				val = entries
			}
		}
		if val != nil {
			out[key] = val
		}
	}
	if len(out) == 0 {
		return nil, &ValidationError{Bound: BoundRecognizedKeys}
	}

	limit := s.MaxBytes
	if limit <= 0 {
		limit = DefaultMaxBytes
	}
	encoded, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("encode modifications: %w", err)
	}
	if len(encoded) > limit {
		return nil, &ValidationError{Bound: BoundMaxBytes, Size: len(encoded), Limit: limit}
	}
	return out, nil
}

func cleanText(raw any) string {
	switch v := raw.(type) {
	case string:
		return strings.TrimSpace(v)
	case nil:
		return ""
	case map[string]any, []any:
		return ""
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

// cleanList accepts a string or a list of scalars and returns ordered,
// trimmed, de-duplicated values keeping first-seen casing.
func (s Sanitizer) cleanList(raw any) []string {
	var items []any
	switch v := raw.(type) {
	case []any:
		items = v
	case []string:
		for _, str := range v {
			items = append(items, str)
		}
	case string:
		items = []any{v}
	default:
		return nil
	}

	seen := make(map[string]struct{}, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		str := cleanText(item)
		if str == "" {
			continue
		}
		key := str
		if s.CaseInsensitiveDedupe {
			key = strings.ToLower(str)
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, str)
	}
	return out
}

// cleanEntries normalizes experience entries. Object entries keep their
// fields with text trimmed and lists de-duplicated; bare strings are kept as
// text entries.
func (s Sanitizer) cleanEntries(raw any) []any {
	items, ok := raw.([]any)
	if !ok {
		return nil
	}
	out := make([]any, 0, len(items))
	for _, item := range items {
		switch v := item.(type) {
		case map[string]any:
			if entry := s.cleanObject(v); len(entry) > 0 {
				out = append(out, entry)
			}
		default:
			if str := cleanText(v); str != "" {
				out = append(out, str)
			}
		}
	}
	return out
}

func (s Sanitizer) cleanObject(obj map[string]any) map[string]any {
	out := make(map[string]any, len(obj))
	for key, raw := range obj {
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		switch v := raw.(type) {
		case []any, []string:
			if list := s.cleanList(v); len(list) > 0 {
				out[key] = list
			}
		case map[string]any:
			if nested := s.cleanObject(v); len(nested) > 0 {
				out[key] = nested
			}
		case bool:
			out[key] = v
		default:
			if str := cleanText(v); str != "" {
				out[key] = str
			}
		}
	}
	return out
}
