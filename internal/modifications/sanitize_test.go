package modifications

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

func TestSanitizeDeduplicatesCaseInsensitively(t *testing.T) {
	s := NewSanitizer()
	content, err := s.Sanitize(map[string]any{
		"skills": []any{"Go", " go ", "Kubernetes", "", "kubernetes", "SQL"},
	})
	if err != nil {
		t.Fatalf("Sanitize: %v", err)
	}
	want := []string{"Go", "Kubernetes", "SQL"}
	if got := content.List("skills"); !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestSanitizeCaseSensitiveDedupe(t *testing.T) {
	s := Sanitizer{MaxBytes: DefaultMaxBytes}
	content, err := s.Sanitize(map[string]any{"keywords": []any{"Go", "go", "Go"}})
	if err != nil {
		t.Fatalf("Sanitize: %v", err)
	}
	if got := content.List("keywords"); !reflect.DeepEqual(got, []string{"Go", "go"}) {
		t.Fatalf("unexpected list %v", got)
	}
}

func TestSanitizeTrimsAndDropsEmpty(t *testing.T) {
	content, err := NewSanitizer().Sanitize(map[string]any{
		"summary":      "  Platform engineer with 8 years of Go.  ",
		"headline":     "   ",
		"achievements": []any{"   "},
		"unknown":      "dropped",
		"experience": []any{
			map[string]any{
				"title":   " Staff Engineer ",
				"company": "",
				"bullets": []any{"Led migration", "led migration", " "},
			},
			map[string]any{"title": " ", "bullets": []any{}},
			"  ",
		},
	})
	if err != nil {
		t.Fatalf("Sanitize: %v", err)
	}
	if content.Summary() != "Platform engineer with 8 years of Go." {
		t.Fatalf("summary not trimmed: %q", content.Summary())
	}
	for _, key := range []string{"headline", "achievements", "unknown"} {
		if _, ok := content[key]; ok {
			t.Fatalf("expected %s to be dropped", key)
		}
	}
	entries, _ := content["experience"].([]any)
	if len(entries) != 1 {
		t.Fatalf("expected 1 experience entry, got %d", len(entries))
	}
	entry := entries[0].(map[string]any)
	if entry["title"] != "Staff Engineer" {
		t.Fatalf("title not trimmed: %#v", entry["title"])
	}
	if _, ok := entry["company"]; ok {
		t.Fatalf("empty company should be dropped")
	}
	if got := entry["bullets"]; !reflect.DeepEqual(got, []string{"Led migration"}) {
		t.Fatalf("bullets not normalized: %#v", got)
	}
}

func TestSanitizeRequiresRecognizedKey(t *testing.T) {
	tests := []map[string]any{
		{},
		{"notes": "hello"},
		{"summary": "  ", "skills": []any{}},
	}
	for _, data := range tests {
		_, err := NewSanitizer().Sanitize(data)
		var ve *ValidationError
		if !errors.As(err, &ve) || ve.Bound != BoundRecognizedKeys {
			t.Fatalf("expected recognized_keys error for %v, got %v", data, err)
		}
	}
}

func TestSanitizeSizeCeiling(t *testing.T) {
	s := Sanitizer{MaxBytes: 1024, CaseInsensitiveDedupe: true}
	if _, err := s.Sanitize(map[string]any{"summary": strings.Repeat("x", 900)}); err != nil {
		t.Fatalf("content under limit rejected: %v", err)
	}
	_, err := s.Sanitize(map[string]any{"summary": strings.Repeat("x", 2048)})
	var ve *ValidationError
	if !errors.As(err, &ve) || ve.Bound != BoundMaxBytes {
		t.Fatalf("expected max_bytes error, got %v", err)
	}
	if ve.Limit != 1024 || ve.Size <= 1024 {
		t.Fatalf("unexpected error detail %+v", ve)
	}
}

func TestSanitizeAcceptsSingleStringList(t *testing.T) {
	content, err := NewSanitizer().Sanitize(map[string]any{"Skills": " Go "})
	if err != nil {
		t.Fatalf("Sanitize: %v", err)
	}
	if got := content.List("skills"); !reflect.DeepEqual(got, []string{"Go"}) {
		t.Fatalf("unexpected list %v", got)
	}
}

func TestSanitizeCaseCollidingKeys(t *testing.T) {
	cases := []struct {
		name    string
		data    map[string]any
		summary string
		skills  []string
	}{
		{
			name:    "lowercase spelling wins",
			data:    map[string]any{"Summary": "upper", "summary": "lower", "SUMMARY": "shout"},
			summary: "lower",
		},
		{
			name:    "sorted order without exact key",
			data:    map[string]any{"Summary": "title", "SUMMARY": "shout"},
			summary: "shout",
		},
		{
			name:    "empty exact key keeps variant",
			data:    map[string]any{"Skills": []any{"Go"}, "skills": []any{" "}},
			summary: "",
			skills:  []string{"Go"},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			for i := 0; i < 20; i++ {
				content, err := NewSanitizer().Sanitize(tc.data)
				if err != nil {
					t.Fatalf("Sanitize: %v", err)
				}
				if got := content.Summary(); got != tc.summary {
					t.Fatalf("run %d: expected summary %q, got %q", i, tc.summary, got)
				}
				if got := content.List("skills"); !reflect.DeepEqual(got, tc.skills) {
					t.Fatalf("run %d: expected skills %v, got %v", i, tc.skills, got)
				}
			}
		})
	}
}
