package prompts

import (
	"reflect"
	"testing"
)

func TestRender(t *testing.T) {
	tpl := Template{PromptText: "Role: {{ JOB_TITLE }} at {{COMPANY}}.\n{{RESUME_SUMMARY}}\nNotes: {{APPLICATION_NOTES}}"}
	got := Render(tpl, map[string]string{
		VarJobTitle:      "Backend Engineer",
		VarCompany:       "Acme",
		VarResumeSummary: "Go developer",
	})
	want := "Role: Backend Engineer at Acme.\nGo developer\nNotes:"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestPlaceholders(t *testing.T) {
	got := Placeholders("{{TONE}} {{COMPANY}} {{TONE}} {{lower}}")
	want := []string{"TONE", "COMPANY"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}
