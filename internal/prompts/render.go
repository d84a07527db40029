package prompts

import (
	"regexp"
	"strings"

	"jobtracker-backend/internal/shared/telemetry"
)

// Placeholder names understood by the default templates.
const (
	VarResumeSummary    = "RESUME_SUMMARY"
	VarJobDescription   = "JOB_DESCRIPTION"
	VarJobTitle         = "JOB_TITLE"
	VarCompany          = "COMPANY"
	VarRoleType         = "ROLE_TYPE"
	VarTone             = "TONE"
	VarApplicantName    = "APPLICANT_NAME"
	VarApplicationNotes = "APPLICATION_NOTES"
)

var placeholderPattern = regexp.MustCompile(`\{\{\s*([A-Z0-9_]+)\s*\}\}`)

// Render substitutes {{NAME}} placeholders. Placeholders without a value
// render as empty strings.
func Render(t Template, vars map[string]string) string {
	var missing []string
	out := placeholderPattern.ReplaceAllStringFunc(t.PromptText, func(m string) string {
		name := placeholderPattern.FindStringSubmatch(m)[1]
		val, ok := vars[name]
		if !ok {
			missing = append(missing, name)
		}
		return val
	})
	if len(missing) > 0 {
		telemetry.Warn("prompt.placeholder_missing", map[string]any{
			"template_id":  t.ID,
			"placeholders": strings.Join(missing, ","),
		})
	}
	return strings.TrimSpace(out)
}

// Placeholders lists the placeholder names used by text, in order of first use.
func Placeholders(text string) []string {
	seen := map[string]struct{}{}
	var out []string
	for _, m := range placeholderPattern.FindAllStringSubmatch(text, -1) {
		if _, ok := seen[m[1]]; ok {
			continue
		}
		seen[m[1]] = struct{}{}
		out = append(out, m[1])
	}
	return out
}
