package modifications

import "strings"

// Content is a sanitized modification set.
type Content map[string]any

// Summary returns the summary text, or "".
func (c Content) Summary() string {
	s, _ := c["summary"].(string)
	return s
}

// List returns a list field. Content decoded from JSON holds []any.
func (c Content) List(key string) []string {
	switch v := c[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// Text renders the modification set as plain text for use in a prompt.
func (c Content) Text() string {
	var b strings.Builder
	line := func(s string) {
		if s = strings.TrimSpace(s); s != "" {
			b.WriteString(s)
			b.WriteString("\n")
		}
	}
	if h, _ := c["headline"].(string); h != "" {
		line(h)
	}
	line(c.Summary())
	if skills := c.List("skills"); len(skills) > 0 {
		line("Skills: " + strings.Join(skills, ", "))
	}
	if emphasized := c.List("emphasized_skills"); len(emphasized) > 0 {
		line("Key skills: " + strings.Join(emphasized, ", "))
	}
	if entries, ok := c["experience"].([]any); ok {
		for _, entry := range entries {
			switch e := entry.(type) {
			case string:
				line("- " + e)
			case map[string]any:
				title, _ := e["title"].(string)
				company, _ := e["company"].(string)
				switch {
				case title != "" && company != "":
					line(title + " at " + company)
				default:
					line(title + company)
				}
				for _, key := range []string{"bullets", "achievements"} {
					for _, bullet := range Content(e).List(key) {
						line("- " + bullet)
					}
				}
			}
		}
	}
	for _, a := range c.List("achievements") {
		line("- " + a)
	}
	return strings.TrimSpace(b.String())
}
