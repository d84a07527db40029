package extraction

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// ProseLimits bounds cleaned prose length in characters.
type ProseLimits struct {
	MinChars int
	MaxChars int
}

// DefaultProseLimits are the cover letter bounds.
var DefaultProseLimits = ProseLimits{MinChars: 100, MaxChars: 10000}

var (
	preamblePattern = regexp.MustCompile(`(?i)^(here(['’]s| is| are)|sure|certainly|absolutely|of course|okay|ok|below is|below you(['’]ll| will) find|i(['’]ve| have) (written|drafted|prepared|created|put together))\b`)
	letterIntro     = regexp.MustCompile(`(?i)\b(here(['’]s| is)|below|following|you(['’]ll| will) find|tailored|drafted|written|prepared)\b.*\bletter\b`)
	salutation      = regexp.MustCompile(`(?i)^(dear|hello|hi|greetings|to whom)\b`)
	sentenceEnd     = regexp.MustCompile(`[.!]+\s+`)
	signOffPattern  = regexp.MustCompile(`(?i)^(let me know|feel free|i hope this|please let me know|if you(['’]d| would) like|would you like)\b`)
	ruleLine        = regexp.MustCompile(`^\s*(-{3,}|\*{3,}|_{3,})\s*$`)
)

// ExtractProse cleans model prose and enforces limits.
func ExtractProse(raw string, limits ProseLimits) Result {
	text := CleanProse(raw)
	if text == "" {
		return Failed(&ContentError{Bound: BoundEmpty, Length: 0, Limit: limits.MinChars})
	}
	n := utf8.RuneCountInString(text)
	if limits.MinChars > 0 && n < limits.MinChars {
		return Failed(&ContentError{Bound: BoundMinLength, Length: n, Limit: limits.MinChars})
	}
	if limits.MaxChars > 0 && n > limits.MaxChars {
		return Failed(&ContentError{Bound: BoundMaxLength, Length: n, Limit: limits.MaxChars})
	}
	return PlainText(text)
}

// ParseProse is ExtractProse with an error return.
func ParseProse(raw string, limits ProseLimits) (string, error) {
	res := ExtractProse(raw, limits)
	if !res.OK() {
		return "", res.Err()
	}
	return res.Text, nil
}

// CleanProse strips code fences, assistant preamble and trailing commentary.
func CleanProse(raw string) string {
	lines := splitLines(strings.TrimSpace(raw))
	lines = dropPreamble(lines)
	lines = unwrapFence(lines)
	lines = dropPreamble(lines)
	lines = dropSignOff(lines)
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

func splitLines(s string) []string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}

func dropPreamble(lines []string) []string {
	lines = trimBlank(lines)
	for len(lines) > 0 {
		first := strings.TrimSpace(lines[0])
		blankAfter := len(lines) > 1 && strings.TrimSpace(lines[1]) == ""
		if !isPreamble(first, blankAfter) {
			break
		}
		lines = trimBlank(lines[1:])
	}
	return lines
}

// isPreamble reports whether the first line is assistant chatter rather
// than letter text. Each sentence of the line is checked on its own.
func isPreamble(line string, blankAfter bool) bool {
	if line == "" || salutation.MatchString(line) {
		return false
	}
	for _, sentence := range splitSentences(line) {
		if isPreambleSentence(sentence) {
			return true
		}
	}
	return blankAfter && utf8.RuneCountInString(line) < 160 && letterIntro.MatchString(line)
}

func isPreambleSentence(sentence string) bool {
	if !preamblePattern.MatchString(sentence) {
		return false
	}
	if strings.HasSuffix(sentence, ":") {
		return true
	}
	lower := strings.ToLower(sentence)
	if utf8.RuneCountInString(sentence) <= 120 && (strings.Contains(lower, "letter") || strings.Contains(lower, "draft")) {
		return true
	}
	// Bare acknowledgements such as "Sure!" or "Certainly."
	return len(strings.Fields(sentence)) <= 2
}

func splitSentences(line string) []string {
	var out []string
	rest := line
	for {
		loc := sentenceEnd.FindStringIndex(rest)
		if loc == nil {
			break
		}
		out = append(out, strings.TrimSpace(rest[:loc[1]]))
		rest = rest[loc[1]:]
	}
	if tail := strings.TrimSpace(rest); tail != "" {
		out = append(out, tail)
	}
	return out
}

func unwrapFence(lines []string) []string {
	lines = trimBlank(lines)
	if len(lines) < 2 {
		return lines
	}
	first := strings.TrimSpace(lines[0])
	if !strings.HasPrefix(first, "```") {
		return lines
	}
	end := -1
	for i := len(lines) - 1; i > 0; i-- {
		if strings.TrimSpace(lines[i]) == "```" {
			end = i
			break
		}
	}
	if end < 0 {
		return lines[1:]
	}
	// Anything after the closing fence is kept for the sign-off pass.
	out := append([]string{}, lines[1:end]...)
	return append(out, lines[end+1:]...)
}

func dropSignOff(lines []string) []string {
	lines = trimBlank(lines)
	for len(lines) > 0 {
		last := len(lines) - 1
		tail := strings.TrimSpace(lines[last])
		if tail == "```" || ruleLine.MatchString(tail) || signOffPattern.MatchString(tail) {
			lines = trimBlank(lines[:last])
			continue
		}
		paragraphStart := last
		for paragraphStart > 0 && strings.TrimSpace(lines[paragraphStart-1]) != "" {
			paragraphStart--
		}
		if paragraphStart > 0 && signOffPattern.MatchString(strings.TrimSpace(lines[paragraphStart])) {
			lines = trimBlank(lines[:paragraphStart])
			continue
		}
		return lines
	}
	return lines
}

func trimBlank(lines []string) []string {
	for len(lines) > 0 && strings.TrimSpace(lines[0]) == "" {
		lines = lines[1:]
	}
	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}
