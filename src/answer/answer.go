// Package answer extracts the structured answer token from a vision
// model's free-text MCQ reply. It is pure: no transport, no display.
package answer

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// NoMCQReply is the model's agreed-upon reply when the screenshot
// contains no multiple-choice question. It is a non-error outcome,
// distinct from a parse failure.
const NoMCQReply = "NO_MCQ"

// The keyword is case-sensitive, the token value is not.
var answerLine = regexp.MustCompile(`ANSWER:\s*([A-Da-d1-4])`)

// An option line is the token letter followed by a separator or
// whitespace, e.g. "B) 4", "b. blue sky", "B: 4". Requiring the
// separator keeps ordinary words starting with the letter from
// matching.
const optionSeparator = `(?:[\)\.\:\-]|\s)`

const previewMaxLen = 24

// Extract returns the first answer token found in raw, normalized to
// lowercase. ok is false when no well-formed ANSWER line is present;
// callers cannot distinguish "parse failure" from "no MCQ" here — use
// IsNoMCQ for the latter.
func Extract(raw string) (token string, ok bool) {
	m := answerLine.FindStringSubmatch(raw)
	if m == nil {
		return "", false
	}
	return strings.ToLower(m[1]), true
}

// IsNoMCQ reports whether the reply is the no-question sentinel.
func IsNoMCQ(raw string) bool {
	return strings.TrimSpace(raw) == NoMCQReply
}

// Preview locates the option line the token refers to and returns a
// compact human-readable label combining token and option text, e.g.
// token "b" with line "B) 4" yields "b) 4". Returns "" when no
// matching option line exists; the caller then displays the token
// alone.
func Preview(raw, token string) string {
	if token == "" {
		return ""
	}

	re, err := regexp.Compile(`(?i)^\s*` + regexp.QuoteMeta(token) + optionSeparator + `\s*(\S.*)$`)
	if err != nil {
		return ""
	}

	for _, line := range strings.Split(raw, "\n") {
		m := re.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		text := strings.TrimSpace(m[1])
		if text == "" {
			continue
		}
		if len(text) > previewMaxLen {
			// Back up to a rune boundary so the cut never splits a
			// multibyte character.
			cut := previewMaxLen
			for cut > 0 && !utf8.RuneStart(text[cut]) {
				cut--
			}
			text = text[:cut] + "…"
		}
		return token + ") " + text
	}

	return ""
}
