package speech

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// PrepareText normalizes OCR output for synthesis: compatibility forms are
// folded (full-width letters, ligatures), control characters dropped and
// whitespace collapsed.
func PrepareText(s string) string {
	s = norm.NFKC.String(s)
	s = strings.Map(func(r rune) rune {
		switch {
		case unicode.IsSpace(r):
			return ' '
		case unicode.IsControl(r), r == unicode.ReplacementChar:
			return -1
		}
		return r
	}, s)
	return strings.Join(strings.Fields(s), " ")
}

// SplitText breaks s into chunks of at most limit runes, preferring
// sentence ends, then word boundaries.
func SplitText(s string, limit int) []string {
	var chunks []string
	for _, sentence := range splitSentences(s) {
		if n := len(chunks); n > 0 && runeLen(chunks[n-1])+1+runeLen(sentence) <= limit {
			chunks[n-1] += " " + sentence
			continue
		}
		if runeLen(sentence) <= limit {
			chunks = append(chunks, sentence)
			continue
		}
		chunks = append(chunks, splitWords(sentence, limit)...)
	}
	return chunks
}

func splitSentences(s string) []string {
	var out []string
	start := 0
	runes := []rune(s)
	for i, r := range runes {
		if !strings.ContainsRune(".!?…。！？", r) {
			continue
		}
		if i+1 < len(runes) && !unicode.IsSpace(runes[i+1]) {
			continue
		}
		if part := strings.TrimSpace(string(runes[start : i+1])); part != "" {
			out = append(out, part)
		}
		start = i + 1
	}
	if part := strings.TrimSpace(string(runes[start:])); part != "" {
		out = append(out, part)
	}
	return out
}

func splitWords(s string, limit int) []string {
	var out []string
	var cur []rune
	for _, w := range strings.Fields(s) {
		word := []rune(w)
		for len(word) > limit {
			if len(cur) > 0 {
				out = append(out, string(cur))
				cur = nil
			}
			out = append(out, string(word[:limit]))
			word = word[limit:]
		}
		switch {
		case len(cur) == 0:
			cur = word
		case len(cur)+1+len(word) <= limit:
			cur = append(append(cur, ' '), word...)
		default:
			out = append(out, string(cur))
			cur = word
		}
	}
	if len(cur) > 0 {
		out = append(out, string(cur))
	}
	return out
}

func runeLen(s string) int { return len([]rune(s)) }
