package utils

import (
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// MaxSlugAttempts bounds the suffix probe used when a slug is taken.
const MaxSlugAttempts = 100

// maxSlugBase leaves room for a "-NN" suffix inside a VARCHAR(255) column.
const maxSlugBase = 240

var stripMarks = transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Slugify turns s into a lower-case ASCII token of letters, digits and
// single hyphens.  Accents are folded ("Café" -> "cafe"); other non-ASCII
// characters are dropped.  An input with nothing usable yields "item".
func Slugify(s string) string {
	folded, _, err := transform.String(stripMarks, s)
	if err != nil {
		folded = s
	}

	var b strings.Builder
	pendingDash := false
	for _, r := range strings.ToLower(folded) {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingDash = false
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '_' || unicode.IsSpace(r):
			pendingDash = true
		}
	}

	out := b.String()
	if len(out) > maxSlugBase {
		out = strings.TrimRight(out[:maxSlugBase], "-")
	}
	if out == "" {
		return "item"
	}
	return out
}

// SlugCandidate returns the slug tried on probe attempt n: the base itself
// for n == 0, then base-1, base-2 and so on.
func SlugCandidate(base string, n int) string {
	if n == 0 {
		return base
	}
	return base + "-" + strconv.Itoa(n)
}
