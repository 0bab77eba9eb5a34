// Package slug derives URL slugs for content items.
package slug

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"
)

// MaxLen caps generated slugs below the column width, leaving room for a suffix.
const MaxLen = 200

var (
	invalidRun = regexp.MustCompile(`[^a-z0-9]+`)
	validSlug  = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)
)

// Generate lower-cases title, strips accents and folds every run of other
// characters into a single hyphen. A title with nothing usable yields
// "content-<unix millis>" using now.
func Generate(title string, now time.Time) string {
	s := strings.ToLower(stripMarks(title))
	s = invalidRun.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")

	if len(s) > MaxLen {
		s = strings.TrimRight(s[:MaxLen], "-")
	}
	if s == "" {
		return fmt.Sprintf("content-%d", now.UnixMilli())
	}
	return s
}

// WithSuffix appends a short random suffix used after a unique-index collision.
func WithSuffix(base string) string {
	return base + "-" + uuid.NewString()[:8]
}

// Valid reports whether s is already in canonical slug form.
func Valid(s string) bool {
	return len(s) <= MaxLen+9 && validSlug.MatchString(s)
}

// stripMarks decomposes s and drops combining marks so "café" becomes "cafe".
func stripMarks(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range norm.NFD.String(s) {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
