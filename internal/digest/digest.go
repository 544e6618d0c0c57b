// Package digest assembles article summaries into the daily markdown
// digest document.
package digest

import (
	"fmt"
	"strings"
	"time"
)

const emptyDigestBody = "No major news today."

// Format joins the per-article summary blocks into one markdown document
// under a dated heading. With no summaries the digest still renders, with
// a short notice instead of articles.
func Format(summaries []string, now time.Time) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Global News Digest – %s\n\n", now.Format("2 January 2006"))

	if len(summaries) == 0 {
		b.WriteString(emptyDigestBody + "\n")
		return b.String()
	}

	for i, s := range summaries {
		b.WriteString(strings.TrimSpace(s))
		b.WriteString("\n")
		if i < len(summaries)-1 {
			b.WriteString("\n---\n\n")
		}
	}

	return b.String()
}

// Filename returns the digest file name for a given day, e.g.
// "Global News Digest – 02 Jan 2006.md".
func Filename(now time.Time) string {
	return fmt.Sprintf("Global News Digest – %s.md", now.Format("02 Jan 2006"))
}
