package netscape

import "strings"

var escaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#x27;",
)

// Escape replaces the five HTML metacharacters with entities.
// Every user-supplied string goes through it before being embedded in markup.
func Escape(s string) string {
	return escaper.Replace(s)
}
