package netscape

import (
	"html"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"

	"github.com/MrSnakeDoc/marks/internal/domain"
)

// descriptionWindow bounds how many runes after </A> a <DD> may start.
const descriptionWindow = 200

var textPolicy = bluemonday.StrictPolicy()

// Parse extracts bookmarks from a Netscape bookmark file.
//
// Only Title, URL, Description and Created are set on the results.
// The scan is best effort: anchors without an HREF followed by a numeric
// ADD_DATE in the same tag, or without a closing </A>, are skipped.
func Parse(content string) []domain.Bookmark {
	return parseAt(content, time.Now())
}

func parseAt(content string, now time.Time) []domain.Bookmark {
	lower := asciiLower(content)
	bookmarks := make([]domain.Bookmark, 0)

	pos := 0
	for {
		start := indexAnchor(lower, pos)
		if start < 0 {
			break
		}
		tagEnd := strings.IndexByte(lower[start:], '>')
		if tagEnd < 0 {
			break
		}
		tagEnd += start

		closeIdx := strings.Index(lower[tagEnd:], "</a>")
		if closeIdx < 0 {
			break
		}
		closeIdx += tagEnd
		if next := indexAnchor(lower[:closeIdx], tagEnd); next >= 0 {
			// Unclosed anchor: resume at the next one.
			pos = next
			continue
		}
		after := closeIdx + len("</a>")
		pos = after

		href, addDate, ok := anchorAttrs(content[start+2 : tagEnd])
		if !ok {
			// The anchor is consumed even when skipped so its text is not rescanned.
			continue
		}

		title := cleanText(content[tagEnd+1 : closeIdx])
		if title == "" {
			title = domain.UntitledTitle
		}

		created := now
		if secs, err := strconv.ParseInt(addDate, 10, 64); err == nil {
			created = time.Unix(secs, 0).UTC()
		}

		bookmarks = append(bookmarks, domain.Bookmark{
			Title:       title,
			URL:         domain.WithScheme(strings.TrimSpace(html.UnescapeString(href))),
			Description: findDescription(content, lower, after),
			Created:     created,
		})
	}

	return bookmarks
}

// indexAnchor returns the offset of the next "<a" followed by whitespace.
func indexAnchor(lower string, from int) int {
	for from < len(lower) {
		i := strings.Index(lower[from:], "<a")
		if i < 0 {
			return -1
		}
		i += from
		if next := i + 2; next < len(lower) && isSpace(lower[next]) {
			return i
		}
		from = i + 2
	}
	return -1
}

// anchorAttrs returns HREF and the first ADD_DATE appearing after it.
// ADD_DATE must be all digits.
func anchorAttrs(tag string) (href, addDate string, ok bool) {
	seenHref := false
	for _, a := range scanAttrs(tag) {
		switch {
		case !seenHref && a.name == "href":
			href = a.value
			seenHref = true
		case seenHref && a.name == "add_date":
			if !isDigits(a.value) {
				return "", "", false
			}
			return href, a.value, true
		}
	}
	return "", "", false
}

type attr struct {
	name  string
	value string
}

// scanAttrs tokenizes the attribute section of a tag: name, name=value,
// name="value" and name='value'. Names are lower-cased.
func scanAttrs(s string) []attr {
	var attrs []attr
	i := 0
	for i < len(s) {
		for i < len(s) && isSpace(s[i]) {
			i++
		}
		if i >= len(s) {
			break
		}

		nameStart := i
		for i < len(s) && !isSpace(s[i]) && s[i] != '=' {
			i++
		}
		a := attr{name: asciiLower(s[nameStart:i])}

		for i < len(s) && isSpace(s[i]) {
			i++
		}
		if i < len(s) && s[i] == '=' {
			i++
			for i < len(s) && isSpace(s[i]) {
				i++
			}
			if i < len(s) && (s[i] == '"' || s[i] == '\'') {
				quote := s[i]
				i++
				valStart := i
				for i < len(s) && s[i] != quote {
					i++
				}
				a.value = s[valStart:i]
				if i < len(s) {
					i++
				}
			} else {
				valStart := i
				for i < len(s) && !isSpace(s[i]) {
					i++
				}
				a.value = s[valStart:i]
			}
		}

		if a.name != "" {
			attrs = append(attrs, a)
		}
	}
	return attrs
}

// findDescription looks for <DD> in the window of descriptionWindow runes
// after an anchor. The window ends early at the next <DT> or anchor so a
// following entry's description is never borrowed.
func findDescription(content, lower string, from int) string {
	end := from
	for n := 0; n < descriptionWindow && end < len(lower); n++ {
		_, size := utf8.DecodeRuneInString(lower[end:])
		end += size
	}
	window := lower[from:end]
	if i := strings.Index(window, "<dt"); i >= 0 {
		window = window[:i]
	}
	if i := indexAnchor(window, 0); i >= 0 {
		window = window[:i]
	}

	dd := strings.Index(window, "<dd>")
	if dd < 0 {
		return ""
	}
	textStart := from + dd + len("<dd>")
	textEnd := strings.IndexByte(lower[textStart:], '<')
	if textEnd < 0 {
		textEnd = len(lower)
	} else {
		textEnd += textStart
	}
	return cleanText(content[textStart:textEnd])
}

// cleanText strips markup, decodes entities and trims.
func cleanText(s string) string {
	return strings.TrimSpace(html.UnescapeString(textPolicy.Sanitize(s)))
}

// asciiLower lower-cases ASCII letters only so byte offsets stay aligned with the input.
func asciiLower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if 'A' <= c && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f'
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
