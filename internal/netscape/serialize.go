package netscape

import (
	"fmt"
	"strings"
	"time"

	"github.com/MrSnakeDoc/marks/internal/domain"
)

const netscapeHeader = `<!DOCTYPE NETSCAPE-Bookmark-file-1>
<!-- This is an automatically generated file.
     It will be read and overwritten.
     DO NOT EDIT! -->
<META HTTP-EQUIV="Content-Type" CONTENT="text/html; charset=UTF-8">
<TITLE>Bookmarks</TITLE>
<H1>Bookmarks</H1>
<DL><p>
`

const netscapeFooter = "</DL><p>\n"

// SerializeNetscape renders bookmarks in the Netscape bookmark dialect that
// browsers accept for import.
func SerializeNetscape(bookmarks []domain.Bookmark) string {
	var b strings.Builder
	b.WriteString(netscapeHeader)

	for _, bm := range bookmarks {
		title := bm.Title
		if strings.TrimSpace(title) == "" {
			title = domain.UntitledTitle
		}
		fmt.Fprintf(&b, "    <DT><A HREF=\"%s\" ADD_DATE=\"%d\">%s</A>\n",
			Escape(bm.URL), addDate(bm.Created), Escape(title))
		if desc := strings.TrimSpace(bm.Description); desc != "" {
			fmt.Fprintf(&b, "    <DD>%s\n", Escape(desc))
		}
	}

	b.WriteString(netscapeFooter)
	return b.String()
}

// addDate returns Unix seconds clamped at 0: ADD_DATE is read back as an
// unsigned number, so a zero or pre-1970 time would drop the entry.
func addDate(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return max(t.Unix(), 0)
}
