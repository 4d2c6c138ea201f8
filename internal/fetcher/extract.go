package fetcher

import (
	"regexp"
	"strings"
)

// BodyPreviewChars caps the body section embedded in the prompt.
const BodyPreviewChars = 10000

const (
	bodyMarker   = "\n<!-- BODY PREVIEW (first 10000 chars) -->\n"
	schemaMarker = "\n\n<!-- ALL SCHEMA MARKUP BLOCKS (extracted from full HTML, not truncated) -->\n"
)

var (
	headRE   = regexp.MustCompile(`(?is)<head.*?</head>`)
	bodyRE   = regexp.MustCompile(`(?is)<body.*?</body>`)
	schemaRE = regexp.MustCompile(`(?is)<script\s+type=["']application/ld\+json["'][^>]*>.*?</script>`)
)

// Extract reduces a full HTML document to the prompt context: the first head
// region, a body preview of at most BodyPreviewChars characters, and every
// JSON-LD block found anywhere in the document. Schema blocks are taken from
// the full input so markup past the preview cut-off is kept.
//
// Missing regions yield empty strings; Extract never fails.
func Extract(html string) string {
	head := headRE.FindString(html)
	body := truncateRunes(bodyRE.FindString(html), BodyPreviewChars)
	blocks := schemaRE.FindAllString(html, -1)

	var b strings.Builder
	b.WriteString(head)
	b.WriteString(bodyMarker)
	b.WriteString(body)
	if len(blocks) > 0 {
		b.WriteString(schemaMarker)
		b.WriteString(strings.Join(blocks, "\n"))
	}
	return b.String()
}

func truncateRunes(s string, max int) string {
	if len(s) <= max {
		return s
	}
	n := 0
	for i := range s {
		if n == max {
			return s[:i]
		}
		n++
	}
	return s
}
