// Package sanitize turns user supplied text into plain text suitable for
// storing and echoing back in chat replies.
package sanitize

import (
	"bytes"
	"html"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
)

var (
	controlChars = regexp.MustCompile(`[\x00-\x08\x0B\x0C\x0E-\x1F\x7F]`)
	blockTags    = regexp.MustCompile(`<br\s*/?>|</?p>|</?div>|</?pre>|</?h[1-6]>|</?li>`)

	invisibleReplacer = strings.NewReplacer(
		"\u200B", " ", "\u200C", " ", "\u200D", "",
		"\u2060", "", "\uFEFF", "", "\u00AD", "",
		"\u202A", "", "\u202B", "", "\u202C", "", "\u202D", "", "\u202E", "",
	)
)

// Policy strips HTML and markdown. It is safe for concurrent use.
type Policy struct {
	policy   *bluemonday.Policy
	markdown goldmark.Markdown
}

// NewPolicy creates a policy that keeps no markup at all.
func NewPolicy() *Policy {
	return &Policy{
		policy:   bluemonday.StrictPolicy(),
		markdown: goldmark.New(),
	}
}

// Text strips markup and control characters from text.
func (p *Policy) Text(text string) string {
	text = invisibleReplacer.Replace(controlChars.ReplaceAllString(text, ""))
	if strings.TrimSpace(text) == "" {
		return ""
	}

	var buf bytes.Buffer
	if err := p.markdown.Convert([]byte(text), &buf); err != nil {
		return strings.TrimSpace(text)
	}

	plain := blockTags.ReplaceAllString(buf.String(), "\n")
	plain = p.policy.Sanitize(plain)
	return strings.TrimSpace(html.UnescapeString(plain))
}

// Line is Text collapsed onto a single line with single spaces.
func (p *Policy) Line(text string) string {
	return strings.Join(strings.Fields(p.Text(text)), " ")
}
