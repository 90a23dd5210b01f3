// Package preview renders draft post text for display while it is being
// edited.
package preview

import (
	"bytes"
	"fmt"
	"unicode/utf8"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"

	"github.com/tbourn/go-postgen/internal/search"
)

// md renders GitHub-flavoured Markdown. Single newlines become <br> since
// social posts rely on line breaks. Raw HTML in the input is not passed
// through.
var md = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithRendererOptions(html.WithHardWraps()),
)

// Preview is one rendered draft.
type Preview struct {
	HTML      string
	Chars     int // visible characters, markup excluded
	MaxLength int // 0 = unbounded
}

// OverLimit reports whether the visible text exceeds MaxLength.
func (p Preview) OverLimit() bool {
	return p.MaxLength > 0 && p.Chars > p.MaxLength
}

// Remaining is the characters left before MaxLength; negative when over.
// It is 0 for unbounded previews.
func (p Preview) Remaining() int {
	if p.MaxLength <= 0 {
		return 0
	}
	return p.MaxLength - p.Chars
}

// Render converts Markdown text to HTML.
func Render(text string) (string, error) {
	var buf bytes.Buffer
	if err := md.Convert([]byte(text), &buf); err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return buf.String(), nil
}

// Build renders text and measures it against maxLength.
func Build(text string, maxLength int) (Preview, error) {
	h, err := Render(text)
	if err != nil {
		return Preview{}, err
	}
	return Preview{
		HTML:      h,
		Chars:     utf8.RuneCountInString(search.PlainText(text)),
		MaxLength: maxLength,
	}, nil
}
