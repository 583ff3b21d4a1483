// Package view prepares question and lesson text for front ends: it splits
// math spans out of text, converts newlines for HTML consumers and flattens
// lesson HTML for the terminal.
package view

import (
	"strings"

	"golang.org/x/net/html"
)

// Delimiter is a pair of math markers.
type Delimiter struct {
	Left    string `json:"left"`
	Right   string `json:"right"`
	Display bool   `json:"display"`
}

// DefaultDelimiters are the $$...$$ display and $...$ inline markers.
var DefaultDelimiters = []Delimiter{
	{Left: "$$", Right: "$$", Display: true},
	{Left: "$", Right: "$", Display: false},
}

// ExtendedDelimiters additionally accept \[...\] and \(...\).
var ExtendedDelimiters = []Delimiter{
	{Left: "$$", Right: "$$", Display: true},
	{Left: `\[`, Right: `\]`, Display: true},
	{Left: `\(`, Right: `\)`, Display: false},
	{Left: "$", Right: "$", Display: false},
}

// Segment is a run of literal text or a math expression without its delimiters.
type Segment struct {
	Text    string `json:"text"`
	Math    bool   `json:"math,omitempty"`
	Display bool   `json:"display,omitempty"`
}

// SplitMath cuts text into literal and math segments. Delimiters are tried in
// order, so longer markers must come first. An opening marker without a
// matching close is kept as literal text; SplitMath never fails.
func SplitMath(text string, delims []Delimiter) []Segment {
	var (
		out     []Segment
		literal strings.Builder
	)
	flush := func() {
		if literal.Len() > 0 {
			out = append(out, Segment{Text: literal.String()})
			literal.Reset()
		}
	}

	for i := 0; i < len(text); {
		matched := false
		for _, d := range delims {
			if !strings.HasPrefix(text[i:], d.Left) {
				continue
			}
			bodyStart := i + len(d.Left)
			end := strings.Index(text[bodyStart:], d.Right)
			if end < 0 {
				continue
			}
			flush()
			out = append(out, Segment{Text: text[bodyStart : bodyStart+end], Math: true, Display: d.Display})
			i = bodyStart + end + len(d.Right)
			matched = true
			break
		}
		if !matched {
			literal.WriteByte(text[i])
			i++
		}
	}
	flush()
	return out
}

// LineBreaks turns literal newlines into <br> for HTML rendering.
func LineBreaks(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return strings.ReplaceAll(text, "\n", "<br>")
}

// PlainMath renders text for a terminal: math spans keep their TeX source
// and lose the delimiters.
func PlainMath(text string, delims []Delimiter) string {
	var b strings.Builder
	for _, seg := range SplitMath(text, delims) {
		b.WriteString(seg.Text)
	}
	return b.String()
}

// HTMLText flattens an HTML fragment into readable text: block elements and
// <br> become newlines, tags are dropped and entities decoded. Malformed
// markup is tolerated.
func HTMLText(fragment string) string {
	z := html.NewTokenizer(strings.NewReader(fragment))
	var b strings.Builder
	for {
		switch z.Next() {
		case html.ErrorToken:
			return strings.TrimSpace(collapseBlankLines(b.String()))
		case html.TextToken:
			b.Write(z.Text())
		case html.StartTagToken, html.EndTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			switch string(name) {
			case "br", "p", "div", "li", "tr", "h1", "h2", "h3", "h4", "h5", "h6":
				b.WriteByte('\n')
			}
		}
	}
}

func collapseBlankLines(s string) string {
	lines := strings.Split(s, "\n")
	out := lines[:0]
	blank := false
	for _, line := range lines {
		line = strings.TrimRight(line, " \t")
		if strings.TrimSpace(line) == "" {
			if blank {
				continue
			}
			blank = true
		} else {
			blank = false
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}
