package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Field is one labelled line of a card
type Field struct {
	Key   string
	Value string
}

// Card is a bordered block with a title and labelled fields
type Card struct {
	Title    string
	Subtitle string
	Fields   []Field
	Footer   string
	Width    int // 0 lets the content decide
}

// Render draws the card. Fields with an empty value are skipped.
func (c Card) Render() string {
	var b strings.Builder

	b.WriteString(FormatBadge(c.Title))
	if c.Subtitle != "" {
		b.WriteString("\n")
		b.WriteString(StyleSubtle.Render(c.Subtitle))
	}

	keyWidth := 0
	for _, f := range c.Fields {
		if f.Value != "" && lipgloss.Width(f.Key) > keyWidth {
			keyWidth = lipgloss.Width(f.Key)
		}
	}

	if keyWidth > 0 {
		b.WriteString("\n")
	}
	for _, f := range c.Fields {
		if f.Value == "" {
			continue
		}
		b.WriteString("\n")
		b.WriteString(StyleAccent.Render(padString(f.Key, keyWidth, "left")))
		b.WriteString("  ")
		b.WriteString(f.Value)
	}

	if c.Footer != "" {
		b.WriteString("\n\n")
		b.WriteString(c.Footer)
	}

	style := StyleCard
	if c.Width > 0 {
		style = style.Width(c.Width)
	}
	return style.Render(b.String())
}
