package admin

import (
	"fmt"
	"html"
	"strings"

	"github.com/roach88/setfield/internal/setfield"
)

// DefaultColor is the tag background used for options with no configured
// color.
const DefaultColor = "#6c757d"

const tagStyle = "margin: 0 0.2em;padding: 0.2em 0.5em;border-radius: 5px;color: white;background-color: %s"

// Display renders s as one styled <span> per member, sorted, colored from
// the field's palette. Members and colors are HTML-escaped.
func Display(f *setfield.Field, s setfield.Set) string {
	var b strings.Builder
	for _, tag := range s.Sorted() {
		color := f.Color(tag)
		if color == "" {
			color = DefaultColor
		}
		style := fmt.Sprintf(tagStyle, color)
		fmt.Fprintf(&b, `<span style="%s">%s</span>`, html.EscapeString(style), html.EscapeString(tag))
	}
	return b.String()
}
