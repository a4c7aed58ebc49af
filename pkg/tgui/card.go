package tgui

import "strings"

// Card is a titled block of labelled values, rendered as
//
//	<b>Title</b>
//	Label: value
//	Label:
//	multi-line value
//
// Multi-line values start on their own line so they stay readable.
type Card struct {
	Header H
	Title  H
	Rows   []Row
	Footer H
}

type Row struct {
	Label string
	Value string
}

func (c *Card) Add(label, value string) *Card {
	c.Rows = append(c.Rows, Row{Label: label, Value: value})
	return c
}

func (c Card) HTML() H {
	parts := make([]H, 0, len(c.Rows)+3)
	parts = append(parts, c.Header, BH(c.Title))
	for _, r := range c.Rows {
		if strings.Contains(r.Value, "\n") {
			parts = append(parts, B(r.Label+":")+"\n"+Esc(r.Value))
			continue
		}
		parts = append(parts, B(r.Label+":")+" "+Esc(r.Value))
	}
	out := JoinH("\n", parts...)
	if c.Footer != "" {
		out += "\n\n" + c.Footer
	}
	return out
}
