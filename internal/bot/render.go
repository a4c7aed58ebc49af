package bot

import (
	"encoding/json"
	"strings"
	"time"

	"floatwatch/internal/csfloat"
	"floatwatch/internal/tracker"
	"floatwatch/pkg/tgui"
)

const timeLayout = "2006-01-02 15:04 UTC"

// RenderNotification is the message body for one alert: header line, then
// the payload as a card. A thumbnail is attached through a hidden link so
// Telegram shows it as the preview.
func RenderNotification(header string, p tracker.NotificationPayload) string {
	var head tgui.H
	if p.Thumbnail != "" {
		head = tgui.HiddenLink(p.Thumbnail)
	}
	if header != "" {
		head += tgui.B(header)
	}

	card := tgui.Card{Header: head, Title: tgui.Link(p.Title, p.URL)}
	for _, f := range p.Fields {
		card.Add(strings.TrimSpace(f.Icon+" "+f.Name), f.Value)
	}
	footer := p.Footer
	if !p.Timestamp.IsZero() {
		footer += " • " + p.Timestamp.UTC().Format(timeLayout)
	}
	card.Footer = tgui.I(footer)
	return string(card.HTML())
}

func paramsJSON(q csfloat.QueryParams) string {
	b, err := json.MarshalIndent(q, "", "  ")
	if err != nil {
		return q.Encode()
	}
	return string(b)
}

func paramsLines(q csfloat.QueryParams) string {
	lines := make([]string, 0, q.Len())
	for _, k := range q.Keys() {
		v, _ := q.Get(k)
		lines = append(lines, k+": "+v.String())
	}
	return strings.Join(lines, "\n")
}

func ago(t time.Time, now time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return now.Sub(t).Truncate(time.Second).String() + " ago"
}
