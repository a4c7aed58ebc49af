package router

import (
	"strings"

	"floatwatch/pkg/tgui"
)

// helpText renders the command list, or details for one command, as
// Telegram HTML.
func (m *Manager) helpText(args []string) string {
	if len(args) > 0 {
		name := strings.TrimPrefix(args[0], "/")
		c, ok := m.lookup(name)
		if !ok {
			return string(tgui.JoinH("\n",
				"❓ "+tgui.B("Unknown command"),
				"Try "+tgui.Code("/help")+" for the list of commands."))
		}
		parts := []tgui.H{"📚 " + tgui.B("Help") + " " + tgui.Code("/"+c.Name), tgui.Esc(c.Description)}
		if u := strings.TrimSpace(c.Usage); u != "" {
			parts = append(parts, "", tgui.B("Usage"), tgui.Code(u))
		}
		if len(c.Aliases) > 0 {
			parts = append(parts, tgui.B("Aliases")+" "+tgui.Esc("/"+strings.Join(c.Aliases, ", /")))
		}
		return string(tgui.JoinH("\n", parts...))
	}

	m.mu.RLock()
	cmds := append([]Command(nil), m.ordered...)
	m.mu.RUnlock()

	lines := []tgui.H{"📚 " + tgui.B("Commands"), "Type " + tgui.Code("/help <command>") + " for details."}
	for _, c := range cmds {
		if c.Hidden {
			continue
		}
		line := "• " + tgui.Code("/"+c.Name)
		if d := strings.TrimSpace(c.Description); d != "" {
			line += " - " + tgui.Esc(d)
		}
		lines = append(lines, line)
	}
	return string(tgui.JoinH("\n", lines...))
}
