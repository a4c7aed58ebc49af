package router

import (
	"strings"
	"unicode"
)

// tokenize splits a command line on whitespace. Single or double quotes
// group words; a backslash escapes the next rune.
func tokenize(s string) []string {
	var (
		out   []string
		cur   strings.Builder
		quote rune
		esc   bool
		has   bool
	)
	flush := func() {
		if has {
			out = append(out, cur.String())
		}
		cur.Reset()
		has = false
	}
	for _, r := range s {
		switch {
		case esc:
			cur.WriteRune(r)
			esc, has = false, true
		case r == '\\':
			esc = true
		case quote != 0:
			if r == quote {
				quote = 0
				continue
			}
			cur.WriteRune(r)
		case r == '"' || r == '\'':
			quote, has = r, true
		case unicode.IsSpace(r):
			flush()
		default:
			cur.WriteRune(r)
			has = true
		}
	}
	flush()
	return out
}

// parseFlags separates "--key=value", "--key value" and "--bool" flags
// from positional arguments. A bare "--" ends flag parsing.
// Single-dash tokens are positional, so negative numbers survive.
func parseFlags(args []string) (pos []string, flags map[string]string, bools map[string]bool) {
	flags = map[string]string{}
	bools = map[string]bool{}
	for i := 0; i < len(args); i++ {
		a := args[i]
		if a == "--" {
			pos = append(pos, args[i+1:]...)
			break
		}
		if !strings.HasPrefix(a, "--") || len(a) == 2 {
			pos = append(pos, a)
			continue
		}
		key := strings.TrimPrefix(a, "--")
		if k, v, ok := strings.Cut(key, "="); ok {
			flags[strings.ToLower(k)] = v
			continue
		}
		if i+1 < len(args) && !strings.HasPrefix(args[i+1], "--") {
			flags[strings.ToLower(key)] = args[i+1]
			i++
			continue
		}
		bools[strings.ToLower(key)] = true
	}
	return pos, flags, bools
}

// sanitizeCommand maps a name onto Telegram's command alphabet
// [a-z0-9_]{1,32}.
func sanitizeCommand(s string) string {
	var b strings.Builder
	last := '_'
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			last = r
		case r == '_' || r == '-' || unicode.IsSpace(r):
			if last != '_' {
				b.WriteRune('_')
				last = '_'
			}
		}
	}
	out := strings.Trim(b.String(), "_")
	if len(out) > 32 {
		out = strings.TrimRight(out[:32], "_")
	}
	return out
}
