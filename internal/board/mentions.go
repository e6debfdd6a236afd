package board

import (
	"strings"
	"unicode"
)

// SplitAddressees breaks the free-text addressee field into entries.
// Commas, semicolons and whitespace separate entries.
func SplitAddressees(raw string) []string {
	fields := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ';' || unicode.IsSpace(r)
	})
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

// ParseMentions returns the names of "@name" entries in order, without the
// leading '@' and without duplicates.
func ParseMentions(to []string) []string {
	out := make([]string, 0, len(to))
	seen := make(map[string]struct{}, len(to))
	for _, entry := range to {
		entry = strings.TrimSpace(entry)
		if !strings.HasPrefix(entry, "@") {
			continue
		}
		name := strings.TrimRightFunc(strings.TrimPrefix(entry, "@"), isMentionTrailer)
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}

func isMentionTrailer(r rune) bool {
	switch r {
	case '.', '!', '?', ':', ')':
		return true
	}
	return false
}
