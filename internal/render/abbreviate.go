package render

import "strings"

var roleAbbreviations = []struct {
	keyword string
	short   string
}{
	{"вратарь", "вр."},
	{"защитник", "защ."},
	{"нападающий", "нап."},
}

// Abbreviate shortens a player role. Matching is a case-insensitive substring
// check and the first keyword found wins; unknown roles are returned as is.
func Abbreviate(role string) string {
	lower := strings.ToLower(role)
	for _, a := range roleAbbreviations {
		if strings.Contains(lower, a.keyword) {
			return a.short
		}
	}
	return role
}
