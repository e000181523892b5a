package domain

import "strings"

// Language is one of the languages results can be filtered by.
// The zero value means no language filter.
type Language string

// LanguageNone disables language filtering.
const LanguageNone Language = ""

var supportedLanguages = []Language{
	"Rust", "Python", "JavaScript", "TypeScript", "Go", "Java", "C", "C++",
	"C#", "Ruby", "PHP", "Swift", "Kotlin", "Scala", "Haskell", "Elixir",
	"Clojure", "Lua", "R", "Julia", "Dart", "Zig", "Nim", "OCaml",
}

// SupportedLanguages returns the languages accepted by ParseLanguage.
func SupportedLanguages() []Language {
	out := make([]Language, len(supportedLanguages))
	copy(out, supportedLanguages)
	return out
}

// ParseLanguage resolves s to its canonical spelling, case-insensitively.
// "", "all" and "any" resolve to LanguageNone.
func ParseLanguage(s string) (Language, error) {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "", "all", "any":
		return LanguageNone, nil
	}
	for _, l := range supportedLanguages {
		if strings.EqualFold(string(l), s) {
			return l, nil
		}
	}
	return LanguageNone, &InvalidQueryError{Field: "language", Reason: "unsupported language " + quote(s)}
}

// IsNone reports whether l disables filtering.
func (l Language) IsNone() bool {
	return l == LanguageNone
}

// Matches reports whether a repository language equals l, ignoring case.
func (l Language) Matches(language string) bool {
	return strings.EqualFold(string(l), language)
}
