package escalation

import "strings"

// Keyword is one triage vocabulary entry. A match on any variant is reported
// under the canonical form, so "fell" and "fallen" both surface as "fall"
// in an event's matched keywords. Variants may be multi-word phrases.
type Keyword struct {
	// Canonical is the name the keyword is reported under.
	Canonical string

	// Variants are the spoken forms that trigger a match. The canonical
	// form itself must be listed if it should match.
	Variants []string
}

// DefaultEmergencyKeywords returns the built-in emergency vocabulary.
//
// The vocabulary is loaded once at startup into an immutable classifier;
// deployments override it through configuration, tests through the
// constructor.
func DefaultEmergencyKeywords() []Keyword {
	return []Keyword{
		{Canonical: "pain", Variants: []string{"pain", "painful", "hurt", "hurts", "hurting"}},
		{Canonical: "fall", Variants: []string{"fall", "fell", "fallen", "falling"}},
		{Canonical: "chest", Variants: []string{"chest"}},
		{Canonical: "emergency", Variants: []string{"emergency", "urgent"}},
		{Canonical: "can't breathe", Variants: []string{
			"can't breathe", "cant breathe", "cannot breathe", "can not breathe",
			"short of breath", "trouble breathing",
		}},
		{Canonical: "dizzy", Variants: []string{"dizzy", "dizziness"}},
		{Canonical: "bleeding", Variants: []string{"bleeding"}},
	}
}

// DefaultStaffRequestKeywords returns the built-in staff-request vocabulary.
func DefaultStaffRequestKeywords() []Keyword {
	return []Keyword{
		{Canonical: "help", Variants: []string{"help"}},
		{Canonical: "nurse", Variants: []string{"nurse"}},
		{Canonical: "assistance", Variants: []string{"assistance", "assist", "caregiver"}},
		{Canonical: "medication", Variants: []string{"medication", "medicine", "pills"}},
	}
}

// ParseKeywords builds a vocabulary from a comma-separated list, one keyword
// per entry. Each entry matches only its own form; entries containing spaces
// are treated as phrases. Used for configuration overrides.
func ParseKeywords(s string) []Keyword {
	var keywords []Keyword
	for _, part := range strings.Split(s, ",") {
		word := strings.ToLower(strings.TrimSpace(part))
		if word == "" {
			continue
		}
		keywords = append(keywords, Keyword{Canonical: word, Variants: []string{word}})
	}
	return keywords
}
