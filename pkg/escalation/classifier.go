// Package escalation implements keyword-driven triage of resident utterances
// and the notification state machine that follows a detection.
//
// Classification is a pure function over an immutable vocabulary; all side
// effects (incident logging, staff notification) live in the Escalator so
// triage behavior can be tested without I/O.
package escalation

import (
	"fmt"
	"sort"
	"strings"

	"github.com/carevoice/companion-go/pkg/incidentlog"
)

// Classifier matches utterances against two disjoint keyword sets.
// It is immutable after construction and safe for concurrent use.
type Classifier struct {
	// tokens maps single-word variants to canonical keywords.
	emergencyTokens map[string]string
	staffTokens     map[string]string

	// phrases holds multi-word variants, matched by substring against the
	// normalized utterance.
	emergencyPhrases []phrase
	staffPhrases     []phrase
}

type phrase struct {
	text      string // normalized, space-joined
	canonical string
}

// Classification is the outcome of scanning one utterance.
type Classification struct {
	// Severity is the assigned triage level. Empty when nothing matched.
	Severity incidentlog.Severity

	// Matched is the sorted set of canonical keywords that matched,
	// across both vocabularies.
	Matched []string
}

// Detected reports whether any keyword matched.
func (c Classification) Detected() bool {
	return len(c.Matched) > 0
}

// NewClassifier builds a classifier from the two vocabularies. The sets must
// be disjoint: emergency precedence is a severity rule, not a way to resolve
// a word listed in both.
func NewClassifier(emergency, staffRequest []Keyword) (*Classifier, error) {
	if len(emergency) == 0 {
		return nil, fmt.Errorf("NewClassifier: emergency vocabulary is empty")
	}
	if len(staffRequest) == 0 {
		return nil, fmt.Errorf("NewClassifier: staff-request vocabulary is empty")
	}

	c := &Classifier{
		emergencyTokens: make(map[string]string),
		staffTokens:     make(map[string]string),
	}
	if err := index(emergency, c.emergencyTokens, &c.emergencyPhrases); err != nil {
		return nil, fmt.Errorf("NewClassifier: emergency vocabulary: %w", err)
	}
	if err := index(staffRequest, c.staffTokens, &c.staffPhrases); err != nil {
		return nil, fmt.Errorf("NewClassifier: staff-request vocabulary: %w", err)
	}

	for variant := range c.staffTokens {
		if _, ok := c.emergencyTokens[variant]; ok {
			return nil, fmt.Errorf("NewClassifier: %q appears in both vocabularies", variant)
		}
	}
	for _, sp := range c.staffPhrases {
		for _, ep := range c.emergencyPhrases {
			if sp.text == ep.text {
				return nil, fmt.Errorf("NewClassifier: %q appears in both vocabularies", sp.text)
			}
		}
	}

	return c, nil
}

// index normalizes a vocabulary into token and phrase matchers.
func index(keywords []Keyword, tokens map[string]string, phrases *[]phrase) error {
	for _, kw := range keywords {
		if strings.TrimSpace(kw.Canonical) == "" {
			return fmt.Errorf("keyword with empty canonical form")
		}
		for _, variant := range kw.Variants {
			normalized := normalize(variant)
			if normalized == "" {
				return fmt.Errorf("keyword %q has an empty variant", kw.Canonical)
			}
			if strings.Contains(normalized, " ") {
				*phrases = append(*phrases, phrase{text: normalized, canonical: kw.Canonical})
				continue
			}
			if existing, ok := tokens[normalized]; ok && existing != kw.Canonical {
				return fmt.Errorf("variant %q maps to both %q and %q", normalized, existing, kw.Canonical)
			}
			tokens[normalized] = kw.Canonical
		}
	}
	return nil
}

// Classify scans one utterance and returns its triage outcome. It performs
// no I/O and allocates nothing on the no-match path beyond the token scan.
//
// Emergency keywords take precedence: an utterance containing both emergency
// and staff-request keywords reports the union of matches but severity
// emergency only.
func (c *Classifier) Classify(utterance string) Classification {
	tokens := tokenize(utterance)
	if len(tokens) == 0 {
		return Classification{}
	}

	var matched map[string]bool
	mark := func(canonical string) {
		if matched == nil {
			matched = make(map[string]bool)
		}
		matched[canonical] = true
	}

	emergency := false
	staff := false
	for _, token := range tokens {
		if canonical, ok := c.emergencyTokens[token]; ok {
			emergency = true
			mark(canonical)
		}
		if canonical, ok := c.staffTokens[token]; ok {
			staff = true
			mark(canonical)
		}
	}

	// Phrase variants are matched against the normalized text so that
	// punctuation between words does not hide them.
	if len(c.emergencyPhrases) > 0 || len(c.staffPhrases) > 0 {
		text := " " + strings.Join(tokens, " ") + " "
		for _, p := range c.emergencyPhrases {
			if strings.Contains(text, " "+p.text+" ") {
				emergency = true
				mark(p.canonical)
			}
		}
		for _, p := range c.staffPhrases {
			if strings.Contains(text, " "+p.text+" ") {
				staff = true
				mark(p.canonical)
			}
		}
	}

	if !emergency && !staff {
		return Classification{}
	}

	keywords := make([]string, 0, len(matched))
	for k := range matched {
		keywords = append(keywords, k)
	}
	sort.Strings(keywords)

	severity := incidentlog.SeverityStaffRequest
	if emergency {
		severity = incidentlog.SeverityEmergency
	}
	return Classification{Severity: severity, Matched: keywords}
}

// normalize lowercases a variant and collapses it to space-separated tokens.
func normalize(s string) string {
	return strings.Join(tokenize(s), " ")
}

// tokenize lowercases the input and splits it on word boundaries. Apostrophes
// stay inside tokens so contractions like "can't" survive.
func tokenize(s string) []string {
	s = strings.ReplaceAll(strings.ToLower(s), "’", "'")
	return strings.FieldsFunc(s, func(r rune) bool {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '\'':
			return false
		default:
			return true
		}
	})
}
