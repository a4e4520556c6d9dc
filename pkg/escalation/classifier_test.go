package escalation_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carevoice/companion-go/pkg/escalation"
	"github.com/carevoice/companion-go/pkg/incidentlog"
)

func newDefaultClassifier(t *testing.T) *escalation.Classifier {
	c, err := escalation.NewClassifier(
		escalation.DefaultEmergencyKeywords(),
		escalation.DefaultStaffRequestKeywords(),
	)
	require.NoError(t, err)
	require.NotNil(t, c)
	return c
}

func TestClassifier_Emergency(t *testing.T) {
	c := newDefaultClassifier(t)

	cls := c.Classify("I fell and I'm in pain")
	assert.True(t, cls.Detected())
	assert.Equal(t, incidentlog.SeverityEmergency, cls.Severity)
	// "fell" reports under its canonical keyword.
	assert.Contains(t, cls.Matched, "fall")
	assert.Contains(t, cls.Matched, "pain")
}

func TestClassifier_StaffRequest(t *testing.T) {
	c := newDefaultClassifier(t)

	cls := c.Classify("Can someone help me find the chapel")
	assert.True(t, cls.Detected())
	assert.Equal(t, incidentlog.SeverityStaffRequest, cls.Severity)
	assert.Equal(t, []string{"help"}, cls.Matched)
}

func TestClassifier_EmergencyPrecedence(t *testing.T) {
	c := newDefaultClassifier(t)

	// Both vocabularies match; severity must be emergency and the match
	// set must be the union.
	cls := c.Classify("Help, I have chest pain")
	assert.Equal(t, incidentlog.SeverityEmergency, cls.Severity)
	assert.Contains(t, cls.Matched, "help")
	assert.Contains(t, cls.Matched, "chest")
	assert.Contains(t, cls.Matched, "pain")
}

func TestClassifier_NoMatch(t *testing.T) {
	c := newDefaultClassifier(t)

	for _, utterance := range []string{
		"Tell me about the garden",
		"My grandson visited on Sunday",
		"",
		"   ",
	} {
		cls := c.Classify(utterance)
		assert.False(t, cls.Detected(), "utterance %q", utterance)
		assert.Empty(t, cls.Matched)
	}
}

func TestClassifier_CaseAndPunctuation(t *testing.T) {
	c := newDefaultClassifier(t)

	cls := c.Classify("HELP!!!")
	assert.True(t, cls.Detected())
	assert.Equal(t, incidentlog.SeverityStaffRequest, cls.Severity)

	cls = c.Classify("It hurts, badly.")
	assert.Equal(t, incidentlog.SeverityEmergency, cls.Severity)
	assert.Equal(t, []string{"pain"}, cls.Matched)
}

func TestClassifier_SubstringDoesNotMatch(t *testing.T) {
	c := newDefaultClassifier(t)

	// "helpful" contains "help" but is not the keyword token.
	cls := c.Classify("the nurses here are so helpful people say")
	// "nurses" is also not "nurse"; only exact token variants count.
	for _, kw := range cls.Matched {
		assert.NotEqual(t, "help", kw)
	}
}

func TestClassifier_Phrases(t *testing.T) {
	c := newDefaultClassifier(t)

	for _, utterance := range []string{
		"I can't breathe",
		"i cant breathe right now",
		"I can’t breathe",
		"I'm short of breath",
	} {
		cls := c.Classify(utterance)
		assert.True(t, cls.Detected(), "utterance %q", utterance)
		assert.Equal(t, incidentlog.SeverityEmergency, cls.Severity, "utterance %q", utterance)
	}
}

func TestClassifier_Deterministic(t *testing.T) {
	c := newDefaultClassifier(t)

	first := c.Classify("help me, I fell and my chest hurts")
	for i := 0; i < 10; i++ {
		again := c.Classify("help me, I fell and my chest hurts")
		assert.Equal(t, first, again)
	}
}

func TestNewClassifier_Validation(t *testing.T) {
	_, err := escalation.NewClassifier(nil, escalation.DefaultStaffRequestKeywords())
	assert.Error(t, err)

	_, err = escalation.NewClassifier(escalation.DefaultEmergencyKeywords(), nil)
	assert.Error(t, err)

	// Overlapping vocabularies must be rejected.
	overlap := []escalation.Keyword{{Canonical: "pain", Variants: []string{"pain"}}}
	_, err = escalation.NewClassifier(overlap, overlap)
	assert.Error(t, err)
}

func TestParseKeywords(t *testing.T) {
	keywords := escalation.ParseKeywords("fire, smoke ,  alarm")
	require.Len(t, keywords, 3)
	assert.Equal(t, "fire", keywords[0].Canonical)
	assert.Equal(t, []string{"fire"}, keywords[0].Variants)
	assert.Equal(t, "smoke", keywords[1].Canonical)
	assert.Equal(t, "alarm", keywords[2].Canonical)

	assert.Nil(t, escalation.ParseKeywords(""))
	assert.Nil(t, escalation.ParseKeywords(" , ,"))
}
