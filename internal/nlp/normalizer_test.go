package nlp

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeEmptyInput(t *testing.T) {
	assert.Empty(t, Normalize(""))
	assert.Empty(t, Normalize("   "))
	assert.Empty(t, Normalize("\t\n"))
	assert.Empty(t, Normalize("!!! ???"))
}

func TestNormalizeRemovesFillerAndStopwords(t *testing.T) {
	tokens := Normalize("How do I reset my password?")
	assert.Equal(t, []string{"reset", "password"}, tokens)
}

func TestNormalizeStems(t *testing.T) {
	tokens := Normalize("billing questions")
	assert.Contains(t, tokens, "bill")
	assert.Contains(t, tokens, "question")
}

func TestNormalizePreservesOrder(t *testing.T) {
	tokens := Normalize("invite teammates workspace")
	assert.Equal(t, []string{"invit", "teammat", "workspac"}, tokens)
}

func TestNormalizeIdempotent(t *testing.T) {
	input := "How do I cancel my subscription and get a refund?"
	first := Normalize(input)
	second := Normalize(input)
	assert.Equal(t, first, second)
}

func TestCleanFillerPhraseOrder(t *testing.T) {
	// "i need help with" is removed before "how to" gets a chance, so
	// the leading phrase disappears wholesale and the remaining "how to"
	// is stripped separately.
	assert.Equal(t, "login", Clean("I need help with how to login"))
	assert.Equal(t, "billing", Clean("i need help with billing"))
	assert.Equal(t, "configure email", Clean("how to configure email"))
}

func TestCleanStripsPunctuationAndCase(t *testing.T) {
	assert.Equal(t, "what s my invoice total", Clean("What's   my invoice, total?!"))
}
