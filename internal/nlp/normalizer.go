package nlp

import (
	"regexp"
	"strings"

	"github.com/jdkato/prose/v2"
	"github.com/reiver/go-porterstemmer"
	"go.uber.org/zap"

	"github.com/helpbot/backend/pkg/logger"
)

var (
	nonWordPattern    = regexp.MustCompile(`[^\w\s]`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

// fillerPhrases are removed by sequential literal replacement. The order
// is a contract: earlier removals change what later phrases can match
// (e.g. stripping "i need help with" first leaves nothing for "help").
var fillerPhrases = []string{
	"i need help with",
	"i need help on",
	"please help",
	"can you help me with",
	"how do i",
	"how to",
	"i want to",
	"tell me how to",
	"what is the way to",
}

// contentTags are the Penn Treebank tags kept during salience filtering:
// noun, verb and adjective variants.
var contentTags = map[string]bool{
	"NN": true, "NNS": true, "NNP": true, "NNPS": true,
	"VB": true, "VBD": true, "VBG": true, "VBN": true, "VBP": true, "VBZ": true,
	"JJ": true, "JJR": true, "JJS": true,
}

type taggedToken struct {
	text string
	tag  string
}

// Normalize reduces raw user text to an ordered list of stemmed content
// tokens: lowercase, punctuation stripped, filler phrases removed,
// POS-salience filtered, stopwords dropped, Porter-stemmed. Empty or
// whitespace-only input yields an empty slice.
func Normalize(raw string) []string {
	cleaned := Clean(raw)
	if cleaned == "" {
		return []string{}
	}

	tagged := tagTokens(cleaned)

	processed := make([]string, 0, len(tagged))
	for _, tok := range tagged {
		if !contentTags[tok.tag] && len(tok.text) <= 3 {
			continue
		}
		if stopwords[tok.text] || len(tok.text) <= 2 {
			continue
		}
		processed = append(processed, porterstemmer.StemString(tok.text))
	}

	return processed
}

// Clean performs the character-level part of normalization: lowercase,
// non-word characters to spaces, whitespace collapsed, filler phrases
// removed in order.
func Clean(raw string) string {
	text := strings.ToLower(raw)
	text = nonWordPattern.ReplaceAllString(text, " ")
	text = whitespacePattern.ReplaceAllString(strings.TrimSpace(text), " ")

	for _, phrase := range fillerPhrases {
		text = strings.ReplaceAll(text, phrase, "")
	}

	return strings.TrimSpace(whitespacePattern.ReplaceAllString(text, " "))
}

func tagTokens(text string) []taggedToken {
	doc, err := prose.NewDocument(text,
		prose.WithSegmentation(false),
		prose.WithExtraction(false),
	)
	if err != nil {
		// Tagging is a filter refinement, not a hard dependency: fall
		// back to plain whitespace tokens with no tag so the length
		// rule still applies.
		logger.Warn("POS tagging failed, falling back to plain tokens", zap.Error(err))
		fields := strings.Fields(text)
		tagged := make([]taggedToken, 0, len(fields))
		for _, f := range fields {
			tagged = append(tagged, taggedToken{text: f})
		}
		return tagged
	}

	tokens := doc.Tokens()
	tagged := make([]taggedToken, 0, len(tokens))
	for _, tok := range tokens {
		tagged = append(tagged, taggedToken{text: tok.Text, tag: tok.Tag})
	}
	return tagged
}
