package intent

import "strings"

type Intent string

const (
	Greeting         Intent = "greeting"
	Escalation       Intent = "escalation"
	Help             Intent = "help"
	NegativeFeedback Intent = "negative_feedback"
	Question         Intent = "question"
)

var greetingKeywords = []string{
	"hi", "hello", "hey", "greetings", "good morning", "good evening",
	"howdy", "sup", "yo", "hiya", "bonjour", "hola", "ciao",
}

var escalationKeywords = []string{
	"speak to human", "human agent", "customer service", "live chat",
	"representative", "operator", "support team", "contact support",
	"escalate", "manager", "supervisor",
}

var helpKeywords = []string{
	"help", "need help", "assist", "support", "can you help",
	"i need help", "assistance", "guide", "tutorial", "how to",
}

var negativeKeywords = []string{
	"not helpful", "doesn't work", "wrong answer", "useless",
	"bad", "terrible", "awful", "disappointed", "frustrated",
}

// Classify maps raw input to an intent by substring containment on the
// lowercased text, first match wins. The priority is deliberate policy:
// greeting first, then escalation over help over negative feedback, with
// question as the fallback. A keyword embedded inside a longer word
// still counts as a match.
func Classify(raw string) Intent {
	text := strings.ToLower(raw)

	switch {
	case containsAny(text, greetingKeywords):
		return Greeting
	case containsAny(text, escalationKeywords):
		return Escalation
	case containsAny(text, helpKeywords):
		return Help
	case containsAny(text, negativeKeywords):
		return NegativeFeedback
	default:
		return Question
	}
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}
