package engine

import (
	"math/rand"
	"time"

	"github.com/helpbot/backend/internal/escalate"
	"github.com/helpbot/backend/internal/paginate"
	"github.com/helpbot/backend/internal/storage/models"
)

// State is the terminal outcome of one resolved query. The engine emits
// exactly one response per query; multi-turn continuation lives outside
// it.
type State string

const (
	StateGreeting   State = "greeting"
	StateHelp       State = "help"
	StateEscalation State = "escalation"
	StateMatch      State = "match"
	StateNoMatch    State = "no_match"
	StateError      State = "error"
)

// Response is the tagged variant handed to the transport layer. The
// confidence field is a derived scalar, not a probability, and is never
// renormalized.
type Response struct {
	State       State                    `json:"type"`
	Message     string                   `json:"message"`
	Results     []models.KnowledgeRecord `json:"results,omitempty"`
	Pagination  *paginate.Meta           `json:"pagination,omitempty"`
	Suggestions []string                 `json:"suggestions,omitempty"`
	Escalation  *escalate.Payload        `json:"escalation_info,omitempty"`
	ErrorKind   string                   `json:"error,omitempty"`
	Confidence  float64                  `json:"confidence_score"`
	Timestamp   time.Time                `json:"timestamp"`
}

var greetingMessages = []string{
	"Hey there! I'm here to help you find answers quickly.",
	"Hello! What can I assist you with today?",
	"Hi! I'm your support assistant. How can I help?",
	"Greetings! Ready to solve your questions together.",
	"Hey! Let's get you the help you need.",
}

var helpMessages = []string{
	"I'm here to help! Here are some ways I can assist:",
	"Need assistance? Here are popular topics:",
	"I can help with various topics. Here are some options:",
	"Let's find what you need! Here are common questions:",
}

var noMatchMessages = []string{
	"I couldn't find exact matches, but here are some related topics:",
	"No direct matches found. These might be helpful:",
	"Let me suggest some alternatives that might help:",
	"I didn't find that specific topic, but check these out:",
}

func pick(messages []string) string {
	return messages[rand.Intn(len(messages))]
}
