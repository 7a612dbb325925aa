// ABOUTME: Reply is the tagged result of a chat turn, either Answer or ClarificationRequest
// ABOUTME: Also holds the fixed user-facing messages for each outcome
package models

import "strings"

const (
	// NoContextMessage is returned when retrieval finds nothing
	NoContextMessage = "I couldn't find any relevant information. Can you provide more details?"
	// ApologyMessage replaces the answer when an external call fails
	ApologyMessage = "I apologize, but I encountered an error processing your query. Please try again."
	// ClarificationPrefix introduces the list of follow-up questions
	ClarificationPrefix = "I found some information related to your query. Can you please clarify: "
	// SourcesPrefix introduces the attribution suffix of an answer
	SourcesPrefix = "Sources consulted: "
)

// Reply is implemented by Answer and ClarificationRequest only
type Reply interface {
	// Message is the text shown to the user and stored in the transcript
	Message() string
	isReply()
}

// Outcome describes how an Answer was produced
type Outcome string

const (
	OutcomeAnswered  Outcome = "answered"
	OutcomeNoContext Outcome = "no_context"
	OutcomeFailed    Outcome = "failed"
)

// Answer is a terminal response to the user's query
type Answer struct {
	Text    string   `json:"text"`
	Sources []string `json:"sources,omitempty"`
	Outcome Outcome  `json:"outcome"`
	// Err holds the RetrievalFailure or GenerationFailure behind an OutcomeFailed answer
	Err error `json:"-"`
}

func (a *Answer) Message() string { return a.Text }
func (*Answer) isReply()           {}

// ClarificationRequest asks the user for more detail before answering
type ClarificationRequest struct {
	Questions []string `json:"questions"`
}

func (c *ClarificationRequest) Message() string {
	return ClarificationPrefix + strings.Join(c.Questions, " ")
}
func (*ClarificationRequest) isReply() {}

// WithSources appends the attribution suffix when sources is non-empty
func WithSources(text string, sources []string) string {
	if len(sources) == 0 {
		return text
	}
	return text + "\n\n" + SourcesPrefix + strings.Join(sources, ", ")
}
