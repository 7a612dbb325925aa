// ABOUTME: FollowUpState tracks a pending clarification request within a session
// ABOUTME: Set when the responder asks questions, cleared once a reply is processed
package models

// FollowUpState records that the session is waiting on a clarifying reply
type FollowUpState struct {
	Pending       bool     `json:"pending"`
	Questions     []string `json:"questions,omitempty"`
	OriginalQuery string   `json:"original_query,omitempty"`
}

// Await marks the state pending with the given questions
func (f *FollowUpState) Await(query string, questions []string) {
	f.Pending = true
	f.Questions = append([]string(nil), questions...)
	f.OriginalQuery = query
}

// Clear resets the state to idle
func (f *FollowUpState) Clear() {
	*f = FollowUpState{}
}
