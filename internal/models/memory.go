// ABOUTME: Exchange pairs a user turn with the assistant turn that answered it
// ABOUTME: The memory window keeps a bounded list of these pairs
package models

// Exchange is one user/assistant turn pair
type Exchange struct {
	User      ConversationTurn `json:"user"`
	Assistant ConversationTurn `json:"assistant"`
}
