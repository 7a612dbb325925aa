// ABOUTME: PromptBuilder assembles the grounded-answer prompt from context, history and question
// ABOUTME: The instruction template is a langchaingo PromptTemplate in go-template format
package core

import (
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/prompts"
)

// AnswerTemplate instructs the model to stay within the retrieved context
const AnswerTemplate = `You are an expert medical AI assistant. Use only the following pieces of context to provide accurate, well-reasoned medical information.

Context:
{{.context}}

Chat History:
{{.chat_history}}

Current Question: {{.question}}

Please provide a detailed, accurate response while:
1. Citing only information drawn from the provided context
2. Explaining your reasoning clearly
3. Stating any limitations or uncertainties
4. Explicitly flagging any general medical knowledge that the context does not support
`

// PromptBuilder renders AnswerTemplate
type PromptBuilder struct {
	template prompts.PromptTemplate
}

// NewPromptBuilder creates a builder for AnswerTemplate
func NewPromptBuilder() *PromptBuilder {
	return &PromptBuilder{
		template: prompts.NewPromptTemplate(AnswerTemplate, []string{"context", "chat_history", "question"}),
	}
}

// Build joins the chunk texts with blank lines and renders the prompt
func (pb *PromptBuilder) Build(chunks []string, history, question string) (string, error) {
	prompt, err := pb.template.Format(map[string]any{
		"context":      strings.Join(chunks, "\n\n"),
		"chat_history": history,
		"question":     question,
	})
	if err != nil {
		return "", fmt.Errorf("failed to render prompt: %w", err)
	}
	return prompt, nil
}
