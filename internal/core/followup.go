// ABOUTME: Follow-up table mapping trigger keywords to clarifying questions
// ABOUTME: The table is data; a YAML file can replace the compiled-in defaults
package core

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Trigger maps a keyword to the questions asked when a query mentions it
type Trigger struct {
	Keyword   string   `yaml:"trigger"`
	Questions []string `yaml:"questions"`
}

// FollowUpTable is scanned in order; matching triggers concatenate their questions
type FollowUpTable []Trigger

// DefaultFollowUpTable returns the built-in symptom triggers
func DefaultFollowUpTable() FollowUpTable {
	return FollowUpTable{
		{
			Keyword: "pain",
			Questions: []string{
				"Can you describe the location of the pain?",
				"How long have you been experiencing this pain?",
				"Is the pain constant or does it come and go?",
				"Have you noticed any other symptoms, such as nausea or fever?",
			},
		},
		{
			Keyword: "cough",
			Questions: []string{
				"How long have you had the cough?",
				"Is it dry or productive (producing mucus)?",
				"Do you have any other symptoms, like fever or shortness of breath?",
			},
		},
	}
}

// LoadFollowUpTable reads a YAML list of {trigger, questions}
func LoadFollowUpTable(path string) (FollowUpTable, error) {
	data, err := os.ReadFile(path) // #nosec G304
	if err != nil {
		return nil, fmt.Errorf("failed to read triggers file: %w", err)
	}

	var table FollowUpTable
	if err := yaml.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("failed to parse triggers file %s: %w", path, err)
	}
	for i, tr := range table {
		if strings.TrimSpace(tr.Keyword) == "" {
			return nil, fmt.Errorf("trigger %d in %s has no keyword", i, path)
		}
		if len(tr.Questions) == 0 {
			return nil, fmt.Errorf("trigger %q in %s has no questions", tr.Keyword, path)
		}
	}
	return table, nil
}

// Questions returns the clarifying questions for query, or nil when no trigger matches.
// Matching is a case-insensitive substring test.
func (t FollowUpTable) Questions(query string) []string {
	lower := strings.ToLower(query)
	var questions []string
	for _, tr := range t {
		if strings.Contains(lower, strings.ToLower(tr.Keyword)) {
			questions = append(questions, tr.Questions...)
		}
	}
	return questions
}
