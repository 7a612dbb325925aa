// ABOUTME: Scenario data structures for the retrieval benchmarks
// ABOUTME: Defines corpus documents, conversation turns and ground truth, built in or loaded from YAML

package ragas

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// TestScenario represents a complete benchmark test
type TestScenario struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	// Documents maps a corpus-relative file name to its content
	Documents   map[string]string  `yaml:"documents"`
	Turns       []ConversationTurn `yaml:"turns"`
	GroundTruth GroundTruth        `yaml:"ground_truth"`
}

// ConversationTurn represents a single user message in a test conversation
type ConversationTurn struct {
	TurnNumber  int    `yaml:"turn"`
	UserMessage string `yaml:"message"`
}

// GroundTruth defines expected outcomes for evaluation
type GroundTruth struct {
	// Turn whose reply is scored
	FinalQueryTurn      int      `yaml:"final_turn"`
	ExpectClarification bool     `yaml:"expect_clarification"`
	ExpectedInResponse  []string `yaml:"expected_in_response"`  // Strings that MUST appear in response
	ForbiddenInResponse []string `yaml:"forbidden_in_response"` // Strings that MUST NOT appear in response

	// Passages that should reach the prompt as context
	ExpectedContextItems []string `yaml:"expected_context"`
}

// TestResult represents the outcome of a benchmark test
type TestResult struct {
	TestID             string         `json:"test_id"`
	TestName           string         `json:"test_name"`
	FaithfulnessScore  float64        `json:"faithfulness"`
	ContextRecallScore float64        `json:"context_recall"`
	OverallScore       float64        `json:"overall"`
	Status             string         `json:"status"` // "PASS" or "FAIL"
	Details            map[string]any `json:"details,omitempty"`
	ErrorMessage       string         `json:"error,omitempty"`
}

const aspirinDoc = `Aspirin (acetylsalicylic acid) is used to relieve mild to moderate headache,
reduce fever and ease minor aches. Adults usually take 325 to 650 mg every four hours.
Aspirin should not be given to children with viral infections because of the risk of Reye's syndrome.`

const chestDoc = `Chest discomfort that spreads to the left arm, jaw or back can be a sign of a heart attack.
Other warning signs are shortness of breath, cold sweat and nausea.
Call emergency services immediately if these symptoms appear.`

const coughDoc = `A cough lasting more than three weeks is considered chronic.
A productive cough brings up mucus; a dry cough does not.
See a doctor if a cough comes with fever, blood or shortness of breath.`

// GetTestAspirin returns a single-turn question answered from the corpus
func GetTestAspirin() TestScenario {
	return TestScenario{
		ID:          "aspirin",
		Name:        "Drug information lookup",
		Description: "A direct question about a drug is answered from the matching leaflet",
		Documents: map[string]string{
			"aspirin.txt": aspirinDoc,
			"chest.md":    chestDoc,
		},
		Turns: []ConversationTurn{
			{TurnNumber: 1, UserMessage: "What is aspirin used for?"},
		},
		GroundTruth: GroundTruth{
			FinalQueryTurn:       1,
			ExpectedInResponse:   []string{"headache"},
			ForbiddenInResponse:  []string{"I apologize"},
			ExpectedContextItems: []string{"acetylsalicylic acid", "Reye's syndrome"},
		},
	}
}

// GetTestChestPain returns a clarification followed by the merged answer
func GetTestChestPain() TestScenario {
	return TestScenario{
		ID:          "chest-pain",
		Name:        "Chest pain clarification",
		Description: "A vague symptom asks for details, and the reply is answered together with the original question",
		Documents: map[string]string{
			"chest.md":    chestDoc,
			"aspirin.txt": aspirinDoc,
		},
		Turns: []ConversationTurn{
			{TurnNumber: 1, UserMessage: "I have chest pain"},
			{TurnNumber: 2, UserMessage: "It spreads to my left arm and I feel sweaty"},
		},
		GroundTruth: GroundTruth{
			FinalQueryTurn:       2,
			ExpectedInResponse:   []string{"heart attack", "emergency"},
			ForbiddenInResponse:  []string{"Can you please clarify"},
			ExpectedContextItems: []string{"left arm", "emergency services"},
		},
	}
}

// GetTestCough returns a symptom that must be clarified before answering
func GetTestCough() TestScenario {
	return TestScenario{
		ID:          "cough",
		Name:        "Cough clarification",
		Description: "A cough complaint is met with the cough follow-up questions instead of an answer",
		Documents: map[string]string{
			"cough.txt": coughDoc,
		},
		Turns: []ConversationTurn{
			{TurnNumber: 1, UserMessage: "I have had a cough for a while"},
		},
		GroundTruth: GroundTruth{
			FinalQueryTurn:      1,
			ExpectClarification: true,
			ExpectedInResponse:  []string{"How long have you had the cough?", "dry or productive"},
			ForbiddenInResponse: []string{"chronic"},
		},
	}
}

// GetAllTests returns all built-in scenarios
func GetAllTests() []TestScenario {
	return []TestScenario{
		GetTestAspirin(),
		GetTestChestPain(),
		GetTestCough(),
	}
}

// GetTest returns the built-in scenario with id
func GetTest(id string) (TestScenario, bool) {
	for _, s := range GetAllTests() {
		if s.ID == id {
			return s, true
		}
	}
	return TestScenario{}, false
}

// LoadScenarios reads a YAML list of scenarios
func LoadScenarios(path string) ([]TestScenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenarios: %w", err)
	}

	var scenarios []TestScenario
	if err := yaml.Unmarshal(data, &scenarios); err != nil {
		return nil, fmt.Errorf("failed to parse scenarios %s: %w", path, err)
	}
	for i, s := range scenarios {
		if s.ID == "" {
			return nil, fmt.Errorf("scenario %d has no id", i+1)
		}
		if len(s.Turns) == 0 {
			return nil, fmt.Errorf("scenario %s has no turns", s.ID)
		}
		if s.GroundTruth.FinalQueryTurn == 0 {
			scenarios[i].GroundTruth.FinalQueryTurn = s.Turns[len(s.Turns)-1].TurnNumber
		}
	}
	return scenarios, nil
}
