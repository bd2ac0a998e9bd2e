package routing

import (
	"testing"

	"github.com/Nyukimin/housedesign_agent/internal/domain/intent"
)

func TestNewRuleDictionary(t *testing.T) {
	dict := NewRuleDictionary()

	if dict == nil {
		t.Fatal("NewRuleDictionary should not return nil")
	}
}

func TestRuleDictionary_Match_NoMatch(t *testing.T) {
	dict := NewRuleDictionary()

	for _, message := range []string{
		"Add a 12x14 office",
		"What is my budget status?",
		"Can we afford a bigger kitchen?",
		"budget for a 20x20 garage is 30000",
	} {
		t.Run(message, func(t *testing.T) {
			decision, matched := dict.Match(newTestTask(message))

			if matched {
				t.Errorf("Should not match, got %s", decision.Intent)
			}
			if decision.Intent != "" {
				t.Errorf("Intent should be empty when not matched, got '%s'", decision.Intent)
			}
		})
	}
}

func TestRuleDictionary_Match_Budget(t *testing.T) {
	tests := []struct {
		message string
		amount  float64
	}{
		{"My budget is $650,000", 650000},
		{"We can spend 500k on this", 500000},
		{"Our max cost is 1.2m", 1200000},
		{"I can afford 800000 CAD", 800000},
		{"BUDGET: 750,000", 750000},
	}

	dict := NewRuleDictionary()
	for _, tt := range tests {
		t.Run(tt.message, func(t *testing.T) {
			decision, matched := dict.Match(newTestTask(tt.message))
			if !matched {
				t.Fatal("Expected budget rule to match")
			}

			if decision.Intent != intent.SetBudget {
				t.Errorf("Expected SET_BUDGET, got %s", decision.Intent)
			}
			if decision.Confidence != 0.85 {
				t.Errorf("Expected confidence 0.85, got %f", decision.Confidence)
			}

			amount, err := decision.Fields.BudgetAmount()
			if err != nil {
				t.Fatalf("BudgetAmount failed: %v", err)
			}
			if amount != tt.amount {
				t.Errorf("Expected amount %v, got %v", tt.amount, amount)
			}
		})
	}
}

func TestRuleDictionary_Match_LeavesAmbiguousNumbersToClassifier(t *testing.T) {
	dict := NewRuleDictionary()

	for _, message := range []string{
		"My budget is tight, can I add a 2000 sq ft basement?",
		"What can I afford if the house is 1500 square feet?",
		"My budget is tight so add a 2000 sq ft basement",
		"Budget-wise, add a 1500 square feet wing",
		"We want to spend less, make the hallway 3m wide",
		"Our budget covers a 1200 ft² addition",
		"What if my budget is 500k",
		"Could we spend 500k?",
		"Spend more on the kitchen, it is 2500 sf",
	} {
		t.Run(message, func(t *testing.T) {
			decision, matched := dict.Match(newTestTask(message))
			if matched {
				t.Errorf("Should not match, got %s with %v", decision.Intent, decision.Fields)
			}
		})
	}
}

func TestRuleDictionary_Match_BudgetStatements(t *testing.T) {
	tests := []struct {
		message string
		amount  float64
	}{
		{"Our budget is now $700,000", 700000},
		{"Set the budget to 650k", 650000},
		{"We cannot exceed $1.5 million", 1500000},
		{"Okay, we can spend up to 900,000 CAD", 900000},
		{"Our budget is 3m", 3000000},
	}

	dict := NewRuleDictionary()
	for _, tt := range tests {
		t.Run(tt.message, func(t *testing.T) {
			decision, matched := dict.Match(newTestTask(tt.message))
			if !matched {
				t.Fatal("Expected budget rule to match")
			}
			amount, err := decision.Fields.BudgetAmount()
			if err != nil {
				t.Fatalf("BudgetAmount failed: %v", err)
			}
			if amount != tt.amount {
				t.Errorf("Expected amount %v, got %v", tt.amount, amount)
			}
		})
	}
}
