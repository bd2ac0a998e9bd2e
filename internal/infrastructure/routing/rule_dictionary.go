package routing

import (
	"regexp"
	"strings"

	"github.com/Nyukimin/housedesign_agent/internal/domain/intent"
	"github.com/Nyukimin/housedesign_agent/internal/domain/task"
)

var dimensionPattern = regexp.MustCompile(`\d\s*[x×]\s*\d`)

// budgetStatementPattern は予算キーワードと、その直後の金額の手前までにマッチする
// "budget is $650,000" / "budget: 750,000" / "can spend up to 500k"
var budgetStatementPattern = regexp.MustCompile(`(?i)\b(?:budget|afford|spend|cost limit|max(?:imum)? cost|can't go over|cannot exceed)\b(?:\s*[:=-])?(?:\s+(?:is|of|at|to|about|around|roughly|up to|now|will be|should be|be|set to|limit of))*\s*`)

// questionWords は質問文の書き出し
var questionWords = []string{"what", "how", "can", "could", "should", "would", "will", "is", "are", "do", "does", "if", "which", "why"}

// RuleDictionary はキーワードベースのルール辞書実装
type RuleDictionary struct {
	rules []rule
}

// rule は単一のルールを表す
// extract がある場合はフィールドを取り出せたときだけマッチする
type rule struct {
	keywords   []string
	intent     intent.Intent
	confidence float64
	extract    func(message string) (intent.Fields, bool)
}

// NewRuleDictionary は新しいRuleDictionaryを作成
func NewRuleDictionary() *RuleDictionary {
	return &RuleDictionary{
		rules: []rule{
			// SET_BUDGET: 予算キーワード + 金額
			{
				keywords:   []string{"budget", "afford", "spend", "cost limit", "max cost", "maximum cost", "can't go over", "cannot exceed"},
				intent:     intent.SetBudget,
				confidence: 0.85,
				extract:    extractBudget,
			},
		},
	}
}

// Match はタスクメッセージをルールと照合
func (d *RuleDictionary) Match(t task.Task) (intent.Decision, bool) {
	message := strings.ToLower(t.UserMessage())

	// ルールを順番にチェック
	for _, rule := range d.rules {
		if !containsAny(message, rule.keywords) {
			continue
		}

		fields := intent.Fields{}
		if rule.extract != nil {
			extracted, ok := rule.extract(message)
			if !ok {
				continue
			}
			fields = extracted
		}

		return intent.NewDecision(rule.intent, rule.confidence, "Rule dictionary match", fields), true
	}

	return intent.Decision{}, false
}

// extractBudget は予算キーワードの直後に書かれた金額を取り出す
// 質問文や寸法を含むメッセージ（"12x14"）は分類器に任せる
func extractBudget(message string) (intent.Fields, bool) {
	if isQuestion(message) || dimensionPattern.MatchString(message) {
		return nil, false
	}
	for _, loc := range budgetStatementPattern.FindAllStringIndex(message, -1) {
		if amount, ok := intent.ParseLeadingAmount(message[loc[1]:]); ok {
			return intent.Fields{"amount": amount}, true
		}
	}
	return nil, false
}

func isQuestion(message string) bool {
	message = strings.TrimSpace(message)
	if strings.HasSuffix(message, "?") {
		return true
	}
	first, _, _ := strings.Cut(message, " ")
	for _, word := range questionWords {
		if first == word {
			return true
		}
	}
	return false
}

func containsAny(message string, keywords []string) bool {
	for _, keyword := range keywords {
		if strings.Contains(message, keyword) {
			return true
		}
	}
	return false
}
