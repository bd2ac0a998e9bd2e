package agent

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/Nyukimin/housedesign_agent/internal/domain/intent"
)

// dimensionsPattern は "12x14" / "12.5 x 14" / "12×14" 形式の寸法（幅x奥行）
var dimensionsPattern = regexp.MustCompile(`^(\d+(?:\.\d+)?)\s*[xX×]\s*(\d+(?:\.\d+)?)$`)

// parseExplicitCommand は明示コマンドを解析
//
//	/add <name> <W>x<L> [floor <n>] [type <t>]
//	/remove <room>
//	/update <room> <W>x<L>
//	/budget <amount>
//	/ask <question>
//
// 引数の不足はFieldsの欠落として返し、検証はFieldsのアクセサに任せる
func parseExplicitCommand(message string) (intent.Decision, bool) {
	trimmed := strings.TrimSpace(message)
	if !strings.HasPrefix(trimmed, "/") {
		return intent.Decision{}, false
	}

	cmd, args, _ := strings.Cut(trimmed, " ")
	args = strings.TrimSpace(args)

	var (
		label  intent.Intent
		fields intent.Fields
	)

	switch strings.ToLower(cmd) {
	case "/add":
		label, fields = intent.AddRoom, parseAddArgs(args)
	case "/remove":
		label, fields = intent.RemoveRoom, intent.Fields{}
		if args != "" {
			fields["room"] = args
		}
	case "/update":
		label, fields = intent.UpdateRoom, parseUpdateArgs(args)
	case "/budget":
		label, fields = intent.SetBudget, intent.Fields{}
		if amount, ok := intent.ParseAmount(args); ok {
			fields["amount"] = amount
		} else if args != "" {
			fields["amount"] = args
		}
	case "/ask":
		label, fields = intent.AskQuestion, intent.Fields{"question": args}
	default:
		return intent.Decision{}, false
	}

	return intent.NewDecision(label, 1.0, "Explicit command", fields), true
}

// parseAddArgs は "/add Master Bedroom 14x16 floor 2 type bedroom" を分解
func parseAddArgs(args string) intent.Fields {
	fields := intent.Fields{}
	tokens := strings.Fields(args)

	dimIdx := -1
	for i, tok := range tokens {
		if w, l, ok := parseDimensions(tok); ok {
			fields["width"], fields["length"] = w, l
			dimIdx = i
			break
		}
	}

	nameTokens := tokens
	if dimIdx >= 0 {
		nameTokens = tokens[:dimIdx]
		rest := tokens[dimIdx+1:]
		for i := 0; i+1 < len(rest); i += 2 {
			switch strings.ToLower(rest[i]) {
			case "floor":
				fields["floor"] = rest[i+1]
			case "type":
				fields["type"] = rest[i+1]
			}
		}
	}

	if name := strings.Join(nameTokens, " "); name != "" {
		fields["name"] = name
	}
	return fields
}

// parseUpdateArgs は "/update the garage 22x24" を分解
func parseUpdateArgs(args string) intent.Fields {
	fields := intent.Fields{}
	tokens := strings.Fields(args)
	if len(tokens) == 0 {
		return fields
	}

	last := tokens[len(tokens)-1]
	if w, l, ok := parseDimensions(last); ok {
		fields["width"], fields["length"] = w, l
		tokens = tokens[:len(tokens)-1]
	}
	if room := strings.Join(tokens, " "); room != "" {
		fields["room"] = room
	}
	return fields
}

func parseDimensions(token string) (float64, float64, bool) {
	m := dimensionsPattern.FindStringSubmatch(token)
	if m == nil {
		return 0, 0, false
	}
	w, errW := strconv.ParseFloat(m[1], 64)
	l, errL := strconv.ParseFloat(m[2], 64)
	if errW != nil || errL != nil {
		return 0, 0, false
	}
	return w, l, true
}
