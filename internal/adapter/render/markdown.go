package render

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/Nyukimin/housedesign_agent/internal/application/orchestrator"
	"github.com/Nyukimin/housedesign_agent/internal/domain/conversation"
	"github.com/Nyukimin/housedesign_agent/internal/domain/cost"
	"github.com/Nyukimin/housedesign_agent/internal/domain/floorplan"
	"github.com/Nyukimin/housedesign_agent/internal/domain/intent"
)

// Markdown はスナップショットをMarkdownの要約にする orchestrator.Formatter 実装
type Markdown struct{}

// NewMarkdown は新しいMarkdownを作成
func NewMarkdown() *Markdown {
	return &Markdown{}
}

// Summary は階ごとの部屋一覧・合計面積・費用・予算分析を出力
func (m *Markdown) Summary(s conversation.Snapshot) string {
	var b strings.Builder

	if s.IsEmpty() {
		b.WriteString("**No rooms in the floorplan yet.**\n")
	} else {
		b.WriteString("### Draft floorplan\n\n")
		fmt.Fprintf(&b, "- Floors: %d\n", len(s.Floors()))
		fmt.Fprintf(&b, "- Total area: %s ft²\n", Area(s.Estimate.TotalArea))
		fmt.Fprintf(&b, "- Rate: %s/ft² (%s, %s)\n", Money(s.Estimate.RatePerArea), s.Pricing.Region, s.Pricing.Currency)

		// Estimate.Lines は部屋と同じ順序
		for _, floor := range s.Floors() {
			fmt.Fprintf(&b, "\n**Floor %d**\n\n", floor)
			for i, r := range s.Rooms {
				if r.Floor != floor {
					continue
				}
				fmt.Fprintf(&b, "- %s (%s): %s = %s ft², %s\n",
					r.Name, r.Type, Dimensions(r.Width, r.Length), Area(r.Area()), Money(lineCost(s, i)))
			}
		}

		fmt.Fprintf(&b, "\n**Estimated cost:** %s %s\n", Money(s.Estimate.TotalCost), s.Pricing.Currency)
	}

	b.WriteString(BudgetLine(s.Budget))
	return b.String()
}

// lineCost はi番目の部屋の費用を返す
func lineCost(s conversation.Snapshot, i int) float64 {
	if i < len(s.Estimate.Lines) {
		return s.Estimate.Lines[i].Cost
	}
	return s.Rooms[i].Area() * s.Estimate.RatePerArea
}

// BudgetLine は予算分析の1行を返す
func BudgetLine(status cost.BudgetStatus) string {
	switch status.Status {
	case cost.StatusOver:
		return fmt.Sprintf("**Budget:** %s, over by %s (%s%%)\n", Money(status.Budget), Money(status.Delta), Percent(status.DeltaPct))
	case cost.StatusUnder:
		return fmt.Sprintf("**Budget:** %s, under by %s (%s%%)\n", Money(status.Budget), Money(status.Delta), Percent(status.DeltaPct))
	case cost.StatusExact:
		return fmt.Sprintf("**Budget:** %s, exactly on budget\n", Money(status.Budget))
	default:
		return "**Budget:** not set\n"
	}
}

// Acknowledge は適用した変更を1行で伝える
func (m *Markdown) Acknowledge(c orchestrator.Change) string {
	switch c.Intent {
	case intent.AddRoom:
		if len(c.Rooms) == 1 {
			r := c.Rooms[0]
			return fmt.Sprintf("Added **%s** (%s, floor %d).", r.Name, Dimensions(r.Width, r.Length), r.Floor)
		}
		return fmt.Sprintf("Added %d rooms: %s.", len(c.Rooms), strings.Join(roomNames(c.Rooms), ", "))
	case intent.RemoveRoom:
		return fmt.Sprintf("Removed **%s**.", firstName(c.Rooms))
	case intent.UpdateRoom:
		if len(c.Rooms) == 0 {
			return "Updated the room."
		}
		r := c.Rooms[0]
		return fmt.Sprintf("Updated **%s** to %s.", r.Name, Dimensions(r.Width, r.Length))
	case intent.SetBudget:
		return fmt.Sprintf("Budget set to %s.", Money(c.Budget))
	default:
		return "Done."
	}
}

// Savings は節約提案に見出しを付ける（本文はそのまま）
func (m *Markdown) Savings(suggestions string) string {
	return "### Ways to get back under budget\n\n" + suggestions
}

// Money は金額を "$1,234.50" 形式にする
func Money(v float64) string {
	if v < 0 {
		return "-$" + humanize.FormatFloat("#,###.##", -v)
	}
	return "$" + humanize.FormatFloat("#,###.##", v)
}

// Area は面積を桁区切り付きで返す（小数は必要な桁のみ）
func Area(v float64) string {
	return humanize.Commaf(v)
}

// Percent は百分率を小数2桁で返す
func Percent(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// Dimensions は寸法を "12' × 14'" 形式にする
func Dimensions(width, length float64) string {
	return fmt.Sprintf("%s' × %s'", trimFloat(width), trimFloat(length))
}

func trimFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func roomNames(rooms []floorplan.Room) []string {
	names := make([]string, 0, len(rooms))
	for _, r := range rooms {
		names = append(names, r.Name)
	}
	return names
}

func firstName(rooms []floorplan.Room) string {
	if len(rooms) == 0 {
		return "the room"
	}
	return rooms[0].Name
}
