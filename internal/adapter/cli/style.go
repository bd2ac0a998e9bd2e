package cli

import (
	"fmt"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/Nyukimin/housedesign_agent/internal/adapter/render"
	"github.com/Nyukimin/housedesign_agent/internal/domain/cost"
)

// Renderer はMarkdownを端末向けに整形する
type Renderer interface {
	Render(markdown string) (string, error)
}

// PlainRenderer はMarkdownをそのまま返す
type PlainRenderer struct{}

// Render はMarkdownをそのまま返す
func (PlainRenderer) Render(markdown string) (string, error) {
	return markdown, nil
}

// NewGlamourRenderer は端末の配色に合わせたglamourレンダラーを作成
func NewGlamourRenderer(width int) (*glamour.TermRenderer, error) {
	if width <= 0 {
		width = 80
	}
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create markdown renderer: %w", err)
	}
	return renderer, nil
}

var (
	badgeBase = lipgloss.NewStyle().Bold(true).Padding(0, 1)

	overStyle  = badgeBase.Foreground(lipgloss.Color("15")).Background(lipgloss.Color("1"))
	underStyle = badgeBase.Foreground(lipgloss.Color("0")).Background(lipgloss.Color("2"))
	exactStyle = badgeBase.Foreground(lipgloss.Color("0")).Background(lipgloss.Color("3"))
	noneStyle  = badgeBase.Foreground(lipgloss.Color("7"))
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

// BudgetBadge は予算状況を色付きの1行にする
func BudgetBadge(status cost.BudgetStatus) string {
	switch status.Status {
	case cost.StatusOver:
		return overStyle.Render(fmt.Sprintf("OVER BUDGET by %s (%s%%)", render.Money(status.Delta), render.Percent(status.DeltaPct)))
	case cost.StatusUnder:
		return underStyle.Render(fmt.Sprintf("UNDER BUDGET by %s (%s%%)", render.Money(status.Delta), render.Percent(status.DeltaPct)))
	case cost.StatusExact:
		return exactStyle.Render("EXACTLY ON BUDGET")
	default:
		return noneStyle.Render("NO BUDGET SET")
	}
}
