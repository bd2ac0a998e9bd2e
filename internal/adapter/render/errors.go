package render

import (
	"errors"
	"fmt"

	"github.com/Nyukimin/housedesign_agent/internal/domain/agent"
	"github.com/Nyukimin/housedesign_agent/internal/domain/conversation"
	"github.com/Nyukimin/housedesign_agent/internal/domain/floorplan"
)

// ErrorMessage はターンのエラーを利用者向けの1文にする
// 間取りと予算は変更されていないことを明示する
func ErrorMessage(err error) string {
	var vErr *floorplan.ValidationError

	switch {
	case err == nil:
		return ""
	case errors.Is(err, floorplan.ErrDuplicateName):
		return fmt.Sprintf("A room with that name already exists, so nothing was changed (%v).", err)
	case errors.Is(err, floorplan.ErrNotFound):
		return fmt.Sprintf("I couldn't find that room, so nothing was changed (%v).", err)
	case errors.As(err, &vErr):
		if vErr.Field == "" {
			return fmt.Sprintf("I couldn't apply that: %s. Nothing was changed.", vErr.Reason)
		}
		return fmt.Sprintf("I couldn't apply that: %s %s. Nothing was changed.", vErr.Field, vErr.Reason)
	case errors.Is(err, floorplan.ErrValidation):
		return fmt.Sprintf("I couldn't apply that (%v). Nothing was changed.", err)
	case errors.Is(err, conversation.ErrConversationNotFound):
		return "That session does not exist or has been reset."
	case errors.Is(err, agent.ErrEmptyReply):
		return "The assistant returned an empty answer. Please try again."
	default:
		return fmt.Sprintf("Something went wrong: %v", err)
	}
}
