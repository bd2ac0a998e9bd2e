package floorplan

import (
	"errors"
	"fmt"
)

// 間取り操作のエラー分類（いずれもターン単位で回復可能）
var (
	// ErrDuplicateName は同名（大文字小文字を区別しない）の部屋が既に存在する場合のエラー
	ErrDuplicateName = errors.New("duplicate room name")

	// ErrNotFound は削除・更新対象の部屋が解決できない場合のエラー
	ErrNotFound = errors.New("room not found")

	// ErrValidation は寸法・予算・構造化フィールドが不正な場合のエラー
	ErrValidation = errors.New("validation failed")
)

// ValidationError はどのフィールドがなぜ不正かを保持する
type ValidationError struct {
	Field  string
	Reason string
}

// NewValidationError は新しいValidationErrorを作成
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", ErrValidation, e.Reason)
	}
	return fmt.Sprintf("%s: %s %s", ErrValidation, e.Field, e.Reason)
}

// Unwrap により errors.Is(err, ErrValidation) が成立する
func (e *ValidationError) Unwrap() error {
	return ErrValidation
}
