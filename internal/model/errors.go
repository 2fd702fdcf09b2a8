// Package model はドメインモデルを定義する。
package model

import (
	"errors"
	"fmt"
)

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: conflict, validation, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeUserAlreadyExists = "USER_ALREADY_EXISTS"
	ErrCodeInvalidSortColumn = "INVALID_SORT_COLUMN"
	ErrCodeUserNotFound      = "USER_NOT_FOUND"
	ErrCodeInvalidRequest    = "INVALID_REQUEST"
)

// NewUserAlreadyExistsError は有効なユーザーが同一メールアドレスで既に存在する場合の
// 競合エラーを生成する。呼び出し側が回復可能な業務エラーとして扱う。
func NewUserAlreadyExistsError(email string) *APIError {
	return &APIError{
		Code:     ErrCodeUserAlreadyExists,
		Message:  fmt.Sprintf("指定されたメールアドレスのユーザーは既に存在します: %s", email),
		Category: "conflict",
		Action:   "別のメールアドレスを指定するか、既存のユーザーを更新してください。",
	}
}

// NewInvalidSortColumnError は許可リストにないソートカラムが指定された場合の
// バリデーションエラーを生成する。SQLに到達する前に拒否される。
func NewInvalidSortColumnError(column string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidSortColumn,
		Message:  fmt.Sprintf("無効なソートカラムです: %s", column),
		Category: "validation",
		Action:   "id、email、name、created_at、updated_at のいずれかを指定してください。",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
// リポジトリ層は不在をnilで表現するため、これはHTTP層での変換に使用する。
func NewUserNotFoundError(id int64) *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  fmt.Sprintf("指定されたユーザーが見つかりません: %d", id),
		Category: "validation",
		Action:   "ユーザーIDを確認してください。",
	}
}

// NewInvalidRequestError はリクエスト形式が不正な場合のエラーを生成する。
func NewInvalidRequestError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequest,
		Message:  fmt.Sprintf("リクエストが不正です: %s", reason),
		Category: "validation",
		Action:   "リクエスト内容を確認してください。",
	}
}

// IsConflict はerrが競合エラーかどうかを判定する。
func IsConflict(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Category == "conflict"
}

// IsValidation はerrがバリデーションエラーかどうかを判定する。
func IsValidation(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Category == "validation"
}
