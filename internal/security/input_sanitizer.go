// Package security はアプリケーションのセキュリティ機能を提供する。
//
// InputSanitizerService はAPIで受け取るユーザー入力（名前やメールアドレス）から
// HTMLタグを除去し、保存データ経由のXSS攻撃からクライアントを保護する。
// bluemondayのStrictPolicyを使用してすべてのマークアップを取り除く。
package security

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// InputSanitizerService はユーザー入力のサニタイズ機能のインターフェースを定義する。
// ユーザーの作成・更新リクエストの保存前に使用される。
type InputSanitizerService interface {
	// Sanitize は入力文字列からすべてのHTMLタグを除去し、
	// 前後の空白を取り除いた値を返す。
	// 空文字列の入力には空文字列を返す。
	// 同一入力に対して常に同一出力を返す（冪等）。
	Sanitize(input string) string
}

// inputSanitizer はInputSanitizerServiceの実装。
// bluemondayのポリシーを保持し、スレッドセーフにサニタイズ処理を行う。
type inputSanitizer struct {
	policy *bluemonday.Policy
}

// NewInputSanitizer はInputSanitizerServiceの新しいインスタンスを生成する。
// StrictPolicyはすべてのタグと属性を除去する。
func NewInputSanitizer() *inputSanitizer {
	return &inputSanitizer{policy: bluemonday.StrictPolicy()}
}

// Sanitize は入力からHTMLタグを除去し、前後の空白を取り除く。
func (s *inputSanitizer) Sanitize(input string) string {
	if input == "" {
		return ""
	}
	return strings.TrimSpace(s.policy.Sanitize(input))
}
