// Package security はアプリケーションのセキュリティ機能を提供する。
//
// ContentSanitizer は外部APIから取得したテキストをサニタイズし、
// XSS攻撃などのセキュリティリスクからユーザーを保護する。
// SSRFGuard は外部URLへのリクエストが内部ネットワークへ到達することを防ぐ。
package security

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// ContentSanitizer は外部由来テキストのサニタイズ機能を提供する。
// 植物名や説明文はHTMLを含まないプレーンテキストとして扱うため、
// bluemondayのStrictPolicy（全タグ除去）を使用する。
type ContentSanitizer struct {
	policy *bluemonday.Policy
}

// NewContentSanitizer はContentSanitizerの新しいインスタンスを生成する。
// ポリシーの内容:
//   - 全てのHTMLタグを除去する（script, iframe, img等を含む）
//   - タグ除去後のエンティティは元の文字に戻し、プレーンテキストとして返す
func NewContentSanitizer() *ContentSanitizer {
	return &ContentSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// Sanitize は外部由来テキストをサニタイズしてプレーンテキストを返す。
// 空文字列の入力には空文字列を返す。
// 同一入力に対して常に同一出力を返す（冪等）。
func (s *ContentSanitizer) Sanitize(raw string) string {
	if raw == "" {
		return ""
	}
	cleaned := s.policy.Sanitize(raw)
	return strings.TrimSpace(html.UnescapeString(cleaned))
}
