// Package model はドメインモデルを定義する。
package model

import "time"

// User は外部の認証基盤が発行するアカウントを表す。
type User struct {
	UID   string
	Email string
}

// Session はサインイン済みユーザーのローカルセッションを表す。
// IDトークンはドキュメントストアへのアクセスに使用する。
type Session struct {
	ID        string
	User      User
	IDToken   string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Expired はセッションが期限切れかどうかを返す。
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}
