// Package auth はメール/パスワード認証とアクティブセッションの管理を提供する。
package auth

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/midori/internal/identity"
	"github.com/hitoshi/midori/internal/model"
)

// IdentityClient は外部認証基盤クライアントのインターフェース。
type IdentityClient interface {
	// SignIn はメール/パスワードでサインインする。
	SignIn(ctx context.Context, email, password string) (*identity.Account, error)
	// Register はアカウントを新規作成し、サインイン済みの状態で返す。
	Register(ctx context.Context, email, password string) (*identity.Account, error)
}

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	SessionMaxAge int // IDトークンから期限が取れない場合のセッション有効期間（秒）
}

// Service は認証状態を管理する。アクティブセッションは同時に1つまで。
// 認証状態の変化は購読者へ同期的に通知される。
type Service struct {
	identClient IdentityClient
	config      ServiceConfig

	mu      sync.RWMutex
	session *model.Session

	// notifyMu は購読者への通知を状態遷移の発生順に直列化する
	notifyMu    sync.Mutex
	subscribers map[int]func(*model.User)
	nextSubID   int
}

// NewService はServiceを生成する。
func NewService(identClient IdentityClient, config ServiceConfig) *Service {
	return &Service{
		identClient: identClient,
		config:      config,
		subscribers: make(map[int]func(*model.User)),
	}
}

// SignIn はメール/パスワードでサインインし、新しいセッションを発行する。
// 既存のセッションがある場合は置き換えられ、購読者へ新しいユーザーが通知される。
func (s *Service) SignIn(ctx context.Context, email, password string) (*model.Session, error) {
	account, err := s.identClient.SignIn(ctx, email, password)
	if err != nil {
		return nil, fmt.Errorf("サインインに失敗しました: %w", err)
	}

	session := s.establishSession(account)
	slog.Info("user signed in", slog.String("user_id", account.UID))
	return session, nil
}

// Register はアカウントを新規作成し、そのままサインインする。
func (s *Service) Register(ctx context.Context, email, password string) (*model.Session, error) {
	account, err := s.identClient.Register(ctx, email, password)
	if err != nil {
		return nil, fmt.Errorf("アカウント登録に失敗しました: %w", err)
	}

	session := s.establishSession(account)
	slog.Info("user registered", slog.String("user_id", account.UID))
	return session, nil
}

// SignOut はアクティブセッションを破棄する。
// 購読者へのnil通知が完了してから復帰するため、呼び出し完了時点で
// 購読側のユーザー状態はクリア済みであることが保証される。
// セッションがない場合は何もしない。
func (s *Service) SignOut() {
	s.mu.Lock()
	had := s.session != nil
	var userID string
	if had {
		userID = s.session.User.UID
	}
	s.session = nil
	s.mu.Unlock()

	if !had {
		return
	}

	s.notify(nil)
	slog.Info("user signed out", slog.String("user_id", userID))
}

// Current は現在サインイン中のユーザーを返す。未サインインまたは
// セッション期限切れの場合はnilを返す。
func (s *Service) Current() *model.User {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.session == nil || s.session.Expired(time.Now()) {
		return nil
	}
	user := s.session.User
	return &user
}

// Token は現在のセッションのIDトークンを返す。
// 未サインインまたは期限切れの場合はUNAUTHENTICATEDエラーを返す。
func (s *Service) Token() (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.session == nil || s.session.Expired(time.Now()) {
		return "", model.NewUnauthenticatedError()
	}
	return s.session.IDToken, nil
}

// FindSession はセッションIDからアクティブセッションを検索する。
// 一致しない場合や期限切れの場合はnilを返す。
func (s *Service) FindSession(sessionID string) *model.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.session == nil || s.session.ID != sessionID || s.session.Expired(time.Now()) {
		return nil
	}
	session := *s.session
	return &session
}

// Subscribe は認証状態の変化の購読を開始する。
// 登録時点の現在ユーザーが即座にコールバックへ渡され、以降は
// サインイン/サインアウトのたびに新しい状態が通知される。
// 返却された関数を呼ぶと購読を解除する。
func (s *Service) Subscribe(fn func(*model.User)) func() {
	s.mu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.subscribers[id] = fn
	s.mu.Unlock()

	fn(s.Current())

	return func() {
		s.mu.Lock()
		delete(s.subscribers, id)
		s.mu.Unlock()
	}
}

// establishSession はアカウントから新しいセッションを確立し、購読者へ通知する。
func (s *Service) establishSession(account *identity.Account) *model.Session {
	expiresAt := account.ExpiresAt
	if expiresAt.IsZero() {
		expiresAt = time.Now().Add(time.Duration(s.config.SessionMaxAge) * time.Second)
	}

	session := &model.Session{
		ID: uuid.New().String(),
		User: model.User{
			UID:   account.UID,
			Email: account.Email,
		},
		IDToken:   account.IDToken,
		ExpiresAt: expiresAt,
		CreatedAt: time.Now(),
	}

	s.mu.Lock()
	s.session = session
	s.mu.Unlock()

	user := session.User
	s.notify(&user)

	copied := *session
	return &copied
}

// notify は全購読者へ現在のユーザーを通知する。
// ロックを保持せずにコールバックを呼ぶため、購読者はコールバック内で
// Serviceのメソッドを安全に呼び出せる。
func (s *Service) notify(user *model.User) {
	s.mu.RLock()
	fns := make([]func(*model.User), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		fns = append(fns, fn)
	}
	s.mu.RUnlock()

	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()
	for _, fn := range fns {
		fn(user)
	}
}
