package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hitoshi/midori/internal/identity"
	"github.com/hitoshi/midori/internal/model"
)

// --- モック定義 ---

type mockIdentityClient struct {
	signInFn   func(ctx context.Context, email, password string) (*identity.Account, error)
	registerFn func(ctx context.Context, email, password string) (*identity.Account, error)
}

func (m *mockIdentityClient) SignIn(ctx context.Context, email, password string) (*identity.Account, error) {
	if m.signInFn != nil {
		return m.signInFn(ctx, email, password)
	}
	return nil, errors.New("not implemented")
}

func (m *mockIdentityClient) Register(ctx context.Context, email, password string) (*identity.Account, error) {
	if m.registerFn != nil {
		return m.registerFn(ctx, email, password)
	}
	return nil, errors.New("not implemented")
}

func validAccount() *identity.Account {
	return &identity.Account{
		UID:       "uid-1",
		Email:     "user@example.com",
		IDToken:   "token-abc",
		ExpiresAt: time.Now().Add(time.Hour),
	}
}

// signedInService はサインイン済みのServiceとそのセッションを返すテストヘルパー。
func signedInService(t *testing.T) (*Service, *model.Session) {
	t.Helper()
	client := &mockIdentityClient{
		signInFn: func(ctx context.Context, email, password string) (*identity.Account, error) {
			return validAccount(), nil
		},
	}
	service := NewService(client, ServiceConfig{SessionMaxAge: 3600})
	session, err := service.SignIn(context.Background(), "user@example.com", "secret123")
	if err != nil {
		t.Fatalf("SignIn returned error: %v", err)
	}
	return service, session
}

func TestService_SignIn_EstablishesSession(t *testing.T) {
	client := &mockIdentityClient{
		signInFn: func(ctx context.Context, email, password string) (*identity.Account, error) {
			if email != "user@example.com" || password != "secret123" {
				t.Errorf("unexpected credentials: %s / %s", email, password)
			}
			return validAccount(), nil
		},
	}
	service := NewService(client, ServiceConfig{SessionMaxAge: 3600})

	session, err := service.SignIn(context.Background(), "user@example.com", "secret123")
	if err != nil {
		t.Fatalf("SignIn returned error: %v", err)
	}

	if session.ID == "" {
		t.Error("expected non-empty session ID")
	}
	if session.User.UID != "uid-1" {
		t.Errorf("User.UID = %q, want %q", session.User.UID, "uid-1")
	}
	if session.IDToken != "token-abc" {
		t.Errorf("IDToken = %q, want %q", session.IDToken, "token-abc")
	}

	current := service.Current()
	if current == nil {
		t.Fatal("expected current user after sign in")
	}
	if current.Email != "user@example.com" {
		t.Errorf("Email = %q, want %q", current.Email, "user@example.com")
	}

	token, err := service.Token()
	if err != nil {
		t.Fatalf("Token returned error: %v", err)
	}
	if token != "token-abc" {
		t.Errorf("token = %q, want %q", token, "token-abc")
	}
}

func TestService_SignIn_IdentityError_LeavesStateUnchanged(t *testing.T) {
	client := &mockIdentityClient{
		signInFn: func(ctx context.Context, email, password string) (*identity.Account, error) {
			return nil, model.NewInvalidCredentialError()
		},
	}
	service := NewService(client, ServiceConfig{SessionMaxAge: 3600})

	_, err := service.SignIn(context.Background(), "user@example.com", "wrong")
	if err == nil {
		t.Fatal("expected error, got nil")
	}

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeInvalidCredential {
		t.Errorf("expected INVALID_CREDENTIAL error, got %v", err)
	}

	if service.Current() != nil {
		t.Error("expected no current user after failed sign in")
	}
}

func TestService_Register_SignsInAutomatically(t *testing.T) {
	client := &mockIdentityClient{
		registerFn: func(ctx context.Context, email, password string) (*identity.Account, error) {
			return &identity.Account{
				UID:       "uid-new",
				Email:     email,
				IDToken:   "token-new",
				ExpiresAt: time.Now().Add(time.Hour),
			}, nil
		},
	}
	service := NewService(client, ServiceConfig{SessionMaxAge: 3600})

	session, err := service.Register(context.Background(), "new@example.com", "secret123")
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if session.User.UID != "uid-new" {
		t.Errorf("User.UID = %q, want %q", session.User.UID, "uid-new")
	}

	if current := service.Current(); current == nil || current.UID != "uid-new" {
		t.Errorf("expected current user uid-new after register, got %v", current)
	}
}

func TestService_SignOut_ClearsSession(t *testing.T) {
	service, _ := signedInService(t)

	service.SignOut()

	if service.Current() != nil {
		t.Error("expected no current user after sign out")
	}
	if _, err := service.Token(); err == nil {
		t.Error("expected Token to fail after sign out")
	}

	// セッションがない状態での再呼び出しは何もしない
	service.SignOut()
}

func TestService_Token_Unauthenticated_ReturnsError(t *testing.T) {
	service := NewService(&mockIdentityClient{}, ServiceConfig{SessionMaxAge: 3600})

	_, err := service.Token()
	if err == nil {
		t.Fatal("expected error, got nil")
	}

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeUnauthenticated {
		t.Errorf("expected UNAUTHENTICATED error, got %v", err)
	}
}

func TestService_Current_ExpiredSession_ReturnsNil(t *testing.T) {
	client := &mockIdentityClient{
		signInFn: func(ctx context.Context, email, password string) (*identity.Account, error) {
			return &identity.Account{
				UID:       "uid-1",
				Email:     email,
				IDToken:   "token-abc",
				ExpiresAt: time.Now().Add(-time.Minute),
			}, nil
		},
	}
	service := NewService(client, ServiceConfig{SessionMaxAge: 3600})

	if _, err := service.SignIn(context.Background(), "user@example.com", "secret123"); err != nil {
		t.Fatalf("SignIn returned error: %v", err)
	}

	if service.Current() != nil {
		t.Error("expected nil for expired session")
	}
}

func TestService_FindSession(t *testing.T) {
	service, session := signedInService(t)

	if found := service.FindSession(session.ID); found == nil {
		t.Error("expected to find active session by ID")
	}
	if found := service.FindSession("unknown-id"); found != nil {
		t.Error("expected nil for unknown session ID")
	}

	service.SignOut()
	if found := service.FindSession(session.ID); found != nil {
		t.Error("expected nil after sign out")
	}
}

// TestService_Subscribe_DeliversCurrentStateImmediately は購読開始時点の
// 状態が即座に通知されることを検証する。
func TestService_Subscribe_DeliversCurrentStateImmediately(t *testing.T) {
	service := NewService(&mockIdentityClient{}, ServiceConfig{SessionMaxAge: 3600})

	var got []*model.User
	service.Subscribe(func(u *model.User) {
		got = append(got, u)
	})

	if len(got) != 1 {
		t.Fatalf("expected 1 immediate notification, got %d", len(got))
	}
	if got[0] != nil {
		t.Errorf("expected nil user before sign in, got %v", got[0])
	}
}

func TestService_Subscribe_NotifiesOnTransitions(t *testing.T) {
	client := &mockIdentityClient{
		signInFn: func(ctx context.Context, email, password string) (*identity.Account, error) {
			return validAccount(), nil
		},
	}
	service := NewService(client, ServiceConfig{SessionMaxAge: 3600})

	var got []*model.User
	service.Subscribe(func(u *model.User) {
		got = append(got, u)
	})

	if _, err := service.SignIn(context.Background(), "user@example.com", "secret123"); err != nil {
		t.Fatalf("SignIn returned error: %v", err)
	}
	service.SignOut()

	// 即時通知(nil) → サインイン(user) → サインアウト(nil)
	if len(got) != 3 {
		t.Fatalf("expected 3 notifications, got %d", len(got))
	}
	if got[0] != nil {
		t.Errorf("notification[0] = %v, want nil", got[0])
	}
	if got[1] == nil || got[1].UID != "uid-1" {
		t.Errorf("notification[1] = %v, want user uid-1", got[1])
	}
	if got[2] != nil {
		t.Errorf("notification[2] = %v, want nil", got[2])
	}
}

func TestService_Subscribe_Unsubscribe_StopsNotifications(t *testing.T) {
	client := &mockIdentityClient{
		signInFn: func(ctx context.Context, email, password string) (*identity.Account, error) {
			return validAccount(), nil
		},
	}
	service := NewService(client, ServiceConfig{SessionMaxAge: 3600})

	count := 0
	unsubscribe := service.Subscribe(func(u *model.User) {
		count++
	})
	unsubscribe()

	if _, err := service.SignIn(context.Background(), "user@example.com", "secret123"); err != nil {
		t.Fatalf("SignIn returned error: %v", err)
	}

	if count != 1 {
		t.Errorf("expected only the immediate notification, got %d", count)
	}
}

// TestService_Subscribe_CallbackCanUseService はコールバック内から
// Serviceのメソッドを呼んでもデッドロックしないことを検証する。
func TestService_Subscribe_CallbackCanUseService(t *testing.T) {
	client := &mockIdentityClient{
		signInFn: func(ctx context.Context, email, password string) (*identity.Account, error) {
			return validAccount(), nil
		},
	}
	service := NewService(client, ServiceConfig{SessionMaxAge: 3600})

	var tokenErr error
	service.Subscribe(func(u *model.User) {
		if u != nil {
			_, tokenErr = service.Token()
		}
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		if _, err := service.SignIn(context.Background(), "user@example.com", "secret123"); err != nil {
			t.Errorf("SignIn returned error: %v", err)
		}
	}()

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("sign in deadlocked while notifying subscriber")
	}

	if tokenErr != nil {
		t.Errorf("Token inside callback returned error: %v", tokenErr)
	}
}
