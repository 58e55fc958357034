package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"callscribe/internal/model"
	"callscribe/internal/repository"

	"go.uber.org/zap"
)

type fakeCredentials struct {
	creds map[string]*model.Credential
}

func (f *fakeCredentials) GetByUsername(_ context.Context, username string) (*model.Credential, error) {
	cred, ok := f.creds[username]
	if !ok {
		return nil, repository.ErrCredentialNotFound
	}
	return cred, nil
}

func newTestGateway(t *testing.T, expiry time.Duration) *Gateway {
	t.Helper()

	hash, err := HashPassword("s3cret")
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	repo := &fakeCredentials{creds: map[string]*model.Credential{
		"alice": {ID: 1, Username: "alice", HashedPassword: hash},
	}}

	gw, err := NewGateway(repo, "test-signing-secret", "HS256", expiry, zap.NewNop())
	if err != nil {
		t.Fatalf("failed to build gateway: %v", err)
	}
	return gw
}

func TestAuthenticateSuccess(t *testing.T) {
	gw := newTestGateway(t, time.Hour)

	cred, err := gw.Authenticate(context.Background(), "alice", "s3cret")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cred.Username != "alice" {
		t.Fatalf("unexpected credential: %#v", cred)
	}
}

func TestAuthenticateWrongPassword(t *testing.T) {
	gw := newTestGateway(t, time.Hour)

	_, err := gw.Authenticate(context.Background(), "alice", "wrong")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestAuthenticateUnknownUser(t *testing.T) {
	gw := newTestGateway(t, time.Hour)

	_, err := gw.Authenticate(context.Background(), "mallory", "s3cret")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestTokenRoundTrip(t *testing.T) {
	gw := newTestGateway(t, time.Hour)

	token, err := gw.IssueToken(&model.Credential{Username: "alice"})
	if err != nil {
		t.Fatalf("failed to issue token: %v", err)
	}
	if token.TokenType != "bearer" {
		t.Fatalf("unexpected token type: %s", token.TokenType)
	}

	username, err := gw.ValidateToken(token.AccessToken)
	if err != nil {
		t.Fatalf("failed to validate token: %v", err)
	}
	if username != "alice" {
		t.Fatalf("unexpected subject: %s", username)
	}
}

func TestExpiredTokenRejected(t *testing.T) {
	gw := newTestGateway(t, -time.Minute)

	token, err := gw.IssueToken(&model.Credential{Username: "alice"})
	if err != nil {
		t.Fatalf("failed to issue token: %v", err)
	}

	if _, err := gw.ValidateToken(token.AccessToken); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for expired token, got %v", err)
	}
}

func TestTamperedTokenRejected(t *testing.T) {
	gw := newTestGateway(t, time.Hour)

	token, err := gw.IssueToken(&model.Credential{Username: "alice"})
	if err != nil {
		t.Fatalf("failed to issue token: %v", err)
	}

	tampered := token.AccessToken[:len(token.AccessToken)-2] + "xx"
	if _, err := gw.ValidateToken(tampered); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for tampered token, got %v", err)
	}
}

func TestUnsupportedAlgorithmRejected(t *testing.T) {
	repo := &fakeCredentials{creds: map[string]*model.Credential{}}
	if _, err := NewGateway(repo, "secret", "RS256", time.Hour, zap.NewNop()); err == nil {
		t.Fatal("expected error for unsupported algorithm")
	}
}
