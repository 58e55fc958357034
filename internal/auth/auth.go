package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"callscribe/internal/model"
	"callscribe/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrInvalidCredentials is returned for an unknown username or a
	// wrong password. The two cases are deliberately indistinguishable.
	ErrInvalidCredentials = errors.New("incorrect username or password")

	// ErrInvalidToken is returned for malformed, forged, or expired
	// bearer tokens.
	ErrInvalidToken = errors.New("invalid or expired token")
)

// TokenResponse is the issued bearer token and its type.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// Gateway checks credentials and issues/validates bearer tokens.
type Gateway struct {
	creds  repository.CredentialRepository
	secret []byte
	method jwt.SigningMethod
	expiry time.Duration
	log    *zap.Logger
}

// NewGateway builds the auth gateway. algorithm must be one of HS256,
// HS384, HS512; expiry is the fixed token lifetime from issuance.
func NewGateway(creds repository.CredentialRepository, secretKey, algorithm string, expiry time.Duration, log *zap.Logger) (*Gateway, error) {
	var method jwt.SigningMethod
	switch algorithm {
	case "HS256":
		method = jwt.SigningMethodHS256
	case "HS384":
		method = jwt.SigningMethodHS384
	case "HS512":
		method = jwt.SigningMethodHS512
	default:
		return nil, fmt.Errorf("unsupported signing algorithm: %s", algorithm)
	}

	return &Gateway{
		creds:  creds,
		secret: []byte(secretKey),
		method: method,
		expiry: expiry,
		log:    log,
	}, nil
}

// Authenticate verifies a username/password pair against the stored
// bcrypt hash.
func (g *Gateway) Authenticate(ctx context.Context, username, password string) (*model.Credential, error) {
	cred, err := g.creds.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrCredentialNotFound) {
			g.log.Warn("authentication failed: unknown user", zap.String("username", username))
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(cred.HashedPassword), []byte(password)); err != nil {
		g.log.Warn("authentication failed: wrong password", zap.String("username", username))
		return nil, ErrInvalidCredentials
	}

	return cred, nil
}

// IssueToken signs a bearer token for the credential, expiring a fixed
// duration from now.
func (g *Gateway) IssueToken(cred *model.Credential) (TokenResponse, error) {
	now := time.Now()
	token := jwt.NewWithClaims(g.method, jwt.MapClaims{
		"sub": cred.Username,
		"iat": now.Unix(),
		"exp": now.Add(g.expiry).Unix(),
	})

	signed, err := token.SignedString(g.secret)
	if err != nil {
		return TokenResponse{}, fmt.Errorf("failed to sign token: %w", err)
	}

	return TokenResponse{AccessToken: signed, TokenType: "bearer"}, nil
}

// ValidateToken checks signature and expiry and returns the subject
// username.
func (g *Gateway) ValidateToken(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != g.method.Alg() {
			return nil, fmt.Errorf("unexpected signing method: %s", t.Method.Alg())
		}
		return g.secret, nil
	})
	if err != nil || !token.Valid {
		return "", ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", ErrInvalidToken
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return "", ErrInvalidToken
	}

	return sub, nil
}

// HashPassword produces a bcrypt hash for credential provisioning.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}
