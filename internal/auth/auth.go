// Package auth resolves the acting user of a request. The identity comes
// from a bearer token when a signing secret is configured, otherwise from
// a trusted header set by the fronting proxy.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"teamfinance/internal/core"
	"teamfinance/internal/log"
)

// DefaultHeader carries the user id when no token secret is configured.
const DefaultHeader = "X-User-ID"

type contextKey struct{}

var (
	ErrMissingToken = errors.New("missing bearer token")
	ErrInvalidToken = errors.New("invalid token")
)

// Config selects how identities are resolved.
type Config struct {
	Header   string
	Secret   string
	Issuer   string
	Audience string
}

// Authenticator extracts user ids from requests.
type Authenticator struct {
	cfg    Config
	parser *jwt.Parser
	logger *log.Logger
}

func New(cfg Config, logger *log.Logger) *Authenticator {
	if cfg.Header == "" {
		cfg.Header = DefaultHeader
	}
	if logger == nil {
		logger = log.Discard()
	}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(30 * time.Second),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(cfg.Audience))
	}
	return &Authenticator{
		cfg:    cfg,
		parser: jwt.NewParser(opts...),
		logger: logger.WithComponent(log.ComponentAuth),
	}
}

// UsesTokens reports whether bearer tokens are required.
func (a *Authenticator) UsesTokens() bool {
	return a.cfg.Secret != ""
}

// Identify returns the user id of r, or core.ErrMissingIdentity.
func (a *Authenticator) Identify(r *http.Request) (string, error) {
	if !a.UsesTokens() {
		user := strings.TrimSpace(r.Header.Get(a.cfg.Header))
		if user == "" {
			return "", core.ErrMissingIdentity
		}
		return user, nil
	}

	raw, ok := bearerToken(r)
	if !ok {
		return "", fmt.Errorf("%w: %w", core.ErrMissingIdentity, ErrMissingToken)
	}
	return a.ParseToken(raw)
}

// ParseToken validates an HS256 token and returns its subject.
func (a *Authenticator) ParseToken(raw string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := a.parser.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return []byte(a.cfg.Secret), nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w: %v", core.ErrMissingIdentity, ErrInvalidToken, err)
	}
	sub := strings.TrimSpace(claims.Subject)
	if sub == "" {
		return "", fmt.Errorf("%w: %w: empty subject", core.ErrMissingIdentity, ErrInvalidToken)
	}
	return sub, nil
}

// IssueToken signs a token for userID. Used by the admin CLI and tests.
func (a *Authenticator) IssueToken(userID string, ttl time.Duration, now time.Time) (string, error) {
	if !a.UsesTokens() {
		return "", errors.New("no token secret configured")
	}
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		Issuer:    a.cfg.Issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	if a.cfg.Audience != "" {
		claims.Audience = jwt.ClaimStrings{a.cfg.Audience}
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(a.cfg.Secret))
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// Middleware stores the resolved user in the request context. Requests
// without a valid identity are handed to onFail.
func (a *Authenticator) Middleware(onFail func(http.ResponseWriter, *http.Request, error)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, err := a.Identify(r)
			if err != nil {
				a.logger.DebugContext(r.Context(), "Request rejected", log.FieldError, err, log.FieldPath, r.URL.Path)
				onFail(w, r, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

func WithUser(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, contextKey{}, userID)
}

// UserFromContext returns the user stored by Middleware.
func UserFromContext(ctx context.Context) (string, bool) {
	user, ok := ctx.Value(contextKey{}).(string)
	return user, ok && user != ""
}
