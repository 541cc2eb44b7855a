package httpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/fairyhunter13/ai-interview-coach/internal/domain"
)

// Claims is the JWT payload. Subject carries the user id.
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// IssueToken signs an HS256 token for userID valid for ttl.
func IssueToken(secret, userID, email string, ttl time.Duration) (string, time.Time, error) {
	expiresAt := time.Now().Add(ttl)
	claims := Claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("op=httpserver.IssueToken: %w", err)
	}
	return signed, expiresAt, nil
}

// ParseToken verifies an HS256 token and returns its claims.
func ParseToken(secret, tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("op=httpserver.ParseToken: %w: %v", domain.ErrUnauthorized, err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, fmt.Errorf("op=httpserver.ParseToken: %w: invalid claims", domain.ErrUnauthorized)
	}
	return claims, nil
}

type userIDKey struct{}

// UserIDFromContext returns the authenticated user id set by RequireAuth.
func UserIDFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(userIDKey{}).(string)
	return v, ok && v != ""
}

// RequireAuth rejects requests without a valid bearer token and stores the
// authenticated user id in the request context.
func (s *Server) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			writeError(w, r, fmt.Errorf("%w: missing bearer token", domain.ErrUnauthorized), nil)
			return
		}
		claims, err := ParseToken(s.Cfg.JWTSecret, strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		ctx := context.WithValue(r.Context(), userIDKey{}, claims.Subject)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RegisterHandler creates an account.
func (s *Server) RegisterHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
		var req struct {
			Email    string `json:"email" validate:"required,email"`
			Name     string `json:"name" validate:"required,max=200"`
			Password string `json:"password" validate:"required,min=8,max=200"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, r, fmt.Errorf("%w: invalid json", domain.ErrInvalidArgument), nil)
			return
		}
		if details, err := validateStruct(req); err != nil {
			writeError(w, r, err, details)
			return
		}
		u, err := s.Auth.Register(r.Context(), req.Email, req.Name, req.Password)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusCreated, userView{ID: u.ID, Email: u.Email, Name: u.Name})
	}
}

// LoginHandler verifies credentials and issues a token.
func (s *Server) LoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
		var req struct {
			Email    string `json:"email" validate:"required"`
			Password string `json:"password" validate:"required"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, r, fmt.Errorf("%w: invalid json", domain.ErrInvalidArgument), nil)
			return
		}
		if details, err := validateStruct(req); err != nil {
			writeError(w, r, err, details)
			return
		}
		u, err := s.Auth.Login(r.Context(), req.Email, req.Password)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		token, expiresAt, err := IssueToken(s.Cfg.JWTSecret, u.ID, u.Email, s.Cfg.JWTTTL)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"token":      token,
			"expires_at": expiresAt.UTC().Format(time.RFC3339),
			"user":       userView{ID: u.ID, Email: u.Email, Name: u.Name},
		})
	}
}

// MeHandler returns the authenticated account.
func (s *Server) MeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := UserIDFromContext(r.Context())
		if !ok {
			writeError(w, r, domain.ErrUnauthorized, nil)
			return
		}
		u, err := s.Auth.Get(r.Context(), userID)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, userView{ID: u.ID, Email: u.Email, Name: u.Name})
	}
}
