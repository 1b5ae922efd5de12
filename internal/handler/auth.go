package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// Principal is the authenticated caller, resolved once per request.
type Principal struct {
	UserID string
	Email  string
	Admin  bool
}

type principalKey struct{}

// PrincipalFrom returns the caller attached by Authenticator.Middleware.
func PrincipalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}

// Authenticator validates HMAC-signed bearer tokens. A caller is an admin
// when the token carries an admin role or the email is on the allow-list.
type Authenticator struct {
	secret       []byte
	isAdminEmail func(string) bool
}

// NewAuthenticator builds an Authenticator. isAdminEmail may be nil.
func NewAuthenticator(secret string, isAdminEmail func(string) bool) *Authenticator {
	if isAdminEmail == nil {
		isAdminEmail = func(string) bool { return false }
	}
	return &Authenticator{secret: []byte(secret), isAdminEmail: isAdminEmail}
}

// Middleware attaches a Principal when a valid bearer token is present.
// Requests without an Authorization header pass through anonymously; a
// malformed or invalid token is rejected.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			next.ServeHTTP(w, r)
			return
		}
		if !strings.HasPrefix(header, "Bearer ") {
			writeError(w, http.StatusUnauthorized, "no bearer token")
			return
		}
		p, err := a.principal(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), principalKey{}, p)))
	})
}

func (a *Authenticator) principal(raw string) (Principal, error) {
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}))
	if err != nil {
		return Principal{}, err
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return Principal{}, errors.New("token has no subject")
	}
	email, _ := claims["email"].(string)
	return Principal{
		UserID: sub,
		Email:  email,
		Admin:  hasAdminRole(claims) || a.isAdminEmail(email),
	}, nil
}

// hasAdminRole accepts "role": "admin" as well as "roles" given as a string
// or a list.
func hasAdminRole(claims jwt.MapClaims) bool {
	isAdmin := func(s string) bool { return strings.EqualFold(s, "admin") }
	if role, ok := claims["role"].(string); ok && isAdmin(role) {
		return true
	}
	switch roles := claims["roles"].(type) {
	case string:
		return isAdmin(roles)
	case []any:
		for _, r := range roles {
			if s, ok := r.(string); ok && isAdmin(s) {
				return true
			}
		}
	}
	return false
}

// RequireUser rejects anonymous requests.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := PrincipalFrom(r.Context()); !ok {
			writeError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin rejects callers without the admin capability.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := PrincipalFrom(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		if !p.Admin {
			writeError(w, http.StatusForbidden, "admin access only")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// userID returns the caller id; routes using it sit behind RequireUser.
func userID(r *http.Request) string {
	p, _ := PrincipalFrom(r.Context())
	return p.UserID
}
