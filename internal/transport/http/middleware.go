package http

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"quiz-leaderboard-service/internal/domain"
)

type contextKey int

const userKey contextKey = iota

// UserFrom returns the identity attached by the Authenticator.
func UserFrom(ctx context.Context) (domain.User, bool) {
	user, ok := ctx.Value(userKey).(domain.User)
	return user, ok
}

// identityClaims is the token payload: sub carries the numeric user id.
type identityClaims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// Authenticator verifies HS256 bearer tokens. Tokens are issued elsewhere.
type Authenticator struct {
	secret []byte
}

func NewAuthenticator(secret string) *Authenticator {
	return &Authenticator{secret: []byte(secret)}
}

// Parse validates a raw token and returns the identity it carries.
func (a *Authenticator) Parse(raw string) (domain.User, error) {
	claims := &identityClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil || !token.Valid {
		return domain.User{}, fmt.Errorf("%w: invalid token: %v", errUnauthorized, err)
	}
	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || id <= 0 {
		return domain.User{}, fmt.Errorf("%w: token subject is not a user id", errUnauthorized)
	}
	if claims.Username == "" {
		return domain.User{}, fmt.Errorf("%w: token has no username", errUnauthorized)
	}
	return domain.User{ID: id, Username: claims.Username}, nil
}

// Require rejects requests without a valid token.
func (a *Authenticator) Require(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := tokenFrom(r)
		if raw == "" {
			writeError(w, r, errUnauthorized)
			return
		}
		user, err := a.Parse(raw)
		if err != nil {
			writeError(w, r, err)
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), userKey, user)))
	})
}

// Optional attaches the identity when a valid token is present and passes
// anonymous requests through unchanged.
func (a *Authenticator) Optional(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if raw := tokenFrom(r); raw != "" {
			if user, err := a.Parse(raw); err == nil {
				r = r.WithContext(context.WithValue(r.Context(), userKey, user))
			}
		}
		next(w, r)
	})
}

// tokenFrom reads the bearer token, falling back to the token query
// parameter that browser websocket clients have to use.
func tokenFrom(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer"))
	}
	return r.URL.Query().Get("token")
}

func mustUser(r *http.Request) (domain.User, error) {
	user, ok := UserFrom(r.Context())
	if !ok {
		return domain.User{}, errUnauthorized
	}
	return user, nil
}

// statusRecorder keeps the response status for the access log.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Hijack lets websocket upgrades pass through the access log.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return hj.Hijack()
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", requestID)

		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		log.Printf("%s %s %d %s request_id=%s", r.Method, r.URL.Path, rec.status, time.Since(start), requestID)
	})
}
