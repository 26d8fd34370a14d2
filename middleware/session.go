package middleware

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"redlink/config"
	"redlink/utils"
)

// SessionCookieName is the cookie carrying the signed session token.
const SessionCookieName = "qid"

type sessionCtxKey struct{}

// Session carries the request's authentication state and the means to change
// it. Resolvers issue and clear sessions through explicit calls instead of
// mutating a session object.
type Session struct {
	store  *utils.SessionStore
	secret string
	secure bool
	domain string
	writer http.ResponseWriter

	token  string
	userID uint
	authed bool
}

// SessionMiddleware resolves the session cookie into the request context. An
// invalid signature or unknown token leaves the request anonymous.
func SessionMiddleware(store *utils.SessionStore, cfg config.AppConfig) gin.HandlerFunc {
	secure := cfg.Env == "production"
	return func(c *gin.Context) {
		sess := &Session{
			store:  store,
			secret: cfg.SessionSecret,
			secure: secure,
			domain: cfg.CookieDomain,
			writer: c.Writer,
		}
		if raw, err := c.Cookie(SessionCookieName); err == nil {
			if token, ok := verifyCookie(raw, cfg.SessionSecret); ok {
				if id, found, err := store.Get(c.Request.Context(), token); err == nil && found {
					sess.token = token
					sess.userID = id
					sess.authed = true
				}
			}
		}
		ctx := context.WithValue(c.Request.Context(), sessionCtxKey{}, sess)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// FromContext returns the request's session handle, or nil outside the
// session middleware.
func FromContext(ctx context.Context) *Session {
	s, _ := ctx.Value(sessionCtxKey{}).(*Session)
	return s
}

// CurrentUserID returns the authenticated user's id for this request.
func CurrentUserID(ctx context.Context) (uint, bool) {
	if s := FromContext(ctx); s != nil && s.authed {
		return s.userID, true
	}
	return 0, false
}

// Issue creates a server-side session record for the user and attaches the
// signed token cookie to the response.
func (s *Session) Issue(ctx context.Context, userID uint) error {
	token, err := s.store.Issue(ctx, userID)
	if err != nil {
		return err
	}
	s.token = token
	s.userID = userID
	s.authed = true
	s.setCookie(signCookie(token, s.secret), int(utils.SessionTTL/time.Second))
	return nil
}

// Clear destroys the server-side session record and expires the cookie.
// Returns false when the record could not be destroyed.
func (s *Session) Clear(ctx context.Context) bool {
	if s.token != "" {
		if err := s.store.Destroy(ctx, s.token); err != nil {
			return false
		}
	}
	s.token = ""
	s.userID = 0
	s.authed = false
	s.setCookie("", -1)
	return true
}

func (s *Session) setCookie(value string, maxAge int) {
	http.SetCookie(s.writer, &http.Cookie{
		Name:     SessionCookieName,
		Value:    value,
		Path:     "/",
		Domain:   s.domain,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// signCookie binds the token to the session secret so a tampered cookie is
// rejected before any store lookup.
func signCookie(token, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(token))
	return token + "." + hex.EncodeToString(mac.Sum(nil))
}

func verifyCookie(raw, secret string) (string, bool) {
	i := strings.LastIndexByte(raw, '.')
	if i < 0 {
		return "", false
	}
	token, sig := raw[:i], raw[i+1:]
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(token))
	expected := hex.EncodeToString(mac.Sum(nil))
	if subtle.ConstantTimeCompare([]byte(sig), []byte(expected)) != 1 {
		return "", false
	}
	return token, true
}
