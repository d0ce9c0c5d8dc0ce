package authcore

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
)

// SessionVerifier resolves a session id or token to its subject. *Auth
// implements it.
type SessionVerifier interface {
	VerifySession(ctx context.Context, sessionIDOrToken string) (string, error)
}

type subjectKey struct{}

// ContextWithSubject returns a copy of ctx carrying the authenticated subject.
func ContextWithSubject(ctx context.Context, subject string) context.Context {
	return context.WithValue(ctx, subjectKey{}, subject)
}

// SubjectFromContext returns the subject set by Middleware, or "".
func SubjectFromContext(ctx context.Context) string {
	subject, _ := ctx.Value(subjectKey{}).(string)
	return subject
}

// Middleware extracts the session proof from a request and places the
// verified subject in the request context.
type Middleware struct {
	Verifier SessionVerifier

	// AuthTokenHeaderName defaults to "Authorization". A "Bearer " prefix is
	// stripped from its values.
	AuthTokenHeaderName string
	// AuthTokenCookieName is consulted after the header when set.
	AuthTokenCookieName string

	// GetRedirURL returns the login page for EnsureUser redirects. When nil or
	// empty, EnsureUser answers 401.
	GetRedirURL      func(r *http.Request) string
	CallbackURLParam string

	Logger *slog.Logger
}

func (m *Middleware) ensureReasonableDefaults() {
	if m.AuthTokenHeaderName == "" {
		m.AuthTokenHeaderName = "Authorization"
	}
	if m.CallbackURLParam == "" {
		m.CallbackURLParam = "callbackURL"
	}
	if m.Logger == nil {
		m.Logger = slog.Default()
	}
}

// LoggedInSubject returns the subject for r, checking the request context
// first and then every candidate token on the request.
func (m *Middleware) LoggedInSubject(r *http.Request) string {
	if subject := SubjectFromContext(r.Context()); subject != "" {
		return subject
	}
	if m.Verifier == nil {
		m.Logger.Warn("no session verifier configured")
		return ""
	}

	var tokens []string
	for _, v := range r.Header.Values(m.AuthTokenHeaderName) {
		if t := bearerToken(v); t != "" {
			tokens = append(tokens, t)
		}
	}
	if m.AuthTokenCookieName != "" {
		for _, cookie := range r.CookiesNamed(m.AuthTokenCookieName) {
			if cookie.Value != "" {
				tokens = append(tokens, cookie.Value)
			}
		}
	}

	for _, token := range tokens {
		subject, err := m.Verifier.VerifySession(r.Context(), token)
		if err != nil {
			m.Logger.WarnContext(r.Context(), "error verifying session", "error", err)
			continue
		}
		if subject != "" {
			return subject
		}
	}
	return ""
}

// ExtractUser sets the subject on the request context when one is found. It
// never rejects a request; use EnsureUser for that.
func (m *Middleware) ExtractUser(next http.Handler) http.Handler {
	m.ensureReasonableDefaults()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		subject := m.LoggedInSubject(r)
		if subject != "" {
			r = r.WithContext(ContextWithSubject(r.Context(), subject))
		}
		next.ServeHTTP(w, r)
	})
}

// EnsureUser rejects requests with no valid session, redirecting to the login
// page when GetRedirURL provides one and answering 401 otherwise.
func (m *Middleware) EnsureUser(next http.Handler) http.Handler {
	m.ensureReasonableDefaults()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		subject := m.LoggedInSubject(r)
		if subject == "" {
			redirURL := ""
			if m.GetRedirURL != nil {
				redirURL = m.GetRedirURL(r)
			}
			if redirURL != "" {
				encoded := strings.ReplaceAll(url.QueryEscape(r.URL.Path), "+", "%20")
				http.Redirect(w, r, fmt.Sprintf("%s?%s=%s", redirURL, m.CallbackURLParam, encoded), http.StatusFound)
				return
			}
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r.WithContext(ContextWithSubject(r.Context(), subject)))
	})
}

func bearerToken(v string) string {
	v = strings.TrimSpace(v)
	if len(v) > 7 && strings.EqualFold(v[:7], "bearer ") {
		return strings.TrimSpace(v[7:])
	}
	return v
}
