package auth

import (
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"
)

func newAuthServiceForTests(t *testing.T) *Service {
	t.Helper()
	return NewService(NewMemoryRepo(), log.New(io.Discard, "", 0), Options{
		SigningKey: []byte("test-signing-key"),
		BaseURL:    "http://localhost:8080",
	})
}

func linkToken(t *testing.T, link string) string {
	t.Helper()
	u, err := url.Parse(link)
	if err != nil {
		t.Fatalf("parse link %q: %v", link, err)
	}
	token := u.Query().Get("token")
	if token == "" {
		t.Fatalf("link %q has no token", link)
	}
	return token
}

func TestService_RequestLink_RejectsInvalidEmail(t *testing.T) {
	svc := newAuthServiceForTests(t)
	now := time.Date(2026, 2, 7, 9, 0, 0, 0, time.UTC)

	for _, email := range []string{"", "not-an-email", "two@@example.com", "a b@example.com"} {
		if _, _, err := svc.RequestLink(email, now); err != ErrInvalidEmail {
			t.Fatalf("email %q: expected ErrInvalidEmail, got %v", email, err)
		}
	}
}

func TestService_VerifyLink_SignsInAndCreatesProfile(t *testing.T) {
	svc := newAuthServiceForTests(t)
	now := time.Date(2026, 2, 7, 9, 0, 0, 0, time.UTC)

	link, exp, err := svc.RequestLink("Tester@Example.com", now)
	if err != nil {
		t.Fatalf("request link: %v", err)
	}
	if !strings.HasPrefix(link, "http://localhost:8080/api/auth/verify?token=") {
		t.Fatalf("unexpected link: %q", link)
	}
	if got, want := exp, now.Add(15*time.Minute); !got.Equal(want) {
		t.Fatalf("expected link expiry %s, got %s", want, got)
	}

	u, token, _, err := svc.VerifyLink(linkToken(t, link), now.Add(time.Minute))
	if err != nil {
		t.Fatalf("verify link: %v", err)
	}
	if u.Email != "tester@example.com" {
		t.Fatalf("expected lowercased email, got %q", u.Email)
	}
	if token == "" {
		t.Fatalf("expected a session token")
	}
	if _, ok := svc.repo.GetSessionByTokenHash(hashToken(token)); !ok {
		t.Fatalf("expected session stored under its hash")
	}

	// A second sign-in resolves the same profile.
	link2, _, err := svc.RequestLink("tester@example.com", now.Add(time.Hour))
	if err != nil {
		t.Fatalf("request second link: %v", err)
	}
	u2, _, _, err := svc.VerifyLink(linkToken(t, link2), now.Add(time.Hour))
	if err != nil {
		t.Fatalf("verify second link: %v", err)
	}
	if u2.ID != u.ID {
		t.Fatalf("expected same profile on repeat sign-in, got %q vs %q", u2.ID, u.ID)
	}
}

func TestService_VerifyLink_ExpiredToken(t *testing.T) {
	svc := newAuthServiceForTests(t)
	now := time.Date(2026, 2, 7, 9, 0, 0, 0, time.UTC)

	link, _, err := svc.RequestLink("late@example.com", now)
	if err != nil {
		t.Fatalf("request link: %v", err)
	}
	if _, _, _, err := svc.VerifyLink(linkToken(t, link), now.Add(16*time.Minute)); err != ErrTokenExpired {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestService_VerifyLink_RejectsGarbageAndWrongKey(t *testing.T) {
	svc := newAuthServiceForTests(t)
	now := time.Date(2026, 2, 7, 9, 0, 0, 0, time.UTC)

	if _, _, _, err := svc.VerifyLink("not-a-jwt", now); err != ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken for garbage, got %v", err)
	}

	other := NewService(NewMemoryRepo(), log.New(io.Discard, "", 0), Options{
		SigningKey: []byte("a-different-key"),
	})
	link, _, err := other.RequestLink("forged@example.com", now)
	if err != nil {
		t.Fatalf("request link: %v", err)
	}
	if _, _, _, err := svc.VerifyLink(linkToken(t, link), now); err != ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken for wrong key, got %v", err)
	}
}

func TestService_AuthenticateRequest_ExpiredSessionIsRejected(t *testing.T) {
	svc := newAuthServiceForTests(t)
	now := time.Date(2026, 2, 7, 10, 0, 0, 0, time.UTC)

	link, _, err := svc.RequestLink("expired@example.com", now)
	if err != nil {
		t.Fatalf("request link: %v", err)
	}
	u, token, exp, err := svc.VerifyLink(linkToken(t, link), now.Add(time.Minute))
	if err != nil {
		t.Fatalf("verify link: %v", err)
	}
	if u.Email != "expired@example.com" {
		t.Fatalf("unexpected user: %+v", u)
	}

	req := httptest.NewRequest("GET", "/api/auth/session", nil)
	req.AddCookie(&http.Cookie{Name: svc.cookieName, Value: token})

	if _, _, ok := svc.AuthenticateRequest(req, exp.Add(time.Second)); ok {
		t.Fatalf("expected expired session to be rejected")
	}
	if _, ok := svc.repo.GetSessionByTokenHash(hashToken(token)); ok {
		t.Fatalf("expected expired session to be removed from repo")
	}
}

func TestService_Logout_RevokesSession(t *testing.T) {
	svc := newAuthServiceForTests(t)
	now := time.Date(2026, 2, 7, 11, 0, 0, 0, time.UTC)

	link, _, err := svc.RequestLink("leaver@example.com", now)
	if err != nil {
		t.Fatalf("request link: %v", err)
	}
	_, token, _, err := svc.VerifyLink(linkToken(t, link), now)
	if err != nil {
		t.Fatalf("verify link: %v", err)
	}

	req := httptest.NewRequest("POST", "/api/auth/logout", nil)
	req.AddCookie(&http.Cookie{Name: svc.cookieName, Value: token})
	svc.RevokeSessionForRequest(req)

	if _, _, ok := svc.AuthenticateRequest(req, now.Add(time.Second)); ok {
		t.Fatalf("expected revoked session to be rejected")
	}
}

func TestService_SetSessionCookie_InfersSecureFromForwardedProto(t *testing.T) {
	svc := newAuthServiceForTests(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "http://app.example.com/api/auth/verify", nil)
	req.Header.Set("X-Forwarded-Proto", "https")
	svc.SetSessionCookie(w, req, "token-123", time.Now().Add(time.Hour))

	cookies := w.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("expected one cookie set, got %d", len(cookies))
	}
	c := cookies[0]
	if !c.Secure {
		t.Fatalf("expected Secure cookie behind https proxy")
	}
	if !c.HttpOnly {
		t.Fatalf("expected HttpOnly cookie")
	}
	if c.SameSite != http.SameSiteLaxMode {
		t.Fatalf("expected Lax same-site, got %v", c.SameSite)
	}
}
