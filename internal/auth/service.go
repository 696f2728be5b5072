package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"net/mail"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/tanushreec24/Streaker/internal/model"
)

var (
	ErrInvalidEmail = errors.New("invalid email")
	ErrInvalidToken = errors.New("invalid sign-in token")
	ErrTokenExpired = errors.New("sign-in token expired")
)

const linkTokenPurpose = "magic-link"

// Options configure the auth service; zero values fall back to defaults.
type Options struct {
	SigningKey []byte // required: HMAC key for magic-link tokens
	BaseURL    string // public base URL the sign-in link points at
	CookieName string
	LinkTTL    time.Duration
	SessionTTL time.Duration

	// CookieSecure forces the Secure cookie attribute; when nil it is
	// inferred from TLS / X-Forwarded-Proto per request.
	CookieSecure *bool
}

type Service struct {
	repo   Repo
	logger *log.Logger

	signingKey   []byte
	baseURL      string
	cookieName   string
	linkTTL      time.Duration
	sessionTTL   time.Duration
	cookieSecure *bool
}

func NewService(repo Repo, logger *log.Logger, opts Options) *Service {
	if logger == nil {
		logger = log.Default()
	}
	if opts.CookieName == "" {
		opts.CookieName = "streaker_session"
	}
	if opts.LinkTTL <= 0 {
		opts.LinkTTL = 15 * time.Minute
	}
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = 30 * 24 * time.Hour
	}
	if opts.BaseURL == "" {
		opts.BaseURL = "http://localhost:8080"
	}
	return &Service{
		repo:         repo,
		logger:       logger,
		signingKey:   opts.SigningKey,
		baseURL:      strings.TrimRight(opts.BaseURL, "/"),
		cookieName:   opts.CookieName,
		linkTTL:      opts.LinkTTL,
		sessionTTL:   opts.SessionTTL,
		cookieSecure: opts.CookieSecure,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateEmail(email string) error {
	if email == "" {
		return ErrInvalidEmail
	}
	addr, err := mail.ParseAddress(email)
	if err != nil {
		return ErrInvalidEmail
	}
	if strings.ToLower(addr.Address) != email {
		return ErrInvalidEmail
	}
	return nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func generateSessionToken() (string, error) {
	var b [32]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b[:]), nil
}

type linkClaims struct {
	Purpose string `json:"purpose"`
	jwt.RegisteredClaims
}

// RequestLink mints a signed magic-link token for the email and returns the
// full sign-in URL. Delivery is the caller's concern (mail sender, or the
// log in development).
func (s *Service) RequestLink(email string, now time.Time) (link string, expiresAt time.Time, err error) {
	email = normalizeEmail(email)
	if err := validateEmail(email); err != nil {
		return "", time.Time{}, err
	}

	expiresAt = now.Add(s.linkTTL)
	claims := linkClaims{
		Purpose: linkTokenPurpose,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.signingKey)
	if err != nil {
		return "", time.Time{}, err
	}

	link = s.baseURL + "/api/auth/verify?token=" + url.QueryEscape(token)
	return link, expiresAt, nil
}

// VerifyLink validates a magic-link token, resolves (or creates) the profile,
// and opens a session. The opaque session token is returned for the cookie;
// only its SHA-256 hash is stored.
func (s *Service) VerifyLink(token string, now time.Time) (model.Profile, string, time.Time, error) {
	claims := &linkClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return s.signingKey, nil
	}, jwt.WithValidMethods([]string{"HS256"}), jwt.WithTimeFunc(func() time.Time { return now }))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return model.Profile{}, "", time.Time{}, ErrTokenExpired
		}
		return model.Profile{}, "", time.Time{}, ErrInvalidToken
	}
	if !parsed.Valid || claims.Purpose != linkTokenPurpose || claims.Subject == "" {
		return model.Profile{}, "", time.Time{}, ErrInvalidToken
	}

	u, created, err := s.repo.GetOrCreateUser(claims.Subject, now)
	if err != nil {
		return model.Profile{}, "", time.Time{}, err
	}
	if created {
		s.logger.Printf("[auth] first sign-in for %s", u.Email)
	}

	sessionToken, err := generateSessionToken()
	if err != nil {
		return model.Profile{}, "", time.Time{}, err
	}

	exp := now.Add(s.sessionTTL)
	sess := Session{
		ID:        newID("sess"),
		UserID:    u.ID,
		TokenHash: hashToken(sessionToken),
		CreatedAt: now,
		LastSeen:  now,
		ExpiresAt: exp,
	}
	if err := s.repo.CreateSession(sess); err != nil {
		return model.Profile{}, "", time.Time{}, err
	}
	return u, sessionToken, exp, nil
}

func (s *Service) AuthenticateRequest(r *http.Request, now time.Time) (model.Profile, Session, bool) {
	cookie, err := r.Cookie(s.cookieName)
	if err != nil || cookie.Value == "" {
		return model.Profile{}, Session{}, false
	}

	sess, ok := s.repo.GetSessionByTokenHash(hashToken(cookie.Value))
	if !ok {
		return model.Profile{}, Session{}, false
	}

	if now.After(sess.ExpiresAt) {
		_ = s.repo.DeleteSessionByID(sess.ID)
		return model.Profile{}, Session{}, false
	}

	u, ok := s.repo.GetUserByID(sess.UserID)
	if !ok {
		_ = s.repo.DeleteSessionByID(sess.ID)
		return model.Profile{}, Session{}, false
	}

	// Best-effort last-seen update, throttled to reduce writes.
	if now.Sub(sess.LastSeen) >= 5*time.Minute {
		_ = s.repo.TouchSession(sess.ID, now)
		sess.LastSeen = now
	}

	return u, sess, true
}

func (s *Service) RevokeSessionForRequest(r *http.Request) {
	cookie, err := r.Cookie(s.cookieName)
	if err != nil || cookie.Value == "" {
		return
	}
	_ = s.repo.DeleteSessionByTokenHash(hashToken(cookie.Value))
}

func (s *Service) shouldUseSecureCookie(r *http.Request) bool {
	if s.cookieSecure != nil {
		return *s.cookieSecure
	}
	if r.TLS != nil {
		return true
	}
	return strings.EqualFold(strings.TrimSpace(r.Header.Get("X-Forwarded-Proto")), "https")
}

func (s *Service) SetSessionCookie(w http.ResponseWriter, r *http.Request, token string, expiresAt time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.cookieName,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		Secure:   s.shouldUseSecureCookie(r),
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Service) ClearSessionCookie(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.cookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.shouldUseSecureCookie(r),
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Service) RequireAPI(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, sess, ok := s.AuthenticateRequest(r, time.Now())
		if !ok {
			w.Header().Set("Content-Type", "application/json; charset=utf-8")
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]any{"error": "unauthorized"})
			return
		}
		ctx := withSessionContext(withUserContext(r.Context(), u), sess)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
