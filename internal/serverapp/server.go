// Package serverapp assembles the HTTP application: storage, auth, the habit
// and focus APIs, reminders, and the static frontend, behind the shared
// middleware chain.
package serverapp

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/tanushreec24/Streaker/internal/auth"
	"github.com/tanushreec24/Streaker/internal/config"
	"github.com/tanushreec24/Streaker/internal/focus"
	"github.com/tanushreec24/Streaker/internal/habit"
	"github.com/tanushreec24/Streaker/internal/httpmw"
	"github.com/tanushreec24/Streaker/internal/profile"
	"github.com/tanushreec24/Streaker/internal/reminder"
	"github.com/tanushreec24/Streaker/internal/storage"
	"github.com/tanushreec24/Streaker/internal/telemetry"
	staticfiles "github.com/tanushreec24/Streaker/static"
)

type Options struct {
	Config *config.Config

	// DB overrides the database opened from Config.DatabasePath; tests pass
	// an in-memory handle here.
	DB *sql.DB

	StaticDir     string
	UseDiskStatic bool
	Logger        *log.Logger
}

// App owns the assembled handler plus the background pieces that outlive a
// single request.
type App struct {
	Handler http.Handler

	db        *sql.DB
	ownsDB    bool
	reminders *reminder.Service
	logger    *log.Logger
}

func New(opts Options) (*App, error) {
	if opts.Config == nil {
		return nil, errors.New("config is required")
	}
	cfg := opts.Config
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if strings.TrimSpace(opts.StaticDir) == "" {
		opts.StaticDir = "static"
	}

	db := opts.DB
	ownsDB := false
	if db == nil {
		var err error
		db, err = storage.Open(cfg.DatabasePath)
		if err != nil {
			return nil, err
		}
		ownsDB = true
	}

	signingKey := []byte(cfg.Auth.SigningKey)
	if len(signingKey) == 0 {
		signingKey = make([]byte, 32)
		if _, err := rand.Read(signingKey); err != nil {
			return nil, err
		}
		opts.Logger.Printf("[auth] no signing key configured; using a random per-process key, sign-in links will not survive a restart")
	}

	events := telemetry.NewMemoryRepository()

	var mailSender reminder.Sender
	if cfg.SMTP.Addr != "" {
		mailSender = &reminder.SMTPSender{
			Addr:     cfg.SMTP.Addr,
			From:     cfg.SMTP.From,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
		}
	}

	mux := http.NewServeMux()

	staticHandler := http.FileServer(http.FS(staticfiles.EmbeddedFS()))
	if opts.UseDiskStatic {
		staticHandler = http.FileServer(http.Dir(opts.StaticDir))
	}
	mux.Handle("/static/", http.StripPrefix("/static/", staticHandler))
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		serveIndex(w, r, opts)
	})

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"ok":      true,
			"service": "streaker",
			"time":    time.Now().UTC().Format(time.RFC3339),
		})
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if err := db.Ping(); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{
				"ok":    false,
				"error": "database unavailable",
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"ok":      true,
			"service": "streaker",
			"time":    time.Now().UTC().Format(time.RFC3339),
		})
	})

	authRepo := auth.NewSQLiteRepo(db)
	authService := auth.NewService(authRepo, opts.Logger, auth.Options{
		SigningKey: signingKey,
		BaseURL:    cfg.BaseURL,
		CookieName: cfg.Auth.CookieName,
		LinkTTL:    time.Duration(cfg.Auth.LinkTTLMinutes) * time.Minute,
		SessionTTL: time.Duration(cfg.Auth.SessionTTLHours) * time.Hour,
	})
	var authMail auth.MailSender
	if mailSender != nil {
		authMail = mailSender
	}
	authHandler := auth.NewHandler(authService, authMail)
	authHandler.SetEventRepository(events)
	mux.HandleFunc("/api/auth/request-link", authHandler.RequestLink)
	mux.HandleFunc("/api/auth/verify", authHandler.Verify)
	mux.HandleFunc("/api/auth/session", authHandler.Session)
	mux.HandleFunc("/api/auth/logout", authHandler.Logout)

	profileRepo := profile.NewSQLiteRepo(db)
	profileHandler := profile.NewHandler(profileRepo)
	profileHandler.SetUserResolver(func(r *http.Request) (string, bool) {
		u, ok := auth.UserFromContext(r.Context())
		if !ok {
			return "", false
		}
		return u.ID, true
	})
	mux.Handle("/api/profile", authService.RequireAPI(http.HandlerFunc(profileHandler.ProfileRoot)))

	habitRepo := habit.NewSQLiteRepo(db)
	habitHandler := habit.NewHandler(habitRepo)
	habitHandler.SetEventRepository(events)
	habitHandler.SetRepoResolver(func(r *http.Request) habit.Repo {
		u, ok := auth.UserFromContext(r.Context())
		if !ok {
			return habitRepo
		}
		return habitRepo.ForUser(u.ID)
	})
	habitHandler.SetLocationResolver(func(r *http.Request) *time.Location {
		u, ok := auth.UserFromContext(r.Context())
		if !ok {
			return time.UTC
		}
		return u.Location()
	})
	habitHandler.SetShareRepo(habitRepo)
	mux.Handle("/api/habits", authService.RequireAPI(http.HandlerFunc(habitHandler.HabitsRoot)))
	mux.Handle("/api/habits/stats", authService.RequireAPI(http.HandlerFunc(habitHandler.BatchStats)))
	mux.Handle("/api/habits/", authService.RequireAPI(http.HandlerFunc(habitHandler.HabitsSub)))
	mux.Handle("/api/entries", authService.RequireAPI(http.HandlerFunc(habitHandler.EntriesRoot)))

	// Public share links: /u/{username}/{habitName} serves the app shell, the
	// JSON underneath requires no session.
	mux.HandleFunc("/api/public/habits/", habitHandler.PublicHabit)
	mux.HandleFunc("/u/", func(w http.ResponseWriter, r *http.Request) {
		serveIndex(w, r, opts)
	})

	focusRepo := focus.NewSQLiteRepo(db)
	focusHandler := focus.NewHandler(focusRepo)
	focusHandler.SetEventRepository(events)
	focusHandler.SetRepoResolver(func(r *http.Request) focus.Repo {
		u, ok := auth.UserFromContext(r.Context())
		if !ok {
			return focusRepo
		}
		return focusRepo.ForUser(u.ID)
	})
	mux.Handle("/api/focus/sessions", authService.RequireAPI(http.HandlerFunc(focusHandler.SessionsRoot)))
	mux.Handle("/api/focus/sessions/total", authService.RequireAPI(http.HandlerFunc(focusHandler.Total)))

	mux.Handle("/api/admin/stats", authService.RequireAPI(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeJSON(w, http.StatusMethodNotAllowed, map[string]any{"error": "method not allowed"})
			return
		}
		now := time.Now()
		since := now.AddDate(0, 0, -7)
		evs, err := events.GetEvents(since, nil)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]any{"error": err.Error()})
			return
		}
		stats, err := telemetry.CalculateStats(evs, since, now)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]any{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, stats)
	})))

	app := &App{
		db:     db,
		ownsDB: ownsDB,
		logger: opts.Logger,
	}

	if cfg.Reminder.Enabled {
		var sender reminder.Sender = &reminder.LogSender{Logger: opts.Logger}
		if mailSender != nil {
			sender = mailSender
		}
		app.reminders = reminder.NewService(reminder.NewSQLiteRepo(db), sender, opts.Logger, reminder.Options{
			Window:   time.Duration(cfg.Reminder.WindowMinutes) * time.Minute,
			Interval: time.Duration(cfg.Reminder.IntervalMinutes) * time.Minute,
		})
		app.reminders.SetEventRepository(events)
	}

	app.Handler = httpmw.Chain(
		mux,
		httpmw.WithAccessLog(opts.Logger),
		httpmw.WithRequestID,
		httpmw.WithRecover(opts.Logger),
	)
	return app, nil
}

// Start launches background work (the reminder sweep, when enabled) until the
// context is cancelled.
func (a *App) Start(ctx context.Context) {
	if a.reminders != nil {
		go a.reminders.Run(ctx)
		a.logger.Printf("[reminder] sweeps enabled")
	}
}

func (a *App) Close() error {
	if a.ownsDB {
		return a.db.Close()
	}
	return nil
}

func serveIndex(w http.ResponseWriter, r *http.Request, opts Options) {
	if opts.UseDiskStatic {
		http.ServeFile(w, r, opts.StaticDir+"/index.html")
		return
	}
	b, err := staticfiles.Index()
	if err != nil {
		http.Error(w, "index unavailable", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(b)
}

func UseDiskStaticByEnv() bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("STREAKER_DEV_STATIC"))) {
	case "1", "true", "yes":
		return true
	default:
		return false
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
