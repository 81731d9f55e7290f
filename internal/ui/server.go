// Package ui serves the dashboard: upload, filters, stats, charts and AI
// insights, one page render per request.
package ui

import (
	"context"
	"crypto/rand"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/gorilla/sessions"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
	"golang.org/x/sync/errgroup"

	"github.com/KaramelBytes/datadash/internal/chart"
	"github.com/KaramelBytes/datadash/internal/insights"
)

//go:embed templates/*.html
var templateFS embed.FS

const (
	cookieName   = "datadash"
	sessionIDKey = "sid"
	// sessionIdle is how long an untouched session keeps its table in memory.
	sessionIdle = 24 * time.Hour
)

// Config holds configuration for the dashboard server.
type Config struct {
	Addr string
	// SessionSecret signs the session cookie. A random secret is generated
	// when empty, which invalidates cookies on restart.
	SessionSecret string
	// SecureCookie marks the session cookie Secure. Only enable it when the
	// dashboard is reached over HTTPS, or browsers will drop the cookie.
	SecureCookie   bool
	MaxUploadBytes int64
	MaxDisplayRows int
	PlotHeight     int
	Theme          string
	Insights       *insights.Service
	Logger         *zerolog.Logger
}

// Server is the dashboard HTTP server.
type Server struct {
	cfg       Config
	cookies   *sessions.CookieStore
	sessions  *SessionStore
	templates *template.Template
	log       *zerolog.Logger
}

// NewServer creates a server instance.
func NewServer(cfg Config) (*Server, error) {
	secret := []byte(cfg.SessionSecret)
	if len(secret) == 0 {
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return nil, fmt.Errorf("generate session secret: %w", err)
		}
	}
	cookies := sessions.NewCookieStore(secret)
	cookies.MaxAge(int(sessionIdle / time.Second))
	cookies.Options.Path = "/"
	cookies.Options.HttpOnly = true
	cookies.Options.SameSite = http.SameSiteLaxMode
	cookies.Options.Secure = cfg.SecureCookie

	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	log := cfg.Logger
	if log == nil {
		nop := zerolog.Nop()
		log = &nop
	}
	if cfg.Insights == nil {
		cfg.Insights = insights.NewService(nil, "", 0, 0, log)
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 200 << 20
	}
	return &Server{
		cfg:       cfg,
		cookies:   cookies,
		sessions:  NewSessionStore(sessionIdle),
		templates: tmpl,
		log:       log,
	}, nil
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewMux()
	r.Use(
		hlog.NewHandler(*s.log),
		hlog.RequestIDHandler("req_id", "X-Request-Id"),
		hlog.RemoteAddrHandler("remote"),
		hlog.AccessHandler(func(r *http.Request, status, size int, d time.Duration) {
			hlog.FromRequest(r).Debug().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", status).
				Int("size", size).
				Dur("took", d).
				Msg("request")
		}),
		middleware.RealIP,
		s.recoverer,
		middleware.Compress(5),
	)

	r.Get("/", s.handleDashboard)
	r.Post("/upload", s.handleUpload)
	r.Post("/insights", s.handleInsights)
	r.Get("/chart", s.handleChart)
	r.Get("/healthz", s.handleHealth)
	return r
}

// Serve starts the server and blocks until ctx is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	eg, egctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Addr:    s.cfg.Addr,
		Handler: s.Handler(),
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.log.Info().Str("addr", "http://"+s.cfg.Addr).Msg("starting dashboard")

	eg.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.log.Debug().Msg("shutting down dashboard")
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}

// recoverer turns a panic into a logged error and a generic 500 page.
func (s *Server) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			hlog.FromRequest(r).Error().
				Interface("panic", rec).
				Str("path", r.URL.Path).
				Msg("request panicked")
			s.renderError(w, http.StatusInternalServerError, "An unexpected error occurred")
		}()
		next.ServeHTTP(w, r)
	})
}

// sessionID returns the id stored in the session cookie, issuing a new one
// when the cookie is missing or does not verify. It must run before anything
// is written to w.
func (s *Server) sessionID(w http.ResponseWriter, r *http.Request) string {
	sess, err := s.cookies.Get(r, cookieName)
	if err != nil {
		hlog.FromRequest(r).Debug().Err(err).Msg("discarding session cookie")
	}
	if id, ok := sess.Values[sessionIDKey].(string); ok && id != "" {
		return id
	}
	id := uuid.NewString()
	sess.Values[sessionIDKey] = id
	if err := sess.Save(r, w); err != nil {
		hlog.FromRequest(r).Warn().Err(err).Msg("save session cookie")
	}
	return id
}

func (s *Server) chartOptions() chart.Options {
	return chart.Options{Height: s.cfg.PlotHeight, Theme: s.cfg.Theme}
}

type errorView struct {
	Title, Icon, Message string
}

func (s *Server) renderError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := s.templates.ExecuteTemplate(w, "error", errorView{Title: PageTitle, Icon: PageIcon, Message: msg}); err != nil {
		s.log.Error().Err(err).Msg("render error page")
	}
}
