package http

import (
	"bytes"
	"context"
	"html/template"
	"io/fs"
	"net/http"
	"time"

	"corpdash/internal/audit"
	"corpdash/internal/log"
	"corpdash/internal/middleware/ratelimit"
	"corpdash/internal/middleware/recovery"
	"corpdash/internal/middleware/security"
	"corpdash/internal/middleware/trace"
	"corpdash/internal/session"
	appweb "corpdash/web"
)

// Deps are the collaborators of the HTTP layer. Only Sessions is required.
type Deps struct {
	Sessions *session.Store
	Recorder audit.Recorder
	History  audit.History
	Logger   *log.Logger

	MaxUploadBytes   int64
	UploadsPerMinute int
	TrustedProxies   []string

	// ReadyChecks are probed by /readyz, keyed by name.
	ReadyChecks map[string]func(context.Context) error

	// TemplatesFS and StaticFS default to the embedded web assets.
	TemplatesFS fs.FS
	StaticFS    fs.FS

	Now func() time.Time
}

type Server struct {
	http.Server
	templates *template.Template
	sessions  *session.Store
	recorder  audit.Recorder
	history   audit.History
	logger    *log.Logger
	events    *log.StructuredLogger

	maxUpload   int64
	readyChecks map[string]func(context.Context) error
	now         func() time.Time
	started     time.Time

	limiter  *ratelimit.Limiter
	detector *security.Detector
	tracer   *trace.Middleware
}

const defaultMaxUpload = 20 << 20

// NewServer configures routes, middleware and templates, returning a
// ready-to-run server. A template parse failure is logged; pages then
// answer 500 and /readyz reports not ready.
func NewServer(addr string, deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = log.Discard()
	}
	if deps.Recorder == nil {
		deps.Recorder = audit.Nop{}
	}
	if deps.MaxUploadBytes <= 0 {
		deps.MaxUploadBytes = defaultMaxUpload
	}
	if deps.TemplatesFS == nil {
		deps.TemplatesFS = appweb.TemplatesFS
	}
	if deps.StaticFS == nil {
		deps.StaticFS = appweb.StaticFS
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	logger := deps.Logger.WithComponent(log.ComponentHTTP)
	s := &Server{
		sessions:    deps.Sessions,
		recorder:    deps.Recorder,
		history:     deps.History,
		logger:      logger,
		events:      log.NewStructuredLogger(deps.Logger),
		maxUpload:   deps.MaxUploadBytes,
		readyChecks: deps.ReadyChecks,
		now:         deps.Now,
		started:     deps.Now(),
		limiter:     ratelimit.NewLimiter(ratelimit.Config{Requests: deps.UploadsPerMinute, Window: time.Minute}),
		detector:    security.NewDetector(),
	}
	for _, cidr := range deps.TrustedProxies {
		if err := s.detector.AddTrustedProxy(cidr); err != nil {
			logger.Warn("Ignoring trusted proxy", log.FieldError, err.Error())
		}
	}
	s.tracer = trace.NewMiddleware(deps.Logger, s.detector.ExtractClientIP)

	t, err := template.New("").Funcs(templateFuncs).ParseFS(deps.TemplatesFS, "templates/*.html")
	if err != nil {
		logger.Error("Failed parsing templates", log.FieldError, err.Error(), log.FieldOperation, log.OpStartup)
	} else {
		s.templates = t
	}

	mux := http.NewServeMux()
	if sub, err := fs.Sub(deps.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("GET /static/", security.StaticAssetMiddleware(3600)(static))
	} else {
		logger.Warn("Failed to mount static FS", log.FieldError, err.Error())
	}

	uploadLimit := s.limiter.Middleware(s.detector.ExtractClientIP, s.handleUploadLimited)

	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.Handle("POST /upload", uploadLimit(http.HandlerFunc(s.handleUpload)))
	mux.HandleFunc("GET /dashboard", s.handleDashboard)
	mux.HandleFunc("GET /api/dashboard", s.handleDashboardAPI)
	mux.HandleFunc("POST /reset", s.handleReset)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	var h http.Handler = mux
	h = security.NoStore(h)
	h = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(h)
	h = s.flagSuspicious(h)
	h = recovery.Middleware(s.handlePanic)(h)
	h = s.tracer.Middleware(h)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       2 * time.Minute,
		WriteTimeout:      2 * time.Minute,
		IdleTimeout:       2 * time.Minute,
	}
	return s
}

// Limiter exposes the upload limiter so its cleanup can be scheduled.
func (s *Server) Limiter() *ratelimit.Limiter {
	return s.limiter
}

// flagSuspicious logs probe-looking requests; they are still served.
func (s *Server) flagSuspicious(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.detector.DetectSuspiciousRequest(r) {
			log.FromContext(r.Context()).WarnContext(r.Context(), "Suspicious request",
				log.FieldComponent, log.ComponentSecurity,
				log.FieldMethod, r.Method,
				log.FieldPath, r.URL.Path,
				log.FieldClientIP, s.detector.ExtractClientIP(r))
		}
		next.ServeHTTP(w, r)
	})
}

// render executes a page template into a buffer so a template error can
// still become a clean 500.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	if s.templates == nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Templates not loaded", log.FieldPath, r.URL.Path)
		ErrorHTML(http.StatusInternalServerError, "templates not loaded").Write(w)
		return
	}
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		s.events.LogError(r.Context(), "Template execution failed", err, log.ComponentTemplate, log.OpRender,
			log.NewFields().WithRequestID(trace.GetRequestID(r.Context())))
		ErrorHTML(http.StatusInternalServerError, "failed to render page").Write(w)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (s *Server) handlePanic(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusInternalServerError, "error.html", errorPage{
		Title:   "Something went wrong",
		Message: "An unexpected error occurred. Please try again.",
	})
}
