package api

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"pdfagent/internal/models"
	"pdfagent/internal/render"
	"pdfagent/internal/session"
	"pdfagent/internal/upload"
)

//go:embed templates/*.html
var templatesFS embed.FS

const defaultMaxUpload = 32 << 20

// SubmissionLister reads journaled submissions of a session.
type SubmissionLister interface {
	ListBySession(ctx context.Context, sessionID string, limit int) ([]*models.Submission, error)
}

// UploadCounter is told about every file put in a slot.
type UploadCounter interface {
	UploadSelected(size int64)
}

// Options carries the collaborators of a Handler. Journal, Uploads counter
// and Metrics are optional.
type Options struct {
	Sessions       *session.Manager
	Uploads        *upload.Store
	Render         *render.Policy
	Journal        SubmissionLister
	UploadCounter  UploadCounter
	Metrics        http.Handler
	MetricsPath    string
	MaxUploadBytes int64
	AllowedOrigins []string
	SecureCookies  bool
	SessionTTL     time.Duration
}

// Handler wires HTTP routes to the session manager.
type Handler struct {
	sessions  *session.Manager
	uploads   *upload.Store
	render    *render.Policy
	journal   SubmissionLister
	counter   UploadCounter
	metrics   http.Handler
	metricsAt string
	maxUpload int64
	origins   []string
	secure    bool
	cookieTTL time.Duration
	templates *template.Template
}

// NewHandler constructs a Handler instance.
func NewHandler(opts Options) (*Handler, error) {
	if opts.Sessions == nil || opts.Uploads == nil {
		return nil, fmt.Errorf("session manager and upload store are required")
	}
	tmpl, err := template.New("index.html").Funcs(template.FuncMap{
		"filesize": humanSize,
	}).ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	h := &Handler{
		sessions:  opts.Sessions,
		uploads:   opts.Uploads,
		render:    opts.Render,
		journal:   opts.Journal,
		counter:   opts.UploadCounter,
		metrics:   opts.Metrics,
		metricsAt: opts.MetricsPath,
		maxUpload: opts.MaxUploadBytes,
		origins:   opts.AllowedOrigins,
		secure:    opts.SecureCookies,
		cookieTTL: opts.SessionTTL,
		templates: tmpl,
	}
	if h.render == nil {
		h.render = render.NewPolicy(true)
	}
	if h.maxUpload <= 0 {
		h.maxUpload = defaultMaxUpload
	}
	if h.metricsAt == "" {
		h.metricsAt = "/metrics"
	}
	if h.cookieTTL <= 0 {
		h.cookieTTL = session.DefaultSessionTTL
	}
	return h, nil
}

// RegisterRoutes attaches all HTTP routes to the router.
func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.SetHTMLTemplate(h.templates)
	router.GET("/healthz", h.healthz)
	if h.metrics != nil {
		router.GET(h.metricsAt, gin.WrapH(h.metrics))
	}

	pages := router.Group("/")
	pages.Use(h.sessionMiddleware())
	pages.GET("/", h.index)
	pages.POST("/file", h.limitBody(), h.selectFilePage)
	pages.POST("/file/remove", h.removeFilePage)
	pages.POST("/prompt", h.setPromptPage)
	pages.POST("/submit", h.submitPage)
	pages.POST("/session/reset", h.resetSession)
	pages.GET("/clips/:exchange/:index", h.clip)

	api := router.Group("/api/session")
	if len(h.origins) > 0 {
		corsConfig := cors.DefaultConfig()
		corsConfig.AllowOrigins = h.origins
		corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
		corsConfig.AllowHeaders = []string{"Origin", "Content-Type"}
		corsConfig.AllowCredentials = true
		api.Use(cors.New(corsConfig))
	}
	api.Use(h.sessionMiddleware())
	api.GET("", h.getSession)
	api.DELETE("", h.deleteSession)
	api.POST("/file", h.limitBody(), h.selectFile)
	api.DELETE("/file", h.removeFile)
	api.PUT("/prompt", h.setPrompt)
	api.POST("/submit", h.submit)
	api.GET("/events", h.events)
	api.GET("/submissions", h.listSubmissions)
}

func (h *Handler) healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "sessions": h.sessions.Len()})
}

func humanSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
