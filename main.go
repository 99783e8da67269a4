package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pdfagent/internal/api"
	"pdfagent/internal/config"
	"pdfagent/internal/metrics"
	"pdfagent/internal/redis"
	"pdfagent/internal/render"
	"pdfagent/internal/session"
	"pdfagent/internal/storage"
	"pdfagent/internal/summarizer"
	"pdfagent/internal/upload"
	"pdfagent/internal/worker"

	"github.com/gin-gonic/gin"
)

func main() {
	cfg, err := config.Load(os.Getenv("PDFAGENT_CONFIG"))
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	log.Printf("environment: %s", cfg.BasicConfig.Environment)
	if cfg.SummarizerURL() == "" {
		log.Printf("no summarizer endpoint configured for %s; submissions will fail", cfg.BasicConfig.Environment)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	uploadTTL := time.Duration(cfg.BasicConfig.UploadTTL) * time.Minute
	uploads, err := upload.NewStore(cfg.BasicConfig.UploadDir, uploadTTL)
	if err != nil {
		log.Fatalf("init upload store: %v", err)
	}
	uploads.StartCleaner(ctx, time.Duration(cfg.BasicConfig.UploadCleanInterval)*time.Minute)

	recorder, err := metrics.New()
	if err != nil {
		log.Fatalf("init metrics: %v", err)
	}

	deps := session.Deps{
		Client: summarizer.NewClient(cfg.SummarizerURL),
		Policy: session.Policy{
			SurfaceFailures:     cfg.SurfaceFailures(),
			RetainFileOnFailure: cfg.Policy.RetainFileOnFailure,
			FailureDisplay:      cfg.FailureDisplay(),
			RequestTimeout:      cfg.RequestTimeout(),
		},
		Observers: []session.Observer{recorder},
	}

	var journal *storage.Journal
	if cfg.Database.Enabled {
		log.Printf("journal database: %s", cfg.Database.Driver)
		db, err := storage.Open(cfg.Database)
		if err != nil {
			log.Fatalf("open database: %v", err)
		}
		defer db.Close()
		if err := storage.Migrate(db, cfg.Database.Driver); err != nil {
			log.Fatalf("migrate database: %v", err)
		}
		journal = storage.NewJournal(db)
		if cfg.Database.RetentionDays > 0 {
			journal.StartPruner(ctx, storage.DefaultPruneInterval, time.Duration(cfg.Database.RetentionDays)*24*time.Hour)
		}
		deps.Observers = append(deps.Observers, journal)
	}

	if cfg.Redis.Enabled {
		rdb, err := redis.NewRedisClient(cfg.Redis)
		if err != nil {
			log.Fatalf("create redis client: %v", err)
		}
		defer rdb.Close()
		deps.Guard = redis.NewFlightGuard(rdb)
	}

	dispatcher := worker.NewDispatcher(worker.Config{
		MinWorkers:  cfg.BasicConfig.MinWorkers,
		MaxWorkers:  cfg.BasicConfig.MaxWorkers,
		QueueSize:   cfg.BasicConfig.QueueSize,
		IdleTimeout: time.Duration(cfg.BasicConfig.WorkerIdleTimeout) * time.Second,
	})
	defer dispatcher.Stop()
	deps.Runner = dispatcher

	sessionTTL := time.Duration(cfg.BasicConfig.SessionTTL) * time.Minute
	sessions := session.NewManager(deps, cfg.BasicConfig.MaxSessions, sessionTTL)
	defer sessions.Shutdown()

	gauges := []struct {
		name, help string
		fn         func() float64
	}{
		{"sessions_mounted", "Sessions currently mounted.", func() float64 { return float64(sessions.Len()) }},
		{"uploads_live", "Uploaded files still referenced.", func() float64 { return float64(uploads.Live()) }},
		{"workers_running", "Workers in the dispatch pool.", func() float64 { return float64(dispatcher.Stats().Workers) }},
		{"workers_idle", "Idle workers in the dispatch pool.", func() float64 { return float64(dispatcher.Stats().Idle) }},
		{"jobs_queued", "Jobs waiting for a worker.", func() float64 { return float64(dispatcher.Stats().Queued) }},
	}
	for _, g := range gauges {
		if err := recorder.GaugeFunc(g.name, g.help, g.fn); err != nil {
			log.Fatalf("register gauge %s: %v", g.name, err)
		}
	}

	opts := api.Options{
		Sessions:       sessions,
		Uploads:        uploads,
		Render:         render.NewPolicy(cfg.TrustServiceMarkup()),
		UploadCounter:  recorder,
		MaxUploadBytes: cfg.MaxUploadBytes(),
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		SecureCookies:  cfg.BasicConfig.Environment == config.EnvProduction,
		SessionTTL:     sessionTTL,
	}
	if journal != nil {
		opts.Journal = journal
	}
	if cfg.Metrics.Enabled {
		opts.Metrics = recorder.Handler()
		opts.MetricsPath = cfg.Metrics.Path
	}
	handlers, err := api.NewHandler(opts)
	if err != nil {
		log.Fatalf("init handlers: %v", err)
	}

	if cfg.BasicConfig.Environment == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()
	handlers.RegisterRoutes(router)

	srv := &http.Server{
		Addr:              cfg.BasicConfig.ServerAddress,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("server shutdown: %v", err)
		}
	}()

	log.Printf("listening on %s", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("server stopped: %v", err)
	}
}
