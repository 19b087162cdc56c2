package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"clip-stacker/internal/compose"
	"clip-stacker/internal/credentials"
	"clip-stacker/internal/database"
	"clip-stacker/internal/download"
	"clip-stacker/internal/handlers"
	"clip-stacker/internal/jobs"
	"clip-stacker/internal/logging"
	"clip-stacker/internal/memory"
	"clip-stacker/internal/metrics"
	"clip-stacker/internal/middleware"
	"clip-stacker/internal/retry"
	"clip-stacker/internal/staging"
	"clip-stacker/internal/startup"
	"clip-stacker/internal/transcoder"
	"clip-stacker/internal/workers"
)

const (
	maxDefaultWorkers      = 8
	metricsCollectInterval = time.Minute
	shutdownTimeout        = 30 * time.Second
	jobDrainTimeout        = 30 * time.Second
)

func main() {
	startTime := time.Now()

	memory.ConfigureFromEnv()

	config, err := startup.LoadConfig()
	if err != nil {
		startup.LogFatal("Configuration error: %v", err)
	}

	metrics.InitializeMetrics()
	metrics.SetAppInfo(startup.Version, startup.Commit, startup.GoVersion)

	// Credential pool
	credStart := time.Now()
	repo, closeRepo, err := openCredentialRepository(config)
	if err != nil {
		startup.LogFatal("Failed to open credential store: %v", err)
	}
	defer closeRepo()

	pool := credentials.NewPool(repo)
	if err := pool.Load(context.Background()); err != nil {
		startup.LogFatal("Failed to load credentials: %v", err)
	}
	startup.LogCredentialsInit(config.CredentialsBackend, pool.Stats(), time.Since(credStart))

	// External tools
	chromePath := download.FindChrome(config.ChromePath)
	tools := startup.CheckTools(config, chromePath)
	ready := readiness(startup.MissingRequired(tools))

	// Pipeline
	exec := transcoder.NewExec(config.ProcessTimeout)
	resolver, err := buildResolver(config, exec, pool, chromePath)
	if err != nil {
		startup.LogFatal("Download strategy error: %v", err)
	}

	composeOpts, err := composeOptions(config)
	if err != nil {
		startup.LogFatal("Composition settings error: %v", err)
	}
	composer := compose.NewComposer(transcoder.New(exec, config.FFmpegPath, config.FFprobePath), composeOpts)

	monitor := memory.NewMonitor(memory.DefaultConfig())
	monitor.Start()

	workerCount := workers.ForJobs(maxDefaultWorkers)
	if config.JobWorkers > 0 {
		workerCount = config.JobWorkers
	}
	manager := jobs.NewManager(jobs.Config{
		Workers:        workerCount,
		WorkDir:        config.WorkDir,
		OutputDir:      config.OutputDir,
		PublicBaseURL:  config.PublicBaseURL,
		MaxClipSeconds: config.MaxClipSeconds,
		Gate:           monitor,
	}, resolver, composer)
	startup.LogPipelineInit(resolver.Strategies(), workerCount)
	manager.Start()

	sweepCtx, stopSweeper := context.WithCancel(context.Background())
	staging.StartSweeper(sweepCtx, config.WorkDir, config.SweepInterval, config.OrphanMaxAge)
	go pool.Watch(sweepCtx, config.CredentialsReload, reloadSignals(sweepCtx))

	collector := metrics.NewCollector(metrics.StatsProviderFunc(func() metrics.Stats {
		s := manager.GetStats()
		s.CredentialsActive = pool.Stats()
		return s
	}), metricsCollectInterval)
	collector.Start()

	// HTTP
	h := handlers.New(manager, handlers.Options{
		OutputDir:   config.OutputDir,
		Credentials: pool,
		Ready:       ready,
	})
	router := setupRouter(h, config.OutputDir)
	startup.LogHTTPRoutes(router, config.LogStaticFiles, config.LogHealthChecks)

	loggingConfig := middleware.DefaultLoggingConfig()
	loggingConfig.LogStaticFiles = config.LogStaticFiles
	loggingConfig.LogHealthChecks = config.LogHealthChecks
	router.Use(
		middleware.Logger(loggingConfig),
		middleware.Metrics(middleware.DefaultMetricsConfig()),
		middleware.Compression(middleware.DefaultCompressionConfig()),
	)

	srv := &http.Server{
		Addr:              ":" + config.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      0, // output downloads and websockets are long lived
		IdleTimeout:       60 * time.Second,
	}

	var metricsSrv *http.Server
	if config.MetricsEnabled {
		metricsSrv = startMetricsServer(config.MetricsPort, h)
	}

	go handleShutdown(srv, metricsSrv, manager, exec, func() {
		collector.Stop()
		monitor.Stop()
		stopSweeper()
	})

	startup.LogServerStarted(startup.ServerConfig{
		Port:            config.Port,
		MetricsPort:     config.MetricsPort,
		MetricsEnabled:  config.MetricsEnabled,
		StartupDuration: time.Since(startTime),
	})
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		startup.LogFatal("Server error: %v", err)
	}
	<-shutdownDone
}

// shutdownDone is closed once handleShutdown has drained everything.
var shutdownDone = make(chan struct{})

func openCredentialRepository(config *startup.Config) (credentials.Repository, func(), error) {
	if config.CredentialsBackend == startup.BackendFile {
		return credentials.NewFileRepository(config.CredentialsDir), func() {}, nil
	}

	db, err := database.New(context.Background(), config.DatabasePath)
	if err != nil {
		return nil, nil, err
	}
	return credentials.NewSQLiteRepository(db), func() {
		if err := db.Close(); err != nil {
			logging.Warn("Failed to close credential database: %v", err)
		}
	}, nil
}

func buildResolver(config *startup.Config, runner transcoder.Runner, pool *credentials.Pool, chromePath string) (*download.Resolver, error) {
	fetcher := download.NewFetcher()
	toolkit := download.Toolkit{
		Fetcher:    fetcher,
		Runner:     runner,
		FFmpeg:     config.FFmpegPath,
		YTDLP:      download.NewYTDLP(runner, config.YTDLPPath, config.FFmpegPath),
		Pool:       pool,
		Proxies:    download.NormalizeProxyList(config.ProxyURLs),
		ChromePath: chromePath,
	}
	strategies, err := toolkit.Build(config.DownloadStrategies)
	if err != nil {
		return nil, err
	}

	return download.NewResolver(retry.Config{
		MaxAttempts:    config.RetryMaxAttempts,
		BaseDelay:      config.RetryBaseDelay,
		MaxDelay:       config.RetryMaxDelay,
		AttemptTimeout: config.AttemptTimeout,
	}, strategies...), nil
}

func composeOptions(config *startup.Config) (compose.Options, error) {
	opts := compose.DefaultOptions()
	opts.Canvas = compose.Dimensions{Width: config.CanvasWidth, Height: config.CanvasHeight}
	opts.FPS = config.OutputFPS

	fit, err := compose.ParseFitMode(config.FitMode)
	if err != nil {
		return opts, err
	}
	opts.Fit = fit
	return opts, opts.Validate()
}

// reloadSignals forwards SIGHUP until ctx is done.
func reloadSignals(ctx context.Context) <-chan struct{} {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	out := make(chan struct{}, 1)
	go func() {
		defer signal.Stop(hup)
		for {
			select {
			case <-ctx.Done():
				return
			case <-hup:
				select {
				case out <- struct{}{}:
				default:
				}
			}
		}
	}()
	return out
}

// readiness reports not ready while a required tool is missing.
func readiness(missing []string) func() error {
	if len(missing) == 0 {
		return nil
	}
	err := fmt.Errorf("required tools unavailable: %s", strings.Join(missing, ", "))
	return func() error { return err }
}

func setupRouter(h *handlers.Handlers, outputDir string) *mux.Router {
	r := mux.NewRouter()

	// Health check and version routes
	r.HandleFunc("/health", h.HealthCheck).Methods("GET")
	r.HandleFunc("/healthz", h.HealthCheck).Methods("GET")
	r.HandleFunc("/livez", h.LivenessCheck).Methods("GET", "HEAD")
	r.HandleFunc("/readyz", h.ReadinessCheck).Methods("GET")
	r.HandleFunc("/version", h.GetVersion).Methods("GET")

	// Job API
	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/jobs", h.CreateJob).Methods("POST")
	api.HandleFunc("/jobs", h.ListJobs).Methods("GET")
	api.HandleFunc("/jobs/{id}", h.GetJob).Methods("GET")
	api.HandleFunc("/jobs/{id}/ws", h.JobEvents).Methods("GET")
	api.HandleFunc("/jobs/{id}/download/{role}", h.DownloadOutput).Methods("GET")

	// Published outputs
	r.PathPrefix("/outputs/").Handler(
		http.StripPrefix("/outputs/", http.FileServer(outputFS{http.Dir(outputDir)})),
	).Methods("GET", "HEAD")

	return r
}

// outputFS serves files but never directory listings.
type outputFS struct {
	fs http.FileSystem
}

func (o outputFS) Open(name string) (http.File, error) {
	f, err := o.fs.Open(name)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if info.IsDir() {
		f.Close()
		return nil, os.ErrNotExist
	}
	return f, nil
}

func startMetricsServer(port string, h *handlers.Handlers) *http.Server {
	mr := mux.NewRouter()
	mr.Handle("/metrics", h.MetricsHandler()).Methods("GET")
	mr.HandleFunc("/health", h.HealthCheck).Methods("GET")

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           mr,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			logging.Error("Metrics server error: %v", err)
		}
	}()
	return srv
}

// shutdownStep is one stage of the graceful shutdown. Each step gets its own
// deadline so a slow stage cannot use up the budget of the ones after it.
type shutdownStep struct {
	name    string
	done    string
	timeout time.Duration
	run     func(ctx context.Context) error
}

func runShutdown(steps []shutdownStep) {
	for _, step := range steps {
		if step.run == nil {
			continue
		}
		startup.LogShutdownStep(step.name)
		ctx, cancel := context.WithTimeout(context.Background(), step.timeout)
		err := step.run(ctx)
		cancel()
		if err != nil {
			logging.Warn("%s: %v", step.name, err)
			continue
		}
		startup.LogShutdownStepComplete(step.done)
	}
}

func handleShutdown(srv, metricsSrv *http.Server, manager *jobs.Manager, exec *transcoder.Exec, stopBackground func()) {
	defer close(shutdownDone)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan

	startup.LogShutdownInitiated(sig.String())

	steps := []shutdownStep{
		{name: "Shutting down HTTP server", done: "HTTP server stopped", timeout: shutdownTimeout, run: srv.Shutdown},
		{name: "Draining job workers", done: "Job workers drained", timeout: jobDrainTimeout, run: manager.Shutdown},
		{name: "Stopping external processes", done: "External processes stopped", timeout: shutdownTimeout, run: func(context.Context) error {
			exec.Cleanup()
			stopBackground()
			return nil
		}},
	}
	if metricsSrv != nil {
		steps = append(steps, shutdownStep{name: "Shutting down metrics server", done: "Metrics server stopped", timeout: shutdownTimeout, run: metricsSrv.Shutdown})
	}
	runShutdown(steps)

	startup.LogShutdownComplete()
}
