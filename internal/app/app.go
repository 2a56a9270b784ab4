// Package app builds the long-lived services of a scrape and runs the
// top-level operations: scrape an input file and export results.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"
	"go.uber.org/zap"

	"github.com/JakeFAU/placescraper/internal/api"
	"github.com/JakeFAU/placescraper/internal/batch"
	"github.com/JakeFAU/placescraper/internal/browser"
	"github.com/JakeFAU/placescraper/internal/config"
	"github.com/JakeFAU/placescraper/internal/export"
	"github.com/JakeFAU/placescraper/internal/extract"
	"github.com/JakeFAU/placescraper/internal/logging"
	"github.com/JakeFAU/placescraper/internal/lookup"
	"github.com/JakeFAU/placescraper/internal/metrics"
	"github.com/JakeFAU/placescraper/internal/places"
	"github.com/JakeFAU/placescraper/internal/progress"
	progresssinks "github.com/JakeFAU/placescraper/internal/progress/sinks"
	"github.com/JakeFAU/placescraper/internal/publisher"
	memorypublisher "github.com/JakeFAU/placescraper/internal/publisher/memory"
	gcppublisher "github.com/JakeFAU/placescraper/internal/publisher/pubsub"
	"github.com/JakeFAU/placescraper/internal/ratelimit"
	"github.com/JakeFAU/placescraper/internal/runner"
	"github.com/JakeFAU/placescraper/internal/storage"
	gcsstorage "github.com/JakeFAU/placescraper/internal/storage/gcs"
	localstorage "github.com/JakeFAU/placescraper/internal/storage/local"
	"github.com/JakeFAU/placescraper/internal/store"
	"github.com/JakeFAU/placescraper/internal/store/csvfile"
	"github.com/JakeFAU/placescraper/internal/store/postgres"
)

// Deps are the external services an App drives. Nil Publisher and Archive
// disable notifications and archiving.
type Deps struct {
	Provider  places.Provider
	Output    store.Output
	Publisher publisher.Publisher
	Archive   storage.BlobStore
}

// App contains the application's dependencies.
type App struct {
	cfg     *config.Config
	logger  *zap.Logger
	deps    Deps
	tracker *progress.Tracker
	emitter progress.Emitter

	pubsubClient    *pubsub.Client
	pubsubPublisher *pubsub.Publisher
	gcs             *gcsstorage.BlobStore
}

// New assembles an App from already-built dependencies.
func New(cfg *config.Config, logger *zap.Logger, deps Deps) *App {
	if logger == nil {
		logger = zap.NewNop()
	}
	tracker := &progress.Tracker{}
	emitters := progress.Multi{tracker}
	if cfg.Progress.Log {
		emitters = append(emitters, progresssinks.NewLogSink(logger.Named("progress")))
	}
	return &App{
		cfg:     cfg,
		logger:  logger,
		deps:    deps,
		tracker: tracker,
		emitter: emitters,
	}
}

// Build creates the logger and every dependency named by cfg.
func Build(ctx context.Context, cfg *config.Config) (*App, error) {
	logger, err := logging.New(logging.Config{
		Development: cfg.Logging.Development,
		Level:       cfg.Logging.Level,
	})
	if err != nil {
		return nil, fmt.Errorf("logger init failed: %w", err)
	}
	zap.ReplaceGlobals(logger)
	metrics.Init()

	a := New(cfg, logger, Deps{})
	a.logger.Info("building application dependencies",
		zap.String("output_driver", cfg.Output.Driver),
		zap.Int("concurrency", cfg.Scraper.Concurrency),
	)
	if a.deps.Output, err = setupOutput(ctx, a); err != nil {
		return nil, errors.Join(err, a.Close(ctx))
	}
	if a.deps.Publisher, err = setupPublisher(ctx, a); err != nil {
		return nil, errors.Join(err, a.Close(ctx))
	}
	if a.deps.Archive, err = setupArchive(ctx, a); err != nil {
		return nil, errors.Join(err, a.Close(ctx))
	}
	if a.deps.Provider, err = setupBrowser(a); err != nil {
		return nil, errors.Join(err, a.Close(ctx))
	}
	return a, nil
}

func setupOutput(ctx context.Context, a *App) (store.Output, error) {
	switch a.cfg.Output.Driver {
	case config.DriverPostgres:
		out, err := postgres.New(ctx, a.cfg.Output.Postgres)
		if err != nil {
			return nil, fmt.Errorf("postgres output init failed: %w", err)
		}
		a.logger.Info("using postgres output", zap.String("table", a.cfg.Output.Postgres.Table))
		return out, nil
	default:
		a.logger.Info("using csv output", zap.String("path", a.cfg.Output.Path))
		return csvfile.New(a.cfg.Output.Path), nil
	}
}

func setupPublisher(ctx context.Context, a *App) (publisher.Publisher, error) {
	if !a.cfg.PubSub.Enabled() {
		a.logger.Warn("No Pub/Sub topic configured, using in-memory publisher")
		return memorypublisher.New(), nil
	}
	var err error
	a.pubsubClient, err = pubsub.NewClient(ctx, a.cfg.PubSub.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("pubsub client init failed: %w", err)
	}
	a.pubsubPublisher = a.pubsubClient.Publisher(a.cfg.PubSub.TopicName)
	a.logger.Info("Pub/Sub publisher initialized",
		zap.String("project", a.cfg.PubSub.ProjectID),
		zap.String("topic", a.cfg.PubSub.TopicName),
	)
	return gcppublisher.New(a.pubsubPublisher), nil
}

func setupArchive(ctx context.Context, a *App) (storage.BlobStore, error) {
	switch {
	case a.cfg.Archive.GCS.Bucket != "":
		s, err := gcsstorage.Open(ctx, a.cfg.Archive.GCS)
		if err != nil {
			return nil, fmt.Errorf("gcs archive init failed: %w", err)
		}
		a.gcs = s
		a.logger.Info("archiving to GCS", zap.String("bucket", a.cfg.Archive.GCS.Bucket))
		return s, nil
	case a.cfg.Archive.LocalDir != "":
		s, err := localstorage.New(localstorage.Config{BaseDir: a.cfg.Archive.LocalDir})
		if err != nil {
			return nil, fmt.Errorf("local archive init failed: %w", err)
		}
		a.logger.Info("archiving to local directory", zap.String("dir", a.cfg.Archive.LocalDir))
		return s, nil
	default:
		a.logger.Debug("archiving disabled")
		return nil, nil
	}
}

func setupBrowser(a *App) (places.Provider, error) {
	bcfg := a.cfg.Browser
	if bcfg.MaxParallel == 0 {
		bcfg.MaxParallel = a.cfg.Scraper.Concurrency
	}
	p, err := browser.New(bcfg, a.logger.Named("browser"))
	if err != nil {
		return nil, fmt.Errorf("browser init failed: %w", err)
	}
	a.logger.Info("using chromedp browser",
		zap.Bool("headless", bcfg.Headless),
		zap.Int("max_parallel", bcfg.MaxParallel),
	)
	return p, nil
}

// Tracker exposes the progress of the current run.
func (a *App) Tracker() *progress.Tracker {
	return a.tracker
}

func (a *App) lookupService() *lookup.Service {
	sc := a.cfg.Scraper
	return lookup.New(lookup.Config{
		SearchURL:         sc.SearchURL,
		MaxResults:        sc.MaxResults,
		RenderWait:        sc.RenderWait,
		ScrollAttempts:    sc.ScrollAttempts,
		ScrollPause:       sc.ScrollPause,
		DetailRetries:     sc.DetailRetries,
		DetailWait:        sc.DetailWait,
		DetailSettle:      sc.DetailSettle,
		RetryPause:        sc.RetryPause,
		CoordPollInterval: sc.CoordPollInterval,
		CoordPollTimeout:  sc.CoordPollTimeout,
		ShareWait:         sc.ShareWait,
	}, extract.New(a.cfg.Selectors), ratelimit.New(a.cfg.RateLimit), a.logger.Named("lookup"))
}

// Scrape reads the input file and runs every pending item through the
// pipeline. An unreadable input aborts before any lookup starts.
func (a *App) Scrape(ctx context.Context) (runner.Summary, error) {
	in := a.cfg.Input
	items, err := csvfile.ReadWorkItems(ctx, in.Path, csvfile.InputOptions{
		Encoding:    in.Encoding,
		IDColumn:    in.IDColumn,
		QueryColumn: in.QueryColumn,
		HasHeader:   in.HasHeader,
	})
	if err != nil {
		return runner.Summary{}, fmt.Errorf("read input: %w", err)
	}
	a.logger.Info("input loaded", zap.String("path", in.Path), zap.Int("items", len(items)))

	stopServer := a.startServer()
	defer stopServer()

	var notifier batch.Notifier
	if a.deps.Publisher != nil {
		notifier = publisher.NewNotifier(a.deps.Publisher, a.cfg.PubSub.TopicName)
	}
	r := runner.New(runner.Config{
		Concurrency: a.cfg.Scraper.Concurrency,
		BatchSize:   a.cfg.Scraper.BatchSize,
		ItemTimeout: a.cfg.Scraper.ItemTimeout,
	}, a.deps.Provider, a.lookupService(), a.deps.Output, notifier, a.emitter, a.logger.Named("runner"))

	summary, runErr := r.Run(ctx, items)
	a.logSummary(summary)

	post := context.WithoutCancel(ctx)
	if a.cfg.Output.XLSXPath != "" && summary.Records > 0 {
		if _, err := a.Export(post, a.cfg.Output.XLSXPath); err != nil {
			a.logger.Warn("xlsx export failed", zap.Error(err))
		}
	}
	a.archiveOutputs(post, summary.RunID)
	return summary, runErr
}

func (a *App) logSummary(s runner.Summary) {
	avg := time.Duration(0)
	if s.Processed > 0 {
		avg = s.Elapsed / time.Duration(s.Processed)
	}
	a.logger.Info("scrape summary",
		zap.String("run_id", s.RunID),
		zap.Int("total", s.Total),
		zap.Int("skipped", s.Skipped),
		zap.Int("processed", s.Processed),
		zap.Int("failed", s.Failed),
		zap.Int("rows", s.Records),
		zap.Int("batches", s.Batches),
		zap.Duration("elapsed", s.Elapsed),
		zap.Duration("avg_per_query", avg),
	)
}

func (a *App) archiveOutputs(ctx context.Context, runID string) {
	if a.deps.Archive == nil {
		return
	}
	var files []string
	if a.cfg.Output.Driver == config.DriverCSV {
		files = append(files, a.cfg.Output.Path)
	}
	if a.cfg.Output.XLSXPath != "" {
		files = append(files, a.cfg.Output.XLSXPath)
	}
	for _, f := range files {
		uri, err := storage.Archive(ctx, a.deps.Archive, a.cfg.Archive.GCS.Prefix, runID, f)
		if err != nil {
			a.logger.Warn("archive failed", zap.String("file", f), zap.Error(err))
			continue
		}
		a.logger.Info("output archived", zap.String("file", f), zap.String("uri", uri))
	}
}

// Export writes the persisted results to an XLSX workbook at path.
func (a *App) Export(ctx context.Context, path string) (int, error) {
	n, err := export.NewService(a.deps.Output, a.logger.Named("export")).WriteFile(ctx, path)
	if err != nil {
		return 0, err
	}
	a.logger.Info("results exported", zap.String("path", path), zap.Int("rows", n))
	return n, nil
}

// startServer runs the ops API when enabled and returns its shutdown func.
func (a *App) startServer() func() {
	if !a.cfg.Server.Enabled {
		return func() {}
	}
	apiServer := api.NewServer(a.tracker, a.ready, a.logger.Named("api"))
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.cfg.Server.Port),
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		a.logger.Info("http server started", zap.Int("port", a.cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("http server error", zap.Error(err))
		}
	}()
	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			a.logger.Error("server shutdown error", zap.Error(err))
		}
	}
}

func (a *App) ready(context.Context) error {
	if a.deps.Output == nil || a.deps.Provider == nil {
		return errors.New("dependencies not initialized")
	}
	return nil
}

// Close releases every dependency the App created.
func (a *App) Close(_ context.Context) error {
	var errs []error
	if a.pubsubPublisher != nil {
		a.pubsubPublisher.Stop()
	}
	if a.pubsubClient != nil {
		if err := a.pubsubClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close pubsub client: %w", err))
		}
	}
	if a.gcs != nil {
		if err := a.gcs.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close gcs client: %w", err))
		}
	}
	if a.deps.Output != nil {
		if err := a.deps.Output.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close output: %w", err))
		}
	}
	if err := a.logger.Sync(); err != nil {
		a.logger.Debug("logger sync failed", zap.Error(err))
	}
	return errors.Join(errs...)
}
