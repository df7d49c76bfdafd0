// Package server provides the application container: it builds every
// collaborator from configuration, serves HTTP and tears everything down.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/storage"
	"go.uber.org/zap"
	"google.golang.org/api/option"
	"google.golang.org/genai"

	"github.com/JakeFAU/page-tagger/internal/api"
	"github.com/JakeFAU/page-tagger/internal/classifier"
	"github.com/JakeFAU/page-tagger/internal/classifier/gemini"
	"github.com/JakeFAU/page-tagger/internal/classifier/huggingface"
	"github.com/JakeFAU/page-tagger/internal/config"
	"github.com/JakeFAU/page-tagger/internal/extract"
	"github.com/JakeFAU/page-tagger/internal/fetcher"
	collyfetcher "github.com/JakeFAU/page-tagger/internal/fetcher/colly"
	headlessfetcher "github.com/JakeFAU/page-tagger/internal/fetcher/headless"
	"github.com/JakeFAU/page-tagger/internal/headless/detector"
	"github.com/JakeFAU/page-tagger/internal/id/uuid"
	"github.com/JakeFAU/page-tagger/internal/langdetect"
	"github.com/JakeFAU/page-tagger/internal/logging"
	memorypublisher "github.com/JakeFAU/page-tagger/internal/publisher/memory"
	gcppublisher "github.com/JakeFAU/page-tagger/internal/publisher/pubsub"
	gcsstorage "github.com/JakeFAU/page-tagger/internal/storage/gcs"
	"github.com/JakeFAU/page-tagger/internal/tagger"
	"github.com/JakeFAU/page-tagger/internal/taxonomy"
)

const (
	shutdownTimeout     = 10 * time.Second
	readHeaderTimeout   = 5 * time.Second
	memoryPublisherKeep = 1000
)

// App contains the application's dependencies.
type App struct {
	cfg          *config.Config
	logger       *zap.Logger
	service      *tagger.Service
	apiServer    *api.Server
	headless     *headlessfetcher.Fetcher
	pubsubClient *pubsub.Client
	publisher    *gcppublisher.Publisher
	closeOnce    sync.Once
}

// NewApp creates an empty App with the given configuration.
func NewApp(cfg *config.Config, logger *zap.Logger) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	// Only non-sensitive fields are logged.
	type sanitizedConfig struct {
		ServerPort int    `json:"server_port"`
		Backend    string `json:"backend"`
		Strategy   string `json:"strategy"`
		Headless   bool   `json:"headless"`
	}
	logger.Info("Creating application", zap.Any("config", sanitizedConfig{
		ServerPort: cfg.Server.Port,
		Backend:    cfg.Classify.Backend,
		Strategy:   cfg.Extract.Strategy,
		Headless:   cfg.Headless.Enabled,
	}))
	return &App{cfg: cfg, logger: logger}, nil
}

// Service returns the classification pipeline.
func (a *App) Service() *tagger.Service {
	return a.service
}

// Handler returns the HTTP handler serving the API.
func (a *App) Handler() http.Handler {
	return a.apiServer.Handler()
}

// Logger returns the application logger.
func (a *App) Logger() *zap.Logger {
	return a.logger
}

// Run serves HTTP until ctx is canceled or SIGINT/SIGTERM arrives, then
// drains in-flight requests and closes the App.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.cfg.Server.Port),
		Handler:           a.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		a.logger.Info("http server started", zap.Int("port", a.cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
			stop()
		}
		close(serveErr)
	}()

	<-ctx.Done()
	a.logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("server shutdown error", zap.Error(err))
	}
	closeErr := a.Close(shutdownCtx)
	if err := <-serveErr; err != nil {
		return fmt.Errorf("http server: %w", err)
	}
	return closeErr
}

// Close releases every external resource. It is idempotent and safe to
// call on a partially built App.
func (a *App) Close(ctx context.Context) error {
	a.closeOnce.Do(func() {
		if a.service != nil {
			if err := a.service.Drain(ctx); err != nil {
				a.logger.Warn("pending classification events dropped", zap.Error(err))
			}
		}
		a.closeInfrastructure()
		a.logger.Info("shutdown complete")
		// Sync fails on stderr-backed loggers on some platforms.
		_ = a.logger.Sync()
	})
	return nil
}

func (a *App) closeInfrastructure() {
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			a.logger.Warn("pubsub publisher close failed", zap.Error(err))
		}
		a.publisher = nil
	}
	if a.pubsubClient != nil {
		if err := a.pubsubClient.Close(); err != nil {
			a.logger.Warn("pubsub client close failed", zap.Error(err))
		}
		a.pubsubClient = nil
	}
	if a.headless != nil {
		if err := a.headless.Close(); err != nil {
			a.logger.Warn("headless fetcher close failed", zap.Error(err))
		}
		a.headless = nil
	}
}

// Build creates the application's dependencies with a logger configured
// from cfg.
func Build(ctx context.Context, cfg *config.Config) (*App, error) {
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return nil, fmt.Errorf("logger init failed: %w", err)
	}
	zap.ReplaceGlobals(logger)
	return BuildWithLogger(ctx, cfg, logger)
}

// BuildWithLogger creates the application's dependencies using logger.
func BuildWithLogger(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	app, err := NewApp(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("app init failed: %w", err)
	}
	if err := app.build(ctx); err != nil {
		app.closeInfrastructure()
		return nil, err
	}
	return app, nil
}

func (a *App) build(ctx context.Context) error {
	a.logger.Info("building application dependencies")

	tax, err := setupTaxonomy(ctx, a)
	if err != nil {
		return err
	}
	pageFetcher, err := setupFetcher(a)
	if err != nil {
		return err
	}
	extractor, err := setupExtractor(a)
	if err != nil {
		return err
	}
	backend, err := setupClassifier(ctx, a)
	if err != nil {
		return err
	}

	idGen := uuid.New()
	var options []tagger.Option
	lang, err := setupLanguageDetector(a)
	if err != nil {
		return err
	}
	if lang != nil {
		options = append(options, tagger.WithLanguageDetector(lang))
	}
	publisher, err := setupPublisher(ctx, a)
	if err != nil {
		return err
	}
	if publisher != nil {
		options = append(options, tagger.WithPublisher(publisher, idGen))
	}

	a.service, err = tagger.NewService(
		pageFetcher,
		extractor,
		backend,
		tagger.Options{
			Labels:       tax.Labels(),
			Threshold:    a.cfg.Classify.Threshold,
			TopK:         a.cfg.Classify.TopK,
			PreviewChars: a.cfg.Classify.PreviewChars,
			Topic:        a.cfg.PubSub.TopicName,
		},
		a.logger.Named("tagger"),
		options...,
	)
	if err != nil {
		return fmt.Errorf("service init failed: %w", err)
	}

	a.apiServer = api.NewServer(
		a.service,
		idGen,
		api.Config{RequestTimeout: a.cfg.RequestTimeout()},
		a.logger.Named("api"),
	)
	return nil
}

func (a *App) clientOptions() []option.ClientOption {
	if a.cfg.GCP.CredentialsFile == "" {
		return nil
	}
	return []option.ClientOption{option.WithCredentialsFile(a.cfg.GCP.CredentialsFile)}
}

// setupTaxonomy loads the label set. A gs:// source opens a storage client
// for the duration of the read only.
func setupTaxonomy(ctx context.Context, app *App) (*taxonomy.Taxonomy, error) {
	source := app.cfg.Taxonomy.Source
	var objects taxonomy.ObjectReader
	if taxonomy.IsGCS(source) {
		client, err := storage.NewClient(ctx, app.clientOptions()...)
		if err != nil {
			return nil, fmt.Errorf("gcs client init failed: %w", err)
		}
		reader, err := gcsstorage.New(client)
		if err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("gcs reader init failed: %w", err)
		}
		defer func() {
			if err := reader.Close(); err != nil {
				app.logger.Warn("gcs client close failed", zap.Error(err))
			}
		}()
		objects = reader
	}
	tax, err := taxonomy.Load(ctx, source, objects)
	if err != nil {
		return nil, fmt.Errorf("taxonomy load failed: %w", err)
	}
	if source == "" {
		source = "built-in"
	}
	app.logger.Info("taxonomy loaded", zap.String("source", source), zap.Int("labels", tax.Len()))
	return tax, nil
}

func setupFetcher(app *App) (tagger.Fetcher, error) {
	plain := collyfetcher.New(collyfetcher.Config{
		UserAgent:     app.cfg.Fetch.UserAgent,
		RespectRobots: app.cfg.Fetch.RespectRobots,
		Timeout:       app.cfg.FetchTimeout(),
		MaxBodyBytes:  app.cfg.Fetch.MaxBodyBytes,
	})
	app.logger.Info("using colly fetcher",
		zap.String("user_agent", app.cfg.Fetch.UserAgent),
		zap.Duration("timeout", app.cfg.FetchTimeout()),
	)
	// Promoting records fetch metrics, so it wraps the colly fetcher even
	// when there is nothing to promote to.
	if !app.cfg.Headless.Enabled {
		return fetcher.NewPromoting(plain, nil, nil, app.logger.Named("fetcher")), nil
	}

	headless, err := headlessfetcher.NewChromedp(headlessfetcher.Config{
		MaxParallel:  app.cfg.Headless.MaxParallel,
		UserAgent:    app.cfg.Fetch.UserAgent,
		Timeout:      app.cfg.FetchTimeout(),
		SettleDelay:  time.Duration(app.cfg.Headless.SettleMillis) * time.Millisecond,
		MaxBodyBytes: app.cfg.Fetch.MaxBodyBytes,
	})
	if err != nil {
		return nil, fmt.Errorf("headless fetcher init failed: %w", err)
	}
	app.headless = headless
	app.logger.Info("using headless fetcher",
		zap.Int("max_parallel", app.cfg.Headless.MaxParallel),
		zap.Int("promotion_threshold", app.cfg.Headless.PromotionThresh),
	)
	return fetcher.NewPromoting(
		plain,
		headless,
		detector.NewHeuristic(app.cfg.Headless.PromotionThresh),
		app.logger.Named("fetcher"),
	), nil
}

func setupExtractor(app *App) (*extract.Extractor, error) {
	strategy, err := extract.ParseStrategy(app.cfg.Extract.Strategy)
	if err != nil {
		return nil, err
	}
	extractor, err := extract.New(strategy, app.cfg.Extract.MaxChars)
	if err != nil {
		return nil, fmt.Errorf("extractor init failed: %w", err)
	}
	app.logger.Info("extractor configured",
		zap.String("strategy", string(strategy)),
		zap.Int("max_chars", app.cfg.Extract.MaxChars),
	)
	return extractor, nil
}

// setupClassifier builds the configured backend once and wraps it in the
// process-wide guard.
func setupClassifier(ctx context.Context, app *App) (*classifier.Guard, error) {
	var backend tagger.Classifier
	switch app.cfg.Classify.Backend {
	case classifier.BackendGemini:
		client, err := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  app.cfg.Gemini.APIKey,
			Backend: genai.BackendGeminiAPI,
		})
		if err != nil {
			return nil, fmt.Errorf("gemini client init failed: %w", err)
		}
		backend = gemini.New(client, app.cfg.Gemini.Model)
		app.logger.Info("using gemini classifier", zap.String("model", app.cfg.Gemini.Model))
	case classifier.BackendHuggingFace, "":
		hf, err := huggingface.New(huggingface.Config{
			Endpoint: app.cfg.HuggingFace.Endpoint,
			Model:    app.cfg.HuggingFace.Model,
			APIToken: app.cfg.HuggingFace.APIToken,
		})
		if err != nil {
			return nil, fmt.Errorf("huggingface classifier init failed: %w", err)
		}
		backend = hf
		app.logger.Info("using huggingface classifier",
			zap.String("endpoint", app.cfg.HuggingFace.Endpoint),
			zap.String("model", app.cfg.HuggingFace.Model),
			zap.Bool("authenticated", app.cfg.HuggingFace.APIToken != ""),
		)
	default:
		return nil, fmt.Errorf("unknown classifier backend %q", app.cfg.Classify.Backend)
	}
	name := app.cfg.Classify.Backend
	if name == "" {
		name = classifier.BackendHuggingFace
	}
	return classifier.NewGuard(
		backend,
		name,
		int64(app.cfg.Classify.MaxConcurrency),
		app.cfg.ClassifyTimeout(),
	), nil
}

func setupLanguageDetector(app *App) (tagger.LanguageDetector, error) {
	if !app.cfg.LangDetect.Enabled {
		app.logger.Info("language detection disabled")
		return nil, nil
	}
	lang, err := langdetect.New(app.cfg.LangDetect.Languages)
	if err != nil {
		return nil, fmt.Errorf("language detector init failed: %w", err)
	}
	app.logger.Info("language detection enabled", zap.Strings("languages", app.cfg.LangDetect.Languages))
	return lang, nil
}

// setupPublisher returns nil when no topic is configured. A topic without a
// project keeps recent events in memory.
func setupPublisher(ctx context.Context, app *App) (tagger.Publisher, error) {
	if app.cfg.PubSub.TopicName == "" {
		app.logger.Info("No Pub/Sub topic configured, classification events disabled")
		return nil, nil
	}
	if app.cfg.PubSub.ProjectID == "" {
		app.logger.Warn("No Pub/Sub project configured, using in-memory publisher",
			zap.String("topic", app.cfg.PubSub.TopicName),
		)
		return memorypublisher.NewWithLimit(memoryPublisherKeep), nil
	}
	var err error
	app.pubsubClient, err = pubsub.NewClient(ctx, app.cfg.PubSub.ProjectID, app.clientOptions()...)
	if err != nil {
		return nil, fmt.Errorf("pubsub client init failed: %w", err)
	}
	app.publisher = gcppublisher.New(app.pubsubClient)
	app.logger.Info(
		"Pub/Sub publisher initialized",
		zap.String("project", app.cfg.PubSub.ProjectID),
		zap.String("topic", app.cfg.PubSub.TopicName),
	)
	return app.publisher, nil
}
