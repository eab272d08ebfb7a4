package core

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jo-hoe/imageset/internal/backend/commandstructure"
	_ "github.com/jo-hoe/imageset/internal/backend/commands"
	"github.com/jo-hoe/imageset/internal/backend/database"
	"github.com/jo-hoe/imageset/internal/backend/fetcher"
	"github.com/jo-hoe/imageset/internal/backend/runjournal"
	"github.com/jo-hoe/imageset/internal/backend/sampler"
)

// StoreFactory opens a store connection. The caller closes it.
type StoreFactory func(ctx context.Context) (database.DatabaseService, error)

type CoreService struct {
	config     *ServiceConfig
	resolver   *fetcher.Resolver
	downloader *fetcher.Downloader
	sampler    *sampler.Sampler
	openStore  StoreFactory
	journal    runjournal.Journal
	pipeline   *commandstructure.Pipeline
	now        func() time.Time

	httpClient   *http.Client
	resolverOpts []fetcher.ResolverOption
}

type Option func(*CoreService)

// WithHTTPClient sets the client for listing and archive requests.
func WithHTTPClient(client *http.Client) Option {
	return func(s *CoreService) {
		s.httpClient = client
	}
}

func WithResolverOptions(opts ...fetcher.ResolverOption) Option {
	return func(s *CoreService) {
		s.resolverOpts = append(s.resolverOpts, opts...)
	}
}

func WithSampler(smp *sampler.Sampler) Option {
	return func(s *CoreService) {
		s.sampler = smp
	}
}

func WithStoreFactory(factory StoreFactory) Option {
	return func(s *CoreService) {
		s.openStore = factory
	}
}

func WithJournal(journal runjournal.Journal) Option {
	return func(s *CoreService) {
		s.journal = journal
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *CoreService) {
		s.now = now
	}
}

func NewCoreService(ctx context.Context, config *ServiceConfig, opts ...Option) (*CoreService, error) {
	service := &CoreService{
		config:     config,
		httpClient: http.DefaultClient,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(service)
	}

	resolverOpts := append([]fetcher.ResolverOption{fetcher.WithResolverClient(service.httpClient)}, service.resolverOpts...)
	service.resolver = fetcher.NewResolver(config.Source.BaseURL, config.Source.ListingPage, config.Source.Suffix, resolverOpts...)
	service.downloader = fetcher.NewDownloader(config.DownloadDir, service.httpClient)

	if service.sampler == nil {
		service.sampler = sampler.New(nil)
	}
	if service.openStore == nil {
		service.openStore = databaseStoreFactory(config.Database)
	}
	if service.journal == nil {
		service.journal = newJournal(ctx, config.Redis)
	}

	pipeline, err := commandstructure.BuildPipeline(commandstructure.DefaultRegistry, config.CommandConfigs())
	if err != nil {
		_ = service.journal.Close()
		return nil, fmt.Errorf("failed to build command pipeline: %w", err)
	}
	service.pipeline = pipeline

	return service, nil
}

func databaseStoreFactory(cfg Database) StoreFactory {
	return func(ctx context.Context) (database.DatabaseService, error) {
		return database.NewDatabase(ctx, cfg.Type, cfg.ConnectionString, cfg.CreateSchema)
	}
}

func newJournal(ctx context.Context, cfg Redis) runjournal.Journal {
	if cfg.Addr == "" {
		return runjournal.NopJournal{}
	}
	journal, err := runjournal.NewRedisJournal(ctx, cfg.Addr, cfg.Key, cfg.MaxEntries)
	if err != nil {
		slog.Warn("run journal disabled", "addr", cfg.Addr, "error", err)
		return runjournal.NopJournal{}
	}
	slog.Info("run journal enabled", "addr", cfg.Addr, "key", cfg.Key)
	return journal
}

// Config returns the service configuration.
func (s *CoreService) Config() *ServiceConfig {
	return s.config
}

// AcquireStore opens a store connection through the configured factory.
func (s *CoreService) AcquireStore(ctx context.Context) (database.DatabaseService, error) {
	return s.openStore(ctx)
}

// Pipeline returns the configured post-processing commands for served images.
func (s *CoreService) Pipeline() *commandstructure.Pipeline {
	return s.pipeline
}

// RecentRuns returns at most n journal entries, newest first.
func (s *CoreService) RecentRuns(ctx context.Context, n int) ([]runjournal.RunSummary, error) {
	return s.journal.Recent(ctx, n)
}

func (s *CoreService) Close() error {
	return s.journal.Close()
}
