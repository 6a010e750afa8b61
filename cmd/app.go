package cmd

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/pubsub"
	gcstorage "cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/afttdata/aftt-sync/internal/aftt"
	gcsarchive "github.com/afttdata/aftt-sync/internal/archive/gcs"
	localarchive "github.com/afttdata/aftt-sync/internal/archive/local"
	"github.com/afttdata/aftt-sync/internal/clock/system"
	"github.com/afttdata/aftt-sync/internal/config"
	"github.com/afttdata/aftt-sync/internal/driver"
	"github.com/afttdata/aftt-sync/internal/metrics"
	"github.com/afttdata/aftt-sync/internal/pace"
	memorypublisher "github.com/afttdata/aftt-sync/internal/publisher/memory"
	pubsubpublisher "github.com/afttdata/aftt-sync/internal/publisher/pubsub"
	"github.com/afttdata/aftt-sync/internal/registry"
	"github.com/afttdata/aftt-sync/internal/retry"
	"github.com/afttdata/aftt-sync/internal/scrape"
	"github.com/afttdata/aftt-sync/internal/store/memory"
	"github.com/afttdata/aftt-sync/internal/store/postgres"
)

// services bundles everything a command needs to run sync jobs.
type services struct {
	cfg      config.Config
	logger   *zap.Logger
	clock    *system.Clock
	registry *registry.Registry
	driver   *driver.Driver
	closers  []func()
}

// close releases resources in reverse construction order.
func (s *services) close() {
	s.driver.Shutdown()
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

// buildServices wires the stores, site adapters and driver from config.
func buildServices(ctx context.Context, cfg config.Config, logger *zap.Logger) (*services, error) {
	s := &services{cfg: cfg, logger: logger}
	s.clock = system.New()
	s.registry = registry.New(s.clock, 0)

	stores, err := s.buildStores(ctx)
	if err != nil {
		return nil, err
	}
	publisher, err := s.buildPublisher(ctx)
	if err != nil {
		s.closeAll()
		return nil, err
	}
	archiver, err := s.buildArchiver(ctx)
	if err != nil {
		s.closeAll()
		return nil, err
	}

	client := aftt.NewClient(aftt.ClientConfig{
		UserAgent: cfg.Session.UserAgent,
		Timeout:   time.Duration(cfg.Session.NavTimeoutSec) * time.Second,
	})
	sessionCfg := aftt.SessionConfig{
		EntryURL:          cfg.Session.EntryURL,
		UserAgent:         cfg.Session.UserAgent,
		NavigationTimeout: time.Duration(cfg.Session.NavTimeoutSec) * time.Second,
		RenderSettle:      time.Duration(cfg.Session.RenderSettleMs) * time.Millisecond,
	}

	pacer := pace.New(cfg.PaceDelay(), cfg.PostErrorDelay(),
		pace.WithObserver(func(kind pace.Kind, d time.Duration) {
			metrics.ObservePaceWait(string(kind), d)
		}))

	d, err := driver.New(driver.Config{
		Registry: s.registry,
		Stores:   stores,
		NewSession: func(context.Context) (driver.RankingsSession, error) {
			return aftt.NewSession(sessionCfg, logger.Named("session"))
		},
		Pages:         client,
		ClubNav:       aftt.NewClubNavigator(client),
		TournamentNav: aftt.NewTournamentNavigator(client),
		Publisher:     publisher,
		Topic:         cfg.PubSub.TopicName,
		Archiver:      archiver,
		Logger:        logger.Named("driver"),
		Retry:         retry.Policy{MaxRetries: cfg.Retry.MaxRetries, BaseDelay: cfg.RetryBaseDelay()},
		Pacer:         pacer,
		Weeks:         cfg.Weeks(),
	})
	if err != nil {
		s.closeAll()
		return nil, fmt.Errorf("build driver: %w", err)
	}
	s.driver = d
	return s, nil
}

func (s *services) closeAll() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

func (s *services) buildStores(ctx context.Context) (driver.Stores, error) {
	if s.cfg.Database.DSN == "" {
		s.logger.Info("no database DSN configured, using in-memory store")
		mem := memory.New()
		return driver.Stores{
			Divisions:   mem.Divisions(),
			Rankings:    mem.Rankings(),
			Clubs:       mem.Clubs(),
			Players:     mem.Players(),
			Tournaments: mem.Tournaments(),
			Series:      mem.Series(),
		}, nil
	}

	db, err := postgres.New(ctx, postgres.Config{
		DSN:             s.cfg.Database.DSN,
		MaxConns:        int32(s.cfg.Database.MaxConns),
		MinConns:        int32(s.cfg.Database.MinConns),
		MaxConnLifetime: time.Duration(s.cfg.Database.ConnLifetimeMin) * time.Minute,
	})
	if err != nil {
		return driver.Stores{}, fmt.Errorf("connect database: %w", err)
	}
	if err := db.EnsureSchema(ctx); err != nil {
		db.Close()
		return driver.Stores{}, fmt.Errorf("ensure schema: %w", err)
	}
	s.closers = append(s.closers, db.Close)
	return driver.Stores{
		Divisions:   db.Divisions(),
		Rankings:    db.Rankings(),
		Clubs:       db.Clubs(),
		Players:     db.Players(),
		Tournaments: db.Tournaments(),
		Series:      db.Series(),
	}, nil
}

func (s *services) buildPublisher(ctx context.Context) (scrape.Publisher, error) {
	if !s.cfg.PubSub.Enabled {
		return memorypublisher.New(), nil
	}
	client, err := pubsub.NewClient(ctx, s.cfg.PubSub.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("create pubsub client: %w", err)
	}
	s.closers = append(s.closers, func() {
		if cerr := client.Close(); cerr != nil {
			s.logger.Warn("close pubsub client", zap.Error(cerr))
		}
	})
	return pubsubpublisher.New(client), nil
}

func (s *services) buildArchiver(ctx context.Context) (scrape.Archiver, error) {
	switch s.cfg.Archive.Backend {
	case "", "none":
		return nil, nil
	case "local":
		return localarchive.New(localarchive.Config{BaseDir: s.cfg.Archive.LocalDir})
	case "gcs":
		client, err := gcstorage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("create storage client: %w", err)
		}
		s.closers = append(s.closers, func() {
			if cerr := client.Close(); cerr != nil {
				s.logger.Warn("close storage client", zap.Error(cerr))
			}
		})
		return gcsarchive.New(client, gcsarchive.Config{Bucket: s.cfg.Archive.GCSBucket})
	default:
		return nil, fmt.Errorf("unknown archive backend %q", s.cfg.Archive.Backend)
	}
}
