// Package server initializes and runs the trade portal: repositories, blob
// storage, caches, the peer network transport and the gRPC and HTTP surfaces.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/tradeportal/internal/dbx"
	"github.com/dmitrijs2005/tradeportal/internal/logging"
	"github.com/dmitrijs2005/tradeportal/internal/oa"
	"github.com/dmitrijs2005/tradeportal/internal/server/cache"
	"github.com/dmitrijs2005/tradeportal/internal/server/config"
	"github.com/dmitrijs2005/tradeportal/internal/server/metrics"
	"github.com/dmitrijs2005/tradeportal/internal/server/models"
	"github.com/dmitrijs2005/tradeportal/internal/server/node"
	"github.com/dmitrijs2005/tradeportal/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/tradeportal/internal/server/services"
	"github.com/dmitrijs2005/tradeportal/internal/server/storage"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/twmb/franz-go/pkg/kgo"
	"golang.org/x/sync/errgroup"

	gs "github.com/dmitrijs2005/tradeportal/internal/server/grpc"
	hs "github.com/dmitrijs2005/tradeportal/internal/server/http"
)

// App owns every long-lived component of the portal.
type App struct {
	config   *config.Config
	logger   logging.Logger
	db       *sql.DB
	kafka    *kgo.Client
	registry *prometheus.Registry

	References     *services.ReferenceService
	Files          *services.FileService
	OA             *services.OAService
	Documents      *services.DocumentService
	History        *services.HistoryService
	Reconciliation *services.ReconciliationService
	Verification   *services.VerificationService

	consumer *node.Consumer
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.NewJSON(os.Stdout, c.LogLevel)
	return newApp(ctx, c, logger)
}

func newApp(ctx context.Context, c *config.Config, logger logging.Logger) (*App, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}

	app := &App{config: c, logger: logger, registry: prometheus.NewRegistry()}
	app.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	rm, runner, err := app.initRepositories(ctx)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("db init error: %w", err)
	}

	blobs, err := app.initBlobStore(ctx)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("blob store init error: %w", err)
	}

	rc, err := cache.NewRedisClient(ctx, c.RedisURL)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("redis init error: %w", err)
	}
	var served cache.WrappedDocCache = cache.NopWrappedCache{}
	if rc != nil {
		served = cache.NewRedisWrappedCache(rc, c.CacheTTL)
	}

	sender, err := app.initSender(ctx)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("node transport init error: %w", err)
	}

	m := metrics.NewWithRegisterer(app.registry)
	lc := c.Lifecycle()
	ftas := cache.NewFTACache(c.CacheTTL)
	env := oa.New(c.OA())

	app.References = services.NewReferenceService(app.db, rm, ftas)
	app.Files = services.NewFileService(app.db, rm, blobs, logger)
	app.OA = services.NewOAService(app.db, rm, env, lc, blobs, served, m, logger)
	app.Documents = services.NewDocumentService(app.db, rm, runner, lc, app.OA, app.Files, ftas, nil, logger)
	app.History = services.NewHistoryService(app.db, rm, runner, logger)
	app.Reconciliation = services.NewReconciliationService(app.db, rm, runner, lc, sender, ftas, m, logger)
	app.Verification = services.NewVerificationService(app.db, rm, runner, lc, app.OA, ftas, logger)
	app.Reconciliation.SetBusinessEventHandler(verifyIncoming(app.Verification))

	if app.kafka != nil && c.KafkaStatusTopic != "" {
		app.consumer = node.NewConsumer(app.kafka, app.Reconciliation, logger)
	}

	return app, nil
}

// initRepositories selects Postgres when a DSN is configured and the
// in-memory repositories otherwise.
func (app *App) initRepositories(ctx context.Context) (repomanager.RepositoryManager, dbx.Runner, error) {
	if app.config.DatabaseDSN == "" {
		app.logger.Warn(ctx, "no database configured, using in-memory repositories")
		return repomanager.NewMemoryRepositoryManager(), dbx.NewLockingRunner(), nil
	}

	db, err := sql.Open("pgx", app.config.DatabaseDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("db open error: %w", err)
	}
	app.db = db

	if err := db.PingContext(ctx); err != nil {
		return nil, nil, fmt.Errorf("db ping error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		return nil, nil, fmt.Errorf("migration error: %w", err)
	}
	return rm, dbx.NewSQLRunner(db), nil
}

func (app *App) initBlobStore(ctx context.Context) (storage.BlobStore, error) {
	c := app.config
	switch c.BlobBackend {
	case config.BlobS3:
		return storage.NewS3Store(ctx, storage.S3Config{
			Region:       c.S3Region,
			User:         c.S3RootUser,
			Password:     c.S3RootPassword,
			Bucket:       c.S3Bucket,
			BaseEndpoint: c.S3BaseEndpoint,
		})
	case config.BlobDisk:
		return storage.NewDiskStore(c.BlobDir)
	default:
		return storage.NewMemoryStore(), nil
	}
}

// initSender connects to Kafka when brokers are configured. Without brokers
// outbound messages are only logged.
func (app *App) initSender(ctx context.Context) (services.Sender, error) {
	c := app.config
	if len(c.KafkaBrokers) == 0 {
		app.logger.Warn(ctx, "no kafka brokers configured, outbound messages will only be logged")
		return node.NewLogSender(app.logger), nil
	}

	cl, err := node.NewClient(node.ClientConfig{
		Brokers:       c.KafkaBrokers,
		OutboundTopic: c.KafkaOutboundTopic,
		StatusTopic:   c.KafkaStatusTopic,
		Group:         c.KafkaGroup,
	})
	if err != nil {
		return nil, err
	}
	app.kafka = cl

	topics := []string{c.KafkaOutboundTopic}
	if c.KafkaStatusTopic != "" {
		topics = append(topics, c.KafkaStatusTopic)
	}
	if err := node.EnsureTopics(ctx, cl, 1, topics...); err != nil {
		app.logger.Warn(ctx, "could not ensure kafka topics", "error", err)
	}

	return node.NewKafkaSender(cl, c.KafkaOutboundTopic, app.logger), nil
}

// verifyIncoming re-verifies incoming documents whenever a peer message
// about them arrives.
func verifyIncoming(v *services.VerificationService) services.BusinessEventHandler {
	return func(ctx context.Context, d *models.Document, m *models.NodeMessage) error {
		if d.WorkflowStatus != models.WorkflowIncoming {
			return nil
		}
		_, err := v.Verify(ctx, d.ID)
		return err
	}
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// Run serves until ctx is cancelled, a signal arrives or any component
// fails. The first failure stops the others.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()
	defer app.Close()

	app.logger.Info(ctx, "Starting app...", "home", app.config.HomeJurisdiction)

	app.initSignalHandler(cancelFunc)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s := gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.logger, app.Reconciliation, app.Documents, app.OA,
			app.Files, app.config.SecretKey, app.config.HomeJurisdiction)
		return s.Run(ctx)
	})

	g.Go(func() error {
		h := hs.New(app.OA, app.Documents, app.registry, app.logger)
		return hs.NewServer(app.config.EndpointAddrHTTP, h.Router(), app.logger).Run(ctx)
	})

	if app.consumer != nil {
		g.Go(func() error {
			return app.consumer.Run(ctx)
		})
	}

	err := g.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		app.logger.Error(ctx, "app stopped", "error", err)
		return err
	}
	app.logger.Info(context.Background(), "app stopped")
	return nil
}

// Close releases the database pool and the Kafka client.
func (app *App) Close() {
	if app.kafka != nil {
		app.kafka.Close()
		app.kafka = nil
	}
	if app.db != nil {
		_ = app.db.Close()
		app.db = nil
	}
}
