package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"marketplace/internal/config"
	"marketplace/internal/controller"
	"marketplace/internal/notify"
	"marketplace/internal/repository"
	"marketplace/internal/repository/db"
	"marketplace/internal/repository/docstore"
	"marketplace/internal/repository/memstore"
	"marketplace/internal/router"
	"marketplace/internal/service"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"
)

type closableStore interface {
	service.Store
	Close(ctx context.Context) error
}

type App struct {
	store      closableStore
	mongo      *mongo.Client
	journal    service.Journal
	repo       *repository.Repository
	hub        *notify.Hub
	redis      *redis.Client
	relay      *notify.RedisRelay
	service    *service.Service
	controller *controller.Controller
	log        *logrus.Logger
	stopSig    chan os.Signal
	cfg        *config.Config

	Done chan struct{}
}

type option func(*App)

func WithConfig(cfg *config.Config) option {
	return func(app *App) {
		app.cfg = cfg
	}
}

func WithLogger(log *logrus.Logger) option {
	return func(app *App) {
		app.log = log
	}
}

func NewApp(opts ...option) (*App, error) {
	var err error

	app := &App{
		stopSig: make(chan os.Signal, 2),
		Done:    make(chan struct{}),
	}

	for _, opt := range opts {
		opt(app)
	}

	if app.cfg == nil {
		cfg, err := config.NewConfig()
		if err != nil {
			return nil, err
		}
		app.cfg = cfg
	}

	if app.log == nil {
		app.log, err = NewLogger(app.cfg)
		if err != nil {
			return nil, err
		}
	}

	ctx := context.Background()

	if err = app.openStore(ctx); err != nil {
		return nil, err
	}
	if err = app.openJournal(ctx); err != nil {
		app.closeAll()
		return nil, err
	}

	app.hub = notify.NewHub(app.log)
	var bus notify.Publisher = app.hub
	if len(app.cfg.RedisConfig.URL) > 0 {
		app.redis, err = notify.NewRedisClient(ctx, app.cfg.RedisConfig.URL)
		if err != nil {
			app.closeAll()
			return nil, fmt.Errorf("app.NewApp: %w", err)
		}
		app.relay = notify.NewRedisRelay(app.redis, app.cfg.RedisConfig.Channel, app.hub, app.log)
		bus = app.relay
	}

	app.service = service.NewService(app.store, app.journal,
		service.WithPublisher(bus),
		service.WithLogger(app.log),
		service.WithPageLimit(app.cfg.DefaultPageLimit),
		service.WithRejectSiblingBids(app.cfg.RejectSiblingBids),
	)
	app.controller = controller.NewController(app.service, app.log)

	return app, nil
}

// NewLogger builds the process logger from LOG_LEVEL and LOG_FORMAT.
func NewLogger(cfg *config.Config) (*logrus.Logger, error) {
	log := logrus.New()

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("app.NewLogger: %w", err)
	}
	log.SetLevel(level)

	switch cfg.LogFormat {
	case "json":
		log.SetFormatter(&logrus.JSONFormatter{})
	default:
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	return log, nil
}

func (app *App) openStore(ctx context.Context) error {
	switch app.cfg.StoreBackend {
	case config.BackendMemory:
		app.log.Warn("using in-memory store, data is lost on exit")
		app.store = memstore.New()
	default:
		client, err := db.NewMongoClient(ctx, &app.cfg.MongoConfig, app.log)
		if err != nil {
			return fmt.Errorf("app.App.openStore: %w", err)
		}
		app.mongo = client
		app.store = docstore.New(ctx, client.Database(app.cfg.MongoConfig.Database), app.cfg.MongoConfig.Timeout, app.log)
	}
	return nil
}

func (app *App) openJournal(ctx context.Context) error {
	if !app.cfg.PostgresConfig.LedgerJournal {
		app.journal = memstore.NewJournal()
		return nil
	}

	repo, err := repository.NewRepository(ctx, nil, &app.cfg.PostgresConfig, app.log)
	if err != nil {
		return fmt.Errorf("app.App.openJournal: %w", err)
	}
	app.repo = repo
	app.journal = repo
	return nil
}

func (app *App) Run() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		signal.Notify(app.stopSig, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
		sig := <-app.stopSig
		app.log.Infof("Received signal: %s", sig)
		cancel()
	}()

	go app.hub.Run(ctx)
	if app.relay != nil {
		go app.relay.Run(ctx)
	}

	server := http.Server{
		Addr:         app.cfg.ServerAddress,
		Handler:      router.NewRouter(app.controller, http.HandlerFunc(app.hub.ServeWS), app.log),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		err := server.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			app.log.Error("Http server error: ", err)
		}
	}()

	app.log.Infof("Server started at %s, listening for connections...", app.cfg.ServerAddress)
	<-ctx.Done()

	timeout, tcancel := context.WithTimeout(context.Background(), time.Second*10)
	defer tcancel()
	app.log.Info("Shutting down http server...")
	server.Shutdown(timeout)

	app.log.Info("Closing stores...")
	if err := app.closeAll(); err != nil {
		app.log.Error("Store closing error: ", err)
	}

	close(app.Done)
	app.log.Info("Exiting app.")
}

func (app *App) closeAll() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var errs []error
	if app.store != nil {
		errs = append(errs, app.store.Close(ctx))
	}
	if app.mongo != nil {
		errs = append(errs, app.mongo.Disconnect(ctx))
	}
	if app.repo != nil {
		errs = append(errs, app.repo.Close())
	}
	if app.redis != nil {
		errs = append(errs, app.redis.Close())
	}
	return errors.Join(errs...)
}
