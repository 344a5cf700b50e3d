package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi"
	chimiddleware "github.com/go-chi/chi/middleware"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/frahmantamala/salescrm/internal"
	"github.com/frahmantamala/salescrm/internal/access"
	"github.com/frahmantamala/salescrm/internal/audit"
	"github.com/frahmantamala/salescrm/internal/auth"
	"github.com/frahmantamala/salescrm/internal/contact"
	"github.com/frahmantamala/salescrm/internal/core/events"
	"github.com/frahmantamala/salescrm/internal/deal"
	"github.com/frahmantamala/salescrm/internal/dealer"
	"github.com/frahmantamala/salescrm/internal/product"
	"github.com/frahmantamala/salescrm/internal/resource"
	"github.com/frahmantamala/salescrm/internal/store"
	"github.com/frahmantamala/salescrm/internal/store/dynamo"
	"github.com/frahmantamala/salescrm/internal/store/memory"
	storepostgres "github.com/frahmantamala/salescrm/internal/store/postgres"
	"github.com/frahmantamala/salescrm/internal/subsidiary"
	"github.com/frahmantamala/salescrm/internal/task"
	"github.com/frahmantamala/salescrm/internal/transport"
	"github.com/frahmantamala/salescrm/internal/transport/middleware"
	"github.com/frahmantamala/salescrm/internal/transport/rest"
	"github.com/frahmantamala/salescrm/internal/user"
	userPostgres "github.com/frahmantamala/salescrm/internal/user/postgres"
	"github.com/frahmantamala/salescrm/pkg/logger"
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle API requests`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

// recordStore is what every store backend provides.
type recordStore interface {
	store.ReadWriter
	store.Pinger
}

// userSource is a user directory that can also load a single user.
type userSource interface {
	access.UserDirectory
	user.Repository
}

type Dependencies struct {
	Config   *internal.Config
	DB       *sqlx.DB
	Gorm     *gorm.DB
	Store    recordStore
	Users    userSource
	Registry *prometheus.Registry
	Bus      *events.EventBus
	Router   *chi.Mux
	Logger   *slog.Logger
}

// Close drains the event bus and releases the database connection, if one was opened.
func (d *Dependencies) Close() {
	if d.Bus != nil {
		d.Bus.Close()
	}
	if d.DB == nil {
		return
	}
	if err := d.DB.Close(); err != nil {
		d.Logger.Error("Database close error", "error", err)
	}
}

func startHTTPServer() {
	deps, err := initializeDependencies(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}
	defer deps.Close()

	if err := setupRoutes(deps); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to set up routes: %v\n", err)
		os.Exit(1)
	}

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	deps.Logger.Info("Starting HTTP server",
		"address", addr,
		"store", deps.Config.Store.Backend,
		"directory", deps.Config.Directory.Source,
		"transitive", deps.Config.Access.Transitive,
	)

	server := &http.Server{
		Addr:              addr,
		Handler:           deps.Router,
		ReadHeaderTimeout: deps.Config.Server.ReadHeaderTimeout,
		ReadTimeout:       deps.Config.Server.ReadTimeout,
		WriteTimeout:      deps.Config.Server.WriteTimeout,
		IdleTimeout:       deps.Config.Server.IdleTimeout,
	}

	// Signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		deps.Logger.Info("Received signal, shutting down...", "signal", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			deps.Logger.Error("Server shutdown error", "error", err)
		}
	case err := <-serverErrChan:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			deps.Logger.Error("Server failed to start", "error", err)
			deps.Close()
			os.Exit(1)
		}
	}

	deps.Logger.Info("Server stopped")
}

func setupRoutes(deps *Dependencies) error {
	cfg := deps.Config
	lg := deps.Logger

	verifier, err := newVerifier(cfg.Security)
	if err != nil {
		return err
	}

	resolver := access.NewResolver(deps.Users, lg,
		access.WithTransitive(cfg.Access.Transitive),
		access.WithFailurePolicy(access.FailurePolicy(cfg.Access.ResolverFailure)),
	)
	engine := access.NewEngine(resolver, lg)

	deps.Bus = events.NewEventBus(lg)
	deps.Bus.Subscribe(events.EventTypeAccessDecision, audit.DenialReporter(lg))
	sink, err := newAuditSink(cfg, deps.Bus, deps.Registry, lg)
	if err != nil {
		return err
	}

	base := transport.NewBaseHandler(lg)
	s := deps.Store
	resources := []rest.Resource{
		{Path: "deals", Routes: resource.NewHandler[deal.Deal](base, deal.NewService(s, engine, sink, lg)).Routes},
		{Path: "products", Routes: resource.NewHandler[product.Product](base, product.NewService(s, engine, sink, lg)).Routes},
		{Path: "tasks", Routes: resource.NewHandler[task.Task](base, task.NewService(s, engine, sink, lg)).Routes},
		{Path: "contacts", Routes: resource.NewHandler[contact.Contact](base, contact.NewService(s, engine, sink, lg)).Routes},
		{Path: "dealers", Routes: resource.NewHandler[dealer.Dealer](base, dealer.NewService(s, engine, sink, lg)).Routes},
		{Path: "subsidiaries", Routes: resource.NewHandler[subsidiary.Subsidiary](base, subsidiary.NewService(s, engine, sink, lg)).Routes},
	}

	health := map[string]rest.Pinger{"store": deps.Store}
	if cfg.Directory.Source == internal.DirectorySQL {
		health["directory"] = deps.Users.(rest.Pinger)
	}

	routerCfg := rest.RouterConfig{
		Verifier:       verifier,
		UserHandler:    user.NewHandler(base, user.NewService(deps.Users, engine, lg)),
		Resources:      resources,
		Health:         health,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Logger:         lg,
	}
	if cfg.Observability.Metrics.Enabled {
		routerCfg.HTTPMetrics = middleware.NewHTTPMetrics(deps.Registry)
		routerCfg.MetricsPath = cfg.Observability.Metrics.Path
		routerCfg.MetricsHandler = promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{})
	}

	if cfg.Server.RequestTimeout > 0 {
		deps.Router.Use(chimiddleware.Timeout(cfg.Server.RequestTimeout))
	}
	rest.RegisterAllRoutes(deps.Router, routerCfg)
	return nil
}

func newVerifier(cfg internal.SecurityConfig) (auth.TokenVerifier, error) {
	var opts []auth.Option
	if cfg.JWTIssuer != "" {
		opts = append(opts, auth.WithIssuer(cfg.JWTIssuer))
	}
	if cfg.JWTPublicKey != "" {
		key, err := cfg.GetPublicKey()
		if err != nil {
			return nil, fmt.Errorf("failed to load JWT public key: %w", err)
		}
		return auth.NewRSAVerifier(key, opts...), nil
	}
	return auth.NewHMACVerifier(cfg.JWTSecret, opts...), nil
}

// newAuditSink fans access decisions out to the log, the decision counters and the
// event bus, where denials are reported.
func newAuditSink(cfg *internal.Config, bus *events.EventBus, reg prometheus.Registerer, lg *slog.Logger) (audit.Sink, error) {
	sinks := audit.Multi{audit.NewLogSink(lg), audit.NewBusSink(bus, lg)}
	if cfg.Observability.Metrics.Enabled {
		metrics, err := audit.NewMetricsSink(reg)
		if err != nil {
			return nil, fmt.Errorf("failed to register audit metrics: %w", err)
		}
		sinks = append(sinks, metrics)
	}
	return sinks, nil
}

func initializeDependencies(ctx context.Context) (*Dependencies, error) {
	config, err := loadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	lg := logger.Init(config.Observability.Logging.Level, config.Observability.Logging.Format)

	deps := &Dependencies{
		Config:   config,
		Logger:   lg,
		Router:   chi.NewRouter(),
		Registry: prometheus.NewRegistry(),
	}
	deps.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	if config.NeedsDatabase() {
		deps.DB, err = initDB(config.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
	}

	deps.Store, err = initStore(ctx, config, deps.DB)
	if err != nil {
		deps.Close()
		return nil, fmt.Errorf("failed to initialize store: %w", err)
	}

	if config.Directory.Source == internal.DirectorySQL {
		deps.Gorm, err = initGorm(deps.DB)
		if err != nil {
			deps.Close()
			return nil, fmt.Errorf("failed to initialize user directory: %w", err)
		}
		deps.Users = userPostgres.NewDirectory(deps.Gorm)
	} else {
		deps.Users = storeUsers{
			StoreDirectory: access.NewStoreDirectory(deps.Store),
			ItemRepository: user.NewItemRepository(deps.Store),
		}
	}

	return deps, nil
}

// storeUsers serves users from the record store's users table.
type storeUsers struct {
	*access.StoreDirectory
	*user.ItemRepository
}

func initStore(ctx context.Context, cfg *internal.Config, db *sqlx.DB) (recordStore, error) {
	switch cfg.Store.Backend {
	case internal.StorePostgres:
		return storepostgres.New(db), nil
	case internal.StoreDynamoDB:
		return dynamo.Connect(ctx, cfg.Store.Region, cfg.Store.Endpoint, cfg.Store.TablePrefix)
	default:
		return memory.New(), nil
	}
}

// initGorm wraps the already open pool so the directory shares its connections.
func initGorm(db *sqlx.DB) (*gorm.DB, error) {
	return gorm.Open(gormpostgres.New(gormpostgres.Config{Conn: db.DB}), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
}

// initDB initializes the database connection
func initDB(cfg internal.DatabaseConfig) (*sqlx.DB, error) {
	const driver = "pgx"

	dbConn, err := sqlx.Connect(driver, cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	dbConn.SetMaxIdleConns(cfg.MaxIdleConns)
	dbConn.SetMaxOpenConns(cfg.MaxOpenConns)
	dbConn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	dbConn.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	// verify connection; close underlying *sql.DB on failure
	if err := dbConn.Ping(); err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return dbConn, nil
}
