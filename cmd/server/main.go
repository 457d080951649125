package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	ginadapter "github.com/awslabs/aws-lambda-go-api-proxy/gin"
	"github.com/flexprice/reconciler/internal/api"
	v1 "github.com/flexprice/reconciler/internal/api/v1"
	"github.com/flexprice/reconciler/internal/cache"
	"github.com/flexprice/reconciler/internal/config"
	"github.com/flexprice/reconciler/internal/httpclient"
	"github.com/flexprice/reconciler/internal/integration/ledger"
	"github.com/flexprice/reconciler/internal/integration/stripe"
	"github.com/flexprice/reconciler/internal/integration/supabase"
	"github.com/flexprice/reconciler/internal/interfaces"
	"github.com/flexprice/reconciler/internal/logger"
	"github.com/flexprice/reconciler/internal/migrations"
	"github.com/flexprice/reconciler/internal/postgres"
	"github.com/flexprice/reconciler/internal/repository"
	"github.com/flexprice/reconciler/internal/sentry"
	"github.com/flexprice/reconciler/internal/service"
	"github.com/flexprice/reconciler/internal/types"
	"github.com/flexprice/reconciler/internal/validator"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/fx"
)

func init() {
	// Set UTC timezone for the entire application
	time.Local = time.UTC
}

func main() {
	// .env is optional, real deployments inject the environment
	_ = godotenv.Load()

	var opts []fx.Option

	// Core dependencies
	opts = append(opts,
		fx.Provide(
			// Validator
			validator.NewValidator,

			// Config
			config.NewConfig,

			// Logger
			logger.NewLogger,

			// Monitoring
			sentry.NewSentryService,

			// Cache
			cache.NewInMemoryCache,

			// Postgres
			postgres.NewDB,
			postgres.NewSentryClient,

			// HTTP Client
			httpclient.NewDefaultClient,

			// Repositories
			repository.NewOrderRepository,
			repository.NewOrderItemRepository,
			repository.NewSubscriptionRepository,
			repository.NewStorageGrantRepository,
			repository.NewHouseholdRepository,
			repository.NewUserRepository,
			repository.NewPaymentRepository,
			repository.NewChecklistRepository,
			repository.NewCatalogRepository,

			// Integrations
			providePaymentProvider,
			provideIdentityProvider,
			provideTokenLedger,
			stripe.NewVerifier,
		),
	)

	// Service layer
	opts = append(opts,
		fx.Provide(
			service.NewServiceParams,

			service.NewOrderLedger,
			service.NewSubscriptionReconciler,
			service.NewStorageService,
			service.NewGuestProvisioner,
			service.NewHouseholdService,
			service.NewEntitlementRouter,
			service.NewInvoiceService,
			service.NewWebhookDispatcher,
		),
	)

	// API
	opts = append(opts,
		fx.Provide(
			provideHandlers,
			api.NewRouter,
		),
		fx.Invoke(
			sentry.RegisterHooks,
			runMigrations,
			startServer,
		),
	)

	app := fx.New(opts...)
	app.Run()
}

func providePaymentProvider(cfg *config.Configuration, log *logger.Logger) interfaces.PaymentProvider {
	return stripe.NewClient(cfg, log)
}

func provideIdentityProvider(cfg *config.Configuration, log *logger.Logger) interfaces.IdentityProvider {
	return supabase.NewIdentityProvider(cfg, log)
}

func provideTokenLedger(cfg *config.Configuration, client httpclient.Client, log *logger.Logger) interfaces.TokenLedger {
	return ledger.NewClient(cfg, client, log)
}

func provideHandlers(
	cfg *config.Configuration,
	logger *logger.Logger,
	verifier *stripe.Verifier,
	dispatcher service.WebhookDispatcher,
) api.Handlers {
	return api.Handlers{
		Health:  v1.NewHealthHandler(logger),
		Webhook: v1.NewWebhookHandler(cfg, verifier, dispatcher, logger),
	}
}

func runMigrations(cfg *config.Configuration, db *postgres.DB, log *logger.Logger) error {
	if !cfg.Postgres.AutoMigrate {
		return nil
	}

	migrator, err := migrations.New(db.DB.DB, log)
	if err != nil {
		return err
	}
	return migrator.Up()
}

func startServer(
	lc fx.Lifecycle,
	cfg *config.Configuration,
	r *gin.Engine,
	db *postgres.DB,
	log *logger.Logger,
) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			db.Close()
			return nil
		},
	})

	mode := cfg.Deployment.Mode
	if mode == "" {
		mode = types.ModeLocal
	}

	switch mode {
	case types.ModeLocal, types.ModeAPI:
		startAPIServer(lc, r, cfg, log)
	case types.ModeAWSLambdaAPI:
		startAWSLambdaAPI(r)
	default:
		log.Fatalf("Unknown deployment mode: %s", mode)
	}
}

func startAPIServer(
	lc fx.Lifecycle,
	r *gin.Engine,
	cfg *config.Configuration,
	log *logger.Logger,
) {
	srv := &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Info("Registering API server start hook")
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Infow("Starting API server", "address", cfg.Server.Address)
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatalf("Failed to start server: %v", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("Shutting down server...")
			return srv.Shutdown(ctx)
		},
	})
}

func startAWSLambdaAPI(r *gin.Engine) {
	ginLambda := ginadapter.New(r)
	go lambda.Start(ginLambda.ProxyWithContext)
}
