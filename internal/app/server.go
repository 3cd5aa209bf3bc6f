// internal/app/server.go
package app

import (
	"context"
	"fmt"
	"log"
	"time"

	"talenthub-service/internal/config"
	"talenthub-service/internal/db"
	catalogHandler "talenthub-service/internal/handlers/catalog"
	creditHandler "talenthub-service/internal/handlers/credit"
	notifyH "talenthub-service/internal/handlers/notification"
	requestHandler "talenthub-service/internal/handlers/planrequest"
	subscriptionHandler "talenthub-service/internal/handlers/subscription"
	transactionHandler "talenthub-service/internal/handlers/transaction"
	wsHandler "talenthub-service/internal/handlers/websocket"
	"talenthub-service/internal/middleware"
	"talenthub-service/internal/pkg/jwt"
	"talenthub-service/internal/pkg/scheduler"
	"talenthub-service/internal/pkg/session"
	"talenthub-service/internal/repository/postgres"
	catalogUsecase "talenthub-service/internal/service/catalog"
	creditUsecase "talenthub-service/internal/service/credit"
	notifyUsecase "talenthub-service/internal/service/notification"
	requestUsecase "talenthub-service/internal/service/planrequest"
	reconcileUsecase "talenthub-service/internal/service/reconcile"
	subscriptionUsecase "talenthub-service/internal/service/subscription"
	transactionUsecase "talenthub-service/internal/service/transaction"
	"talenthub-service/internal/websocket"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Server struct {
	cfg    config.AppConfig
	engine *gin.Engine
	logger *zap.Logger

	pool        *pgxpool.Pool
	redisClient *redis.Client
	sweeps      *scheduler.Scheduler
	cancel      context.CancelFunc
}

func NewServer() *Server {
	cfg := config.Load()
	engine := gin.Default()
	return &Server{cfg: cfg, engine: engine}
}

func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	// ----- Migrations -----
	if err := runMigrations(s.cfg.DatabaseURL); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	// ----- PostgreSQL -----
	pool, err := db.ConnectDB()
	if err != nil {
		return fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("failed to ping PostgreSQL: %w", err)
	}
	s.pool = pool

	// ----- Redis -----
	redisClient, err := db.NewRedisClient(db.RedisConfig{
		Addr:     s.cfg.RedisAddr,
		Password: s.cfg.RedisPass,
		DB:       0,
		PoolSize: 10,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}
	s.redisClient = redisClient
	log.Println("[REDIS] connected successfully")

	// ----- Logger -----
	logger, _ := zap.NewProduction()
	s.logger = logger

	// ----- JWT Verifier -----
	verifier, err := jwt.LoadVerifier(s.cfg.JWT)
	if err != nil {
		return fmt.Errorf("failed to load JWT verifier: %w", err)
	}

	// ----- Session Manager & Rate Limiter -----
	sessionManager := session.NewManager(redisClient)
	rateLimiter := session.NewRateLimiter(redisClient)

	// ----- Repositories -----
	dbWrapper := postgres.NewDB(pool)
	companyRepo := postgres.NewCompanyRepository(pool)
	jobRepo := postgres.NewJobRepository(pool)
	balanceRepo := postgres.NewCreditBalanceRepository(pool)
	usageRepo := postgres.NewCreditUsageRepository(pool)
	planRepo := postgres.NewSubscriptionPlanRepository(pool)
	packageRepo := postgres.NewCreditPackageRepository(pool)
	subscriptionRepo := postgres.NewCompanySubscriptionRepository(pool)
	requestRepo := postgres.NewPlanRequestRepository(pool)
	transactionRepo := postgres.NewTransactionRepository(pool)
	notifyRepo := postgres.NewNotificationRepository(pool)

	// ----- WebSocket Hub -----
	hub := websocket.NewHub(verifier, sessionManager)
	go hub.Run(ctx)

	// ----- Services -----
	notifService := notifyUsecase.NewNotificationService(notifyRepo, hub, logger)
	creditService := creditUsecase.NewCreditService(
		balanceRepo,
		usageRepo,
		jobRepo,
		transactionRepo,
		dbWrapper,
		hub,
		logger,
	)
	subscriptionService := subscriptionUsecase.NewSubscriptionService(
		subscriptionRepo,
		planRepo,
		companyRepo,
		jobRepo,
		creditService,
		transactionRepo,
		dbWrapper,
		hub,
		logger,
	)
	requestService := requestUsecase.NewRequestService(
		requestRepo,
		planRepo,
		packageRepo,
		subscriptionService,
		creditService,
		transactionRepo,
		dbWrapper,
		notifService,
		logger,
	)
	transactionService := transactionUsecase.NewTransactionService(transactionRepo, logger)
	planService := catalogUsecase.NewPlanService(planRepo, logger)
	packageService := catalogUsecase.NewPackageService(packageRepo, logger)
	reconcileService := reconcileUsecase.NewReconcileService(
		creditService,
		balanceRepo,
		subscriptionService,
		planRepo,
		notifService,
		logger,
	)

	// ----- Scheduled Sweeps -----
	sweeps := scheduler.New(logger)
	sweeps.Add("daily-sweep", s.cfg.DailySweepInterval, reconcileService.RunDailySweep)
	sweeps.Add("alert-sweep", s.cfg.AlertSweepInterval, reconcileService.RunAlertSweep)
	sweeps.Start(ctx)
	s.sweeps = sweeps

	// ----- Handlers -----
	planHandlerInst := catalogHandler.NewPlanHandler(planService)
	packageHandlerInst := catalogHandler.NewPackageHandler(packageService)
	subscriptionHandlerInst := subscriptionHandler.NewSubscriptionHandler(subscriptionService)
	creditHandlerInst := creditHandler.NewCreditHandler(creditService)
	requestHandlerInst := requestHandler.NewRequestHandler(requestService)
	transactionHandlerInst := transactionHandler.NewTransactionHandler(transactionService)
	notifHandlerInst := notifyH.NewNotificationHandler(notifService)
	wsHandlerInst := wsHandler.NewWebSocketHandler(hub, logger)

	// ----- Middlewares -----
	authMiddleware := middleware.NewAuthMiddleware(verifier, sessionManager)

	s.engine.Use(
		middleware.RecoveryMiddleware(logger),
		middleware.LoggingMiddleware(logger),
		middleware.CORSMiddleware(),
	)

	// ----- Router -----
	handlers := &Handlers{
		PlanHandler:         planHandlerInst,
		PackageHandler:      packageHandlerInst,
		SubscriptionHandler: subscriptionHandlerInst,
		CreditHandler:       creditHandlerInst,
		RequestHandler:      requestHandlerInst,
		TransactionHandler:  transactionHandlerInst,
		NotifHandler:        notifHandlerInst,
		WSHandler:           wsHandlerInst,
		AuthMiddleware:      authMiddleware,
		RateLimit:           middleware.RateLimitMiddleware(rateLimiter, int64(s.cfg.APIRateLimit), time.Minute),
	}
	SetupRouter(s.engine, logger, handlers)

	// ----- Start HTTP -----
	log.Printf("server running on %s", s.cfg.HTTPAddr)
	return s.engine.Run(s.cfg.HTTPAddr)
}

// Shutdown stops the background sweeps and the websocket hub, then closes
// the connection pools.
func (s *Server) Shutdown() {
	if s.cancel != nil {
		s.cancel()
	}
	if s.sweeps != nil {
		s.sweeps.Wait()
	}
	if s.pool != nil {
		s.pool.Close()
	}
	if s.redisClient != nil {
		_ = s.redisClient.Close()
	}
	if s.logger != nil {
		_ = s.logger.Sync()
	}
}

// runMigrations applies the SQL migrations in migrations/ before the pool opens.
func runMigrations(dsn string) error {
	sqlDB, err := goose.OpenDBWithDriver("postgres", dsn)
	if err != nil {
		return err
	}
	defer func() { _ = sqlDB.Close() }()
	return goose.Up(sqlDB, "migrations")
}
