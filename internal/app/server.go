package app

import (
	"context"
	"fmt"
	"os"

	advisorclient "fieldserve-service/internal/client"
	"fieldserve-service/internal/config"
	"fieldserve-service/internal/db"
	domainauth "fieldserve-service/internal/domain/auth"
	advisorHandler "fieldserve-service/internal/handlers/advisor"
	agreementHandler "fieldserve-service/internal/handlers/agreement"
	authHandler "fieldserve-service/internal/handlers/auth"
	customerHandler "fieldserve-service/internal/handlers/customer"
	notifyH "fieldserve-service/internal/handlers/notification"
	planHandler "fieldserve-service/internal/handlers/plan"
	wsHandler "fieldserve-service/internal/handlers/websocket"
	"fieldserve-service/internal/middleware"
	"fieldserve-service/internal/pdf"
	xerrors "fieldserve-service/internal/pkg/errors"
	"fieldserve-service/internal/pkg/jwt"
	"fieldserve-service/internal/pkg/session"
	"fieldserve-service/internal/repository/postgres"
	advisorUsecase "fieldserve-service/internal/service/advisor"
	agreementUsecase "fieldserve-service/internal/service/agreement"
	authUsecase "fieldserve-service/internal/service/auth"
	customersvc "fieldserve-service/internal/service/customer"
	"fieldserve-service/internal/service/email"
	notifyUsecase "fieldserve-service/internal/service/notification"
	plansvc "fieldserve-service/internal/service/plan"
	"fieldserve-service/internal/websocket"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Server struct {
	cfg    config.AppConfig
	engine *gin.Engine
	logger *zap.Logger
}

func NewServer() *Server {
	cfg := config.Load()
	engine := gin.New()
	return &Server{cfg: cfg, engine: engine}
}

func (s *Server) Start() error {
	ctx := context.Background()

	logger, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer logger.Sync()
	s.logger = logger

	// ----- PostgreSQL -----
	pool, err := db.ConnectDB()
	if err != nil {
		return fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("failed to ping PostgreSQL: %w", err)
	}
	if err := db.RunMigrations(ctx, pool); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	// ----- Redis -----
	redisClient, err := db.NewRedisClient(db.RedisConfig{
		Addr:     s.cfg.RedisAddr,
		Password: s.cfg.RedisPass,
		DB:       0,
		PoolSize: 10,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}
	logger.Info("redis connected", zap.String("addr", s.cfg.RedisAddr))

	// ----- JWT, sessions, rate limiting -----
	jwtManager, err := jwt.LoadAndBuild(s.cfg.JWT)
	if err != nil {
		return fmt.Errorf("failed to load JWT manager: %w", err)
	}
	sessionManager := session.NewManager(redisClient)
	rateLimiter := session.NewRateLimiter(redisClient)

	// ----- Email -----
	var mailer agreementUsecase.Mailer
	if s.cfg.SMTPHost != "" {
		mailer = email.NewSender(
			s.cfg.SMTPHost,
			s.cfg.SMTPPort,
			s.cfg.SMTPUser,
			s.cfg.SMTPPass,
			s.cfg.SMTPFromName,
			s.cfg.SMTPSecure,
		)
	} else {
		logger.Warn("SMTP_HOST not set, reminder mail disabled")
	}

	// ----- Repositories -----
	store := postgres.NewDB(pool)
	authRepo := postgres.NewAuthRepository(store)
	customerRepo := postgres.NewCustomerRepository(store)
	planRepo := postgres.NewPlanRepository(store)
	agreementRepo := postgres.NewAgreementRepository(store)
	notifRepo := postgres.NewNotificationRepository(store)

	// ----- WebSocket hub -----
	hub := websocket.NewHub(logger)
	go hub.Run(ctx)

	// ----- Services -----
	authService := authUsecase.NewAuthService(authRepo, jwtManager, sessionManager, rateLimiter, logger)
	notifService := notifyUsecase.NewNotificationService(notifRepo, authRepo, hub, logger)
	planService := plansvc.NewPlanService(planRepo, logger)
	customerService := customersvc.NewCustomerService(customerRepo, logger)

	agreementService := agreementUsecase.NewService(
		agreementRepo,
		planRepo,
		customerRepo,
		notifService,
		agreementUsecase.Policy{ResetVisitsOnRenew: s.cfg.ResetVisitsOnRenew},
		logger,
	)

	sweeper := agreementUsecase.NewSweeper(agreementService, mailer, s.cfg.ExpirySweepInterval, logger)
	go sweeper.Run(ctx)

	advisorClient := advisorclient.NewAdvisorClient(s.cfg.AdvisorBaseURL, s.cfg.AdvisorAPIKey, s.cfg.AdvisorTimeout)
	advisorService := advisorUsecase.NewAdvisorService(advisorClient, agreementRepo, planRepo, customerRepo, logger)

	if err := s.bootstrapAdmin(ctx, authService); err != nil {
		logger.Error("failed to bootstrap admin user", zap.Error(err))
	}

	// ----- Handlers -----
	pdfGenerator := pdf.NewGenerator()
	authHandlerInst := authHandler.NewAuthHandler(authService, logger)
	agreementHandlerInst := agreementHandler.NewAgreementHandler(agreementService, pdfGenerator)
	planHandlerInst := planHandler.NewPlanHandler(planService)
	customerHandlerInst := customerHandler.NewCustomerHandler(customerService)
	notifHandlerInst := notifyH.NewNotificationHandler(notifService)
	advisorHandlerInst := advisorHandler.NewAdvisorHandler(advisorService)
	wsHandlerInst := wsHandler.NewWebSocketHandler(hub, authService, logger)

	// ----- Middlewares -----
	authMiddleware := middleware.NewAuthMiddleware(authService)

	s.engine.Use(
		middleware.RecoveryMiddleware(logger),
		middleware.LoggingMiddleware(logger),
		middleware.CORSMiddleware(),
	)

	// ----- Router -----
	handlers := &Handlers{
		AuthHandler:      authHandlerInst,
		AgreementHandler: agreementHandlerInst,
		PlanHandler:      planHandlerInst,
		CustomerHandler:  customerHandlerInst,
		NotifHandler:     notifHandlerInst,
		AdvisorHandler:   advisorHandlerInst,
		WSHandler:        wsHandlerInst,
		AuthMiddleware:   authMiddleware,
	}
	SetupRouter(s.engine, handlers)

	logger.Info("server starting", zap.String("addr", s.cfg.HTTPAddr))
	return s.engine.Run(s.cfg.HTTPAddr)
}

// bootstrapAdmin creates the first admin user from env vars so a fresh
// deployment has a login. Skipped when the email already exists.
func (s *Server) bootstrapAdmin(ctx context.Context, authService *authUsecase.AuthService) error {
	adminEmail := os.Getenv("ADMIN_EMAIL")
	adminPassword := os.Getenv("ADMIN_PASSWORD")
	if adminEmail == "" || adminPassword == "" {
		s.logger.Warn("ADMIN_EMAIL / ADMIN_PASSWORD not set, skipping admin bootstrap")
		return nil
	}

	adminName := os.Getenv("ADMIN_NAME")
	if adminName == "" {
		adminName = "Administrator"
	}

	_, err := authService.Register(ctx, 1, &domainauth.RegisterRequest{
		Email:    adminEmail,
		Password: adminPassword,
		FullName: adminName,
		Role:     domainauth.RoleAdmin,
	})
	if err != nil {
		if xerrors.Is(err, xerrors.ErrDuplicateEntry) {
			return nil
		}
		return err
	}

	s.logger.Info("admin user bootstrapped", zap.String("email", adminEmail))
	return nil
}
