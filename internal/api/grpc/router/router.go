package router

import (
	"context"
	"strings"
	"time"

	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors"
	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/auth"
	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/recovery"
	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/selector"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/dtroode/chatdata-server/internal/api/grpc/handler"
	"github.com/dtroode/chatdata-server/internal/api/grpc/middleware"
	"github.com/dtroode/chatdata-server/internal/logger"
	"github.com/dtroode/chatdata-server/internal/model"
)

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Router represents a gRPC router for chatdata operations.
// It manages service registration, health reporting and middleware configuration.
type Router struct {
	profileService handler.ProfileService
	ledgerService  handler.LedgerService
	receiptService handler.ReceiptService
	tokenService   middleware.TokenService
	contextManager model.ContextManager
	pinger         Pinger
	health         *health.Server
	healthInterval time.Duration
	logger         *logger.Logger
}

// New creates new gRPC Router instance. pinger drives the health status
// reported every healthInterval by RunHealth.
func New(
	profileService handler.ProfileService,
	ledgerService handler.LedgerService,
	receiptService handler.ReceiptService,
	tokenService middleware.TokenService,
	contextManager model.ContextManager,
	pinger Pinger,
	healthInterval time.Duration,
	logger *logger.Logger,
) *Router {
	if healthInterval <= 0 {
		healthInterval = 10 * time.Second
	}
	return &Router{
		profileService: profileService,
		ledgerService:  ledgerService,
		receiptService: receiptService,
		tokenService:   tokenService,
		contextManager: contextManager,
		pinger:         pinger,
		health:         health.NewServer(),
		healthInterval: healthInterval,
		logger:         logger,
	}
}

// authRequired limits authentication to the ledger service; health and
// reflection stay open.
func authRequired(_ context.Context, c interceptors.CallMeta) bool {
	return strings.HasPrefix(c.FullMethod(), "/"+handler.LedgerServiceName+"/")
}

// Register registers all gRPC services and middleware.
//
// Returns the configured gRPC server instance.
func (r *Router) Register() *grpc.Server {
	logging := middleware.NewLogging(r.logger)
	authenticate := middleware.NewAuthenticate(r.tokenService, r.contextManager, r.logger)
	recoveryOpt := recovery.WithRecoveryHandlerContext(middleware.NewRecoveryHandler(r.logger))

	s := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			logging.HandleGRPC,
			recovery.UnaryServerInterceptor(recoveryOpt),
			selector.UnaryServerInterceptor(
				auth.UnaryServerInterceptor(authenticate.AuthFunc),
				selector.MatchFunc(authRequired),
			),
		),
		grpc.ChainStreamInterceptor(
			logging.HandleStream,
			recovery.StreamServerInterceptor(recoveryOpt),
			selector.StreamServerInterceptor(
				auth.StreamServerInterceptor(authenticate.AuthFunc),
				selector.MatchFunc(authRequired),
			),
		),
	)

	r.registerLedgerRoutes(s)
	healthpb.RegisterHealthServer(s, r.health)
	reflection.Register(s)

	return s
}

func (r *Router) registerLedgerRoutes(server *grpc.Server) {
	ledgerHandler := handler.NewLedger(r.profileService, r.ledgerService, r.receiptService, r.contextManager, r.logger)
	handler.RegisterLedgerServer(server, ledgerHandler)
}

// RunHealth pings the store until ctx is done and publishes the result for the
// overall server and the ledger service. On return every service reports
// NOT_SERVING.
func (r *Router) RunHealth(ctx context.Context) {
	ticker := time.NewTicker(r.healthInterval)
	defer ticker.Stop()

	r.checkHealth(ctx)
	for {
		select {
		case <-ctx.Done():
			r.health.Shutdown()
			return
		case <-ticker.C:
			r.checkHealth(ctx)
		}
	}
}

func (r *Router) checkHealth(ctx context.Context) {
	status := healthpb.HealthCheckResponse_SERVING

	pingCtx, cancel := context.WithTimeout(ctx, r.healthInterval)
	defer cancel()
	if err := r.pinger.Ping(pingCtx); err != nil {
		status = healthpb.HealthCheckResponse_NOT_SERVING
		r.logger.Warn("gRPC router: store ping failed",
			"error", err.Error())
	}

	r.health.SetServingStatus("", status)
	r.health.SetServingStatus(handler.LedgerServiceName, status)
}
