package cli

import (
	"context"
	"fmt"
	"sync"

	"github.com/spf13/cobra"

	grpcctx "github.com/dtroode/chatdata-server/internal/api/grpc/context"
	grpcrouter "github.com/dtroode/chatdata-server/internal/api/grpc/router"
	grpcserver "github.com/dtroode/chatdata-server/internal/api/grpc/server"
	httpctx "github.com/dtroode/chatdata-server/internal/api/http/context"
	httprouter "github.com/dtroode/chatdata-server/internal/api/http/router"
	httpserver "github.com/dtroode/chatdata-server/internal/api/http/server"
	"github.com/dtroode/chatdata-server/internal/config"
	"github.com/dtroode/chatdata-server/internal/logger"
	"github.com/dtroode/chatdata-server/internal/model"
	"github.com/dtroode/chatdata-server/internal/realtime"
	"github.com/dtroode/chatdata-server/internal/server"
	"github.com/dtroode/chatdata-server/internal/service"
	storage "github.com/dtroode/chatdata-server/internal/storage/minio"
	"github.com/dtroode/chatdata-server/internal/token"
)

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions, build BuildInfo) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP, websocket and gRPC servers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.NewConfig(rootOpts.EnvFiles...)
			if err != nil {
				return err
			}
			log := logger.New(cfg.LogLevel)
			log.Info("starting chatdata",
				"version", build.Version, "date", build.Date, "commit", build.Commit)
			return serve(cmd.Context(), cfg, log)
		},
	}
}

// imageURL is the public prefix of avatar paths handed out by the profile service.
func imageURL(cfg config.HTTP) string {
	return cfg.PublicURL + cfg.BasePath + "/images"
}

func serve(ctx context.Context, cfg *config.Config, log *logger.Logger) error {
	st, err := openStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := st.close(); err != nil {
			log.Error("failed to close store", "error", err)
		}
	}()

	// Left nil when disabled so the profile service reports uploads as unavailable.
	var objects model.Storage
	if cfg.Storage.Enabled {
		client, err := storage.Dial(ctx, cfg.Storage.Endpoint, cfg.Storage.AccessKey,
			cfg.Storage.SecretKey, cfg.Storage.Bucket, cfg.Storage.UseSSL)
		if err != nil {
			return fmt.Errorf("failed to initialize storage client: %w", err)
		}
		objects = client
	}

	hub := realtime.NewHub(log)
	defer hub.Close()

	tokenManager := token.NewJWT(cfg.JWT.Secret, cfg.JWT.AccessTTL, cfg.JWT.RefreshTTL)
	tokenService := service.NewTokenService(tokenManager, st.tokens, log)
	authService := service.NewAuth(st.users, tokenService, log)
	profileService := service.NewProfile(st.profiles, objects, imageURL(cfg.HTTP), cfg.HTTP.MaxImageBytes, log)
	ledgerService := service.NewLedger(st.profiles, hub, log)
	receiptService := service.NewReceipts(st.profiles, hub, log)

	socket := realtime.NewSocketHandler(hub, realtime.SocketOptions{
		AllowedOrigins:  cfg.HTTP.AllowedOrigins,
		SendBuffer:      cfg.Realtime.SendBuffer,
		PingInterval:    cfg.Realtime.PingInterval,
		WriteTimeout:    cfg.Realtime.WriteTimeout,
		MaxMessageBytes: cfg.Realtime.MaxMessageBytes,
	}, log)

	httpRouter := httprouter.New(httprouter.Services{
		Profile: profileService,
		Ledger:  ledgerService,
		Receipt: receiptService,
		Auth:    authService,
		Token:   tokenService,
	}, socket, httpctx.NewManager(), httprouter.Options{
		BasePath:       cfg.HTTP.BasePath,
		AllowedOrigins: cfg.HTTP.AllowedOrigins,
		RequireAuth:    cfg.HTTP.RequireAuth,
		MaxImageBytes:  cfg.HTTP.MaxImageBytes,
	}, log)

	type listener struct {
		server model.Server
		layer  model.SecurityLayer
	}
	servers := []listener{{
		server: httpserver.NewHTTPServer(httpRouter.Register(), ":"+cfg.HTTP.Port),
		layer:  server.NewSecurityLayer(cfg.HTTP.EnableHTTPS, cfg.HTTP.CertFileName, cfg.HTTP.PrivateKeyFileName),
	}}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup

	if cfg.GRPC.Enabled {
		grpcRouter := grpcrouter.New(profileService, ledgerService, receiptService, tokenService,
			grpcctx.NewManager(), st.profiles, cfg.GRPC.HealthInterval, log)
		servers = append(servers, listener{
			server: grpcserver.NewGRPCServer(grpcRouter.Register(), ":"+cfg.GRPC.Port),
			layer:  server.NewSecurityLayer(cfg.GRPC.EnableHTTPS, cfg.GRPC.CertFileName, cfg.GRPC.PrivateKeyFileName),
		})

		wg.Add(1)
		go func() {
			defer wg.Done()
			grpcRouter.RunHealth(runCtx)
		}()
	}

	for _, l := range servers {
		wg.Add(1)
		go func(l listener) {
			defer wg.Done()
			log.Info("Starting server on", "address", l.server.Address())
			if err := l.server.Start(l.layer); err != nil {
				log.Error("failed to start server", "error", err, "address", l.server.Address())
				cancel()
			}
		}(l)
	}

	<-runCtx.Done()
	log.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer shutdownCancel()

	for _, l := range servers {
		if err := l.server.Stop(shutdownCtx); err != nil {
			log.Error("error during server shutdown", "error", err, "address", l.server.Address())
		}
	}

	wg.Wait()
	log.Info("shutdown complete")
	return nil
}
