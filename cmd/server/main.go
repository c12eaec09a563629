package main

import (
	"context"
	"errors"
	"fasolink-chat/auth"
	"fasolink-chat/contract"
	"fasolink-chat/infrastructure/broker"
	grpcserver "fasolink-chat/infrastructure/grpc/server"
	"fasolink-chat/infrastructure/httpapi"
	"fasolink-chat/infrastructure/storage"
	"fasolink-chat/internal"
	"fasolink-chat/runtime"
	"fasolink-chat/runtime/workers"
	"fasolink-chat/services"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
	"google.golang.org/grpc"
)

// Exit codes for the service manager.
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

const shutdownTimeout = 10 * time.Second

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Server terminated with error: %v\n", err)
	}
	os.Exit(code)
}

// store bundles what a storage backend provides to the rest of the process.
// tokens stays nil when the backend keeps no opaque tokens.
type store struct {
	gateway       contract.Gateway
	history       contract.MessageHistory
	conversations contract.ConversationStore
	tokens        contract.TokenStore
}

// credentials lists the stores connections authenticate against, opaque tokens first.
func (s store) credentials(issuer *auth.TokenIssuer) []contract.CredentialStore {
	if s.tokens == nil {
		return []contract.CredentialStore{issuer}
	}
	return []contract.CredentialStore{s.tokens, issuer}
}

// run keeps every defer on the exit path, main only translates the exit code.
func run() (int, error) {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	if err := config.Validate(); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	logger := logs.GetLoggerFromString(config.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Storage
	issuer := auth.NewTokenIssuer(config.JWTSecret, config.JWTIssuer)
	st, closeStore, err := openStore(config, logger)
	if err != nil {
		return exitRuntime, err
	}
	defer closeStore()

	// 3. Groups, local or shared through a broker
	local := runtime.NewRegistry(logger)
	var registry contract.GroupRegistry = local
	sup := workers.NewSupervisor(logger, config.RestartInterval)
	sup.Add(workers.NewRegistryReporter(logger, local, config.MetricInterval))

	if config.BrokerBackend != internal.BrokerMemory {
		b, err := openBroker(ctx, config, logger)
		if err != nil {
			return exitRuntime, err
		}
		defer func() {
			logger.Info("Closing broker...")
			_ = b.Close()
		}()
		registry = runtime.NewBrokerRegistry(local, b, logger)
		sup.Add(workers.NewBrokerRelay(b, local, logger))
	}

	errChan := make(chan error, 2)
	supervisorDone := make(chan struct{})
	go func() {
		defer close(supervisorDone)
		sup.Run(ctx)
	}()

	// 4. Routing & services
	authenticator := auth.NewAuthenticator(logger, st.credentials(issuer)...)
	publisher := runtime.NewPublisher(registry, logger)
	router := runtime.NewRouter(logger, authenticator, st.gateway, registry, config.MaxContentLength)
	chatService := services.NewChatService(logger, st.gateway, st.history, publisher, config.MaxContentLength)
	operatorService := services.NewOperatorService(logger, st.conversations, st.tokens, issuer, publisher, config.AuthTokenDuration)
	handler := httpapi.NewHandler(logger, router, chatService, authenticator, httpapi.Options{
		ConnectionBufferSize: config.ConnectionBufferSize,
		WriteTimeout:         config.WriteTimeout,
	})

	// 5. HTTP server (websockets + REST)
	httpAddress := fmt.Sprintf("%s:%d", config.Host, config.Port)
	httpServer := &http.Server{
		Addr:              httpAddress,
		Handler:           handler.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("Starting HTTP server", "address", httpAddress, "store", config.StoreBackend, "broker", config.BrokerBackend)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	// 6. gRPC publisher bridge and operator service
	grpcAddress := fmt.Sprintf("%s:%d", config.Host, config.GRPCPort)
	listener, err := net.Listen("tcp", grpcAddress)
	if err != nil {
		return exitRuntime, fmt.Errorf("failed to listen on %s: %w", grpcAddress, err)
	}
	grpcServer, healthServer := grpcserver.NewGRPCServer(logger, issuer, publisher, operatorService)
	go func() {
		logger.Info("Starting gRPC server", "address", grpcAddress, "at", time.Now().UTC())
		for serviceName := range grpcServer.GetServiceInfo() {
			logger.Debug("gRPC exposed service", "name", serviceName)
		}
		if err := grpcServer.Serve(listener); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			errChan <- fmt.Errorf("gRPC server error: %w", err)
		}
	}()

	// 7. Wait for Stop or Error
	code, runErr := exitOK, error(nil)
	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case runErr = <-errChan:
		code = exitRuntime
	}

	// 8. Graceful shutdown
	logger.Info("Shutting down gracefully...")
	healthServer.Shutdown()
	grpcServer.GracefulStop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP shutdown incomplete", "error", err)
	}
	// Hijacked websockets are not tracked by Shutdown, canceling ctx ends their pumps
	stop()
	<-supervisorDone

	logger.Info("Program stopped cleanly")
	return code, runErr
}

func openStore(config internal.Config, logger *slog.Logger) (store, func(), error) {
	switch config.StoreBackend {
	case internal.StoreBadger:
		db, err := storage.OpenBadger(config.BadgerFilepath, logger)
		if err != nil {
			return store{}, nil, fmt.Errorf("database opening failed: %w", err)
		}
		repo, err := storage.NewConversationRepository(db, logger)
		if err != nil {
			_ = db.Close()
			return store{}, nil, err
		}
		closeFn := func() {
			logger.Info("Closing BadgerDB...")
			_ = repo.Close()
			_ = db.Close()
		}
		return store{
			gateway:       repo,
			history:       repo,
			conversations: repo,
			tokens:        storage.NewTokenRepository(db, logger),
		}, closeFn, nil
	default:
		dialect := storage.DialectSQLite
		if config.StoreBackend == internal.StorePostgres {
			dialect = storage.DialectPostgres
		}
		db, err := storage.OpenSQL(dialect, config.DatabaseURL)
		if err != nil {
			return store{}, nil, err
		}
		if err := storage.Migrate(db, dialect); err != nil {
			_ = db.Close()
			return store{}, nil, err
		}
		closeFn := func() {
			logger.Info("Closing SQL database...")
			_ = db.Close()
		}
		repo := storage.NewSQLRepository(db, dialect, logger)
		return store{gateway: repo, history: repo, conversations: repo}, closeFn, nil
	}
}

func openBroker(ctx context.Context, config internal.Config, logger *slog.Logger) (contract.Broker, error) {
	switch config.BrokerBackend {
	case internal.BrokerRedis:
		b := broker.NewRedisBroker(config.RedisAddr, logger)
		if err := b.Ping(ctx); err != nil {
			_ = b.Close()
			return nil, fmt.Errorf("redis unreachable at %s: %w", config.RedisAddr, err)
		}
		return b, nil
	case internal.BrokerNats:
		return broker.NewNatsBroker(config.NatsURL, logger)
	default:
		return nil, fmt.Errorf("broker backend %q", config.BrokerBackend)
	}
}
