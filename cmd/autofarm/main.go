package main

import (
	"context"
	"net"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/elys-network/autofarm/internal/avm"
	"github.com/elys-network/autofarm/internal/config"
	"github.com/elys-network/autofarm/internal/logger"
	"github.com/elys-network/autofarm/internal/simulations"
	"github.com/elys-network/autofarm/internal/state"
	"github.com/elys-network/autofarm/internal/store"
	"github.com/elys-network/autofarm/internal/vault"
	"github.com/elys-network/autofarm/internal/web"
)

const (
	healthServiceName = "autofarm.Engine"
	shutdownTimeout   = 10 * time.Second
)

// main is the entry point of the position lifecycle engine daemon.
func main() {
	// --- 1. Initialization Phase ---
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg("Warning: .env file not found. Relying on OS environment variables.")
	}

	if err := config.LoadConfig(); err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logger.Initialize(config.LogLevel, config.LogFile)
	log.Info().Msg("Autofarm engine starting...")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- 2. Engine state ---
	// The daemon hosts the engine on the in-process chain, so engine state lives in memory too.
	if err := config.RequireMemoryStore(true); err != nil {
		log.Fatal().Err(err).Msg("Invalid store configuration")
	}
	st, err := store.NewMemStore()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open engine store")
	}

	chain := simulations.NewChain()
	chain.DeployEnergyFactory(config.LockedTokenID, config.DefaultEngineParameters.BaseTokenID)
	chain.DeployNativeWrapper(config.WrappedNativeTokenID)

	engineAddress := config.EngineAddress
	if engineAddress.Empty() {
		engineAddress = simulations.AccountAddress("autofarm-engine")
	}
	engine, err := vault.NewEngine(st, chain.Host(engineAddress), vault.Options{
		Address:              engineAddress,
		AdminAddress:         config.AdminAddress,
		ProxyClaimAddress:    config.ProxyAddress,
		FeePercentage:        config.FeePercentage,
		LockedTokenID:        config.LockedTokenID,
		NativeTokenID:        config.NativeTokenID,
		WrappedNativeTokenID: config.WrappedNativeTokenID,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create engine")
	}
	defer func() {
		if err := engine.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close engine store")
		}
	}()
	log.Info().Str("address", engineAddress.String()).Msg("Engine ready")

	// --- 3. Optional compound history ---
	var historyReader web.HistoryReader
	var historyRecorder avm.HistoryRecorder
	if config.HistoryDB != nil {
		if err := state.InitDB(*config.HistoryDB); err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize database")
		}
		defer state.CloseDB()
		if err := state.EnsureSchema(); err != nil {
			log.Fatal().Err(err).Msg("Failed to ensure database schema")
		}
		historyReader = state.History{}
		historyRecorder = state.History{}
	} else {
		log.Warn().Msg("DB_HOST not set, keeper history is not persisted")
	}

	// --- 4. Query API and gRPC health ---
	webServer := web.NewWebServer(config.WebPort, engine, historyReader)
	go func() {
		log.Info().Str("port", config.WebPort).Str("url", "http://localhost:"+config.WebPort).Msg("Starting query API")
		if err := webServer.Start(); err != nil {
			log.Error().Err(err).Msg("Web server failed")
			stop()
		}
	}()

	healthServer := health.NewServer()
	grpcServer := grpc.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus(healthServiceName, healthpb.HealthCheckResponse_SERVING)
	listener, err := net.Listen("tcp", ":"+config.GRPCHealthPort)
	if err != nil {
		log.Fatal().Err(err).Str("port", config.GRPCHealthPort).Msg("Failed to listen for gRPC health")
	}
	go func() {
		log.Info().Str("port", config.GRPCHealthPort).Msg("Starting gRPC health service")
		if err := grpcServer.Serve(listener); err != nil {
			log.Error().Err(err).Msg("gRPC health server failed")
		}
	}()

	// --- 5. Keeper ---
	if config.KeeperEnabled {
		keeper, err := avm.NewKeeper(avm.Config{
			Manager:  engine,
			Proxy:    config.ProxyAddress,
			Recorder: historyRecorder,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create keeper")
		}
		go keeper.RunLoop(ctx, config.KeeperInterval)
	}

	<-ctx.Done()
	log.Info().Msg("Shutting down...")

	healthServer.Shutdown()
	grpcServer.GracefulStop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := webServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Web server shutdown failed")
	}
}
