package main

import (
	"context"
	"fmt"
	"math/big"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mint-backend/internal/clients"
	"mint-backend/internal/config"
	"mint-backend/internal/contracts"
	"mint-backend/internal/db"
	"mint-backend/internal/events"
	"mint-backend/internal/ledger"
	"mint-backend/internal/router"
	"mint-backend/internal/services"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

func main() {
	// .env is optional, env vars may come from the process environment
	_ = godotenv.Load()

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	if level, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil {
		logger.SetLevel(level)
	}

	if err := config.LoadConfig(os.Getenv("CONFIG_PATH")); err != nil {
		logger.WithError(err).Fatal("Failed to load config")
	}
	cfg := config.AppConfig

	// the primary store is allowed to be down at startup, the ledger
	// falls back to the local store until it recovers
	var primary ledger.PrimaryStore
	if err := db.InitDB(); err != nil {
		logger.WithError(err).Warn("Primary store unavailable, starting on fallback only")
	} else {
		primary = ledger.NewGormStore(db.DB)
		logger.Info("Primary store connected")
	}

	fallback, err := ledger.NewFallbackStore(cfg.Fallback.Path)
	if err != nil {
		logger.WithError(err).Fatal("Failed to open fallback store")
	}

	publisher, err := events.Connect(cfg.NATS.URL, logger)
	if err != nil {
		logger.WithError(err).Warn("NATS unavailable, order events disabled")
	}
	defer publisher.Close()

	orderLedger := ledger.NewLedger(primary, fallback, publisher, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	go orderLedger.FlushLoop(ctx, 30*time.Second)

	network, err := config.GetActiveNetwork()
	if err != nil {
		logger.WithError(err).Fatal("No active network configured")
	}

	client := dialNetwork(ctx, network, logger)
	defer client.Close()

	signer, err := services.NewSigner(network.PrivateKey)
	if err != nil {
		logger.WithError(err).Fatal("Failed to load signing key")
	}
	logger.WithField("address", signer.Address.Hex()).Info("Mint signer loaded")

	archetype, err := contracts.NewArchetype(common.HexToAddress(cfg.Mint.Contract), client)
	if err != nil {
		logger.WithError(err).Fatal("Failed to bind mint contract")
	}

	allowlistClient := clients.NewAllowlistClient(
		cfg.Allowlist.BaseURL,
		time.Duration(cfg.Allowlist.Timeout)*time.Second,
	)
	eligibility := services.NewEligibilityService(allowlistClient, cfg.Mint.Contract, cfg.Mint.PrivateRoot, logger)
	quantity := services.NewQuantityService(archetype)
	mint := services.NewMintService(
		client,
		archetype,
		archetype,
		quantity,
		signer,
		mustChainID(ctx, client, network, logger),
		services.MintServiceOptions{
			PriceCeiling:         cfg.Mint.PriceCeiling(),
			GasCeiling:           cfg.Mint.GasCeiling,
			MaxFeePerGas:         cfg.Mint.MaxFeePerGas(),
			MaxPriorityFeePerGas: cfg.Mint.MaxPriorityFeePerGas(),
		},
		logger,
	)

	engine := router.New(router.Deps{
		Ledger:      orderLedger,
		Mint:        mint,
		Eligibility: eligibility,
		Quantity:    quantity,
		Logger:      logger,
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: engine,
	}

	go func() {
		logger.WithField("addr", addr).Info("Server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("Server failed")
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Forced shutdown")
	}
}

// dialNetwork tries each configured RPC endpoint until one answers
func dialNetwork(ctx context.Context, network *config.NetworkConfig, logger *logrus.Logger) *ethclient.Client {
	for _, endpoint := range network.RPCEndpoints {
		client, err := ethclient.DialContext(ctx, endpoint)
		if err != nil {
			logger.WithFields(logrus.Fields{
				"endpoint": endpoint,
				"error":    err.Error(),
			}).Warn("RPC endpoint unreachable, trying next")
			continue
		}
		if _, err := client.ChainID(ctx); err != nil {
			logger.WithFields(logrus.Fields{
				"endpoint": endpoint,
				"error":    err.Error(),
			}).Warn("RPC endpoint not responding, trying next")
			client.Close()
			continue
		}
		logger.WithFields(logrus.Fields{
			"network":  network.Name,
			"endpoint": endpoint,
		}).Info("Connected to RPC endpoint")
		return client
	}
	logger.WithField("network", network.Name).Fatal("No reachable RPC endpoint")
	return nil
}

// mustChainID verifies the node serves the configured chain
func mustChainID(ctx context.Context, client *ethclient.Client, network *config.NetworkConfig, logger *logrus.Logger) *big.Int {
	chainID, err := client.ChainID(ctx)
	if err != nil {
		logger.WithError(err).Fatal("Failed to read chain ID")
	}
	if network.ChainID != 0 && chainID.Int64() != network.ChainID {
		logger.WithFields(logrus.Fields{
			"expected": network.ChainID,
			"actual":   chainID.Int64(),
		}).Fatal("RPC endpoint serves a different chain")
	}
	return chainID
}
