package main

import (
	"context"
	"flag"
	"fmt"
	"math/big"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/finalex-labs/orderbook-client/internal/config"
	"github.com/finalex-labs/orderbook-client/internal/limitorder/chain"
	"github.com/finalex-labs/orderbook-client/internal/limitorder/model"
	"github.com/finalex-labs/orderbook-client/internal/limitorder/service"
	"github.com/finalex-labs/orderbook-client/pkg/logger"
)

func main() {
	var (
		configPath = flag.String("config", "", "path to YAML config file")
		maker      = flag.String("maker", "", "maker address to track")
	)
	flag.Parse()

	if err := run(*configPath, *maker); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(configPath, maker string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if !common.IsHexAddress(maker) {
		return fmt.Errorf("-maker %q is not a valid address", maker)
	}

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer log.Sync()

	contract := cfg.OrderBookAddress()
	primary, err := chain.Dial(cfg.Chain.Endpoints[0], contract)
	if err != nil {
		return err
	}
	var alternates []*chain.Endpoint
	for _, url := range cfg.Chain.Endpoints[1:] {
		alt, err := chain.Dial(url, contract)
		if err != nil {
			log.Warn("alternate endpoint unavailable", zap.String("endpoint", url), zap.Error(err))
			continue
		}
		alternates = append(alternates, alt)
	}

	gateway := chain.NewGateway(primary, alternates, bigChainID(cfg.Chain.ID), log,
		chain.WithGasLimit(cfg.Chain.GasLimit))

	svc := service.New(service.Config{
		DomainName:        cfg.Protocol.DomainName,
		DomainVersion:     cfg.Protocol.DomainVersion,
		ChainID:           cfg.Chain.ID,
		StartBlock:        cfg.Chain.StartBlock,
		PollInterval:      cfg.Tracking.PollInterval,
		FetchConcurrency:  cfg.Tracking.FetchConcurrency,
		RewardDistributor: cfg.RewardDistributorAddress(),
	}, gateway, log)
	defer svc.Close()

	metricsSrv := &http.Server{Addr: cfg.MetricsAddr, Handler: promhttp.Handler()}
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("metrics server failed", zap.Error(err))
		}
	}()

	handle := svc.StartTracking(common.HexToAddress(maker), func(orders []model.ReconciledOrder) {
		open := 0
		for _, o := range orders {
			if o.IsOpen {
				open++
			}
		}
		log.Info("order snapshot",
			zap.Int("orders", len(orders)),
			zap.Int("open", open))
		for _, o := range orders {
			log.Debug("order",
				zap.String("hash", o.OrderHash.Hex()),
				zap.String("remaining", o.Remaining.String()),
				zap.Bool("open", o.IsOpen),
				zap.String("rate", o.NominalRate().String()))
		}
	})

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Info("shutting down")

	svc.StopTracking(handle)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return metricsSrv.Shutdown(shutdownCtx)
}

func bigChainID(id int64) *big.Int {
	return big.NewInt(id)
}
