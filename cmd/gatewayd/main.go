// Command gatewayd runs the gateway as a long-lived HTTP service: the
// JSON-RPC operation endpoint, the admin REST surface, and Prometheus
// metrics, all over one listener.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/dmagro/eth-rpc-gateway/internal/apiserver"
	"github.com/dmagro/eth-rpc-gateway/internal/env"
	"github.com/dmagro/eth-rpc-gateway/internal/gateway"
	"github.com/dmagro/eth-rpc-gateway/internal/obs"
	"github.com/dmagro/eth-rpc-gateway/internal/override"
	"github.com/dmagro/eth-rpc-gateway/internal/registry"
	"github.com/dmagro/eth-rpc-gateway/internal/store"
	"github.com/dmagro/eth-rpc-gateway/internal/transport"
)

func main() {
	var (
		configPath  = flag.String("config", "providers.yaml", "provider registry file")
		statePath   = flag.String("state", "gateway-state.json", "persisted gateway state file")
		listenAddr  = flag.String("listen", ":8545", "HTTP listen address")
		chainID     = flag.Uint64("chain", 1, "chain id the default provider set is drawn from")
		demoMode    = flag.Bool("demo", false, "skip cycle charging")
		logLevel    = flag.String("log-level", "", "log level (overrides the persisted log filter)")
		callTimeout = flag.Duration("call-timeout", 10*time.Second, "outbound per-call timeout")
	)
	flag.Parse()

	env.Load()

	if err := run(*configPath, *statePath, *listenAddr, *chainID, *demoMode, *logLevel, *callTimeout); err != nil {
		fmt.Fprintf(os.Stderr, "gatewayd: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, statePath, listenAddr string, chainID uint64, demoMode bool, logLevel string, callTimeout time.Duration) error {
	st, err := store.Open(statePath, gateway.DefaultConfig().NodesInSubnet)
	if err != nil {
		return err
	}

	if logLevel == "" {
		logLevel = st.LogFilter()
	}
	log, err := obs.NewLogger(obs.LogConfig{Level: logLevel})
	if err != nil {
		return err
	}
	defer log.Sync()

	reg, err := registry.Load(configPath)
	if err != nil {
		return err
	}

	ov, err := override.New(st.URLOverride(), "")
	if err != nil {
		return fmt.Errorf("invalid url override in state file: %w", err)
	}

	cfg := gateway.DefaultConfig()
	cfg.ChainID = chainID
	cfg.DemoMode = demoMode || st.DemoMode()
	cfg.NodesInSubnet = st.SubnetNodeCount()

	gw := gateway.New(reg, st,
		gateway.WithConfig(cfg),
		gateway.WithTransport(transport.New(transport.WithTimeout(callTimeout))),
		gateway.WithOverride(ov),
		gateway.WithMetrics(obs.NewMetrics(prometheus.DefaultRegisterer, "", "")),
		gateway.WithLogger(log),
	)

	router := chi.NewRouter()
	router.Handle("/metrics", promhttp.Handler())
	router.Mount("/", apiserver.New(gw, log).Routes())

	srv := &http.Server{
		Addr:              listenAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info("gateway listening",
			zap.String("addr", listenAddr),
			zap.Uint64("chain", chainID),
			zap.Int("providers", len(reg.AllProviders())),
			zap.Bool("demo_mode", cfg.DemoMode),
		)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
