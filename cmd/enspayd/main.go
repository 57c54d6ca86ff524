package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vitwit/enspay"
	"github.com/vitwit/enspay/logger"
	"github.com/vitwit/enspay/metrics"
	"github.com/vitwit/enspay/server"
	"github.com/vitwit/enspay/types"
)

var (
	listenAddr string
	logLevel   string
	noMetrics  bool
)

func main() {
	root := &cobra.Command{
		Use:   "enspayd",
		Short: "ENS payment agent - natural language to unsigned USDC transfers",
	}

	root.PersistentFlags().StringVar(&logLevel, "log-level", envOr("LOG_LEVEL", "info"), "log level: debug, info, warn, error")

	serve := &cobra.Command{
		Use:   "serve",
		Short: "run the HTTP agent",
		RunE:  runServe,
	}
	serve.Flags().StringVar(&listenAddr, "listen", envOr("ENSPAY_LISTEN", ":8080"), "listen address")
	serve.Flags().BoolVar(&noMetrics, "no-metrics", false, "disable the /metrics endpoint")

	root.AddCommand(serve)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	log := logger.NewZapLogger(logLevel)
	defer log.Sync()

	cfg := types.AgentConfig{
		Chains:        chainsFromEnv(),
		OracleAPIKey:  os.Getenv("ASI1_API_KEY"),
		OracleBaseURL: os.Getenv("ASI1_BASE_URL"),
		LogLevel:      logLevel,
		EnableMetrics: !noMetrics,
	}

	opts := []enspay.Option{enspay.WithLogger(log)}
	if !noMetrics {
		opts = append(opts, enspay.WithMetrics(metrics.NewPrometheusRecorder()))
	}

	agent := enspay.New(cfg, opts...)
	defer agent.Close()

	if cfg.OracleAPIKey == "" {
		log.Warn("ASI1_API_KEY not set, intent parsing falls back to phrase patterns", nil)
	}

	srv := server.New(agent.Orchestrator(), agent.ChatHandler(), agent.Knowledge(), agent.DefaultChainID(), log, !noMetrics)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return srv.Serve(ctx, listenAddr)
}

// chainsFromEnv builds the chain table, letting the environment override
// RPC endpoints and the testnet token contract.
func chainsFromEnv() []types.ChainConfig {
	chains := types.DefaultChains()
	for i := range chains {
		switch chains[i].ChainID {
		case types.ChainEthereum:
			if rpc := os.Getenv("MAINNET_RPC"); rpc != "" {
				chains[i].RPCURL = rpc
			}
		case types.ChainPolygon:
			if rpc := os.Getenv("POLYGON_RPC"); rpc != "" {
				chains[i].RPCURL = rpc
			}
		case types.ChainSepolia:
			if rpc := os.Getenv("RPC_URL"); rpc != "" {
				chains[i].RPCURL = rpc
			}
			if usdc := os.Getenv("USDC_CONTRACT_ADDRESS"); usdc != "" {
				chains[i].USDCAddress = usdc
			}
		}
	}
	return chains
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
