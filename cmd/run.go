package cmd

import (
	"context"
	"time"

	"github.com/Layr-Labs/ve-rewards/internal/config"
	"github.com/Layr-Labs/ve-rewards/internal/logger"
	"github.com/Layr-Labs/ve-rewards/internal/tracer"
	"github.com/Layr-Labs/ve-rewards/internal/version"
	"github.com/Layr-Labs/ve-rewards/pkg/claimGateway"
	"github.com/Layr-Labs/ve-rewards/pkg/eventBus/eventBusTypes"
	"github.com/Layr-Labs/ve-rewards/pkg/keeper"
	"github.com/Layr-Labs/ve-rewards/pkg/metrics"
	"github.com/Layr-Labs/ve-rewards/pkg/metrics/prometheus"
	"github.com/Layr-Labs/ve-rewards/pkg/rpcServer"
	"github.com/Layr-Labs/ve-rewards/pkg/runtime"
	"github.com/Layr-Labs/ve-rewards/pkg/shutdown"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the HTTP API and the maintenance keeper",
	Run: func(cmd *cobra.Command, args []string) {
		initCmdFlags(cmd)
		cfg := config.NewConfig()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		l, _ := logger.NewLogger(&logger.LoggerConfig{Debug: cfg.Debug})

		l.Sugar().Infow("ve-rewards run",
			zap.String("version", version.GetVersion()),
			zap.String("commit", version.GetCommit()),
		)

		tracer.StartTracer(cfg.DataDogConfig.EnableTracing)

		metricsClients, err := metrics.InitMetricsSinksFromConfig(cfg, l)
		if err != nil {
			l.Sugar().Fatal("Failed to setup metrics sink", zap.Error(err))
		}

		sink, err := metrics.NewMetricsSink(&metrics.MetricsSinkConfig{}, metricsClients)
		if err != nil {
			l.Sugar().Fatal("Failed to setup metrics sink", zap.Error(err))
		}

		a, err := newApp(cfg, l, sink)
		if err != nil {
			l.Sugar().Fatalw("Failed to start", zap.Error(err))
		}

		rt := runtime.NewRuntime(a.grm, a.clock, l)
		if err := rt.ValidateAndUpdateVersion(version.GetVersion()); err != nil {
			l.Sugar().Fatalw("Failed to validate runtime version", zap.Error(err))
		}

		// published events are only logged; consumers attach here
		events := &eventBusTypes.Consumer{
			Id:      "run-logger",
			Context: ctx,
			Channel: make(chan *eventBusTypes.Event, 100),
		}
		a.eventBus.Subscribe(events)
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case e := <-events.Channel:
					l.Sugar().Debugw("Event published", zap.String("name", string(e.Name)), zap.Any("data", e.Data))
				}
			}
		}()

		k := keeper.NewKeeper(a.escrow, a.distributors, a.keeperCaller(), sink, l)
		go k.Process()
		if cfg.IsKeeperEnabled() {
			go k.RunSchedule(ctx, cfg.KeeperConfig.Interval)
		}

		gateway := claimGateway.NewClaimGateway(a.grm, a.escrow, a.ledger, a.eventBus, sink, l)
		rpc := rpcServer.NewRpcServer(a.escrow, a.distributors, gateway, k, sink, cfg, l)
		rpcDone := make(chan struct{})
		go func() {
			defer close(rpcDone)
			if err := rpc.ListenAndServe(ctx, cfg.RpcConfig.HttpPort); err != nil {
				l.Sugar().Errorw("HTTP server stopped", zap.Error(err))
			}
		}()

		if cfg.PrometheusConfig.Enabled {
			pServer := prometheus.StartPrometheusServer(cfg.PrometheusConfig.Port, l)
			defer pServer.Close()
		}

		l.Sugar().Infow("Started ve-rewards", zap.Int("distributors", len(a.distributors)))

		gracefulShutdown := shutdown.CreateGracefulShutdownChannel()

		done := make(chan bool)
		shutdown.ListenForShutdown(gracefulShutdown, done, func() {
			l.Sugar().Info("Shutting down...")
			cancel()
			<-rpcDone
			k.Close()
			sink.Flush()
			tracer.StopTracer()
			done <- true
		}, time.Second*10, l)
	},
}
