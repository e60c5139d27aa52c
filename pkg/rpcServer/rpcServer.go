// Package rpcServer exposes escrow and distributor state over a JSON HTTP API.
package rpcServer

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/Layr-Labs/ve-rewards/internal/config"
	"github.com/Layr-Labs/ve-rewards/pkg/claimGateway"
	"github.com/Layr-Labs/ve-rewards/pkg/keeper"
	"github.com/Layr-Labs/ve-rewards/pkg/lockEscrow"
	"github.com/Layr-Labs/ve-rewards/pkg/metrics"
	"github.com/Layr-Labs/ve-rewards/pkg/metrics/metricsTypes"
	"github.com/Layr-Labs/ve-rewards/pkg/rewardDistributor"
	"github.com/ethereum/go-ethereum/common"
	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"github.com/rs/cors"
	orderedmap "github.com/wk8/go-ordered-map/v2"
	"go.uber.org/zap"
)

type RpcServer struct {
	Logger       *zap.Logger
	globalConfig *config.Config
	metricsSink  *metrics.MetricsSink

	escrow       *lockEscrow.LockEscrow
	distributors *orderedmap.OrderedMap[common.Address, *rewardDistributor.RewardDistributor]
	keeper       *keeper.Keeper
	gateway      *claimGateway.ClaimGateway
}

func NewRpcServer(
	escrow *lockEscrow.LockEscrow,
	distributors []*rewardDistributor.RewardDistributor,
	gateway *claimGateway.ClaimGateway,
	k *keeper.Keeper,
	ms *metrics.MetricsSink,
	globalConfig *config.Config,
	l *zap.Logger,
) *RpcServer {
	dists := orderedmap.New[common.Address, *rewardDistributor.RewardDistributor]()
	for _, rd := range distributors {
		dists.Set(rd.Address(), rd)
	}
	return &RpcServer{
		Logger:       l,
		globalConfig: globalConfig,
		metricsSink:  ms,
		escrow:       escrow,
		distributors: dists,
		keeper:       k,
		gateway:      gateway,
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// handle registers fn on the mux and records request count and latency under its route pattern.
func (rpc *RpcServer) handle(mux *runtime.ServeMux, method string, pattern string, fn runtime.HandlerFunc) error {
	return mux.HandlePath(method, pattern, func(w http.ResponseWriter, r *http.Request, params map[string]string) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		fn(rec, r, params)

		_ = rpc.metricsSink.Incr(metricsTypes.Metric_Incr_HttpRequest, []metricsTypes.MetricsLabel{
			{Name: "method", Value: method},
			{Name: "pattern", Value: pattern},
			{Name: "status_code", Value: strconv.Itoa(rec.status)},
		}, 1)
		_ = rpc.metricsSink.Timing(metricsTypes.Metric_Timing_HttpDuration, time.Since(start), []metricsTypes.MetricsLabel{
			{Name: "method", Value: method},
			{Name: "pattern", Value: pattern},
		})
	})
}

// Handler builds the routed, CORS-wrapped HTTP handler.
func (rpc *RpcServer) Handler() (http.Handler, error) {
	mux := runtime.NewServeMux()

	routes := []struct {
		method  string
		pattern string
		fn      runtime.HandlerFunc
	}{
		{http.MethodGet, "/v1/about", rpc.About},

		{http.MethodGet, "/v1/escrow/settings", rpc.GetEscrowSettings},
		{http.MethodGet, "/v1/escrow/locks/{account}", rpc.GetLock},
		{http.MethodGet, "/v1/escrow/balances/{account}", rpc.GetBalance},
		{http.MethodGet, "/v1/escrow/supply", rpc.GetTotalSupply},
		{http.MethodGet, "/v1/escrow/points/{epoch}", rpc.GetGlobalPoint},
		{http.MethodGet, "/v1/escrow/events", rpc.ListEscrowEvents},
		{http.MethodGet, "/v1/escrow/reconcile", rpc.ReconcileLockedSupply},
		{http.MethodPost, "/v1/escrow/checkpoint", rpc.CheckpointEscrow},

		{http.MethodGet, "/v1/distributors", rpc.ListDistributors},
		{http.MethodGet, "/v1/distributors/{address}", rpc.GetDistributor},
		{http.MethodGet, "/v1/distributors/{address}/weeks", rpc.ListWeekBuckets},
		{http.MethodGet, "/v1/distributors/{address}/cursors/{account}", rpc.GetAccountCursor},
		{http.MethodGet, "/v1/distributors/{address}/events", rpc.ListDistributorEvents},
		{http.MethodPost, "/v1/distributors/{address}/checkpoint-total-supply", rpc.CheckpointDistributorSupply},
		{http.MethodPost, "/v1/distributors/{address}/checkpoint-token", rpc.CheckpointDistributorToken},

		{http.MethodPost, "/v1/claims/{account}", rpc.ClaimRewards},
	}
	for _, route := range routes {
		if err := rpc.handle(mux, route.method, route.pattern, route.fn); err != nil {
			return nil, fmt.Errorf("failed to register %s %s: %w", route.method, route.pattern, err)
		}
	}

	return cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"*"},
	}).Handler(mux), nil
}

// ListenAndServe serves the API on port until ctx is done, then shuts down gracefully.
func (rpc *RpcServer) ListenAndServe(ctx context.Context, port int) error {
	handler, err := rpc.Handler()
	if err != nil {
		return err
	}
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		rpc.Logger.Sugar().Infow("Starting HTTP server", zap.Int("port", port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		rpc.Logger.Sugar().Infow("Shutting down HTTP server")
		return server.Shutdown(shutdownCtx)
	}
}
