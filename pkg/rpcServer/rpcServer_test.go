package rpcServer

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Layr-Labs/ve-rewards/internal/logger"
	"github.com/Layr-Labs/ve-rewards/internal/tests"
	"github.com/Layr-Labs/ve-rewards/pkg/claimGateway"
	"github.com/Layr-Labs/ve-rewards/pkg/clock"
	"github.com/Layr-Labs/ve-rewards/pkg/eventBus"
	"github.com/Layr-Labs/ve-rewards/pkg/keeper"
	"github.com/Layr-Labs/ve-rewards/pkg/lockEscrow"
	"github.com/Layr-Labs/ve-rewards/pkg/metrics"
	"github.com/Layr-Labs/ve-rewards/pkg/rewardDistributor"
	"github.com/Layr-Labs/ve-rewards/pkg/token"
	"github.com/Layr-Labs/ve-rewards/pkg/types/numbers"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	owner       = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	lockToken   = common.HexToAddress("0x00000000000000000000000000000000000000b1")
	rewardToken = common.HexToAddress("0x00000000000000000000000000000000000000b2")
	escrowAddr  = common.HexToAddress("0x00000000000000000000000000000000000000c1")
	distAddr    = common.HexToAddress("0x00000000000000000000000000000000000000c2")
	keeperAddr  = common.HexToAddress("0x0000000000000000000000000000000000000e11")
	alice       = common.HexToAddress("0x0000000000000000000000000000000000000a11")
)

const w0 = 2000 * clock.Week

var lockAmount = numbers.MustParseUnits("1000", numbers.DefaultDecimals)

func setup(t *testing.T) (*httptest.Server, *clock.ManualClock) {
	cfg := tests.GetConfig()
	l, _ := logger.NewLogger(&logger.LoggerConfig{Debug: cfg.Debug})

	grm, err := tests.GetMigratedSqliteDatabase(cfg, l)
	require.Nil(t, err)

	c := clock.NewManualClock(w0, 5000, 12)
	ledger := token.NewLedger(grm, l)
	eb := eventBus.NewEventBus(l)
	ms := metrics.NewNoopMetricsSink()

	escrow := lockEscrow.NewLockEscrow(&lockEscrow.LockEscrowConfig{
		Owner:         owner,
		TokenAddress:  lockToken,
		EscrowAddress: escrowAddr,
		MaxLock:       52 * clock.Week,
	}, grm, c, ledger, eb, ms, l)
	require.Nil(t, escrow.Initialize())

	rd := rewardDistributor.NewRewardDistributor(distAddr, grm, escrow, ledger, eb, ms, l)
	require.Nil(t, rd.Deploy(&rewardDistributor.DeployConfig{
		Address:         distAddr,
		Owner:           owner,
		TokenAddress:    rewardToken,
		EmergencyReturn: owner,
	}))

	require.Nil(t, ledger.Mint(lockToken, alice, lockAmount))
	require.Nil(t, ledger.Approve(lockToken, alice, escrowAddr, lockAmount))
	require.Nil(t, escrow.CreateLock(lockEscrow.DirectCall(alice), lockAmount, w0+20*clock.Week))

	dists := []*rewardDistributor.RewardDistributor{rd}
	k := keeper.NewKeeper(escrow, dists, keeperAddr, ms, l)
	go k.Process()
	t.Cleanup(k.Close)

	gateway := claimGateway.NewClaimGateway(grm, escrow, ledger, eb, ms, l)
	rpc := NewRpcServer(escrow, dists, gateway, k, ms, cfg, l)
	handler, err := rpc.Handler()
	require.Nil(t, err)

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return server, c
}

func doRequest(t *testing.T, server *httptest.Server, method string, path string, out any) int {
	req, err := http.NewRequest(method, server.URL+path, nil)
	require.Nil(t, err)
	res, err := server.Client().Do(req)
	require.Nil(t, err)
	defer res.Body.Close()
	if out != nil {
		require.Nil(t, json.NewDecoder(res.Body).Decode(out))
	}
	return res.StatusCode
}

func Test_EscrowEndpoints(t *testing.T) {
	server, c := setup(t)

	t.Run("Should report the build and clock", func(t *testing.T) {
		var about AboutResponse
		assert.Equal(t, http.StatusOK, doRequest(t, server, http.MethodGet, "/v1/about", &about))
		assert.Equal(t, w0, about.Timestamp)
	})

	t.Run("Should return a lock", func(t *testing.T) {
		var lock LockResponse
		code := doRequest(t, server, http.MethodGet, "/v1/escrow/locks/"+alice.Hex(), &lock)
		assert.Equal(t, http.StatusOK, code)
		assert.Equal(t, lockAmount.String(), lock.Amount)
		assert.Equal(t, w0+20*clock.Week, lock.End)
		assert.True(t, lock.Active)
	})

	t.Run("Should reject a malformed address", func(t *testing.T) {
		var e ErrorResponse
		assert.Equal(t, http.StatusBadRequest, doRequest(t, server, http.MethodGet, "/v1/escrow/locks/0x1234", &e))
	})

	t.Run("Should return balances now and at a time", func(t *testing.T) {
		var now BalanceResponse
		assert.Equal(t, http.StatusOK, doRequest(t, server, http.MethodGet, "/v1/escrow/balances/"+alice.Hex(), &now))
		assert.NotEqual(t, "0", now.Balance)

		var atEnd BalanceResponse
		path := fmt.Sprintf("/v1/escrow/balances/%s?timestamp=%d", alice.Hex(), w0+20*clock.Week)
		assert.Equal(t, http.StatusOK, doRequest(t, server, http.MethodGet, path, &atEnd))
		assert.Equal(t, "0", atEnd.Balance)
	})

	t.Run("Should reject both selectors and future blocks", func(t *testing.T) {
		path := fmt.Sprintf("/v1/escrow/balances/%s?timestamp=1&block=1", alice.Hex())
		assert.Equal(t, http.StatusBadRequest, doRequest(t, server, http.MethodGet, path, nil))

		var e ErrorResponse
		path = fmt.Sprintf("/v1/escrow/supply?block=%d", c.Now().BlockNumber+100)
		assert.Equal(t, http.StatusBadRequest, doRequest(t, server, http.MethodGet, path, &e))
		assert.Equal(t, "validation", e.Kind)
	})

	t.Run("Should return supply matching the single lock", func(t *testing.T) {
		var supply SupplyResponse
		var balance BalanceResponse
		assert.Equal(t, http.StatusOK, doRequest(t, server, http.MethodGet, "/v1/escrow/supply", &supply))
		assert.Equal(t, http.StatusOK, doRequest(t, server, http.MethodGet, "/v1/escrow/balances/"+alice.Hex(), &balance))
		assert.Equal(t, balance.Balance, supply.TotalSupply)
		assert.Equal(t, lockAmount.String(), supply.LockedSupply)
	})

	t.Run("Should checkpoint and expose the new point", func(t *testing.T) {
		c.Advance(2 * clock.Week)

		var res keeper.TaskResult
		assert.Equal(t, http.StatusOK, doRequest(t, server, http.MethodPost, "/v1/escrow/checkpoint", &res))
		assert.True(t, res.CaughtUp)

		var settings EscrowSettingsResponse
		assert.Equal(t, http.StatusOK, doRequest(t, server, http.MethodGet, "/v1/escrow/settings", &settings))

		var point PointResponse
		path := fmt.Sprintf("/v1/escrow/points/%d", settings.Epoch)
		assert.Equal(t, http.StatusOK, doRequest(t, server, http.MethodGet, path, &point))
		assert.Equal(t, c.Now().Timestamp, point.Timestamp)

		path = fmt.Sprintf("/v1/escrow/points/%d", settings.Epoch+1)
		assert.Equal(t, http.StatusNotFound, doRequest(t, server, http.MethodGet, path, nil))
	})

	t.Run("Should list events for an account", func(t *testing.T) {
		var events []*lockEscrow.EscrowEvent
		path := "/v1/escrow/events?account=" + strings.ToLower(alice.Hex())
		assert.Equal(t, http.StatusOK, doRequest(t, server, http.MethodGet, path, &events))
		require.Len(t, events, 1)
		assert.Equal(t, string(lockEscrow.Action_CreateLock), events[0].Action)
	})

	t.Run("Should reconcile the locked supply", func(t *testing.T) {
		var res ReconcileResponse
		assert.Equal(t, http.StatusOK, doRequest(t, server, http.MethodGet, "/v1/escrow/reconcile", &res))
		assert.True(t, res.Matches)
	})

	t.Run("Should answer CORS requests", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodGet, server.URL+"/v1/about", nil)
		require.Nil(t, err)
		req.Header.Set("Origin", "https://example.org")
		res, err := server.Client().Do(req)
		require.Nil(t, err)
		defer res.Body.Close()
		assert.Equal(t, "*", res.Header.Get("Access-Control-Allow-Origin"))
	})
}

func Test_DistributorEndpoints(t *testing.T) {
	server, c := setup(t)
	base := "/v1/distributors/" + distAddr.Hex()

	t.Run("Should list registered distributors", func(t *testing.T) {
		var dists []*DistributorResponse
		assert.Equal(t, http.StatusOK, doRequest(t, server, http.MethodGet, "/v1/distributors", &dists))
		require.Len(t, dists, 1)
		assert.Equal(t, distAddr.Hex(), dists[0].Address)
		assert.Equal(t, w0, dists[0].WeekCursor)
	})

	t.Run("Should 404 for an unknown distributor", func(t *testing.T) {
		path := "/v1/distributors/" + alice.Hex()
		assert.Equal(t, http.StatusNotFound, doRequest(t, server, http.MethodGet, path, nil))
	})

	t.Run("Should checkpoint total supply and list the weeks", func(t *testing.T) {
		c.AdvanceTo(w0 + 3*clock.Week + 10)

		var res keeper.TaskResult
		assert.Equal(t, http.StatusOK, doRequest(t, server, http.MethodPost, base+"/checkpoint-total-supply", &res))
		require.Len(t, res.Distributors, 1)
		assert.Equal(t, w0+4*clock.Week, res.Distributors[0].WeekCursor)

		var weeks []*WeekBucketResponse
		assert.Equal(t, http.StatusOK, doRequest(t, server, http.MethodGet, base+"/weeks", &weeks))
		require.Len(t, weeks, 4)
		assert.Equal(t, w0, weeks[0].Week)
		assert.NotEqual(t, "0", weeks[1].TotalSupply)
	})

	t.Run("Should refuse a token checkpoint from an unauthorized keeper", func(t *testing.T) {
		var e ErrorResponse
		assert.Equal(t, http.StatusForbidden, doRequest(t, server, http.MethodPost, base+"/checkpoint-token", &e))
		assert.Equal(t, "authorization", e.Kind)
	})

	t.Run("Should report an account that never claimed", func(t *testing.T) {
		var cursor AccountCursorResponse
		assert.Equal(t, http.StatusOK, doRequest(t, server, http.MethodGet, base+"/cursors/"+alice.Hex(), &cursor))
		assert.False(t, cursor.HasClaimed)
	})

	t.Run("Should list distributor events", func(t *testing.T) {
		var events []*rewardDistributor.DistributorEvent
		assert.Equal(t, http.StatusOK, doRequest(t, server, http.MethodGet, base+"/events?limit=10", &events))
		assert.NotEmpty(t, events)
	})

	t.Run("Should reject an inverted week range", func(t *testing.T) {
		path := fmt.Sprintf("%s/weeks?from=%d&to=%d", base, w0+clock.Week, w0)
		assert.Equal(t, http.StatusBadRequest, doRequest(t, server, http.MethodGet, path, nil))
	})
}

func Test_ClaimEndpoint(t *testing.T) {
	server, c := setup(t)
	c.Advance(2 * clock.Week)

	t.Run("Should reject an unknown distributor without claiming", func(t *testing.T) {
		var e ErrorResponse
		path := fmt.Sprintf("/v1/claims/%s?distributors=%s,%s", alice.Hex(), distAddr.Hex(), alice.Hex())
		assert.Equal(t, http.StatusBadRequest, doRequest(t, server, http.MethodPost, path, &e))
		assert.Equal(t, "validation", e.Kind)

		var cursor AccountCursorResponse
		path = fmt.Sprintf("/v1/distributors/%s/cursors/%s", distAddr.Hex(), alice.Hex())
		assert.Equal(t, http.StatusOK, doRequest(t, server, http.MethodGet, path, &cursor))
		assert.False(t, cursor.HasClaimed)
	})

	t.Run("Should reject a malformed distributor list", func(t *testing.T) {
		path := fmt.Sprintf("/v1/claims/%s?distributors=0x12", alice.Hex())
		assert.Equal(t, http.StatusBadRequest, doRequest(t, server, http.MethodPost, path, nil))
	})

	t.Run("Should claim from every registered distributor by default", func(t *testing.T) {
		var res ClaimResponse
		assert.Equal(t, http.StatusOK, doRequest(t, server, http.MethodPost, "/v1/claims/"+alice.Hex(), &res))
		assert.Equal(t, alice.Hex(), res.Account)
		require.Len(t, res.Claims, 1)
		assert.Equal(t, distAddr.Hex(), res.Claims[0].Distributor)
		assert.Equal(t, "0", res.Claims[0].Amount)
		assert.Equal(t, "0", res.Total)

		var cursor AccountCursorResponse
		path := fmt.Sprintf("/v1/distributors/%s/cursors/%s", distAddr.Hex(), alice.Hex())
		assert.Equal(t, http.StatusOK, doRequest(t, server, http.MethodGet, path, &cursor))
		assert.True(t, cursor.HasClaimed)
	})
}
