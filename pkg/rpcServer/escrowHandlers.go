package rpcServer

import (
	"net/http"
	"strconv"

	"github.com/Layr-Labs/ve-rewards/internal/version"
	"github.com/Layr-Labs/ve-rewards/pkg/keeper"
	"github.com/Layr-Labs/ve-rewards/pkg/lockEscrow"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type AboutResponse struct {
	Version     string `json:"version"`
	Commit      string `json:"commit"`
	Timestamp   uint64 `json:"timestamp"`
	BlockNumber uint64 `json:"blockNumber"`
}

func (rpc *RpcServer) About(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	now := rpc.escrow.Clock().Now()
	writeJSON(w, http.StatusOK, &AboutResponse{
		Version:     version.GetVersion(),
		Commit:      version.GetCommit(),
		Timestamp:   now.Timestamp,
		BlockNumber: now.BlockNumber,
	})
}

type EscrowSettingsResponse struct {
	Owner                string `json:"owner"`
	TokenAddress         string `json:"tokenAddress"`
	EscrowAddress        string `json:"escrowAddress"`
	MaxLock              uint64 `json:"maxLock"`
	Breaker              bool   `json:"breaker"`
	PenaltyBpsPerWeek    uint64 `json:"penaltyBpsPerWeek"`
	TreasuryShareBps     uint64 `json:"treasuryShareBps"`
	Treasury             string `json:"treasury"`
	RedistributionTarget string `json:"redistributionTarget"`
	RedistributionPool   string `json:"redistributionPool"`
	Epoch                uint64 `json:"epoch"`
	LockedSupply         string `json:"lockedSupply"`
}

func (rpc *RpcServer) GetEscrowSettings(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	s, err := rpc.escrow.Settings()
	if err != nil {
		rpc.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, &EscrowSettingsResponse{
		Owner:                s.Owner.Hex(),
		TokenAddress:         s.TokenAddress.Hex(),
		EscrowAddress:        s.EscrowAddress.Hex(),
		MaxLock:              s.MaxLock,
		Breaker:              s.Breaker,
		PenaltyBpsPerWeek:    s.PenaltyBpsPerWeek,
		TreasuryShareBps:     s.TreasuryShareBps,
		Treasury:             s.Treasury.Hex(),
		RedistributionTarget: s.RedistributionTarget.Hex(),
		RedistributionPool:   amountString(s.RedistributionPool),
		Epoch:                s.Epoch,
		LockedSupply:         amountString(s.LockedSupply),
	})
}

type LockResponse struct {
	Account string `json:"account"`
	Amount  string `json:"amount"`
	End     uint64 `json:"end"`
	Active  bool   `json:"active"`
}

func (rpc *RpcServer) GetLock(w http.ResponseWriter, r *http.Request, params map[string]string) {
	account, err := pathAddress(params, "account")
	if err != nil {
		rpc.writeError(w, err)
		return
	}
	lock, err := rpc.escrow.GetLock(account)
	if err != nil {
		rpc.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, &LockResponse{
		Account: account.Hex(),
		Amount:  amountString(lock.Amount),
		End:     lock.End,
		Active:  lock.IsActive(),
	})
}

type BalanceResponse struct {
	Account     string `json:"account"`
	Balance     string `json:"balance"`
	Timestamp   uint64 `json:"timestamp,omitempty"`
	BlockNumber uint64 `json:"blockNumber,omitempty"`
}

// GetBalance returns voting power now, at ?timestamp= or at ?block=. The two selectors are exclusive.
func (rpc *RpcServer) GetBalance(w http.ResponseWriter, r *http.Request, params map[string]string) {
	account, err := pathAddress(params, "account")
	if err != nil {
		rpc.writeError(w, err)
		return
	}
	ts, hasTs, err := queryUint(r, "timestamp")
	if err != nil {
		rpc.writeError(w, err)
		return
	}
	block, hasBlock, err := queryUint(r, "block")
	if err != nil {
		rpc.writeError(w, err)
		return
	}
	if hasTs && hasBlock {
		rpc.writeError(w, status.Error(codes.InvalidArgument, "timestamp and block are mutually exclusive"))
		return
	}

	res := &BalanceResponse{Account: account.Hex()}
	switch {
	case hasBlock:
		balance, err := rpc.escrow.BalanceOfAtBlock(account, block)
		if err != nil {
			rpc.writeError(w, err)
			return
		}
		res.Balance, res.BlockNumber = balance.String(), block
	default:
		if !hasTs {
			ts = rpc.escrow.Clock().Now().Timestamp
		}
		balance, err := rpc.escrow.BalanceOfAtTime(account, ts)
		if err != nil {
			rpc.writeError(w, err)
			return
		}
		res.Balance, res.Timestamp = balance.String(), ts
	}
	writeJSON(w, http.StatusOK, res)
}

type SupplyResponse struct {
	TotalSupply  string `json:"totalSupply"`
	LockedSupply string `json:"lockedSupply"`
	Timestamp    uint64 `json:"timestamp,omitempty"`
	BlockNumber  uint64 `json:"blockNumber,omitempty"`
}

func (rpc *RpcServer) GetTotalSupply(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	ts, hasTs, err := queryUint(r, "timestamp")
	if err != nil {
		rpc.writeError(w, err)
		return
	}
	block, hasBlock, err := queryUint(r, "block")
	if err != nil {
		rpc.writeError(w, err)
		return
	}
	if hasTs && hasBlock {
		rpc.writeError(w, status.Error(codes.InvalidArgument, "timestamp and block are mutually exclusive"))
		return
	}
	locked, err := rpc.escrow.LockedSupply()
	if err != nil {
		rpc.writeError(w, err)
		return
	}

	res := &SupplyResponse{LockedSupply: locked.String()}
	switch {
	case hasBlock:
		supply, err := rpc.escrow.TotalSupplyAtBlock(block)
		if err != nil {
			rpc.writeError(w, err)
			return
		}
		res.TotalSupply, res.BlockNumber = supply.String(), block
	default:
		if !hasTs {
			ts = rpc.escrow.Clock().Now().Timestamp
		}
		supply, err := rpc.escrow.TotalSupplyAtTime(ts)
		if err != nil {
			rpc.writeError(w, err)
			return
		}
		res.TotalSupply, res.Timestamp = supply.String(), ts
	}
	writeJSON(w, http.StatusOK, res)
}

type PointResponse struct {
	Epoch       uint64 `json:"epoch"`
	Bias        string `json:"bias"`
	Slope       string `json:"slope"`
	Timestamp   uint64 `json:"timestamp"`
	BlockNumber uint64 `json:"blockNumber"`
}

func (rpc *RpcServer) GetGlobalPoint(w http.ResponseWriter, r *http.Request, params map[string]string) {
	epoch, err := strconv.ParseUint(params["epoch"], 10, 64)
	if err != nil {
		rpc.writeError(w, status.Errorf(codes.InvalidArgument, "invalid epoch '%s'", params["epoch"]))
		return
	}
	current, err := rpc.escrow.Epoch()
	if err != nil {
		rpc.writeError(w, err)
		return
	}
	if epoch > current {
		rpc.writeError(w, status.Errorf(codes.NotFound, "epoch %d has not been written, latest is %d", epoch, current))
		return
	}
	p, err := rpc.escrow.GlobalPoint(epoch)
	if err != nil {
		rpc.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, &PointResponse{
		Epoch:       epoch,
		Bias:        p.Bias.String(),
		Slope:       p.Slope.String(),
		Timestamp:   p.Timestamp,
		BlockNumber: p.BlockNumber,
	})
}

func (rpc *RpcServer) ListEscrowEvents(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	limit, err := queryLimit(r)
	if err != nil {
		rpc.writeError(w, err)
		return
	}
	account := r.URL.Query().Get("account")
	if account != "" {
		if _, err := pathAddress(map[string]string{"account": account}, "account"); err != nil {
			rpc.writeError(w, err)
			return
		}
	}
	events, err := rpc.escrow.Events(account, limit)
	if err != nil {
		rpc.writeError(w, err)
		return
	}
	if events == nil {
		events = []*lockEscrow.EscrowEvent{}
	}
	writeJSON(w, http.StatusOK, events)
}

type ReconcileResponse struct {
	Counter  string `json:"counter"`
	Computed string `json:"computed"`
	Matches  bool   `json:"matches"`
}

func (rpc *RpcServer) ReconcileLockedSupply(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	res, err := rpc.escrow.ReconcileLockedSupply()
	if err != nil {
		rpc.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, &ReconcileResponse{
		Counter:  res.Counter.String(),
		Computed: res.Computed.String(),
		Matches:  res.Matches,
	})
}

// CheckpointEscrow runs a permissionless global checkpoint through the keeper queue.
func (rpc *RpcServer) CheckpointEscrow(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	res, err := rpc.keeper.EnqueueAndWait(r.Context(), keeper.TaskData{Task: keeper.TaskType_Checkpoint})
	if err != nil {
		rpc.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
