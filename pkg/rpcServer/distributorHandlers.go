package rpcServer

import (
	"net/http"

	"github.com/Layr-Labs/ve-rewards/pkg/clock"
	"github.com/Layr-Labs/ve-rewards/pkg/keeper"
	"github.com/Layr-Labs/ve-rewards/pkg/rewardDistributor"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// maxWeekRange bounds how many week buckets one request may list.
const maxWeekRange = 520

func (rpc *RpcServer) distributorFromPath(params map[string]string) (*rewardDistributor.RewardDistributor, error) {
	address, err := pathAddress(params, "address")
	if err != nil {
		return nil, err
	}
	rd, ok := rpc.distributors.Get(address)
	if !ok {
		return nil, status.Errorf(codes.NotFound, "distributor %s not found", address.Hex())
	}
	return rd, nil
}

type DistributorResponse struct {
	Address            string `json:"address"`
	Owner              string `json:"owner"`
	TokenAddress       string `json:"tokenAddress"`
	EmergencyReturn    string `json:"emergencyReturn"`
	StartWeekCursor    uint64 `json:"startWeekCursor"`
	WeekCursor         uint64 `json:"weekCursor"`
	LastTokenTimestamp uint64 `json:"lastTokenTimestamp"`
	LastTokenBalance   string `json:"lastTokenBalance"`
	CanCheckpointToken bool   `json:"canCheckpointToken"`
	Killed             bool   `json:"killed"`
}

func toDistributorResponse(s *rewardDistributor.Settings) *DistributorResponse {
	return &DistributorResponse{
		Address:            s.Address.Hex(),
		Owner:              s.Owner.Hex(),
		TokenAddress:       s.TokenAddress.Hex(),
		EmergencyReturn:    s.EmergencyReturn.Hex(),
		StartWeekCursor:    s.StartWeekCursor,
		WeekCursor:         s.WeekCursor,
		LastTokenTimestamp: s.LastTokenTimestamp,
		LastTokenBalance:   amountString(s.LastTokenBalance),
		CanCheckpointToken: s.CanCheckpointToken,
		Killed:             s.Killed,
	}
}

func (rpc *RpcServer) ListDistributors(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	res := make([]*DistributorResponse, 0, rpc.distributors.Len())
	for pair := rpc.distributors.Oldest(); pair != nil; pair = pair.Next() {
		s, err := pair.Value.Settings()
		if err != nil {
			rpc.writeError(w, err)
			return
		}
		res = append(res, toDistributorResponse(s))
	}
	writeJSON(w, http.StatusOK, res)
}

func (rpc *RpcServer) GetDistributor(w http.ResponseWriter, r *http.Request, params map[string]string) {
	rd, err := rpc.distributorFromPath(params)
	if err != nil {
		rpc.writeError(w, err)
		return
	}
	s, err := rd.Settings()
	if err != nil {
		rpc.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toDistributorResponse(s))
}

type WeekBucketResponse struct {
	Week        uint64 `json:"week"`
	Tokens      string `json:"tokens"`
	TotalSupply string `json:"totalSupply"`
}

// ListWeekBuckets lists week buckets in [from, to). Both default to the distributor's own cursors.
func (rpc *RpcServer) ListWeekBuckets(w http.ResponseWriter, r *http.Request, params map[string]string) {
	rd, err := rpc.distributorFromPath(params)
	if err != nil {
		rpc.writeError(w, err)
		return
	}
	s, err := rd.Settings()
	if err != nil {
		rpc.writeError(w, err)
		return
	}
	from, hasFrom, err := queryUint(r, "from")
	if err != nil {
		rpc.writeError(w, err)
		return
	}
	to, hasTo, err := queryUint(r, "to")
	if err != nil {
		rpc.writeError(w, err)
		return
	}
	if !hasFrom {
		from = s.StartWeekCursor
	}
	if !hasTo {
		to = clock.FloorWeek(rpc.escrow.Clock().Now().Timestamp) + clock.Week
	}
	from = clock.FloorWeek(from)
	if to < from {
		rpc.writeError(w, status.Error(codes.InvalidArgument, "to must not be before from"))
		return
	}
	if (to-from)/clock.Week > maxWeekRange {
		rpc.writeError(w, status.Errorf(codes.InvalidArgument, "at most %d weeks per request", maxWeekRange))
		return
	}

	buckets, err := rd.WeekBuckets(from, to)
	if err != nil {
		rpc.writeError(w, err)
		return
	}
	res := make([]*WeekBucketResponse, 0, len(buckets))
	for _, b := range buckets {
		res = append(res, &WeekBucketResponse{
			Week:        b.Week,
			Tokens:      amountString(b.Tokens),
			TotalSupply: amountString(b.TotalSupply),
		})
	}
	writeJSON(w, http.StatusOK, res)
}

type AccountCursorResponse struct {
	Account    string `json:"account"`
	WeekCursor uint64 `json:"weekCursor"`
	HasClaimed bool   `json:"hasClaimed"`
}

func (rpc *RpcServer) GetAccountCursor(w http.ResponseWriter, r *http.Request, params map[string]string) {
	rd, err := rpc.distributorFromPath(params)
	if err != nil {
		rpc.writeError(w, err)
		return
	}
	account, err := pathAddress(params, "account")
	if err != nil {
		rpc.writeError(w, err)
		return
	}
	cursor, found, err := rd.AccountCursor(account)
	if err != nil {
		rpc.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, &AccountCursorResponse{
		Account:    account.Hex(),
		WeekCursor: cursor,
		HasClaimed: found,
	})
}

func (rpc *RpcServer) ListDistributorEvents(w http.ResponseWriter, r *http.Request, params map[string]string) {
	rd, err := rpc.distributorFromPath(params)
	if err != nil {
		rpc.writeError(w, err)
		return
	}
	limit, err := queryLimit(r)
	if err != nil {
		rpc.writeError(w, err)
		return
	}
	events, err := rd.Events(r.URL.Query().Get("account"), limit)
	if err != nil {
		rpc.writeError(w, err)
		return
	}
	if events == nil {
		events = []*rewardDistributor.DistributorEvent{}
	}
	writeJSON(w, http.StatusOK, events)
}

func (rpc *RpcServer) checkpointDistributor(w http.ResponseWriter, r *http.Request, params map[string]string, task keeper.TaskType) {
	rd, err := rpc.distributorFromPath(params)
	if err != nil {
		rpc.writeError(w, err)
		return
	}
	res, err := rpc.keeper.EnqueueAndWait(r.Context(), keeper.TaskData{Task: task, Distributor: rd.Address()})
	if err != nil {
		rpc.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (rpc *RpcServer) CheckpointDistributorSupply(w http.ResponseWriter, r *http.Request, params map[string]string) {
	rpc.checkpointDistributor(w, r, params, keeper.TaskType_CheckpointTotalSupply)
}

// CheckpointDistributorToken is subject to the distributor's own checkpoint rules for the keeper's caller.
func (rpc *RpcServer) CheckpointDistributorToken(w http.ResponseWriter, r *http.Request, params map[string]string) {
	rpc.checkpointDistributor(w, r, params, keeper.TaskType_CheckpointToken)
}
