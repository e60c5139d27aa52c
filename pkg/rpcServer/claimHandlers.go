package rpcServer

import (
	"math/big"
	"net/http"
	"strings"

	"github.com/Layr-Labs/ve-rewards/pkg/utils"
	"github.com/ethereum/go-ethereum/common"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type ClaimEntry struct {
	Distributor string `json:"distributor"`
	Amount      string `json:"amount"`
}

type ClaimResponse struct {
	Account string        `json:"account"`
	Claims  []*ClaimEntry `json:"claims"`
	Total   string        `json:"total"`
}

// claimDistributors reads the comma separated distributors query parameter. Without it every
// registered distributor is claimed, in registration order.
func (rpc *RpcServer) claimDistributors(r *http.Request) ([]common.Address, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("distributors"))
	if raw == "" {
		out := make([]common.Address, 0, rpc.distributors.Len())
		for pair := rpc.distributors.Oldest(); pair != nil; pair = pair.Next() {
			out = append(out, pair.Key)
		}
		return out, nil
	}
	addresses, err := utils.ParseAddresses(strings.Split(raw, ","))
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "invalid distributors: %v", err)
	}
	return addresses, nil
}

// ClaimRewards claims the account's rewards from several distributors in one all-or-nothing batch.
// Claiming is permissionless and always pays the account itself.
func (rpc *RpcServer) ClaimRewards(w http.ResponseWriter, r *http.Request, params map[string]string) {
	account, err := pathAddress(params, "account")
	if err != nil {
		rpc.writeError(w, err)
		return
	}
	distributors, err := rpc.claimDistributors(r)
	if err != nil {
		rpc.writeError(w, err)
		return
	}
	claimed, err := rpc.gateway.ClaimMultiple(account, distributors, account)
	if err != nil {
		rpc.writeError(w, err)
		return
	}

	res := &ClaimResponse{
		Account: account.Hex(),
		Claims:  make([]*ClaimEntry, 0, claimed.Len()),
	}
	total := big.NewInt(0)
	for pair := claimed.Oldest(); pair != nil; pair = pair.Next() {
		total.Add(total, pair.Value)
		res.Claims = append(res.Claims, &ClaimEntry{
			Distributor: pair.Key.Hex(),
			Amount:      amountString(pair.Value),
		})
	}
	res.Total = total.String()
	writeJSON(w, http.StatusOK, res)
}
