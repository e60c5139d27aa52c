package rpcServer

import (
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"strconv"

	"github.com/Layr-Labs/ve-rewards/pkg/keeper"
	"github.com/Layr-Labs/ve-rewards/pkg/reverts"
	"github.com/Layr-Labs/ve-rewards/pkg/utils"
	"github.com/ethereum/go-ethereum/common"
	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type ErrorResponse struct {
	Code    int    `json:"code"`
	Kind    string `json:"kind,omitempty"`
	Message string `json:"message"`
}

// toStatus maps domain errors onto gRPC status codes so the gateway's own HTTP mapping applies.
func toStatus(err error) *status.Status {
	if s, ok := status.FromError(err); ok {
		return s
	}
	switch reverts.KindOf(err) {
	case reverts.KindValidation:
		return status.New(codes.InvalidArgument, err.Error())
	case reverts.KindState:
		return status.New(codes.FailedPrecondition, err.Error())
	case reverts.KindAuthorization:
		return status.New(codes.PermissionDenied, err.Error())
	case reverts.KindExternalTransfer:
		return status.New(codes.Aborted, err.Error())
	}
	switch {
	case errors.Is(err, keeper.ErrKeeperClosed):
		return status.New(codes.Unavailable, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.New(codes.DeadlineExceeded, err.Error())
	case errors.Is(err, context.Canceled):
		return status.New(codes.Canceled, err.Error())
	}
	return status.New(codes.Internal, err.Error())
}

func (rpc *RpcServer) writeError(w http.ResponseWriter, err error) {
	s := toStatus(err)
	code := runtime.HTTPStatusFromCode(s.Code())
	if code >= http.StatusInternalServerError {
		rpc.Logger.Sugar().Errorw("Request failed", zap.Error(err))
	}
	writeJSON(w, code, &ErrorResponse{
		Code:    code,
		Kind:    string(reverts.KindOf(err)),
		Message: s.Message(),
	})
}

func writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}

func pathAddress(params map[string]string, name string) (common.Address, error) {
	a, err := utils.ParseAddress(params[name])
	if err != nil {
		return common.Address{}, status.Errorf(codes.InvalidArgument, "invalid %s: %v", name, err)
	}
	return a, nil
}

// queryUint returns the named query parameter, and false when it is absent.
func queryUint(r *http.Request, name string) (uint64, bool, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, false, nil
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, false, status.Errorf(codes.InvalidArgument, "invalid %s '%s'", name, raw)
	}
	return v, true, nil
}

func queryLimit(r *http.Request) (int, error) {
	v, ok, err := queryUint(r, "limit")
	if err != nil || !ok {
		return 0, err
	}
	return int(v), nil
}

func amountString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}
