package rewardDistributor

import (
	"math/big"

	"github.com/Layr-Labs/ve-rewards/pkg/clock"
	"github.com/Layr-Labs/ve-rewards/pkg/utils"
	"github.com/ethereum/go-ethereum/common"
)

func (rd *RewardDistributor) Settings() (*Settings, error) {
	return newStore(rd.db, rd.address).settings(false)
}

// TokensPerWeek returns the rewards assigned to the week starting at week.
func (rd *RewardDistributor) TokensPerWeek(week uint64) (*big.Int, error) {
	return newStore(rd.db, rd.address).tokensPerWeek(clock.FloorWeek(week))
}

// TotalSupplyAt returns the cached escrow supply for the week starting at week.
func (rd *RewardDistributor) TotalSupplyAt(week uint64) (*big.Int, error) {
	return newStore(rd.db, rd.address).totalSupplyAt(clock.FloorWeek(week))
}

// AccountCursor returns the next week account will claim from, and false if it never claimed.
func (rd *RewardDistributor) AccountCursor(account common.Address) (uint64, bool, error) {
	return newStore(rd.db, rd.address).accountCursor(account)
}

func (rd *RewardDistributor) WeekBuckets(from uint64, to uint64) ([]*WeekBucket, error) {
	return newStore(rd.db, rd.address).weekBuckets(from, to)
}

// BalanceOfAt passes through to the escrow's historical voting power.
func (rd *RewardDistributor) BalanceOfAt(account common.Address, ts uint64) (*big.Int, error) {
	return rd.escrow.BalanceOfAtTime(account, ts)
}

func (rd *RewardDistributor) EscrowTotalSupplyAt(ts uint64) (*big.Int, error) {
	return rd.escrow.TotalSupplyAtTime(ts)
}

func (rd *RewardDistributor) Events(account string, limit int) ([]*DistributorEvent, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	if account != "" {
		account = utils.AddressKey(common.HexToAddress(account))
	}
	return newStore(rd.db, rd.address).events(account, limit)
}

func (rd *RewardDistributor) IsCheckpointCaller(address common.Address) (bool, error) {
	return newStore(rd.db, rd.address).isCheckpointCaller(address)
}

// IsDeployed reports whether Deploy has run for this distributor.
func (rd *RewardDistributor) IsDeployed() (bool, error) {
	return newStore(rd.db, rd.address).exists()
}
