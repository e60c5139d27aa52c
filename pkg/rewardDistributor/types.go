package rewardDistributor

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

const (
	// TokenCheckpointDeadline is how long after the last token checkpoint anyone may trigger the next one.
	TokenCheckpointDeadline = uint64(24 * 60 * 60)
	// MaxWeekSteps caps the weeks one token or total supply checkpoint advances.
	MaxWeekSteps = 20
	// MaxClaimWeeks caps the weeks one claim walks for a single account.
	MaxClaimWeeks = 50
)

type Action string

const (
	Action_Deploy                Action = "deploy"
	Action_Feed                  Action = "feed"
	Action_CheckpointToken       Action = "checkpoint_token"
	Action_CheckpointTotalSupply Action = "checkpoint_total_supply"
	Action_Claim                 Action = "claim"
	Action_SetCanCheckpointToken Action = "set_can_checkpoint_token"
	Action_SetCheckpointCallers  Action = "set_checkpoint_callers"
	Action_SetEmergencyReturn    Action = "set_emergency_return"
	Action_Kill                  Action = "kill"
)

type DeployConfig struct {
	Address            common.Address
	Owner              common.Address
	TokenAddress       common.Address
	EmergencyReturn    common.Address
	CanCheckpointToken bool
}

type Settings struct {
	Address            common.Address `json:"address"`
	Owner              common.Address `json:"owner"`
	TokenAddress       common.Address `json:"tokenAddress"`
	EmergencyReturn    common.Address `json:"emergencyReturn"`
	StartWeekCursor    uint64         `json:"startWeekCursor"`
	WeekCursor         uint64         `json:"weekCursor"`
	LastTokenTimestamp uint64         `json:"lastTokenTimestamp"`
	LastTokenBalance   *big.Int       `json:"lastTokenBalance"`
	CanCheckpointToken bool           `json:"canCheckpointToken"`
	Killed             bool           `json:"killed"`
}

// WeekBucket is the reward amount and the cached escrow supply of one week.
type WeekBucket struct {
	Week        uint64   `json:"week"`
	Tokens      *big.Int `json:"tokens"`
	TotalSupply *big.Int `json:"totalSupply"`
}
