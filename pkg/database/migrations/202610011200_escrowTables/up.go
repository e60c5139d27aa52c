package _202610011200_escrowTables

import (
	"github.com/Layr-Labs/ve-rewards/internal/config"
	"gorm.io/gorm"
)

type escrowLock struct {
	Account string `gorm:"primaryKey"`
	Amount  string `gorm:"type:text;not null"`
	End     uint64 `gorm:"column:lock_end;not null"`
}

func (escrowLock) TableName() string { return "escrow_locks" }

type escrowGlobalPoint struct {
	Epoch       uint64 `gorm:"primaryKey;autoIncrement:false"`
	Bias        string `gorm:"type:text;not null"`
	Slope       string `gorm:"type:text;not null"`
	Timestamp   uint64 `gorm:"not null"`
	BlockNumber uint64 `gorm:"not null;index"`
}

func (escrowGlobalPoint) TableName() string { return "escrow_global_points" }

type escrowAccountPoint struct {
	Account     string `gorm:"primaryKey"`
	Epoch       uint64 `gorm:"primaryKey;autoIncrement:false"`
	Bias        string `gorm:"type:text;not null"`
	Slope       string `gorm:"type:text;not null"`
	Timestamp   uint64 `gorm:"not null"`
	BlockNumber uint64 `gorm:"not null"`
}

func (escrowAccountPoint) TableName() string { return "escrow_account_points" }

type escrowSlopeChange struct {
	Week       uint64 `gorm:"primaryKey;autoIncrement:false"`
	SlopeDelta string `gorm:"type:text;not null"`
}

func (escrowSlopeChange) TableName() string { return "escrow_slope_changes" }

type escrowSettings struct {
	Id                   uint64 `gorm:"primaryKey;autoIncrement:false"`
	Owner                string `gorm:"not null"`
	TokenAddress         string `gorm:"not null"`
	EscrowAddress        string `gorm:"not null"`
	MaxLock              uint64 `gorm:"not null"`
	Breaker              bool   `gorm:"not null"`
	PenaltyBpsPerWeek    uint64 `gorm:"not null"`
	TreasuryShareBps     uint64 `gorm:"not null"`
	Treasury             string
	RedistributionTarget string
	RedistributionPool   string `gorm:"type:text;not null"`
	Epoch                uint64 `gorm:"not null"`
	LockedSupply         string `gorm:"type:text;not null"`
}

func (escrowSettings) TableName() string { return "escrow_settings" }

type escrowWhitelist struct {
	Kind    string `gorm:"primaryKey"`
	Address string `gorm:"primaryKey"`
}

func (escrowWhitelist) TableName() string { return "escrow_whitelists" }

type escrowEvent struct {
	Id           uint64 `gorm:"primaryKey"`
	EventId      string `gorm:"uniqueIndex;not null"`
	Action       string `gorm:"not null"`
	Account      string
	Amount       string `gorm:"type:text"`
	LockEnd      uint64
	VotingSupply string `gorm:"type:text"`
	LockedSupply string `gorm:"type:text"`
	Penalty      string `gorm:"type:text"`
	Timestamp    uint64
	BlockNumber  uint64
}

func (escrowEvent) TableName() string { return "escrow_events" }

type Migration struct {
}

func (m *Migration) Up(grm *gorm.DB, cfg *config.Config) error {
	return grm.Migrator().AutoMigrate(
		&escrowLock{},
		&escrowGlobalPoint{},
		&escrowAccountPoint{},
		&escrowSlopeChange{},
		&escrowSettings{},
		&escrowWhitelist{},
		&escrowEvent{},
	)
}

func (m *Migration) GetName() string {
	return "202610011200_escrowTables"
}
