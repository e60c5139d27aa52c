package _202610011245_runtimeVersions

import (
	"time"

	"github.com/Layr-Labs/ve-rewards/internal/config"
	"gorm.io/gorm"
)

type veRewardsVersion struct {
	Id              uint64 `gorm:"primaryKey"`
	Version         string `gorm:"not null"`
	BlockLaunchedAt uint64 `gorm:"not null"`
	CreatedAt       *time.Time
}

func (veRewardsVersion) TableName() string { return "ve_rewards_versions" }

type Migration struct {
}

func (m *Migration) Up(grm *gorm.DB, cfg *config.Config) error {
	return grm.Migrator().AutoMigrate(&veRewardsVersion{})
}

func (m *Migration) GetName() string {
	return "202610011245_runtimeVersions"
}
