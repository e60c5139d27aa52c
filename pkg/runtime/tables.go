package runtime

import "time"

type LaunchedVersion struct {
	Id              uint64 `gorm:"primaryKey"`
	Version         string
	BlockLaunchedAt uint64
	CreatedAt       *time.Time
}

func (LaunchedVersion) TableName() string { return "ve_rewards_versions" }
