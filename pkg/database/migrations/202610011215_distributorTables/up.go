package _202610011215_distributorTables

import (
	"github.com/Layr-Labs/ve-rewards/internal/config"
	"gorm.io/gorm"
)

type distributorSettings struct {
	Address            string `gorm:"primaryKey"`
	Owner              string `gorm:"not null"`
	TokenAddress       string `gorm:"not null"`
	StartWeekCursor    uint64 `gorm:"not null"`
	WeekCursor         uint64 `gorm:"not null"`
	LastTokenTimestamp uint64 `gorm:"not null"`
	LastTokenBalance   string `gorm:"type:text;not null"`
	CanCheckpointToken bool   `gorm:"not null"`
	Killed             bool   `gorm:"not null"`
	EmergencyReturn    string
}

func (distributorSettings) TableName() string { return "distributor_settings" }

type distributorTokensPerWeek struct {
	Distributor string `gorm:"primaryKey"`
	Week        uint64 `gorm:"primaryKey;autoIncrement:false"`
	Amount      string `gorm:"type:text;not null"`
}

func (distributorTokensPerWeek) TableName() string { return "distributor_tokens_per_week" }

type distributorSupply struct {
	Distributor string `gorm:"primaryKey"`
	Week        uint64 `gorm:"primaryKey;autoIncrement:false"`
	TotalSupply string `gorm:"type:text;not null"`
}

func (distributorSupply) TableName() string { return "distributor_supply" }

type distributorAccountCursor struct {
	Distributor string `gorm:"primaryKey"`
	Account     string `gorm:"primaryKey"`
	WeekCursor  uint64 `gorm:"not null"`
}

func (distributorAccountCursor) TableName() string { return "distributor_account_cursors" }

type distributorCheckpointCaller struct {
	Distributor string `gorm:"primaryKey"`
	Address     string `gorm:"primaryKey"`
}

func (distributorCheckpointCaller) TableName() string { return "distributor_checkpoint_callers" }

type distributorEvent struct {
	Id          uint64 `gorm:"primaryKey"`
	EventId     string `gorm:"uniqueIndex;not null"`
	Distributor string `gorm:"not null"`
	Action      string `gorm:"not null"`
	Account     string
	Amount      string `gorm:"type:text"`
	Timestamp   uint64
	BlockNumber uint64
}

func (distributorEvent) TableName() string { return "distributor_events" }

type Migration struct {
}

func (m *Migration) Up(grm *gorm.DB, cfg *config.Config) error {
	return grm.Migrator().AutoMigrate(
		&distributorSettings{},
		&distributorTokensPerWeek{},
		&distributorSupply{},
		&distributorAccountCursor{},
		&distributorCheckpointCaller{},
		&distributorEvent{},
	)
}

func (m *Migration) GetName() string {
	return "202610011215_distributorTables"
}
