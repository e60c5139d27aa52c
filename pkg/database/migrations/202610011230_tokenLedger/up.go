package _202610011230_tokenLedger

import (
	"github.com/Layr-Labs/ve-rewards/internal/config"
	"gorm.io/gorm"
)

type tokenBalance struct {
	Token   string `gorm:"primaryKey"`
	Holder  string `gorm:"primaryKey"`
	Balance string `gorm:"type:text;not null"`
}

func (tokenBalance) TableName() string { return "token_balances" }

type tokenAllowance struct {
	Token   string `gorm:"primaryKey"`
	Owner   string `gorm:"primaryKey"`
	Spender string `gorm:"primaryKey"`
	Amount  string `gorm:"type:text;not null"`
}

func (tokenAllowance) TableName() string { return "token_allowances" }

type Migration struct {
}

func (m *Migration) Up(grm *gorm.DB, cfg *config.Config) error {
	return grm.Migrator().AutoMigrate(&tokenBalance{}, &tokenAllowance{})
}

func (m *Migration) GetName() string {
	return "202610011230_tokenLedger"
}
