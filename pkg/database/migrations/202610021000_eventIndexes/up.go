package _202610021000_eventIndexes

import (
	"fmt"

	"github.com/Layr-Labs/ve-rewards/internal/config"
	"gorm.io/gorm"
)

type Migration struct {
}

func (m *Migration) Up(grm *gorm.DB, cfg *config.Config) error {
	queries := []string{
		`create index if not exists idx_escrow_events_account on escrow_events (account, block_number)`,
		`create index if not exists idx_distributor_events_distributor_account on distributor_events (distributor, account)`,
		`create index if not exists idx_escrow_account_points_block on escrow_account_points (account, block_number)`,
	}
	for _, query := range queries {
		res := grm.Exec(query)
		if res.Error != nil {
			return fmt.Errorf("failed to run query '%s': %w", query, res.Error)
		}
	}
	return nil
}

func (m *Migration) GetName() string {
	return "202610021000_eventIndexes"
}
