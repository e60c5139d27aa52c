package migrations

import (
	"testing"

	"github.com/Layr-Labs/ve-rewards/internal/config"
	"github.com/Layr-Labs/ve-rewards/pkg/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func Test_Migrator(t *testing.T) {
	l := zap.NewNop()
	grm, err := sqlite.NewGormSqliteFromSqlite(sqlite.NewInMemorySqliteWithName(uuid.NewString(), l))
	if err != nil {
		t.Fatal(err)
	}
	migrator := NewMigrator(grm, l, &config.Config{})

	t.Run("Should apply every migration", func(t *testing.T) {
		err := migrator.MigrateAll()
		assert.Nil(t, err)

		for _, table := range []string{
			"escrow_locks",
			"escrow_global_points",
			"escrow_account_points",
			"escrow_slope_changes",
			"escrow_settings",
			"escrow_whitelists",
			"escrow_events",
			"distributor_settings",
			"distributor_tokens_per_week",
			"distributor_supply",
			"distributor_account_cursors",
			"distributor_checkpoint_callers",
			"distributor_events",
			"token_balances",
			"token_allowances",
			"ve_rewards_versions",
		} {
			assert.True(t, grm.Migrator().HasTable(table), table)
		}

		var count int64
		grm.Model(&Migrations{}).Count(&count)
		assert.Equal(t, int64(len(All())), count)
	})
	t.Run("Should be a no-op when run again", func(t *testing.T) {
		err := migrator.MigrateAll()
		assert.Nil(t, err)

		var count int64
		grm.Model(&Migrations{}).Count(&count)
		assert.Equal(t, int64(len(All())), count)
	})
}
