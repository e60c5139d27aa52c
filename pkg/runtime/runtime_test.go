package runtime

import (
	"testing"

	"github.com/Layr-Labs/ve-rewards/internal/logger"
	"github.com/Layr-Labs/ve-rewards/internal/tests"
	"github.com/Layr-Labs/ve-rewards/pkg/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Runtime(t *testing.T) {
	cfg := tests.GetConfig()
	l, _ := logger.NewLogger(&logger.LoggerConfig{Debug: cfg.Debug})

	grm, err := tests.GetMigratedSqliteDatabase(cfg, l)
	require.Nil(t, err)

	c := clock.NewManualClock(1_700_000_000, 100, 12)
	rtime := NewRuntime(grm, c, l)

	t.Run("Should insert a new version when there isnt one", func(t *testing.T) {
		err := rtime.ValidateAndUpdateVersion("v1.0.0")
		assert.Nil(t, err)

		lv, err := rtime.GetRecentlyLaunchedVersion()
		require.Nil(t, err)
		assert.Equal(t, "v1.0.0", lv.Version)
		assert.Equal(t, uint64(100), lv.BlockLaunchedAt)
	})
	t.Run("Should fail due to the version being older", func(t *testing.T) {
		err := rtime.ValidateAndUpdateVersion("v0.1.0")
		assert.ErrorIs(t, err, ErrVersionDowngrade)
	})
	t.Run("Should not record the same version twice", func(t *testing.T) {
		c.Advance(120)
		assert.Nil(t, rtime.ValidateAndUpdateVersion("v1.0.0"))

		lv, err := rtime.GetRecentlyLaunchedVersion()
		require.Nil(t, err)
		assert.Equal(t, uint64(100), lv.BlockLaunchedAt)
	})
	t.Run("Should upgrade through minor, patch and major releases", func(t *testing.T) {
		for _, v := range []string{"v1.1.0", "v1.1.1", "v2.0.0"} {
			c.Advance(12)
			assert.Nil(t, rtime.ValidateAndUpdateVersion(v), v)
		}
		lv, err := rtime.GetRecentlyLaunchedVersion()
		require.Nil(t, err)
		assert.Equal(t, "v2.0.0", lv.Version)
	})
	t.Run("Should accept pre-release and build suffixes", func(t *testing.T) {
		assert.Nil(t, rtime.ValidateAndUpdateVersion("v2.0.0+abc123"))
		assert.Nil(t, rtime.ValidateAndUpdateVersion("v2.0.1-rc.1"))
		assert.Nil(t, rtime.ValidateAndUpdateVersion("v2.0.1-rc.1+abc123"))
	})
	t.Run("Should ignore unknown and reject malformed versions", func(t *testing.T) {
		assert.Nil(t, rtime.ValidateAndUpdateVersion("unknown"))
		assert.NotNil(t, rtime.ValidateAndUpdateVersion(""))
		assert.NotNil(t, rtime.ValidateAndUpdateVersion("2.0.0"))
	})
}
