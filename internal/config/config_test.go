package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func TestParseDatabaseDriver(t *testing.T) {
	tests := []struct {
		input    string
		expected DatabaseDriver
		hasError bool
	}{
		{"postgres", DatabaseDriver_Postgres, false},
		{"PostgreSQL", DatabaseDriver_Postgres, false},
		{"sqlite", DatabaseDriver_Sqlite, false},
		{"sqlite3", DatabaseDriver_Sqlite, false},
		{"", "", true},
		{"mysql", "", true},
	}

	for _, test := range tests {
		result, err := ParseDatabaseDriver(test.input)
		if (err != nil) != test.hasError {
			t.Errorf("ParseDatabaseDriver(%s) error = %v, wantErr %v", test.input, err, test.hasError)
		}
		if result != test.expected {
			t.Errorf("ParseDatabaseDriver(%s) = %v, want %v", test.input, result, test.expected)
		}
	}
}

func TestParseStringAsList(t *testing.T) {
	tests := []struct {
		input    string
		expected []string
	}{
		{"", []string{}},
		{"a,b,c", []string{"a", "b", "c"}},
		{"a, b, c", []string{"a", "b", "c"}},
		{"a,,c", []string{"a", "c"}},
	}

	for _, test := range tests {
		result := parseStringAsList(test.input)
		assert.Equal(t, test.expected, result, "parseStringAsList(%s)", test.input)
	}
}

func TestGetSqlitePath(t *testing.T) {
	tests := []struct {
		config   SqliteConfig
		expected string
	}{
		{SqliteConfig{InMemory: true}, "file::memory:?cache=shared"},
		{SqliteConfig{InMemory: false, DbFilePath: "/path/to/db"}, "/path/to/db"},
	}

	for _, test := range tests {
		result := test.config.GetSqlitePath()
		if result != test.expected {
			t.Errorf("GetSqlitePath() = %v, want %v", result, test.expected)
		}
	}
}

func Test_NewConfig(t *testing.T) {
	t.Cleanup(viper.Reset)

	t.Run("Should fall back to defaults", func(t *testing.T) {
		viper.Reset()
		cfg := NewConfig()

		assert.Equal(t, DefaultMaxLock, cfg.EscrowConfig.MaxLock)
		assert.Equal(t, DefaultMaxCheckpointWeeks, cfg.EscrowConfig.MaxCheckpointWeeks)
		assert.Equal(t, DefaultBlockInterval, cfg.ClockConfig.BlockInterval)
		assert.Equal(t, DatabaseDriver_Sqlite, cfg.DatabaseConfig.Driver)
		assert.Equal(t, ClockMode_Wall, cfg.ClockConfig.Mode)
		assert.Nil(t, cfg.Validate())
	})

	t.Run("Should read values set through viper", func(t *testing.T) {
		viper.Reset()
		viper.Set(DatabaseDriverName, "postgres")
		viper.Set(DatabaseHost, "db.internal")
		viper.Set(EscrowMaxLock, "2184h")
		viper.Set(DistributorAddresses, "0x01, 0x02")
		viper.Set(KeeperEnabled, true)
		viper.Set(KeeperInterval, "1h")

		cfg := NewConfig()
		assert.Equal(t, DatabaseDriver_Postgres, cfg.DatabaseConfig.Driver)
		assert.Equal(t, "db.internal", cfg.DatabaseConfig.Host)
		assert.Equal(t, 2184*time.Hour, cfg.EscrowConfig.MaxLock)
		assert.Equal(t, []string{"0x01", "0x02"}, cfg.DistributorConfig.Addresses)
		assert.True(t, cfg.IsKeeperEnabled())
	})

	t.Run("Should reject a max lock shorter than a week", func(t *testing.T) {
		viper.Reset()
		viper.Set(EscrowMaxLock, "24h")

		cfg := NewConfig()
		assert.NotNil(t, cfg.Validate())
	})

	t.Run("Should require a sqlite path when not in memory", func(t *testing.T) {
		viper.Reset()
		cfg := NewConfig()
		cfg.SqliteConfig = SqliteConfig{InMemory: false}
		assert.NotNil(t, cfg.Validate())
	})
}

func TestKebabToSnakeCase(t *testing.T) {
	assert.Equal(t, "escrow.max_lock", KebabToSnakeCase("escrow.max-lock"))
	assert.Equal(t, "debug", KebabToSnakeCase("debug"))
}
