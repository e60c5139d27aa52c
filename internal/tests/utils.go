package tests

import (
	"os"

	"github.com/Layr-Labs/ve-rewards/internal/config"
	"github.com/Layr-Labs/ve-rewards/pkg/database/migrations"
	"github.com/Layr-Labs/ve-rewards/pkg/sqlite"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func GetConfig() *config.Config {
	return config.NewConfig()
}

// GetSqliteDatabaseConnection opens a fresh, uniquely named in-memory database so tests never share state.
func GetSqliteDatabaseConnection(l *zap.Logger) (*gorm.DB, error) {
	return sqlite.NewGormSqliteFromSqlite(sqlite.NewInMemorySqliteWithName(uuid.NewString(), l))
}

// GetMigratedSqliteDatabase opens a fresh in-memory database with every migration applied.
func GetMigratedSqliteDatabase(cfg *config.Config, l *zap.Logger) (*gorm.DB, error) {
	grm, err := GetSqliteDatabaseConnection(l)
	if err != nil {
		return nil, err
	}
	migrator := migrations.NewMigrator(grm, l, cfg)
	if err := migrator.MigrateAll(); err != nil {
		return nil, err
	}
	return grm, nil
}

func GetDbConfigFromEnv() *config.DatabaseConfig {
	return &config.DatabaseConfig{
		Driver:   config.DatabaseDriver_Postgres,
		Host:     os.Getenv("VE_REWARDS_DATABASE_HOST"),
		Port:     5432,
		User:     os.Getenv("VE_REWARDS_DATABASE_USER"),
		Password: os.Getenv("VE_REWARDS_DATABASE_PASSWORD"),
		SSLMode:  "disable",
	}
}

func ReplaceEnv(newValues map[string]string, previousValues *map[string]string) {
	for k, v := range newValues {
		(*previousValues)[k] = os.Getenv(k)
		os.Setenv(k, v)
	}
}

func RestoreEnv(previousValues map[string]string) {
	for k, v := range previousValues {
		os.Setenv(k, v)
	}
}
