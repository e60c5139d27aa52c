// Package database opens the gorm connection for whichever driver is configured.
package database

import (
	"fmt"

	"github.com/Layr-Labs/ve-rewards/internal/config"
	"github.com/Layr-Labs/ve-rewards/pkg/postgres"
	"github.com/Layr-Labs/ve-rewards/pkg/sqlite"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// NewDatabase opens a gorm handle for the configured driver.
func NewDatabase(cfg *config.Config, l *zap.Logger) (*gorm.DB, error) {
	switch cfg.DatabaseConfig.Driver {
	case config.DatabaseDriver_Postgres:
		pg, err := postgres.NewPostgres(postgres.PostgresConfigFromDbConfig(&cfg.DatabaseConfig), l)
		if err != nil {
			return nil, errors.Wrap(err, "failed to setup postgres connection")
		}
		grm, err := postgres.NewGormFromPostgresConnection(pg.Db)
		if err != nil {
			return nil, errors.Wrap(err, "failed to create gorm instance")
		}
		l.Sugar().Infow("Connected to postgres",
			zap.String("host", cfg.DatabaseConfig.Host),
			zap.String("dbName", cfg.DatabaseConfig.DbName),
		)
		return grm, nil
	case config.DatabaseDriver_Sqlite:
		path := cfg.SqliteConfig.GetSqlitePath()
		grm, err := sqlite.NewGormSqliteFromSqlite(sqlite.NewSqlite(path, l))
		if err != nil {
			return nil, errors.Wrap(err, "failed to open sqlite database")
		}
		l.Sugar().Infow("Opened sqlite database", zap.String("path", path))
		return grm, nil
	}
	return nil, fmt.Errorf("unsupported database driver '%s'", cfg.DatabaseConfig.Driver)
}

// IsDuplicateKeyError dispatches to the driver specific check for the dialect grm is connected with.
func IsDuplicateKeyError(grm *gorm.DB, err error) bool {
	if grm.Dialector.Name() == "postgres" {
		return postgres.IsDuplicateKeyError(err)
	}
	return sqlite.IsDuplicateKeyError(err)
}

// WrapTxAndCommit executes fn within a transaction. When tx is provided it is reused and left
// for the caller to commit, otherwise a new transaction is opened and committed or rolled back
// based on the result of fn.
func WrapTxAndCommit[T any](fn func(*gorm.DB) (T, error), db *gorm.DB, tx *gorm.DB) (T, error) {
	exists := tx != nil

	if !exists {
		tx = db.Begin()
	}

	res, err := fn(tx)

	if err != nil && !exists {
		tx.Rollback()
	}
	if err == nil && !exists {
		if commitErr := tx.Commit().Error; commitErr != nil {
			return res, commitErr
		}
	}
	return res, err
}
