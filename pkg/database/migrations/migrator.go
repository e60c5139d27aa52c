package migrations

import (
	"errors"
	"fmt"
	"time"

	"github.com/Layr-Labs/ve-rewards/internal/config"
	"github.com/Layr-Labs/ve-rewards/pkg/database"
	_202610011200_escrowTables "github.com/Layr-Labs/ve-rewards/pkg/database/migrations/202610011200_escrowTables"
	_202610011215_distributorTables "github.com/Layr-Labs/ve-rewards/pkg/database/migrations/202610011215_distributorTables"
	_202610011230_tokenLedger "github.com/Layr-Labs/ve-rewards/pkg/database/migrations/202610011230_tokenLedger"
	_202610011245_runtimeVersions "github.com/Layr-Labs/ve-rewards/pkg/database/migrations/202610011245_runtimeVersions"
	_202610021000_eventIndexes "github.com/Layr-Labs/ve-rewards/pkg/database/migrations/202610021000_eventIndexes"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Migration interface {
	Up(grm *gorm.DB, cfg *config.Config) error
	GetName() string
}

// Migrations records which migrations have been applied.
type Migrations struct {
	Name      string `gorm:"primaryKey"`
	CreatedAt time.Time
	UpdatedAt *time.Time
}

type Migrator struct {
	grm          *gorm.DB
	logger       *zap.Logger
	globalConfig *config.Config
}

func NewMigrator(grm *gorm.DB, l *zap.Logger, cfg *config.Config) *Migrator {
	return &Migrator{
		grm:          grm,
		logger:       l,
		globalConfig: cfg,
	}
}

// All returns every migration in the order it must be applied.
func All() []Migration {
	return []Migration{
		&_202610011200_escrowTables.Migration{},
		&_202610011215_distributorTables.Migration{},
		&_202610011230_tokenLedger.Migration{},
		&_202610011245_runtimeVersions.Migration{},
		&_202610021000_eventIndexes.Migration{},
	}
}

func (m *Migrator) MigrateAll() error {
	if err := m.grm.AutoMigrate(&Migrations{}); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	for _, migration := range All() {
		if err := m.Migrate(migration); err != nil {
			return err
		}
	}
	m.logger.Sugar().Infow("All migrations applied")
	return nil
}

func (m *Migrator) Migrate(migration Migration) error {
	name := migration.GetName()

	var existing Migrations
	res := m.grm.Model(&Migrations{}).Where("name = ?", name).First(&existing)
	if res.Error == nil {
		m.logger.Sugar().Debugw("Migration already run", zap.String("name", name))
		return nil
	}
	if !errors.Is(res.Error, gorm.ErrRecordNotFound) {
		return fmt.Errorf("failed to look up migration '%s': %w", name, res.Error)
	}

	m.logger.Sugar().Infow("Running migration", zap.String("name", name))
	_, err := database.WrapTxAndCommit(func(tx *gorm.DB) (*Migrations, error) {
		if err := migration.Up(tx, m.globalConfig); err != nil {
			return nil, err
		}
		record := &Migrations{Name: name, CreatedAt: time.Now()}
		if res := tx.Create(record); res.Error != nil {
			return nil, res.Error
		}
		return record, nil
	}, m.grm, nil)
	if err != nil && database.IsDuplicateKeyError(m.grm, err) {
		// another process recorded the same migration first
		m.logger.Sugar().Infow("Migration applied concurrently", zap.String("name", name))
		return nil
	}
	if err != nil {
		m.logger.Sugar().Errorw("Failed to run migration", zap.String("name", name), zap.Error(err))
		return fmt.Errorf("failed to run migration '%s': %w", name, err)
	}
	return nil
}
