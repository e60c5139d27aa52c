package cmd

import (
	"github.com/Layr-Labs/ve-rewards/internal/config"
	"github.com/Layr-Labs/ve-rewards/internal/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var runDatabaseCmd = &cobra.Command{
	Use:   "database",
	Short: "Database management",
}

var migrateDatabaseCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply every pending migration and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		initCmdFlags(cmd)
		cfg := config.NewConfig()

		l, _ := logger.NewLogger(&logger.LoggerConfig{Debug: cfg.Debug})

		if err := cfg.Validate(); err != nil {
			return err
		}
		if _, err := openMigratedDatabase(cfg, l); err != nil {
			l.Sugar().Errorw("Failed to migrate database", zap.Error(err))
			return err
		}
		l.Sugar().Info("Database is up to date")
		return nil
	},
}

func init() {
	runDatabaseCmd.AddCommand(migrateDatabaseCmd)
}
