package cmd

import (
	"os"
	"strings"
	"time"

	"github.com/Layr-Labs/ve-rewards/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "ve-rewards",
	Short: "Vote-escrow locking and weekly pro-rata reward distribution",
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	initConfig(rootCmd)

	rootCmd.PersistentFlags().Bool(config.Debug, false, `"true" or "false"`)

	rootCmd.PersistentFlags().String(config.DatabaseDriverName, "sqlite", `Database driver (postgres, sqlite)`)
	rootCmd.PersistentFlags().String(config.DatabaseHost, "localhost", `PostgreSQL host`)
	rootCmd.PersistentFlags().Int(config.DatabasePort, 5432, `PostgreSQL port`)
	rootCmd.PersistentFlags().String(config.DatabaseUser, "ve_rewards", `PostgreSQL username`)
	rootCmd.PersistentFlags().String(config.DatabasePassword, "", `PostgreSQL password`)
	rootCmd.PersistentFlags().String(config.DatabaseDbName, "ve_rewards", `PostgreSQL database name`)
	rootCmd.PersistentFlags().String(config.DatabaseSchemaName, "", `PostgreSQL schema name (default "public")`)
	rootCmd.PersistentFlags().String(config.DatabaseSSLMode, "disable", `PostgreSQL sslmode`)
	rootCmd.PersistentFlags().Bool(config.DatabaseCreateIfNotExists, false, `Create the PostgreSQL database when it is missing`)

	rootCmd.PersistentFlags().Bool(config.SqliteInMemory, false, `Use an in-memory sqlite database`)
	rootCmd.PersistentFlags().String(config.SqliteDbFilePath, config.DefaultSqliteDbFilePath, `Path to the sqlite database file`)

	rootCmd.PersistentFlags().String(config.ClockModeName, string(config.ClockMode_Wall), `Clock mode (wall, manual)`)
	rootCmd.PersistentFlags().Uint64(config.ClockGenesisTime, 0, `Unix time of the genesis block`)
	rootCmd.PersistentFlags().Uint64(config.ClockGenesisBlock, 0, `Block number at genesis`)
	rootCmd.PersistentFlags().Duration(config.ClockBlockInterval, config.DefaultBlockInterval, `Time between blocks`)

	rootCmd.PersistentFlags().String(config.EscrowOwner, "", `Escrow owner address`)
	rootCmd.PersistentFlags().String(config.EscrowTokenAddress, "", `Address of the locked token`)
	rootCmd.PersistentFlags().String(config.EscrowAddress, "", `Address the escrow holds locked tokens under`)
	rootCmd.PersistentFlags().Duration(config.EscrowMaxLock, config.DefaultMaxLock, `Longest allowed lock`)
	rootCmd.PersistentFlags().Uint64(config.EscrowMaxCheckpointWeeks, config.DefaultMaxCheckpointWeeks, `Weeks a single checkpoint may replay`)

	rootCmd.PersistentFlags().String(config.DistributorAddresses, "", `Comma separated reward distributor addresses`)
	rootCmd.PersistentFlags().String(config.DistributorTokenAddress, "", `Reward token for distributors deployed on startup`)
	rootCmd.PersistentFlags().String(config.DistributorEmergencyReturn, "", `Emergency return for distributors deployed on startup`)
	rootCmd.PersistentFlags().Bool(config.DistributorCanCheckpointToken, false, `Allow anyone to checkpoint tokens once a day`)

	rootCmd.PersistentFlags().String(config.KeeperCaller, "", `Address the keeper acts as`)

	rootCmd.PersistentFlags().Bool(config.DataDogStatsdEnabled, false, `e.g. "true" or "false"`)
	rootCmd.PersistentFlags().String(config.DataDogStatsdUrl, "", `e.g. "localhost:8125"`)
	rootCmd.PersistentFlags().Bool(config.DataDogEnableTracing, false, `Send traces to the local DataDog agent`)

	rootCmd.PersistentFlags().Bool(config.PrometheusEnabled, false, `e.g. "true" or "false"`)
	rootCmd.PersistentFlags().Int(config.PrometheusPort, 2112, `The port to run the prometheus server on`)

	// setup sub commands
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(runVersionCmd)
	rootCmd.AddCommand(runDatabaseCmd)
	rootCmd.AddCommand(catchUpCmd)
	rootCmd.AddCommand(exportCmd)

	// bind any subcommand flags
	runCmd.PersistentFlags().Int(config.RpcHttpPort, 7101, `http rpc port`)
	runCmd.PersistentFlags().Bool(config.KeeperEnabled, true, `Run scheduled maintenance`)
	runCmd.PersistentFlags().Duration(config.KeeperInterval, time.Hour, `Time between scheduled maintenance rounds`)

	rootCmd.PersistentFlags().VisitAll(func(f *pflag.Flag) {
		key := config.KebabToSnakeCase(f.Name)
		viper.BindPFlag(key, f) //nolint:errcheck
		viper.BindEnv(key)      //nolint:errcheck
	})
}

func initConfig(cmd *cobra.Command) {
	viper.SetEnvPrefix(config.ENV_PREFIX)

	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))

	viper.AutomaticEnv()
}
