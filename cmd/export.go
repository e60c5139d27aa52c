package cmd

import (
	"io"
	"os"
	"time"

	"github.com/Layr-Labs/ve-rewards/internal/config"
	"github.com/Layr-Labs/ve-rewards/internal/logger"
	"github.com/Layr-Labs/ve-rewards/pkg/clock"
	"github.com/Layr-Labs/ve-rewards/pkg/metrics"
	"github.com/Layr-Labs/ve-rewards/pkg/rewardDistributor"
	"github.com/Layr-Labs/ve-rewards/pkg/types/numbers"
	"github.com/gocarina/gocsv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	exportDistributor = "export.distributor"
	exportFrom        = "export.from"
	exportTo          = "export.to"
	exportOutput      = "export.output"
	exportDecimals    = "export.decimals"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export distributor data",
}

var exportWeeksCmd = &cobra.Command{
	Use:   "weeks",
	Short: "Write a distributor's week buckets as CSV",
	RunE: func(cmd *cobra.Command, args []string) error {
		initCmdFlags(cmd)
		cfg := config.NewConfig()

		l, _ := logger.NewLogger(&logger.LoggerConfig{Debug: cfg.Debug})

		a, err := newApp(cfg, l, metrics.NewNoopMetricsSink())
		if err != nil {
			return err
		}
		rd, err := a.distributor(viper.GetString(config.KebabToSnakeCase(exportDistributor)))
		if err != nil {
			return err
		}
		settings, err := rd.Settings()
		if err != nil {
			return err
		}

		from := viper.GetUint64(config.KebabToSnakeCase(exportFrom))
		if from == 0 {
			from = settings.StartWeekCursor
		}
		to := viper.GetUint64(config.KebabToSnakeCase(exportTo))
		if to == 0 {
			to = clock.FloorWeek(a.clock.Now().Timestamp) + clock.Week
		}
		buckets, err := rd.WeekBuckets(clock.FloorWeek(from), to)
		if err != nil {
			return err
		}

		var out io.Writer = os.Stdout
		if path := viper.GetString(config.KebabToSnakeCase(exportOutput)); path != "" {
			f, err := os.Create(path)
			if err != nil {
				return err
			}
			defer f.Close()
			out = f
		}
		return writeWeekBuckets(out, buckets, int32(viper.GetInt(config.KebabToSnakeCase(exportDecimals))))
	},
}

type weekBucketRow struct {
	Week        uint64 `csv:"week"`
	WeekStart   string `csv:"week_start"`
	Tokens      string `csv:"tokens"`
	TokensUnits string `csv:"tokens_units"`
	TotalSupply string `csv:"total_supply"`
}

func writeWeekBuckets(out io.Writer, buckets []*rewardDistributor.WeekBucket, decimals int32) error {
	rows := make([]*weekBucketRow, 0, len(buckets))
	for _, b := range buckets {
		rows = append(rows, &weekBucketRow{
			Week:        b.Week,
			WeekStart:   time.Unix(int64(b.Week), 0).UTC().Format(time.RFC3339),
			Tokens:      b.Tokens.String(),
			TokensUnits: numbers.FormatUnits(b.Tokens, decimals),
			TotalSupply: b.TotalSupply.String(),
		})
	}
	return gocsv.Marshal(rows, out)
}

func init() {
	exportCmd.AddCommand(exportWeeksCmd)

	exportWeeksCmd.Flags().String(exportDistributor, "", `Distributor address (required)`)
	exportWeeksCmd.Flags().Uint64(exportFrom, 0, `First week, unix seconds (default: the distributor's start week)`)
	exportWeeksCmd.Flags().Uint64(exportTo, 0, `End week, exclusive (default: after the current week)`)
	exportWeeksCmd.Flags().String(exportOutput, "", `Output file (default: stdout)`)
	exportWeeksCmd.Flags().Int(exportDecimals, int(numbers.DefaultDecimals), `Reward token decimals used for tokens_units`)
}
