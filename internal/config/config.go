package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const ENV_PREFIX = "VE_REWARDS"

type DatabaseDriver string

const (
	DatabaseDriver_Postgres DatabaseDriver = "postgres"
	DatabaseDriver_Sqlite   DatabaseDriver = "sqlite"
)

func ParseDatabaseDriver(name string) (DatabaseDriver, error) {
	switch strings.ToLower(name) {
	case "postgres", "postgresql":
		return DatabaseDriver_Postgres, nil
	case "sqlite", "sqlite3":
		return DatabaseDriver_Sqlite, nil
	}
	return "", fmt.Errorf("unsupported database driver '%s'", name)
}

type ClockMode string

const (
	ClockMode_Wall   ClockMode = "wall"
	ClockMode_Manual ClockMode = "manual"
)

type DatabaseConfig struct {
	Driver      DatabaseDriver
	Host        string
	Port        int
	User        string
	Password    string
	DbName      string
	SchemaName  string
	SSLMode     string
	SSLCert     string
	SSLKey      string
	SSLRootCert string

	// CreateIfNotExists creates DbName on startup when the server does not have it yet.
	CreateIfNotExists bool
}

type SqliteConfig struct {
	InMemory   bool
	DbFilePath string
}

func (s *SqliteConfig) GetSqlitePath() string {
	if s.InMemory {
		return "file::memory:?cache=shared"
	}
	return s.DbFilePath
}

type ClockConfig struct {
	Mode ClockMode
	// GenesisTimestamp is the unix time that maps to GenesisBlock.
	GenesisTimestamp uint64
	GenesisBlock     uint64
	BlockInterval    time.Duration
}

type EscrowConfig struct {
	Owner              string
	TokenAddress       string
	EscrowAddress      string
	MaxLock            time.Duration
	MaxCheckpointWeeks uint64
}

type DistributorConfig struct {
	Addresses []string
	// Used when a configured distributor has not been deployed yet.
	TokenAddress       string
	EmergencyReturn    string
	CanCheckpointToken bool
}

type KeeperConfig struct {
	Enabled  bool
	Interval time.Duration
	Caller   string
}

type RpcConfig struct {
	HttpPort int
}

type PrometheusConfig struct {
	Enabled bool
	Port    int
}

type DataDogConfig struct {
	StatsdConfig  StatsdConfig
	EnableTracing bool
}

type StatsdConfig struct {
	Enabled bool
	Url     string
}

type Config struct {
	Debug             bool
	DatabaseConfig    DatabaseConfig
	SqliteConfig      SqliteConfig
	ClockConfig       ClockConfig
	EscrowConfig      EscrowConfig
	DistributorConfig DistributorConfig
	KeeperConfig      KeeperConfig
	RpcConfig         RpcConfig
	PrometheusConfig  PrometheusConfig
	DataDogConfig     DataDogConfig
}

var (
	Debug = "debug"

	DatabaseDriverName  = "database.driver"
	DatabaseHost        = "database.host"
	DatabasePort        = "database.port"
	DatabaseUser        = "database.user"
	DatabasePassword    = "database.password"
	DatabaseDbName      = "database.db_name"
	DatabaseSchemaName  = "database.schema_name"
	DatabaseSSLMode     = "database.ssl_mode"
	DatabaseSSLCert     = "database.ssl_cert"
	DatabaseSSLKey      = "database.ssl_key"
	DatabaseSSLRootCert = "database.ssl_root_cert"

	DatabaseCreateIfNotExists = "database.create_if_not_exists"

	SqliteInMemory   = "sqlite.in_memory"
	SqliteDbFilePath = "sqlite.db_file_path"

	ClockModeName      = "clock.mode"
	ClockGenesisTime   = "clock.genesis_timestamp"
	ClockGenesisBlock  = "clock.genesis_block"
	ClockBlockInterval = "clock.block_interval"

	EscrowOwner              = "escrow.owner"
	EscrowTokenAddress       = "escrow.token_address"
	EscrowAddress            = "escrow.address"
	EscrowMaxLock            = "escrow.max_lock"
	EscrowMaxCheckpointWeeks = "escrow.max_checkpoint_weeks"

	DistributorAddresses          = "distributor.addresses"
	DistributorTokenAddress       = "distributor.token_address"
	DistributorEmergencyReturn    = "distributor.emergency_return"
	DistributorCanCheckpointToken = "distributor.can_checkpoint_token"

	KeeperEnabled  = "keeper.enabled"
	KeeperInterval = "keeper.interval"
	KeeperCaller   = "keeper.caller"

	RpcHttpPort = "rpc.http_port"

	PrometheusEnabled = "prometheus.enabled"
	PrometheusPort    = "prometheus.port"

	DataDogStatsdEnabled = "datadog.statsd.enabled"
	DataDogStatsdUrl     = "datadog.statsd.url"
	DataDogEnableTracing = "datadog.enable_tracing"
)

const (
	DefaultMaxLock            = 365 * 24 * time.Hour
	DefaultMaxCheckpointWeeks = uint64(255)
	DefaultBlockInterval      = 12 * time.Second
	DefaultSqliteDbFilePath   = "./ve-rewards.db"
)

func NewConfig() *Config {
	maxLock := viper.GetDuration(normalizeFlagName(EscrowMaxLock))
	if maxLock == 0 {
		maxLock = DefaultMaxLock
	}
	maxWeeks := viper.GetUint64(normalizeFlagName(EscrowMaxCheckpointWeeks))
	if maxWeeks == 0 {
		maxWeeks = DefaultMaxCheckpointWeeks
	}
	blockInterval := viper.GetDuration(normalizeFlagName(ClockBlockInterval))
	if blockInterval == 0 {
		blockInterval = DefaultBlockInterval
	}
	driver, err := ParseDatabaseDriver(viper.GetString(normalizeFlagName(DatabaseDriverName)))
	if err != nil {
		driver = DatabaseDriver_Sqlite
	}
	sqlitePath := viper.GetString(normalizeFlagName(SqliteDbFilePath))
	if sqlitePath == "" {
		sqlitePath = DefaultSqliteDbFilePath
	}
	clockMode := ClockMode(viper.GetString(normalizeFlagName(ClockModeName)))
	if clockMode == "" {
		clockMode = ClockMode_Wall
	}

	return &Config{
		Debug: viper.GetBool(normalizeFlagName(Debug)),

		DatabaseConfig: DatabaseConfig{
			Driver:      driver,
			Host:        viper.GetString(normalizeFlagName(DatabaseHost)),
			Port:        viper.GetInt(normalizeFlagName(DatabasePort)),
			User:        viper.GetString(normalizeFlagName(DatabaseUser)),
			Password:    viper.GetString(normalizeFlagName(DatabasePassword)),
			DbName:      viper.GetString(normalizeFlagName(DatabaseDbName)),
			SchemaName:  viper.GetString(normalizeFlagName(DatabaseSchemaName)),
			SSLMode:     viper.GetString(normalizeFlagName(DatabaseSSLMode)),
			SSLCert:     viper.GetString(normalizeFlagName(DatabaseSSLCert)),
			SSLKey:      viper.GetString(normalizeFlagName(DatabaseSSLKey)),
			SSLRootCert: viper.GetString(normalizeFlagName(DatabaseSSLRootCert)),

			CreateIfNotExists: viper.GetBool(normalizeFlagName(DatabaseCreateIfNotExists)),
		},

		SqliteConfig: SqliteConfig{
			InMemory:   viper.GetBool(normalizeFlagName(SqliteInMemory)),
			DbFilePath: sqlitePath,
		},

		ClockConfig: ClockConfig{
			Mode:             clockMode,
			GenesisTimestamp: viper.GetUint64(normalizeFlagName(ClockGenesisTime)),
			GenesisBlock:     viper.GetUint64(normalizeFlagName(ClockGenesisBlock)),
			BlockInterval:    blockInterval,
		},

		EscrowConfig: EscrowConfig{
			Owner:              viper.GetString(normalizeFlagName(EscrowOwner)),
			TokenAddress:       viper.GetString(normalizeFlagName(EscrowTokenAddress)),
			EscrowAddress:      viper.GetString(normalizeFlagName(EscrowAddress)),
			MaxLock:            maxLock,
			MaxCheckpointWeeks: maxWeeks,
		},

		DistributorConfig: DistributorConfig{
			Addresses:          parseStringAsList(viper.GetString(normalizeFlagName(DistributorAddresses))),
			TokenAddress:       viper.GetString(normalizeFlagName(DistributorTokenAddress)),
			EmergencyReturn:    viper.GetString(normalizeFlagName(DistributorEmergencyReturn)),
			CanCheckpointToken: viper.GetBool(normalizeFlagName(DistributorCanCheckpointToken)),
		},

		KeeperConfig: KeeperConfig{
			Enabled:  viper.GetBool(normalizeFlagName(KeeperEnabled)),
			Interval: viper.GetDuration(normalizeFlagName(KeeperInterval)),
			Caller:   viper.GetString(normalizeFlagName(KeeperCaller)),
		},

		RpcConfig: RpcConfig{
			HttpPort: viper.GetInt(normalizeFlagName(RpcHttpPort)),
		},

		PrometheusConfig: PrometheusConfig{
			Enabled: viper.GetBool(normalizeFlagName(PrometheusEnabled)),
			Port:    viper.GetInt(normalizeFlagName(PrometheusPort)),
		},

		DataDogConfig: DataDogConfig{
			StatsdConfig: StatsdConfig{
				Enabled: viper.GetBool(normalizeFlagName(DataDogStatsdEnabled)),
				Url:     viper.GetString(normalizeFlagName(DataDogStatsdUrl)),
			},
			EnableTracing: viper.GetBool(normalizeFlagName(DataDogEnableTracing)),
		},
	}
}

// Validate checks the settings that every command needs before touching storage.
func (c *Config) Validate() error {
	if c.EscrowConfig.MaxLock < 7*24*time.Hour {
		return fmt.Errorf("%s must be at least one week, got %s", EscrowMaxLock, c.EscrowConfig.MaxLock)
	}
	if c.ClockConfig.Mode != ClockMode_Wall && c.ClockConfig.Mode != ClockMode_Manual {
		return fmt.Errorf("unsupported clock mode '%s'", c.ClockConfig.Mode)
	}
	if c.DatabaseConfig.Driver == DatabaseDriver_Sqlite && !c.SqliteConfig.InMemory && c.SqliteConfig.DbFilePath == "" {
		return fmt.Errorf("%s is required when not running in memory", SqliteDbFilePath)
	}
	return nil
}

func (c *Config) IsKeeperEnabled() bool {
	return c.KeeperConfig.Enabled && c.KeeperConfig.Interval > 0
}

func parseStringAsList(envVar string) []string {
	if envVar == "" {
		return []string{}
	}
	// split on commas
	stringList := strings.Split(envVar, ",")

	l := make([]string, 0)
	for _, s := range stringList {
		s = strings.TrimSpace(s)
		if s != "" {
			l = append(l, s)
		}
	}
	return l
}

func KebabToSnakeCase(str string) string {
	return strings.ReplaceAll(str, "-", "_")
}

func normalizeFlagName(name string) string {
	return KebabToSnakeCase(name)
}
