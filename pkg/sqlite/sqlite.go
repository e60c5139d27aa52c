package sqlite

import (
	"database/sql"
	"fmt"
	"math/big"
	"regexp"
	"sync"

	goSqlite "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SumBigNumbers is a sqlite aggregate that sums base-10 integer strings without losing precision.
type SumBigNumbers struct {
	total *big.Int
}

func NewSumBigNumbers() *SumBigNumbers {
	return &SumBigNumbers{total: big.NewInt(0)}
}

func (s *SumBigNumbers) Step(value any) {
	str, ok := value.(string)
	if !ok {
		return
	}
	bigValue, success := new(big.Int).SetString(str, 10)
	if !success {
		return
	}
	s.total.Add(s.total, bigValue)
}

func (s *SumBigNumbers) Done() (string, error) {
	return s.total.String(), nil
}

const driverName = "sqlite3_with_extensions"

var registerOnce sync.Once

const SqliteInMemoryPath = "file::memory:?cache=shared"

func NewInMemorySqliteWithName(name string, l *zap.Logger) gorm.Dialector {
	path := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	return NewSqlite(path, l)
}

func NewSqlite(path string, l *zap.Logger) gorm.Dialector {
	registerOnce.Do(func() {
		sql.Register(driverName, &goSqlite.SQLiteDriver{
			ConnectHook: func(conn *goSqlite.SQLiteConn) error {
				if err := conn.RegisterAggregator("sum_big", NewSumBigNumbers, true); err != nil {
					l.Sugar().Errorw("Failed to register aggregator sum_big", "error", err)
					return err
				}
				return nil
			},
		})
	})

	return &sqlite.Dialector{
		DriverName: driverName,
		DSN:        path,
	}
}

func NewGormSqliteFromSqlite(sqlite gorm.Dialector) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	// https://phiresky.github.io/blog/2020/sqlite-performance-tuning/
	pragmas := []string{
		`PRAGMA foreign_keys = ON;`,
		`PRAGMA journal_mode = WAL;`,
		`PRAGMA synchronous = normal;`,
		`PRAGMA busy_timeout = 5000;`,
	}

	for _, pragma := range pragmas {
		res := db.Exec(pragma)
		if res.Error != nil {
			return nil, res.Error
		}
	}

	// sqlite only allows a single writer; funnel everything through one connection
	rawDb, err := db.DB()
	if err != nil {
		return nil, err
	}
	rawDb.SetMaxOpenConns(1)

	return db, nil
}

func IsDuplicateKeyError(err error) bool {
	if err == nil {
		return false
	}
	r := regexp.MustCompile(`UNIQUE constraint failed`)

	return r.MatchString(err.Error())
}
