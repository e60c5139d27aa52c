package sqlite

import (
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func Test_SumBigNumbers(t *testing.T) {
	t.Run("Should sum values larger than 64 bits", func(t *testing.T) {
		s := NewSumBigNumbers()
		s.Step("340282366920938463463374607431768211455")
		s.Step("1")
		s.Step("not-a-number")

		total, err := s.Done()
		assert.Nil(t, err)
		assert.Equal(t, "340282366920938463463374607431768211456", total)
	})
	t.Run("Should aggregate through sql", func(t *testing.T) {
		db, err := NewGormSqliteFromSqlite(NewInMemorySqliteWithName(uuid.NewString(), zap.NewNop()))
		assert.Nil(t, err)

		res := db.Exec(`create table amounts (amount text not null)`)
		assert.Nil(t, res.Error)
		for _, a := range []string{"18446744073709551616", "18446744073709551616", "5"} {
			res = db.Exec(`insert into amounts (amount) values (?)`, a)
			assert.Nil(t, res.Error)
		}

		var total string
		res = db.Raw(`select sum_big(amount) from amounts`).Scan(&total)
		assert.Nil(t, res.Error)
		assert.Equal(t, "36893488147419103237", total)
	})
}

func Test_IsDuplicateKeyError(t *testing.T) {
	assert.True(t, IsDuplicateKeyError(fmt.Errorf("insert: %w", errors.New("UNIQUE constraint failed: escrow_locks.account"))))
	assert.False(t, IsDuplicateKeyError(errors.New("database is locked")))
	assert.False(t, IsDuplicateKeyError(nil))
}
