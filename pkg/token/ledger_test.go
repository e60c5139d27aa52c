package token

import (
	"errors"
	"math/big"
	"testing"

	"github.com/Layr-Labs/ve-rewards/internal/tests"
	"github.com/Layr-Labs/ve-rewards/pkg/reverts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	tokenAddress = common.HexToAddress("0x00000000000000000000000000000000000000aa")
	alice        = common.HexToAddress("0x0000000000000000000000000000000000000a11")
	bob          = common.HexToAddress("0x0000000000000000000000000000000000000b0b")
	spender      = common.HexToAddress("0x0000000000000000000000000000000000005e4d")
)

func setup(t *testing.T) (*Ledger, *gorm.DB) {
	l := zap.NewNop()
	grm, err := tests.GetMigratedSqliteDatabase(tests.GetConfig(), l)
	if err != nil {
		t.Fatal(err)
	}
	return NewLedger(grm, l), grm
}

func Test_Ledger(t *testing.T) {
	ledger, grm := setup(t)

	t.Run("Should mint and read balances", func(t *testing.T) {
		err := ledger.Mint(tokenAddress, alice, big.NewInt(1000))
		assert.Nil(t, err)

		balance, err := ledger.BalanceOf(tokenAddress, alice)
		assert.Nil(t, err)
		assert.Equal(t, int64(1000), balance.Int64())

		balance, err = ledger.BalanceOf(tokenAddress, bob)
		assert.Nil(t, err)
		assert.Equal(t, int64(0), balance.Int64())
	})
	t.Run("Should transfer between holders", func(t *testing.T) {
		err := ledger.Transfer(tokenAddress, alice, bob, big.NewInt(250))
		assert.Nil(t, err)

		a, _ := ledger.BalanceOf(tokenAddress, alice)
		b, _ := ledger.BalanceOf(tokenAddress, bob)
		assert.Equal(t, int64(750), a.Int64())
		assert.Equal(t, int64(250), b.Int64())
	})
	t.Run("Should reject transfers above balance", func(t *testing.T) {
		err := ledger.Transfer(tokenAddress, bob, alice, big.NewInt(251))
		assert.True(t, errors.Is(err, reverts.ErrExternalTransfer))
		assert.True(t, errors.Is(err, ErrInsufficientBalance))

		b, _ := ledger.BalanceOf(tokenAddress, bob)
		assert.Equal(t, int64(250), b.Int64())
	})
	t.Run("Should pull funds only within the allowance", func(t *testing.T) {
		err := ledger.TransferFrom(tokenAddress, spender, alice, bob, big.NewInt(10))
		assert.True(t, errors.Is(err, ErrInsufficientAllowance))

		assert.Nil(t, ledger.Approve(tokenAddress, alice, spender, big.NewInt(100)))
		err = ledger.TransferFrom(tokenAddress, spender, alice, bob, big.NewInt(60))
		assert.Nil(t, err)

		allowance, _ := ledger.Allowance(tokenAddress, alice, spender)
		assert.Equal(t, int64(40), allowance.Int64())
		b, _ := ledger.BalanceOf(tokenAddress, bob)
		assert.Equal(t, int64(310), b.Int64())
	})
	t.Run("Should roll back every write of a failed transaction", func(t *testing.T) {
		err := grm.Transaction(func(tx *gorm.DB) error {
			txLedger := ledger.WithTx(tx)
			if err := txLedger.Transfer(tokenAddress, alice, bob, big.NewInt(1)); err != nil {
				return err
			}
			return txLedger.Transfer(tokenAddress, alice, bob, big.NewInt(1_000_000))
		})
		assert.NotNil(t, err)

		a, _ := ledger.BalanceOf(tokenAddress, alice)
		assert.Equal(t, int64(690), a.Int64())
	})
	t.Run("Should reject negative amounts", func(t *testing.T) {
		err := ledger.Transfer(tokenAddress, alice, bob, big.NewInt(-1))
		assert.True(t, errors.Is(err, ErrInvalidAmount))
	})
}
