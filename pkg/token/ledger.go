// Package token keeps balances and allowances for fungible tokens identified by address.
// It stands in for the external token contracts the escrow and distributors move funds through.
package token

import (
	"errors"
	"math/big"

	"github.com/Layr-Labs/ve-rewards/pkg/reverts"
	"github.com/Layr-Labs/ve-rewards/pkg/types/numbers"
	"github.com/Layr-Labs/ve-rewards/pkg/utils"
	"github.com/ethereum/go-ethereum/common"
	pkgErrors "github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrInsufficientBalance   = errors.New("insufficient balance")
	ErrInsufficientAllowance = errors.New("insufficient allowance")
	ErrInvalidAmount         = errors.New("invalid amount")
)

type TokenBalance struct {
	Token   string `gorm:"primaryKey"`
	Holder  string `gorm:"primaryKey"`
	Balance string `gorm:"type:text;not null"`
}

func (TokenBalance) TableName() string { return "token_balances" }

type TokenAllowance struct {
	Token   string `gorm:"primaryKey"`
	Owner   string `gorm:"primaryKey"`
	Spender string `gorm:"primaryKey"`
	Amount  string `gorm:"type:text;not null"`
}

func (TokenAllowance) TableName() string { return "token_allowances" }

type Ledger struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewLedger(db *gorm.DB, l *zap.Logger) *Ledger {
	return &Ledger{
		db:     db,
		logger: l,
	}
}

// WithTx returns a ledger whose reads and writes happen inside tx.
func (l *Ledger) WithTx(tx *gorm.DB) *Ledger {
	return &Ledger{
		db:     tx,
		logger: l.logger,
	}
}

func checkAmount(amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return reverts.ExternalTransfer(ErrInvalidAmount, "amount must be non-negative")
	}
	return nil
}

func readBalance(tx *gorm.DB, token common.Address, holder common.Address) (*big.Int, error) {
	var row TokenBalance
	res := tx.Model(&TokenBalance{}).
		Where("token = ? and holder = ?", utils.AddressKey(token), utils.AddressKey(holder)).
		Limit(1).
		Find(&row)
	if res.Error != nil {
		return nil, pkgErrors.Wrap(res.Error, "failed to read token balance")
	}
	if res.RowsAffected == 0 {
		return big.NewInt(0), nil
	}
	return numbers.ParseBig(row.Balance)
}

func writeBalance(tx *gorm.DB, token common.Address, holder common.Address, balance *big.Int) error {
	row := &TokenBalance{
		Token:   utils.AddressKey(token),
		Holder:  utils.AddressKey(holder),
		Balance: balance.String(),
	}
	res := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(row)
	if res.Error != nil {
		return pkgErrors.Wrap(res.Error, "failed to write token balance")
	}
	return nil
}

func readAllowance(tx *gorm.DB, token common.Address, owner common.Address, spender common.Address) (*big.Int, error) {
	var row TokenAllowance
	res := tx.Model(&TokenAllowance{}).
		Where("token = ? and owner = ? and spender = ?", utils.AddressKey(token), utils.AddressKey(owner), utils.AddressKey(spender)).
		Limit(1).
		Find(&row)
	if res.Error != nil {
		return nil, pkgErrors.Wrap(res.Error, "failed to read token allowance")
	}
	if res.RowsAffected == 0 {
		return big.NewInt(0), nil
	}
	return numbers.ParseBig(row.Amount)
}

func writeAllowance(tx *gorm.DB, token common.Address, owner common.Address, spender common.Address, amount *big.Int) error {
	row := &TokenAllowance{
		Token:   utils.AddressKey(token),
		Owner:   utils.AddressKey(owner),
		Spender: utils.AddressKey(spender),
		Amount:  amount.String(),
	}
	res := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(row)
	if res.Error != nil {
		return pkgErrors.Wrap(res.Error, "failed to write token allowance")
	}
	return nil
}

func move(tx *gorm.DB, token common.Address, from common.Address, to common.Address, amount *big.Int) error {
	fromBalance, err := readBalance(tx, token, from)
	if err != nil {
		return err
	}
	if fromBalance.Cmp(amount) < 0 {
		return reverts.ExternalTransfer(ErrInsufficientBalance, "%s holds %s, needs %s", from.Hex(), fromBalance, amount)
	}
	if err := writeBalance(tx, token, from, new(big.Int).Sub(fromBalance, amount)); err != nil {
		return err
	}
	toBalance, err := readBalance(tx, token, to)
	if err != nil {
		return err
	}
	return writeBalance(tx, token, to, new(big.Int).Add(toBalance, amount))
}

func (l *Ledger) BalanceOf(token common.Address, holder common.Address) (*big.Int, error) {
	return readBalance(l.db, token, holder)
}

func (l *Ledger) Allowance(token common.Address, owner common.Address, spender common.Address) (*big.Int, error) {
	return readAllowance(l.db, token, owner, spender)
}

// Approve replaces the amount spender may pull from owner.
func (l *Ledger) Approve(token common.Address, owner common.Address, spender common.Address, amount *big.Int) error {
	if err := checkAmount(amount); err != nil {
		return err
	}
	return writeAllowance(l.db, token, owner, spender, amount)
}

func (l *Ledger) Transfer(token common.Address, from common.Address, to common.Address, amount *big.Int) error {
	if err := checkAmount(amount); err != nil {
		return err
	}
	if amount.Sign() == 0 {
		return nil
	}
	err := l.db.Transaction(func(tx *gorm.DB) error {
		return move(tx, token, from, to, amount)
	})
	if err != nil {
		return err
	}
	l.logger.Sugar().Debugw("Token transfer",
		zap.String("token", token.Hex()),
		zap.String("from", from.Hex()),
		zap.String("to", to.Hex()),
		zap.String("amount", amount.String()),
	)
	return nil
}

// TransferFrom moves amount from owner to recipient on behalf of spender, consuming allowance.
func (l *Ledger) TransferFrom(token common.Address, spender common.Address, from common.Address, to common.Address, amount *big.Int) error {
	if err := checkAmount(amount); err != nil {
		return err
	}
	if amount.Sign() == 0 {
		return nil
	}
	return l.db.Transaction(func(tx *gorm.DB) error {
		allowance, err := readAllowance(tx, token, from, spender)
		if err != nil {
			return err
		}
		if allowance.Cmp(amount) < 0 {
			return reverts.ExternalTransfer(ErrInsufficientAllowance, "%s allows %s, needs %s", from.Hex(), allowance, amount)
		}
		if err := writeAllowance(tx, token, from, spender, new(big.Int).Sub(allowance, amount)); err != nil {
			return err
		}
		return move(tx, token, from, to, amount)
	})
}

// Mint credits amount to holder out of thin air. Only used to seed balances.
func (l *Ledger) Mint(token common.Address, holder common.Address, amount *big.Int) error {
	if err := checkAmount(amount); err != nil {
		return err
	}
	return l.db.Transaction(func(tx *gorm.DB) error {
		balance, err := readBalance(tx, token, holder)
		if err != nil {
			return err
		}
		return writeBalance(tx, token, holder, new(big.Int).Add(balance, amount))
	})
}
