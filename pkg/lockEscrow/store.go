package lockEscrow

import (
	"database/sql"
	"errors"
	"math/big"

	"github.com/Layr-Labs/ve-rewards/pkg/types/numbers"
	"github.com/Layr-Labs/ve-rewards/pkg/utils"
	"github.com/ethereum/go-ethereum/common"
	pkgErrors "github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var errNotInitialized = errors.New("escrow has not been initialized")

// store wraps every read and write the escrow makes against one gorm handle.
type store struct {
	db *gorm.DB
}

func newStore(db *gorm.DB) *store {
	return &store{db: db}
}

func upsert(db *gorm.DB, value any) error {
	return db.Clauses(clause.OnConflict{UpdateAll: true}).Create(value).Error
}

func parsePoint(bias string, slope string, ts uint64, block uint64) (*Point, error) {
	b, err := numbers.ParseBig(bias)
	if err != nil {
		return nil, err
	}
	s, err := numbers.ParseBig(slope)
	if err != nil {
		return nil, err
	}
	return &Point{Bias: b, Slope: s, Timestamp: ts, BlockNumber: block}, nil
}

func (s *store) settings(forUpdate bool) (*Settings, error) {
	q := s.db.Model(&settingsRecord{}).Where("id = ?", settingsRowId)
	if forUpdate {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var row settingsRecord
	res := q.Limit(1).Find(&row)
	if res.Error != nil {
		return nil, pkgErrors.Wrap(res.Error, "failed to load escrow settings")
	}
	if res.RowsAffected == 0 {
		return nil, errNotInitialized
	}
	pool, err := numbers.ParseBig(row.RedistributionPool)
	if err != nil {
		return nil, err
	}
	locked, err := numbers.ParseBig(row.LockedSupply)
	if err != nil {
		return nil, err
	}
	return &Settings{
		Owner:                common.HexToAddress(row.Owner),
		TokenAddress:         common.HexToAddress(row.TokenAddress),
		EscrowAddress:        common.HexToAddress(row.EscrowAddress),
		MaxLock:              row.MaxLock,
		Breaker:              row.Breaker,
		PenaltyBpsPerWeek:    row.PenaltyBpsPerWeek,
		TreasuryShareBps:     row.TreasuryShareBps,
		Treasury:             common.HexToAddress(row.Treasury),
		RedistributionTarget: common.HexToAddress(row.RedistributionTarget),
		RedistributionPool:   pool,
		Epoch:                row.Epoch,
		LockedSupply:         locked,
	}, nil
}

func (s *store) saveSettings(settings *Settings) error {
	row := &settingsRecord{
		Id:                   settingsRowId,
		Owner:                utils.AddressKey(settings.Owner),
		TokenAddress:         utils.AddressKey(settings.TokenAddress),
		EscrowAddress:        utils.AddressKey(settings.EscrowAddress),
		MaxLock:              settings.MaxLock,
		Breaker:              settings.Breaker,
		PenaltyBpsPerWeek:    settings.PenaltyBpsPerWeek,
		TreasuryShareBps:     settings.TreasuryShareBps,
		Treasury:             utils.AddressKey(settings.Treasury),
		RedistributionTarget: utils.AddressKey(settings.RedistributionTarget),
		RedistributionPool:   settings.RedistributionPool.String(),
		Epoch:                settings.Epoch,
		LockedSupply:         settings.LockedSupply.String(),
	}
	if err := upsert(s.db, row); err != nil {
		return pkgErrors.Wrap(err, "failed to save escrow settings")
	}
	return nil
}

func (s *store) lock(account common.Address) (*Lock, error) {
	var row lockRecord
	res := s.db.Model(&lockRecord{}).Where("account = ?", utils.AddressKey(account)).Limit(1).Find(&row)
	if res.Error != nil {
		return nil, pkgErrors.Wrap(res.Error, "failed to load lock")
	}
	if res.RowsAffected == 0 {
		return emptyLock(), nil
	}
	amount, err := numbers.ParseBig(row.Amount)
	if err != nil {
		return nil, err
	}
	return &Lock{Amount: amount, End: row.End}, nil
}

func (s *store) saveLock(account common.Address, lock *Lock) error {
	row := &lockRecord{
		Account: utils.AddressKey(account),
		Amount:  lock.Amount.String(),
		End:     lock.End,
	}
	if err := upsert(s.db, row); err != nil {
		return pkgErrors.Wrap(err, "failed to save lock")
	}
	return nil
}

func (s *store) globalPoint(epoch uint64) (*Point, error) {
	var row globalPointRecord
	res := s.db.Model(&globalPointRecord{}).Where("epoch = ?", epoch).Limit(1).Find(&row)
	if res.Error != nil {
		return nil, pkgErrors.Wrapf(res.Error, "failed to load global point %d", epoch)
	}
	if res.RowsAffected == 0 {
		return nil, pkgErrors.Errorf("global point %d does not exist", epoch)
	}
	return parsePoint(row.Bias, row.Slope, row.Timestamp, row.BlockNumber)
}

func (s *store) saveGlobalPoint(epoch uint64, p *Point) error {
	row := &globalPointRecord{
		Epoch:       epoch,
		Bias:        p.Bias.String(),
		Slope:       p.Slope.String(),
		Timestamp:   p.Timestamp,
		BlockNumber: p.BlockNumber,
	}
	if err := upsert(s.db, row); err != nil {
		return pkgErrors.Wrapf(err, "failed to save global point %d", epoch)
	}
	return nil
}

// accountEpoch returns the latest epoch of the account's history, zero when it has none.
func (s *store) accountEpoch(account common.Address) (uint64, error) {
	var epoch sql.NullInt64
	err := s.db.Model(&accountPointRecord{}).
		Select("max(epoch)").
		Where("account = ?", utils.AddressKey(account)).
		Row().
		Scan(&epoch)
	if err != nil {
		return 0, pkgErrors.Wrap(err, "failed to load account epoch")
	}
	if !epoch.Valid {
		return 0, nil
	}
	return uint64(epoch.Int64), nil
}

func (s *store) accountPoint(account common.Address, epoch uint64) (*Point, error) {
	var row accountPointRecord
	res := s.db.Model(&accountPointRecord{}).
		Where("account = ? and epoch = ?", utils.AddressKey(account), epoch).
		Limit(1).
		Find(&row)
	if res.Error != nil {
		return nil, pkgErrors.Wrapf(res.Error, "failed to load account point %d", epoch)
	}
	if res.RowsAffected == 0 {
		return nil, pkgErrors.Errorf("account point %d does not exist", epoch)
	}
	return parsePoint(row.Bias, row.Slope, row.Timestamp, row.BlockNumber)
}

func (s *store) saveAccountPoint(account common.Address, epoch uint64, p *Point) error {
	row := &accountPointRecord{
		Account:     utils.AddressKey(account),
		Epoch:       epoch,
		Bias:        p.Bias.String(),
		Slope:       p.Slope.String(),
		Timestamp:   p.Timestamp,
		BlockNumber: p.BlockNumber,
	}
	if err := s.db.Create(row).Error; err != nil {
		return pkgErrors.Wrapf(err, "failed to append account point %d", epoch)
	}
	return nil
}

func (s *store) slopeChange(week uint64) (*big.Int, error) {
	var row slopeChangeRecord
	res := s.db.Model(&slopeChangeRecord{}).Where("week = ?", week).Limit(1).Find(&row)
	if res.Error != nil {
		return nil, pkgErrors.Wrapf(res.Error, "failed to load slope change for %d", week)
	}
	if res.RowsAffected == 0 {
		return big.NewInt(0), nil
	}
	return numbers.ParseBig(row.SlopeDelta)
}

func (s *store) saveSlopeChange(week uint64, delta *big.Int) error {
	row := &slopeChangeRecord{Week: week, SlopeDelta: delta.String()}
	if err := upsert(s.db, row); err != nil {
		return pkgErrors.Wrapf(err, "failed to save slope change for %d", week)
	}
	return nil
}

func (s *store) isWhitelisted(kind WhitelistKind, address common.Address) (bool, error) {
	var count int64
	res := s.db.Model(&whitelistRecord{}).
		Where("kind = ? and address = ?", string(kind), utils.AddressKey(address)).
		Count(&count)
	if res.Error != nil {
		return false, pkgErrors.Wrap(res.Error, "failed to check whitelist")
	}
	return count > 0, nil
}

func (s *store) setWhitelisted(kind WhitelistKind, addresses []common.Address, allowed bool) error {
	for _, a := range addresses {
		row := &whitelistRecord{Kind: string(kind), Address: utils.AddressKey(a)}
		var res *gorm.DB
		if allowed {
			res = s.db.Clauses(clause.OnConflict{DoNothing: true}).Create(row)
		} else {
			res = s.db.Where("kind = ? and address = ?", row.Kind, row.Address).Delete(&whitelistRecord{})
		}
		if res.Error != nil {
			return pkgErrors.Wrap(res.Error, "failed to update whitelist")
		}
	}
	return nil
}

func (s *store) whitelisted(kind WhitelistKind) ([]common.Address, error) {
	rows := make([]whitelistRecord, 0)
	res := s.db.Model(&whitelistRecord{}).Where("kind = ?", string(kind)).Order("address asc").Find(&rows)
	if res.Error != nil {
		return nil, pkgErrors.Wrap(res.Error, "failed to list whitelist")
	}
	return utils.Map(rows, func(r whitelistRecord, i uint64) common.Address {
		return common.HexToAddress(r.Address)
	}), nil
}

func (s *store) insertEvent(e *EscrowEvent) error {
	if err := s.db.Create(e).Error; err != nil {
		return pkgErrors.Wrap(err, "failed to insert escrow event")
	}
	return nil
}

func (s *store) events(account string, limit int) ([]*EscrowEvent, error) {
	out := make([]*EscrowEvent, 0)
	q := s.db.Model(&EscrowEvent{}).Order("id desc").Limit(limit)
	if account != "" {
		q = q.Where("account = ?", account)
	}
	if res := q.Find(&out); res.Error != nil {
		return nil, pkgErrors.Wrap(res.Error, "failed to list escrow events")
	}
	return out, nil
}

// lockedAmountSum totals every lock amount in the database without going through the running counter.
func (s *store) lockedAmountSum() (*big.Int, error) {
	var query string
	switch s.db.Dialector.Name() {
	case "postgres":
		query = `select coalesce(sum(amount::numeric), 0)::text from escrow_locks`
	default:
		query = `select sum_big(amount) from escrow_locks`
	}
	var total sql.NullString
	if err := s.db.Raw(query).Row().Scan(&total); err != nil {
		return nil, pkgErrors.Wrap(err, "failed to sum lock amounts")
	}
	if !total.Valid {
		return big.NewInt(0), nil
	}
	return numbers.ParseBig(total.String)
}
