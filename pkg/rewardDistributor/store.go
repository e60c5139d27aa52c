package rewardDistributor

import (
	"math/big"

	"github.com/Layr-Labs/ve-rewards/pkg/types/numbers"
	"github.com/Layr-Labs/ve-rewards/pkg/utils"
	"github.com/ethereum/go-ethereum/common"
	pkgErrors "github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type store struct {
	db      *gorm.DB
	address string
}

func newStore(db *gorm.DB, address common.Address) *store {
	return &store{db: db, address: utils.AddressKey(address)}
}

func upsert(db *gorm.DB, value any) error {
	return db.Clauses(clause.OnConflict{UpdateAll: true}).Create(value).Error
}

func (s *store) exists() (bool, error) {
	var count int64
	res := s.db.Model(&settingsRecord{}).Where("address = ?", s.address).Count(&count)
	if res.Error != nil {
		return false, pkgErrors.Wrap(res.Error, "failed to look up distributor")
	}
	return count > 0, nil
}

func (s *store) settings(forUpdate bool) (*Settings, error) {
	q := s.db.Model(&settingsRecord{}).Where("address = ?", s.address)
	if forUpdate {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var row settingsRecord
	res := q.Limit(1).Find(&row)
	if res.Error != nil {
		return nil, pkgErrors.Wrap(res.Error, "failed to load distributor settings")
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotDeployed
	}
	balance, err := numbers.ParseBig(row.LastTokenBalance)
	if err != nil {
		return nil, err
	}
	return &Settings{
		Address:            common.HexToAddress(row.Address),
		Owner:              common.HexToAddress(row.Owner),
		TokenAddress:       common.HexToAddress(row.TokenAddress),
		EmergencyReturn:    common.HexToAddress(row.EmergencyReturn),
		StartWeekCursor:    row.StartWeekCursor,
		WeekCursor:         row.WeekCursor,
		LastTokenTimestamp: row.LastTokenTimestamp,
		LastTokenBalance:   balance,
		CanCheckpointToken: row.CanCheckpointToken,
		Killed:             row.Killed,
	}, nil
}

func (s *store) saveSettings(settings *Settings) error {
	row := &settingsRecord{
		Address:            s.address,
		Owner:              utils.AddressKey(settings.Owner),
		TokenAddress:       utils.AddressKey(settings.TokenAddress),
		StartWeekCursor:    settings.StartWeekCursor,
		WeekCursor:         settings.WeekCursor,
		LastTokenTimestamp: settings.LastTokenTimestamp,
		LastTokenBalance:   settings.LastTokenBalance.String(),
		CanCheckpointToken: settings.CanCheckpointToken,
		Killed:             settings.Killed,
		EmergencyReturn:    utils.AddressKey(settings.EmergencyReturn),
	}
	if err := upsert(s.db, row); err != nil {
		return pkgErrors.Wrap(err, "failed to save distributor settings")
	}
	return nil
}

func (s *store) tokensPerWeek(week uint64) (*big.Int, error) {
	var row tokensPerWeekRecord
	res := s.db.Model(&tokensPerWeekRecord{}).
		Where("distributor = ? and week = ?", s.address, week).
		Limit(1).
		Find(&row)
	if res.Error != nil {
		return nil, pkgErrors.Wrap(res.Error, "failed to load tokens per week")
	}
	if res.RowsAffected == 0 {
		return big.NewInt(0), nil
	}
	return numbers.ParseBig(row.Amount)
}

func (s *store) addTokensPerWeek(week uint64, amount *big.Int) error {
	if amount.Sign() == 0 {
		return nil
	}
	current, err := s.tokensPerWeek(week)
	if err != nil {
		return err
	}
	row := &tokensPerWeekRecord{
		Distributor: s.address,
		Week:        week,
		Amount:      current.Add(current, amount).String(),
	}
	if err := upsert(s.db, row); err != nil {
		return pkgErrors.Wrap(err, "failed to save tokens per week")
	}
	return nil
}

func (s *store) totalSupplyAt(week uint64) (*big.Int, error) {
	var row supplyRecord
	res := s.db.Model(&supplyRecord{}).
		Where("distributor = ? and week = ?", s.address, week).
		Limit(1).
		Find(&row)
	if res.Error != nil {
		return nil, pkgErrors.Wrap(res.Error, "failed to load total supply")
	}
	if res.RowsAffected == 0 {
		return big.NewInt(0), nil
	}
	return numbers.ParseBig(row.TotalSupply)
}

func (s *store) saveTotalSupply(week uint64, supply *big.Int) error {
	row := &supplyRecord{Distributor: s.address, Week: week, TotalSupply: supply.String()}
	if err := upsert(s.db, row); err != nil {
		return pkgErrors.Wrap(err, "failed to save total supply")
	}
	return nil
}

// weekBuckets lists the weeks in [from, to) that have either tokens or a cached supply.
func (s *store) weekBuckets(from uint64, to uint64) ([]*WeekBucket, error) {
	type bucketRow struct {
		Week        uint64
		Amount      *string
		TotalSupply *string
	}
	rows := make([]bucketRow, 0)
	query := `
		select w.week as week, t.amount as amount, s.total_supply as total_supply
		from (
			select week from distributor_tokens_per_week where distributor = @distributor and week >= @from and week < @to
			union
			select week from distributor_supply where distributor = @distributor and week >= @from and week < @to
		) as w
		left join distributor_tokens_per_week as t on t.distributor = @distributor and t.week = w.week
		left join distributor_supply as s on s.distributor = @distributor and s.week = w.week
		order by w.week asc
	`
	res := s.db.Raw(query, map[string]any{"distributor": s.address, "from": from, "to": to}).Scan(&rows)
	if res.Error != nil {
		return nil, pkgErrors.Wrap(res.Error, "failed to list week buckets")
	}
	buckets := make([]*WeekBucket, 0, len(rows))
	for _, r := range rows {
		b := &WeekBucket{Week: r.Week, Tokens: big.NewInt(0), TotalSupply: big.NewInt(0)}
		if r.Amount != nil {
			v, err := numbers.ParseBig(*r.Amount)
			if err != nil {
				return nil, err
			}
			b.Tokens = v
		}
		if r.TotalSupply != nil {
			v, err := numbers.ParseBig(*r.TotalSupply)
			if err != nil {
				return nil, err
			}
			b.TotalSupply = v
		}
		buckets = append(buckets, b)
	}
	return buckets, nil
}

func (s *store) accountCursor(account common.Address) (uint64, bool, error) {
	var row accountCursorRecord
	res := s.db.Model(&accountCursorRecord{}).
		Where("distributor = ? and account = ?", s.address, utils.AddressKey(account)).
		Limit(1).
		Find(&row)
	if res.Error != nil {
		return 0, false, pkgErrors.Wrap(res.Error, "failed to load account cursor")
	}
	return row.WeekCursor, res.RowsAffected > 0, nil
}

func (s *store) saveAccountCursor(account common.Address, cursor uint64) error {
	row := &accountCursorRecord{Distributor: s.address, Account: utils.AddressKey(account), WeekCursor: cursor}
	if err := upsert(s.db, row); err != nil {
		return pkgErrors.Wrap(err, "failed to save account cursor")
	}
	return nil
}

func (s *store) isCheckpointCaller(address common.Address) (bool, error) {
	var count int64
	res := s.db.Model(&checkpointCallerRecord{}).
		Where("distributor = ? and address = ?", s.address, utils.AddressKey(address)).
		Count(&count)
	if res.Error != nil {
		return false, pkgErrors.Wrap(res.Error, "failed to check checkpoint callers")
	}
	return count > 0, nil
}

func (s *store) setCheckpointCallers(addresses []common.Address, allowed bool) error {
	for _, a := range addresses {
		row := &checkpointCallerRecord{Distributor: s.address, Address: utils.AddressKey(a)}
		var res *gorm.DB
		if allowed {
			res = s.db.Clauses(clause.OnConflict{DoNothing: true}).Create(row)
		} else {
			res = s.db.Where("distributor = ? and address = ?", row.Distributor, row.Address).Delete(&checkpointCallerRecord{})
		}
		if res.Error != nil {
			return pkgErrors.Wrap(res.Error, "failed to update checkpoint callers")
		}
	}
	return nil
}

func (s *store) insertEvent(e *DistributorEvent) error {
	if err := s.db.Create(e).Error; err != nil {
		return pkgErrors.Wrap(err, "failed to insert distributor event")
	}
	return nil
}

func (s *store) events(account string, limit int) ([]*DistributorEvent, error) {
	out := make([]*DistributorEvent, 0)
	q := s.db.Model(&DistributorEvent{}).Where("distributor = ?", s.address).Order("id desc").Limit(limit)
	if account != "" {
		q = q.Where("account = ?", account)
	}
	if res := q.Find(&out); res.Error != nil {
		return nil, pkgErrors.Wrap(res.Error, "failed to list distributor events")
	}
	return out, nil
}

// ListDistributors returns the address of every deployed distributor.
func ListDistributors(db *gorm.DB) ([]common.Address, error) {
	rows := make([]settingsRecord, 0)
	if res := db.Model(&settingsRecord{}).Order("address asc").Find(&rows); res.Error != nil {
		return nil, pkgErrors.Wrap(res.Error, "failed to list distributors")
	}
	return utils.Map(rows, func(r settingsRecord, i uint64) common.Address {
		return common.HexToAddress(r.Address)
	}), nil
}
