package lockEscrow

type lockRecord struct {
	Account string `gorm:"primaryKey"`
	Amount  string `gorm:"type:text;not null"`
	End     uint64 `gorm:"column:lock_end;not null"`
}

func (lockRecord) TableName() string { return "escrow_locks" }

type globalPointRecord struct {
	Epoch       uint64 `gorm:"primaryKey;autoIncrement:false"`
	Bias        string `gorm:"type:text;not null"`
	Slope       string `gorm:"type:text;not null"`
	Timestamp   uint64 `gorm:"not null"`
	BlockNumber uint64 `gorm:"not null"`
}

func (globalPointRecord) TableName() string { return "escrow_global_points" }

type accountPointRecord struct {
	Account     string `gorm:"primaryKey"`
	Epoch       uint64 `gorm:"primaryKey;autoIncrement:false"`
	Bias        string `gorm:"type:text;not null"`
	Slope       string `gorm:"type:text;not null"`
	Timestamp   uint64 `gorm:"not null"`
	BlockNumber uint64 `gorm:"not null"`
}

func (accountPointRecord) TableName() string { return "escrow_account_points" }

type slopeChangeRecord struct {
	Week       uint64 `gorm:"primaryKey;autoIncrement:false"`
	SlopeDelta string `gorm:"type:text;not null"`
}

func (slopeChangeRecord) TableName() string { return "escrow_slope_changes" }

// settingsRecord is the single row holding escrow wide state.
type settingsRecord struct {
	Id                   uint64 `gorm:"primaryKey;autoIncrement:false"`
	Owner                string `gorm:"not null"`
	TokenAddress         string `gorm:"not null"`
	EscrowAddress        string `gorm:"not null"`
	MaxLock              uint64 `gorm:"not null"`
	Breaker              bool   `gorm:"not null"`
	PenaltyBpsPerWeek    uint64 `gorm:"not null"`
	TreasuryShareBps     uint64 `gorm:"not null"`
	Treasury             string
	RedistributionTarget string
	RedistributionPool   string `gorm:"type:text;not null"`
	Epoch                uint64 `gorm:"not null"`
	LockedSupply         string `gorm:"type:text;not null"`
}

func (settingsRecord) TableName() string { return "escrow_settings" }

const settingsRowId = uint64(1)

type whitelistRecord struct {
	Kind    string `gorm:"primaryKey"`
	Address string `gorm:"primaryKey"`
}

func (whitelistRecord) TableName() string { return "escrow_whitelists" }

// EscrowEvent is the indexing record written for every committed mutating call.
type EscrowEvent struct {
	Id           uint64 `gorm:"primaryKey" json:"-"`
	EventId      string `gorm:"uniqueIndex;not null" json:"eventId"`
	Action       string `gorm:"not null" json:"action"`
	Account      string `json:"account"`
	Amount       string `gorm:"type:text" json:"amount"`
	LockEnd      uint64 `json:"lockEnd"`
	VotingSupply string `gorm:"type:text" json:"votingSupply"`
	LockedSupply string `gorm:"type:text" json:"lockedSupply"`
	Penalty      string `gorm:"type:text" json:"penalty"`
	Timestamp    uint64 `json:"timestamp"`
	BlockNumber  uint64 `json:"blockNumber"`
}

func (EscrowEvent) TableName() string { return "escrow_events" }
