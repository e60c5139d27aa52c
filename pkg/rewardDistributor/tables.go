package rewardDistributor

type settingsRecord struct {
	Address            string `gorm:"primaryKey"`
	Owner              string `gorm:"not null"`
	TokenAddress       string `gorm:"not null"`
	StartWeekCursor    uint64 `gorm:"not null"`
	WeekCursor         uint64 `gorm:"not null"`
	LastTokenTimestamp uint64 `gorm:"not null"`
	LastTokenBalance   string `gorm:"type:text;not null"`
	CanCheckpointToken bool   `gorm:"not null"`
	Killed             bool   `gorm:"not null"`
	EmergencyReturn    string
}

func (settingsRecord) TableName() string { return "distributor_settings" }

type tokensPerWeekRecord struct {
	Distributor string `gorm:"primaryKey"`
	Week        uint64 `gorm:"primaryKey;autoIncrement:false"`
	Amount      string `gorm:"type:text;not null"`
}

func (tokensPerWeekRecord) TableName() string { return "distributor_tokens_per_week" }

type supplyRecord struct {
	Distributor string `gorm:"primaryKey"`
	Week        uint64 `gorm:"primaryKey;autoIncrement:false"`
	TotalSupply string `gorm:"type:text;not null"`
}

func (supplyRecord) TableName() string { return "distributor_supply" }

type accountCursorRecord struct {
	Distributor string `gorm:"primaryKey"`
	Account     string `gorm:"primaryKey"`
	WeekCursor  uint64 `gorm:"not null"`
}

func (accountCursorRecord) TableName() string { return "distributor_account_cursors" }

type checkpointCallerRecord struct {
	Distributor string `gorm:"primaryKey"`
	Address     string `gorm:"primaryKey"`
}

func (checkpointCallerRecord) TableName() string { return "distributor_checkpoint_callers" }

// DistributorEvent is the indexing record written for every committed mutating call.
type DistributorEvent struct {
	Id          uint64 `gorm:"primaryKey" json:"-"`
	EventId     string `gorm:"uniqueIndex;not null" json:"eventId"`
	Distributor string `gorm:"not null" json:"distributor"`
	Action      string `gorm:"not null" json:"action"`
	Account     string `json:"account"`
	Amount      string `gorm:"type:text" json:"amount"`
	Timestamp   uint64 `json:"timestamp"`
	BlockNumber uint64 `json:"blockNumber"`
}

func (DistributorEvent) TableName() string { return "distributor_events" }
