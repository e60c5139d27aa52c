// Package clock supplies the current timestamp and block number to the escrow and distributors.
// Every component reads time through a Clock so that historical replay and tests are deterministic.
package clock

import (
	"sync"
	"time"
)

// Moment is a point on the two time bases the escrow tracks.
type Moment struct {
	Timestamp   uint64
	BlockNumber uint64
}

type Clock interface {
	Now() Moment
}

// WallClock derives the block number from elapsed wall time since a configured genesis.
type WallClock struct {
	genesisTimestamp uint64
	genesisBlock     uint64
	blockInterval    time.Duration
	now              func() time.Time
}

func NewWallClock(genesisTimestamp uint64, genesisBlock uint64, blockInterval time.Duration) *WallClock {
	return &WallClock{
		genesisTimestamp: genesisTimestamp,
		genesisBlock:     genesisBlock,
		blockInterval:    blockInterval,
		now:              time.Now,
	}
}

func (w *WallClock) Now() Moment {
	ts := uint64(w.now().UTC().Unix())
	block := w.genesisBlock
	interval := uint64(w.blockInterval / time.Second)
	if ts > w.genesisTimestamp && interval > 0 {
		block += (ts - w.genesisTimestamp) / interval
	}
	return Moment{Timestamp: ts, BlockNumber: block}
}

// ManualClock only moves when told to. Each advance also moves the block number forward.
type ManualClock struct {
	mu            sync.Mutex
	moment        Moment
	blockInterval uint64
}

func NewManualClock(timestamp uint64, blockNumber uint64, blockInterval uint64) *ManualClock {
	if blockInterval == 0 {
		blockInterval = 1
	}
	return &ManualClock{
		moment:        Moment{Timestamp: timestamp, BlockNumber: blockNumber},
		blockInterval: blockInterval,
	}
}

func (m *ManualClock) Now() Moment {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.moment
}

// Advance moves the clock forward by seconds, producing at least one new block when seconds > 0.
func (m *ManualClock) Advance(seconds uint64) Moment {
	m.mu.Lock()
	defer m.mu.Unlock()
	if seconds == 0 {
		return m.moment
	}
	blocks := seconds / m.blockInterval
	if blocks == 0 {
		blocks = 1
	}
	m.moment.Timestamp += seconds
	m.moment.BlockNumber += blocks
	return m.moment
}

// AdvanceTo moves the clock to timestamp. Moving backwards is ignored.
func (m *ManualClock) AdvanceTo(timestamp uint64) Moment {
	current := m.Now()
	if timestamp <= current.Timestamp {
		return current
	}
	return m.Advance(timestamp - current.Timestamp)
}

// Set places the clock at an exact moment, used by the CLI when replaying recorded calls.
func (m *ManualClock) Set(moment Moment) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.moment = moment
}

// Week is the length of one reward and lock bucket in seconds.
const Week = uint64(7 * 24 * 60 * 60)

// FloorWeek rounds ts down to the start of its week.
func FloorWeek(ts uint64) uint64 {
	return ts / Week * Week
}
