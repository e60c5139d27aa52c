// Package runtime records which binary versions have run against a database and refuses to
// start an older one on top of state a newer one already wrote.
package runtime

import (
	"errors"

	"github.com/Layr-Labs/ve-rewards/pkg/clock"
	"go.uber.org/zap"
	"golang.org/x/mod/semver"
	"gorm.io/gorm"
)

var ErrVersionDowngrade = errors.New("runtime version is older than last seen version")

type Runtime struct {
	grm    *gorm.DB
	clock  clock.Clock
	logger *zap.Logger
}

func NewRuntime(grm *gorm.DB, c clock.Clock, l *zap.Logger) *Runtime {
	return &Runtime{
		grm:    grm,
		clock:  c,
		logger: l,
	}
}

func (r *Runtime) GetRecentlyLaunchedVersion() (*LaunchedVersion, error) {
	var lv LaunchedVersion
	res := r.grm.Model(&LaunchedVersion{}).Order("id desc").First(&lv)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, res.Error
	}
	return &lv, nil
}

// ValidateAndUpdateVersion records version as launched at the current block unless it equals the
// last recorded one. Versions that sort before the last recorded one are refused.
func (r *Runtime) ValidateAndUpdateVersion(version string) error {
	if version == "" {
		return errors.New("empty version")
	}
	if version == "unknown" {
		r.logger.Sugar().Warnw("runtime version is unknown, not recording it", zap.String("version", version))
		return nil
	}
	if !semver.IsValid(version) {
		return errors.New("runtime version is not valid semver: " + version)
	}

	lastSeen, err := r.GetRecentlyLaunchedVersion()
	if err != nil {
		return err
	}
	if lastSeen != nil {
		cmp := semver.Compare(version, lastSeen.Version)
		if cmp < 0 {
			r.logger.Sugar().Errorw("Refusing to start an older version",
				zap.String("version", version),
				zap.String("lastSeen", lastSeen.Version),
			)
			return ErrVersionDowngrade
		}
		if cmp == 0 {
			r.logger.Sugar().Infow("runtime version is the same as the last seen version", zap.String("version", version))
			return nil
		}
	}

	return r.grm.Model(&LaunchedVersion{}).Create(&LaunchedVersion{
		Version:         version,
		BlockLaunchedAt: r.clock.Now().BlockNumber,
	}).Error
}
