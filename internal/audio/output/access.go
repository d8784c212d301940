package output

import (
	"os"

	"github.com/acediac/mythtv/internal/audio/hal"
	"github.com/acediac/mythtv/internal/logger"
)

// AccessContext carries the process-wide facts the access controller
// needs: the pid used to verify hog ownership and the hardware handle.
// Built once per process and handed down, never a package global.
type AccessContext struct {
	hw  hal.Hardware
	pid int
}

func NewAccessContext(hw hal.Hardware) *AccessContext {
	return &AccessContext{hw: hw, pid: os.Getpid()}
}

// accessController owns the exclusive-access and mixing state of one
// device for one session. Exclusive access must be acquired before mixing
// is disabled, and mixing restored before exclusive access is released;
// ReleaseAll enforces that ordering.
type accessController struct {
	ctx *AccessContext
	dev hal.DeviceID

	// holder is the pid we saw after our last successful acquire, or
	// hal.HogNone when we do not hold the device.
	holder int

	// mixerRestore captures the device's mixing value the first time we
	// change it. nil means never changed; restore is guarded by that,
	// not by a sentinel.
	mixerRestore *bool
}

func newAccessController(ctx *AccessContext, dev hal.DeviceID) *accessController {
	return &accessController{ctx: ctx, dev: dev, holder: hal.HogNone}
}

// SetExclusiveAccess acquires or releases the hog hold. The underlying
// primitive is a toggle that reports the new holder; success is verified
// by comparing that pid against our own. Redundant requests are no-ops.
func (a *accessController) SetExclusiveAccess(acquire bool) bool {
	if a.dev == 0 {
		return false
	}
	if acquire {
		if a.holder != hal.HogNone {
			return true // already held
		}
		holder, err := a.ctx.hw.SetHogHolder(a.dev, a.ctx.pid)
		if err != nil || holder != a.ctx.pid {
			logger.Warn("unable to acquire exclusive access",
				logger.Int("device", int(a.dev)), logger.Error(err))
			return false
		}
		a.holder = holder
		logger.Debug("exclusive access acquired", logger.Int("device", int(a.dev)))
		return true
	}
	if a.holder == hal.HogNone {
		return true // not held
	}
	holder, err := a.ctx.hw.SetHogHolder(a.dev, hal.HogNone)
	if err != nil || holder == a.ctx.pid {
		logger.Warn("unable to release exclusive access",
			logger.Int("device", int(a.dev)), logger.Error(err))
		return false
	}
	a.holder = hal.HogNone
	logger.Debug("exclusive access released", logger.Int("device", int(a.dev)))
	return true
}

// SetMixingEnabled toggles software mixing on the device. The original
// value is captured exactly once, before the first successful change, so
// teardown can restore it verbatim no matter how often it toggles later.
func (a *accessController) SetMixingEnabled(enable bool) bool {
	if a.dev == 0 {
		return false
	}
	var captured *bool
	if a.mixerRestore == nil {
		if cur, err := a.ctx.hw.MixingEnabled(a.dev); err == nil {
			captured = &cur
		}
	}
	if err := a.ctx.hw.SetMixingEnabled(a.dev, enable); err != nil {
		logger.Warn("unable to change mixing support",
			logger.Int("device", int(a.dev)), logger.Bool("enable", enable), logger.Error(err))
		return false
	}
	if a.mixerRestore == nil {
		a.mixerRestore = captured
	}
	logger.Debug("mixing support changed",
		logger.Int("device", int(a.dev)), logger.Bool("enable", enable))
	return true
}

// RestoreMixing puts mixing back to its pre-session value, if we ever
// changed it.
func (a *accessController) RestoreMixing() {
	if a.mixerRestore == nil {
		return
	}
	if err := a.ctx.hw.SetMixingEnabled(a.dev, *a.mixerRestore); err != nil {
		logger.Warn("unable to restore mixing support",
			logger.Int("device", int(a.dev)), logger.Error(err))
	}
	a.mixerRestore = nil
}

// ReleaseAll restores mixing first, then releases exclusive access.
func (a *accessController) ReleaseAll() {
	a.RestoreMixing()
	a.SetExclusiveAccess(false)
}
