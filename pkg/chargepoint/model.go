package chargepoint

import (
	"context"
	"errors"
	"fmt"
	"slices"
)

// ErrCommandFailed is returned when the charger rejects a command or the
// vendor API is unreachable. Callers keep their previous state and retry on
// the next control tick.
var ErrCommandFailed = errors.New("charger command failed")

type ChargerInfo struct {
	ChargerID    string
	Manufacturer string
	Model        string
	Version      string
	Capabilities Capabilities
}

// Capabilities lists the discrete charging current steps the charger accepts.
type Capabilities struct {
	AllowedAmps []int
	MinAmps     int
	MaxAmps     int
}

// Normalize sorts the allowed steps and derives the min/max bounds.
func (c Capabilities) Normalize() (Capabilities, error) {
	if len(c.AllowedAmps) == 0 {
		return Capabilities{}, errors.New("empty allowed amperage list")
	}
	amps := slices.Clone(c.AllowedAmps)
	slices.Sort(amps)
	if amps[0] <= 0 {
		return Capabilities{}, fmt.Errorf("invalid amperage step %d", amps[0])
	}
	return Capabilities{
		AllowedAmps: amps,
		MinAmps:     amps[0],
		MaxAmps:     amps[len(amps)-1],
	}, nil
}

type ChargerStatus struct {
	PluggedIn     bool
	Charging      bool
	AmperageLimit int
	SessionID     string
}

// ChargerController is the narrow command surface the decision engine needs.
// Session and authentication lifecycle stay behind this interface.
type ChargerController interface {
	Open() error
	Close() error
	GetInfo(ctx context.Context) (*ChargerInfo, error)
	GetStatus(ctx context.Context) (*ChargerStatus, error)
	// SetAmperage applies a new charging current limit, cycling the charge
	// session when one is active. amps == 0 suspends charging.
	SetAmperage(ctx context.Context, amps int) error
}
