package chargepoint

import (
	"context"
)

func CreateTestChargerController() *TestChargerController {
	return &TestChargerController{
		Info: ChargerInfo{
			ChargerID:    "CPH50-TEST",
			Manufacturer: "ChargePoint",
			Model:        "Home Flex",
			Version:      "5.5.1",
			Capabilities: Capabilities{
				AllowedAmps: []int{6, 8, 10, 12, 14, 16, 18, 20, 22, 24, 26, 28, 30, 32, 34, 36, 38, 40},
				MinAmps:     6,
				MaxAmps:     40,
			},
		},
		Status: ChargerStatus{
			PluggedIn:     true,
			Charging:      true,
			AmperageLimit: 16,
			SessionID:     "session-1",
		},
	}
}

// TestChargerController records commands for assertions in tests.
type TestChargerController struct {
	Info      ChargerInfo
	Status    ChargerStatus
	SetCalls  []int
	InfoErr   error
	StatusErr error
	SetErr    error
}

func (c *TestChargerController) Open() error {
	return nil
}

func (c *TestChargerController) Close() error {
	return nil
}

func (c *TestChargerController) GetInfo(ctx context.Context) (*ChargerInfo, error) {
	if c.InfoErr != nil {
		return nil, c.InfoErr
	}
	info := c.Info
	return &info, nil
}

func (c *TestChargerController) GetStatus(ctx context.Context) (*ChargerStatus, error) {
	if c.StatusErr != nil {
		return nil, c.StatusErr
	}
	status := c.Status
	return &status, nil
}

func (c *TestChargerController) SetAmperage(ctx context.Context, amps int) error {
	if c.SetErr != nil {
		return c.SetErr
	}
	c.SetCalls = append(c.SetCalls, amps)
	if amps == 0 {
		c.Status.Charging = false
	} else {
		c.Status.AmperageLimit = amps
		c.Status.Charging = c.Status.PluggedIn
	}
	return nil
}
