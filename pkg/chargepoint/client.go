package chargepoint

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type HomeFlexClient struct {
	baseURL   string
	username  string
	password  string
	http      *http.Client
	token     string
	chargerID string
	logger    *zap.Logger
}

func CreateHomeFlexClient(baseURL, username, password string, timeout time.Duration, logger *zap.Logger) (ChargerController, error) {
	if baseURL == "" || username == "" {
		return nil, fmt.Errorf("charger client requires base url and username")
	}
	return &HomeFlexClient{
		baseURL:  baseURL,
		username: username,
		password: password,
		http: &http.Client{
			Timeout: timeout,
		},
		logger: logger.With(zap.String("target", "charger")),
	}, nil
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	SessionToken string `json:"sessionToken"`
}

type chargerListResponse struct {
	Chargers []string `json:"chargers"`
}

type chargerStatusResponse struct {
	Manufacturer           string `json:"manufacturer"`
	Model                  string `json:"model"`
	FirmwareVersion        string `json:"firmwareVersion"`
	PluggedIn              bool   `json:"pluggedIn"`
	ChargingStatus         string `json:"chargingStatus"`
	AmperageLimit          int    `json:"amperageLimit"`
	PossibleAmperageLimits []int  `json:"possibleAmperageLimits"`
	SessionID              string `json:"sessionId"`
}

type amperageLimitRequest struct {
	AmperageLimit int `json:"amperageLimit"`
}

// Open logs in and resolves the home charger to control. The vendor account
// may own several chargers; like the vendor app, the first one is used.
func (c *HomeFlexClient) Open() error {
	ctx, cancel := context.WithTimeout(context.Background(), c.http.Timeout)
	defer cancel()

	var login loginResponse
	err := c.call(ctx, http.MethodPost, "/v1/login", loginRequest{Username: c.username, Password: c.password}, &login)
	if err != nil {
		return err
	}
	c.token = login.SessionToken

	var list chargerListResponse
	err = c.call(ctx, http.MethodGet, "/v1/chargers", nil, &list)
	if err != nil {
		return err
	}
	if len(list.Chargers) == 0 {
		return fmt.Errorf("%w: account has no home chargers", ErrCommandFailed)
	}
	c.chargerID = list.Chargers[0]
	c.logger.Info("charger resolved", zap.String("chargerId", c.chargerID))
	return nil
}

func (c *HomeFlexClient) Close() error {
	c.token = ""
	return nil
}

func (c *HomeFlexClient) GetInfo(ctx context.Context) (*ChargerInfo, error) {
	status, err := c.getStatus(ctx)
	if err != nil {
		return nil, err
	}
	caps, err := Capabilities{AllowedAmps: status.PossibleAmperageLimits}.Normalize()
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrCommandFailed, err)
	}
	return &ChargerInfo{
		ChargerID:    c.chargerID,
		Manufacturer: status.Manufacturer,
		Model:        status.Model,
		Version:      status.FirmwareVersion,
		Capabilities: caps,
	}, nil
}

func (c *HomeFlexClient) GetStatus(ctx context.Context) (*ChargerStatus, error) {
	status, err := c.getStatus(ctx)
	if err != nil {
		return nil, err
	}
	return &ChargerStatus{
		PluggedIn:     status.PluggedIn,
		Charging:      status.ChargingStatus == "CHARGING",
		AmperageLimit: status.AmperageLimit,
		SessionID:     status.SessionID,
	}, nil
}

// SetAmperage applies a new current limit. The home charger only accepts a
// limit change while idle, so an active charge session is stopped first and
// restarted afterwards. amps == 0 stops the session and leaves it stopped.
func (c *HomeFlexClient) SetAmperage(ctx context.Context, amps int) error {
	status, err := c.GetStatus(ctx)
	if err != nil {
		return err
	}

	if amps == 0 {
		if status.Charging {
			return c.stopSession(ctx)
		}
		return nil
	}

	if status.Charging {
		if err := c.stopSession(ctx); err != nil {
			return err
		}
	}
	err = c.call(ctx, http.MethodPut, fmt.Sprintf("/v1/chargers/%s/amperage", c.chargerID), amperageLimitRequest{AmperageLimit: amps}, nil)
	if err != nil {
		return err
	}
	if status.PluggedIn {
		return c.startSession(ctx)
	}
	return nil
}

func (c *HomeFlexClient) getStatus(ctx context.Context) (*chargerStatusResponse, error) {
	var status chargerStatusResponse
	err := c.call(ctx, http.MethodGet, fmt.Sprintf("/v1/chargers/%s/status", c.chargerID), nil, &status)
	if err != nil {
		return nil, err
	}
	return &status, nil
}

func (c *HomeFlexClient) startSession(ctx context.Context) error {
	return c.call(ctx, http.MethodPost, fmt.Sprintf("/v1/chargers/%s/session/start", c.chargerID), nil, nil)
}

func (c *HomeFlexClient) stopSession(ctx context.Context) error {
	return c.call(ctx, http.MethodPost, fmt.Sprintf("/v1/chargers/%s/session/stop", c.chargerID), nil, nil)
}

func (c *HomeFlexClient) call(ctx context.Context, method, path string, body any, out any) error {
	var reqBody *bytes.Buffer = bytes.NewBuffer(nil)
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%w: encode %s: %s", ErrCommandFailed, path, err)
		}
		reqBody = bytes.NewBuffer(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrCommandFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-Id", uuid.NewString())
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %s", ErrCommandFailed, method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: %s %s: status %d", ErrCommandFailed, method, path, resp.StatusCode)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("%w: decode %s: %s", ErrCommandFailed, path, err)
		}
	}
	return nil
}
