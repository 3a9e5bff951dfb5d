package chargepoint

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeVendorAPI struct {
	status   chargerStatusResponse
	requests []string
}

func (f *fakeVendorAPI) handler() http.Handler {
	// Go 1.21's ServeMux lacks method patterns ("POST /path"), so the
	// method check is done inside each handler instead.
	requireMethod := func(method string, h http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if r.Method != method {
				http.NotFound(w, r)
				return
			}
			h(w, r)
		}
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/login", requireMethod(http.MethodPost, func(w http.ResponseWriter, r *http.Request) {
		f.requests = append(f.requests, "login")
		json.NewEncoder(w).Encode(loginResponse{SessionToken: "token-1"})
	}))
	mux.HandleFunc("/v1/chargers", requireMethod(http.MethodGet, func(w http.ResponseWriter, r *http.Request) {
		f.requests = append(f.requests, "list")
		json.NewEncoder(w).Encode(chargerListResponse{Chargers: []string{"CPH50-1"}})
	}))
	mux.HandleFunc("/v1/chargers/CPH50-1/status", requireMethod(http.MethodGet, func(w http.ResponseWriter, r *http.Request) {
		f.requests = append(f.requests, "status")
		json.NewEncoder(w).Encode(f.status)
	}))
	mux.HandleFunc("/v1/chargers/CPH50-1/amperage", requireMethod(http.MethodPut, func(w http.ResponseWriter, r *http.Request) {
		var req amperageLimitRequest
		json.NewDecoder(r.Body).Decode(&req)
		f.status.AmperageLimit = req.AmperageLimit
		f.requests = append(f.requests, "amperage")
	}))
	mux.HandleFunc("/v1/chargers/CPH50-1/session/start", requireMethod(http.MethodPost, func(w http.ResponseWriter, r *http.Request) {
		f.status.ChargingStatus = "CHARGING"
		f.requests = append(f.requests, "start")
	}))
	mux.HandleFunc("/v1/chargers/CPH50-1/session/stop", requireMethod(http.MethodPost, func(w http.ResponseWriter, r *http.Request) {
		f.status.ChargingStatus = "STOPPED"
		f.requests = append(f.requests, "stop")
	}))
	return mux
}

func newTestClient(t *testing.T, api *fakeVendorAPI) ChargerController {
	t.Helper()
	server := httptest.NewServer(api.handler())
	t.Cleanup(server.Close)

	client, err := CreateHomeFlexClient(server.URL, "user@example.com", "secret", 2*time.Second, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, client.Open())
	return client
}

func sunnyStatus() chargerStatusResponse {
	return chargerStatusResponse{
		Manufacturer:           "ChargePoint",
		Model:                  "Home Flex",
		FirmwareVersion:        "5.5.1",
		PluggedIn:              true,
		ChargingStatus:         "CHARGING",
		AmperageLimit:          16,
		PossibleAmperageLimits: []int{40, 6, 8, 10, 12, 14, 16, 18, 20, 22, 24, 26, 28, 30, 32, 34, 36, 38},
		SessionID:              "session-1",
	}
}

func TestGetInfoNormalizesCapabilities(t *testing.T) {
	client := newTestClient(t, &fakeVendorAPI{status: sunnyStatus()})

	info, err := client.GetInfo(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 6, info.Capabilities.MinAmps)
	assert.Equal(t, 40, info.Capabilities.MaxAmps)
	assert.Equal(t, 6, info.Capabilities.AllowedAmps[0])
	assert.Equal(t, 40, info.Capabilities.AllowedAmps[len(info.Capabilities.AllowedAmps)-1])
}

func TestSetAmperageCyclesActiveSession(t *testing.T) {
	api := &fakeVendorAPI{status: sunnyStatus()}
	client := newTestClient(t, api)

	err := client.SetAmperage(context.Background(), 14)
	require.NoError(t, err)

	// stop -> set limit -> restart, in that order
	tail := api.requests[len(api.requests)-3:]
	assert.Equal(t, []string{"stop", "amperage", "start"}, tail)
	assert.Equal(t, 14, api.status.AmperageLimit)
}

func TestSetAmperageZeroSuspends(t *testing.T) {
	api := &fakeVendorAPI{status: sunnyStatus()}
	client := newTestClient(t, api)

	err := client.SetAmperage(context.Background(), 0)
	require.NoError(t, err)

	assert.Equal(t, "stop", api.requests[len(api.requests)-1])
	assert.Equal(t, "STOPPED", api.status.ChargingStatus)

	// already suspended: a second suspend is a no-op
	before := len(api.requests)
	err = client.SetAmperage(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"status"}, api.requests[before:])
}

func TestSetAmperageWhileUnpluggedDoesNotStartSession(t *testing.T) {
	status := sunnyStatus()
	status.PluggedIn = false
	status.ChargingStatus = "AVAILABLE"
	api := &fakeVendorAPI{status: status}
	client := newTestClient(t, api)

	err := client.SetAmperage(context.Background(), 12)
	require.NoError(t, err)

	assert.NotContains(t, api.requests, "start")
	assert.Equal(t, 12, api.status.AmperageLimit)
}

func TestCommandErrorsMapToErrCommandFailed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer server.Close()

	client, err := CreateHomeFlexClient(server.URL, "user@example.com", "secret", 2*time.Second, zap.NewNop())
	require.NoError(t, err)

	err = client.Open()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCommandFailed)
}
