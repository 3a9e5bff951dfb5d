package server

import (
	"net/http"
	"time"

	"solaramp/internal/core/domain"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

type decisionPayload struct {
	TargetAmps             int       `json:"target_amps"`
	Reason                 string    `json:"reason"`
	AvgProductionWatts     float64   `json:"avg_production_watts"`
	AvgNetConsumptionWatts float64   `json:"avg_net_consumption_watts"`
	ExcessWatts            float64   `json:"excess_watts"`
	SlopeWattsPerMinute    float64   `json:"slope_watts_per_minute"`
	ProjectedExcessWatts   float64   `json:"projected_excess_watts"`
	DecidedAt              time.Time `json:"decided_at"`
}

type decisionResponse struct {
	Decision          *decisionPayload `json:"decision,omitempty"`
	LastCommandedAmps int              `json:"last_commanded_amps"`
	LastCommandTime   *time.Time       `json:"last_command_time,omitempty"`
}

func (s *Server) RegisterRoutes() http.Handler {
	e := echo.New()
	if s.httpLog {
		e.Use(middleware.Logger())
	}
	e.Use(middleware.Recover())

	e.GET("/healthcheck", s.HealthCheckHandler)
	e.GET("/decision", s.DecisionHandler)

	return e
}

func (s *Server) HealthCheckHandler(c echo.Context) error {
	res, err := s.rootContext.RequestFuture(s.masterActor, domain.ActorHealthRequest{}, 10*time.Second).Result()
	if err != nil {
		return c.String(http.StatusServiceUnavailable, "health_check: FAIL")
	}
	if response, ok := res.(domain.ActorHealthResponse); ok && response.Healthy {
		return c.String(http.StatusOK, "health_check: OK")
	}
	return c.String(http.StatusServiceUnavailable, "health_check: FAIL")
}

func (s *Server) DecisionHandler(c echo.Context) error {
	res, err := s.rootContext.RequestFuture(s.masterActor, domain.ChargeControlGetDecisionRequest{}, 10*time.Second).Result()
	if err != nil {
		return c.String(http.StatusServiceUnavailable, "decision: FAIL")
	}
	response, ok := res.(domain.ChargeControlGetDecisionResponse)
	if !ok {
		return c.String(http.StatusServiceUnavailable, "decision: FAIL")
	}
	payload := decisionResponse{
		LastCommandedAmps: response.State.LastCommandedAmps,
	}
	if response.State.Commanded {
		lastCommand := response.State.LastCommandTime
		payload.LastCommandTime = &lastCommand
	}
	if response.Decision != nil {
		payload.Decision = &decisionPayload{
			TargetAmps:             response.Decision.TargetAmps,
			Reason:                 string(response.Decision.Reason),
			AvgProductionWatts:     response.Decision.AvgProductionWatts,
			AvgNetConsumptionWatts: response.Decision.AvgNetConsumptionWatts,
			ExcessWatts:            response.Decision.ExcessWatts,
			SlopeWattsPerMinute:    response.Decision.SlopeWattsPerMinute,
			ProjectedExcessWatts:   response.Decision.ProjectedExcessWatts,
			DecidedAt:              response.Decision.DecidedAt,
		}
	}
	return c.JSON(http.StatusOK, payload)
}
