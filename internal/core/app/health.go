package app

import (
	"context"
	"fmt"
	"overrides/internal/shared/observability"
	"time"
)

type HealthService struct {
	app *App
}

var _ observability.HealthChecker = (*HealthService)(nil)

func NewHealthService(app *App) *HealthService {
	return &HealthService{app: app}
}

func (s *HealthService) Check(ctx context.Context) observability.HealthStatus {
	status := observability.HealthStatus{
		Status:     "up",
		Timestamp:  time.Now().UTC(),
		Components: make(map[string]string),
	}

	st := s.app.Status()
	switch {
	case !st.Loaded:
		status.Status = "degraded"
		status.Components["hierarchy"] = "missing"
	case st.Types >= 0:
		status.Components["hierarchy"] = fmt.Sprintf("ok (%d types, %s)", st.Types, st.Source)
	default:
		status.Components["hierarchy"] = fmt.Sprintf("ok (%s %s)", st.Source, st.SnapshotID)
	}

	if s.app.store != nil {
		if err := s.app.store.Ping(ctx); err != nil {
			status.Status = "degraded"
			status.Components["store"] = "unreachable: " + err.Error()
		} else {
			status.Components["store"] = "ok"
		}
	} else {
		status.Components["store"] = "disabled"
	}

	return status
}
