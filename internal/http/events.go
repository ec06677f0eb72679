package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/sprintai/internal/live"
	"github.com/fyrsmithlabs/sprintai/internal/logging"
)

// handleEvents streams the caller's live events as server-sent events.
//
// The current analysis is sent first so a client can render without a
// separate GET. A save racing the initial load may be delivered twice. Each later event is written as "event: <kind>" with the
// analysis snapshot or chat message as data.
func (s *Server) handleEvents(c echo.Context) error {
	if s.services.Events == nil {
		return echo.NewHTTPError(http.StatusNotImplemented, "live events are disabled")
	}

	ctx := c.Request().Context()
	userID := session(c).UserID()

	// Subscribe before loading so a save between the two is not lost.
	events, cancel, err := s.services.Events.Subscribe(ctx, userID)
	if err != nil {
		return s.fail(c, err)
	}
	defer cancel()

	snapshot, err := s.services.Analysis.Load(ctx, userID)
	if err != nil {
		return s.fail(c, err)
	}

	if m := s.services.Metrics; m != nil {
		m.SubscriberOpened()
		defer m.SubscriberClosed()
	}

	h := c.Response().Header()
	h.Set(echo.HeaderContentType, "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	c.Response().WriteHeader(http.StatusOK)

	if err := s.writeEvent(c, live.KindAnalysis, snapshot); err != nil {
		return nil
	}

	ticker := time.NewTicker(s.config.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			var payload any = ev.Analysis
			if ev.Kind == live.KindChat {
				payload = ev.Message
			}
			if err := s.writeEvent(c, ev.Kind, payload); err != nil {
				return nil
			}
		case <-ticker.C:
			if _, err := fmt.Fprint(c.Response(), ": heartbeat\n\n"); err != nil {
				return nil
			}
			c.Response().Flush()
		}
	}
}

func (s *Server) writeEvent(c echo.Context, kind live.Kind, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		s.logger.Warn("failed to encode event", zap.String("kind", string(kind)), zap.Error(err))
		return nil
	}
	if _, err := fmt.Fprintf(c.Response(), "event: %s\ndata: %s\n\n", kind, data); err != nil {
		s.logger.Debug("event stream closed", append(logging.ContextFields(c.Request().Context()), zap.Error(err))...)
		return err
	}
	c.Response().Flush()
	return nil
}
