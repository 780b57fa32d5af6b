package handler

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/leaflog/leaflog-backend/internal/live"
	"github.com/leaflog/leaflog-backend/internal/logctx"
)

const sseKeepAlive = 25 * time.Second

// streamSSE writes every value of sub as a "snapshot" event until the client
// goes away or the subscription ends. A failed subscription ends the stream
// with an "error" event carrying the usual error envelope.
func streamSSE[T, R any](c echo.Context, sub *live.Subscription[T], render func(T) R) error {
	defer sub.Stop()
	ctx := c.Request().Context()
	w := c.Response()
	w.Header().Set(echo.HeaderContentType, "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	w.Flush()

	ping := time.NewTicker(sseKeepAlive)
	defer ping.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ping.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return nil
			}
			w.Flush()
		case v, ok := <-sub.C():
			if !ok {
				if err := sub.Err(); err != nil {
					log.Printf("[sse] rid=%s path=%s stage=subscription_end err=%v", logctx.RID(ctx), c.Path(), err)
					_ = writeEvent(w, "error", NewErrorResponse("internal_error", "live query failed"))
				}
				return nil
			}
			if err := writeEvent(w, "snapshot", render(v)); err != nil {
				return nil
			}
		}
	}
}

func writeEvent(w *echo.Response, event string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data); err != nil {
		return err
	}
	w.Flush()
	return nil
}
