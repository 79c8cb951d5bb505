package handler

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/crm/domain"
	"github.com/fastygo/crm/pkg/httpcontext"
	appLogger "github.com/fastygo/crm/pkg/logger"
	"github.com/fastygo/crm/repository"
)

const heartbeatInterval = 15 * time.Second

// ChangesHandler streams committed row changes as server-sent events.
type ChangesHandler struct {
	baseHandler
	feed repository.ChangeFeed
}

func NewChangesHandler(feed repository.ChangeFeed, adapter *httpcontext.Adapter, logger *zap.Logger) *ChangesHandler {
	return &ChangesHandler{
		baseHandler: newBaseHandler(adapter, logger),
		feed:        feed,
	}
}

// @Summary Subscribe to table changes
// @Tags changes
// @Param table query string true "table name"
// @Param filter query string false "column=eq.value"
// @Router /api/v1/changes [get]
func (h *ChangesHandler) Stream(ctx *fasthttp.RequestCtx) {
	if h.userID(ctx) == "" {
		return
	}

	table := query(ctx, "table")
	if !domain.KnownTable(table) {
		h.respondInvalid(ctx, fmt.Sprintf("unknown table %q", table))
		return
	}
	filter, err := domain.ParseChangeFilter(query(ctx, "filter"))
	if err != nil {
		h.respondInvalid(ctx, err.Error())
		return
	}

	stdCtx, cancel := h.streamContext(ctx)
	events, closeSub, err := h.feed.Subscribe(stdCtx, table)
	if err != nil {
		cancel()
		h.respondError(ctx, stdCtx, err)
		return
	}
	log := appLogger.WithRequestID(stdCtx, h.logger).With(zap.String("table", table))
	log.Debug("change stream opened", zap.String("filter", filter.Column))

	ctx.SetStatusCode(http.StatusOK)
	ctx.Response.Header.SetContentType("text/event-stream")
	ctx.Response.Header.Set("Cache-Control", "no-cache")
	ctx.Response.Header.Set("Connection", "keep-alive")
	ctx.Response.Header.Set("X-Accel-Buffering", "no")

	// The server write timeout would otherwise cut long-lived streams.
	conn := ctx.Conn()
	extend := func() {
		_ = conn.SetWriteDeadline(time.Now().Add(2 * heartbeatInterval))
	}

	ctx.SetBodyStreamWriter(func(w *bufio.Writer) {
		defer cancel()
		defer func() {
			if err := closeSub(); err != nil {
				log.Debug("change subscription close failed", zap.Error(err))
			}
			log.Debug("change stream closed")
		}()

		extend()
		if err := writeComment(w, "subscribed"); err != nil {
			return
		}

		heartbeat := time.NewTicker(heartbeatInterval)
		defer heartbeat.Stop()

		for {
			select {
			case ev, ok := <-events:
				if !ok {
					return
				}
				if !filter.Matches(ev) {
					continue
				}
				extend()
				if err := writeEvent(w, ev); err != nil {
					return
				}
			case <-heartbeat.C:
				extend()
				if err := writeComment(w, "ping"); err != nil {
					return
				}
			case <-stdCtx.Done():
				return
			}
		}
	})
}

func writeEvent(w *bufio.Writer, ev domain.ChangeEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return nil
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, payload); err != nil {
		return err
	}
	return w.Flush()
}

func writeComment(w *bufio.Writer, text string) error {
	if _, err := fmt.Fprintf(w, ": %s\n\n", text); err != nil {
		return err
	}
	return w.Flush()
}
