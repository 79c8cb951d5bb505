package handler

import (
	"net/http"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/crm/api/transport"
	"github.com/fastygo/crm/pkg/httpcontext"
	financeUC "github.com/fastygo/crm/usecase/finance"
)

type FinanceHandler struct {
	baseHandler
	uc *financeUC.UseCase
}

func NewFinanceHandler(uc *financeUC.UseCase, adapter *httpcontext.Adapter, logger *zap.Logger) *FinanceHandler {
	return &FinanceHandler{
		baseHandler: newBaseHandler(adapter, logger),
		uc:          uc,
	}
}

// @Summary Finance summary for a reporting period
// @Tags finance
// @Param period query string false "this-month, last-month, last-3-months, last-6-months, this-year, specific-month, all-time"
// @Router /api/v1/finance/summary [get]
func (h *FinanceHandler) Summary(ctx *fasthttp.RequestCtx) {
	userID := h.userID(ctx)
	if userID == "" {
		return
	}

	q, err := transport.ParseReportQuery(query(ctx, "period"), query(ctx, "month"), query(ctx, "year"))
	if err != nil {
		h.respondInvalid(ctx, err.Error())
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	report, err := h.uc.Summary(stdCtx, userID, q)
	if err != nil {
		h.respondError(ctx, stdCtx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, report)
}
