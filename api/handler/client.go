package handler

import (
	"net/http"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/crm/api/transport"
	"github.com/fastygo/crm/domain"
	"github.com/fastygo/crm/pkg/httpcontext"
	"github.com/fastygo/crm/repository"
	clientUC "github.com/fastygo/crm/usecase/client"
)

type ClientHandler struct {
	baseHandler
	uc *clientUC.UseCase
}

func NewClientHandler(uc *clientUC.UseCase, adapter *httpcontext.Adapter, logger *zap.Logger) *ClientHandler {
	return &ClientHandler{
		baseHandler: newBaseHandler(adapter, logger),
		uc:          uc,
	}
}

// @Summary List clients
// @Tags clients
// @Router /api/v1/clients [get]
func (h *ClientHandler) ListClients(ctx *fasthttp.RequestCtx) {
	userID := h.userID(ctx)
	if userID == "" {
		return
	}

	filter := repository.ClientFilter{
		Status: query(ctx, "status"),
		LeadID: query(ctx, "lead_id"),
		Limit:  parseInt(query(ctx, "limit"), 50),
		Offset: parseInt(query(ctx, "offset"), 0),
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	clients, err := h.uc.ListClients(stdCtx, userID, filter)
	if err != nil {
		h.respondError(ctx, stdCtx, err)
		return
	}
	h.respondPage(ctx, clients, transport.PageMeta{Limit: filter.Limit, Offset: filter.Offset, Count: len(clients)})
}

// @Summary Create client
// @Tags clients
// @Router /api/v1/clients [post]
func (h *ClientHandler) CreateClient(ctx *fasthttp.RequestCtx) {
	userID := h.userID(ctx)
	if userID == "" {
		return
	}

	var req transport.ClientRequest
	if !h.decode(ctx, &req) {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	client, err := h.uc.CreateClient(stdCtx, userID, req.Client())
	if err != nil {
		h.respondError(ctx, stdCtx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusCreated, client)
}

// @Summary Get client
// @Tags clients
// @Router /api/v1/clients/{id} [get]
func (h *ClientHandler) GetClient(ctx *fasthttp.RequestCtx) {
	userID := h.userID(ctx)
	if userID == "" {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	client, err := h.uc.GetClient(stdCtx, userID, pathParam(ctx, "id"))
	if err != nil {
		h.respondError(ctx, stdCtx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, client)
}

// @Summary Change client workflow status
// @Tags clients
// @Router /api/v1/clients/{id}/status [put]
func (h *ClientHandler) UpdateStatus(ctx *fasthttp.RequestCtx) {
	userID := h.userID(ctx)
	if userID == "" {
		return
	}

	var req transport.ClientStatusRequest
	if !h.decode(ctx, &req) {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	client, err := h.uc.UpdateClientStatus(stdCtx, userID, pathParam(ctx, "id"), domain.ClientStatus(req.Status))
	if err != nil {
		h.respondError(ctx, stdCtx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, client)
}

// @Summary Set project value and payment state
// @Tags clients
// @Router /api/v1/clients/{id}/financials [put]
func (h *ClientHandler) UpdateFinancials(ctx *fasthttp.RequestCtx) {
	userID := h.userID(ctx)
	if userID == "" {
		return
	}

	var req transport.FinancialsRequest
	if !h.decode(ctx, &req) {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	client, err := h.uc.UpdateFinancials(stdCtx, userID, pathParam(ctx, "id"), clientUC.Financials{
		ProjectValue:  req.ProjectValue,
		PaymentStatus: domain.PaymentStatus(req.PaymentStatus),
		PartialAmount: req.PartialAmount,
	})
	if err != nil {
		h.respondError(ctx, stdCtx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, client)
}

// @Summary Mark delivered and snapshot income
// @Tags clients
// @Router /api/v1/clients/{id}/deliver [post]
func (h *ClientHandler) Deliver(ctx *fasthttp.RequestCtx) {
	userID := h.userID(ctx)
	if userID == "" {
		return
	}

	var req transport.DeliverRequest
	if len(ctx.PostBody()) > 0 && !h.decode(ctx, &req) {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	delivery, err := h.uc.MarkDelivered(stdCtx, userID, pathParam(ctx, "id"), req.Notes)
	if err != nil {
		h.respondError(ctx, stdCtx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, delivery)
}

// @Summary Start a new project for an existing client
// @Tags clients
// @Router /api/v1/clients/{id}/projects [post]
func (h *ClientHandler) NewProject(ctx *fasthttp.RequestCtx) {
	userID := h.userID(ctx)
	if userID == "" {
		return
	}

	var req transport.NewProjectRequest
	if !h.decode(ctx, &req) {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	client, err := h.uc.StartNewProject(stdCtx, userID, pathParam(ctx, "id"), req.Services, req.ProjectValue)
	if err != nil {
		h.respondError(ctx, stdCtx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusCreated, client)
}

// @Summary Delete client
// @Tags clients
// @Router /api/v1/clients/{id} [delete]
func (h *ClientHandler) DeleteClient(ctx *fasthttp.RequestCtx) {
	userID := h.userID(ctx)
	if userID == "" {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	if err := h.uc.DeleteClient(stdCtx, userID, pathParam(ctx, "id")); err != nil {
		h.respondError(ctx, stdCtx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusNoContent, nil)
}

// @Summary List income records
// @Tags finance
// @Router /api/v1/income [get]
func (h *ClientHandler) ListIncome(ctx *fasthttp.RequestCtx) {
	userID := h.userID(ctx)
	if userID == "" {
		return
	}

	filter := repository.IncomeFilter{
		ClientID: query(ctx, "client_id"),
		Limit:    parseInt(query(ctx, "limit"), 50),
		Offset:   parseInt(query(ctx, "offset"), 0),
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	records, err := h.uc.ListIncome(stdCtx, userID, filter)
	if err != nil {
		h.respondError(ctx, stdCtx, err)
		return
	}
	h.respondPage(ctx, records, transport.PageMeta{Limit: filter.Limit, Offset: filter.Offset, Count: len(records)})
}
