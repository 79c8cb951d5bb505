package handler

import (
	"context"
	"net/http"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/crm/api/transport"
	"github.com/fastygo/crm/domain"
	"github.com/fastygo/crm/pkg/httpcontext"
	leadUC "github.com/fastygo/crm/usecase/lead"
)

type LeadHandler struct {
	baseHandler
	uc *leadUC.UseCase
}

func NewLeadHandler(uc *leadUC.UseCase, adapter *httpcontext.Adapter, logger *zap.Logger) *LeadHandler {
	return &LeadHandler{
		baseHandler: newBaseHandler(adapter, logger),
		uc:          uc,
	}
}

// @Summary Calling pipeline with follow-up classification
// @Tags leads
// @Router /api/v1/leads [get]
func (h *LeadHandler) ListLeads(ctx *fasthttp.RequestCtx) {
	userID := h.userID(ctx)
	if userID == "" {
		return
	}

	filter := domain.LeadListFilter{
		Search:      query(ctx, "search"),
		Priority:    domain.Priority(query(ctx, "priority")),
		CallStatus:  domain.CallStatusFilter(query(ctx, "call_status")),
		OverdueOnly: ctx.QueryArgs().GetBool("overdue"),
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	page, err := h.uc.ListLeads(stdCtx, userID, filter)
	if err != nil {
		h.respondError(ctx, stdCtx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, page)
}

// @Summary Create lead
// @Tags leads
// @Router /api/v1/leads [post]
func (h *LeadHandler) CreateLead(ctx *fasthttp.RequestCtx) {
	userID := h.userID(ctx)
	if userID == "" {
		return
	}

	var req transport.LeadRequest
	if !h.decode(ctx, &req) {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	lead, err := h.uc.CreateLead(stdCtx, userID, req.Lead())
	if err != nil {
		h.respondError(ctx, stdCtx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusCreated, lead)
}

// @Summary Get lead with classification
// @Tags leads
// @Router /api/v1/leads/{id} [get]
func (h *LeadHandler) GetLead(ctx *fasthttp.RequestCtx) {
	userID := h.userID(ctx)
	if userID == "" {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	detail, err := h.uc.GetLead(stdCtx, userID, pathParam(ctx, "id"))
	if err != nil {
		h.respondError(ctx, stdCtx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, detail)
}

// @Summary Lead activity log
// @Tags leads
// @Router /api/v1/leads/{id}/history [get]
func (h *LeadHandler) History(ctx *fasthttp.RequestCtx) {
	userID := h.userID(ctx)
	if userID == "" {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	notes, err := h.uc.History(stdCtx, userID, pathParam(ctx, "id"))
	if err != nil {
		h.respondError(ctx, stdCtx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, notes)
}

// @Summary Update lead fields
// @Tags leads
// @Router /api/v1/leads/{id} [patch]
func (h *LeadHandler) UpdateLead(ctx *fasthttp.RequestCtx) {
	var req transport.LeadPatchRequest
	if !h.decode(ctx, &req) {
		return
	}
	patch := leadUC.Patch{
		Name:             req.Name,
		Phone:            req.Phone,
		Email:            req.Email,
		Address:          req.Address,
		BusinessName:     req.BusinessName,
		BusinessCategory: req.BusinessCategory,
		Source:           req.Source,
		AssignedTo:       req.AssignedTo,
		InterestLevel:    req.InterestLevel,
		NextFollowUp:     req.NextFollowUp,
	}
	if req.Status != nil {
		s := domain.LeadStatus(*req.Status)
		patch.Status = &s
	}
	if req.Priority != nil {
		p := domain.Priority(*req.Priority)
		patch.Priority = &p
	}
	h.action(ctx, func(stdCtx context.Context, userID, id string) (*domain.Lead, error) {
		return h.uc.UpdateLead(stdCtx, userID, id, patch)
	})
}

// @Summary Log a call
// @Tags leads
// @Router /api/v1/leads/{id}/calls [post]
func (h *LeadHandler) LogCall(ctx *fasthttp.RequestCtx) {
	var req transport.CallLogRequest
	if !h.decode(ctx, &req) {
		return
	}
	h.action(ctx, func(stdCtx context.Context, userID, id string) (*domain.Lead, error) {
		return h.uc.LogCall(stdCtx, userID, id, req.Entry())
	})
}

// @Summary Mark the scheduled call done and book the next one
// @Tags leads
// @Router /api/v1/leads/{id}/call-done [post]
func (h *LeadHandler) MarkCallDone(ctx *fasthttp.RequestCtx) {
	var req transport.CallDoneRequest
	if !h.decode(ctx, &req) {
		return
	}
	h.action(ctx, func(stdCtx context.Context, userID, id string) (*domain.Lead, error) {
		return h.uc.MarkCallDone(stdCtx, userID, id, req.Comment, req.NextCall)
	})
}

// @Summary Quick-mark a lead as called
// @Tags leads
// @Router /api/v1/leads/{id}/called [post]
func (h *LeadHandler) QuickMarkCalled(ctx *fasthttp.RequestCtx) {
	h.action(ctx, h.uc.QuickMarkCalled)
}

// @Summary Record an unanswered call and reschedule
// @Tags leads
// @Router /api/v1/leads/{id}/no-response [post]
func (h *LeadHandler) NoResponse(ctx *fasthttp.RequestCtx) {
	h.action(ctx, h.uc.NoResponse)
}

// @Summary Convert a lead into a client
// @Tags leads
// @Router /api/v1/leads/{id}/convert [post]
func (h *LeadHandler) Convert(ctx *fasthttp.RequestCtx) {
	userID := h.userID(ctx)
	if userID == "" {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	client, err := h.uc.ConvertToClient(stdCtx, userID, pathParam(ctx, "id"))
	if err != nil {
		h.respondError(ctx, stdCtx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusCreated, client)
}

// @Summary Delete lead
// @Tags leads
// @Router /api/v1/leads/{id} [delete]
func (h *LeadHandler) DeleteLead(ctx *fasthttp.RequestCtx) {
	userID := h.userID(ctx)
	if userID == "" {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	if err := h.uc.DeleteLead(stdCtx, userID, pathParam(ctx, "id")); err != nil {
		h.respondError(ctx, stdCtx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusNoContent, nil)
}

func (h *LeadHandler) action(ctx *fasthttp.RequestCtx, fn func(stdCtx context.Context, userID, id string) (*domain.Lead, error)) {
	userID := h.userID(ctx)
	if userID == "" {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	lead, err := fn(stdCtx, userID, pathParam(ctx, "id"))
	if err != nil {
		h.respondError(ctx, stdCtx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, lead)
}
