package handler

import (
	"net/http"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/crm/api/transport"
	"github.com/fastygo/crm/pkg/httpcontext"
	teamUC "github.com/fastygo/crm/usecase/team"
)

type TeamHandler struct {
	baseHandler
	uc *teamUC.UseCase
}

func NewTeamHandler(uc *teamUC.UseCase, adapter *httpcontext.Adapter, logger *zap.Logger) *TeamHandler {
	return &TeamHandler{
		baseHandler: newBaseHandler(adapter, logger),
		uc:          uc,
	}
}

// @Summary Propose a member for admin
// @Tags team
// @Router /api/v1/promotions [post]
func (h *TeamHandler) RequestPromotion(ctx *fasthttp.RequestCtx) {
	userID := h.userID(ctx)
	if userID == "" {
		return
	}

	var req transport.PromotionRequest
	if !h.decode(ctx, &req) {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	promotion, err := h.uc.RequestPromotion(stdCtx, userID, req.UserID)
	if err != nil {
		h.respondError(ctx, stdCtx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusCreated, promotion)
}

// @Summary Pending promotion requests with votes
// @Tags team
// @Router /api/v1/promotions [get]
func (h *TeamHandler) ListPromotions(ctx *fasthttp.RequestCtx) {
	userID := h.userID(ctx)
	if userID == "" {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	requests, err := h.uc.ListPendingPromotions(stdCtx, userID)
	if err != nil {
		h.respondError(ctx, stdCtx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, requests)
}

// @Summary Vote on a promotion request
// @Tags team
// @Router /api/v1/promotions/{id}/votes [post]
func (h *TeamHandler) Vote(ctx *fasthttp.RequestCtx) {
	userID := h.userID(ctx)
	if userID == "" {
		return
	}

	var req transport.VoteRequest
	if !h.decode(ctx, &req) {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	result, err := h.uc.CastVote(stdCtx, userID, pathParam(ctx, "id"), *req.Approved)
	if err != nil {
		h.respondError(ctx, stdCtx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, result)
}

// @Summary Ask to join the team
// @Tags team
// @Router /api/v1/join-requests [post]
func (h *TeamHandler) SubmitJoinRequest(ctx *fasthttp.RequestCtx) {
	var req transport.JoinRequestSubmit
	if !h.decode(ctx, &req) {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	join, err := h.uc.SubmitJoinRequest(stdCtx, req.Email, req.FullName, req.Message)
	if err != nil {
		h.respondError(ctx, stdCtx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusCreated, join)
}

// @Summary List join requests
// @Tags team
// @Router /api/v1/join-requests [get]
func (h *TeamHandler) ListJoinRequests(ctx *fasthttp.RequestCtx) {
	userID := h.userID(ctx)
	if userID == "" {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	requests, err := h.uc.ListJoinRequests(stdCtx, userID, query(ctx, "status"))
	if err != nil {
		h.respondError(ctx, stdCtx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, requests)
}

// @Summary Approve a join request
// @Tags team
// @Router /api/v1/join-requests/{id}/approve [post]
func (h *TeamHandler) ApproveJoinRequest(ctx *fasthttp.RequestCtx) {
	userID := h.userID(ctx)
	if userID == "" {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	join, err := h.uc.ApproveJoinRequest(stdCtx, userID, pathParam(ctx, "id"))
	if err != nil {
		h.respondError(ctx, stdCtx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, join)
}

// @Summary Reject a join request
// @Tags team
// @Router /api/v1/join-requests/{id}/reject [post]
func (h *TeamHandler) RejectJoinRequest(ctx *fasthttp.RequestCtx) {
	userID := h.userID(ctx)
	if userID == "" {
		return
	}

	var req transport.RejectRequest
	if len(ctx.PostBody()) > 0 && !h.decode(ctx, &req) {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	join, err := h.uc.RejectJoinRequest(stdCtx, userID, pathParam(ctx, "id"), req.Reason)
	if err != nil {
		h.respondError(ctx, stdCtx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, join)
}

// @Summary Invite a member by email
// @Tags team
// @Router /api/v1/invitations [post]
func (h *TeamHandler) CreateInvitation(ctx *fasthttp.RequestCtx) {
	userID := h.userID(ctx)
	if userID == "" {
		return
	}

	var req transport.InvitationRequest
	if !h.decode(ctx, &req) {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	inv, err := h.uc.CreateInvitation(stdCtx, userID, req.Email)
	if err != nil {
		h.respondError(ctx, stdCtx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusCreated, inv)
}

// @Summary List invitations
// @Tags team
// @Router /api/v1/invitations [get]
func (h *TeamHandler) ListInvitations(ctx *fasthttp.RequestCtx) {
	userID := h.userID(ctx)
	if userID == "" {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	invitations, err := h.uc.ListInvitations(stdCtx, userID, query(ctx, "status"))
	if err != nil {
		h.respondError(ctx, stdCtx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, invitations)
}

// @Summary Check an invitation token
// @Tags team
// @Router /api/v1/invitations/{token} [get]
func (h *TeamHandler) LookupInvitation(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	inv, err := h.uc.LookupInvitation(stdCtx, pathParam(ctx, "token"))
	if err != nil {
		h.respondError(ctx, stdCtx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, inv)
}

// @Summary Accept an invitation and create the member profile
// @Tags team
// @Router /api/v1/invitations/{token}/accept [post]
func (h *TeamHandler) AcceptInvitation(ctx *fasthttp.RequestCtx) {
	var req transport.AcceptInvitationRequest
	if !h.decode(ctx, &req) {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	user, err := h.uc.AcceptInvitation(stdCtx, pathParam(ctx, "token"), req.UserID, req.FullName)
	if err != nil {
		h.respondError(ctx, stdCtx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusCreated, user)
}
