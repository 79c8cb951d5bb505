package handler

import (
	"context"
	"net/http"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/crm/api/transport"
	"github.com/fastygo/crm/domain"
	"github.com/fastygo/crm/pkg/httpcontext"
	"github.com/fastygo/crm/repository"
	taskUC "github.com/fastygo/crm/usecase/task"
)

type TaskHandler struct {
	baseHandler
	uc *taskUC.UseCase
}

func NewTaskHandler(uc *taskUC.UseCase, adapter *httpcontext.Adapter, logger *zap.Logger) *TaskHandler {
	return &TaskHandler{
		baseHandler: newBaseHandler(adapter, logger),
		uc:          uc,
	}
}

// @Summary List tasks
// @Tags tasks
// @Router /api/v1/tasks [get]
func (h *TaskHandler) GetTasks(ctx *fasthttp.RequestCtx) {
	userID := h.userID(ctx)
	if userID == "" {
		return
	}

	filter := repository.TaskFilter{
		AssignedTo:      query(ctx, "assigned_to"),
		AssignedBy:      query(ctx, "assigned_by"),
		Status:          query(ctx, "status"),
		Acceptance:      query(ctx, "acceptance_status"),
		RelatedLeadID:   query(ctx, "related_lead_id"),
		RelatedClientID: query(ctx, "related_client_id"),
		Limit:           parseInt(query(ctx, "limit"), 50),
		Offset:          parseInt(query(ctx, "offset"), 0),
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	tasks, err := h.uc.ListTasks(stdCtx, userID, filter)
	if err != nil {
		h.respondError(ctx, stdCtx, err)
		return
	}
	h.respondPage(ctx, tasks, transport.PageMeta{Limit: filter.Limit, Offset: filter.Offset, Count: len(tasks)})
}

// @Summary Tasks awaiting the caller's acceptance
// @Tags tasks
// @Router /api/v1/tasks/pending [get]
func (h *TaskHandler) PendingAcceptance(ctx *fasthttp.RequestCtx) {
	userID := h.userID(ctx)
	if userID == "" {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	tasks, err := h.uc.ListPendingAcceptance(stdCtx, userID)
	if err != nil {
		h.respondError(ctx, stdCtx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, tasks)
}

// @Summary Get task
// @Tags tasks
// @Router /api/v1/tasks/{id} [get]
func (h *TaskHandler) GetTask(ctx *fasthttp.RequestCtx) {
	userID := h.userID(ctx)
	if userID == "" {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	task, err := h.uc.GetTask(stdCtx, userID, pathParam(ctx, "id"))
	if err != nil {
		h.respondError(ctx, stdCtx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, task)
}

// @Summary Create task
// @Tags tasks
// @Router /api/v1/tasks [post]
func (h *TaskHandler) CreateTask(ctx *fasthttp.RequestCtx) {
	userID := h.userID(ctx)
	if userID == "" {
		return
	}

	var req transport.TaskCreateRequest
	if !h.decode(ctx, &req) {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	created, err := h.uc.CreateTask(stdCtx, userID, req.Draft())
	if err != nil {
		h.respondError(ctx, stdCtx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusCreated, created)
}

// @Summary Accept task
// @Tags tasks
// @Router /api/v1/tasks/{id}/accept [post]
func (h *TaskHandler) Accept(ctx *fasthttp.RequestCtx) {
	h.transition(ctx, func(uc *taskUC.UseCase, stdCtx context.Context, userID, id string) (*domain.Task, error) {
		return uc.AcceptTask(stdCtx, userID, id)
	})
}

// @Summary Decline task
// @Tags tasks
// @Router /api/v1/tasks/{id}/decline [post]
func (h *TaskHandler) Decline(ctx *fasthttp.RequestCtx) {
	var req transport.DeclineRequest
	if len(ctx.PostBody()) > 0 && !h.decode(ctx, &req) {
		return
	}
	h.transition(ctx, func(uc *taskUC.UseCase, stdCtx context.Context, userID, id string) (*domain.Task, error) {
		return uc.DeclineTask(stdCtx, userID, id, req.Reason)
	})
}

// @Summary Start task
// @Tags tasks
// @Router /api/v1/tasks/{id}/start [post]
func (h *TaskHandler) Start(ctx *fasthttp.RequestCtx) {
	h.transition(ctx, func(uc *taskUC.UseCase, stdCtx context.Context, userID, id string) (*domain.Task, error) {
		return uc.StartTask(stdCtx, userID, id)
	})
}

// @Summary Complete task
// @Tags tasks
// @Router /api/v1/tasks/{id}/complete [post]
func (h *TaskHandler) Complete(ctx *fasthttp.RequestCtx) {
	var req transport.CompleteRequest
	if len(ctx.PostBody()) > 0 && !h.decode(ctx, &req) {
		return
	}
	h.transition(ctx, func(uc *taskUC.UseCase, stdCtx context.Context, userID, id string) (*domain.Task, error) {
		return uc.CompleteTask(stdCtx, userID, id, req.Note)
	})
}

// @Summary Request a revision of a completed task
// @Tags tasks
// @Router /api/v1/tasks/{id}/revision [post]
func (h *TaskHandler) RequestRevision(ctx *fasthttp.RequestCtx) {
	userID := h.userID(ctx)
	if userID == "" {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	revision, err := h.uc.RequestRevision(stdCtx, userID, pathParam(ctx, "id"))
	if err != nil {
		h.respondError(ctx, stdCtx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusCreated, revision)
}

// @Summary Delete task
// @Tags tasks
// @Router /api/v1/tasks/{id} [delete]
func (h *TaskHandler) DeleteTask(ctx *fasthttp.RequestCtx) {
	userID := h.userID(ctx)
	if userID == "" {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	if err := h.uc.DeleteTask(stdCtx, userID, pathParam(ctx, "id")); err != nil {
		h.respondError(ctx, stdCtx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusNoContent, nil)
}

// @Summary List task comments
// @Tags tasks
// @Router /api/v1/tasks/{id}/comments [get]
func (h *TaskHandler) ListComments(ctx *fasthttp.RequestCtx) {
	userID := h.userID(ctx)
	if userID == "" {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	comments, err := h.uc.ListComments(stdCtx, userID, pathParam(ctx, "id"))
	if err != nil {
		h.respondError(ctx, stdCtx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, comments)
}

// @Summary Comment on a completed task
// @Tags tasks
// @Router /api/v1/tasks/{id}/comments [post]
func (h *TaskHandler) AddComment(ctx *fasthttp.RequestCtx) {
	userID := h.userID(ctx)
	if userID == "" {
		return
	}

	var req transport.CommentRequest
	if !h.decode(ctx, &req) {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	comment, err := h.uc.AddComment(stdCtx, userID, pathParam(ctx, "id"), req.Comment)
	if err != nil {
		h.respondError(ctx, stdCtx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusCreated, comment)
}

// @Summary Delete a task comment
// @Tags tasks
// @Router /api/v1/comments/{id} [delete]
func (h *TaskHandler) DeleteComment(ctx *fasthttp.RequestCtx) {
	userID := h.userID(ctx)
	if userID == "" {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	if err := h.uc.DeleteComment(stdCtx, userID, pathParam(ctx, "id")); err != nil {
		h.respondError(ctx, stdCtx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusNoContent, nil)
}

func (h *TaskHandler) transition(ctx *fasthttp.RequestCtx, fn func(uc *taskUC.UseCase, stdCtx context.Context, userID, id string) (*domain.Task, error)) {
	userID := h.userID(ctx)
	if userID == "" {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	task, err := fn(h.uc, stdCtx, userID, pathParam(ctx, "id"))
	if err != nil {
		h.respondError(ctx, stdCtx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, task)
}
