package router

import (
	"github.com/fasthttp/router"
	"github.com/valyala/fasthttp"

	apiHandler "github.com/fastygo/crm/api/handler"
)

type Handlers struct {
	Auth    *apiHandler.AuthHandler
	Profile *apiHandler.ProfileHandler
	Task    *apiHandler.TaskHandler
	Lead    *apiHandler.LeadHandler
	Client  *apiHandler.ClientHandler
	Finance *apiHandler.FinanceHandler
	Team    *apiHandler.TeamHandler
	Changes *apiHandler.ChangesHandler
	Health  *apiHandler.HealthHandler
}

func New(handlers Handlers, authMiddleware func(fasthttp.RequestHandler) fasthttp.RequestHandler) *router.Router {
	r := router.New()

	r.GET("/health", handlers.Health.Check)

	v1 := r.Group("/api/v1")

	// Public routes
	v1.POST("/auth/login", handlers.Auth.Login)
	v1.POST("/join-requests", handlers.Team.SubmitJoinRequest)
	v1.GET("/invitations/{token}", handlers.Team.LookupInvitation)
	v1.POST("/invitations/{token}/accept", handlers.Team.AcceptInvitation)

	// Protected routes
	v1.POST("/auth/refresh", authMiddleware(handlers.Auth.Refresh))
	v1.POST("/auth/logout", authMiddleware(handlers.Auth.Logout))

	v1.GET("/profile", authMiddleware(handlers.Profile.GetProfile))
	v1.PUT("/profile", authMiddleware(handlers.Profile.UpdateProfile))
	v1.POST("/profile/devices", authMiddleware(handlers.Profile.RegisterDevice))
	v1.DELETE("/profile/devices/{token}", authMiddleware(handlers.Profile.UnregisterDevice))
	v1.GET("/profiles", authMiddleware(handlers.Profile.ListProfiles))
	v1.GET("/profiles/{id}", authMiddleware(handlers.Profile.GetMember))
	v1.POST("/profiles/{id}/deactivate", authMiddleware(handlers.Profile.Deactivate))

	v1.GET("/tasks", authMiddleware(handlers.Task.GetTasks))
	v1.POST("/tasks", authMiddleware(handlers.Task.CreateTask))
	v1.GET("/tasks/pending", authMiddleware(handlers.Task.PendingAcceptance))
	v1.GET("/tasks/{id}", authMiddleware(handlers.Task.GetTask))
	v1.DELETE("/tasks/{id}", authMiddleware(handlers.Task.DeleteTask))
	v1.POST("/tasks/{id}/accept", authMiddleware(handlers.Task.Accept))
	v1.POST("/tasks/{id}/decline", authMiddleware(handlers.Task.Decline))
	v1.POST("/tasks/{id}/start", authMiddleware(handlers.Task.Start))
	v1.POST("/tasks/{id}/complete", authMiddleware(handlers.Task.Complete))
	v1.POST("/tasks/{id}/revision", authMiddleware(handlers.Task.RequestRevision))
	v1.GET("/tasks/{id}/comments", authMiddleware(handlers.Task.ListComments))
	v1.POST("/tasks/{id}/comments", authMiddleware(handlers.Task.AddComment))
	v1.DELETE("/comments/{id}", authMiddleware(handlers.Task.DeleteComment))

	v1.GET("/leads", authMiddleware(handlers.Lead.ListLeads))
	v1.POST("/leads", authMiddleware(handlers.Lead.CreateLead))
	v1.GET("/leads/{id}", authMiddleware(handlers.Lead.GetLead))
	v1.PATCH("/leads/{id}", authMiddleware(handlers.Lead.UpdateLead))
	v1.DELETE("/leads/{id}", authMiddleware(handlers.Lead.DeleteLead))
	v1.GET("/leads/{id}/history", authMiddleware(handlers.Lead.History))
	v1.POST("/leads/{id}/calls", authMiddleware(handlers.Lead.LogCall))
	v1.POST("/leads/{id}/call-done", authMiddleware(handlers.Lead.MarkCallDone))
	v1.POST("/leads/{id}/called", authMiddleware(handlers.Lead.QuickMarkCalled))
	v1.POST("/leads/{id}/no-response", authMiddleware(handlers.Lead.NoResponse))
	v1.POST("/leads/{id}/convert", authMiddleware(handlers.Lead.Convert))

	v1.GET("/clients", authMiddleware(handlers.Client.ListClients))
	v1.POST("/clients", authMiddleware(handlers.Client.CreateClient))
	v1.GET("/clients/{id}", authMiddleware(handlers.Client.GetClient))
	v1.DELETE("/clients/{id}", authMiddleware(handlers.Client.DeleteClient))
	v1.PUT("/clients/{id}/status", authMiddleware(handlers.Client.UpdateStatus))
	v1.PUT("/clients/{id}/financials", authMiddleware(handlers.Client.UpdateFinancials))
	v1.POST("/clients/{id}/deliver", authMiddleware(handlers.Client.Deliver))
	v1.POST("/clients/{id}/projects", authMiddleware(handlers.Client.NewProject))

	v1.GET("/income", authMiddleware(handlers.Client.ListIncome))
	v1.GET("/finance/summary", authMiddleware(handlers.Finance.Summary))

	v1.GET("/promotions", authMiddleware(handlers.Team.ListPromotions))
	v1.POST("/promotions", authMiddleware(handlers.Team.RequestPromotion))
	v1.POST("/promotions/{id}/votes", authMiddleware(handlers.Team.Vote))
	v1.GET("/join-requests", authMiddleware(handlers.Team.ListJoinRequests))
	v1.POST("/join-requests/{id}/approve", authMiddleware(handlers.Team.ApproveJoinRequest))
	v1.POST("/join-requests/{id}/reject", authMiddleware(handlers.Team.RejectJoinRequest))
	v1.GET("/invitations", authMiddleware(handlers.Team.ListInvitations))
	v1.POST("/invitations", authMiddleware(handlers.Team.CreateInvitation))

	v1.GET("/changes", authMiddleware(handlers.Changes.Stream))

	return r
}
