package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/fieldpass/fieldpass/app/controllers"
	"github.com/fieldpass/fieldpass/internal/pkg/middleware"
	"github.com/fieldpass/fieldpass/internal/pkg/oauth"
	"github.com/fieldpass/fieldpass/internal/pkg/session"
)

type HttpRouter struct {
}

func (h HttpRouter) InstallRouter(app *fiber.App) {
	// init session
	session.NewSessionStore()

	// init oauth providers
	oauth.Setup()

	// Apply UserContext middleware globally as first middleware
	app.Use(middleware.UserContextMiddleware)

	h.registerPublicRoutes(app)
	h.registerAccountRoutes(app)
	h.registerAcademyRoutes(app)
	h.registerBillingRoutes(app)
}

func NewHttpRouter() *HttpRouter {
	return &HttpRouter{}
}

// registerPublicRoutes mounts everything reachable without a session.
func (h HttpRouter) registerPublicRoutes(app *fiber.App) {
	app.Post("/register", controllers.HandleRegister)
	app.Post("/login", controllers.HandleLogin)
	app.Post("/logout", controllers.HandleLogout)

	// OAuth login (Google, Facebook, Microsoft)
	app.Get("/auth/:provider", controllers.HandleOAuthBegin)
	app.Get("/auth/:provider/callback", controllers.HandleOAuthCallback)
	app.Get("/auth/logout", controllers.HandleOAuthLogout)

	app.Get("/plans", controllers.HandleListPlans)

	// Billing provider webhooks authenticate via signature, not session
	app.Post("/webhooks/billing", controllers.HandleBillingWebhook)

	// Document uploads authenticate via signed upload token
	app.Post("/documents/upload", controllers.HandleUploadDocument)
}

// registerAccountRoutes mounts per-user account management.
func (h HttpRouter) registerAccountRoutes(app *fiber.App) {
	account := app.Group("/account", middleware.RequireAPISessionAuth)
	account.Get("/", controllers.HandleGetMe)
	account.Put("/password", controllers.HandleChangePassword)
	account.Post("/api-key", controllers.HandleIssueAPIKey)
	account.Delete("/api-key", controllers.HandleRevokeAPIKey)
}

// registerAcademyRoutes mounts the tenant-scoped academy management surface.
func (h HttpRouter) registerAcademyRoutes(app *fiber.App) {
	academy := app.Group("/academy", middleware.RequireAPISessionAuth, middleware.RequireAcademy)
	academy.Get("/", controllers.HandleGetAcademy)
	academy.Put("/", controllers.HandleUpdateAcademy)
	academy.Get("/staff", controllers.HandleListStaff)
	academy.Post("/staff", middleware.RequireAPIAdmin, controllers.HandleCreateStaff)

	players := app.Group("/players", middleware.RequireAPISessionAuth, middleware.RequireAcademy)
	players.Get("/", controllers.HandleListPlayers)
	players.Post("/", controllers.HandleCreatePlayer)
	players.Get("/:uuid", controllers.HandleGetPlayer)
	players.Put("/:uuid", controllers.HandleUpdatePlayer)
	players.Delete("/:uuid", controllers.HandleDeletePlayer)
	players.Post("/:uuid/photo", controllers.HandleUploadPlayerPhoto)

	transfers := app.Group("/transfers", middleware.RequireAPISessionAuth, middleware.RequireAcademy)
	transfers.Get("/", controllers.HandleListTransfers)
	transfers.Post("/", controllers.HandleCreateTransfer)
	transfers.Get("/:uuid", controllers.HandleGetTransfer)
	transfers.Post("/:uuid/submit", controllers.HandleSubmitTransfer)
	transfers.Post("/:uuid/complete", controllers.HandleCompleteTransfer)
	transfers.Post("/:uuid/reject", controllers.HandleRejectTransfer)

	documents := app.Group("/documents", middleware.RequireAPISessionAuth, middleware.RequireAcademy)
	documents.Get("/", controllers.HandleListDocuments)
	documents.Post("/upload-token", controllers.HandleIssueUploadToken)
	documents.Get("/:uuid/download", controllers.HandleDownloadDocument)
	documents.Delete("/:uuid", controllers.HandleDeleteDocument)

	finance := app.Group("/finance", middleware.RequireAPISessionAuth, middleware.RequireAcademy)
	finance.Get("/ledger", controllers.HandleListLedgerEntries)
	finance.Post("/ledger", controllers.HandleAppendLedgerEntry)
	finance.Get("/summary", controllers.HandleFinanceSummary)
}

// registerBillingRoutes mounts the subscription management surface.
func (h HttpRouter) registerBillingRoutes(app *fiber.App) {
	billing := app.Group("/billing", middleware.RequireAPISessionAuth, middleware.RequireAcademy)
	billing.Get("/subscription", controllers.HandleGetSubscription)
	billing.Post("/link-customer", controllers.HandleLinkBillingCustomer)
	billing.Post("/upgrade", controllers.HandleUpgrade)
	billing.Post("/sync", controllers.HandleTriggerSync)
	billing.Get("/sync/:id", controllers.HandleGetSyncJob)
	billing.Get("/jobs", middleware.RequireAPIAdmin, controllers.HandleQueueStats)
	billing.Get("/consistency", controllers.HandleConsistencyCheck)

	billing.Get("/subscriptions/:id/history", controllers.HandleListSubscriptionHistory)
	billing.Get("/subscriptions/:id/payments", controllers.HandleListSubscriptionPayments)
	billing.Post("/subscriptions/:id/cancel", controllers.HandleCancelSubscription)
	billing.Post("/subscriptions/:id/renew", controllers.HandleRenewSubscription)
	billing.Post("/subscriptions/:id/payments", controllers.HandleRecordCashPayment)
	billing.Post("/payments/:id/process", middleware.RequireAPIAdmin, controllers.HandleProcessCashPayment)
}
