package apiv1

import (
	"github.com/gofiber/fiber/v2"

	"github.com/fieldpass/fieldpass/internal/pkg/middleware"
)

// RegisterHandlers mounts the v1 routes. Everything except ping and the plan
// catalog requires an API key.
func RegisterHandlers(router fiber.Router, s *APIServer) {
	router.Get("/ping", s.GetPing)
	router.Get("/plans", s.GetPlans)
	router.Get("/billing/plans", s.GetPlans)

	authed := router.Group("", middleware.APIKeyAuthMiddleware())
	authed.Get("/account", s.GetAccount)
	authed.Get("/academy", s.GetAcademy)
	authed.Get("/subscription", s.GetSubscription)
	authed.Post("/billing/upgrade", s.PostBillingUpgrade)
	authed.Post("/billing/cancel", s.PostBillingCancel)
	authed.Post("/billing/renew", s.PostBillingRenew)
	authed.Get("/billing/history", s.GetBillingHistory)
	authed.Post("/billing/sync", s.PostBillingSync)
	authed.Get("/billing/consistency", s.GetBillingConsistency)
	authed.Post("/billing/payments/:id/process", s.PostBillingPaymentProcess)
	authed.Get("/players", s.GetPlayers)
	authed.Post("/players", s.PostPlayer)
	authed.Get("/players/:uuid", s.GetPlayer)
	authed.Get("/transfers", s.GetTransfers)
	authed.Get("/documents", s.GetDocuments)
	authed.Get("/ledger", s.GetLedger)
	authed.Get("/finance/summary", s.GetFinanceSummary)
}
