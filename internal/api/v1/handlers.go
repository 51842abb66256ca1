package apiv1

import (
	"github.com/gofiber/fiber/v2"

	// Delegate to existing controllers to keep behavior consistent
	"github.com/fieldpass/fieldpass/app/controllers"
)

// APIServer implements the public v1 API surface.
type APIServer struct{}

// NewAPIServer creates a new API server instance
func NewAPIServer() *APIServer {
	return &APIServer{}
}

// Pong is the ping response body.
type Pong struct {
	Ping string `json:"ping"`
}

// GetPing handles the ping endpoint
func (s *APIServer) GetPing(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(Pong{Ping: "pong"})
}

// GetAccount returns account information for the authenticated API key user.
func (s *APIServer) GetAccount(c *fiber.Ctx) error {
	return controllers.HandleGetMe(c)
}

// GetAcademy returns the academy profile with usage and limits.
func (s *APIServer) GetAcademy(c *fiber.Ctx) error {
	return controllers.HandleGetAcademy(c)
}

// GetPlans returns the public plan catalog.
func (s *APIServer) GetPlans(c *fiber.Ctx) error {
	return controllers.HandleListPlans(c)
}

// GetSubscription returns the academy's active subscription.
func (s *APIServer) GetSubscription(c *fiber.Ctx) error {
	return controllers.HandleGetSubscription(c)
}

// GetPlayers lists the academy's players.
func (s *APIServer) GetPlayers(c *fiber.Ctx) error {
	return controllers.HandleListPlayers(c)
}

// GetPlayer returns one player by UUID.
func (s *APIServer) GetPlayer(c *fiber.Ctx) error {
	return controllers.HandleGetPlayer(c)
}

// PostPlayer registers a player.
func (s *APIServer) PostPlayer(c *fiber.Ctx) error {
	return controllers.HandleCreatePlayer(c)
}

// PostBillingUpgrade moves the academy to a different plan.
func (s *APIServer) PostBillingUpgrade(c *fiber.Ctx) error {
	return controllers.HandleUpgrade(c)
}

// PostBillingCancel cancels the academy's current subscription.
func (s *APIServer) PostBillingCancel(c *fiber.Ctx) error {
	return controllers.HandleCancelCurrentSubscription(c)
}

// PostBillingRenew renews the academy's current subscription.
func (s *APIServer) PostBillingRenew(c *fiber.Ctx) error {
	return controllers.HandleRenewCurrentSubscription(c)
}

// GetBillingHistory returns the audit trail of the current subscription.
func (s *APIServer) GetBillingHistory(c *fiber.Ctx) error {
	return controllers.HandleCurrentSubscriptionHistory(c)
}

// PostBillingSync queues a reconciliation run for the academy.
func (s *APIServer) PostBillingSync(c *fiber.Ctx) error {
	return controllers.HandleTriggerSync(c)
}

// GetBillingConsistency runs a read-only provider consistency check.
func (s *APIServer) GetBillingConsistency(c *fiber.Ctx) error {
	return controllers.HandleConsistencyCheck(c)
}

// PostBillingPaymentProcess approves or rejects a pending cash payment.
func (s *APIServer) PostBillingPaymentProcess(c *fiber.Ctx) error {
	return controllers.HandleProcessCashPayment(c)
}

// GetTransfers lists the academy's transfers.
func (s *APIServer) GetTransfers(c *fiber.Ctx) error {
	return controllers.HandleListTransfers(c)
}

// GetDocuments lists the academy's compliance documents.
func (s *APIServer) GetDocuments(c *fiber.Ctx) error {
	return controllers.HandleListDocuments(c)
}

// GetLedger lists ledger entries.
func (s *APIServer) GetLedger(c *fiber.Ctx) error {
	return controllers.HandleListLedgerEntries(c)
}

// GetFinanceSummary aggregates ledger entries per category.
func (s *APIServer) GetFinanceSummary(c *fiber.Ctx) error {
	return controllers.HandleFinanceSummary(c)
}
