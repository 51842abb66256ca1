package controllers

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/fieldpass/fieldpass/internal/pkg/session"
)

// providerCallBudget bounds every controller-initiated billing provider call.
const providerCallBudget = 20 * time.Second

// planCacheTTL is how long the public plan catalog stays cached in Redis.
const planCacheTTL = 5 * time.Minute

func providerContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), providerCallBudget)
}

// jsonError renders the uniform API error shape.
func jsonError(c *fiber.Ctx, status int, code, message string) error {
	return c.Status(status).JSON(fiber.Map{"error": code, "message": message})
}

func badRequest(c *fiber.Ctx, message string) error {
	return jsonError(c, fiber.StatusBadRequest, "bad_request", message)
}

func unauthorized(c *fiber.Ctx) error {
	return jsonError(c, fiber.StatusUnauthorized, "unauthorized", "Missing or invalid authentication")
}

func forbidden(c *fiber.Ctx, message string) error {
	return jsonError(c, fiber.StatusForbidden, "forbidden", message)
}

func notFound(c *fiber.Ctx, message string) error {
	return jsonError(c, fiber.StatusNotFound, "not_found", message)
}

func conflict(c *fiber.Ctx, message string) error {
	return jsonError(c, fiber.StatusConflict, "conflict", message)
}

func internalError(c *fiber.Ctx, message string) error {
	return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", message)
}

// parsePagination reads offset/limit query params with sane bounds.
func parsePagination(c *fiber.Ctx) (offset, limit int) {
	offset, _ = strconv.Atoi(c.Query("offset", "0"))
	limit, _ = strconv.Atoi(c.Query("limit", "50"))
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}
	return offset, limit
}

// sessionDeleteTier drops the session-cached academy tier. The user context
// middleware re-resolves it from the active subscription on the next request.
func sessionDeleteTier(c *fiber.Ctx) error {
	sess, err := session.GetSessionStore().Get(c)
	if err != nil {
		return err
	}
	sess.Delete("academy_tier")
	return sess.Save()
}

func formatTimePtr(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}

// GetClientIP determines the actual client IP address considering proxies.
// Cloudflare and standard proxy headers take precedence over the socket peer.
func GetClientIP(c *fiber.Ctx) string {
	if cfIP := strings.TrimSpace(c.Get("CF-Connecting-IP")); cfIP != "" {
		return cfIP
	}

	// X-Forwarded-For can contain a list of IPs - the first one is the client
	if xff := c.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		if ip := strings.TrimSpace(parts[0]); ip != "" {
			return ip
		}
	}

	if realIP := strings.TrimSpace(c.Get("X-Real-IP")); realIP != "" {
		return realIP
	}

	ip := c.IP()
	// Unwrap IPv4-mapped-IPv6 addresses (::ffff:192.168.1.1)
	if strings.HasPrefix(ip, "::ffff:") && strings.Contains(ip, ".") {
		return strings.TrimPrefix(ip, "::ffff:")
	}
	return ip
}
