package controllers

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetClientIPPrefersCloudflareHeader(t *testing.T) {
	app := fiber.New()
	var got string
	app.Get("/", func(c *fiber.Ctx) error {
		got = GetClientIP(c)
		return c.SendString("ok")
	})

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("CF-Connecting-IP", "203.0.113.7")
	req.Header.Set("X-Forwarded-For", "198.51.100.1")

	_, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, "203.0.113.7", got)
}

func TestGetClientIPUsesFirstForwardedFor(t *testing.T) {
	app := fiber.New()
	var got string
	app.Get("/", func(c *fiber.Ctx) error {
		got = GetClientIP(c)
		return c.SendString("ok")
	})

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("X-Forwarded-For", "198.51.100.1, 10.0.0.5")

	_, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, "198.51.100.1", got)
}

func TestParsePaginationBounds(t *testing.T) {
	app := fiber.New()
	var offset, limit int
	app.Get("/", func(c *fiber.Ctx) error {
		offset, limit = parsePagination(c)
		return c.SendString("ok")
	})

	_, err := app.Test(httptest.NewRequest("GET", "/?offset=-5&limit=9999", nil))
	require.NoError(t, err)
	assert.Equal(t, 0, offset)
	assert.Equal(t, 200, limit)

	_, err = app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)
	assert.Equal(t, 0, offset)
	assert.Equal(t, 50, limit)
}

func TestJsonErrorShape(t *testing.T) {
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		return jsonError(c, fiber.StatusTeapot, "teapot", "I'm a teapot")
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusTeapot, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var decoded map[string]string
	require.NoError(t, json.Unmarshal(body, &decoded))
	assert.Equal(t, "teapot", decoded["error"])
	assert.Equal(t, "I'm a teapot", decoded["message"])
}
