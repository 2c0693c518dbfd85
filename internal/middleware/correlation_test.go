package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/eduwork-api/internal/observability"
)

func correlationApp() *fiber.App {
	app := fiber.New()
	app.Use(CorrelationID())
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"local":   GetCorrelationID(c),
			"context": observability.CorrelationID(c.UserContext()),
		})
	})
	return app
}

func TestCorrelationIDKeepsCallerValue(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderCorrelationID, "grading-run-42")

	resp, err := correlationApp().Test(req)
	require.NoError(t, err)
	require.Equal(t, "grading-run-42", resp.Header.Get(HeaderCorrelationID))

	var body map[string]string
	require.NoError(t, decodeJSON(resp, &body))
	require.Equal(t, "grading-run-42", body["local"])
	require.Equal(t, "grading-run-42", body["context"])
}

func TestCorrelationIDFallsBackToRequestID(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "req-7")

	resp, err := correlationApp().Test(req)
	require.NoError(t, err)
	require.Equal(t, "req-7", resp.Header.Get(HeaderCorrelationID))
}

func TestCorrelationIDReplacesUnsafeValues(t *testing.T) {
	for _, raw := range []string{strings.Repeat("a", 200), "two words"} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(HeaderCorrelationID, raw)

		resp, err := correlationApp().Test(req)
		require.NoError(t, err)
		got := resp.Header.Get(HeaderCorrelationID)
		require.NotEqual(t, raw, got)
		require.Len(t, got, 36)
	}
}
