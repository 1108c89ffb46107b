package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
)

// CORS restricts cross-origin access to the configured origins. Preflight
// requests get 204 with no body.
func CORS(allowed []string) fiber.Handler {
	origins := make(map[string]struct{}, len(allowed))
	for _, origin := range allowed {
		origins[normalizeOrigin(origin)] = struct{}{}
	}

	return cors.New(cors.Config{
		AllowOriginsFunc: func(origin string) bool {
			_, ok := origins[normalizeOrigin(origin)]
			return ok
		},
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Content-Type,Authorization," + AdminKeyHeader,
		MaxAge:       600,
	})
}

func normalizeOrigin(origin string) string {
	return strings.ToLower(strings.TrimRight(strings.TrimSpace(origin), "/"))
}
