package middleware

import (
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"glow-backend-go/internal/config"
)

// CORSMiddleware allows the configured client origins. CLIENT_URL may hold a
// comma-separated list.
func CORSMiddleware(appConfig *config.Config) gin.HandlerFunc {
	if appConfig == nil || appConfig.ClientURL == "" {
		// Refuse to start without an allowed origin.
		panic("ClientURL for CORS is not configured")
	}

	// Split CLIENT_URL into trimmed origins.
	var origins []string
	for _, o := range strings.Split(appConfig.ClientURL, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}

	return cors.New(cors.Config{
		AllowOrigins: origins,

		// Methods used by the records and billing routes.
		AllowMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},

		// "Authorization" carries the Firebase ID token.
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Requested-With", RequestIDHeader},

		// Expose the request ID to the client.
		ExposeHeaders: []string{"Content-Length", RequestIDHeader},

		AllowCredentials: true,

		// How long browsers may cache a preflight result.
		MaxAge: 12 * time.Hour,
	})
}
