package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// defaultAllowedOrigins is the built-in allow-list. A "*." entry matches
// any https subdomain of that domain (preview deployments).
var defaultAllowedOrigins = []string{
	"https://web3ld.org",
	"https://www.web3ld.org",
	"http://localhost:3000",
	"http://localhost:3001",
	"*.vercel.app",
}

// CORS sets the response CORS headers for every request. A disallowed
// origin gets an empty allow-origin header: the server still processes
// the request, but the browser cannot read the response. Preflight
// requests short-circuit to 204 before any other processing.
func CORS(allowedOrigins []string) gin.HandlerFunc {
	if len(allowedOrigins) == 0 {
		allowedOrigins = defaultAllowedOrigins
	}

	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")

		allowOrigin := ""
		if origin != "" && originAllowed(origin, allowedOrigins) {
			allowOrigin = origin
		}

		header := c.Writer.Header()
		header.Set("Access-Control-Allow-Origin", allowOrigin)
		header.Set("Access-Control-Allow-Methods", "POST, OPTIONS")
		header.Set("Access-Control-Allow-Headers", "Content-Type")
		header.Set("Access-Control-Max-Age", "86400") // 24 hours

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func originAllowed(origin string, allowedOrigins []string) bool {
	for _, allowed := range allowedOrigins {
		allowed = strings.TrimSpace(allowed)
		if strings.HasPrefix(allowed, "*.") {
			// Pattern entries match https subdomains only
			if strings.HasPrefix(origin, "https://") && strings.HasSuffix(origin, allowed[1:]) {
				return true
			}
			continue
		}
		if origin == allowed {
			return true
		}
	}
	return false
}
