package utils

import (
	"strings"

	"github.com/gin-gonic/gin"
)

// UnknownIP is the rate-limit key used when no trusted proxy header is
// present. All such clients share one quota bucket.
const UnknownIP = "unknown"

// GetRealIP extracts the client IP from trusted proxy headers, in
// priority order. This is used as the rate-limit key, so the fallback is
// a fixed sentinel rather than the socket address: behind the edge proxy
// the socket address is always the proxy itself.
func GetRealIP(c *gin.Context) string {
	// CF-Connecting-IP is set by the edge for every proxied request
	ip := c.GetHeader("CF-Connecting-IP")
	if ip != "" {
		return ip
	}

	// X-Forwarded-For can be a comma-separated list
	// Format: client, proxy1, proxy2, ...
	// We want the first (leftmost) IP which is the client
	forwardedFor := c.GetHeader("X-Forwarded-For")
	if forwardedFor != "" {
		ips := strings.Split(forwardedFor, ",")
		if clientIP := strings.TrimSpace(ips[0]); clientIP != "" {
			return clientIP
		}
	}

	return UnknownIP
}
