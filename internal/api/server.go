package api

import (
	"io"
	"net/http"

	"github.com/web3ld/contact-api/internal/api/dto/common"
	"github.com/web3ld/contact-api/internal/api/handlers"
	"github.com/web3ld/contact-api/internal/api/middleware"
	"github.com/web3ld/contact-api/internal/config"
	"github.com/web3ld/contact-api/internal/logging"
	"github.com/web3ld/contact-api/internal/ratelimit"

	"github.com/gin-gonic/gin"
)

// Server represents the HTTP server
type Server struct {
	router *gin.Engine
	cfg    *config.Config
}

// NewServer wires middleware and routes. CORS runs first so that every
// response, including panics and 405s, carries the origin policy.
func NewServer(cfg *config.Config, verifier handlers.Verifier, dispatcher handlers.Dispatcher, limiter ratelimit.Limiter) *Server {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	// Disable Gin's default logger entirely because we're using our custom logger
	gin.DisableConsoleColor()
	gin.DefaultWriter = io.Discard

	router := gin.New()

	router.Use(middleware.CORS(cfg.AllowedOrigins))
	router.Use(middleware.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.RateLimitMiddleware(middleware.RateLimitConfig{
		RPS:   cfg.RateLimit.RPS,
		Burst: cfg.RateLimit.Burst,
	}))
	router.Use(middleware.RequestLogger(cfg.Log.LogRequests))

	// Anything but POST/OPTIONS on a submission route is a 405
	router.HandleMethodNotAllowed = true
	router.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, common.NewErrorResponse("Method not allowed", nil))
	})

	contactHandler := handlers.NewContactHandler(cfg, verifier, dispatcher, limiter)
	healthHandler := handlers.NewHealthHandler()

	router.GET("/health", healthHandler.Check)

	// OPTIONS is answered by the CORS middleware before routing matters;
	// the routes exist so preflighted paths resolve.
	for _, path := range []string{"/", "/contact"} {
		router.POST(path, contactHandler.Submit)
		router.OPTIONS(path, func(c *gin.Context) {})
	}

	return &Server{
		router: router,
		cfg:    cfg,
	}
}

// Router exposes the underlying engine for tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Start runs the server until the listener fails.
func (s *Server) Start() error {
	addr := ":" + s.cfg.Port
	logging.GetLogger().Info("listening on %s", addr)
	return s.router.Run(addr)
}
