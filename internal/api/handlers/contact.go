package handlers

import (
	"context"
	"net/http"

	"github.com/web3ld/contact-api/internal/api/dto/common"
	"github.com/web3ld/contact-api/internal/api/dto/v1/contact"
	"github.com/web3ld/contact-api/internal/api/validation"
	"github.com/web3ld/contact-api/internal/config"
	"github.com/web3ld/contact-api/internal/logging"
	"github.com/web3ld/contact-api/internal/ratelimit"
	"github.com/web3ld/contact-api/internal/service"
	"github.com/web3ld/contact-api/internal/utils"

	"github.com/gin-gonic/gin"
)

// backdoorRemaining is the sentinel quota reported for backdoor
// submissions. It never touches the persisted rate-limit record.
const backdoorRemaining = 999

// Verifier checks a human-presence token for a client IP.
type Verifier interface {
	Verify(ctx context.Context, token, remoteIP string) bool
}

// Dispatcher sends a validated submission to the email provider.
type Dispatcher interface {
	Send(ctx context.Context, data *contact.ContactRequest) service.DispatchResult
}

type ContactHandler struct {
	cfg        *config.Config
	verifier   Verifier
	dispatcher Dispatcher
	limiter    ratelimit.Limiter
}

func NewContactHandler(cfg *config.Config, verifier Verifier, dispatcher Dispatcher, limiter ratelimit.Limiter) *ContactHandler {
	return &ContactHandler{
		cfg:        cfg,
		verifier:   verifier,
		dispatcher: dispatcher,
		limiter:    limiter,
	}
}

// Submit runs one submission end to end: config check, validation,
// backdoor branch, verification, rate limit, dispatch.
func (h *ContactHandler) Submit(c *gin.Context) {
	logger := logging.GetLogger()

	if missing := h.cfg.MissingKeys(); len(missing) > 0 {
		if h.cfg.DevMode() {
			utils.HandleSuccess(c, common.NewSuccessResponse("Dev mode - Form received successfully"))
			return
		}
		logger.Error("missing configuration: %v", missing)
		utils.HandleError(c, http.StatusInternalServerError,
			common.NewErrorResponse("Server configuration error", nil))
		return
	}

	var data contact.ContactRequest
	if err := c.ShouldBindJSON(&data); err != nil {
		utils.HandleError(c, http.StatusBadRequest,
			common.NewErrorResponse("Validation failed", validation.FormatValidationError(err)))
		return
	}

	logger.Info("form submission from: %s name: %s", data.Email, data.Name)

	clientIP := utils.GetRealIP(c)

	if h.cfg.DevMode() {
		logger.Info("dev mode - skipping verification and email send")
		utils.HandleSuccess(c, common.NewSuccessResponse("Dev mode - Form received successfully"))
		return
	}

	isBackdoor := h.cfg.BackdoorContactKey != "" && data.TurnstileToken == h.cfg.BackdoorContactKey

	result := ratelimit.Result{Allowed: true, Remaining: backdoorRemaining}
	if isBackdoor {
		logger.Info("backdoor key detected - bypassing verification and rate limit")
	} else {
		if !h.verifier.Verify(c.Request.Context(), data.TurnstileToken, clientIP) {
			utils.HandleError(c, http.StatusBadRequest,
				common.NewErrorResponse("Verification failed", nil))
			return
		}

		var err error
		result, err = h.limiter.Check(c.Request.Context(), clientIP)
		if err != nil {
			utils.HandleAPIError(c, err, http.StatusInternalServerError, "Internal server error", nil)
			return
		}
		if !result.Allowed {
			logger.Warn("rate limit exceeded for IP: %s", clientIP)
			resp := common.NewErrorResponse("Too many requests. Please try again after 24 hours.", nil)
			resp.Remaining = common.Remaining(result.Remaining)
			utils.HandleError(c, http.StatusTooManyRequests, resp)
			return
		}
	}

	// The send is detached from request cancellation: a client abort
	// must not leave the provider in an ambiguous half-sent state.
	dispatch := h.dispatcher.Send(context.WithoutCancel(c.Request.Context()), &data)
	if !dispatch.Success {
		errMsg := dispatch.Error
		if errMsg == "" {
			errMsg = "Failed to send email"
		}
		utils.HandleError(c, http.StatusInternalServerError,
			common.NewErrorResponse(errMsg, dispatch.Details))
		return
	}

	logger.Info("email sent successfully, messageId: %s", dispatch.MessageID)
	utils.HandleSuccess(c, common.SuccessResponse{
		Success:   true,
		Message:   "Message sent successfully",
		MessageID: dispatch.MessageID,
		Remaining: common.Remaining(result.Remaining),
	})
}
