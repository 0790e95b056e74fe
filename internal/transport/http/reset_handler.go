package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/contarehq/erp-backend/internal/service"
	"github.com/contarehq/erp-backend/internal/util"
)

// ResetHandler exposes the password-reset flow: request a code, then confirm
// it with a new password. Both endpoints are unauthenticated and rate
// limited.
type ResetHandler struct {
	resets     *service.PasswordResetService
	limiter    *RateLimiter
	revealCode bool
}

// NewResetHandler builds the handler. revealCode should only be true outside
// production; it echoes the issued code in the response for diagnostics.
func NewResetHandler(resets *service.PasswordResetService, limiter *RateLimiter, revealCode bool) *ResetHandler {
	return &ResetHandler{resets: resets, limiter: limiter, revealCode: revealCode}
}

func (h *ResetHandler) Register(e *echo.Echo) {
	g := e.Group("/api/v1/auth/password-reset")
	if h.limiter != nil {
		g.Use(h.limiter.Middleware())
	}
	g.POST("/request", h.request)
	g.POST("/confirm", h.confirm)
}

func (h *ResetHandler) request(c echo.Context) error {
	var req PasswordResetRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("invalid request body"))
	}
	if strings.TrimSpace(req.Identifier) == "" {
		return c.JSON(http.StatusBadRequest, util.Error("identifier is required"))
	}

	result, err := h.resets.RequestReset(c.Request().Context(), req.Identifier)
	switch {
	case errors.Is(err, service.ErrUserNotFound):
		return c.JSON(http.StatusNotFound, util.Error(err.Error()))
	case errors.Is(err, service.ErrResetDeliveryFailed):
		// The code is stored and stays valid; the client may retry delivery
		// without a new issuance.
		return c.JSON(http.StatusBadGateway, util.Error(service.ErrResetDeliveryFailed.Error()))
	case err != nil:
		c.Logger().Errorf("request reset: %v", err)
		return c.JSON(http.StatusInternalServerError, util.Error("internal error"))
	}

	resp := PasswordResetResponse{Channel: string(result.Channel)}
	if h.revealCode {
		resp.Code = result.Code
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *ResetHandler) confirm(c echo.Context) error {
	var req PasswordResetConfirmRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("invalid request body"))
	}
	if strings.TrimSpace(req.Identifier) == "" || req.Code == "" || req.NewPassword == "" {
		return c.JSON(http.StatusBadRequest, util.Error("identifier, code and new_password are required"))
	}

	err := h.resets.ConfirmReset(c.Request().Context(), req.Identifier, req.Code, req.NewPassword)
	switch {
	case errors.Is(err, service.ErrUserNotFound):
		return c.JSON(http.StatusNotFound, util.Error(err.Error()))
	case errors.Is(err, service.ErrResetCodeInvalid):
		return c.JSON(http.StatusUnauthorized, util.Error(err.Error()))
	case errors.Is(err, service.ErrResetCodeExpired):
		return c.JSON(http.StatusGone, util.Error(err.Error()))
	case errors.Is(err, service.ErrPasswordTooWeak):
		return c.JSON(http.StatusBadRequest, util.Error(err.Error()))
	case err != nil:
		c.Logger().Errorf("confirm reset: %v", err)
		return c.JSON(http.StatusInternalServerError, util.Error("internal error"))
	}
	return c.JSON(http.StatusOK, SuccessResponse{Success: true})
}
