package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/newstaq/portal/internal/api/middleware"
	"github.com/newstaq/portal/internal/api/view"
	"github.com/newstaq/portal/internal/core/domain"
	"github.com/newstaq/portal/internal/core/ports"
)

const (
	viewForgotPassword = "forgot_password"
	viewResetPassword  = "reset_password"
)

// RecoveryHandler serves the password recovery pages.
type RecoveryHandler struct {
	recovery ports.PasswordRecovery
}

func NewRecoveryHandler(recovery ports.PasswordRecovery) *RecoveryHandler {
	return &RecoveryHandler{recovery: recovery}
}

type forgotPasswordRequest struct {
	Email string `json:"email" form:"email" validate:"required,email"`
}

type resetPasswordRequest struct {
	Password        string `json:"password" form:"password" validate:"required,min=8"`
	ConfirmPassword string `json:"confirm_password" form:"confirm_password" validate:"required,eqfield=Password"`
}

// ForgotPassword asks the API to send a reset link.
//
// @Summary      Request a password reset
// @Tags         recovery
// @Accept       json,x-www-form-urlencoded
// @Produce      json
// @Param        body  body      forgotPasswordRequest  true  "Account email"
// @Success      200   {object}  view.Page
// @Failure      400   {object}  view.Page
// @Router       /forgot-password [post]
func (h *RecoveryHandler) ForgotPassword(c echo.Context) error {
	p := view.New(viewForgotPassword, middleware.State(c))

	var req forgotPasswordRequest
	if err := c.Bind(&req); err != nil {
		p.Error = "invalid payload"
		return view.Render(c, http.StatusBadRequest, p)
	}
	if err := c.Validate(&req); err != nil {
		p.Error = err.Error()
		return view.Render(c, http.StatusBadRequest, p)
	}

	msg, err := h.recovery.ForgotPassword(c.Request().Context(), req.Email)
	if err != nil {
		p.Error = err.Error()
		return view.Render(c, http.StatusBadRequest, p)
	}
	p.Message = msg
	return view.Render(c, http.StatusOK, p)
}

// ResetPasswordPage checks the reset link before showing the form.
//
// @Summary      Reset password page
// @Tags         recovery
// @Produce      json
// @Param        token  path      string  true  "Reset token"
// @Success      200    {object}  view.Page
// @Router       /reset-password/{token} [get]
func (h *RecoveryHandler) ResetPasswordPage(c echo.Context) error {
	p := view.New(viewResetPassword, middleware.State(c))

	err := h.recovery.VerifyResetToken(c.Request().Context(), c.Param("token"))
	if err != nil {
		p.Error = err.Error()
	}
	p.Data = map[string]bool{"valid": err == nil}
	return view.Render(c, http.StatusOK, p)
}

// ResetPassword sets the new password and sends the browser to the login
// page.
//
// @Summary      Reset the password
// @Tags         recovery
// @Accept       json,x-www-form-urlencoded
// @Produce      json
// @Param        token  path      string                true  "Reset token"
// @Param        body   body      resetPasswordRequest  true  "New password"
// @Success      303
// @Failure      400    {object}  view.Page
// @Router       /reset-password/{token} [post]
func (h *RecoveryHandler) ResetPassword(c echo.Context) error {
	p := view.New(viewResetPassword, middleware.State(c))

	var req resetPasswordRequest
	if err := c.Bind(&req); err != nil {
		p.Error = "invalid payload"
		return view.Render(c, http.StatusBadRequest, p)
	}
	if err := c.Validate(&req); err != nil {
		p.Error = err.Error()
		return view.Render(c, http.StatusBadRequest, p)
	}

	if err := h.recovery.ResetPassword(c.Request().Context(), c.Param("token"), req.Password); err != nil {
		p.Error = err.Error()
		return view.Render(c, http.StatusBadRequest, p)
	}
	return c.Redirect(http.StatusSeeOther, domain.PathLogin)
}
