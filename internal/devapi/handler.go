package devapi

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/newstaq/portal/internal/core/domain"
)

type Handler struct {
	auth    *AuthService
	catalog *Catalog
}

func NewHandler(auth *AuthService, catalog *Catalog) *Handler {
	return &Handler{auth: auth, catalog: catalog}
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type loginResponse struct {
	Token string             `json:"token"`
	User  domain.UserProfile `json:"user"`
}

type forgotRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type forgotResponse struct {
	Message string `json:"message"`
	// ResetToken is only returned by this development server.
	ResetToken string `json:"reset_token,omitempty"`
}

type resetRequest struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=8"`
}

// Login authenticates a user and returns a JWT with the user profile.
//
// @Summary      Login
// @Tags         devapi
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Login credentials"
// @Success      200   {object}  loginResponse
// @Failure      401   {object}  detailResponse
// @Failure      422   {object}  detailResponse
// @Router       /auth/login [post]
func (h *Handler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, "requête invalide")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	token, user, err := h.auth.Login(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCredentials) {
			return echo.NewHTTPError(http.StatusUnauthorized, "Identifiants incorrects")
		}
		return err
	}

	return c.JSON(http.StatusOK, loginResponse{Token: token, User: user})
}

// Me returns the profile behind the bearer token.
//
// @Summary      Current user
// @Tags         devapi
// @Produce      json
// @Success      200  {object}  domain.UserProfile
// @Failure      401  {object}  detailResponse
// @Router       /auth/me [get]
func (h *Handler) Me(c echo.Context) error {
	p, _ := currentProfile(c)
	return c.JSON(http.StatusOK, p)
}

// DashboardStats returns the summary figures. Clients only ever see their
// own; admins may narrow with ?client_id=.
//
// @Summary      Dashboard statistics
// @Tags         devapi
// @Produce      json
// @Param        client_id  query     string  false  "Client filter (admin only)"
// @Success      200        {object}  Stats
// @Failure      401        {object}  detailResponse
// @Router       /dashboard/stats [get]
func (h *Handler) DashboardStats(c echo.Context) error {
	p, _ := currentProfile(c)
	clientID := c.QueryParam("client_id")
	if p.Role == domain.RoleClient {
		clientID = p.ClientID
	}
	return c.JSON(http.StatusOK, h.catalog.Stats(clientID))
}

// Clients lists the warehouse customers.
//
// @Summary      List clients
// @Tags         devapi
// @Produce      json
// @Success      200  {array}   Client
// @Failure      401  {object}  detailResponse
// @Failure      403  {object}  detailResponse
// @Router       /clients [get]
func (h *Handler) Clients(c echo.Context) error {
	return c.JSON(http.StatusOK, h.catalog.Clients())
}

// ForgotPassword starts a password reset. The answer does not reveal
// whether the email is known.
//
// @Summary      Request a password reset
// @Tags         devapi
// @Accept       json
// @Produce      json
// @Param        body  body      forgotRequest  true  "Account email"
// @Success      200   {object}  forgotResponse
// @Failure      422   {object}  detailResponse
// @Router       /auth/forgot-password [post]
func (h *Handler) ForgotPassword(c echo.Context) error {
	var req forgotRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, "requête invalide")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	ticket := h.auth.RequestReset(c.Request().Context(), req.Email)
	return c.JSON(http.StatusOK, forgotResponse{
		Message:    "Si cet email existe, un lien de réinitialisation a été envoyé",
		ResetToken: ticket,
	})
}

// VerifyResetToken reports whether a reset link is still usable.
//
// @Summary      Verify a reset token
// @Tags         devapi
// @Produce      json
// @Param        token  path      string  true  "Reset token"
// @Success      200    {object}  map[string]bool
// @Failure      400    {object}  detailResponse
// @Router       /auth/verify-reset-token/{token} [get]
func (h *Handler) VerifyResetToken(c echo.Context) error {
	if err := h.auth.VerifyReset(c.Request().Context(), c.Param("token")); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Lien invalide ou expiré")
	}
	return c.JSON(http.StatusOK, map[string]bool{"valid": true})
}

// ResetPassword sets a new password with a reset token.
//
// @Summary      Reset the password
// @Tags         devapi
// @Accept       json
// @Produce      json
// @Param        body  body      resetRequest  true  "Token and new password"
// @Success      200   {object}  map[string]string
// @Failure      400   {object}  detailResponse
// @Failure      422   {object}  detailResponse
// @Router       /auth/reset-password [post]
func (h *Handler) ResetPassword(c echo.Context) error {
	var req resetRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, "requête invalide")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	err := h.auth.ResetPassword(c.Request().Context(), req.Token, req.NewPassword)
	if errors.Is(err, ErrInvalidResetToken) {
		return echo.NewHTTPError(http.StatusBadRequest, "Lien invalide ou expiré")
	}
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "Mot de passe réinitialisé"})
}
