package handlers

import (
	"errors"
	"net/http"

	"smart_environment/internal/service"

	"github.com/gin-gonic/gin"
)

// bcrypt ignores everything past 72 bytes, so longer passwords are refused.
const maxPasswordBytes = 72

// operatorCredentials is the body of both sign-up and sign-in.
type operatorCredentials struct {
	Username string `json:"username" binding:"required,max=64"`
	Password string `json:"password" binding:"required,max=72"`
}

// SignInResponse carries a bearer token for the operator control routes.
type SignInResponse struct {
	Token     string `json:"token"`
	TokenType string `json:"token_type"`
	ExpiresIn int64  `json:"expires_in"`
}

func (h *Handler) bindCredentials(c *gin.Context) (operatorCredentials, bool) {
	var in operatorCredentials
	if err := c.ShouldBindJSON(&in); err != nil {
		if h.log != nil {
			h.log.Infow("auth_bad_request_body", "err", err, "path", c.FullPath())
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBodyPref + err.Error()})
		return in, false
	}
	if len(in.Password) > maxPasswordBytes {
		c.JSON(http.StatusBadRequest, gin.H{"error": "password must be at most 72 bytes"})
		return in, false
	}
	return in, true
}

// @Summary      Register an operator
// @Description  Operators may control polling, read the journal and manage the offline cache.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body   operatorCredentials  true  "Credentials"
// @Success      201   {object}  map[string]interface{}  "id, username"
// @Failure      400   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Failure      500   {object}  map[string]string
// @Router       /auth/sign-up [post]
func (h *Handler) signUp(c *gin.Context) {
	in, ok := h.bindCredentials(c)
	if !ok {
		return
	}

	id, err := h.services.SignUp(c.Request.Context(), in.Username, in.Password)
	switch {
	case err == nil:
		c.JSON(http.StatusCreated, gin.H{"id": id, "username": in.Username})
	case errors.Is(err, service.ErrOperatorExists):
		c.JSON(http.StatusConflict, gin.H{"error": "operator already exists"})
	case errors.Is(err, service.ErrInvalidUsername):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		h.logAndJSONError(c, http.StatusInternalServerError, "failed to register operator", "auth_sign_up_failed", err,
			"username", in.Username)
	}
}

// @Summary      Issue an operator token
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body   operatorCredentials  true  "Credentials"
// @Success      200   {object}  SignInResponse
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      503   {object}  map[string]string
// @Router       /auth/sign-in [post]
func (h *Handler) signIn(c *gin.Context) {
	in, ok := h.bindCredentials(c)
	if !ok {
		return
	}

	token, err := h.services.GenerateToken(c.Request.Context(), in.Username, in.Password)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, SignInResponse{
			Token:     token,
			TokenType: "Bearer",
			ExpiresIn: int64(h.services.TokenTTL().Seconds()),
		})
	case errors.Is(err, service.ErrUserNotFound), errors.Is(err, service.ErrInvalidPassword):
		if h.log != nil {
			h.log.Infow("auth_sign_in_rejected", "username", in.Username)
		}
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
	case errors.Is(err, service.ErrNoSigningKey):
		h.logAndJSONError(c, http.StatusServiceUnavailable, "operator sign-in is disabled", "auth_sign_in_disabled", err)
	default:
		h.logAndJSONError(c, http.StatusInternalServerError, "failed to sign in", "auth_sign_in_failed", err,
			"username", in.Username)
	}
}

// @Summary      Current operator
// @Tags         auth
// @Produce      json
// @Success      200   {object}  map[string]int
// @Failure      401   {object}  map[string]string
// @Router       /api/v1/operator [get]
// @Security     BearerAuth
func (h *Handler) whoAmI(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"operator_id": c.GetInt(operatorCtxKey)})
}
