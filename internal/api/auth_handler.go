package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"scan2cal/calendar-app/internal/service"
)

// AuthHandler exchanges an identity-provider sign-in for an API token.
type AuthHandler struct {
	accountService service.AccountService
}

func NewAuthHandler(accountService service.AccountService) *AuthHandler {
	return &AuthHandler{accountService: accountService}
}

// SignIn godoc
// @Summary Sign in through the identity bridge
// @Description Upserts the account by provider subject and returns a JWT. Requires the bridge secret header.
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body service.SignInRequest true "Provider sign-in result"
// @Success 200 {object} service.SignInResult
// @Failure 400 {object} gin.H "Invalid input"
// @Failure 401 {object} gin.H "Missing or wrong bridge secret"
// @Router /auth/signin [post]
func (h *AuthHandler) SignIn(c *gin.Context) {
	var req service.SignInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	res, err := h.accountService.SignIn(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
