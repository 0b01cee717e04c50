package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kythia/questapi/internal/api/middleware"
	"github.com/kythia/questapi/internal/core/auth"
)

type AuthHandler struct {
	authService *auth.Service
}

func NewAuthHandler(authService *auth.Service) *AuthHandler {
	return &AuthHandler{authService: authService}
}

type IssueTokenRequest struct {
	Subject string `json:"subject" binding:"required"`
}

// IssueToken exchanges an already authenticated admin credential for a
// fresh bearer token.
func (h *AuthHandler) IssueToken(c *gin.Context) {
	var req IssueTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "status": http.StatusBadRequest})
		return
	}

	resp, err := h.authService.IssueToken(req.Subject)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to issue token", "status": http.StatusInternalServerError})
		return
	}

	c.JSON(http.StatusCreated, resp)
}

func (h *AuthHandler) Me(c *gin.Context) {
	subject, ok := middleware.GetAdminSubject(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "status": http.StatusUnauthorized})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"subject":     subject,
		"auth_method": middleware.GetAuthMethod(c),
	})
}
