package handler

import (
	"net/http"

	"copro-smart-go/internal/service"
	"copro-smart-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// AuthHandler serves sign-up, sign-in and token endpoints.
type AuthHandler struct {
	authService service.AuthService
}

func NewAuthHandler(authService service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// RefreshTokenRequest carries a refresh token.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// NextAuthTokenRequest is the body of the NextAuth refresh alias.
type NextAuthTokenRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

func (h *AuthHandler) Signup(c *gin.Context) {
	var req service.SignupInput
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warnf("[AuthHandler] invalid signup payload: %v", err)
		badRequest(c, "username, email and password are required")
		return
	}
	res, err := h.authService.Signup(c.Request.Context(), req)
	if err != nil {
		fail(c, err)
		return
	}
	success(c, http.StatusCreated, "User registered successfully", res)
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "email and password are required")
		return
	}
	res, err := h.authService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		log.Warnf("[AuthHandler] login failed for %s: %v", req.Email, err)
		fail(c, err)
		return
	}
	success(c, http.StatusOK, "Login successful", res)
}

// Refresh rotates the refresh token.
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req RefreshTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "refresh_token is required")
		return
	}
	res, err := h.authService.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		fail(c, err)
		return
	}
	success(c, http.StatusOK, "Token refreshed successfully", res)
}

// Token is the refresh endpoint used by NextAuth clients.
func (h *AuthHandler) Token(c *gin.Context) {
	var req NextAuthTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "refreshToken is required")
		return
	}
	res, err := h.authService.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		fail(c, err)
		return
	}
	success(c, http.StatusOK, "Token refreshed successfully", gin.H{
		"accessToken":  res.AccessToken,
		"refreshToken": res.RefreshToken,
		"expiresIn":    res.ExpiresIn,
	})
}

// Logout revokes the refresh token and blacklists the calling access token.
func (h *AuthHandler) Logout(c *gin.Context) {
	var req RefreshTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "refresh_token is required")
		return
	}
	if err := h.authService.Logout(c.Request.Context(), req.RefreshToken, currentClaims(c)); err != nil {
		fail(c, err)
		return
	}
	if user := currentUser(c); user != nil {
		log.Infof("[AuthHandler] user %s logged out", user.ID)
	}
	success(c, http.StatusOK, "Logged out successfully", nil)
}

func (h *AuthHandler) Google(c *gin.Context) {
	var req service.GoogleLoginInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid google authentication payload")
		return
	}
	res, err := h.authService.GoogleLogin(c.Request.Context(), req)
	if err != nil {
		fail(c, err)
		return
	}
	success(c, http.StatusOK, "Login successful", res)
}

// Me returns the authenticated user.
func (h *AuthHandler) Me(c *gin.Context) {
	user := requireUser(c)
	if user == nil {
		return
	}
	success(c, http.StatusOK, "success", user)
}
