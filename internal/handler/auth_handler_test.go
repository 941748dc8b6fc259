package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"copro-smart-go/internal/apperr"
	"copro-smart-go/internal/middleware"
	"copro-smart-go/internal/service"
	"copro-smart-go/pkg/token"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func authRouter(svc service.AuthService) *gin.Engine {
	h := NewAuthHandler(svc)
	r := newRouter(testUser)
	r.POST("/auth/signup", h.Signup)
	r.POST("/auth/login", h.Login)
	r.POST("/auth/refresh", h.Refresh)
	r.POST("/auth/token", h.Token)
	r.POST("/auth/logout", func(c *gin.Context) {
		c.Set(middleware.ContextClaimsKey, &token.CustomClaims{UserID: testUser.ID})
		c.Next()
	}, h.Logout)
	r.GET("/auth/me", h.Me)
	return r
}

func TestLogin(t *testing.T) {
	svc := &mockAuthService{
		LoginFunc: func(_ context.Context, email, password string) (*service.AuthResult, error) {
			if email == "marie@example.fr" && password == "Secret123" {
				return &service.AuthResult{AccessToken: "a", RefreshToken: "r", ExpiresIn: 3600, User: testUser}, nil
			}
			return nil, apperr.Unauthorized("invalid email or password")
		},
	}
	r := authRouter(svc)

	t.Run("success", func(t *testing.T) {
		w := doJSON(r, http.MethodPost, "/auth/login", gin.H{"email": "marie@example.fr", "password": "Secret123"})
		require.Equal(t, http.StatusOK, w.Code)

		var res service.AuthResult
		require.NoError(t, json.Unmarshal(decode(t, w).Data, &res))
		assert.Equal(t, "a", res.AccessToken)
		assert.Equal(t, "r", res.RefreshToken)
		assert.Equal(t, testUser.ID, res.User.ID)
	})

	t.Run("bad credentials", func(t *testing.T) {
		w := doJSON(r, http.MethodPost, "/auth/login", gin.H{"email": "marie@example.fr", "password": "nope"})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		env := decode(t, w)
		assert.Equal(t, http.StatusUnauthorized, env.Code)
		assert.Equal(t, "invalid email or password", env.Message)
	})

	t.Run("missing fields", func(t *testing.T) {
		w := doJSON(r, http.MethodPost, "/auth/login", gin.H{"email": "marie@example.fr"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestSignupConflict(t *testing.T) {
	svc := &mockAuthService{
		SignupFunc: func(context.Context, service.SignupInput) (*service.AuthResult, error) {
			return nil, apperr.Conflict("email already registered")
		},
	}
	w := doJSON(authRouter(svc), http.MethodPost, "/auth/signup", gin.H{
		"username": "marie", "email": "marie@example.fr", "password": "Secret123",
	})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestTokenAliasUsesCamelCase(t *testing.T) {
	var got string
	svc := &mockAuthService{
		RefreshFunc: func(_ context.Context, refreshToken string) (*service.AuthResult, error) {
			got = refreshToken
			return &service.AuthResult{AccessToken: "a2", RefreshToken: "r2", ExpiresIn: 3600}, nil
		},
	}
	w := doJSON(authRouter(svc), http.MethodPost, "/auth/token", gin.H{"refreshToken": "r1"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "r1", got)

	var data map[string]interface{}
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &data))
	assert.Equal(t, "a2", data["accessToken"])
	assert.Equal(t, "r2", data["refreshToken"])
	assert.EqualValues(t, 3600, data["expiresIn"])
}

func TestRefreshRequiresSnakeCaseField(t *testing.T) {
	svc := &mockAuthService{}
	w := doJSON(authRouter(svc), http.MethodPost, "/auth/refresh", gin.H{"refreshToken": "r1"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLogoutPassesClaims(t *testing.T) {
	var claims *token.CustomClaims
	svc := &mockAuthService{
		LogoutFunc: func(_ context.Context, refreshToken string, c *token.CustomClaims) error {
			claims = c
			return nil
		},
	}
	w := doJSON(authRouter(svc), http.MethodPost, "/auth/logout", gin.H{"refresh_token": "r1"})
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, claims)
	assert.Equal(t, testUser.ID, claims.UserID)
}

func TestMe(t *testing.T) {
	w := doJSON(authRouter(&mockAuthService{}), http.MethodGet, "/auth/me", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(decode(t, w).Data), testUser.Email)
}
