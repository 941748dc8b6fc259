// Package handler contains the gin handlers of the HTTP API.
package handler

import (
	"net/http"

	"copro-smart-go/internal/apperr"
	"copro-smart-go/internal/middleware"
	"copro-smart-go/internal/model"
	"copro-smart-go/pkg/log"
	"copro-smart-go/pkg/token"

	"github.com/gin-gonic/gin"
)

const internalErrorMessage = "internal server error"

// success writes the standard envelope.
func success(c *gin.Context, status int, message string, data interface{}) {
	c.JSON(status, gin.H{
		"code":    status,
		"message": message,
		"data":    data,
	})
}

// fail maps err to a status and writes the envelope. In release mode the
// message of server errors is not shown to the client.
func fail(c *gin.Context, err error) {
	status := apperr.HTTPStatus(err)
	message := apperr.PublicMessage(err)
	if status >= http.StatusInternalServerError {
		log.Errorf("[Handler] %s %s failed: %v", c.Request.Method, c.FullPath(), err)
		if gin.Mode() == gin.ReleaseMode {
			message = internalErrorMessage
		}
	}
	c.JSON(status, gin.H{
		"code":    status,
		"message": message,
		"data":    nil,
	})
}

// badRequest reports a binding error.
func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{
		"code":    http.StatusBadRequest,
		"message": message,
		"data":    nil,
	})
}

// currentUser returns the user stored by the auth middleware.
func currentUser(c *gin.Context) *model.User {
	v, ok := c.Get(middleware.ContextUserKey)
	if !ok {
		return nil
	}
	user, _ := v.(*model.User)
	return user
}

func currentClaims(c *gin.Context) *token.CustomClaims {
	v, ok := c.Get(middleware.ContextClaimsKey)
	if !ok {
		return nil
	}
	claims, _ := v.(*token.CustomClaims)
	return claims
}

// requireUser is currentUser for routes behind the auth middleware. It
// writes a 401 and returns nil when no user is present.
func requireUser(c *gin.Context) *model.User {
	user := currentUser(c)
	if user == nil {
		fail(c, apperr.Unauthorized("authentication required"))
	}
	return user
}
