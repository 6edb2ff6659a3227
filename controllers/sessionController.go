package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetSession returns the session the bearer token resolves to.
func GetSession(c *gin.Context) {
	sess, ok := session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, sess)
}
