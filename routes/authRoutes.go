package routes

import (
	"github.com/gin-gonic/gin"

	"civicresolve/controllers"
)

// AuthRoutes exposes the session a bearer token resolves to.
func AuthRoutes(r *gin.Engine, auth gin.HandlerFunc) {
	r.GET("/api/session", auth, controllers.GetSession)
}
