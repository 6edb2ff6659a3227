package routes

import (
	"github.com/gin-gonic/gin"

	"civicresolve/controllers"
)

func ContractorRoutes(r *gin.Engine, cc *controllers.ContractorController, auth gin.HandlerFunc) {
	contractor := r.Group("/api/contractors", auth)
	{
		contractor.POST("", cc.RegisterContractor)
		contractor.GET("/me", cc.GetProfile)
	}

	admin := r.Group("/api/admin/contractors", auth)
	{
		admin.GET("", cc.GetContractors)
		admin.GET("/pending", cc.GetPendingContractors)
		admin.PUT("/:id/approve", cc.ApproveContractor)
		admin.DELETE("/:id", cc.DeleteContractor)
	}
}
