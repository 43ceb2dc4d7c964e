package routes

import (
	"gari_rentals/internal/controllers"
	"gari_rentals/internal/middleware"

	"github.com/gin-gonic/gin"
)

func ClaimRoutes(r *gin.Engine) {
	claims := r.Group("/claims")
	claims.Use(middleware.RequireAuthWithRole("host", "admin"))
	{
		claims.POST("/", controllers.FileClaim)
		claims.GET("/:id", controllers.GetClaim)
		claims.POST("/:id/cancel", controllers.CancelClaim)
	}

	// Review and settlement are back-office only.
	review := r.Group("/claims")
	review.Use(middleware.RequireAuthWithRole("admin"))
	{
		review.POST("/:id/approve", controllers.ApproveClaim)
		review.POST("/:id/reject", controllers.RejectClaim)
		review.POST("/:id/payout", controllers.PayoutClaim)
		review.POST("/:id/waive-recovery", controllers.WaiveClaimRecovery)
	}
}
