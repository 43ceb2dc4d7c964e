package routes

import (
	"gari_rentals/internal/controllers"
	"gari_rentals/internal/middleware"

	"github.com/gin-gonic/gin"
)

func AdminRoutes(r *gin.Engine) {
	admin := r.Group("admin")
	admin.Use(middleware.RequireAuthWithRole("admin"))
	{
		admin.GET("/vehicles", controllers.ListVehicles)
		admin.GET("/guests", controllers.ListGuests)
		admin.GET("/hosts", controllers.ListHosts)
		admin.GET("/claims", controllers.ListClaims)
	}
}
