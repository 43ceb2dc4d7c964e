package routes

import (
	"gari_rentals/internal/controllers"
	"gari_rentals/internal/middleware"

	"github.com/gin-gonic/gin"
)

func VehicleRoutes(r *gin.Engine) {
	// Availability preview is public: guests browse before signing up.
	r.GET("/vehicles/:id/availability", controllers.CheckAvailability)

	vehicle := r.Group("/vehicles")
	vehicle.Use(middleware.RequireAuthWithRole("host"))
	{
		vehicle.POST("/", controllers.CreateVehicle)
		vehicle.GET("/", controllers.GetMyVehicles)
		vehicle.PUT("/:id", controllers.UpdateVehicle)
		vehicle.PATCH("/:id/maintenance-hold", controllers.SetMaintenanceHold)
		vehicle.DELETE("/:id", controllers.DeleteVehicle)
		vehicle.POST("/:id/service-records", controllers.RecordServiceRecord)
	}
}
