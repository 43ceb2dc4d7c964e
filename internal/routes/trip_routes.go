package routes

import (
	"gari_rentals/internal/controllers"
	"gari_rentals/internal/middleware"

	"github.com/gin-gonic/gin"
)

func TripRoutes(r *gin.Engine) {
	trips := r.Group("/trips")
	trips.Use(middleware.RequireAuth())
	{
		trips.POST("/:id/mileage", controllers.RecordTripMileage)
		trips.GET("/:id/mileage", controllers.GetTripUsage)
	}
}
