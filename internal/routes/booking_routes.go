package routes

import (
	"gari_rentals/internal/controllers"
	"gari_rentals/internal/middleware"

	"github.com/gin-gonic/gin"
)

func BookingRoutes(r *gin.Engine) {
	bookings := r.Group("/bookings")
	bookings.Use(middleware.RequireAuth())
	{
		bookings.POST("/", controllers.RequestBooking)
		bookings.POST("/:id/cancel", controllers.CancelBooking)
		bookings.POST("/:id/status", controllers.AdvanceBooking)
		bookings.GET("/:id/deposit", controllers.GetDeposit)
	}
}
