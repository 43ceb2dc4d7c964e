package routes

import (
	ginlog "github.com/gin-contrib/logger"
	"github.com/gin-gonic/gin"
)

func SetupRouter() *gin.Engine {
	r := gin.New()

	// Recovery and request logging must be registered before any routes.
	r.Use(gin.Recovery())
	r.Use(ginlog.SetLogger())

	AuthRoutes(r)
	VehicleRoutes(r)
	BookingRoutes(r)
	TripRoutes(r)
	ClaimRoutes(r)
	AdminRoutes(r)

	return r
}
