package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"gari_rentals/internal/config"
	"gari_rentals/internal/middleware"
	"gari_rentals/internal/models"
)

// CreateVehicle lets a host add a vehicle to their fleet.
func CreateVehicle(c *gin.Context) {
	var input struct {
		Registration string `json:"registration" binding:"required"`
		Make         string `json:"make" binding:"required"`
		VehicleModel string `json:"vehicle_model" binding:"required"`
		Year         int    `json:"year"`
		MinTripDays  int    `json:"min_trip_days"`
		OdometerKm   int64  `json:"odometer_km"`
	}

	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid vehicle input: " + err.Error()})
		return
	}

	host, ok := hostForUser(c)
	if !ok {
		return
	}

	if input.MinTripDays < 1 {
		input.MinTripDays = 1
	}

	vehicle := models.Vehicle{
		HostID:       host.ID,
		Registration: input.Registration,
		Make:         input.Make,
		VehicleModel: input.VehicleModel,
		Year:         input.Year,
		MinTripDays:  input.MinTripDays,
		OdometerKm:   input.OdometerKm,
		Active:       true,
	}

	if err := config.DB.Create(&vehicle).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create vehicle: " + err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"vehicle": vehicle})
}

func GetMyVehicles(c *gin.Context) {
	host, ok := hostForUser(c)
	if !ok {
		return
	}

	var vehicles []models.Vehicle
	if err := config.DB.Where("host_id = ?", host.ID).Find(&vehicles).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error fetching vehicles"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"vehicles": vehicles})
}

// ListVehicles is for administrative use.
func ListVehicles(c *gin.Context) {
	var vehicles []models.Vehicle
	if err := config.DB.Find(&vehicles).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error listing vehicles: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": vehicles})
}

// UpdateVehicle edits listing fields on a vehicle the host owns. The active
// flag is not editable here: claim-driven deactivation is owned by the
// settlement engine.
func UpdateVehicle(c *gin.Context) {
	vehicle, ok := ownedVehicle(c)
	if !ok {
		return
	}

	var input struct {
		Make         string `json:"make"`
		VehicleModel string `json:"vehicle_model"`
		Year         int    `json:"year"`
		MinTripDays  int    `json:"min_trip_days"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid update"})
		return
	}

	if input.Make != "" {
		vehicle.Make = input.Make
	}
	if input.VehicleModel != "" {
		vehicle.VehicleModel = input.VehicleModel
	}
	if input.Year != 0 {
		vehicle.Year = input.Year
	}
	if input.MinTripDays > 0 {
		vehicle.MinTripDays = input.MinTripDays
	}

	config.DB.Save(vehicle)
	c.JSON(http.StatusOK, gin.H{"vehicle": vehicle})
}

// SetMaintenanceHold toggles the maintenance hold flag; held vehicles are
// rejected by the admission engine.
func SetMaintenanceHold(c *gin.Context) {
	vehicle, ok := ownedVehicle(c)
	if !ok {
		return
	}

	var input struct {
		MaintenanceHold *bool `json:"maintenance_hold" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "maintenance_hold is required"})
		return
	}

	vehicle.MaintenanceHold = *input.MaintenanceHold
	if err := config.DB.Save(vehicle).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update vehicle: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"vehicle": vehicle})
}

func DeleteVehicle(c *gin.Context) {
	vehicle, ok := ownedVehicle(c)
	if !ok {
		return
	}

	config.DB.Delete(vehicle)
	c.JSON(http.StatusOK, gin.H{"message": "Vehicle deleted"})
}

func hostForUser(c *gin.Context) (*models.Host, bool) {
	userID := middleware.UserID(c)

	var host models.Host
	if err := config.DB.Where("user_id = ?", userID).First(&host).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusForbidden, gin.H{"error": "No host record for this user"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error: " + err.Error()})
		}
		return nil, false
	}
	return &host, true
}

func ownedVehicle(c *gin.Context) (*models.Vehicle, bool) {
	host, ok := hostForUser(c)
	if !ok {
		return nil, false
	}

	var vehicle models.Vehicle
	if err := config.DB.Where("id = ? AND host_id = ?", c.Param("id"), host.ID).First(&vehicle).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Vehicle not found"})
		return nil, false
	}
	return &vehicle, true
}
