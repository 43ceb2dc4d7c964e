package controllers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"gari_rentals/internal/mileage"
	"gari_rentals/internal/models"
)

// RecordTripMileage records a start or end odometer reading. A consistent
// reading answers {"status": "ok"}; a suspicious one still records and
// answers with the anomaly.
func RecordTripMileage(c *gin.Context) {
	reservationID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid reservation id"})
		return
	}

	var input struct {
		// Pointer so a genuine zero reading still binds.
		OdometerKm *int64        `json:"odometer_km" binding:"required"`
		Phase      mileage.Phase `json:"phase" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid mileage input: " + err.Error()})
		return
	}

	anomaly, err := Mileage.RecordTripMileage(c.Request.Context(), uint(reservationID), *input.OdometerKm, input.Phase)
	if err != nil {
		respondError(c, err)
		return
	}

	if anomaly == nil {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "anomaly", "anomaly": anomaly})
}

// GetTripUsage returns the recorded odometer readings for a reservation.
func GetTripUsage(c *gin.Context) {
	reservationID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid reservation id"})
		return
	}

	trip, err := Mileage.TripUsage(c.Request.Context(), uint(reservationID))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"trip_usage": trip})
}

// RecordServiceRecord files a maintenance entry for one of the host's
// vehicles and cross-checks its mileage against trip usage.
func RecordServiceRecord(c *gin.Context) {
	vehicle, ok := ownedVehicle(c)
	if !ok {
		return
	}

	var input struct {
		ServiceType string `json:"service_type" binding:"required"`
		Description string `json:"description"`
		MileageKm   int64  `json:"mileage_km" binding:"required"`
		ServicedAt  string `json:"serviced_at"`
		CostCents   int64  `json:"cost_cents"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid service record input: " + err.Error()})
		return
	}

	servicedAt := time.Now()
	if input.ServicedAt != "" {
		t, err := time.ParseInLocation(dateLayout, input.ServicedAt, time.UTC)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "serviced_at must be YYYY-MM-DD"})
			return
		}
		servicedAt = t
	}

	rec := models.ServiceRecord{
		VehicleID:   vehicle.ID,
		ServiceType: input.ServiceType,
		Description: input.Description,
		MileageKm:   input.MileageKm,
		ServicedAt:  servicedAt,
		CostCents:   input.CostCents,
	}

	anomaly, err := Mileage.RecordService(c.Request.Context(), &rec)
	if err != nil {
		respondError(c, err)
		return
	}

	resp := gin.H{"service_record": rec}
	if anomaly != nil {
		resp["anomaly"] = anomaly
	}
	c.JSON(http.StatusCreated, resp)
}
