package controllers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"gari_rentals/internal/middleware"
	"gari_rentals/internal/models"
)

const dateLayout = "2006-01-02"

type bookingInput struct {
	VehicleID   uint   `json:"vehicle_id" binding:"required"`
	StartDate   string `json:"start_date" binding:"required"`
	EndDate     string `json:"end_date" binding:"required"`
	MinTripDays int    `json:"min_trip_days"`
}

// RequestBooking runs the admission engine for the authenticated guest.
func RequestBooking(c *gin.Context) {
	var input bookingInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid booking input: " + err.Error()})
		return
	}

	start, end, ok := parseRange(c, input.StartDate, input.EndDate)
	if !ok {
		return
	}

	guestID := middleware.UserID(c)

	// Only hosts and admins may override a vehicle's minimum trip length;
	// a guest-supplied value is ignored.
	override := input.MinTripDays
	if role := middleware.Role(c); role != "host" && role != "admin" {
		override = 0
	}

	result, err := Admission.RequestBooking(c.Request.Context(), guestID, input.VehicleID, start, end, override)
	if err != nil {
		respondError(c, err)
		return
	}

	if result.Accepted {
		c.JSON(http.StatusCreated, gin.H{
			"reservation_id": result.ReservationID,
			"status":         models.ReservationPending,
		})
		return
	}

	c.JSON(http.StatusConflict, gin.H{
		"reason":         result.Reason,
		"conflicts":      conflictRanges(result.Conflicts),
		"next_available": formatDate(result.NextAvailable),
	})
}

// CheckAvailability is the read-only admission preview.
func CheckAvailability(c *gin.Context) {
	vehicleID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid vehicle id"})
		return
	}

	start, end, ok := parseRange(c, c.Query("start"), c.Query("end"))
	if !ok {
		return
	}

	result, err := Admission.CheckAvailability(c.Request.Context(), uint(vehicleID), start, end)
	if err != nil {
		respondError(c, err)
		return
	}

	resp := gin.H{"available": result.Accepted}
	if !result.Accepted {
		resp["reason"] = result.Reason
		resp["conflicts"] = conflictRanges(result.Conflicts)
		resp["next_available"] = formatDate(result.NextAvailable)
	}
	c.JSON(http.StatusOK, resp)
}

// CancelBooking cancels a reservation and releases the unclaimed deposit.
func CancelBooking(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid reservation id"})
		return
	}

	r, err := Admission.CancelBooking(c.Request.Context(), uint(id))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reservation": r})
}

// AdvanceBooking moves a reservation to the next lifecycle state
// (confirmed, active, completed).
func AdvanceBooking(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid reservation id"})
		return
	}

	var input struct {
		Status models.ReservationStatus `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "status is required"})
		return
	}

	var r *models.Reservation
	if input.Status == models.ReservationCompleted {
		r, err = Admission.CompleteBooking(c.Request.Context(), uint(id))
	} else {
		r, err = Intervals.Advance(c.Request.Context(), uint(id), input.Status)
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reservation": r})
}

// GetDeposit returns a reservation's deposit balance and audit trail.
func GetDeposit(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid reservation id"})
		return
	}

	dep, adjustments, err := Deposits.Get(c.Request.Context(), uint(id))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deposit": dep, "adjustments": adjustments})
}

func parseRange(c *gin.Context, startStr, endStr string) (time.Time, time.Time, bool) {
	start, err := time.ParseInLocation(dateLayout, startStr, time.UTC)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "start date must be YYYY-MM-DD"})
		return time.Time{}, time.Time{}, false
	}
	end, err := time.ParseInLocation(dateLayout, endStr, time.UTC)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "end date must be YYYY-MM-DD"})
		return time.Time{}, time.Time{}, false
	}
	return start, end, true
}

func conflictRanges(conflicts []models.Reservation) []gin.H {
	out := make([]gin.H, 0, len(conflicts))
	for _, r := range conflicts {
		out = append(out, gin.H{
			"reservation_id": r.ID,
			"start_date":     formatDate(r.StartDate),
			"end_date":       formatDate(r.EndDate),
		})
	}
	return out
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(dateLayout)
}
