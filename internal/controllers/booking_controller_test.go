package controllers

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"gari_rentals/internal/booking"
	"gari_rentals/internal/deposit"
	"gari_rentals/internal/models"
	"gari_rentals/internal/testdb"
)

// authAs stands in for the JWT middleware, stamping the context the way
// RequireAuth does.
func authAs(userID uint, role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("user_id", float64(userID))
		c.Set("role", role)
	}
}

func newBookingRouter(t *testing.T, role string) (*gin.Engine, *models.Vehicle, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db := testdb.Open(t)

	vehicle := &models.Vehicle{
		HostID:       1,
		Registration: "KDE 400F",
		Make:         "Honda",
		VehicleModel: "Fit",
		Active:       true,
		MinTripDays:  3,
	}
	require.NoError(t, db.Create(vehicle).Error)

	store := booking.NewStore(db)
	deposits := deposit.NewLedger(db)
	engine := booking.NewEngine(db, store, deposits, nil, booking.Config{
		DepositHoldCents: 50000,
		AllowPastStart:   true,
	})
	Init(engine, store, nil, deposits, nil)

	router := gin.New()
	router.POST("/bookings", authAs(9, role), RequestBooking)
	return router, vehicle, db
}

func TestGuestCannotOverrideMinTripDays(t *testing.T) {
	router, vehicle, _ := newBookingRouter(t, "guest")

	// Two days against a three-day minimum; the guest-supplied override
	// must be ignored.
	body := fmt.Sprintf(`{"vehicle_id": %d, "start_date": "2027-06-01", "end_date": "2027-06-03", "min_trip_days": 1}`, vehicle.ID)
	w := postJSON(router, "/bookings", body)

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "minimum")
}

func TestAdminOverrideOfMinTripDaysHonored(t *testing.T) {
	router, vehicle, db := newBookingRouter(t, "admin")

	body := fmt.Sprintf(`{"vehicle_id": %d, "start_date": "2027-06-01", "end_date": "2027-06-03", "min_trip_days": 1}`, vehicle.ID)
	w := postJSON(router, "/bookings", body)

	assert.Equal(t, http.StatusCreated, w.Code)

	var count int64
	db.Model(&models.Reservation{}).Count(&count)
	assert.Equal(t, int64(1), count)
}
