package controllers

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"gari_rentals/internal/mileage"
	"gari_rentals/internal/models"
	"gari_rentals/internal/testdb"
)

func seedActiveTrip(t *testing.T, db *gorm.DB) *models.Reservation {
	t.Helper()
	vehicle := &models.Vehicle{
		HostID:       1,
		Registration: "KDD 300E",
		Make:         "Nissan",
		VehicleModel: "Note",
		Active:       true,
	}
	require.NoError(t, db.Create(vehicle).Error)

	r := &models.Reservation{
		VehicleID: vehicle.ID,
		GuestID:   7,
		StartDate: time.Date(2027, time.June, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2027, time.June, 4, 0, 0, 0, 0, time.UTC),
		Status:    models.ReservationActive,
	}
	require.NoError(t, db.Create(r).Error)
	return r
}

func postJSON(router *gin.Engine, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestRecordTripMileageAcceptsZeroReading(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := testdb.Open(t)
	r := seedActiveTrip(t, db)
	Init(nil, nil, mileage.NewLedger(db), nil, nil)

	router := gin.New()
	router.POST("/trips/:id/mileage", RecordTripMileage)

	// A factory-new vehicle legitimately reads zero.
	w := postJSON(router, fmt.Sprintf("/trips/%d/mileage", r.ID),
		`{"odometer_km": 0, "phase": "START"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)

	var usage models.TripUsage
	require.NoError(t, db.Where("reservation_id = ?", r.ID).First(&usage).Error)
	require.NotNil(t, usage.StartOdometerKm)
	assert.Zero(t, *usage.StartOdometerKm)
}

func TestRecordTripMileageMissingReadingRejected(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := testdb.Open(t)
	r := seedActiveTrip(t, db)
	Init(nil, nil, mileage.NewLedger(db), nil, nil)

	router := gin.New()
	router.POST("/trips/:id/mileage", RecordTripMileage)

	w := postJSON(router, fmt.Sprintf("/trips/%d/mileage", r.ID), `{"phase": "START"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
