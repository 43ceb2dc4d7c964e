package main

import (
	"log"
	"net/http"
	"strconv"

	"gari_rentals/internal/booking"
	"gari_rentals/internal/claims"
	"gari_rentals/internal/config"
	"gari_rentals/internal/controllers"
	"gari_rentals/internal/deposit"
	"gari_rentals/internal/events"
	"gari_rentals/internal/logger"
	"gari_rentals/internal/middleware"
	"gari_rentals/internal/mileage"
	"gari_rentals/internal/notify"
	"gari_rentals/internal/payment"
	"gari_rentals/internal/routes"
)

func main() {
	// Initialize structured logging to file
	logger.Setup()

	// Connect to the database
	config.InitDB()

	// Domain event bus + notification subscriber
	bus := events.NewBus(256)
	stopNotify := notify.Start(bus)
	defer func() {
		bus.Close()
		stopNotify()
	}()

	// Core engines
	db := config.GetDB()
	deposits := deposit.NewLedger(db)
	store := booking.NewStore(db)
	admission := booking.NewEngine(db, store, deposits, bus, booking.Config{
		DepositHoldCents: envInt64("DEPOSIT_HOLD_CENTS", 50000),
		AllowPastStart:   config.GetEnv("ALLOW_PAST_START", "false") == "true",
	})
	mileageLedger := mileage.NewLedger(db)
	// TODO: swap the fake gateway for the PSP client once the payouts API
	// contract is finalized.
	settlement := claims.NewEngine(db, deposits, payment.NewFakeGateway(), bus)

	controllers.Init(admission, store, mileageLedger, deposits, settlement)

	// Setup Gin router
	r := routes.SetupRouter()

	// Wrap with CORS
	handler := middleware.EnableCORS(r)

	log.Println("🚀 Server running at :8080")
	log.Fatal(http.ListenAndServe("0.0.0.0:8080", handler))
}

func envInt64(key string, fallback int64) int64 {
	raw := config.GetEnv(key, "")
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		log.Printf("invalid %s=%q, using default %d", key, raw, fallback)
		return fallback
	}
	return v
}
