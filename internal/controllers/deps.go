package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"gari_rentals/internal/booking"
	"gari_rentals/internal/claims"
	"gari_rentals/internal/deposit"
	"gari_rentals/internal/fault"
	"gari_rentals/internal/mileage"
)

// Engine handles wired once at startup, next to the global config.DB.
var (
	Admission *booking.Engine
	Intervals *booking.Store
	Mileage   *mileage.Ledger
	Deposits  *deposit.Ledger
	Claims    *claims.Engine
)

// Init wires the engines the handlers delegate to.
func Init(adm *booking.Engine, store *booking.Store, ml *mileage.Ledger, dl *deposit.Ledger, cl *claims.Engine) {
	Admission = adm
	Intervals = store
	Mileage = ml
	Deposits = dl
	Claims = cl
}

// respondError maps the domain error taxonomy onto HTTP statuses.
func respondError(c *gin.Context, err error) {
	switch {
	case fault.IsValidation(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case fault.IsConflict(err), fault.IsStateMismatch(err):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case fault.IsInvariant(err):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
