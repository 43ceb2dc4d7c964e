package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"gari_rentals/internal/models"
)

// FileClaim opens a damage claim against a reservation (host action).
func FileClaim(c *gin.Context) {
	var input struct {
		ReservationID      uint   `json:"reservation_id" binding:"required"`
		Type               string `json:"type" binding:"required"`
		Description        string `json:"description"`
		EstimatedCostCents int64  `json:"estimated_cost_cents"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid claim input: " + err.Error()})
		return
	}

	claim, err := Claims.File(c.Request.Context(), input.ReservationID, input.Type, input.Description, input.EstimatedCostCents)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"claim": claim})
}

// ApproveClaim sets the approved amount on a pending claim (admin action).
func ApproveClaim(c *gin.Context) {
	id, ok := claimID(c)
	if !ok {
		return
	}

	var input struct {
		ApprovedCents int64 `json:"approved_cents" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "approved_cents is required"})
		return
	}

	claim, err := Claims.Approve(c.Request.Context(), id, input.ApprovedCents)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"claim": claim})
}

func RejectClaim(c *gin.Context) {
	id, ok := claimID(c)
	if !ok {
		return
	}

	var input struct {
		Reason string `json:"reason" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "reason is required"})
		return
	}

	claim, err := Claims.Reject(c.Request.Context(), id, input.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"claim": claim})
}

func CancelClaim(c *gin.Context) {
	id, ok := claimID(c)
	if !ok {
		return
	}

	claim, err := Claims.Cancel(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"claim": claim})
}

// PayoutClaim settles an approved claim: advance to the host, then guest
// recovery bookkeeping.
func PayoutClaim(c *gin.Context) {
	id, ok := claimID(c)
	if !ok {
		return
	}

	var input struct {
		PaidCents      int64 `json:"paid_cents" binding:"required"`
		RecoveredCents int64 `json:"recovered_cents"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "paid_cents is required"})
		return
	}

	result, err := Claims.Payout(c.Request.Context(), id, input.PaidCents, input.RecoveredCents)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"settlement": result})
}

func WaiveClaimRecovery(c *gin.Context) {
	id, ok := claimID(c)
	if !ok {
		return
	}

	claim, err := Claims.WaiveRecovery(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"claim": claim})
}

func GetClaim(c *gin.Context) {
	id, ok := claimID(c)
	if !ok {
		return
	}

	claim, err := Claims.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"claim": claim})
}

// ListClaims is for administrative review; ?status= filters.
func ListClaims(c *gin.Context) {
	claims, err := Claims.List(c.Request.Context(), models.ClaimStatus(c.Query("status")))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": claims})
}

func claimID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid claim id"})
		return 0, false
	}
	return uint(id), true
}
