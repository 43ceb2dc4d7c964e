package models

import "gorm.io/gorm"

// Host is the fleet-owner actor record behind a user with the "host" role.
// PayoutAccountRef is the opaque reference the payment gateway needs to
// transfer a claim advance or trip earnings to this host.
type Host struct {
	gorm.Model
	UserID           uint   `json:"user_id" gorm:"index"`
	BusinessName     string `json:"business_name"`
	PayoutAccountRef string `json:"payout_account_ref"`
	Phone            string `json:"phone"`

	Vehicles []Vehicle `gorm:"foreignKey:HostID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL;" json:"vehicles,omitempty"`
}
