package models

import "time"

// SpinRecord is the append-only audit entry of one committed gacha spin.
// It is written in the same transaction as the balance debit.
type SpinRecord struct {
	ID            string    `gorm:"primaryKey;type:uuid" json:"id"`
	UserAddress   string    `gorm:"index;not null;type:varchar(64)" json:"user_id"`
	Tier          Tier      `gorm:"type:varchar(16);not null" json:"tier"`
	Cost          int64     `gorm:"not null" json:"cost"`
	BalanceBefore int64     `gorm:"not null" json:"balance_before"`
	BalanceAfter  int64     `gorm:"not null" json:"balance_after"`
	Roll          float64   `gorm:"not null" json:"roll"` // draw in [0,100)
	CreatedAt     time.Time `gorm:"index;not null" json:"created_at"`
}
