package models

import (
	"time"

	"gorm.io/datatypes"
)

// UserAccount is the point balance and cube inventory of one wallet.
// Address is the checksummed wallet address and the primary key.
type UserAccount struct {
	Address       string            `gorm:"primaryKey;type:varchar(64)" json:"address"`
	Email         string            `gorm:"type:varchar(320);not null;default:''" json:"email"`
	SocialHandles datatypes.JSONMap `json:"social_handles"` // e.g. {"x": "", "discord": ""}
	Points        int64             `gorm:"not null;default:0;check:points >= 0" json:"points"`
	Cubes         CubeCounts        `gorm:"embedded" json:"cubes"`

	// Version is bumped on every write; conditional updates compare it.
	Version int64 `gorm:"not null;default:1" json:"version"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewUserAccount returns the zero-balance record written on first sight of a wallet.
func NewUserAccount(address, email string, now time.Time) *UserAccount {
	return &UserAccount{
		Address: address,
		Email:   email,
		SocialHandles: datatypes.JSONMap{
			"x":       "",
			"discord": "",
		},
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Clone returns a deep copy so callers can mutate without touching shared state.
func (a *UserAccount) Clone() *UserAccount {
	if a == nil {
		return nil
	}
	cp := *a
	if a.SocialHandles != nil {
		cp.SocialHandles = make(datatypes.JSONMap, len(a.SocialHandles))
		for k, v := range a.SocialHandles {
			cp.SocialHandles[k] = v
		}
	}
	return &cp
}

// AccountSnapshot is what observers of an account receive after a committed change.
type AccountSnapshot struct {
	Address   string     `json:"address"`
	Points    int64      `json:"points"`
	Cubes     CubeCounts `json:"cubes"`
	Version   int64      `json:"version"`
	UpdatedAt time.Time  `json:"updated_at"`
}

func (a *UserAccount) Snapshot() AccountSnapshot {
	return AccountSnapshot{
		Address:   a.Address,
		Points:    a.Points,
		Cubes:     a.Cubes,
		Version:   a.Version,
		UpdatedAt: a.UpdatedAt,
	}
}
