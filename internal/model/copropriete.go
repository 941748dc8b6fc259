package model

import (
	"time"

	"gorm.io/gorm"
)

// Copropriete is a co-owned building managed by a user.
type Copropriete struct {
	ID           string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	Name         string    `gorm:"type:varchar(255);not null" json:"name"`
	Address      string    `gorm:"type:varchar(255);not null" json:"address"`
	Description  string    `gorm:"type:text" json:"description"`
	Units        int       `gorm:"not null;default:0" json:"units"`
	AdvisorName  string    `gorm:"type:varchar(255)" json:"advisor_name"`
	AdvisorEmail string    `gorm:"type:varchar(255)" json:"advisor_email"`
	AdvisorPhone string    `gorm:"type:varchar(30)" json:"advisor_phone"`
	UserID       string    `gorm:"type:varchar(36);index;not null" json:"user_id"`
	User         *User     `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Copropriete) TableName() string {
	return "coproprietes"
}

func (c *Copropriete) BeforeCreate(*gorm.DB) error {
	assignID(&c.ID)
	return nil
}

const (
	ResidentOwner  = "owner"
	ResidentTenant = "tenant"
	ResidentBoth   = "both"
)

// Resident lives in, or owns a unit of, a copropriete.
type Resident struct {
	ID           string       `gorm:"type:varchar(36);primaryKey" json:"id"`
	FirstName    string       `gorm:"type:varchar(100);not null" json:"firstName"`
	LastName     string       `gorm:"type:varchar(100);not null" json:"lastName"`
	Email        string       `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	Phone        string       `gorm:"type:varchar(30)" json:"phone"`
	Apartment    string       `gorm:"type:varchar(50)" json:"apartment"`
	ProfileImage string       `gorm:"type:varchar(512)" json:"profileImage"`
	CopropertyID string       `gorm:"type:varchar(36);index;not null" json:"copropertyId"`
	Copropriete  *Copropriete `gorm:"foreignKey:CopropertyID;constraint:OnDelete:CASCADE" json:"-"`
	Status       string       `gorm:"type:varchar(20);not null;default:tenant" json:"status"`
	MoveInDate   *time.Time   `json:"moveInDate,omitempty"`
	Notes        string       `gorm:"type:text" json:"notes"`
	CreatedAt    time.Time    `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt    time.Time    `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (Resident) TableName() string {
	return "residents"
}

func (r *Resident) BeforeCreate(*gorm.DB) error {
	assignID(&r.ID)
	if r.Status == "" {
		r.Status = ResidentTenant
	}
	return nil
}

// ValidResidentStatus reports whether s is a known resident status.
func ValidResidentStatus(s string) bool {
	return s == ResidentOwner || s == ResidentTenant || s == ResidentBoth
}
