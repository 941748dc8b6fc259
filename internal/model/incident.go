package model

import (
	"time"

	"gorm.io/gorm"
)

const (
	IncidentUrgent     = "urgent"
	IncidentInProgress = "in_progress"
	IncidentResolved   = "resolved"
)

// IncidentTypes lists the accepted incident categories.
var IncidentTypes = []string{"plumbing", "electrical", "elevator", "common_areas", "complaints", "security", "other"}

// Incident is a problem reported by a resident.
type Incident struct {
	ID            string       `gorm:"type:varchar(36);primaryKey" json:"id"`
	Title         string       `gorm:"type:varchar(150);not null" json:"title"`
	Description   string       `gorm:"type:text;not null" json:"description"`
	Location      string       `gorm:"type:varchar(100);not null" json:"location"`
	Type          string       `gorm:"type:varchar(20);not null;default:other" json:"type"`
	Status        string       `gorm:"type:varchar(20);not null;default:in_progress" json:"status"`
	Urgent        bool         `gorm:"not null;default:false" json:"urgent"`
	Photos        []string     `gorm:"type:text;serializer:json" json:"photos"`
	ResidentID    string       `gorm:"type:varchar(36);index;not null" json:"resident_id"`
	Resident      *Resident    `gorm:"constraint:OnDelete:CASCADE" json:"resident,omitempty"`
	CoproprieteID string       `gorm:"type:varchar(36);index;not null" json:"copropriete_id"`
	Copropriete   *Copropriete `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	ReportedAt    time.Time    `gorm:"autoCreateTime" json:"reported_at"`
	UpdatedAt     time.Time    `gorm:"autoUpdateTime" json:"updated_at"`
	ReportedBy    string       `gorm:"type:varchar(100);not null" json:"reported_by"`
	ResolvedBy    string       `gorm:"type:varchar(100)" json:"resolved_by"`
}

func (Incident) TableName() string {
	return "incidents"
}

func (i *Incident) BeforeCreate(*gorm.DB) error {
	assignID(&i.ID)
	if i.Type == "" {
		i.Type = "other"
	}
	if i.Status == "" {
		i.Status = IncidentInProgress
	}
	if i.Photos == nil {
		i.Photos = []string{}
	}
	return nil
}

// ValidIncidentType reports whether t is one of IncidentTypes.
func ValidIncidentType(t string) bool {
	for _, known := range IncidentTypes {
		if t == known {
			return true
		}
	}
	return false
}

func ValidIncidentStatus(s string) bool {
	return s == IncidentUrgent || s == IncidentInProgress || s == IncidentResolved
}
