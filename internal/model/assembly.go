package model

import (
	"time"

	"gorm.io/gorm"
)

const (
	DecisionApproved  = "approved"
	DecisionRejected  = "rejected"
	DecisionPostponed = "postponed"
)

// Assembly is a general meeting of a copropriete.
type Assembly struct {
	ID            string             `gorm:"type:varchar(36);primaryKey" json:"id"`
	Date          time.Time          `gorm:"not null;index" json:"date"`
	Type          string             `gorm:"type:varchar(20);not null" json:"type"`
	Status        string             `gorm:"type:varchar(20);not null" json:"status"`
	Title         string             `gorm:"type:varchar(255)" json:"title"`
	Location      string             `gorm:"type:varchar(255)" json:"location"`
	Minutes       string             `gorm:"type:text" json:"minutes"`
	CoproprietyID string             `gorm:"type:varchar(36);index;not null" json:"copropriety_id"`
	Agenda        []AgendaItem       `gorm:"constraint:OnDelete:CASCADE" json:"agenda"`
	Decisions     []Decision         `gorm:"constraint:OnDelete:CASCADE" json:"decisions"`
	Documents     []AssemblyDocument `gorm:"constraint:OnDelete:CASCADE" json:"documents"`
	Attendees     []Attendee         `gorm:"constraint:OnDelete:CASCADE" json:"attendees"`
	CreatedAt     time.Time          `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time          `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Assembly) TableName() string {
	return "assemblies"
}

func (a *Assembly) BeforeCreate(*gorm.DB) error {
	assignID(&a.ID)
	return nil
}

// AgendaItem is one point on an assembly's agenda.
type AgendaItem struct {
	ID           string  `gorm:"type:varchar(36);primaryKey" json:"id"`
	AssemblyID   string  `gorm:"type:varchar(36);index;not null" json:"assembly_id"`
	Order        int     `gorm:"column:item_order;not null;default:0" json:"order"`
	Title        string  `gorm:"type:varchar(255);not null" json:"title"`
	Description  string  `gorm:"type:text" json:"description"`
	RequiresVote bool    `gorm:"not null;default:false" json:"requiresVote"`
	Status       string  `gorm:"type:varchar(20);not null;default:pending" json:"status"`
	VoteType     *string `gorm:"type:varchar(10)" json:"voteType"`
}

func (AgendaItem) TableName() string {
	return "agenda_items"
}

func (i *AgendaItem) BeforeCreate(*gorm.DB) error {
	assignID(&i.ID)
	if i.Status == "" {
		i.Status = "pending"
	}
	return nil
}

// Decision records the outcome of a vote.
type Decision struct {
	ID           string  `gorm:"type:varchar(36);primaryKey" json:"id"`
	AssemblyID   string  `gorm:"type:varchar(36);index;not null" json:"assembly_id"`
	AgendaItemID string  `gorm:"type:varchar(36)" json:"agenda_item_id"`
	Title        string  `gorm:"type:varchar(255);not null" json:"title"`
	Description  string  `gorm:"type:text" json:"description"`
	Result       string  `gorm:"type:varchar(20);not null" json:"result"`
	VotesFor     int     `gorm:"not null;default:0" json:"votes_for"`
	VotesAgainst int     `gorm:"not null;default:0" json:"votes_against"`
	Abstentions  int     `gorm:"not null;default:0" json:"abstentions"`
	Voters       []Voter `gorm:"constraint:OnDelete:CASCADE" json:"voters"`
}

func (Decision) TableName() string {
	return "decisions"
}

func (d *Decision) BeforeCreate(*gorm.DB) error {
	assignID(&d.ID)
	return nil
}

// Voter is a single attendee's vote on a decision.
type Voter struct {
	ID         string `gorm:"type:varchar(36);primaryKey" json:"id"`
	DecisionID string `gorm:"type:varchar(36);index;not null" json:"decision_id"`
	AttendeeID string `gorm:"type:varchar(36);not null" json:"attendee_id"`
	Vote       string `gorm:"type:varchar(20);not null" json:"vote"`
}

func (Voter) TableName() string {
	return "voters"
}

func (v *Voter) BeforeCreate(*gorm.DB) error {
	assignID(&v.ID)
	return nil
}

// Attendee is a person invited to an assembly.
type Attendee struct {
	ID            string `gorm:"type:varchar(36);primaryKey" json:"id"`
	AssemblyID    string `gorm:"type:varchar(36);index;not null" json:"assembly_id"`
	Name          string `gorm:"type:varchar(255);not null" json:"name"`
	Role          string `gorm:"type:varchar(20);not null" json:"role"`
	Present       bool   `gorm:"not null;default:false" json:"present"`
	ProxyName     string `gorm:"type:varchar(255)" json:"proxy_name"`
	ProxyDocument string `gorm:"type:varchar(512)" json:"proxy_document"`
}

func (Attendee) TableName() string {
	return "attendees"
}

func (a *Attendee) BeforeCreate(*gorm.DB) error {
	assignID(&a.ID)
	return nil
}

// AssemblyDocument is a file attached to an assembly.
type AssemblyDocument struct {
	ID         string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	AssemblyID string    `gorm:"type:varchar(36);index;not null" json:"assembly_id"`
	Name       string    `gorm:"type:varchar(255);not null" json:"name"`
	Type       string    `gorm:"type:varchar(10);not null" json:"type"`
	URL        string    `gorm:"type:varchar(512);not null" json:"url"`
	UploadedBy string    `gorm:"type:varchar(100)" json:"uploaded_by"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (AssemblyDocument) TableName() string {
	return "assembly_documents"
}

func (d *AssemblyDocument) BeforeCreate(*gorm.DB) error {
	assignID(&d.ID)
	return nil
}
