package models

import (
	"time"
)

// ServiceCategory is the closed set of trades a service can be listed under
type ServiceCategory string

const (
	CategoryCleaning   ServiceCategory = "cleaning"
	CategoryCooking    ServiceCategory = "cooking"
	CategoryPlumbing   ServiceCategory = "plumbing"
	CategoryElectrical ServiceCategory = "electrical"
	CategoryDoctor     ServiceCategory = "doctor"
	CategoryCarpenter  ServiceCategory = "carpenter"
	CategoryLaundry    ServiceCategory = "laundry"
	CategoryMechanic   ServiceCategory = "mechanic"
)

// GetServiceCategories returns all available service categories
func GetServiceCategories() []ServiceCategory {
	return []ServiceCategory{
		CategoryCleaning,
		CategoryCooking,
		CategoryPlumbing,
		CategoryElectrical,
		CategoryDoctor,
		CategoryCarpenter,
		CategoryLaundry,
		CategoryMechanic,
	}
}

// IsValid checks if the category belongs to the fixed set
func (c ServiceCategory) IsValid() bool {
	for _, category := range GetServiceCategories() {
		if c == category {
			return true
		}
	}
	return false
}

// Rating is the running aggregate of reviews left on a service
type Rating struct {
	Average float64 `json:"average" gorm:"column:average;type:decimal(3,2);not null;default:0"`
	Count   int     `json:"count" gorm:"column:count;not null;default:0"`
}

// Availability says whether a service is listed and when it can be booked
type Availability struct {
	IsAvailable bool          `json:"isAvailable" gorm:"column:is_available;not null;index"`
	Schedule    []DaySchedule `json:"schedule,omitempty" gorm:"column:schedule;serializer:json;type:jsonb"`
}

// Service represents a service offered by a provider
type Service struct {
	ID            uint            `json:"id" gorm:"primaryKey"`
	Name          string          `json:"name" gorm:"size:200;not null"`
	Category      ServiceCategory `json:"category" gorm:"type:varchar(20);not null;index"`
	Description   string          `json:"description" gorm:"type:text;not null"`
	Price         float64         `json:"price" gorm:"type:decimal(10,2);not null"`
	Duration      int             `json:"duration" gorm:"not null"` // in minutes
	Image         string          `json:"image,omitempty" gorm:"size:500"`
	ProviderID    uint            `json:"providerId" gorm:"not null;index"`
	Provider      *Account        `json:"provider,omitempty" gorm:"foreignKey:ProviderID"`
	Rating        Rating          `json:"rating" gorm:"embedded;embeddedPrefix:rating_"`
	Location      Location        `json:"location" gorm:"embedded;embeddedPrefix:location_"`
	Availability  Availability    `json:"availability" gorm:"embedded"`
	Tags          []string        `json:"tags,omitempty" gorm:"serializer:json;type:jsonb"`
	Experience    int             `json:"experience" gorm:"not null;default:0"` // in years
	Certification string          `json:"certification,omitempty" gorm:"size:255"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`

	// Distance in metres from the query point; only set by radius searches.
	Distance *float64 `json:"distance,omitempty" gorm:"->;-:migration"`
}

// TableName specifies the table name for the Service model
func (Service) TableName() string {
	return "services"
}
