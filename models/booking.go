package models

import (
	"time"
)

type BookingStatus string

const (
	BookingStatusPending    BookingStatus = "pending"
	BookingStatusConfirmed  BookingStatus = "confirmed"
	BookingStatusInProgress BookingStatus = "in-progress"
	BookingStatusCompleted  BookingStatus = "completed"
	BookingStatusCancelled  BookingStatus = "cancelled"
)

// IsValid checks if the status is part of the booking lifecycle enum
func (s BookingStatus) IsValid() bool {
	switch s {
	case BookingStatusPending, BookingStatusConfirmed, BookingStatusInProgress,
		BookingStatusCompleted, BookingStatusCancelled:
		return true
	default:
		return false
	}
}

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
)

// Payment is the payment record embedded in a booking
type Payment struct {
	Amount        float64       `json:"amount" gorm:"column:amount;type:decimal(10,2);not null;default:0"`
	Status        PaymentStatus `json:"status" gorm:"column:status;type:varchar(20);not null;default:'pending'"`
	TransactionID string        `json:"transactionId,omitempty" gorm:"column:transaction_id;size:100"`
	OrderID       string        `json:"orderId,omitempty" gorm:"column:order_id;size:100"`
}

type Booking struct {
	ID            uint          `json:"id" gorm:"primaryKey"`
	UserID        uint          `json:"userId" gorm:"not null;index"`
	ProviderID    uint          `json:"providerId" gorm:"not null;index"`
	ServiceID     uint          `json:"serviceId" gorm:"not null;index"`
	ScheduledDate time.Time     `json:"scheduledDate" gorm:"not null;index"`
	Status        BookingStatus `json:"status" gorm:"type:varchar(20);not null;default:'pending';check:status IN ('pending','confirmed','in-progress','completed','cancelled')"`
	Location      *Location     `json:"location,omitempty" gorm:"serializer:json;type:jsonb"`
	Payment       Payment       `json:"payment" gorm:"embedded;embeddedPrefix:payment_"`
	CreatedAt     time.Time     `json:"createdAt" gorm:"autoCreateTime"`
	UpdatedAt     time.Time     `json:"updatedAt" gorm:"autoUpdateTime"`

	// Relationships
	User     *Account `json:"user,omitempty" gorm:"foreignKey:UserID"`
	Provider *Account `json:"provider,omitempty" gorm:"foreignKey:ProviderID"`
	Service  *Service `json:"service,omitempty" gorm:"foreignKey:ServiceID"`
}

// TableName specifies the table name for the Booking model
func (Booking) TableName() string {
	return "bookings"
}
