package models

import (
	"time"
)

// Review is a rating left by a user on a completed booking. Each booking can
// be reviewed once; the service's Rating aggregate is updated with it.
type Review struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	BookingID uint      `json:"bookingId" gorm:"uniqueIndex;not null"`
	ServiceID uint      `json:"serviceId" gorm:"not null;index"`
	UserID    uint      `json:"userId" gorm:"not null;index"`
	Rating    int       `json:"rating" gorm:"type:int;not null;check:rating >= 1 AND rating <= 5"`
	Comment   string    `json:"comment,omitempty" gorm:"type:text"`
	CreatedAt time.Time `json:"createdAt"`
}

// TableName specifies the table name for the Review model
func (Review) TableName() string {
	return "reviews"
}

// AddToAverage folds one more rating into a running average.
func AddToAverage(r Rating, stars int) Rating {
	total := r.Average*float64(r.Count) + float64(stars)
	r.Count++
	r.Average = total / float64(r.Count)
	return r
}
