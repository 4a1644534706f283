// Package catalog loads, cleans and validates the course dataset.
package catalog

import (
	"fmt"
	"math"
	"time"
)

// Course is one cleaned catalog record. Title, subject and level are lower-cased.
type Course struct {
	ID            int       `json:"course_id" validate:"required,gt=0"`
	Title         string    `json:"course_title" validate:"required"`
	URL           string    `json:"url" validate:"omitempty,url"`
	IsPaid        bool      `json:"is_paid"`
	Price         float64   `json:"price" validate:"gte=0"`
	Subscribers   int       `json:"num_subscribers" validate:"gte=0"`
	Reviews       int       `json:"num_reviews" validate:"gte=0"`
	Lectures      int       `json:"num_lectures" validate:"gte=0"`
	Level         string    `json:"level"`
	DurationHours float64   `json:"content_duration" validate:"gte=0"`
	PublishedAt   time.Time `json:"published_timestamp"`
	Subject       string    `json:"subject"`
}

// SemanticText is the text the retrieval index is built from.
func (c Course) SemanticText() string {
	return c.Title + " " + c.Subject
}

// DisplayPrice renders the price as "FREE" or "₹<amount>".
func (c Course) DisplayPrice() string {
	if c.Price == 0 {
		return "FREE"
	}
	return "₹" + formatAmount(c.Price)
}

// DisplayDuration renders the duration rounded to two decimals.
func (c Course) DisplayDuration() string {
	return fmt.Sprintf("%.2f hours", math.Round(c.DurationHours*100)/100)
}

// DisplayPublished renders the publish date as "02 January 2006", or "" if unknown.
func (c Course) DisplayPublished() string {
	if c.PublishedAt.IsZero() {
		return ""
	}
	return c.PublishedAt.Format("02 January 2006")
}

func formatAmount(v float64) string {
	if v == math.Trunc(v) {
		return fmt.Sprintf("%.0f", v)
	}
	return fmt.Sprintf("%.2f", v)
}
