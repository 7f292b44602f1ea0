package models

import "time"

// TravelPackage is a bookable offering with a finite unit count.
type TravelPackage struct {
	ID           string    `json:"id" yaml:"id"`
	Title        string    `json:"title" yaml:"title"`
	Description  string    `json:"description" yaml:"description"`
	Price        float64   `json:"price" yaml:"price"`
	Duration     string    `json:"duration" yaml:"duration"`
	Destination  string    `json:"destination" yaml:"destination"`
	Availability int64     `json:"availability" yaml:"availability"`
	Capacity     int64     `json:"capacity" yaml:"capacity"`
	CreatedAt    time.Time `json:"created_at" yaml:"-"`
	UpdatedAt    time.Time `json:"updated_at" yaml:"-"`
}
