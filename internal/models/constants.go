package models

const (
	// DefaultCurrency is used when neither request nor config names one.
	DefaultCurrency = "inr"

	MinRating = 1
	MaxRating = 5

	// DefaultListLimit caps list endpoints that take no explicit limit.
	DefaultListLimit = 100

	// WorkerQueueSize is the in-memory task channel size.
	WorkerQueueSize = 1000
)
