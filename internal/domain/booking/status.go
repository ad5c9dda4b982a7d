package booking

import (
	"errors"
	"strings"
)

// Status is the workflow stage of a booking as stored in `bookings.status`.
type Status string

const (
	StatusParked          Status = "parked"
	StatusRecallRequested Status = "recall-requested"
	StatusInTransit       Status = "in-transit"
	StatusArrived         Status = "arrived"
	StatusCompleted       Status = "completed"
	StatusCancelled       Status = "cancelled"
)

var ErrInvalidStatus = errors.New("invalid booking status")

// ParseStatus normalizes (lowercases+trims) and validates a status string.
func ParseStatus(in string) (Status, error) {
	status := Status(strings.ToLower(strings.TrimSpace(in)))
	if status.Valid() {
		return status, nil
	}
	return "", ErrInvalidStatus
}

// Valid reports whether status is one of the allowed booking status constants.
func (status Status) Valid() bool {
	switch status {
	case StatusParked, StatusRecallRequested, StatusInTransit, StatusArrived, StatusCompleted, StatusCancelled:
		return true
	default:
		return false
	}
}

// String returns the string representation of the Status.
func (status Status) String() string {
	return string(status)
}

// CanTransitionTo reports whether next is an edge of the lifecycle graph.
// in-transit -> in-transit is the ETA revision edge.
func (status Status) CanTransitionTo(next Status) bool {
	switch status {
	case StatusParked:
		return next == StatusRecallRequested || next == StatusCancelled

	case StatusRecallRequested:
		return next == StatusInTransit || next == StatusCancelled

	case StatusInTransit:
		return next == StatusInTransit || next == StatusArrived || next == StatusCancelled

	case StatusArrived:
		return next == StatusCompleted || next == StatusCancelled

	case StatusCompleted, StatusCancelled:
		return false

	default:
		return false
	}
}

// Terminal indicates if the status is completed or cancelled.
func (status Status) Terminal() bool {
	return status == StatusCompleted || status == StatusCancelled
}

// ActiveStatuses lists every non-terminal status.
func ActiveStatuses() []Status {
	return []Status{StatusParked, StatusRecallRequested, StatusInTransit, StatusArrived}
}
