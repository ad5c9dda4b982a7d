package service

import (
	"valet/internal/domain/booking"
	"valet/internal/domain/user"
)

// guard decides whether an actor may act on a loaded booking.
type guard func(b *booking.Booking) bool

// owningDriver admits only the driver the booking belongs to.
func owningDriver(actor user.Actor) guard {
	return func(b *booking.Booking) bool {
		return actor.Role == user.RoleDriver && b.OwnedBy(actor.ID)
	}
}

// ownerOrCustomer admits the owning driver or the customer whose phone is on the booking.
func ownerOrCustomer(actor user.Actor) guard {
	return func(b *booking.Booking) bool {
		switch actor.Role {
		case user.RoleDriver:
			return b.OwnedBy(actor.ID)
		case user.RoleCustomer:
			return b.BelongsTo(actor.Phone)
		default:
			return false
		}
	}
}

// ownerOrOverseer admits the owning driver, supervisors and admins.
func ownerOrOverseer(actor user.Actor) guard {
	return func(b *booking.Booking) bool {
		if actor.Role.Oversees() {
			return true
		}
		return actor.Role == user.RoleDriver && b.OwnedBy(actor.ID)
	}
}

// viewer admits anyone who may read the booking.
func viewer(actor user.Actor) guard {
	owner := ownerOrCustomer(actor)
	return func(b *booking.Booking) bool {
		return actor.Role.Oversees() || owner(b)
	}
}
