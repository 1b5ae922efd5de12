// Package repository implements all database queries for the housing marketplace.
// It uses pgx directly (no ORM) for transparency and performance.
package repository

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// ErrNotFound is returned when a requested resource does not exist.
var ErrNotFound = errors.New("not found")

// ErrAlreadyBooked is returned when a user already holds a confirmed booking
// for the listing.
var ErrAlreadyBooked = errors.New("user already booked this listing")

// ErrLostRace is returned by Reserve when the conditional update matched no
// row: the listing vanished, stopped being bookable, filled up, or was claimed
// by another gender between the caller's read and the write.
var ErrLostRace = errors.New("listing state changed before reservation")

// ErrForbidden is returned when the caller does not own the resource.
var ErrForbidden = errors.New("not the owner of this resource")

// ErrCapacityBelowFilled is returned when an owner tries to shrink capacity
// below the number of spots already filled.
var ErrCapacityBelowFilled = errors.New("capacity cannot be lower than spots already filled")

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
