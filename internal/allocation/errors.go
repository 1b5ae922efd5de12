package allocation

import (
	"errors"
	"fmt"

	"github.com/Shivanand-hulikatti/student-housing/internal/model"
)

// Kind classifies why a booking attempt was rejected.
type Kind string

const (
	KindInvalidRequest     Kind = "InvalidRequest"
	KindNotFound           Kind = "NotFound"
	KindAlreadyBooked      Kind = "AlreadyBooked"
	KindFull               Kind = "Full"
	KindGenderMismatch     Kind = "GenderMismatch"
	KindPersistenceFailure Kind = "PersistenceFailure"
)

// Error is the only error type the engine returns. Message is safe to show
// to the user; the storage cause, if any, is kept for errors.Is checks but is
// never part of Message.
type Error struct {
	Kind    Kind
	Message string
	// RequiredGender is set for KindGenderMismatch.
	RequiredGender model.Gender

	cause error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// KindOf returns the kind of err, or "" when err did not come from the engine.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

func invalidRequest(msg string) *Error {
	return &Error{Kind: KindInvalidRequest, Message: msg}
}

func notFound() *Error {
	return &Error{Kind: KindNotFound, Message: "Listing not found."}
}

func alreadyBooked() *Error {
	return &Error{Kind: KindAlreadyBooked, Message: "You have already booked a spot in this listing."}
}

func full() *Error {
	return &Error{Kind: KindFull, Message: "Sorry, this listing is fully booked."}
}

func genderMismatch(required model.Gender) *Error {
	return &Error{
		Kind: KindGenderMismatch,
		Message: fmt.Sprintf("This room is currently occupied by %s. Only %s can book the remaining spots.",
			required.Plural(), required.Plural()),
		RequiredGender: required,
	}
}

func persistenceFailure(cause error) *Error {
	return &Error{
		Kind:    KindPersistenceFailure,
		Message: "Booking failed, please retry.",
		cause:   cause,
	}
}
