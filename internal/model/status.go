package model

import (
	"fmt"
	"strings"
)

// Gender is the declared gender of a booker and the cohabitation rule of a listing.
type Gender string

const (
	GenderMale   Gender = "Male"
	GenderFemale Gender = "Female"
)

// ParseGender accepts any casing of "male" or "female".
func ParseGender(s string) (Gender, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "male":
		return GenderMale, nil
	case "female":
		return GenderFemale, nil
	default:
		return "", fmt.Errorf("unknown gender %q", s)
	}
}

// Plural renders the gender the way listing messages refer to occupants.
func (g Gender) Plural() string {
	return string(g) + "s"
}

// ListingStatus is the moderation state of a listing.
type ListingStatus string

const (
	ListingPending  ListingStatus = "pending"
	ListingApproved ListingStatus = "approved"
	ListingRejected ListingStatus = "rejected"
)

// ParseListingStatus parses a stored or user supplied listing status.
func ParseListingStatus(s string) (ListingStatus, error) {
	switch ListingStatus(strings.ToLower(strings.TrimSpace(s))) {
	case ListingPending:
		return ListingPending, nil
	case ListingApproved:
		return ListingApproved, nil
	case ListingRejected:
		return ListingRejected, nil
	default:
		return "", fmt.Errorf("unknown listing status %q", s)
	}
}

// BookingStatus is the state of a single booking row.
type BookingStatus string

const (
	BookingConfirmed BookingStatus = "confirmed"
	BookingCancelled BookingStatus = "cancelled"
)

// ParseBookingStatus parses a stored booking status.
func ParseBookingStatus(s string) (BookingStatus, error) {
	switch BookingStatus(strings.ToLower(strings.TrimSpace(s))) {
	case BookingConfirmed:
		return BookingConfirmed, nil
	case BookingCancelled:
		return BookingCancelled, nil
	default:
		return "", fmt.Errorf("unknown booking status %q", s)
	}
}

// VerificationStatus is the identity verification state of a profile.
type VerificationStatus string

const (
	VerificationUnverified VerificationStatus = "unverified"
	VerificationPending    VerificationStatus = "pending"
	VerificationVerified   VerificationStatus = "verified"
	VerificationRejected   VerificationStatus = "rejected"
)

// ParseVerificationStatus parses a stored verification status. Empty values
// are treated as unverified.
func ParseVerificationStatus(s string) (VerificationStatus, error) {
	switch VerificationStatus(strings.ToLower(strings.TrimSpace(s))) {
	case "", VerificationUnverified:
		return VerificationUnverified, nil
	case VerificationPending:
		return VerificationPending, nil
	case VerificationVerified:
		return VerificationVerified, nil
	case VerificationRejected:
		return VerificationRejected, nil
	default:
		return "", fmt.Errorf("unknown verification status %q", s)
	}
}

// ReviewOrder sorts pending verifications ahead of the rest.
func (s VerificationStatus) ReviewOrder() int {
	switch s {
	case VerificationPending:
		return 0
	case VerificationRejected:
		return 1
	case VerificationUnverified:
		return 2
	default:
		return 3
	}
}
