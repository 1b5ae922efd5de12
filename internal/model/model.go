// Package model defines the core domain types for the student housing marketplace.
package model

import "time"

// Listing represents a rentable room or bed space created by an owner.
type Listing struct {
	ID              string        `json:"id"`
	OwnerID         string        `json:"owner_id"`
	Title           string        `json:"title"`
	Description     string        `json:"description"`
	Price           int64         `json:"price"`
	Location        string        `json:"location"`
	Rooms           string        `json:"rooms"`
	ContactPhone    string        `json:"contact_phone"`
	ImageURLs       []string      `json:"image_urls"`
	VideoURL        string        `json:"video_url,omitempty"`
	Capacity        int           `json:"capacity"`
	SpotsFilled     int           `json:"spots_filled"`
	OccupantsGender *Gender       `json:"occupants_gender"`
	Status          ListingStatus `json:"status"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

// Remaining returns the number of unfilled spots.
func (l *Listing) Remaining() int {
	return l.Capacity - l.SpotsFilled
}

// IsFull returns true when no spots remain.
func (l *Listing) IsFull() bool {
	return l.SpotsFilled >= l.Capacity
}

// Bookable reports whether the listing is visible to bookers at all.
func (l *Listing) Bookable() bool {
	return l.Status == ListingApproved
}

// Occupancy returns the fill counters of the listing.
func (l *Listing) Occupancy() Occupancy {
	return Occupancy{
		ListingID:       l.ID,
		SpotsFilled:     l.SpotsFilled,
		Capacity:        l.Capacity,
		OccupantsGender: l.OccupantsGender,
	}
}

// Occupancy is the subset of listing state mutated by bookings.
type Occupancy struct {
	ListingID       string  `json:"listing_id"`
	SpotsFilled     int     `json:"spots_filled"`
	Capacity        int     `json:"capacity"`
	OccupantsGender *Gender `json:"occupants_gender"`
}

// Booking represents one user's reservation of one spot in a listing.
type Booking struct {
	ID        string        `json:"id"`
	ListingID string        `json:"listing_id"`
	UserID    string        `json:"user_id"`
	Gender    Gender        `json:"gender"`
	Status    BookingStatus `json:"status"`
	CreatedAt time.Time     `json:"created_at"`
}

// BookingWithListing is a booking joined with a short summary of its listing,
// used by the "my bookings" page.
type BookingWithListing struct {
	Booking
	Listing ListingSummary `json:"listing"`
}

// ListingSummary carries the listing fields shown next to a booking.
type ListingSummary struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Price        int64  `json:"price"`
	Location     string `json:"location"`
	ImageURL     string `json:"image_url,omitempty"`
	ContactPhone string `json:"contact_phone"`
}

// Profile holds a user's identity-verification state.
type Profile struct {
	ID                 string             `json:"id"`
	FullName           string             `json:"full_name"`
	VerificationStatus VerificationStatus `json:"verification_status"`
	IDDocumentKey      string             `json:"-"`
	IDDocumentURL      string             `json:"id_document_url,omitempty"`
	UpdatedAt          time.Time          `json:"updated_at"`
}

// ListingRequest is the payload for creating or updating a listing.
type ListingRequest struct {
	Title        string   `json:"title" validate:"required,min=5,max=120"`
	Description  string   `json:"description" validate:"max=5000"`
	Price        int64    `json:"price" validate:"gte=10000"`
	Location     string   `json:"location" validate:"required,max=200"`
	Rooms        string   `json:"rooms" validate:"max=100"`
	ContactPhone string   `json:"contact_phone" validate:"required,min=10,max=20"`
	ImageURLs    []string `json:"image_urls" validate:"max=3,dive,url"`
	VideoURL     string   `json:"video_url" validate:"omitempty,url"`
	Capacity     int      `json:"capacity" validate:"gte=1,lte=50"`
}

// ListingFilter narrows a browse query.
type ListingFilter struct {
	Query         string
	Location      string
	MaxPrice      int64
	Gender        *Gender
	AvailableOnly bool
	Limit         int
	Offset        int
}

// BookingRequest is the payload for booking a spot.
type BookingRequest struct {
	Gender string `json:"gender"`
}

// BookingOutcome is the discriminated result returned to booking callers.
type BookingOutcome struct {
	Success   bool       `json:"success"`
	Booking   *Booking   `json:"booking,omitempty"`
	Listing   *Occupancy `json:"listing,omitempty"`
	ErrorKind string     `json:"error_kind,omitempty"`
	Message   string     `json:"message,omitempty"`
}

// ErrorResponse is a standard JSON error envelope.
type ErrorResponse struct {
	Error string `json:"error"`
}
