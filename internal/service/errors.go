package service

import "nascon-platform/internal/apperr"

var (
	ErrUserNotFound       = apperr.New(apperr.NotFound, "User not found")
	ErrEmailTaken         = apperr.New(apperr.DuplicateAction, "Email already registered")
	ErrInvalidCredentials = apperr.New(apperr.Unauthorized, "Invalid email or password")
	ErrAccountInactive    = apperr.New(apperr.Forbidden, "Account is inactive")
	ErrWrongPassword      = apperr.New(apperr.Unauthorized, "Current password is incorrect")
	ErrInvalidRole        = apperr.New(apperr.InvalidInput, "Invalid role")

	ErrEventNotFound     = apperr.New(apperr.NotFound, "Event not found")
	ErrEventFull         = apperr.New(apperr.CapacityExceeded, "Event is full")
	ErrAlreadyRegistered = apperr.New(apperr.DuplicateAction, "You are already registered for this event")
	ErrNoJudgeAssigned   = apperr.New(apperr.PrecursorMissing, "No judge assigned to this event")
	ErrNotRegistered     = apperr.New(apperr.NotFound, "Registration not found")
	ErrInvalidCategory   = apperr.New(apperr.InvalidInput, "Invalid event category")
	ErrInvalidStatus     = apperr.New(apperr.InvalidInput, "Invalid status")
	ErrBelowRegistered   = apperr.New(apperr.InvalidInput, "Max participants cannot be lower than current registrations")
	ErrNotEventOwner     = apperr.New(apperr.Forbidden, "Only the organizer of this event can manage it")
	ErrNotJudge          = apperr.New(apperr.InvalidInput, "User is not a judge")

	ErrAssignmentNotFound = apperr.New(apperr.NotFound, "Judge assignment not found")

	ErrRoundOrder = apperr.New(apperr.InvalidInput, "Rounds must run in order: prelims, semifinals, finals")

	ErrVenueNotFound = apperr.New(apperr.NotFound, "Venue not found")
	ErrVenueBooked   = apperr.New(apperr.Conflict, "An event is already scheduled at this venue on the same date")

	ErrAccommodationNotFound = apperr.New(apperr.NotFound, "Accommodation not found")
	ErrAccommodationFull     = apperr.New(apperr.CapacityExceeded, "No rooms available")
	ErrAlreadyBooked         = apperr.New(apperr.DuplicateAction, "User already has an accommodation booking")
	ErrBookingNotFound       = apperr.New(apperr.NotFound, "Booking not found")
	ErrCapacityBelowBookings = apperr.New(apperr.InvalidInput, "Capacity cannot be lower than current bookings")

	ErrInvalidScore        = apperr.New(apperr.InvalidInput, "Score must be between 0 and 100")
	ErrParticipantNotFound = apperr.New(apperr.NotFound, "Participant is not registered for this event")
	ErrJudgeNotAssigned    = apperr.New(apperr.Forbidden, "Judge is not assigned to this event")

	ErrSponsorNotFound     = apperr.New(apperr.NotFound, "Sponsor not found")
	ErrSponsorshipNotFound = apperr.New(apperr.NotFound, "Sponsorship not found")
	ErrAlreadySponsoring   = apperr.New(apperr.DuplicateAction, "Sponsor already sponsors this event")
	ErrInvalidPackage      = apperr.New(apperr.InvalidInput, "Invalid sponsorship package")
	ErrSponsorProfileTaken = apperr.New(apperr.DuplicateAction, "User already has a sponsor profile")
	ErrNotSponsorOwner     = apperr.New(apperr.Forbidden, "Sponsor profile belongs to another user")

	ErrPaymentNotFound = apperr.New(apperr.NotFound, "Payment not found")
	ErrPaymentSettled  = apperr.New(apperr.InvalidInput, "Payment is already completed")
	ErrPaymentClosed   = apperr.New(apperr.InvalidInput, "Failed payments cannot be reopened")
)

func hasDependents(msg string) error {
	return apperr.New(apperr.HasDependents, msg)
}
