package model

import "time"

type Role string

const (
	RoleAdmin       Role = "admin"
	RoleOrganizer   Role = "organizer"
	RoleParticipant Role = "participant"
	RoleJudge       Role = "judge"
	RoleSponsor     Role = "sponsor"
)

var Roles = []Role{RoleAdmin, RoleOrganizer, RoleParticipant, RoleJudge, RoleSponsor}

func (r Role) Valid() bool {
	for _, v := range Roles {
		if v == r {
			return true
		}
	}
	return false
}

// Actor is the authenticated caller of a service operation.
type Actor struct {
	UserID int
	Role   Role
}

func (a Actor) IsAdmin() bool { return a.Role == RoleAdmin }

const (
	UserActive   = "active"
	UserInactive = "inactive"
)

type User struct {
	ID           int       `json:"user_id" db:"user_id"`
	Name         string    `json:"name" db:"name"`
	Email        string    `json:"email" db:"email"`
	Role         Role      `json:"role" db:"role"`
	Status       string    `json:"status" db:"status"`
	PasswordHash string    `json:"-" db:"password_hash"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

type NewUser struct {
	Name     string
	Email    string
	Password string
	Role     Role
}

type ProfileUpdate struct {
	Name            string
	Email           string
	CurrentPassword string
	NewPassword     string
}

// UserPatch carries the admin-editable fields; nil means unchanged.
type UserPatch struct {
	Name   *string
	Email  *string
	Role   *Role
	Status *string
}

type UserFilter struct {
	Role   Role
	Status string
}

type RoleCount struct {
	Role  Role `json:"role" db:"role"`
	Count int  `json:"count" db:"count"`
}

type Venue struct {
	ID         int       `json:"venue_id" db:"venue_id"`
	Name       string    `json:"venue_name" db:"venue_name"`
	Capacity   int       `json:"capacity" db:"capacity"`
	Facilities string    `json:"facilities" db:"facilities"`
	Location   string    `json:"location" db:"location"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

type VenueInput struct {
	Name       string
	Capacity   int
	Facilities string
	Location   string
}

const (
	EventUpcoming  = "upcoming"
	EventOngoing   = "ongoing"
	EventCompleted = "completed"
	EventCancelled = "cancelled"
)

var EventStatuses = []string{EventUpcoming, EventOngoing, EventCompleted, EventCancelled}

type Event struct {
	ID              int       `json:"event_id" db:"event_id"`
	Name            string    `json:"event_name" db:"event_name"`
	Description     string    `json:"description" db:"description"`
	Category        string    `json:"category" db:"category"`
	Date            time.Time `json:"event_date" db:"event_date"`
	VenueID         int       `json:"venue_id" db:"venue_id"`
	VenueName       string    `json:"venue_name,omitempty" db:"venue_name"`
	MaxParticipants int       `json:"max_participants" db:"max_participants"`
	RegistrationFee float64   `json:"registration_fee" db:"registration_fee"`
	OrganizerID     int       `json:"organizer_id" db:"organizer_id"`
	Status          string    `json:"status" db:"status"`
	RegisteredCount int       `json:"registered_count" db:"registered_count"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
}

type EventInput struct {
	Name            string
	Description     string
	Category        string
	Date            time.Time
	VenueID         int
	MaxParticipants int
	RegistrationFee float64
	Status          string
}

type EventFilter struct {
	Category    string
	Status      string
	OrganizerID int
}

type EventStats struct {
	EventID         int      `json:"event_id" db:"event_id"`
	MaxParticipants int      `json:"max_participants" db:"max_participants"`
	RegisteredCount int      `json:"registered_count" db:"registered_count"`
	RemainingSlots  int      `json:"remaining_slots" db:"remaining_slots"`
	JudgeCount      int      `json:"judge_count" db:"judge_count"`
	SponsorCount    int      `json:"sponsor_count" db:"sponsor_count"`
	AverageScore    *float64 `json:"average_score" db:"average_score"`
	Revenue         float64  `json:"revenue" db:"revenue"`
}

// Competition rounds, in the order they run.
const (
	RoundPrelims    = "prelims"
	RoundSemifinals = "semifinals"
	RoundFinals     = "finals"
)

type EventRound struct {
	ID        int       `json:"round_id" db:"round_id"`
	EventID   int       `json:"event_id" db:"event_id"`
	Name      string    `json:"round_name" db:"round_name"`
	Date      time.Time `json:"round_date" db:"round_date"`
	VenueID   *int      `json:"venue_id" db:"venue_id"`
	VenueName *string   `json:"venue_name" db:"venue_name"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type RoundSchedule struct {
	Prelims    time.Time
	Semifinals time.Time
	Finals     time.Time
}

// UserEvent is an event seen from one registered user.
type UserEvent struct {
	ParticipantID    int       `json:"participant_id" db:"participant_id"`
	EventID          int       `json:"event_id" db:"event_id"`
	EventName        string    `json:"event_name" db:"event_name"`
	Category         string    `json:"category" db:"category"`
	EventDate        time.Time `json:"event_date" db:"event_date"`
	Status           string    `json:"status" db:"status"`
	RegistrationDate time.Time `json:"registration_date" db:"registration_date"`
}

type Participant struct {
	ID               int       `json:"participant_id" db:"participant_id"`
	UserID           int       `json:"user_id" db:"user_id"`
	EventID          int       `json:"event_id" db:"event_id"`
	Name             string    `json:"name" db:"name"`
	Email            string    `json:"email" db:"email"`
	RegistrationDate time.Time `json:"registration_date" db:"registration_date"`
}

type Judge struct {
	UserID     int       `json:"judge_id" db:"judge_id"`
	Name       string    `json:"name" db:"name"`
	Email      string    `json:"email" db:"email"`
	AssignedAt time.Time `json:"assigned_at" db:"assigned_at"`
}

type Accommodation struct {
	ID              int       `json:"accommodation_id" db:"accommodation_id"`
	RoomType        string    `json:"room_type" db:"room_type"`
	Capacity        int       `json:"capacity" db:"capacity"`
	PricePerNight   float64   `json:"price_per_night" db:"price_per_night"`
	AvailableRooms  int       `json:"available_rooms" db:"available_rooms"`
	CurrentBookings int       `json:"current_bookings" db:"current_bookings"`
	RemainingRooms  int       `json:"remaining_rooms" db:"remaining_rooms"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
}

type AccommodationInput struct {
	RoomType      string
	Capacity      int
	PricePerNight float64
}

type Booking struct {
	ID              int       `json:"booking_id" db:"booking_id"`
	UserID          int       `json:"user_id" db:"user_id"`
	AccommodationID int       `json:"accommodation_id" db:"accommodation_id"`
	RoomType        string    `json:"room_type" db:"room_type"`
	PricePerNight   float64   `json:"price_per_night" db:"price_per_night"`
	BookedAt        time.Time `json:"booked_at" db:"booked_at"`
}

type AccommodationStats struct {
	TotalAccommodations int     `json:"total_accommodations"`
	TotalCapacity       int     `json:"total_capacity"`
	TotalAvailable      int     `json:"total_available"`
	AveragePrice        float64 `json:"average_price"`
	RoomTypes           int     `json:"room_types"`
	TotalBookings       int     `json:"total_bookings"`
	OccupancyRate       float64 `json:"occupancy_rate"`
}

const (
	PackageTitle  = "Title"
	PackageGold   = "Gold"
	PackageSilver = "Silver"

	SponsorshipPending   = "Pending"
	SponsorshipConfirmed = "Confirmed"
)

var Packages = []string{PackageTitle, PackageGold, PackageSilver}

type Sponsor struct {
	ID               int       `json:"sponsor_id" db:"sponsor_id"`
	CompanyName      string    `json:"company_name" db:"company_name"`
	ContactPerson    string    `json:"contact_person" db:"contact_person"`
	Email            string    `json:"email" db:"email"`
	Phone            string    `json:"phone" db:"phone"`
	SponsorshipLevel string    `json:"sponsorship_level" db:"sponsorship_level"`
	UserID           *int      `json:"user_id" db:"user_id"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
}

type SponsorInput struct {
	CompanyName      string
	ContactPerson    string
	Email            string
	Phone            string
	SponsorshipLevel string
	UserID           *int
}

type Sponsorship struct {
	ID          int       `json:"sponsorship_id" db:"sponsorship_id"`
	SponsorID   int       `json:"sponsor_id" db:"sponsor_id"`
	CompanyName string    `json:"company_name" db:"company_name"`
	EventID     int       `json:"event_id" db:"event_id"`
	EventName   string    `json:"event_name" db:"event_name"`
	Package     string    `json:"package" db:"package"`
	Amount      float64   `json:"amount" db:"amount"`
	Status      string    `json:"status" db:"status"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

type SponsorshipInput struct {
	SponsorID int
	EventID   int
	Package   string
	Amount    float64
}

type PackageStats struct {
	Package     string  `json:"package" db:"package"`
	Count       int     `json:"count" db:"count"`
	TotalAmount float64 `json:"total_amount" db:"total_amount"`
}

const (
	PaymentRegistration  = "registration"
	PaymentAccommodation = "accommodation"
	PaymentSponsorship   = "sponsorship"

	PaymentPending   = "pending"
	PaymentCompleted = "completed"
	PaymentFailed    = "failed"
)

type Payment struct {
	ID          int        `json:"payment_id" db:"payment_id"`
	UserID      int        `json:"user_id" db:"user_id"`
	EventID     *int       `json:"event_id" db:"event_id"`
	Amount      float64    `json:"amount" db:"amount"`
	PaymentType string     `json:"payment_type" db:"payment_type"`
	Status      string     `json:"status" db:"status"`
	PaymentDate *time.Time `json:"payment_date" db:"payment_date"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
}

type PaymentFilter struct {
	UserID      int
	EventID     int
	Status      string
	PaymentType string
}

type PaymentTotals struct {
	PaymentType string  `json:"payment_type" db:"payment_type"`
	Status      string  `json:"status" db:"status"`
	Count       int     `json:"count" db:"count"`
	TotalAmount float64 `json:"total_amount" db:"total_amount"`
}

type Score struct {
	ID              int       `json:"judging_id" db:"judging_id"`
	EventID         int       `json:"event_id" db:"event_id"`
	JudgeID         int       `json:"judge_id" db:"judge_id"`
	JudgeName       string    `json:"judge_name" db:"judge_name"`
	ParticipantID   int       `json:"participant_id" db:"participant_id"`
	ParticipantName string    `json:"participant_name" db:"participant_name"`
	Score           *float64  `json:"score" db:"score"`
	Comments        *string   `json:"comments" db:"comments"`
	UpdatedAt       time.Time `json:"updated_at" db:"updated_at"`
}

type ScoreInput struct {
	EventID       int
	ParticipantID int
	Score         float64
	Comments      string
}

type LeaderboardEntry struct {
	Rank            int      `json:"rank" db:"-"`
	ParticipantID   int      `json:"participant_id" db:"participant_id"`
	UserID          int      `json:"user_id" db:"user_id"`
	ParticipantName string   `json:"participant_name" db:"participant_name"`
	AverageScore    *float64 `json:"average_score" db:"average_score"`
	ScoreCount      int      `json:"score_count" db:"score_count"`
}

type JudgeOverview struct {
	EventsAssigned int `json:"events_assigned" db:"events_assigned"`
	PendingScores  int `json:"pending_scores" db:"pending_scores"`
	Results        int `json:"results" db:"results"`
}

type AssignedEvent struct {
	EventID          int       `json:"event_id" db:"event_id"`
	EventName        string    `json:"event_name" db:"event_name"`
	Category         string    `json:"category" db:"category"`
	EventDate        time.Time `json:"event_date" db:"event_date"`
	Status           string    `json:"status" db:"status"`
	ParticipantCount int       `json:"participant_count" db:"participant_count"`
	ScoredCount      int       `json:"scored_count" db:"scored_count"`
}

// JudgeResult is the current leader of an event a judge has scored in.
type JudgeResult struct {
	EventID             int     `json:"event_id" db:"event_id"`
	EventName           string  `json:"event_name" db:"event_name"`
	WinnerParticipantID int     `json:"winner_participant_id" db:"winner_participant_id"`
	WinnerName          string  `json:"winner_name" db:"winner_name"`
	AverageScore        float64 `json:"average_score" db:"average_score"`
}

type JudgingStats struct {
	EventID          int      `json:"event_id" db:"event_id"`
	TotalScores      int      `json:"total_scores" db:"total_scores"`
	AverageScore     *float64 `json:"average_score" db:"average_score"`
	HighestScore     *float64 `json:"highest_score" db:"highest_score"`
	LowestScore      *float64 `json:"lowest_score" db:"lowest_score"`
	JudgeCount       int      `json:"judge_count" db:"judge_count"`
	ParticipantCount int      `json:"participant_count" db:"participant_count"`
}

type ActivityLog struct {
	ID        int       `json:"log_id" db:"log_id"`
	ActorID   *int      `json:"actor_id" db:"actor_id"`
	Action    string    `json:"action" db:"action"`
	Details   string    `json:"details" db:"details"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
