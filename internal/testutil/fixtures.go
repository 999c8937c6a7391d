package testutil

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"

	"nascon-platform/internal/model"
)

// Fixtures inserts rows directly, bypassing the services under test.
type Fixtures struct {
	t     *testing.T
	pool  *pgxpool.Pool
	faker *gofakeit.Faker

	mu   sync.Mutex
	days int
}

func NewFixtures(t *testing.T, pool *pgxpool.Pool) *Fixtures {
	return &Fixtures{t: t, pool: pool, faker: gofakeit.New(uint64(time.Now().UnixNano()))}
}

// User creates an active user with role. Its password hash is not a valid
// bcrypt hash, so it cannot log in.
func (f *Fixtures) User(role model.Role) int {
	f.t.Helper()
	f.mu.Lock()
	name, email := f.faker.Name(), f.faker.UUID()+"@nascon.test"
	f.mu.Unlock()

	var id int
	err := f.pool.QueryRow(context.Background(),
		"INSERT INTO users(name, email, password_hash, role) VALUES ($1, $2, 'x', $3) RETURNING user_id",
		name, email, role,
	).Scan(&id)
	require.NoError(f.t, err)
	return id
}

// Users creates n users with role.
func (f *Fixtures) Users(role model.Role, n int) []int {
	f.t.Helper()
	ids := make([]int, n)
	for i := range ids {
		ids[i] = f.User(role)
	}
	return ids
}

func (f *Fixtures) Venue() int {
	f.t.Helper()
	f.mu.Lock()
	name, city := f.faker.Company()+" Hall", f.faker.City()
	f.mu.Unlock()

	var id int
	err := f.pool.QueryRow(context.Background(),
		"INSERT INTO venues(venue_name, capacity, location) VALUES ($1, 500, $2) RETURNING venue_id",
		name, city,
	).Scan(&id)
	require.NoError(f.t, err)
	return id
}

// EventSpec describes a fixture event; zero fields take defaults.
type EventSpec struct {
	MaxParticipants int
	Fee             float64
	OrganizerID     int
	VenueID         int
}

// Event creates an upcoming event on its own date, so fixtures never collide
// on the one-event-per-venue-per-day rule.
func (f *Fixtures) Event(spec EventSpec) int {
	f.t.Helper()
	if spec.MaxParticipants == 0 {
		spec.MaxParticipants = 50
	}
	if spec.OrganizerID == 0 {
		spec.OrganizerID = f.User(model.RoleOrganizer)
	}
	if spec.VenueID == 0 {
		spec.VenueID = f.Venue()
	}
	f.mu.Lock()
	f.days++
	date := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, f.days)
	name := f.faker.HackerNoun() + " challenge"
	f.mu.Unlock()

	var id int
	err := f.pool.QueryRow(context.Background(), `
		INSERT INTO events(event_name, category, event_date, venue_id, max_participants, registration_fee, organizer_id)
		VALUES ($1, 'Tech Events', $2, $3, $4, $5, $6) RETURNING event_id`,
		name, date, spec.VenueID, spec.MaxParticipants, spec.Fee, spec.OrganizerID,
	).Scan(&id)
	require.NoError(f.t, err)
	return id
}

// Judge creates a judge and assigns them to eventID.
func (f *Fixtures) Judge(eventID int) int {
	f.t.Helper()
	judgeID := f.User(model.RoleJudge)
	_, err := f.pool.Exec(context.Background(),
		"INSERT INTO event_judges(event_id, judge_id) VALUES ($1, $2)", eventID, judgeID)
	require.NoError(f.t, err)
	return judgeID
}

func (f *Fixtures) Accommodation(capacity int, price float64) int {
	f.t.Helper()
	f.mu.Lock()
	roomType := f.faker.Adjective() + " suite"
	f.mu.Unlock()

	var id int
	err := f.pool.QueryRow(context.Background(), `
		INSERT INTO accommodations(room_type, capacity, price_per_night, available_rooms)
		VALUES ($1, $2, $3, $2) RETURNING accommodation_id`,
		roomType, capacity, price,
	).Scan(&id)
	require.NoError(f.t, err)
	return id
}

func (f *Fixtures) Sponsor(userID *int) int {
	f.t.Helper()
	f.mu.Lock()
	company, email := f.faker.Company(), f.faker.Email()
	f.mu.Unlock()

	var id int
	err := f.pool.QueryRow(context.Background(),
		"INSERT INTO sponsors(company_name, email, user_id) VALUES ($1, $2, $3) RETURNING sponsor_id",
		company, email, userID,
	).Scan(&id)
	require.NoError(f.t, err)
	return id
}

// Count runs a COUNT(*) query and returns the result.
func (f *Fixtures) Count(query string, args ...any) int {
	f.t.Helper()
	var n int
	require.NoError(f.t, f.pool.QueryRow(context.Background(), query, args...).Scan(&n))
	return n
}
