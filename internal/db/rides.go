package db

import (
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/ride-replay/internal/track"
)

// ErrRideNotFound is returned when no ride matches the requested id.
var ErrRideNotFound = errors.New("ride not found")

// Ride is a saved ride summary.
type Ride struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	DistanceKm  float64   `json:"distance_km"`
	DurationMin float64   `json:"duration_min"`
	MovingMin   float64   `json:"moving_min"`
	ElevationM  float64   `json:"elevation_m"`
	MaxSpeedKmh float64   `json:"max_speed_kmh"`
	AvgSpeedKmh float64   `json:"avg_speed_kmh"`
	GPXPath     string    `json:"gpx_path,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// RideFromSummary fills a Ride from computed ride totals, rounding for display.
func RideFromSummary(title, gpxPath string, s track.Summary) *Ride {
	return &Ride{
		Title:       title,
		DistanceKm:  round(s.DistanceKm, 2),
		DurationMin: round(s.Elapsed.Minutes(), 1),
		MovingMin:   round(s.Moving.Minutes(), 1),
		ElevationM:  round(s.ElevationGainM, 0),
		MaxSpeedKmh: round(s.MaxSpeedKmh, 1),
		AvgSpeedKmh: round(s.AvgSpeedKmh, 1),
		GPXPath:     gpxPath,
	}
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

// SaveRide inserts r, assigning its ID and CreatedAt when unset.
func (db *DB) SaveRide(r *Ride) error {
	r.Title = strings.TrimSpace(r.Title)
	if r.Title == "" {
		return fmt.Errorf("ride title is required")
	}
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}

	_, err := db.Exec(`INSERT INTO rides (
			ride_id, title, distance_km, duration_min, moving_min, elevation_m,
			max_speed_kmh, avg_speed_kmh, gpx_path, created_unix
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Title, r.DistanceKm, r.DurationMin, r.MovingMin, r.ElevationM,
		r.MaxSpeedKmh, r.AvgSpeedKmh, nullString(r.GPXPath), r.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to save ride: %w", err)
	}
	logger.Printf("saved ride %s (%q, %.2f km)", r.ID, r.Title, r.DistanceKm)
	return nil
}

const rideColumns = `ride_id, title, distance_km, duration_min, moving_min, elevation_m,
	max_speed_kmh, avg_speed_kmh, gpx_path, created_unix`

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRide(row scanner) (*Ride, error) {
	var (
		r       Ride
		gpxPath sql.NullString
		created int64
	)
	if err := row.Scan(&r.ID, &r.Title, &r.DistanceKm, &r.DurationMin, &r.MovingMin, &r.ElevationM,
		&r.MaxSpeedKmh, &r.AvgSpeedKmh, &gpxPath, &created); err != nil {
		return nil, err
	}
	r.GPXPath = gpxPath.String
	r.CreatedAt = time.Unix(created, 0).UTC()
	return &r, nil
}

// GetRide returns the ride with the given id.
func (db *DB) GetRide(id string) (*Ride, error) {
	row := db.QueryRow(`SELECT `+rideColumns+` FROM rides WHERE ride_id = ?`, id)
	r, err := scanRide(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRideNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get ride: %w", err)
	}
	return r, nil
}

// ListRides returns up to limit rides, newest first. A non-positive limit
// returns every ride.
func (db *DB) ListRides(limit int) ([]Ride, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := db.Query(`SELECT `+rideColumns+` FROM rides ORDER BY created_unix DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list rides: %w", err)
	}
	defer rows.Close()

	rides := []Ride{}
	for rows.Next() {
		r, err := scanRide(rows)
		if err != nil {
			return nil, err
		}
		rides = append(rides, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return rides, nil
}

// DeleteRide removes the ride with the given id.
func (db *DB) DeleteRide(id string) error {
	res, err := db.Exec(`DELETE FROM rides WHERE ride_id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete ride: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrRideNotFound, id)
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
