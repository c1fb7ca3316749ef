package db

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/ride-replay/internal/track"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := NewDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestNewDBAppliesMigrations(t *testing.T) {
	db := newTestDB(t)

	version, dirty, err := db.MigrateVersion("")
	require.NoError(t, err)
	assert.Equal(t, uint(2), version)
	assert.False(t, dirty)

	var count int
	err = db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='rides'`).Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestReopenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rides.db")
	db, err := NewDB(path)
	require.NoError(t, err)
	require.NoError(t, db.SaveRide(&Ride{Title: "kept"}))
	require.NoError(t, db.Close())

	db, err = NewDB(path)
	require.NoError(t, err)
	defer db.Close()
	rides, err := db.ListRides(0)
	require.NoError(t, err)
	require.Len(t, rides, 1)
	assert.Equal(t, "kept", rides[0].Title)
}

func TestMigrateDownAndUp(t *testing.T) {
	db := newTestDB(t)

	require.NoError(t, db.MigrateDown(""))
	version, _, err := db.MigrateVersion("")
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)

	require.NoError(t, db.MigrateUp(""))
	version, _, err = db.MigrateVersion("")
	require.NoError(t, err)
	assert.Equal(t, uint(2), version)
}

func TestMigrationsFromDirectory(t *testing.T) {
	db, err := OpenDB(filepath.Join(t.TempDir(), "dir.db"), "migrations")
	require.NoError(t, err)
	defer db.Close()

	version, _, err := db.MigrateVersion("migrations")
	require.NoError(t, err)
	assert.Equal(t, uint(2), version)
}

func TestSaveAndGetRide(t *testing.T) {
	db := newTestDB(t)

	r := &Ride{
		Title:       "  Col du Galibier  ",
		DistanceKm:  48.25,
		DurationMin: 182.5,
		MovingMin:   160,
		ElevationM:  1950,
		MaxSpeedKmh: 71.3,
		AvgSpeedKmh: 18.1,
		GPXPath:     "uploads/galibier.gpx",
	}
	require.NoError(t, db.SaveRide(r))
	assert.NotEmpty(t, r.ID)
	assert.Equal(t, "Col du Galibier", r.Title)
	assert.False(t, r.CreatedAt.IsZero())

	got, err := db.GetRide(r.ID)
	require.NoError(t, err)
	assert.Equal(t, r.ID, got.ID)
	assert.Equal(t, "Col du Galibier", got.Title)
	assert.Equal(t, 48.25, got.DistanceKm)
	assert.Equal(t, 1950.0, got.ElevationM)
	assert.Equal(t, "uploads/galibier.gpx", got.GPXPath)
	assert.Equal(t, r.CreatedAt.Unix(), got.CreatedAt.Unix())
}

func TestSaveRideRequiresTitle(t *testing.T) {
	db := newTestDB(t)
	err := db.SaveRide(&Ride{Title: "   "})
	if err == nil {
		t.Fatal("expected error for blank title")
	}
}

func TestGetRideNotFound(t *testing.T) {
	db := newTestDB(t)
	_, err := db.GetRide("missing")
	assert.True(t, errors.Is(err, ErrRideNotFound))
}

func TestListRidesNewestFirst(t *testing.T) {
	db := newTestDB(t)
	base := time.Date(2025, 5, 1, 7, 0, 0, 0, time.UTC)
	for i, title := range []string{"first", "second", "third"} {
		require.NoError(t, db.SaveRide(&Ride{Title: title, CreatedAt: base.Add(time.Duration(i) * time.Hour)}))
	}

	rides, err := db.ListRides(0)
	require.NoError(t, err)
	require.Len(t, rides, 3)
	assert.Equal(t, "third", rides[0].Title)
	assert.Equal(t, "first", rides[2].Title)

	rides, err = db.ListRides(2)
	require.NoError(t, err)
	assert.Len(t, rides, 2)
}

func TestListRidesEmpty(t *testing.T) {
	db := newTestDB(t)
	rides, err := db.ListRides(10)
	require.NoError(t, err)
	assert.NotNil(t, rides)
	assert.Empty(t, rides)
}

func TestDeleteRide(t *testing.T) {
	db := newTestDB(t)
	r := &Ride{Title: "short"}
	require.NoError(t, db.SaveRide(r))

	require.NoError(t, db.DeleteRide(r.ID))
	_, err := db.GetRide(r.ID)
	assert.ErrorIs(t, err, ErrRideNotFound)
	assert.ErrorIs(t, db.DeleteRide(r.ID), ErrRideNotFound)
}

func TestRideFromSummary(t *testing.T) {
	s := track.Summary{
		DistanceKm:     12.3456,
		Elapsed:        90*time.Minute + 20*time.Second,
		Moving:         75 * time.Minute,
		ElevationGainM: 432.6,
		MaxSpeedKmh:    55.56,
		AvgSpeedKmh:    9.876,
	}
	r := RideFromSummary("Evening", "rides/evening.gpx", s)
	assert.Equal(t, "Evening", r.Title)
	assert.Equal(t, 12.35, r.DistanceKm)
	assert.Equal(t, 90.3, r.DurationMin)
	assert.Equal(t, 75.0, r.MovingMin)
	assert.Equal(t, 433.0, r.ElevationM)
	assert.Equal(t, 55.6, r.MaxSpeedKmh)
	assert.Equal(t, 9.9, r.AvgSpeedKmh)
}

func TestAttachAdminRoutes(t *testing.T) {
	db := newTestDB(t)

	mux := http.NewServeMux()
	require.NoError(t, db.AttachAdminRoutes(mux))

	// Routes may answer 403 to non-local callers, but must be registered.
	for _, endpoint := range []string{"/debug/backup", "/debug/tailsql/"} {
		t.Run(endpoint, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, endpoint, nil)
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)
			if w.Code == http.StatusNotFound {
				t.Errorf("Endpoint %s should be registered, got 404", endpoint)
			}
		})
	}
}
