package database

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func newMockRepo(t *testing.T) (PlaceRepository, sqlmock.Sqlmock, func()) {
	t.Helper()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}

	repo := NewPlaceRepository(&DB{db})
	return repo, mock, func() { db.Close() }
}

func TestPlaceRepository_TryAcquireLock_Unlocked(t *testing.T) {
	repo, mock, cleanup := newMockRepo(t)
	defer cleanup()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	staleBefore := now.Add(-5 * time.Minute)

	mock.ExpectExec("UPDATE places").
		WithArgs("place-1", now, staleBefore).
		WillReturnResult(sqlmock.NewResult(0, 1))

	acquired, err := repo.TryAcquireLock("place-1", now, staleBefore)
	if err != nil {
		t.Fatalf("TryAcquireLock() error = %v", err)
	}
	if !acquired {
		t.Error("expected lock to be acquired when place is unlocked")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestPlaceRepository_TryAcquireLock_Held(t *testing.T) {
	repo, mock, cleanup := newMockRepo(t)
	defer cleanup()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	staleBefore := now.Add(-5 * time.Minute)

	// No row matches the compare-and-swap predicate while the lease is fresh
	mock.ExpectExec("UPDATE places").
		WithArgs("place-1", now, staleBefore).
		WillReturnResult(sqlmock.NewResult(0, 0))

	acquired, err := repo.TryAcquireLock("place-1", now, staleBefore)
	if err != nil {
		t.Fatalf("TryAcquireLock() error = %v", err)
	}
	if acquired {
		t.Error("expected lock acquisition to fail when lease is fresh")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestPlaceRepository_ReleaseLock_Idempotent(t *testing.T) {
	repo, mock, cleanup := newMockRepo(t)
	defer cleanup()

	// Releasing an already-released lock affects zero rows but is not an error
	mock.ExpectExec("UPDATE places").
		WithArgs("place-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := repo.ReleaseLock("place-1"); err != nil {
		t.Errorf("ReleaseLock() error = %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestPlaceRepository_SweepStaleLocks(t *testing.T) {
	repo, mock, cleanup := newMockRepo(t)
	defer cleanup()

	staleBefore := time.Date(2026, 3, 1, 11, 55, 0, 0, time.UTC)

	mock.ExpectExec("UPDATE places").
		WithArgs(staleBefore).
		WillReturnResult(sqlmock.NewResult(0, 3))

	cleared, err := repo.SweepStaleLocks(staleBefore)
	if err != nil {
		t.Fatalf("SweepStaleLocks() error = %v", err)
	}
	if cleared != 3 {
		t.Errorf("expected 3 cleared locks, got %d", cleared)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestPlaceRepository_GetPlace_NotFound(t *testing.T) {
	repo, mock, cleanup := newMockRepo(t)
	defer cleanup()

	mock.ExpectQuery("SELECT").
		WithArgs("missing-place").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	place, err := repo.GetPlace("missing-place")
	if err != nil {
		t.Fatalf("GetPlace() error = %v", err)
	}
	if place != nil {
		t.Errorf("expected nil place for missing ID, got %+v", place)
	}
}

func TestPlaceRepository_UpsertPlace_Insert(t *testing.T) {
	repo, mock, cleanup := newMockRepo(t)
	defer cleanup()

	mock.ExpectQuery("SELECT").
		WithArgs("lisbon").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	mock.ExpectExec("INSERT INTO places").
		WithArgs(sqlmock.AnyArg(), "lisbon", "Lisbon", "Portugal", "").
		WillReturnResult(sqlmock.NewResult(0, 1))

	id, changed, err := repo.UpsertPlace("lisbon", "Lisbon", "Portugal", "")
	if err != nil {
		t.Fatalf("UpsertPlace() error = %v", err)
	}
	if id == "" {
		t.Error("expected a generated place ID")
	}
	if changed {
		t.Error("a fresh insert should not report a change")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}
