package sqlite

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/sakif/checklist/internal/apperror"
	"github.com/sakif/checklist/internal/model"
)

// newTestDB returns a *DB backed by a fresh in-memory database that lives
// only for the duration of the test.
func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func insertTestUser(t *testing.T, db *DB, subject string) *model.User {
	t.Helper()
	user := &model.User{
		Subject:  subject,
		Email:    subject + "@example.com",
		Name:     "Test User",
		ImageURL: "https://img.example.com/u.png",
	}
	if err := db.Insert(context.Background(), user); err != nil {
		t.Fatalf("failed to insert test user: %v", err)
	}
	return user
}

// =========================================================================
// INSERT TESTS
// =========================================================================

func TestUserInsert(t *testing.T) {
	db := newTestDB(t)

	user := &model.User{Subject: "subj-1", Email: "a@example.com"}
	if err := db.Insert(context.Background(), user); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}

	if user.ID == "" {
		t.Error("Insert() did not set user.ID")
	}
	if user.CreatedAt.IsZero() {
		t.Error("Insert() did not set user.CreatedAt")
	}
}

func TestUserInsert_DuplicateSubjectConflicts(t *testing.T) {
	db := newTestDB(t)

	first := insertTestUser(t, db, "subj-dup")

	// A second insert for the same subject must hit the UNIQUE constraint,
	// not create a second row.
	err := db.Insert(context.Background(), &model.User{Subject: "subj-dup"})
	if err == nil {
		t.Fatal("Insert() should fail for a duplicate subject")
	}
	if !errors.Is(err, apperror.ErrConflict) {
		t.Errorf("error = %v, want ErrConflict", err)
	}

	// The original row is untouched
	got, err := db.GetBySubject(context.Background(), "subj-dup")
	if err != nil {
		t.Fatalf("GetBySubject() error = %v", err)
	}
	if got.ID != first.ID {
		t.Errorf("surviving user ID = %q, want %q", got.ID, first.ID)
	}
}

// =========================================================================
// UPSERT TESTS
// =========================================================================

func TestUserUpsert_CreatesWhenMissing(t *testing.T) {
	db := newTestDB(t)

	user := &model.User{Subject: "subj-new", Email: "new@example.com"}
	if err := db.Upsert(context.Background(), user); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if user.ID == "" {
		t.Error("Upsert() did not set user.ID for a new user")
	}
}

func TestUserUpsert_OverwritesClaimsKeepsID(t *testing.T) {
	db := newTestDB(t)

	first := insertTestUser(t, db, "subj-up")

	updated := &model.User{
		Subject:  "subj-up",
		Email:    "fresh@example.com",
		Name:     "Fresh Name",
		ImageURL: "https://img.example.com/fresh.png",
	}
	if err := db.Upsert(context.Background(), updated); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	if updated.ID != first.ID {
		t.Errorf("Upsert() ID = %q, want stable %q", updated.ID, first.ID)
	}

	got, err := db.GetBySubject(context.Background(), "subj-up")
	if err != nil {
		t.Fatalf("GetBySubject() error = %v", err)
	}
	if got.Email != "fresh@example.com" {
		t.Errorf("Email = %q, want %q", got.Email, "fresh@example.com")
	}
	if got.Name != "Fresh Name" {
		t.Errorf("Name = %q, want %q", got.Name, "Fresh Name")
	}
}

func TestUserUpsert_ConcurrentFirstLogin(t *testing.T) {
	db := newTestDB(t)
	// A single pooled connection keeps both goroutines on the same in-memory
	// database while their statements still interleave.
	db.conn.SetMaxOpenConns(1)

	// Two first logins for the same fresh subject can race: both see no
	// existing row and take the insert path. The losing insert must resolve
	// into an update, not surface a conflict that fails the caller's sign-in.
	for i := 0; i < 20; i++ {
		subject := fmt.Sprintf("subj-race-%d", i)

		var wg sync.WaitGroup
		errs := make([]error, 2)
		users := make([]*model.User, 2)
		for j := 0; j < 2; j++ {
			wg.Add(1)
			go func(j int) {
				defer wg.Done()
				u := &model.User{
					Subject: subject,
					Email:   fmt.Sprintf("login-%d@example.com", j),
				}
				errs[j] = db.Upsert(context.Background(), u)
				users[j] = u
			}(j)
		}
		wg.Wait()

		for j, err := range errs {
			if err != nil {
				t.Fatalf("iteration %d: concurrent Upsert() #%d error = %v", i, j, err)
			}
		}
		if users[0].ID != users[1].ID {
			t.Errorf("iteration %d: IDs diverged: %q vs %q", i, users[0].ID, users[1].ID)
		}
	}
}

func TestUserUpsert_RepeatedCallsOneRow(t *testing.T) {
	db := newTestDB(t)

	var lastID string
	for i := 0; i < 3; i++ {
		user := &model.User{Subject: "subj-rep", Email: "rep@example.com"}
		if err := db.Upsert(context.Background(), user); err != nil {
			t.Fatalf("Upsert() #%d error = %v", i, err)
		}
		if lastID != "" && user.ID != lastID {
			t.Errorf("Upsert() #%d ID = %q, want %q", i, user.ID, lastID)
		}
		lastID = user.ID
	}
}

// =========================================================================
// LOOKUP TESTS
// =========================================================================

func TestGetBySubject_NotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := db.GetBySubject(context.Background(), "never-seen")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestGetUserByID_RoundTrip(t *testing.T) {
	db := newTestDB(t)

	created := insertTestUser(t, db, "subj-rt")

	got, err := db.GetUserByID(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("GetUserByID() error = %v", err)
	}
	if got.Subject != "subj-rt" {
		t.Errorf("Subject = %q, want %q", got.Subject, "subj-rt")
	}
	if got.Email != created.Email {
		t.Errorf("Email = %q, want %q", got.Email, created.Email)
	}
}

func TestGetUserByID_NotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := db.GetUserByID(context.Background(), "nonexistent")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}
