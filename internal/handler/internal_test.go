package handler_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"

	"github.com/sakif/checklist/internal/handler"
	"github.com/sakif/checklist/internal/middleware"
	sqliteRepo "github.com/sakif/checklist/internal/repository/sqlite"
	"github.com/sakif/checklist/internal/service"
)

// newInternalAPI assembles the trusted provisioning route the way the
// server wires it: internal-key middleware in front of the user handler.
func newInternalAPI(t *testing.T, key string) (*chi.Mux, *sqliteRepo.DB) {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	db, err := sqliteRepo.New(":memory:")
	if err != nil {
		t.Fatalf("creating test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	userService := service.NewUserService(db, logger)
	userHandler := handler.NewUserHandler(userService, logger)

	router := chi.NewRouter()
	router.Route("/internal", func(r chi.Router) {
		r.Use(middleware.RequireInternalKey(key))
		r.Post("/users", userHandler.HandleCreateUser)
	})

	return router, db
}

func postInternalUser(t *testing.T, router http.Handler, key, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/internal/users", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if key != "" {
		req.Header.Set(middleware.InternalKeyHeader, key)
	}
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func TestInternalCreateUser_RequiresKey(t *testing.T) {
	router, _ := newInternalAPI(t, "s3cret")

	rr := postInternalUser(t, router, "", `{"subject":"subj-x"}`)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = postInternalUser(t, router, "wrong", `{"subject":"subj-x"}`)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestInternalCreateUser_UpsertOverwritesClaims(t *testing.T) {
	router, db := newInternalAPI(t, "s3cret")

	var first struct {
		ID string `json:"id"`
	}
	rr := postInternalUser(t, router, "s3cret",
		`{"subject":"subj-x","email":"old@example.com","name":"Old","imageUrl":""}`)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.NoError(t, json.NewDecoder(rr.Body).Decode(&first))

	// Second call with fresh claims: same id, claims overwritten — this is
	// the on-every-login webhook path.
	var second struct {
		ID string `json:"id"`
	}
	rr = postInternalUser(t, router, "s3cret",
		`{"subject":"subj-x","email":"new@example.com","name":"New","imageUrl":""}`)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.NoError(t, json.NewDecoder(rr.Body).Decode(&second))
	assert.Equal(t, first.ID, second.ID)

	user, err := db.GetBySubject(context.Background(), "subj-x")
	assert.NoError(t, err)
	assert.Equal(t, "new@example.com", user.Email)
	assert.Equal(t, "New", user.Name)
}

func TestInternalCreateUser_MissingSubject(t *testing.T) {
	router, _ := newInternalAPI(t, "s3cret")

	rr := postInternalUser(t, router, "s3cret", `{"email":"a@example.com"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}
