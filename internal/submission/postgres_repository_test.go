package submission

import (
	"context"
	"errors"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v3"
)

func newMockRepo(t *testing.T) (pgxmock.PgxPoolIface, *PostgresRepository) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	t.Cleanup(mock.Close)
	return mock, NewPostgresRepository(mock)
}

func TestPostgresCreate(t *testing.T) {
	mock, repo := newMockRepo(t)
	createdAt := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery("INSERT INTO submissions").
		WithArgs(pgxmock.AnyArg(), "Ada", "ada@example.com", "5551234", "Hello", pgxmock.AnyArg(), StatusNew, "203.0.113.9", "test-agent").
		WillReturnRows(pgxmock.NewRows([]string{"created_at"}).AddRow(createdAt))

	sub := &Submission{
		Name:      "Ada",
		Email:     "ada@example.com",
		Phone:     "5551234",
		Message:   "Hello",
		Fields:    map[string]string{"Company": "Acme"},
		IPAddress: "203.0.113.9",
		UserAgent: "test-agent",
	}
	if err := repo.Create(context.Background(), sub); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if sub.ID == "" {
		t.Error("Create did not assign an id")
	}
	if !sub.CreatedAt.Equal(createdAt) {
		t.Errorf("CreatedAt = %v", sub.CreatedAt)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestPostgresGetByID(t *testing.T) {
	mock, repo := newMockRepo(t)
	createdAt := time.Now().UTC()

	rows := pgxmock.NewRows([]string{"id", "name", "email", "phone", "message", "fields_data", "status", "ip_address", "user_agent", "created_at"}).
		AddRow("sub-1", "Ada", "ada@example.com", "", "Hello", []byte(`{"Company":"Acme"}`), StatusNew, "", "", createdAt)
	mock.ExpectQuery("SELECT (.+) FROM submissions").WithArgs("sub-1").WillReturnRows(rows)

	sub, err := repo.GetByID(context.Background(), "sub-1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if sub.Name != "Ada" || sub.Fields["Company"] != "Acme" {
		t.Errorf("sub = %+v", sub)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestPostgresGetByIDNotFound(t *testing.T) {
	mock, repo := newMockRepo(t)

	mock.ExpectQuery("SELECT (.+) FROM submissions").
		WithArgs("missing").
		WillReturnRows(pgxmock.NewRows([]string{"id"}))

	if _, err := repo.GetByID(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestPostgresList(t *testing.T) {
	mock, repo := newMockRepo(t)
	createdAt := time.Now().UTC()

	mock.ExpectQuery("SELECT COUNT").
		WithArgs(StatusNew).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery("SELECT (.+) FROM submissions").
		WithArgs(StatusNew, 20, 0).
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "email", "phone", "message", "fields_data", "status", "ip_address", "user_agent", "created_at"}).
			AddRow("sub-1", "Ada", "ada@example.com", "", "Hello", []byte(nil), StatusNew, "", "", createdAt))

	subs, total, err := repo.List(context.Background(), Filter{Status: StatusNew})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 1 || len(subs) != 1 || subs[0].ID != "sub-1" {
		t.Errorf("subs = %v, total = %d", subs, total)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestPostgresUpdateStatusNotFound(t *testing.T) {
	mock, repo := newMockRepo(t)

	mock.ExpectExec("UPDATE submissions SET status").
		WithArgs(StatusRead, "missing").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	if err := repo.UpdateStatus(context.Background(), "missing", StatusRead); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestPostgresDeleteMany(t *testing.T) {
	mock, repo := newMockRepo(t)

	mock.ExpectExec("DELETE FROM submissions").
		WithArgs([]string{"a", "b"}).
		WillReturnResult(pgxmock.NewResult("DELETE", 2))

	deleted, err := repo.DeleteMany(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("DeleteMany: %v", err)
	}
	if deleted != 2 {
		t.Errorf("deleted = %d", deleted)
	}
}

func TestPostgresDailyCountsZeroFills(t *testing.T) {
	mock, repo := newMockRepo(t)

	today := time.Now().UTC().Truncate(24 * time.Hour)
	mock.ExpectQuery("SELECT date_trunc").
		WithArgs(pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"day", "count"}).AddRow(today, 3))

	counts, err := repo.DailyCounts(context.Background(), 7)
	if err != nil {
		t.Fatalf("DailyCounts: %v", err)
	}
	if len(counts) != 7 {
		t.Fatalf("len = %d, want 7", len(counts))
	}
	if counts[6].Count != 3 {
		t.Errorf("today's count = %d, want 3", counts[6].Count)
	}
	for i := 0; i < 6; i++ {
		if counts[i].Count != 0 {
			t.Errorf("counts[%d] = %d, want zero fill", i, counts[i].Count)
		}
	}
	if counts[6].Label != today.Format("Jan 2") {
		t.Errorf("label = %q", counts[6].Label)
	}
}
