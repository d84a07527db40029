package health

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestCheckWithoutDependencies(t *testing.T) {
	st := NewService(nil, nil).Check(context.Background())
	if !st.OK || st.Database != "disabled" || st.Cache != "disabled" || st.Pool != nil {
		t.Fatalf("unexpected status %+v", st)
	}
}

func TestCheckReportsDatabaseDown(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()
	mock.ExpectPing().WillReturnError(errors.New("connection refused"))

	st := NewService(db, nil).Check(context.Background())
	if st.OK || st.Database != "down" || st.Errors["database"] != "connection refused" {
		t.Fatalf("unexpected status %+v", st)
	}
}

func TestCheckReportsDatabaseUp(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()
	mock.ExpectPing()

	st := NewService(db, nil).Check(context.Background())
	if !st.OK || st.Database != "up" || st.Pool == nil {
		t.Fatalf("unexpected status %+v", st)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
