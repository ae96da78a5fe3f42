package codes

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/forgotpw/secretsvc/internal/common"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

const findQuery = `(?s)^\s*SELECT\s+normalized_phone,\s*code,\s*expire_epoch\s+FROM\s+verification_codes\s+WHERE\s+normalized_phone\s*=\s*\$1\s*$`

func TestFind_Found(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"normalized_phone", "code", "expire_epoch"}).
		AddRow("+16095551313", "1234", int64(1900000000))

	mock.ExpectQuery(findQuery).
		WithArgs("+16095551313").
		WillReturnRows(rows)

	got, err := repo.Find(context.Background(), "+16095551313")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Code != "1234" || got.ExpireEpoch != 1900000000 {
		t.Fatalf("unexpected row: %+v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestFind_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(findQuery).
		WithArgs("+19995550000").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.Find(context.Background(), "+19995550000")
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want common.ErrorNotFound, got %v", err)
	}
}

func TestFind_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(findQuery).
		WithArgs("+16095551313").
		WillReturnError(errors.New("db down"))

	if _, err := repo.Find(context.Background(), "+16095551313"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestSave_ReplacesPreviousCodeInOneTx(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`(?s)^\s*DELETE\s+FROM\s+verification_codes\s+WHERE\s+normalized_phone\s*=\s*\$1\s*$`).
		WithArgs("+16095551313").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`(?s)^\s*INSERT\s+INTO\s+verification_codes\b.*VALUES\s*\(\$1,\s*\$2,\s*\$3\)\s*$`).
		WithArgs("+16095551313", "1234", int64(1900000000)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.Save(context.Background(), &VerificationCode{
		NormalizedPhone: "+16095551313",
		Code:            "1234",
		ExpireEpoch:     1900000000,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSave_RollsBackOnInsertError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`(?s)^\s*DELETE\s+FROM\s+verification_codes\b`).
		WithArgs("+16095551313").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`(?s)^\s*INSERT\s+INTO\s+verification_codes\b`).
		WillReturnError(errors.New("constraint violation"))
	mock.ExpectRollback()

	err := repo.Save(context.Background(), &VerificationCode{
		NormalizedPhone: "+16095551313",
		Code:            "1234",
		ExpireEpoch:     1900000000,
	})
	if err == nil {
		t.Fatalf("expected error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
