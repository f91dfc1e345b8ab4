package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// ErrNotFound is returned when a looked-up record does not exist.
var ErrNotFound = errors.New("not found")

const (
	maxBusyRetries = 3
	busyRetryDelay = 50 * time.Millisecond
	maxListLimit   = 100
)

// Store defines the interface for database operations.
// Methods accept context.Context for cancellation and timeouts.
type Store interface {
	// Ping checks the database connection.
	Ping(ctx context.Context) error

	// RegisterStudent inserts a student or updates the name of an existing one
	// with the same Telegram ID.
	RegisterStudent(ctx context.Context, student *Student) error

	// GetStudentByTelegramID returns ErrNotFound for unknown users.
	GetStudentByTelegramID(ctx context.Context, telegramID int64) (*Student, error)

	// ListStudents returns all students ordered by name.
	ListStudents(ctx context.Context) ([]Student, error)

	// DeleteStudent removes a student together with their visits.
	DeleteStudent(ctx context.Context, studentID int64) error

	// RecordVisit stores a visit for day and reports whether it was new.
	RecordVisit(ctx context.Context, studentID int64, day time.Time) (bool, error)

	// ListVisits returns the most recent visits of a student, newest first.
	ListVisits(ctx context.Context, studentID int64, limit int) ([]Visit, error)

	// CountVisitsOn counts the distinct students that visited on day.
	CountVisitsOn(ctx context.Context, day time.Time) (int, error)

	// RunSQLMaintenance performs database maintenance tasks like VACUUM.
	RunSQLMaintenance(ctx context.Context) error
}

// sqlxStore provides an implementation of the Store interface using sqlx.
type sqlxStore struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// NewStore creates a new Store implementation backed by sqlx.
// It requires a connected sqlx.DB instance and a logger.
func NewStore(db *sqlx.DB, logger *zap.Logger) Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &sqlxStore{
		db:     db,
		logger: logger.Named("store"),
	}
}

// Ping checks the database connection.
func (s *sqlxStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// withTx runs fn in a serializable transaction, committing on success and
// rolling back otherwise. Transactions that fail to take the database lock are
// retried a few times before giving up.
func (s *sqlxStore) withTx(ctx context.Context, op string, fn func(tx *sqlx.Tx) error) error {
	var err error
	for attempt := 1; attempt <= maxBusyRetries; attempt++ {
		err = s.runTx(ctx, fn)
		if err == nil || !isBusy(err) {
			break
		}
		s.logger.Warn("database busy, retrying transaction",
			zap.String("op", op), zap.Int("attempt", attempt), zap.Error(err))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * busyRetryDelay):
		}
	}
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (s *sqlxStore) runTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, TxOptions)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if rollbackErr := tx.Rollback(); rollbackErr != nil && !errors.Is(rollbackErr, sql.ErrTxDone) {
			s.logger.Warn("error rolling back transaction", zap.Error(rollbackErr))
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// isBusy matches SQLITE_BUSY and SQLITE_LOCKED by message so the store does
// not depend on driver internals.
func isBusy(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "sqlite_busy") ||
		strings.Contains(msg, "database table is locked")
}

// RegisterStudent inserts a student or refreshes the name and chat of an
// existing one.
func (s *sqlxStore) RegisterStudent(ctx context.Context, student *Student) error {
	if student == nil {
		return fmt.Errorf("cannot register nil student")
	}
	if student.TelegramID == 0 {
		return fmt.Errorf("student must have a non-zero telegram_id")
	}
	if strings.TrimSpace(student.FullName) == "" {
		return fmt.Errorf("student must have a non-empty full_name")
	}

	now := time.Now().UTC()
	student.CreatedAt = now
	student.UpdatedAt = now

	err := s.withTx(ctx, "register student", func(tx *sqlx.Tx) error {
		_, err := tx.NamedExecContext(ctx, `
            INSERT INTO students (telegram_id, chat_id, full_name, username, created_at, updated_at)
            VALUES (:telegram_id, :chat_id, :full_name, :username, :created_at, :updated_at)
            ON CONFLICT (telegram_id) DO UPDATE SET
                chat_id    = excluded.chat_id,
                full_name  = excluded.full_name,
                username   = excluded.username,
                updated_at = excluded.updated_at;
        `, student)
		if err != nil {
			return err
		}
		return tx.GetContext(ctx, student, `
            SELECT id, telegram_id, chat_id, full_name, username, created_at, updated_at
            FROM students WHERE telegram_id = ?;
        `, student.TelegramID)
	})
	if err != nil {
		s.logger.Error("failed to register student", zap.Int64("telegram_id", student.TelegramID), zap.Error(err))
		return err
	}

	s.logger.Debug("student registered", zap.Int64("student_id", student.ID), zap.Int64("telegram_id", student.TelegramID))
	return nil
}

// GetStudentByTelegramID looks up a student by Telegram user ID.
func (s *sqlxStore) GetStudentByTelegramID(ctx context.Context, telegramID int64) (*Student, error) {
	var student Student
	err := s.db.GetContext(ctx, &student, `
        SELECT id, telegram_id, chat_id, full_name, username, created_at, updated_at
        FROM students WHERE telegram_id = ?;
    `, telegramID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get student %d: %w", telegramID, err)
	}
	return &student, nil
}

// ListStudents returns every registered student.
func (s *sqlxStore) ListStudents(ctx context.Context) ([]Student, error) {
	var students []Student
	err := s.db.SelectContext(ctx, &students, `
        SELECT id, telegram_id, chat_id, full_name, username, created_at, updated_at
        FROM students ORDER BY full_name, id;
    `)
	if err != nil {
		return nil, fmt.Errorf("failed to list students: %w", err)
	}
	return students, nil
}

// DeleteStudent removes a student; visits go with it through the foreign key.
func (s *sqlxStore) DeleteStudent(ctx context.Context, studentID int64) error {
	return s.withTx(ctx, "delete student", func(tx *sqlx.Tx) error {
		result, err := tx.ExecContext(ctx, `DELETE FROM students WHERE id = ?;`, studentID)
		if err != nil {
			return err
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// RecordVisit stores a visit for the calendar day of day. Recording the same
// day twice is not an error; the second call reports false.
func (s *sqlxStore) RecordVisit(ctx context.Context, studentID int64, day time.Time) (bool, error) {
	if studentID == 0 {
		return false, fmt.Errorf("visit must have a non-zero student_id")
	}
	visitDate := day.Format(DateLayout)

	var created bool
	err := s.withTx(ctx, "record visit", func(tx *sqlx.Tx) error {
		result, err := tx.ExecContext(ctx, `
            INSERT INTO visits (student_id, visit_date, created_at)
            VALUES (?, ?, ?)
            ON CONFLICT (student_id, visit_date) DO NOTHING;
        `, studentID, visitDate, time.Now().UTC())
		if err != nil {
			return err
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return err
		}
		created = affected == 1
		return nil
	})
	if err != nil {
		s.logger.Error("failed to record visit", zap.Int64("student_id", studentID), zap.String("visit_date", visitDate), zap.Error(err))
		return false, err
	}

	s.logger.Debug("visit recorded", zap.Int64("student_id", studentID), zap.String("visit_date", visitDate), zap.Bool("created", created))
	return created, nil
}

// ListVisits returns up to limit visits of a student, newest first.
func (s *sqlxStore) ListVisits(ctx context.Context, studentID int64, limit int) ([]Visit, error) {
	if limit <= 0 || limit > maxListLimit {
		limit = maxListLimit
	}

	var visits []Visit
	err := s.db.SelectContext(ctx, &visits, `
        SELECT id, student_id, visit_date, created_at
        FROM visits WHERE student_id = ?
        ORDER BY visit_date DESC
        LIMIT ?;
    `, studentID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list visits for student %d: %w", studentID, err)
	}
	return visits, nil
}

// CountVisitsOn counts students that visited on the calendar day of day.
func (s *sqlxStore) CountVisitsOn(ctx context.Context, day time.Time) (int, error) {
	var count int
	err := s.db.GetContext(ctx, &count, `SELECT COUNT(DISTINCT student_id) FROM visits WHERE visit_date = ?;`,
		day.Format(DateLayout))
	if err != nil {
		return 0, fmt.Errorf("failed to count visits: %w", err)
	}
	return count, nil
}

// RunSQLMaintenance refreshes planner statistics and compacts the file.
// VACUUM cannot run inside a transaction.
func (s *sqlxStore) RunSQLMaintenance(ctx context.Context) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	s.logger.Info("starting database maintenance")

	if _, err := s.db.ExecContext(ctx, "PRAGMA optimize;"); err != nil {
		s.logger.Warn("PRAGMA optimize failed", zap.Error(err))
	}

	_, err := s.db.ExecContext(ctx, "VACUUM;")
	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
		return fmt.Errorf("database maintenance (VACUUM) timed out: %w", err)
	case err != nil:
		return fmt.Errorf("failed to execute VACUUM: %w", err)
	}

	s.logger.Info("database maintenance completed")
	return nil
}
