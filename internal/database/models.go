package database

import "time"

// DateLayout is the format of Visit.VisitDate.
const DateLayout = "2006-01-02"

// Student is a registered Telegram user that can record visits.
type Student struct {
	ID        int64     `db:"id"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`

	TelegramID int64  `db:"telegram_id"`
	ChatID     int64  `db:"chat_id"`
	FullName   string `db:"full_name"`
	Username   string `db:"username"`
}

// Visit records that a student attended on a calendar day. There is at most
// one visit per student per day.
type Visit struct {
	ID        int64     `db:"id"`
	CreatedAt time.Time `db:"created_at"`

	StudentID int64  `db:"student_id"`
	VisitDate string `db:"visit_date"`
}
