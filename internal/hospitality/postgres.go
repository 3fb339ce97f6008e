package hospitality

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
)

// dbtx is the query surface shared by *sql.DB and *sql.Tx, so the same
// query methods serve both direct calls and transactions.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// PGStore implements Store on Postgres for deployments that outlive a
// single kiosk process. Schema: student_profiles, student_records
// (daily_check_ins as JSONB), hostels. available_beds is computed in
// queries, never stored.
type PGStore struct {
	pgQueries
	sqlDB *sql.DB
}

// NewPGStore wraps an open connection.
func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{pgQueries: pgQueries{db: db}, sqlDB: db}
}

// Transact runs fn inside a single SQL transaction and rolls every
// write back if fn fails.
func (s *PGStore) Transact(ctx context.Context, fn func(Store) error) error {
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(&pgTx{pgQueries{db: tx}}); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// pgTx is the Store view handed to Transact callbacks.
type pgTx struct {
	pgQueries
}

// Transact inside an open transaction just reuses it.
func (t *pgTx) Transact(_ context.Context, fn func(Store) error) error {
	return fn(t)
}

type pgQueries struct {
	db dbtx
}

func (q *pgQueries) Profile(ctx context.Context, studentID string) (*StudentProfile, error) {
	row := q.db.QueryRowContext(ctx, `
		SELECT student_id, name, email, phone, college, student_type
		FROM student_profiles WHERE student_id = $1
	`, studentID)
	var p StudentProfile
	if err := row.Scan(&p.StudentID, &p.Name, &p.Email, &p.Phone, &p.College, &p.StudentType); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

const recordColumns = `
	hospitality_id, student_id, name, email, phone, college, student_type,
	accommodation_type, accommodation_status, hostel_name,
	check_in_date, hostel_check_in_date, check_out_date, payment_timestamp,
	daily_check_ins, created_at, updated_at`

func scanRecord(row interface{ Scan(...any) error }) (*StudentRecord, error) {
	var rec StudentRecord
	var hostelName sql.NullString
	var daily []byte
	err := row.Scan(
		&rec.HospitalityID, &rec.StudentID, &rec.Name, &rec.Email, &rec.Phone,
		&rec.College, &rec.StudentType, &rec.AccommodationType,
		&rec.AccommodationStatus, &hostelName, &rec.CheckInDate,
		&rec.HostelCheckInDate, &rec.CheckOutDate, &rec.PaymentTimestamp,
		&daily, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if hostelName.Valid {
		rec.HostelName = hostelName.String
	}
	if len(daily) > 0 {
		if err := json.Unmarshal(daily, &rec.DailyCheckIns); err != nil {
			return nil, err
		}
	}
	return &rec, nil
}

func (q *pgQueries) Record(ctx context.Context, hospID string) (*StudentRecord, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+recordColumns+` FROM student_records WHERE hospitality_id = $1`, hospID)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return rec, err
}

func (q *pgQueries) RecordByStudentID(ctx context.Context, studentID string) (*StudentRecord, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+recordColumns+` FROM student_records WHERE student_id = $1`, studentID)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return rec, err
}

func (q *pgQueries) HospitalityIDUsed(ctx context.Context, hospID string) (bool, error) {
	var used bool
	err := q.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM student_records WHERE hospitality_id = $1)`, hospID).Scan(&used)
	return used, err
}

func (q *pgQueries) InsertRecord(ctx context.Context, rec StudentRecord) error {
	daily, err := marshalDaily(rec.DailyCheckIns)
	if err != nil {
		return err
	}
	_, err = q.db.ExecContext(ctx, `
		INSERT INTO student_records (`+recordColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)
	`, rec.HospitalityID, rec.StudentID, rec.Name, rec.Email, rec.Phone,
		rec.College, rec.StudentType, rec.AccommodationType,
		rec.AccommodationStatus, nullable(rec.HostelName), rec.CheckInDate,
		rec.HostelCheckInDate, rec.CheckOutDate, rec.PaymentTimestamp,
		daily, rec.CreatedAt, rec.UpdatedAt)
	return err
}

func (q *pgQueries) UpdateRecord(ctx context.Context, rec StudentRecord) error {
	daily, err := marshalDaily(rec.DailyCheckIns)
	if err != nil {
		return err
	}
	res, err := q.db.ExecContext(ctx, `
		UPDATE student_records SET
			accommodation_status = $2, hostel_name = $3, check_in_date = $4,
			hostel_check_in_date = $5, check_out_date = $6, payment_timestamp = $7,
			daily_check_ins = $8, updated_at = $9
		WHERE hospitality_id = $1
	`, rec.HospitalityID, rec.AccommodationStatus, nullable(rec.HostelName),
		rec.CheckInDate, rec.HostelCheckInDate, rec.CheckOutDate,
		rec.PaymentTimestamp, daily, rec.UpdatedAt)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return newError(CodeNotFound, "Student not found")
	}
	return nil
}

func (q *pgQueries) ListRecords(ctx context.Context) ([]StudentRecord, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+recordColumns+` FROM student_records ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []StudentRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

const hostelColumns = `id, name, sharing, price, total_beds, occupied_beds, total_beds - occupied_beds`

func (q *pgQueries) Hostels(ctx context.Context) ([]Hostel, error) {
	rows, err := q.db.QueryContext(ctx, `SELECT `+hostelColumns+` FROM hostels ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Hostel
	for rows.Next() {
		var h Hostel
		if err := rows.Scan(&h.ID, &h.Name, &h.Sharing, &h.Price, &h.TotalBeds, &h.OccupiedBeds, &h.AvailableBeds); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

func (q *pgQueries) HostelByName(ctx context.Context, name string) (*Hostel, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+hostelColumns+` FROM hostels WHERE name = $1`, name)
	var h Hostel
	if err := row.Scan(&h.ID, &h.Name, &h.Sharing, &h.Price, &h.TotalBeds, &h.OccupiedBeds, &h.AvailableBeds); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &h, nil
}

func (q *pgQueries) AdjustHostelOccupancy(ctx context.Context, hostelID string, delta int) error {
	res, err := q.db.ExecContext(ctx, `
		UPDATE hostels SET occupied_beds = occupied_beds + $2
		WHERE id = $1 AND occupied_beds + $2 BETWEEN 0 AND total_beds
	`, hostelID, delta)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return newError(CodeHostelFull, "No beds available in assigned hostel")
	}
	return nil
}

func (q *pgQueries) Stats(ctx context.Context) (Stats, error) {
	row := q.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
			COUNT(*) FILTER (WHERE accommodation_status = 'CHECKED_IN'),
			COUNT(*) FILTER (WHERE accommodation_status = 'REQUESTED'),
			COUNT(*) FILTER (WHERE accommodation_status = 'PAID'),
			COUNT(*) FILTER (WHERE accommodation_status = 'CHECKED_OUT'),
			COUNT(*) FILTER (WHERE accommodation_status = 'NONE')
		FROM student_records
	`)
	var st Stats
	err := row.Scan(&st.TotalStudents, &st.CheckedIn, &st.AwaitingPayment,
		&st.AwaitingHostelCheckIn, &st.CheckedOut, &st.DailyCheckIns)
	return st, err
}

func marshalDaily(daily []DailyCheckIn) ([]byte, error) {
	if daily == nil {
		return nil, nil
	}
	return json.Marshal(daily)
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
