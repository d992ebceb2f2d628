package database

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/hisakoh/campushub/core/academics"
)

// pqUniqueViolation is the postgres error code for unique constraint violations.
const pqUniqueViolation = "23505"

type lectureRow struct {
	ID               string         `db:"id"`
	SyllabusID       sql.NullString `db:"syllabus_id"`
	Name             string         `db:"name"`
	Room             string         `db:"room"`
	Instructor       string         `db:"instructor"`
	Note             string         `db:"note"`
	Grade            int            `db:"grade"`
	IsPublic         bool           `db:"is_public"`
	IsPublicEditable bool           `db:"is_public_editable"`
	OwnerID          int            `db:"owner_id"`
	CreatedAt        time.Time      `db:"created_at"`
	UpdatedAt        time.Time      `db:"updated_at"`
	Terms            pq.Int64Array  `db:"terms"`
	Slots            pq.Int64Array  `db:"slots"`
}

func (r lectureRow) unpack() academics.Lecture {
	return academics.Lecture{
		ID:               r.ID,
		SyllabusID:       null.NewString(r.SyllabusID.String, r.SyllabusID.Valid),
		Name:             r.Name,
		Room:             r.Room,
		Instructor:       r.Instructor,
		Note:             r.Note,
		Grade:            r.Grade,
		Terms:            toInts(r.Terms),
		Slots:            toInts(r.Slots),
		IsPublic:         r.IsPublic,
		IsPublicEditable: r.IsPublicEditable,
		OwnerID:          r.OwnerID,
		CreatedAt:        r.CreatedAt,
		UpdatedAt:        r.UpdatedAt,
	}
}

func toInts(a pq.Int64Array) []int {
	ints := make([]int, 0, len(a))
	for _, v := range a {
		ints = append(ints, int(v))
	}
	return ints
}

// lectureSelect aggregates the term and slot join rows into arrays so one
// query returns complete lectures.
const lectureSelect = `
	SELECT l.*,
	       COALESCE((SELECT array_agg(lt.term_number ORDER BY lt.term_number) FROM lecture_term lt WHERE lt.lecture_id = l.id), '{}') AS terms,
	       COALESCE((SELECT array_agg(ls.slot_id ORDER BY ls.slot_id) FROM lecture_slot ls WHERE ls.lecture_id = l.id), '{}') AS slots
	FROM lecture l`

type academicsRepository struct {
	db *sqlx.DB
}

var _ academics.Repository = (*academicsRepository)(nil) // interface compliance check

func NewAcademicsRepository(db *sqlx.DB) *academicsRepository {
	return &academicsRepository{db: db}
}

func (repo *academicsRepository) QueryTerms(ctx context.Context) ([]academics.Term, error) {
	var rows []struct {
		Number    int          `db:"number"`
		StartDate sql.NullTime `db:"start_date"`
		EndDate   sql.NullTime `db:"end_date"`
	}
	q := `SELECT * FROM term ORDER BY number`
	if err := repo.db.SelectContext(ctx, &rows, q); err != nil {
		return nil, errors.Wrap(err, "querying terms")
	}
	terms := make([]academics.Term, 0, len(rows))
	for _, r := range rows {
		terms = append(terms, academics.Term{
			Number:    r.Number,
			StartDate: null.NewTime(r.StartDate.Time, r.StartDate.Valid),
			EndDate:   null.NewTime(r.EndDate.Time, r.EndDate.Valid),
		})
	}
	return terms, nil
}

func (repo *academicsRepository) UpsertTerms(ctx context.Context, numbers ...int) error {
	q := `INSERT INTO term (number) VALUES ($1) ON CONFLICT (number) DO NOTHING`
	for _, n := range numbers {
		if _, err := repo.db.ExecContext(ctx, q, n); err != nil {
			return errors.Wrap(err, "upserting term")
		}
	}
	return nil
}

func (repo *academicsRepository) SetTermDates(ctx context.Context, number int, start, end null.Time) (academics.Term, error) {
	q := `UPDATE term SET start_date = $1, end_date = $2 WHERE number = $3`
	res, err := repo.db.ExecContext(ctx, q, start.Ptr(), end.Ptr(), number)
	if err != nil {
		return academics.Term{}, errors.Wrap(err, "updating term dates")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return academics.Term{}, academics.ErrNoCurrentTerm
	}
	return academics.Term{Number: number, StartDate: start, EndDate: end}, nil
}

func (repo *academicsRepository) QuerySlots(ctx context.Context) ([]academics.Slot, error) {
	var slots []academics.Slot
	q := `SELECT id, day, period FROM slot ORDER BY id`
	rows, err := repo.db.QueryxContext(ctx, q)
	if err != nil {
		return nil, errors.Wrap(err, "querying slots")
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var s academics.Slot
		if err = rows.Scan(&s.ID, &s.Day, &s.Period); err != nil {
			return nil, errors.Wrap(err, "querying slots")
		}
		slots = append(slots, s)
	}
	return slots, errors.Wrap(rows.Err(), "querying slots")
}

func (repo *academicsRepository) UpsertSlots(ctx context.Context, slots ...academics.Slot) error {
	q := `INSERT INTO slot (id, day, period) VALUES ($1, $2, $3) ON CONFLICT (id) DO NOTHING`
	for _, s := range slots {
		if _, err := repo.db.ExecContext(ctx, q, s.ID, s.Day, s.Period); err != nil {
			return errors.Wrap(err, "upserting slot")
		}
	}
	return nil
}

func (repo *academicsRepository) insertLectureLinks(ctx context.Context, tx *sqlx.Tx, lec academics.Lecture) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM lecture_term WHERE lecture_id = $1`, lec.ID); err != nil {
		return errors.Wrap(err, "clearing lecture terms")
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM lecture_slot WHERE lecture_id = $1`, lec.ID); err != nil {
		return errors.Wrap(err, "clearing lecture slots")
	}
	for _, n := range lec.Terms {
		if _, err := tx.ExecContext(ctx, `INSERT INTO lecture_term (lecture_id, term_number) VALUES ($1, $2)`, lec.ID, n); err != nil {
			return errors.Wrap(err, "linking lecture term")
		}
	}
	for _, id := range lec.Slots {
		if _, err := tx.ExecContext(ctx, `INSERT INTO lecture_slot (lecture_id, slot_id) VALUES ($1, $2)`, lec.ID, id); err != nil {
			return errors.Wrap(err, "linking lecture slot")
		}
	}
	return nil
}

func (repo *academicsRepository) CreateLecture(ctx context.Context, lec academics.Lecture) (academics.Lecture, error) {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return academics.Lecture{}, errors.Wrap(err, "beginning tx")
	}
	defer func() { _ = tx.Rollback() }()

	q := `
		INSERT INTO lecture (id, syllabus_id, name, room, instructor, note, grade, is_public, is_public_editable, owner_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	_, err = tx.ExecContext(
		ctx, q, lec.ID, lec.SyllabusID.Ptr(), lec.Name, lec.Room, lec.Instructor, lec.Note,
		lec.Grade, lec.IsPublic, lec.IsPublicEditable, lec.OwnerID, lec.CreatedAt, lec.UpdatedAt,
	)
	if err != nil {
		return academics.Lecture{}, errors.Wrap(err, "inserting lecture")
	}
	if err = repo.insertLectureLinks(ctx, tx, lec); err != nil {
		return academics.Lecture{}, err
	}
	if err = tx.Commit(); err != nil {
		return academics.Lecture{}, errors.Wrap(err, "committing lecture")
	}
	return lec, nil
}

func (repo *academicsRepository) GetLectureByID(ctx context.Context, id string) (academics.Lecture, error) {
	var row lectureRow
	q := lectureSelect + ` WHERE l.id = $1`
	if err := repo.db.GetContext(ctx, &row, q, id); err != nil {
		return academics.Lecture{}, trapNoRowsErr(err, academics.ErrLectureNotFound, "getting lecture")
	}
	return row.unpack(), nil
}

func (repo *academicsRepository) QueryLectures(ctx context.Context, userID int) ([]academics.Lecture, error) {
	var rows []lectureRow
	q := lectureSelect + ` WHERE l.is_public OR l.owner_id = $1 ORDER BY l.created_at`
	if err := repo.db.SelectContext(ctx, &rows, q, userID); err != nil {
		return nil, errors.Wrap(err, "querying lectures")
	}
	lecs := make([]academics.Lecture, 0, len(rows))
	for _, r := range rows {
		lecs = append(lecs, r.unpack())
	}
	return lecs, nil
}

func (repo *academicsRepository) UpdateLecture(ctx context.Context, lec academics.Lecture) (academics.Lecture, error) {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return academics.Lecture{}, errors.Wrap(err, "beginning tx")
	}
	defer func() { _ = tx.Rollback() }()

	q := `
		UPDATE lecture SET
			syllabus_id = $1, name = $2, room = $3, instructor = $4, note = $5, grade = $6,
			is_public = $7, is_public_editable = $8, updated_at = $9
		WHERE id = $10`
	res, err := tx.ExecContext(
		ctx, q, lec.SyllabusID.Ptr(), lec.Name, lec.Room, lec.Instructor, lec.Note, lec.Grade,
		lec.IsPublic, lec.IsPublicEditable, lec.UpdatedAt, lec.ID,
	)
	if err != nil {
		return academics.Lecture{}, errors.Wrap(err, "updating lecture")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return academics.Lecture{}, academics.ErrLectureNotFound
	}
	if err = repo.insertLectureLinks(ctx, tx, lec); err != nil {
		return academics.Lecture{}, err
	}
	if err = tx.Commit(); err != nil {
		return academics.Lecture{}, errors.Wrap(err, "committing lecture")
	}
	return lec, nil
}

func (repo *academicsRepository) DeleteLecture(ctx context.Context, id string) error {
	_, err := repo.db.ExecContext(ctx, `DELETE FROM lecture WHERE id = $1`, id)
	return errors.Wrap(err, "deleting lecture")
}

// CreateRegistrationIfNoConflict runs the collision query and the insert in
// one transaction so concurrent registrations for the same user serialize on
// the user's advisory lock.
func (repo *academicsRepository) CreateRegistrationIfNoConflict(ctx context.Context, reg academics.Registration, candidate academics.Lecture) (academics.Registration, []string, error) {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return academics.Registration{}, nil, errors.Wrap(err, "beginning tx")
	}
	defer func() { _ = tx.Rollback() }()

	if _, err = tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, reg.UserID); err != nil {
		return academics.Registration{}, nil, errors.Wrap(err, "locking user registrations")
	}

	// colliding lectures: same user, same year, sharing at least one term
	// AND at least one slot with the candidate
	q, args, err := sqlx.In(`
		SELECT DISTINCT l.name
		FROM registration r
		JOIN lecture l ON l.id = r.lecture_id
		WHERE r.user_id = ? AND r.year = ?
		  AND EXISTS (SELECT 1 FROM lecture_term lt WHERE lt.lecture_id = l.id AND lt.term_number IN (?))
		  AND EXISTS (SELECT 1 FROM lecture_slot ls WHERE ls.lecture_id = l.id AND ls.slot_id IN (?))
		ORDER BY l.name`,
		reg.UserID, reg.Year, candidate.Terms, candidate.Slots)
	if err != nil {
		return academics.Registration{}, nil, errors.Wrap(err, "building conflict query")
	}
	var colliding []string
	if err = tx.SelectContext(ctx, &colliding, tx.Rebind(q), args...); err != nil {
		return academics.Registration{}, nil, errors.Wrap(err, "checking conflicts")
	}
	if len(colliding) > 0 {
		return academics.Registration{}, colliding, nil
	}

	ins := `
		INSERT INTO registration (user_id, lecture_id, year, attendance_count, registered_at)
		VALUES ($1, $2, $3, 0, $4)
		RETURNING id`
	err = tx.QueryRowContext(ctx, ins, reg.UserID, reg.LectureID, reg.Year, reg.RegisteredAt).Scan(&reg.ID)
	if err != nil {
		if pqErr, ok := errors.Cause(err).(*pq.Error); ok && pqErr.Code == pqUniqueViolation {
			return academics.Registration{}, nil, academics.ErrRegistrationExists
		}
		return academics.Registration{}, nil, errors.Wrap(err, "inserting registration")
	}
	if err = tx.Commit(); err != nil {
		return academics.Registration{}, nil, errors.Wrap(err, "committing registration")
	}
	return reg, nil, nil
}

type registrationRow struct {
	ID              int       `db:"id"`
	UserID          int       `db:"user_id"`
	LectureID       string    `db:"lecture_id"`
	Year            int       `db:"year"`
	AttendanceCount int       `db:"attendance_count"`
	RegisteredAt    time.Time `db:"registered_at"`
}

func (r registrationRow) unpack() academics.Registration {
	return academics.Registration{
		ID:              r.ID,
		UserID:          r.UserID,
		LectureID:       r.LectureID,
		Year:            r.Year,
		AttendanceCount: r.AttendanceCount,
		RegisteredAt:    r.RegisteredAt,
	}
}

func (repo *academicsRepository) attachLectures(ctx context.Context, regs []academics.Registration) error {
	for i := range regs {
		lec, err := repo.GetLectureByID(ctx, regs[i].LectureID)
		if err != nil {
			return err
		}
		regs[i].Lecture = &lec
	}
	return nil
}

func (repo *academicsRepository) QueryRegistrations(ctx context.Context, userID, year int) ([]academics.Registration, error) {
	var rows []registrationRow
	q := `SELECT * FROM registration WHERE user_id = $1 AND year = $2 ORDER BY registered_at`
	if err := repo.db.SelectContext(ctx, &rows, q, userID, year); err != nil {
		return nil, errors.Wrap(err, "querying registrations")
	}
	regs := make([]academics.Registration, 0, len(rows))
	for _, r := range rows {
		regs = append(regs, r.unpack())
	}
	if err := repo.attachLectures(ctx, regs); err != nil {
		return nil, err
	}
	return regs, nil
}

func (repo *academicsRepository) GetRegistration(ctx context.Context, id, userID int) (academics.Registration, error) {
	var row registrationRow
	q := `SELECT * FROM registration WHERE id = $1 AND user_id = $2`
	if err := repo.db.GetContext(ctx, &row, q, id, userID); err != nil {
		return academics.Registration{}, trapNoRowsErr(err, academics.ErrRegistrationNotFound, "getting registration")
	}
	reg := row.unpack()
	lec, err := repo.GetLectureByID(ctx, reg.LectureID)
	if err != nil {
		return academics.Registration{}, err
	}
	reg.Lecture = &lec
	return reg, nil
}

func (repo *academicsRepository) DeleteRegistration(ctx context.Context, id, userID int) error {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM registration WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return errors.Wrap(err, "deleting registration")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return academics.ErrRegistrationNotFound
	}
	return nil
}

func (repo *academicsRepository) QueryRegistrationsForSlot(ctx context.Context, slotID, termNumber, year int) ([]academics.Registration, error) {
	var rows []registrationRow
	q := `
		SELECT r.* FROM registration r
		WHERE r.year = $1
		  AND EXISTS (SELECT 1 FROM lecture_slot ls WHERE ls.lecture_id = r.lecture_id AND ls.slot_id = $2)
		  AND EXISTS (SELECT 1 FROM lecture_term lt WHERE lt.lecture_id = r.lecture_id AND lt.term_number = $3)
		ORDER BY r.id`
	if err := repo.db.SelectContext(ctx, &rows, q, year, slotID, termNumber); err != nil {
		return nil, errors.Wrap(err, "querying registrations for slot")
	}
	regs := make([]academics.Registration, 0, len(rows))
	for _, r := range rows {
		regs = append(regs, r.unpack())
	}
	if err := repo.attachLectures(ctx, regs); err != nil {
		return nil, err
	}
	return regs, nil
}

func (repo *academicsRepository) IncrementAttendance(ctx context.Context, id, userID int) (int, error) {
	var count int
	q := `
		UPDATE registration SET attendance_count = LEAST(attendance_count + 1, $1)
		WHERE id = $2 AND user_id = $3
		RETURNING attendance_count`
	err := repo.db.QueryRowContext(ctx, q, academics.MaxAttendance, id, userID).Scan(&count)
	if err != nil {
		return 0, trapNoRowsErr(err, academics.ErrRegistrationNotFound, "incrementing attendance")
	}
	return count, nil
}

func (repo *academicsRepository) DecrementAttendance(ctx context.Context, id, userID int) (int, error) {
	var count int
	q := `
		UPDATE registration SET attendance_count = GREATEST(attendance_count - 1, 0)
		WHERE id = $1 AND user_id = $2
		RETURNING attendance_count`
	err := repo.db.QueryRowContext(ctx, q, id, userID).Scan(&count)
	if err != nil {
		return 0, trapNoRowsErr(err, academics.ErrRegistrationNotFound, "decrementing attendance")
	}
	return count, nil
}
