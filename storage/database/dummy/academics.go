package dummydb

import (
	"context"
	"sort"

	"github.com/volatiletech/null/v8"

	"github.com/hisakoh/campushub/core/academics"
)

type academicsRepository struct {
	db *academicsTables
}

var _ academics.Repository = (*academicsRepository)(nil) // interface compliance check

func NewAcademicsRepository(db *DB) academics.Repository {
	return &academicsRepository{db: db.academics}
}

func (repo *academicsRepository) QueryTerms(_ context.Context) ([]academics.Term, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	terms := make([]academics.Term, 0, len(repo.db.terms))
	for _, t := range repo.db.terms {
		terms = append(terms, *t)
	}
	sort.Slice(terms, func(i, j int) bool { return terms[i].Number < terms[j].Number })
	return terms, nil
}

func (repo *academicsRepository) UpsertTerms(_ context.Context, numbers ...int) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, n := range numbers {
		if _, ok := repo.db.terms[n]; !ok {
			repo.db.terms[n] = &academics.Term{Number: n}
		}
	}
	return nil
}

func (repo *academicsRepository) SetTermDates(_ context.Context, number int, start, end null.Time) (academics.Term, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	t, ok := repo.db.terms[number]
	if !ok {
		return academics.Term{}, academics.ErrNoCurrentTerm
	}
	t.StartDate = start
	t.EndDate = end
	return *t, nil
}

func (repo *academicsRepository) QuerySlots(_ context.Context) ([]academics.Slot, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	slots := make([]academics.Slot, 0, len(repo.db.slots))
	for _, s := range repo.db.slots {
		slots = append(slots, *s)
	}
	sort.Slice(slots, func(i, j int) bool { return slots[i].ID < slots[j].ID })
	return slots, nil
}

func (repo *academicsRepository) UpsertSlots(_ context.Context, slots ...academics.Slot) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, s := range slots {
		if _, ok := repo.db.slots[s.ID]; !ok {
			s := s
			repo.db.slots[s.ID] = &s
		}
	}
	return nil
}

func (repo *academicsRepository) CreateLecture(_ context.Context, lec academics.Lecture) (academics.Lecture, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.lectures[lec.ID] = &lec
	return lec, nil
}

func (repo *academicsRepository) GetLectureByID(_ context.Context, id string) (academics.Lecture, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	return repo.getLecture(id)
}

func (repo *academicsRepository) getLecture(id string) (academics.Lecture, error) {
	if lec, ok := repo.db.lectures[id]; ok {
		return *lec, nil
	}
	return academics.Lecture{}, academics.ErrLectureNotFound
}

func (repo *academicsRepository) QueryLectures(_ context.Context, userID int) ([]academics.Lecture, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	lecs := make([]academics.Lecture, 0, len(repo.db.lectures))
	for _, lec := range repo.db.lectures {
		if lec.VisibleTo(userID) {
			lecs = append(lecs, *lec)
		}
	}
	sort.Slice(lecs, func(i, j int) bool { return lecs[i].CreatedAt.Before(lecs[j].CreatedAt) })
	return lecs, nil
}

func (repo *academicsRepository) UpdateLecture(_ context.Context, lec academics.Lecture) (academics.Lecture, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.lectures[lec.ID]; !ok {
		return academics.Lecture{}, academics.ErrLectureNotFound
	}
	repo.db.lectures[lec.ID] = &lec
	return lec, nil
}

func (repo *academicsRepository) DeleteLecture(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	delete(repo.db.lectures, id)
	for regID, reg := range repo.db.registrations {
		if reg.LectureID == id {
			delete(repo.db.registrations, regID)
		}
	}
	return nil
}

func (repo *academicsRepository) CreateRegistrationIfNoConflict(_ context.Context, reg academics.Registration, candidate academics.Lecture) (academics.Registration, []string, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	collidingSet := make(map[string]bool)
	for _, existing := range repo.db.registrations {
		if existing.UserID != reg.UserID || existing.Year != reg.Year {
			continue
		}
		if existing.LectureID == reg.LectureID {
			return academics.Registration{}, nil, academics.ErrRegistrationExists
		}
		lec, ok := repo.db.lectures[existing.LectureID]
		if ok && lec.SharesTermAndSlot(candidate) {
			collidingSet[lec.Name] = true
		}
	}
	if len(collidingSet) > 0 {
		colliding := make([]string, 0, len(collidingSet))
		for name := range collidingSet {
			colliding = append(colliding, name)
		}
		sort.Strings(colliding)
		return academics.Registration{}, colliding, nil
	}

	repo.db.regPK++
	reg.ID = repo.db.regPK
	repo.db.registrations[reg.ID] = &reg
	return reg, nil, nil
}

func (repo *academicsRepository) withLecture(reg academics.Registration) academics.Registration {
	if lec, ok := repo.db.lectures[reg.LectureID]; ok {
		l := *lec
		reg.Lecture = &l
	}
	return reg
}

func (repo *academicsRepository) QueryRegistrations(_ context.Context, userID, year int) ([]academics.Registration, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var regs []academics.Registration
	for _, reg := range repo.db.registrations {
		if reg.UserID == userID && reg.Year == year {
			regs = append(regs, repo.withLecture(*reg))
		}
	}
	sort.Slice(regs, func(i, j int) bool { return regs[i].ID < regs[j].ID })
	return regs, nil
}

func (repo *academicsRepository) GetRegistration(_ context.Context, id, userID int) (academics.Registration, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if reg, ok := repo.db.registrations[id]; ok && reg.UserID == userID {
		return repo.withLecture(*reg), nil
	}
	return academics.Registration{}, academics.ErrRegistrationNotFound
}

func (repo *academicsRepository) DeleteRegistration(_ context.Context, id, userID int) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if reg, ok := repo.db.registrations[id]; ok && reg.UserID == userID {
		delete(repo.db.registrations, id)
		return nil
	}
	return academics.ErrRegistrationNotFound
}

func (repo *academicsRepository) QueryRegistrationsForSlot(_ context.Context, slotID, termNumber, year int) ([]academics.Registration, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var regs []academics.Registration
	for _, reg := range repo.db.registrations {
		if reg.Year != year {
			continue
		}
		lec, ok := repo.db.lectures[reg.LectureID]
		if ok && lec.OccupiesSlot(slotID) && lec.RunsInTerm(termNumber) {
			regs = append(regs, repo.withLecture(*reg))
		}
	}
	sort.Slice(regs, func(i, j int) bool { return regs[i].ID < regs[j].ID })
	return regs, nil
}

func (repo *academicsRepository) IncrementAttendance(_ context.Context, id, userID int) (int, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	reg, ok := repo.db.registrations[id]
	if !ok || reg.UserID != userID {
		return 0, academics.ErrRegistrationNotFound
	}
	if reg.AttendanceCount < academics.MaxAttendance {
		reg.AttendanceCount++
	}
	return reg.AttendanceCount, nil
}

func (repo *academicsRepository) DecrementAttendance(_ context.Context, id, userID int) (int, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	reg, ok := repo.db.registrations[id]
	if !ok || reg.UserID != userID {
		return 0, academics.ErrRegistrationNotFound
	}
	if reg.AttendanceCount > 0 {
		reg.AttendanceCount--
	}
	return reg.AttendanceCount, nil
}
