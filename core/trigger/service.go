// Package trigger holds the time-driven jobs: the lecture-start push at the
// top of each class period and the daily due-task reminder. The jobs are pure
// functions of the clock value they receive, so the scheduler and the admin
// CLI can invoke them interchangeably.
package trigger

import (
	"context"
	"fmt"
	"time"

	"github.com/hisakoh/campushub/core"
	"github.com/hisakoh/campushub/core/academics"
	"github.com/hisakoh/campushub/core/task"
	"github.com/hisakoh/campushub/core/webpush"
)

type Service struct {
	academics *academics.Service
	tasks     *task.Service
	push      *webpush.Service
	logger    core.Logger
	loc       *time.Location
}

func NewService(acaSvc *academics.Service, taskSvc *task.Service, pushSvc *webpush.Service, logger core.Logger, loc *time.Location) *Service {
	return &Service{academics: acaSvc, tasks: taskSvc, push: pushSvc, logger: logger, loc: loc}
}

// weekday converts Go's Sunday=0 convention to the timetable's Monday=1.
func weekday(t time.Time) int {
	if wd := int(t.Weekday()); wd != 0 {
		return wd
	}
	return academics.DaySunday
}

// NotifyLectureStart pushes a lecture-start notification to every student
// registered in the slot (weekday of `now`, period) for the current term.
// Weekends and dates outside any term are quiet no-ops. Each student's
// fan-out is independent; one user's delivery failures never block another's.
func (svc *Service) NotifyLectureStart(ctx context.Context, now time.Time, period int) error {
	pt, err := academics.PeriodTimeOf(period)
	if err != nil {
		return err
	}

	local := now.In(svc.loc)
	day := weekday(local)
	if day > academics.DayFriday {
		return nil
	}

	term, year, err := svc.academics.CurrentTerm(ctx, local)
	if err != nil {
		if err == academics.ErrNoCurrentTerm {
			svc.logger.Info("no current term; skipping lecture-start notifications")
			return nil
		}
		return err
	}

	slotID, err := academics.SlotID(day, period)
	if err != nil {
		return err
	}

	regs, err := svc.academics.RegistrationsForSlot(ctx, slotID, term.Number, year)
	if err != nil {
		return err
	}

	for _, reg := range regs {
		if reg.Lecture == nil {
			continue
		}
		room := reg.Lecture.Room
		if room == "" {
			room = "未設定"
		}
		body := fmt.Sprintf("%s（%s〜%s）が %s で始まります", reg.Lecture.Name, pt.Start, pt.End, room)
		url := fmt.Sprintf("/timetable/%d/%d/%d", year, term.Number, slotID)
		report := svc.push.Dispatch(ctx, reg.UserID, "出席を登録しよう！", body, url, webpush.CategoryLecture)
		svc.logger.Info("lecture-start notification",
			"lecture", reg.Lecture.Name, "user", reg.UserID,
			"success", report.Success, "failed", report.Failed)
	}
	return nil
}

// RemindDueTasks pushes a reminder for every open task falling due within the
// next 24 hours.
func (svc *Service) RemindDueTasks(ctx context.Context, now time.Time) error {
	from := now.UTC()
	until := from.Add(24 * time.Hour)
	tasks, err := svc.tasks.DueBetween(ctx, from, until)
	if err != nil {
		return err
	}

	for _, t := range tasks {
		body := fmt.Sprintf("「%s」の期限が近づいています", t.Title)
		report := svc.push.Dispatch(ctx, t.UserID, "課題リマインダー", body, "/tasks", webpush.CategoryTask)
		svc.logger.Info("task reminder",
			"task", t.ID, "user", t.UserID,
			"success", report.Success, "failed", report.Failed)
	}
	return nil
}
