// The scheduler fires the time-driven jobs: a lecture-start notification at
// the top of each class period on weekdays, and a daily due-task reminder.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/hisakoh/campushub/core"
	"github.com/hisakoh/campushub/core/academics"
	"github.com/hisakoh/campushub/core/task"
	"github.com/hisakoh/campushub/core/trigger"
	"github.com/hisakoh/campushub/core/webpush"
	logsvc "github.com/hisakoh/campushub/services/logger"
	pushsvc "github.com/hisakoh/campushub/services/push"
	"github.com/hisakoh/campushub/storage/database"
)

// periodSchedules maps each class period to its weekday start time.
var periodSchedules = map[int]string{
	academics.PeriodFirst:  "0 9 * * 1-5",
	academics.PeriodSecond: "40 10 * * 1-5",
	academics.PeriodThird:  "0 13 * * 1-5",
	academics.PeriodFourth: "40 14 * * 1-5",
	academics.PeriodFifth:  "20 16 * * 1-5",
}

const taskReminderSchedule = "0 8 * * *"

func main() {
	conf := core.NewConfig()
	core.InitValidators()

	std := log.New(os.Stdout, "SCHED : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	logger := logsvc.NewRollbarLogger(std, conf)
	logger.Enable(!conf.Debug)

	db, err := database.Open(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("opening database: %v", err), err)
	}
	defer func() { _ = db.Close() }()
	if err = db.Ping(); err != nil {
		logger.Fatal(fmt.Sprintf("pinging database: %v", err), err)
	}

	var transport core.PushTransport
	if conf.Debug {
		transport = pushsvc.NewConsoleTransport(std)
	} else {
		transport = pushsvc.NewWebpushTransport(conf)
	}

	acaSvc := academics.NewService(database.NewAcademicsRepository(db))
	taskSvc := task.NewService(database.NewTaskRepository(db))
	pushSvc := webpush.NewService(database.NewWebpushRepository(db), transport, logger)
	trgSvc := trigger.NewService(acaSvc, taskSvc, pushSvc, logger, conf.Location())

	c := cron.New(
		cron.WithLocation(conf.Location()),
		cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)),
	)

	for period, spec := range periodSchedules {
		period := period
		if _, err = c.AddFunc(spec, func() {
			if err := trgSvc.NotifyLectureStart(context.Background(), time.Now(), period); err != nil {
				logger.Error(fmt.Sprintf("notifying lecture start (period %d): %v", period, err), err)
			}
		}); err != nil {
			logger.Fatal(fmt.Sprintf("registering period %d job: %v", period, err), err)
		}
	}

	if _, err = c.AddFunc(taskReminderSchedule, func() {
		if err := trgSvc.RemindDueTasks(context.Background(), time.Now()); err != nil {
			logger.Error(fmt.Sprintf("reminding due tasks: %v", err), err)
		}
	}); err != nil {
		logger.Fatal(fmt.Sprintf("registering task reminder job: %v", err), err)
	}

	logger.Info(fmt.Sprintf("Scheduler starting : version %q", conf.Build))
	c.Start()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)
	sig := <-shutdown
	logger.Info(fmt.Sprintf("%v: Stopping scheduler...", sig))

	// let a running job finish
	<-c.Stop().Done()
	logger.Info("Scheduler stopped")
}
