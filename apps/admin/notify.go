package main

import (
	"context"
	"time"

	"github.com/hisakoh/campushub/core/trigger"
)

// notifyLectures fires the lecture-start notifications for the given period
// as if the period had just started.
func (cli *commandLine) notifyLectures(period int) error {
	svc := trigger.NewService(cli.acaSvc, cli.taskSvc, cli.pushSvc, cli.logger, cli.conf.Location())
	return svc.NotifyLectureStart(context.Background(), time.Now(), period)
}

func (cli *commandLine) remindTasks() error {
	svc := trigger.NewService(cli.acaSvc, cli.taskSvc, cli.pushSvc, cli.logger, cli.conf.Location())
	return svc.RemindDueTasks(context.Background(), time.Now())
}
