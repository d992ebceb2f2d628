package main

import (
	"log"
	"os"

	"github.com/hisakoh/campushub/core"
	"github.com/hisakoh/campushub/core/academics"
	"github.com/hisakoh/campushub/core/task"
	"github.com/hisakoh/campushub/core/user"
	"github.com/hisakoh/campushub/core/webpush"
	logsvc "github.com/hisakoh/campushub/services/logger"
	pushsvc "github.com/hisakoh/campushub/services/push"
	"github.com/hisakoh/campushub/storage/database"
)

var logger *log.Logger

func main() {
	defer os.Exit(0)

	logger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	conf := core.NewConfig()
	core.InitValidators()

	appLogger := logsvc.NewRollbarLogger(logger, conf)
	appLogger.Enable(!conf.Debug)

	// set up DB
	errAndDie(database.CreateIfNotExist(conf))
	db, err := database.Open(conf)
	errAndDie(err)
	defer func() { _ = db.Close() }()
	errAndDie(db.Ping())

	var transport core.PushTransport
	if conf.Debug {
		transport = pushsvc.NewConsoleTransport(logger)
	} else {
		transport = pushsvc.NewWebpushTransport(conf)
	}

	acaSvc := academics.NewService(database.NewAcademicsRepository(db))
	pushSvc := webpush.NewService(database.NewWebpushRepository(db), transport, appLogger)

	// start CLI
	cli := commandLine{
		conf:    conf,
		db:      db,
		usrSvc:  user.NewService(database.NewUserRepository(db)),
		acaSvc:  acaSvc,
		taskSvc: task.NewService(database.NewTaskRepository(db)),
		pushSvc: pushSvc,
		logger:  appLogger,
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err)
	}
}
