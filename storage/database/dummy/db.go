// Package dummydb provides in-memory repositories for tests and local
// development without postgres.
package dummydb

import (
	"sync"

	"github.com/hisakoh/campushub/core/academics"
	"github.com/hisakoh/campushub/core/task"
	"github.com/hisakoh/campushub/core/user"
	"github.com/hisakoh/campushub/core/webpush"
)

type (
	DB struct {
		user      *userTable
		academics *academicsTables
		webpush   *webpushTables
		task      *taskTable
	}

	userTable struct {
		sync.RWMutex
		table   map[int]*user.User
		pkCount int
	}

	academicsTables struct {
		sync.RWMutex
		terms         map[int]*academics.Term
		slots         map[int]*academics.Slot
		lectures      map[string]*academics.Lecture
		registrations map[int]*academics.Registration
		regPK         int
	}

	webpushTables struct {
		sync.RWMutex
		subscriptions map[int]*webpush.Subscription
		logs          []webpush.NotificationLog
		subPK         int
		logPK         int
	}

	taskTable struct {
		sync.RWMutex
		table   map[int]*task.Task
		pkCount int
	}
)

func Open() (*DB, error) {
	db := &DB{
		user: &userTable{table: make(map[int]*user.User)},
		academics: &academicsTables{
			terms:         make(map[int]*academics.Term),
			slots:         make(map[int]*academics.Slot),
			lectures:      make(map[string]*academics.Lecture),
			registrations: make(map[int]*academics.Registration),
		},
		webpush: &webpushTables{subscriptions: make(map[int]*webpush.Subscription)},
		task:    &taskTable{table: make(map[int]*task.Task)},
	}
	return db, nil
}
