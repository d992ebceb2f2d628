package webpush

import "github.com/hisakoh/campushub/core"

type (
	SubscriptionKeys struct {
		P256dh string `json:"p256dh" validate:"required"`
		Auth   string `json:"auth" validate:"required"`
	}

	NewSubscription struct {
		Endpoint      string           `json:"endpoint" validate:"required,url"`
		Keys          SubscriptionKeys `json:"keys"`
		TaskReminders *bool            `json:"task_reminders"`
		NewArticles   *bool            `json:"new_articles"`
		SystemNotices *bool            `json:"system_notices"`
	}

	UpdateSettings struct {
		Endpoint      string `json:"endpoint" validate:"required,url"`
		TaskReminders *bool  `json:"task_reminders"`
		NewArticles   *bool  `json:"new_articles"`
		SystemNotices *bool  `json:"system_notices"`
	}
)

func (ns NewSubscription) Validate() error { return core.Validate.Struct(ns) }

func (us UpdateSettings) Validate() error { return core.Validate.Struct(us) }
