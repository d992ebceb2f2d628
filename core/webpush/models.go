package webpush

import (
	"time"

	"github.com/hisakoh/campushub/core"
)

// Category classifies a notification for opt-out filtering.
type Category string

const (
	CategoryTask    Category = "task"
	CategoryArticle Category = "article"
	CategorySystem  Category = "system"
	CategoryLecture Category = "lecture"
	CategoryTest    Category = "test"
	CategoryGeneral Category = "general"
)

// categoryFlag maps the user-suppressible categories to their opt-in flag.
// Categories absent from the table (lecture, test, general, ...) bypass
// filtering and reach every subscription.
var categoryFlag = map[Category]func(Subscription) bool{
	CategoryTask:    func(s Subscription) bool { return s.TaskReminders },
	CategoryArticle: func(s Subscription) bool { return s.NewArticles },
	CategorySystem:  func(s Subscription) bool { return s.SystemNotices },
}

// Subscription is one device's push endpoint for a user, with its delivery
// keys and per-category opt-in flags. One row per (user, endpoint).
type Subscription struct {
	ID            int       `json:"id"`
	UserID        int       `json:"-"`
	Endpoint      string    `json:"endpoint"`
	P256dh        string    `json:"-"`
	Auth          string    `json:"-"`
	TaskReminders bool      `json:"task_reminders"`
	NewArticles   bool      `json:"new_articles"`
	SystemNotices bool      `json:"system_notices"`
	CreatedAt     time.Time `json:"created_at"` // UTC
	UpdatedAt     time.Time `json:"updated_at"` // UTC
}

// Allows reports whether this subscription accepts the category.
func (s Subscription) Allows(cat Category) bool {
	if flag, ok := categoryFlag[cat]; ok {
		return flag(s)
	}
	return true
}

func (s Subscription) PushEndpoint() core.PushEndpoint {
	return core.PushEndpoint{Endpoint: s.Endpoint, P256dh: s.P256dh, Auth: s.Auth}
}

// Delivery attempt statuses.
const (
	StatusSent   = "sent"
	StatusFailed = "failed"
)

// NotificationLog is the immutable record of one delivery attempt.
// Append-only; never mutated after creation.
type NotificationLog struct {
	ID       int       `json:"id"`
	UserID   int       `json:"-"`
	Title    string    `json:"title"`
	Body     string    `json:"body"`
	URL      string    `json:"url"`
	Category string    `json:"category"`
	Status   string    `json:"status"`
	SentAt   time.Time `json:"sent_at"` // UTC
}

// DeliveryReport aggregates one Dispatch call's fan-out outcome.
type DeliveryReport struct {
	Success int      `json:"success"`
	Failed  int      `json:"failed"`
	Errors  []string `json:"errors,omitempty"`
}

// deliveryResult is one fan-out attempt's outcome; pruning is deferred until
// the whole fan-out completes.
type deliveryResult struct {
	sub   Subscription
	err   error
	prune bool
}
