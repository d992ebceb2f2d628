package webpush

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/hisakoh/campushub/core"
)

var (
	// errors
	ErrSubscriptionNotFound = errors.New("subscription not found")

	// reported when a dispatch finds no eligible subscription; a normal
	// outcome, not a failure.
	noSubscriptionsMsg = "No active subscriptions found"

	nowFunc = time.Now // mockable
)

type (
	Repository interface {
		QuerySubscriptions(ctx context.Context, userID int) ([]Subscription, error)
		// UpsertSubscription creates or overwrites the (user, endpoint) row;
		// the bool reports whether a new row was created.
		UpsertSubscription(ctx context.Context, sub Subscription) (Subscription, bool, error)
		UpdateSubscriptionFlags(ctx context.Context, userID int, endpoint string, task, articles, system *bool) (Subscription, error)
		// DeleteSubscription removes the (user, endpoint) row; the bool
		// reports whether a row existed.
		DeleteSubscription(ctx context.Context, userID int, endpoint string) (bool, error)
		DeleteSubscriptionsByID(ctx context.Context, ids ...int) error
		CreateNotificationLog(ctx context.Context, entry NotificationLog) (NotificationLog, error)
		// QueryNotificationLogs returns the user's logs, most recent first.
		QueryNotificationLogs(ctx context.Context, userID int) ([]NotificationLog, error)
	}

	Service struct {
		repo      Repository
		transport core.PushTransport
		logger    core.Logger
	}
)

func NewService(repo Repository, transport core.PushTransport, logger core.Logger) *Service {
	return &Service{repo: repo, transport: transport, logger: logger}
}

// Subscribe registers a device endpoint for the user, overwriting any
// previous registration of the same endpoint (idempotent).
func (svc *Service) Subscribe(ctx context.Context, userID int, ns NewSubscription) (Subscription, bool, error) {
	if err := ns.Validate(); err != nil {
		return Subscription{}, false, err
	}
	now := nowFunc().UTC()
	sub := Subscription{
		UserID:        userID,
		Endpoint:      core.CleanString(ns.Endpoint),
		P256dh:        ns.Keys.P256dh,
		Auth:          ns.Keys.Auth,
		TaskReminders: true,
		NewArticles:   true,
		SystemNotices: true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if ns.TaskReminders != nil {
		sub.TaskReminders = *ns.TaskReminders
	}
	if ns.NewArticles != nil {
		sub.NewArticles = *ns.NewArticles
	}
	if ns.SystemNotices != nil {
		sub.SystemNotices = *ns.SystemNotices
	}
	return svc.repo.UpsertSubscription(ctx, sub)
}

func (svc *Service) Subscriptions(ctx context.Context, userID int) ([]Subscription, error) {
	return svc.repo.QuerySubscriptions(ctx, userID)
}

// UpdateSettings patches the opt-in flags of one subscription; at least one
// flag must be provided.
func (svc *Service) UpdateSettings(ctx context.Context, userID int, us UpdateSettings) (Subscription, error) {
	if err := us.Validate(); err != nil {
		return Subscription{}, err
	}
	if us.TaskReminders == nil && us.NewArticles == nil && us.SystemNotices == nil {
		return Subscription{}, core.NewValidationError(nil,
			core.FieldError{Field: "task_reminders", Error: "no settings provided"})
	}
	return svc.repo.UpdateSubscriptionFlags(
		ctx, userID, core.CleanString(us.Endpoint), us.TaskReminders, us.NewArticles, us.SystemNotices)
}

func (svc *Service) Unsubscribe(ctx context.Context, userID int, endpoint string) (bool, error) {
	return svc.repo.DeleteSubscription(ctx, userID, core.CleanString(endpoint))
}

func (svc *Service) Logs(ctx context.Context, userID int) ([]NotificationLog, error) {
	return svc.repo.QueryNotificationLogs(ctx, userID)
}

// Dispatch fans one logical notification out to every eligible subscription
// of the user. Each delivery attempt is independent: one endpoint's failure
// never blocks its siblings. Every attempt writes exactly one NotificationLog
// row; endpoints reported permanently gone are pruned in one batch after the
// fan-out completes. No retries: the aggregate report is final.
func (svc *Service) Dispatch(ctx context.Context, userID int, title, body, url string, category Category) DeliveryReport {
	var report DeliveryReport

	subs, err := svc.repo.QuerySubscriptions(ctx, userID)
	if err != nil {
		svc.logger.Error("querying subscriptions", err)
		report.Errors = append(report.Errors, err.Error())
		return report
	}

	eligible := make([]Subscription, 0, len(subs))
	for _, sub := range subs {
		if sub.Allows(category) {
			eligible = append(eligible, sub)
		}
	}
	if len(eligible) == 0 {
		report.Errors = append(report.Errors, noSubscriptionsMsg)
		return report
	}

	msg := core.PushMessage{Title: title, Body: body, URL: url, Type: string(category)}

	results := make([]deliveryResult, len(eligible))
	var wg sync.WaitGroup
	for i, sub := range eligible {
		wg.Add(1)
		go func(i int, sub Subscription) {
			defer wg.Done()
			results[i] = svc.deliver(ctx, userID, sub, msg)
		}(i, sub)
	}
	wg.Wait()

	var pruneIDs []int
	for _, res := range results {
		if res.err == nil {
			report.Success++
			continue
		}
		report.Failed++
		report.Errors = append(report.Errors, res.err.Error())
		if res.prune {
			pruneIDs = append(pruneIDs, res.sub.ID)
			report.Errors = append(report.Errors, "Invalid subscription removed: "+res.sub.Endpoint)
		}
	}

	if len(pruneIDs) > 0 {
		if err := svc.repo.DeleteSubscriptionsByID(ctx, pruneIDs...); err != nil {
			svc.logger.Error("pruning dead subscriptions", err)
			report.Errors = append(report.Errors, err.Error())
		}
	}
	return report
}

// deliver attempts one delivery and records it. The attempt's outcome is
// returned as a value; shared state is only touched by the caller.
func (svc *Service) deliver(ctx context.Context, userID int, sub Subscription, msg core.PushMessage) deliveryResult {
	res := deliveryResult{sub: sub}
	status := StatusSent
	if err := svc.transport.SendNotification(ctx, sub.PushEndpoint(), msg); err != nil {
		res.err = err
		res.prune = errors.Cause(err) == core.ErrEndpointGone
		status = StatusFailed
	}

	url := msg.URL
	if url == "" {
		url = "/"
	}
	entry := NotificationLog{
		UserID:   userID,
		Title:    msg.Title,
		Body:     msg.Body,
		URL:      url,
		Category: msg.Type,
		Status:   status,
		SentAt:   nowFunc().UTC(),
	}
	if _, err := svc.repo.CreateNotificationLog(ctx, entry); err != nil {
		svc.logger.Error("recording notification log", err)
	}
	return res
}
