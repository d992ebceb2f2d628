package dummydb

import (
	"context"
	"sort"

	"github.com/hisakoh/campushub/core/webpush"
)

type webpushRepository struct {
	db *webpushTables
}

var _ webpush.Repository = (*webpushRepository)(nil) // interface compliance check

func NewWebpushRepository(db *DB) webpush.Repository {
	return &webpushRepository{db: db.webpush}
}

func (repo *webpushRepository) QuerySubscriptions(_ context.Context, userID int) ([]webpush.Subscription, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var subs []webpush.Subscription
	for _, sub := range repo.db.subscriptions {
		if sub.UserID == userID {
			subs = append(subs, *sub)
		}
	}
	sort.Slice(subs, func(i, j int) bool { return subs[i].ID < subs[j].ID })
	return subs, nil
}

func (repo *webpushRepository) UpsertSubscription(_ context.Context, sub webpush.Subscription) (webpush.Subscription, bool, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, existing := range repo.db.subscriptions {
		if existing.UserID == sub.UserID && existing.Endpoint == sub.Endpoint {
			sub.ID = existing.ID
			sub.CreatedAt = existing.CreatedAt
			repo.db.subscriptions[sub.ID] = &sub
			return sub, false, nil
		}
	}
	repo.db.subPK++
	sub.ID = repo.db.subPK
	repo.db.subscriptions[sub.ID] = &sub
	return sub, true, nil
}

func (repo *webpushRepository) UpdateSubscriptionFlags(_ context.Context, userID int, endpoint string, task, articles, system *bool) (webpush.Subscription, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, sub := range repo.db.subscriptions {
		if sub.UserID != userID || sub.Endpoint != endpoint {
			continue
		}
		if task != nil {
			sub.TaskReminders = *task
		}
		if articles != nil {
			sub.NewArticles = *articles
		}
		if system != nil {
			sub.SystemNotices = *system
		}
		return *sub, nil
	}
	return webpush.Subscription{}, webpush.ErrSubscriptionNotFound
}

func (repo *webpushRepository) DeleteSubscription(_ context.Context, userID int, endpoint string) (bool, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	for id, sub := range repo.db.subscriptions {
		if sub.UserID == userID && sub.Endpoint == endpoint {
			delete(repo.db.subscriptions, id)
			return true, nil
		}
	}
	return false, nil
}

func (repo *webpushRepository) DeleteSubscriptionsByID(_ context.Context, ids ...int) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, id := range ids {
		delete(repo.db.subscriptions, id)
	}
	return nil
}

func (repo *webpushRepository) CreateNotificationLog(_ context.Context, entry webpush.NotificationLog) (webpush.NotificationLog, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.logPK++
	entry.ID = repo.db.logPK
	repo.db.logs = append(repo.db.logs, entry)
	return entry, nil
}

func (repo *webpushRepository) QueryNotificationLogs(_ context.Context, userID int) ([]webpush.NotificationLog, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var logs []webpush.NotificationLog
	for _, entry := range repo.db.logs {
		if entry.UserID == userID {
			logs = append(logs, entry)
		}
	}
	// most recent first
	sort.SliceStable(logs, func(i, j int) bool {
		if logs[i].SentAt.Equal(logs[j].SentAt) {
			return logs[i].ID > logs[j].ID
		}
		return logs[i].SentAt.After(logs[j].SentAt)
	})
	return logs, nil
}
