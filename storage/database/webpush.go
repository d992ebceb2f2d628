package database

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/hisakoh/campushub/core/webpush"
)

type subscriptionRow struct {
	ID            int       `db:"id"`
	UserID        int       `db:"user_id"`
	Endpoint      string    `db:"endpoint"`
	P256dh        string    `db:"p256dh"`
	Auth          string    `db:"auth"`
	TaskReminders bool      `db:"task_reminders"`
	NewArticles   bool      `db:"new_articles"`
	SystemNotices bool      `db:"system_notices"`
	CreatedAt     time.Time `db:"created_at"`
	UpdatedAt     time.Time `db:"updated_at"`
}

func (r subscriptionRow) unpack() webpush.Subscription {
	return webpush.Subscription{
		ID:            r.ID,
		UserID:        r.UserID,
		Endpoint:      r.Endpoint,
		P256dh:        r.P256dh,
		Auth:          r.Auth,
		TaskReminders: r.TaskReminders,
		NewArticles:   r.NewArticles,
		SystemNotices: r.SystemNotices,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
}

type webpushRepository struct {
	db *sqlx.DB
}

var _ webpush.Repository = (*webpushRepository)(nil) // interface compliance check

func NewWebpushRepository(db *sqlx.DB) *webpushRepository {
	return &webpushRepository{db: db}
}

func (repo *webpushRepository) QuerySubscriptions(ctx context.Context, userID int) ([]webpush.Subscription, error) {
	var rows []subscriptionRow
	q := `SELECT * FROM push_subscription WHERE user_id = $1 ORDER BY id`
	if err := repo.db.SelectContext(ctx, &rows, q, userID); err != nil {
		return nil, errors.Wrap(err, "querying subscriptions")
	}
	subs := make([]webpush.Subscription, 0, len(rows))
	for _, r := range rows {
		subs = append(subs, r.unpack())
	}
	return subs, nil
}

func (repo *webpushRepository) UpsertSubscription(ctx context.Context, sub webpush.Subscription) (webpush.Subscription, bool, error) {
	q := `
		INSERT INTO push_subscription (user_id, endpoint, p256dh, auth, task_reminders, new_articles, system_notices, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (user_id, endpoint) DO UPDATE SET
			p256dh = EXCLUDED.p256dh,
			auth = EXCLUDED.auth,
			task_reminders = EXCLUDED.task_reminders,
			new_articles = EXCLUDED.new_articles,
			system_notices = EXCLUDED.system_notices,
			updated_at = EXCLUDED.updated_at
		RETURNING id, (created_at = updated_at) AS created`
	var created bool
	err := repo.db.QueryRowContext(
		ctx, q, sub.UserID, sub.Endpoint, sub.P256dh, sub.Auth,
		sub.TaskReminders, sub.NewArticles, sub.SystemNotices, sub.CreatedAt, sub.UpdatedAt,
	).Scan(&sub.ID, &created)
	if err != nil {
		return webpush.Subscription{}, false, errors.Wrap(err, "upserting subscription")
	}
	return sub, created, nil
}

func (repo *webpushRepository) UpdateSubscriptionFlags(ctx context.Context, userID int, endpoint string, task, articles, system *bool) (webpush.Subscription, error) {
	q := `
		UPDATE push_subscription SET
			task_reminders = COALESCE($1, task_reminders),
			new_articles = COALESCE($2, new_articles),
			system_notices = COALESCE($3, system_notices),
			updated_at = $4
		WHERE user_id = $5 AND endpoint = $6
		RETURNING *`
	var row subscriptionRow
	err := repo.db.GetContext(ctx, &row, q, task, articles, system, time.Now().UTC(), userID, endpoint)
	if err != nil {
		return webpush.Subscription{}, trapNoRowsErr(err, webpush.ErrSubscriptionNotFound, "updating subscription flags")
	}
	return row.unpack(), nil
}

func (repo *webpushRepository) DeleteSubscription(ctx context.Context, userID int, endpoint string) (bool, error) {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM push_subscription WHERE user_id = $1 AND endpoint = $2`, userID, endpoint)
	if err != nil {
		return false, errors.Wrap(err, "deleting subscription")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "deleting subscription")
	}
	return n > 0, nil
}

func (repo *webpushRepository) DeleteSubscriptionsByID(ctx context.Context, ids ...int) error {
	if len(ids) == 0 {
		return nil
	}
	q, args, err := sqlx.In(`DELETE FROM push_subscription WHERE id IN (?)`, ids)
	if err != nil {
		return errors.Wrap(err, "deleting subscriptions")
	}
	if _, err = repo.db.ExecContext(ctx, repo.db.Rebind(q), args...); err != nil {
		return errors.Wrap(err, "deleting subscriptions")
	}
	return nil
}

func (repo *webpushRepository) CreateNotificationLog(ctx context.Context, entry webpush.NotificationLog) (webpush.NotificationLog, error) {
	q := `
		INSERT INTO push_notification_log (user_id, title, body, url, category, status, sent_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`
	err := repo.db.QueryRowContext(
		ctx, q, entry.UserID, entry.Title, entry.Body, entry.URL, entry.Category, entry.Status, entry.SentAt,
	).Scan(&entry.ID)
	if err != nil {
		return webpush.NotificationLog{}, errors.Wrap(err, "inserting notification log")
	}
	return entry, nil
}

func (repo *webpushRepository) QueryNotificationLogs(ctx context.Context, userID int) ([]webpush.NotificationLog, error) {
	var logs []webpush.NotificationLog
	q := `SELECT id, title, body, url, category, status, sent_at FROM push_notification_log WHERE user_id = $1 ORDER BY sent_at DESC, id DESC`
	rows, err := repo.db.QueryxContext(ctx, q, userID)
	if err != nil {
		return nil, errors.Wrap(err, "querying notification logs")
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		entry := webpush.NotificationLog{UserID: userID}
		if err = rows.Scan(&entry.ID, &entry.Title, &entry.Body, &entry.URL, &entry.Category, &entry.Status, &entry.SentAt); err != nil {
			return nil, errors.Wrap(err, "querying notification logs")
		}
		logs = append(logs, entry)
	}
	return logs, errors.Wrap(rows.Err(), "querying notification logs")
}
