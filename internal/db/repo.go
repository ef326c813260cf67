package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"pulse/internal/models"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) DB() *sql.DB { return r.db }

func (r *Repository) InsertSample(ctx context.Context, m models.MetricSample) error {
	var temp sql.NullFloat64
	if m.CPUTempC != nil {
		temp = sql.NullFloat64{Float64: *m.CPUTempC, Valid: true}
	}
	_, err := r.db.ExecContext(ctx, `INSERT INTO samples
		(ts,cpu_pct,ram_pct,disk_pct,net_sent_mb,net_recv_mb,cpu_temp_c)
		VALUES (?,?,?,?,?,?,?)`,
		m.TS.UTC(), m.CPUPct, m.RAMPct, m.DiskPct, m.NetSentMB, m.NetRecvMB, temp)
	return err
}

// AppendAndEvict stores one fresh sample and drops every row strictly older
// than cutoff in a single transaction, so readers observe either the
// pre-tick or the post-tick state, never a torn one. Returns the eviction
// count.
func (r *Repository) AppendAndEvict(ctx context.Context, m models.MetricSample, cutoff time.Time) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	var temp sql.NullFloat64
	if m.CPUTempC != nil {
		temp = sql.NullFloat64{Float64: *m.CPUTempC, Valid: true}
	}
	_, err = tx.ExecContext(ctx, `INSERT INTO samples
		(ts,cpu_pct,ram_pct,disk_pct,net_sent_mb,net_recv_mb,cpu_temp_c)
		VALUES (?,?,?,?,?,?,?)`,
		m.TS.UTC(), m.CPUPct, m.RAMPct, m.DiskPct, m.NetSentMB, m.NetRecvMB, temp)
	if err != nil {
		return 0, fmt.Errorf("append sample: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM samples WHERE ts < ?`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("evict samples: %w", err)
	}
	evicted, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return evicted, tx.Commit()
}

// DeleteSamplesBefore removes every sample strictly older than cutoff and
// reports how many rows it dropped.
func (r *Repository) DeleteSamplesBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM samples WHERE ts < ?`, cutoff.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// SamplesInRange returns samples with from <= ts <= to in ascending timestamp
// order. Duplicate timestamps keep insertion order via the rowid tiebreak.
func (r *Repository) SamplesInRange(ctx context.Context, from, to time.Time) ([]models.MetricSample, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT ts,cpu_pct,ram_pct,disk_pct,net_sent_mb,net_recv_mb,cpu_temp_c
		FROM samples WHERE ts >= ? AND ts <= ? ORDER BY ts ASC, id ASC`, from.UTC(), to.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.MetricSample
	for rows.Next() {
		m, err := scanSample(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *Repository) LatestSample(ctx context.Context) (models.MetricSample, error) {
	row := r.db.QueryRowContext(ctx, `SELECT ts,cpu_pct,ram_pct,disk_pct,net_sent_mb,net_recv_mb,cpu_temp_c
		FROM samples ORDER BY ts DESC, id DESC LIMIT 1`)
	return scanSample(row)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSample(row rowScanner) (models.MetricSample, error) {
	var m models.MetricSample
	var temp sql.NullFloat64
	if err := row.Scan(&m.TS, &m.CPUPct, &m.RAMPct, &m.DiskPct, &m.NetSentMB, &m.NetRecvMB, &temp); err != nil {
		return models.MetricSample{}, err
	}
	if temp.Valid {
		t := temp.Float64
		m.CPUTempC = &t
	}
	return m, nil
}

// ListAlertRecipients returns every recipient with at least one alert channel
// enabled. Recipient management itself lives outside the monitoring pipeline.
func (r *Repository) ListAlertRecipients(ctx context.Context) ([]models.Recipient, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id,email,email_alerts,telegram_chat_id,telegram_alerts,last_alert_at
		FROM recipients WHERE email_alerts=1 OR telegram_alerts=1 ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.Recipient
	for rows.Next() {
		var rec models.Recipient
		var emailAlerts, telegramAlerts int
		var last sql.NullTime
		if err := rows.Scan(&rec.ID, &rec.Email, &emailAlerts, &rec.TelegramChatID, &telegramAlerts, &last); err != nil {
			return nil, err
		}
		rec.EmailAlerts = emailAlerts == 1
		rec.TelegramAlerts = telegramAlerts == 1
		if last.Valid {
			t := last.Time
			rec.LastAlertAt = &t
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// UpdateRecipientLastAlert advances last_alert_at; an older timestamp never
// overwrites a newer one.
func (r *Repository) UpdateRecipientLastAlert(ctx context.Context, id int64, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `UPDATE recipients SET last_alert_at=?
		WHERE id=? AND (last_alert_at IS NULL OR last_alert_at <= ?)`, at.UTC(), id, at.UTC())
	return err
}

func (r *Repository) UpsertRecipient(ctx context.Context, rec models.Recipient) (int64, error) {
	emailAlerts, telegramAlerts := 0, 0
	if rec.EmailAlerts {
		emailAlerts = 1
	}
	if rec.TelegramAlerts {
		telegramAlerts = 1
	}
	res, err := r.db.ExecContext(ctx, `INSERT INTO recipients (email,email_alerts,telegram_chat_id,telegram_alerts)
		VALUES (?,?,?,?)
		ON CONFLICT(email) DO UPDATE SET email_alerts=excluded.email_alerts,telegram_chat_id=excluded.telegram_chat_id,telegram_alerts=excluded.telegram_alerts`,
		rec.Email, emailAlerts, rec.TelegramChatID, telegramAlerts)
	if err != nil {
		return 0, err
	}
	if id, err := res.LastInsertId(); err == nil && id > 0 {
		return id, nil
	}
	var id int64
	err = r.db.QueryRowContext(ctx, `SELECT id FROM recipients WHERE email=?`, rec.Email).Scan(&id)
	return id, err
}

func (r *Repository) LoadSettings(ctx context.Context) (models.Settings, error) {
	var limit float64
	var cooldownSec int64
	err := r.db.QueryRowContext(ctx, `SELECT cpu_temp_limit,alert_cooldown_seconds FROM settings WHERE id=1`).
		Scan(&limit, &cooldownSec)
	if err != nil {
		return models.Settings{}, fmt.Errorf("load settings: %w", err)
	}
	return models.Settings{CPUTempLimit: limit, AlertCooldown: time.Duration(cooldownSec) * time.Second}, nil
}

func (r *Repository) UpdateSettings(ctx context.Context, s models.Settings) error {
	_, err := r.db.ExecContext(ctx, `UPDATE settings SET cpu_temp_limit=?,alert_cooldown_seconds=? WHERE id=1`,
		s.CPUTempLimit, int64(s.AlertCooldown/time.Second))
	return err
}

func (r *Repository) InsertNotificationEvent(ctx context.Context, recipientID int64, channel, status string, attempts int, lastErr string, sent *time.Time) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO notification_events (recipient_id,channel,status,attempts,last_error,sent_ts)
		VALUES (?,?,?,?,?,?)`, recipientID, channel, status, attempts, lastErr, sent)
	return err
}

// BackupTo writes a consistent copy of the live database to path.
func (r *Repository) BackupTo(ctx context.Context, path string) error {
	quoted := strings.ReplaceAll(path, "'", "''")
	if _, err := r.db.ExecContext(ctx, fmt.Sprintf(`VACUUM INTO '%s'`, quoted)); err != nil {
		return fmt.Errorf("vacuum into %s: %w", path, err)
	}
	return nil
}
