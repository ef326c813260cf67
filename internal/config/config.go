package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Addr              string
	DataDir           string
	DBPath            string
	LogPath           string
	BackupDir         string
	BackupKeep        int
	SampleInterval    time.Duration
	RetentionWindow   time.Duration
	MetricReadTimeout time.Duration
	BackupInterval    time.Duration
	LogExportInterval time.Duration
	SMTPHost          string
	SMTPPort          int
	SMTPUsername      string
	SMTPPassword      string
	MailFrom          string
	OperatorEmails    []string
	TelegramBotToken  string
}

func Load() Config {
	dataDir := getenv("PULSE_DATA_DIR", "./data")
	return Config{
		Addr:              getenv("PULSE_ADDR", ":8003"),
		DataDir:           dataDir,
		DBPath:            getenv("PULSE_DB_PATH", dataDir+"/pulse.db"),
		LogPath:           getenv("PULSE_LOG_PATH", dataDir+"/pulse.log"),
		BackupDir:         getenv("PULSE_BACKUP_DIR", dataDir+"/backups"),
		BackupKeep:        getenvInt("PULSE_BACKUP_KEEP", 7),
		SampleInterval:    getenvDuration("PULSE_SAMPLE_INTERVAL", time.Minute),
		RetentionWindow:   getenvDuration("PULSE_RETENTION_WINDOW", 24*time.Hour),
		MetricReadTimeout: getenvDuration("PULSE_METRIC_READ_TIMEOUT", 5*time.Second),
		BackupInterval:    getenvDuration("PULSE_BACKUP_INTERVAL", 24*time.Hour),
		LogExportInterval: getenvDuration("PULSE_LOG_EXPORT_INTERVAL", 24*time.Hour),
		SMTPHost:          os.Getenv("PULSE_SMTP_HOST"),
		SMTPPort:          getenvInt("PULSE_SMTP_PORT", 587),
		SMTPUsername:      os.Getenv("PULSE_SMTP_USERNAME"),
		SMTPPassword:      os.Getenv("PULSE_SMTP_PASSWORD"),
		MailFrom:          getenv("PULSE_MAIL_FROM", os.Getenv("PULSE_SMTP_USERNAME")),
		OperatorEmails:    getenvList("PULSE_OPERATOR_EMAILS"),
		TelegramBotToken:  os.Getenv("TELEGRAM_BOT_TOKEN"),
	}
}

func getenv(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func getenvInt(k string, d int) int {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return d
	}
	return n
}

func getenvDuration(k string, d time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	dur, err := time.ParseDuration(v)
	if err != nil {
		return d
	}
	return dur
}

func getenvList(k string) []string {
	v := os.Getenv(k)
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
