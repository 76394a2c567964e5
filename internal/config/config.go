package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
)

type DB struct {
	User string `validate:"required"`
	Pass string
	Host string `validate:"required"`
	Port string `validate:"required"`
	Name string `validate:"required"`
}

type NSQ struct {
	NsqdTCPAddr    string `validate:"required"` // e.g. nsqd:4150
	LookupHTTPAddr string // e.g. http://nsqlookupd:4161
	TaskTopic      string `validate:"required"` // durable topic for router tasks
	WorkerChannel  string `validate:"required"` // channel name for task workers
}

type Worker struct {
	Prefetch       int           `validate:"min=1"` // max in-flight messages per worker
	ReconnectDelay time.Duration // fixed delay between queue connect attempts
	HTTPPort       string        // metrics/health listen address
}

type Monitor struct {
	Interval    time.Duration `validate:"min=5s"` // target iteration cadence
	Timeout     time.Duration `validate:"min=1s"` // per-probe RESTCONF timeout
	Concurrency int           `validate:"min=1"`  // max concurrent probes
	HTTPPort    string
}

type Backup struct {
	ConfigDir string `validate:"required"` // directory for saved running configs
}

type Config struct {
	AppName string
	DB      DB
	NSQ     NSQ
	Worker  Worker
	Monitor Monitor
	Backup  Backup
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getenvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func FromEnv() Config {
	return Config{
		AppName: getenv("APP_NAME", "routerops"),
		DB: DB{
			User: getenv("DB_USER", "postgres"),
			Pass: getenv("DB_PASS", "postgres"),
			Host: getenv("DB_HOST", "postgres"),
			Port: getenv("DB_PORT", "5432"),
			Name: getenv("DB_NAME", "routerops"),
		},
		NSQ: NSQ{
			NsqdTCPAddr:    getenv("NSQD_TCP_ADDR", "nsqd:4150"),
			LookupHTTPAddr: getenv("NSQ_LOOKUP_HTTP_ADDR", "http://nsqlookupd:4161"),
			TaskTopic:      getenv("NSQ_TASK_TOPIC", "router_tasks"),
			WorkerChannel:  getenv("NSQ_WORKER_CHANNEL", "workers"),
		},
		Worker: Worker{
			Prefetch:       getenvInt("WORKER_PREFETCH", 5),
			ReconnectDelay: getenvDuration("WORKER_RECONNECT_DELAY", 5*time.Second),
			HTTPPort:       ":" + getenv("WORKER_HTTP_PORT", "8082"),
		},
		Monitor: Monitor{
			Interval:    getenvDuration("MONITOR_INTERVAL", 60*time.Second),
			Timeout:     getenvDuration("MONITOR_PROBE_TIMEOUT", 5*time.Second),
			Concurrency: getenvInt("MONITOR_CONCURRENCY", 5),
			HTTPPort:    ":" + getenv("MONITOR_HTTP_PORT", "8083"),
		},
		Backup: Backup{
			ConfigDir: getenv("BACKUP_CONFIG_DIR", "configs"),
		},
	}
}

// Validate rejects configurations that would leave a daemon without a usable
// store or queue endpoint. Daemons call this before connecting and abort
// startup on error.
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

func (c Config) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.DB.User, c.DB.Pass, c.DB.Host, c.DB.Port, c.DB.Name)
}
