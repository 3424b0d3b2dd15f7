package config

import (
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Config структура конфига дашборда. YAML-файл задаёт базу, переменные
// окружения имеют приоритет.
type Config struct {
	Upstream struct {
		Endpoint string        `yaml:"endpoint" env:"VMS_ENDPOINT"`
		Timeout  time.Duration `yaml:"timeout" env:"VMS_TIMEOUT"`
	} `yaml:"upstream"`

	Snapshot struct {
		Interval        time.Duration `yaml:"interval" env:"SNAPSHOT_INTERVAL"`
		Concurrency     int           `yaml:"concurrency" env:"SNAPSHOT_CONCURRENCY"`
		ArchiveInterval time.Duration `yaml:"archive_interval" env:"SNAPSHOT_ARCHIVE_INTERVAL"`
	} `yaml:"snapshot"`

	Detection struct {
		Interval time.Duration `yaml:"interval" env:"DETECTION_INTERVAL"`
	} `yaml:"detection"`

	Roster struct {
		Interval time.Duration `yaml:"interval" env:"ROSTER_INTERVAL"`
	} `yaml:"roster"`

	Stats struct {
		Interval time.Duration `yaml:"interval" env:"STATS_INTERVAL"`
	} `yaml:"stats"`

	API struct {
		Addr       string `yaml:"addr" env:"API_ADDR"`
		SuspendAll bool   `yaml:"suspend_all_on_focus" env:"SUSPEND_ALL_ON_FOCUS"`
	} `yaml:"api"`

	Postgres struct {
		DSN           string        `yaml:"dsn" env:"DATABASE_DSN"`
		Retention     time.Duration `yaml:"retention" env:"DATABASE_RETENTION"`
		PruneInterval time.Duration `yaml:"prune_interval" env:"DATABASE_PRUNE_INTERVAL"`
	} `yaml:"postgres"`

	Minio struct {
		Endpoint  string `yaml:"endpoint" env:"MINIO_ENDPOINT"`
		AccessKey string `yaml:"access_key" env:"MINIO_ACCESS_KEY"`
		SecretKey string `yaml:"secret_key" env:"MINIO_SECRET_KEY"`
		Bucket    string `yaml:"bucket" env:"MINIO_BUCKET"`
	} `yaml:"minio"`

	Kafka struct {
		Brokers    []string `yaml:"brokers" env:"KAFKA_BROKERS" envSeparator:","`
		EventTopic string   `yaml:"event_topic" env:"DETECTION_EVENT_TOPIC"`
	} `yaml:"kafka"`

	Log struct {
		Level string `yaml:"level" env:"LOG_LEVEL"`
	} `yaml:"log"`
}

func defaults() *Config {
	cfg := &Config{}
	cfg.Upstream.Endpoint = "http://localhost:5000"
	cfg.Upstream.Timeout = 5 * time.Second
	cfg.Snapshot.Interval = time.Second
	cfg.Snapshot.Concurrency = 2
	cfg.Snapshot.ArchiveInterval = time.Minute
	cfg.Detection.Interval = 2 * time.Second
	cfg.Roster.Interval = 5 * time.Second
	cfg.Stats.Interval = 10 * time.Second
	cfg.API.Addr = ":8080"
	cfg.Postgres.Retention = 7 * 24 * time.Hour
	cfg.Postgres.PruneInterval = time.Hour
	cfg.Kafka.EventTopic = "detection-events"
	cfg.Log.Level = "info"
	return cfg
}

// LoadConfig reads the YAML file at path (optional) and applies environment
// overrides. Missing file means defaults plus environment.
func LoadConfig(path string) (*Config, error) {
	cfg := defaults()

	if path != "" {
		// Читаем YAML
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, err
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	}

	// Парсим переменные окружения с приоритетом
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}
