package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"

// Common contains the archive pipeline parameters shared by every service.
type Common struct {
	ElasticsearchAddr  string
	ElasticsearchIndex string
	KafkaBrokers       []string
	KafkaTopic         string
}

// Upstream describes how to reach one third-party announcement API.
type Upstream struct {
	URL       string        `yaml:"url"`
	Timeout   time.Duration `yaml:"timeout"`
	UserAgent string        `yaml:"user_agent"`
}

// Sources groups the upstream settings of every adapter.
type Sources struct {
	Devpost  Upstream `yaml:"devpost"`
	Meetup   Upstream `yaml:"meetup"`
	Guardian Upstream `yaml:"guardian"`
	UMich    Upstream `yaml:"umich"`
}

// API describes HTTP-layer configuration.
type API struct {
	Common
	Port           string
	BindAddr       string
	Sources        Sources
	DefaultPage    int
	MaxPage        int
	PublishTimeout time.Duration
}

// Worker holds configuration for the Kafka -> Elasticsearch archive worker.
type Worker struct {
	Common
	KafkaConsumer    string
	MetricsAddr      string
	KeywordLimit     int
	KeywordMinLength int
	ChangeCapacity   int
	ChangeTTL        time.Duration
	BatchSize        int
	FetchMaxWait     time.Duration
}

// Retention configures the archive cleanup loop.
type Retention struct {
	Common
	Interval    time.Duration
	MaxAge      time.Duration
	BatchSize   int
	MetricsAddr string
}

// DefaultSources returns the public endpoints the portal has always used.
func DefaultSources() Sources {
	return Sources{
		Devpost: Upstream{
			URL:       "https://devpost.com/api/hackathons?status[]=open&order_by=recently-added",
			Timeout:   10 * time.Second,
			UserAgent: defaultUserAgent,
		},
		Meetup: Upstream{
			URL:     "https://api.meetup.com/find/upcoming_events?&sign=true&photo-host=public&category=34&page=5",
			Timeout: 8 * time.Second,
		},
		Guardian: Upstream{
			URL:     "https://content.guardianapis.com/search?section=technology&show-fields=trailText,thumbnail&page-size=5&api-key=test",
			Timeout: 8 * time.Second,
		},
		UMich: Upstream{
			URL:     "https://events.umich.edu/api/2/events?tags=academic&per_page=5",
			Timeout: 8 * time.Second,
		},
	}
}

// LoadAPI builds an API config from environment variables.
// SOURCES_FILE, when set, points to a YAML document overriding upstream settings;
// per-upstream environment variables win over both.
func LoadAPI() (*API, error) {
	sources := DefaultSources()
	if path := getEnv("SOURCES_FILE", ""); path != "" {
		if err := overlaySources(path, &sources); err != nil {
			return nil, err
		}
	}
	sources.Devpost.URL = getEnv("DEVPOST_URL", sources.Devpost.URL)
	sources.Meetup.URL = getEnv("MEETUP_URL", sources.Meetup.URL)
	sources.Guardian.URL = getEnv("GUARDIAN_URL", sources.Guardian.URL)
	sources.UMich.URL = getEnv("UMICH_URL", sources.UMich.URL)
	if ua := getEnv("UPSTREAM_USER_AGENT", ""); ua != "" {
		sources.Devpost.UserAgent = ua
		sources.Meetup.UserAgent = ua
		sources.Guardian.UserAgent = ua
		sources.UMich.UserAgent = ua
	}

	port := getEnv("PORT", "5000")
	c := &API{
		Common: Common{
			ElasticsearchAddr:  getEnv("ELASTICSEARCH_ADDR", ""),
			ElasticsearchIndex: getEnv("ELASTICSEARCH_INDEX", "announcements"),
			KafkaBrokers:       splitAndTrim(getEnv("KAFKA_BROKERS", "")),
			KafkaTopic:         getEnv("KAFKA_TOPIC", "announcements"),
		},
		Port:           port,
		BindAddr:       ":" + port,
		Sources:        sources,
		DefaultPage:    getInt("ARCHIVE_PAGE_SIZE", 20),
		MaxPage:        getInt("ARCHIVE_MAX_PAGE_SIZE", 100),
		PublishTimeout: getDuration("PUBLISH_TIMEOUT", "10s"),
	}

	if p, err := strconv.Atoi(c.Port); err != nil || p <= 0 || p > 65535 {
		return nil, fmt.Errorf("PORT must be a valid TCP port, got %q", c.Port)
	}
	if c.DefaultPage <= 0 {
		return nil, fmt.Errorf("ARCHIVE_PAGE_SIZE must be positive")
	}
	if c.MaxPage <= 0 {
		return nil, fmt.Errorf("ARCHIVE_MAX_PAGE_SIZE must be positive")
	}
	if c.DefaultPage > c.MaxPage {
		return nil, fmt.Errorf("ARCHIVE_PAGE_SIZE cannot exceed ARCHIVE_MAX_PAGE_SIZE")
	}
	for name, u := range map[string]Upstream{
		"devpost":  c.Sources.Devpost,
		"meetup":   c.Sources.Meetup,
		"guardian": c.Sources.Guardian,
		"umich":    c.Sources.UMich,
	} {
		if strings.TrimSpace(u.URL) == "" {
			return nil, fmt.Errorf("%s upstream url must not be empty", name)
		}
		if u.Timeout <= 0 {
			return nil, fmt.Errorf("%s upstream timeout must be positive", name)
		}
	}

	return c, nil
}

// LoadWorker builds a Worker config from environment variables.
func LoadWorker() (*Worker, error) {
	c := &Worker{
		Common: Common{
			ElasticsearchAddr:  getEnv("ELASTICSEARCH_ADDR", "http://elasticsearch:9200"),
			ElasticsearchIndex: getEnv("ELASTICSEARCH_INDEX", "announcements"),
			KafkaBrokers:       splitAndTrim(getEnv("KAFKA_BROKERS", "kafka:9092")),
			KafkaTopic:         getEnv("KAFKA_TOPIC", "announcements"),
		},
		KafkaConsumer:    getEnv("KAFKA_CONSUMER_GROUP", "announcements-archiver"),
		MetricsAddr:      getEnv("WORKER_METRICS_ADDR", ":9101"),
		KeywordLimit:     getInt("WORKER_KEYWORD_LIMIT", 8),
		KeywordMinLength: getInt("WORKER_KEYWORD_MIN_LEN", 4),
		ChangeCapacity:   getInt("WORKER_CHANGE_CAPACITY", 20000),
		ChangeTTL:        getDuration("WORKER_CHANGE_TTL", "24h"),
		BatchSize:        getInt("WORKER_BATCH_SIZE", 10),
		FetchMaxWait:     getDuration("WORKER_FETCH_MAX_WAIT", "2s"),
	}

	if len(c.KafkaBrokers) == 0 {
		return nil, fmt.Errorf("KAFKA_BROKERS must contain at least one broker")
	}
	if c.BatchSize <= 0 {
		return nil, fmt.Errorf("WORKER_BATCH_SIZE must be positive")
	}
	if c.ChangeCapacity <= 0 {
		return nil, fmt.Errorf("WORKER_CHANGE_CAPACITY must be positive")
	}
	if c.KeywordLimit <= 0 {
		return nil, fmt.Errorf("WORKER_KEYWORD_LIMIT must be positive")
	}
	if c.KeywordMinLength < 0 {
		return nil, fmt.Errorf("WORKER_KEYWORD_MIN_LEN cannot be negative")
	}

	return c, nil
}

// LoadRetention builds a Retention config from environment variables.
func LoadRetention() (*Retention, error) {
	c := &Retention{
		Common: Common{
			ElasticsearchAddr:  getEnv("ELASTICSEARCH_ADDR", "http://elasticsearch:9200"),
			ElasticsearchIndex: getEnv("ELASTICSEARCH_INDEX", "announcements"),
		},
		Interval:    getDuration("RETENTION_INTERVAL", "24h"),
		MaxAge:      getDuration("RETENTION_MAX_AGE", "720h"),
		BatchSize:   getInt("RETENTION_BATCH_SIZE", 500),
		MetricsAddr: getEnv("RETENTION_METRICS_ADDR", ":9102"),
	}

	if c.MaxAge <= 0 {
		return nil, fmt.Errorf("RETENTION_MAX_AGE must be positive")
	}
	if c.Interval <= 0 {
		return nil, fmt.Errorf("RETENTION_INTERVAL must be positive")
	}
	if c.BatchSize <= 0 {
		return nil, fmt.Errorf("RETENTION_BATCH_SIZE must be positive")
	}

	return c, nil
}

// overlaySources merges non-empty fields from the YAML file at path into dst.
func overlaySources(path string, dst *Sources) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read sources file: %w", err)
	}
	var file Sources
	if err := yaml.Unmarshal(b, &file); err != nil {
		return fmt.Errorf("parse sources file: %w", err)
	}
	mergeUpstream(&dst.Devpost, file.Devpost)
	mergeUpstream(&dst.Meetup, file.Meetup)
	mergeUpstream(&dst.Guardian, file.Guardian)
	mergeUpstream(&dst.UMich, file.UMich)
	return nil
}

func mergeUpstream(dst *Upstream, src Upstream) {
	if src.URL != "" {
		dst.URL = src.URL
	}
	if src.Timeout > 0 {
		dst.Timeout = src.Timeout
	}
	if src.UserAgent != "" {
		dst.UserAgent = src.UserAgent
	}
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return fallback
}

func getDuration(key, fallback string) time.Duration {
	d, err := time.ParseDuration(getEnv(key, fallback))
	if err != nil {
		fd, ferr := time.ParseDuration(fallback)
		if ferr != nil {
			panic(fmt.Sprintf("invalid fallback duration %q: %v", fallback, ferr))
		}
		return fd
	}
	return d
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
