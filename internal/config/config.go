package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/nelson-zack/job-radar/internal/domain"
)

// DefaultPath is used when neither a flag nor RADAR_CONFIG names a file.
const DefaultPath = "config/radar.yml"

type Database struct {
	Driver string `yaml:"driver"` // sqlite | postgres
	Path   string `yaml:"path"`
	URL    string `yaml:"url"`
}

type Pipeline struct {
	Relax           bool `yaml:"relax"`
	JuniorOnly      bool `yaml:"junior_only"`
	USRemoteOnly    bool `yaml:"us_remote_only"`
	RecentDays      int  `yaml:"recent_days"`
	RequireDate     bool `yaml:"require_date"`
	MinScore        int  `yaml:"min_score"`
	EntryExclusions bool `yaml:"entry_exclusions"`

	// RulesFile overlays a YAML term list on the built-in classifier terms.
	RulesFile  string `yaml:"rules_file"`
	DebugRules bool   `yaml:"debug_rules"`
}

type Skills struct {
	Any         []string `yaml:"any"`
	All         []string `yaml:"all"`
	Hard        bool     `yaml:"hard"`
	UseDefaults bool     `yaml:"use_defaults"`
}

type Enrichment struct {
	DescCap            int            `yaml:"desc_cap"`
	DescCapByProvider  map[string]int `yaml:"desc_cap_by_provider"`
	JuniorTopUpCap     int            `yaml:"junior_topup_cap"`
	DateBackfillCap    int            `yaml:"date_backfill_cap"`
	MaxChars           int            `yaml:"max_chars"`
	Workers            int            `yaml:"workers"`
	DescTimeoutSeconds int            `yaml:"desc_timeout_seconds"`
}

type HTTP struct {
	TimeoutSeconds    int     `yaml:"timeout_seconds"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
	FetchWorkers      int     `yaml:"fetch_workers"`
	UserAgent         string  `yaml:"user_agent"`

	// HostRates gives individual hosts their own requests-per-second.
	HostRates map[string]float64 `yaml:"host_rates"`
}

type GitHub struct {
	Repos         []string `yaml:"repos"`
	RemoteOnly    bool     `yaml:"remote_only"`
	USOnly        bool     `yaml:"us_only"`
	DateScrape    bool     `yaml:"date_scrape"`
	DateInference bool     `yaml:"date_inference"`
}

type Mailbox struct {
	Enabled    bool     `yaml:"enabled"`
	IMAPHost   string   `yaml:"imap_host"`
	IMAPPort   int      `yaml:"imap_port"`
	Username   string   `yaml:"username"`
	Mailbox    string   `yaml:"mailbox"`
	SubjectAny []string `yaml:"subject_any"`
	SinceDays  int      `yaml:"since_days"`
}

type Crawler struct {
	Seeds    []string `yaml:"seeds"`
	MaxDepth int      `yaml:"max_depth"`
	MaxPages int      `yaml:"max_pages"`
	Mailbox  Mailbox  `yaml:"mailbox"`
}

type Config struct {
	App struct {
		Port    int    `yaml:"port"`
		DataDir string `yaml:"data_dir"`
	} `yaml:"app"`

	Database          Database `yaml:"database"`
	CompaniesFile     string   `yaml:"companies_file"`
	DefaultSkillsFile string   `yaml:"default_skills_file"`

	Pipeline   Pipeline   `yaml:"pipeline"`
	Skills     Skills     `yaml:"skills"`
	Enrichment Enrichment `yaml:"enrichment"`
	HTTP       HTTP       `yaml:"http"`

	Sources struct {
		GitHub  GitHub  `yaml:"github"`
		Crawler Crawler `yaml:"crawler"`
	} `yaml:"sources"`

	Scheduler struct {
		IntervalMinutes int    `yaml:"interval_minutes"`
		LockFile        string `yaml:"lock_file"`
	} `yaml:"scheduler"`

	API struct {
		EnableExperimental bool `yaml:"enable_experimental"`
		EntryFilterChunk   int  `yaml:"entry_filter_chunk"`
	} `yaml:"api"`

	Notify struct {
		Telegram struct {
			Enabled bool  `yaml:"enabled"`
			ChatID  int64 `yaml:"chat_id"`
			TopN    int   `yaml:"top_n"`
		} `yaml:"telegram"`
	} `yaml:"notify"`
}

// Default returns a config with every knob at its built-in value.
func Default() Config {
	var cfg Config
	applyDefaults(&cfg)
	return cfg
}

// ResolvePath picks the config file: explicit argument, then RADAR_CONFIG, then DefaultPath.
func ResolvePath(arg string) string {
	if strings.TrimSpace(arg) != "" {
		return arg
	}
	if p := strings.TrimSpace(os.Getenv("RADAR_CONFIG")); p != "" {
		return p
	}
	return DefaultPath
}

// Load reads .env (if present), the YAML file at path, then applies defaults
// and environment overrides. A missing config file yields the defaults.
func Load(path string) (Config, error) {
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("[config] dotenv err=%v", err)
	}

	var cfg Config
	b, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("config parse %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist):
		log.Printf("[config] path=%q missing, using defaults", path)
	default:
		return cfg, fmt.Errorf("config read %s: %w", path, err)
	}

	applyDefaults(&cfg)
	applyEnv(&cfg, os.Getenv)
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.App.Port == 0 {
		cfg.App.Port = 8080
	}
	if cfg.App.DataDir == "" {
		cfg.App.DataDir = "data"
	}
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "sqlite"
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = "data/jobs.db"
	}
	if cfg.CompaniesFile == "" {
		cfg.CompaniesFile = "companies.json"
	}
	if cfg.DefaultSkillsFile == "" {
		cfg.DefaultSkillsFile = "config/default_skills.json"
	}

	e := &cfg.Enrichment
	if e.DescCap == 0 {
		e.DescCap = 25
	}
	if e.JuniorTopUpCap == 0 {
		e.JuniorTopUpCap = 50
	}
	if e.DateBackfillCap == 0 {
		e.DateBackfillCap = 50
	}
	if e.MaxChars == 0 {
		e.MaxChars = 1200
	}
	if e.Workers == 0 {
		e.Workers = 8
	}
	if e.DescTimeoutSeconds == 0 {
		e.DescTimeoutSeconds = 8
	}

	h := &cfg.HTTP
	if h.TimeoutSeconds == 0 {
		h.TimeoutSeconds = 15
	}
	if h.RequestsPerSecond == 0 {
		h.RequestsPerSecond = 2
	}
	if h.Burst == 0 {
		h.Burst = 4
	}
	if h.FetchWorkers == 0 {
		h.FetchWorkers = 10
	}

	c := &cfg.Sources.Crawler
	if c.MaxDepth == 0 {
		c.MaxDepth = 2
	}
	if c.MaxPages == 0 {
		c.MaxPages = 40
	}
	if c.Mailbox.IMAPPort == 0 {
		c.Mailbox.IMAPPort = 993
	}
	if c.Mailbox.Mailbox == "" {
		c.Mailbox.Mailbox = "INBOX"
	}
	if c.Mailbox.SinceDays == 0 {
		c.Mailbox.SinceDays = 7
	}

	if cfg.Scheduler.IntervalMinutes == 0 {
		cfg.Scheduler.IntervalMinutes = 360
	}
	if cfg.Scheduler.LockFile == "" {
		cfg.Scheduler.LockFile = "data/radar.lock"
	}
	if cfg.API.EntryFilterChunk == 0 {
		cfg.API.EntryFilterChunk = 200
	}
	if cfg.Notify.Telegram.TopN == 0 {
		cfg.Notify.Telegram.TopN = 10
	}
}

// applyEnv layers the RADAR_* and feature-flag variables on top of the file.
func applyEnv(cfg *Config, getenv func(string) string) {
	if n, ok := envInt(getenv, "RADAR_DESC_CAP"); ok {
		cfg.Enrichment.DescCap = n
	}
	if n, ok := envInt(getenv, "RADAR_DESC_TIMEOUT"); ok {
		cfg.Enrichment.DescTimeoutSeconds = n
	}
	if n, ok := envInt(getenv, "RADAR_DESC_MAX_CHARS"); ok {
		cfg.Enrichment.MaxChars = n
	}
	for _, src := range domain.AllSources {
		key := "RADAR_DESC_CAP_" + strings.ToUpper(string(src))
		if n, ok := envInt(getenv, key); ok {
			if cfg.Enrichment.DescCapByProvider == nil {
				cfg.Enrichment.DescCapByProvider = map[string]int{}
			}
			cfg.Enrichment.DescCapByProvider[string(src)] = n
		}
	}
	if p := strings.TrimSpace(getenv("RADAR_DEFAULT_SKILLS")); p != "" {
		cfg.DefaultSkillsFile = p
	}
	if p := strings.TrimSpace(getenv("RADAR_RULES_FILE")); p != "" {
		cfg.Pipeline.RulesFile = p
	}
	if b, ok := envBool(getenv, "RADAR_DEBUG_RULES"); ok {
		cfg.Pipeline.DebugRules = b
	}
	if b, ok := envBool(getenv, "FILTER_ENTRY_EXCLUSIONS"); ok {
		cfg.Pipeline.EntryExclusions = b
	}
	if b, ok := envBool(getenv, "GITHUB_DATE_INFERENCE"); ok {
		cfg.Sources.GitHub.DateInference = b
	}
	if b, ok := envBool(getenv, "GITHUB_CURATED_DATE_SCRAPE"); ok {
		cfg.Sources.GitHub.DateScrape = b
	}
	if b, ok := envBool(getenv, "ENABLE_EXPERIMENTAL"); ok {
		cfg.API.EnableExperimental = b
	}
	if u := strings.TrimSpace(getenv("DATABASE_URL")); u != "" {
		cfg.Database.URL = u
		cfg.Database.Driver = "postgres"
	}
}

// DescCapFor returns the detail-page quota for a provider: the per-provider
// override when set, otherwise the global cap.
func (c Config) DescCapFor(src domain.Source) int {
	if n, ok := c.Enrichment.DescCapByProvider[string(src)]; ok {
		return n
	}
	return c.Enrichment.DescCap
}

func (c Config) DescTimeout() time.Duration {
	return time.Duration(c.Enrichment.DescTimeoutSeconds) * time.Second
}

func (c Config) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTP.TimeoutSeconds) * time.Second
}

func envInt(getenv func(string) string, key string) (int, bool) {
	v := strings.TrimSpace(getenv(key))
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("[config] env=%s value=%q not an int, ignored", key, v)
		return 0, false
	}
	return n, true
}

func envBool(getenv func(string) string, key string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(getenv(key))) {
	case "1", "true", "yes", "on":
		return true, true
	case "0", "false", "no", "off":
		return false, true
	}
	return false, false
}
