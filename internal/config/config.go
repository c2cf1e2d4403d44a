package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"TrendAllocator/internal/calculator"
	"TrendAllocator/internal/model"
	"TrendAllocator/internal/strategy"
)

// PolicyEntry is one policy row as written in YAML:
//
//	- order: [short, medium, long]
//	  allocation: 0.7
type PolicyEntry struct {
	Order      []string `yaml:"order"`
	Allocation float64  `yaml:"allocation"`
}

// Config holds all application configuration.
type Config struct {
	Ticker     string `yaml:"ticker"`
	DataSource struct {
		Provider     string        `yaml:"provider"` // yahoo or rest
		BaseURL      string        `yaml:"base_url"`
		APIKey       string        `yaml:"api_key"`
		LookbackDays int           `yaml:"lookback_days"`
		Timeout      time.Duration `yaml:"timeout"`
	} `yaml:"data_source"`
	Indicators struct {
		ShortWindow int `yaml:"short_window"`
		MediumSpan  int `yaml:"medium_span"`
		LongWindow  int `yaml:"long_window"`
	} `yaml:"indicators"`
	Policy []PolicyEntry `yaml:"policy"`
	Email  struct {
		Host       string        `yaml:"host"`
		Port       int           `yaml:"port"`
		Sender     string        `yaml:"sender"`
		Password   string        `yaml:"password"`
		Recipients []string      `yaml:"recipients"`
		Timeout    time.Duration `yaml:"timeout"`
	} `yaml:"email"`
	Telegram struct {
		BotToken string        `yaml:"bot_token"`
		ChatID   string        `yaml:"chat_id"`
		Timeout  time.Duration `yaml:"timeout"`
	} `yaml:"telegram"`
	Schedule struct {
		Cron       string `yaml:"cron"`
		Timezone   string `yaml:"timezone"`
		RunOnStart bool   `yaml:"run_on_start"`
	} `yaml:"schedule"`
	Metrics struct {
		PushgatewayURL string        `yaml:"pushgateway_url"`
		Job            string        `yaml:"job"`
		Timeout        time.Duration `yaml:"timeout"`
	} `yaml:"metrics"`
	Log struct {
		Level  string `yaml:"level"`
		Pretty bool   `yaml:"pretty"`
	} `yaml:"log"`
	Proxy string `yaml:"proxy"`
}

// Load reads config from a YAML file, then applies .env and environment
// variable overrides and defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Variables already set in the process environment win over .env.
	_ = godotenv.Load()

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("TICKER"); v != "" {
		c.Ticker = v
	}
	if v := os.Getenv("DATA_PROVIDER"); v != "" {
		c.DataSource.Provider = v
	}
	if v := os.Getenv("DATA_BASE_URL"); v != "" {
		c.DataSource.BaseURL = v
	}
	if v := os.Getenv("DATA_API_KEY"); v != "" {
		c.DataSource.APIKey = v
	}
	if v := os.Getenv("LOOKBACK_DAYS"); v != "" {
		days, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("LOOKBACK_DAYS: %w", err)
		}
		c.DataSource.LookbackDays = days
	}
	if v := os.Getenv("EMAIL_ADDRESS"); v != "" {
		c.Email.Sender = v
	}
	if v := os.Getenv("EMAIL_PASSWORD"); v != "" {
		c.Email.Password = v
	}
	if v, ok := os.LookupEnv("EMAIL_TO_1"); ok {
		c.Email.Recipients = splitList(v)
	}
	if v := os.Getenv("SMTP_HOST"); v != "" {
		c.Email.Host = v
	}
	if v := os.Getenv("SMTP_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("SMTP_PORT: %w", err)
		}
		c.Email.Port = port
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		c.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		c.Telegram.ChatID = v
	}
	if v := os.Getenv("CRON_SCHEDULE"); v != "" {
		c.Schedule.Cron = v
	}
	if v := os.Getenv("CRON_TZ"); v != "" {
		c.Schedule.Timezone = v
	}
	if v := os.Getenv("RUN_ON_START"); v != "" {
		run, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("RUN_ON_START: %w", err)
		}
		c.Schedule.RunOnStart = run
	}
	if v := os.Getenv("PUSHGATEWAY_URL"); v != "" {
		c.Metrics.PushgatewayURL = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		c.Proxy = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("LOG_PRETTY"); v != "" {
		pretty, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("LOG_PRETTY: %w", err)
		}
		c.Log.Pretty = pretty
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Ticker == "" {
		c.Ticker = "QLD"
	}
	if c.DataSource.Provider == "" {
		c.DataSource.Provider = "yahoo"
	}
	if c.DataSource.LookbackDays == 0 {
		c.DataSource.LookbackDays = 365
	}
	if c.DataSource.Timeout == 0 {
		c.DataSource.Timeout = 30 * time.Second
	}
	def := calculator.DefaultParams()
	if c.Indicators.ShortWindow == 0 {
		c.Indicators.ShortWindow = def.ShortWindow
	}
	if c.Indicators.MediumSpan == 0 {
		c.Indicators.MediumSpan = def.MediumSpan
	}
	if c.Indicators.LongWindow == 0 {
		c.Indicators.LongWindow = def.LongWindow
	}
	if c.Policy == nil {
		for _, e := range strategy.DefaultPolicyEntries() {
			order := make([]string, len(e.State))
			for i, ind := range e.State {
				order[i] = ind.String()
			}
			c.Policy = append(c.Policy, PolicyEntry{Order: order, Allocation: e.Allocation})
		}
	}
	if c.Email.Host == "" {
		c.Email.Host = "smtp.gmail.com"
	}
	if c.Email.Port == 0 {
		c.Email.Port = 465
	}
	if c.Email.Timeout == 0 {
		c.Email.Timeout = 30 * time.Second
	}
	if c.Telegram.Timeout == 0 {
		c.Telegram.Timeout = 30 * time.Second
	}
	if c.Schedule.Cron == "" {
		c.Schedule.Cron = "0 0 8 * * 1"
	}
	if c.Metrics.Job == "" {
		c.Metrics.Job = "trend_allocator"
	}
	if c.Metrics.Timeout == 0 {
		c.Metrics.Timeout = 10 * time.Second
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// Validate checks that all required fields are set.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Ticker) == "" {
		return errors.New("ticker is required")
	}
	switch c.DataSource.Provider {
	case "yahoo":
	case "rest":
		if c.DataSource.BaseURL == "" {
			return errors.New("data_source.base_url is required for the rest provider")
		}
	default:
		return fmt.Errorf("data_source.provider %q is not supported", c.DataSource.Provider)
	}
	if c.DataSource.LookbackDays <= 0 {
		return errors.New("data_source.lookback_days must be positive")
	}
	if err := c.IndicatorParams().Validate(); err != nil {
		return err
	}
	if need := MinLookbackDays(c.IndicatorParams().LongWindow); c.DataSource.LookbackDays < need {
		return fmt.Errorf("data_source.lookback_days (%d calendar days) cannot cover indicators.long_window (%d trading days), need at least %d",
			c.DataSource.LookbackDays, c.IndicatorParams().LongWindow, need)
	}
	if _, err := c.PolicyTable(); err != nil {
		return err
	}
	if c.Email.Port <= 0 || c.Email.Port > 65535 {
		return fmt.Errorf("email.port %d is out of range", c.Email.Port)
	}
	if c.Schedule.Timezone != "" {
		if _, err := time.LoadLocation(c.Schedule.Timezone); err != nil {
			return fmt.Errorf("schedule.timezone: %w", err)
		}
	}
	return nil
}

// MinLookbackDays converts a window of trading days into the calendar days
// needed to fetch it: five sessions per seven days plus a margin for holidays.
func MinLookbackDays(tradingDays int) int {
	return tradingDays*7/5 + holidayMarginDays
}

const holidayMarginDays = 10

// IndicatorParams returns the configured averages.
func (c *Config) IndicatorParams() calculator.Params {
	return calculator.Params{
		ShortWindow: c.Indicators.ShortWindow,
		MediumSpan:  c.Indicators.MediumSpan,
		LongWindow:  c.Indicators.LongWindow,
	}
}

// PolicyTable builds the allocation policy from the configured entries.
func (c *Config) PolicyTable() (*strategy.PolicyTable, error) {
	entries := make([]strategy.PolicyEntry, 0, len(c.Policy))
	for i, p := range c.Policy {
		if len(p.Order) != 3 {
			return nil, fmt.Errorf("policy[%d]: order must list 3 indicators, got %d", i, len(p.Order))
		}
		var state model.State
		for j, name := range p.Order {
			ind, err := model.ParseIndicator(strings.ToLower(strings.TrimSpace(name)))
			if err != nil {
				return nil, fmt.Errorf("policy[%d]: %w", i, err)
			}
			state[j] = ind
		}
		entries = append(entries, strategy.PolicyEntry{State: state, Allocation: p.Allocation})
	}
	table, err := strategy.NewPolicyTable(entries)
	if err != nil {
		return nil, fmt.Errorf("policy: %w", err)
	}
	return table, nil
}

// OutOfRangeAllocations lists policy rows whose allocation is outside [0, 1].
// They are allowed but worth a warning.
func (c *Config) OutOfRangeAllocations() []int {
	var rows []int
	for i, p := range c.Policy {
		if p.Allocation < 0 || p.Allocation > 1 {
			rows = append(rows, i)
		}
	}
	return rows
}

// Location returns the schedule time zone, defaulting to local time.
func (c *Config) Location() *time.Location {
	if c.Schedule.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Schedule.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if s := strings.TrimSpace(part); s != "" {
			out = append(out, s)
		}
	}
	return out
}
