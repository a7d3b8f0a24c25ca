package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"RetireRisk/internal/model"
)

// Config holds all application configuration.
type Config struct {
	Plan struct {
		StartingAssets float64 `yaml:"starting_assets"`
		YearlyExpense  float64 `yaml:"yearly_expense"`
		StockFraction  float64 `yaml:"stock_fraction"`
		StartingAge    float64 `yaml:"starting_age"`
		Region         string  `yaml:"region"`
		Group          string  `yaml:"group"`
		Samples        int     `yaml:"samples"`
		AcceptableRisk float64 `yaml:"acceptable_risk"`
		StateFile      string  `yaml:"state_file"`
	} `yaml:"plan"`
	Data struct {
		Source       string `yaml:"source"` // "csv" or "mock"
		LifeTableDir string `yaml:"life_table_dir"`
		MarketCSV    string `yaml:"market_csv"`
	} `yaml:"data"`
	Simulation struct {
		Workers          int    `yaml:"workers"`
		Seed             uint64 `yaml:"seed"` // 0 draws a fresh seed per process
		MaxRetries       int    `yaml:"max_retries"`
		MaxSamples       int    `yaml:"max_samples"` // upper bound on user-supplied sample counts
		KeepTrajectories bool   `yaml:"keep_trajectories"`
		SweepParallel    int    `yaml:"sweep_parallel"`
	} `yaml:"simulation"`
	Schedule struct {
		RiskCron  string `yaml:"risk_cron"`
		GoalCron  string `yaml:"goal_cron"`
		SweepCron string `yaml:"sweep_cron"`
	} `yaml:"schedule"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	HTTP struct {
		Addr string `yaml:"addr"`
	} `yaml:"http"`
	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"logging"`
	Proxy string `yaml:"proxy"`
}

// Load reads config from a YAML file, then applies environment variable overrides.
// A missing file is not an error; defaults fill whatever is unset.
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

	// Environment variable overrides
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		cfg.Telegram.ChatID = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}
	if v := os.Getenv("LIFE_TABLE_DIR"); v != "" {
		cfg.Data.LifeTableDir = v
	}
	if v := os.Getenv("MARKET_CSV"); v != "" {
		cfg.Data.MarketCSV = v
	}
	if v := os.Getenv("DATA_SOURCE"); v != "" {
		cfg.Data.Source = v
	}
	if v := os.Getenv("HTTP_ADDR"); v != "" {
		cfg.HTTP.Addr = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.Proxy = v
	}
	if v := os.Getenv("SIM_SEED"); v != "" {
		seed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("SIM_SEED: %w", err)
		}
		cfg.Simulation.Seed = seed
	}
	if v := os.Getenv("SIM_WORKERS"); v != "" {
		workers, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("SIM_WORKERS: %w", err)
		}
		cfg.Simulation.Workers = workers
	}
	if v := os.Getenv("YEARLY_EXPENSE"); v != "" {
		var expense float64
		if _, err := fmt.Sscanf(v, "%f", &expense); err == nil {
			cfg.Plan.YearlyExpense = expense
		}
	}

	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Plan.StartingAssets == 0 {
		c.Plan.StartingAssets = 1e6
	}
	if c.Plan.YearlyExpense == 0 {
		c.Plan.YearlyExpense = 40000
	}
	if c.Plan.StockFraction == 0 {
		c.Plan.StockFraction = 0.5
	}
	if c.Plan.StartingAge == 0 {
		c.Plan.StartingAge = 65
	}
	if c.Plan.Region == "" {
		c.Plan.Region = "CA"
	}
	if c.Plan.Group == "" {
		c.Plan.Group = model.GroupTotal
	}
	if c.Plan.Samples == 0 {
		c.Plan.Samples = 500
	}
	if c.Plan.AcceptableRisk == 0 {
		c.Plan.AcceptableRisk = 0.01
	}
	if c.Plan.StateFile == "" {
		c.Plan.StateFile = "data/plan_state.json"
	}
	if c.Data.Source == "" {
		c.Data.Source = "csv"
	}
	if c.Data.LifeTableDir == "" {
		c.Data.LifeTableDir = "data/life_tables"
	}
	if c.Data.MarketCSV == "" {
		c.Data.MarketCSV = "data/shiller.csv"
	}
	if c.Simulation.MaxRetries == 0 {
		c.Simulation.MaxRetries = 10
	}
	if c.Simulation.MaxSamples == 0 {
		c.Simulation.MaxSamples = model.DefaultMaxSamples
	}
	if c.Simulation.SweepParallel == 0 {
		c.Simulation.SweepParallel = 1
	}
	if c.Schedule.RiskCron == "" {
		c.Schedule.RiskCron = "0 0 8 * * 1"
	}
	if c.Schedule.GoalCron == "" {
		c.Schedule.GoalCron = "0 0 9 1 * *"
	}
	if c.Schedule.SweepCron == "" {
		c.Schedule.SweepCron = "0 0 10 1 1,4,7,10 *"
	}
	if c.Database.SQLitePath == "" {
		c.Database.SQLitePath = "data/retirerisk.db"
	}
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":8080"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
}

// PlanDefaults is the plan used when no plan state has been saved yet.
func (c *Config) PlanDefaults() model.PlanState {
	return model.PlanState{
		StartingAssets: c.Plan.StartingAssets,
		YearlyExpense:  c.Plan.YearlyExpense,
		StockFraction:  c.Plan.StockFraction,
		StartingAge:    c.Plan.StartingAge,
		Region:         c.Plan.Region,
		Group:          c.Plan.Group,
		SampleCount:    c.Plan.Samples,
		AcceptableRisk: c.Plan.AcceptableRisk,
	}
}

// Validate checks ranges and enumerations. Telegram is optional: an empty
// token disables delivery.
func (c *Config) Validate() error {
	plan := c.PlanDefaults()
	if err := plan.Params().Validate(); err != nil {
		return fmt.Errorf("plan: %w", err)
	}
	if err := model.ValidateRisk(plan.AcceptableRisk); err != nil {
		return fmt.Errorf("plan: %w", err)
	}
	if _, ok := model.NormalizeGroup(c.Plan.Group); !ok {
		return fmt.Errorf("plan.group %q is not a known demographic group", c.Plan.Group)
	}
	switch c.Data.Source {
	case "csv", "mock":
	default:
		return fmt.Errorf("data.source must be csv or mock, got %q", c.Data.Source)
	}
	if c.Simulation.Workers < 0 {
		return fmt.Errorf("simulation.workers must not be negative")
	}
	if c.Simulation.MaxRetries < 0 {
		return fmt.Errorf("simulation.max_retries must not be negative")
	}
	if c.Simulation.MaxSamples < 1 {
		return fmt.Errorf("simulation.max_samples must be positive")
	}
	if err := model.ValidateSampleLimit(c.Plan.Samples, c.Simulation.MaxSamples); err != nil {
		return fmt.Errorf("plan.samples: %w", err)
	}
	if c.Telegram.BotToken != "" && c.Telegram.ChatID == "" {
		return fmt.Errorf("telegram.chat_id is required when telegram.bot_token is set")
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format must be text or json, got %q", c.Logging.Format)
	}
	return nil
}
