package config

import (
	"fmt"
	"strings"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all configuration for databot.
// Configuration can come from a YAML file (config.yaml) or environment
// variables; environment variables always override YAML values. Secrets
// (API keys, passwords) must only come from environment variables.
type Config struct {
	Env     string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	Port    string `yaml:"port" env:"PORT" env-default:"8080"`
	Version string `yaml:"-"` // Set at load time, not from config

	Warehouse WarehouseConfig `yaml:"warehouse"`
	Analysis  AnalysisConfig  `yaml:"analysis"`
	LLM       LLMConfig       `yaml:"llm"`
	Chat      ChatConfig      `yaml:"chat"`
	Wiki      WikiConfig      `yaml:"wiki"`
	Sheets    SheetsConfig    `yaml:"sheets"`
	Allocator AllocatorConfig `yaml:"allocator"`
}

// WarehouseConfig holds analytical warehouse connection settings.
type WarehouseConfig struct {
	// Type selects the warehouse adapter: "postgres" or "mssql".
	Type string `yaml:"type" env:"WAREHOUSE_TYPE" env-default:"postgres"`

	Host     string `yaml:"host" env:"WAREHOUSE_HOST" env-default:"localhost"`
	Port     int    `yaml:"port" env:"WAREHOUSE_PORT" env-default:"5432"`
	User     string `yaml:"user" env:"WAREHOUSE_USER" env-default:"databot"`
	Password string `yaml:"-" env:"WAREHOUSE_PASSWORD"` // Secret - not in YAML
	Database string `yaml:"database" env:"WAREHOUSE_DATABASE" env-default:"analytics"`
	SSLMode  string `yaml:"ssl_mode" env:"WAREHOUSE_SSLMODE" env-default:"disable"`

	// DefaultProject is the catalog prefix assumed for two-part table
	// references in generated SQL.
	DefaultProject string `yaml:"default_project" env:"WAREHOUSE_DEFAULT_PROJECT" env-default:"analytics"`

	// MaxRows caps rows returned by the primary query.
	MaxRows int `yaml:"max_rows" env:"WAREHOUSE_MAX_ROWS" env-default:"50"`

	// QueryTimeoutSeconds bounds each warehouse round-trip.
	QueryTimeoutSeconds int `yaml:"query_timeout_seconds" env:"WAREHOUSE_QUERY_TIMEOUT_SECONDS" env-default:"120"`
}

// AnalysisConfig holds the proactive-analysis feature settings.
type AnalysisConfig struct {
	// ProactiveAnalysis toggles automatic drill-down breakdowns.
	ProactiveAnalysis bool `yaml:"proactive_analysis" env:"PROACTIVE_ANALYSIS" env-default:"true"`
	// AutoCompare toggles automatic period-over-period comparisons.
	AutoCompare bool `yaml:"auto_compare" env:"AUTO_COMPARE" env-default:"true"`
	// DrillDownCap limits how many dimensions are drilled per query.
	DrillDownCap int `yaml:"drilldown_cap" env:"DRILLDOWN_CAP" env-default:"3"`
}

// LLMConfig holds model endpoint settings.
type LLMConfig struct {
	// Provider selects the client implementation: "anthropic" or "openai".
	Provider string `yaml:"provider" env:"LLM_PROVIDER" env-default:"anthropic"`
	Endpoint string `yaml:"endpoint" env:"LLM_ENDPOINT" env-default:""`
	Model    string `yaml:"model" env:"LLM_MODEL" env-default:""`
	APIKey   string `yaml:"-" env:"LLM_API_KEY"` // Secret - not in YAML
	// MaxToolRounds bounds the tool-call loop per chat turn.
	MaxToolRounds int `yaml:"max_tool_rounds" env:"LLM_MAX_TOOL_ROUNDS" env-default:"8"`
}

// ChatConfig holds the chat-platform webhook settings.
type ChatConfig struct {
	// WebhookSecret authenticates inbound event callbacks.
	WebhookSecret string `yaml:"-" env:"CHAT_WEBHOOK_SECRET"`
	// ResponseURL is where replies are posted.
	ResponseURL string `yaml:"response_url" env:"CHAT_RESPONSE_URL" env-default:""`
	// ThreadTTLMinutes is how long an inactive thread keeps its session.
	ThreadTTLMinutes int `yaml:"thread_ttl_minutes" env:"CHAT_THREAD_TTL_MINUTES" env-default:"60"`
}

// WikiConfig holds the document service settings.
type WikiConfig struct {
	BaseURL  string `yaml:"base_url" env:"WIKI_BASE_URL" env-default:""`
	SpaceKey string `yaml:"space_key" env:"WIKI_SPACE_KEY" env-default:"DATA"`
	APIToken string `yaml:"-" env:"WIKI_API_TOKEN"` // Secret - not in YAML
}

// SheetsConfig holds spreadsheet output settings.
type SheetsConfig struct {
	// OutputDir is where generated workbooks are written.
	OutputDir string `yaml:"output_dir" env:"SHEETS_OUTPUT_DIR" env-default:"./exports"`
}

// AllocatorConfig holds the recurring allocation workflow settings.
type AllocatorConfig struct {
	// Enabled toggles the scheduled allocation job.
	Enabled bool `yaml:"enabled" env:"ALLOCATOR_ENABLED" env-default:"false"`
	// Schedule is a cron expression (default: 06:00 on the 1st of each month).
	Schedule string `yaml:"schedule" env:"ALLOCATOR_SCHEDULE" env-default:"0 6 1 * *"`
	// Procedure is the stored analytical procedure to invoke.
	Procedure string `yaml:"procedure" env:"ALLOCATOR_PROCEDURE" env-default:"analytics.compute_allocations"`
	// Workbook is the target spreadsheet file name.
	Workbook string `yaml:"workbook" env:"ALLOCATOR_WORKBOOK" env-default:"allocations.xlsx"`
	// Sheet is the worksheet written into.
	Sheet string `yaml:"sheet" env:"ALLOCATOR_SHEET" env-default:"Allocations"`
	// StartCell is the top-left cell of the output range (e.g. "B4").
	StartCell string `yaml:"start_cell" env:"ALLOCATOR_START_CELL" env-default:"B4"`
}

// Load reads configuration from config.yaml with environment variable
// overrides. The version parameter is injected at build time.
func Load(version string) (*Config, error) {
	cfg := &Config{Version: version}

	if err := cleanenv.ReadConfig("config.yaml", cfg); err != nil {
		// Fall back to pure environment configuration when no YAML file
		// is present (containerized deployments).
		if err2 := cleanenv.ReadEnv(cfg); err2 != nil {
			return nil, fmt.Errorf("failed to read configuration: %w", err2)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	switch strings.ToLower(c.Warehouse.Type) {
	case "postgres", "mssql":
	default:
		return fmt.Errorf("unsupported warehouse type %q", c.Warehouse.Type)
	}

	switch strings.ToLower(c.LLM.Provider) {
	case "anthropic", "openai":
	default:
		return fmt.Errorf("unsupported llm provider %q", c.LLM.Provider)
	}

	if c.Analysis.DrillDownCap < 0 {
		return fmt.Errorf("drilldown_cap must not be negative")
	}
	if c.Warehouse.MaxRows <= 0 {
		return fmt.Errorf("max_rows must be positive")
	}

	return nil
}

// ConnectionString returns a driver connection string for the warehouse.
func (c *WarehouseConfig) ConnectionString() string {
	switch strings.ToLower(c.Type) {
	case "mssql":
		return fmt.Sprintf(
			"server=%s;port=%d;user id=%s;password=%s;database=%s",
			c.Host, c.Port, c.User, c.Password, c.Database,
		)
	default:
		return fmt.Sprintf(
			"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
		)
	}
}
