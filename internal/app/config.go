package app

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Env holds runtime configuration read from environment variables.
type Env struct {
	LogFormat string `envconfig:"LOG_FORMAT" default:"pretty"`

	ConfigPath      string `envconfig:"CONFIG_PATH" default:"app_config.yaml"`
	RulesPath       string `envconfig:"RULES_PATH" default:"rules.yaml"`
	BranchesPath    string `envconfig:"BRANCHES_PATH" default:"data/customers/branches.csv"`
	HeadOfficesPath string `envconfig:"HEAD_OFFICES_PATH" default:"data/customers/head_offices.csv"`
	ExportDir       string `envconfig:"EXPORT_DIR" default:"exports"`
	OutputDir       string `envconfig:"OUTPUT_DIR" default:"out"`
}

// LoadEnv reads configuration from environment variables.
func LoadEnv() (*Env, error) {
	var env Env
	if err := envconfig.Process("GLDEDUCT", &env); err != nil {
		return nil, err
	}
	return &env, nil
}

// Config is the application configuration file. Report sheet names are an
// explicit, validated structure rather than a loose name mapping.
type Config struct {
	Source struct {
		System string `yaml:"system" validate:"required"`
		Layout string `yaml:"layout" validate:"required"`
	} `yaml:"source"`
	Report ReportConfig `yaml:"report"`
}

// ReportConfig names the workbook and its three sheets.
type ReportConfig struct {
	// Name may contain $calendar_year$ and $calendar_month$ placeholders.
	Name           string `yaml:"name" validate:"required"`
	ExportedSheet  string `yaml:"exported_sheet" validate:"required"`
	ProcessedSheet string `yaml:"processed_sheet" validate:"required"`
	PivotSheet     string `yaml:"pivot_sheet" validate:"required"`
}

// FileName renders the workbook name for the given run time, ensuring an
// .xlsx extension.
func (r ReportConfig) FileName(at time.Time) string {
	name := strings.ReplaceAll(r.Name, "$calendar_year$", at.Format("2006"))
	name = strings.ReplaceAll(name, "$calendar_month$", at.Format("01"))
	if !strings.HasSuffix(strings.ToLower(name), ".xlsx") {
		name += ".xlsx"
	}
	return name
}

// LoadConfig reads and validates the application configuration file.
func LoadConfig(path string) (*Config, error) {
	if !strings.HasSuffix(path, ".yaml") && !strings.HasSuffix(path, ".yml") {
		return nil, fmt.Errorf("app: configuration file %q is not a YAML file", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("app: parsing %s: %w", path, err)
	}
	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("app: invalid configuration: %w", err)
	}
	return &cfg, nil
}

// CountryRule is one per-company-code processing rule.
type CountryRule struct {
	CompanyCode string
	Country     string   `yaml:"country"`
	Active      bool     `yaml:"active"`
	Accounts    []uint64 `yaml:"accounts"`
}

// LoadRules reads the rules file, keyed by company code, and splits it into
// active and inactive rules, both ordered by company code. An empty active
// set is a clean no-op for the caller, not an error.
func LoadRules(path string) (active, inactive []CountryRule, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	raw := make(map[string]CountryRule)
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, nil, fmt.Errorf("app: parsing %s: %w", path, err)
	}

	for cocd, rule := range raw {
		rule.CompanyCode = cocd
		if rule.Active {
			active = append(active, rule)
		} else {
			inactive = append(inactive, rule)
		}
	}
	sort.Slice(active, func(i, j int) bool { return active[i].CompanyCode < active[j].CompanyCode })
	sort.Slice(inactive, func(i, j int) bool { return inactive[i].CompanyCode < inactive[j].CompanyCode })
	return active, inactive, nil
}
