package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"github.com/ritzau/taxflow/pkg/hierarchy"
	"github.com/ritzau/taxflow/pkg/projections"
	"github.com/ritzau/taxflow/pkg/taxonomy"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// EnvPrefix prefixes environment overrides, e.g. TAXFLOW_PORT=9090 or
// TAXFLOW_SANKEY_TOP=8.
const EnvPrefix = "TAXFLOW_"

// DefaultHistoryFile is created under MainDir unless history is set to a path
// or to the empty string, which disables history.
const DefaultHistoryFile = "taxflow-history.db"

// Config file names looked up in the working directory when --config is not given.
var defaultFiles = []string{"config.yaml", "config.yml", "taxflow.toml"}

// SankeyConfig holds flow diagram defaults.
type SankeyConfig struct {
	Top        int    `koanf:"top"`
	Weight     string `koanf:"weight"`
	GhostLabel string `koanf:"ghost_label"`
}

// SunburstConfig holds radial chart defaults.
type SunburstConfig struct {
	MinReads int64 `koanf:"min_reads"`
}

// TopListConfig holds top list defaults.
type TopListConfig struct {
	Size int `koanf:"size"`
}

// Config holds all configuration for the application
type Config struct {
	MainDir      string   `koanf:"main_dir"`
	Report       string   `koanf:"report"`
	BlastDir     string   `koanf:"blast_dir"`
	QCFile       string   `koanf:"qc_file"`
	FastpFile    string   `koanf:"fastp_file"`
	History      string   `koanf:"history"`
	Port         int      `koanf:"port"`
	Watch        bool     `koanf:"watch"`
	UpdateEvery  int      `koanf:"update_interval_seconds"`
	Verbosity    string   `koanf:"verbosity"`
	VerboseCnt   int      `koanf:"verbose"`
	LogJSON      bool     `koanf:"log_json"`
	HierarchyAll []string `koanf:"taxonomic_hierarchy_letters"`
	HierarchyDef []string `koanf:"default_hierarchy_letters"`
	Domains      []string `koanf:"domains"`

	Sankey   SankeyConfig   `koanf:"sankey"`
	Sunburst SunburstConfig `koanf:"sunburst"`
	TopList  TopListConfig  `koanf:"toplist"`

	WarningLowerLimit int64                 `koanf:"warning_lower_limit"`
	DangerLowerLimit  int64                 `koanf:"danger_lower_limit"`
	SpeciesOfInterest []projections.Species `koanf:"species_of_interest"`

	// Source is the config file that was loaded, empty when none was found.
	Source string `koanf:"-"`
}

func defaults() map[string]interface{} {
	return map[string]interface{}{
		"main_dir":                    ".",
		"report":                      "",
		"blast_dir":                   "",
		"qc_file":                     "",
		"fastp_file":                  "",
		"history":                     DefaultHistoryFile,
		"port":                        8050,
		"watch":                       true,
		"update_interval_seconds":     10,
		"verbosity":                   "",
		"verbose":                     0,
		"log_json":                    false,
		"taxonomic_hierarchy_letters": []string{"D", "P", "C", "O", "F", "G", "S"},
		"default_hierarchy_letters":   []string{},
		"domains":                     append([]string(nil), taxonomy.KnownDomains...),
		"sankey": map[string]interface{}{
			"top":         5,
			"weight":      string(hierarchy.WeightReads),
			"ghost_label": hierarchy.DefaultGhostLabel,
		},
		"sunburst": map[string]interface{}{
			"min_reads": 10,
		},
		"toplist": map[string]interface{}{
			"size": 15,
		},
		"warning_lower_limit": 100,
		"danger_lower_limit":  1000,
	}
}

// flagKeys maps command-line flag names to config keys where they differ
// beyond dashes and underscores. An empty key ignores the flag.
var flagKeys = map[string]string{
	"config":      "",
	"format":      "",
	"validate":    "",
	"top":         "sankey.top",
	"weight":      "sankey.weight",
	"ghost-label": "sankey.ghost_label",
	"min-reads":   "sunburst.min_reads",
	"size":        "toplist.size",
	"ranks":       "default_hierarchy_letters",
	"interval":    "update_interval_seconds",
}

func flagKey(f *pflag.Flag) string {
	if key, ok := flagKeys[f.Name]; ok {
		return key
	}
	return strings.ReplaceAll(f.Name, "-", "_")
}

// Load loads configuration from defaults, config file, environment variables, and flags.
// Priority: Flags > Env > Config File > Defaults
//
// The config file is the --config flag if set, otherwise the first of
// config.yaml, config.yml or taxflow.toml found in the working directory.
// YAML or TOML is chosen by extension.
func Load(f *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	// 1. Defaults
	if err := k.Load(makeMapProvider(defaults()), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config file
	source, err := configFile(f)
	if err != nil {
		return nil, err
	}
	if source != "" {
		if err := k.Load(file.Provider(source), parserFor(source)); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", source, err)
		}
	}

	// 3. Environment Variables
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Flags
	if f != nil {
		p := posflag.ProviderWithFlag(f, ".", k, func(fl *pflag.Flag) (string, interface{}) {
			return flagKey(fl), posflag.FlagVal(f, fl)
		})
		if err := k.Load(p, nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	// Unmarshal into struct
	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.Source = source
	cfg.resolvePaths()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// envKey maps TAXFLOW_SANKEY_TOP to sankey.top. Top-level keys that contain
// underscores themselves (main_dir, warning_lower_limit, ...) keep them.
func envKey(s string) string {
	key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	for _, section := range []string{"sankey", "sunburst", "toplist"} {
		if strings.HasPrefix(key, section+"_") {
			return section + "." + strings.TrimPrefix(key, section+"_")
		}
	}
	return key
}

func configFile(f *pflag.FlagSet) (string, error) {
	if f != nil {
		if fl := f.Lookup("config"); fl != nil && fl.Value.String() != "" {
			path := fl.Value.String()
			if _, err := os.Stat(path); err != nil {
				return "", fmt.Errorf("%w: config file: %v", ErrInvalid, err)
			}
			return path, nil
		}
	}
	for _, name := range defaultFiles {
		if _, err := os.Stat(name); err == nil {
			return name, nil
		}
	}
	return "", nil
}

func parserFor(path string) koanf.Parser {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return toml.Parser()
	default:
		return yaml.Parser()
	}
}

// resolvePaths fills file locations left empty with the project layout under MainDir.
func (c *Config) resolvePaths() {
	join := func(parts ...string) string {
		return filepath.Join(append([]string{c.MainDir}, parts...)...)
	}
	if c.Report == "" {
		c.Report = join("kraken_cumul", "kraken_cumul_report.kreport2")
	}
	if c.BlastDir == "" {
		c.BlastDir = join("blast_result_files")
	}
	if c.QCFile == "" {
		c.QCFile = join("qc_data", "cumul_qc.txt")
	}
	if c.FastpFile == "" {
		c.FastpFile = join("fastp_reports", "compiled_fastp.txt")
	}
	if c.History != "" && filepath.Base(c.History) == c.History {
		c.History = join(c.History)
	}
}

// Validate rejects inconsistent settings. It is the only place where rank
// and domain names from configuration are checked.
func (c *Config) Validate() error {
	all, err := c.RankOrder()
	if err != nil {
		return fmt.Errorf("%w: taxonomic_hierarchy_letters: %v", ErrInvalid, err)
	}
	if _, err := c.DefaultRanks(all); err != nil {
		return fmt.Errorf("%w: default_hierarchy_letters: %v", ErrInvalid, err)
	}
	for _, d := range c.Domains {
		if !taxonomy.IsKnownDomain(d) {
			return fmt.Errorf("%w: unknown domain %q", ErrInvalid, d)
		}
	}
	if _, err := hierarchy.ParseWeight(c.Sankey.Weight); err != nil {
		return fmt.Errorf("%w: sankey.weight: %v", ErrInvalid, err)
	}
	if c.Sankey.Top < 1 {
		return fmt.Errorf("%w: sankey.top must be at least 1", ErrInvalid)
	}
	if c.TopList.Size < 1 {
		return fmt.Errorf("%w: toplist.size must be at least 1", ErrInvalid)
	}
	if c.Sunburst.MinReads < 0 {
		return fmt.Errorf("%w: sunburst.min_reads must not be negative", ErrInvalid)
	}
	if c.WarningLowerLimit <= 0 || c.DangerLowerLimit <= 0 {
		return fmt.Errorf("%w: read limits must be positive", ErrInvalid)
	}
	if c.WarningLowerLimit > c.DangerLowerLimit {
		return fmt.Errorf("%w: warning_lower_limit %d above danger_lower_limit %d",
			ErrInvalid, c.WarningLowerLimit, c.DangerLowerLimit)
	}
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("%w: port %d out of range", ErrInvalid, c.Port)
	}
	if c.UpdateEvery < 0 {
		return fmt.Errorf("%w: update_interval_seconds must not be negative", ErrInvalid)
	}
	for i, sp := range c.SpeciesOfInterest {
		if strings.TrimSpace(sp.TaxID) == "" {
			return fmt.Errorf("%w: species_of_interest[%d] (%s) has no taxid", ErrInvalid, i, sp.Name)
		}
	}
	return nil
}

// RankOrder is the full rank alphabet in canonical order.
func (c *Config) RankOrder() (*taxonomy.RankOrder, error) {
	return taxonomy.NewRankOrder(taxonomy.ParseRanks(c.HierarchyAll))
}

// DefaultRanks is the kept-rank selection used when a request names none.
func (c *Config) DefaultRanks(all *taxonomy.RankOrder) (*taxonomy.RankOrder, error) {
	if len(c.HierarchyDef) == 0 {
		return all, nil
	}
	return all.Subset(taxonomy.ParseRanks(c.HierarchyDef))
}

// Thresholds returns the species-of-interest tiers.
func (c *Config) Thresholds() projections.Thresholds {
	return projections.Thresholds{Warning: c.WarningLowerLimit, Danger: c.DangerLowerLimit}
}

// Helper to use map as a provider
type mapProvider struct {
	m map[string]interface{}
}

func makeMapProvider(m map[string]interface{}) *mapProvider {
	return &mapProvider{m: m}
}

func (p *mapProvider) Read() (map[string]interface{}, error) {
	return p.m, nil
}

func (p *mapProvider) ReadBytes() ([]byte, error) {
	return nil, fmt.Errorf("not implemented")
}
