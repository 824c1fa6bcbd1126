package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	yaml "gopkg.in/yaml.v3"

	"github.com/hyperifyio/contactharvest/internal/export"
	"github.com/hyperifyio/contactharvest/internal/extract"
)

// FileConfig is the single-file configuration schema.
type FileConfig struct {
	Store struct {
		Backend     string `yaml:"backend" json:"backend"`
		Path        string `yaml:"path" json:"path"`
		StrictPerms bool   `yaml:"strictPerms" json:"strictPerms"`
	} `yaml:"store" json:"store"`

	Export struct {
		Dir      string `yaml:"dir" json:"dir"`
		Encoding string `yaml:"encoding" json:"encoding"`
		TimeZone string `yaml:"timeZone" json:"timeZone"`
		Font     string `yaml:"font" json:"font"`
	} `yaml:"export" json:"export"`

	Page struct {
		Source         string   `yaml:"source" json:"source"`
		File           string   `yaml:"file" json:"file"`
		URL            string   `yaml:"url" json:"url"`
		Cookie         string   `yaml:"cookie" json:"cookie"`
		UserAgent      string   `yaml:"userAgent" json:"userAgent"`
		Timeout        Duration `yaml:"timeout" json:"timeout"`
		Retries        int      `yaml:"retries" json:"retries"`
		RequestTimeout Duration `yaml:"requestTimeout" json:"requestTimeout"`
	} `yaml:"page" json:"page"`

	Chrome struct {
		Headless     *bool    `yaml:"headless" json:"headless"`
		WaitSelector string   `yaml:"waitSelector" json:"waitSelector"`
		Settle       Duration `yaml:"settle" json:"settle"`
		ExecPath     string   `yaml:"execPath" json:"execPath"`
		UserDataDir  string   `yaml:"userDataDir" json:"userDataDir"`
	} `yaml:"chrome" json:"chrome"`

	Selectors extract.Selectors `yaml:"selectors" json:"selectors"`

	Verbose bool `yaml:"verbose" json:"verbose"`
}

// Duration reads "30s"-style strings from both YAML and JSON. Bare numbers
// are taken as nanoseconds, as time.Duration would.
type Duration time.Duration

func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		return d.parse(s)
	}
	var n int64
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("duration: %s", b)
	}
	*d = Duration(n)
	return nil
}

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	return d.parse(node.Value)
}

func (d *Duration) parse(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		*d = 0
		return nil
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		*d = Duration(n)
		return nil
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("duration: %w", err)
	}
	*d = Duration(v)
	return nil
}

// LoadConfigFile reads YAML or JSON into FileConfig.
func LoadConfigFile(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse yaml: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse json: %w", err)
		}
	default:
		if err := yaml.Unmarshal(b, &fc); err != nil {
			if jerr := json.Unmarshal(b, &fc); jerr != nil {
				return fc, fmt.Errorf("parse config: %v (yaml) / %v (json)", err, jerr)
			}
		}
	}
	return fc, nil
}

// ApplyFileConfig overlays every value the file sets onto cfg. Call it on
// defaults, before env and flags.
func ApplyFileConfig(cfg *Config, fc FileConfig) {
	if cfg == nil {
		return
	}
	setString(&cfg.StoreBackend, fc.Store.Backend)
	setString(&cfg.StorePath, fc.Store.Path)
	if fc.Store.StrictPerms {
		cfg.StrictPerms = true
	}

	setString(&cfg.OutputDir, fc.Export.Dir)
	setString(&cfg.Encoding, fc.Export.Encoding)
	setString(&cfg.TimeZone, fc.Export.TimeZone)
	setString(&cfg.FontPath, fc.Export.Font)

	setString(&cfg.Source, fc.Page.Source)
	setString(&cfg.PageFile, fc.Page.File)
	setString(&cfg.PageURL, fc.Page.URL)
	setString(&cfg.Cookie, fc.Page.Cookie)
	setString(&cfg.UserAgent, fc.Page.UserAgent)
	if fc.Page.Timeout > 0 {
		cfg.ScrapeTimeout = time.Duration(fc.Page.Timeout)
	}
	if fc.Page.Retries > 0 {
		cfg.PageRetries = fc.Page.Retries
	}
	if fc.Page.RequestTimeout > 0 {
		cfg.PageRequestTimeout = time.Duration(fc.Page.RequestTimeout)
	}

	if fc.Chrome.Headless != nil {
		cfg.ChromeHeadless = *fc.Chrome.Headless
	}
	setString(&cfg.ChromeWaitSelector, fc.Chrome.WaitSelector)
	if fc.Chrome.Settle > 0 {
		cfg.ChromeSettle = time.Duration(fc.Chrome.Settle)
	}
	setString(&cfg.ChromeExecPath, fc.Chrome.ExecPath)
	setString(&cfg.ChromeUserDataDir, fc.Chrome.UserDataDir)

	// Unset selectors keep whatever cfg already has.
	cfg.Selectors = mergeSelectors(cfg.Selectors, fc.Selectors)

	if fc.Verbose {
		cfg.Verbose = true
	}
}

func setString(dst *string, v string) {
	if strings.TrimSpace(v) != "" {
		*dst = strings.TrimSpace(v)
	}
}

func mergeSelectors(base, over extract.Selectors) extract.Selectors {
	setString(&base.Item, over.Item)
	setString(&base.Company, over.Company)
	setString(&base.Contact, over.Contact)
	setString(&base.Phone, over.Phone)
	setString(&base.ExtraCount, over.ExtraCount)
	setString(&base.Address, over.Address)
	setString(&base.Email, over.Email)
	setString(&base.RegCapital, over.RegCapital)
	return base
}

// ValidateConfig checks settings that would otherwise fail deep inside a
// command.
func ValidateConfig(cfg Config) error {
	switch strings.ToLower(strings.TrimSpace(cfg.StoreBackend)) {
	case "file", "sqlite", "sqlite3":
	default:
		return fmt.Errorf("config: unknown store backend %q", cfg.StoreBackend)
	}
	if strings.TrimSpace(cfg.StorePath) == "" {
		return errors.New("config: store path is required")
	}
	switch cfg.Source {
	case "", SourceFile, SourceURL, SourceChrome:
	default:
		return fmt.Errorf("config: unknown page source %q (want file, url or chrome)", cfg.Source)
	}
	if _, err := export.ParseEncoding(cfg.Encoding); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if _, err := loadLocation(cfg.TimeZone); err != nil {
		return fmt.Errorf("config: time zone: %w", err)
	}
	if cfg.ScrapeTimeout < 0 || cfg.PageRequestTimeout < 0 {
		return errors.New("config: negative timeout is not allowed")
	}
	if cfg.PageRetries < 0 {
		return errors.New("config: negative page retries is not allowed")
	}
	if _, err := cfg.Selectors.WithDefaults().Compile(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

func loadLocation(name string) (*time.Location, error) {
	if strings.TrimSpace(name) == "" {
		return time.Local, nil
	}
	return time.LoadLocation(name)
}
