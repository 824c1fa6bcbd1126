package app

import (
	"time"

	"github.com/hyperifyio/contactharvest/internal/extract"
	"github.com/hyperifyio/contactharvest/internal/host"
)

// Defaults used when neither flags, env nor a config file set a value.
const (
	DefaultStoreBackend       = "file"
	DefaultStoreDir           = ".contactharvest"
	DefaultPageRetries        = 3
	DefaultPageRequestTimeout = 20 * time.Second
	// sqliteFileName is used when the sqlite backend points at a directory.
	sqliteFileName = "contacts.db"
)

// Page sources.
const (
	SourceFile   = "file"
	SourceURL    = "url"
	SourceChrome = "chrome"
)

// Config holds runtime configuration for the application.
type Config struct {
	// Storage
	StoreBackend string
	StorePath    string
	StrictPerms  bool

	// Export
	OutputDir string
	Encoding  string
	TimeZone  string
	FontPath  string

	// Page source
	Source    string
	PageFile  string
	PageURL   string
	Cookie    string
	UserAgent string
	// PageRetries is the number of HTTP attempts, including the first.
	PageRetries        int
	PageRequestTimeout time.Duration

	ChromeHeadless     bool
	ChromeWaitSelector string
	ChromeSettle       time.Duration
	ChromeExecPath     string
	ChromeUserDataDir  string

	ScrapeTimeout time.Duration
	Selectors     extract.Selectors

	Verbose bool
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() Config {
	return Config{
		StoreBackend:       DefaultStoreBackend,
		StorePath:          DefaultStoreDir,
		OutputDir:          ".",
		Encoding:           "utf-8-bom",
		ChromeHeadless:     true,
		PageRetries:        DefaultPageRetries,
		PageRequestTimeout: DefaultPageRequestTimeout,
		ScrapeTimeout:      host.DefaultScrapeTimeout,
		Selectors:          extract.DefaultSelectors(),
	}
}
