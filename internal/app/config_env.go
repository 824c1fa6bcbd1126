package app

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// ApplyEnvOverrides overrides cfg fields with CONTACTS_* environment
// variables that are set. Env sits above the config file and below flags.
func ApplyEnvOverrides(cfg *Config) {
	if cfg == nil {
		return
	}

	setString(&cfg.StoreBackend, os.Getenv("CONTACTS_STORE"))
	setString(&cfg.StorePath, os.Getenv("CONTACTS_STORE_PATH"))
	setString(&cfg.OutputDir, os.Getenv("CONTACTS_OUTPUT_DIR"))
	setString(&cfg.Encoding, os.Getenv("CONTACTS_ENCODING"))
	setString(&cfg.TimeZone, os.Getenv("CONTACTS_TZ"))
	setString(&cfg.FontPath, os.Getenv("CONTACTS_FONT"))
	setString(&cfg.Source, os.Getenv("CONTACTS_SOURCE"))
	setString(&cfg.PageFile, os.Getenv("CONTACTS_PAGE_FILE"))
	setString(&cfg.PageURL, os.Getenv("CONTACTS_PAGE_URL"))
	setString(&cfg.Cookie, os.Getenv("CONTACTS_COOKIE"))
	setString(&cfg.UserAgent, os.Getenv("CONTACTS_USER_AGENT"))
	setString(&cfg.ChromeExecPath, os.Getenv("CONTACTS_CHROME_PATH"))
	setString(&cfg.ChromeUserDataDir, os.Getenv("CONTACTS_CHROME_PROFILE"))

	if s := strings.TrimSpace(os.Getenv("CONTACTS_SCRAPE_TIMEOUT")); s != "" {
		if d, err := time.ParseDuration(s); err == nil {
			cfg.ScrapeTimeout = d
		} else {
			log.Warn().Str("value", s).Msg("ignoring invalid CONTACTS_SCRAPE_TIMEOUT")
		}
	}

	if s := strings.TrimSpace(os.Getenv("CONTACTS_PAGE_RETRIES")); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			cfg.PageRetries = n
		} else {
			log.Warn().Str("value", s).Msg("ignoring invalid CONTACTS_PAGE_RETRIES")
		}
	}
	if s := strings.TrimSpace(os.Getenv("CONTACTS_PAGE_REQUEST_TIMEOUT")); s != "" {
		if d, err := time.ParseDuration(s); err == nil {
			cfg.PageRequestTimeout = d
		} else {
			log.Warn().Str("value", s).Msg("ignoring invalid CONTACTS_PAGE_REQUEST_TIMEOUT")
		}
	}

	setBool := func(dst *bool, envKey string) {
		if s := strings.ToLower(strings.TrimSpace(os.Getenv(envKey))); s != "" {
			switch s {
			case "1", "true", "yes", "on":
				*dst = true
			case "0", "false", "no", "off":
				*dst = false
			}
		}
	}
	setBool(&cfg.StrictPerms, "CONTACTS_STRICT_PERMS")
	setBool(&cfg.ChromeHeadless, "CONTACTS_CHROME_HEADLESS")
	setBool(&cfg.Verbose, "CONTACTS_VERBOSE")
}
