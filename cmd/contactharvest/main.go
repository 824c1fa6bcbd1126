package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/alecthomas/kong"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/contactharvest/internal/app"
	"github.com/hyperifyio/contactharvest/internal/contact"
	"github.com/hyperifyio/contactharvest/internal/display"
	"github.com/hyperifyio/contactharvest/internal/export"
	"github.com/hyperifyio/contactharvest/internal/host"
)

const (
	exitSuccess = 0
	exitFailure = 1
	// exitNothing means the command ran but found nothing to act on.
	exitNothing = 2
)

// Globals are flags shared by every command. Flags left empty fall back to
// env, then the config file, then defaults.
type Globals struct {
	Config    string   `help:"Path to a YAML or JSON config file." type:"path"`
	EnvFile   []string `name:"env-file" help:"Dotenv files to load before reading CONTACTS_* variables." default:".env"`
	Verbose   bool     `short:"v" help:"Verbose logging."`
	Store     string   `help:"Store backend: file or sqlite."`
	StorePath string   `name:"store-path" help:"Store directory (file) or database path (sqlite)."`
	TZ        string   `name:"tz" help:"Time zone for displayed and exported times, e.g. Asia/Shanghai."`
}

// CLI is the top-level command structure.
type CLI struct {
	Globals

	Version kong.VersionFlag `help:"Show version." short:"V"`
	Scrape  ScrapeCmd        `cmd:"" help:"Extract contacts from a listing page and merge them into the store."`
	List    ListCmd          `cmd:"" help:"Show stored contacts."`
	Delete  DeleteCmd        `cmd:"" help:"Delete one contact by its list position."`
	Clear   ClearCmd         `cmd:"" help:"Delete all stored contacts."`
	Export  ExportCmd        `cmd:"" help:"Export stored contacts to a file."`
}

// streams carries the terminal handles so commands can be driven by tests.
type streams struct {
	in          io.Reader
	out         io.Writer
	err         io.Writer
	interactive bool
}

// config resolves the layered configuration: defaults, file, env, flags.
func (g *Globals) config() (app.Config, error) {
	if err := app.LoadEnvFiles(g.EnvFile...); err != nil {
		return app.Config{}, fmt.Errorf("load env: %w", err)
	}
	cfg := app.DefaultConfig()
	if path := strings.TrimSpace(g.Config); path != "" {
		fc, err := app.LoadConfigFile(path)
		if err != nil {
			return app.Config{}, fmt.Errorf("config file: %w", err)
		}
		app.ApplyFileConfig(&cfg, fc)
	}
	app.ApplyEnvOverrides(&cfg)
	if g.Store != "" {
		cfg.StoreBackend = g.Store
	}
	if g.StorePath != "" {
		cfg.StorePath = g.StorePath
	}
	if g.TZ != "" {
		cfg.TimeZone = g.TZ
	}
	if g.Verbose {
		cfg.Verbose = true
	}
	return cfg, nil
}

func (g *Globals) open(ctx context.Context, cfg app.Config, s *streams) (*app.App, error) {
	if cfg.Verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	return app.New(ctx, cfg, display.Console{W: s.err, Plain: !s.interactive})
}

// ScrapeCmd runs one extraction pass.
type ScrapeCmd struct {
	File     string        `help:"Read the listing from a saved HTML file." type:"path"`
	URL      string        `name:"url" help:"Fetch the listing from a URL."`
	Chrome   bool          `help:"Render --url in Chrome before extracting."`
	Headful  bool          `help:"Show the Chrome window, e.g. to log in first."`
	Cookie   string        `help:"Cookie header sent with --url."`
	Timeout  time.Duration `help:"Bound for one pass (e.g. 60s)."`
	Selector []string      `help:"Selector override as field=css, e.g. item=.result." placeholder:"FIELD=CSS"`
}

func (c *ScrapeCmd) Run(g *Globals, s *streams) error {
	cfg, err := g.config()
	if err != nil {
		return err
	}
	if c.File != "" {
		cfg.Source, cfg.PageFile = app.SourceFile, c.File
	}
	if c.URL != "" {
		cfg.PageURL = c.URL
		if c.File == "" {
			cfg.Source = app.SourceURL
		}
	}
	if c.Chrome {
		cfg.Source = app.SourceChrome
	}
	if c.Headful {
		cfg.ChromeHeadless = false
	}
	if c.Cookie != "" {
		cfg.Cookie = c.Cookie
	}
	if c.Timeout > 0 {
		cfg.ScrapeTimeout = c.Timeout
	}
	for _, kv := range c.Selector {
		if err := setSelector(&cfg, kv); err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	a, err := g.open(ctx, cfg, s)
	if err != nil {
		return err
	}
	defer a.Close()

	out, err := a.Scrape(ctx)
	if err != nil {
		return err
	}
	log.Debug().Str("url", out.URL).Int("valid", out.Summary.Count).Int("added", out.Added).Msg("scrape done")
	return nil
}

func setSelector(cfg *app.Config, kv string) error {
	name, css, ok := strings.Cut(kv, "=")
	if !ok || strings.TrimSpace(css) == "" {
		return fmt.Errorf("selector %q: want field=css", kv)
	}
	s := &cfg.Selectors
	fields := map[string]*string{
		"item":       &s.Item,
		"company":    &s.Company,
		"contact":    &s.Contact,
		"phone":      &s.Phone,
		"extracount": &s.ExtraCount,
		"address":    &s.Address,
		"email":      &s.Email,
		"regcapital": &s.RegCapital,
	}
	dst, ok := fields[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return fmt.Errorf("selector %q: unknown field %q", kv, name)
	}
	*dst = strings.TrimSpace(css)
	return nil
}

// ListCmd prints the stored collection.
type ListCmd struct {
	Plain bool `help:"Disable colors."`
}

func (c *ListCmd) Run(g *Globals, s *streams) error {
	cfg, err := g.config()
	if err != nil {
		return err
	}
	a, err := g.open(context.Background(), cfg, s)
	if err != nil {
		return err
	}
	defer a.Close()
	return display.Render(s.out, a.Host().Snapshot(), display.Options{
		Plain:    c.Plain || !s.interactive,
		Location: a.ExportOptions().Location,
	})
}

// DeleteCmd removes the record at a 1-based position as shown by list.
type DeleteCmd struct {
	Position int `arg:"" help:"Position as shown by list (1-based)."`
}

func (c *DeleteCmd) Run(g *Globals, s *streams) error {
	cfg, err := g.config()
	if err != nil {
		return err
	}
	ctx := context.Background()
	a, err := g.open(ctx, cfg, s)
	if err != nil {
		return err
	}
	defer a.Close()
	removed, err := a.Host().Delete(ctx, c.Position-1)
	if err != nil {
		return fmt.Errorf("delete %d: %w", c.Position, err)
	}
	fmt.Fprintf(s.out, "已删除: %s %s\n", removed.DisplayCompany(), removed.DisplayPhone())
	return nil
}

// ClearCmd empties the collection after confirmation.
type ClearCmd struct {
	Yes bool `short:"y" help:"Do not ask for confirmation."`
}

var errNeedsConfirmation = errors.New("refusing to clear without confirmation; pass --yes")

func (c *ClearCmd) Run(g *Globals, s *streams) error {
	cfg, err := g.config()
	if err != nil {
		return err
	}
	ctx := context.Background()
	a, err := g.open(ctx, cfg, s)
	if err != nil {
		return err
	}
	defer a.Close()

	var confirm host.Confirmer
	switch {
	case c.Yes:
		confirm = host.ConfirmFunc(func(string) bool { return true })
	case s.interactive:
		confirm = promptConfirm(s.in, s.err)
	default:
		if a.Host().Len() == 0 {
			return a.Host().Clear(ctx, nil)
		}
		return errNeedsConfirmation
	}
	return a.Host().Clear(ctx, confirm)
}

// promptConfirm asks on w and reads a y/N answer from r.
func promptConfirm(r io.Reader, w io.Writer) host.Confirmer {
	return host.ConfirmFunc(func(prompt string) bool {
		fmt.Fprintf(w, "%s [y/N] ", prompt)
		line, err := bufio.NewReader(r).ReadString('\n')
		if err != nil && line == "" {
			return false
		}
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "y", "yes", "是":
			return true
		}
		return false
	})
}

// ExportCmd writes the collection in one of the supported formats.
type ExportCmd struct {
	Format   string `arg:"" optional:"" default:"csv" enum:"csv,txt,text,xlsx,excel,pdf" help:"csv, txt, xlsx or pdf."`
	Out      string `short:"o" help:"Output directory." type:"path"`
	Encoding string `help:"Text encoding for csv/txt: utf-8-bom, utf-8 or gb18030."`
	Font     string `help:"TrueType font with CJK glyphs; required for pdf." type:"path"`
	Stdout   bool   `help:"Write to stdout instead of a file."`
}

func (c *ExportCmd) Run(g *Globals, s *streams) error {
	f, err := export.ParseFormat(c.Format)
	if err != nil {
		return err
	}
	cfg, err := g.config()
	if err != nil {
		return err
	}
	if c.Out != "" {
		cfg.OutputDir = c.Out
	}
	if c.Encoding != "" {
		cfg.Encoding = c.Encoding
	}
	if c.Font != "" {
		cfg.FontPath = c.Font
	}
	a, err := g.open(context.Background(), cfg, s)
	if err != nil {
		return err
	}
	defer a.Close()

	if c.Stdout {
		b, _, err := a.Host().Export(f, a.ExportOptions())
		if err != nil {
			return err
		}
		_, err = s.out.Write(b)
		return err
	}
	path, err := a.Export(f)
	if err != nil {
		return err
	}
	fmt.Fprintln(s.out, path)
	return nil
}

// exitCode maps an error to the process exit code. Errors that mean there
// was nothing to act on get their own code so scripts can tell them apart.
func exitCode(err error) int {
	if err == nil || errors.Is(err, host.ErrCancelled) {
		return exitSuccess
	}
	switch {
	case errors.Is(err, host.ErrExtractionFailed),
		errors.Is(err, host.ErrNoData),
		errors.Is(err, host.ErrEmpty),
		errors.Is(err, export.ErrEmpty),
		errors.Is(err, contact.ErrIndexOutOfRange):
		return exitNothing
	}
	return exitFailure
}

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("contactharvest"),
		kong.Description("Collect company contacts from listing pages."),
		kong.UsageOnError(),
		kong.Vars{"version": app.BuildVersion + " " + app.BuildCommit + " " + app.BuildDate},
	)
	s := &streams{
		in:          os.Stdin,
		out:         os.Stdout,
		err:         os.Stderr,
		interactive: display.IsTTY(os.Stdout) && display.IsTTY(os.Stdin),
	}
	if err := ctx.Run(&cli.Globals, s); err != nil {
		if !errors.Is(err, host.ErrCancelled) {
			fmt.Fprintf(os.Stderr, "error: %s\n", err)
		}
		os.Exit(exitCode(err))
	}
}
