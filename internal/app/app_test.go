package app

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hyperifyio/contactharvest/internal/export"
	"github.com/hyperifyio/contactharvest/internal/host"
	"github.com/hyperifyio/contactharvest/internal/page"
)

const listingHTML = `<html><body>
<div class="index_search-single__yOhYZ">
  <div class="index_name__qEdWi"><span>苏州甲科技有限公司</span></div>
  <div class="index_contact-col__7AboU"><span>13912345678</span><span class="index_link-count-orange__pJSFY">+2</span></div>
</div>
<div class="index_search-single__yOhYZ">
  <div class="index_name__qEdWi"><span>乙公司</span></div>
  <div class="index_contact-col__7AboU"><span>0512-66778899</span></div>
</div>
</body></html>`

type noticeLog []host.Notice

func (l *noticeLog) Notify(n host.Notice) { *l = append(*l, n) }

func testConfig(t *testing.T) Config {
	t.Helper()
	dir := t.TempDir()
	cfg := DefaultConfig()
	cfg.StorePath = filepath.Join(dir, "state")
	cfg.OutputDir = filepath.Join(dir, "out")
	cfg.TimeZone = "UTC"
	return cfg
}

func TestApp_ScrapeListExport(t *testing.T) {
	for _, backend := range []string{"file", "sqlite"} {
		t.Run(backend, func(t *testing.T) {
			cfg := testConfig(t)
			cfg.StoreBackend = backend
			cfg.PageFile = filepath.Join(t.TempDir(), "listing.html")
			if err := os.WriteFile(cfg.PageFile, []byte(listingHTML), 0o600); err != nil {
				t.Fatal(err)
			}
			if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
				t.Fatal(err)
			}
			var notices noticeLog
			a, err := New(context.Background(), cfg, &notices)
			if err != nil {
				t.Fatalf("new: %v", err)
			}
			out, err := a.Scrape(context.Background())
			if err != nil {
				t.Fatalf("scrape: %v", err)
			}
			if out.Added != 1 || out.Total != 1 {
				t.Fatalf("outcome = %+v", out)
			}
			if len(notices) == 0 || notices[len(notices)-1].Level != host.LevelSuccess {
				t.Fatalf("notices = %+v", notices)
			}
			got := a.Host().Snapshot()
			if got[0].Company != "苏州甲科技有限公司" || got[0].ExtraPhones != 2 {
				t.Fatalf("record = %+v", got[0])
			}
			path, err := a.Export(export.FormatCSV)
			if err != nil {
				t.Fatalf("export: %v", err)
			}
			if filepath.Dir(path) != cfg.OutputDir {
				t.Fatalf("export path = %q", path)
			}
			a.Close()

			// A fresh app sees the persisted record.
			b, err := New(context.Background(), cfg, nil)
			if err != nil {
				t.Fatalf("reopen: %v", err)
			}
			defer b.Close()
			if b.Host().Len() != 1 {
				t.Fatalf("reloaded len = %d", b.Host().Len())
			}
		})
	}
}

func TestApp_NoPageConfigured(t *testing.T) {
	a, err := New(context.Background(), testConfig(t), nil)
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()
	if _, err := a.Scrape(context.Background()); !errors.Is(err, page.ErrNoActivePage) {
		t.Fatalf("err = %v, want ErrNoActivePage", err)
	}
}

func TestNew_RejectsInvalidConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.Encoding = "latin1"
	if _, err := New(context.Background(), cfg, nil); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestSourceFor(t *testing.T) {
	cases := []struct {
		name string
		cfg  Config
		want string
	}{
		{"none", Config{}, "page.None"},
		{"file inferred", Config{PageFile: "a.html", PageURL: "https://x"}, "page.File"},
		{"url inferred", Config{PageURL: "https://x"}, "*page.HTTP"},
		{"chrome", Config{Source: SourceChrome, PageURL: "https://x"}, "page.Chrome"},
		{"chrome without url", Config{Source: SourceChrome}, "page.None"},
		{"explicit url without url", Config{Source: SourceURL, PageFile: "a.html"}, "page.None"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var got string
			switch sourceFor(tc.cfg).(type) {
			case page.None:
				got = "page.None"
			case page.File:
				got = "page.File"
			case *page.HTTP:
				got = "*page.HTTP"
			case page.Chrome:
				got = "page.Chrome"
			}
			if got != tc.want {
				t.Fatalf("source = %s, want %s", got, tc.want)
			}
		})
	}
}

func TestSourceFor_HTTPRetries(t *testing.T) {
	cfg := DefaultConfig()
	cfg.PageURL = "https://example.com"
	h, ok := sourceFor(cfg).(*page.HTTP)
	if !ok {
		t.Fatalf("source = %T", sourceFor(cfg))
	}
	if h.MaxAttempts != DefaultPageRetries || h.PerRequestTimeout != DefaultPageRequestTimeout {
		t.Fatalf("attempts=%d requestTimeout=%v", h.MaxAttempts, h.PerRequestTimeout)
	}
}

func TestSourceFor_HTTPRetriesServerError(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(`<html><body></body></html>`))
	}))
	defer srv.Close()

	cfg := DefaultConfig()
	cfg.PageURL = srv.URL
	cfg.PageRequestTimeout = 2 * time.Second
	p, err := sourceFor(cfg).Fetch(context.Background())
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if hits.Load() != 2 || p.URL != srv.URL {
		t.Fatalf("hits=%d url=%q", hits.Load(), p.URL)
	}
}

func TestSourceFor_ChromeWaitsForItems(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Source = SourceChrome
	cfg.PageURL = "https://example.com"
	c, ok := sourceFor(cfg).(page.Chrome)
	if !ok || c.WaitSelector != cfg.Selectors.Item || !c.Headless {
		t.Fatalf("chrome source = %+v", c)
	}
}

func TestStoreLocation(t *testing.T) {
	if got := storeLocation(Config{StoreBackend: "sqlite", StorePath: "state"}); got != filepath.Join("state", "contacts.db") {
		t.Fatalf("sqlite dir: %q", got)
	}
	if got := storeLocation(Config{StoreBackend: "sqlite", StorePath: "x.sqlite"}); got != "x.sqlite" {
		t.Fatalf("sqlite file: %q", got)
	}
	if got := storeLocation(Config{StoreBackend: "file", StorePath: "state"}); got != "state" {
		t.Fatalf("file: %q", got)
	}
}
