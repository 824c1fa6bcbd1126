package host

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/contactharvest/internal/contact"
	"github.com/hyperifyio/contactharvest/internal/export"
	"github.com/hyperifyio/contactharvest/internal/extract"
	"github.com/hyperifyio/contactharvest/internal/merge"
	"github.com/hyperifyio/contactharvest/internal/page"
	"github.com/hyperifyio/contactharvest/internal/store"
)

// DefaultScrapeTimeout bounds one extraction pass when none is configured.
const DefaultScrapeTimeout = 60 * time.Second

var (
	// ErrScrapeInProgress is returned when a pass is requested while
	// another one is outstanding.
	ErrScrapeInProgress = errors.New("采集正在进行中")
	// ErrExtractionFailed wraps the error reported by an extraction pass.
	ErrExtractionFailed = errors.New("采集失败")
	// ErrNoData is returned when a message arrives without records.
	ErrNoData = errors.New("未找到任何联系人数据")
	// ErrEmpty is returned when clearing an already empty collection.
	ErrEmpty = errors.New("没有需要清除的数据")
	// ErrCancelled is returned when the user declines a confirmation.
	ErrCancelled = errors.New("操作已取消")
	// ErrUnknownAction is returned for messages this host does not handle.
	ErrUnknownAction = errors.New("unknown message action")
)

// Options configure a Controller.
type Options struct {
	Store     store.KV
	Extractor *extract.Extractor
	Notifier  Notifier
	// ScrapeTimeout bounds page retrieval, extraction and message receipt.
	ScrapeTimeout time.Duration
	// Now is used for export file names. Defaults to time.Now.
	Now func() time.Time
}

// Controller owns the contact collection. It is the only writer: merges,
// deletes and clears run one at a time and are persisted before the lock
// is released. Exports read a snapshot under a shared lock.
type Controller struct {
	store     store.KV
	extractor *extract.Extractor
	notifier  Notifier
	timeout   time.Duration
	now       func() time.Time

	mu  sync.RWMutex
	col *contact.Collection

	scraping atomic.Bool
}

// Outcome summarizes one completed extraction pass.
type Outcome struct {
	URL     string
	Summary extract.Summary
	Added   int
	Total   int
}

// New hydrates a controller from the store.
func New(ctx context.Context, opts Options) (*Controller, error) {
	if opts.Store == nil {
		return nil, errors.New("host: store is required")
	}
	records, err := store.LoadContacts(ctx, opts.Store)
	if err != nil {
		return nil, err
	}
	c := &Controller{
		store:     opts.Store,
		extractor: opts.Extractor,
		notifier:  opts.Notifier,
		timeout:   opts.ScrapeTimeout,
		now:       opts.Now,
		col:       contact.NewCollection(records),
	}
	if c.extractor == nil {
		c.extractor = extract.New(nil)
	}
	if c.notifier == nil {
		c.notifier = discard{}
	}
	if c.timeout <= 0 {
		c.timeout = DefaultScrapeTimeout
	}
	if c.now == nil {
		c.now = time.Now
	}
	if dropped := len(records) - c.col.Len(); dropped > 0 {
		log.Warn().Int("dropped", dropped).Int("records", c.col.Len()).Msg("stored collection had duplicate keys; they will be removed on next save")
	}
	log.Debug().Int("records", c.col.Len()).Msg("collection loaded")
	return c, nil
}

// Len returns the number of stored records.
func (c *Controller) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.col.Len()
}

// Snapshot returns a copy of the collection in insertion order.
func (c *Controller) Snapshot() []contact.Contact {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.col.Records()
}

// Scrape runs one extraction pass against the page src yields and merges
// the result. Overlapping passes are refused.
func (c *Controller) Scrape(ctx context.Context, src page.Source) (Outcome, error) {
	if !c.scraping.CompareAndSwap(false, true) {
		return Outcome{}, ErrScrapeInProgress
	}
	// On timeout the extraction goroutine may outlive this call; it then
	// owns the guard and releases it when it finishes.
	handedOff := false
	defer func() {
		if !handedOff {
			c.scraping.Store(false)
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if src == nil {
		src = page.None{}
	}
	pg, err := src.Fetch(ctx)
	if err != nil {
		c.fail("启动采集失败", err)
		return Outcome{}, fmt.Errorf("fetch page: %w", err)
	}
	root, err := extract.ParseHTML(pg.HTML)
	if err != nil {
		c.fail("启动采集失败", err)
		return Outcome{}, err
	}

	msgs := make(chan extract.Message, 1)
	done := make(chan extract.Summary, 1)
	go func() {
		done <- c.extractor.Run(ctx, root, msgs)
	}()

	out := Outcome{URL: pg.URL}
	select {
	case out.Summary = <-done:
	case <-ctx.Done():
		handedOff = true
		go func() {
			<-done
			c.scraping.Store(false)
		}()
		c.fail("采集超时", ctx.Err())
		return out, fmt.Errorf("scrape: %w", ctx.Err())
	}
	if !out.Summary.Success {
		err := fmt.Errorf("%w: %s", ErrExtractionFailed, out.Summary.Error)
		c.fail("采集失败", errors.New(out.Summary.Error))
		return out, err
	}

	var msg extract.Message
	select {
	case msg = <-msgs:
	case <-ctx.Done():
		c.fail("采集超时", ctx.Err())
		return out, fmt.Errorf("scrape: %w", ctx.Err())
	}
	out.Added, out.Total, err = c.HandleMessage(ctx, msg)
	return out, err
}

// HandleMessage applies one extraction message to the collection.
func (c *Controller) HandleMessage(ctx context.Context, msg extract.Message) (added, total int, err error) {
	if msg.Action != extract.ActionUpdateContacts {
		return 0, c.Len(), fmt.Errorf("%w: %q", ErrUnknownAction, msg.Action)
	}
	if len(msg.Data) == 0 {
		c.notifier.Notify(Notice{Level: LevelInfo, Message: ErrNoData.Error()})
		return 0, c.Len(), ErrNoData
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	prev := c.col.Records()
	added = merge.Into(c.col, msg.Data)
	if err := c.persistLocked(ctx, prev); err != nil {
		c.fail("保存数据失败", err)
		return 0, c.col.Len(), err
	}
	total = c.col.Len()
	log.Info().Int("added", added).Int("total", total).Msg("merged batch")
	c.notifier.Notify(Notice{
		Level:       LevelSuccess,
		Message:     "采集完成！",
		Description: fmt.Sprintf("新增数据: %d 条\n总计数据: %d 条", added, total),
	})
	return added, total, nil
}

// Delete removes the record at position i.
func (c *Controller) Delete(ctx context.Context, i int) (contact.Contact, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	prev := c.col.Records()
	removed, err := c.col.Delete(i)
	if err != nil {
		c.fail("删除失败", err)
		return contact.Contact{}, err
	}
	if err := c.persistLocked(ctx, prev); err != nil {
		c.fail("保存数据失败", err)
		return contact.Contact{}, err
	}
	log.Info().Int("index", i).Str("phone", removed.Phone).Msg("deleted record")
	return removed, nil
}

// Clear empties the collection after confirm approves. A nil confirm
// approves unconditionally.
func (c *Controller) Clear(ctx context.Context, confirm Confirmer) error {
	n := c.Len()
	if n == 0 {
		c.notifier.Notify(Notice{Level: LevelInfo, Message: ErrEmpty.Error()})
		return ErrEmpty
	}
	prompt := fmt.Sprintf("确定要清空所有数据吗？\n当前共有 %d 条数据\n此操作不可恢复。", n)
	if confirm != nil && !confirm.Confirm(prompt) {
		return ErrCancelled
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	// The collection may have changed while the user was answering.
	if c.col.Len() == 0 {
		c.notifier.Notify(Notice{Level: LevelInfo, Message: ErrEmpty.Error()})
		return ErrEmpty
	}
	prev := c.col.Records()
	c.col.Clear()
	if err := c.persistLocked(ctx, prev); err != nil {
		c.fail("清空数据失败", err)
		return err
	}
	log.Info().Int("removed", len(prev)).Msg("cleared collection")
	c.notifier.Notify(Notice{Level: LevelSuccess, Message: "所有数据已清空"})
	return nil
}

// Export renders the current collection in format f and returns the
// payload with its suggested file name.
func (c *Controller) Export(f export.Format, opts export.Options) ([]byte, string, error) {
	c.mu.RLock()
	records := c.col.Records()
	c.mu.RUnlock()

	b, err := export.Render(f, records, opts)
	if err != nil {
		if errors.Is(err, export.ErrEmpty) {
			c.notifier.Notify(Notice{Level: LevelInfo, Message: err.Error()})
		} else {
			c.fail("导出失败", err)
		}
		return nil, "", err
	}
	now := c.now()
	if opts.Location != nil {
		now = now.In(opts.Location)
	}
	return b, export.FileName(f, now), nil
}

// ExportFile writes the export into dir and returns the written path.
func (c *Controller) ExportFile(f export.Format, dir string, opts export.Options) (string, error) {
	b, name, err := c.Export(f, opts)
	if err != nil {
		return "", err
	}
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		c.fail("导出失败", err)
		return "", err
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, b, 0o644); err != nil {
		c.fail("导出失败", err)
		return "", fmt.Errorf("write export: %w", err)
	}
	log.Info().Str("out", path).Int("bytes", len(b)).Msg("wrote export")
	c.notifier.Notify(Notice{Level: LevelSuccess, Message: "数据导出成功！", Description: path})
	return path, nil
}

// persistLocked saves the collection; on failure the in-memory state is
// rolled back to prev so memory and store stay in step. c.mu must be held.
func (c *Controller) persistLocked(ctx context.Context, prev []contact.Contact) error {
	if err := store.SaveContacts(ctx, c.store, c.col.Records()); err != nil {
		c.col = contact.NewCollection(prev)
		return err
	}
	return nil
}

func (c *Controller) fail(msg string, err error) {
	log.Error().Err(err).Msg(msg)
	c.notifier.Notify(Notice{Level: LevelError, Message: msg, Description: err.Error()})
}
