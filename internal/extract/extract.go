package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/net/html"

	"github.com/hyperifyio/contactharvest/internal/contact"
)

// ActionUpdateContacts tags the message carrying a batch to the host.
const ActionUpdateContacts = "updateContacts"

var (
	// ErrNoItems means no listing item matched on the page.
	ErrNoItems = errors.New("未找到任何列表项")
	// ErrNoValidPhones means items were found but none carried a mobile number.
	ErrNoValidPhones = errors.New("未找到任何有效的手机号码数据")
)

// Batch is the set of admitted records produced by one extraction pass.
type Batch []contact.Contact

// Message is the one-shot handoff from an extraction pass to the host.
type Message struct {
	Action string            `json:"action"`
	Data   []contact.Contact `json:"data"`
}

// Summary is what an extraction pass reports to whoever triggered it.
type Summary struct {
	Success bool   `json:"success"`
	Count   int    `json:"count,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Extractor pulls contact records out of a listing page.
type Extractor struct {
	Query Query
	// Now stamps admitted records. Defaults to time.Now.
	Now func() time.Time
}

// New returns an Extractor using q, or the default selector query when q is nil.
func New(q Query) *Extractor {
	if q == nil {
		q = MustDefaultQuery()
	}
	return &Extractor{Query: q, Now: time.Now}
}

// ParseHTML parses a rendered page into a node tree.
func ParseHTML(input []byte) (*html.Node, error) {
	return ParseHTMLReader(bytes.NewReader(input))
}

func ParseHTMLReader(r io.Reader) (*html.Node, error) {
	node, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return node, nil
}

// Extract walks every listing item under root and returns the admitted
// records. A failing item is logged and skipped; the batch only fails when
// nothing was admitted at all.
func (e *Extractor) Extract(root *html.Node) (Batch, error) {
	return e.extract(context.Background(), root)
}

// extract stops between items once ctx is done.
func (e *Extractor) extract(ctx context.Context, root *html.Node) (Batch, error) {
	q := e.Query
	if q == nil {
		q = MustDefaultQuery()
	}
	now := e.Now
	if now == nil {
		now = time.Now
	}

	items := q.Items(root)
	if len(items) == 0 {
		return nil, ErrNoItems
	}
	out := make(Batch, 0, len(items))
	for i, item := range items {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("extract: %w", err)
		}
		c, err := e.candidate(q, item)
		if err != nil {
			log.Warn().Err(err).Int("item", i).Msg("skip listing item")
			continue
		}
		if !Admissible(c.Phone) {
			log.Debug().Int("item", i).Str("company", c.Company).Msg("no mobile number")
			continue
		}
		c.Timestamp = now().UTC()
		out = append(out, c)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%d items: %w", len(items), ErrNoValidPhones)
	}
	log.Debug().Int("items", len(items)).Int("admitted", len(out)).Msg("extracted")
	return out, nil
}

func (e *Extractor) candidate(q Query, item *html.Node) (c contact.Contact, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("extract item: %v", r)
		}
	}()
	f := q.Fields(item)
	c = contact.Contact{
		Company:     nodeText(f.Company),
		Phone:       FindPhone(nodeText(f.Phone)),
		ExtraPhones: parseCount(nodeText(f.ExtraCount)),
		Address:     nodeText(f.Address),
		Email:       nodeText(f.Email),
		RegCapital:  nodeText(f.RegCapital),
	}
	return c, nil
}

// Run performs one extraction pass. On success the batch is sent once on
// out and the summary carries the count; on failure nothing is sent.
func (e *Extractor) Run(ctx context.Context, root *html.Node, out chan<- Message) Summary {
	batch, err := e.extract(ctx, root)
	if err != nil {
		log.Error().Err(err).Msg("extraction failed")
		return Summary{Success: false, Error: err.Error()}
	}
	select {
	case out <- Message{Action: ActionUpdateContacts, Data: batch}:
	case <-ctx.Done():
		return Summary{Success: false, Error: ctx.Err().Error()}
	}
	return Summary{Success: true, Count: len(batch)}
}
