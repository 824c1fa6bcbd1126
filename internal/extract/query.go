package extract

import (
	"fmt"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
)

// Query locates listing items in a document tree and the field sub-nodes of
// each item. Implementations can swap matching strategies without changing
// the extractor. Absent sub-nodes are reported as nil.
type Query interface {
	Items(root *html.Node) []*html.Node
	Fields(item *html.Node) Fields
}

// Fields holds the sub-nodes of one listing item. Any of them may be nil.
type Fields struct {
	Company    *html.Node
	Phone      *html.Node
	ExtraCount *html.Node
	Address    *html.Node
	Email      *html.Node
	RegCapital *html.Node
}

// Selectors are CSS selectors for a listing page. Item and Company are
// relative to the document and the item; Phone and ExtraCount are relative
// to the Contact column.
type Selectors struct {
	Item       string `yaml:"item" json:"item"`
	Company    string `yaml:"company" json:"company"`
	Contact    string `yaml:"contact" json:"contact"`
	Phone      string `yaml:"phone" json:"phone"`
	ExtraCount string `yaml:"extraCount" json:"extraCount"`
	Address    string `yaml:"address" json:"address"`
	Email      string `yaml:"email" json:"email"`
	RegCapital string `yaml:"regCapital" json:"regCapital"`
}

// DefaultSelectors match the enterprise search result list the tool was
// built for.
func DefaultSelectors() Selectors {
	return Selectors{
		Item:       ".index_search-single__yOhYZ",
		Company:    ".index_name__qEdWi span",
		Contact:    ".index_contact-col__7AboU",
		Phone:      "span:not(.index_link-count-orange__pJSFY):not(.index_label__XvMCM)",
		ExtraCount: ".index_link-count-orange__pJSFY",
		Address:    ".index_address__mHjQD .index_value__Pl0Nh",
		Email:      `.index_contact-col__7AboU a[href^="mailto:"]`,
		RegCapital: `.index_info-col__UVcZb .index_value__Pl0Nh[title*="万人民币"]`,
	}
}

// WithDefaults fills empty selectors from DefaultSelectors.
func (s Selectors) WithDefaults() Selectors {
	d := DefaultSelectors()
	if s.Item == "" {
		s.Item = d.Item
	}
	if s.Company == "" {
		s.Company = d.Company
	}
	if s.Contact == "" {
		s.Contact = d.Contact
	}
	if s.Phone == "" {
		s.Phone = d.Phone
	}
	if s.ExtraCount == "" {
		s.ExtraCount = d.ExtraCount
	}
	if s.Address == "" {
		s.Address = d.Address
	}
	if s.Email == "" {
		s.Email = d.Email
	}
	if s.RegCapital == "" {
		s.RegCapital = d.RegCapital
	}
	return s
}

// SelectorQuery is a Query backed by compiled CSS selectors.
type SelectorQuery struct {
	item, company, contact, phone, extra, address, email, regCapital cascadia.Selector
}

// Compile validates every selector and returns a ready query. Empty
// selectors fall back to the defaults.
func (s Selectors) Compile() (*SelectorQuery, error) {
	s = s.WithDefaults()
	q := &SelectorQuery{}
	for _, f := range []struct {
		name string
		src  string
		dst  *cascadia.Selector
	}{
		{"item", s.Item, &q.item},
		{"company", s.Company, &q.company},
		{"contact", s.Contact, &q.contact},
		{"phone", s.Phone, &q.phone},
		{"extraCount", s.ExtraCount, &q.extra},
		{"address", s.Address, &q.address},
		{"email", s.Email, &q.email},
		{"regCapital", s.RegCapital, &q.regCapital},
	} {
		sel, err := cascadia.Compile(f.src)
		if err != nil {
			return nil, fmt.Errorf("selector %s %q: %w", f.name, f.src, err)
		}
		*f.dst = sel
	}
	return q, nil
}

// MustDefaultQuery returns the compiled default query.
func MustDefaultQuery() *SelectorQuery {
	q, err := DefaultSelectors().Compile()
	if err != nil {
		panic(err)
	}
	return q
}

func (q *SelectorQuery) Items(root *html.Node) []*html.Node {
	if root == nil {
		return nil
	}
	return goquery.NewDocumentFromNode(root).FindMatcher(q.item).Nodes
}

func (q *SelectorQuery) Fields(item *html.Node) Fields {
	s := goquery.NewDocumentFromNode(item).Selection
	f := Fields{
		Company:    first(s, q.company),
		Address:    first(s, q.address),
		Email:      first(s, q.email),
		RegCapital: first(s, q.regCapital),
	}
	contact := s.FindMatcher(q.contact).First()
	if contact.Length() > 0 {
		f.Phone = first(contact, q.phone)
		f.ExtraCount = first(contact, q.extra)
	}
	return f
}

func first(s *goquery.Selection, m goquery.Matcher) *html.Node {
	found := s.FindMatcher(m)
	if found.Length() == 0 {
		return nil
	}
	return found.Nodes[0]
}
