package page

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
)

// ErrNoActivePage is returned when no page has been selected for extraction.
var ErrNoActivePage = errors.New("无法获取当前标签页")

// Page is a rendered document ready for extraction.
type Page struct {
	URL  string
	HTML []byte
}

// Source produces the page an extraction pass runs against.
type Source interface {
	Fetch(ctx context.Context) (Page, error)
}

// File reads a page saved to disk, e.g. with the browser's "Save page as".
type File struct {
	Path string
}

func (f File) Fetch(ctx context.Context) (Page, error) {
	if strings.TrimSpace(f.Path) == "" {
		return Page{}, ErrNoActivePage
	}
	if err := ctx.Err(); err != nil {
		return Page{}, err
	}
	b, err := os.ReadFile(f.Path)
	if err != nil {
		return Page{}, fmt.Errorf("read page: %w", err)
	}
	return Page{URL: "file://" + f.Path, HTML: b}, nil
}

// None is the Source used when nothing was configured.
type None struct{}

func (None) Fetch(context.Context) (Page, error) { return Page{}, ErrNoActivePage }
