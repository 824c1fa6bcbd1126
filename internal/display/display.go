package display

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"

	"github.com/hyperifyio/contactharvest/internal/contact"
	"github.com/hyperifyio/contactharvest/internal/export"
	"github.com/hyperifyio/contactharvest/internal/host"
)

var (
	labelStyle   = lipgloss.NewStyle().Bold(true)
	indexStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("4"))
	extraStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("208"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "240", Dark: "245"})
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Bold(true)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
)

// Options control list rendering.
type Options struct {
	// Plain disables styling, e.g. when output is piped.
	Plain    bool
	Location *time.Location
}

// IsTTY reports whether w is connected to a terminal.
func IsTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func style(plain bool, s lipgloss.Style, text string) string {
	if plain {
		return text
	}
	return s.Render(text)
}

// Render writes the collection as a numbered list. Positions are 1-based,
// matching the delete command.
func Render(w io.Writer, records []contact.Contact, opts Options) error {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %d\n", style(opts.Plain, labelStyle, "总记录数:"), len(records))
	for i, c := range records {
		b.WriteString("\n")
		fmt.Fprintf(&b, "%s %s %s\n", style(opts.Plain, indexStyle, fmt.Sprintf("[%d]", i+1)), style(opts.Plain, labelStyle, "公司名称:"), c.DisplayCompany())
		fmt.Fprintf(&b, "    %s %s", style(opts.Plain, labelStyle, "联系电话:"), c.DisplayPhone())
		if c.ExtraPhones > 0 {
			b.WriteString(" " + style(opts.Plain, extraStyle, fmt.Sprintf("(还有 %d 个号码)", c.ExtraPhones)))
		}
		b.WriteString("\n")
		if c.Address != "" {
			fmt.Fprintf(&b, "    %s %s\n", style(opts.Plain, labelStyle, "地址:"), c.Address)
		}
		if c.Email != "" {
			fmt.Fprintf(&b, "    %s %s\n", style(opts.Plain, labelStyle, "邮箱:"), c.Email)
		}
		if c.RegCapital != "" {
			fmt.Fprintf(&b, "    %s %s\n", style(opts.Plain, labelStyle, "注册资本:"), c.RegCapital)
		}
		fmt.Fprintf(&b, "    %s\n", style(opts.Plain, mutedStyle, "采集时间: "+export.FormatTime(c.Timestamp, opts.Location)))
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// Console prints host notices to a terminal or log stream.
type Console struct {
	W     io.Writer
	Plain bool
}

func (c Console) Notify(n host.Notice) {
	w := c.W
	if w == nil {
		w = os.Stderr
	}
	msg := n.Message
	switch n.Level {
	case host.LevelSuccess:
		msg = style(c.Plain, successStyle, msg)
	case host.LevelError:
		msg = style(c.Plain, errorStyle, msg)
	}
	fmt.Fprintln(w, msg)
	if n.Description != "" {
		for _, line := range strings.Split(n.Description, "\n") {
			fmt.Fprintln(w, "  "+line)
		}
	}
}
