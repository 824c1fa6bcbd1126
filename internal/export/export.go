package export

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hyperifyio/contactharvest/internal/contact"
)

// ErrEmpty is returned when there is nothing to export.
var ErrEmpty = errors.New("没有可导出的数据")

// FilePrefix is the base name of every exported file.
const FilePrefix = "联系人数据"

// timeLayout mirrors the zh-CN locale date-time rendering, e.g. 2024/5/1 08:30:00.
const timeLayout = "2006/1/2 15:04:05"

// Header is the column order shared by the tabular formats.
var Header = []string{"公司名称", "联系电话", "额外电话数量", "地址", "邮箱", "注册资本", "采集时间"}

// Format names an export serializer.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatText Format = "txt"
	FormatXLSX Format = "xlsx"
	FormatPDF  Format = "pdf"
)

// ParseFormat accepts a format name case-insensitively; "text" is an alias of txt.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "csv":
		return FormatCSV, nil
	case "txt", "text":
		return FormatText, nil
	case "xlsx", "excel":
		return FormatXLSX, nil
	case "pdf":
		return FormatPDF, nil
	}
	return "", fmt.Errorf("unknown export format %q", s)
}

// Options tune rendering. The zero value renders local time as UTF-8 with BOM.
type Options struct {
	Location *time.Location
	Encoding Encoding
	// FontPath points to a TrueType font with CJK glyphs; PDF only.
	FontPath string
}

func (o Options) formatTime(t time.Time) string {
	return FormatTime(t, o.Location)
}

// FormatTime renders t the way the exports do; a nil loc means local time.
func FormatTime(t time.Time, loc *time.Location) string {
	if t.IsZero() {
		return ""
	}
	if loc == nil {
		loc = time.Local
	}
	return t.In(loc).Format(timeLayout)
}

// Render dispatches to the serializer for f.
func Render(f Format, records []contact.Contact, opts Options) ([]byte, error) {
	switch f {
	case FormatCSV:
		return CSV(records, opts)
	case FormatText:
		return Text(records, opts)
	case FormatXLSX:
		return XLSX(records, opts)
	case FormatPDF:
		return PDF(records, opts)
	}
	return nil, fmt.Errorf("unknown export format %q", f)
}

// FileName returns the download name for format f on the local date of now,
// e.g. 联系人数据_2024-05-01.csv.
func FileName(f Format, now time.Time) string {
	return FilePrefix + "_" + now.Format("2006-01-02") + "." + string(f)
}
