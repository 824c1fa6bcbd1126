package export

import (
	"bytes"
	"encoding/csv"
	"errors"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/simplifiedchinese"

	"github.com/hyperifyio/contactharvest/internal/contact"
)

var ts = time.Date(2024, 5, 1, 8, 30, 5, 0, time.UTC)

func sample() []contact.Contact {
	return []contact.Contact{
		{Company: "甲公司, 苏州", Phone: "13912345678", ExtraPhones: 2, Address: "工业园区 1 号", Email: "a@example.com", RegCapital: "500万人民币", Timestamp: ts},
		{Company: `乙"引号"公司`, Phone: "13800000000", Timestamp: ts},
		{Phone: "15000000000", Timestamp: ts},
	}
}

func TestCSV_HeaderAndBOM(t *testing.T) {
	out, err := CSV(sample(), Options{Location: time.UTC})
	if err != nil {
		t.Fatalf("csv: %v", err)
	}
	if !bytes.HasPrefix(out, []byte("\ufeff")) {
		t.Fatalf("missing BOM")
	}
	lines := strings.Split(strings.TrimPrefix(string(out), "\ufeff"), "\n")
	if lines[0] != "公司名称,联系电话,额外电话数量,地址,邮箱,注册资本,采集时间" {
		t.Fatalf("header = %q", lines[0])
	}
	if len(lines) != 4 {
		t.Fatalf("rows = %d, want 4", len(lines))
	}
	want := `"甲公司, 苏州",13912345678,2,"工业园区 1 号",a@example.com,"500万人民币",2024/5/1 08:30:05`
	if lines[1] != want {
		t.Fatalf("row 1 = %q\nwant    %q", lines[1], want)
	}
	if lines[3] != `"",15000000000,0,"",,"",2024/5/1 08:30:05` {
		t.Fatalf("row 3 = %q", lines[3])
	}
}

func TestCSV_RoundTrip(t *testing.T) {
	in := sample()
	out, err := CSV(in, Options{Location: time.UTC})
	if err != nil {
		t.Fatalf("csv: %v", err)
	}
	r := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(out, []byte("\ufeff"))))
	rows, err := r.ReadAll()
	if err != nil {
		t.Fatalf("parse back: %v", err)
	}
	if len(rows) != len(in)+1 {
		t.Fatalf("rows = %d", len(rows))
	}
	for i, c := range in {
		row := rows[i+1]
		n, _ := strconv.Atoi(row[2])
		got := contact.Contact{Company: row[0], Phone: row[1], ExtraPhones: n, Address: row[3], Email: row[4], RegCapital: row[5]}
		c.Timestamp = time.Time{}
		if got != c {
			t.Fatalf("row %d: got %+v want %+v", i, got, c)
		}
	}
}

func TestText_Blocks(t *testing.T) {
	out, err := Text(sample(), Options{Location: time.UTC})
	if err != nil {
		t.Fatalf("txt: %v", err)
	}
	s := strings.TrimPrefix(string(out), "\ufeff")
	blocks := strings.Split(s, "\n\n")
	if len(blocks) != 3 {
		t.Fatalf("blocks = %d, want 3", len(blocks))
	}
	first := "公司名称: 甲公司, 苏州\n联系电话: 13912345678 (还有2个号码)\n地址: 工业园区 1 号\n邮箱: a@example.com\n注册资本: 500万人民币\n采集时间: 2024/5/1 08:30:05\n" + Separator
	if blocks[0] != first {
		t.Fatalf("block 0 =\n%s\nwant\n%s", blocks[0], first)
	}
	if strings.Contains(blocks[1], "地址:") || strings.Contains(blocks[1], "邮箱:") || strings.Contains(blocks[1], "注册资本:") {
		t.Fatalf("empty optional fields must be omitted: %q", blocks[1])
	}
	if !strings.HasPrefix(blocks[2], "公司名称: 未知\n") {
		t.Fatalf("missing company should render as 未知: %q", blocks[2])
	}
	if len(Separator) != 40 {
		t.Fatalf("separator width = %d", len(Separator))
	}
}

func TestEmptyCollectionRejected(t *testing.T) {
	for _, f := range []Format{FormatCSV, FormatText, FormatXLSX, FormatPDF} {
		out, err := Render(f, nil, Options{})
		if !errors.Is(err, ErrEmpty) {
			t.Fatalf("%s: err = %v, want ErrEmpty", f, err)
		}
		if out != nil {
			t.Fatalf("%s: payload produced for empty collection", f)
		}
	}
}

func TestGB18030Encoding(t *testing.T) {
	out, err := CSV(sample()[:1], Options{Location: time.UTC, Encoding: EncodingGB18030})
	if err != nil {
		t.Fatalf("csv: %v", err)
	}
	if bytes.HasPrefix(out, []byte("\ufeff")) {
		t.Fatalf("gb18030 output must not carry a UTF-8 BOM")
	}
	decoded, err := simplifiedchinese.GB18030.NewDecoder().Bytes(out)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !strings.HasPrefix(string(decoded), "公司名称,") {
		t.Fatalf("decoded = %q", decoded)
	}
}

func TestXLSX_Readback(t *testing.T) {
	out, err := XLSX(sample(), Options{Location: time.UTC})
	if err != nil {
		t.Fatalf("xlsx: %v", err)
	}
	f, err := excelize.OpenReader(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	rows, err := f.GetRows(sheetName)
	if err != nil {
		t.Fatalf("rows: %v", err)
	}
	if len(rows) != 4 || rows[0][0] != "公司名称" || rows[1][1] != "13912345678" || rows[1][2] != "2" {
		t.Fatalf("unexpected rows: %v", rows)
	}
}

func TestPDF_RequiresFont(t *testing.T) {
	if _, err := PDF(sample(), Options{}); !errors.Is(err, ErrFontRequired) {
		t.Fatalf("err = %v, want ErrFontRequired", err)
	}
	if _, err := PDF(sample(), Options{FontPath: "/nonexistent/font.ttf"}); err == nil {
		t.Fatalf("expected error for missing font file")
	}
}

func TestFileNameAndParse(t *testing.T) {
	if got := FileName(FormatCSV, ts); got != "联系人数据_2024-05-01.csv" {
		t.Fatalf("FileName = %q", got)
	}
	if f, err := ParseFormat("TEXT"); err != nil || f != FormatText {
		t.Fatalf("ParseFormat(TEXT) = %q, %v", f, err)
	}
	if _, err := ParseFormat("doc"); err == nil {
		t.Fatalf("expected error for unknown format")
	}
	if e, err := ParseEncoding("gbk"); err != nil || e != EncodingGB18030 {
		t.Fatalf("ParseEncoding(gbk) = %q, %v", e, err)
	}
}
