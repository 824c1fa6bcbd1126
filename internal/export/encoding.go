package export

import (
	"fmt"
	"strings"

	"golang.org/x/text/encoding/simplifiedchinese"
)

// Encoding selects the byte encoding of text payloads.
type Encoding string

const (
	// EncodingUTF8BOM prefixes the payload with a byte-order mark so
	// spreadsheet tools detect UTF-8.
	EncodingUTF8BOM Encoding = "utf-8-bom"
	EncodingUTF8    Encoding = "utf-8"
	// EncodingGB18030 suits older spreadsheet installs on Chinese Windows.
	EncodingGB18030 Encoding = "gb18030"
)

const bom = "\ufeff"

func ParseEncoding(s string) (Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "utf-8-bom", "utf8-bom", "utf8bom":
		return EncodingUTF8BOM, nil
	case "utf-8", "utf8":
		return EncodingUTF8, nil
	case "gb18030", "gbk", "gb2312":
		return EncodingGB18030, nil
	}
	return "", fmt.Errorf("unknown encoding %q", s)
}

func encode(text string, enc Encoding) ([]byte, error) {
	switch enc {
	case "", EncodingUTF8BOM:
		return []byte(bom + text), nil
	case EncodingUTF8:
		return []byte(text), nil
	case EncodingGB18030:
		out, err := simplifiedchinese.GB18030.NewEncoder().String(text)
		if err != nil {
			return nil, fmt.Errorf("encode gb18030: %w", err)
		}
		return []byte(out), nil
	}
	return nil, fmt.Errorf("unknown encoding %q", enc)
}
