package export

import (
	"strconv"
	"strings"

	"github.com/hyperifyio/contactharvest/internal/contact"
)

// CSV renders records as a comma-separated table with a fixed header.
// Company, address and registered capital are always quoted; embedded
// quotes are doubled. Other fields are quoted only when they contain a
// separator, quote or line break.
func CSV(records []contact.Contact, opts Options) ([]byte, error) {
	if len(records) == 0 {
		return nil, ErrEmpty
	}
	rows := make([]string, 0, len(records)+1)
	rows = append(rows, strings.Join(Header, ","))
	for _, c := range records {
		rows = append(rows, strings.Join([]string{
			quote(c.Company),
			field(c.Phone),
			strconv.Itoa(c.ExtraPhones),
			quote(c.Address),
			field(c.Email),
			quote(c.RegCapital),
			field(opts.formatTime(c.Timestamp)),
		}, ","))
	}
	return encode(strings.Join(rows, "\n"), opts.Encoding)
}

func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func field(s string) string {
	if strings.ContainsAny(s, ",\"\r\n") {
		return quote(s)
	}
	return s
}
