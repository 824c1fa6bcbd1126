package export

import (
	"fmt"
	"strings"

	"github.com/hyperifyio/contactharvest/internal/contact"
)

// Separator closes every block of the plain-text export.
var Separator = strings.Repeat("-", 40)

// Text renders one labelled block per record. Address, email and
// registered capital lines are present only when non-empty.
func Text(records []contact.Contact, opts Options) ([]byte, error) {
	if len(records) == 0 {
		return nil, ErrEmpty
	}
	return encode(strings.Join(textBlocks(records, opts), "\n\n"), opts.Encoding)
}

func textBlocks(records []contact.Contact, opts Options) []string {
	blocks := make([]string, 0, len(records))
	for _, c := range records {
		var b strings.Builder
		fmt.Fprintf(&b, "公司名称: %s\n", c.DisplayCompany())
		fmt.Fprintf(&b, "联系电话: %s", c.DisplayPhone())
		if c.ExtraPhones > 0 {
			fmt.Fprintf(&b, " (还有%d个号码)", c.ExtraPhones)
		}
		b.WriteString("\n")
		if c.Address != "" {
			fmt.Fprintf(&b, "地址: %s\n", c.Address)
		}
		if c.Email != "" {
			fmt.Fprintf(&b, "邮箱: %s\n", c.Email)
		}
		if c.RegCapital != "" {
			fmt.Fprintf(&b, "注册资本: %s\n", c.RegCapital)
		}
		fmt.Fprintf(&b, "采集时间: %s\n", opts.formatTime(c.Timestamp))
		b.WriteString(Separator)
		blocks = append(blocks, b.String())
	}
	return blocks
}
