package common

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

// FormatCount renders n with thousands separators, or placeholder when n is nil.
func FormatCount(n *int, placeholder string) string {
	if n == nil {
		return placeholder
	}
	return printer.Sprintf("%d", *n)
}
