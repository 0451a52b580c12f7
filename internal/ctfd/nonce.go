package ctfd

import (
	"io"
	"strings"

	"golang.org/x/net/html"
)

// scrapeNonce finds the value of the hidden input with id or name "nonce".
func scrapeNonce(r io.Reader) (string, bool) {
	z := html.NewTokenizer(r)
	for {
		switch z.Next() {
		case html.ErrorToken:
			return "", false
		case html.StartTagToken, html.SelfClosingTagToken:
			tok := z.Token()
			if tok.Data != "input" {
				continue
			}
			var isNonce bool
			var value string
			for _, a := range tok.Attr {
				switch a.Key {
				case "id", "name":
					if a.Val == "nonce" {
						isNonce = true
					}
				case "value":
					value = strings.TrimSpace(a.Val)
				}
			}
			if isNonce && value != "" {
				return value, true
			}
		}
	}
}
