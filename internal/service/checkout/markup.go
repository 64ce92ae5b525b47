package checkout

import (
	"strings"

	"golang.org/x/net/html"
)

// StripMarkup удаляет теги из HTML-фрагмента и оставляет только текст.
// Сущности (&amp; и т.п.) раскодируются, содержимое script/style отбрасывается.
func StripMarkup(fragment string) string {
	tokenizer := html.NewTokenizer(strings.NewReader(fragment))

	var (
		out  strings.Builder
		skip int
	)
	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			// io.EOF или битая разметка: возвращаем накопленный текст.
			return out.String()
		case html.TextToken:
			if skip == 0 {
				out.Write(tokenizer.Text())
			}
		case html.StartTagToken:
			if isRawTextTag(tokenizer) {
				skip++
			}
		case html.EndTagToken:
			if isRawTextTag(tokenizer) && skip > 0 {
				skip--
			}
		}
	}
}

func isRawTextTag(tokenizer *html.Tokenizer) bool {
	name, _ := tokenizer.TagName()
	switch string(name) {
	case "script", "style":
		return true
	default:
		return false
	}
}
