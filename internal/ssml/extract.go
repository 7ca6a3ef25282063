package ssml

import (
	"regexp"
	"strings"
)

var (
	fenceRe   = regexp.MustCompile("(?s)^(?:```|~~~)[A-Za-z0-9_-]*[ \t]*\r?\n(.*?)\r?\n?(?:```|~~~)$")
	xmlDeclRe = regexp.MustCompile(`^<\?xml[^>]*\?>\s*`)
)

// Extract готовит ответ модели к разбору: обрезает пробелы, снимает одно
// обрамление markdown-блоком и XML-декларацию. Разметку не исправляет.
func Extract(raw string) string {
	s := strings.TrimSpace(raw)
	if m := fenceRe.FindStringSubmatch(s); m != nil {
		s = strings.TrimSpace(m[1])
	}
	s = xmlDeclRe.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}
