package ssml

import (
	"strings"
)

// Dialect определяет вариант разметки для конкретного бэкенда синтеза.
type Dialect int

const (
	// DialectAzure: каноническая форма с mstts:express-as.
	DialectAzure Dialect = iota
	// DialectGoogle: без пространства mstts; содержимое express-as поднимается в родителя.
	DialectGoogle
)

var (
	textEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
	attrEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;")
)

const indent = "  "

// Render сериализует документ. Повторный Parse результата даёт то же дерево.
func (d *Document) Render(dialect Dialect) string {
	var b strings.Builder
	b.WriteString(`<speak version="`)
	b.WriteString(attrEscaper.Replace(d.Version))
	b.WriteString(`" xmlns="` + SynthesisNS + `"`)
	if dialect == DialectAzure {
		b.WriteString(` xmlns:mstts="` + StylingNS + `"`)
	}
	if d.Lang != "" {
		b.WriteString(` xml:lang="`)
		b.WriteString(attrEscaper.Replace(d.Lang))
		b.WriteString(`"`)
	}
	b.WriteString(">\n")
	for _, n := range d.Body {
		writeBlock(&b, n, 1, dialect)
	}
	b.WriteString("</speak>\n")
	return b.String()
}

func elementName(t Tag) string {
	if t == TagExpressAs {
		return "mstts:express-as"
	}
	return string(t)
}

func hasText(nodes []*Node) bool {
	for _, c := range nodes {
		if c.Tag == TagText {
			return true
		}
	}
	return false
}

// flatten убирает express-as для диалектов без mstts.
func flatten(nodes []*Node, dialect Dialect) []*Node {
	if dialect == DialectAzure {
		return nodes
	}
	out := make([]*Node, 0, len(nodes))
	for _, n := range nodes {
		if n.Tag == TagExpressAs {
			out = append(out, flatten(n.Children, dialect)...)
			continue
		}
		out = append(out, n)
	}
	return out
}

func openTag(b *strings.Builder, n *Node) {
	b.WriteByte('<')
	b.WriteString(elementName(n.Tag))
	for _, a := range n.Attrs {
		b.WriteByte(' ')
		b.WriteString(a.Name)
		b.WriteString(`="`)
		b.WriteString(attrEscaper.Replace(a.Value))
		b.WriteByte('"')
	}
}

// writeBlock пишет элемент с отступом. Элементы без текста (voice, express-as
// с одними вложенными элементами) раскладываются построчно, остальные пишутся в строку.
func writeBlock(b *strings.Builder, n *Node, depth int, dialect Dialect) {
	pad := strings.Repeat(indent, depth)
	children := flatten(n.Children, dialect)
	b.WriteString(pad)
	openTag(b, n)
	if len(children) == 0 {
		b.WriteString("/>\n")
		return
	}
	b.WriteByte('>')
	if hasText(children) || (n.Tag != TagVoice && n.Tag != TagExpressAs) {
		for _, c := range children {
			writeInline(b, c, dialect)
		}
	} else {
		b.WriteByte('\n')
		for _, c := range children {
			writeBlock(b, c, depth+1, dialect)
		}
		b.WriteString(pad)
	}
	b.WriteString("</")
	b.WriteString(elementName(n.Tag))
	b.WriteString(">\n")
}

func writeInline(b *strings.Builder, n *Node, dialect Dialect) {
	if n.Tag == TagText {
		b.WriteString(textEscaper.Replace(n.Text))
		return
	}
	children := flatten(n.Children, dialect)
	openTag(b, n)
	if len(children) == 0 {
		b.WriteString("/>")
		return
	}
	b.WriteByte('>')
	for _, c := range children {
		writeInline(b, c, dialect)
	}
	b.WriteString("</")
	b.WriteString(elementName(n.Tag))
	b.WriteByte('>')
}
