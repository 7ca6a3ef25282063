package ssml

import (
	"strings"
	"time"

	"Newspods/internal/apperr"

	"github.com/samber/lo"
)

// Пространства имён корня <speak>.
const (
	SynthesisNS = "http://www.w3.org/2001/10/synthesis"
	StylingNS   = "https://www.w3.org/2001/mstts"
	xmlNS       = "http://www.w3.org/XML/1998/namespace"
)

// Tag: имя элемента SSML. TagText обозначает текстовый узел.
type Tag string

const (
	TagText      Tag = ""
	TagSpeak     Tag = "speak"
	TagVoice     Tag = "voice"
	TagExpressAs Tag = "express-as" // mstts:express-as
	TagProsody   Tag = "prosody"
	TagEmphasis  Tag = "emphasis"
	TagBreak     Tag = "break"
	TagParagraph Tag = "p"
	TagSentence  Tag = "s"
)

type Attr struct {
	Name  string
	Value string
}

// Node: элемент или текст дерева SSML.
type Node struct {
	Tag      Tag
	Text     string // только для TagText
	Attrs    []Attr
	Children []*Node
}

// Attr возвращает значение атрибута.
func (n *Node) Attr(name string) (string, bool) {
	for _, a := range n.Attrs {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

func textNode(s string) *Node { return &Node{Tag: TagText, Text: s} }

// Document: проверенный документ: корень <speak> и последовательность <voice>.
type Document struct {
	Version string
	Lang    string
	Body    []*Node
}

// Voices возвращает голоса в порядке первого появления.
func (d *Document) Voices() []string {
	names := lo.FilterMap(d.Body, func(n *Node, _ int) (string, bool) {
		return n.Attr("name")
	})
	return lo.Uniq(names)
}

// Turns: количество элементов <voice>.
func (d *Document) Turns() int { return len(d.Body) }

// Pauses возвращает длительности всех <break time> в порядке документа.
func (d *Document) Pauses() []time.Duration {
	var out []time.Duration
	var walk func(nodes []*Node)
	walk = func(nodes []*Node) {
		for _, n := range nodes {
			if n.Tag == TagBreak {
				if v, ok := n.Attr("time"); ok {
					if dur, err := parseBreakTime(v); err == nil {
						out = append(out, dur)
					}
				}
			}
			walk(n.Children)
		}
	}
	walk(d.Body)
	return out
}

// VoicePair: ровно два различных голоса документа.
type VoicePair [2]string

func NewVoicePair(a, b string) (VoicePair, error) {
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	if a == "" || b == "" {
		return VoicePair{}, apperr.Validation("ssml", "voice pair needs two non-empty voice identifiers")
	}
	if a == b {
		return VoicePair{}, apperr.Validationf("ssml", "voice pair needs two different voices, got %q twice", a)
	}
	return VoicePair{a, b}, nil
}

func (p VoicePair) Contains(name string) bool { return lo.Contains(p[:], name) }
