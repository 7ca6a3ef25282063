package ssml

import (
	"strconv"
	"strings"
	"time"

	"Newspods/internal/apperr"

	"github.com/samber/lo"
)

// Segment: одна реплика: голос, стиль, просодия, текст и пауза после неё.
// Text допускает выделение вида {strong:текст}.
type Segment struct {
	Voice       string
	Style       string
	StyleDegree float64
	Rate        string
	Pitch       string
	Volume      string
	Text        string
	Pause       time.Duration
}

// Builder собирает документ из сегментов. Подряд идущие сегменты одного
// голоса попадают в один <voice>.
type Builder struct {
	pair     VoicePair
	lang     string
	maxPause time.Duration
	segments []Segment
}

func NewBuilder(pair VoicePair, lang string) *Builder {
	return &Builder{pair: pair, lang: lang, maxPause: DefaultMaxPause}
}

// WithMaxPause задаёт верхнюю границу пауз.
func (b *Builder) WithMaxPause(d time.Duration) *Builder {
	if d > 0 {
		b.maxPause = d
	}
	return b
}

func (b *Builder) Add(segs ...Segment) *Builder {
	b.segments = append(b.segments, segs...)
	return b
}

// Build строит документ и прогоняет его через Parse, так что результат
// удовлетворяет тем же правилам, что и внешний SSML.
func (b *Builder) Build() (*Document, error) {
	if len(b.segments) == 0 {
		return nil, apperr.Validation("ssml builder", "no segments")
	}
	doc := &Document{Version: "1.0", Lang: b.lang}
	var (
		current      *Node
		currentVoice string
	)
	for i, seg := range b.segments {
		if !b.pair.Contains(seg.Voice) {
			return nil, apperr.Validationf("ssml builder", "segment %d: voice %q is not one of %q, %q", i+1, seg.Voice, b.pair[0], b.pair[1])
		}
		if seg.Pause < 0 {
			return nil, apperr.Validationf("ssml builder", "segment %d: negative pause %s", i+1, seg.Pause)
		}
		content, err := segmentNodes(seg)
		if err != nil {
			return nil, apperr.Validationf("ssml builder", "segment %d: %s", i+1, apperr.Reason(err))
		}
		switch {
		case current == nil || currentVoice != seg.Voice:
			current = &Node{Tag: TagVoice, Attrs: []Attr{{Name: "name", Value: seg.Voice}}}
			currentVoice = seg.Voice
			doc.Body = append(doc.Body, current)
		case current.Children[len(current.Children)-1].Tag != TagBreak:
			// без паузы слова соседних сегментов слились бы
			current.Children = append(current.Children, textNode(" "))
		}
		current.Children = append(current.Children, content...)
	}
	return Parse(doc.Render(DialectAzure), ParseOptions{Voices: b.pair, MaxPause: b.maxPause})
}

func segmentNodes(seg Segment) ([]*Node, error) {
	spans, err := ParseSpans(seg.Text)
	if err != nil {
		return nil, err
	}
	if len(spans) == 0 {
		return nil, apperr.Validation("ssml builder", "empty text")
	}
	inner := spans
	var prosody []Attr
	for _, a := range []Attr{{"rate", seg.Rate}, {"pitch", seg.Pitch}, {"volume", seg.Volume}} {
		if a.Value != "" {
			prosody = append(prosody, a)
		}
	}
	if len(prosody) > 0 {
		inner = []*Node{{Tag: TagProsody, Attrs: prosody, Children: inner}}
	}
	if seg.Style != "" {
		attrs := []Attr{{Name: "style", Value: seg.Style}}
		if seg.StyleDegree > 0 {
			attrs = append(attrs, Attr{Name: "styledegree", Value: strconv.FormatFloat(seg.StyleDegree, 'f', -1, 64)})
		}
		inner = []*Node{{Tag: TagExpressAs, Attrs: attrs, Children: inner}}
	}
	if seg.Pause > 0 {
		ms := strconv.FormatInt(seg.Pause.Milliseconds(), 10) + "ms"
		inner = append(inner, &Node{Tag: TagBreak, Attrs: []Attr{{Name: "time", Value: ms}}})
	}
	return inner, nil
}

// ParseSpans разбирает текст с выделениями {level:текст} в узлы.
// Уровень проверяется по тому же перечню, что и <emphasis level>.
func ParseSpans(text string) ([]*Node, error) {
	var out []*Node
	rest := text
	for {
		open := strings.IndexByte(rest, '{')
		if open < 0 {
			if strings.IndexByte(rest, '}') >= 0 {
				return nil, apperr.Validation("ssml builder", "unbalanced '}' in text")
			}
			if strings.TrimSpace(rest) != "" {
				out = append(out, textNode(rest))
			}
			return out, nil
		}
		if strings.IndexByte(rest[:open], '}') >= 0 {
			return nil, apperr.Validation("ssml builder", "unbalanced '}' in text")
		}
		if open > 0 {
			out = append(out, textNode(rest[:open]))
		}
		closing := strings.IndexByte(rest[open:], '}')
		if closing < 0 {
			return nil, apperr.Validation("ssml builder", "unclosed '{' in text")
		}
		body := rest[open+1 : open+closing]
		if strings.IndexByte(body, '{') >= 0 {
			return nil, apperr.Validation("ssml builder", "nested emphasis is not supported")
		}
		level, words, ok := strings.Cut(body, ":")
		level = strings.TrimSpace(level)
		if !ok || strings.TrimSpace(words) == "" {
			return nil, apperr.Validationf("ssml builder", "emphasis %q must look like {level:text}", body)
		}
		if !lo.Contains(emphasisLevels, level) {
			return nil, apperr.Validationf("ssml builder", "emphasis level %q must be one of %s", level, strings.Join(emphasisLevels, "|"))
		}
		out = append(out, &Node{
			Tag:      TagEmphasis,
			Attrs:    []Attr{{Name: "level", Value: level}},
			Children: []*Node{textNode(strings.TrimSpace(words))},
		})
		rest = rest[open+closing+1:]
	}
}
