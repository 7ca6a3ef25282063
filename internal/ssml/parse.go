package ssml

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"Newspods/internal/apperr"

	"github.com/samber/lo"
)

// DefaultMaxPause: верхняя граница <break time>, если не задана явно.
const DefaultMaxPause = 5 * time.Second

type ParseOptions struct {
	Voices   VoicePair
	MaxPause time.Duration
}

var (
	emphasisLevels = []string{"reduced", "moderate", "strong"}
	rateWords      = []string{"x-slow", "slow", "medium", "fast", "x-fast", "default"}
	pitchWords     = []string{"x-low", "low", "medium", "high", "x-high", "default"}
	volumeWords    = []string{"silent", "x-soft", "soft", "medium", "loud", "x-loud", "default"}
	strengthWords  = []string{"none", "x-weak", "weak", "medium", "strong", "x-strong"}

	percentRe = regexp.MustCompile(`^[+-]?\d+(\.\d+)?%$`)
	pitchRe   = regexp.MustCompile(`^[+-]?\d+(\.\d+)?(%|st|Hz)$`)
	volumeRe  = regexp.MustCompile(`^[+-]?\d+(\.\d+)?(%|dB)?$`)
	breakRe   = regexp.MustCompile(`^(\d+)(ms|s)$`)
	styleRe   = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9-]*$`)
	roleRe    = regexp.MustCompile(`^[A-Za-z]+$`)
)

// Допустимые дочерние элементы. TagText: разрешён текст.
var allowedChildren = map[Tag][]Tag{
	TagSpeak:     {TagVoice},
	TagVoice:     {TagExpressAs, TagProsody, TagEmphasis, TagBreak, TagParagraph, TagSentence, TagText},
	TagExpressAs: {TagProsody, TagEmphasis, TagBreak, TagParagraph, TagSentence, TagText},
	TagParagraph: {TagSentence, TagProsody, TagEmphasis, TagBreak, TagText},
	TagSentence:  {TagProsody, TagEmphasis, TagBreak, TagText},
	TagProsody:   {TagProsody, TagEmphasis, TagBreak, TagSentence, TagText},
	TagEmphasis:  {TagProsody, TagBreak, TagText},
	TagBreak:     {},
}

// Parse разбирает и проверяет SSML. Любое нарушение: ErrValidation;
// документ не исправляется.
func Parse(raw string, opts ParseOptions) (*Document, error) {
	if opts.Voices[0] == "" || opts.Voices[1] == "" {
		return nil, apperr.Validation("ssml", "voice pair is not configured")
	}
	if opts.MaxPause <= 0 {
		opts.MaxPause = DefaultMaxPause
	}
	p := &parser{dec: xml.NewDecoder(strings.NewReader(raw)), opts: opts}
	p.dec.Strict = true
	return p.run()
}

type parser struct {
	dec   *xml.Decoder
	opts  ParseOptions
	doc   *Document
	stack []*Node
	done  bool
	used  map[string]bool
}

func (p *parser) fail(format string, args ...any) error {
	line, col := p.dec.InputPos()
	return apperr.Validationf("ssml", "line %d col %d: %s", line, col, fmt.Sprintf(format, args...))
}

func (p *parser) run() (*Document, error) {
	p.used = make(map[string]bool, 2)
	for {
		tok, err := p.dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var se *xml.SyntaxError
			if errors.As(err, &se) {
				return nil, apperr.Validationf("ssml", "line %d: malformed markup: %s", se.Line, se.Msg)
			}
			return nil, apperr.Validationf("ssml", "malformed markup: %v", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if err := p.start(t); err != nil {
				return nil, err
			}
		case xml.EndElement:
			if err := p.end(); err != nil {
				return nil, err
			}
		case xml.CharData:
			if err := p.text(string(t)); err != nil {
				return nil, err
			}
		case xml.Comment:
		case xml.ProcInst:
			if p.doc != nil || t.Target != "xml" {
				return nil, p.fail("unexpected processing instruction <?%s?>", t.Target)
			}
		case xml.Directive:
			return nil, p.fail("directives are not allowed")
		}
	}
	if len(p.stack) > 0 {
		return nil, p.fail("unclosed <%s> element", p.stack[len(p.stack)-1].Tag)
	}
	if p.doc == nil {
		return nil, apperr.Validation("ssml", "document has no <speak> root")
	}
	for _, v := range p.opts.Voices {
		if !p.used[v] {
			return nil, apperr.Validationf("ssml", "voice %q is never used; a two-speaker document needs both voices", v)
		}
	}
	return p.doc, nil
}

func (p *parser) resolve(name xml.Name) (Tag, error) {
	switch name.Space {
	case SynthesisNS:
		switch t := Tag(name.Local); t {
		case TagSpeak, TagVoice, TagProsody, TagEmphasis, TagBreak, TagParagraph, TagSentence:
			return t, nil
		}
		return "", p.fail("unsupported element <%s>", name.Local)
	case StylingNS:
		if name.Local == string(TagExpressAs) {
			return TagExpressAs, nil
		}
		return "", p.fail("unsupported styling element <%s>", name.Local)
	case "":
		return "", p.fail("element <%s> is outside the synthesis namespace", name.Local)
	}
	return "", p.fail("element <%s> uses undeclared or unknown namespace %q", name.Local, name.Space)
}

func (p *parser) start(se xml.StartElement) error {
	tag, err := p.resolve(se.Name)
	if err != nil {
		return err
	}
	if p.done {
		return p.fail("multiple root elements")
	}
	if len(p.stack) == 0 {
		if tag != TagSpeak {
			return p.fail("root element must be <speak>, got <%s>", tag)
		}
		return p.startSpeak(se)
	}
	parent := p.stack[len(p.stack)-1]
	if !lo.Contains(allowedChildren[parent.Tag], tag) {
		return p.fail("<%s> is not allowed inside <%s>", tag, parent.Tag)
	}
	n := &Node{Tag: tag}
	for _, a := range se.Attr {
		if a.Name.Space == "xmlns" || (a.Name.Space == "" && a.Name.Local == "xmlns") {
			return p.fail("namespace declarations belong on <speak>")
		}
		if a.Name.Space != "" {
			return p.fail("unsupported attribute %s:%s on <%s>", a.Name.Space, a.Name.Local, tag)
		}
		if err := p.checkAttr(tag, a.Name.Local, a.Value); err != nil {
			return err
		}
		n.Attrs = append(n.Attrs, Attr{Name: a.Name.Local, Value: a.Value})
	}
	if err := p.checkRequired(n); err != nil {
		return err
	}
	parent.Children = append(parent.Children, n)
	p.stack = append(p.stack, n)
	return nil
}

func (p *parser) startSpeak(se xml.StartElement) error {
	doc := &Document{}
	var synthDeclared, stylingDeclared bool
	for _, a := range se.Attr {
		switch {
		case a.Name.Space == "" && a.Name.Local == "xmlns":
			synthDeclared = a.Value == SynthesisNS
		case a.Name.Space == "xmlns":
			if a.Value == StylingNS {
				stylingDeclared = true
			}
		case a.Name.Space == "" && a.Name.Local == "version":
			doc.Version = a.Value
		case a.Name.Space == xmlNS && a.Name.Local == "lang":
			doc.Lang = a.Value
		default:
			return p.fail("unsupported attribute %q on <speak>", a.Name.Local)
		}
	}
	if doc.Version == "" {
		return p.fail("<speak> is missing the version attribute")
	}
	if doc.Version != "1.0" {
		return p.fail("unsupported SSML version %q", doc.Version)
	}
	if !synthDeclared {
		return p.fail("<speak> must declare xmlns=%q", SynthesisNS)
	}
	if !stylingDeclared {
		return p.fail("<speak> must declare the styling namespace %q", StylingNS)
	}
	p.doc = doc
	p.stack = append(p.stack, &Node{Tag: TagSpeak})
	return nil
}

func (p *parser) checkAttr(tag Tag, name, value string) error {
	bad := func(want string) error {
		return p.fail("<%s %s=%q>: %s", tag, name, value, want)
	}
	switch tag {
	case TagVoice:
		if name == "name" {
			if !p.opts.Voices.Contains(value) {
				return p.fail("voice %q is not one of the configured voices %q, %q", value, p.opts.Voices[0], p.opts.Voices[1])
			}
			return nil
		}
	case TagExpressAs:
		switch name {
		case "style":
			if !styleRe.MatchString(value) {
				return bad("style must be a style name")
			}
			return nil
		case "styledegree":
			f, err := strconv.ParseFloat(value, 64)
			if err != nil || f < 0.01 || f > 2 {
				return bad("styledegree must be a number in 0.01..2")
			}
			return nil
		case "role":
			if !roleRe.MatchString(value) {
				return bad("role must be a role name")
			}
			return nil
		}
	case TagProsody:
		switch name {
		case "rate":
			if !lo.Contains(rateWords, value) && !percentRe.MatchString(value) {
				return bad("rate must be one of " + strings.Join(rateWords, "|") + " or a percentage")
			}
			return nil
		case "pitch":
			if !lo.Contains(pitchWords, value) && !pitchRe.MatchString(value) {
				return bad("pitch must be one of " + strings.Join(pitchWords, "|") + " or a relative value (%, st, Hz)")
			}
			return nil
		case "volume":
			if !lo.Contains(volumeWords, value) && !volumeRe.MatchString(value) {
				return bad("volume must be one of " + strings.Join(volumeWords, "|") + " or a number (%, dB)")
			}
			return nil
		}
	case TagEmphasis:
		if name == "level" {
			if !lo.Contains(emphasisLevels, value) {
				return bad("level must be one of " + strings.Join(emphasisLevels, "|"))
			}
			return nil
		}
	case TagBreak:
		switch name {
		case "time":
			d, err := parseBreakTime(value)
			if err != nil {
				return bad(err.Error())
			}
			if d > p.opts.MaxPause {
				return bad(fmt.Sprintf("pause exceeds the %s limit", p.opts.MaxPause))
			}
			return nil
		case "strength":
			if !lo.Contains(strengthWords, value) {
				return bad("strength must be one of " + strings.Join(strengthWords, "|"))
			}
			return nil
		}
	}
	return p.fail("unsupported attribute %q on <%s>", name, tag)
}

func (p *parser) checkRequired(n *Node) error {
	switch n.Tag {
	case TagVoice:
		name, ok := n.Attr("name")
		if !ok {
			return p.fail("<voice> is missing the name attribute")
		}
		p.used[name] = true
	case TagExpressAs:
		if _, ok := n.Attr("style"); !ok {
			return p.fail("<express-as> is missing the style attribute")
		}
	case TagProsody:
		if len(n.Attrs) == 0 {
			return p.fail("<prosody> needs at least one of rate, pitch, volume")
		}
	}
	return nil
}

func (p *parser) end() error {
	n := p.stack[len(p.stack)-1]
	p.stack = p.stack[:len(p.stack)-1]
	normalize(n)
	if n.Tag == TagVoice && len(n.Children) == 0 {
		return p.fail("empty <voice> element")
	}
	if len(p.stack) == 0 {
		p.doc.Body = n.Children
		p.done = true
	}
	return nil
}

func (p *parser) text(s string) error {
	blank := strings.TrimSpace(s) == ""
	if len(p.stack) == 0 {
		if !blank {
			return p.fail("text outside the <speak> root")
		}
		return nil
	}
	parent := p.stack[len(p.stack)-1]
	if blank && parent.Tag == TagSpeak {
		return nil
	}
	if !lo.Contains(allowedChildren[parent.Tag], TagText) {
		if blank {
			return nil
		}
		if parent.Tag == TagSpeak {
			return p.fail("text outside a <voice> element")
		}
		return p.fail("text is not allowed inside <%s>", parent.Tag)
	}
	parent.Children = append(parent.Children, textNode(s))
	return nil
}

// normalize приводит текстовые узлы к каноническому виду: соседние склеены,
// пробельные серии схлопнуты, края обрезаны. У узла без значимого текста
// пробельные узлы удаляются целиком.
func normalize(n *Node) {
	merged := make([]*Node, 0, len(n.Children))
	for _, c := range n.Children {
		if c.Tag == TagText && len(merged) > 0 && merged[len(merged)-1].Tag == TagText {
			merged[len(merged)-1] = textNode(merged[len(merged)-1].Text + c.Text)
			continue
		}
		merged = append(merged, c)
	}
	mixed := lo.ContainsBy(merged, func(c *Node) bool {
		return c.Tag == TagText && strings.TrimSpace(c.Text) != ""
	})
	out := make([]*Node, 0, len(merged))
	for i, c := range merged {
		if c.Tag != TagText {
			out = append(out, c)
			continue
		}
		if !mixed {
			continue
		}
		s := collapseSpace(c.Text)
		if i == 0 {
			s = strings.TrimLeftFunc(s, unicode.IsSpace)
		}
		if i == len(merged)-1 {
			s = strings.TrimRightFunc(s, unicode.IsSpace)
		}
		if s != "" {
			out = append(out, textNode(s))
		}
	}
	if len(out) == 0 {
		out = nil
	}
	n.Children = out
}

func collapseSpace(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	space := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			if !space {
				b.WriteByte(' ')
			}
			space = true
			continue
		}
		space = false
		b.WriteRune(r)
	}
	return b.String()
}

// parseBreakTime разбирает "<целое>ms" или "<целое>s".
func parseBreakTime(v string) (time.Duration, error) {
	if strings.HasPrefix(strings.TrimSpace(v), "-") {
		return 0, errors.New("pause duration must not be negative")
	}
	m := breakRe.FindStringSubmatch(v)
	if m == nil {
		if _, err := strconv.Atoi(v); err == nil {
			return 0, errors.New("pause duration needs a time unit (ms or s)")
		}
		return 0, errors.New("pause duration must be a non-negative integer with ms or s")
	}
	n, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil || n > int64(time.Hour/time.Millisecond) {
		return 0, errors.New("pause duration is out of range")
	}
	unit := time.Millisecond
	if m[2] == "s" {
		unit = time.Second
	}
	return time.Duration(n) * unit, nil
}
