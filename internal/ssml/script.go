package ssml

import (
	"embed"
	"errors"
	"io"
	"io/fs"
	"path"
	"sort"
	"strings"
	"time"

	"Newspods/internal/apperr"

	"gopkg.in/yaml.v3"
)

//go:embed scripts/*.yaml
var builtinScripts embed.FS

// Script: выпуск в YAML: два именованных спикера и список реплик.
type Script struct {
	Title    string            `yaml:"title"`
	Lang     string            `yaml:"lang"`
	Speakers map[string]string `yaml:"speakers"` // псевдоним -> голос
	Segments []ScriptSegment   `yaml:"segments"`
}

type ScriptSegment struct {
	Speaker string  `yaml:"speaker"`
	Style   string  `yaml:"style"`
	Degree  float64 `yaml:"degree"`
	Rate    string  `yaml:"rate"`
	Pitch   string  `yaml:"pitch"`
	Volume  string  `yaml:"volume"`
	Text    string  `yaml:"text"`
	Pause   string  `yaml:"pause"` // напр. 500ms
}

func LoadScript(r io.Reader) (*Script, error) {
	var s Script
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		return nil, apperr.Validationf("script", "decode yaml: %v", err)
	}
	return &s, nil
}

// BuiltinScript открывает встроенный выпуск по имени (без расширения).
func BuiltinScript(name string) (*Script, error) {
	f, err := builtinScripts.Open(path.Join("scripts", name+".yaml"))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, apperr.Validationf("script", "unknown builtin script %q (have: %s)", name, strings.Join(BuiltinScripts(), ", "))
		}
		return nil, apperr.IO("script", err)
	}
	defer f.Close()
	return LoadScript(f)
}

func BuiltinScripts() []string {
	entries, _ := builtinScripts.ReadDir("scripts")
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, strings.TrimSuffix(e.Name(), ".yaml"))
	}
	sort.Strings(names)
	return names
}

// Pair возвращает голоса спикеров в порядке их первой реплики.
func (s *Script) Pair() (VoicePair, error) {
	if len(s.Speakers) != 2 {
		return VoicePair{}, apperr.Validationf("script", "script must define exactly two speakers, got %d", len(s.Speakers))
	}
	var order []string
	for _, seg := range s.Segments {
		v, ok := s.Speakers[seg.Speaker]
		if !ok {
			return VoicePair{}, apperr.Validationf("script", "unknown speaker %q", seg.Speaker)
		}
		if len(order) == 0 || (len(order) == 1 && order[0] != v) {
			order = append(order, v)
		}
	}
	if len(order) < 2 {
		return VoicePair{}, apperr.Validation("script", "both speakers must have at least one segment")
	}
	return NewVoicePair(order[0], order[1])
}

// Document собирает выпуск через Builder.
func (s *Script) Document(maxPause time.Duration) (*Document, error) {
	pair, err := s.Pair()
	if err != nil {
		return nil, err
	}
	b := NewBuilder(pair, s.Lang).WithMaxPause(maxPause)
	for i, seg := range s.Segments {
		var pause time.Duration
		if p := strings.TrimSpace(seg.Pause); p != "" {
			pause, err = time.ParseDuration(p)
			if err != nil {
				return nil, apperr.Validationf("script", "segment %d: pause %q: %v", i+1, seg.Pause, err)
			}
		}
		b.Add(Segment{
			Voice:       s.Speakers[seg.Speaker],
			Style:       seg.Style,
			StyleDegree: seg.Degree,
			Rate:        seg.Rate,
			Pitch:       seg.Pitch,
			Volume:      seg.Volume,
			Text:        seg.Text,
			Pause:       pause,
		})
	}
	return b.Build()
}
