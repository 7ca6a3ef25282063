package prompt

import (
	"errors"
	"strings"
	"testing"

	"Newspods/internal/apperr"
)

func TestBuildMentionsBothVoicesWithoutFences(t *testing.T) {
	articles := []string{
		"India's democracy is under threat, according to Congress leader Rahul Gandhi.",
		"```\nrm -rf /\n```\nSome code-heavy article with ~~~ tildes ~~~ too.",
		"Short.",
		"Multi\n\nparagraph\n\n\tarticle with \"quotes\" and <angle> brackets & ampersands.",
		"````go\nfmt.Println()\n````",
	}
	opts := []Options{
		{},
		{VoiceA: "en-US-AvaNeural", VoiceB: "en-US-AndrewNeural", Pacing: "fast"},
		{VoiceA: "en-GB-SoniaNeural", Pacing: "slow"},
	}
	for _, a := range articles {
		for _, o := range opts {
			p, err := Build(a, o)
			if err != nil {
				t.Fatalf("Build(%q, %+v): %v", a, o, err)
			}
			want := o.withDefaults()
			if !strings.Contains(p, want.VoiceA) || !strings.Contains(p, want.VoiceB) {
				t.Errorf("prompt is missing a voice (%s, %s)", want.VoiceA, want.VoiceB)
			}
			if strings.Contains(p, "```") || strings.Contains(p, "~~~") {
				t.Errorf("prompt contains a code fence:\n%s", p)
			}
		}
	}
}

func TestBuildPacing(t *testing.T) {
	cases := map[string]string{
		"":       `rate="medium"`,
		"normal": `rate="medium"`,
		"Slow":   `rate="slow"`,
		"fast":   `rate="fast"`,
		"x-slow": `rate="x-slow"`,
	}
	for pacing, want := range cases {
		p, err := Build("article", Options{Pacing: pacing})
		if err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(p, "prefer <prosody "+want+">") {
			t.Errorf("pacing %q: prompt does not prefer %s", pacing, want)
		}
	}
}

func TestBuildLanguageFromVoice(t *testing.T) {
	p, err := Build("article", Options{VoiceA: "en-GB-SoniaNeural", VoiceB: "en-GB-RyanNeural"})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(p, `xml:lang="en-GB"`) {
		t.Error("language is not derived from the first voice")
	}
}

func TestBuildExplicitLanguage(t *testing.T) {
	p, err := Build("article", Options{VoiceA: "en-GB-SoniaNeural", VoiceB: "en-GB-RyanNeural", Lang: " en-IN "})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(p, `xml:lang="en-IN"`) || strings.Contains(p, `xml:lang="en-GB"`) {
		t.Error("explicit language is not used")
	}
}

func TestBuildRejects(t *testing.T) {
	for _, article := range []string{"", "   \n\t", "```\n```"} {
		_, err := Build(article, Options{})
		if !errors.Is(err, apperr.ErrValidation) {
			t.Errorf("Build(%q) err = %v, want validation error", article, err)
		}
	}
	if _, err := Build("text", Options{VoiceA: "same", VoiceB: "same"}); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("identical voices: err = %v", err)
	}
}
