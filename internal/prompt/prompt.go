// Package prompt формирует инструкцию для языковой модели: статья -> SSML на два голоса.
package prompt

import (
	"fmt"
	"regexp"
	"strings"

	"Newspods/internal/apperr"
)

const (
	DefaultVoiceA = "en-IN-NeerjaNeural"
	DefaultVoiceB = "en-IN-PrabhatNeural"
	DefaultPacing = "normal"
)

// Options: пара голосов, темп и язык. Пустые поля заменяются значениями по умолчанию.
type Options struct {
	VoiceA string
	VoiceB string
	Pacing string
	Lang   string // xml:lang документа; пусто: локаль первого голоса
}

func (o Options) withDefaults() Options {
	if strings.TrimSpace(o.VoiceA) == "" {
		o.VoiceA = DefaultVoiceA
	}
	if strings.TrimSpace(o.VoiceB) == "" {
		o.VoiceB = DefaultVoiceB
	}
	if strings.TrimSpace(o.Pacing) == "" {
		o.Pacing = DefaultPacing
	}
	o.VoiceA = strings.TrimSpace(o.VoiceA)
	o.VoiceB = strings.TrimSpace(o.VoiceB)
	o.Pacing = strings.ToLower(strings.TrimSpace(o.Pacing))
	if o.Lang = strings.TrimSpace(o.Lang); o.Lang == "" {
		o.Lang = langOf(o.VoiceA)
	}
	return o
}

// pacing -> значение prosody rate, которое предлагаем модели
var rates = map[string]string{
	"slow":   "slow",
	"normal": "medium",
	"medium": "medium",
	"fast":   "fast",
}

// ограждения markdown внутри статьи убираем, иначе модель охотно их повторяет
var fenceRun = regexp.MustCompile("`{3,}|~{3,}")

const template = `You are a generator that converts news articles into SSML for two speakers in a podcast style.
Your output must be only valid SSML: no explanation, no commentary.

- Alternate between exactly two voices: "%[1]s" and "%[2]s". Use no other voice names.
- Start with <speak version="1.0" xmlns="http://www.w3.org/2001/10/synthesis" xmlns:mstts="https://www.w3.org/2001/mstts" xml:lang="%[5]s"> and end with </speak>.
- Use expressive tags such as <emphasis level="reduced|moderate|strong">, <prosody rate="..." pitch="...">, <break time="...ms"/> and mstts:express-as with style and styledegree to improve naturalness.
- Insert short pauses (200-500 ms) between sentences and longer pauses (500-800 ms) between sections. Write every pause as a whole number of milliseconds, for example <break time="300ms"/>.
- Pacing is "%[3]s": prefer <prosody rate="%[4]s"> and use slow, medium or fast relative rates consistently with it.
- Close every element you open. Put all spoken text inside a <voice> element.
- Do not include any text outside the <speak> root.
- Do not wrap the SSML in markdown or code fences.

Here is the article:

<<<ARTICLE
%[6]s
ARTICLE>>>

Generate the SSML with two speakers and stylistic elements.
`

// Build возвращает промпт для статьи. Пустая статья: ошибка валидации.
func Build(article string, opts Options) (string, error) {
	text := strings.TrimSpace(fenceRun.ReplaceAllString(article, ""))
	if text == "" {
		return "", apperr.Validation("prompt", "article text is empty")
	}
	o := opts.withDefaults()
	if o.VoiceA == o.VoiceB {
		return "", apperr.Validationf("prompt", "voices must differ, got %q twice", o.VoiceA)
	}
	rate, ok := rates[o.Pacing]
	if !ok {
		// незнакомое значение передаём модели как есть
		rate = o.Pacing
	}
	return fmt.Sprintf(template, o.VoiceA, o.VoiceB, o.Pacing, rate, o.Lang, text), nil
}

// langOf достаёт локаль из идентификатора голоса вида en-IN-NeerjaNeural.
func langOf(voice string) string {
	parts := strings.SplitN(voice, "-", 3)
	if len(parts) < 3 {
		return "en-US"
	}
	return parts[0] + "-" + parts[1]
}
