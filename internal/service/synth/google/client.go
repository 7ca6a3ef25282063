// Package google: синтез через Google Cloud Text-to-Speech.
package google

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"Newspods/internal/apperr"
	"Newspods/internal/config"
	"Newspods/internal/service/synth"
	"Newspods/internal/ssml"

	gctts "cloud.google.com/go/texttospeech/apiv1"
	ttspb "cloud.google.com/go/texttospeech/apiv1/texttospeechpb"
	"go.uber.org/zap"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/grpc/status"
)

const scope = "https://www.googleapis.com/auth/cloud-platform"

// Client реализует synth.Backend и synth.VoiceLister. SDK-клиент создаётся на каждый вызов
// с учётными данными из CredentialsPath, глобальное состояние ADC не используется.
type Client struct {
	cfg    config.GoogleTTSConfig
	logger *zap.SugaredLogger
	opts   []option.ClientOption // если заданы, заменяют учётные данные из файла
}

func New(cfg config.GoogleTTSConfig, logger *zap.SugaredLogger) *Client {
	return &Client{cfg: cfg, logger: logger}
}

// WithClientOptions задаёт опции SDK вместо файла учётных данных (эмулятор, тесты).
func (c *Client) WithClientOptions(opts ...option.ClientOption) *Client {
	c.opts = opts
	return c
}

func (c *Client) Name() string { return "google" }

func (c *Client) CheckConfig() error { return c.cfg.Check() }

func (c *Client) clientOptions(ctx context.Context) ([]option.ClientOption, error) {
	if len(c.opts) > 0 {
		return c.opts, nil
	}
	data, err := os.ReadFile(c.cfg.CredentialsPath)
	if err != nil {
		return nil, apperr.Configuration("google tts", "read credentials: "+err.Error())
	}
	creds, err := google.CredentialsFromJSON(ctx, data, scope)
	if err != nil {
		return nil, apperr.Configuration("google tts", "parse credentials: "+err.Error())
	}
	return []option.ClientOption{option.WithCredentials(creds)}, nil
}

func (c *Client) newTTSClient(ctx context.Context) (*gctts.Client, error) {
	opts, err := c.clientOptions(ctx)
	if err != nil {
		return nil, err
	}
	tc, err := gctts.NewClient(ctx, opts...)
	if err != nil {
		return nil, apperr.Upstream("google tts", err.Error(), err)
	}
	// один запрос на документ: политика повторов SDK по Unavailable отключена
	tc.CallOptions.SynthesizeSpeech = nil
	tc.CallOptions.ListVoices = nil
	return tc, nil
}

// Synthesize отправляет документ в диалекте Google: mstts:express-as снимается,
// голоса берутся из элементов <voice>.
func (c *Client) Synthesize(ctx context.Context, doc *ssml.Document, format synth.AudioFormat) ([]byte, error) {
	if err := c.CheckConfig(); err != nil {
		return nil, err
	}
	audio, err := audioConfig(format, c.cfg)
	if err != nil {
		return nil, err
	}

	ttsClient, err := c.newTTSClient(ctx)
	if err != nil {
		return nil, err
	}
	defer ttsClient.Close()

	lang := c.cfg.Language
	if doc.Lang != "" {
		lang = doc.Lang
	}
	req := &ttspb.SynthesizeSpeechRequest{
		Input: &ttspb.SynthesisInput{InputSource: &ttspb.SynthesisInput_Ssml{Ssml: doc.Render(ssml.DialectGoogle)}},
		Voice: &ttspb.VoiceSelectionParams{
			LanguageCode: lang,
			Name:         firstVoice(doc),
		},
		AudioConfig: audio,
	}
	started := time.Now()
	resp, err := ttsClient.SynthesizeSpeech(ctx, req)
	if err != nil {
		return nil, grpcError("google tts", err)
	}
	if c.logger != nil {
		c.logger.Infow("Google TTS synthesize completed",
			"encoding", audio.AudioEncoding.String(),
			"bytes", len(resp.GetAudioContent()),
			"took", time.Since(started).String(),
		)
	}
	return resp.GetAudioContent(), nil
}

// ListVoices возвращает голоса для локали через SDK.
func (c *Client) ListVoices(ctx context.Context, locale string) ([]synth.Voice, error) {
	if err := c.CheckConfig(); err != nil {
		return nil, err
	}
	ttsClient, err := c.newTTSClient(ctx)
	if err != nil {
		return nil, err
	}
	defer ttsClient.Close()

	resp, err := ttsClient.ListVoices(ctx, &ttspb.ListVoicesRequest{LanguageCode: locale})
	if err != nil {
		return nil, grpcError("google voices", err)
	}
	out := make([]synth.Voice, 0, len(resp.GetVoices()))
	for _, v := range resp.GetVoices() {
		out = append(out, synth.Voice{
			Name:   v.GetName(),
			Locale: strings.Join(v.GetLanguageCodes(), ","),
			Gender: v.GetSsmlGender().String(),
		})
	}
	return out, nil
}

func audioConfig(f synth.AudioFormat, cfg config.GoogleTTSConfig) (*ttspb.AudioConfig, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	ac := &ttspb.AudioConfig{
		SampleRateHertz: int32(f.SampleRateHz),
		SpeakingRate:    cfg.SpeakingRate,
		Pitch:           cfg.Pitch,
		VolumeGainDb:    cfg.VolumeGainDb,
	}
	switch f.Codec {
	case "mp3":
		ac.AudioEncoding = ttspb.AudioEncoding_MP3
	case "wav":
		// LINEAR16 приходит с WAV-заголовком
		ac.AudioEncoding = ttspb.AudioEncoding_LINEAR16
	case "ogg":
		ac.AudioEncoding = ttspb.AudioEncoding_OGG_OPUS
	default:
		return nil, apperr.Configuration("google tts", fmt.Sprintf("unsupported codec %q", f.Codec))
	}
	if ep := strings.TrimSpace(cfg.EffectsProfileID); ep != "" {
		ac.EffectsProfileId = []string{ep}
	}
	return ac, nil
}

func firstVoice(doc *ssml.Document) string {
	if vs := doc.Voices(); len(vs) > 0 {
		return vs[0]
	}
	return ""
}

// grpcError сохраняет сообщение сервиса как причину.
func grpcError(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return apperr.Upstream(op, err.Error(), err)
	}
	if st, ok := status.FromError(err); ok {
		return apperr.Upstream(op, st.Code().String()+": "+st.Message(), err)
	}
	return apperr.Upstream(op, err.Error(), err)
}
