// Package player проигрывает готовый выпуск локально.
package player

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/effects"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/speaker"
	"github.com/faiface/beep/wav"
)

// Player воспроизводит аудио потоком в зависимости от формата.
type Player interface {
	Play(format string, r io.ReadCloser) error
}

// Default реализует Player и поддерживает mp3 и wav.
type Default struct{ volumeDB float64 }

// New создаёт плеер без изменения громкости (0 dB).
func New() *Default { return &Default{volumeDB: 0} }

// NewWithVolume создаёт плеер с громкостью в dB (отрицательные тише).
func NewWithVolume(db float64) *Default { return &Default{volumeDB: db} }

func (d *Default) Play(format string, r io.ReadCloser) error {
	var (
		streamer beep.StreamSeekCloser
		f        beep.Format
		err      error
	)
	switch strings.ToLower(format) {
	case "wav":
		streamer, f, err = wav.Decode(r)
	case "mp3":
		streamer, f, err = mp3.Decode(r)
	default:
		_ = r.Close()
		return fmt.Errorf("player: unsupported format %q for playback; use mp3 or wav", format)
	}
	if err != nil {
		return fmt.Errorf("player: decode %s: %w", format, err)
	}
	defer streamer.Close()

	if err := speaker.Init(f.SampleRate, f.SampleRate.N(time.Second/10)); err != nil {
		return fmt.Errorf("player: init speaker: %w", err)
	}
	vol := &effects.Volume{Streamer: streamer, Base: 2, Volume: d.volumeDB}
	done := make(chan struct{})
	speaker.Play(beep.Seq(vol, beep.Callback(func() { close(done) })))
	<-done
	return nil
}

// PlayFile открывает файл и проигрывает его; формат берётся из расширения.
func PlayFile(p Player, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("player: %w", err)
	}
	// декодер закрывает reader сам, повторный Close безвреден
	defer f.Close()
	return p.Play(FormatOf(path), f)
}

func FormatOf(path string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
}
