package player

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type recorder struct {
	format string
	data   string
}

func (r *recorder) Play(format string, rc io.ReadCloser) error {
	defer rc.Close()
	b, err := io.ReadAll(rc)
	r.format, r.data = format, string(b)
	return err
}

func TestPlayFileUsesExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "episode.MP3")
	if err := os.WriteFile(path, []byte("ID3"), 0o644); err != nil {
		t.Fatal(err)
	}
	rec := &recorder{}
	if err := PlayFile(rec, path); err != nil {
		t.Fatal(err)
	}
	if rec.format != "mp3" || rec.data != "ID3" {
		t.Errorf("played %q %q", rec.format, rec.data)
	}
}

func TestDefaultRejectsUnknownFormat(t *testing.T) {
	err := New().Play("ogg", io.NopCloser(strings.NewReader("")))
	if err == nil || !strings.Contains(err.Error(), "unsupported format") {
		t.Errorf("err = %v", err)
	}
}

func TestPlayFileMissing(t *testing.T) {
	if err := PlayFile(&recorder{}, filepath.Join(t.TempDir(), "nope.mp3")); err == nil {
		t.Error("expected error")
	}
}

func TestVolume(t *testing.T) {
	if New().volumeDB != 0 {
		t.Error("default player changes volume")
	}
	if p := NewWithVolume(-6); p.volumeDB != -6 {
		t.Errorf("volume = %v", p.volumeDB)
	}
}
