package apperr

import (
	"errors"
	"fmt"
	"io/fs"
	"testing"
)

func TestKindsMatchThroughWrapping(t *testing.T) {
	cases := []struct {
		err  error
		kind error
		code int
	}{
		{Configuration("azure speech", "missing AZURE_SPEECH_KEY"), ErrConfiguration, 2},
		{Validationf("ssml", "line %d: bad", 3), ErrValidation, 3},
		{UpstreamStatus("azure speech", 429, "Quota exceeded"), ErrUpstream, 4},
		{IO("synth", fs.ErrPermission), ErrIO, 5},
	}
	for _, tc := range cases {
		wrapped := fmt.Errorf("run: %w", tc.err)
		if !errors.Is(wrapped, tc.kind) {
			t.Errorf("%v is not %v", wrapped, tc.kind)
		}
		if got := ExitCode(wrapped); got != tc.code {
			t.Errorf("ExitCode(%v) = %d, want %d", wrapped, got, tc.code)
		}
	}
	if ExitCode(nil) != 0 || ExitCode(errors.New("x")) != 1 {
		t.Error("unexpected exit codes for nil/plain errors")
	}
}

func TestIOKeepsCause(t *testing.T) {
	err := IO("synth", fs.ErrPermission)
	if !errors.Is(err, fs.ErrPermission) {
		t.Errorf("cause lost: %v", err)
	}
}

func TestErrorText(t *testing.T) {
	got := UpstreamStatus("azure speech", 400, "SSML parsing error").Error()
	want := "azure speech: upstream error (status=400): SSML parsing error"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
	cause := errors.New("dial tcp: refused")
	if got := Upstream("openai", cause.Error(), cause).Error(); got != "openai: upstream error: dial tcp: refused" {
		t.Errorf("reason repeated: %q", got)
	}
}

func TestReasonAndMissingEnv(t *testing.T) {
	if MissingEnv("storage") != nil {
		t.Error("no names must give nil")
	}
	err := MissingEnv("storage", "B2_KEY_ID", "B2_APP_KEY")
	if Reason(err) != "missing B2_KEY_ID, B2_APP_KEY" || !errors.Is(err, ErrConfiguration) {
		t.Errorf("err = %v", err)
	}
	if Reason(errors.New("plain")) != "" {
		t.Error("plain error has no reason")
	}
}
