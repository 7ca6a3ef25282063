package logging

import "testing"

func TestNewAttachesRunID(t *testing.T) {
	for _, debug := range []bool{true, false} {
		zl, sugar, err := New(debug, "test")
		if err != nil {
			t.Fatalf("New(%v): %v", debug, err)
		}
		if zl == nil || sugar == nil {
			t.Fatal("nil logger")
		}
		sugar.Debugw("probe")
		_ = zl.Sync()
	}
}
