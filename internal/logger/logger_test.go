package logger

import "testing"

func TestSanitizeKVs_RedactsAndHashes(t *testing.T) {
	out := sanitizeKVs([]interface{}{
		"api_key", "sk-123",
		"owner", uint64(7),
		"query", "hello",
	})
	if len(out) != 6 {
		t.Fatalf("expected 6 items, got %d", len(out))
	}
	if out[1] != "[REDACTED]" {
		t.Fatalf("api_key not redacted: %v", out[1])
	}
	h, ok := out[3].(string)
	if !ok || len(h) != len("hash:")+12 {
		t.Fatalf("owner not hashed: %v", out[3])
	}
	if out[5] != "hello" {
		t.Fatalf("plain value changed: %v", out[5])
	}
}

func TestSanitizeKVs_OddLength(t *testing.T) {
	out := sanitizeKVs([]interface{}{"a", 1, "dangling"})
	if len(out) != 3 || out[2] != "dangling" {
		t.Fatalf("unexpected output: %v", out)
	}
}

func TestNop(t *testing.T) {
	l := Nop().With("service", "test")
	l.Info("nothing happens", "k", "v")
}
