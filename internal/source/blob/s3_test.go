package blob

import (
	"strings"
	"testing"
)

func TestS3Store_ImplementsStore(t *testing.T) {
	var _ Store = (*S3Store)(nil)
}

func TestNewS3_RequiresBucket(t *testing.T) {
	if _, err := NewS3(S3Config{Region: "us-east-1"}); err == nil {
		t.Error("expected error without bucket")
	}
}

func TestS3Store_Key(t *testing.T) {
	tests := []struct {
		prefix string
		path   string
		want   string
	}{
		{"", "signals.xlsx", "signals.xlsx"},
		{"sheets", "signals.xlsx", "sheets/signals.xlsx"},
		{"sheets/", "signals.xlsx", "sheets/signals.xlsx"},
	}

	for _, tt := range tests {
		s := &S3Store{prefix: strings.TrimSuffix(tt.prefix, "/")}
		got := s.key(tt.path)
		if got != tt.want {
			t.Errorf("key(%q) with prefix %q = %q, want %q", tt.path, tt.prefix, got, tt.want)
		}
		if back := s.relative(got); back != tt.path {
			t.Errorf("relative(%q) = %q, want %q", got, back, tt.path)
		}
	}
}
