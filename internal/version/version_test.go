package version

import "testing"

func TestUserAgent(t *testing.T) {
	origV, origC := Version, Commit
	t.Cleanup(func() { Version, Commit = origV, origC })

	tests := []struct {
		version, commit, want string
	}{
		{"dev", "unknown", "flagdeck/dev"},
		{"v1.2.0", "abc", "flagdeck/v1.2.0"},
		{"v1.2.0", "0123456789abcdef", "flagdeck/v1.2.0 (0123456)"},
	}
	for _, tt := range tests {
		Version, Commit = tt.version, tt.commit
		if got := UserAgent(); got != tt.want {
			t.Errorf("UserAgent() with %s/%s = %q, want %q", tt.version, tt.commit, got, tt.want)
		}
	}
}
