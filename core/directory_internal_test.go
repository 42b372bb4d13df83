package core

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEnabledFromEnv(t *testing.T) {
	tests := []struct {
		name  string
		value string
		set   bool
		want  bool
	}{
		{"unset", "", false, true},
		{"empty", "", true, true},
		{"true", "true", true, true},
		{"one", "1", true, true},
		{"false", "false", true, false},
		{"zero", "0", true, false},
		{"upper FALSE", "FALSE", true, false},
		{"unparsable", "sometimes", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.set {
				t.Setenv(EnvEnable, tt.value)
			} else {
				// Setenv first so the original value is restored afterwards.
				t.Setenv(EnvEnable, "")
				if err := os.Unsetenv(EnvEnable); err != nil {
					t.Fatal(err)
				}
			}
			assert.Equal(t, tt.want, enabledFromEnv())
		})
	}
}
