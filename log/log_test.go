package log

import (
	"testing"

	"github.com/rs/zerolog"
)

func TestSetLevel(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)

	tests := []struct {
		level    string
		expected zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"WARN", zerolog.WarnLevel},
		{" error ", zerolog.ErrorLevel},
		{"", zerolog.InfoLevel},
		{"verbose", zerolog.InfoLevel},
	}

	for _, test := range tests {
		t.Run(test.level, func(t *testing.T) {
			if got := SetLevel(test.level); got != test.expected {
				t.Errorf("unexpected level: %s", got)
			}

			if zerolog.GlobalLevel() != test.expected {
				t.Errorf("unexpected global level: %s", zerolog.GlobalLevel())
			}
		})
	}
}
