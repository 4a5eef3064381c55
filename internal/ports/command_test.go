package ports

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCommandResult_Success(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		exitCode int
		want     bool
	}{
		{name: "zero exit", exitCode: 0, want: true},
		{name: "failure exit", exitCode: 1, want: false},
		{name: "signal exit", exitCode: 137, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, CommandResult{ExitCode: tt.exitCode}.Success())
		})
	}
}
