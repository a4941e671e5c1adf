package main

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConsentFromFlags(t *testing.T) {
	tests := []struct {
		name                string
		args                []string
		wantPersonalization bool
		wantDataSharing     bool
	}{
		{
			name:                "defaults",
			args:                []string{},
			wantPersonalization: true,
			wantDataSharing:     false,
		},
		{
			name:                "personalization withheld",
			args:                []string{"--no-personalization"},
			wantPersonalization: false,
			wantDataSharing:     false,
		},
		{
			name:                "data sharing granted",
			args:                []string{"--allow-data-sharing"},
			wantPersonalization: true,
			wantDataSharing:     true,
		},
		{
			name:                "both flipped",
			args:                []string{"--no-personalization", "--allow-data-sharing"},
			wantPersonalization: false,
			wantDataSharing:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := &cobra.Command{Use: "test"}
			addRunFlags(cmd)
			require.NoError(t, cmd.ParseFlags(tt.args))

			consent := consentFromFlags(cmd)

			assert.Equal(t, tt.wantPersonalization, consent.Personalization)
			assert.Equal(t, tt.wantDataSharing, consent.DataSharing)
			assert.Equal(t, "none", consent.CreditPull)
		})
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		name  string
		input string
		max   int
		want  string
	}{
		{
			name:  "short string unchanged",
			input: "miles card",
			max:   40,
			want:  "miles card",
		},
		{
			name:  "exact length unchanged",
			input: "abcde",
			max:   5,
			want:  "abcde",
		},
		{
			name:  "long string gets ellipsis",
			input: "a card that earns airline miles on every purchase",
			max:   20,
			want:  "a card that earns...",
		},
		{
			name:  "tiny max skips ellipsis",
			input: "abcdef",
			max:   2,
			want:  "ab",
		},
		{
			name:  "multibyte runes counted as one",
			input: "💳💳💳💳",
			max:   10,
			want:  "💳💳💳💳",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, truncate(tt.input, tt.max))
		})
	}
}
