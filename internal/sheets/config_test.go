package sheets

import (
	"errors"
	"testing"
	"time"

	"github.com/cardsage/cardsage/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		errMsg  string
		config  Config
		wantErr bool
	}{
		{
			name: "oauth credentials",
			config: Config{
				ClientID:      "test-client",
				ClientSecret:  "test-secret",
				RefreshToken:  "test-token",
				BatchSize:     100,
				RetryAttempts: 3,
				RetryDelay:    time.Second,
			},
			wantErr: false,
		},
		{
			name: "service account",
			config: Config{
				ServiceAccountPath: "/path/to/key.json",
				BatchSize:          100,
			},
			wantErr: false,
		},
		{
			name: "no authentication",
			config: Config{
				BatchSize: 100,
			},
			wantErr: true,
			errMsg:  "no authentication method configured",
		},
		{
			name: "partial oauth credentials",
			config: Config{
				ClientID:      "test-client",
				ClientSecret:  "", // Missing secret
				RefreshToken:  "test-token",
				BatchSize:     100,
				RetryAttempts: 3,
				RetryDelay:    time.Second,
			},
			wantErr: true,
			errMsg:  "no authentication method configured",
		},
		{
			name: "both authentication methods",
			config: Config{
				ClientID:           "test-client",
				ClientSecret:       "test-secret",
				RefreshToken:       "test-token",
				ServiceAccountPath: "/path/to/key.json",
				BatchSize:          100,
			},
			wantErr: true,
			errMsg:  "multiple authentication methods configured",
		},
		{
			name: "zero batch size",
			config: Config{
				ServiceAccountPath: "/path/to/key.json",
				BatchSize:          0,
			},
			wantErr: true,
			errMsg:  "batch size must be positive",
		},
		{
			name: "negative retry attempts",
			config: Config{
				ServiceAccountPath: "/path/to/key.json",
				BatchSize:          100,
				RetryAttempts:      -1,
			},
			wantErr: true,
			errMsg:  "retry attempts cannot be negative",
		},
		{
			name: "zero retry delay is valid",
			config: Config{
				ServiceAccountPath: "/path/to/key.json",
				BatchSize:          100,
				RetryAttempts:      0, // No retries
				RetryDelay:         0, // No delay
			},
			wantErr: false,
		},
		{
			name: "negative retry delay",
			config: Config{
				ServiceAccountPath: "/path/to/key.json",
				BatchSize:          100,
				RetryAttempts:      3,
				RetryDelay:         -1 * time.Second,
			},
			wantErr: true,
			errMsg:  "retry delay cannot be negative",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr {
				assert.Error(t, err)
				if tt.errMsg != "" {
					assert.Contains(t, err.Error(), tt.errMsg)
				}
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfigValidationErrorKinds(t *testing.T) {
	missing := Config{BatchSize: 100}
	err := missing.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrMissingConfig))

	invalid := Config{ServiceAccountPath: "/path/to/key.json", BatchSize: -1}
	err = invalid.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrInvalidConfig))
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.True(t, cfg.EnableFormatting)
	assert.Equal(t, "Asia/Singapore", cfg.TimeZone)
	assert.Equal(t, 500, cfg.BatchSize)
	assert.Equal(t, 3, cfg.RetryAttempts)
	assert.Equal(t, time.Second, cfg.RetryDelay)
}

func TestLoadFromEnv(t *testing.T) {
	clearSheetsEnv := func(t *testing.T) {
		t.Helper()
		for _, key := range []string{
			"GOOGLE_SHEETS_CLIENT_ID",
			"GOOGLE_SHEETS_CLIENT_SECRET",
			"GOOGLE_SHEETS_REFRESH_TOKEN",
			"GOOGLE_SHEETS_SERVICE_ACCOUNT_PATH",
			"GOOGLE_SHEETS_SPREADSHEET_ID",
			"GOOGLE_SHEETS_SPREADSHEET_NAME",
		} {
			t.Setenv(key, "")
		}
	}

	t.Run("oauth credentials", func(t *testing.T) {
		clearSheetsEnv(t)
		t.Setenv("GOOGLE_SHEETS_CLIENT_ID", "env-client")
		t.Setenv("GOOGLE_SHEETS_CLIENT_SECRET", "env-secret")
		t.Setenv("GOOGLE_SHEETS_REFRESH_TOKEN", "env-token")

		cfg := DefaultConfig()
		require.NoError(t, cfg.LoadFromEnv())

		assert.Equal(t, "env-client", cfg.ClientID)
		assert.Equal(t, "env-secret", cfg.ClientSecret)
		assert.Equal(t, "env-token", cfg.RefreshToken)
		assert.Equal(t, "CardSage Reports", cfg.SpreadsheetName)
	})

	t.Run("service account", func(t *testing.T) {
		clearSheetsEnv(t)
		t.Setenv("GOOGLE_SHEETS_SERVICE_ACCOUNT_PATH", "/path/to/key.json")
		t.Setenv("GOOGLE_SHEETS_SPREADSHEET_ID", "sheet-123")
		t.Setenv("GOOGLE_SHEETS_SPREADSHEET_NAME", "My Reports")

		cfg := DefaultConfig()
		require.NoError(t, cfg.LoadFromEnv())

		assert.Equal(t, "/path/to/key.json", cfg.ServiceAccountPath)
		assert.Equal(t, "sheet-123", cfg.SpreadsheetID)
		assert.Equal(t, "My Reports", cfg.SpreadsheetName)
	})

	t.Run("missing credentials", func(t *testing.T) {
		clearSheetsEnv(t)

		cfg := DefaultConfig()
		err := cfg.LoadFromEnv()

		require.Error(t, err)
		assert.Contains(t, err.Error(), "missing Google Sheets authentication")
	})
}
