package main

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/comitanigiacomo/regen-engine/internal/app"
	"github.com/comitanigiacomo/regen-engine/internal/config"
)

var errNoDatabase = errors.New("no database in tests")

func run(t *testing.T, args ...string) (opened bool, err error) {
	t.Helper()
	t.Setenv("APP_ENV", "development")

	root := newRootCmd(func(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*app.App, error) {
		opened = true
		require.NotNil(t, cfg)
		require.NotNil(t, logger)
		return nil, errNoDatabase
	})
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs(append(args, "--env", filepath.Join(t.TempDir(), "missing.env")))

	err = root.ExecuteContext(context.Background())
	return opened, err
}

func TestCommands_ValidateBeforeOpening(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"backfill needs a user and a range", []string{"backfill", "--from", "2026-01-01"}, "required flag"},
		{"backfill rejects malformed days", []string{"backfill", "--user", "u1", "--from", "2026-01-01", "--to", "Jan 5"}, "YYYY-MM-DD"},
		{"recompute rejects malformed days", []string{"recompute", "--date", "2026-13-01"}, "YYYY-MM-DD"},
		{"unknown command", []string{"migrate"}, "unknown command"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opened, err := run(t, tt.args...)

			require.Error(t, err)
			assert.ErrorContains(t, err, tt.wantErr)
			assert.False(t, opened)
		})
	}
}

func TestCommands_OpenTheApplication(t *testing.T) {
	cases := [][]string{
		{"recompute"},
		{"recompute", "--date", "2026-03-01", "--user", "u1"},
		{"backfill", "--user", "u1", "--from", "2026-03-01", "--to", "2026-03-07", "--force"},
		{"maintenance"},
		{"seed-catalog"},
	}

	for _, args := range cases {
		t.Run(args[0], func(t *testing.T) {
			opened, err := run(t, args...)

			assert.True(t, opened)
			assert.ErrorIs(t, err, errNoDatabase)
		})
	}
}

func TestCommands_ConfigErrorsStopEarly(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("JWT_SECRET", "")

	root := newRootCmd(func(context.Context, *config.Config, *zap.Logger) (*app.App, error) {
		t.Fatal("application must not be opened with an invalid config")
		return nil, nil
	})
	root.SetArgs([]string{"maintenance", "--env", filepath.Join(t.TempDir(), "missing.env")})

	assert.ErrorContains(t, root.Execute(), "JWT_SECRET")
}
