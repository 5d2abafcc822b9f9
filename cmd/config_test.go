package main

import (
	"testing"

	"github.com/Netflix/go-env"
	"github.com/stretchr/testify/require"
)

func setRequiredVars(t *testing.T) {
	t.Helper()
	t.Setenv("BUFFER_SIZE", "1000")
	t.Setenv("CONNECTION_BUFFER_SIZE", "256")
	t.Setenv("SINK_TIMEOUT", "3s")
	t.Setenv("RESTART_INTERVAL", "1s")
	t.Setenv("BADGER_FILEPATH", t.TempDir())
	t.Setenv("BLOB_DIR", t.TempDir())
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("LOG_LEVEL", "INFO")
}

func TestConfig(t *testing.T) {
	t.Run("should parse with only the required variables set", func(t *testing.T) {
		req := require.New(t)
		setRequiredVars(t)

		var config Config
		_, err := env.UnmarshalFromEnviron(&config)

		req.NoError(err)
		mask, err := config.MaskRune()
		req.NoError(err)
		req.Equal('*', mask)
	})

	t.Run("should accept a configured single-character mask", func(t *testing.T) {
		req := require.New(t)
		setRequiredVars(t)
		t.Setenv("MODERATION_CHARACTER_REPLACEMENT", "#")

		var config Config
		_, err := env.UnmarshalFromEnviron(&config)

		req.NoError(err)
		mask, err := config.MaskRune()
		req.NoError(err)
		req.Equal('#', mask)
	})

	t.Run("should refuse a multi-character mask", func(t *testing.T) {
		req := require.New(t)
		setRequiredVars(t)
		t.Setenv("MODERATION_CHARACTER_REPLACEMENT", "**")

		var config Config
		_, err := env.UnmarshalFromEnviron(&config)

		req.NoError(err)
		_, err = config.MaskRune()
		req.Error(err)
	})
}
