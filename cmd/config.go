package main

import (
	"fmt"
	"time"
)

type Config struct {
	BufferSize           int           `env:"BUFFER_SIZE,required=true"`
	ConnectionBufferSize int           `env:"CONNECTION_BUFFER_SIZE,required=true"`
	MaskCharacter        string        `env:"MODERATION_CHARACTER_REPLACEMENT,default=*"`
	CensoredWordsPath    string        `env:"CENSORED_WORDS_FILEPATH"`
	LimitMessages        *int          `env:"LIMIT_MESSAGES"`
	SinkTimeout          time.Duration `env:"SINK_TIMEOUT,required=true"`
	RestartInterval      time.Duration `env:"RESTART_INTERVAL,required=true"`
	PresenceCooldown     time.Duration `env:"PRESENCE_COOLDOWN,default=10s"`
	MetricInterval       time.Duration `env:"METRIC_INTERVAL,default=15s"`
	BadgerFilepath       string        `env:"BADGER_FILEPATH,required=true"`
	BlobDir              string        `env:"BLOB_DIR,required=true"`
	BlobBaseURL          string        `env:"BLOB_BASE_URL,default=/media"`
	JWTSecret            string        `env:"JWT_SECRET,required=true"`
	LogLevel             string        `env:"LOG_LEVEL,required=true"`
	Host                 string        `env:"HOST,default=localhost"`
	Port                 int           `env:"PORT,default=8080"`
}

func (c Config) MaskRune() (rune, error) {
	r := []rune(c.MaskCharacter)
	if len(r) != 1 {
		return 0, fmt.Errorf(
			"MODERATION_CHARACTER_REPLACEMENT must be a single character, got %q",
			c.MaskCharacter,
		)
	}
	return r[0], nil
}
