package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	RosterPath    string
	OutputDir     string
	CallTimeout   time.Duration
	Seed          int64
	SpectatorAddr string
}

func Load() (*Config, error) {
	rosterPath := os.Getenv("WEREWOLF_ROSTER")
	if rosterPath == "" {
		rosterPath = "players.yaml"
	}

	outputDir := os.Getenv("WEREWOLF_OUTPUT_DIR")
	if outputDir == "" {
		outputDir = "output"
	}

	timeout, err := envDuration("WEREWOLF_CALL_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}
	if timeout <= 0 {
		return nil, fmt.Errorf("config: CallTimeout must be > 0, got %s", timeout)
	}

	seed, err := envInt64("WEREWOLF_SEED", 0)
	if err != nil {
		return nil, err
	}

	return &Config{
		RosterPath:    rosterPath,
		OutputDir:     outputDir,
		CallTimeout:   timeout,
		Seed:          seed,
		SpectatorAddr: os.Getenv("WEREWOLF_SPECTATOR_ADDR"),
	}, nil
}

// LoadDotEnv loads variables from path without overriding the environment.
// A missing file is not an error.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("config: loading .env: %w", err)
	}
	return nil
}

func envDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal, nil
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("config: invalid %s value %q: %w", key, s, err)
	}
	return v, nil
}

func envInt64(key string, defaultVal int64) (int64, error) {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal, nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("config: invalid %s value %q: %w", key, s, err)
	}
	return v, nil
}
