package rollout

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_Normalize(t *testing.T) {
	cfg := Config{
		Enabled:     true,
		Percentage:  140,
		ForcedUsers: []string{" A@X.com", "", "b@y.com "},
	}.Normalize()

	assert.Equal(t, 100, cfg.Percentage)
	assert.Equal(t, []string{"a@x.com", "b@y.com"}, cfg.ForcedUsers)
	assert.Equal(t, 0, Config{Percentage: -5}.Normalize().Percentage)
	assert.True(t, cfg.IsForced("B@Y.COM"))
	assert.False(t, cfg.IsForced("c@z.com"))
}

func TestConfig_ApplyEnv(t *testing.T) {
	t.Setenv("ROLLOUT_PERCENTAGE", "25")
	t.Setenv("ROLLOUT_FORCED_USERS", "qa@perfprime.it,Owner@PerfPrime.it")

	cfg, err := Config{Enabled: true, Percentage: 80}.ApplyEnv()
	require.NoError(t, err)

	assert.True(t, cfg.Enabled, "unset variable keeps file value")
	assert.Equal(t, 25, cfg.Percentage)
	assert.Equal(t, []string{"qa@perfprime.it", "owner@perfprime.it"}, cfg.ForcedUsers)
}

func TestConfig_ApplyEnvInvalid(t *testing.T) {
	t.Setenv("ROLLOUT_PERCENTAGE", "half")
	_, err := Config{}.ApplyEnv()
	assert.Error(t, err)
}

func writeRolloutFile(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rollout.yaml")
	t.Setenv("QA_EMAIL", "qa@perfprime.it")
	writeRolloutFile(t, path, "enabled: true\npercentage: 10\nforced_users:\n  - ${QA_EMAIL}\n")

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, Config{Enabled: true, Percentage: 10, ForcedUsers: []string{"qa@perfprime.it"}}, cfg)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestWatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rollout.yaml")
	writeRolloutFile(t, path, "enabled: true\npercentage: 10\n")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	updates := make(chan Config, 4)
	logger := zerolog.New(io.Discard)
	err := Watch(ctx, path, 10*time.Millisecond, &logger, func(c Config) { updates <- c })
	require.NoError(t, err)

	first := <-updates
	assert.Equal(t, 10, first.Percentage)

	writeRolloutFile(t, path, "enabled: true\npercentage: 60\n")
	future := time.Now().Add(time.Minute)
	require.NoError(t, os.Chtimes(path, future, future))

	select {
	case c := <-updates:
		assert.Equal(t, 60, c.Percentage)
	case <-time.After(2 * time.Second):
		t.Fatal("config change not picked up")
	}
}

// lineWriter hands each log line to the test goroutine.
type lineWriter chan string

func (w lineWriter) Write(p []byte) (int, error) {
	w <- string(p)
	return len(p), nil
}

func TestWatch_InvalidChangeIsLoggedAndSkipped(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rollout.yaml")
	writeRolloutFile(t, path, "enabled: true\npercentage: 10\n")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	lines := make(lineWriter, 16)
	logger := zerolog.New(lines)
	updates := make(chan Config, 4)
	require.NoError(t, Watch(ctx, path, 10*time.Millisecond, &logger, func(c Config) { updates <- c }))
	<-updates

	writeRolloutFile(t, path, "enabled: [true\n")
	future := time.Now().Add(time.Minute)
	require.NoError(t, os.Chtimes(path, future, future))

	select {
	case line := <-lines:
		assert.Contains(t, line, `"level":"warn"`)
		assert.Contains(t, line, "reload rollout config")
	case <-time.After(2 * time.Second):
		t.Fatal("invalid config change not logged")
	}
	select {
	case c := <-updates:
		t.Fatalf("unexpected update %+v", c)
	case <-time.After(50 * time.Millisecond):
	}

	writeRolloutFile(t, path, "enabled: true\npercentage: 70\n")
	later := future.Add(time.Minute)
	require.NoError(t, os.Chtimes(path, later, later))

	select {
	case c := <-updates:
		assert.Equal(t, 70, c.Percentage)
	case <-time.After(2 * time.Second):
		t.Fatal("valid config change not picked up")
	}
}
