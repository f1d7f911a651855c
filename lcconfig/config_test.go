package lcconfig

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTemp(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "lumencore.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoadAppliesDefaultsWhenFieldsOmitted(t *testing.T) {
	path := writeTemp(t, "point_count: 200\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 200, cfg.PointCount)
	assert.Equal(t, 60.0, cfg.FrameRate)
	assert.Equal(t, 120.0, cfg.Tempo.BPM)
	assert.Equal(t, 60, cfg.Persistence.AutosaveSecs)
}

func TestLoadExpandsEnvironmentVariables(t *testing.T) {
	require.NoError(t, os.Setenv("LUMENCORE_TEST_PROJECT", "/tmp/show.yaml"))
	defer os.Unsetenv("LUMENCORE_TEST_PROJECT")

	path := writeTemp(t, "point_count: 100\npersistence:\n  project_path: ${LUMENCORE_TEST_PROJECT}\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/show.yaml", cfg.Persistence.ProjectPath)
}

func TestLoadRejectsNonPositivePointCount(t *testing.T) {
	path := writeTemp(t, "point_count: 0\n")

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadRejectsMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	assert.Error(t, err)
}

func TestFrameIntervalDefaultsTo60fps(t *testing.T) {
	cfg := &Config{}
	assert.Equal(t, time.Second/60, cfg.FrameInterval())
}

func TestFrameIntervalHonorsConfiguredRate(t *testing.T) {
	cfg := &Config{FrameRate: 30}
	assert.Equal(t, time.Second/30, cfg.FrameInterval())
}

func TestTapWindowDurationParsesOrDefaults(t *testing.T) {
	assert.Equal(t, 2*time.Second, (&TempoConfig{}).TapWindowDuration())

	tc := &TempoConfig{TapWindow: "500ms"}
	assert.Equal(t, 500*time.Millisecond, tc.TapWindowDuration())

	bad := &TempoConfig{TapWindow: "not-a-duration"}
	assert.Equal(t, 2*time.Second, bad.TapWindowDuration())
}
