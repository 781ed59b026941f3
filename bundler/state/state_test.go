package state

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetAndGetStatus(t *testing.T) {
	dir := t.TempDir()

	assert.Equal(t, StatusIdle, GetStatus(dir).Status, "missing file reads as idle")

	require.NoError(t, SetStatus(dir, StatusBuilding, nil))
	s := GetStatus(dir)
	assert.Equal(t, StatusBuilding, s.Status)
	require.NotNil(t, s.Since)
	assert.WithinDuration(t, time.Now(), *s.Since, 5*time.Second)

	require.NoError(t, SetStatus(dir, StatusIdle, errors.New("file not found: js/Gone.js")))
	s = GetStatus(dir)
	assert.Equal(t, StatusIdle, s.Status)
	assert.Nil(t, s.Since)
	assert.Equal(t, "file not found: js/Gone.js", s.LastError)
}

func TestGetStatusInvalidJSON(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, statusFileName), []byte("invalid json"), 0644))
	assert.Equal(t, StatusIdle, GetStatus(dir).Status)
}

func TestSetStatusDirNotExist(t *testing.T) {
	assert.Error(t, SetStatus(filepath.Join(t.TempDir(), "missing"), StatusIdle, nil))
}

func TestInitWritesGitignore(t *testing.T) {
	dir := filepath.Join(t.TempDir(), ".mrequires")
	require.NoError(t, Init(dir))
	require.NoError(t, Init(dir))

	data, err := os.ReadFile(filepath.Join(dir, ".gitignore"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "watch.lock")
	assert.Contains(t, string(data), "status.json")
	assert.Contains(t, string(data), ".history")
}

func TestTryLock(t *testing.T) {
	dir := t.TempDir()

	lock1, err := TryLock(dir)
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, lockFileName))
	require.NoError(t, err)
	assert.NotEmpty(t, data, "lock file should hold the PID")

	lock2, err := TryLock(dir)
	if err == nil {
		Unlock(lock2)
		t.Fatal("second lock should have failed")
	}
	assert.ErrorIs(t, err, ErrLocked)

	Unlock(lock1)
	lock3, err := TryLock(dir)
	require.NoError(t, err)
	Unlock(lock3)
}

func TestUnlockNil(t *testing.T) {
	assert.NotPanics(t, func() { Unlock(nil) })
}

func TestPrintBanner(t *testing.T) {
	var buf bytes.Buffer
	PrintBanner(&buf, BannerOptions{
		WorkDir: "/test/path",
		Version: "1.0.0",
		Lines:   []string{"serving on :8080"},
	})

	out := buf.String()
	assert.Contains(t, out, "1.0.0")
	assert.Contains(t, out, "/test/path")
	assert.Contains(t, out, "serving on :8080")
	assert.Contains(t, out, "╭")
}

func TestPrintBannerLongPath(t *testing.T) {
	var buf bytes.Buffer
	long := "/very/long/path/that/might/need/truncation/to/fit/in/the/banner/display/properly/test"
	PrintBanner(&buf, BannerOptions{WorkDir: long, Version: "dev"})
	assert.Contains(t, buf.String(), "...")
	assert.NotContains(t, buf.String(), long)
}

func TestCompactAndMinimalBanner(t *testing.T) {
	var buf bytes.Buffer
	printCompactBanner(&buf, BannerOptions{WorkDir: "/w", Version: "v1"}, "")
	assert.Contains(t, buf.String(), "mrequires")
	assert.Contains(t, buf.String(), "/w")

	buf.Reset()
	printMinimalBanner(&buf, BannerOptions{Version: "v1"}, "hi")
	assert.Equal(t, 2, strings.Count(buf.String(), "\n"))
}

func TestGetGreeting(t *testing.T) {
	assert.Contains(t, getGreeting(time.Date(2026, 1, 3, 12, 0, 0, 0, time.UTC)), "Happy New Year")
	assert.Contains(t, getGreeting(time.Date(2026, 6, 3, 3, 0, 0, 0, time.UTC)), "late")
	assert.Empty(t, getGreeting(time.Date(2026, 6, 3, 12, 0, 0, 0, time.UTC)))
}

func TestTruncatePath(t *testing.T) {
	assert.Equal(t, "/short", truncatePath("/short", 20))
	got := truncatePath("/a/very/long/path/here", 12)
	assert.Equal(t, "...path/here", got)
	assert.LessOrEqual(t, runeWidth(got), 12)
}
