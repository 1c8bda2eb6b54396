package report

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPreflight_ExistingFileWithoutOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "uptime.csv")
	require.NoError(t, os.WriteFile(path, []byte("Computer\n"), 0o644))

	err := Preflight(path, false)
	require.Error(t, err, "existing report without overwrite must abort the run")

	// the file is untouched
	data, readErr := os.ReadFile(path)
	require.NoError(t, readErr)
	assert.Equal(t, "Computer\n", string(data))
}

func TestPreflight_OverwriteRemoves(t *testing.T) {
	path := filepath.Join(t.TempDir(), "uptime.csv")
	require.NoError(t, os.WriteFile(path, []byte("stale"), 0o644))

	require.NoError(t, Preflight(path, true))

	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestPreflight_MissingFileAndEmptyPath(t *testing.T) {
	assert.NoError(t, Preflight(filepath.Join(t.TempDir(), "new.csv"), false))
	assert.NoError(t, Preflight("", false))
}

func readAll(t *testing.T, path string) [][]string {
	t.Helper()

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)

	return rows
}

func TestCSVWriter_HeaderOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "admins.csv")

	w, err := NewCSVWriter(path, LocalAdminHeader)
	require.NoError(t, err)
	require.NoError(t, w.Write([]string{"ws01", "Online", "Administrator; CORP\\Domain Admins"}))
	require.NoError(t, w.Close())

	// reopening appends without a second header
	w, err = NewCSVWriter(path, LocalAdminHeader)
	require.NoError(t, err)
	require.NoError(t, w.Write([]string{"ws02", "Offline", ""}))
	require.NoError(t, w.Close())

	rows := readAll(t, path)
	require.Len(t, rows, 3)
	assert.Equal(t, LocalAdminHeader, rows[0])
	assert.Equal(t, "ws01", rows[1][0])
	assert.Equal(t, "ws02", rows[2][0])
}

func TestCSVWriter_PartialFileReadable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "uptime.csv")

	w, err := NewCSVWriter(path, UptimeHeader)
	require.NoError(t, err)
	require.NoError(t, w.Write([]string{"ws01", "Online", "2026-08-29T06:00:00Z", "1d 0h 0m"}))

	// rows are flushed per write: readable before Close
	rows := readAll(t, path)
	require.Len(t, rows, 2)

	require.NoError(t, w.Close())
}

func TestFormatUptime(t *testing.T) {
	assert.Equal(t, "1d 0h 0m", FormatUptime(24*time.Hour))
	assert.Equal(t, "0d 4h 30m", FormatUptime(4*time.Hour+30*time.Minute))
	assert.Equal(t, "3d 2h 5m", FormatUptime(74*time.Hour+5*time.Minute))
	assert.Equal(t, "0d 0h 0m", FormatUptime(-time.Hour))
}

func TestJoinMembers(t *testing.T) {
	assert.Equal(t, "a; b", JoinMembers([]string{"a", "b"}))
	assert.Equal(t, "", JoinMembers(nil))
}
