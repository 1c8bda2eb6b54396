// Package report renders run results as CSV files or console lines.
package report

import (
	"encoding/csv"
	"fmt"
	"os"
	"strings"
	"time"
)

// Per-tool CSV column sets.
var (
	OrphanHeader      = []string{"Object DN", "Finding", "Identity", "Action"}
	UptimeHeader      = []string{"Computer", "Status", "Boot Time", "Up Time"}
	GroupMemberHeader = []string{"Group DN", "Group Scope", "Identity", "Identity Type"}
	LocalAdminHeader  = []string{"Computer", "Status", "Local Administrators"}
)

// Preflight enforces the output-file policy before any directory or machine
// work begins: an existing file without overwrite aborts the whole run; with
// overwrite it is removed so the writer starts fresh.
func Preflight(path string, overwrite bool) error {
	if path == "" {
		return nil
	}

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("checking report path %s: %w", path, err)
	}

	if !overwrite {
		return fmt.Errorf("report file %s already exists (use --overwrite to replace it)", path)
	}

	if err := os.Remove(path); err != nil {
		return fmt.Errorf("removing existing report %s: %w", path, err)
	}

	return nil
}

// CSVWriter appends rows to a report file, flushing after every row so an
// interrupted run still leaves a valid, readable partial file.
type CSVWriter struct {
	file *os.File
	w    *csv.Writer
}

// NewCSVWriter opens path in append mode and writes the header row only when
// the file is empty.
func NewCSVWriter(path string, header []string) (*CSVWriter, error) {
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening report %s: %w", path, err)
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("stat report %s: %w", path, err)
	}

	writer := &CSVWriter{file: file, w: csv.NewWriter(file)}

	if info.Size() == 0 {
		if err := writer.Write(header); err != nil {
			file.Close()
			return nil, err
		}
	}

	return writer, nil
}

func (c *CSVWriter) Write(row []string) error {
	if err := c.w.Write(row); err != nil {
		return fmt.Errorf("writing report row: %w", err)
	}

	c.w.Flush()

	return c.w.Error()
}

func (c *CSVWriter) Close() error {
	c.w.Flush()
	if err := c.w.Error(); err != nil {
		c.file.Close()
		return err
	}
	return c.file.Close()
}

// FormatUptime renders a duration as days/hours/minutes the way the uptime
// report expects, e.g. "3d 4h 12m".
func FormatUptime(d time.Duration) string {
	if d < 0 {
		d = 0
	}

	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60

	return fmt.Sprintf("%dd %dh %dm", days, hours, minutes)
}

// JoinMembers flattens a member list into the single-cell form used by the
// local administrators report.
func JoinMembers(members []string) string {
	return strings.Join(members, "; ")
}
