package probe

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/masterzen/winrm"
)

const (
	// emits the boot timestamp as UTC RFC 3339 so parsing is locale-proof
	bootTimeCommand = `powershell.exe -NoProfile -NonInteractive -Command ` +
		`"(Get-CimInstance Win32_OperatingSystem).LastBootUpTime.ToUniversalTime().ToString('yyyy-MM-ddTHH:mm:ssZ')"`

	localAdminsCommand = "net localgroup administrators"
)

// WinRMRunner executes commands over WinRM. One client per call: the probes
// visit each machine exactly once.
type WinRMRunner struct {
	username string
	password string
	port     int
	timeout  time.Duration
}

var _ RemoteRunner = (*WinRMRunner)(nil)

func NewWinRMRunner(username, password string, port int, timeout time.Duration) *WinRMRunner {
	if timeout == 0 {
		timeout = defaultProbeTimeout
	}

	return &WinRMRunner{
		username: username,
		password: password,
		port:     port,
		timeout:  timeout,
	}
}

func (r *WinRMRunner) Run(ctx context.Context, host, command string) (string, error) {
	endpoint := winrm.NewEndpoint(host, r.port, false, false, nil, nil, nil, r.timeout)

	client, err := winrm.NewClient(endpoint, r.username, r.password)
	if err != nil {
		return "", fmt.Errorf("creating WinRM client for %s: %w", host, err)
	}

	stdout, stderr, exitCode, err := client.RunWithContextWithString(ctx, command, "")
	if err != nil {
		return "", fmt.Errorf("running command on %s: %w", host, err)
	}
	if exitCode != 0 {
		return "", fmt.Errorf("command on %s exited %d: %s", host, exitCode, strings.TrimSpace(stderr))
	}

	return stdout, nil
}

// ParseBootTime parses the RFC 3339 timestamp produced by bootTimeCommand.
func ParseBootTime(out string) (time.Time, error) {
	trimmed := strings.TrimSpace(out)
	if trimmed == "" {
		return time.Time{}, fmt.Errorf("empty boot time output")
	}

	bootTime, err := time.Parse(time.RFC3339, trimmed)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing boot time %q: %w", trimmed, err)
	}

	return bootTime, nil
}

// ParseLocalGroupMembers extracts member names from `net localgroup` output:
// members are listed one per line between the dashed separator and the
// trailing status line.
func ParseLocalGroupMembers(out string) []string {
	var members []string
	inMembers := false

	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimRight(line, "\r")

		if strings.HasPrefix(line, "----") {
			inMembers = true
			continue
		}
		if !inMembers {
			continue
		}
		if strings.HasPrefix(line, "The command completed") {
			break
		}

		if member := strings.TrimSpace(line); member != "" {
			members = append(members, member)
		}
	}

	return members
}
