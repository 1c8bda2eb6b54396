package probe

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRunner struct {
	output string
	err    error
	calls  int
}

func (f *fakeRunner) Run(_ context.Context, _, _ string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.output, nil
}

func newTestProber(runner RemoteRunner, dialErr error) *Prober {
	p := NewProber(runner, 5985, time.Second, zerolog.Nop())
	p.dial = func(context.Context, string) error { return dialErr }
	return p
}

func TestUptime_Online(t *testing.T) {
	runner := &fakeRunner{output: "2026-08-29T06:00:00Z\r\n"}
	p := newTestProber(runner, nil)
	p.now = func() time.Time { return time.Date(2026, 8, 30, 6, 0, 0, 0, time.UTC) }

	result := p.Uptime(context.Background(), "ws01.corp.example.com")

	assert.Equal(t, StatusOnline, result.Status)
	assert.Equal(t, 24*time.Hour, result.Uptime)
	assert.Equal(t, time.Date(2026, 8, 29, 6, 0, 0, 0, time.UTC), result.BootTime)
}

func TestUptime_OfflineSkipsRemoteCall(t *testing.T) {
	runner := &fakeRunner{output: "2026-08-29T06:00:00Z"}
	p := newTestProber(runner, fmt.Errorf("connection refused"))

	result := p.Uptime(context.Background(), "ws01.corp.example.com")

	assert.Equal(t, StatusOffline, result.Status)
	assert.Zero(t, runner.calls, "remote call must not run for unreachable machines")
}

func TestUptime_ReachableButQueryFails(t *testing.T) {
	runner := &fakeRunner{err: fmt.Errorf("access denied")}
	p := newTestProber(runner, nil)

	result := p.Uptime(context.Background(), "ws01.corp.example.com")

	assert.Equal(t, StatusConnectFailed, result.Status, "remote failure on a reachable machine is not Offline")
	assert.Equal(t, 1, runner.calls)
}

func TestUptime_GarbageOutput(t *testing.T) {
	runner := &fakeRunner{output: "not a timestamp"}
	p := newTestProber(runner, nil)

	result := p.Uptime(context.Background(), "ws01.corp.example.com")

	assert.Equal(t, StatusConnectFailed, result.Status)
}

func TestLocalAdmins_Online(t *testing.T) {
	runner := &fakeRunner{output: "Alias name     administrators\r\n" +
		"Comment        Administrators have complete and unrestricted access to the computer/domain\r\n" +
		"\r\n" +
		"Members\r\n" +
		"\r\n" +
		"-------------------------------------------------------------------------------\r\n" +
		"Administrator\r\n" +
		"CORP\\Domain Admins\r\n" +
		"CORP\\helpdesk\r\n" +
		"The command completed successfully.\r\n"}
	p := newTestProber(runner, nil)

	result := p.LocalAdmins(context.Background(), "ws01.corp.example.com")

	require.Equal(t, StatusOnline, result.Status)
	assert.Equal(t, []string{"Administrator", "CORP\\Domain Admins", "CORP\\helpdesk"}, result.Members)
}

func TestLocalAdmins_Offline(t *testing.T) {
	runner := &fakeRunner{}
	p := newTestProber(runner, fmt.Errorf("no route to host"))

	result := p.LocalAdmins(context.Background(), "ws01.corp.example.com")

	assert.Equal(t, StatusOffline, result.Status)
	assert.Zero(t, runner.calls)
}

func TestParseBootTime(t *testing.T) {
	bootTime, err := ParseBootTime(" 2026-08-29T06:00:00Z \r\n")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 8, 29, 6, 0, 0, 0, time.UTC), bootTime)

	_, err = ParseBootTime("")
	assert.Error(t, err)

	_, err = ParseBootTime("20260829060000.000000+000")
	assert.Error(t, err)
}

func TestParseLocalGroupMembers_Empty(t *testing.T) {
	out := "Members\r\n\r\n----\r\nThe command completed successfully.\r\n"
	assert.Empty(t, ParseLocalGroupMembers(out))
}
