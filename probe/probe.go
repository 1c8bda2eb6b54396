// Package probe polls domain-joined machines over WinRM, gated by a cheap
// reachability check so dead hosts never tie up a management session.
package probe

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/rs/zerolog"
)

// Status is the three-state outcome of a machine probe.
type Status string

const (
	// StatusOnline: reachable and the management call succeeded.
	StatusOnline Status = "Online"
	// StatusConnectFailed: reachable, but the management call failed.
	StatusConnectFailed Status = "ConnectFailed"
	// StatusOffline: the reachability check failed; no management call is made.
	StatusOffline Status = "Offline"
)

// RemoteRunner executes a command on a remote machine and returns its stdout.
type RemoteRunner interface {
	Run(ctx context.Context, host, command string) (string, error)
}

// UptimeResult is one machine's boot time probe.
type UptimeResult struct {
	Host     string
	Status   Status
	BootTime time.Time
	Uptime   time.Duration
}

// AdminsResult is one machine's local Administrators membership probe.
type AdminsResult struct {
	Host    string
	Status  Status
	Members []string
}

type dialFunc func(ctx context.Context, address string) error

// Prober runs per-machine probes strictly sequentially.
type Prober struct {
	runner  RemoteRunner
	port    int
	timeout time.Duration
	dial    dialFunc
	now     func() time.Time
	log     zerolog.Logger
}

const defaultProbeTimeout = 5 * time.Second

func NewProber(runner RemoteRunner, port int, timeout time.Duration, log zerolog.Logger) *Prober {
	if timeout == 0 {
		timeout = defaultProbeTimeout
	}

	p := &Prober{
		runner:  runner,
		port:    port,
		timeout: timeout,
		now:     time.Now,
		log:     log,
	}
	p.dial = p.tcpDial

	return p
}

func (p *Prober) tcpDial(ctx context.Context, address string) error {
	dialer := net.Dialer{Timeout: p.timeout}

	conn, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return err
	}
	conn.Close()

	return nil
}

func (p *Prober) reachable(ctx context.Context, host string) bool {
	address := net.JoinHostPort(host, fmt.Sprintf("%d", p.port))

	if err := p.dial(ctx, address); err != nil {
		p.log.Debug().Str("host", host).Err(err).Msg("reachability probe failed")
		return false
	}

	return true
}

// Uptime fetches a machine's last boot time and computes its uptime.
func (p *Prober) Uptime(ctx context.Context, host string) UptimeResult {
	if !p.reachable(ctx, host) {
		return UptimeResult{Host: host, Status: StatusOffline}
	}

	out, err := p.runner.Run(ctx, host, bootTimeCommand)
	if err != nil {
		p.log.Warn().Str("host", host).Err(err).Msg("boot time query failed")
		return UptimeResult{Host: host, Status: StatusConnectFailed}
	}

	bootTime, err := ParseBootTime(out)
	if err != nil {
		p.log.Warn().Str("host", host).Err(err).Msg("unparsable boot time")
		return UptimeResult{Host: host, Status: StatusConnectFailed}
	}

	return UptimeResult{
		Host:     host,
		Status:   StatusOnline,
		BootTime: bootTime,
		Uptime:   p.now().Sub(bootTime),
	}
}

// LocalAdmins fetches a machine's local Administrators group membership.
func (p *Prober) LocalAdmins(ctx context.Context, host string) AdminsResult {
	if !p.reachable(ctx, host) {
		return AdminsResult{Host: host, Status: StatusOffline}
	}

	out, err := p.runner.Run(ctx, host, localAdminsCommand)
	if err != nil {
		p.log.Warn().Str("host", host).Err(err).Msg("local group query failed")
		return AdminsResult{Host: host, Status: StatusConnectFailed}
	}

	return AdminsResult{
		Host:    host,
		Status:  StatusOnline,
		Members: ParseLocalGroupMembers(out),
	}
}
