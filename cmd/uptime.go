package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"adjanitor/config"
	"adjanitor/logger"
	"adjanitor/probe"
	"adjanitor/report"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var machinesFile string

var uptimeCmd = &cobra.Command{
	Use:   "uptime",
	Short: "Report boot time and uptime for domain-joined machines",
	RunE:  runUptime,
}

func init() {
	uptimeCmd.Flags().StringVar(&machinesFile, "machines", "", "file with one hostname per line (default: every computer object with a DNS hostname)")
	rootCmd.AddCommand(uptimeCmd)
}

func runUptime(cmd *cobra.Command, _ []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}

	if err := report.Preflight(outputPath, overwrite); err != nil {
		return err
	}

	ctx := cmd.Context()

	machines, err := machineList(cfg, log)
	if err != nil {
		return err
	}

	sink, err := newFindingSink(ctx, cfg, log, "uptime", report.UptimeHeader)
	if err != nil {
		return err
	}
	defer sink.Close()

	runner := probe.NewWinRMRunner(cfg.WinRMUsername, cfg.WinRMPassword, cfg.WinRMPort, 0)
	prober := probe.NewProber(runner, cfg.WinRMPort, 0, logger.WithComponent(log, "probe"))

	for _, host := range machines {
		result := prober.Uptime(ctx, host)

		bootTime, uptime := "", ""
		if result.Status == probe.StatusOnline {
			bootTime = result.BootTime.UTC().Format(time.RFC3339)
			uptime = report.FormatUptime(result.Uptime)
		}

		fmt.Printf("%-40s %-14s %-22s %s\n", result.Host, result.Status, bootTime, uptime)
		sink.Emit([]string{result.Host, string(result.Status), bootTime, uptime})
	}

	log.Info().Int("machines", len(machines)).Msg("uptime poll complete")

	return sink.Flush(ctx)
}

// machineList reads hostnames from the --machines file when given, otherwise
// queries the directory for every computer with a registered DNS hostname.
func machineList(cfg config.Configuration, log zerolog.Logger) ([]string, error) {
	if machinesFile == "" {
		ad, err := connectDirectory(cfg, log)
		if err != nil {
			return nil, err
		}
		defer ad.Close()

		return ad.FetchComputerHostnames()
	}

	file, err := os.Open(machinesFile)
	if err != nil {
		return nil, fmt.Errorf("opening machines file: %w", err)
	}
	defer file.Close()

	var machines []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		if host := strings.TrimSpace(scanner.Text()); host != "" {
			machines = append(machines, host)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading machines file: %w", err)
	}

	return machines, nil
}
