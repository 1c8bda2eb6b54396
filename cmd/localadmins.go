package cmd

import (
	"fmt"

	"adjanitor/logger"
	"adjanitor/probe"
	"adjanitor/report"

	"github.com/spf13/cobra"
)

var localAdminsCmd = &cobra.Command{
	Use:   "local-admins",
	Short: "Report local Administrators membership across machines",
	RunE:  runLocalAdmins,
}

func init() {
	localAdminsCmd.Flags().StringVar(&machinesFile, "machines", "", "file with one hostname per line (default: every computer object with a DNS hostname)")
	rootCmd.AddCommand(localAdminsCmd)
}

func runLocalAdmins(cmd *cobra.Command, _ []string) error {
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

	sink, err := newFindingSink(ctx, cfg, log, "local-admins", report.LocalAdminHeader)
	if err != nil {
		return err
	}
	defer sink.Close()

	runner := probe.NewWinRMRunner(cfg.WinRMUsername, cfg.WinRMPassword, cfg.WinRMPort, 0)
	prober := probe.NewProber(runner, cfg.WinRMPort, 0, logger.WithComponent(log, "probe"))

	for _, host := range machines {
		result := prober.LocalAdmins(ctx, host)

		members := report.JoinMembers(result.Members)
		fmt.Printf("%-40s %-14s %s\n", result.Host, result.Status, members)
		sink.Emit([]string{result.Host, string(result.Status), members})
	}

	log.Info().Int("machines", len(machines)).Msg("local administrators report complete")

	return sink.Flush(ctx)
}
