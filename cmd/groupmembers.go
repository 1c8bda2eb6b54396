package cmd

import (
	"fmt"

	"adjanitor/report"

	"github.com/spf13/cobra"
)

var groupMembersCmd = &cobra.Command{
	Use:   "group-members",
	Short: "Report security groups that directly contain user or computer members",
	Long: `Lists every security group holding user or computer accounts directly,
with the group's scope. Direct user/computer membership in the wrong scope is
the usual IGDLA violation this report exists to surface.`,
	RunE: runGroupMembers,
}

func init() {
	rootCmd.AddCommand(groupMembersCmd)
}

func runGroupMembers(cmd *cobra.Command, _ []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}

	if err := report.Preflight(outputPath, overwrite); err != nil {
		return err
	}

	ad, err := connectDirectory(cfg, log)
	if err != nil {
		return err
	}
	defer ad.Close()

	ctx := cmd.Context()

	sink, err := newFindingSink(ctx, cfg, log, "group-members", report.GroupMemberHeader)
	if err != nil {
		return err
	}
	defer sink.Close()

	groups, err := ad.FetchSecurityGroups()
	if err != nil {
		return err
	}

	rows := 0
	for _, group := range groups {
		if err := ctx.Err(); err != nil {
			return err
		}

		for _, memberDN := range group.Members {
			memberType, err := ad.ClassifyMember(memberDN)
			if err != nil {
				log.Error().Str("dn", memberDN).Err(err).Msg("skipping unreadable member")
				continue
			}

			if memberType != "user" && memberType != "computer" {
				continue
			}

			rows++
			row := groupMemberRow(group.DN, group.Scope, memberDN, memberType)
			fmt.Printf("%-60s %-12s %-60s %s\n", row[0], row[1], row[2], row[3])
			sink.Emit(row)
		}
	}

	log.Info().Int("groups", len(groups)).Int("rows", rows).Msg("group membership report complete")

	return sink.Flush(ctx)
}

// groupMemberRow orders one report row to match report.GroupMemberHeader.
func groupMemberRow(groupDN, scope, memberDN, memberType string) []string {
	return []string{groupDN, scope, memberDN, memberType}
}
