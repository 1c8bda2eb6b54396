package cmd

import (
	"fmt"

	"adjanitor/acl"
	"adjanitor/activedirectory"
	"adjanitor/logger"
	"adjanitor/report"

	"github.com/spf13/cobra"
)

var (
	orphansRoot     string
	containersOnly  bool
	removeOrphans   bool
	fixOwner        bool
	newOwner        string
	showPermissions bool
	showAllObjects  bool
)

var orphansCmd = &cobra.Command{
	Use:   "orphans",
	Short: "Find (and optionally repair) access entries and owners referencing orphaned SIDs",
	Long: `Walks a directory subtree and classifies every object's owner and DACL
entries against the domain SID prefix. Entries whose identity is an
unresolved SID of this domain are reported once per identifier per object;
--remove strips every matching entry, --fix-owner reassigns orphaned owners
to a substitute principal.`,
	RunE: runOrphans,
}

func init() {
	orphansCmd.Flags().StringVar(&orphansRoot, "root", "", "subtree root DN (default: the domain naming context)")
	orphansCmd.Flags().BoolVar(&containersOnly, "containers-only", false, "visit and recurse through containers/OUs only")
	orphansCmd.Flags().BoolVar(&removeOrphans, "remove", false, "remove access entries referencing orphaned SIDs")
	orphansCmd.Flags().BoolVar(&fixOwner, "fix-owner", false, "reassign orphaned owners to the substitute principal")
	orphansCmd.Flags().StringVar(&newOwner, "new-owner", "Domain Admins", "substitute owner principal")
	orphansCmd.Flags().BoolVar(&showPermissions, "show-permissions", false, "print every access entry, not only orphans")
	orphansCmd.Flags().BoolVar(&showAllObjects, "show-all", false, "print every visited object, findings or not")
	rootCmd.AddCommand(orphansCmd)
}

func runOrphans(cmd *cobra.Command, _ []string) error {
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

	sink, err := newFindingSink(ctx, cfg, log, "orphans", report.OrphanHeader)
	if err != nil {
		return err
	}
	defer sink.Close()

	resolver := buildSIDResolver(cfg, ad.BaseDn, log)
	inspector := acl.NewInspector(ad.DomainSID, resolver, logger.WithComponent(log, "inspector"))
	remediator := acl.NewRemediator(ad, logger.WithComponent(log, "remediator"))

	var substituteOwner []byte
	if fixOwner {
		owner, ownerSID, err := ad.ResolvePrincipalSID(newOwner)
		if err != nil {
			return fmt.Errorf("resolving substitute owner: %w", err)
		}
		substituteOwner = owner
		log.Info().Str("owner", newOwner).Str("sid", ownerSID).Msg("substitute owner resolved")
	}

	rootDN := orphansRoot
	if rootDN == "" {
		rootDN = ad.BaseDn
	}

	walker := activedirectory.NewWalker(ad, containersOnly, logger.WithComponent(log, "walker"))

	visited, findings := 0, 0
	err = walker.Walk(ctx, rootDN, func(child activedirectory.Child) error {
		visited++

		obj, err := ad.ReadObject(ctx, child.DN)
		if err != nil {
			log.Error().Str("dn", child.DN).Err(err).Msg("skipping unreadable object")
			return nil
		}

		inspection, err := inspector.Inspect(obj.DN, obj.RawSD)
		if err != nil {
			log.Error().Str("dn", obj.DN).Err(err).Msg("skipping object")
			return nil
		}

		if showAllObjects {
			fmt.Printf("%s (%s)\n", obj.DN, obj.PrimaryObjectClass)
		}
		if showPermissions {
			for _, entry := range inspection.Entries {
				fmt.Printf("  %-5s %-10s mask=0x%08x inherited=%v %s\n",
					entry.AccessType, orphanTag(entry.Orphaned), entry.Mask, entry.Inherited, entry.Identity)
			}
		}

		if inspection.OwnerOrphaned {
			findings++
			fmt.Printf("%s: orphaned owner %s\n", obj.DN, inspection.Owner)

			action := "reported"
			if fixOwner {
				if err := remediator.ReplaceOwner(ctx, obj.DN, substituteOwner); err != nil {
					log.Error().Str("dn", obj.DN).Err(err).Msg("owner fix-up failed")
					action = "fix-failed"
				} else {
					action = "owner-replaced"
				}
			}
			sink.Emit([]string{obj.DN, "OrphanedOwner", inspection.Owner, action})
		}

		if len(inspection.OrphanedIdentities) == 0 {
			return nil
		}

		orphanSet := make(map[string]bool, len(inspection.OrphanedIdentities))
		for _, identity := range inspection.OrphanedIdentities {
			findings++
			fmt.Printf("%s: orphaned access entry for %s\n", obj.DN, identity)
			orphanSet[identity] = true
		}

		action := "reported"
		if removeOrphans {
			removed, err := remediator.RemoveOrphanedEntries(ctx, obj.DN, obj.RawSD, orphanSet)
			if err != nil {
				log.Error().Str("dn", obj.DN).Err(err).Msg("entry removal failed")
				action = "remove-failed"
			} else {
				action = fmt.Sprintf("removed-%d", removed)
			}
		}
		for _, identity := range inspection.OrphanedIdentities {
			sink.Emit([]string{obj.DN, "OrphanedEntry", identity, action})
		}

		return nil
	})
	if err != nil {
		return err
	}

	log.Info().Int("visited", visited).Int("findings", findings).Msg("orphan scan complete")

	return sink.Flush(ctx)
}

func orphanTag(orphaned bool) string {
	if orphaned {
		return "ORPHANED"
	}
	return "ok"
}
