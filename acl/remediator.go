package acl

import (
	"context"
	"encoding/binary"
	"fmt"

	"adjanitor/activedirectory"
	"adjanitor/activedirectory/formatters"

	"github.com/rs/zerolog"
)

// security descriptor header layout (self-relative form): revision, sbz1,
// control, then four uint32 offsets (owner, group, SACL, DACL)
const (
	sdHeaderSize          = 20
	sdControlSelfRelative = 0x8000
	sdControlDACLPresent  = 0x0004
	aclHeaderSize         = 8
)

// Remediator rewrites directory security descriptors to drop orphaned access
// entries and replace orphaned owners. Each operation persists through the
// Directory boundary; failures are the caller's to log and skip.
type Remediator struct {
	dir activedirectory.Directory
	log zerolog.Logger
}

func NewRemediator(dir activedirectory.Directory, log zerolog.Logger) *Remediator {
	return &Remediator{dir: dir, log: log}
}

// RemoveOrphanedEntries strips every DACL entry whose SID is in orphans from
// the object's raw security descriptor and persists the result as a
// DACL-only write. All removals for an object go out in a single persist.
// Returns the number of entries removed.
func (r *Remediator) RemoveOrphanedEntries(ctx context.Context, dn string, rawSD []byte, orphans map[string]bool) (int, error) {
	newACL, removed, err := StripACEs(rawSD, orphans)
	if err != nil {
		return 0, fmt.Errorf("rebuilding DACL for %s: %w", dn, err)
	}

	if removed == 0 {
		return 0, nil
	}

	minSD := daclOnlySD(newACL)
	if err := r.dir.WriteSecurityDescriptor(ctx, dn, minSD, activedirectory.DACLSecurityInformation); err != nil {
		return 0, err
	}

	r.log.Info().Str("dn", dn).Int("removed", removed).Msg("removed orphaned access entries")

	return removed, nil
}

// ReplaceOwner persists ownerSID (binary form) as the object's owner via an
// owner-only security descriptor write.
func (r *Remediator) ReplaceOwner(ctx context.Context, dn string, ownerSID []byte) error {
	minSD := make([]byte, sdHeaderSize+len(ownerSID))
	minSD[0] = 1 // revision
	binary.LittleEndian.PutUint16(minSD[2:4], sdControlSelfRelative)
	binary.LittleEndian.PutUint32(minSD[4:8], sdHeaderSize) // OffsetOwner
	copy(minSD[sdHeaderSize:], ownerSID)

	if err := r.dir.WriteSecurityDescriptor(ctx, dn, minSD, activedirectory.OwnerSecurityInformation); err != nil {
		return err
	}

	r.log.Info().Str("dn", dn).Msg("replaced orphaned owner")

	return nil
}

// StripACEs rebuilds the DACL of a self-relative security descriptor without
// the entries whose SID string is in orphans. Returns the rebuilt ACL bytes
// (header included) and the number of entries dropped.
func StripACEs(sd []byte, orphans map[string]bool) ([]byte, int, error) {
	if len(sd) < sdHeaderSize {
		return nil, 0, fmt.Errorf("security descriptor too short (%d bytes)", len(sd))
	}

	daclOffset := int(binary.LittleEndian.Uint32(sd[16:20]))
	if daclOffset == 0 {
		return nil, 0, fmt.Errorf("no DACL present")
	}
	if daclOffset+aclHeaderSize > len(sd) {
		return nil, 0, fmt.Errorf("invalid DACL offset %d", daclOffset)
	}

	aclSize := int(binary.LittleEndian.Uint16(sd[daclOffset+2 : daclOffset+4]))
	aceCount := int(binary.LittleEndian.Uint16(sd[daclOffset+4 : daclOffset+6]))
	if aclSize < aclHeaderSize {
		return nil, 0, fmt.Errorf("DACL size %d smaller than ACL header", aclSize)
	}
	if daclOffset+aclSize > len(sd) {
		return nil, 0, fmt.Errorf("DACL size %d overruns descriptor", aclSize)
	}

	aceData := sd[daclOffset+aclHeaderSize : daclOffset+aclSize]

	var keptACEs []byte
	kept := 0
	removed := 0
	pos := 0

	for i := 0; i < aceCount && pos+4 <= len(aceData); i++ {
		aceSize := int(binary.LittleEndian.Uint16(aceData[pos+2 : pos+4]))
		if aceSize < 4 || pos+aceSize > len(aceData) {
			return nil, 0, fmt.Errorf("malformed ACE at offset %d", pos)
		}

		ace := aceData[pos : pos+aceSize]
		pos += aceSize

		sid, err := aceSID(ace)
		if err != nil || !orphans[sid] {
			keptACEs = append(keptACEs, ace...)
			kept++
		} else {
			removed++
		}
	}

	newACLSize := aclHeaderSize + len(keptACEs)
	newACL := make([]byte, newACLSize)
	newACL[0] = sd[daclOffset] // preserve ACL revision
	binary.LittleEndian.PutUint16(newACL[2:4], uint16(newACLSize))
	binary.LittleEndian.PutUint16(newACL[4:6], uint16(kept))
	copy(newACL[aclHeaderSize:], keptACEs)

	return newACL, removed, nil
}

// aceSID extracts the trustee SID string from one raw ACE. Object ACE types
// carry an object-flags word and up to two GUIDs ahead of the SID.
func aceSID(ace []byte) (string, error) {
	sidStart := 8

	switch ace[0] {
	case 0x05, 0x06, 0x07, 0x08: // *_OBJECT_ACE_TYPE
		if len(ace) < 12 {
			return "", fmt.Errorf("object ACE too short")
		}
		objectFlags := binary.LittleEndian.Uint32(ace[8:12])
		sidStart = 12
		if objectFlags&0x01 != 0 { // ACE_OBJECT_TYPE_PRESENT
			sidStart += 16
		}
		if objectFlags&0x02 != 0 { // ACE_INHERITED_OBJECT_TYPE_PRESENT
			sidStart += 16
		}
	}

	if sidStart >= len(ace) {
		return "", fmt.Errorf("ACE truncated before SID")
	}

	return formatters.ConvertSIDToString(ace[sidStart:])
}

// daclOnlySD wraps a rebuilt ACL in a minimal self-relative descriptor for a
// DACL-scoped write.
func daclOnlySD(acl []byte) []byte {
	sd := make([]byte, sdHeaderSize+len(acl))
	sd[0] = 1 // revision
	binary.LittleEndian.PutUint16(sd[2:4], sdControlSelfRelative|sdControlDACLPresent)
	binary.LittleEndian.PutUint32(sd[16:20], sdHeaderSize) // OffsetDacl
	copy(sd[sdHeaderSize:], acl)
	return sd
}
