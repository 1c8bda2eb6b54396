package acl_test

import (
	"context"
	"encoding/binary"
	"fmt"
	"testing"

	"adjanitor/acl"
	"adjanitor/activedirectory"

	"github.com/rs/zerolog"
)

// recordingDirectory captures security descriptor writes.
type recordingDirectory struct {
	writes []sdWrite
	fail   bool
}

type sdWrite struct {
	dn    string
	sd    []byte
	flags byte
}

func (d *recordingDirectory) ListChildren(context.Context, string) ([]activedirectory.Child, error) {
	return nil, fmt.Errorf("not implemented")
}

func (d *recordingDirectory) ReadObject(context.Context, string) (*activedirectory.Object, error) {
	return nil, fmt.Errorf("not implemented")
}

func (d *recordingDirectory) WriteSecurityDescriptor(_ context.Context, dn string, sd []byte, flags byte) error {
	if d.fail {
		return fmt.Errorf("insufficient access")
	}
	d.writes = append(d.writes, sdWrite{dn: dn, sd: sd, flags: flags})
	return nil
}

func aclEntryCount(t *testing.T, aclBytes []byte) int {
	t.Helper()
	if len(aclBytes) < 8 {
		t.Fatalf("ACL too short: %d bytes", len(aclBytes))
	}
	return int(binary.LittleEndian.Uint16(aclBytes[4:6]))
}

func TestStripACEs_RemovesAllMatching(t *testing.T) {
	sd := buildSD(liveUserSID, []testACE{
		{aceType: 0x00, mask: 0x00000004, sid: orphanSID},
		{aceType: 0x00, mask: 0x10000000, sid: liveUserSID},
		{aceType: 0x00, mask: 0x00000008, sid: orphanSID},
		{aceType: 0x00, mask: 0x00000010, sid: orphanSID},
	})

	newACL, removed, err := acl.StripACEs(sd, map[string]bool{orphanSID: true})
	if err != nil {
		t.Fatalf("StripACEs failed: %v", err)
	}

	// one report line per identifier, but removal acts on every entry
	if removed != 3 {
		t.Errorf("removed = %d, want 3", removed)
	}
	if count := aclEntryCount(t, newACL); count != 1 {
		t.Errorf("remaining entries = %d, want 1", count)
	}
}

func TestStripACEs_NoMatches(t *testing.T) {
	sd := buildSD(liveUserSID, []testACE{
		{aceType: 0x00, mask: 0x10000000, sid: liveUserSID},
		{aceType: 0x01, mask: 0x00010000, sid: wellKnownSID},
	})

	newACL, removed, err := acl.StripACEs(sd, map[string]bool{orphanSID: true})
	if err != nil {
		t.Fatalf("StripACEs failed: %v", err)
	}

	if removed != 0 {
		t.Errorf("removed = %d, want 0", removed)
	}
	if count := aclEntryCount(t, newACL); count != 2 {
		t.Errorf("remaining entries = %d, want 2", count)
	}
}

func TestStripACEs_MalformedDescriptor(t *testing.T) {
	if _, _, err := acl.StripACEs([]byte{1, 0, 4, 0x80}, nil); err == nil {
		t.Error("expected error for truncated descriptor")
	}

	// header claims a DACL beyond the buffer
	sd := make([]byte, 20)
	sd[0] = 1
	binary.LittleEndian.PutUint32(sd[16:20], 500)
	if _, _, err := acl.StripACEs(sd, nil); err == nil {
		t.Error("expected error for out-of-range DACL offset")
	}

	// DACL whose declared size is smaller than its own header
	sd = make([]byte, 32)
	sd[0] = 1
	binary.LittleEndian.PutUint32(sd[16:20], 20)
	sd[20] = 2                                  // ACL revision
	binary.LittleEndian.PutUint16(sd[22:24], 4) // AclSize below header size
	binary.LittleEndian.PutUint16(sd[24:26], 1) // AceCount
	if _, _, err := acl.StripACEs(sd, nil); err == nil {
		t.Error("expected error for undersized DACL")
	}
}

func TestRemoveOrphanedEntries_SinglePersist(t *testing.T) {
	sd := buildSD(liveUserSID, []testACE{
		{aceType: 0x00, mask: 0x00000004, sid: orphanSID},
		{aceType: 0x00, mask: 0x00000008, sid: orphanSID},
		{aceType: 0x00, mask: 0x10000000, sid: liveUserSID},
	})

	dir := &recordingDirectory{}
	remediator := acl.NewRemediator(dir, zerolog.Nop())

	removed, err := remediator.RemoveOrphanedEntries(context.Background(), "CN=Target,DC=corp,DC=example,DC=com", sd, map[string]bool{orphanSID: true})
	if err != nil {
		t.Fatalf("RemoveOrphanedEntries failed: %v", err)
	}

	if removed != 2 {
		t.Errorf("removed = %d, want 2", removed)
	}
	if len(dir.writes) != 1 {
		t.Fatalf("persisted %d times, want exactly 1", len(dir.writes))
	}
	if dir.writes[0].flags != activedirectory.DACLSecurityInformation {
		t.Errorf("write flags = %#x, want DACL-only", dir.writes[0].flags)
	}
}

func TestRemoveOrphanedEntries_NothingToRemove(t *testing.T) {
	sd := buildSD(liveUserSID, []testACE{
		{aceType: 0x00, mask: 0x10000000, sid: liveUserSID},
	})

	dir := &recordingDirectory{}
	remediator := acl.NewRemediator(dir, zerolog.Nop())

	removed, err := remediator.RemoveOrphanedEntries(context.Background(), "CN=Target,DC=corp,DC=example,DC=com", sd, map[string]bool{orphanSID: true})
	if err != nil {
		t.Fatalf("RemoveOrphanedEntries failed: %v", err)
	}

	if removed != 0 {
		t.Errorf("removed = %d, want 0", removed)
	}
	if len(dir.writes) != 0 {
		t.Errorf("persisted %d times, want 0 for a clean object", len(dir.writes))
	}
}

func TestReplaceOwner(t *testing.T) {
	dir := &recordingDirectory{}
	remediator := acl.NewRemediator(dir, zerolog.Nop())

	ownerSID := []byte{0x01, 0x01, 0x00, 0x00, 0x00, 0x00, 0x00, 0x05, 0x12, 0x00, 0x00, 0x00}
	if err := remediator.ReplaceOwner(context.Background(), "CN=Target,DC=corp,DC=example,DC=com", ownerSID); err != nil {
		t.Fatalf("ReplaceOwner failed: %v", err)
	}

	if len(dir.writes) != 1 {
		t.Fatalf("persisted %d times, want 1", len(dir.writes))
	}

	write := dir.writes[0]
	if write.flags != activedirectory.OwnerSecurityInformation {
		t.Errorf("write flags = %#x, want owner-only", write.flags)
	}

	ownerOffset := binary.LittleEndian.Uint32(write.sd[4:8])
	if got := write.sd[ownerOffset:]; len(got) != len(ownerSID) {
		t.Fatalf("owner SID length = %d, want %d", len(got), len(ownerSID))
	}
	for i := range ownerSID {
		if write.sd[int(ownerOffset)+i] != ownerSID[i] {
			t.Fatalf("owner SID bytes differ at %d", i)
		}
	}
}

func TestReplaceOwner_PersistFailure(t *testing.T) {
	dir := &recordingDirectory{fail: true}
	remediator := acl.NewRemediator(dir, zerolog.Nop())

	err := remediator.ReplaceOwner(context.Background(), "CN=Target,DC=corp,DC=example,DC=com", []byte{0x01, 0x00})
	if err == nil {
		t.Error("expected persist error to propagate")
	}
}
