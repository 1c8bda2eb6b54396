package acl_test

import (
	"encoding/binary"

	"adjanitor/activedirectory/formatters"
)

// testACE describes one DACL entry for buildSD.
type testACE struct {
	aceType byte
	flags   byte
	mask    uint32
	sid     string
}

func encodeACE(a testACE) []byte {
	sidBytes := formatters.ConvertStringToSID(a.sid)
	aceSize := 8 + len(sidBytes)
	ace := make([]byte, aceSize)
	ace[0] = a.aceType
	ace[1] = a.flags
	binary.LittleEndian.PutUint16(ace[2:4], uint16(aceSize))
	binary.LittleEndian.PutUint32(ace[4:8], a.mask)
	copy(ace[8:], sidBytes)
	return ace
}

// buildSD assembles a self-relative security descriptor with an owner and a
// DACL, matching what a domain controller returns for nTSecurityDescriptor.
func buildSD(owner string, aces []testACE) []byte {
	ownerBytes := formatters.ConvertStringToSID(owner)

	var aceData []byte
	for _, a := range aces {
		aceData = append(aceData, encodeACE(a)...)
	}

	aclSize := 8 + len(aceData)
	acl := make([]byte, aclSize)
	acl[0] = 2 // ACL_REVISION_DS
	binary.LittleEndian.PutUint16(acl[2:4], uint16(aclSize))
	binary.LittleEndian.PutUint16(acl[4:6], uint16(len(aces)))
	copy(acl[8:], aceData)

	ownerOffset := 20
	daclOffset := ownerOffset + len(ownerBytes)

	sd := make([]byte, daclOffset+aclSize)
	sd[0] = 1                                      // revision
	binary.LittleEndian.PutUint16(sd[2:4], 0x8004) // SE_SELF_RELATIVE | SE_DACL_PRESENT
	binary.LittleEndian.PutUint32(sd[4:8], uint32(ownerOffset))
	binary.LittleEndian.PutUint32(sd[16:20], uint32(daclOffset))
	copy(sd[ownerOffset:], ownerBytes)
	copy(sd[daclOffset:], acl)

	return sd
}
