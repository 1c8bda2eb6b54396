package formatters

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"
)

// ConvertSIDToString formats a byte array containing an object SID to a
// string in S-1-... form.
func ConvertSIDToString(sidBytes []byte) (string, error) {
	// Minimum SID length is 8 bytes: revision (1), sub-authority count (1), authority (6)
	if len(sidBytes) < 8 {
		return "", fmt.Errorf("invalid SID: too short")
	}

	revision := sidBytes[0]
	subAuthorityCount := int(sidBytes[1])

	// authority is a 6-byte big-endian integer
	authority := binary.BigEndian.Uint64(append([]byte{0, 0}, sidBytes[2:8]...))

	expectedLength := 8 + (subAuthorityCount * 4)
	if len(sidBytes) < expectedLength {
		return "", fmt.Errorf("invalid SID: insufficient length for sub-authorities")
	}

	var sidBuffer bytes.Buffer
	sidBuffer.WriteString(fmt.Sprintf("S-%d-%d", revision, authority))

	offset := 8
	for i := 0; i < subAuthorityCount; i++ {
		subAuthority := binary.LittleEndian.Uint32(sidBytes[offset : offset+4])
		sidBuffer.WriteString(fmt.Sprintf("-%d", subAuthority))
		offset += 4
	}

	return sidBuffer.String(), nil
}

// ConvertStringToSID converts an S-1-... string to binary SID form. Returns
// nil when the input is not a well-formed SID string.
func ConvertStringToSID(sid string) []byte {
	parts := strings.Split(sid, "-")
	if len(parts) < 3 || parts[0] != "S" {
		return nil
	}

	revision, err := strconv.ParseUint(parts[1], 10, 8)
	if err != nil {
		return nil
	}

	authority, err := strconv.ParseUint(parts[2], 10, 48)
	if err != nil {
		return nil
	}

	subAuthorities := parts[3:]
	if len(subAuthorities) > 15 {
		return nil
	}

	sidBytes := make([]byte, 8+4*len(subAuthorities))
	sidBytes[0] = byte(revision)
	sidBytes[1] = byte(len(subAuthorities))

	var authorityBytes [8]byte
	binary.BigEndian.PutUint64(authorityBytes[:], authority)
	copy(sidBytes[2:8], authorityBytes[2:])

	offset := 8
	for _, part := range subAuthorities {
		subAuthority, err := strconv.ParseUint(part, 10, 32)
		if err != nil {
			return nil
		}
		binary.LittleEndian.PutUint32(sidBytes[offset:offset+4], uint32(subAuthority))
		offset += 4
	}

	return sidBytes
}
