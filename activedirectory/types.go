package activedirectory

import "context"

// Child is one immediate descendant of a directory object.
type Child struct {
	DN          string
	ObjectClass string
}

// Object is a directory entry together with its raw security descriptor as
// returned by the server (self-relative binary form).
type Object struct {
	DN                 string
	PrimaryObjectClass string
	RawSD              []byte
}

// GroupRecord is one security group with its direct members.
type GroupRecord struct {
	DN      string
	Scope   string
	Members []string
}

// Directory is the read/write surface the walker, inspector and remediator
// operate against. The LDAP-backed implementation lives on
// ActiveDirectoryInstance; tests substitute fakes.
type Directory interface {
	ListChildren(ctx context.Context, dn string) ([]Child, error)
	ReadObject(ctx context.Context, dn string) (*Object, error)
	WriteSecurityDescriptor(ctx context.Context, dn string, sd []byte, flags byte) error
}

// Security descriptor component flags for the LDAP_SERVER_SD_FLAGS_OID
// control (MS-ADTS 3.1.1.3.4.1.11).
const (
	OwnerSecurityInformation byte = 0x01
	GroupSecurityInformation byte = 0x02
	DACLSecurityInformation  byte = 0x04
	SACLSecurityInformation  byte = 0x08
)

// IsContainerClass reports whether an object class participates in subtree
// recursion when a walk is restricted to containers.
func IsContainerClass(objectClass string) bool {
	switch objectClass {
	case "container", "organizationalUnit":
		return true
	}
	return false
}
