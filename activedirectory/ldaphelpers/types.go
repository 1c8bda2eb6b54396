package ldaphelpers

const (
	AllObjects         = "(objectClass=*)"
	AllGroupObjects    = "(objectClass=group)"
	AllUserObjects     = "(&(objectCategory=person)(objectClass=user))"
	AllComputerObjects = "(objectClass=computer)"
)

// groupType bits (MS-ADTS 2.2.12)
const (
	GroupTypeGlobal      uint32 = 0x00000002
	GroupTypeDomainLocal uint32 = 0x00000004
	GroupTypeUniversal   uint32 = 0x00000008
	GroupTypeSecurity    uint32 = 0x80000000
)
