package ldaphelpers

import (
	"fmt"
	"strings"

	"github.com/go-ldap/ldap/v3"
)

// NewSDFlagsControl creates the LDAP_SERVER_SD_FLAGS_OID extended control
// selecting which security descriptor components a search returns or a
// modify touches (0x01 owner, 0x02 group, 0x04 DACL, 0x08 SACL).
//
// The value is the BER encoding of SEQUENCE { Flags INTEGER }; flag values
// below 128 fit a single integer byte.
// https://learn.microsoft.com/en-us/previous-versions/windows/desktop/ldap/ldap-server-sd-flags-oid
func NewSDFlagsControl(flags byte) ldap.Control {
	value := []byte{0x30, 0x03, 0x02, 0x01, flags}
	return ldap.NewControlString("1.2.840.113556.1.4.801", true, string(value))
}

type Filter interface {
	String() string
}

type rawFilter string

func (f rawFilter) String() string {
	return string(f)
}

type andFilter struct {
	parts []Filter
}

func And(filters ...Filter) Filter {
	return andFilter{parts: filters}
}

func (f andFilter) String() string {
	var parts []string
	for _, p := range f.parts {
		parts = append(parts, p.String())
	}
	return "(&" + strings.Join(parts, "") + ")"
}

type notFilter struct {
	part Filter
}

func Not(f Filter) Filter {
	return notFilter{part: f}
}

func (f notFilter) String() string {
	return "(!" + f.part.String() + ")"
}

func Eq(attr, value string) Filter {
	return rawFilter("(" + attr + "=" + value + ")")
}

func Present(attr string) Filter {
	return rawFilter("(" + attr + "=*)")
}

// Band matches entries whose integer attribute has all bits of mask set
// (LDAP_MATCHING_RULE_BIT_AND).
func Band(attr string, mask uint32) Filter {
	return rawFilter(fmt.Sprintf("(%s:1.2.840.113556.1.4.803:=%d)", attr, mask))
}
