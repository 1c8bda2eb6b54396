package activedirectory

import (
	"fmt"
	"strconv"

	"adjanitor/activedirectory/ldaphelpers"

	"github.com/go-ldap/ldap/v3"
)

// FetchSecurityGroups returns every security group in the base DN that has at
// least one direct member.
func (ad *ActiveDirectoryInstance) FetchSecurityGroups() ([]GroupRecord, error) {
	groupFilter := ldaphelpers.And(
		ldaphelpers.Eq("objectClass", "group"),
		ldaphelpers.Band("groupType", ldaphelpers.GroupTypeSecurity),
		ldaphelpers.Present("member"),
	).String()

	groupRequest := ldap.NewSearchRequest(
		ad.BaseDn,
		ldap.ScopeWholeSubtree,
		ldap.NeverDerefAliases,
		0, 0, false,
		groupFilter,
		[]string{"member", "groupType"},
		nil,
	)

	groupResults, err := ad.ldapConnection.SearchWithPaging(groupRequest, ad.PageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to search for security groups: %w", err)
	}

	groups := make([]GroupRecord, 0, len(groupResults.Entries))
	for _, entry := range groupResults.Entries {
		groupType, err := strconv.ParseInt(entry.GetAttributeValue("groupType"), 10, 64)
		if err != nil {
			ad.log.Warn().Str("dn", entry.DN).Err(err).Msg("skipping group with unparsable groupType")
			continue
		}

		groups = append(groups, GroupRecord{
			DN:      entry.DN,
			Scope:   GroupScope(uint32(groupType)),
			Members: entry.GetAttributeValues("member"),
		})
	}

	return groups, nil
}

// ClassifyMember reports the member kind for a DN: "user", "computer", or the
// structural class for anything else (nested groups included).
func (ad *ActiveDirectoryInstance) ClassifyMember(dn string) (string, error) {
	memberRequest := ldap.NewSearchRequest(
		dn,
		ldap.ScopeBaseObject,
		ldap.NeverDerefAliases,
		0, 0, false,
		ldaphelpers.AllObjects,
		[]string{"objectClass"},
		nil,
	)

	memberResults, err := ad.ldapConnection.Search(memberRequest)
	if err != nil {
		return "", fmt.Errorf("failed to classify %s: %w", dn, err)
	}

	if len(memberResults.Entries) == 0 {
		return "", fmt.Errorf("member not found: %s", dn)
	}

	classes := memberResults.Entries[0].GetAttributeValues("objectClass")

	// computer is a subclass of user, so check it first
	for _, class := range classes {
		if class == "computer" {
			return "computer", nil
		}
	}
	for _, class := range classes {
		if class == "user" {
			return "user", nil
		}
	}

	return primaryObjectClass(classes), nil
}

// GroupScope maps groupType bits to the conventional scope name.
func GroupScope(groupType uint32) string {
	switch {
	case groupType&ldaphelpers.GroupTypeGlobal != 0:
		return "Global"
	case groupType&ldaphelpers.GroupTypeDomainLocal != 0:
		return "DomainLocal"
	case groupType&ldaphelpers.GroupTypeUniversal != 0:
		return "Universal"
	}
	return "Unknown"
}
