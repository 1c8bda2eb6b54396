package activedirectory

import (
	"fmt"

	"adjanitor/activedirectory/ldaphelpers"

	"github.com/go-ldap/ldap/v3"
)

// FetchComputerHostnames returns the DNS hostname of every computer object
// under the base DN that has one registered.
func (ad *ActiveDirectoryInstance) FetchComputerHostnames() ([]string, error) {
	computerFilter := ldaphelpers.And(
		ldaphelpers.Eq("objectClass", "computer"),
		ldaphelpers.Present("dNSHostName"),
	).String()

	computerRequest := ldap.NewSearchRequest(
		ad.BaseDn,
		ldap.ScopeWholeSubtree,
		ldap.NeverDerefAliases,
		0, 0, false,
		computerFilter,
		[]string{"dNSHostName"},
		nil,
	)

	computerResults, err := ad.ldapConnection.SearchWithPaging(computerRequest, ad.PageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to search for computer objects: %w", err)
	}

	hostnames := make([]string, 0, len(computerResults.Entries))
	for _, entry := range computerResults.Entries {
		if hostname := entry.GetAttributeValue("dNSHostName"); hostname != "" {
			hostnames = append(hostnames, hostname)
		}
	}

	return hostnames, nil
}
