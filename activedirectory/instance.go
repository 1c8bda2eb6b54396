package activedirectory

import (
	"context"
	"fmt"

	"adjanitor/activedirectory/formatters"
	"adjanitor/activedirectory/ldaphelpers"

	"github.com/go-ldap/ldap/v3"
	"github.com/rs/zerolog"
)

type ActiveDirectoryInstance struct {
	BaseDn               string
	DomainControllerFQDN string
	PageSize             uint32
	DomainSID            string
	ldapConnection       *ldap.Conn
	log                  zerolog.Logger
}

var _ Directory = (*ActiveDirectoryInstance)(nil)

func NewActiveDirectoryInstance(baseDn string, domainControllerFQDN string, pageSize uint32, log zerolog.Logger) *ActiveDirectoryInstance {
	return &ActiveDirectoryInstance{
		BaseDn:               baseDn,
		DomainControllerFQDN: domainControllerFQDN,
		PageSize:             pageSize,
		log:                  log,
	}
}

// Connect to the Active Directory Domain Controller.
func (ad *ActiveDirectoryInstance) Connect(username, password string) error {
	bindString := fmt.Sprintf("ldap://%s:389", ad.DomainControllerFQDN)

	conn, err := ldap.DialURL(bindString)
	if err != nil {
		return fmt.Errorf("failed to connect to LDAP server: %w", err)
	}

	// TODO: LDAPS, IWA/GSSAPI, etc
	if err := conn.Bind(username, password); err != nil {
		conn.Close()
		return fmt.Errorf("failed to bind to LDAP server: %w", err)
	}

	res, err := conn.WhoAmI(nil)
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to call WhoAmI(): %w", err)
	}

	ad.ldapConnection = conn
	ad.log.Info().Str("server", bindString).Str("authz_id", res.AuthzID).Msg("authenticated to directory")

	return nil
}

func (ad *ActiveDirectoryInstance) Close() {
	if ad.ldapConnection != nil {
		ad.ldapConnection.Close()
	}
}

// DiscoverNamingContext fills BaseDn from the Root DSE when the caller did
// not supply one explicitly.
func (ad *ActiveDirectoryInstance) DiscoverNamingContext() error {
	if ad.BaseDn != "" {
		return nil
	}

	rootDSERequest := ldap.NewSearchRequest(
		"", // Root DSE
		ldap.ScopeBaseObject,
		ldap.NeverDerefAliases,
		0, 0, false,
		"(objectClass=*)",
		[]string{"defaultNamingContext"},
		nil,
	)

	rootDSEResults, err := ad.ldapConnection.Search(rootDSERequest)
	if err != nil {
		return fmt.Errorf("failed to fetch defaultNamingContext from Root DSE: %w", err)
	}

	if len(rootDSEResults.Entries) == 0 {
		return fmt.Errorf("defaultNamingContext not found in the Root DSE")
	}

	ad.BaseDn = rootDSEResults.Entries[0].GetAttributeValue("defaultNamingContext")
	ad.log.Info().Str("base_dn", ad.BaseDn).Msg("discovered default naming context")

	return nil
}

// FetchDomainSID reads the objectSid of the domain head, the prefix all
// principals minted in this domain share.
func (ad *ActiveDirectoryInstance) FetchDomainSID() error {
	domainHeadRequest := ldap.NewSearchRequest(
		ad.BaseDn,
		ldap.ScopeBaseObject,
		ldap.NeverDerefAliases,
		0, 0, false,
		"(objectClass=*)",
		[]string{"objectSid"},
		nil,
	)

	domainHeadResults, err := ad.ldapConnection.Search(domainHeadRequest)
	if err != nil {
		return fmt.Errorf("failed to fetch objectSid for %s: %w", ad.BaseDn, err)
	}

	if len(domainHeadResults.Entries) == 0 {
		return fmt.Errorf("domain head not found: %s", ad.BaseDn)
	}

	sidBytes := domainHeadResults.Entries[0].GetRawAttributeValue("objectSid")
	sid, err := formatters.ConvertSIDToString(sidBytes)
	if err != nil {
		return fmt.Errorf("failed to parse domain objectSid: %w", err)
	}

	ad.DomainSID = sid
	ad.log.Info().Str("domain_sid", sid).Msg("discovered domain SID")

	return nil
}

// ResolvePrincipalSID resolves a principal name (sAMAccountName, falling back
// to cn) or an S-1- string to its binary SID.
func (ad *ActiveDirectoryInstance) ResolvePrincipalSID(principal string) ([]byte, string, error) {
	if sidBytes := formatters.ConvertStringToSID(principal); sidBytes != nil {
		return sidBytes, principal, nil
	}

	filters := []ldaphelpers.Filter{
		ldaphelpers.Eq("sAMAccountName", ldap.EscapeFilter(principal)),
		ldaphelpers.Eq("cn", ldap.EscapeFilter(principal)),
	}

	for _, filter := range filters {
		searchRequest := ldap.NewSearchRequest(
			ad.BaseDn,
			ldap.ScopeWholeSubtree,
			ldap.NeverDerefAliases,
			1, 0, false,
			filter.String(),
			[]string{"objectSid"},
			nil,
		)

		result, err := ad.ldapConnection.Search(searchRequest)
		if err != nil || len(result.Entries) == 0 {
			continue
		}

		sidBytes := result.Entries[0].GetRawAttributeValue("objectSid")
		sid, err := formatters.ConvertSIDToString(sidBytes)
		if err != nil {
			return nil, "", fmt.Errorf("invalid objectSid for %s: %w", principal, err)
		}

		return sidBytes, sid, nil
	}

	return nil, "", fmt.Errorf("principal not found: %s", principal)
}

// ListChildren returns the immediate descendants of dn with their primary
// object class.
func (ad *ActiveDirectoryInstance) ListChildren(_ context.Context, dn string) ([]Child, error) {
	childRequest := ldap.NewSearchRequest(
		dn,
		ldap.ScopeSingleLevel,
		ldap.NeverDerefAliases,
		0, 0, false,
		ldaphelpers.AllObjects,
		[]string{"objectClass"},
		nil,
	)

	childResults, err := ad.ldapConnection.SearchWithPaging(childRequest, ad.PageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to list children of %s: %w", dn, err)
	}

	children := make([]Child, 0, len(childResults.Entries))
	for _, entry := range childResults.Entries {
		children = append(children, Child{
			DN:          entry.DN,
			ObjectClass: primaryObjectClass(entry.GetAttributeValues("objectClass")),
		})
	}

	return children, nil
}

// ReadObject fetches one object with its owner, group and DACL.
func (ad *ActiveDirectoryInstance) ReadObject(_ context.Context, dn string) (*Object, error) {
	sdFlagsControl := ldaphelpers.NewSDFlagsControl(
		OwnerSecurityInformation | GroupSecurityInformation | DACLSecurityInformation,
	)

	objectRequest := ldap.NewSearchRequest(
		dn,
		ldap.ScopeBaseObject,
		ldap.NeverDerefAliases,
		0, 0, false,
		ldaphelpers.AllObjects,
		[]string{"objectClass", "nTSecurityDescriptor"},
		[]ldap.Control{sdFlagsControl},
	)

	objectResults, err := ad.ldapConnection.Search(objectRequest)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", dn, err)
	}

	if len(objectResults.Entries) == 0 {
		return nil, fmt.Errorf("object not found: %s", dn)
	}

	entry := objectResults.Entries[0]

	return &Object{
		DN:                 entry.DN,
		PrimaryObjectClass: primaryObjectClass(entry.GetAttributeValues("objectClass")),
		RawSD:              entry.GetRawAttributeValue("nTSecurityDescriptor"),
	}, nil
}

// WriteSecurityDescriptor replaces the components of dn's security descriptor
// selected by flags with the supplied self-relative SD.
func (ad *ActiveDirectoryInstance) WriteSecurityDescriptor(_ context.Context, dn string, sd []byte, flags byte) error {
	sdFlagsControl := ldaphelpers.NewSDFlagsControl(flags)

	modifyRequest := ldap.NewModifyRequest(dn, []ldap.Control{sdFlagsControl})
	modifyRequest.Replace("nTSecurityDescriptor", []string{string(sd)})

	if err := ad.ldapConnection.Modify(modifyRequest); err != nil {
		return fmt.Errorf("failed to write security descriptor for %s: %w", dn, err)
	}

	return nil
}

// the structural class is the last objectClass value returned by the server
func primaryObjectClass(classes []string) string {
	if len(classes) == 0 {
		return ""
	}
	return classes[len(classes)-1]
}
