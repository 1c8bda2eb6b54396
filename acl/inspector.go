// Package acl classifies and repairs access-control state on directory
// objects whose entries reference principals that no longer exist.
package acl

import (
	"fmt"
	"strings"

	"github.com/f0oster/gontsd"
	"github.com/rs/zerolog"
)

// SIDResolver maps a SID to a principal name. Satisfied by the resolvers in
// gontsd/resolve; tests substitute fakes.
type SIDResolver interface {
	Resolve(sid *gontsd.SID) (string, error)
}

// Entry is one access-control entry in display form.
type Entry struct {
	Identity   string
	Orphaned   bool
	AccessType string
	Inherited  bool
	Mask       uint32
}

// Inspection is the classified access-control state of one object.
type Inspection struct {
	DN                 string
	Owner              string
	OwnerOrphaned      bool
	Entries            []Entry
	OrphanedIdentities []string // deduplicated, in DACL order
}

// Inspector classifies owners and access entries against the domain SID
// prefix. Read-only; remediation is the Remediator's job.
type Inspector struct {
	domainSID string
	resolver  SIDResolver
	log       zerolog.Logger
}

func NewInspector(domainSID string, resolver SIDResolver, log zerolog.Logger) *Inspector {
	return &Inspector{
		domainSID: domainSID,
		resolver:  resolver,
		log:       log,
	}
}

// IsOrphaned reports whether an identity string is an unresolved SID of this
// domain. Resolved principal names never carry the raw SID prefix, so a
// plain prefix test is sufficient.
func IsOrphaned(identity, domainSID string) bool {
	return strings.HasPrefix(identity, domainSID)
}

// Inspect parses a raw security descriptor and classifies its owner and every
// DACL entry. Orphaned identities are reported once each regardless of how
// many entries reference them.
func (i *Inspector) Inspect(dn string, rawSD []byte) (*Inspection, error) {
	if len(rawSD) == 0 {
		return nil, fmt.Errorf("no security descriptor returned for %s", dn)
	}

	sd, err := gontsd.Parse(rawSD)
	if err != nil {
		return nil, fmt.Errorf("failed to parse security descriptor for %s: %w", dn, err)
	}

	inspection := &Inspection{DN: dn}

	if sd.OwnerSID != nil {
		inspection.Owner = i.identity(sd.OwnerSID)
		inspection.OwnerOrphaned = IsOrphaned(inspection.Owner, i.domainSID)
	}

	if sd.DACL == nil {
		return inspection, nil
	}

	seen := make(map[string]bool)
	for _, ace := range sd.DACL.ACEs {
		identity := i.identity(ace.GetSID())
		orphaned := IsOrphaned(identity, i.domainSID)

		inspection.Entries = append(inspection.Entries, Entry{
			Identity:   identity,
			Orphaned:   orphaned,
			AccessType: accessTypeName(ace.Type()),
			Inherited:  isInherited(ace.GetFlags()),
			Mask:       ace.GetMask(),
		})

		if orphaned && !seen[identity] {
			seen[identity] = true
			inspection.OrphanedIdentities = append(inspection.OrphanedIdentities, identity)
		}
	}

	return inspection, nil
}

func (i *Inspector) identity(sid *gontsd.SID) string {
	if sid == nil {
		return ""
	}
	if sid.ResolvedName != "" {
		return sid.ResolvedName
	}
	if i.resolver != nil {
		if name, err := i.resolver.Resolve(sid); err == nil && name != "" {
			return name
		}
	}
	return sid.Parsed
}

func isInherited(flags []string) bool {
	for _, flag := range flags {
		if flag == "INHERITED_ACE" {
			return true
		}
	}
	return false
}

func accessTypeName(aceType uint8) string {
	switch aceType {
	case 0x00, 0x05:
		return "Allow"
	case 0x01, 0x06:
		return "Deny"
	}
	return fmt.Sprintf("Type%02x", aceType)
}
