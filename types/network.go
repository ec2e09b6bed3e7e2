package types

import "strings"

// RemotePrefix marks an AddressRef that lives on another chain.
const RemotePrefix = "chain-ref://"

// AddressKind classifies an AddressRef.
type AddressKind string

const (
	AddressRaw    AddressKind = "raw"
	AddressPath   AddressKind = "path"
	AddressRemote AddressKind = "remote"
)

// AddressRef is a recipient reference: a raw address, a named path resolved
// through the naming service, or a chain-ref:// reference to another chain.
type AddressRef string

func (a AddressRef) String() string {
	return string(a)
}

func (a AddressRef) Kind() AddressKind {
	s := string(a)
	switch {
	case strings.HasPrefix(s, RemotePrefix):
		return AddressRemote
	case strings.HasPrefix(s, "/"),
		strings.HasPrefix(s, "~"),
		strings.HasPrefix(s, "./"),
		strings.HasPrefix(s, "../"):
		return AddressPath
	default:
		return AddressRaw
	}
}

// Chain returns the chain named by a remote reference, or "" for local ones.
func (a AddressRef) Chain() string {
	if a.Kind() != AddressRemote {
		return ""
	}
	rest := strings.TrimPrefix(string(a), RemotePrefix)
	chain, _, _ := strings.Cut(rest, "/")
	return chain
}

// LocalPart strips the chain component from a remote reference. The result is
// resolvable on the named chain. Local references are returned unchanged.
func (a AddressRef) LocalPart() AddressRef {
	if a.Kind() != AddressRemote {
		return a
	}
	rest := strings.TrimPrefix(string(a), RemotePrefix)
	_, local, found := strings.Cut(rest, "/")
	if !found || local == "" {
		return ""
	}
	switch {
	case strings.HasPrefix(local, "~"), strings.HasPrefix(local, "."):
		return AddressRef(local)
	case strings.Contains(local, "/"):
		return AddressRef("/" + local)
	default:
		return AddressRef(local)
	}
}

// IsLocalTo reports whether the reference resolves on chain.
func (a AddressRef) IsLocalTo(chain string) bool {
	return a.Kind() != AddressRemote || a.Chain() == chain
}

// NewRemoteRef builds chain-ref://chain/local.
func NewRemoteRef(chain string, local string) AddressRef {
	return AddressRef(RemotePrefix + chain + "/" + strings.TrimPrefix(local, "/"))
}
