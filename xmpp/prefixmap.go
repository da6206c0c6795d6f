package xmpp

import (
	"sort"
	"strings"

	"github.com/meduketto/iksemel-go/dom"
)

// PrefixMap is a namespace prefix to URI map collected from the
// xmlns attributes of a stream header or stanza. Prefix resolution
// is purely syntactic; nothing is validated against the URIs.
type PrefixMap map[string]string

// NewPrefixMap returns a PrefixMap containing the xmlns declarations
// found in the passed attributes. The default namespace is stored
// under the empty prefix.
func NewPrefixMap(attrs ...dom.Attr) PrefixMap {
	pmap := PrefixMap{}
	for _, attr := range attrs {
		if attr.Name == "xmlns" {
			pmap[""] = attr.Value
		} else if rest, ok := strings.CutPrefix(attr.Name, "xmlns:"); ok && rest != "" {
			pmap[rest] = attr.Value
		}
	}
	return pmap
}

// Namespace returns the namespace URI for the given prefix.
func (m PrefixMap) Namespace(prefix string) string { return m[prefix] }

// Prefix returns any prefixes found for the namespace URI, sorted
// lexically.
func (m PrefixMap) Prefix(nsURI string) (pfxes []string) {
	for k, v := range m {
		if nsURI == v {
			pfxes = append(pfxes, k)
		}
	}
	sort.Strings(pfxes)
	return pfxes
}

// Split cuts a prefixed name into its prefix and local parts. Names
// without a prefix return "" and the name itself.
func Split(name string) (prefix, local string) {
	if i := strings.IndexByte(name, ':'); i >= 0 {
		return name[:i], name[i+1:]
	}
	return "", name
}
