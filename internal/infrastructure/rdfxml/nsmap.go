package rdfxml

import (
	"encoding/xml"
	"sort"
	"strings"
)

// NSMap maps namespace prefixes to namespace URIs.
type NSMap map[string]string

// Prefix returns the prefix bound to a namespace URI.
func (m NSMap) Prefix(uri string) (string, bool) {
	for _, p := range m.sortedPrefixes() {
		if m[p] == uri {
			return p, true
		}
	}
	return "", false
}

// Shorten converts a qualified element name to the class key used by the
// schema: names in the cim namespace lose their prefix, names in other known
// namespaces become "<prefix>_<local>".
func (m NSMap) Shorten(name xml.Name) string {
	prefix, ok := m.Prefix(name.Space)
	if !ok || prefix == "cim" || prefix == "" {
		return name.Local
	}
	return prefix + "_" + name.Local
}

// Split resolves a URI reference such as "http://entsoe.eu/CIM/SchemaExtension/3/1#EnergySchedulingType"
// or "#Terminal.phases" into its namespace prefix and local name. References
// that match no namespace belong to cim.
func (m NSMap) Split(ref string) (prefix, local string) {
	best, bestLen := "", 0
	for _, p := range m.sortedPrefixes() {
		uri := m[p]
		if uri == "" || p == "" {
			continue
		}
		if strings.HasPrefix(ref, uri) && len(uri) > bestLen {
			best, bestLen = p, len(uri)
		}
	}
	if best == "" {
		best = "cim"
		local = ref
		if uri, ok := m["cim"]; ok {
			local = strings.TrimPrefix(local, uri)
		}
	} else {
		local = strings.TrimPrefix(ref, m[best])
	}
	if i := strings.LastIndex(local, "#"); i >= 0 {
		local = local[i+1:]
	}
	return best, local
}

// Merge adds the entries of other. Prefixes bound to a different URI are
// returned as conflicts and keep their existing binding.
func (m NSMap) Merge(other NSMap) (conflicts []string) {
	for _, p := range other.sortedPrefixes() {
		uri := other[p]
		if existing, ok := m[p]; ok && existing != uri {
			conflicts = append(conflicts, p)
			continue
		}
		m[p] = uri
	}
	return conflicts
}

// Clone copies the map.
func (m NSMap) Clone() NSMap {
	out := make(NSMap, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (m NSMap) sortedPrefixes() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
