package geo

import (
	"context"
	"fmt"
	"log/slog"
	"net/netip"
	"sort"
	"strings"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// tableFile is the YAML layout of a country table:
//
//	networks:
//	  - cidr: 203.0.113.0/24
//	    country: NL
//	identifiers:
//	  node-7F3A: DE
type tableFile struct {
	Networks []struct {
		CIDR    string `yaml:"cidr"`
		Country string `yaml:"country"`
	} `yaml:"networks"`
	Identifiers map[string]string `yaml:"identifiers"`
}

type network struct {
	prefix  netip.Prefix
	country string
}

// StaticResolver answers from a fixed table: exact identifier matches first,
// then the longest CIDR containing the identifier's address.
type StaticResolver struct {
	networks    []network
	identifiers map[string]string
}

// LoadStaticResolver reads a country table from path.
func LoadStaticResolver(fs afero.Fs, path string) (*StaticResolver, error) {
	raw, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("read country table %s: %w", path, err)
	}
	r, err := ParseStaticResolver(raw)
	if err != nil {
		return nil, fmt.Errorf("country table %s: %w", path, err)
	}
	slog.Info("[Geo] Country table loaded",
		"path", path,
		"networks", len(r.networks),
		"identifiers", len(r.identifiers))
	return r, nil
}

func ParseStaticResolver(raw []byte) (*StaticResolver, error) {
	var tf tableFile
	if err := yaml.Unmarshal(raw, &tf); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}

	r := &StaticResolver{identifiers: make(map[string]string, len(tf.Identifiers))}
	for i, n := range tf.Networks {
		prefix, err := netip.ParsePrefix(strings.TrimSpace(n.CIDR))
		if err != nil {
			return nil, fmt.Errorf("networks[%d]: %w", i, err)
		}
		country, err := normalizeCountry(n.Country)
		if err != nil {
			return nil, fmt.Errorf("networks[%d]: %w", i, err)
		}
		r.networks = append(r.networks, network{prefix: prefix.Masked(), country: country})
	}
	for id, c := range tf.Identifiers {
		country, err := normalizeCountry(c)
		if err != nil {
			return nil, fmt.Errorf("identifiers[%s]: %w", id, err)
		}
		r.identifiers[id] = country
	}

	sort.SliceStable(r.networks, func(i, j int) bool {
		return r.networks[i].prefix.Bits() > r.networks[j].prefix.Bits()
	})
	return r, nil
}

func normalizeCountry(c string) (string, error) {
	c = strings.ToUpper(strings.TrimSpace(c))
	if len(c) != 2 {
		return "", fmt.Errorf("country code %q must be two letters", c)
	}
	return c, nil
}

func (r *StaticResolver) Lookup(_ context.Context, identifier string) (string, error) {
	if c, ok := r.identifiers[identifier]; ok {
		return c, nil
	}
	addr, ok := parseAddr(identifier)
	if !ok {
		return "", ErrNotFound
	}
	for _, n := range r.networks {
		if n.prefix.Contains(addr) {
			return n.country, nil
		}
	}
	return "", ErrNotFound
}

// parseAddr accepts a bare address or host:port.
func parseAddr(identifier string) (netip.Addr, bool) {
	if addr, err := netip.ParseAddr(identifier); err == nil {
		return addr.Unmap(), true
	}
	if ap, err := netip.ParseAddrPort(identifier); err == nil {
		return ap.Addr().Unmap(), true
	}
	return netip.Addr{}, false
}
