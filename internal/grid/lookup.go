package grid

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Lookup maps light symbols to their period in ticks.
type Lookup map[string]int

// Period returns the configured period for a light symbol.
func (l Lookup) Period(symbol rune) (int, bool) {
	p, ok := l[string(symbol)]
	return p, ok
}

// DefaultLookup mirrors the stock city dictionary.
func DefaultLookup() Lookup {
	return Lookup{"S": 15, "s": 7}
}

// LoadLookup reads a symbol dictionary from a JSON or YAML file, chosen by
// extension.
func LoadLookup(path string) (Lookup, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read lookup %s: %w", path, err)
	}
	format := "json"
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		format = "yaml"
	}
	return ParseLookup(data, format)
}

// ParseLookup decodes a symbol dictionary. Entries whose value is not an
// integer (direction names for road symbols, for instance) are skipped; light
// symbols that are present must be positive. A map using a light symbol the
// lookup leaves out is rejected when the map is parsed.
func ParseLookup(data []byte, format string) (Lookup, error) {
	raw := map[string]interface{}{}
	switch format {
	case "yaml":
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, errors.Wrapf(ErrParse, "lookup yaml: %v", err)
		}
	case "json":
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, errors.Wrapf(ErrParse, "lookup json: %v", err)
		}
	default:
		return nil, errors.Wrapf(ErrParse, "unknown lookup format %q", format)
	}

	lookup := Lookup{}
	for key, value := range raw {
		if n, ok := toInt(value); ok {
			lookup[key] = n
		}
	}
	for _, sym := range []string{string(SymbolLongLight), string(SymbolShortLight)} {
		if p, ok := lookup[sym]; ok && p <= 0 {
			return nil, errors.Wrapf(ErrParse, "light symbol %q has non-positive period %d", sym, p)
		}
	}
	return lookup, nil
}

func toInt(v interface{}) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		if n != math.Trunc(n) {
			return 0, false
		}
		return int(n), true
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(n))
		if err != nil {
			return 0, false
		}
		return i, true
	}
	return 0, false
}
