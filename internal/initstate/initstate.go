// Package initstate applies an optional JSON seed-override file, so a
// run can start from values other than the default 10*N, validating
// the file against a fixed JSON Schema before touching any state.
//
// Grounded on the teacher's bundoc.Collection: a gojsonschema.Schema
// compiled once and used to Validate a document before it's accepted.
// Applied here to a bootstrap file instead of a per-write document.
package initstate

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/kartikbazzad/adbssi/internal/sitemgr"
	"github.com/kartikbazzad/adbssi/internal/variable"
)

const schemaJSON = `{
  "type": "object",
  "additionalProperties": false,
  "patternProperties": {
    "^x([1-9]|1[0-9]|20)$": { "type": "integer" }
  }
}`

var schema *gojsonschema.Schema

func compiledSchema() (*gojsonschema.Schema, error) {
	if schema != nil {
		return schema, nil
	}
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(schemaJSON))
	if err != nil {
		return nil, fmt.Errorf("initstate: compiling schema: %w", err)
	}
	schema = s
	return schema, nil
}

var varKeyRe = regexp.MustCompile(`^x(\d+)$`)

// Parse validates raw JSON (an object mapping "x1".."x20" to integer
// seed values) against the schema and returns the parsed overrides.
func Parse(raw []byte) (map[int]int, error) {
	s, err := compiledSchema()
	if err != nil {
		return nil, err
	}
	result, err := s.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return nil, fmt.Errorf("initstate: validating: %w", err)
	}
	if !result.Valid() {
		var msgs []string
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return nil, fmt.Errorf("initstate: invalid seed file: %s", strings.Join(msgs, "; "))
	}

	var raw2 map[string]int
	if err := json.Unmarshal(raw, &raw2); err != nil {
		return nil, fmt.Errorf("initstate: decoding: %w", err)
	}

	overrides := make(map[int]int, len(raw2))
	for key, value := range raw2 {
		m := varKeyRe.FindStringSubmatch(key)
		if m == nil {
			return nil, fmt.Errorf("initstate: malformed variable key %q", key)
		}
		idx, _ := strconv.Atoi(m[1])
		if idx < 1 || idx > variable.NumVariables {
			return nil, fmt.Errorf("initstate: variable index out of range: %q", key)
		}
		overrides[idx] = value
	}
	return overrides, nil
}

// Apply reseeds every resident copy of each overridden variable across
// all sites in sm. Must run before any instruction touches that
// variable.
func Apply(sm *sitemgr.SiteManager, overrides map[int]int) {
	for idx, value := range overrides {
		for _, s := range sm.SitesHosting(idx) {
			if v, ok := s.DM.Variable(idx); ok {
				v.Reseed(value)
			}
		}
	}
}
