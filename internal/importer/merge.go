package importer

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/lozio/venues/internal/export"
)

// MergeResult counts the outcome of Merge.
type MergeResult struct {
	Added      int
	Duplicates int // ids already in the output or repeated in the input
	Skipped    int // records without an id
}

// Merge appends the records of a JSON document to an entity's generated
// file. The document is an object holding an array under the entity's
// constant name, for example {"venues": [...]}. Records whose id is already
// present in the output, or earlier in the same document, are dropped.
// New records are inserted just before the closing array marker so the
// existing text is left untouched.
func (p *Pipeline) Merge(key, jsonPath string) (MergeResult, error) {
	var res MergeResult

	def, err := p.Definition(key)
	if err != nil {
		return res, err
	}
	info := def.Info
	idKey := info.IDKey
	if idKey == "" {
		idKey = info.IDColumn
	}

	if jsonPath == "" {
		return res, fmt.Errorf("missing path to a JSON file with a %q array", info.ConstName)
	}
	data, err := os.ReadFile(jsonPath)
	if err != nil {
		return res, fmt.Errorf("read %s: %w", jsonPath, err)
	}
	incoming, err := decodeMergeInput(data, info.ConstName)
	if err != nil {
		return res, fmt.Errorf("%s: %w", jsonPath, err)
	}

	existing, err := p.Output.ReadFile(info.Output)
	if err != nil {
		return res, fmt.Errorf("read %s: %w", info.Output, err)
	}
	content := string(existing)

	ids, err := export.ReadIDs(content, idKey)
	if err != nil {
		return res, fmt.Errorf("%s: %w", info.Output, err)
	}
	seen := make(map[string]bool, len(ids)+len(incoming))
	for _, id := range ids {
		seen[id] = true
	}

	var added []any
	for _, raw := range incoming {
		id := rawID(raw, idKey)
		switch {
		case id == "":
			res.Skipped++
		case seen[id]:
			res.Duplicates++
		default:
			seen[id] = true
			added = append(added, raw)
		}
	}
	res.Added = len(added)

	updated, err := export.InsertBeforeClose(content, added)
	if err != nil {
		return res, fmt.Errorf("%s: %w", info.Output, err)
	}
	if res.Added > 0 {
		if err := p.Output.WriteFile(info.Output, []byte(updated)); err != nil {
			return res, fmt.Errorf("write %s: %w", info.Output, err)
		}
	}

	p.logger().Info("merge finished",
		"entity", info.Key,
		"file", jsonPath,
		"added", res.Added,
		"duplicates", res.Duplicates,
		"skipped", res.Skipped,
	)
	return res, nil
}

// decodeMergeInput returns the objects stored under name. Objects keep their
// original bytes so key order survives the merge.
func decodeMergeInput(data []byte, name string) ([]json.RawMessage, error) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	arr, ok := doc[name]
	if !ok {
		return nil, fmt.Errorf("no %q array", name)
	}
	var items []json.RawMessage
	if err := json.Unmarshal(arr, &items); err != nil {
		return nil, fmt.Errorf("%q is not an array of records: %w", name, err)
	}
	return items, nil
}

// rawID returns the id stored under key in a JSON object, or "" when raw is
// not an object or has no usable id.
func rawID(raw json.RawMessage, key string) string {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return ""
	}
	v, ok := obj[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		return strings.TrimSpace(s)
	}
	if string(v) == "null" {
		return ""
	}
	return strings.TrimSpace(string(v))
}
