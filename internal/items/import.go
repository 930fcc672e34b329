package items

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"rustactions/internal/services"
	"rustactions/internal/textutil"
)

// LoadFile reads item records for bulk import. JSON files may hold a bare
// array or a full database document; .yaml and .yml files hold a list of
// records or a mapping with an "items" key. Records without an item_id get
// one derived from their name, and a missing stack size defaults to 1.
func LoadFile(path string) ([]Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, services.Wrap(services.ErrIO, "items", "import", "read import file", err)
	}

	var recs []Record
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		recs, err = decodeYAML(data)
	default:
		recs, err = decodeJSON(data)
	}
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "items", "import", filepath.Base(path), err)
	}

	for i := range recs {
		if strings.TrimSpace(recs[i].ItemID) == "" {
			recs[i].ItemID = textutil.SanitizeToken(recs[i].Name)
		}
		if recs[i].StackSize == 0 {
			recs[i].StackSize = 1
		}
		if err := recs[i].Validate(); err != nil {
			return nil, fmt.Errorf("record %d: %w", i+1, err)
		}
	}
	return recs, nil
}

func decodeJSON(data []byte) ([]Record, error) {
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "[") {
		return decodeItems(json.RawMessage(trimmed))
	}
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return decodeItems(doc.Items)
}

func decodeYAML(data []byte) ([]Record, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, err
	}
	if len(node.Content) == 0 {
		return nil, nil
	}
	root := node.Content[0]
	var recs []Record
	switch root.Kind {
	case yaml.SequenceNode:
		if err := root.Decode(&recs); err != nil {
			return nil, err
		}
	case yaml.MappingNode:
		var wrapper struct {
			Items []Record `yaml:"items"`
		}
		if err := root.Decode(&wrapper); err != nil {
			return nil, err
		}
		recs = wrapper.Items
	default:
		return nil, errors.New("expected a list of items")
	}
	return recs, nil
}
