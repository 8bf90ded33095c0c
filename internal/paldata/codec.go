package paldata

import (
	"fmt"

	"github.com/bytedance/sonic"
)

// Marshal serializes a tree to JSON. Cache payloads and exports can be large,
// so encoding goes through sonic rather than encoding/json.
func Marshal(t *DataTree) ([]byte, error) {
	data, err := sonic.Marshal(t)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal data tree: %w", err)
	}
	return data, nil
}

// Unmarshal parses a JSON-encoded tree.
func Unmarshal(data []byte) (*DataTree, error) {
	var t DataTree
	if err := sonic.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("failed to unmarshal data tree: %w", err)
	}
	Normalize(&t)
	return &t, nil
}

// Normalize ensures maps exist and child names match their map keys after
// decoding, so callers can add to a restored tree without nil checks. Nil
// trees are ignored.
func Normalize(t *DataTree) {
	if t == nil {
		return
	}
	if t.Attrs == nil {
		t.Attrs = make(map[string]string)
	}
	if t.Vars == nil {
		t.Vars = make(map[string]*Variable)
	}
	if t.Children == nil {
		t.Children = make(map[string]*DataTree)
	}
	for name, c := range t.Children {
		if c.Name == "" {
			c.Name = name
		}
		Normalize(c)
	}
}
