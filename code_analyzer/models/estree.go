package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
)

// ErrNotESTree is returned when the JSON document has no root "type" tag.
var ErrNotESTree = errors.New("document is not an ESTree node")

// estreeSkipped holds keys that are either the discriminant or duplicate location data.
var estreeSkipped = map[string]bool{
	"type":   true,
	"start":  true,
	"end":    true,
	"loc":    true,
	"range":  true,
	"parent": true,
}

// FromESTree decodes an ESTree JSON document (acorn, espree, ...) into a RawNode tree.
// Object keys are visited in lexicographic order.
func FromESTree(data []byte) (*RawNode, error) {
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()

	var value interface{}
	if err := decoder.Decode(&value); err != nil {
		return nil, fmt.Errorf("failed to decode ESTree JSON: %w", err)
	}

	node, ok := estreeNode(value)
	if !ok {
		return nil, ErrNotESTree
	}
	return node, nil
}

func estreeNode(value interface{}) (*RawNode, bool) {
	object, ok := value.(map[string]interface{})
	if !ok {
		return nil, false
	}
	kind, ok := object["type"].(string)
	if !ok || kind == "" {
		return nil, false
	}

	node := NewRawNode(kind)
	start, hasStart := estreeOffset(object["start"])
	end, hasEnd := estreeOffset(object["end"])
	if hasStart && hasEnd {
		node.SetSpan(start, end)
	}

	keys := make([]string, 0, len(object))
	for key := range object {
		if !estreeSkipped[key] {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	for _, key := range keys {
		switch typed := object[key].(type) {
		case nil:
			continue
		case string:
			node.AddScalar(key, typed)
		case json.Number:
			node.AddScalar(key, typed.String())
		case bool:
			node.AddScalar(key, strconv.FormatBool(typed))
		case []interface{}:
			children := make([]*RawNode, 0, len(typed))
			for _, element := range typed {
				if child, ok := estreeNode(element); ok {
					children = append(children, child)
				}
			}
			if len(children) > 0 || len(typed) == 0 {
				node.AddList(key, children...)
			}
		case map[string]interface{}:
			if child, ok := estreeNode(typed); ok {
				node.AddNode(key, child)
			} else if kind == "TemplateElement" && key == "value" {
				addTemplateValue(node, typed)
			}
		}
	}
	return node, true
}

// addTemplateValue flattens a TemplateElement's {raw, cooked} pair into scalars.
// cooked is null for invalid escapes in tagged templates; raw stands in then.
func addTemplateValue(node *RawNode, value map[string]interface{}) {
	raw, hasRaw := value["raw"].(string)
	cooked, hasCooked := value["cooked"].(string)
	if hasRaw {
		node.AddScalar("raw", raw)
	}
	if hasCooked {
		node.AddScalar("value", cooked)
	} else if hasRaw {
		node.AddScalar("value", raw)
	}
}

func estreeOffset(value interface{}) (int, bool) {
	number, ok := value.(json.Number)
	if !ok {
		return 0, false
	}
	offset, err := number.Int64()
	if err != nil || offset < 0 {
		return 0, false
	}
	return int(offset), true
}
