package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const acornLetX = `{
  "type": "Program", "start": 0, "end": 10, "sourceType": "script",
  "body": [{
    "type": "VariableDeclaration", "start": 0, "end": 10, "kind": "let",
    "declarations": [{
      "type": "VariableDeclarator", "start": 4, "end": 9,
      "id": {"type": "Identifier", "start": 4, "end": 5, "name": "x"},
      "init": {"type": "Literal", "start": 8, "end": 9, "value": 1, "raw": "1"}
    }]
  }]
}`

func TestFromESTree_SortedFieldsAndSpans(t *testing.T) {
	root, err := FromESTree([]byte(acornLetX))
	require.NoError(t, err)

	assert.Equal(t, "Program", root.Kind)
	require.NotNil(t, root.Start)
	assert.Equal(t, 10, *root.End)

	names := make([]string, 0, len(root.Fields))
	for _, f := range root.Fields {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{"body", "sourceType"}, names)

	decl := root.Fields[0].List[0]
	kind, ok := decl.Scalar("kind")
	require.True(t, ok)
	assert.Equal(t, "let", kind)

	declarator := decl.Fields[0].List[0]
	assert.Equal(t, "VariableDeclarator", declarator.Kind)
	// "id" sorts before "init"
	assert.Equal(t, "id", declarator.Fields[0].Name)
	assert.Equal(t, "init", declarator.Fields[1].Name)

	value, ok := declarator.Fields[1].Node.Scalar("value")
	require.True(t, ok)
	assert.Equal(t, "1", value)
}

func TestFromESTree_SkipsLocationDuplicates(t *testing.T) {
	doc := `{"type":"Identifier","name":"a","start":0,"end":1,
		"loc":{"type":"SourceLocation","start":{"line":1,"column":0}},"range":[0,1]}`
	node, err := FromESTree([]byte(doc))
	require.NoError(t, err)
	require.Len(t, node.Fields, 1)
	assert.Equal(t, "name", node.Fields[0].Name)
}

func TestFromESTree_RejectsNonNode(t *testing.T) {
	_, err := FromESTree([]byte(`{"error":"Invalid JavaScript syntax"}`))
	assert.ErrorIs(t, err, ErrNotESTree)

	_, err = FromESTree([]byte(`not json`))
	assert.Error(t, err)
}
