package hierarchy

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/meysamhadeli/astview/code_analyzer"
	"github.com/meysamhadeli/astview/code_analyzer/contracts"
	"github.com/meysamhadeli/astview/code_analyzer/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func identifier(name string, start, end int) *models.RawNode {
	return models.NewRawNode("Identifier").SetSpan(start, end).AddScalar("name", name)
}

func TestNormalize_Nil(t *testing.T) {
	node, err := Normalize(nil)
	assert.NoError(t, err)
	assert.Nil(t, node)
}

func TestNormalize_FieldOrderAndSpans(t *testing.T) {
	left := identifier("a", 0, 1)
	right := identifier("b", 4, 5)
	binary := models.NewRawNode("BinaryExpression").SetSpan(0, 5).
		AddNode("left", left).
		AddScalar("operator", "+").
		AddNode("right", right)
	program := models.NewRawNode("Program").SetSpan(0, 6).
		AddList("body", models.NewRawNode("ExpressionStatement").SetSpan(0, 6).AddNode("expression", binary))

	root, err := Normalize(program)
	require.NoError(t, err)

	assert.Equal(t, "Program", root.Label)
	require.Len(t, root.Children, 1)
	expr := root.Children[0].Children[0]
	assert.Equal(t, "BinaryExpression", expr.Label)
	require.Len(t, expr.Children, 2)
	assert.Equal(t, "Identifier (a)", expr.Children[0].Label)
	assert.Equal(t, "Identifier (b)", expr.Children[1].Label)
	assert.True(t, expr.Children[1].IsLeaf())
	assert.NotNil(t, expr.Children[1].Children)

	Walk(root, func(node *Node, _ int) bool {
		for _, child := range node.Children {
			assert.LessOrEqual(t, node.Start, child.Start)
			assert.GreaterOrEqual(t, node.End, child.End)
		}
		return true
	})
}

func TestNormalize_MissingLocations(t *testing.T) {
	root, err := Normalize(models.NewRawNode("Program").AddList("body", models.NewRawNode("EmptyStatement")))
	require.NoError(t, err)
	assert.Equal(t, 0, root.Start)
	assert.Equal(t, 0, root.End)
	assert.Equal(t, 0, root.Children[0].End)
}

func TestNormalize_SkipsPositionFields(t *testing.T) {
	raw := models.NewRawNode("Identifier").SetSpan(0, 1).
		AddScalar("name", "z").
		AddNode("loc", models.NewRawNode("SourceLocation")).
		AddNode("parent", models.NewRawNode("Program"))

	root, err := Normalize(raw)
	require.NoError(t, err)
	assert.Empty(t, root.Children)
}

func TestNormalize_Deterministic(t *testing.T) {
	raw := models.NewRawNode("Program").SetSpan(0, 3).
		AddList("body", identifier("x", 0, 1), identifier("y", 2, 3))

	first, err := Normalize(raw)
	require.NoError(t, err)
	second, err := Normalize(raw)
	require.NoError(t, err)
	assert.True(t, Equal(first, second))
	assert.NotSame(t, first, second)
}

func TestNormalize_DepthCap(t *testing.T) {
	raw := identifier("leaf", 0, 1)
	for i := 0; i < 20; i++ {
		raw = models.NewRawNode("ArrayExpression").AddList("elements", raw)
	}

	_, err := NewNormalizer(10).Normalize(raw)
	require.ErrorIs(t, err, ErrDepthExceeded)
	var depthErr *DepthError
	require.ErrorAs(t, err, &depthErr)
	assert.Equal(t, 10, depthErr.Limit)

	root, err := NewNormalizer(0).Normalize(raw)
	require.NoError(t, err)
	assert.Equal(t, 21, Count(root))
}

func TestNormalize_CyclicInputTerminates(t *testing.T) {
	a := models.NewRawNode("A")
	b := models.NewRawNode("B").AddNode("back", a)
	a.AddNode("next", b)

	_, err := NewNormalizer(50).Normalize(a)
	assert.ErrorIs(t, err, ErrDepthExceeded)
}

func TestLabel(t *testing.T) {
	decl := models.NewRawNode("VariableDeclaration").AddScalar("kind", "const")
	assert.Equal(t, "VariableDeclaration (const)", Label(decl))

	literal := models.NewRawNode("Literal").AddScalar("raw", "'s'").AddScalar("value", "s")
	assert.Equal(t, "Literal (s)", Label(literal))

	regex := models.NewRawNode("Literal").AddScalar("raw", "/a+/g")
	assert.Equal(t, "Literal (/a+/g)", Label(regex))

	method := models.NewRawNode("MethodDefinition").AddScalar("kind", "get")
	assert.Equal(t, "MethodDefinition", Label(method))

	assert.Equal(t, "Identifier", Label(models.NewRawNode("Identifier")))
}

func TestNormalize_FromJavaScript(t *testing.T) {
	analyzer := code_analyzer.NewCodeAnalyzer("", false, nil)
	raw, err := analyzer.Parse(context.Background(), "let x = 1;", contracts.ParseOptions{TrackLocations: true})
	require.NoError(t, err)

	root, err := Normalize(raw)
	require.NoError(t, err)
	require.NotEmpty(t, root.Children)
	assert.True(t, strings.HasPrefix(root.Children[0].Label, "VariableDeclaration"))
	assert.Contains(t, root.Children[0].Label, "let")

	var labels []string
	Walk(root, func(node *Node, _ int) bool {
		labels = append(labels, node.Label)
		return true
	})
	assert.Contains(t, labels, "Identifier (x)")
	assert.Contains(t, labels, "Literal (1)")

	declarator, ok := Find(root, 2)
	require.True(t, ok)
	assert.Equal(t, "VariableDeclarator", declarator.Label)
	assert.Equal(t, 4, declarator.Start)
	assert.Equal(t, 9, declarator.End)
}

func TestNormalize_FromESTree(t *testing.T) {
	doc := `{"type":"Program","start":0,"end":10,"body":[{"type":"VariableDeclaration","start":0,"end":10,"kind":"let",
		"declarations":[{"type":"VariableDeclarator","start":4,"end":9,
		"id":{"type":"Identifier","start":4,"end":5,"name":"x"},
		"init":{"type":"Literal","start":8,"end":9,"value":1,"raw":"1"}}]}],"sourceType":"script"}`
	raw, err := models.FromESTree([]byte(doc))
	require.NoError(t, err)

	root, err := Normalize(raw)
	require.NoError(t, err)
	assert.Equal(t, 5, Count(root))
	assert.Equal(t, "VariableDeclaration (let)", root.Children[0].Label)

	literal, ok := Find(root, 4)
	require.True(t, ok)
	assert.Equal(t, "Literal (1)", literal.Label)
}

func TestNormalize_StringLiteralLabelsIgnoreQuotes(t *testing.T) {
	analyzer := code_analyzer.NewCodeAnalyzer("", false, nil)
	raw, err := analyzer.Parse(context.Background(), `let x = 'hi'; let y = "hi";`, contracts.ParseOptions{TrackLocations: true})
	require.NoError(t, err)

	root, err := Normalize(raw)
	require.NoError(t, err)
	var literals []string
	Walk(root, func(node *Node, _ int) bool {
		if strings.HasPrefix(node.Label, "Literal") {
			literals = append(literals, node.Label)
		}
		return true
	})
	assert.Equal(t, []string{"Literal (hi)", "Literal (hi)"}, literals)

	doc := `{"type":"Program","start":0,"end":4,"body":[{"type":"ExpressionStatement","start":0,"end":4,
		"expression":{"type":"Literal","start":0,"end":4,"value":"hi","raw":"\"hi\""}}]}`
	raw, err = models.FromESTree([]byte(doc))
	require.NoError(t, err)
	root, err = Normalize(raw)
	require.NoError(t, err)
	literal, ok := Find(root, 2)
	require.True(t, ok)
	assert.Equal(t, "Literal (hi)", literal.Label)
}

func TestNormalize_TemplateLiteral(t *testing.T) {
	analyzer := code_analyzer.NewCodeAnalyzer("", false, nil)
	raw, err := analyzer.Parse(context.Background(), "let s = `a${b}c`;", contracts.ParseOptions{TrackLocations: true})
	require.NoError(t, err)

	root, err := Normalize(raw)
	require.NoError(t, err)
	var template *Node
	Walk(root, func(node *Node, _ int) bool {
		if node.Label == "TemplateLiteral" {
			template = node
			return false
		}
		return true
	})
	require.NotNil(t, template)
	require.Len(t, template.Children, 3)

	labels := make([]string, 0, len(template.Children))
	for _, child := range template.Children {
		labels = append(labels, child.Label)
	}
	assert.Equal(t, []string{"TemplateElement (a)", "Identifier (b)", "TemplateElement (c)"}, labels)
	assert.Equal(t, 9, template.Children[0].Start)
	assert.Equal(t, 10, template.Children[0].End)
	assert.Equal(t, 12, template.Children[1].Start)
	assert.Equal(t, 14, template.Children[2].Start)
	assert.Equal(t, 15, template.Children[2].End)
}

func TestNormalize_ESTreeTemplateElement(t *testing.T) {
	doc := `{"type":"TemplateLiteral","start":0,"end":5,"expressions":[],
		"quasis":[{"type":"TemplateElement","start":1,"end":4,"tail":true,"value":{"raw":"a\\n","cooked":"a\n"}}]}`
	raw, err := models.FromESTree([]byte(doc))
	require.NoError(t, err)

	root, err := Normalize(raw)
	require.NoError(t, err)
	require.Len(t, root.Children, 1)
	assert.Equal(t, "TemplateElement (a\n)", root.Children[0].Label)

	quasis := raw.Fields[1]
	require.Equal(t, "quasis", quasis.Name)
	rawText, ok := quasis.List[0].Scalar("raw")
	require.True(t, ok)
	assert.Equal(t, `a\n`, rawText)
}

func TestNodeSerialization(t *testing.T) {
	root := &Node{Label: "Program", Start: 0, End: 1, Children: []*Node{{Label: "Identifier (a)", Start: 0, End: 1, Children: []*Node{}}}}

	data, err := json.Marshal(root)
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"Program","start":0,"end":1,"children":[{"name":"Identifier (a)","start":0,"end":1,"children":[]}]}`, string(data))

	decoded, err := Decode(data)
	require.NoError(t, err)
	assert.True(t, Equal(root, decoded))

	out, err := yaml.Marshal(root)
	require.NoError(t, err)
	assert.Contains(t, string(out), "name: Program")

	_, err = Decode([]byte(`{"start":1}`))
	assert.Error(t, err)
}

func TestFindAndCount(t *testing.T) {
	root := &Node{Label: "r", Children: []*Node{
		{Label: "a", Children: []*Node{{Label: "a1"}}},
		{Label: "b"},
	}}
	assert.Equal(t, 4, Count(root))

	node, ok := Find(root, 2)
	require.True(t, ok)
	assert.Equal(t, "a1", node.Label)

	_, ok = Find(root, 4)
	assert.False(t, ok)
	assert.Equal(t, 0, Count(nil))
}
