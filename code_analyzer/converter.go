package code_analyzer

import (
	"fmt"

	"github.com/meysamhadeli/astview/code_analyzer/models"
	sitter "github.com/smacker/go-tree-sitter"
)

// estreeKinds maps tree-sitter-javascript node types onto ESTree type names.
// Types missing from the table keep their grammar name.
var estreeKinds = map[string]string{
	"program":                               "Program",
	"lexical_declaration":                   "VariableDeclaration",
	"variable_declaration":                  "VariableDeclaration",
	"variable_declarator":                   "VariableDeclarator",
	"identifier":                            "Identifier",
	"property_identifier":                   "Identifier",
	"shorthand_property_identifier":         "Identifier",
	"shorthand_property_identifier_pattern": "Identifier",
	"statement_identifier":                  "Identifier",
	"private_property_identifier":           "PrivateIdentifier",
	"number":                                "Literal",
	"string":                                "Literal",
	"true":                                  "Literal",
	"false":                                 "Literal",
	"null":                                  "Literal",
	"regex":                                 "Literal",
	"template_string":                       "TemplateLiteral",
	"expression_statement":                  "ExpressionStatement",
	"binary_expression":                     "BinaryExpression",
	"unary_expression":                      "UnaryExpression",
	"update_expression":                     "UpdateExpression",
	"assignment_expression":                 "AssignmentExpression",
	"augmented_assignment_expression":       "AssignmentExpression",
	"ternary_expression":                    "ConditionalExpression",
	"call_expression":                       "CallExpression",
	"new_expression":                        "NewExpression",
	"member_expression":                     "MemberExpression",
	"subscript_expression":                  "MemberExpression",
	"sequence_expression":                   "SequenceExpression",
	"await_expression":                      "AwaitExpression",
	"yield_expression":                      "YieldExpression",
	"spread_element":                        "SpreadElement",
	"rest_pattern":                          "RestElement",
	"assignment_pattern":                    "AssignmentPattern",
	"object_pattern":                        "ObjectPattern",
	"array_pattern":                         "ArrayPattern",
	"this":                                  "ThisExpression",
	"super":                                 "Super",
	"function_declaration":                  "FunctionDeclaration",
	"generator_function_declaration":        "FunctionDeclaration",
	"function_expression":                   "FunctionExpression",
	"function":                              "FunctionExpression",
	"generator_function":                    "FunctionExpression",
	"arrow_function":                        "ArrowFunctionExpression",
	"statement_block":                       "BlockStatement",
	"return_statement":                      "ReturnStatement",
	"if_statement":                          "IfStatement",
	"else_clause":                           "ElseClause",
	"for_statement":                         "ForStatement",
	"for_in_statement":                      "ForInStatement",
	"while_statement":                       "WhileStatement",
	"do_statement":                          "DoWhileStatement",
	"break_statement":                       "BreakStatement",
	"continue_statement":                    "ContinueStatement",
	"throw_statement":                       "ThrowStatement",
	"try_statement":                         "TryStatement",
	"catch_clause":                          "CatchClause",
	"finally_clause":                        "FinallyClause",
	"switch_statement":                      "SwitchStatement",
	"switch_case":                           "SwitchCase",
	"switch_default":                        "SwitchCase",
	"labeled_statement":                     "LabeledStatement",
	"empty_statement":                       "EmptyStatement",
	"debugger_statement":                    "DebuggerStatement",
	"object":                                "ObjectExpression",
	"pair":                                  "Property",
	"array":                                 "ArrayExpression",
	"class_declaration":                     "ClassDeclaration",
	"class":                                 "ClassExpression",
	"class_body":                            "ClassBody",
	"method_definition":                     "MethodDefinition",
	"field_definition":                      "PropertyDefinition",
	"import_statement":                      "ImportDeclaration",
	"import_specifier":                      "ImportSpecifier",
	"namespace_import":                      "ImportNamespaceSpecifier",
	"export_statement":                      "ExportNamedDeclaration",
	"export_specifier":                      "ExportSpecifier",
}

// transparentKinds only group their children; the children are hoisted into the parent.
var transparentKinds = map[string]bool{
	"arguments":                true,
	"formal_parameters":        true,
	"parenthesized_expression": true,
	"template_substitution":    true,
}

// identifierKinds carry their text as the "name" scalar.
var identifierKinds = map[string]bool{
	"identifier":                            true,
	"property_identifier":                   true,
	"shorthand_property_identifier":         true,
	"shorthand_property_identifier_pattern": true,
	"statement_identifier":                  true,
	"private_property_identifier":           true,
}

// literalKinds carry their text as "value"/"raw" scalars and are leaves.
var literalKinds = map[string]bool{
	"number": true,
	"string": true,
	"true":   true,
	"false":  true,
	"null":   true,
	"regex":  true,
}

// skippedKinds are grammar extras without an ESTree counterpart.
var skippedKinds = map[string]bool{
	"comment":          true,
	"hashbang_comment": true,
}

func canonicalKind(grammarKind string) string {
	if kind, ok := estreeKinds[grammarKind]; ok {
		return kind
	}
	return grammarKind
}

type treeConverter struct {
	source   []byte
	maxDepth int
}

func (c *treeConverter) convert(node *sitter.Node, depth int) (*models.RawNode, error) {
	if c.maxDepth > 0 && depth > c.maxDepth {
		point := node.StartPoint()
		return nil, &models.ParseFailure{
			Message: fmt.Sprintf("syntax tree nesting exceeds %d levels", c.maxDepth),
			Line:    int(point.Row) + 1,
			Column:  int(point.Column) + 1,
			Offset:  int(node.StartByte()),
		}
	}

	grammarKind := node.Type()
	raw := models.NewRawNode(canonicalKind(grammarKind)).
		SetSpan(int(node.StartByte()), int(node.EndByte()))

	switch {
	case identifierKinds[grammarKind]:
		raw.AddScalar("name", node.Content(c.source))
		return raw, nil
	case literalKinds[grammarKind]:
		text := node.Content(c.source)
		raw.AddScalar("raw", text)
		raw.AddScalar("value", literalValue(grammarKind, text))
		return raw, nil
	case grammarKind == "template_string":
		if err := c.collectTemplate(raw, node, depth); err != nil {
			return nil, err
		}
		return raw, nil
	}

	if err := c.collectFields(raw, node, "children", depth); err != nil {
		return nil, err
	}

	// "var" has no field name in the grammar, unlike "let"/"const".
	if grammarKind == "variable_declaration" {
		if _, ok := raw.Scalar("kind"); !ok {
			kind := "var"
			raw.Fields = append([]models.Field{{Name: "kind", Scalar: &kind}}, raw.Fields...)
		}
	}
	return raw, nil
}

func (c *treeConverter) collectFields(raw *models.RawNode, node *sitter.Node, fallbackName string, depth int) error {
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child == nil {
			continue
		}
		fieldName := node.FieldNameForChild(i)

		if !child.IsNamed() {
			if fieldName != "" {
				raw.AddScalar(fieldName, child.Type())
			}
			continue
		}
		if skippedKinds[child.Type()] {
			continue
		}

		name := fieldName
		if name == "" {
			name = fallbackName
		}

		if transparentKinds[child.Type()] {
			if err := c.collectFields(raw, child, name, depth+1); err != nil {
				return err
			}
			continue
		}

		converted, err := c.convert(child, depth+1)
		if err != nil {
			return err
		}
		appendChild(raw, name, converted)
	}
	return nil
}

// collectTemplate splits a template literal into TemplateElement quasis for the
// text between substitutions and the hoisted substitution expressions, in
// source order. Text runs are taken from the gaps between substitutions, so
// escape sequences stay inside the element they belong to.
func (c *treeConverter) collectTemplate(raw *models.RawNode, node *sitter.Node, depth int) error {
	textStart := int(node.StartByte()) + 1
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		if child == nil || child.Type() != "template_substitution" {
			continue
		}
		c.appendQuasi(raw, textStart, int(child.StartByte()))
		if err := c.collectFields(raw, child, "expressions", depth+1); err != nil {
			return err
		}
		textStart = int(child.EndByte())
	}
	c.appendQuasi(raw, textStart, int(node.EndByte())-1)
	return nil
}

func (c *treeConverter) appendQuasi(raw *models.RawNode, start, end int) {
	if end <= start || end > len(c.source) {
		return
	}
	text := string(c.source[start:end])
	element := models.NewRawNode("TemplateElement").SetSpan(start, end).
		AddScalar("raw", text).
		AddScalar("value", text)
	appendChild(raw, "quasis", element)
}

// appendChild merges consecutive children that share a field name into one list field.
func appendChild(raw *models.RawNode, name string, child *models.RawNode) {
	if n := len(raw.Fields); n > 0 {
		last := &raw.Fields[n-1]
		if last.Name == name && last.Scalar == nil {
			if !last.IsList {
				last.List = []*models.RawNode{last.Node}
				last.Node = nil
				last.IsList = true
			}
			last.List = append(last.List, child)
			return
		}
	}
	raw.AddNode(name, child)
}

func literalValue(grammarKind, text string) string {
	if grammarKind != "string" || len(text) < 2 {
		return text
	}
	quote := text[0]
	if (quote == '"' || quote == '\'') && text[len(text)-1] == quote {
		return text[1 : len(text)-1]
	}
	return text
}
