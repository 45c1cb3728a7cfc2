package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/meysamhadeli/astview/code_analyzer/models"
	"github.com/meysamhadeli/astview/hierarchy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

type cli struct {
	t   *testing.T
	dir string
}

func newCLI(t *testing.T) *cli {
	return &cli{t: t, dir: t.TempDir()}
}

// run executes the root command against a private database, with caching off.
func (c *cli) run(stdin string, args ...string) (string, error) {
	c.t.Helper()
	var out, errOut bytes.Buffer
	full := append(args,
		"--storage_path", filepath.Join(c.dir, "astview.db"),
		"--enable_cache=false",
		"--log_level", "error",
	)
	rootCmd.SetArgs(full)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	err := rootCmd.Execute()
	return out.String(), err
}

func (c *cli) file(name, content string) string {
	c.t.Helper()
	path := filepath.Join(c.dir, name)
	require.NoError(c.t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestParse_JSON(t *testing.T) {
	c := newCLI(t)
	out, err := c.run("", "parse", c.file("a.js", "let x = 1;"), "--format", "json", "--estree=false", "--no-locations=false")
	require.NoError(t, err)

	var root hierarchy.Node
	require.NoError(t, json.Unmarshal([]byte(out), &root))
	assert.Equal(t, "Program", root.Label)
	assert.Equal(t, 10, root.End)
	require.Len(t, root.Children, 1)
	assert.Equal(t, "VariableDeclaration (let)", root.Children[0].Label)
}

func TestParse_YAMLFromStdin(t *testing.T) {
	c := newCLI(t)
	out, err := c.run("const y = 'a';", "parse", "-", "--format", "yaml", "--estree=false", "--no-locations=false")
	require.NoError(t, err)

	var root hierarchy.Node
	require.NoError(t, yaml.Unmarshal([]byte(out), &root))
	assert.Equal(t, "VariableDeclaration (const)", root.Children[0].Label)
	literal, ok := hierarchy.Find(&root, 4)
	require.True(t, ok)
	assert.Equal(t, "Literal (a)", literal.Label)
}

func TestParse_TreeAndSVG(t *testing.T) {
	c := newCLI(t)
	path := c.file("a.js", "let x = 1;")

	out, err := c.run("", "parse", path, "--format", "tree", "--estree=false", "--no-locations=false")
	require.NoError(t, err)
	assert.Contains(t, out, "VariableDeclarator [4,9)")
	assert.Contains(t, out, "Identifier (x) [4,5)")

	out, err = c.run("", "parse", path, "--format", "svg", "--estree=false", "--no-locations=false")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "<svg"))
	assert.Equal(t, 5, strings.Count(out, `class="node"`))
}

func TestParse_NoLocations(t *testing.T) {
	c := newCLI(t)
	out, err := c.run("", "parse", c.file("a.js", "let x = 1;"), "--format", "json", "--estree=false", "--no-locations")
	require.NoError(t, err)

	var root hierarchy.Node
	require.NoError(t, json.Unmarshal([]byte(out), &root))
	hierarchy.Walk(&root, func(node *hierarchy.Node, _ int) bool {
		assert.Zero(t, node.Start)
		assert.Zero(t, node.End)
		return true
	})
}

func TestParse_ESTree(t *testing.T) {
	c := newCLI(t)
	doc := `{"type":"Program","start":0,"end":5,"body":[
		{"type":"ExpressionStatement","start":0,"end":5,
		 "expression":{"type":"Identifier","start":0,"end":4,"name":"john"}}]}`
	out, err := c.run(doc, "parse", "--format", "json", "--estree", "--no-locations=false")
	require.NoError(t, err)

	var root hierarchy.Node
	require.NoError(t, json.Unmarshal([]byte(out), &root))
	found, ok := hierarchy.Find(&root, 2)
	require.True(t, ok)
	assert.Equal(t, "Identifier (john)", found.Label)
}

func TestParse_Errors(t *testing.T) {
	c := newCLI(t)

	_, err := c.run("x +", "parse", "--format", "json", "--estree=false", "--no-locations=false")
	var failure *models.ParseFailure
	require.ErrorAs(t, err, &failure)
	assert.Equal(t, 1, failure.Line)

	_, err = c.run("let x;", "parse", "--format", "dot", "--estree=false", "--no-locations=false")
	assert.ErrorContains(t, err, "unknown format")
}

func TestSelect(t *testing.T) {
	c := newCLI(t)
	path := c.file("a.js", "let x = 1;")

	out, err := c.run("", "select", path, "--node", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "#2 VariableDeclarator [4,9)")

	_, err = c.run("", "select", path, "--node", "99")
	assert.ErrorContains(t, err, "no node with index 99")
}

func TestCurrent_SetAndGet(t *testing.T) {
	c := newCLI(t)

	out, err := c.run("", "current", "get")
	require.NoError(t, err)
	assert.Contains(t, out, "// Write JavaScript here...")

	out, err = c.run("let a = 1;", "current", "set", "-")
	require.NoError(t, err)
	assert.Contains(t, out, "Working text saved")

	out, err = c.run("", "current", "get")
	require.NoError(t, err)
	assert.Equal(t, "let a = 1;\n", out)

	// text that does not parse is still stored
	out, err = c.run("let a =", "current", "set", "-")
	require.NoError(t, err)
	assert.Contains(t, out, "does not parse")

	out, err = c.run("", "current", "get")
	require.NoError(t, err)
	assert.Equal(t, "let a =\n", out)

	out, err = c.run("", "select", "--node", "0")
	require.Error(t, err)
	assert.Empty(t, out)
}

func TestSnapshot_Lifecycle(t *testing.T) {
	c := newCLI(t)

	out, err := c.run("", "snapshot", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "No snapshots yet")

	out, err = c.run("", "snapshot", "save", c.file("a.js", "let x = 1;"))
	require.NoError(t, err)
	assert.Contains(t, out, "Snapshot #1 saved")

	out, err = c.run("", "snapshot", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "let x = 1;")

	out, err = c.run("", "snapshot", "show", "1", "--format", "yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "key: let x = 1;")
	assert.Contains(t, out, "name: Program")

	_, err = c.run("let y = 2;", "current", "set", "-")
	require.NoError(t, err)

	out, err = c.run("", "snapshot", "restore", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "Restored snapshot #1 (5 nodes)")

	out, err = c.run("", "current", "get")
	require.NoError(t, err)
	assert.Equal(t, "let x = 1;\n", out)

	out, err = c.run("n\n", "snapshot", "delete", "1", "--force=false")
	require.NoError(t, err)
	assert.Contains(t, out, "Delete cancelled")

	out, err = c.run("y\n", "snapshot", "delete", "1", "--force=false")
	require.NoError(t, err)
	assert.Contains(t, out, "Snapshot #1 deleted")

	_, err = c.run("", "snapshot", "delete", "1", "--force")
	assert.Error(t, err)

	_, err = c.run("", "snapshot", "show", "zero", "--format", "yaml")
	assert.ErrorContains(t, err, "invalid snapshot id")
}

func TestSnapshotSave_RejectsInvalidText(t *testing.T) {
	c := newCLI(t)
	_, err := c.run("", "snapshot", "save", c.file("bad.js", "x +"))
	assert.ErrorContains(t, err, "snapshot not saved")
}

func TestResetCache_Disabled(t *testing.T) {
	c := newCLI(t)
	out, err := c.run("", "reset-cache", "--force", "--stats=false")
	require.NoError(t, err)
	assert.Contains(t, out, "Cache is disabled")
}

func TestPreview(t *testing.T) {
	assert.Equal(t, "let x = 1; let y = 2;", preview("let x = 1;\n  let y = 2;", 40))
	assert.Equal(t, "abcd...", preview("abcdefghij", 7))
}
