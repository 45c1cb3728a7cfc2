package code_analyzer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/meysamhadeli/astview/code_analyzer/contracts"
	"github.com/meysamhadeli/astview/code_analyzer/models"
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
)

// CodeAnalyzer parses JavaScript source into RawNode trees.
type CodeAnalyzer struct {
	mu           sync.Mutex
	parser       *sitter.Parser
	cacheManager *CacheManager
	logger       *slog.Logger
}

// NewCodeAnalyzer initializes a new CodeAnalyzer backed by the tree-sitter JavaScript grammar.
// An empty cacheDir selects the default ".cache" directory; enableCache=false disables caching.
func NewCodeAnalyzer(cacheDir string, enableCache bool, logger *slog.Logger) contracts.ICodeAnalyzer {
	if logger == nil {
		logger = slog.Default()
	}

	var cacheManager *CacheManager
	if enableCache {
		var err error
		cacheManager, err = NewCacheManager(cacheDir)
		if err != nil {
			// Fallback to no caching if cache initialization fails
			logger.Warn("failed to initialize parse cache", "error", err)
			cacheManager = nil
		}
	}

	parser := sitter.NewParser()
	parser.SetLanguage(javascript.GetLanguage())

	return &CodeAnalyzer{
		parser:       parser,
		cacheManager: cacheManager,
		logger:       logger,
	}
}

// Parse runs the grammar over source. Grammar errors come back as *models.ParseFailure;
// nothing panics past this call.
func (analyzer *CodeAnalyzer) Parse(ctx context.Context, source string, options contracts.ParseOptions) (root *models.RawNode, err error) {
	defer func() {
		if r := recover(); r != nil {
			analyzer.logger.Error("javascript parser panicked", "panic", r)
			root = nil
			err = &models.ParseFailure{Message: fmt.Sprintf("parser failure: %v", r)}
		}
	}()

	if analyzer.cacheManager != nil {
		if cached, found := analyzer.cacheManager.GetParseCache(source); found {
			return finishTree(cached, options), nil
		}
	}

	content := []byte(source)

	analyzer.mu.Lock()
	tree, err := analyzer.parser.ParseCtx(ctx, nil, content)
	analyzer.mu.Unlock()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &models.ParseFailure{Message: err.Error()}
	}
	defer tree.Close()

	rootNode := tree.RootNode()
	if rootNode.HasError() {
		return nil, describeSyntaxError(rootNode, content)
	}

	converter := &treeConverter{source: content, maxDepth: options.MaxDepth}
	root, err = converter.convert(rootNode, 0)
	if err != nil {
		return nil, err
	}

	if analyzer.cacheManager != nil {
		if err := analyzer.cacheManager.SetParseCache(source, root); err != nil {
			analyzer.logger.Debug("parse cache write failed", "error", err)
		}
	}

	return finishTree(root, options), nil
}

// ParseESTree accepts a parse tree produced elsewhere (acorn, espree) as ESTree JSON.
func (analyzer *CodeAnalyzer) ParseESTree(data []byte) (*models.RawNode, error) {
	root, err := models.FromESTree(data)
	if err != nil {
		return nil, &models.ParseFailure{Message: err.Error()}
	}
	return root, nil
}

// ClearCache removes every cached parse tree.
func (analyzer *CodeAnalyzer) ClearCache() error {
	if analyzer.cacheManager == nil {
		return nil
	}
	return analyzer.cacheManager.ClearCache()
}

// GetCacheStats reports storage and hit-rate figures of the parse cache.
func (analyzer *CodeAnalyzer) GetCacheStats() (map[string]interface{}, error) {
	if analyzer.cacheManager == nil {
		return map[string]interface{}{"cache_enabled": false}, nil
	}
	stats, err := analyzer.cacheManager.GetCacheStats()
	if err != nil {
		return nil, err
	}
	for key, value := range analyzer.cacheManager.GetPerformanceStats() {
		stats[key] = value
	}
	stats["cache_enabled"] = true
	return stats, nil
}

func finishTree(root *models.RawNode, options contracts.ParseOptions) *models.RawNode {
	if !options.TrackLocations {
		stripLocations(root)
	}
	return root
}

func stripLocations(node *models.RawNode) {
	if node == nil {
		return
	}
	node.Start, node.End = nil, nil
	for _, field := range node.Fields {
		stripLocations(field.Node)
		for _, child := range field.List {
			stripLocations(child)
		}
	}
}

// describeSyntaxError locates the first ERROR or MISSING node in document order.
func describeSyntaxError(root *sitter.Node, source []byte) *models.ParseFailure {
	bad := findErrorNode(root)
	if bad == nil {
		return &models.ParseFailure{Message: "invalid JavaScript syntax"}
	}

	point := bad.StartPoint()
	failure := &models.ParseFailure{
		Line:   int(point.Row) + 1,
		Column: int(point.Column) + 1,
		Offset: int(bad.StartByte()),
	}
	if bad.IsMissing() {
		failure.Message = fmt.Sprintf("missing %s", bad.Type())
		return failure
	}

	snippet := strings.TrimSpace(bad.Content(source))
	if len(snippet) > 24 {
		snippet = snippet[:24] + "..."
	}
	if snippet == "" {
		failure.Message = "unexpected end of input"
	} else {
		failure.Message = fmt.Sprintf("unexpected token %q", snippet)
	}
	return failure
}

func findErrorNode(node *sitter.Node) *sitter.Node {
	if node == nil {
		return nil
	}
	if node.IsMissing() || node.Type() == "ERROR" {
		return node
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child == nil || !(child.HasError() || child.IsMissing()) {
			continue
		}
		if found := findErrorNode(child); found != nil {
			return found
		}
	}
	return nil
}
