package contracts

import (
	"context"

	"github.com/meysamhadeli/astview/code_analyzer/models"
)

// ParseOptions mirrors the knobs of the grammar boundary.
type ParseOptions struct {
	TrackLocations bool
	MaxDepth       int
}

type ICodeAnalyzer interface {
	Parse(ctx context.Context, source string, options ParseOptions) (*models.RawNode, error)
	ParseESTree(data []byte) (*models.RawNode, error)
	ClearCache() error
	GetCacheStats() (map[string]interface{}, error)
}
