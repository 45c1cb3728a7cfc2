package utils

import (
	"context"
	"fmt"

	"github.com/meysamhadeli/astview/constants/lipgloss"
)

// GracefulShutdown waits for ctx to end, then runs cleanup once and cancels.
func GracefulShutdown(ctx context.Context, cancel context.CancelFunc, cleanup func()) {
	<-ctx.Done()
	fmt.Println(lipgloss.Yellow.Render("\nShutting down..."))
	if cleanup != nil {
		cleanup()
	}
	cancel()
}
