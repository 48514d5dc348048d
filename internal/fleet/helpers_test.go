package fleet

import (
	"context"
	"io"
	"log/slog"

	"github.com/spike-land/spike/internal/protocol"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testContext() context.Context {
	return context.Background()
}

func toolNamed(name, description string) protocol.Tool {
	return protocol.Tool{Name: name, Description: description}
}
