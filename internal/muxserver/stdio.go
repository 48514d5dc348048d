package muxserver

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"log/slog"

	"github.com/spike-land/spike/internal/protocol"
)

// RunStdio serves s over process stdin/stdout: one JSON-RPC request per
// line in, one JSON-RPC response per line out. stdout is reserved for
// MCP frames — every diagnostic goes through logger, which callers must
// have pointed at stderr. There is no session concept on this
// transport: it is a single long-lived server bound to the process's
// own lifetime, so API-key and MCP-Session-Id handling (both HTTP-header
// concerns) do not apply here.
func RunStdio(ctx context.Context, s *Server, in io.Reader, out io.Writer, logger *slog.Logger) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	enc := json.NewEncoder(out)

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req protocol.Request
		if err := json.Unmarshal(line, &req); err != nil {
			logger.Warn("stdio: malformed request line", "error", err)
			enc.Encode(errorResponse(nil, protocol.ErrorCodeParseError, "parse error"))
			continue
		}
		if req.ID == nil {
			req.ID = ""
		}

		resp := s.dispatchMethod(ctx, &req)
		if err := enc.Encode(resp); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	logger.Info("stdio: input closed, shutting down")
	return nil
}
