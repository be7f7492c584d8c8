package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	mcpproto "github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/sandevgo/shopbot/internal/core"
	"github.com/sandevgo/shopbot/internal/service/agent"
	"github.com/sandevgo/shopbot/pkg/log"
)

type ToolExecutor interface {
	Execute(ctx context.Context, calls []core.ToolCall) ([]core.Message, []core.ToolRecord)
}

// Server exposes the shopping tools to MCP clients over stdio. Calls go
// through the same executor the agent uses, so argument handling and
// result shapes are identical.
type Server struct {
	executor ToolExecutor
	mcp      *server.MCPServer
	in       io.Reader
	out      io.Writer
}

func NewServer(executor ToolExecutor, tools []core.Tool, in io.Reader, out io.Writer) *Server {
	s := &Server{
		executor: executor,
		mcp:      server.NewMCPServer(core.ShopName, core.ShopVersion, server.WithToolCapabilities(false)),
		in:       in,
		out:      out,
	}

	for _, t := range tools {
		s.mcp.AddTool(
			mcpproto.NewToolWithRawSchema(t.Function.Name, t.Function.Description, t.Function.Parameters),
			s.handle,
		)
	}
	return s
}

func (s *Server) Start(ctx context.Context) error {
	log.FromCtx(ctx).Info().Msg("serving MCP over stdio")
	return server.NewStdioServer(s.mcp).Listen(ctx, s.in, s.out)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return nil
}

func (s *Server) handle(ctx context.Context, req mcpproto.CallToolRequest) (*mcpproto.CallToolResult, error) {
	args := []byte("{}")
	if req.Params.Arguments != nil {
		raw, err := json.Marshal(req.Params.Arguments)
		if err != nil {
			return mcpproto.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
		}
		args = raw
	}

	msgs, records := s.executor.Execute(ctx, []core.ToolCall{{
		ID:   "mcp",
		Type: "function",
		Function: core.FunctionCall{
			Name:      req.Params.Name,
			Arguments: string(args),
		},
	}})
	if len(msgs) == 0 {
		return mcpproto.NewToolResultError("tool produced no result"), nil
	}

	if _, failed := records[0].Result.(agent.Failure); failed {
		return mcpproto.NewToolResultError(msgs[0].Content), nil
	}
	return mcpproto.NewToolResultText(msgs[0].Content), nil
}
