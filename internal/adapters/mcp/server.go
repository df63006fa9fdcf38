package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/acekavi/docqa/internal/core/ports"
)

// Server exposes question answering and structured extraction as MCP tools
// over stdio, so agent runtimes can use the indexed corpus directly.
type Server struct {
	log        *slog.Logger
	questions  ports.QuestionService
	extraction ports.ExtractionService
	mcpServer  *server.MCPServer
}

func NewServer(log *slog.Logger, questions ports.QuestionService, extraction ports.ExtractionService, version string) *Server {
	s := &Server{
		log:        log,
		questions:  questions,
		extraction: extraction,
	}

	mcpServer := server.NewMCPServer("docqa", version, server.WithToolCapabilities(false))

	mcpServer.AddTool(mcp.NewTool("ask",
		mcp.WithDescription("Answer a question grounded in the indexed documents. Returns the answer and its cited sources."),
		mcp.WithString("question", mcp.Required(), mcp.Description("The question to answer.")),
		mcp.WithNumber("top_k", mcp.Description("How many source chunks to retrieve.")),
	), s.handleAsk)

	mcpServer.AddTool(mcp.NewTool("ask_reranked",
		mcp.WithDescription("Answer a question using two-stage retrieval with cross-encoder reranking."),
		mcp.WithString("question", mcp.Required(), mcp.Description("The question to answer.")),
		mcp.WithNumber("initial_k", mcp.Description("First-stage candidate window size.")),
		mcp.WithNumber("final_k", mcp.Description("How many reranked chunks to keep.")),
	), s.handleAskReranked)

	mcpServer.AddTool(mcp.NewTool("extract",
		mcp.WithDescription("Extract schema-validated structured data from free-form text."),
		mcp.WithString("text", mcp.Required(), mcp.Description("The text to extract from.")),
	), s.handleExtract)

	s.mcpServer = mcpServer
	return s
}

// ServeStdio blocks serving the MCP protocol on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

func (s *Server) handleAsk(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	question, ok := args["question"].(string)
	if !ok {
		return mcp.NewToolResultError("question must be a string"), nil
	}

	answer, err := s.questions.Ask(ctx, question, intArg(args, "top_k"))
	if err != nil {
		s.log.Error("ask tool failed", "error", err)
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(answer)
}

func (s *Server) handleAskReranked(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	question, ok := args["question"].(string)
	if !ok {
		return mcp.NewToolResultError("question must be a string"), nil
	}

	answer, err := s.questions.AskReranked(ctx, question, intArg(args, "initial_k"), intArg(args, "final_k"))
	if err != nil {
		s.log.Error("ask_reranked tool failed", "error", err)
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(answer)
}

func (s *Server) handleExtract(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	text, ok := args["text"].(string)
	if !ok {
		return mcp.NewToolResultError("text must be a string"), nil
	}

	result, err := s.extraction.Extract(ctx, text)
	if err != nil {
		s.log.Error("extract tool failed", "error", err)
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(result)
}

// intArg reads an optional numeric argument; JSON numbers arrive as float64.
func intArg(args map[string]any, name string) int {
	value, ok := args[name].(float64)
	if !ok {
		return 0
	}
	return int(value)
}

func jsonResult(payload any) (*mcp.CallToolResult, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal tool result: %w", err)
	}
	return mcp.NewToolResultText(string(raw)), nil
}
