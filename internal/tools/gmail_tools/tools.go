package gmail_tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/workspace-mcp/internal/instrumentation"
	"github.com/teemow/workspace-mcp/internal/server"
	"github.com/teemow/workspace-mcp/internal/tools/common"
)

// maxListResults caps gmail_list_messages; each message costs one metadata request.
const maxListResults = 100

// RegisterGmailTools registers all Gmail-related tools with the MCP server
func RegisterGmailTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	listMessagesTool := mcp.NewTool("gmail_list_messages",
		mcp.WithDescription("List Gmail messages matching a query"),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithString("query",
			mcp.Description("Gmail search query (e.g., 'in:inbox', 'from:user@example.com'; default: all mail)"),
		),
		mcp.WithNumber("maxResults",
			mcp.Description("Maximum number of messages to return (default: 10, max: 100)"),
		),
	)
	s.AddTool(listMessagesTool, common.InstrumentedToolHandlerWithService("gmail_list_messages",
		instrumentation.ServiceGmail, instrumentation.OperationList, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleListMessages(ctx, request, sc)
		}))

	return nil
}

func handleListMessages(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	if result := common.RequireSession(ctx, sc); result != nil {
		return result, nil
	}
	args, _ := request.Params.Arguments.(map[string]interface{})

	query, _ := args["query"].(string)
	var maxResults int64
	if v, ok := args["maxResults"].(float64); ok && v > 0 {
		maxResults = min(int64(v), maxListResults)
	}

	client, err := sc.GmailClient(ctx)
	if err != nil {
		return mcp.NewToolResultError(common.NotAuthenticatedMessage(sc.Session())), nil
	}

	messages, err := client.ListMessages(ctx, query, maxResults)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to list messages: %v", err)), nil
	}

	result, _ := json.MarshalIndent(messages, "", "  ")
	return mcp.NewToolResultText(string(result)), nil
}
