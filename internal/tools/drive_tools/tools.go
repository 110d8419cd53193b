package drive_tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/workspace-mcp/internal/drive"
	"github.com/teemow/workspace-mcp/internal/instrumentation"
	"github.com/teemow/workspace-mcp/internal/server"
	"github.com/teemow/workspace-mcp/internal/tools/common"
)

// RegisterDriveTools registers the read-only Drive tools.
func RegisterDriveTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	s.AddTool(mcp.NewTool("drive_list_files",
		mcp.WithDescription("List files in Google Drive, optionally filtered with a Drive search query"),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithString("query",
			mcp.Description("Drive search query, e.g. \"name contains 'report'\" or \"mimeType='application/pdf'\""),
		),
		mcp.WithNumber("maxResults",
			mcp.Description(fmt.Sprintf("Page size (default %d, max %d)", drive.DefaultPageSize, drive.MaxPageSize)),
		),
		mcp.WithBoolean("includeTrashed",
			mcp.Description("Include files in the trash (default false)"),
		),
		mcp.WithString("pageToken",
			mcp.Description("nextPageToken of a previous call"),
		),
	), common.InstrumentedToolHandlerWithService("drive_list_files",
		instrumentation.ServiceDrive, instrumentation.OperationList, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleListFiles(ctx, request, sc)
		}))

	s.AddTool(mcp.NewTool("drive_get_file",
		mcp.WithDescription("Get the metadata of one Google Drive file"),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithString("fileId",
			mcp.Required(),
			mcp.Description("The ID of the file"),
		),
	), common.InstrumentedToolHandlerWithService("drive_get_file",
		instrumentation.ServiceDrive, instrumentation.OperationGet, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleGetFile(ctx, request, sc)
		}))

	return nil
}

func handleListFiles(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	opts := drive.ListOptions{
		Query:          request.GetString("query", ""),
		PageSize:       request.GetInt("maxResults", 0),
		PageToken:      request.GetString("pageToken", ""),
		IncludeTrashed: request.GetBool("includeTrashed", false),
	}

	if result := common.RequireSession(ctx, sc); result != nil {
		return result, nil
	}
	client, err := sc.DriveClient(ctx)
	if err != nil {
		return mcp.NewToolResultError(common.NotAuthenticatedMessage(sc.Session())), nil
	}

	page, err := client.ListFiles(ctx, opts)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to list files: %v", err)), nil
	}
	return jsonResult(page)
}

func handleGetFile(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	fileID, err := request.RequireString("fileId")
	if err != nil || fileID == "" {
		return mcp.NewToolResultError("fileId is required"), nil
	}

	if result := common.RequireSession(ctx, sc); result != nil {
		return result, nil
	}
	client, err := sc.DriveClient(ctx)
	if err != nil {
		return mcp.NewToolResultError(common.NotAuthenticatedMessage(sc.Session())), nil
	}

	file, err := client.GetFile(ctx, fileID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to get file: %v", err)), nil
	}
	return jsonResult(file)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}
