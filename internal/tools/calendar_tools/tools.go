package calendar_tools

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/workspace-mcp/internal/calendar"
	"github.com/teemow/workspace-mcp/internal/instrumentation"
	"github.com/teemow/workspace-mcp/internal/server"
	"github.com/teemow/workspace-mcp/internal/tools/common"
)

// defaultWindow is the event window used when timeMax is omitted.
const defaultWindow = 7 * 24 * time.Hour

// RegisterCalendarTools registers all Calendar-related tools with the MCP server
func RegisterCalendarTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	listEventsTool := mcp.NewTool("calendar_list_events",
		mcp.WithDescription("List/search calendar events within a time range"),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithString("calendarId",
			mcp.Description("Calendar ID (default: 'primary')"),
		),
		mcp.WithString("timeMin",
			mcp.Description("Start time for the range (RFC3339 format, e.g., '2025-01-01T00:00:00Z'; default: now)"),
		),
		mcp.WithString("timeMax",
			mcp.Description("End time for the range (RFC3339 format; default: one week after timeMin)"),
		),
		mcp.WithString("query",
			mcp.Description("Optional search query to filter events"),
		),
		mcp.WithNumber("maxResults",
			mcp.Description("Maximum number of events to return (default: 25)"),
		),
	)
	s.AddTool(listEventsTool, common.InstrumentedToolHandlerWithService("calendar_list_events",
		instrumentation.ServiceCalendar, instrumentation.OperationList, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleListEvents(ctx, request, sc, time.Now())
		}))

	listCalendarsTool := mcp.NewTool("calendar_list_calendars",
		mcp.WithDescription("List all calendars accessible to the user"),
		mcp.WithReadOnlyHintAnnotation(true),
	)
	s.AddTool(listCalendarsTool, common.InstrumentedToolHandlerWithService("calendar_list_calendars",
		instrumentation.ServiceCalendar, instrumentation.OperationList, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleListCalendars(ctx, sc)
		}))

	return nil
}

// parseWindow reads timeMin and timeMax, defaulting to a week from now.
func parseWindow(args map[string]interface{}, now time.Time) (time.Time, time.Time, error) {
	timeMin := now
	if s, ok := args["timeMin"].(string); ok && s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid timeMin %q: expected RFC3339", s)
		}
		timeMin = t
	}

	timeMax := timeMin.Add(defaultWindow)
	if s, ok := args["timeMax"].(string); ok && s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid timeMax %q: expected RFC3339", s)
		}
		timeMax = t
	}

	if !timeMax.After(timeMin) {
		return time.Time{}, time.Time{}, fmt.Errorf("timeMax must be after timeMin")
	}
	return timeMin, timeMax, nil
}

func handleListEvents(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext, now time.Time) (*mcp.CallToolResult, error) {
	args, _ := request.Params.Arguments.(map[string]interface{})

	timeMin, timeMax, err := parseWindow(args, now)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	opts := calendar.ListOptions{TimeMin: timeMin, TimeMax: timeMax}
	if calendarID, ok := args["calendarId"].(string); ok {
		opts.CalendarID = calendarID
	}
	if query, ok := args["query"].(string); ok {
		opts.Query = query
	}
	if maxResults, ok := args["maxResults"].(float64); ok && maxResults > 0 {
		opts.MaxResults = int(maxResults)
	}

	if result := common.RequireSession(ctx, sc); result != nil {
		return result, nil
	}
	client, err := sc.CalendarClient(ctx)
	if err != nil {
		return mcp.NewToolResultError(common.NotAuthenticatedMessage(sc.Session())), nil
	}

	events, err := client.ListEvents(ctx, opts)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to list events: %v", err)), nil
	}

	result, _ := json.MarshalIndent(events, "", "  ")
	return mcp.NewToolResultText(string(result)), nil
}

func handleListCalendars(ctx context.Context, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	if result := common.RequireSession(ctx, sc); result != nil {
		return result, nil
	}
	client, err := sc.CalendarClient(ctx)
	if err != nil {
		return mcp.NewToolResultError(common.NotAuthenticatedMessage(sc.Session())), nil
	}

	calendars, err := client.ListCalendars(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to list calendars: %v", err)), nil
	}

	result, _ := json.MarshalIndent(calendars, "", "  ")
	return mcp.NewToolResultText(string(result)), nil
}
