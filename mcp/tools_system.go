package mcp

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// globalCommands maps the system_navigate action argument onto bridge
// commands. Keys double as the documented action values.
var globalCommands = map[string]string{
	"back":           "back",
	"home":           "home",
	"recents":        "recents",
	"notifications":  "notifications",
	"quick_settings": "quickSettings",
}

// registerSystemTools registers tools for system navigation and app control
func (s *MCPServer) registerSystemTools() {
	// system_navigate - Global navigation actions
	s.server.AddTool(
		mcp.NewTool("system_navigate",
			mcp.WithDescription("Perform a global navigation action"),
			mcp.WithString("action",
				mcp.Required(),
				mcp.Description("One of: back, home, recents, notifications, quick_settings"),
			),
		),
		s.handleSystemNavigate,
	)

	// app_open - Launch an app by package name
	s.server.AddTool(
		mcp.NewTool("app_open",
			mcp.WithDescription("Launch an app by its package name"),
			mcp.WithString("package",
				mcp.Required(),
				mcp.Description("Package name, e.g. com.android.settings"),
			),
		),
		s.handleAppOpen,
	)

	// url_open - Open a URL with the default handler
	s.server.AddTool(
		mcp.NewTool("url_open",
			mcp.WithDescription("Open a URL with the device's default handler"),
			mcp.WithString("url",
				mcp.Required(),
				mcp.Description("URL to open"),
			),
		),
		s.handleURLOpen,
	)

	// current_app - Report the foreground app
	s.server.AddTool(
		mcp.NewTool("current_app",
			mcp.WithDescription("Get the package and activity of the foreground app"),
		),
		s.handleCurrentApp,
	)

	// screen_size - Report the display size
	s.server.AddTool(
		mcp.NewTool("screen_size",
			mcp.WithDescription("Get the screen size in pixels"),
		),
		s.handleScreenSize,
	)

	// command_history - Recent bridge commands
	s.server.AddTool(
		mcp.NewTool("command_history",
			mcp.WithDescription("Get the most recent bridge commands and their outcomes"),
			mcp.WithNumber("limit",
				mcp.Description("Maximum number of entries to return (default: 20)"),
			),
		),
		s.handleCommandHistory,
	)
}

func (s *MCPServer) handleSystemNavigate(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	action, ok := args["action"].(string)
	if !ok || action == "" {
		return nil, fmt.Errorf("action is required")
	}

	command, ok := globalCommands[action]
	if !ok {
		return nil, fmt.Errorf("unknown action: %s (use back, home, recents, notifications, quick_settings)", action)
	}

	text, err := s.dispatch(command, nil)
	if err != nil {
		return nil, err
	}
	return textResult(text), nil
}

func (s *MCPServer) handleAppOpen(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	pkg, ok := args["package"].(string)
	if !ok || pkg == "" {
		return nil, fmt.Errorf("package is required")
	}

	text, err := s.dispatch("openApp", map[string]any{"packageName": pkg})
	if err != nil {
		return nil, err
	}
	return textResult(text), nil
}

func (s *MCPServer) handleURLOpen(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	url, ok := args["url"].(string)
	if !ok || url == "" {
		return nil, fmt.Errorf("url is required")
	}

	text, err := s.dispatch("openUrl", map[string]any{"url": url})
	if err != nil {
		return nil, err
	}
	return textResult(text), nil
}

func (s *MCPServer) handleCurrentApp(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := s.dispatch("currentApp", nil)
	if err != nil {
		return nil, err
	}
	return textResult(text), nil
}

func (s *MCPServer) handleScreenSize(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := s.dispatch("getScreenSize", nil)
	if err != nil {
		return nil, err
	}
	return textResult(text), nil
}

func (s *MCPServer) handleCommandHistory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	params := map[string]any{}
	if limit, ok := args["limit"].(float64); ok && limit > 0 {
		params["limit"] = limit
	}

	text, err := s.dispatch("history", params)
	if err != nil {
		return nil, err
	}
	return textResult(text), nil
}
