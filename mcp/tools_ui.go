package mcp

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// registerUITools registers tools that read and act on the UI tree
func (s *MCPServer) registerUITools() {
	// ui_hierarchy - Serialize the active window tree
	s.server.AddTool(
		mcp.NewTool("ui_hierarchy",
			mcp.WithDescription("Get the full UI hierarchy of the active window as a JSON tree"),
		),
		s.handleUIHierarchy,
	)

	// ui_click - Tap at coordinates
	s.server.AddTool(
		mcp.NewTool("ui_click",
			mcp.WithDescription("Tap at specific screen coordinates"),
			mcp.WithNumber("x",
				mcp.Required(),
				mcp.Description("X coordinate in pixels"),
			),
			mcp.WithNumber("y",
				mcp.Required(),
				mcp.Description("Y coordinate in pixels"),
			),
		),
		s.handleUIClick,
	)

	// ui_click_text - Click an element by its text
	s.server.AddTool(
		mcp.NewTool("ui_click_text",
			mcp.WithDescription("Find an element by text and click it"),
			mcp.WithString("text",
				mcp.Required(),
				mcp.Description("Text to search for"),
			),
			mcp.WithBoolean("exact",
				mcp.Description("Require an exact text match instead of substring (default: false)"),
			),
		),
		s.handleUIClickText,
	)

	// ui_long_click_text - Long-click an element by its text
	s.server.AddTool(
		mcp.NewTool("ui_long_click_text",
			mcp.WithDescription("Find an element by text and long-click it"),
			mcp.WithString("text",
				mcp.Required(),
				mcp.Description("Text to search for"),
			),
			mcp.WithBoolean("exact",
				mcp.Description("Require an exact text match instead of substring (default: false)"),
			),
		),
		s.handleUILongClickText,
	)

	// ui_find - Locate an element without acting on it
	s.server.AddTool(
		mcp.NewTool("ui_find",
			mcp.WithDescription("Find an element by text and return its properties without clicking"),
			mcp.WithString("text",
				mcp.Required(),
				mcp.Description("Text to search for"),
			),
			mcp.WithBoolean("exact",
				mcp.Description("Require an exact text match instead of substring (default: false)"),
			),
		),
		s.handleUIFind,
	)

	// ui_input - Set text on an editable element
	s.server.AddTool(
		mcp.NewTool("ui_input",
			mcp.WithDescription("Type text into an editable field"),
			mcp.WithString("text",
				mcp.Required(),
				mcp.Description("Text to type"),
			),
			mcp.WithString("target_text",
				mcp.Description("Text of the target field; defaults to the first editable element"),
			),
		),
		s.handleUIInput,
	)

	// ui_swipe - Two-point swipe
	s.server.AddTool(
		mcp.NewTool("ui_swipe",
			mcp.WithDescription("Swipe from one point to another"),
			mcp.WithNumber("start_x", mcp.Required(), mcp.Description("Start X coordinate")),
			mcp.WithNumber("start_y", mcp.Required(), mcp.Description("Start Y coordinate")),
			mcp.WithNumber("end_x", mcp.Required(), mcp.Description("End X coordinate")),
			mcp.WithNumber("end_y", mcp.Required(), mcp.Description("End Y coordinate")),
			mcp.WithNumber("duration",
				mcp.Description("Swipe duration in milliseconds (default: 300)"),
			),
		),
		s.handleUISwipe,
	)

	// ui_scroll - Scroll a scrollable element
	s.server.AddTool(
		mcp.NewTool("ui_scroll",
			mcp.WithDescription("Find a scrollable element by text and scroll it"),
			mcp.WithString("text",
				mcp.Required(),
				mcp.Description("Text of the element to scroll"),
			),
			mcp.WithString("direction",
				mcp.Description("Scroll direction: up, down, forward, backward (default: down)"),
			),
		),
		s.handleUIScroll,
	)

	// ui_gesture - Multi-point gesture path
	s.server.AddTool(
		mcp.NewTool("ui_gesture",
			mcp.WithDescription("Perform a custom gesture along a path of screen points"),
			mcp.WithArray("points",
				mcp.Required(),
				mcp.Description("Array of {x, y} points, at least 2"),
			),
			mcp.WithNumber("duration",
				mcp.Description("Per-segment duration in milliseconds (default: 500)"),
			),
		),
		s.handleUIGesture,
	)
}

// Tool handlers

func (s *MCPServer) handleUIHierarchy(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := s.dispatch("hierarchy", nil)
	if err != nil {
		return nil, err
	}
	return textResult(text), nil
}

func (s *MCPServer) handleUIClick(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	x, xok := args["x"].(float64)
	y, yok := args["y"].(float64)
	if !xok || !yok {
		return nil, fmt.Errorf("x and y are required")
	}

	text, err := s.dispatch("click", map[string]any{"x": x, "y": y})
	if err != nil {
		return nil, err
	}
	return textResult(text), nil
}

func (s *MCPServer) handleUIClickText(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	params, err := textMatchParams(request)
	if err != nil {
		return nil, err
	}
	text, err := s.dispatch("clickByText", params)
	if err != nil {
		return nil, err
	}
	return textResult(text), nil
}

func (s *MCPServer) handleUILongClickText(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	params, err := textMatchParams(request)
	if err != nil {
		return nil, err
	}
	text, err := s.dispatch("longClickByText", params)
	if err != nil {
		return nil, err
	}
	return textResult(text), nil
}

func (s *MCPServer) handleUIFind(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	params, err := textMatchParams(request)
	if err != nil {
		return nil, err
	}
	text, err := s.dispatch("find", params)
	if err != nil {
		return nil, err
	}
	return textResult(text), nil
}

func (s *MCPServer) handleUIInput(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	input, ok := args["text"].(string)
	if !ok || input == "" {
		return nil, fmt.Errorf("text is required")
	}

	params := map[string]any{"text": input}
	if target, ok := args["target_text"].(string); ok && target != "" {
		params["targetText"] = target
	}

	text, err := s.dispatch("input", params)
	if err != nil {
		return nil, err
	}
	return textResult(text), nil
}

func (s *MCPServer) handleUISwipe(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	params := map[string]any{}
	for argName, paramName := range map[string]string{
		"start_x": "startX",
		"start_y": "startY",
		"end_x":   "endX",
		"end_y":   "endY",
	} {
		v, ok := args[argName].(float64)
		if !ok {
			return nil, fmt.Errorf("%s is required", argName)
		}
		params[paramName] = v
	}
	if d, ok := args["duration"].(float64); ok {
		params["duration"] = d
	}

	text, err := s.dispatch("swipe", params)
	if err != nil {
		return nil, err
	}
	return textResult(text), nil
}

func (s *MCPServer) handleUIScroll(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	target, ok := args["text"].(string)
	if !ok || target == "" {
		return nil, fmt.Errorf("text is required")
	}

	params := map[string]any{"text": target}
	if direction, ok := args["direction"].(string); ok && direction != "" {
		params["direction"] = direction
	}

	text, err := s.dispatch("scroll", params)
	if err != nil {
		return nil, err
	}
	return textResult(text), nil
}

func (s *MCPServer) handleUIGesture(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	points, ok := args["points"].([]interface{})
	if !ok || len(points) == 0 {
		return nil, fmt.Errorf("points is required")
	}

	params := map[string]any{"points": points}
	if d, ok := args["duration"].(float64); ok {
		params["duration"] = d
	}

	text, err := s.dispatch("performGesture", params)
	if err != nil {
		return nil, err
	}
	return textResult(text), nil
}

// textMatchParams extracts the shared text/exact argument pair
func textMatchParams(request mcp.CallToolRequest) (map[string]any, error) {
	args := request.GetArguments()
	text, ok := args["text"].(string)
	if !ok || text == "" {
		return nil, fmt.Errorf("text is required")
	}
	params := map[string]any{"text": text}
	if exact, ok := args["exact"].(bool); ok && exact {
		params["partial"] = false
	}
	return params, nil
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(text),
		},
	}
}
