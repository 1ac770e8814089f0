package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/2beens/pushupjourney/internal/progress"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// progressReader is the read-only slice of progress.Service the tools need.
type progressReader interface {
	State(ctx context.Context) progress.State
	Achievements(ctx context.Context) []progress.Achievement
	Day(ctx context.Context, dayNumber int) (progress.WorkoutDay, error)
	LevelTable() []progress.LevelInfo
}

// Handler handles MCP tool requests: parses input, reads progress, formats the MCP result.
type Handler struct {
	service progressReader
}

func NewHandler(service progressReader) *Handler {
	return &Handler{
		service: service,
	}
}

// progressSummary is the get_progress result.
type progressSummary struct {
	CurrentDay      int                 `json:"current_day"`
	Streak          int                 `json:"streak"`
	Level           int                 `json:"level"`
	LevelName       string              `json:"level_name"`
	LevelProgress   int                 `json:"level_progress"`
	AvailableJokers int                 `json:"available_jokers"`
	CompletedDays   int                 `json:"completed_days"`
	Today           progress.WorkoutDay `json:"today"`
}

// GetProgressTool returns the MCP tool handler for get_progress.
func (h *Handler) GetProgressTool() func(context.Context, *mcp.CallToolRequest, any) (*mcp.CallToolResult, any, error) {
	return func(ctx context.Context, _ *mcp.CallToolRequest, _ any) (*mcp.CallToolResult, any, error) {
		state := h.service.State(ctx)
		summary := progressSummary{
			CurrentDay:      state.Progress.CurrentDay,
			Streak:          state.Progress.Streak,
			Level:           state.Progress.Level,
			LevelName:       state.LevelName,
			LevelProgress:   state.Progress.LevelProgress,
			AvailableJokers: state.AvailableJokers,
			CompletedDays:   state.Progress.CompletedDays(),
		}
		if today := state.Progress.ActiveDay(); today != nil {
			summary.Today = *today
		}
		return jsonResult(summary)
	}
}

// GetAchievementsTool returns the MCP tool handler for get_achievements.
func (h *Handler) GetAchievementsTool() func(context.Context, *mcp.CallToolRequest, any) (*mcp.CallToolResult, any, error) {
	return func(ctx context.Context, _ *mcp.CallToolRequest, _ any) (*mcp.CallToolResult, any, error) {
		return jsonResult(h.service.Achievements(ctx))
	}
}

// DayInput is the input for get_day.
type DayInput struct {
	Day int `json:"day" jsonschema:"Program day number, 1 is the first day"`
}

// GetDayTool returns the MCP tool handler for get_day.
func (h *Handler) GetDayTool() func(context.Context, *mcp.CallToolRequest, DayInput) (*mcp.CallToolResult, any, error) {
	return func(ctx context.Context, _ *mcp.CallToolRequest, in DayInput) (*mcp.CallToolResult, any, error) {
		if in.Day < 1 {
			return errorResult("Invalid day: must be 1 or greater"), nil, nil
		}
		day, err := h.service.Day(ctx, in.Day)
		if err != nil {
			return errorResult(fmt.Sprintf("Error fetching day %d: %s", in.Day, err)), nil, nil
		}
		return jsonResult(day)
	}
}

// GetLevelTableTool returns the MCP tool handler for get_level_table.
func (h *Handler) GetLevelTableTool() func(context.Context, *mcp.CallToolRequest, any) (*mcp.CallToolResult, any, error) {
	return func(_ context.Context, _ *mcp.CallToolRequest, _ any) (*mcp.CallToolResult, any, error) {
		return jsonResult(h.service.LevelTable())
	}
}

func jsonResult(v any) (*mcp.CallToolResult, any, error) {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errorResult("Error encoding response: " + err.Error()), nil, nil
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(raw)}},
	}, nil, nil
}

func errorResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
		IsError: true,
	}
}
