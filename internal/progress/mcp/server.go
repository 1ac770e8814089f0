package mcp

import (
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// NewServer builds an MCP server with read-only push-up journey tools.
// Mounted on the service at /mcp and served over stdio by cmd/pushups_mcp.
func NewServer(service progressReader) *mcp.Server {
	h := NewHandler(service)
	s := mcp.NewServer(&mcp.Implementation{
		Name:    "pushup-journey",
		Version: "1.0.0",
	}, nil)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "get_progress",
		Description: "Returns the push-up journey summary: current program day, streak, level and level progress, banked streak charges (jokers), completed days and today's target and logged reps.",
	}, h.GetProgressTool())

	mcp.AddTool(s, &mcp.Tool{
		Name:        "get_achievements",
		Description: "Returns all achievements (id, name, description, icon) and whether each one is unlocked.",
	}, h.GetAchievementsTool())

	mcp.AddTool(s, &mcp.Tool{
		Name:        "get_day",
		Description: "Returns one program day: target, logged reps, completion and whether a joker backs it. Arg: day (1 to the current day).",
	}, h.GetDayTool())

	mcp.AddTool(s, &mcp.Tool{
		Name:        "get_level_table",
		Description: "Returns the levels of the program (Beginner to Master) with the completed-day range of each.",
	}, h.GetLevelTableTool())

	return s
}

// NewHTTPHandler serves the MCP server over streamable HTTP.
func NewHTTPHandler(server *mcp.Server) http.Handler {
	return mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return server
	}, nil)
}
