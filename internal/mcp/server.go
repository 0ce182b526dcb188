package mcp

import (
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// New creates an MCP server with all tools and resources registered.
func New(ds DataSource, version string, log *slog.Logger) *server.MCPServer {
	s := server.NewMCPServer("mapty", version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithInstructions("mapty workout tracker. List and inspect the running and cycling workouts the user logged on the map, with distance, duration, pace or speed, cadence or elevation gain."),
	)

	h := &handlers{ds: ds, log: log}

	s.AddTools(
		server.ServerTool{Tool: toolListWorkouts, Handler: h.listWorkouts},
		server.ServerTool{Tool: toolGetWorkout, Handler: h.getWorkout},
	)

	s.AddResources(
		server.ServerResource{Resource: resSummary, Handler: h.summary},
		server.ServerResource{Resource: resWorkouts, Handler: h.allWorkouts},
	)

	return s
}

// handlers holds dependencies for MCP tool/resource handlers.
type handlers struct {
	ds  DataSource
	log *slog.Logger
}

var resSummary = mcp.NewResource(
	"mapty://summary",
	"Workout Summary",
	mcp.WithResourceDescription("Per-type workout counts with total distance and duration and average pace or speed"),
	mcp.WithMIMEType("application/json"),
)

var resWorkouts = mcp.NewResource(
	"mapty://workouts",
	"All Workouts",
	mcp.WithResourceDescription("Every logged workout in the order it was created"),
	mcp.WithMIMEType("application/json"),
)
