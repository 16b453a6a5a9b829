package tools

import (
	"context"
	"fmt"

	"summoner-insights/internal/analytics"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Tool names exposed over MCP and mirrored by the HTTP report server
const (
	ToolRecentMatches       = "get_recent_matches"
	ToolMatchTimeline       = "get_match_timeline"
	ToolPerformanceTrends   = "get_performance_trends"
	ToolChampionPerformance = "get_champion_performance"
	ToolDeathPatterns       = "analyze_death_patterns"
	ToolFarmingAnalysis     = "get_farming_analysis"
)

// Names lists every tool in registration order
var Names = []string{
	ToolRecentMatches,
	ToolMatchTimeline,
	ToolPerformanceTrends,
	ToolChampionPerformance,
	ToolDeathPatterns,
	ToolFarmingAnalysis,
}

// RecentMatchesInput is the input for get_recent_matches.
type RecentMatchesInput struct {
	Limit *int `json:"limit,omitempty" jsonschema:"number of matches to retrieve (default: 10)"`
}

// MatchTimelineInput is the input for get_match_timeline.
type MatchTimelineInput struct {
	MatchID string `json:"match_id" jsonschema:"the match ID to get timeline data for"`
}

// MatchCountInput is the input for reports over the last N matches.
type MatchCountInput struct {
	Matches *int `json:"matches,omitempty" jsonschema:"number of recent matches to analyze (default: 10)"`
}

// ChampionInput is the input for get_champion_performance.
type ChampionInput struct {
	Champion string `json:"champion,omitempty" jsonschema:"champion name to analyze (optional)"`
}

// Args is the union of every tool's parameters, used for name-based dispatch
type Args struct {
	Limit    *int
	Matches  *int
	MatchID  string
	Champion string
}

func orDefault(n *int) int {
	if n == nil {
		return analytics.DefaultLimit
	}
	return *n
}

// Call runs the named report
func Call(ctx context.Context, engine *analytics.Engine, name string, args Args) (string, error) {
	switch name {
	case ToolRecentMatches:
		return engine.RecentMatches(ctx, orDefault(args.Limit))
	case ToolMatchTimeline:
		return engine.MatchTimeline(ctx, args.MatchID)
	case ToolPerformanceTrends:
		return engine.PerformanceTrends(ctx, orDefault(args.Matches))
	case ToolChampionPerformance:
		return engine.ChampionPerformance(ctx, args.Champion)
	case ToolDeathPatterns:
		return engine.DeathPatterns(ctx, orDefault(args.Matches))
	case ToolFarmingAnalysis:
		return engine.FarmingAnalysis(ctx, orDefault(args.Matches))
	}
	return "", fmt.Errorf("unknown tool: %s", name)
}

// textResult converts a report into tool content. Errors become "Error: <msg>" with IsError set.
func textResult(text string, err error) *mcp.CallToolResult {
	if err != nil {
		return &mcp.CallToolResult{
			IsError: true,
			Content: []mcp.Content{&mcp.TextContent{Text: "Error: " + err.Error()}},
		}
	}
	return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: text}}}
}

func registerTools(server *mcp.Server, s *Server) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        ToolRecentMatches,
		Description: "Get the most recent match history with basic stats",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in RecentMatchesInput) (*mcp.CallToolResult, any, error) {
		text, err := Call(ctx, s.engine, ToolRecentMatches, Args{Limit: in.Limit})
		return s.result(ToolRecentMatches, text, err), nil, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        ToolMatchTimeline,
		Description: "Get detailed timeline data for a specific match",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in MatchTimelineInput) (*mcp.CallToolResult, any, error) {
		text, err := Call(ctx, s.engine, ToolMatchTimeline, Args{MatchID: in.MatchID})
		return s.result(ToolMatchTimeline, text, err), nil, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        ToolPerformanceTrends,
		Description: "Analyze performance trends across recent matches",
	}, s.countHandler(ToolPerformanceTrends))

	mcp.AddTool(server, &mcp.Tool{
		Name:        ToolChampionPerformance,
		Description: "Get performance statistics for specific champions",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in ChampionInput) (*mcp.CallToolResult, any, error) {
		text, err := Call(ctx, s.engine, ToolChampionPerformance, Args{Champion: in.Champion})
		return s.result(ToolChampionPerformance, text, err), nil, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        ToolDeathPatterns,
		Description: "Analyze death locations and timing patterns for coaching insights",
	}, s.countHandler(ToolDeathPatterns))

	mcp.AddTool(server, &mcp.Tool{
		Name:        ToolFarmingAnalysis,
		Description: "Analyze CS progression and farming efficiency over time",
	}, s.countHandler(ToolFarmingAnalysis))
}

func (s *Server) countHandler(name string) mcp.ToolHandlerFor[MatchCountInput, any] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, in MatchCountInput) (*mcp.CallToolResult, any, error) {
		text, err := Call(ctx, s.engine, name, Args{Matches: in.Matches})
		return s.result(name, text, err), nil, nil
	}
}
