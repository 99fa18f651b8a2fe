package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	gomcp "github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// RegisterTools registers all harness tools on the MCP server.
func RegisterTools(s *server.MCPServer, client *Client) {
	registerStatus(s, client)
	registerHealth(s, client)
	registerRounds(s, client)
}

func registerStatus(s *server.MCPServer, client *Client) {
	tool := gomcp.NewTool("dabench_status",
		gomcp.WithDescription("Get the current dabench run: mode, status, rounds succeeded/failed, payload size and round latency."),
	)
	s.AddTool(tool, func(ctx context.Context, req gomcp.CallToolRequest) (*gomcp.CallToolResult, error) {
		raw, err := client.Get("/v1/status")
		if err != nil {
			return gomcp.NewToolResultError(fmt.Sprintf("dabench unreachable: %v\n\nIs the harness running with --metrics-port set?", err)), nil
		}
		return gomcp.NewToolResultText(formatStatus(raw)), nil
	})
}

func registerHealth(s *server.MCPServer, client *Client) {
	tool := gomcp.NewTool("dabench_health",
		gomcp.WithDescription("Readiness of the dabench harness. Not ready once a round has failed."),
	)
	s.AddTool(tool, func(ctx context.Context, req gomcp.CallToolRequest) (*gomcp.CallToolResult, error) {
		raw, err := client.Get("/ready")
		if err != nil {
			return gomcp.NewToolResultError(fmt.Sprintf("dabench unhealthy: %v", err)), nil
		}
		return gomcp.NewToolResultText(formatHealth(raw)), nil
	})
}

func registerRounds(s *server.MCPServer, client *Client) {
	tool := gomcp.NewTool("dabench_rounds",
		gomcp.WithDescription("List the most recent rounds, newest first, with outcome, duration and request ID."),
		gomcp.WithNumber("limit",
			gomcp.Description("Number of rounds to return (1-100, default 20)"),
		),
	)
	s.AddTool(tool, func(ctx context.Context, req gomcp.CallToolRequest) (*gomcp.CallToolResult, error) {
		path := "/v1/rounds"
		if limit := req.GetInt("limit", 0); limit > 0 {
			path += fmt.Sprintf("?limit=%d", limit)
		}
		raw, err := client.Get(path)
		if err != nil {
			return gomcp.NewToolResultError(fmt.Sprintf("Listing rounds failed: %v", err)), nil
		}
		return gomcp.NewToolResultText(formatRounds(raw)), nil
	})
}

func formatStatus(raw json.RawMessage) string {
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return fmt.Sprintf("Error parsing status: %v", err)
	}

	status := getStr(m, "status")
	rounds := getNum(m, "rounds")
	succeeded := getNum(m, "succeeded")
	failed := getNum(m, "failed")
	elapsedMs := getNum(m, "elapsedMs")

	successRate := 0.0
	if rounds > 0 {
		successRate = succeeded / rounds * 100
	}

	runFor := "unbounded"
	if v := getNum(m, "runForSecs"); v < 4294967295 {
		runFor = fmt.Sprintf("%ds", int64(v))
	}

	lines := joinLines(
		section("dabench: "+status),
		kv("Run ID", getStr(m, "runId")),
		kv("Mode", getStr(m, "mode")),
		kv("Block Size", formatBytes(getNum(m, "blockSize"))),
		kv("Payload Hash", getStr(m, "payloadHash")),
		kv("Elapsed", fmt.Sprintf("%.1fs", elapsedMs/1000)),
		kv("Run For", runFor),
		kv("Sleep", fmt.Sprintf("%ds", int64(getNum(m, "sleepForSecs")))),
		"",
		section("Rounds"),
		kv("Total", formatNumber(rounds)),
		kv("Succeeded", formatNumber(succeeded)),
		kv("Failed", formatNumber(failed)),
		kv("Success Rate", formatPct(successRate)),
	)

	if errMsg := getStr(m, "error"); errMsg != "" {
		lines += "\n" + kv("Error", errMsg)
	}

	if lat, ok := m["latency"].(map[string]any); ok {
		lines += "\n\n" + joinLines(
			section("Round Latency"),
			kv("Min", formatMs(getNum(lat, "min"))),
			kv("Avg", formatMs(getNum(lat, "avg"))),
			kv("P50", formatMs(getNum(lat, "p50"))),
			kv("P95", formatMs(getNum(lat, "p95"))),
			kv("P99", formatMs(getNum(lat, "p99"))),
			kv("Max", formatMs(getNum(lat, "max"))),
		)
	}

	if last, ok := m["lastRound"].(map[string]any); ok {
		lines += "\n\n" + joinLines(
			section("Last Round"),
			formatRound(last),
		)
	}

	return lines
}

func formatHealth(raw json.RawMessage) string {
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return fmt.Sprintf("Error parsing health: %v", err)
	}

	state := "READY"
	if getStr(m, "status") != "ready" {
		state = "NOT READY"
	}

	lines := joinLines(
		section("dabench Health: "+state),
		kv("Run Status", getStr(m, "runStatus")),
	)

	if checks, ok := m["checks"].([]any); ok {
		for _, c := range checks {
			if check, ok := c.(map[string]any); ok {
				line := fmt.Sprintf("  %-15s %s", getStr(check, "name"), getStr(check, "status"))
				if errMsg := getStr(check, "error"); errMsg != "" {
					line += " - " + errMsg
				}
				lines += "\n" + line
			}
		}
	}

	return lines
}

func formatRounds(raw json.RawMessage) string {
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return fmt.Sprintf("Error parsing rounds: %v", err)
	}

	lines := joinLines(
		section("Recent Rounds"),
		kv("Total Rounds", formatNumber(getNum(m, "total"))),
		"",
	)

	rounds, ok := m["rounds"].([]any)
	if !ok || len(rounds) == 0 {
		return lines + "\nNo rounds recorded yet."
	}

	for _, r := range rounds {
		if round, ok := r.(map[string]any); ok {
			lines += "\n" + formatRound(round)
		}
	}
	return lines
}

func formatRound(r map[string]any) string {
	ts := getStr(r, "timestamp")
	if t, err := time.Parse(time.RFC3339Nano, ts); err == nil {
		ts = t.Format("2006-01-02 15:04:05")
	}

	line := fmt.Sprintf("  #%-5d %-8s %-17s %10s  %s",
		int64(getNum(r, "round")),
		getStr(r, "mode"),
		getStr(r, "outcome"),
		formatMs(getNum(r, "elapsedMs")),
		ts,
	)
	if id := getStr(r, "requestId"); id != "" {
		line += "  " + id
	}
	if mm, ok := r["mismatch"].(map[string]any); ok {
		if want := getNum(mm, "expectedLength"); want > 0 {
			line += fmt.Sprintf("\n         length mismatch: expected %s, got %s",
				formatBytes(want), formatBytes(getNum(mm, "actualLength")))
		} else {
			line += fmt.Sprintf("\n         mismatch at index %d: expected %d, got %d",
				int64(getNum(mm, "index")), int64(getNum(mm, "expected")), int64(getNum(mm, "actual")))
		}
	}
	if errMsg := getStr(r, "error"); errMsg != "" {
		line += "\n         " + errMsg
	}
	return line
}

// Helper functions
func getStr(m map[string]any, key string) string {
	if v, ok := m[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func getNum(m map[string]any, key string) float64 {
	if v, ok := m[key]; ok {
		if n, ok := v.(float64); ok {
			return n
		}
	}
	return 0
}
