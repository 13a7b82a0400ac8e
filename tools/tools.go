// Package tools holds the agent's capabilities: the fixed registry, the
// static schema catalogue, and the Bright Data backed implementations of
// search, scrape_page, and download_file.
package tools

import (
	"context"
	"fmt"
	"time"
)

// Tool is one invocable capability. Execute returns a result mapping with
// enough fields for the policy layer to decide (download results include
// "success", and on success "filename"/"size_bytes"/optional "warning").
// Ordinary failures (network errors, invalid input) come back as
// error-shaped result maps with a nil error; only truly unexpected faults
// use the error return and propagate to the loop's fatal boundary.
type Tool interface {
	Name() string
	Description() string
	Execute(ctx context.Context, args map[string]any) (map[string]any, error)
}

// Registry is the fixed mapping from tool name to capability.
type Registry struct {
	tools map[string]Tool
}

// NewRegistry builds a registry over the given capabilities.
func NewRegistry(ts ...Tool) *Registry {
	r := &Registry{tools: make(map[string]Tool)}
	for _, t := range ts {
		r.Register(t)
	}
	return r
}

// NewDefaultRegistry registers the three Bright Data capabilities.
func NewDefaultRegistry(bd *BrightData) *Registry {
	return NewRegistry(
		&SearchTool{bd: bd},
		&ScrapePageTool{bd: bd},
		&DownloadFileTool{bd: bd},
	)
}

// Register maps t under its name, replacing any previous registration.
func (r *Registry) Register(t Tool) {
	r.tools[t.Name()] = t
}

// Get returns the capability registered under name.
func (r *Registry) Get(name string) (Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// Dispatch invokes the named tool, measuring elapsed wall-clock time. An
// unknown name yields a synthetic error result with zero duration and never
// invokes anything. The error return carries only unexpected faults.
func (r *Registry) Dispatch(ctx context.Context, name string, args map[string]any) (map[string]any, time.Duration, error) {
	t, ok := r.tools[name]
	if !ok {
		return map[string]any{"error": fmt.Sprintf("Unknown tool: %s", name)}, 0, nil
	}
	start := time.Now()
	result, err := t.Execute(ctx, args)
	return result, time.Since(start), err
}
