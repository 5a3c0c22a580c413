// Package mcp exposes the catalog as MCP tools for AI assistants.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/chis/kbcatalog/internal/jsonld"
	"github.com/chis/kbcatalog/internal/logging"
	"github.com/chis/kbcatalog/internal/storage"
)

// Server wraps the catalog store and exposes it as MCP tools.
type Server struct {
	server *gomcp.Server
	store  storage.Storage
}

// NewServer creates an MCP server over store.
func NewServer(store storage.Storage, version string) *Server {
	if version == "" {
		version = "dev"
	}

	s := &Server{store: store}
	s.server = gomcp.NewServer(
		&gomcp.Implementation{Name: "kbcatalog", Version: version},
		nil,
	)
	s.registerTools()
	return s
}

// Run serves over stdio until the client disconnects or ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	logging.Info("MCP server listening on stdio")
	return s.server.Run(ctx, &gomcp.StdioTransport{})
}

// MCPServer returns the underlying mcp.Server for testing purposes.
func (s *Server) MCPServer() *gomcp.Server {
	return s.server
}

// --- Tool input/output types ---

type searchScriptsInput struct {
	Query string `json:"query" jsonschema:"words to search for in script names, synopses, descriptions and articles; empty lists every script"`
}

type scriptSummary struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	Category   string `json:"category"`
	Synopsis   string `json:"synopsis"`
	FilePath   string `json:"file_path"`
	KCSState   string `json:"kcs_state"`
	Confidence int    `json:"confidence"`
	ViewCount  int64  `json:"view_count"`
}

type searchScriptsOutput struct {
	Query   string          `json:"query"`
	Count   int             `json:"count"`
	Scripts []scriptSummary `json:"scripts"`
}

type getScriptInput struct {
	ID   int64  `json:"id,omitempty" jsonschema:"numeric script id"`
	Name string `json:"name,omitempty" jsonschema:"exact script name, e.g. Set-GlobalAdmin; used when id is not given"`
}

type parameterOutput struct {
	Name         string `json:"name"`
	Description  string `json:"description"`
	Required     bool   `json:"required"`
	DefaultValue string `json:"default_value,omitempty"`
}

type contributorOutput struct {
	Name          string `json:"name"`
	Role          string `json:"role"`
	ContributedAt string `json:"contributed_at"`
}

type scriptOutput struct {
	ID             int64               `json:"id"`
	Name           string              `json:"name"`
	Category       string              `json:"category"`
	Synopsis       string              `json:"synopsis"`
	FilePath       string              `json:"file_path"`
	KCSState       string              `json:"kcs_state"`
	Confidence     int                 `json:"confidence"`
	ViewCount      int64               `json:"view_count"`
	Subcategory    string              `json:"subcategory,omitempty"`
	Description    string              `json:"description"`
	SupportsWhatIf bool                `json:"supports_whatif"`
	SupportsExport bool                `json:"supports_export"`
	Environment    string              `json:"environment"`
	Resolution     string              `json:"resolution"`
	Cause          string              `json:"cause"`
	Author         string              `json:"author"`
	LastReviewed   string              `json:"last_reviewed,omitempty"`
	Parameters     []parameterOutput   `json:"parameters"`
	Tags           []string            `json:"tags"`
	Contributors   []contributorOutput `json:"contributors"`
}

type listCategoriesInput struct{}

type categoryOutput struct {
	Slug        string `json:"slug"`
	Name        string `json:"name"`
	Description string `json:"description"`
	ScriptCount int    `json:"script_count"`
}

type listCategoriesOutput struct {
	Categories []categoryOutput `json:"categories"`
	Count      int              `json:"count"`
}

type getStatsInput struct{}

type statsOutput struct {
	ScriptCount          int            `json:"script_count"`
	CategoryCount        int            `json:"category_count"`
	ParameterCount       int            `json:"parameter_count"`
	DockerComponentCount int            `json:"docker_component_count"`
	PublishedCount       int            `json:"published_count"`
	StateCounts          map[string]int `json:"state_counts"`
	TotalViews           int64          `json:"total_views"`
}

type getScriptJSONLDInput struct {
	ID int64 `json:"id" jsonschema:"numeric script id"`
}

// --- Tool registration ---

func (s *Server) registerTools() {
	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "search_scripts",
		Description: "Full-text search over the script catalog. Every word must match; results are ranked by relevance.",
	}, s.handleSearchScripts)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "get_script",
		Description: "Get a script with its knowledge article, parameters, tags and contributors, by id or by exact name.",
	}, s.handleGetScript)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "list_categories",
		Description: "List script categories in display order with their script counts.",
	}, s.handleListCategories)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "get_stats",
		Description: "Get catalog totals: scripts, categories, parameters, docker components and scripts per KCS state.",
	}, s.handleGetStats)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "get_script_jsonld",
		Description: "Get a script as a schema.org SoftwareSourceCode JSON-LD document.",
	}, s.handleGetScriptJSONLD)
}

// --- Tool handlers ---

func (s *Server) handleSearchScripts(ctx context.Context, _ *gomcp.CallToolRequest, input searchScriptsInput) (*gomcp.CallToolResult, searchScriptsOutput, error) {
	empty := searchScriptsOutput{Query: input.Query, Scripts: []scriptSummary{}}

	var (
		scripts []storage.Script
		err     error
	)
	if strings.TrimSpace(input.Query) == "" {
		scripts, err = s.store.GetAllScripts(ctx)
	} else {
		scripts, err = s.store.SearchScripts(ctx, input.Query)
	}
	if err != nil {
		return errorResult(fmt.Sprintf("searching scripts: %s", err)), empty, nil
	}

	out := searchScriptsOutput{
		Query:   input.Query,
		Count:   len(scripts),
		Scripts: make([]scriptSummary, len(scripts)),
	}
	for i, sc := range scripts {
		out.Scripts[i] = summarize(sc)
	}
	return nil, out, nil
}

func (s *Server) handleGetScript(ctx context.Context, _ *gomcp.CallToolRequest, input getScriptInput) (*gomcp.CallToolResult, scriptOutput, error) {
	empty := emptyScriptOutput()

	var (
		script storage.Script
		found  bool
		err    error
	)
	switch {
	case input.ID > 0:
		script, found, err = s.store.GetScriptByID(ctx, input.ID)
	case input.Name != "":
		script, found, err = s.store.GetScriptByName(ctx, input.Name)
	default:
		return errorResult("id or name is required"), empty, nil
	}
	if err != nil {
		return errorResult(fmt.Sprintf("getting script: %s", err)), empty, nil
	}
	if !found {
		return errorResult(fmt.Sprintf("script %s not found", scriptRef(input))), empty, nil
	}

	detail, err := storage.LoadScriptDetail(ctx, s.store, script)
	if err != nil {
		return errorResult(fmt.Sprintf("loading script %s: %s", script.Name, err)), empty, nil
	}
	return nil, detailToOutput(detail), nil
}

func (s *Server) handleListCategories(ctx context.Context, _ *gomcp.CallToolRequest, _ listCategoriesInput) (*gomcp.CallToolResult, listCategoriesOutput, error) {
	categories, err := s.store.GetAllCategories(ctx)
	if err != nil {
		return errorResult(fmt.Sprintf("listing categories: %s", err)), listCategoriesOutput{Categories: []categoryOutput{}}, nil
	}

	out := listCategoriesOutput{
		Categories: make([]categoryOutput, len(categories)),
		Count:      len(categories),
	}
	for i, c := range categories {
		out.Categories[i] = categoryOutput{
			Slug:        c.Slug,
			Name:        c.Name,
			Description: c.Description,
			ScriptCount: c.ScriptCount,
		}
	}
	return nil, out, nil
}

func (s *Server) handleGetStats(ctx context.Context, _ *gomcp.CallToolRequest, _ getStatsInput) (*gomcp.CallToolResult, statsOutput, error) {
	stats, err := s.store.GetStats(ctx)
	if err != nil {
		return errorResult(fmt.Sprintf("calculating stats: %s", err)), statsOutput{StateCounts: map[string]int{}}, nil
	}

	return nil, statsOutput{
		ScriptCount:          stats.ScriptCount,
		CategoryCount:        stats.CategoryCount,
		ParameterCount:       stats.ParameterCount,
		DockerComponentCount: stats.DockerComponentCount,
		PublishedCount:       stats.PublishedCount,
		StateCounts:          stats.StateCounts,
		TotalViews:           stats.TotalViews,
	}, nil
}

// handleGetScriptJSONLD returns the document as text content. JSON-LD keys
// such as @id do not fit a structured output schema.
func (s *Server) handleGetScriptJSONLD(ctx context.Context, _ *gomcp.CallToolRequest, input getScriptJSONLDInput) (*gomcp.CallToolResult, any, error) {
	script, found, err := s.store.GetScriptByID(ctx, input.ID)
	if err != nil {
		return errorResult(fmt.Sprintf("getting script %d: %s", input.ID, err)), nil, nil
	}
	if !found {
		return errorResult(fmt.Sprintf("script %d not found", input.ID)), nil, nil
	}

	params, err := s.store.GetParametersForScript(ctx, script.ID)
	if err != nil {
		return errorResult(fmt.Sprintf("loading parameters: %s", err)), nil, nil
	}
	tags, err := s.store.GetTagsForScript(ctx, script.ID)
	if err != nil {
		return errorResult(fmt.Sprintf("loading tags: %s", err)), nil, nil
	}

	doc, err := json.MarshalIndent(jsonld.ScriptToJSONLD(script, params, tags), "", "  ")
	if err != nil {
		return errorResult(fmt.Sprintf("encoding JSON-LD: %s", err)), nil, nil
	}

	return &gomcp.CallToolResult{
		Content: []gomcp.Content{&gomcp.TextContent{Text: string(doc)}},
	}, nil, nil
}

// --- Helpers ---

func summarize(s storage.Script) scriptSummary {
	return scriptSummary{
		ID:         s.ID,
		Name:       s.Name,
		Category:   s.CategoryName,
		Synopsis:   s.Synopsis,
		FilePath:   s.FilePath,
		KCSState:   s.KCSState,
		Confidence: s.Confidence,
		ViewCount:  s.ViewCount,
	}
}

func detailToOutput(d storage.ScriptDetail) scriptOutput {
	out := scriptOutput{
		ID:             d.ID,
		Name:           d.Name,
		Category:       d.CategoryName,
		Synopsis:       d.Synopsis,
		FilePath:       d.FilePath,
		KCSState:       d.KCSState,
		Confidence:     d.Confidence,
		ViewCount:      d.ViewCount,
		Subcategory:    d.Subcategory,
		Description:    d.Description,
		SupportsWhatIf: d.SupportsWhatIf,
		SupportsExport: d.SupportsExport,
		Environment:    d.Environment,
		Resolution:     d.Resolution,
		Cause:          d.Cause,
		Author:         d.Author,
		Parameters:     make([]parameterOutput, len(d.Parameters)),
		Tags:           storage.TagNames(d.Tags),
		Contributors:   make([]contributorOutput, len(d.Contributors)),
	}
	if d.LastReviewed != nil {
		out.LastReviewed = d.LastReviewed.Format(time.DateOnly)
	}
	for i, p := range d.Parameters {
		out.Parameters[i] = parameterOutput{
			Name:        p.Name,
			Description: p.Description,
			Required:    p.IsRequired,
		}
		if p.DefaultValue != nil {
			out.Parameters[i].DefaultValue = *p.DefaultValue
		}
	}
	for i, c := range d.Contributors {
		out.Contributors[i] = contributorOutput{
			Name:          c.Name,
			Role:          c.Role,
			ContributedAt: c.ContributedAt.Format(time.RFC3339),
		}
	}
	return out
}

func emptyScriptOutput() scriptOutput {
	return scriptOutput{
		Parameters:   []parameterOutput{},
		Tags:         []string{},
		Contributors: []contributorOutput{},
	}
}

func scriptRef(input getScriptInput) string {
	if input.ID > 0 {
		return fmt.Sprintf("%d", input.ID)
	}
	return fmt.Sprintf("%q", input.Name)
}

func errorResult(msg string) *gomcp.CallToolResult {
	return &gomcp.CallToolResult{
		Content: []gomcp.Content{&gomcp.TextContent{Text: msg}},
		IsError: true,
	}
}
