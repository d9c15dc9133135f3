// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Lumina tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/lumina/internal/catalog"
	"github.com/starford/lumina/internal/editorservice"
	"github.com/starford/lumina/internal/export"
	"github.com/starford/lumina/internal/project"
)

const documentFormatURI = "lumina://document-format"

// Server wraps the MCP server with Lumina tools.
type Server struct {
	mcp *server.MCPServer
	svc *editorservice.Service
}

// New creates a new MCP server with all Lumina tools registered.
func New(svc *editorservice.Service, version string) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"Lumina",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_filters",
		mcp.WithDescription("List the preset photo filters that can be applied to a project."),
	), s.listFilters)

	s.mcp.AddTool(mcp.NewTool("list_stickers",
		mcp.WithDescription("List catalog stickers, optionally restricted to one category."),
		mcp.WithString("category", mcp.Description("Category to list (empty for all)")),
		mcp.WithBoolean("premium", mcp.Description("Include premium stickers")),
	), s.listStickers)

	s.mcp.AddTool(mcp.NewTool("list_projects",
		mcp.WithDescription("List saved projects, newest first, or search them by name."),
		mcp.WithString("query", mcp.Description("Optional name search")),
		mcp.WithNumber("limit", mcp.Description("Max results (default 20)")),
	), s.listProjects)

	s.mcp.AddTool(mcp.NewTool("get_project",
		mcp.WithDescription("Read a saved project including its full editor document. "+
			"The document layout is described by the get_document_format tool."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Project id (e.g. proj_1700000000000_a1b2c3d4e)")),
	), s.getProject)

	s.mcp.AddTool(mcp.NewTool("export_project",
		mcp.WithDescription("Render a saved project to an image file in asset storage."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Project id")),
		mcp.WithString("format", mcp.Description("jpg, png, heic, tiff or bmp (heic is written as jpg)")),
		mcp.WithNumber("quality", mcp.Description("1-100, used by jpg")),
		mcp.WithNumber("width", mcp.Description("Output width; height follows the aspect ratio")),
	), s.exportProject)

	s.mcp.AddTool(mcp.NewTool("import_image",
		mcp.WithDescription("Store a source photo from an http(s) URL or a base64 data URI. "+
			"The returned path can be used as an image layer."),
		mcp.WithString("url", mcp.Required(), mcp.Description("http(s) URL or data:image/...;base64,... URI")),
		mcp.WithString("filename", mcp.Description("Optional file name")),
	), s.importImage)

	s.mcp.AddTool(mcp.NewTool("get_document_format",
		mcp.WithDescription("Returns the editor document JSON format used by projects."),
	), s.getDocumentFormat)

	s.mcp.AddResource(
		mcp.NewResource(documentFormatURI, "Document Format",
			mcp.WithResourceDescription("JSON layout of a Lumina editor document."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readDocumentFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) listFilters(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.svc.Filters().Available())
}

func (s *Server) listStickers(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	category := req.GetString("category", "")
	premium := req.GetBool("premium", false)
	out := []catalog.Sticker{}
	for _, st := range catalog.Available(premium) {
		if category == "" || st.Category == category {
			out = append(out, st)
		}
	}
	return jsonResult(out)
}

func (s *Server) listProjects(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := req.GetInt("limit", 20)
	var (
		items []project.Meta
		err   error
	)
	if q := req.GetString("query", ""); q != "" {
		items, err = s.svc.Projects().Search(ctx, q, limit)
	} else {
		items, err = s.svc.Projects().List(ctx, limit)
	}
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	// Thumbnails are large data URIs and of no use to a model.
	for i := range items {
		items[i].Thumbnail = ""
	}
	if items == nil {
		items = []project.Meta{}
	}
	return jsonResult(items)
}

func (s *Server) getProject(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	p, err := s.svc.Projects().Load(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("project %s: %v", id, err)), nil
	}
	p.Thumbnail = ""
	return jsonResult(p)
}

func (s *Server) exportProject(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	opts := export.Options{
		Format:  export.Format(req.GetString("format", "")),
		Quality: req.GetInt("quality", 0),
		Width:   req.GetInt("width", 0),
	}
	res, err := s.svc.ExportProject(ctx, id, opts)
	if err != nil {
		var ee *export.Error
		if errors.As(err, &ee) {
			return mcp.NewToolResultError(ee.UserMessage()), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(res)
}

func (s *Server) getDocumentFormat(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(DocumentFormat), nil
}

func (s *Server) readDocumentFormatResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      documentFormatURI,
			MIMEType: "text/markdown",
			Text:     DocumentFormat,
		},
	}, nil
}
