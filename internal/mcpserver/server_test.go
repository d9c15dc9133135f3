package mcpserver

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"image/color"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/lumina/internal/editorservice"
	"github.com/starford/lumina/internal/export"
	"github.com/starford/lumina/internal/geom"
	"github.com/starford/lumina/internal/project"
	"github.com/starford/lumina/internal/testutil"
)

func testServer(t *testing.T) (*Server, *editorservice.Service) {
	t.Helper()
	svc, _ := testutil.TestService(t)
	return New(svc, "test"), svc
}

func callTool(t *testing.T, srv *Server, name string, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	// mcp-go has no direct "call tool" test helper, so handlers are called
	// directly.
	var result *mcp.CallToolResult
	var err error

	switch name {
	case "list_filters":
		result, err = srv.listFilters(ctx, req)
	case "list_stickers":
		result, err = srv.listStickers(ctx, req)
	case "list_projects":
		result, err = srv.listProjects(ctx, req)
	case "get_project":
		result, err = srv.getProject(ctx, req)
	case "export_project":
		result, err = srv.exportProject(ctx, req)
	case "import_image":
		result, err = srv.importImage(ctx, req)
	case "get_document_format":
		result, err = srv.getDocumentFormat(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func saveProject(t *testing.T, svc *editorservice.Service, name string) project.Meta {
	t.Helper()
	sess, err := svc.NewSession(geom.Size{Width: 320, Height: 240})
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	if _, err := svc.AddCatalogSticker(sess.ID, "emoji_heart"); err != nil {
		t.Fatalf("AddCatalogSticker: %v", err)
	}
	meta, err := svc.Save(context.Background(), sess.ID, name)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	return meta
}

func TestListFilters(t *testing.T) {
	srv, _ := testServer(t)
	var names []string
	if err := json.Unmarshal([]byte(resultText(callTool(t, srv, "list_filters", nil))), &names); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(names) != 6 {
		t.Errorf("filters = %v", names)
	}
}

func TestListStickersByCategory(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "list_stickers", map[string]interface{}{"category": "doodles"})
	var stickers []struct {
		Category string `json:"category"`
	}
	if err := json.Unmarshal([]byte(resultText(r)), &stickers); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(stickers) == 0 {
		t.Fatal("no doodles")
	}
	for _, s := range stickers {
		if s.Category != "doodles" {
			t.Errorf("category = %q", s.Category)
		}
	}
}

func TestListAndGetProject(t *testing.T) {
	srv, svc := testServer(t)
	meta := saveProject(t, svc, "Sunset")

	r := callTool(t, srv, "list_projects", map[string]interface{}{})
	text := resultText(r)
	if !strings.Contains(text, meta.ID) || strings.Contains(text, "data:image") {
		t.Errorf("list = %s", text)
	}

	r = callTool(t, srv, "get_project", map[string]interface{}{"id": meta.ID})
	if r.IsError {
		t.Fatalf("get_project: %s", resultText(r))
	}
	var p project.Project
	if err := json.Unmarshal([]byte(resultText(r)), &p); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if p.Name != "Sunset" || len(p.Document.Layers) != 1 {
		t.Errorf("project = %s, %d layers", p.Name, len(p.Document.Layers))
	}
}

func TestGetProjectMissing(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "get_project", map[string]interface{}{"id": "proj_nope"})
	if !r.IsError {
		t.Error("expected error for missing project")
	}
}

func TestExportProject(t *testing.T) {
	srv, svc := testServer(t)
	meta := saveProject(t, svc, "Export me")
	r := callTool(t, srv, "export_project", map[string]interface{}{
		"id":     meta.ID,
		"format": "heic",
		"width":  float64(160),
	})
	if r.IsError {
		t.Fatalf("export_project: %s", resultText(r))
	}
	var res export.Result
	if err := json.Unmarshal([]byte(resultText(r)), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.Format != export.FormatJPG || res.Width != 160 || res.Height != 120 {
		t.Errorf("result = %+v", res)
	}
}

func TestImportImageDataURI(t *testing.T) {
	srv, _ := testServer(t)
	png := testutil.PNG(t, 8, 4, color.NRGBA{G: 255, A: 255})
	uri := "data:image/png;base64," + base64.StdEncoding.EncodeToString(png)

	r := callTool(t, srv, "import_image", map[string]interface{}{"url": uri, "filename": "leaf.png"})
	if r.IsError {
		t.Fatalf("import_image: %s", resultText(r))
	}
	var up editorservice.Upload
	if err := json.Unmarshal([]byte(resultText(r)), &up); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if up.Path != "images/leaf.png" || up.Width != 8 || up.Height != 4 {
		t.Errorf("upload = %+v", up)
	}
}

func TestImportImageRejects(t *testing.T) {
	srv, _ := testServer(t)
	cases := []string{
		"data:text/plain;base64,aGVsbG8=",
		"data:image/png,raw",
		"ftp://example.com/a.png",
		"http://127.0.0.1/a.png",
		"data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte("not a png")),
	}
	for _, u := range cases {
		r := callTool(t, srv, "import_image", map[string]interface{}{"url": u})
		if !r.IsError {
			t.Errorf("import_image(%.40q) succeeded", u)
		}
	}
}

func TestDocumentFormat(t *testing.T) {
	srv, _ := testServer(t)
	text := resultText(callTool(t, srv, "get_document_format", nil))
	if !strings.Contains(text, "blendMode") {
		t.Errorf("format text missing layer fields")
	}
}
