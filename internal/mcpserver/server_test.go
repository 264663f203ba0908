package mcpserver

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/fsdriver/internal/checksum"
	"github.com/starford/fsdriver/internal/objectservice"
	"github.com/starford/fsdriver/internal/testutil"
)

func testServer(t *testing.T) *Server {
	t.Helper()
	_, store := testutil.TestStore(t)
	db := testutil.TestDB(t)
	return New(objectservice.NewService(store, db, nil), "test")
}

func callTool(t *testing.T, srv *Server, name string, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	// mcp-go has no direct "call tool" helper, so dispatch to the handlers.
	var result *mcp.CallToolResult
	var err error

	switch name {
	case "object_exists":
		result, err = srv.objectExists(ctx, req)
	case "get_object":
		result, err = srv.getObject(ctx, req)
	case "put_object":
		result, err = srv.putObject(ctx, req)
	case "delete_object":
		result, err = srv.deleteObject(ctx, req)
	case "list_catalog":
		result, err = srv.listCatalog(ctx, req)
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

// fileContent decodes the JSON text of a get_object file result.
func fileContent(t *testing.T, r *mcp.CallToolResult) FileContent {
	t.Helper()
	if r.IsError {
		t.Fatalf("get_object failed: %s", resultText(r))
	}
	var fc FileContent
	if err := json.Unmarshal([]byte(resultText(r)), &fc); err != nil {
		t.Fatalf("decode %q: %v", resultText(r), err)
	}
	if r.StructuredContent == nil {
		t.Error("missing structured content")
	}
	return fc
}

func TestPutAndGetObject(t *testing.T) {
	srv := testServer(t)

	r := callTool(t, srv, "put_object", map[string]interface{}{
		"path":    "docs/hello.txt",
		"content": "Hello",
	})
	if text := resultText(r); text != "created: docs/hello.txt" {
		t.Errorf("put result = %q", text)
	}

	r = callTool(t, srv, "get_object", map[string]interface{}{"path": "docs/hello.txt"})
	if fc := fileContent(t, r); fc.Encoding != EncodingText || fc.Content != "Hello" || fc.Size != 5 {
		t.Errorf("get result = %+v", fc)
	}

	r = callTool(t, srv, "object_exists", map[string]interface{}{"path": "docs"})
	if text := resultText(r); text != "true" {
		t.Errorf("exists result = %q", text)
	}
}

func TestPutBase64(t *testing.T) {
	srv := testServer(t)
	raw := []byte{0xff, 0x00, 0xfe}
	enc := base64.StdEncoding.EncodeToString(raw)

	r := callTool(t, srv, "put_object", map[string]interface{}{
		"path":     "blob.bin",
		"content":  enc,
		"encoding": "base64",
	})
	if r.IsError {
		t.Fatalf("put failed: %s", resultText(r))
	}

	r = callTool(t, srv, "get_object", map[string]interface{}{"path": "blob.bin"})
	if fc := fileContent(t, r); fc.Encoding != EncodingBase64 || fc.Content != enc || fc.Checksum != checksum.Sum(raw) {
		t.Errorf("get result = %+v", fc)
	}

	r = callTool(t, srv, "put_object", map[string]interface{}{
		"path":     "bad.bin",
		"content":  "!!!",
		"encoding": "base64",
	})
	if !r.IsError {
		t.Error("expected error for invalid base64")
	}
}

func TestGetObjectTextLookingEncoded(t *testing.T) {
	srv := testServer(t)
	_ = callTool(t, srv, "put_object", map[string]interface{}{"path": "note.txt", "content": "base64:AAEC"})

	r := callTool(t, srv, "get_object", map[string]interface{}{"path": "note.txt"})
	if fc := fileContent(t, r); fc.Encoding != EncodingText || fc.Content != "base64:AAEC" {
		t.Errorf("get result = %+v, want text encoding with literal content", fc)
	}
}

func TestDeleteObjectRootRefused(t *testing.T) {
	srv := testServer(t)
	_ = callTool(t, srv, "put_object", map[string]interface{}{"path": "keep/me.txt", "content": "keep"})

	for _, p := range []string{"", "/", "..", "../.."} {
		r := callTool(t, srv, "delete_object", map[string]interface{}{"path": p})
		if !r.IsError {
			t.Errorf("delete_object(%q) succeeded, want error", p)
		}
		r = callTool(t, srv, "put_object", map[string]interface{}{"path": p, "content": "x"})
		if !r.IsError {
			t.Errorf("put_object(%q) succeeded, want error", p)
		}
	}

	r := callTool(t, srv, "object_exists", map[string]interface{}{"path": "keep/me.txt"})
	if text := resultText(r); text != "true" {
		t.Errorf("keep/me.txt exists = %q, want true", text)
	}
	r = callTool(t, srv, "list_catalog", map[string]interface{}{})
	if text := resultText(r); !strings.Contains(text, `"path": "keep/me.txt"`) {
		t.Errorf("catalog lost rows: %s", text)
	}
}

func TestGetObjectListing(t *testing.T) {
	srv := testServer(t)
	_ = callTool(t, srv, "put_object", map[string]interface{}{"path": "b/c.txt", "content": "c"})

	r := callTool(t, srv, "get_object", map[string]interface{}{})
	text := resultText(r)
	if !strings.Contains(text, `"type": "directory"`) || !strings.Contains(text, `"name": "c.txt"`) {
		t.Errorf("listing = %s", text)
	}
}

func TestGetObjectMissing(t *testing.T) {
	srv := testServer(t)
	r := callTool(t, srv, "get_object", map[string]interface{}{"path": "nope.txt"})
	if !r.IsError {
		t.Error("expected error for missing object")
	}
}

func TestDeleteObject(t *testing.T) {
	srv := testServer(t)
	_ = callTool(t, srv, "put_object", map[string]interface{}{"path": "gone.txt", "content": "x"})

	r := callTool(t, srv, "delete_object", map[string]interface{}{"path": "gone.txt"})
	if r.IsError {
		t.Fatalf("delete failed: %s", resultText(r))
	}
	r = callTool(t, srv, "object_exists", map[string]interface{}{"path": "gone.txt"})
	if text := resultText(r); text != "false" {
		t.Errorf("exists after delete = %q", text)
	}
}

func TestListCatalog(t *testing.T) {
	srv := testServer(t)
	_ = callTool(t, srv, "put_object", map[string]interface{}{"path": "a.txt", "content": "a"})

	r := callTool(t, srv, "list_catalog", map[string]interface{}{"prefix": "a"})
	if text := resultText(r); !strings.Contains(text, `"path": "a.txt"`) {
		t.Errorf("catalog = %s", text)
	}
}
