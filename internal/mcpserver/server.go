// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes the storage driver as tools over stdio.
package mcpserver

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/fsdriver/internal/apperr"
	"github.com/starford/fsdriver/internal/checksum"
	"github.com/starford/fsdriver/internal/objectservice"
)

// Content encodings accepted by put_object and produced by get_object.
const (
	EncodingText   = "text"
	EncodingBase64 = "base64"
)

// FileContent is the get_object result for a file. Content holds the raw
// text when Encoding is "text" and standard base64 otherwise.
type FileContent struct {
	Path     string `json:"path"`
	Encoding string `json:"encoding"`
	Content  string `json:"content"`
	Size     int    `json:"size"`
	Checksum string `json:"checksum"`
}

// Server wraps the MCP server with object tools.
type Server struct {
	mcp *server.MCPServer
	svc *objectservice.Service
}

// New creates a new MCP server with all tools registered.
func New(svc *objectservice.Service, version string) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"fsdriver",
		version,
		server.WithToolCapabilities(false),
	)

	s.mcp.AddTool(mcp.NewTool("object_exists",
		mcp.WithDescription("Check whether a file or directory exists in the store."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Logical path using forward slashes (e.g. docs/readme.txt)")),
	), s.objectExists)

	s.mcp.AddTool(mcp.NewTool("get_object",
		mcp.WithDescription("Read a file, or list a directory recursively as JSON. "+
			"Files come back as {path, encoding, content, size, checksum}; "+
			"encoding is \"text\" for UTF-8 content and \"base64\" otherwise."),
		mcp.WithString("path", mcp.Description("Logical path; empty lists the store root")),
	), s.getObject)

	s.mcp.AddTool(mcp.NewTool("put_object",
		mcp.WithDescription("Create or overwrite a file. Missing parent directories are created."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Logical path of the file")),
		mcp.WithString("content", mcp.Required(), mcp.Description("File content")),
		mcp.WithString("encoding", mcp.Description("Content encoding"), mcp.Enum(EncodingText, EncodingBase64)),
	), s.putObject)

	s.mcp.AddTool(mcp.NewTool("delete_object",
		mcp.WithDescription("Delete a file or a whole directory tree. Deleting a missing path succeeds."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Logical path to delete")),
	), s.deleteObject)

	s.mcp.AddTool(mcp.NewTool("list_catalog",
		mcp.WithDescription("List catalogued files with size and checksum, filtered by path prefix."),
		mcp.WithString("prefix", mcp.Description("Optional path prefix")),
		mcp.WithNumber("limit", mcp.Description("Maximum rows (default 100)")),
	), s.listCatalog)

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

func (s *Server) objectExists(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	ok, err := s.svc.Exists(ctx, path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("%t", ok)), nil
}

func (s *Server) getObject(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path := req.GetString("path", "")
	obj, err := s.svc.Get(ctx, path)
	if errors.Is(err, apperr.ErrNotFound) {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", path)), nil
	}
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if obj.IsDir {
		out, _ := json.MarshalIndent(obj.Listing, "", "  ")
		return mcp.NewToolResultText(string(out)), nil
	}

	fc := FileContent{
		Path:     path,
		Encoding: EncodingText,
		Content:  string(obj.Data),
		Size:     len(obj.Data),
		Checksum: checksum.Sum(obj.Data),
	}
	if !utf8.Valid(obj.Data) {
		fc.Encoding = EncodingBase64
		fc.Content = base64.StdEncoding.EncodeToString(obj.Data)
	}
	return mcp.NewToolResultStructuredOnly(fc), nil
}

func (s *Server) putObject(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	data := []byte(content)
	switch enc := req.GetString("encoding", EncodingText); enc {
	case EncodingText:
	case EncodingBase64:
		data, err = base64.StdEncoding.DecodeString(content)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid base64 content: %v", err)), nil
		}
	default:
		return mcp.NewToolResultError(fmt.Sprintf("unknown encoding: %s", enc)), nil
	}

	created, err := s.svc.Put(ctx, path, data)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if created {
		return mcp.NewToolResultText(fmt.Sprintf("created: %s", path)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("updated: %s", path)), nil
}

func (s *Server) deleteObject(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.svc.Delete(ctx, path); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("deleted: %s", path)), nil
}

func (s *Server) listCatalog(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	prefix := req.GetString("prefix", "")
	limit := req.GetInt("limit", 0)
	items, _, err := s.svc.Catalog(ctx, prefix, limit, 0)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(items, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}
