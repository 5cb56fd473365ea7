// Package server holds the tool registry: named tools with typed handlers,
// generated input schemas and behaviour annotations.
package server

import (
	"sort"
	"sync"

	"github.com/thadeucbr/mcp-tools/protocol"
)

// Info contains server metadata exposed to clients.
type Info struct {
	Name    string
	Version string
}

// Manifest is what initialize reports back to a client.
type Manifest struct {
	Name            string `json:"name"`
	Version         string `json:"version"`
	ProtocolVersion string `json:"protocolVersion"`
}

// ToolInfo describes a registered tool for tools/list.
type ToolInfo struct {
	Name        string
	Description string
	InputSchema any
	Annotations *ToolAnnotations
}

// Option configures a Server.
type Option func(*Server)

// WithInstructions sets the usage hint sent to clients during initialize.
func WithInstructions(text string) Option {
	return func(s *Server) {
		s.instructions = text
	}
}

// Server is a concurrency-safe registry of tools.
type Server struct {
	mu sync.RWMutex

	info         Info
	instructions string
	tools        map[string]*Tool
}

// New creates a server with the given info and options.
func New(info Info, opts ...Option) *Server {
	s := &Server{
		info:  info,
		tools: make(map[string]*Tool),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Info returns the server info.
func (s *Server) Info() Info {
	return s.info
}

// Instructions returns the usage hint, possibly empty.
func (s *Server) Instructions() string {
	return s.instructions
}

// Manifest returns the data reported during initialize.
func (s *Server) Manifest() Manifest {
	return Manifest{
		Name:            s.info.Name,
		Version:         s.info.Version,
		ProtocolVersion: protocol.MCPVersion,
	}
}

// Tool starts building a tool with the given name. The tool is registered
// once Handler succeeds.
func (s *Server) Tool(name string) *ToolBuilder {
	return &ToolBuilder{
		tool:   &Tool{name: name},
		server: s,
	}
}

// Tools returns registered tools sorted by name.
func (s *Server) Tools() []ToolInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]ToolInfo, 0, len(s.tools))
	for _, t := range s.tools {
		result = append(result, ToolInfo{
			Name:        t.name,
			Description: t.description,
			InputSchema: t.inputSchema,
			Annotations: t.annotations,
		})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}

// GetTool looks a tool up by name.
func (s *Server) GetTool(name string) (*Tool, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tools[name]
	return t, ok
}

func (s *Server) registerTool(t *Tool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tools[t.name] = t
}
