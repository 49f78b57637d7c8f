package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"mcpchat/internal/domain"
)

// serversFile is the on-disk layout shared with desktop MCP hosts:
//
//	{"mcpServers": {"files": {"command": "npx", "args": ["-y", "server-filesystem", "."]}}}
type serversFile struct {
	MCPServers map[string]MCPServer `json:"mcpServers"`
}

// LoadServersFile reads named servers from a JSON servers file. Entries are
// returned sorted by name; an entry without a transport is stdio when it has
// a command and sse otherwise.
func LoadServersFile(path string) ([]MCPServer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read servers file: %w", err)
	}

	var sf serversFile
	if err := json.Unmarshal(data, &sf); err != nil {
		return nil, fmt.Errorf("parse servers file %s: %w", path, err)
	}

	names := make([]string, 0, len(sf.MCPServers))
	for name := range sf.MCPServers {
		names = append(names, name)
	}
	sort.Strings(names)

	servers := make([]MCPServer, 0, len(names))
	for _, name := range names {
		srv := sf.MCPServers[name]
		srv.Name = name
		if srv.Transport == "" {
			srv.Transport = string(domain.TransportSSE)
			if srv.Command != "" {
				srv.Transport = string(domain.TransportStdio)
			}
		}
		servers = append(servers, srv)
	}
	return servers, nil
}

// mergeServersFile appends servers from the configured servers file. When no
// file is configured, DefaultServersFile in baseDir is used if it exists.
// Servers declared in YAML win over file entries with the same name.
func mergeServersFile(cfg *Config, baseDir string) error {
	path := cfg.Server.ServersFile
	if path == "" {
		candidate := filepath.Join(baseDir, DefaultServersFile)
		if _, err := os.Stat(candidate); err != nil {
			return nil
		}
		path = candidate
	} else if !filepath.IsAbs(path) {
		path = filepath.Join(baseDir, path)
	}

	fileServers, err := LoadServersFile(path)
	if err != nil {
		return err
	}

	declared := make(map[string]bool, len(cfg.Server.Servers))
	for _, srv := range cfg.Server.Servers {
		declared[srv.Name] = true
	}
	for _, srv := range fileServers {
		if !declared[srv.Name] {
			cfg.Server.Servers = append(cfg.Server.Servers, srv)
		}
	}
	return nil
}

// LookupServer returns the named server, if configured.
func (c *Config) LookupServer(name string) (MCPServer, bool) {
	for _, srv := range c.Server.Servers {
		if srv.Name == name {
			return srv, true
		}
	}
	return MCPServer{}, false
}

// ResolveEndpoint maps a user-supplied endpoint to a domain.Endpoint. A
// configured server name takes precedence; anything else is parsed with
// domain.ParseEndpoint using the default transport and headers.
func (c *Config) ResolveEndpoint(raw string) (domain.Endpoint, error) {
	if srv, ok := c.LookupServer(raw); ok {
		return srv.Endpoint(), nil
	}

	ep, err := domain.ParseEndpoint(raw, domain.TransportKind(c.Server.Transport))
	if err != nil {
		return domain.Endpoint{}, err
	}
	if ep.Transport != domain.TransportStdio && len(c.Server.Headers) > 0 {
		ep.Headers = c.Server.Headers
	}
	return ep, nil
}

// Endpoint converts the server definition into a domain.Endpoint.
func (s MCPServer) Endpoint() domain.Endpoint {
	return domain.Endpoint{
		Name:      s.Name,
		Transport: domain.TransportKind(s.Transport),
		URL:       s.URL,
		Headers:   s.Headers,
		Command:   s.Command,
		Args:      s.Args,
		Env:       s.Env,
	}
}
