package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
	"github.com/tidwall/jsonc"
)

const mcpServerName = "wayfinder"

// clientConfigDirs maps supported MCP clients to their config directory.
var clientConfigDirs = map[string]string{
	"claude": ".claude",
	"cursor": ".cursor",
	"qwen":   ".qwen",
}

// SetupCmd registers the MCP server with an MCP client.
type SetupCmd struct {
	Client string `enum:"claude,cursor,qwen,print" default:"print" help:"Client to configure (claude, cursor, qwen, print)"`
	Global bool   `help:"Write the client's global config in the home directory"`
	Root   string `default:"." type:"path" help:"Project directory for the local config"`
	Watch  bool   `help:"Start the server with file watching"`
}

// Run executes the setup command.
func (c *SetupCmd) Run(g *Globals) error {
	entry := c.serverEntry(g)

	if c.Client == "print" {
		return writeJSON(g.stdout(), map[string]any{
			"mcpServers": map[string]any{mcpServerName: entry},
		})
	}

	configPath, err := c.configPath()
	if err != nil {
		return err
	}
	if err := mergeServerConfig(g.filesystem(), configPath, entry); err != nil {
		return err
	}

	g.printer().Success("✓ Registered %s in %s", mcpServerName, configPath)
	return nil
}

func (c *SetupCmd) serverEntry(g *Globals) map[string]any {
	args := []string{"mcp", "--dir", g.Dir}
	if c.Watch {
		args = append(args, "--watch")
	}
	return map[string]any{
		"command": "wayfinder",
		"args":    args,
	}
}

func (c *SetupCmd) configPath() (string, error) {
	dir := clientConfigDirs[c.Client]
	if !c.Global {
		return filepath.Join(c.Root, dir, "mcp.json"), nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("locating home directory: %w", err)
	}
	return filepath.Join(homeDir, dir, "global", "mcp.json"), nil
}

// mergeServerConfig adds entry under mcpServers in the config at path,
// keeping every other key. Existing files may contain comments.
func mergeServerConfig(fs afero.Fs, path string, entry map[string]any) error {
	config := map[string]any{}

	data, err := afero.ReadFile(fs, path)
	switch {
	case err == nil:
		if err := json.Unmarshal(jsonc.ToJSON(data), &config); err != nil {
			return fmt.Errorf("parsing %s: %w", path, err)
		}
	case !errors.Is(err, os.ErrNotExist):
		return fmt.Errorf("reading %s: %w", path, err)
	}

	servers, ok := config["mcpServers"].(map[string]any)
	if !ok {
		servers = map[string]any{}
	}
	servers[mcpServerName] = entry
	config["mcpServers"] = servers

	content, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}

	if err := fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}
	if err := afero.WriteFile(fs, path, append(content, '\n'), 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}
