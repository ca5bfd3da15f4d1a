package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/cobra"
)

// agentDef describes how to detect and configure one AI agent.
type agentDef struct {
	id          string
	displayName string
	method      string            // "cli" or "file"
	binary      string            // cli: binary name on PATH
	dirMarkers  []string          // file: directories that indicate presence
	configPath  func() string     // file: resolved config file path
	serversKey  string            // JSON key: "servers" (VS Code) or "mcpServers"
	needsScope  bool              // cli: prompt for project/user scope
	extraFields map[string]string // extra entry fields, e.g. "type": "stdio"
}

// detectedAgent is an agent found on this machine.
type detectedAgent struct {
	def            agentDef
	alreadySetup   bool
	resolvedConfig string
}

type setupOptions struct {
	auto      bool
	serveArgs []string
}

// Replaceable for testing.
var (
	lookPathFunc = exec.LookPath
	statFunc     = os.Stat
)

var agentRegistry = []agentDef{
	{
		id: "claude_code", displayName: "Claude Code",
		method: "cli", binary: "claude", needsScope: true,
	},
	{
		id: "openai_codex", displayName: "OpenAI Codex",
		method: "cli", binary: "codex", needsScope: true,
	},
	{
		id: "vscode_copilot", displayName: "VS Code Copilot",
		method: "file", dirMarkers: []string{".vscode"},
		configPath:  func() string { return filepath.Join(".vscode", "mcp.json") },
		serversKey:  "servers",
		extraFields: map[string]string{"type": "stdio"},
	},
	{
		id: "cursor", displayName: "Cursor",
		method: "file", dirMarkers: []string{".cursor"},
		configPath: func() string { return filepath.Join(".cursor", "mcp.json") },
		serversKey: "mcpServers",
	},
	{
		id: "claude_desktop", displayName: "Claude Desktop",
		method:     "file",
		configPath: claudeDesktopConfigPath,
		serversKey: "mcpServers",
	},
}

func claudeDesktopConfigPath() string {
	switch runtime.GOOS {
	case "darwin":
		home, _ := os.UserHomeDir()
		return filepath.Join(home, "Library", "Application Support", "Claude", "claude_desktop_config.json")
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "Claude", "claude_desktop_config.json")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", "Claude", "claude_desktop_config.json")
	}
}

// detectAgents scans the machine for supported agents: CLI agents by
// binary on PATH, file agents by their marker directory or config dir.
func detectAgents() []detectedAgent {
	var detected []detectedAgent

	for _, def := range agentRegistry {
		switch def.method {
		case "cli":
			if _, err := lookPathFunc(def.binary); err == nil {
				detected = append(detected, detectedAgent{
					def:          def,
					alreadySetup: hasServerEntry(".mcp.json", "mcpServers"),
				})
			}

		case "file":
			found := false
			configPath := ""
			for _, marker := range def.dirMarkers {
				if _, err := statFunc(marker); err == nil {
					found = true
					configPath = def.configPath()
					break
				}
			}
			// Agents without project markers (Claude Desktop) count as
			// present when their config directory exists.
			if !found && len(def.dirMarkers) == 0 && def.configPath != nil {
				configPath = def.configPath()
				if _, err := statFunc(filepath.Dir(configPath)); err == nil {
					found = true
				}
			}
			if found {
				detected = append(detected, detectedAgent{
					def:            def,
					resolvedConfig: configPath,
					alreadySetup:   configPath != "" && hasServerEntry(configPath, def.serversKey),
				})
			}
		}
	}

	return detected
}

// hasServerEntry reports whether a tokenlens entry already exists under
// serversKey in the named JSON config.
func hasServerEntry(configPath, serversKey string) bool {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return false
	}
	var config map[string]any
	if err := json.Unmarshal(data, &config); err != nil {
		return false
	}
	servers, ok := config[serversKey].(map[string]any)
	if !ok {
		return false
	}
	_, exists := servers["tokenlens"]
	return exists
}

// serverEntry builds the MCP server config object written into agent
// configs.
func serverEntry(extra map[string]string, serveArgs []string) map[string]any {
	args := make([]any, 0, len(serveArgs))
	for _, a := range serveArgs {
		args = append(args, a)
	}
	entry := map[string]any{
		"command": "tokenlens",
		"args":    args,
	}
	for k, v := range extra {
		entry[k] = v
	}
	return entry
}

// mergeServerEntry adds a tokenlens entry under serversKey in existing
// JSON, preserving everything else. Returns nil bytes when the entry is
// already there.
func mergeServerEntry(existing []byte, serversKey string, extra map[string]string, serveArgs []string) ([]byte, error) {
	config := make(map[string]any)
	if len(existing) > 0 {
		if err := json.Unmarshal(existing, &config); err != nil {
			return nil, fmt.Errorf("invalid JSON: %w", err)
		}
	}

	servers, ok := config[serversKey].(map[string]any)
	if !ok {
		servers = make(map[string]any)
	}
	if _, exists := servers["tokenlens"]; exists {
		return nil, nil
	}

	servers["tokenlens"] = serverEntry(extra, serveArgs)
	config[serversKey] = servers

	out, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(out, '\n'), nil
}

// configureCLIAgent registers the server through the agent's own
// `mcp add` command.
func configureCLIAgent(def agentDef, scope string, serveArgs []string) error {
	args := []string{"mcp", "add"}
	if scope != "" {
		args = append(args, "--scope", scope)
	}
	args = append(args, "tokenlens", "--", "tokenlens")
	args = append(args, serveArgs...)
	cmd := exec.Command(def.binary, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

func configureFileAgent(def agentDef, configPath string, serveArgs []string) error {
	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}

	var existing []byte
	if data, err := os.ReadFile(configPath); err == nil {
		existing = data
	}

	merged, err := mergeServerEntry(existing, def.serversKey, def.extraFields, serveArgs)
	if err != nil {
		return err
	}
	if merged == nil {
		return nil
	}
	return os.WriteFile(configPath, merged, 0o644)
}

// --- interactive prompts ---

// promptYesNo reads Y/n; empty input and EOF default to yes.
func promptYesNo(r io.Reader, w io.Writer, question string) bool {
	fmt.Fprintf(w, "%s ", question)
	scanner := bufio.NewScanner(r)
	if !scanner.Scan() {
		return true
	}
	answer := strings.TrimSpace(strings.ToLower(scanner.Text()))
	return answer == "" || answer == "y" || answer == "yes"
}

// promptScope returns "project", "user" or "" for skip.
func promptScope(r io.Reader, w io.Writer, agentName string) string {
	fmt.Fprintf(w, "\n%s — add the tokenlens MCP server?\n", agentName)
	fmt.Fprintln(w, "  [1] Project scope (shared with team)")
	fmt.Fprintln(w, "  [2] User scope (personal, global)")
	fmt.Fprintln(w, "  [3] Skip")
	fmt.Fprintf(w, "  > ")

	scanner := bufio.NewScanner(r)
	if !scanner.Scan() {
		return "project"
	}
	switch strings.TrimSpace(scanner.Text()) {
	case "1", "":
		return "project"
	case "2":
		return "user"
	default:
		return ""
	}
}

// --- orchestration ---

var flagAuto bool

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Register the MCP server with detected AI agents",
	Long: `Setup detects installed AI agents (Claude Code, OpenAI Codex, VS Code
Copilot, Cursor, Claude Desktop) and writes a tokenlens MCP server entry
into each one's configuration. The entry carries the resolved document
path so agents launched outside the project directory still find it.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		executeSetup(os.Stdin, os.Stdout, setupOptions{
			auto:      flagAuto,
			serveArgs: setupServeArgs(),
		})
		return nil
	},
}

func init() {
	setupCmd.Flags().BoolVar(&flagAuto, "auto", false, "configure all detected agents without prompting")
}

// setupServeArgs builds the serve invocation recorded in agent configs.
// Claude Desktop launches servers from the home directory, so the
// document path is made absolute.
func setupServeArgs() []string {
	args := []string{"serve"}

	cfg, err := loadProjectConfig()
	if err != nil {
		cfg = nil
	}
	if doc, derr := resolveDocument(cfg); derr == nil {
		if abs, aerr := filepath.Abs(doc); aerr == nil {
			doc = abs
		}
		args = append(args, "--document", doc)
	}
	if flagTokens != "" {
		args = append(args, "--tokens", flagTokens)
	}
	return args
}

// executeSetup is the testable core, parameterized on I/O.
func executeSetup(r io.Reader, w io.Writer, opts setupOptions) {
	detected := detectAgents()
	if len(detected) == 0 {
		fmt.Fprintln(w, "No supported AI agents detected.")
		return
	}

	fmt.Fprintln(w, "Detected AI agents:")
	for _, d := range detected {
		if d.alreadySetup {
			fmt.Fprintf(w, "  * %s (already configured)\n", d.def.displayName)
		} else {
			fmt.Fprintf(w, "  * %s\n", d.def.displayName)
		}
	}
	fmt.Fprintln(w)

	if !opts.auto {
		if !promptYesNo(r, w, "Configure agents? [Y/n]") {
			return
		}
	}

	for _, d := range detected {
		if d.alreadySetup {
			fmt.Fprintf(w, "\n%s — already configured, skipping\n", d.def.displayName)
			continue
		}
		configureOneAgent(r, w, d, opts)
	}
}

func configureOneAgent(r io.Reader, w io.Writer, d detectedAgent, opts setupOptions) {
	switch d.def.method {
	case "cli":
		scope := "project"
		if !opts.auto && d.def.needsScope {
			scope = promptScope(r, w, d.def.displayName)
			if scope == "" {
				fmt.Fprintf(w, "  skipped\n")
				return
			}
		}
		if err := configureCLIAgent(d.def, scope, opts.serveArgs); err != nil {
			fmt.Fprintf(w, "  ! %s: failed: %v\n", d.def.displayName, err)
			return
		}
		fmt.Fprintf(w, "  + %s configured (scope: %s)\n", d.def.displayName, scope)

	case "file":
		if !opts.auto {
			if !promptYesNo(r, w, fmt.Sprintf("\n%s — add to %s? [Y/n]", d.def.displayName, d.resolvedConfig)) {
				fmt.Fprintf(w, "  skipped\n")
				return
			}
		}
		if err := configureFileAgent(d.def, d.resolvedConfig, opts.serveArgs); err != nil {
			fmt.Fprintf(w, "  ! %s: failed: %v\n", d.def.displayName, err)
			return
		}
		fmt.Fprintf(w, "  + %s configured (%s)\n", d.def.displayName, d.resolvedConfig)
	}
}
