package setup

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// NewCommand returns the `setup` command tree. Prompts read from in.
func NewCommand(in io.Reader) *cobra.Command {
	reader := bufio.NewReader(in)

	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Register the vet pain MCP server with Claude Desktop",
		Example: `  # Configure Claude Desktop with auto-detection
  setup claude-desktop

  # Configure with a specific binary and enable the AI advisory
  setup claude-desktop --binary /usr/local/bin/mcp-server-lite --gemini-api-key $GEMINI_API_KEY

  # Check current setup status
  setup status`,
	}

	cmd.AddCommand(newClaudeDesktopCommand(reader))
	cmd.AddCommand(newStatusCommand())
	cmd.AddCommand(newValidateCommand())
	return cmd
}

func newClaudeDesktopCommand(reader *bufio.Reader) *cobra.Command {
	var opts Options
	var autoConfirm bool

	cmd := &cobra.Command{
		Use:   "claude-desktop",
		Short: "Add or update the server entry in the Claude Desktop config",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()

			if opts.BinaryPath == "" {
				if path, err := FindBinary(); err == nil {
					opts.BinaryPath = path
				} else if execPath, err := os.Executable(); err == nil {
					opts.BinaryPath = execPath
				}
			}
			if opts.ConfigPath == "" {
				path, err := GetClaudeDesktopConfigPath()
				if err != nil {
					return err
				}
				opts.ConfigPath = path
			}

			fmt.Fprintln(out, "Claude Desktop Configuration")
			fmt.Fprintln(out, "============================")
			fmt.Fprintf(out, "Config file: %s\n", opts.ConfigPath)
			fmt.Fprintf(out, "Server binary: %s\n", opts.BinaryPath)
			if opts.CatalogDir != "" {
				fmt.Fprintf(out, "Catalog directory: %s\n", opts.CatalogDir)
			}
			if opts.GeminiAPIKey != "" {
				fmt.Fprintln(out, "AI advisory: enabled")
			}
			fmt.Fprintln(out)

			if !autoConfirm {
				fmt.Fprint(out, "Proceed with configuration? [Y/n]: ")
				response, _ := reader.ReadString('\n')
				response = strings.TrimSpace(strings.ToLower(response))
				if response != "" && response != "y" && response != "yes" {
					fmt.Fprintln(out, "Configuration cancelled.")
					return nil
				}
			}

			if _, err := ConfigureClaudeDesktop(opts); err != nil {
				return fmt.Errorf("failed to configure Claude Desktop: %w", err)
			}

			fmt.Fprintln(out)
			fmt.Fprintln(out, "✓ Claude Desktop configured successfully!")
			fmt.Fprintln(out)
			fmt.Fprintln(out, "Next steps:")
			fmt.Fprintln(out, "  1. Restart Claude Desktop to load the new configuration")
			fmt.Fprintln(out, "  2. Ask Claude: \"Which pain scales do you have for cats?\"")
			fmt.Fprintln(out, "  3. Try: \"Calculate a carprofen dose for a 10 kg dog\"")
			return nil
		},
	}

	cmd.Flags().StringVarP(&opts.BinaryPath, "binary", "b", "", "path to the mcp-server-lite binary")
	cmd.Flags().StringVar(&opts.ConfigPath, "config", "", "Claude Desktop config file (detected when empty)")
	cmd.Flags().StringVar(&opts.CatalogDir, "catalog-dir", "", "directory with scales.yaml, drugs.yaml and cri.yaml")
	cmd.Flags().StringVar(&opts.GeminiAPIKey, "gemini-api-key", "", "Gemini API key enabling request_advisory")
	cmd.Flags().StringVar(&opts.LogFile, "log-file", "", "rotated log file for the server")
	cmd.Flags().BoolVarP(&autoConfirm, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}

func newStatusCommand() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show current setup status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			status := GetStatus(configPath)

			fmt.Fprintln(out, "Vet Pain MCP Server Status")
			fmt.Fprintln(out, "==========================")
			fmt.Fprintf(out, "Config path: %s\n", status.ConfigPath)
			if status.Configured {
				fmt.Fprintln(out, "Claude Desktop: ✓ Configured")
				fmt.Fprintf(out, "Binary: %s\n", status.ServerPath)
				fmt.Fprintf(out, "AI advisory: %s\n", enabledLabel(status.AdvisoryEnabled))
				if status.CatalogDir != "" {
					fmt.Fprintf(out, "Catalog directory: %s\n", status.CatalogDir)
				}
			} else {
				fmt.Fprintln(out, "Claude Desktop: ✗ Not configured")
			}

			if len(status.Issues) > 0 {
				fmt.Fprintln(out)
				fmt.Fprintln(out, "Issues:")
				for _, issue := range status.Issues {
					fmt.Fprintf(out, "  ⚠ %s\n", issue)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "Claude Desktop config file (detected when empty)")
	return cmd
}

func newValidateCommand() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate the current configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			status := GetStatus(configPath)

			if status.Valid() {
				fmt.Fprintln(out, "✓ Configuration is valid!")
				return nil
			}

			fmt.Fprintln(out, "✗ Configuration has issues:")
			for _, issue := range status.Issues {
				fmt.Fprintf(out, "  - %s\n", issue)
			}
			return fmt.Errorf("configuration has %d issue(s)", len(status.Issues))
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "Claude Desktop config file (detected when empty)")
	return cmd
}

func enabledLabel(enabled bool) string {
	if enabled {
		return "enabled"
	}
	return "disabled"
}
