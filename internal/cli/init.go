// init.go implements the "hone init" command with optional --guided flag.
package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/berth-dev/hone/internal/config"
	"github.com/berth-dev/hone/internal/loop"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize hone in the current project",
	Long: `Initialize the .hone/ directory with a config.yaml selecting the
policy, the capability provider and the session store, and add hone's
runtime files to .gitignore.`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

type initOptions struct {
	guided   bool
	force    bool
	policy   string
	provider string
	model    string
	store    string
}

var initOpts initOptions

func init() {
	initCmd.Flags().BoolVar(&initOpts.guided, "guided", false, "Interactive prompts for configuration overrides")
	initCmd.Flags().BoolVar(&initOpts.force, "force", false, "Overwrite an existing config without asking")
	initCmd.Flags().StringVar(&initOpts.policy, "policy", "", "Policy: single-threshold or two-tier")
	initCmd.Flags().StringVar(&initOpts.provider, "provider", "", "Provider: claude or ollama")
	initCmd.Flags().StringVar(&initOpts.model, "model", "", "Model name passed to the provider")
	initCmd.Flags().StringVar(&initOpts.store, "store", "", "Session store: sqlite, file or memory")
}

func runInit(cmd *cobra.Command, args []string) error {
	dir, err := filepath.Abs(dirFlag)
	if err != nil {
		return fmt.Errorf("resolving project directory: %w", err)
	}
	return initProject(dir, cmd.InOrStdin(), cmd.OutOrStdout(), initOpts)
}

// initProject writes .hone/config.yaml into dir.
func initProject(dir string, in io.Reader, out io.Writer, opts initOptions) error {
	reader := bufio.NewReader(in)

	// Check for an existing config.
	cfgPath := filepath.Join(dir, config.Dir, "config.yaml")
	if _, statErr := os.Stat(cfgPath); statErr == nil && !opts.force {
		fmt.Fprintln(out, "Warning: .hone/config.yaml already exists.")
		fmt.Fprint(out, "Reinitialize? [y/N]: ")
		answer, _ := reader.ReadString('\n')
		answer = strings.TrimSpace(strings.ToLower(answer))
		if answer != "y" && answer != "yes" {
			fmt.Fprintln(out, "Aborted.")
			return nil
		}
	}

	cfg := config.DefaultConfig()
	if err := applyInitFlags(cfg, opts); err != nil {
		return err
	}
	if opts.guided {
		guidedOverrides(cfg, reader, out)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	if err := config.WriteConfig(dir, cfg); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	// Only touch .gitignore inside a git repository.
	if _, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
		if err := ensureGitignore(dir); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to set up .gitignore: %v\n", err)
		}
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, "Hone initialized")
	fmt.Fprintf(out, "  Policy:   %s (good %d, cap %d %s)\n", cfg.Policy.Kind, cfg.Policy.GoodScore, cfg.Policy.Cap, cfg.Policy.CapOn)
	fmt.Fprintf(out, "  Provider: %s (%s)\n", cfg.Provider.Kind, cfg.Provider.Model)
	fmt.Fprintf(out, "  Store:    %s\n", cfg.Store.Backend)
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Configuration written to .hone/config.yaml")
	fmt.Fprintln(out, "Ready to run: hone run \"your prompt\"")
	return nil
}

func applyInitFlags(cfg *config.Config, opts initOptions) error {
	if opts.policy != "" {
		p, err := loop.PolicyByName(opts.policy)
		if err != nil {
			return err
		}
		cfg.Policy = p
	}
	if opts.provider != "" {
		cfg.Provider.Kind = opts.provider
		if opts.provider == config.ProviderOllama && opts.model == "" {
			cfg.Provider.Model = "llama3.1"
		}
	}
	if opts.model != "" {
		cfg.Provider.Model = opts.model
	}
	if opts.store != "" {
		cfg.Store.Backend = opts.store
		if opts.store == config.StoreFile {
			cfg.Store.Path = filepath.Join(config.Dir, "sessions")
		}
	}
	return nil
}

// guidedOverrides prompts the user for optional configuration overrides.
func guidedOverrides(cfg *config.Config, reader *bufio.Reader, out io.Writer) {
	fmt.Fprintln(out)
	fmt.Fprintln(out, "--- Guided Configuration ---")

	ask := func(label, current string) string {
		fmt.Fprintf(out, "%s [%s]: ", label, current)
		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			return ""
		}
		return strings.TrimSpace(line)
	}

	if v := ask("Policy (single-threshold/two-tier)", string(cfg.Policy.Kind)); v != "" {
		if p, err := loop.PolicyByName(v); err == nil {
			cfg.Policy = p
		} else {
			fmt.Fprintf(out, "  %v; keeping %s\n", err, cfg.Policy.Kind)
		}
	}
	if v := ask("Provider (claude/ollama)", cfg.Provider.Kind); v != "" {
		cfg.Provider.Kind = v
	}
	if v := ask("Model", cfg.Provider.Model); v != "" {
		cfg.Provider.Model = v
	}
	if v := ask("Session store (sqlite/file/memory)", cfg.Store.Backend); v != "" {
		cfg.Store.Backend = v
		if v == config.StoreFile {
			cfg.Store.Path = filepath.Join(config.Dir, "sessions")
		}
	}

	fmt.Fprintln(out, "--- End Guided Configuration ---")
	fmt.Fprintln(out)
}

// ensureGitignore creates or appends to .gitignore with hone's runtime
// files. It reads the existing file and only adds entries that aren't
// already present.
func ensureGitignore(dir string) error {
	gitignorePath := filepath.Join(dir, ".gitignore")

	// Hone runtime (config.yaml IS committed).
	requiredEntries := []string{
		".hone/sessions.db*",
		".hone/sessions/",
		".hone/log.jsonl",
		".hone/debug.log",
	}

	existing := ""
	if data, err := os.ReadFile(gitignorePath); err == nil {
		existing = string(data)
	}

	var missing []string
	for _, entry := range requiredEntries {
		if !strings.Contains(existing, entry) {
			missing = append(missing, entry)
		}
	}

	if len(missing) == 0 {
		return nil
	}

	var toAppend strings.Builder
	if existing != "" && !strings.HasSuffix(existing, "\n") {
		toAppend.WriteString("\n")
	}
	if existing != "" {
		toAppend.WriteString("\n# Added by hone init\n")
	}
	for _, entry := range missing {
		toAppend.WriteString(entry + "\n")
	}

	f, err := os.OpenFile(gitignorePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("opening .gitignore: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(toAppend.String()); err != nil {
		return fmt.Errorf("writing .gitignore: %w", err)
	}

	return nil
}
