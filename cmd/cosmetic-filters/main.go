package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bnema/cosmetic-filters/internal/cosmetic"
	"github.com/bnema/cosmetic-filters/internal/fetcher"
	"github.com/bnema/cosmetic-filters/internal/models"
	"github.com/bnema/cosmetic-filters/internal/output"
	"github.com/bnema/cosmetic-filters/internal/parser"
	"github.com/bnema/cosmetic-filters/internal/selector"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	cfgFile string
	verbose bool
	cfg     models.Config
	logger  = zap.NewNop()
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	_ = logger.Sync()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "cosmetic-filters",
	Short: "Compile uBlock cosmetic filter rules",
	Long: `A tool that compiles the cosmetic rules (##, #@#, #?#) of uBlock Origin
and Adblock Plus filter lists into hostname-hashed JSON filters, and checks
which of them apply to a given page.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		l, err := newLogger(verbose)
		if err != nil {
			return err
		}
		logger = l
		return nil
	},
}

var compileCmd = &cobra.Command{
	Use:   "compile",
	Short: "Compile the enabled filter lists to JSON",
	RunE:  runCompile,
}

var checkCmd = &cobra.Command{
	Use:   "check [rule...]",
	Short: "Compile single rules and print the result",
	Long: `Compile the rules given as arguments, or one rule per line from stdin
when none are given, and print each compiled filter as JSON.`,
	RunE: runCheck,
}

var matchCmd = &cobra.Command{
	Use:   "match <hostname> [list-file...]",
	Short: "Show the cosmetic filters that apply to a hostname",
	Long: `Compile the given list files, or the enabled configured lists when none
are given, and print the filters that apply to pages on hostname.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runMatch,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List configured filter lists",
	RunE:  runList,
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a default config file",
	RunE:  runInit,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default: ./configs/cosmetic_filters.toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output and debug logging")
	rootCmd.PersistentFlags().Bool("permissive", false, "accept selectors without CSS validation")
	rootCmd.PersistentFlags().Bool("debug", false, "keep raw rule lines in compiled filters")
	_ = viper.BindPFlag("compile.debug", rootCmd.PersistentFlags().Lookup("debug"))

	compileCmd.Flags().StringP("output", "o", "", "output directory (default: output.dir)")
	compileCmd.Flags().Bool("dry-run", false, "compile without writing files")
	compileCmd.Flags().Bool("combined", true, "generate combined output file")
	compileCmd.Flags().Bool("hidden-generics", false, "emit generic rules implied by negation-only rules")
	_ = viper.BindPFlag("output.dir", compileCmd.Flags().Lookup("output"))
	_ = viper.BindPFlag("compile.hidden_generics", compileCmd.Flags().Lookup("hidden-generics"))

	rootCmd.AddCommand(compileCmd, checkCmd, matchCmd, listCmd, initCmd)
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("cosmetic_filters")
		viper.SetConfigType("toml")
		viper.AddConfigPath("./configs")
		viper.AddConfigPath(".")
	}

	viper.SetEnvPrefix("CF")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Set defaults
	viper.SetDefault("http.timeout", "30s")
	viper.SetDefault("http.retries", 3)
	viper.SetDefault("compile.debug", false)
	viper.SetDefault("compile.strict_selectors", true)
	viper.SetDefault("compile.hidden_generics", false)
	viper.SetDefault("compile.permission", 0)
	viper.SetDefault("output.dir", "./output")
	viper.SetDefault("output.max_rules_per_file", output.MaxRulesPerFile)
	viper.SetDefault("output.generate_manifest", true)

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			fmt.Fprintf(os.Stderr, "Error reading config: %v\n", err)
		}
	}

	if err := viper.Unmarshal(&cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing config: %v\n", err)
	}
}

// newLogger builds a development logger for --verbose, otherwise a
// production logger that only reports warnings
func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		zc := zap.NewDevelopmentConfig()
		zc.EncoderConfig.TimeKey = "ts"
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		l, err := zc.Build()
		if err != nil {
			return nil, fmt.Errorf("build dev logger: %w", err)
		}
		return l, nil
	}
	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	zc.EncoderConfig.TimeKey = "ts"
	l, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("build prod logger: %w", err)
	}
	return l, nil
}

// newCompiler picks the selector validator from flags and config
func newCompiler(cmd *cobra.Command) *cosmetic.Compiler {
	permissive, _ := cmd.Flags().GetBool("permissive")
	if permissive || !cfg.Compile.StrictSelectors {
		return cosmetic.NewCompiler(selector.Permissive{})
	}
	return cosmetic.NewCompiler(selector.Strict{})
}

func parserOptions() parser.Options {
	return parser.Options{
		Debug:          cfg.Compile.Debug,
		HiddenGenerics: cfg.Compile.HiddenGenerics,
		Permission:     cosmetic.PermissionMask(cfg.Compile.Permission),
	}
}

func runCompile(cmd *cobra.Command, args []string) error {
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	generateCombined, _ := cmd.Flags().GetBool("combined")

	enabledLists := cfg.EnabledLists()
	if len(enabledLists) == 0 {
		return fmt.Errorf("no enabled filter lists found in config")
	}

	fmt.Printf("Compiling %d filter lists...\n", len(enabledLists))
	if dryRun {
		fmt.Println("[DRY RUN] No files will be written")
	}

	ctx := cmd.Context()
	f := fetcher.New(cfg.HTTP, logger.Named("fetcher"))
	compiler := newCompiler(cmd)
	w := output.NewWriter(cfg.Output.Dir, cfg.Output.MaxRulesPerFile)

	var compiled []models.CompiledList
	results := make(map[string]output.ListResult)

	// Aggregate skip reasons across all lists
	totalSkips := make(map[string]int)

	for _, list := range enabledLists {
		fmt.Printf("\n  Processing %s...\n", list.Name)

		if err := list.Validate(); err != nil {
			fmt.Printf("    ERROR: %v\n", err)
			continue
		}

		data, err := f.Load(ctx, list)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			fmt.Printf("    ERROR: %v\n", err)
			continue
		}
		fmt.Printf("    Loaded: %d bytes\n", len(data))

		// Fresh parser per list for accurate stats
		p := parser.New(compiler, parserOptions(), logger.Named("parser").With(zap.String("list", list.Name)))
		filters, err := p.Parse(bytes.NewReader(data))
		if err != nil {
			fmt.Printf("    ERROR parsing: %v\n", err)
			continue
		}
		stats := p.Stats()

		fmt.Printf("    Compiled: %d filters (failed: %d)\n", len(filters), stats.Failed)
		if verbose {
			fmt.Printf("    Parsed: %d total, %d comments, %d network, %d cosmetic, %d exceptions, %d scriptlets, %d hidden generics\n",
				stats.Total, stats.Comments, stats.Network, stats.Cosmetic, stats.Exceptions, stats.Scriptlets, stats.HiddenGenerics)
			printReasons("    ", stats.SkipReasons)
		}
		for reason, count := range stats.SkipReasons {
			totalSkips[reason] += count
		}

		cl := models.CompiledList{Name: list.Name, Source: list.Source(), Filters: filters}
		compiled = append(compiled, cl)

		if dryRun {
			continue
		}
		res, err := w.WriteList(cl, stats.Failed)
		if err != nil {
			fmt.Printf("    ERROR: %v\n", err)
			continue
		}
		results[list.Name] = res
	}

	if len(totalSkips) > 0 {
		fmt.Printf("\nFailed rules summary:\n")
		printReasons("  ", totalSkips)
	}

	var combined *output.CombinedInfo
	if generateCombined && len(compiled) > 0 {
		fmt.Printf("\nGenerating combined output...\n")
		if dryRun {
			var all []*cosmetic.Filter
			for _, cl := range compiled {
				all = append(all, cl.Filters...)
			}
			fmt.Printf("  Total filters: %d (after deduplication)\n", len(output.Deduplicate(all)))
		} else {
			info, err := w.WriteCombined(compiled)
			if err != nil {
				return err
			}
			fmt.Printf("  Total filters: %d (after deduplication)\n", info.TotalRules)
			combined = &info
		}
	}

	if !dryRun && cfg.Output.GenerateManifest {
		if err := w.WriteManifest(results, combined); err != nil {
			fmt.Printf("  ERROR writing manifest: %v\n", err)
		}
	}

	fmt.Println("\nDone!")
	return nil
}

// printReasons prints skip reasons, most frequent first
func printReasons(indent string, reasons map[string]int) {
	keys := make([]string, 0, len(reasons))
	for k := range reasons {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if reasons[keys[i]] != reasons[keys[j]] {
			return reasons[keys[i]] > reasons[keys[j]]
		}
		return keys[i] < keys[j]
	})
	for _, k := range keys {
		fmt.Printf("%s- %s: %d\n", indent, k, reasons[k])
	}
}

func runList(cmd *cobra.Command, args []string) error {
	fmt.Print("Configured filter lists:\n\n")
	for _, list := range cfg.Lists {
		status := "enabled"
		if !list.Enabled {
			status = "disabled"
		}
		fmt.Printf("  [%s] %s\n", status, list.Name)
		fmt.Printf("         %s\n\n", list.Source())
	}
	return nil
}

func runInit(cmd *cobra.Command, args []string) error {
	configPath := "./configs/cosmetic_filters.toml"
	if cfgFile != "" {
		configPath = cfgFile
	}

	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("config file already exists: %s", configPath)
	}

	defaultConfig := `# Cosmetic filter compiler configuration

# HTTP client settings
[http]
timeout = "30s"
retries = 3

# Compilation settings
[compile]
debug = false
strict_selectors = true
hidden_generics = false
permission = 0

# Output settings
[output]
dir = "./output"
max_rules_per_file = 50000
generate_manifest = true

# Filter lists to compile, each with either a url or a local path
# Set enabled = false to skip a list

[[lists]]
name = "easylist"
url = "https://easylist.to/easylist/easylist.txt"
enabled = true

[[lists]]
name = "ublock-filters"
url = "https://ublockorigin.github.io/uAssets/filters/filters.txt"
enabled = true

[[lists]]
name = "ublock-annoyances"
url = "https://ublockorigin.github.io/uAssets/filters/annoyances-cookies.txt"
enabled = false

[[lists]]
name = "local"
path = "./lists/local.txt"
enabled = false
`

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	if err := os.WriteFile(configPath, []byte(defaultConfig), 0644); err != nil {
		return err
	}

	fmt.Printf("Created config file: %s\n", configPath)
	return nil
}
