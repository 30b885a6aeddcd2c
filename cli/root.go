package main

import (
	"strings"

	"github.com/charmbracelet/log"
	"github.com/sliverarmory/ldfind"
	"github.com/sliverarmory/ldfind/diag"
	"github.com/sliverarmory/ldfind/emit"
	"github.com/sliverarmory/ldfind/internal/cgobootstrap"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const defaultCapacity = 64 * 1024

var rootCmd = newRootCmd()

type settings struct {
	extraPaths    string
	capacity      int
	noSymlinks    bool
	noHardlinks   bool
	maxIdentities int
	warningLevel  int
	verbose       bool
}

// loadSettings reads flags, falling back to LDFIND_* environment variables.
func loadSettings(cmd *cobra.Command) (settings, error) {
	v := viper.New()
	v.SetEnvPrefix("LDFIND")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return settings{}, err
	}
	return settings{
		extraPaths:    v.GetString("extra-paths"),
		capacity:      v.GetInt("capacity"),
		noSymlinks:    v.GetBool("no-symlinks"),
		noHardlinks:   v.GetBool("no-hardlinks"),
		maxIdentities: v.GetInt("max-identities"),
		warningLevel:  v.GetInt("warning-level"),
		verbose:       v.GetBool("verbose"),
	}, nil
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ldfind [FROM source[,source...]] [WHERE name[,name...]]",
		Short: "Show which shared library files the dynamic loader would pick, and why",
		Long: `ldfind lists the files the dynamic loader would consider for the requested
library names, source by source in loader precedence order: LD_AUDIT,
LD_PRELOAD, DT_RPATH, LD_LIBRARY_PATH, DT_RUNPATH, LD_RUN_PATH, ld.so.cache,
default_paths and extra_paths.

Output is CSV: row number, source, path, warnings.`,
		Example:      "  ldfind WHERE libc.so.6\n  ldfind FROM LD_LIBRARY_PATH,default_paths WHERE libssl.so:libcrypto.so",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSettings(cmd)
			if err != nil {
				return err
			}

			logger := log.NewWithOptions(cmd.ErrOrStderr(), log.Options{Prefix: "ldfind"})
			if s.verbose {
				logger.SetLevel(log.DebugLevel)
			}
			if !cgobootstrap.Linked() {
				logger.Debug("binary is not linked against libc; DT_RPATH and DT_RUNPATH will be unavailable")
			}

			result, err := ldfind.Resolve(strings.Join(args, " "), s.capacity,
				ldfind.WithExtraPaths(s.extraPaths),
				ldfind.WithSymlinks(!s.noSymlinks),
				ldfind.WithHardlinks(!s.noHardlinks),
				ldfind.WithMaxIdentities(s.maxIdentities),
				ldfind.WithWarningLevel(s.warningLevel),
				ldfind.WithLogger(logger),
			)
			if result != nil {
				if _, werr := cmd.OutOrStdout().Write(result.Output); werr != nil {
					return werr
				}
			}
			return err
		},
	}

	flags := cmd.Flags()
	flags.String("extra-paths", "", "directories searched after every loader source, ':' or ';' separated")
	flags.Int("capacity", defaultCapacity, "maximum output size in bytes")
	flags.Bool("no-symlinks", false, "omit candidates that are symbolic links")
	flags.Bool("no-hardlinks", false, "omit candidates that repeat an earlier file instead of marking them")
	flags.Int("max-identities", emit.DefaultMaxIdentities, "number of distinct files tracked for duplicate detection")
	flags.Int("warning-level", diag.MaxLevel, "warning verbosity from 0 (syntax errors only) to 4")
	flags.BoolP("verbose", "v", false, "log resolution steps to stderr")
	return cmd
}
