package main

import (
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"headphones/internal/config"
	"headphones/internal/viewmodel"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
	}

	configCmd.AddCommand(newConfigInitCommand())
	configCmd.AddCommand(newConfigValidateCommand(ctx))
	configCmd.AddCommand(newConfigShowCommand(ctx))
	configCmd.AddCommand(newConfigSetCommand(ctx))
	configCmd.AddCommand(newConfigFormCommand(ctx))

	return configCmd
}

func newConfigInitCommand() *cobra.Command {
	var targetPath string
	var overwrite bool

	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Create a sample configuration file",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			target := strings.TrimSpace(targetPath)
			if target == "" {
				defaultPath, err := config.DefaultConfigPath()
				if err != nil {
					return fmt.Errorf("determine default config path: %w", err)
				}
				target = defaultPath
			} else {
				expanded, err := config.ExpandPath(target)
				if err != nil {
					return fmt.Errorf("resolve config path: %w", err)
				}
				target = expanded
			}

			dir := filepath.Dir(target)
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create config directory %q: %w", dir, err)
			}

			if !overwrite {
				if _, err := os.Stat(target); err == nil {
					return fmt.Errorf("config file already exists at %s (use --overwrite to replace it)", target)
				} else if !os.IsNotExist(err) {
					return fmt.Errorf("check config path: %w", err)
				}
			}

			if err := config.CreateSample(target); err != nil {
				return fmt.Errorf("create sample config: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote sample configuration to %s\n", target)
			fmt.Fprintln(out, "Set DESTINATION_DIR and an indexer host before running headphones.")
			return nil
		},
	}

	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "Destination for the configuration file")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Overwrite existing configuration if present")
	return cmd
}

func newConfigValidateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			settings, err := ctx.settings()
			if err != nil {
				return fmt.Errorf("ensure directories: %w", err)
			}
			if err := settings.Validate(); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Config path: %s\n", cfg.Path)
			if !cfg.Exists {
				fmt.Fprintln(out, "Config file did not exist; defaults were used")
			}
			fmt.Fprintln(out, "Configuration valid")
			return nil
		},
	}
}

func newConfigShowCommand(ctx *commandContext) *cobra.Command {
	var section string
	var all bool
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print option values by section",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			parser, _, err := viewmodel.NewFormParser(cfg.Options, ctx.commandLogger())
			if err != nil {
				return err
			}
			rows := make([][]string, 0)
			for _, entry := range cfg.Registry.Entries() {
				if section != "" && !strings.EqualFold(entry.Section(), section) {
					continue
				}
				if !all && !entry.Visible() {
					continue
				}
				value, err := entry.Value()
				if err != nil {
					return err
				}
				display := formatOptionValue(value)
				if isSecret(parser, entry) && display != "" {
					display = "********"
				}
				rows = append(rows, []string{entry.Section(), entry.AppKey(), display})
			}
			if len(rows) == 0 {
				return fmt.Errorf("no options in section %q", section)
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Section", "Option", "Value"}, rows))
			return nil
		},
	}
	cmd.Flags().StringVar(&section, "section", "", "Only show options of this section")
	cmd.Flags().BoolVar(&all, "all", false, "Include hidden options")
	return cmd
}

func isSecret(parser *viewmodel.Parser, entry config.Entry) bool {
	field, ok := parser.Field(viewmodel.UIKey(entry.AppKey()))
	if !ok {
		return false
	}
	secret, ok := field.(viewmodel.Secret)
	return ok && secret.Secret()
}

func formatOptionValue(value any) string {
	switch v := value.(type) {
	case []string:
		return strings.Join(v, ",")
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

func newConfigSetCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "set <OPTION> <value>",
		Short: "Set one option and save the configuration file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			appKey := strings.ToUpper(strings.TrimSpace(args[0]))
			entry, ok := cfg.Registry.Lookup(appKey)
			if !ok {
				return fmt.Errorf("unknown option %s", appKey)
			}
			if entry.ReadOnly() {
				return fmt.Errorf("option %s is read-only", appKey)
			}
			value, err := entry.Coerce(args[1])
			if err != nil {
				return fmt.Errorf("option %s: %w", appKey, err)
			}
			if err := entry.SetValue(value); err != nil {
				return err
			}
			if err := saveValidated(cfg); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s = %s\n", appKey, formatOptionValue(value))
			return nil
		},
	}
}

func newConfigFormCommand(ctx *commandContext) *cobra.Command {
	var formFile string
	cmd := &cobra.Command{
		Use:   "form [key=value ...]",
		Short: "Apply a settings form submission (hp_ui_* keys) and save",
		Long: "Apply a settings form submission and save.\n\n" +
			"Pairs come from arguments or from --file holding an urlencoded body (- reads stdin).",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			form, err := readForm(cmd.InOrStdin(), formFile, args)
			if err != nil {
				return err
			}
			parser, _, err := viewmodel.NewFormParser(cfg.Options, ctx.commandLogger())
			if err != nil {
				return err
			}
			changed, acceptErr := parser.Accept(form)
			if changed > 0 {
				if err := saveValidated(cfg); err != nil {
					return err
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d option(s) changed\n", changed)
			return acceptErr
		},
	}
	cmd.Flags().StringVarP(&formFile, "file", "f", "", "Read an urlencoded form body from this file")
	return cmd
}

func readForm(stdin io.Reader, file string, pairs []string) (url.Values, error) {
	form := url.Values{}
	if file != "" {
		var src io.Reader = stdin
		if file != "-" {
			f, err := os.Open(file)
			if err != nil {
				return nil, fmt.Errorf("open form file: %w", err)
			}
			defer f.Close()
			src = f
		}
		body, err := io.ReadAll(src)
		if err != nil {
			return nil, fmt.Errorf("read form: %w", err)
		}
		parsed, err := url.ParseQuery(strings.TrimSpace(string(body)))
		if err != nil {
			return nil, fmt.Errorf("parse form: %w", err)
		}
		for key, values := range parsed {
			form[key] = append(form[key], values...)
		}
	}
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || strings.TrimSpace(key) == "" {
			return nil, fmt.Errorf("form pair %q is not key=value", pair)
		}
		form.Add(strings.TrimSpace(key), value)
	}
	return form, nil
}

func saveValidated(cfg *config.Config) error {
	settings, err := cfg.Settings()
	if err != nil {
		return err
	}
	if err := settings.Validate(); err != nil {
		return fmt.Errorf("not saved: %w", err)
	}
	return cfg.Save()
}
