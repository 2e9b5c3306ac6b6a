package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage vcf-annotator configuration",
		Long:  "Show, get, or set configuration values. Config is stored in ~/" + configName + ".yaml.",
		Example: `  vcf-annotator config                          # show all config
  vcf-annotator config set workers 8            # annotate 8 lines at a time
  vcf-annotator config set cache ~/vcf.duckdb   # cache service responses
  vcf-annotator config set samples tumor,normal # annotate other sample columns
  vcf-annotator config get base_url             # get a value`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigShow(cmd.OutOrStdout())
		},
	}

	cmd.AddCommand(newConfigSetCmd())
	cmd.AddCommand(newConfigGetCmd())

	return cmd
}

func newConfigSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigSet(cmd.OutOrStdout(), args[0], args[1])
		},
	}
}

func newConfigGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Get a configuration value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigGet(cmd.OutOrStdout(), args[0])
		},
	}
}

func runConfigShow(w io.Writer) error {
	settings := viper.AllSettings()
	if len(settings) == 0 {
		fmt.Fprintf(w, "# No configuration set. Config file: ~/%s.yaml\n", configName)
		return nil
	}

	if f := viper.ConfigFileUsed(); f != "" {
		fmt.Fprintf(w, "# %s\n", f)
	}
	out, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	fmt.Fprint(w, string(out))
	return nil
}

// configFlags returns the flags that double as config keys.
func configFlags() *pflag.FlagSet {
	cmd := &cobra.Command{}
	addAnnotateFlags(cmd)
	cmd.Flags().BoolP("verbose", "v", false, "")
	return cmd.Flags()
}

// lookupConfigKey maps a key written with dashes or underscores to its
// config key and the flag defining it.
func lookupConfigKey(key string) (string, *pflag.Flag, error) {
	fs := configFlags()
	for _, name := range []string{key, strings.ReplaceAll(key, "_", "-"), strings.ReplaceAll(key, "-", "_")} {
		if f := fs.Lookup(name); f != nil {
			return strings.ReplaceAll(f.Name, "-", "_"), f, nil
		}
	}
	return "", nil, fmt.Errorf("unknown config key %q", key)
}

// parseConfigValue converts value to the type of the flag behind a key.
func parseConfigValue(f *pflag.Flag, value string) (any, error) {
	switch f.Value.Type() {
	case "bool":
		return strconv.ParseBool(value)
	case "int":
		return strconv.Atoi(value)
	case "duration":
		if _, err := time.ParseDuration(value); err != nil {
			return nil, err
		}
		return value, nil
	case "stringSlice":
		var items []string
		for _, item := range strings.Split(value, ",") {
			if item = strings.TrimSpace(item); item != "" {
				items = append(items, item)
			}
		}
		if len(items) == 0 {
			return nil, errors.New("empty list")
		}
		return items, nil
	default:
		return value, nil
	}
}

func runConfigSet(w io.Writer, key, value string) error {
	key, f, err := lookupConfigKey(key)
	if err != nil {
		return err
	}
	v, err := parseConfigValue(f, value)
	if err != nil {
		return fmt.Errorf("invalid value %q for %s: %w", value, key, err)
	}
	viper.Set(key, v)

	cfgFile := viper.ConfigFileUsed()
	if cfgFile == "" {
		cfgFile, err = defaultConfigPath()
		if err != nil {
			return err
		}
	}

	if err := viper.WriteConfigAs(cfgFile); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	fmt.Fprintf(w, "Set %s = %s in %s\n", key, value, cfgFile)
	return nil
}

func runConfigGet(w io.Writer, key string) error {
	key, f, err := lookupConfigKey(key)
	if err != nil {
		return err
	}
	if !viper.IsSet(key) {
		return fmt.Errorf("key %q is not set", key)
	}
	if f.Value.Type() == "stringSlice" {
		fmt.Fprintln(w, strings.Join(listSetting(key), ","))
		return nil
	}
	fmt.Fprintln(w, viper.Get(key))
	return nil
}
