package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"splusls/internal/format"
	"splusls/internal/keywords"
)

func runFormatCmd(cmd *cobra.Command, args []string) error {
	if write && len(args) == 0 {
		return fmt.Errorf("--%s needs at least one file", FlagWrite)
	}
	dir, err := workspaceDir("")
	if err != nil {
		return err
	}
	cfg, err := loadConfig(dir)
	if err != nil {
		return err
	}
	kw, err := keywords.Load()
	if err != nil {
		return err
	}
	opts := cfg.Format.Options(kw)
	out := cmd.OutOrStdout()

	if len(args) == 0 {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("reading stdin: %w", err)
		}
		formatted := format.Format(string(data), opts)
		if listOnly {
			if formatted != string(data) {
				fmt.Fprintln(out, "<standard input>")
			}
			return nil
		}
		_, err = io.WriteString(out, formatted)
		return err
	}

	for _, path := range args {
		if err := formatFile(out, path, opts); err != nil {
			return err
		}
	}
	return nil
}

func formatFile(out io.Writer, path string, opts format.Options) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	src := string(data)
	formatted := format.Format(src, opts)
	changed := formatted != src

	if listOnly && changed {
		fmt.Fprintln(out, path)
	}
	if write {
		if !changed {
			return nil
		}
		if err := os.WriteFile(path, []byte(formatted), info.Mode().Perm()); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
		return nil
	}
	if !listOnly {
		_, err = io.WriteString(out, formatted)
	}
	return err
}
