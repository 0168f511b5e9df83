package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cory-johannsen/powerforge/internal/export"
	"github.com/cory-johannsen/powerforge/internal/hero"
)

func (a *app) heroCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hero",
		Short: "Create, edit, show and export hero files",
	}
	cmd.AddCommand(
		a.heroNewCmd(),
		a.heroRenameCmd(),
		a.heroEditCmd("add-power", "Select powers", func(id string) (string, error) {
			return added(a.session.OnAddPower(id))
		}),
		a.heroEditCmd("remove-power", "Deselect powers", func(id string) (string, error) {
			return removed(a.session.OnRemovePower(id)), nil
		}),
		a.heroEditCmd("add-trait", "Select traits", func(id string) (string, error) {
			return added(a.session.OnAddTrait(id))
		}),
		a.heroEditCmd("remove-trait", "Deselect traits", func(id string) (string, error) {
			return removed(a.session.OnRemoveTrait(id)), nil
		}),
		a.heroShowCmd(),
		a.heroExportCmd(),
		a.libraryCmd(),
	)
	return cmd
}

func added(changed bool, err error) (string, error) {
	if err != nil {
		return "", err
	}
	if changed {
		return "added", nil
	}
	return "already selected", nil
}

func removed(changed bool) string {
	if changed {
		return "removed"
	}
	return "not selected"
}

// load opens the hero file into the session and reports dropped identifiers on errOut.
func (a *app) load(path string, errOut io.Writer) error {
	dropped, err := a.session.OnLoad(path)
	if err != nil {
		return err
	}
	for _, d := range dropped {
		fmt.Fprintf(errOut, "dropped %s: no longer in the catalog\n", d)
	}
	return nil
}

func (a *app) heroNewCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "new <name>",
		Short: "Create an empty hero file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a.session.OnNew(args[0])
			if output == "" {
				output = hero.DefaultFileName(a.session.Hero().Name, a.cfg.Hero.DefaultFormat)
			}
			if err := a.session.OnSave(output); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "hero file to write; the extension picks json, yaml or toml")
	return cmd
}

func (a *app) heroRenameCmd() *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "rename --hero FILE <name>",
		Short: "Rename a hero, keeping its selections",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.load(path, cmd.ErrOrStderr()); err != nil {
				return err
			}
			a.session.OnRename(args[0])
			return a.session.OnSave(path)
		},
	}
	heroFlag(cmd, &path)
	return cmd
}

// heroEditCmd builds a command that applies edit to each identifier and
// saves the hero once all of them succeed.
func (a *app) heroEditCmd(use, short string, edit func(id string) (string, error)) *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   use + " --hero FILE <name>...",
		Short: short,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.load(path, cmd.ErrOrStderr()); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, id := range args {
				result, err := edit(id)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%s: %s\n", id, result)
			}
			return a.session.OnSave(path)
		},
	}
	heroFlag(cmd, &path)
	return cmd
}

func (a *app) heroShowCmd() *cobra.Command {
	var (
		path  string
		plain bool
	)
	cmd := &cobra.Command{
		Use:   "show --hero FILE",
		Short: "Print a hero's selected powers and traits with every attribute",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.load(path, cmd.ErrOrStderr()); err != nil {
				return err
			}
			doc, err := export.Build(a.session.Hero(), a.powers, a.traits)
			if err != nil {
				return err
			}
			return export.Write(a.renderer(plain), doc, cmd.OutOrStdout())
		},
	}
	heroFlag(cmd, &path)
	cmd.Flags().BoolVar(&plain, "plain", false, "print Markdown instead of styled terminal output")
	return cmd
}

func (a *app) heroExportCmd() *cobra.Command {
	var path, output, format string
	cmd := &cobra.Command{
		Use:   "export --hero FILE",
		Short: "Export a hero as a PDF or Markdown document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.load(path, cmd.ErrOrStderr()); err != nil {
				return err
			}
			if format == "" {
				format = a.cfg.Export.Format
			}
			exp, err := export.ByName(format, export.Options{
				FontSize: a.cfg.Export.FontSize,
				Columns:  a.cfg.Export.Columns,
				Margin:   a.cfg.Export.Margin,
				Width:    a.cfg.Export.Width,
			})
			if err != nil {
				return err
			}
			if output == "" {
				output = hero.DefaultFileName(a.session.Hero().Name, exp.Extension())
			}
			if err := a.session.OnExport(exp, output); err != nil {
				return err
			}
			a.logger.Debug("export complete", zap.String("output", output))
			fmt.Fprintln(cmd.OutOrStdout(), output)
			return nil
		},
	}
	heroFlag(cmd, &path)
	cmd.Flags().StringVarP(&output, "output", "o", "", "document to write (default <name>_powers_and_traits.<ext>)")
	cmd.Flags().StringVar(&format, "format", "", "pdf or markdown (default export.format)")
	return cmd
}

func heroFlag(cmd *cobra.Command, path *string) {
	cmd.Flags().StringVar(path, "hero", "", "hero file")
	if err := cmd.MarkFlagRequired("hero"); err != nil {
		panic(fmt.Sprintf("marking --hero required on %s: %v", cmd.Name(), err))
	}
}
