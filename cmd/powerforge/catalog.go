package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cory-johannsen/powerforge/internal/catalog"
	"github.com/cory-johannsen/powerforge/internal/export"
	"github.com/cory-johannsen/powerforge/internal/scripting"
)

func (a *app) setsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sets",
		Short: "List power sets and how many powers each holds",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			for _, set := range a.powers.Categories() {
				fmt.Fprintf(out, "%s\t%d\n", set, len(a.powers.ByCategory(set)))
			}
			return nil
		},
	}
}

// queryFlags are the record filters shared by the powers and traits commands.
type queryFlags struct {
	set    string
	search string
	where  string
}

func (a *app) powersCmd() *cobra.Command {
	var q queryFlags
	cmd := &cobra.Command{
		Use:   "powers",
		Short: "List powers, optionally filtered",
		Example: `  powerforge powers --set Strength
  powerforge powers --search leap
  powerforge powers --where 'record.action == "Standard" and has_set("Agility")'`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.list(cmd.OutOrStdout(), a.powers, q)
		},
	}
	cmd.Flags().StringVar(&q.set, "set", "", "only powers in this power set")
	cmd.Flags().StringVar(&q.search, "search", "", "only powers whose name contains this text, ignoring case")
	cmd.Flags().StringVar(&q.where, "where", "", "only powers for which this Lua expression is true")
	return cmd
}

func (a *app) traitsCmd() *cobra.Command {
	var q queryFlags
	cmd := &cobra.Command{
		Use:   "traits",
		Short: "List traits, optionally filtered",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.list(cmd.OutOrStdout(), a.traits, q)
		},
	}
	cmd.Flags().StringVar(&q.search, "search", "", "only traits whose name contains this text, ignoring case")
	cmd.Flags().StringVar(&q.where, "where", "", "only traits for which this Lua expression is true")
	return cmd
}

// query applies q's filters in turn; each keeps catalog order.
func (a *app) query(idx *catalog.Index, q queryFlags) ([]catalog.Record, error) {
	records := idx.All()
	if q.set != "" {
		records = idx.ByCategory(q.set)
	}
	if q.search != "" {
		matched := make(map[string]bool)
		for _, r := range idx.Search(q.search) {
			matched[r.Name] = true
		}
		kept := records[:0]
		for _, r := range records {
			if matched[r.Name] {
				kept = append(kept, r)
			}
		}
		records = kept
	}
	if q.where != "" {
		f, err := scripting.NewFilter(q.where, a.cfg.Catalog.ScriptLimit)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return f.Apply(records)
	}
	return records, nil
}

func (a *app) list(out io.Writer, idx *catalog.Index, q queryFlags) error {
	records, err := a.query(idx, q)
	if err != nil {
		return err
	}
	for _, r := range records {
		if len(r.PowerSets) > 0 {
			fmt.Fprintf(out, "%s\t[%s]\n", r.Name, strings.Join(r.PowerSets, ", "))
			continue
		}
		fmt.Fprintln(out, r.Name)
	}
	return nil
}

func (a *app) showCmd() *cobra.Command {
	var plain bool
	cmd := &cobra.Command{
		Use:   "show <name>",
		Short: "Show every attribute of a power or trait",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := a.powers.Get(args[0])
			if err != nil {
				var traitErr error
				if r, traitErr = a.traits.Get(args[0]); traitErr != nil {
					return fmt.Errorf("no power or trait named %q: %w", args[0], catalog.ErrRecordNotFound)
				}
			}
			doc := export.Document{Sections: []export.Section{{
				Kind:    r.Kind,
				Entries: []export.Entry{{Name: r.Name, Fields: r.Fields()}},
			}}}
			return export.Write(a.renderer(plain), doc, cmd.OutOrStdout())
		},
	}
	cmd.Flags().BoolVar(&plain, "plain", false, "print Markdown instead of styled terminal output")
	return cmd
}

// renderer picks the exporter for documents printed to the terminal.
func (a *app) renderer(plain bool) export.Exporter {
	if plain {
		return export.Markdown{}
	}
	return export.Terminal{Width: a.cfg.Export.Width}
}
