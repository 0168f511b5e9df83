package main

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cory-johannsen/powerforge/internal/hero"
	"github.com/cory-johannsen/powerforge/internal/storage/postgres"
	"github.com/cory-johannsen/powerforge/internal/storage/sqlite"
)

// openLibrary connects to the configured hero library. The returned func
// releases it.
func (a *app) openLibrary(ctx context.Context) (hero.Repository, func(), error) {
	switch a.cfg.Library.Backend {
	case "postgres":
		pool, err := postgres.NewPool(ctx, a.cfg.Database)
		if err != nil {
			return nil, nil, err
		}
		a.logger.Debug("hero library opened",
			zap.String("backend", "postgres"),
			zap.String("host", a.cfg.Database.Host),
			zap.String("database", a.cfg.Database.Name),
		)
		return postgres.NewHeroRepository(pool.DB()), pool.Close, nil
	default:
		store, err := sqlite.Open(a.cfg.Library.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		a.logger.Debug("hero library opened",
			zap.String("backend", "sqlite"),
			zap.String("path", a.cfg.Library.SQLitePath),
		)
		return store, func() {
			if err := store.Close(); err != nil {
				a.logger.Warn("closing hero library", zap.Error(err))
			}
		}, nil
	}
}

// withLibrary runs fn against an open hero library.
func (a *app) withLibrary(cmd *cobra.Command, fn func(ctx context.Context, repo hero.Repository) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	repo, closeFn, err := a.openLibrary(ctx)
	if err != nil {
		return err
	}
	defer closeFn()
	return fn(ctx, repo)
}

func (a *app) libraryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "store",
		Short: "Keep heroes in the configured hero library (sqlite or postgres)",
	}
	cmd.AddCommand(a.storePutCmd(), a.storeGetCmd(), a.storeListCmd(), a.storeDeleteCmd())
	return cmd
}

func (a *app) storePutCmd() *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "put --hero FILE",
		Short: "Store a hero file in the library, replacing any hero with the same id",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.load(path, cmd.ErrOrStderr()); err != nil {
				return err
			}
			return a.withLibrary(cmd, func(ctx context.Context, repo hero.Repository) error {
				if err := a.session.OnStore(ctx, repo); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), a.session.Hero().ID)
				return nil
			})
		},
	}
	heroFlag(cmd, &path)
	return cmd
}

func (a *app) storeGetCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "get <id>",
		Short: "Write a stored hero to a hero file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("parsing hero id %q: %w", args[0], err)
			}
			return a.withLibrary(cmd, func(ctx context.Context, repo hero.Repository) error {
				dropped, err := a.session.OnFetch(ctx, repo, id)
				if err != nil {
					return err
				}
				for _, d := range dropped {
					fmt.Fprintf(cmd.ErrOrStderr(), "dropped %s: no longer in the catalog\n", d)
				}
				if output == "" {
					output = hero.DefaultFileName(a.session.Hero().Name, a.cfg.Hero.DefaultFormat)
				}
				if err := a.session.OnSave(output); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), output)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "hero file to write")
	return cmd
}

func (a *app) storeListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored heroes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withLibrary(cmd, func(ctx context.Context, repo hero.Repository) error {
				heroes, err := repo.List(ctx)
				if err != nil {
					return err
				}
				for _, h := range heroes {
					fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%d powers, %d traits\n",
						h.ID, h.Name, h.Powers.Len(), h.Traits.Len())
				}
				return nil
			})
		},
	}
}

func (a *app) storeDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Remove a hero from the library",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("parsing hero id %q: %w", args[0], err)
			}
			return a.withLibrary(cmd, func(ctx context.Context, repo hero.Repository) error {
				return repo.Delete(ctx, id)
			})
		},
	}
}
