package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/webherbas/taskflow/internal/adapters/server"
	"github.com/webherbas/taskflow/internal/adapters/server/web"
	"github.com/webherbas/taskflow/internal/adapters/storage/jsonfile"
	"github.com/webherbas/taskflow/internal/app"
	"github.com/webherbas/taskflow/internal/backup"
	"github.com/webherbas/taskflow/internal/domain"
)

var headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)

var cellStyle = lipgloss.NewStyle().Padding(0, 1)

func newServeCommand(opts *globalOptions) *cobra.Command {
	var bind, apiEndpoint, mcpEndpoint string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the board pages, the REST API, and the MCP endpoint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withRuntime(cmd.Context(), opts, "serve", func(env *runtimeEnv) error {
				return runServe(cmd.Context(), env, bind, apiEndpoint, mcpEndpoint)
			})
		},
	}
	cmd.Flags().StringVar(&bind, "bind", "", "HTTP listen address (default from config)")
	cmd.Flags().StringVar(&apiEndpoint, "api-endpoint", "", "REST API base path (default from config)")
	cmd.Flags().StringVar(&mcpEndpoint, "mcp-endpoint", "", "MCP streamable HTTP path (default from config)")
	return cmd
}

// runServe serves HTTP until ctx is done. Scheduled backups and, for the
// JSON file backend, external-change reloads run alongside.
func runServe(ctx context.Context, env *runtimeEnv, bind, apiEndpoint, mcpEndpoint string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if env.json != nil && env.cfg.Storage.Watch {
		go func() {
			err := env.json.Watch(ctx, func() {
				env.board.Reload(ctx)
				env.logger.Info("board reloaded after external change", "path", env.json.Path())
			}, jsonfile.WatchOptions{Logger: env.logger})
			if err != nil {
				env.logger.Warn("json store watch stopped", "path", env.json.Path(), "err", err)
			}
		}()
	}

	backups := backup.NewService(env.board, backup.Config{
		Schedule: env.cfg.Backup.Schedule,
		Dir:      env.cfg.Backup.Dir,
		Keep:     env.cfg.Backup.Keep,
		Logger:   env.logger,
	})
	if err := backups.Start(ctx); err != nil {
		return err
	}
	defer backups.Stop()

	cfg := server.Config{
		HTTPBind:      firstNonEmpty(bind, env.cfg.Server.Bind),
		APIEndpoint:   firstNonEmpty(apiEndpoint, env.cfg.Server.APIEndpoint),
		MCPEndpoint:   firstNonEmpty(mcpEndpoint, env.cfg.Server.MCPEndpoint),
		ServerName:    env.opts.appName,
		ServerVersion: version,
	}
	return serveCommandRunner(ctx, cfg, server.Dependencies{
		Board: env.board,
		Web: web.Config{
			Location:      env.loc,
			ConfirmDelete: env.cfg.Confirm.Delete,
			ConfirmImport: env.cfg.Confirm.Import,
			ConfirmClear:  env.cfg.Confirm.Clear,
			Logger:        env.logger,
		},
		Logger: env.logger,
		OnListen: func(addr string) {
			_, _ = fmt.Fprintf(env.opts.stdout, "listening on http://%s\n", addr)
		},
	})
}

func newAddCommand(opts *globalOptions) *cobra.Command {
	var description, due string
	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Add a task to the todo column",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd.Context(), opts, "add", func(env *runtimeEnv) error {
				form := app.NewFormController(env.board, nil, app.FormConfig{})
				result, err := form.Submit(cmd.Context(), app.FormInput{
					Title:       args[0],
					Description: description,
					DueDate:     due,
				})
				if err != nil {
					return err
				}
				if !result.Created {
					return fmt.Errorf("%s: %s", result.FocusField, result.Message)
				}
				_, err = fmt.Fprintf(env.opts.stdout, "%s %s\n", result.Message, result.Item.ID)
				return err
			})
		},
	}
	cmd.Flags().StringVarP(&description, "description", "d", "", "task description")
	cmd.Flags().StringVar(&due, "due", "", "due date (YYYY-MM-DD)")
	return cmd
}

func newListCommand(opts *globalOptions) *cobra.Command {
	var status string
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List tasks as a table",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withRuntime(cmd.Context(), opts, "list", func(env *runtimeEnv) error {
				return runList(env, status)
			})
		},
	}
	cmd.Flags().StringVarP(&status, "status", "s", "", "only list tasks with this status (todo, progress, done)")
	return cmd
}

// runList prints every task, or only those with status, in board order.
func runList(env *runtimeEnv, rawStatus string) error {
	var filter domain.Status
	if strings.TrimSpace(rawStatus) != "" {
		parsed, err := domain.ParseStatus(rawStatus)
		if err != nil {
			return err
		}
		filter = parsed
	}

	tbl := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("ID", "Estado", "Título", "Vence", "Creado").
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	shown := 0
	for _, item := range env.board.Items() {
		if filter != "" && item.Status != filter {
			continue
		}
		tbl.Row(
			app.ShortID(item.ID),
			item.Status.DisplayName(),
			item.Title,
			app.FormatDueDate(item.DueDate),
			app.FormatTimestamp(item.CreatedAt, env.loc),
		)
		shown++
	}
	if shown == 0 {
		_, err := fmt.Fprintln(env.opts.stdout, "No hay elementos")
		return err
	}
	_, err := fmt.Fprintf(env.opts.stdout, "%s\n%d elementos\n", tbl.String(), shown)
	return err
}

func newMoveCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "move <id> <status>",
		Short: "Move a task to a column",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd.Context(), opts, "move", func(env *runtimeEnv) error {
				status, err := domain.ParseStatus(args[1])
				if err != nil {
					return err
				}
				id, err := resolveID(env.board, args[0])
				if err != nil {
					return err
				}
				item, changed, err := env.board.SetStatus(cmd.Context(), id, status)
				if err != nil {
					return err
				}
				if !changed {
					_, err = fmt.Fprintf(env.opts.stdout, "%s ya está en %s\n", app.ShortID(item.ID), status.DisplayName())
					return err
				}
				_, err = fmt.Fprintf(env.opts.stdout, "Elemento movido a %s\n", status.DisplayName())
				return err
			})
		},
	}
}

func newAdvanceCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "advance <id>",
		Short: "Move a task to the next column, wrapping from done to todo",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd.Context(), opts, "advance", func(env *runtimeEnv) error {
				id, err := resolveID(env.board, args[0])
				if err != nil {
					return err
				}
				item, err := env.board.AdvanceStatus(cmd.Context(), id)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintf(env.opts.stdout, "Elemento movido a %s\n", item.Status.DisplayName())
				return err
			})
		},
	}
}

func newRemoveCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"delete"},
		Short:   "Delete a task",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd.Context(), opts, "rm", func(env *runtimeEnv) error {
				id, err := resolveID(env.board, args[0])
				if err != nil {
					return err
				}
				if err := env.board.Remove(cmd.Context(), id); err != nil {
					return err
				}
				_, err = fmt.Fprintln(env.opts.stdout, "Elemento eliminado")
				return err
			})
		},
	}
}

// resolveID accepts a full id or the short id shown by list. A short id
// must match the tail of exactly one task id.
func resolveID(board *app.Board, raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("task id: %w", app.ErrNotFound)
	}
	if _, ok := board.Get(raw); ok {
		return raw, nil
	}
	match := ""
	for _, item := range board.Items() {
		if !strings.HasSuffix(item.ID, raw) {
			continue
		}
		if match != "" {
			return "", fmt.Errorf("task id %q is ambiguous", raw)
		}
		match = item.ID
	}
	if match == "" {
		return "", fmt.Errorf("task %q: %w", raw, app.ErrNotFound)
	}
	return match, nil
}

func newExportCommand(opts *globalOptions) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the task list as a JSON backup",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withRuntime(cmd.Context(), opts, "export", func(env *runtimeEnv) error {
				file, err := env.board.Export()
				if err != nil {
					return err
				}
				if out == "-" {
					_, err = env.opts.stdout.Write(file.Data)
					return err
				}
				path := out
				if path == "" {
					path = file.Name
				} else if info, statErr := os.Stat(path); statErr == nil && info.IsDir() {
					path = filepath.Join(path, file.Name)
				}
				if err := os.WriteFile(path, file.Data, 0o644); err != nil {
					return fmt.Errorf("write export: %w", err)
				}
				_, err = fmt.Fprintf(env.opts.stdout, "exported %s\n", path)
				return err
			})
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file or directory ('-' for stdout; default ./<backup name>)")
	return cmd
}

func newImportCommand(opts *globalOptions) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Replace the task list with a JSON backup",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd.Context(), opts, "import", func(env *runtimeEnv) error {
				payload, err := readInput(cmd.InOrStdin(), args[0])
				if err != nil {
					return err
				}
				confirmed := yes || !env.cfg.Confirm.Import
				n, err := env.board.Import(cmd.Context(), payload, confirmed)
				if errors.Is(err, app.ErrImportNotConfirmed) {
					return fmt.Errorf("%w: this replaces %d current items; rerun with --yes", err, len(env.board.Items()))
				}
				if err != nil {
					return err
				}
				_, err = fmt.Fprintf(env.opts.stdout, "Se importaron %d elementos\n", n)
				return err
			})
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "confirm replacing the current list")
	return cmd
}

// readInput reads path, or stdin when path is "-".
func readInput(stdin io.Reader, path string) ([]byte, error) {
	if path == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read import file: %w", err)
	}
	return data, nil
}

func newClearCommand(opts *globalOptions) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every stored task",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withRuntime(cmd.Context(), opts, "clear", func(env *runtimeEnv) error {
				if !yes && env.cfg.Confirm.Clear {
					return fmt.Errorf("%w: rerun with --yes", app.ErrClearNotConfirmed)
				}
				if err := env.board.ClearAll(cmd.Context()); err != nil {
					return err
				}
				_, err := fmt.Fprintln(env.opts.stdout, "Datos eliminados")
				return err
			})
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "confirm deleting all data")
	return cmd
}

func newBackupCommand(opts *globalOptions) *cobra.Command {
	var list bool
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Write a backup into the backup directory now, or list existing ones",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withRuntime(cmd.Context(), opts, "backup", func(env *runtimeEnv) error {
				if list {
					files, err := backup.List(env.cfg.Backup.Dir)
					if err != nil {
						return err
					}
					for _, file := range files {
						if _, err := fmt.Fprintln(env.opts.stdout, file); err != nil {
							return err
						}
					}
					return nil
				}
				svc := backup.NewService(env.board, backup.Config{
					Dir:    env.cfg.Backup.Dir,
					Keep:   env.cfg.Backup.Keep,
					Logger: env.logger,
				})
				path, err := svc.RunOnce(cmd.Context())
				if err != nil {
					return err
				}
				_, err = fmt.Fprintf(env.opts.stdout, "backup written %s\n", path)
				return err
			})
		},
	}
	cmd.Flags().BoolVar(&list, "list", false, "list existing backups, oldest first")
	return cmd
}

func newHistoryCommand(opts *globalOptions) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent writes recorded by the sqlite store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withRuntime(cmd.Context(), opts, "history", func(env *runtimeEnv) error {
				if env.sqlite == nil {
					return errHistoryUnsupported
				}
				events, err := env.sqlite.History(cmd.Context(), limit)
				if err != nil {
					return err
				}
				tbl := table.New().
					Border(lipgloss.NormalBorder()).
					Headers("#", "Clave", "Operación", "Bytes", "Fecha")
				for _, event := range events {
					tbl.Row(
						strconv.FormatInt(event.ID, 10),
						event.Key,
						event.Operation,
						strconv.Itoa(event.Bytes),
						app.FormatTimestamp(event.OccurredAt, env.loc),
					)
				}
				_, err = fmt.Fprintln(env.opts.stdout, tbl.String())
				return err
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of entries to show")
	return cmd
}

func newPathsCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "paths",
		Short: "Print resolved config and data paths",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			paths, err := resolvePaths(opts)
			if err != nil {
				return err
			}
			out := opts.stdout
			_, _ = fmt.Fprintf(out, "app: %s\n", opts.appName)
			_, _ = fmt.Fprintf(out, "dev_mode: %t\n", opts.devMode)
			_, _ = fmt.Fprintf(out, "config: %s\n", paths.ConfigPath)
			_, _ = fmt.Fprintf(out, "data_dir: %s\n", paths.DataDir)
			_, _ = fmt.Fprintf(out, "db: %s\n", paths.DBPath)
			_, _ = fmt.Fprintf(out, "json: %s\n", paths.JSONPath)
			_, _ = fmt.Fprintf(out, "backups: %s\n", paths.BackupDir)
			return nil
		},
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
