package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/text/cases"

	"github.com/nhle/weekly-planner/internal/app"
	"github.com/nhle/weekly-planner/internal/board"
	"github.com/nhle/weekly-planner/internal/checklist"
	"github.com/nhle/weekly-planner/internal/credential"
	"github.com/nhle/weekly-planner/internal/logger"
	"github.com/nhle/weekly-planner/internal/model"
	"github.com/nhle/weekly-planner/internal/policy"
	"github.com/nhle/weekly-planner/internal/projector"
	"github.com/nhle/weekly-planner/internal/recordstore"
	"github.com/nhle/weekly-planner/internal/release"
)

// cliTimeout bounds one command's store calls.
const cliTimeout = 30 * time.Second

// AddGlobalFlags registers the flags shared by every command.
func AddGlobalFlags(root *cobra.Command) {
	root.PersistentFlags().String("config", model.DefaultConfigPath(), "Path to the configuration file")
	root.PersistentFlags().String("layout", "", "Board layout override (stages, days)")
	root.SilenceUsage = true
}

// env is everything a command needs to talk to the board.
type env struct {
	cfg     *model.AppConfig
	log     *logger.Logger
	client  *recordstore.SQLClient
	owner   string
	columns []model.Column
	store   *board.Store
}

func (e *env) Close() {
	e.store.Close()
	if err := e.client.Close(); err != nil {
		e.log.Warnw("closing record store", "error", err)
	}
	_ = e.log.Close()
}

func loadConfig(cmd *cobra.Command) (*model.AppConfig, string, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := model.LoadConfig(path)
	if err != nil {
		return nil, path, err
	}
	if layout, _ := cmd.Flags().GetString("layout"); layout != "" {
		cfg.Board.Layout = model.Layout(layout)
	}
	return cfg, path, nil
}

func setup(cmd *cobra.Command) (*env, error) {
	cfg, _, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	columns, err := model.ColumnsFor(cfg.Board.Layout)
	if err != nil {
		return nil, err
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		return nil, err
	}

	vault, err := credential.Open()
	if err != nil {
		_ = log.Close()
		return nil, err
	}
	owner, created, err := credential.ResolveOwner(cfg.OwnerID, vault)
	if err != nil {
		_ = log.Close()
		return nil, fmt.Errorf("resolving profile id: %w", err)
	}
	if created {
		log.Infow("created profile id", "owner_id", owner)
	}

	client, err := recordstore.Open(cfg.Store.Driver, cfg.Store.DSN)
	if err != nil {
		_ = log.Close()
		return nil, err
	}

	boardLog := log.WithComponent("board").WithOwner(owner)
	store := board.New(client, owner,
		board.WithLogger(boardLog.SugaredLogger),
		board.WithColumns(columns),
	)

	return &env{
		cfg:     cfg,
		log:     log,
		client:  client,
		owner:   owner,
		columns: columns,
		store:   store,
	}, nil
}

// RunBoard starts the interactive board.
func RunBoard(cmd *cobra.Command, args []string) error {
	e, err := setup(cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	sortType, err := policy.ParseSortType(e.cfg.Board.Sort)
	if err != nil {
		return err
	}

	notifier := release.NewNotifier(e.client, e.cfg.Release.MaxShows,
		e.log.WithComponent("release").SugaredLogger)

	m := app.New(e.store, e.columns,
		app.WithNotifier(notifier),
		app.WithSort(sortType),
		app.WithRefresh(time.Duration(e.cfg.Board.RefreshSeconds)*time.Second),
		app.WithLogger(e.log.WithComponent("ui").SugaredLogger),
	)

	e.log.Infow("starting board", "layout", string(e.cfg.Board.Layout), "driver", e.cfg.Store.Driver)
	if _, err := tea.NewProgram(m, tea.WithAltScreen()).Run(); err != nil {
		return fmt.Errorf("running board: %w", err)
	}
	return nil
}

// NewListCommand creates the list command.
func NewListCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Print the board columns and their tasks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(cmd)
			if err != nil {
				return err
			}
			defer e.Close()

			sortName, _ := cmd.Flags().GetString("sort")
			if sortName == "" {
				sortName = e.cfg.Board.Sort
			}
			sortType, err := policy.ParseSortType(sortName)
			if err != nil {
				return err
			}
			filter, err := listFilter(cmd, e.columns)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), cliTimeout)
			defer cancel()
			if err := e.store.Load(ctx); err != nil {
				return err
			}

			snap := e.store.Snapshot()
			views := projector.ProjectFiltered(snap.Tasks, e.columns, filter, sortType)
			printBoard(cmd, views)
			if n := len(projector.Orphans(snap.Tasks, e.columns)); n > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "\n%d tarefa(s) em colunas de outro layout.\n", n)
			}
			return nil
		},
	}
	cmd.Flags().String("sort", "", "Sort order (none, alpha_asc, alpha_desc, priority, comments, newest)")
	cmd.Flags().String("keyword", "", "Only show tasks whose title contains this text")
	cmd.Flags().StringArray("column", nil, "Only show tasks in this column (key or name); repeat for more")
	cmd.Flags().StringArray("priority", nil, "Only show tasks with this priority; repeat for more")
	return cmd
}

// listFilter builds the task filter from the list flags.
func listFilter(cmd *cobra.Command, columns []model.Column) (policy.Filter, error) {
	var f policy.Filter
	f.Keyword, _ = cmd.Flags().GetString("keyword")

	cols, _ := cmd.Flags().GetStringArray("column")
	for _, ref := range cols {
		key, err := resolveColumn(columns, ref)
		if err != nil {
			return policy.Filter{}, err
		}
		f.Columns = append(f.Columns, key)
	}

	prios, _ := cmd.Flags().GetStringArray("priority")
	for _, ref := range prios {
		p, err := resolvePriority(ref)
		if err != nil {
			return policy.Filter{}, err
		}
		if p == model.PriorityNone {
			return policy.Filter{}, fmt.Errorf("%w %q", errUnknownPriority, ref)
		}
		f.Priorities = append(f.Priorities, p)
	}
	return f, nil
}

func printBoard(cmd *cobra.Command, views []projector.ColumnView) {
	out := cmd.OutOrStdout()
	for i, v := range views {
		if i > 0 {
			fmt.Fprintln(out)
		}
		fmt.Fprintf(out, "%s (%d)\n", v.Name, len(v.Tasks))
		for _, t := range v.Tasks {
			line := fmt.Sprintf("  %s  %s", shortID(t.ID), t.Title)
			if done, total := checklist.Progress(t.Checklist); total > 0 {
				line += fmt.Sprintf("  [%d/%d]", done, total)
			}
			if t.Priority != model.PriorityNone {
				line += "  " + string(t.Priority)
			}
			fmt.Fprintln(out, line)
		}
	}
}

// NewAddCommand creates the add command.
func NewAddCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Create a task",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(cmd)
			if err != nil {
				return err
			}
			defer e.Close()

			d := board.Draft{Title: strings.Join(args, " ")}
			d.Description, _ = cmd.Flags().GetString("description")

			colRef, _ := cmd.Flags().GetString("column")
			if colRef == "" {
				d.ColumnKey = e.columns[0].Key
			} else if d.ColumnKey, err = resolveColumn(e.columns, colRef); err != nil {
				return err
			}

			prio, _ := cmd.Flags().GetString("priority")
			if d.Priority, err = resolvePriority(prio); err != nil {
				return err
			}

			items, _ := cmd.Flags().GetStringArray("item")
			d.Checklist = checklist.FromLines("", nil, strings.Join(items, "\n"))

			ctx, cancel := context.WithTimeout(cmd.Context(), cliTimeout)
			defer cancel()
			t, err := e.store.Create(ctx, d)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Criada %s  %s\n", shortID(t.ID), t.Title)
			return nil
		},
	}
	cmd.Flags().String("column", "", "Column key or name (default: first column)")
	cmd.Flags().String("priority", "", "Priority label (High Priority, Important, OK, Meh)")
	cmd.Flags().String("description", "", "Task description")
	cmd.Flags().StringArray("item", nil, "Checklist item; repeat for more. Prefix with [x] for a completed item")
	return cmd
}

// NewMoveCommand creates the move command.
func NewMoveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "move <task> <column>",
		Short: "Move a task to another column",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(cmd)
			if err != nil {
				return err
			}
			defer e.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), cliTimeout)
			defer cancel()
			if err := e.store.Load(ctx); err != nil {
				return err
			}
			t, err := findTask(e.store.Snapshot().Tasks, args[0])
			if err != nil {
				return err
			}
			to, err := resolveColumn(e.columns, args[1])
			if err != nil {
				return err
			}

			res, err := e.store.MoveTask(ctx, t.ID, to)
			if err != nil {
				return err
			}
			if res.State == board.RolledBack {
				return res.Err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s  %s → %s\n", shortID(t.ID), t.Title, columnName(e.columns, to))
			return nil
		},
	}
}

// NewDeleteCommand creates the delete command.
func NewDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <task>",
		Short: "Delete a task and its checklist",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(cmd)
			if err != nil {
				return err
			}
			defer e.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), cliTimeout)
			defer cancel()
			if err := e.store.Load(ctx); err != nil {
				return err
			}
			t, err := findTask(e.store.Snapshot().Tasks, args[0])
			if err != nil {
				return err
			}
			if err := e.store.Delete(ctx, t.ID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Excluída %s  %s\n", shortID(t.ID), t.Title)
			return nil
		},
	}
}

// NewWhoamiCommand creates the whoami command.
func NewWhoamiCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Print the profile id that owns the board",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			vault, err := credential.Open()
			if err != nil {
				return err
			}

			if reset, _ := cmd.Flags().GetBool("reset"); reset {
				if err := vault.Delete(credential.OwnerKey); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Perfil removido do chaveiro.")
				return nil
			}

			owner, created, err := credential.ResolveOwner(cfg.OwnerID, vault)
			if err != nil {
				return err
			}
			switch {
			case cfg.OwnerID != "":
				fmt.Fprintf(cmd.OutOrStdout(), "%s (configuração)\n", owner)
			case created:
				fmt.Fprintf(cmd.OutOrStdout(), "%s (novo perfil)\n", owner)
			default:
				fmt.Fprintln(cmd.OutOrStdout(), owner)
			}
			return nil
		},
	}
	cmd.Flags().Bool("reset", false, "Forget the stored profile id; a new one is created on next use")
	return cmd
}

// NewPublishCommand creates the publish command.
func NewPublishCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Publish a \"what's new\" release note",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			tag, _ := cmd.Flags().GetString("tag")
			title, _ := cmd.Flags().GetString("title")
			content, _ := cmd.Flags().GetString("html")
			if file, _ := cmd.Flags().GetString("file"); file != "" {
				data, err := os.ReadFile(file)
				if err != nil {
					return fmt.Errorf("reading release notes: %w", err)
				}
				content = string(data)
			}

			client, err := recordstore.Open(cfg.Store.Driver, cfg.Store.DSN)
			if err != nil {
				return err
			}
			defer client.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), cliTimeout)
			defer cancel()
			rel, err := release.NewNotifier(client, cfg.Release.MaxShows, nil).Publish(ctx, tag, title, content)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Publicada %s  %s\n", rel.VersionTag, rel.Title)
			return nil
		},
	}
	cmd.Flags().String("tag", "", "Version tag (required)")
	cmd.Flags().String("title", "", "Release title")
	cmd.Flags().String("html", "", "Release notes as HTML")
	cmd.Flags().String("file", "", "Read the HTML release notes from a file")
	return cmd
}

// NewConfigCommand creates the config command with its subcommands.
func NewConfigCommand() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration commands",
	}

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write the configuration file with default values",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, path, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			force, _ := cmd.Flags().GetBool("force")
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}
			if err := model.SaveConfig(path, cfg); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Configuração escrita em %s\n", path)
			return nil
		},
	}
	initCmd.Flags().Bool("force", false, "Overwrite an existing file")
	configCmd.AddCommand(initCmd)

	return configCmd
}

var (
	errNoTaskMatch     = errors.New("no task matches")
	errAmbiguousTask   = errors.New("ambiguous task reference")
	errUnknownColumn   = errors.New("unknown column")
	errUnknownPriority = errors.New("unknown priority")
)

// findTask resolves ref as a full task id or a unique id prefix.
func findTask(tasks []model.Task, ref string) (model.Task, error) {
	ref = strings.TrimSpace(ref)
	var matches []model.Task
	for _, t := range tasks {
		if t.ID == ref {
			return t, nil
		}
		if ref != "" && strings.HasPrefix(t.ID, ref) {
			matches = append(matches, t)
		}
	}
	switch len(matches) {
	case 0:
		return model.Task{}, fmt.Errorf("%w %q", errNoTaskMatch, ref)
	case 1:
		return matches[0], nil
	default:
		return model.Task{}, fmt.Errorf("%w: %q matches %d tasks", errAmbiguousTask, ref, len(matches))
	}
}

// resolveColumn accepts a column key or display name, ignoring case.
func resolveColumn(columns []model.Column, ref string) (model.ColumnKey, error) {
	fold := cases.Fold()
	want := fold.String(strings.TrimSpace(ref))
	for _, c := range columns {
		if fold.String(string(c.Key)) == want || fold.String(c.Name) == want {
			return c.Key, nil
		}
	}
	return "", fmt.Errorf("%w %q", errUnknownColumn, ref)
}

// resolvePriority accepts a priority label, ignoring case. Empty means no
// priority.
func resolvePriority(ref string) (model.Priority, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return model.PriorityNone, nil
	}
	fold := cases.Fold()
	for _, p := range model.Priorities {
		if fold.String(string(p)) == fold.String(ref) {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w %q", errUnknownPriority, ref)
}

func columnName(columns []model.Column, key model.ColumnKey) string {
	for _, c := range columns {
		if c.Key == key {
			return c.Name
		}
	}
	return string(key)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
