package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Makepad-fr/tada/internal/model"
	"github.com/Makepad-fr/tada/internal/store"
	"github.com/Makepad-fr/tada/internal/tui"
	"github.com/Makepad-fr/tada/internal/ui"
)

func minArgs(n int, usage string) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) < n {
			return usagef("usage: %s", usage)
		}
		return nil
	}
}

func exactArgs(n int, usage string) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) != n {
			return usagef("usage: %s", usage)
		}
		return nil
	}
}

// lookup resolves a 1-based display number typed by the user.
func lookup(cmd *cobra.Command, s *store.Store, arg string) (model.Item, error) {
	n, err := strconv.Atoi(arg)
	if err != nil {
		return model.Item{}, usagef("%s: not a number: %s", cmd.Name(), arg)
	}
	it, ok := s.ByNumber(n)
	if !ok {
		return model.Item{}, usageError{
			msg:  fmt.Sprintf("index out of range: have %d, got %d", len(s.Items()), n),
			hint: "Hint: run `todo ls` to see valid numbers",
		}
	}
	return it, nil
}

func newAddCmd(a *app) *cobra.Command {
	var desc string
	cmd := &cobra.Command{
		Use:   "add <title...>",
		Short: "Add a new item (title can be multiple words)",
		Args:  minArgs(1, "todo add <title...> [-d description]"),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, done, err := a.openStore()
			if err != nil {
				return err
			}
			defer done()

			it, ok := s.Add(strings.Join(args, " "), desc)
			if !ok {
				return usagef("add: empty title")
			}
			ui.OK(cmd.OutOrStdout(), fmt.Sprintf("added #%d", it.Number))
			return nil
		},
	}
	cmd.Flags().StringVarP(&desc, "description", "d", "", "optional description")
	return cmd
}

func newListCmd(a *app) *cobra.Command {
	var group bool
	cmd := &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List items",
		Args:    exactArgs(0, "todo ls [--group]"),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, done, err := a.openStore()
			if err != nil {
				return err
			}
			defer done()

			g := a.cfg.UI.Group
			if cmd.Flags().Changed("group") {
				g = group
			}
			fmt.Fprintln(cmd.OutOrStdout(), ui.ListPanel(s.Items(), g))
			return nil
		},
	}
	cmd.Flags().BoolVar(&group, "group", false, "group output by pending/done")
	return cmd
}

func newSearchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "search <query...>",
		Short: "List items whose title contains query (case-insensitive)",
		Args:  minArgs(1, "todo search <query...>"),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, done, err := a.openStore()
			if err != nil {
				return err
			}
			defer done()

			q := strings.Join(args, " ")
			s.SetSearchFilter(q)
			matches := s.Filtered()
			th := ui.Current()
			lines := []string{
				fmt.Sprintf("%s %q  %s", th.Title.Render("Search"), q,
					th.Muted.Render(fmt.Sprintf("%d of %d", len(matches), len(s.Items())))),
				"",
			}
			lines = append(lines, ui.FlatLines(matches)...)
			fmt.Fprintln(cmd.OutOrStdout(), ui.Panel(lines))
			return nil
		},
	}
}

func newDoneCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "done <n>",
		Short: "Toggle done for item n",
		Args:  exactArgs(1, "todo done <n>"),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, done, err := a.openStore()
			if err != nil {
				return err
			}
			defer done()

			it, err := lookup(cmd, s, args[0])
			if err != nil {
				return err
			}
			s.Toggle(it.ID)
			msg := "done"
			if it.Done {
				msg = "reopened"
			}
			ui.OK(cmd.OutOrStdout(), fmt.Sprintf("%s #%d", msg, it.Number))
			return nil
		},
	}
}

func newEditCmd(a *app) *cobra.Command {
	var title, desc string
	cmd := &cobra.Command{
		Use:   "edit <n>",
		Short: "Change the title and/or description of item n",
		Args:  exactArgs(1, "todo edit <n> [-t title] [-d description]"),
		RunE: func(cmd *cobra.Command, args []string) error {
			f := cmd.Flags()
			if !f.Changed("title") && !f.Changed("description") {
				return usagef("edit: nothing to change, pass -t and/or -d")
			}
			s, done, err := a.openStore()
			if err != nil {
				return err
			}
			defer done()

			it, err := lookup(cmd, s, args[0])
			if err != nil {
				return err
			}
			newTitle, newDesc := it.Title, it.Description
			if f.Changed("title") {
				newTitle = title
			}
			if f.Changed("description") {
				newDesc = desc
			}
			if !s.Update(it.ID, newTitle, newDesc) {
				return usagef("edit: empty title")
			}
			ui.OK(cmd.OutOrStdout(), fmt.Sprintf("updated #%d", it.Number))
			return nil
		},
	}
	cmd.Flags().StringVarP(&title, "title", "t", "", "new title")
	cmd.Flags().StringVarP(&desc, "description", "d", "", "new description (empty clears it)")
	return cmd
}

func newRemoveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <n>",
		Aliases: []string{"delete"},
		Short:   "Remove item n; later items are renumbered",
		Args:    exactArgs(1, "todo rm <n>"),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, done, err := a.openStore()
			if err != nil {
				return err
			}
			defer done()

			it, err := lookup(cmd, s, args[0])
			if err != nil {
				return err
			}
			s.Delete(it.ID)
			ui.OK(cmd.OutOrStdout(), fmt.Sprintf("removed #%d %s", it.Number, it.Title))
			return nil
		},
	}
}

func newClearCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove all completed items",
		Args:  exactArgs(0, "todo clear"),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, done, err := a.openStore()
			if err != nil {
				return err
			}
			defer done()

			n := s.ClearCompleted()
			ui.OK(cmd.OutOrStdout(), fmt.Sprintf("cleared %d completed", n))
			return nil
		},
	}
}

func newUICmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "ui",
		Short: "Interactive list (space toggle, a add, e edit, d delete, / search)",
		Args:  exactArgs(0, "todo ui"),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, done, err := a.openStore()
			if err != nil {
				return err
			}
			defer done()

			if err := tui.Run(s); err != nil {
				return fmt.Errorf("tui: %w", err)
			}
			return nil
		},
	}
}
