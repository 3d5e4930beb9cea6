package ctl

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/dmitrijs2005/filestash/internal/bot/models"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// isTerminal is a test seam for term.IsTerminal.
var isTerminal = term.IsTerminal

var errAborted = errors.New("aborted")

func newBackupCmd(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "backup",
		Short: "Write a snapshot of the store and prune old ones",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			info, err := st.backups.Backup(cmd.Context())
			if info.Path != "" {
				fmt.Fprintf(out(cmd), "Created backup: %s (%.1f KB)\n", info.Path, float64(info.Size)/1024)
			}
			return err
		},
	}
}

func newRestoreCmd(st *state) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "restore [backup-file]",
		Short: "Restore a snapshot; the latest backup when no file is given",
		Long: `Restore replaces every user found in the snapshot. The current store
contents are saved to a before_restore file in the backup directory first.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			}
			if path == "" {
				latest, err := st.backups.Latest()
				if err != nil {
					return err
				}
				path = latest.Path
			}

			if !yes {
				if err := confirm(cmd, fmt.Sprintf("Restore %s into %s?", path, st.store.Backend())); err != nil {
					return err
				}
			}

			n, err := st.backups.Restore(cmd.Context(), path)
			if err != nil {
				return err
			}
			fmt.Fprintf(out(cmd), "Restored %d user(s) from %s\n", n, path)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}

// confirm asks on interactive terminals and refuses otherwise, so scripts
// must pass --yes.
func confirm(cmd *cobra.Command, question string) error {
	if !isTerminal(int(os.Stdin.Fd())) {
		return fmt.Errorf("%w: not a terminal, use --yes", errAborted)
	}
	fmt.Fprintf(out(cmd), "%s [y/N]\n> ", question)
	answer, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return nil
	}
	return errAborted
}

func newListCmd(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List backups, oldest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			list, err := st.backups.List()
			if err != nil {
				return err
			}
			if len(list) == 0 {
				fmt.Fprintln(out(cmd), "No backup files found")
				return nil
			}
			fmt.Fprintf(out(cmd), "Found %d backup(s):\n", len(list))
			for _, b := range list {
				fmt.Fprintf(out(cmd), "%s (%.1f KB, %s)\n", b.Path, float64(b.Size)/1024, b.ModTime.Format("2006-01-02 15:04:05"))
			}
			return nil
		},
	}
}

func newExportCmd(st *state) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the store as JSON to stdout or a file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if file == "" || file == "-" {
				return st.backups.Export(cmd.Context(), out(cmd))
			}
			f, err := os.Create(file)
			if err != nil {
				return err
			}
			if err := st.backups.Export(cmd.Context(), f); err != nil {
				f.Close()
				return err
			}
			return f.Close()
		},
	}
	cmd.Flags().StringVarP(&file, "out", "o", "", "output file (default stdout)")
	return cmd
}

func newImportCmd(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.json>",
		Short: "Load a JSON export or a legacy JSON database into the store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			n, err := st.backups.Import(cmd.Context(), f)
			if err != nil {
				return err
			}
			fmt.Fprintf(out(cmd), "Imported %d user(s) into %s\n", n, st.store.Backend())
			return nil
		},
	}
}

func newStatsCmd(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show user, category and file counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			users, err := st.store.Snapshotter().ExportUsers(cmd.Context())
			if err != nil {
				return err
			}

			var cats, files int
			kinds := map[models.FileKind]int{}
			for _, u := range users {
				cats += len(u.Categories)
				for _, c := range u.Categories {
					files += len(c.Files)
					for _, f := range c.Files {
						kinds[f.Kind]++
					}
				}
			}

			w := out(cmd)
			fmt.Fprintf(w, "Backend:    %s\n", st.store.Backend())
			fmt.Fprintf(w, "Users:      %d\n", len(users))
			fmt.Fprintf(w, "Categories: %d\n", cats)
			fmt.Fprintf(w, "Files:      %d\n", files)

			names := make([]string, 0, len(kinds))
			for k := range kinds {
				names = append(names, string(k))
			}
			sort.Strings(names)
			for _, k := range names {
				fmt.Fprintf(w, "  %-10s %d\n", k, kinds[models.FileKind(k)])
			}
			return nil
		},
	}
}
