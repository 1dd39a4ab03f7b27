package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v2"
	"golang.org/x/term"

	"notes/internal/config"
	"notes/internal/logging"
	"notes/internal/notes"
	"notes/internal/storage/fs"
)

const adminLockTimeout = 5 * time.Second

func main() {
	closeLog := logging.Setup(os.Stderr, logging.FromEnv())
	defer closeLog()

	if err := newApp().Run(os.Args); err != nil {
		slog.Error("notes-admin failed", "err", err)
		fmt.Fprintln(os.Stderr, err)
		closeLog()
		os.Exit(1)
	}
}

func newApp() *cli.App {
	cfg := config.Load()
	return &cli.App{
		Name:  "notes-admin",
		Usage: "maintenance tasks for the notes database",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "db",
				Usage: "path to the SQLite database",
				Value: cfg.DBPath,
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "migrate",
				Usage:  "create or upgrade the notes table",
				Action: runMigrate,
			},
			{
				Name:  "empty-trash",
				Usage: "permanently delete every note in trash",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "yes", Aliases: []string{"y"}, Usage: "skip the confirmation prompt"},
				},
				Action: runEmptyTrash,
			},
			{
				Name:      "export",
				Usage:     "write all notes, trash included, as JSON",
				ArgsUsage: "<file>",
				Action:    runExport,
			},
			{
				Name:  "init-env",
				Usage: "write a .env file with a random secret",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "path", Value: ".env", Usage: "env file to create"},
					&cli.BoolFlag{Name: "force", Usage: "overwrite an existing file"},
				},
				Action: runInitEnv,
			},
		},
	}
}

// openStore opens the database with the schema ensured and takes the admin
// lock so two maintenance commands never overlap.
func openStore(c *cli.Context) (*notes.Store, func(), error) {
	path := strings.TrimSpace(c.String("db"))
	lock, err := fs.AcquireFileLock(path+".admin.lock", adminLockTimeout)
	if err != nil {
		return nil, nil, fmt.Errorf("acquire admin lock: %w", err)
	}
	slog.Debug("admin lock acquired", "path", lock.Path())
	store, err := notes.Open(path)
	if err != nil {
		_ = lock.Release()
		return nil, nil, err
	}
	if err := store.Init(c.Context); err != nil {
		_ = store.Close()
		_ = lock.Release()
		return nil, nil, fmt.Errorf("init schema: %w", err)
	}
	return store, func() {
		_ = store.Close()
		_ = lock.Release()
	}, nil
}

func runMigrate(c *cli.Context) error {
	_, done, err := openStore(c)
	if err != nil {
		return err
	}
	defer done()
	fmt.Fprintf(c.App.Writer, "schema up to date: %s\n", c.String("db"))
	return nil
}

func runEmptyTrash(c *cli.Context) error {
	store, done, err := openStore(c)
	if err != nil {
		return err
	}
	defer done()

	repo := store.Repository()
	counts, err := repo.Counts(c.Context)
	if err != nil {
		return err
	}
	if counts.Trash == 0 {
		fmt.Fprintln(c.App.Writer, "trash is already empty")
		return nil
	}
	if !c.Bool("yes") {
		ok, err := confirm(c.App.Reader, c.App.Writer, fmt.Sprintf("Permanently delete %d note(s)? [y/N]: ", counts.Trash))
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(c.App.Writer, "no changes made")
			return nil
		}
	}

	removed, err := repo.EmptyTrash(c.Context)
	if err != nil {
		return err
	}
	slog.Info("trash emptied", "removed", removed)
	fmt.Fprintf(c.App.Writer, "deleted %d note(s)\n", removed)
	return nil
}

func runExport(c *cli.Context) error {
	if c.NArg() != 1 {
		return errors.New("usage: notes-admin export <file>")
	}
	out := c.Args().First()

	store, done, err := openStore(c)
	if err != nil {
		return err
	}
	defer done()

	all, err := store.Repository().All(c.Context)
	if err != nil {
		return err
	}
	if err := writeExport(out, all); err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "exported %d note(s) to %s\n", len(all), out)
	return nil
}

func writeExport(path string, all []notes.Note) error {
	records := make([]notes.NoteJSON, 0, len(all))
	for _, n := range all {
		records = append(records, n.JSON())
	}
	return fs.WriteAtomic(path, 0o644, func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	})
}

func runInitEnv(c *cli.Context) error {
	path := c.String("path")
	err := config.WriteEnvFile(path, c.String("db"), c.Bool("force"))
	if errors.Is(err, config.ErrEnvFileExists) {
		return fmt.Errorf("%s already exists, use --force to replace it", path)
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "wrote %s\n", path)
	return nil
}

var errNotInteractive = errors.New("refusing to delete without confirmation, pass --yes")

func confirm(in io.Reader, out io.Writer, prompt string) (bool, error) {
	if f, ok := in.(*os.File); !ok || !term.IsTerminal(int(f.Fd())) {
		return false, errNotInteractive
	}
	fmt.Fprint(out, prompt)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}
