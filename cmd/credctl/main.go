package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"golang.org/x/term"

	"clip-stacker/internal/credentials"
	"clip-stacker/internal/database"
)

const (
	// Default timeout for database operations
	defaultTimeout = 30 * time.Second
	// Default data directory, matching the server's DATA_DIR
	defaultDataDir = "/data/db"
)

// cli carries the process streams so commands can be tested.
type cli struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
	// readSecret reads a payload without echo. Nil when stdin is not a
	// terminal.
	readSecret func() ([]byte, error)
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Fprintln(os.Stderr, "\nInterrupted, shutting down...")
		cancel()
	}()

	c := &cli{stdin: os.Stdin, stdout: os.Stdout, stderr: os.Stderr}
	if term.IsTerminal(int(os.Stdin.Fd())) {
		c.readSecret = func() ([]byte, error) {
			fmt.Fprint(os.Stderr, "Credential: ")
			defer fmt.Fprintln(os.Stderr)
			return term.ReadPassword(int(os.Stdin.Fd()))
		}
	}

	os.Exit(c.run(ctx, os.Args[1:], databasePath()))
}

func databasePath() string {
	dir := os.Getenv("DATA_DIR")
	if dir == "" {
		dir = defaultDataDir
	}
	return filepath.Join(dir, "credentials.db")
}

func (c *cli) run(ctx context.Context, args []string, dbPath string) int {
	if len(args) < 1 {
		c.printUsage()
		return 1
	}

	command := args[0]
	switch command {
	case "list", "add", "revoke":
	default:
		fmt.Fprintf(c.stderr, "Unknown command: %s\n", sanitizeCommand(command))
		c.printUsage()
		return 1
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	db, err := database.New(ctx, dbPath)
	if err != nil {
		fmt.Fprintf(c.stderr, "Error: Failed to open credential database: %v\n", err)
		fmt.Fprintf(c.stderr, "Make sure DATA_DIR is set correctly (current: %s)\n", filepath.Dir(dbPath))
		return 1
	}
	defer func() {
		if err := db.Close(); err != nil {
			fmt.Fprintf(c.stderr, "Warning: failed to close database: %v\n", err)
		}
	}()
	repo := credentials.NewSQLiteRepository(db)

	var ok bool
	switch command {
	case "list":
		ok = c.list(ctx, repo)
	case "add":
		ok = c.add(ctx, repo, args[1:])
	case "revoke":
		ok = c.revoke(ctx, repo, args[1:])
	}
	if !ok {
		return 1
	}
	return 0
}

// sanitizeCommand replaces anything outside [a-zA-Z0-9_-] with '_'.
func sanitizeCommand(cmd string) string {
	var b strings.Builder
	b.Grow(len(cmd))
	for _, r := range cmd {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	return b.String()
}

func (c *cli) printUsage() {
	fmt.Fprintln(c.stdout, "clip-stacker credential management")
	fmt.Fprintln(c.stdout, "")
	fmt.Fprintln(c.stdout, "Usage: credctl <command> [args]")
	fmt.Fprintln(c.stdout, "")
	fmt.Fprintln(c.stdout, "Commands:")
	fmt.Fprintln(c.stdout, "  list                   - List stored credentials")
	fmt.Fprintln(c.stdout, "  add <class> [file|-]   - Store a credential read from file, stdin or a prompt")
	fmt.Fprintln(c.stdout, "  revoke <id>            - Revoke a credential")
	fmt.Fprintln(c.stdout, "")
	fmt.Fprintln(c.stdout, "Environment:")
	fmt.Fprintf(c.stdout, "  DATA_DIR - Path to the data directory (default: %s)\n", defaultDataDir)
	fmt.Fprintln(c.stdout, "")
	fmt.Fprintln(c.stdout, "The server loads credentials at startup; restart it to pick up changes.")
}

func (c *cli) list(ctx context.Context, repo *credentials.SQLiteRepository) bool {
	records, err := repo.ListAll(ctx)
	if err != nil {
		fmt.Fprintf(c.stderr, "Error: %v\n", err)
		return false
	}
	if len(records) == 0 {
		fmt.Fprintln(c.stdout, "No credentials stored.")
		return true
	}

	tw := tabwriter.NewWriter(c.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCLASS\tSTATE")
	for _, r := range records {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", r.ID, r.Class, r.State)
	}
	return tw.Flush() == nil
}

func (c *cli) add(ctx context.Context, repo *credentials.SQLiteRepository, args []string) bool {
	if len(args) < 1 || len(args) > 2 {
		fmt.Fprintln(c.stderr, "Usage: credctl add <class> [file|-]")
		return false
	}
	class := args[0]

	payload, err := c.readPayload(args[1:])
	if err != nil {
		fmt.Fprintf(c.stderr, "Error reading credential: %v\n", err)
		return false
	}
	payload = bytes.TrimSpace(payload)
	if len(payload) == 0 {
		fmt.Fprintln(c.stderr, "Error: Credential is empty")
		return false
	}

	record, added, err := repo.Add(ctx, class, payload)
	if err != nil {
		fmt.Fprintf(c.stderr, "Error: Failed to store credential: %v\n", err)
		return false
	}
	if !added {
		fmt.Fprintf(c.stdout, "Credential already stored as %s.\n", record.ID)
		return true
	}
	fmt.Fprintf(c.stdout, "Stored %s credential %s.\n", record.Class, record.ID)
	return true
}

func (c *cli) readPayload(args []string) ([]byte, error) {
	switch {
	case len(args) == 1 && args[0] != "-":
		return os.ReadFile(args[0])
	case len(args) == 0 && c.readSecret != nil:
		return c.readSecret()
	default:
		return io.ReadAll(c.stdin)
	}
}

func (c *cli) revoke(ctx context.Context, repo *credentials.SQLiteRepository, args []string) bool {
	if len(args) != 1 {
		fmt.Fprintln(c.stderr, "Usage: credctl revoke <id>")
		return false
	}
	if err := repo.RevokeStrict(ctx, args[0]); err != nil {
		fmt.Fprintf(c.stderr, "Error: %v\n", err)
		return false
	}
	fmt.Fprintf(c.stdout, "Revoked %s.\n", args[0])
	return true
}
