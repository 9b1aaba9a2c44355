package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/term"

	"media-library/internal/cache"
	"media-library/internal/database"
	"media-library/internal/decision"
	"media-library/internal/transcoder"
)

const (
	// Default timeout for database operations
	defaultTimeout = 30 * time.Second
	// Default database directory path
	defaultDatabaseDir = "/database"
	defaultCacheDir    = "/cache"

	minPasswordLength = 6
)

// env holds what every command needs.
type env struct {
	db       *database.Database
	cacheDir string
	ffprobe  string
	out      io.Writer
	// readPassword prompts for a secret; replaced in tests.
	readPassword func(prompt string) ([]byte, error)
}

type command struct {
	usage string
	run   func(ctx context.Context, e *env, args []string) error
}

var commands = map[string]command{
	"adduser":    {"adduser [-admin] <username>   Create a user (prompts for a password)", addUser},
	"passwd":     {"passwd <username>             Set a user's password, ending their sessions", setPassword},
	"addlibrary": {"addlibrary <name> <root>      Register a library root directory", addLibrary},
	"grant":      {"grant <username> <library>    Allow a user to play a library", grant},
	"revoke":     {"revoke <username> <library>   Remove a user's access to a library", revoke},
	"add":        {"add <library> <file>...       Probe files and add them to the catalog", addMedia},
	"sweep":      {"sweep                         Remove partial cache files", sweep},
	"status":     {"status                        Show catalog and cache state", showStatus},
}

var commandOrder = []string{"adduser", "passwd", "addlibrary", "grant", "revoke", "add", "sweep", "status"}

var errUsage = errors.New("invalid arguments")

func main() {
	if len(os.Args) < 2 {
		printUsage(os.Stdout)
		os.Exit(1)
	}

	name := os.Args[1]
	cmd, ok := commands[name]
	if !ok {
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", sanitizeCommand(name))
		printUsage(os.Stderr)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Fprintln(os.Stderr, "\nInterrupted, shutting down...")
		cancel()
	}()

	databaseDir := getEnv("DATABASE_DIR", defaultDatabaseDir)
	db, err := database.New(ctx, filepath.Join(databaseDir, "media.db"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to connect to database: %v\n", err)
		fmt.Fprintf(os.Stderr, "Make sure DATABASE_DIR is set correctly (current: %s)\n", databaseDir)
		os.Exit(1)
	}

	e := &env{
		db:           db,
		cacheDir:     filepath.Join(getEnv("CACHE_DIR", defaultCacheDir), "transcoded"),
		ffprobe:      getEnv("FFPROBE_PATH", "ffprobe"),
		out:          os.Stdout,
		readPassword: promptPassword,
	}

	err = cmd.run(ctx, e, os.Args[2:])
	if closeErr := db.Close(); closeErr != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to close database: %v\n", closeErr)
	}
	if err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprintf(os.Stderr, "Usage: mlctl %s\n", cmd.usage)
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// sanitizeCommand keeps only [a-zA-Z0-9_-] of a command for display.
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

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Media Library Administration")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Usage: mlctl <command> [arguments]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Commands:")
	for _, name := range commandOrder {
		fmt.Fprintf(w, "  %s\n", commands[name].usage)
	}
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Environment:")
	fmt.Fprintf(w, "  DATABASE_DIR - Path to database directory (default: %s)\n", defaultDatabaseDir)
	fmt.Fprintf(w, "  CACHE_DIR    - Path to cache directory (default: %s)\n", defaultCacheDir)
	fmt.Fprintln(w, "  FFPROBE_PATH - ffprobe binary (default: ffprobe)")
}

func promptPassword(prompt string) ([]byte, error) {
	fmt.Print(prompt)
	pw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	return pw, err
}

// newPassword asks twice and checks the answers match.
func (e *env) newPassword() (string, error) {
	password, err := e.readPassword("New Password: ")
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}
	confirm, err := e.readPassword("Confirm Password: ")
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}
	if !bytes.Equal(password, confirm) {
		return "", errors.New("passwords do not match")
	}
	if len(password) < minPasswordLength {
		return "", fmt.Errorf("password must be at least %d characters", minPasswordLength)
	}
	return string(password), nil
}

func addUser(ctx context.Context, e *env, args []string) error {
	fs := flag.NewFlagSet("adduser", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	admin := fs.Bool("admin", false, "grant admin rights")
	if err := fs.Parse(args); err != nil || fs.NArg() != 1 {
		return errUsage
	}

	password, err := e.newPassword()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	user, err := e.db.CreateUser(ctx, fs.Arg(0), password, *admin)
	if err != nil {
		return err
	}
	role := "user"
	if user.IsAdmin {
		role = "admin"
	}
	fmt.Fprintf(e.out, "Created %s %s (id %d).\n", role, user.Username, user.ID)
	return nil
}

func setPassword(ctx context.Context, e *env, args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	password, err := e.newPassword()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if err := e.db.UpdatePassword(ctx, args[0], password); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return fmt.Errorf("no user named %q", args[0])
		}
		return err
	}
	fmt.Fprintln(e.out, "Password updated successfully.")
	fmt.Fprintln(e.out, "All existing sessions for this user have been invalidated.")
	return nil
}

func addLibrary(ctx context.Context, e *env, args []string) error {
	if len(args) != 2 {
		return errUsage
	}
	root, err := filepath.Abs(args[1])
	if err != nil {
		return err
	}
	info, err := os.Stat(root)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", root)
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	lib, err := e.db.CreateLibrary(ctx, args[0], root)
	if err != nil {
		return err
	}
	fmt.Fprintf(e.out, "Created library %s (id %d) at %s.\n", lib.Name, lib.ID, lib.RootPath)
	return nil
}

// userAndLibrary resolves the two names grant and revoke take.
func userAndLibrary(ctx context.Context, e *env, args []string) (*database.User, *database.Library, error) {
	if len(args) != 2 {
		return nil, nil, errUsage
	}
	user, err := e.db.GetUserByName(ctx, args[0])
	if err != nil {
		return nil, nil, fmt.Errorf("user %q: %w", args[0], err)
	}
	lib, err := e.db.GetLibraryByName(ctx, args[1])
	if err != nil {
		return nil, nil, fmt.Errorf("library %q: %w", args[1], err)
	}
	return user, lib, nil
}

func grant(ctx context.Context, e *env, args []string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	user, lib, err := userAndLibrary(ctx, e, args)
	if err != nil {
		return err
	}
	if err := e.db.GrantLibraryAccess(ctx, user.ID, lib.ID); err != nil {
		return err
	}
	fmt.Fprintf(e.out, "%s can now play library %s.\n", user.Username, lib.Name)
	return nil
}

func revoke(ctx context.Context, e *env, args []string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	user, lib, err := userAndLibrary(ctx, e, args)
	if err != nil {
		return err
	}
	if err := e.db.RevokeLibraryAccess(ctx, user.ID, lib.ID); err != nil {
		return err
	}
	fmt.Fprintf(e.out, "%s can no longer play library %s.\n", user.Username, lib.Name)
	return nil
}

// within reports whether path lies under root.
func within(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func addMedia(ctx context.Context, e *env, args []string) error {
	if len(args) < 2 {
		return errUsage
	}

	lib, err := e.db.GetLibraryByName(ctx, args[0])
	if err != nil {
		return fmt.Errorf("library %q: %w", args[0], err)
	}

	prober := transcoder.NewProber(e.ffprobe)
	failed := 0
	for _, arg := range args[1:] {
		path, err := filepath.Abs(arg)
		if err != nil || !within(lib.RootPath, path) {
			fmt.Fprintf(e.out, "skip  %s: not under %s\n", arg, lib.RootPath)
			failed++
			continue
		}

		probeCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
		res, err := prober.Probe(probeCtx, path)
		cancel()
		if err != nil {
			fmt.Fprintf(e.out, "fail  %s: %v\n", path, err)
			failed++
			continue
		}

		d := res.Descriptor(0, lib.ID, path)
		id, err := e.db.UpsertMedia(ctx, d)
		if err != nil {
			return err
		}
		dec := decision.Decide(d)
		fmt.Fprintf(e.out, "%-5d %s: %s (%s)\n", id, path, dec.Action, dec.Reason)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d files not added", failed, len(args)-1)
	}
	return nil
}

func sweep(ctx context.Context, e *env, args []string) error {
	if len(args) != 0 {
		return errUsage
	}
	mgr, err := cache.New(e.cacheDir)
	if err != nil {
		return err
	}
	n, err := mgr.SweepPartials()
	if err != nil {
		return err
	}
	if err := e.db.SetLastCacheSweep(ctx, time.Now()); err != nil {
		return err
	}
	fmt.Fprintf(e.out, "Removed %d partial files from %s.\n", n, e.cacheDir)
	return nil
}

func showStatus(ctx context.Context, e *env, args []string) error {
	if len(args) != 0 {
		return errUsage
	}
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if e.db.HasUsers(ctx) {
		fmt.Fprintln(e.out, "Users:      configured")
	} else {
		fmt.Fprintln(e.out, "Users:      none (run mlctl adduser -admin <name>)")
	}

	libs, err := e.db.ListLibraries(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(e.out, "Libraries:  %d\n", len(libs))
	for _, lib := range libs {
		fmt.Fprintf(e.out, "  %-12s %s\n", lib.Name, lib.RootPath)
	}

	count, err := e.db.CountMedia(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(e.out, "Media:      %d\n", count)

	last, err := e.db.GetLastCacheSweep(ctx)
	if err != nil {
		return err
	}
	if last.IsZero() {
		fmt.Fprintln(e.out, "Last sweep: never")
	} else {
		fmt.Fprintf(e.out, "Last sweep: %s\n", humanize.Time(last))
	}

	if _, err := os.Stat(e.cacheDir); err == nil {
		mgr, err := cache.New(e.cacheDir)
		if err != nil {
			return err
		}
		files, size, err := mgr.Stats()
		if err != nil {
			return err
		}
		fmt.Fprintf(e.out, "Cache:      %d files, %s\n", files, humanize.IBytes(uint64(size)))
	} else {
		fmt.Fprintln(e.out, "Cache:      not created")
	}
	return nil
}
