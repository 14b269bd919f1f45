// Command protein is a local client for logging meals and tracking macros.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"github.com/proteinpath/protein-path-go/internal/config"
	"github.com/proteinpath/protein-path-go/internal/estimate"
	"github.com/proteinpath/protein-path-go/internal/imagestore"
	"github.com/proteinpath/protein-path-go/internal/repository"
	"github.com/proteinpath/protein-path-go/internal/service"
	"github.com/proteinpath/protein-path-go/internal/session"
)

var (
	dbPath  string
	verbose bool
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	flag.StringVar(&dbPath, "db", cfg.LocalDBPath, "Local database file")
	flag.BoolVar(&verbose, "verbose", false, "Verbose logging")
	flag.Usage = printUsage
	flag.Parse()

	level := cfg.LogLevel
	if verbose {
		level = slog.LevelDebug
	} else if level < slog.LevelWarn {
		level = slog.LevelWarn
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	if flag.NArg() < 1 {
		printUsage()
		os.Exit(1)
	}

	ctx := context.Background()
	app, closeApp, err := newApp(ctx, cfg, os.Stdout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer closeApp()

	if err := app.run(ctx, flag.Arg(0), flag.Args()[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		closeApp()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Protein Path")
	fmt.Println()
	fmt.Println("Usage: protein [options] <command> [args]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  signup <email> <password>            Create an account and sign in")
	fmt.Println("  login <email> <password>             Sign in")
	fmt.Println("  logout                               Sign out")
	fmt.Println("  whoami                               Show the signed-in account")
	fmt.Println("  add [-type t] [-image f] <text>      Estimate and log a meal")
	fmt.Println("  list                                 List logged meals")
	fmt.Println("  delete <id>                          Delete a meal")
	fmt.Println("  goals [-calories n -protein n ...]   Show or set daily goals")
	fmt.Println("  summary [YYYY-MM-DD]                 Show a day's progress")
	fmt.Println()
	fmt.Println("Options:")
	flag.PrintDefaults()
}

// app is one CLI invocation's wiring.
type app struct {
	out     io.Writer
	session *session.Store
	meals   *service.MealService
	goals   *service.GoalStore
}

func newApp(ctx context.Context, cfg config.Config, out io.Writer) (*app, func(), error) {
	db, dialect, err := repository.Open(ctx, "sqlite", dbPath)
	if err != nil {
		return nil, nil, fmt.Errorf("opening local database: %w", err)
	}

	provider, err := estimate.NewProvider(cfg.Estimation)
	if err != nil {
		db.Close()
		return nil, nil, err
	}

	kv := repository.NewKVStore(db, dialect)
	auth := service.NewAuthService(repository.NewUserRepository(db), cfg.JWTSecret, cfg.JWTExpiry)

	store := session.NewStore(auth, kv)
	unsubscribe := store.Subscribe(func(e session.Event) {
		slog.Debug("session changed", "event", e.Kind)
	})
	store.Restore(ctx)

	a := &app{
		out:     out,
		session: store,
		meals: service.NewMealService(
			repository.NewMealRepository(db),
			store,
			estimate.NewClient(provider, cfg.Estimation.Timeout),
			imagestore.DataURIStore{},
			cfg.Timezone,
		),
		goals: service.NewGoalStore(kv),
	}

	var closed bool
	closeApp := func() {
		if closed {
			return
		}
		closed = true
		unsubscribe()
		store.Close()
		db.Close()
	}
	return a, closeApp, nil
}

func (a *app) run(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "signup":
		return a.cmdSignUp(ctx, args)
	case "login":
		return a.cmdLogin(ctx, args)
	case "logout":
		return a.cmdLogout(ctx)
	case "whoami":
		return a.cmdWhoAmI(ctx)
	case "add":
		return a.cmdAdd(ctx, args)
	case "list":
		return a.cmdList(ctx)
	case "delete":
		return a.cmdDelete(ctx, args)
	case "goals":
		return a.cmdGoals(ctx, args)
	case "summary":
		return a.cmdSummary(ctx, args)
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}
