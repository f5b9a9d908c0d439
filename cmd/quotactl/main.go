package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/google/uuid"

	"hoctap/internal/config"
	"hoctap/internal/database"
	"hoctap/internal/logger"
	"hoctap/internal/models"
	"hoctap/internal/repository"
	"hoctap/internal/service"
)

var errUsage = errors.New("usage")

// app holds what the subcommands operate on
type app struct {
	out                io.Writer
	users              *repository.UserRepository
	usage              *service.UsageService
	tokens             *service.TokenService
	unlocks            *service.UnlockService
	otps               *service.OTPService
	defaultUnlockQuota int
}

func main() {
	if len(os.Args) < 2 {
		printUsage(os.Stdout)
		os.Exit(1)
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}
	if err := logger.Configure(logger.Options{Level: cfg.LogLevel, File: cfg.LogFile}); err != nil {
		logger.Fatalf("Failed to configure logger: %v", err)
	}
	defer logger.Sync()

	loc, err := cfg.Location()
	if err != nil {
		logger.Fatalf("Invalid configuration: %v", err)
	}

	ctx := context.Background()

	// Initialize database
	db, err := database.InitializeWithConfig(cfg)
	if err != nil {
		logger.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	// Run migrations to ensure schema is up to date
	if err := db.RunMigrations(ctx); err != nil {
		logger.Fatalf("Failed to run migrations: %v", err)
	}

	users := repository.NewUserRepository(db)
	a := &app{
		out:                os.Stdout,
		users:              users,
		usage:              service.NewUsageService(repository.NewUsageRepository(db), users, cfg.DailyExerciseLimit, loc),
		tokens:             service.NewTokenService(users),
		unlocks:            service.NewUnlockService(users, nil),
		otps:               service.NewOTPService(repository.NewOTPRepository(db), nil, nil, service.OTPConfig{}),
		defaultUnlockQuota: cfg.DefaultUnlockQuota,
	}

	if err := a.run(ctx, os.Args[1:]); err != nil {
		if errors.Is(err, errUsage) {
			printUsage(os.Stdout)
		} else {
			logger.Errorf("%s failed: %v", os.Args[1], err)
		}
		os.Exit(1)
	}
}

func (a *app) run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errUsage
	}

	fs := flag.NewFlagSet(args[0], flag.ContinueOnError)
	fs.SetOutput(a.out)
	userID := fs.String("user", "", "User ID")
	amount := fs.Int("amount", 0, "Token amount")
	email := fs.String("email", "", "Email address for the new user")
	role := fs.String("role", models.RoleStudent, "Role for the new user")
	plan := fs.String("plan", models.PlanFree, "Plan for the new user")
	retention := fs.Duration("retention", 24*time.Hour, "How long expired codes are kept")
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}

	needUser := func() error {
		if *userID == "" {
			return fmt.Errorf("%s: -user is required", args[0])
		}
		return nil
	}

	switch args[0] {
	case "reset-tokens":
		n, err := a.tokens.ResetAll(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "Reset token usage for %d users\n", n)

	case "reset-unlocks":
		n, err := a.unlocks.ResetAllUsage(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "Reset unlock usage for %d users\n", n)

	case "set-quota", "add-tokens":
		if err := needUser(); err != nil {
			return err
		}
		var (
			info *service.TokenInfo
			err  error
		)
		if args[0] == "set-quota" {
			info, err = a.tokens.SetQuota(ctx, *userID, *amount)
		} else {
			info, err = a.tokens.AddTokens(ctx, *userID, *amount)
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "%s: quota=%d used=%d remaining=%d plan=%s\n", *userID, info.Quota, info.Used, info.Remaining, info.Plan)

	case "usage":
		if err := needUser(); err != nil {
			return err
		}
		status, err := a.usage.Check(ctx, *userID)
		if err != nil {
			return err
		}
		tokens, err := a.tokens.GetInfo(ctx, *userID)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "%s on %s\n", *userID, a.usage.Today())
		fmt.Fprintf(a.out, "  exercises: %d/%d (remaining %d)\n", status.UsedToday, status.Limit, status.Remaining)
		fmt.Fprintf(a.out, "  tokens:    %d/%d (remaining %d, plan %s)\n", tokens.Used, tokens.Quota, tokens.Remaining, tokens.Plan)

	case "create-user":
		quota, ok := service.PlanQuotas[*plan]
		if !ok {
			return service.ErrInvalidPlan
		}
		if *email == "" {
			return errors.New("create-user: -email is required")
		}
		user := &models.User{
			ID:          uuid.NewString(),
			Email:       strings.ToLower(strings.TrimSpace(*email)),
			Role:        *role,
			Plan:        *plan,
			TokenQuota:  quota,
			UnlockQuota: a.defaultUnlockQuota,
		}
		if err := a.users.CreateUser(ctx, user); err != nil {
			return err
		}
		fmt.Fprintf(a.out, "Created user %s (%s)\n", user.ID, user.Email)

	case "purge-otps":
		n, err := a.otps.PurgeExpired(ctx, *retention)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "Purged %d expired codes\n", n)

	default:
		return errUsage
	}
	return nil
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "hoctap quota administration tool")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  quotactl reset-tokens                         Zero token usage for every user")
	fmt.Fprintln(w, "  quotactl reset-unlocks                        Zero unlock usage for every user")
	fmt.Fprintln(w, "  quotactl set-quota -user <id> -amount <n>     Set a user's daily token quota")
	fmt.Fprintln(w, "  quotactl add-tokens -user <id> -amount <n>    Raise a user's daily token quota")
	fmt.Fprintln(w, "  quotactl usage -user <id>                     Show today's counters")
	fmt.Fprintln(w, "  quotactl create-user -email <addr> [-role r] [-plan p]")
	fmt.Fprintln(w, "  quotactl purge-otps [-retention 24h]          Delete long-expired OTP codes")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Environment Variables:")
	fmt.Fprintln(w, "  DB_TYPE          Database type: sqlite, postgres, or mysql (default: sqlite)")
	fmt.Fprintln(w, "  DB_PATH          SQLite database path (default: ./hoctap.db)")
	fmt.Fprintln(w, "  DATABASE_URL     PostgreSQL or MySQL connection URL")
	fmt.Fprintln(w, "  QUOTA_TIMEZONE   Zone where the quota day starts (default: Asia/Ho_Chi_Minh)")
}
