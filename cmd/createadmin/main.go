// Command createadmin creates an ADMIN account. Registration over HTTP only
// ever produces regular users, so the first administrator is made here.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/sebuszqo/ExpenseTracker/internal/clock"
	"github.com/sebuszqo/ExpenseTracker/internal/config"
	database "github.com/sebuszqo/ExpenseTracker/internal/db"
	"github.com/sebuszqo/ExpenseTracker/internal/finance/application"
	"github.com/sebuszqo/ExpenseTracker/internal/finance/infrastructure"
	"github.com/sebuszqo/ExpenseTracker/internal/logging"
	"github.com/sebuszqo/ExpenseTracker/internal/user"
)

var errPasswordMismatch = errors.New("passwords do not match")

// passwordReader reads a secret from the operator. The terminal variant does
// not echo input.
type passwordReader func(prompt string) (string, error)

func terminalPassword(out io.Writer) passwordReader {
	return func(prompt string) (string, error) {
		fmt.Fprint(out, prompt)
		password, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Fprintln(out)
		if err != nil {
			return "", fmt.Errorf("could not read password: %w", err)
		}
		return string(password), nil
	}
}

func linePassword(in *bufio.Reader, out io.Writer) passwordReader {
	return func(prompt string) (string, error) {
		fmt.Fprint(out, prompt)
		line, err := in.ReadString('\n')
		if err != nil && !(errors.Is(err, io.EOF) && line != "") {
			return "", fmt.Errorf("could not read password: %w", err)
		}
		return strings.TrimRight(line, "\r\n"), nil
	}
}

func readInput(username, displayName string, readPassword passwordReader) (user.CreateUserInput, error) {
	password, err := readPassword("Password: ")
	if err != nil {
		return user.CreateUserInput{}, err
	}
	confirmation, err := readPassword("Confirm password: ")
	if err != nil {
		return user.CreateUserInput{}, err
	}
	if password != confirmation {
		return user.CreateUserInput{}, errPasswordMismatch
	}
	return user.CreateUserInput{Username: username, DisplayName: displayName, Password: password}, nil
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout io.Writer) error {
	flags := flag.NewFlagSet("createadmin", flag.ContinueOnError)
	flags.SetOutput(stdout)
	username := flags.String("username", "", "username of the new administrator")
	displayName := flags.String("display-name", "", "display name (defaults to the username)")
	envFile := flags.String("env", "", "optional .env file to load configuration from")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if strings.TrimSpace(*username) == "" {
		return errors.New("-username is required")
	}

	var envFiles []string
	if *envFile != "" {
		envFiles = append(envFiles, *envFile)
	}
	cfg, err := config.Load(envFiles...)
	if err != nil {
		return err
	}
	logger := logging.New(cfg.Log, os.Stderr)

	readPassword := linePassword(bufio.NewReader(stdin), stdout)
	if f, ok := stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		readPassword = terminalPassword(stdout)
	}
	input, err := readInput(*username, *displayName, readPassword)
	if err != nil {
		return err
	}

	dbService, err := database.NewDBService(ctx, cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("could not initialize database: %w", err)
	}
	defer dbService.Close()

	return createAdmin(ctx, cfg, dbService, input, logger, stdout)
}

func createAdmin(ctx context.Context, cfg *config.Config, db *database.DBService, input user.CreateUserInput, logger *slog.Logger, stdout io.Writer) error {
	clk := clock.System()
	categoryService := application.NewCategoryService(infrastructure.NewStore(db), cfg.Categories.Defaults, clk, logger)
	userService := user.NewUserService(user.NewUserRepository(db.Conn()), db, user.NewBcryptHasher(cfg.Security.BcryptCost), categoryService, clk, logger)

	admin, err := userService.CreateAdmin(ctx, input)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Administrator %s created with id %d\n", admin.Username, admin.ID)
	return nil
}

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdin, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "createadmin:", err)
		os.Exit(1)
	}
}
