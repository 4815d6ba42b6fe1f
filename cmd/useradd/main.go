// Command useradd provisions and maintains ledger accounts.
//
//	useradd -name "Ana" -email ana@example.com -password secreto -company 1
//	useradd -email ana@example.com -temp
//	useradd -set-password -id 3 -password nuevo123
//	useradd -disable -id 3
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"gastos/internal/config"
	"gastos/internal/logging"
	"gastos/pkg/ledger"
)

type options struct {
	name        string
	email       string
	password    string
	role        string
	company     int64
	temporary   bool
	userID      int64
	setPassword bool
	disable     bool
	enable      bool
}

func main() {
	config.LoadDotEnv()
	if err := run(os.Args[1:], config.Load(), os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "useradd:", err)
		os.Exit(1)
	}
}

func parseFlags(args []string) (options, error) {
	var opts options
	fs := flag.NewFlagSet("useradd", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&opts.name, "name", "", "Display name")
	fs.StringVar(&opts.email, "email", "", "Login email")
	fs.StringVar(&opts.password, "password", "", "Password (at least 6 characters)")
	fs.StringVar(&opts.role, "role", "usuario", "Role label")
	fs.Int64Var(&opts.company, "company", 0, "Company id the user belongs to (optional)")
	fs.BoolVar(&opts.temporary, "temp", false, "Provision with the bootstrap password instead of -password")
	fs.Int64Var(&opts.userID, "id", 0, "User id for -set-password, -disable and -enable")
	fs.BoolVar(&opts.setPassword, "set-password", false, "Replace the password of user -id")
	fs.BoolVar(&opts.disable, "disable", false, "Block login for user -id")
	fs.BoolVar(&opts.enable, "enable", false, "Allow login for user -id")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}

	modes := 0
	for _, set := range []bool{opts.setPassword, opts.disable, opts.enable} {
		if set {
			modes++
		}
	}
	if modes > 1 {
		return options{}, errors.New("-set-password, -disable and -enable are mutually exclusive")
	}
	if modes == 1 && opts.userID <= 0 {
		return options{}, errors.New("-id is required")
	}
	if modes == 0 && opts.email == "" {
		return options{}, errors.New("-email is required")
	}
	if modes == 0 && opts.name == "" {
		opts.name = opts.email
	}
	return opts, nil
}

func run(args []string, cfg *config.Config, out io.Writer) error {
	opts, err := parseFlags(args)
	if err != nil {
		return err
	}

	logger, closer, err := logging.NewLogger(logging.Options{
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
		Console: os.Stderr,
	})
	if err != nil {
		return err
	}
	defer closer.Close()

	core, err := ledger.Open(cfg.LedgerOptions(logger))
	if err != nil {
		return fmt.Errorf("open ledger: %w", err)
	}
	defer core.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	switch {
	case opts.setPassword:
		if err := core.SetPassword(ctx, opts.userID, opts.password); err != nil {
			return err
		}
		fmt.Fprintf(out, "password updated for user %d\n", opts.userID)
	case opts.disable, opts.enable:
		if err := core.SetUserActive(ctx, opts.userID, opts.enable); err != nil {
			return err
		}
		state := "disabled"
		if opts.enable {
			state = "enabled"
		}
		fmt.Fprintf(out, "user %d %s\n", opts.userID, state)
	default:
		in := ledger.NewUser{
			Name:      opts.name,
			Email:     opts.email,
			Password:  opts.password,
			Role:      opts.role,
			Temporary: opts.temporary,
		}
		if opts.company > 0 {
			in.CompanyID = &opts.company
		}
		user, err := core.CreateUser(ctx, in)
		if err != nil {
			return err
		}
		logger.Debug("user provisioned", slog.Int64("user_id", user.ID))
		fmt.Fprintf(out, "created user %d <%s>\n", user.ID, user.Email)
		if opts.temporary {
			fmt.Fprintf(out, "first login password: %s\n", ledger.BootstrapPassword)
		}
	}
	return nil
}
