package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/phrazzld/cramdeck/internal/domain"
	"github.com/phrazzld/cramdeck/internal/platform/mailer"
	"github.com/phrazzld/cramdeck/internal/platform/postgres"
	"github.com/phrazzld/cramdeck/internal/service"
	"github.com/phrazzld/cramdeck/internal/service/auth"
	"github.com/phrazzld/cramdeck/internal/store"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/term"
)

func (e *env) userStore() store.UserStore {
	return postgres.NewPostgresUserStore(e.db, e.cfg.Auth.BCryptCost, e.logger)
}

// userService needs no revoker: the CLI never issues or revokes tokens.
func (e *env) userService() (service.UserService, error) {
	tokens, err := auth.NewJWTService(e.cfg.Auth)
	if err != nil {
		return nil, err
	}
	return service.NewUserService(e.userStore(), e.db, tokens, auth.NewBcryptVerifier(),
		nil, mailer.NewLogMailer(e.logger), e.cfg.Auth.AdminEmail, e.logger), nil
}

// passwordPrompt reads a password without echo when in is a terminal and
// falls back to a plain line otherwise, so scripts can pipe one in.
type passwordPrompt struct {
	in     io.Reader
	out    io.Writer
	reader *bufio.Reader
}

func newPasswordPrompt(in io.Reader, out io.Writer) *passwordPrompt {
	return &passwordPrompt{in: in, out: out, reader: bufio.NewReader(in)}
}

func (p *passwordPrompt) read(label string) (string, error) {
	_, _ = fmt.Fprint(p.out, label)
	if f, ok := p.in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(f.Fd()))
		_, _ = fmt.Fprintln(p.out)
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		return string(b), nil
	}
	line, err := p.reader.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// confirmed asks twice and validates the pair.
func (p *passwordPrompt) confirmed() (string, error) {
	password, err := p.read("New password: ")
	if err != nil {
		return "", err
	}
	again, err := p.read("Confirm password: ")
	if err != nil {
		return "", err
	}
	if err := domain.ValidatePasswordChange(password, again); err != nil {
		return "", err
	}
	return password, nil
}

func newUsersCmd(opts *rootOptions) *cobra.Command {
	users := &cobra.Command{Use: "users", Short: "Account maintenance"}

	setPassword := &cobra.Command{
		Use:   "set-password <email>",
		Short: "Replace an account's password and mark its email verified",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := newPasswordPrompt(cmd.InOrStdin(), cmd.ErrOrStderr()).confirmed()
			if err != nil {
				return err
			}

			e, err := openEnv(cmd.Context(), opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer e.Close()

			users, err := e.userService()
			if err != nil {
				return err
			}
			if err := users.SetPassword(cmd.Context(), args[0], password, password); err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "password updated for %s\n", args[0])
			return nil
		},
	}

	var cost int
	hashPassword := &cobra.Command{
		Use:   "hash-password",
		Short: "Print a bcrypt hash for a password read from stdin",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			password, err := newPasswordPrompt(cmd.InOrStdin(), cmd.ErrOrStderr()).read("Password: ")
			if err != nil {
				return err
			}
			if err := domain.ValidatePassword(password); err != nil {
				return err
			}
			hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), string(hash))
			return nil
		},
	}
	hashPassword.Flags().IntVar(&cost, "cost", bcrypt.DefaultCost, "bcrypt cost")

	users.AddCommand(setPassword, hashPassword)
	return users
}
