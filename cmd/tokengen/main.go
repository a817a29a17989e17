// Command powerdesk-tokengen prints fresh credentials for a PowerDesk gateway deployment.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"github.com/alif-arrizqy/jspro-powerdesk-sub000/internal/auth"
	"github.com/alif-arrizqy/jspro-powerdesk-sub000/internal/rbac"
)

func main() {
	if err := newRootCommand(os.Stdout).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type generator struct {
	out          io.Writer
	apiToken     func() (string, error)
	password     func() (string, error)
	secretKey    func() (string, error)
	hashWithCost func(password string, cost int) (string, error)
}

func newRootCommand(out io.Writer) *cobra.Command {
	g := &generator{
		out:          out,
		apiToken:     auth.GenerateAPIToken,
		password:     auth.GeneratePassword,
		secretKey:    auth.GenerateSecretKey,
		hashWithCost: auth.HashPasswordCost,
	}
	return g.command()
}

func (g *generator) command() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "powerdesk-tokengen",
		Short:         "Generate API tokens, passwords and the cookie signing key for PowerDesk",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetOut(g.out)

	var cost int
	hashCmd := &cobra.Command{
		Use:   "hash <password>",
		Short: "Print the bcrypt hash of a password (usable in place of the plaintext)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := g.hashWithCost(args[0], cost)
			if err != nil {
				return err
			}
			fmt.Fprintln(g.out, h)
			return nil
		},
	}
	hashCmd.Flags().IntVar(&cost, "cost", bcrypt.DefaultCost, "bcrypt cost")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "api-tokens",
			Short: "Print one Bearer API token per role",
			Args:  cobra.NoArgs,
			RunE:  func(*cobra.Command, []string) error { return g.printAPITokens() },
		},
		&cobra.Command{
			Use:   "passwords",
			Short: "Print one login password per account",
			Args:  cobra.NoArgs,
			RunE:  func(*cobra.Command, []string) error { return g.printPasswords() },
		},
		&cobra.Command{
			Use:   "secret",
			Short: "Print a session cookie signing key",
			Args:  cobra.NoArgs,
			RunE:  func(*cobra.Command, []string) error { return g.printSecret() },
		},
		hashCmd,
		&cobra.Command{
			Use:   "all",
			Short: "Print a complete environment file block",
			Args:  cobra.NoArgs,
			RunE: func(*cobra.Command, []string) error {
				fmt.Fprintln(g.out, "# PowerDesk credentials. Keep out of version control; rotate monthly.")
				for _, step := range []func() error{g.printPasswords, g.printAPITokens, g.printSecret} {
					if err := step(); err != nil {
						return err
					}
				}
				return nil
			},
		},
	)
	return cmd
}

// envName maps a role to its variable suffix, e.g. RoleTeknisi -> TEKNISI.
func envName(r rbac.Role) string {
	switch r {
	case rbac.RoleAdmin:
		return "ADMIN"
	case rbac.RoleTeknisi:
		return "TEKNISI"
	default:
		return "APT"
	}
}

func (g *generator) printAPITokens() error {
	for _, role := range rbac.AllRoles {
		tok, err := g.apiToken()
		if err != nil {
			return err
		}
		fmt.Fprintf(g.out, "API_TOKEN_%s=%s\n", envName(role), tok)
	}
	return nil
}

func (g *generator) printPasswords() error {
	for _, role := range []rbac.Role{rbac.RoleTeknisi, rbac.RoleApt, rbac.RoleAdmin} {
		pw, err := g.password()
		if err != nil {
			return err
		}
		fmt.Fprintf(g.out, "%s_PASSWORD=%s\n", envName(role), pw)
	}
	return nil
}

func (g *generator) printSecret() error {
	key, err := g.secretKey()
	if err != nil {
		return err
	}
	fmt.Fprintf(g.out, "SECRET_KEY=%s\n", key)
	return nil
}
