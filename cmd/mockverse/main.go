package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/haseebafeef/mock-verse/internal/client"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "mockverse",
		Short: "Take timed mock exams from the terminal",
	}
	root.PersistentFlags().String("addr", "http://localhost:8080", "Gateway base URL")
	root.PersistentFlags().String("token-file", defaultTokenFile(), "Where the access token is cached")
	_ = viper.BindPFlag("addr", root.PersistentFlags().Lookup("addr"))
	_ = viper.BindPFlag("token-file", root.PersistentFlags().Lookup("token-file"))
	viper.SetEnvPrefix("MOCKVERSE")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	root.AddCommand(loginCmd(), signupCmd(), plansCmd(), buyCmd(), examsCmd(), takeCmd(), resultCmd())
	return root
}

func defaultTokenFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".mockverse-token"
	}
	return filepath.Join(home, ".mockverse-token")
}

func newClient(withToken bool) (*client.Client, error) {
	c := client.New(strings.TrimSuffix(viper.GetString("addr"), "/"))
	if withToken {
		buf, err := os.ReadFile(viper.GetString("token-file"))
		if err != nil {
			return nil, fmt.Errorf("not logged in (run `mockverse login`): %w", err)
		}
		c.Token = strings.TrimSpace(string(buf))
	}
	return c, nil
}

func saveToken(tok string) error {
	return os.WriteFile(viper.GetString("token-file"), []byte(tok), 0o600)
}

func loginCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login <email> <password>",
		Short: "Log in and cache the access token",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient(false)
			if err != nil {
				return err
			}
			u, err := c.Login(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			if err := saveToken(c.Token); err != nil {
				return err
			}
			fmt.Printf("logged in as %s (%s)\n", u.Email, u.Role)
			return nil
		},
	}
	return cmd
}

func signupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "signup <email> <password> [name]",
		Short: "Create an account",
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := ""
			if len(args) == 3 {
				name = args[2]
			}
			c, err := newClient(false)
			if err != nil {
				return err
			}
			u, err := c.Signup(cmd.Context(), args[0], args[1], name)
			if err != nil {
				return err
			}
			if err := saveToken(c.Token); err != nil {
				return err
			}
			fmt.Printf("welcome, %s\n", u.Email)
			return nil
		},
	}
	return cmd
}

func plansCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "plans",
		Short: "List purchasable plans",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient(false)
			if err != nil {
				return err
			}
			plans, err := c.Plans(cmd.Context())
			if err != nil {
				return err
			}
			for _, p := range plans {
				fmt.Printf("%-16s %10.2f  %s\n", p.ID, p.Price, p.Name)
			}
			return nil
		},
	}
}

func buyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "buy <plan-id>",
		Short: "Purchase a plan (checkout + confirm)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient(true)
			if err != nil {
				return err
			}
			intent, err := c.Checkout(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			order, err := c.ConfirmCheckout(cmd.Context(), intent.OrderID, intent.SessionID)
			if err != nil {
				return err
			}
			fmt.Printf("order %s %s (%.2f)\n", order.ID, order.Status, order.Amount)
			return nil
		},
	}
}

func examsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "exams",
		Short: "List available exams",
		RunE: func(cmd *cobra.Command, args []string) error {
			purchased, _ := cmd.Flags().GetBool("purchased")
			c, err := newClient(true)
			if err != nil {
				return err
			}
			list, err := c.Exams(cmd.Context(), purchased)
			if err != nil {
				return err
			}
			for _, e := range list {
				lock := " "
				if !e.HasAccess {
					lock = "*"
				}
				fmt.Printf("%s %-20s %3d min %3d questions  %s\n", lock, e.ID, e.DurationMin, e.QuestionCount, e.Name)
			}
			return nil
		},
	}
	cmd.Flags().Bool("purchased", false, "Only exams unlocked by purchased plans")
	return cmd
}

func takeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "take <exam-id>",
		Short: "Start (or resume) a timed attempt",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient(true)
			if err != nil {
				return err
			}
			runner := &client.Runner{
				Client: c,
				In:     os.Stdin,
				Out:    os.Stdout,
				Log:    slog.New(slog.NewTextHandler(os.Stderr, nil)),
			}
			_, err = runner.Run(cmd.Context(), args[0])
			return err
		},
	}
}

func resultCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "result <attempt-id>",
		Short: "Show the graded review of a submitted attempt",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient(true)
			if err != nil {
				return err
			}
			review, err := c.Result(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(review)
		},
	}
}
