package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"expense-cli/internal/api"
	"expense-cli/internal/app"
	"expense-cli/internal/auth"
	"expense-cli/internal/expense"
	"expense-cli/internal/tui"
)

const version = "1.0.0"

func main() {
	root := &cobra.Command{
		Use:     "xpa",
		Short:   "xpa - expense assistant",
		Long:    "xpa is a terminal client for the expense service: browse and file expenses, and chat with the assistant about your spending.\n\nRun without arguments to open the chat.",
		Version: version,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd)
		},
	}
	root.PersistentFlags().Bool("debug", false, "verbose logging")
	root.Flags().String("session", "", "open a specific conversation id")

	root.AddCommand(loginCmd(), logoutCmd(), whoamiCmd(), sessionsCmd(), expenseCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func buildApp(cmd *cobra.Command) (*app.Application, error) {
	cfg, err := app.LoadConfig(app.DefaultConfigPath())
	if err != nil {
		return nil, err
	}
	if base := os.Getenv("XPA_BASE_URL"); base != "" {
		cfg.BaseURL = base
	}
	if debug, _ := cmd.Flags().GetBool("debug"); debug {
		cfg.Debug = true
	}
	return app.NewApplication(cfg, nil)
}

// authGuard clears stored credentials when the server rejected the token, so
// the next run prompts for login instead of retrying a dead session.
func authGuard(application *app.Application, err error) error {
	if errors.Is(err, api.ErrUnauthorized) {
		application.ForceLogout()
		return fmt.Errorf("session expired. Run: xpa login")
	}
	return err
}

func runChat(cmd *cobra.Command) error {
	application, err := buildApp(cmd)
	if err != nil {
		return err
	}
	if !application.LoggedIn() {
		return fmt.Errorf("not logged in. Run: xpa login")
	}

	model := tui.New(application)
	if sessionID, _ := cmd.Flags().GetString("session"); sessionID != "" {
		model.SetInitialSession(sessionID)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	watcher := application.NewAuthWatcher(func() {
		select {
		case model.AuthLost() <- struct{}{}:
		default:
		}
	})
	go watcher.Run(ctx)

	p := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return err
	}
	if model.SessionExpired {
		fmt.Println("Session expired. Please log in again: xpa login")
	}
	return nil
}

func loginCmd() *cobra.Command {
	var user string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Authenticate against the expense service",
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := buildApp(cmd)
			if err != nil {
				return err
			}

			reader := bufio.NewReader(os.Stdin)
			if user == "" {
				fmt.Print("Login name: ")
				line, err := reader.ReadString('\n')
				if err != nil {
					return err
				}
				user = strings.TrimSpace(line)
			}
			fmt.Print("Password: ")
			line, err := reader.ReadString('\n')
			if err != nil {
				return err
			}
			password := strings.TrimSpace(line)

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			result, err := application.Client.Login(ctx, user, password)
			if err != nil {
				return fmt.Errorf("login failed: %w", err)
			}
			creds := auth.Credentials{
				AccessToken:   result.AccessToken,
				UserLoginName: result.User.UserLoginName,
				UserFirstName: result.User.UserFirstName,
				UserLastName:  result.User.UserLastName,
			}
			if err := application.Creds.Save(creds); err != nil {
				return err
			}
			fmt.Printf("Welcome, %s %s.\n", result.User.UserFirstName, result.User.UserLastName)
			return nil
		},
	}
	cmd.Flags().StringVarP(&user, "user", "u", "", "login name")
	return cmd
}

func logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Invalidate the session and clear stored credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := buildApp(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			// Best effort: clear locally even when the server call fails.
			if err := application.Client.Logout(ctx); err != nil {
				application.Log.Warn("logout call failed: " + err.Error())
			}
			if err := application.Creds.Clear(); err != nil {
				return err
			}
			fmt.Println("Logged out.")
			return nil
		},
	}
}

func whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged-in user",
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := buildApp(cmd)
			if err != nil {
				return err
			}
			creds, ok := application.Creds.Current()
			if !ok {
				fmt.Println("Not logged in.")
				return nil
			}
			fmt.Printf("%s %s (%s)\n", creds.UserFirstName, creds.UserLastName, creds.UserLoginName)
			if exp, err := auth.TokenExpiry(creds.AccessToken); err == nil {
				fmt.Printf("Token expires %s\n", exp.Local().Format(time.RFC1123))
			}
			return nil
		},
	}
}

func sessionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Manage chat conversations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List conversations",
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := buildApp(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := application.Chat.Load(ctx); err != nil {
				return authGuard(application, err)
			}
			sums := application.Chat.Summaries()
			if len(sums) == 0 {
				fmt.Println("No conversations.")
				return nil
			}
			for _, s := range sums {
				fmt.Printf("%-36s  %-40s  %s\n", s.ID, s.Title, s.UpdatedAt.Local().Format("2006-01-02 15:04"))
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "rename <id> <title>",
		Short: "Rename a conversation",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := buildApp(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			return authGuard(application, application.Chat.Rename(ctx, args[0], args[1]))
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a conversation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := buildApp(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			return authGuard(application, application.Chat.Delete(ctx, args[0]))
		},
	})

	return cmd
}

func expenseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "expense",
		Short: "Browse and file expenses",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "states",
		Short: "List filing states",
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := buildApp(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			states, err := application.Expenses.States(ctx)
			if err != nil {
				return authGuard(application, err)
			}
			for _, s := range states {
				fmt.Printf("%-10s  %s\n", s.ID, s.Name)
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "months <state-id>",
		Short: "List months still open for entry in a state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := buildApp(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			months, err := application.Expenses.AvailableMonths(ctx, args[0])
			if err != nil {
				return authGuard(application, err)
			}
			for _, m := range months {
				fmt.Println(m)
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "list <state-id>",
		Short: "Show expenses for a state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := buildApp(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			rows, err := application.Expenses.List(ctx, args[0])
			if err != nil {
				return authGuard(application, err)
			}
			fmt.Println(expense.RenderTable(rows))
			return nil
		},
	})

	var form api.ExpenseForm
	add := &cobra.Command{
		Use:   "add",
		Short: "File one expense",
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := buildApp(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			created, err := application.Expenses.Submit(ctx, form)
			if err != nil {
				return authGuard(application, err)
			}
			fmt.Printf("Filed %s %s / %s: ₹%.2f\n", created.Month, created.State, created.Category, created.Price)
			return nil
		},
	}
	add.Flags().StringVar(&form.StateID, "state", "", "state id")
	add.Flags().StringVar(&form.EmbossingCenterName, "center", "", "embossing center name")
	add.Flags().StringVar(&form.Month, "month", "", "month name")
	add.Flags().IntVar(&form.Year, "year", time.Now().Year(), "year")
	add.Flags().StringVar(&form.Category, "category", "", "category")
	add.Flags().Float64Var(&form.Price, "price", 0, "amount in rupees")
	cmd.AddCommand(add)

	return cmd
}
