package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/treefix50/recapadmin/internal/auth"
)

func newUserCommand(ctx *commandContext) *cobra.Command {
	userCmd := &cobra.Command{
		Use:   "user",
		Short: "Manage admin accounts",
	}

	userCmd.AddCommand(newUserAddCommand(ctx))
	userCmd.AddCommand(newUserPasswdCommand(ctx))
	userCmd.AddCommand(newUserListCommand(ctx))

	return userCmd
}

func newUserAddCommand(ctx *commandContext) *cobra.Command {
	var password string
	var isAdmin bool

	cmd := &cobra.Command{
		Use:   "add <email>",
		Short: "Create an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withServices(cmd, func(svc *services) error {
				generated := password == ""
				if generated {
					password = auth.GenerateAdminPassword()
				}
				user, err := svc.auth.CreateUser(cmd.Context(), args[0], password, isAdmin)
				if err != nil {
					return fmt.Errorf("%s: %w", auth.Message(err), err)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Created user %s (%s)\n", user.Email, user.ID)
				if generated {
					fmt.Fprintf(out, "Password: %s\n", password)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&password, "password", "", "Password (generated when empty)")
	cmd.Flags().BoolVar(&isAdmin, "admin", false, "Grant admin rights")
	return cmd
}

func newUserPasswdCommand(ctx *commandContext) *cobra.Command {
	var password string

	cmd := &cobra.Command{
		Use:   "passwd <email>",
		Short: "Reset an account password and sign it out everywhere",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withServices(cmd, func(svc *services) error {
				user, err := svc.auth.UserByEmail(cmd.Context(), args[0])
				if err != nil {
					return fmt.Errorf("%s: %w", auth.Message(err), err)
				}
				generated := password == ""
				if generated {
					password = auth.GenerateAdminPassword()
				}
				if err := svc.auth.ChangePassword(cmd.Context(), user.ID, "", password); err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Password updated for %s\n", user.Email)
				if generated {
					fmt.Fprintf(out, "Password: %s\n", password)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&password, "password", "", "New password (generated when empty)")
	return cmd
}

func newUserListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withServices(cmd, func(svc *services) error {
				users, err := svc.auth.ListUsers(cmd.Context())
				if err != nil {
					return err
				}
				rows := make([][]string, 0, len(users))
				for _, user := range users {
					lastLogin := "never"
					if !user.LastLogin.IsZero() {
						lastLogin = user.LastLogin.Local().Format("2006-01-02 15:04")
					}
					rows = append(rows, []string{user.ID, user.Email, strconv.FormatBool(user.IsAdmin), lastLogin})
				}
				out := cmd.OutOrStdout()
				fmt.Fprintln(out, renderTable(out, []string{"ID", "Email", "Admin", "Last login"}, rows, nil))
				return nil
			})
		},
	}
}
