package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/frahmantamala/employee-portal/internal"
	"github.com/frahmantamala/employee-portal/internal/employee"
	"github.com/spf13/cobra"
)

var (
	createEmployee employee.CreateEmployeeDTO
)

var employeesCmd = &cobra.Command{
	Use:     "employees",
	Aliases: []string{"employee"},
	Short:   "Manage employees",
}

var employeesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List employees",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDeps(cmd.Context(), func(ctx context.Context, deps *Dependencies) error {
			if _, err := deps.Sessions.RequireUser(); err != nil {
				return err
			}
			employees, err := deps.Employees.List(ctx)
			if err != nil {
				return err
			}

			tw := newTable(cmd.OutOrStdout(), "CODE", "USERNAME", "ACTIVE", "WALLET")
			for _, e := range employees {
				row(tw, e.UserCode, e.Username, e.Active, e.WalletAddress)
			}
			return tw.Flush()
		})
	},
}

var employeesGetCmd = &cobra.Command{
	Use:   "get USER_CODE",
	Short: "Show one employee",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDeps(cmd.Context(), func(ctx context.Context, deps *Dependencies) error {
			e, err := deps.Employees.Get(ctx, internal.Code(args[0]))
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), e)
		})
	},
}

var employeesCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an employee account",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDeps(cmd.Context(), func(ctx context.Context, deps *Dependencies) error {
			created, err := deps.Employees.Create(ctx, createEmployee)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created %s (%s)\n", created.Username, created.UserCode)
			if msg := deps.Employees.Records().Err(); msg != "" {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: employee list not refreshed: %s\n", msg)
				deps.Employees.Records().ClearError()
			}
			return nil
		})
	},
}

var employeesStatusCmd = &cobra.Command{
	Use:   "status USER_CODE true|false",
	Short: "Activate or deactivate an employee",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		active, err := strconv.ParseBool(args[1])
		if err != nil {
			return internal.NewValidationFieldError("active", "active must be true or false", internal.ErrCodeValidationFailed)
		}

		return withDeps(cmd.Context(), func(ctx context.Context, deps *Dependencies) error {
			if err := deps.Employees.UpdateStatus(ctx, internal.Code(args[0]), active); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s active=%t\n", args[0], active)
			return nil
		})
	},
}

var employeesAvatarCmd = &cobra.Command{
	Use:   "avatar USER_CODE FILE",
	Short: "Upload a profile picture",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[1])
		if err != nil {
			return fmt.Errorf("failed to open avatar: %w", err)
		}
		defer f.Close()

		return withDeps(cmd.Context(), func(ctx context.Context, deps *Dependencies) error {
			if err := deps.Employees.UploadAvatar(ctx, internal.Code(args[0]), filepath.Base(args[1]), f); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Avatar uploaded")
			return nil
		})
	},
}

func init() {
	employeesCreateCmd.Flags().StringVar(&createEmployee.Username, "username", "", "account name")
	employeesCreateCmd.Flags().StringVar(&createEmployee.Password, "password", "", "initial password")
	employeesCreateCmd.Flags().IntVar(&createEmployee.RoleID, "role", 0, "role id (1 administrator, 3 standard user)")

	employeesCmd.AddCommand(employeesListCmd, employeesGetCmd, employeesCreateCmd, employeesStatusCmd, employeesAvatarCmd)
}
