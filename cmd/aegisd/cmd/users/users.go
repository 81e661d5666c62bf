package users

import "github.com/spf13/cobra"

// UsersCmd is the parent command for user management operations
var UsersCmd = &cobra.Command{
	Use:   "users",
	Short: "Manage users",
	Long:  `Commands for managing users directly from the server.`,
}

func init() {
	createCmd.Flags().StringVar(&usernameFlag, "username", "", "Username of the user (required)")
	createCmd.Flags().StringVar(&emailFlag, "email", "", "Email address of the user (required)")
	createCmd.Flags().StringVar(&phoneFlag, "phone", "", "Phone number of the user")
	createCmd.Flags().BoolVar(&withKeyFlag, "with-key", false, "Issue an access key and print it once")

	UsersCmd.AddCommand(createCmd)
}
