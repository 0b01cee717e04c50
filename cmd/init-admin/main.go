package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kythia/questapi/config"
	"github.com/kythia/questapi/internal/core/auth"
)

var rootCmd = &cobra.Command{
	Use:   "init-admin",
	Short: "Create credentials for the admin endpoints",
	Long: `init-admin creates the two credentials accepted by POST /v1/quests/sync:
- token:    an admin JWT signed with JWT_SECRET
- hash-key: the bcrypt hash of an API key, to set as ADMIN_API_KEY_HASH`,
	SilenceUsage: true,
}

func main() {
	cobra.OnInitialize(initConfig)
	rootCmd.AddCommand(tokenCmd())
	rootCmd.AddCommand(hashKeyCmd())
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetDefault("jwt_expiration_hours", 24)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func tokenCmd() *cobra.Command {
	var subject string
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an admin bearer token",
		RunE: func(cmd *cobra.Command, args []string) error {
			secret := viper.GetString("jwt_secret")
			if secret == "" {
				return fmt.Errorf("JWT_SECRET environment variable is required")
			}
			svc := auth.NewService(&config.JWTConfig{
				Secret:          secret,
				ExpirationHours: viper.GetInt("jwt_expiration_hours"),
			}, nil)

			resp, err := svc.IssueToken(subject)
			if err != nil {
				return err
			}
			fmt.Println(resp.Token)
			fmt.Fprintf(os.Stderr, "expires at %s\n", resp.ExpiresAt.Format("2006-01-02T15:04:05Z07:00"))
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "admin", "token subject")
	return cmd
}

func hashKeyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-key [key]",
		Short: "Print the bcrypt hash of an admin API key",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := viper.GetString("admin_api_key")
			if len(args) == 1 {
				key = args[0]
			}
			if key == "" {
				return fmt.Errorf("pass the key as an argument or set ADMIN_API_KEY")
			}

			hash, err := auth.HashAPIKey(key)
			if err != nil {
				return err
			}
			fmt.Println(hash)
			return nil
		},
	}
}
