package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/cobra"

	"github.com/hazyhaar/noticepanel/auth"
	"github.com/hazyhaar/noticepanel/idgen"
)

var (
	tokenUser string
	tokenRole string
	tokenTTL  time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint a session token for the service",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := setup()
		if err != nil {
			return err
		}
		if cfg.Server.Secret == "" {
			return errors.New("server.secret is required")
		}
		if tokenUser == "" {
			return errors.New("--user is required")
		}
		claims := &auth.Claims{
			RegisteredClaims: jwt.RegisteredClaims{ID: idgen.New()},
			UserID:           tokenUser,
			Role:             tokenRole,
			Scope:            auth.ScopeSession,
		}
		tok, err := auth.GenerateToken([]byte(cfg.Server.Secret), claims, tokenTTL)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), tok)
		return err
	},
}

func init() {
	tokenCmd.Flags().StringVarP(&tokenUser, "user", "u", "", "user id")
	tokenCmd.Flags().StringVarP(&tokenRole, "role", "r", "administrator", "role checked against allowed_roles")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 24*time.Hour, "token lifetime")
	rootCmd.AddCommand(tokenCmd)
}
