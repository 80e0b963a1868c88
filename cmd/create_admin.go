package cmd

import (
	"bufio"
	"context"
	stdErrors "errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jarvis4everyone/jarvis-backend/internal/auth"
	authPostgres "github.com/jarvis4everyone/jarvis-backend/internal/auth/postgres"
	"github.com/jarvis4everyone/jarvis-backend/internal/subscription"
	subscriptionPostgres "github.com/jarvis4everyone/jarvis-backend/internal/subscription/postgres"
	"github.com/jarvis4everyone/jarvis-backend/internal/user"
	userPostgres "github.com/jarvis4everyone/jarvis-backend/internal/user/postgres"
	"github.com/jarvis4everyone/jarvis-backend/pkg/logger"
)

var createAdminCmd = &cobra.Command{
	Use:   "create-admin",
	Short: "Create an administrator account",
	Long: `Create an administrator account. Values missing from the flags are asked for
on stdin. An existing account with the same email is promoted to admin instead.`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := createAdmin(cmd.Context(), os.Stdin, cmd.OutOrStdout()); err != nil {
			log.Fatalf("create-admin: %v", err)
		}
	},
}

var adminInput user.CreateUserDTO

func init() {
	createAdminCmd.Flags().StringVar(&adminInput.Name, "name", "", "admin display name")
	createAdminCmd.Flags().StringVar(&adminInput.Email, "email", "", "admin email")
	createAdminCmd.Flags().StringVar(&adminInput.ContactNumber, "contact", "", "admin contact number")
	createAdminCmd.Flags().StringVar(&adminInput.Password, "password", "", "admin password, at least 8 characters")

	rootCmd.AddCommand(createAdminCmd)
}

func createAdmin(ctx context.Context, in io.Reader, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}

	dto := adminInput
	if err := promptMissing(&dto, bufio.NewReader(in), out); err != nil {
		return err
	}
	dto.IsAdmin = true

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	log := logger.LoggerWrapper()

	db, err := initDB(cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()
	gormDB, err := initGorm(db)
	if err != nil {
		return err
	}

	tokenGen, err := auth.NewJWTTokenGenerator(
		cfg.Security.JWTSecretKey,
		cfg.Security.JWTAlgorithm,
		cfg.Security.AccessTokenTTL(),
		cfg.Security.RefreshTokenTTL())
	if err != nil {
		return err
	}
	subscriptions := subscription.NewService(subscriptionPostgres.NewSubscriptionRepository(gormDB), nil, log)
	authService := auth.NewService(
		authPostgres.NewUserRepository(gormDB),
		authPostgres.NewRefreshTokenRepository(gormDB),
		tokenGen,
		subscriptions,
		cfg.Security.BCryptCost,
		log)
	users := userPostgres.NewUserRepository(gormDB)
	userService := user.NewService(users, subscriptions, authService, authService, log)

	existing, err := users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(dto.Email)))
	switch {
	case err == nil:
		promote := true
		u, err := userService.Update(ctx, existing.ID, user.UpdateUserDTO{IsAdmin: &promote})
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Promoted existing user %s (id %d) to admin\n", u.Email, u.ID)
		return nil
	case !stdErrors.Is(err, user.ErrUserNotFound):
		return err
	}

	u, err := userService.Create(ctx, dto)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Created admin %s (id %d)\n", u.Email, u.ID)
	return nil
}

func promptMissing(dto *user.CreateUserDTO, in *bufio.Reader, out io.Writer) error {
	fields := []struct {
		label string
		value *string
	}{
		{"Name", &dto.Name},
		{"Email", &dto.Email},
		{"Contact number", &dto.ContactNumber},
		{"Password", &dto.Password},
	}
	for _, f := range fields {
		if strings.TrimSpace(*f.value) != "" {
			continue
		}
		fmt.Fprintf(out, "%s: ", f.label)
		line, err := in.ReadString('\n')
		if err != nil && !stdErrors.Is(err, io.EOF) {
			return err
		}
		*f.value = strings.TrimSpace(line)
		if *f.value == "" {
			return fmt.Errorf("%s is required", strings.ToLower(f.label))
		}
	}
	return nil
}
