package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"sibeo/internal/auth"
	"sibeo/internal/models"
)

var (
	emailFlag    string
	passwordFlag string
	nameFlag     string
	confirmFlag  string
	roleFlag     string
	codeFlag     string
	remoteFlag   bool
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in to the platform",
	RunE: func(cmd *cobra.Command, args []string) error {
		form := auth.LoginForm{Email: emailFlag, Password: passwordOrEnv()}
		if popup := sibeo.forms.ValidateLogin(&form); popup != nil {
			return popupError(*popup)
		}

		outcome := sibeo.session.Login(cmd.Context(), form.Email, form.Password)
		if !outcome.Success {
			return popupError(auth.LoginFailurePopup(outcome.Error))
		}

		user := sibeo.session.User()
		fmt.Fprintf(cmd.OutOrStdout(), "Selamat datang, %s! (%s)\n", user.Name, roleLabel(user.Role))
		return nil
	},
}

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create an account and sign in",
	RunE: func(cmd *cobra.Command, args []string) error {
		password := passwordOrEnv()
		confirm := confirmFlag
		if !cmd.Flags().Changed("confirm-password") {
			confirm = password
		}

		form := &auth.RegisterForm{
			Name:            nameFlag,
			Email:           emailFlag,
			Password:        password,
			ConfirmPassword: confirm,
			Role:            models.Role(roleFlag),
			InstructorCode:  codeFlag,
		}
		if popup := sibeo.forms.ValidateRegister(form); popup != nil {
			return popupError(*popup)
		}

		outcome := sibeo.session.Register(cmd.Context(), form.Name, form.Email, form.Password, form.Role)
		if !outcome.Success {
			return popupError(auth.RegisterFailurePopup(outcome.Error))
		}

		user := sibeo.session.User()
		fmt.Fprintf(cmd.OutOrStdout(), "Akun dibuat. Selamat datang, %s! (%s)\n", user.Name, roleLabel(user.Role))
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out and forget the saved session",
	Run: func(cmd *cobra.Command, args []string) {
		sibeo.session.Logout(cmd.Context())
		fmt.Fprintln(cmd.OutOrStdout(), "Anda telah keluar.")
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in user",
	RunE: func(cmd *cobra.Command, args []string) error {
		user := sibeo.session.User()
		if remoteFlag {
			user = sibeo.api.GetCurrentUser(cmd.Context())
		}
		if user == nil {
			return errors.New("belum login")
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s <%s> (%s) id=%d\n", user.Name, user.Email, roleLabel(user.Role), user.ID)
		return nil
	},
}

func init() {
	loginCmd.Flags().StringVar(&emailFlag, "email", "", "account email")
	loginCmd.Flags().StringVar(&passwordFlag, "password", "", "account password (or SIBEO_PASSWORD)")

	registerCmd.Flags().StringVar(&nameFlag, "name", "", "full name")
	registerCmd.Flags().StringVar(&emailFlag, "email", "", "account email")
	registerCmd.Flags().StringVar(&passwordFlag, "password", "", "account password (or SIBEO_PASSWORD)")
	registerCmd.Flags().StringVar(&confirmFlag, "confirm-password", "", "password confirmation (defaults to --password)")
	registerCmd.Flags().StringVar(&roleFlag, "role", string(models.RoleStudent), "student or instructor")
	registerCmd.Flags().StringVar(&codeFlag, "code", "", "instructor verification code")

	whoamiCmd.Flags().BoolVar(&remoteFlag, "remote", false, "ask the server instead of the saved session")

	rootCmd.AddCommand(loginCmd, registerCmd, logoutCmd, whoamiCmd)
}

func passwordOrEnv() string {
	if passwordFlag != "" {
		return passwordFlag
	}
	return os.Getenv("SIBEO_PASSWORD")
}

func popupError(p auth.Popup) error {
	if p.Title == "" {
		return errors.New(p.Message)
	}
	return fmt.Errorf("%s: %s", p.Title, p.Message)
}

func roleLabel(role models.Role) string {
	if role == models.RoleInstructor {
		return "Instruktur"
	}
	return "Siswa"
}
