package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"s3ripper/pkg/auth"
	"s3ripper/pkg/config"
	"s3ripper/pkg/logger"
	"s3ripper/pkg/session"
	"s3ripper/pkg/substance"
	"s3ripper/pkg/ui"
)

// authCmd represents the auth command
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage stored Adobe IMS session ids",
	Long: `Manage stored Adobe IMS session ids.

Session ids are stored using:
  - System keychain (when available)
  - Encrypted file with PBKDF2 key derivation
  - S3RIPPER_IMS_SID (read only)

Never share your session id or config files!`,
}

var loginCmd = &cobra.Command{
	Use:   "login [name]",
	Short: "Store an IMS session id",
	Long: `Store an Adobe IMS session id under a name. You will be prompted for the
ims_sid cookie value; it is hidden as you type.`,
	Example: `  s3ripper auth login work`,
	Args:    cobra.MaximumNArgs(1),
	RunE:    runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout <name>",
	Short: "Remove a stored session id",
	Args:  cobra.ExactArgs(1),
	RunE:  runLogout,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored accounts",
	RunE:  runList,
}

var checkCmd = &cobra.Command{
	Use:   "check [name]",
	Short: "Sign in with a stored session id and show the account",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runCheck,
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(loginCmd, logoutCmd, listCmd, checkCmd)
}

func runLogin(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}

	reader := bufio.NewReader(os.Stdin)

	name := "default"
	if len(args) > 0 {
		name = args[0]
	}

	if existing, _ := manager.Retrieve(name); existing != nil {
		fmt.Printf("Account '%s' already exists. Replace it? (y/N): ", name)
		input, _ := reader.ReadString('\n')
		if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(input)), "y") {
			return nil
		}
	}

	auth.WriteSessionIDGuide(os.Stdout)
	fmt.Print("\nims_sid cookie value: ")
	sessionID, err := readSecret(reader)
	if err != nil {
		return fmt.Errorf("failed to read session id: %w", err)
	}
	if sessionID == "" {
		return errors.New("session id is required")
	}

	fmt.Print("User agent (press Enter for the default): ")
	userAgent, _ := reader.ReadString('\n')

	account := &auth.Account{
		Name:      name,
		SessionID: sessionID,
		UserAgent: strings.TrimSpace(userAgent),
	}
	if err := manager.Store(account); err != nil {
		return err
	}

	ui.PrintSuccess("Account saved: " + name)
	fmt.Printf("Verify it with: s3ripper auth check %s\n", name)
	return nil
}

// readSecret reads a line without echo when stdin is a terminal
func readSecret(reader *bufio.Reader) (string, error) {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		b, err := term.ReadPassword(fd)
		fmt.Println()
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(b)), nil
	}
	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}

	if err := manager.Delete(args[0]); err != nil {
		return err
	}
	ui.PrintSuccess("Account removed: " + args[0])
	return nil
}

func runList(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}

	accounts, err := manager.List()
	if err != nil {
		return err
	}
	if len(accounts) == 0 {
		ui.PrintInfo("No stored accounts", "use 's3ripper auth login' to add one")
		return nil
	}

	ui.PrintHighlight("Stored Accounts")
	for i, account := range accounts {
		sanitized := auth.SanitizeAccount(account)
		fmt.Printf("%d. %s\n", i+1, sanitized.Name)
		fmt.Printf("   ims_sid: %s\n", sanitized.SessionID)
		if sanitized.UserAgent != "" {
			fmt.Printf("   User Agent: %s\n", sanitized.UserAgent)
		}
		fmt.Printf("   Last Modified: %s\n", sanitized.LastModified.Format("2006-01-02 15:04:05"))
	}
	return nil
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile, nil)
	if err != nil {
		return err
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if err := logger.Initialize(&cfg.Logging); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}
	var name string
	if len(args) > 0 {
		name = args[0]
	}
	account, err := manager.Resolve(name)
	if err != nil {
		return err
	}
	if account.UserAgent != "" {
		cfg.Adobe.UserAgent = account.UserAgent
	}

	client := substance.NewClient(substance.OptionsFromConfig(cfg, logger.GetLogger()))
	sess, err := session.NewManager(client, logger.GetLogger()).Authenticate(context.Background(), account.SessionID)
	if err != nil {
		return err
	}

	ui.PrintInfo("Logged in as", fmt.Sprintf("%s (%s)", sess.Ticket.DisplayName, sess.Ticket.Email))
	ui.PrintInfo("Owned assets", fmt.Sprintf("%d", sess.Entitlements().Len()))
	if !sess.ExpiresAt.IsZero() {
		ui.PrintInfo("Token expires", sess.ExpiresAt.Format("2006-01-02 15:04:05"))
	}
	return nil
}
