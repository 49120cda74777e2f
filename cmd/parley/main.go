// parley is a terminal client for the messaging server: it logs in,
// maintains the socket session and relays messages typed on stdin.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/parleychat/parley/internal/auth"
	"github.com/parleychat/parley/internal/chat"
	"github.com/parleychat/parley/internal/chat/call"
	"github.com/parleychat/parley/internal/chat/session"
	"github.com/parleychat/parley/internal/chat/state"
	"github.com/parleychat/parley/internal/common/config"
	"github.com/parleychat/parley/pkg/logger"
	"github.com/parleychat/parley/pkg/version"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	configPath string
	email      string
	password   string
	receiverID string
	groupID    string
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of parley",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("parley version %s\n", version.Get())
	},
}

var rootCmd = &cobra.Command{
	Use:   "parley",
	Short: "Parley messaging client",
	Long:  `Parley maintains an authenticated realtime session with the messaging server and relays messages from stdin`,
	Run: func(cmd *cobra.Command, args []string) {
		run()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "conf", "config.yaml", "path to configuration file")
	rootCmd.Flags().StringVar(&email, "email", "", "login email (or PARLEY_EMAIL)")
	rootCmd.Flags().StringVar(&password, "password", "", "login password (or PARLEY_PASSWORD)")
	rootCmd.Flags().StringVar(&receiverID, "to", "", "peer user id to message")
	rootCmd.Flags().StringVar(&groupID, "group", "", "group id to message")
	rootCmd.AddCommand(versionCmd)
}

func run() {
	// .env is optional; environment overrides are applied by the loader
	_ = godotenv.Load()

	bootLogger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}

	cfg, err := config.NewLoader(bootLogger).LoadFromFile(configPath)
	if err != nil {
		bootLogger.Fatal("failed to load configuration", zap.Error(err))
	}

	log, err := logger.NewLogger(&cfg.Logger)
	if err != nil {
		bootLogger.Fatal("failed to initialize logger", zap.Error(err))
	}
	defer func() { _ = log.Sync() }()

	log.Info("starting parley", zap.String("version", version.Get()))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	credStore, err := auth.NewStore(ctx, log, &cfg.Credentials)
	if err != nil {
		log.Fatal("failed to initialize credential store", zap.Error(err))
	}

	provider := auth.NewProvider(log, credStore, cfg.Auth)
	provider.OnSessionExpired(func() {
		log.Warn("session expired, please login again")
		cancel()
	})

	if email == "" {
		email = os.Getenv("PARLEY_EMAIL")
	}
	if password == "" {
		password = os.Getenv("PARLEY_PASSWORD")
	}

	token, err := provider.GetValidToken(ctx)
	if err != nil {
		if email == "" {
			log.Fatal("no stored session and no --email given")
		}
		creds, err := provider.Login(ctx, email, password)
		if err != nil {
			log.Fatal("login failed", zap.Error(err))
		}
		token = creds.AccessToken
	}

	store := state.NewStore(log)
	registry := call.NewRegistry(log)
	manager := session.NewManager(log, provider, store, registry, cfg.Server, cfg.Reconnect)

	printed := 0
	store.Subscribe(func() {
		msgs := store.Messages()
		for ; printed < len(msgs); printed++ {
			m := msgs[printed]
			fmt.Printf("[%s] %s: %s\n", m.CreatedAt, m.Sender.Email, m.Content)
		}
	})

	manager.Connect(ctx, token)
	defer manager.Disconnect()

	if groupID != "" {
		manager.JoinGroup(groupID)
		manager.LoadMessages("", groupID)
	} else if receiverID != "" {
		manager.LoadMessages(receiverID, "")
	}

	go readInput(manager)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		log.Info("shutting down", zap.String("signal", sig.String()))
	case <-ctx.Done():
	}
}

// readInput turns stdin lines into sendMessage intents for the selected
// conversation.
func readInput(manager *session.Manager) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		content := strings.TrimSpace(scanner.Text())
		if content == "" {
			continue
		}
		manager.SendMessage(chat.Message{
			Sender:     chat.Sender{ID: manager.CurrentUserID()},
			ReceiverID: receiverID,
			GroupID:    groupID,
			Content:    content,
			Type:       chat.MessageTypeText,
		})
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
