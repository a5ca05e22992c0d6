package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/joshdurbin/dynamic-qr/internal/cache"
	"github.com/joshdurbin/dynamic-qr/internal/cache/memory"
	redisCache "github.com/joshdurbin/dynamic-qr/internal/cache/redis"
	"github.com/joshdurbin/dynamic-qr/internal/config"
	"github.com/joshdurbin/dynamic-qr/internal/domain"
	"github.com/joshdurbin/dynamic-qr/internal/repository/sqlite"
	"github.com/joshdurbin/dynamic-qr/internal/service"
	"github.com/joshdurbin/dynamic-qr/internal/token"
	"github.com/joshdurbin/dynamic-qr/internal/transport/client"
	httpTransport "github.com/joshdurbin/dynamic-qr/internal/transport/http"
)

var rootCmd = &cobra.Command{
	Use:   "dynamic-qr",
	Short: "A dynamic QR code scan-resolution engine",
	Long:  "A QR code engine with conditional redirect rules, per-code versioning, contact tracking, and scan analytics, backed by SQLite with configurable caching (memory or Redis)",
}

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the QR engine server",
	RunE:  runServer,
}

var clientCmd = &cobra.Command{
	Use:   "client",
	Short: "Client commands for interacting with the server",
}

var createCmd = &cobra.Command{
	Use:   "create [DEFAULT_URL]",
	Short: "Create a QR code",
	Args:  cobra.ExactArgs(1),
	RunE:  runCreate,
}

var getCmd = &cobra.Command{
	Use:   "get [QR_ID]",
	Short: "Get a QR code",
	Args:  cobra.ExactArgs(1),
	RunE:  runGet,
}

var activateCmd = &cobra.Command{
	Use:   "activate [QR_ID]",
	Short: "Activate a QR code",
	Args:  cobra.ExactArgs(1),
	RunE:  runActivate,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List QR codes",
	RunE:  runList,
}

var analyticsCmd = &cobra.Command{
	Use:   "analytics [QR_ID]",
	Short: "Show analytics for a QR code",
	Args:  cobra.ExactArgs(1),
	RunE:  runAnalytics,
}

var campaignCmd = &cobra.Command{
	Use:   "campaign [CAMPAIGN_ID]",
	Short: "Show roll-up analytics for a campaign",
	Args:  cobra.ExactArgs(1),
	RunE:  runCampaignAnalytics,
}

func init() {
	// Server command flags
	serverCmd.Flags().StringP("port", "p", "8080", "Server port")
	serverCmd.Flags().String("server-url", "http://localhost:8080", "Public server URL (used in scan and image URLs)")
	serverCmd.Flags().String("db-path", "qr.db", "Database file path")

	// Cache configuration flags
	serverCmd.Flags().String("cache-backend", config.CacheBackendMemory, "Cache backend (memory or redis)")
	serverCmd.Flags().String("redis-addr", "localhost:6379", "Redis address (for the redis cache backend)")
	serverCmd.Flags().Duration("cache-ttl", redisCache.DefaultTTL, "Cache entry TTL (redis backend)")
	serverCmd.Flags().Int("cache-max-entries", memory.DefaultMaxEntries, "Maximum cached codes (memory backend)")

	// Token configuration flags
	serverCmd.Flags().String("token-prefix", token.DefaultConfig().Prefix, "Prefix for generated scan tokens")

	// Logging configuration flags
	serverCmd.Flags().BoolP("verbose", "v", false, "Enable verbose logging (HTTP requests/responses and error details)")

	// Client command flags
	clientCmd.PersistentFlags().StringP("server-url", "u", "http://localhost:8080", "Server URL")

	createCmd.Flags().String("journey-state", string(domain.JourneyLeadCapture), "Journey state for the new code")
	createCmd.Flags().String("event-type", "", "Event type for the new code")
	createCmd.Flags().String("campaign-id", "", "Campaign the code belongs to")
	createCmd.Flags().String("campaign-name", "", "Human-readable campaign name")

	listCmd.Flags().String("campaign-id", "", "Filter by campaign")
	listCmd.Flags().String("state", "", "Filter by lifecycle state")
	listCmd.Flags().String("journey-state", "", "Filter by journey state")
	listCmd.Flags().Int("limit", 0, "Maximum number of codes to return")

	// Add subcommands
	clientCmd.AddCommand(createCmd, getCmd, activateCmd, listCmd, analyticsCmd, campaignCmd)
	rootCmd.AddCommand(serverCmd, clientCmd)
}

func runServer(cmd *cobra.Command, args []string) error {
	// Get configuration from CLI flags
	port, _ := cmd.Flags().GetString("port")
	serverURL, _ := cmd.Flags().GetString("server-url")
	dbPath, _ := cmd.Flags().GetString("db-path")

	cacheBackend, _ := cmd.Flags().GetString("cache-backend")
	redisAddr, _ := cmd.Flags().GetString("redis-addr")
	cacheTTL, _ := cmd.Flags().GetDuration("cache-ttl")
	cacheMaxEntries, _ := cmd.Flags().GetInt("cache-max-entries")

	tokenPrefix, _ := cmd.Flags().GetString("token-prefix")
	verbose, _ := cmd.Flags().GetBool("verbose")

	cacheConfig := config.CacheConfig{
		Backend:    cacheBackend,
		RedisAddr:  redisAddr,
		TTL:        cacheTTL,
		MaxEntries: cacheMaxEntries,
	}

	// Create configuration
	cfg, err := config.New(port, serverURL, dbPath, cacheConfig, verbose, token.Config{Prefix: tokenPrefix})
	if err != nil {
		return fmt.Errorf("failed to create configuration: %w", err)
	}

	log.Printf("Starting QR engine server with config: port=%s", cfg.Server.Port)

	// Initialize database
	repo, err := sqlite.New(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}

	// Initialize token generator
	generator, err := token.NewUUIDGenerator(cfg.Token)
	if err != nil {
		return fmt.Errorf("failed to create token generator: %w", err)
	}
	log.Printf("Using %s token generator", generator.Type())

	// Initialize cache
	var codeCache cache.Cache
	switch cfg.Cache.Backend {
	case config.CacheBackendRedis:
		redisClient := goredis.NewClient(&goredis.Options{Addr: cfg.Cache.RedisAddr})
		codeCache = redisCache.New(redisClient, cfg.Cache.TTL)
		log.Printf("Using redis cache at %s", cfg.Cache.RedisAddr)
	default:
		codeCache = memory.New(cfg.Cache.MaxEntries)
		log.Printf("Using in-memory cache")
	}

	// Initialize service
	qr := service.NewQRService(repo, codeCache, generator, cfg.Server.ServerURL)
	defer func() {
		if err := qr.Close(); err != nil {
			log.Printf("Error closing service: %v", err)
		}
	}()

	// Create and start HTTP server
	server := httpTransport.NewServer(qr, cfg.Server.Port, cfg.Server.ServerURL, cfg.Logging.Verbose)

	// Set up graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Start server in a goroutine
	errChan := make(chan error, 1)
	go func() {
		errChan <- server.Start()
	}()

	// Wait for shutdown signal or server error
	select {
	case err := <-errChan:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	case sig := <-sigChan:
		log.Printf("Received signal %v, shutting down gracefully...", sig)

		// Create shutdown context with timeout
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		// Shutdown server
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("Error during server shutdown: %v", err)
		}
	}

	log.Println("Server stopped")
	return nil
}

func clientCommands(cmd *cobra.Command) (*client.Commands, context.Context, context.CancelFunc) {
	serverURL, _ := cmd.Flags().GetString("server-url")
	c := client.NewClient(serverURL)
	commands := client.NewCommands(c)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	return commands, ctx, cancel
}

func runCreate(cmd *cobra.Command, args []string) error {
	commands, ctx, cancel := clientCommands(cmd)
	defer cancel()

	journeyState, _ := cmd.Flags().GetString("journey-state")
	eventType, _ := cmd.Flags().GetString("event-type")
	campaignID, _ := cmd.Flags().GetString("campaign-id")
	campaignName, _ := cmd.Flags().GetString("campaign-name")

	return commands.Create(ctx, &domain.CreateRequest{
		JourneyState: domain.JourneyState(journeyState),
		EventType:    domain.EventType(eventType),
		CampaignID:   campaignID,
		CampaignName: campaignName,
		DefaultURL:   args[0],
	})
}

func runGet(cmd *cobra.Command, args []string) error {
	commands, ctx, cancel := clientCommands(cmd)
	defer cancel()

	return commands.Get(ctx, args[0])
}

func runActivate(cmd *cobra.Command, args []string) error {
	commands, ctx, cancel := clientCommands(cmd)
	defer cancel()

	return commands.Activate(ctx, args[0])
}

func runList(cmd *cobra.Command, args []string) error {
	commands, ctx, cancel := clientCommands(cmd)
	defer cancel()

	campaignID, _ := cmd.Flags().GetString("campaign-id")
	state, _ := cmd.Flags().GetString("state")
	journeyState, _ := cmd.Flags().GetString("journey-state")
	limit, _ := cmd.Flags().GetInt("limit")

	return commands.List(ctx, domain.ListFilter{
		CampaignID:   campaignID,
		State:        domain.State(state),
		JourneyState: domain.JourneyState(journeyState),
		Limit:        limit,
	})
}

func runAnalytics(cmd *cobra.Command, args []string) error {
	commands, ctx, cancel := clientCommands(cmd)
	defer cancel()

	return commands.Analytics(ctx, args[0])
}

func runCampaignAnalytics(cmd *cobra.Command, args []string) error {
	commands, ctx, cancel := clientCommands(cmd)
	defer cancel()

	return commands.CampaignAnalytics(ctx, args[0])
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
