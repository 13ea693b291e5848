package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"casatrack/config"
	"casatrack/helpers"
	"casatrack/internal/crawl"
	"casatrack/internal/store"
	"casatrack/logger"
	"casatrack/services/cache"
	"casatrack/services/publisher"
)

func main() {
	// Load environment variables
	godotenv.Load()

	// Initialize logger first
	logger.Init()
	log := logger.Default

	var (
		category    = flag.String("category", "", "crawl only this category (sale, rental, vacation, new_project)")
		subcategory = flag.String("subcategory", "", "crawl only this subcategory (casas, apartamentos, ...)")
		region      = flag.String("region", "", "narrow list pages to a region slug (prov-panama, ...)")
		maxPages    = flag.Int("max-pages", 0, "pages per category, 0 uses the configured default")
		full        = flag.Bool("full", false, "deep crawl with the full-crawl page cap")
		detailOnly  = flag.Bool("detail-only", false, "skip list pages, fetch pending detail pages instead")
		logLevel    = flag.String("log-level", "", "override log level for this run")
	)
	flag.Parse()

	if *logLevel != "" {
		logger.SetLevel(*logLevel)
	}

	// Load and validate configuration
	cfg := config.LoadConfig()
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	log.Info().
		Str("environment", cfg.Environment).
		Str("baseUrl", cfg.BaseURL).
		Msg("Starting casatrack crawler")

	// Set up context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Set up signal handling
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	// Initialize services
	services, err := initializeServices(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize services")
	}
	defer services.Cleanup()

	orch := crawl.NewOrchestrator(cfg, services.Store, services.Publisher, services.Blocks, helpers.FetchPage)

	err = orch.Run(ctx, crawl.Options{
		Category:    *category,
		Subcategory: *subcategory,
		Region:      *region,
		MaxPages:    *maxPages,
		Full:        *full,
		DetailOnly:  *detailOnly,
	})
	if err != nil {
		log.Error().Err(err).Msg("Crawl run exited with error")
		services.Cleanup()
		os.Exit(1)
	}

	log.Info().Msg("Crawl run finished")
}

// Services holds all the initialized services
type Services struct {
	Store     *store.Store
	Blocks    cache.BlockList
	Publisher publisher.Publisher
}

// Cleanup cleans up all services
func (s *Services) Cleanup() {
	if s.Publisher != nil {
		s.Publisher.Close()
	}
	if s.Store != nil {
		s.Store.Close()
	}
}

// initializeServices initializes all required services
func initializeServices(ctx context.Context, cfg *config.Config) (*Services, error) {
	st, err := store.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return nil, err
	}

	return &Services{
		Store:     st,
		Blocks:    cache.NewMemcacheBlockList(cfg.MemcacheAddr),
		Publisher: publisher.NewRedisPublisher(cfg.RedisAddr, cfg.RedisDB, cfg.RedisStream, cfg.RedisStreamMaxLen),
	}, nil
}
