package main

import (
	"bufio"
	"context"
	"embed"
	"fmt"
	"html/template"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/google/logger"
	"github.com/pkg/browser"

	"prizedraw/internal/config"
	"prizedraw/internal/handlers"
	"prizedraw/internal/metrics"
	"prizedraw/internal/models"
	"prizedraw/internal/services"
	"prizedraw/internal/twitter"
)

//go:embed all:templates
var templateFS embed.FS

func main() {
	os.Exit(run())
}

func run() int {
	// 1. Load configuration; nothing touches the network before it is valid.
	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}
	drawCfg, err := cfg.DrawConfig()
	if err != nil {
		logger.Fatalf("Invalid draw configuration: %v", err)
	}

	// 2. Initialize logging.
	var logFile io.Writer = io.Discard
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o640)
		if err != nil {
			logger.Fatalf("Failed to open log file: %v", err)
		}
		defer f.Close()
		logFile = f
	}
	defer logger.Init("prizedraw", true, false, logFile).Close()

	// 3. Load HTML templates from the embedded filesystem.
	templates, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		logger.Fatalf("Failed to parse templates: %v", err)
	}

	// 4. Wire the pipeline.
	m := metrics.New()
	platform := twitter.NewClient(cfg.API.BaseURL, cfg.BearerToken,
		twitter.WithRate(cfg.API.RPS),
		twitter.WithMetrics(m),
	)
	broker := services.NewAuthorizationBroker(services.BrokerConfig{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURL(),
		AuthURL:      cfg.API.AuthURL,
		TokenURL:     cfg.API.TokenURL,
		Timeout:      cfg.AuthTimeout,
	}, func(handoff chan<- models.Callback) services.Receiver {
		return handlers.NewRedirectReceiver(cfg.RedirectAddr, templates, handoff)
	}, browser.OpenURL)
	drawService := services.NewDrawService(
		broker,
		services.NewSignalCollector(platform, m),
		services.NewWinnerSelector(nil),
		m,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	// 5. Run the draw.
	result, err := drawService.Run(ctx, drawCfg)
	if err != nil {
		if failed := models.FailedSignals(err); len(failed) > 0 {
			fmt.Printf("\nDraw failed: could not fetch %v\n", failed)
		}
		logger.Errorf("Draw failed: %v", err)
		return 1
	}

	printSummary(result)
	if result.Outcome == models.OutcomeNoEligible {
		fmt.Println("No eligible participants found.")
		return 0
	}

	// 6. Present the winners until the user acknowledges.
	if err := present(ctx, cfg.ResultsAddr, templates, result.Winners, m); err != nil {
		logger.Errorf("Failed to show results: %v", err)
		return 1
	}
	return 0
}

func printSummary(result *models.DrawResult) {
	fmt.Println("\nSummary:")
	fmt.Printf("• %d users liked\n", result.Counts.Likes)
	fmt.Printf("• %d users retweeted\n", result.Counts.Reshares)
	fmt.Printf("• %d users replied with mentions\n", result.Counts.Replies)
	fmt.Printf("• %d users met all criteria\n", result.Counts.Eligible)

	if len(result.Winners) == 0 {
		return
	}
	fmt.Printf("\nSelected %d winner(s):\n", len(result.Winners))
	for i, w := range handlers.WinnerViews(result.Winners) {
		fmt.Printf("%d. %s\n", i+1, w.Label)
		fmt.Printf("   Profile: %s\n", w.ProfileURL)
	}
}

func present(ctx context.Context, addr string, templates *template.Template, winners map[string]string, m *metrics.Metrics) error {
	srv := handlers.NewResultsServer(addr, templates, winners, m.Handler())
	if err := srv.Start(); err != nil {
		return err
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Stop(stopCtx); err != nil {
			logger.Warningf("Stopping results server: %v", err)
		}
	}()

	if err := browser.OpenURL(srv.URL()); err != nil {
		logger.Warningf("Cannot open browser, visit %s: %v", srv.URL(), err)
	}
	fmt.Print("\nPress Enter to close the results window...")
	waitForEnter(ctx, os.Stdin)
	return nil
}

func waitForEnter(ctx context.Context, in io.Reader) {
	done := make(chan struct{})
	go func() {
		_, _ = bufio.NewReader(in).ReadString('\n')
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}
}
