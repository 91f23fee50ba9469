package main

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"net/url"
	"os"
	"os/exec"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/spf13/pflag"

	"github.com/dhgwag/korail-reservation/config"
	"github.com/dhgwag/korail-reservation/database"
	"github.com/dhgwag/korail-reservation/frontend"
	"github.com/dhgwag/korail-reservation/handlers"
	"github.com/dhgwag/korail-reservation/korail"
	"github.com/dhgwag/korail-reservation/models"
	"github.com/dhgwag/korail-reservation/notify"
	"github.com/dhgwag/korail-reservation/services"
	"github.com/dhgwag/korail-reservation/supervisor"
)

const usage = `Usage:
  korail-reservation [serve] [flags]   run the control panel (default)
  korail-reservation reserve [flags]   run the reservation engine in the foreground
`

func main() {
	args := os.Args[1:]
	command := "serve"
	if len(args) > 0 && (args[0] == "serve" || args[0] == "reserve") {
		command, args = args[0], args[1:]
	}

	switch command {
	case "reserve":
		os.Exit(reserve(args))
	default:
		serve(args)
	}
}

func parseConfig(name string, args []string, extra func(fs *pflag.FlagSet)) (*config.Config, *config.Flags) {
	fs := pflag.NewFlagSet(name, pflag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		fs.PrintDefaults()
	}
	var flags config.Flags
	flags.Register(fs)
	if extra != nil {
		extra(fs)
	}
	_ = fs.Parse(args)

	cfg, err := config.Load(flags.SettingsFile)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := flags.Apply(fs, cfg); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	return cfg, &flags
}

func serve(args []string) {
	cfg, flags := parseConfig("serve", args, nil)
	log.Printf("Starting Korail reservation control panel")

	exe, err := os.Executable()
	if err != nil {
		log.Fatalf("Failed to locate executable: %v", err)
	}

	credentials := config.CredentialStore{Path: cfg.EnvFile, ExamplePath: cfg.EnvExampleFile}
	engineArgs := config.EngineArgs(cfg, flags.SettingsFile)

	sup := supervisor.New(func(runID string) (*exec.Cmd, error) {
		env, err := credentials.Read()
		if err != nil {
			return nil, err
		}
		argv := append([]string{"reserve", "--run-id", runID}, engineArgs...)
		cmd := exec.Command(exe, argv...)
		cmd.Env = config.Environ(os.Environ(), env)
		return cmd, nil
	}, supervisor.NewLineBuffer(supervisor.DefaultCapacity), log.Default())

	h := &handlers.Handler{
		Credentials: credentials,
		Criteria:    config.CriteriaStore{Path: cfg.CriteriaFile},
		Process:     sup,
		Logs:        sup.Buffer(),
		Heartbeat:   time.Second,
	}

	router := setupRouter(cfg, h)

	srv := &http.Server{
		Addr:    cfg.Addr,
		Handler: router,
	}

	go func() {
		log.Printf("Server starting on http://%s", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Let the engine print its closing lines so open log streams can end
	if done := sup.Done(); done != nil {
		if err := sup.Stop(); err == nil {
			select {
			case <-done:
			case <-ctx.Done():
				log.Println("Reservation run did not exit in time")
			}
		}
	}

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}

func setupRouter(cfg *config.Config, h *handlers.Handler) *gin.Engine {
	gin.SetMode(cfg.GinMode)

	router := gin.Default()

	// Only pages served from this machine may call the API
	router.Use(cors.New(cors.Config{
		AllowOriginFunc: isLoopbackOrigin,
		AllowMethods:    []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:    []string{"Origin", "Content-Type", "Accept", "Last-Event-ID"},
		ExposeHeaders:   []string{"Content-Length"},
		MaxAge:          12 * time.Hour,
	}))

	h.Register(router)

	router.GET("/", frontend.Index)
	router.GET("/index.html", frontend.Index)

	// 404 handler
	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Route not found"})
	})

	return router
}

func isLoopbackOrigin(origin string) bool {
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	host := u.Hostname()
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// reserve runs the engine in this process and returns the exit code
func reserve(args []string) int {
	var runID string
	cfg, _ := parseConfig("reserve", args, func(fs *pflag.FlagSet) {
		fs.StringVar(&runID, "run-id", "", "identifier recorded with each reservation")
	})

	// The supervisor captures stdout; every line carries a timestamp
	logger := log.New(os.Stdout, "", log.LstdFlags)
	log.SetOutput(os.Stdout)

	creds := config.LoadProcessCredentials(cfg.EnvFile)
	if creds.KorailID == "" || creds.KorailPW == "" {
		logger.Printf("%s and %s must be set", models.KeyKorailID, models.KeyKorailPW)
		return 1
	}

	criteria, err := config.CriteriaStore{Path: cfg.CriteriaFile}.Load()
	if err != nil {
		logger.Printf("Failed to load search configs: %v", err)
		return 1
	}

	opt, err := models.ParseReserveOption(cfg.ReserveOption)
	if err != nil {
		logger.Printf("Invalid reserve option: %v", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	notifier, err := notify.NewTelegram(creds.TelegramBotToken, creds.TelegramChatID, cfg.TelegramAPIURL, logger)
	if err != nil {
		logger.Printf("Telegram notifications disabled: %v", err)
		notifier = notify.Nop{}
	}

	journal, err := database.OpenJournal(ctx, cfg.JournalURL)
	if err != nil {
		logger.Printf("Reservation journal disabled: %v", err)
		journal = database.NewNoOpJournal()
	}
	defer journal.Close()

	client := korail.NewClient(cfg.KorailBaseURL, cfg.RequestTimeout, cfg.RequestsPerSecond, cfg.AdultPassengers)

	engine := services.NewEngine(client, notifier, journal, creds, criteria, services.EngineConfig{
		Interval:       cfg.SearchInterval,
		SessionRefresh: cfg.SessionRefresh,
		MaxAttempts:    cfg.MaxAttempts,
		ReserveOption:  opt,
		RunID:          runID,
	}, logger)

	// Run only fails on a rejected login, which it has already logged
	if err := engine.Run(ctx); err != nil {
		return 1
	}
	return 0
}
