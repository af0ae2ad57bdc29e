package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/Zachkp/folio/internal/config"
	"github.com/Zachkp/folio/internal/contact"
	"github.com/Zachkp/folio/internal/goroutine"
	"github.com/Zachkp/folio/internal/logger"
	"github.com/Zachkp/folio/internal/portfolio"
	"github.com/Zachkp/folio/internal/session"
	"github.com/Zachkp/folio/internal/store"
	"github.com/Zachkp/folio/internal/web"
	"github.com/Zachkp/folio/internal/ws"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:   "folio",
	Short: "Personal portfolio with scroll achievements",
	Long: `folio serves a single page portfolio. Scrolling into a section, or
switching to dark mode, unlocks an achievement shown as a badge and a short
notice. Visitor statistics are kept anonymously for the admin area.`,
	SilenceUsage: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the web server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		return serve(cmd.Context(), cfg)
	},
}

var renderOutput string

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Write the page as a static HTML file",
	RunE: func(cmd *cobra.Command, args []string) error {
		return renderStatic(renderOutput)
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configFile)
		if err != nil {
			return err
		}
		out, err := cfg.YAML()
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(out)
		return err
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "folio.yaml", "config file")
	renderCmd.Flags().StringVarP(&renderOutput, "output", "o", "index.html", "output file")
	rootCmd.AddCommand(serveCmd, renderCmd, configCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

// loadConfig reads the configuration and sets up logging for it.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, err
	}

	logger.Init(cfg.LogLevel)
	if !cfg.IsProduction() {
		logger.SetTextFormatter()
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	return cfg, nil
}

// newServer wires the handlers to their dependencies.
func newServer(cfg *config.Config, st *store.Store, mailer contact.Mailer) (*server, error) {
	tmpl, err := web.Templates()
	if err != nil {
		return nil, err
	}
	admin, err := newAdminAuth(cfg)
	if err != nil {
		return nil, err
	}

	s := &server{
		cfg:       cfg,
		analytics: st,
		visits:    st,
		db:        st,
		mailer:    mailer,
		admin:     admin,
		tmpl:      tmpl,
	}
	// a session outlives its websockets; only the sweeper or eviction ends it
	s.hub = ws.NewHub(func(id uuid.UUID) { s.sessions.Touch(id) })
	s.sessions = session.NewManager(session.Options{
		TTL:         cfg.SessionTTL,
		NoticeUnit:  cfg.NoticeUnit,
		MaxSessions: cfg.MaxSessions,
		Publisher:   s.hub,
		Presence:    s.hub,
		Recorder:    st,
	})
	return s, nil
}

func serve(ctx context.Context, cfg *config.Config) error {
	st, err := store.Open(ctx, cfg.DatabasePath)
	if err != nil {
		return err
	}
	defer func() {
		if err := st.Close(); err != nil {
			logger.Log.WithError(err).Error("closing database")
		}
	}()
	if err := st.Migrate(ctx); err != nil {
		return err
	}

	mailer := contact.NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.ToEmail)
	if !cfg.SMTPConfigured() {
		logger.Log.Warn("SMTP credentials not configured, contact form will report errors")
	}

	s, err := newServer(cfg, st, mailer)
	if err != nil {
		return err
	}

	goroutine.SafeGoWithContext(ctx, s.hub.Run)
	goroutine.SafeGoWithContext(ctx, s.sessions.Run)
	goroutine.SafeGoWithContext(ctx, func(ctx context.Context) {
		s.cleanupVisitors(ctx, cfg.VisitorRetention)
		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.cleanupVisitors(ctx, cfg.VisitorRetention)
			}
		}
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           s.newRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	goroutine.SafeGo(func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Log.WithError(err).Error("stopping http server")
		}
	})

	logger.Log.WithField("port", cfg.Port).Info("http server started")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "http server")
	}
	logger.Log.Info("http server stopped")
	return nil
}

// renderStatic writes the page without live updates to path.
func renderStatic(path string) error {
	tmpl, err := web.Templates()
	if err != nil {
		return err
	}
	page, err := web.BuildPage("", portfolio.NewState(), nil)
	if err != nil {
		return err
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrapf(err, "creating %s", dir)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "creating %s", path)
	}
	if err := web.RenderPage(f, tmpl, page); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return errors.Wrapf(err, "writing %s", path)
	}
	fmt.Fprintf(os.Stdout, "wrote %s\n", path)
	return nil
}
