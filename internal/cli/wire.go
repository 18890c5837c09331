package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hashicorp/go-cleanhttp"
	"go.uber.org/zap"

	"folio/internal/admin"
	"folio/internal/auth"
	"folio/internal/config"
	"folio/internal/delivery"
	"folio/internal/gmail"
	"folio/internal/store"
	"folio/internal/supabase"
)

// backend is the row store and authenticator selected by configuration:
// the hosted store when configured, the local SQLite database otherwise.
type backend struct {
	rows  admin.SubmissionStore
	auth  auth.Authenticator
	local *store.SQLiteStore // nil for the hosted store
}

func (b *backend) Close() error {
	if b.local != nil {
		return b.local.Close()
	}
	return nil
}

func openBackend(cfg config.Config, log *zap.Logger) (*backend, error) {
	if cfg.Store.Remote() {
		log.Info("using hosted store", zap.String("url", cfg.Store.URL))
		c := supabase.New(cfg.Store.URL, cfg.Store.AnonKey, cleanhttp.DefaultPooledClient(), log.Named("store"))
		return &backend{rows: c, auth: c}, nil
	}

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	db, err := store.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	svc, err := auth.NewService(db, cfg.SessionSecret, cfg.SessionTTL, log.Named("auth"))
	if err != nil {
		db.Close()
		return nil, err
	}
	if cfg.SessionSecret == "change-me" {
		log.Warn("FOLIO_SESSION_SECRET is the default; set it before exposing the admin API")
	}
	log.Debug("using local store", zap.String("path", cfg.DBPath))
	return &backend{rows: db, auth: svc, local: db}, nil
}

// requireLocal fails commands that only make sense against the SQLite store.
func (b *backend) requireLocal(what string) (*store.SQLiteStore, error) {
	if b.local == nil {
		return nil, errors.New(what + " works only with the local store; unset FOLIO_STORE_URL")
	}
	return b.local, nil
}

// buildChain assembles the delivery channels in attempt order. launcher opens
// mailto links; nil means the link is only returned.
func buildChain(ctx context.Context, cfg config.Config, launcher delivery.Launcher, log *zap.Logger) *delivery.Chain {
	d := cfg.Delivery
	client := cleanhttp.DefaultPooledClient()

	gm := &delivery.Gmail{}
	if d.Gmail {
		sender, err := gmail.NewSender(ctx, cfg.ConfigDir)
		if err != nil {
			log.Warn("gmail channel disabled", zap.Error(err))
		} else {
			gm.Sender = sender
		}
	}

	channels := []delivery.Channel{
		&delivery.Web3Forms{AccessKey: d.Web3FormsAccessKey, Endpoint: d.Web3FormsEndpoint, Client: client},
		&delivery.EmailJS{
			ServiceID:  d.EmailJSServiceID,
			TemplateID: d.EmailJSTemplateID,
			PublicKey:  d.EmailJSPublicKey,
			Endpoint:   d.EmailJSEndpoint,
			Client:     client,
		},
		gm,
		&delivery.MailClient{Launcher: launcher},
	}
	return delivery.NewChain(channels,
		delivery.WithDemo(d.DemoMode, d.DemoDelay),
		delivery.WithAttemptTimeout(d.Timeout),
		delivery.WithLogger(log.Named("delivery")),
	)
}

// terminalLauncher opens mailto links with the desktop mail program.
var terminalLauncher = delivery.LauncherFunc(gmail.OpenURL)

func loadSite(cfg config.Config) (*config.Site, error) {
	site, err := config.LoadSite(cfg.SiteFile)
	if err != nil {
		return nil, err
	}
	site = site.WithOwner(cfg.OwnerName, cfg.OwnerEmail)
	return &site, nil
}

func owner(site *config.Site) admin.Owner {
	return admin.Owner{Name: site.Owner.Name, Email: site.Owner.Email}
}

// env bundles what most commands need.
type env struct {
	cfg     config.Config
	log     *zap.Logger
	site    *config.Site
	backend *backend
}

func (o *RootOptions) open(console bool) (*env, error) {
	cfg, err := o.load()
	if err != nil {
		return nil, err
	}
	log, err := cfg.Log.Prepare(console)
	if err != nil {
		return nil, fmt.Errorf("prepare logging: %w", err)
	}
	site, err := loadSite(cfg)
	if err != nil {
		return nil, err
	}
	b, err := openBackend(cfg, log)
	if err != nil {
		return nil, err
	}
	return &env{cfg: cfg, log: log, site: site, backend: b}, nil
}

func (e *env) Close() {
	if err := e.backend.Close(); err != nil {
		e.log.Warn("closing store", zap.Error(err))
	}
	_ = e.log.Sync()
}

func (e *env) dashboard(ctx context.Context, launcher delivery.Launcher) *admin.Dashboard {
	return e.dashboardWith(buildChain(ctx, e.cfg, launcher, e.log))
}

func (e *env) dashboardWith(sender admin.Sender) *admin.Dashboard {
	return admin.New(e.backend.rows, sender, owner(e.site), e.log.Named("admin"))
}
