// Package app wires configuration, storage, the registration flow, and
// the bot runtime together.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/regbot/core/bootstrap"
	corecmd "github.com/m3rciful/regbot/core/cmd"
	"github.com/m3rciful/regbot/core/logger"
	coretelegram "github.com/m3rciful/regbot/core/telegram"
	"github.com/m3rciful/regbot/core/telegram/router"
	"github.com/m3rciful/regbot/internal/flow"
	"github.com/m3rciful/regbot/internal/notify"
	"github.com/m3rciful/regbot/internal/records"
	"github.com/m3rciful/regbot/internal/session"
	botgw "github.com/m3rciful/regbot/internal/telegram"
)

// App holds the assembled service graph.
type App struct {
	cfg      *Config
	db       *sqlx.DB
	sessions *session.MemoryManager
	sink     *records.Sink
	sender   *deferredSender
	machine  *flow.Machine
	handlers *botgw.Handlers
	health   *healthServer
}

// deferredSender satisfies notify.Sender before the bot exists; the
// real sender is attached once the runtime starts.
type deferredSender struct {
	inner atomic.Pointer[botgw.BotSender]
}

func (d *deferredSender) Send(ctx context.Context, operatorID int64, text string) error {
	if s := d.inner.Load(); s != nil {
		return s.Send(ctx, operatorID, text)
	}
	logger.TG.Warn("operator notify dropped",
		slog.String("event", "notify.no_transport"),
		slog.Int64("operator_id", operatorID),
	)
	return nil
}

// Bootstrap initializes logging, storage, and the service graph.
func Bootstrap(carrier corecmd.ConfigCarrier) (corecmd.TelegramApp, error) {
	cfg, ok := carrier.(*Config)
	if !ok {
		return nil, fmt.Errorf("app: unexpected config carrier %T", carrier)
	}

	res, err := bootstrap.Run(bootstrap.Options{
		Config:   cfg.CoreConfig(),
		Database: cfg.Database,
	})
	if err != nil {
		return nil, err
	}

	a := &App{
		cfg:      cfg,
		db:       res.DB,
		sessions: session.NewMemoryManager(),
		sender:   &deferredSender{},
	}

	table := records.NewPostgresTable(res.DB)
	a.sink = records.NewSink(table)

	notifier := notify.New(cfg.Core.Telegram.Operators, a.sender)
	a.machine = flow.NewMachine(a.sessions, a.sink, notifier, flow.Options{
		Districts: cfg.Bot.Districts,
	})

	a.handlers = botgw.NewHandlers(a.machine, a.sink, botgw.Options{
		Operators: cfg.Core.Telegram.Operators,
		GuidePath: cfg.Bot.GuidePath,
		PageSize:  cfg.Bot.UsersPageSize,
	})

	if cfg.Bot.HealthListen != "" {
		a.health = newHealthServer(cfg.Bot.HealthListen, a.db, a.sessions)
	}

	return a, nil
}

// TelegramRunOptions assembles routes and middleware for the runtime.
func (a *App) TelegramRunOptions() (coretelegram.RunOptions, error) {
	reg := botgw.BuildRegistry(a.handlers)
	fsm := botgw.NewFSMAdapter(a.handlers)

	textOpts, cbOpts := router.FallbacksFrom(a.handlers)
	routes := router.CommandRoutes(reg, router.CommandRouteOptions{
		Operators: a.cfg.Core.Telegram.Operators,
	})
	routes = append(routes, router.TextRoutes(fsm, reg, textOpts)...)
	routes = append(routes, router.CallbackRoute(reg, cbOpts))

	return coretelegram.RunOptions{
		Config:      a.cfg.CoreConfig(),
		Registry:    reg,
		Middlewares: coretelegram.DefaultMiddlewares(a.cfg.CoreConfig(), nil),
		Routes:      routes,
		OnStart: func(ctx context.Context, rt coretelegram.Runtime) error {
			a.sender.inner.Store(botgw.NewBotSender(rt.Bot))
			if a.health != nil {
				a.health.Start()
			}
			return nil
		},
		OnStop: func(ctx context.Context, rt coretelegram.Runtime) error {
			if a.health != nil {
				a.health.Stop(ctx)
			}
			return a.db.Close()
		},
	}, nil
}

// LoadConfigCarrier adapts LoadConfig to the runner's loader signature.
func LoadConfigCarrier(path string) (corecmd.ConfigCarrier, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}
