package app

import (
	"time"

	"go.uber.org/zap"

	"expense-cli/internal/api"
	"expense-cli/internal/auth"
	"expense-cli/internal/chat"
	"expense-cli/internal/expense"
)

// Application wires the client stack together: credentials, API client, chat
// controller and expense service all share one logger and one token source.
type Application struct {
	Cfg    Config
	Log    *zap.Logger
	Creds  *auth.Store
	Client *api.Client

	Chat       *chat.Store
	Dispatcher *chat.Dispatcher
	Thinking   *chat.Thinking
	Expenses   *expense.Service
}

// NewApplication builds the full stack from config. onThinkingChange lets the
// TUI hook indicator repaints; pass nil outside the TUI.
func NewApplication(cfg Config, onThinkingChange func()) (*Application, error) {
	log, err := NewLogger(cfg.LogFile, cfg.Debug)
	if err != nil {
		return nil, err
	}

	creds := auth.NewStore(DefaultCredentialsPath())
	client := api.NewClient(cfg.BaseURL, creds.Token, log)

	pager := chat.NewPager(client, cfg.PageSize, log)
	store := chat.NewStore(client, pager, log)
	thinking := chat.NewThinking(onThinkingChange)
	dispatcher := chat.NewDispatcher(store, client, thinking, chat.ReconcilePolicy(cfg.ReconcilePolicy), log)
	dispatcher.SetMinInterval(time.Duration(cfg.SendMinMillis) * time.Millisecond)

	return &Application{
		Cfg:        cfg,
		Log:        log,
		Creds:      creds,
		Client:     client,
		Chat:       store,
		Dispatcher: dispatcher,
		Thinking:   thinking,
		Expenses:   expense.NewService(client, log),
	}, nil
}

// ProbeInterval is the configured token liveness cadence.
func (a *Application) ProbeInterval() time.Duration {
	return time.Duration(a.Cfg.ProbeSeconds) * time.Second
}

// LoggedIn reports whether stored credentials exist. Liveness is the
// watcher's concern; this only gates startup.
func (a *Application) LoggedIn() bool {
	_, ok := a.Creds.Current()
	return ok
}

// ForceLogout clears stored credentials after the server rejected the token.
// Any operation that sees a 401 ends the session this way, not just the
// liveness probe.
func (a *Application) ForceLogout() {
	if err := a.Creds.Clear(); err != nil {
		a.Log.Error("clearing credentials", zap.Error(err))
	}
}

// NewAuthWatcher builds the liveness watcher for the current token. onLogout
// runs once when the session dies, after credentials are cleared.
func (a *Application) NewAuthWatcher(onLogout func()) *auth.Watcher {
	var expiry time.Time
	if creds, ok := a.Creds.Current(); ok {
		if exp, err := auth.TokenExpiry(creds.AccessToken); err == nil {
			expiry = exp
		} else {
			a.Log.Warn("token expiry unreadable", zap.Error(err))
		}
	}
	return &auth.Watcher{
		Check:    a.Client.CheckToken,
		Expiry:   expiry,
		Interval: a.ProbeInterval(),
		Log:      a.Log,
		OnLogout: func() {
			a.ForceLogout()
			if onLogout != nil {
				onLogout()
			}
		},
	}
}
