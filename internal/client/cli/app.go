package cli

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"

	"github.com/dmitrijs2005/qfin/internal/client/api"
	"github.com/dmitrijs2005/qfin/internal/client/authflow"
	"github.com/dmitrijs2005/qfin/internal/client/client"
	"github.com/dmitrijs2005/qfin/internal/client/config"
	"github.com/dmitrijs2005/qfin/internal/client/guard"
	"github.com/dmitrijs2005/qfin/internal/client/nav"
	"github.com/dmitrijs2005/qfin/internal/client/portfolio"
	"github.com/dmitrijs2005/qfin/internal/client/services"
	"github.com/dmitrijs2005/qfin/internal/client/session"
	"github.com/dmitrijs2005/qfin/internal/client/storage"
	"github.com/dmitrijs2005/qfin/internal/logging"
)

type App struct {
	config   *config.Config
	logger   logging.Logger
	store    session.Store
	view     *nav.Recorder
	auth     services.AuthService
	guard    *guard.Guard
	login    *authflow.LoginFlow
	register *authflow.RegisterFlow
	data     *portfolio.Service
	latest   portfolio.Latest
	reader   *bufio.Reader
	out      io.Writer
	db       *sql.DB
}

// NewApp opens the session database named by the config and wires the
// application on top of it.
func NewApp(ctx context.Context, c *config.Config, logger logging.Logger) (*App, error) {
	db, err := storage.InitDatabase(ctx, c.SessionDSN)
	if err != nil {
		logger.Error(ctx, "error initializing session database", "dsn", c.SessionDSN, "error", err)
		return nil, err
	}

	app, err := newApp(c, logger, session.NewSQLiteStore(db), os.Stdin, os.Stdout)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	app.db = db
	return app, nil
}

func newApp(c *config.Config, logger logging.Logger, store session.Store, in io.Reader, out io.Writer) (*App, error) {
	a := &App{config: c, logger: logger, store: store, reader: bufio.NewReader(in), out: out}

	a.view = nav.NewRecorder(nav.LandingPath, func(from, to string) {
		logger.Debug(context.Background(), "view changed", "from", from, "to", to)
		fmt.Fprintf(out, "-> %s\n", to)
	})
	terminator := session.NewTerminator(store, a.view, logger)

	identity, err := api.New("identity", c.IdentityServiceURL, c.IdentityTimeout, store, terminator, logger,
		api.WithPublicPaths(client.PublicPaths...))
	if err != nil {
		return nil, fmt.Errorf("identity client: %w", err)
	}
	// market data and simulation payloads are unbounded, like the data timeout
	dataClient, err := api.New("data", c.DataServiceURL, c.DataTimeout, store, terminator, logger,
		api.WithMaxResponseBody(0))
	if err != nil {
		return nil, fmt.Errorf("data client: %w", err)
	}

	a.auth = services.NewAuthService(client.NewHTTPClient(identity), store, a.view, logger)
	a.guard = guard.New(store, a.view, terminator, logger)
	a.login = authflow.NewLoginFlow(a.auth, a.view, logger)
	a.register = authflow.NewRegisterFlow(a.auth, a.view, logger)
	a.data = portfolio.NewService(dataClient)

	// a stored, still valid session resumes on the dashboard
	if a.auth.IsAuthenticated(context.Background()) {
		a.view.Navigate(context.Background(), nav.DashboardPath)
	}
	return a, nil
}

// Run starts the REPL and blocks until the user exits or input ends.
func (a *App) Run(ctx context.Context) {
	fmt.Fprintln(a.out, "Welcome to QFIN (type 'help' for commands)")
	runREPL(ctx, a, a.getStatus, bufio.NewScanner(a.reader))
}

// Close releases the session database.
func (a *App) Close() error {
	if a.db == nil {
		return nil
	}
	return a.db.Close()
}

func (a *App) isLoggedIn(ctx context.Context) bool {
	return a.auth.IsAuthenticated(ctx)
}

func (a *App) getStatus() string {
	s := ""
	if u, ok := a.auth.CurrentUser(context.Background()); ok {
		s = u.Username + " "
	}
	return fmt.Sprintf("(%s%s)", s, a.view.Current())
}

func (a *App) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}
