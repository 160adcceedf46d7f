package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/dmitrijs2005/contactbook/internal/client/config"
	"github.com/dmitrijs2005/contactbook/internal/cryptox"
	"github.com/dmitrijs2005/contactbook/internal/dbx"
	"github.com/dmitrijs2005/contactbook/internal/logging"
	"github.com/dmitrijs2005/contactbook/internal/server/models"
	"github.com/dmitrijs2005/contactbook/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/contactbook/internal/server/services"
)

// UserService is the part of services.UserService the client uses.
type UserService interface {
	Register(ctx context.Context, username, password string, email *string) (*models.Identity, error)
	Login(ctx context.Context, username, password string) (*models.Identity, error)
	ChangePassword(ctx context.Context, identity *models.Identity, oldPassword, newPassword string) error
}

// ContactService is the part of services.ContactService the client uses.
type ContactService interface {
	Add(ctx context.Context, ownerID int64, nome, telefone string, email *string) (*models.Contact, error)
	List(ctx context.Context, ownerID int64) ([]*models.Contact, error)
	Search(ctx context.Context, ownerID int64, term string) ([]*models.Contact, error)
	Update(ctx context.Context, ownerID int64, currentPhone, nome, telefone string, email *string) (*models.Contact, error)
	Remove(ctx context.Context, ownerID int64, telefone string) error
}

type App struct {
	users    UserService
	contacts ContactService
	identity *models.Identity
	reader   *bufio.Reader
	out      io.Writer
	closeFn  func() error
}

// openPool is a seam for tests.
var openPool = func(ctx context.Context, dsn string, cfg dbx.PoolConfig) (*dbx.Pool, error) {
	return dbx.Open(ctx, "pgx", dsn, cfg)
}

// NewApp connects to the database, makes sure the schema exists and wires
// the services.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	// diagnostics go to stderr so they do not interleave with command output
	logger := logging.NewTextLogger(os.Stderr, slog.LevelWarn)

	hasher, err := cryptox.NewPasswordHasher(c.BcryptCost)
	if err != nil {
		return nil, err
	}

	pool, err := openPool(ctx, c.DatabaseDSN, dbx.PoolConfig{
		MaxConns:       c.MaxConns,
		MaxIdleConns:   c.MaxConns,
		AcquireTimeout: c.AcquireTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("error connecting to database: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, pool.DB()); err != nil {
		_ = pool.Close()
		return nil, err
	}

	return newApp(
		services.NewUserService(pool, rm, hasher, logger),
		services.NewContactService(pool, rm, logger),
		os.Stdin, os.Stdout, pool.Close,
	), nil
}

func newApp(us UserService, cs ContactService, in io.Reader, out io.Writer, closeFn func() error) *App {
	return &App{
		users:    us,
		contacts: cs,
		reader:   bufio.NewReader(in),
		out:      out,
		closeFn:  closeFn,
	}
}

func (a *App) isLoggedIn() bool {
	return a.identity != nil
}

func (a *App) getStatus() string {
	if a.identity == nil {
		return ""
	}
	return fmt.Sprintf("(%s)", a.identity.UserName)
}

// Run starts the REPL and releases the pool when the user leaves.
func (a *App) Run(ctx context.Context) {
	defer func() {
		if a.closeFn != nil {
			_ = a.closeFn()
		}
	}()

	printlnFn("Welcome to contactbook (type 'help' for commands)")
	runREPL(ctx, a, a.getStatus, a.reader)
}
