package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/darasa-app/gumzo/core"
	"github.com/darasa-app/gumzo/core/chat"
	"github.com/darasa-app/gumzo/core/group"
	"github.com/darasa-app/gumzo/core/profile"
)

type (
	ServerDeps struct {
		Conf       *core.Config
		Logger     core.Logger
		ChatSvc    *chat.Service
		GroupSvc   *group.Service
		ProfileSvc *profile.Service
		Validate   *validator.Validate
		Translator ut.Translator
	}

	Server interface {
		http.Handler
		Start()
		Errors() chan error
		ShutdownSignal() chan os.Signal
		Shutdown(context.Context) error
		Close() error
	}

	server struct {
		deps     ServerDeps
		app      *echo.Echo
		errs     chan error
		shutdown chan os.Signal
	}
)

var _ Server = (*server)(nil)

func NewServer(deps ServerDeps) Server {
	s := &server{
		deps:     deps,
		app:      echo.New(),
		errs:     make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	s.setup()
	return s
}

func (s *server) setup() {
	conf := s.deps.Conf

	s.app.Pre(middleware.RemoveTrailingSlash())
	if !conf.TestMode {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.SignalShutdown)
	s.app.Debug = conf.Debug
	s.app.HideBanner = true

	s.app.GET("/", home)

	v1 := s.app.Group("/v1")
	jwt := middleware.JWTWithConfig(newJWTConfig(conf))

	registerProfileAPI(v1, jwt, s.deps.ProfileSvc)
	registerGroupAPI(v1, jwt, s.deps.GroupSvc, s.deps.Validate)
	registerChatAPI(v1, jwt, s.deps)
}

func (s *server) Start() {
	s.deps.Logger.Info("API server listening on " + s.deps.Conf.Server.APIHost)
	if err := s.app.Start(s.deps.Conf.Server.APIHost); err != nil && err != http.ErrServerClosed {
		s.errs <- err
	}
}

func (s *server) Errors() chan error { return s.errs }

func (s *server) ShutdownSignal() chan os.Signal { return s.shutdown }

// SignalShutdown is used to gracefully shutdown the Server when an integrity
// issue is identified.
func (s *server) SignalShutdown() {
	s.shutdown <- syscall.SIGTERM
}

func (s *server) Shutdown(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *server) Close() error {
	return s.app.Close()
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to Gumzo API!")
}
