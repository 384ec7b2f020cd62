package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"
	"os"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	echoapi "github.com/darasa-app/gumzo/apps/api/echo"
	"github.com/darasa-app/gumzo/core"
	"github.com/darasa-app/gumzo/core/attachment"
	"github.com/darasa-app/gumzo/core/chat"
	"github.com/darasa-app/gumzo/core/group"
	"github.com/darasa-app/gumzo/core/profile"
	emailsvc "github.com/darasa-app/gumzo/services/email"
	logsvc "github.com/darasa-app/gumzo/services/logger"
	"github.com/darasa-app/gumzo/services/realtime"
	"github.com/darasa-app/gumzo/storage/database"
	sqlxrepos "github.com/darasa-app/gumzo/storage/database/sqlx"
	"github.com/darasa-app/gumzo/storage/object"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	// set up loggers
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)

	dbLogger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	dbLogger.Enable(!conf.Debug)

	// set up DB
	db, err := database.Open(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("opening database: %v", err), err)
	}
	defer func() {
		if err = db.Close(); err != nil {
			dbLogger.Fatal("Failed to close", err)
		}
	}()
	if err = database.Ping(db); err != nil {
		dbLogger.Fatal(fmt.Sprintf("pinging database: %v", err), err)
	}

	// set up realtime feed
	var feed core.Feed
	if conf.Realtime.URL != "" {
		if feed, err = realtime.Dial(conf, logger); err != nil {
			logger.Fatal(fmt.Sprintf("connecting realtime feed: %v", err), err)
		}
	} else {
		feed = realtime.NewInProcessFeed()
	}
	defer func() { _ = feed.Close() }()

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}

	storageClient := object.NewClient(conf)
	pipeline := attachment.NewPipeline(storageClient, conf)

	profileSvc := profile.NewService(sqlxrepos.NewProfileRepository(db), profile.NewCache())
	chatSvc := chat.NewService(sqlxrepos.NewMessageRepository(db), pipeline, feed, profileSvc, logger)
	groupSvc := group.NewService(sqlxrepos.NewGroupRepository(db), mailSvc, profileSvc, conf)

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	validate := validator.New()
	translator := newTranslator()
	core.InitValidators(validate, translator)

	core.ParseEmailTemplates(conf, logger)

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(
		echoapi.ServerDeps{
			Conf:       conf,
			Logger:     logger,
			ChatSvc:    chatSvc,
			GroupSvc:   groupSvc,
			ProfileSvc: profileSvc,
			Validate:   validate,
			Translator: translator,
		},
	)

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}
