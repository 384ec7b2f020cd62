package main

import (
	"log"
	"os"

	"github.com/darasa-app/gumzo/core"
	"github.com/darasa-app/gumzo/core/group"
	"github.com/darasa-app/gumzo/core/profile"
	emailsvc "github.com/darasa-app/gumzo/services/email"
	"github.com/darasa-app/gumzo/storage/database"
	sqlxrepos "github.com/darasa-app/gumzo/storage/database/sqlx"
)

var logger *log.Logger // todo: logger service

func main() {
	defer os.Exit(0)

	logger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	conf := core.NewConfig()

	// set up DB
	db, err := database.Open(conf)
	errAndDie(err)
	defer db.Close()
	errAndDie(database.Ping(db))

	profileSvc := profile.NewService(sqlxrepos.NewProfileRepository(db), profile.NewCache())

	// start CLI
	cli := commandLine{
		conf:     conf,
		groupSvc: group.NewService(sqlxrepos.NewGroupRepository(db), emailsvc.NewConsoleService(conf), profileSvc, conf),
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err)
	}
}
