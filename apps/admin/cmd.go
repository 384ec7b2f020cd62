package main

import (
	"errors"
	"flag"
	"fmt"
	"syscall"

	"golang.org/x/term"

	"github.com/darasa-app/gumzo/core"
	"github.com/darasa-app/gumzo/core/group"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	conf     *core.Config
	groupSvc *group.Service
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  expireinvitations -days DAYS           - expire pending group invitations older than DAYS")
	fmt.Println("  removeattachment -bucket BUCKET -path PATH - remove an orphaned attachment from object storage")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	expireCmd := flag.NewFlagSet("expireinvitations", flag.ExitOnError)
	expireDays := expireCmd.Int("days", 7, "Expire pending invitations older than this many days.")

	removeCmd := flag.NewFlagSet("removeattachment", flag.ExitOnError)
	removeBucket := removeCmd.String("bucket", core.BucketChatFiles, "The storage bucket holding the object.")
	removePath := removeCmd.String("path", "", "The bucket-relative object path. The service key is prompted next if not configured.")

	switch args[1] {
	case "expireinvitations":
		if err := expireCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *expireDays <= 0 {
			expireCmd.Usage()
			return errHelp
		}
		return cli.expireInvitations(*expireDays)
	case "removeattachment":
		if err := removeCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *removePath == "" {
			removeCmd.Usage()
			return errHelp
		}
		if cli.conf.Storage.ServiceKey == "" {
			fmt.Print("Enter service key:")
			key, err := readPasswordFunc(syscall.Stdin)
			fmt.Println()
			if err != nil {
				return err
			}
			if len(key) == 0 {
				removeCmd.Usage()
				return errHelp
			}
			cli.conf.Storage.ServiceKey = string(key)
		}
		return cli.removeAttachment(*removeBucket, *removePath)
	default:
		cli.printUsage()
		return errHelp
	}
}
