package main

import (
	"context"
	"fmt"
	"time"
)

// expireInvitations closes pending group invitations older than the given
// number of days.
func (cli *commandLine) expireInvitations(days int) error {
	n, err := cli.groupSvc.ExpireInvitations(context.Background(), time.Duration(days)*24*time.Hour)
	if err != nil {
		return err
	}
	fmt.Printf("%d invitation(s) expired\n", n)
	return nil
}
