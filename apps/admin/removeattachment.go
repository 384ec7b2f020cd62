package main

import (
	"context"
	"fmt"

	"github.com/darasa-app/gumzo/storage/object"
)

// removeAttachment deletes an orphaned object left behind by a failed send.
func (cli *commandLine) removeAttachment(bucket, path string) error {
	client := object.NewClient(cli.conf)
	if err := client.Remove(context.Background(), bucket, path); err != nil {
		return err
	}
	fmt.Printf("removed %s/%s\n", bucket, path)
	return nil
}
