package main

import "context"

// seed inserts the terms and slots reference data; re-running is a no-op.
func (cli *commandLine) seed() error {
	return cli.acaSvc.EnsureReferenceData(context.Background())
}
