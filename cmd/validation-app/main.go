// Command validation-app serves mock /s3, /rds and /health endpoints whose
// responses carry a per-request correlation id through every log line.
package main

import (
	"github.com/nimburion/validation-app/pkg/cli"
)

func main() {
	cli.Execute(cli.NewServiceCommand(cli.ServiceCommandOptions{
		Name:        "validation-app",
		Description: "Mock dependency validation service",
	}))
}
