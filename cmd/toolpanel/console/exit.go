package console

import (
	"fmt"

	"github.com/urfave/cli/v2"
)

// Exit codes of the cli.
const (
	CodeUsage     = 2
	CodeLink      = 3
	CodeToolError = 4
)

func Exit(code int, msg string, args ...interface{}) cli.ExitCoder {
	return cli.Exit(fmt.Sprintf(msg, args...), code)
}
