package root

import (
	dbcmd "github.com/parklogic/parksync/apps/cli/cmd/db"
	parkcmd "github.com/parklogic/parksync/apps/cli/cmd/park"
	sweepcmd "github.com/parklogic/parksync/apps/cli/cmd/sweep"
	tokencmd "github.com/parklogic/parksync/apps/cli/cmd/token"
)

func init() {
	Root().AddCommand(parkcmd.Command())
	Root().AddCommand(tokencmd.Command())
	Root().AddCommand(sweepcmd.Command())
	Root().AddCommand(dbcmd.Command())
}
