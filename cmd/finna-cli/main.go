package main

import (
	"openfinna-go/cmd/finna-cli/commands"
	"openfinna-go/lib/telemetry"
	"openfinna-go/lib/util/serviceutil"
)

func main() {
	ctx := serviceutil.SignalContext()
	telemetry.SetupFromEnv(ctx, "finna-cli")
	telemetry.InitSlog(true)
	commands.ExecuteContext(ctx)
}
