package main

import (
	"context"
	"fmt"
	"os"

	"openelex-backend/cmd/openelex/commands"
	"openelex-backend/lib/osutil"
	"openelex-backend/lib/telemetry"

	_ "openelex-backend/us/ia"
	_ "openelex-backend/us/md"
	_ "openelex-backend/us/wv"
)

func main() {
	ctx := osutil.SignalContext()

	t, err := telemetry.SetupFromEnv(ctx, "openelex")
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to setup telemetry:", err)
		os.Exit(1)
	}
	telemetry.InstrumentPerfStats(ctx)

	err = commands.ExecuteContext(ctx)
	t.Shutdown(context.Background())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
