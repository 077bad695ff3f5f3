package main

import (
	"context"
	"tokenwatch-backend/cmd/tokenwatch-cli/commands"
	"tokenwatch-backend/lib/serviceutil"
	"tokenwatch-backend/lib/telemetry"

	"github.com/joho/godotenv"
)

func main() {
	godotenv.Load()

	ctx := serviceutil.SignalContext()
	err := telemetry.SetupFromEnv(ctx, "tokenwatch-cli")
	if err != nil {
		serviceutil.Fatal("failed to setup telemetry", err)
	}
	defer telemetry.Shutdown(context.Background())

	commands.ExecuteContext(ctx)
}
