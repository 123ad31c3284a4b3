package cli

import (
	"context"
	"os"

	urfave "github.com/urfave/cli/v3"
)

var schemaCmd = &urfave.Command{
	Name:   "schema",
	Usage:  "Print the feature order the configured model is fed",
	Action: cmdSchema,
}

func cmdSchema(ctx context.Context, cmd *urfave.Command) error {
	cfg := getConfig(cmd)

	svc, err := newService(ctx, cfg.Config)
	if err != nil {
		return err
	}

	return encode(os.Stdout, newSchemaResponse(svc, cfg.Contract))
}
