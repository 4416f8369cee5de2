package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/urfave/cli"

	"github.com/vzahanych/styleai/internal/profile"
)

// AnalyzeCommand registers the analyze cli command.
var AnalyzeCommand = cli.Command{
	Name:      "analyze",
	Usage:     "Run the profile pipeline on a photo and print the result as JSON",
	ArgsUsage: "photo.jpg",
	Flags: []cli.Flag{
		configFlag,
		cli.StringFlag{
			Name:  "gender, g",
			Usage: "declared gender (Male or Female)",
		},
		cli.StringFlag{
			Name:  "age, a",
			Usage: "optional age group (0-9, 10-15, 16-25, 25-above)",
		},
	},
	Action: analyzeAction,
}

func analyzeAction(ctx *cli.Context) error {
	if ctx.NArg() != 1 {
		return cli.NewExitError("expected exactly one photo path", 2)
	}

	cfg, log, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	defer log.Sync()

	data, err := os.ReadFile(ctx.Args().First())
	if err != nil {
		return fmt.Errorf("failed to read photo: %w", err)
	}

	req, err := profile.NewRequest(data, ctx.String("gender"), ctx.String("age"))
	if err != nil {
		return cli.NewExitError(err.Error(), 2)
	}

	runCtx := context.Background()
	store, _ := newArtifactStore(cfg, log)

	locator, err := newLocator(runCtx, cfg, store)
	if err != nil {
		return err
	}

	provider := newProvider(cfg, store, log)
	defer provider.Close()

	prof, err := newPipeline(cfg, locator, provider, nil, log).Run(runCtx, req)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(ctx.App.Writer)
	enc.SetIndent("", "  ")
	if err := enc.Encode(prof); err != nil {
		return err
	}

	if !prof.Accepted {
		return cli.NewExitError("", 1)
	}
	return nil
}
