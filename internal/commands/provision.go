package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli"

	"github.com/vzahanych/styleai/internal/gender"
	"github.com/vzahanych/styleai/internal/storage"
)

// ProvisionCommand registers the provision cli command.
var ProvisionCommand = cli.Command{
	Name:   "provision",
	Usage:  "Download the face cascade and gender model files",
	Flags:  []cli.Flag{configFlag},
	Action: provisionAction,
}

func provisionAction(ctx *cli.Context) error {
	cfg, log, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	defer log.Sync()

	store, disk := newArtifactStore(cfg, log)

	artifacts := []storage.Artifact{cascadeArtifact(cfg)}
	if cfg.Gender.Mode != "heuristic" && gender.BackendAvailable {
		artifacts = append(artifacts, newProvider(cfg, store, log).Artifacts()...)
	}

	var failed int
	for _, a := range artifacts {
		downloaded, err := store.Ensure(context.Background(), a)
		if err != nil {
			failed++
			fmt.Fprintf(ctx.App.Writer, "%-24s FAILED  %v\n", a.Name, err)
			continue
		}

		state := "present"
		if downloaded {
			state = "fetched"
		}
		size := "?"
		if fi, err := os.Stat(a.Path); err == nil {
			size = humanize.IBytes(uint64(fi.Size()))
		}
		fmt.Fprintf(ctx.App.Writer, "%-24s %-7s %s\n", a.Name, state, size)
	}

	if usage, err := disk.GetUsage(context.Background()); err == nil {
		fmt.Fprintf(ctx.App.Writer, "disk: %s\n", usage)
	}

	if failed > 0 {
		return cli.NewExitError(fmt.Sprintf("%d artifact(s) could not be provisioned", failed), 1)
	}
	return nil
}
