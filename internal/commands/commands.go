// Package commands implements the styleai command line interface.
package commands

import (
	"github.com/urfave/cli"
)

var configFlag = cli.StringFlag{
	Name:   "config, c",
	Usage:  "path to configuration file",
	EnvVar: "STYLEAI_CONFIG",
}

// NewApp creates the CLI application. serve is the default command.
func NewApp(version, buildTime, gitCommit string) *cli.App {
	app := cli.NewApp()
	app.Name = "styleai"
	app.Usage = "Photo-based styling recommendation service"
	app.Version = version
	app.Flags = []cli.Flag{configFlag}
	app.Metadata = map[string]interface{}{
		"build_time": buildTime,
		"git_commit": gitCommit,
	}
	app.Commands = []cli.Command{
		ServeCommand,
		AnalyzeCommand,
		ProvisionCommand,
	}
	app.Action = serveAction
	return app
}

// configPath prefers the command flag over the global one
func configPath(ctx *cli.Context) string {
	if p := ctx.String("config"); p != "" {
		return p
	}
	return ctx.GlobalString("config")
}
