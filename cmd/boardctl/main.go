package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"github.com/danmuck/peerboard/internal/engine"
	"github.com/danmuck/peerboard/internal/logging"
	"github.com/danmuck/peerboard/internal/room"
)

var (
	configFlag = &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "path to a board config.toml",
		EnvVars: []string{"PEERBOARD_CONFIG"},
	}
	nameFlag = &cli.StringFlag{
		Name:  "name",
		Usage: "display name announced to peers",
	}
	listenFlag = &cli.StringFlag{
		Name:  "listen",
		Usage: "peer listener address",
	}
	apiFlag = &cli.StringFlag{
		Name:  "api",
		Usage: "local api address, empty disables the api",
	}
	tokenFlag = &cli.StringFlag{
		Name:    "api-token",
		Usage:   "bearer token required on mutating api routes",
		EnvVars: []string{"PEERBOARD_API_TOKEN"},
	}
	peerFlag = &cli.StringSliceFlag{
		Name:  "peer",
		Usage: "static peer address, repeatable",
	}
	noMDNSFlag = &cli.BoolFlag{
		Name:  "no-mdns",
		Usage: "disable LAN discovery",
	}
)

func main() {
	app := &cli.App{
		Name:  "boardctl",
		Usage: "serverless shared task board",
		Flags: []cli.Flag{configFlag, nameFlag, listenFlag, apiFlag, tokenFlag, peerFlag, noMDNSFlag},
		Before: func(*cli.Context) error {
			logging.ConfigureRuntime()
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:   "create",
				Usage:  "create a room under a fresh random topic",
				Action: createAction,
			},
			{
				Name:      "join",
				Usage:     "join a room by its hex topic",
				ArgsUsage: "<topic>",
				Action:    joinAction,
			},
		},
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "boardctl: %v\n", err)
		os.Exit(1)
	}
}

func createAction(c *cli.Context) error {
	cfg, err := serviceConfig(c)
	if err != nil {
		return err
	}
	svc := room.NewService(cfg, engine.Hooks{})
	return svc.RunUntilSignal(announceTopic(room.Create))
}

func joinAction(c *cli.Context) error {
	topic := strings.TrimSpace(c.Args().First())
	if topic == "" {
		return cli.Exit("join requires a topic", 2)
	}
	cfg, err := serviceConfig(c)
	if err != nil {
		return err
	}
	svc := room.NewService(cfg, engine.Hooks{})
	return svc.RunUntilSignal(announceTopic(room.JoinTopic(topic)))
}

// announceTopic prints the topic once the room is ready so it can be shared.
func announceTopic(start room.StartFunc) room.StartFunc {
	return func(ctx context.Context, s *room.Service) error {
		if err := start(ctx, s); err != nil {
			return err
		}
		go func() {
			select {
			case <-s.Ready():
				fmt.Println(s.Topic().String())
			case <-ctx.Done():
			}
		}()
		return nil
	}
}

// serviceConfig resolves defaults, then the config file, then flags.
func serviceConfig(c *cli.Context) (room.ServiceConfig, error) {
	cfg := room.DefaultServiceConfig()
	if path := c.String(configFlag.Name); path != "" {
		loaded, err := loadServiceConfig(path)
		if err != nil {
			return room.ServiceConfig{}, err
		}
		cfg = loaded
		log.Info().Str("path", path).Msg("boardctl config loaded")
	}
	if c.IsSet(nameFlag.Name) {
		cfg.Name = strings.TrimSpace(c.String(nameFlag.Name))
	}
	if c.IsSet(listenFlag.Name) {
		cfg.Swarm.ListenAddr = strings.TrimSpace(c.String(listenFlag.Name))
	}
	if c.IsSet(apiFlag.Name) {
		cfg.API.Addr = strings.TrimSpace(c.String(apiFlag.Name))
		cfg.ServeAPI = cfg.API.Addr != ""
	}
	if c.IsSet(tokenFlag.Name) {
		cfg.API.Token = strings.TrimSpace(c.String(tokenFlag.Name))
	}
	if c.IsSet(peerFlag.Name) {
		cfg.Swarm.Peers = normalizeList(c.StringSlice(peerFlag.Name))
	}
	if c.Bool(noMDNSFlag.Name) {
		cfg.Swarm.MDNS = false
	}
	if err := validateServiceConfig(cfg); err != nil {
		return room.ServiceConfig{}, err
	}
	return cfg, nil
}
