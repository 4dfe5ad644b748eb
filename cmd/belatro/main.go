// cmd/belatro/main.go
package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"github.com/jason-s-yu/belatro/internal/api"
	"github.com/jason-s-yu/belatro/internal/auth"
	"github.com/jason-s-yu/belatro/internal/cache"
	"github.com/jason-s-yu/belatro/internal/config"
	"github.com/jason-s-yu/belatro/internal/session"
	_ "github.com/joho/godotenv/autoload"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// app is what every subcommand runs against.
type app struct {
	cfg   *config.Config
	log   *logrus.Logger
	sess  *session.Session
	api   *api.Client
	rdb   *redis.Client
	out   io.Writer
	stdin *bufio.Reader
}

type command struct {
	usage string
	run   func(ctx context.Context, a *app, args []string) error
}

var commands = map[string]command{
	"login":         {"login <username>", cmdLogin},
	"signup":        {"signup <username> <email>", cmdSignup},
	"logout":        {"logout", cmdLogout},
	"whoami":        {"whoami", cmdWhoami},
	"profile":       {"profile [-username <name>] [-email <email>] [-password <pw>]", cmdProfile},
	"users":         {"users [query]", cmdUsers},
	"lobbies":       {"lobbies [-all]", cmdLobbies},
	"lobby":         {"lobby <lobbyId>", cmdLobby},
	"lobby-create":  {"lobby-create -name <name> [-ranked] [-password <pw>]", cmdLobbyCreate},
	"lobby-join":    {"lobby-join <lobbyId> [-password <pw>]", cmdLobbyJoin},
	"lobby-team":    {"lobby-team <lobbyId> A|B", cmdLobbyTeam},
	"lobby-start":   {"lobby-start <lobbyId>", cmdLobbyStart},
	"lobby-leave":   {"lobby-leave <lobbyId>", cmdLobbyLeave},
	"lobby-kick":    {"lobby-kick <lobbyId> <username>", cmdLobbyKick},
	"lobby-delete":  {"lobby-delete <lobbyId>", cmdLobbyDelete},
	"friends":       {"friends", cmdFriends},
	"friend-add":    {"friend-add <username>", cmdFriendAdd},
	"friend-accept": {"friend-accept <friendshipId>", cmdFriendAccept},
	"friend-reject": {"friend-reject <friendshipId>", cmdFriendReject},
	"friend-cancel": {"friend-cancel <friendshipId>", cmdFriendCancel},
	"friend-remove": {"friend-remove <friendshipId>", cmdFriendRemove},
	"history":       {"history [-page n] [-size n]", cmdHistory},
	"match":         {"match <matchId> [-moves]", cmdMatch},
	"ranked":        {"ranked", cmdRanked},
	"play":          {"play <matchId>", cmdPlay},
}

func usage(w io.Writer) {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	fmt.Fprintln(w, "usage: belatro <command> [args]")
	for _, name := range names {
		fmt.Fprintf(w, "  %s\n", commands[name].usage)
	}
}

func main() {
	if len(os.Args) < 2 {
		usage(os.Stderr)
		os.Exit(2)
	}
	cmd, ok := commands[os.Args[1]]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q\n", os.Args[1])
		usage(os.Stderr)
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}
	logger := config.NewLogger(cfg.LogLevel)
	logger.SetOutput(os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("startup failed: %v", err)
	}
	defer a.close()

	if err := cmd.run(ctx, a, os.Args[2:]); err != nil {
		fmt.Fprintln(os.Stderr, api.UserMessage(err))
		logger.WithError(err).Debug("command failed")
		os.Exit(1)
	}
}

func newApp(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (*app, error) {
	a := &app{cfg: cfg, log: logger, out: os.Stdout, stdin: bufio.NewReader(os.Stdin)}

	var store session.Store
	switch cfg.Store {
	case "redis":
		rdb, err := cache.Connect(ctx, cfg.RedisAddr, cfg.RedisDB)
		if err != nil {
			return nil, err
		}
		a.rdb = rdb
		store = cache.NewRedisStore(rdb, "belatro:session:", 0)
	default:
		store = session.NewFileStore(cfg.StateFile)
	}
	if cfg.StoreKey != "" {
		sealer, err := auth.NewSealer(cfg.StoreKey, auth.DefaultParams)
		if err != nil {
			return nil, err
		}
		store = session.NewSealedStore(store, sealer, session.SecretKeys...)
	}

	a.sess = session.New(store, nil, logger)
	if err := a.sess.Hydrate(ctx); err != nil {
		return nil, err
	}

	client, err := api.NewClient(cfg.APIURL, a.sess, logger)
	if err != nil {
		return nil, err
	}
	a.api = client
	return a, nil
}

func (a *app) close() {
	if a.rdb != nil {
		a.rdb.Close()
	}
}

// journalClient returns a Redis client for match journaling, connecting
// on first use when the session store is not already Redis.
func (a *app) journalClient(ctx context.Context) (*redis.Client, error) {
	if a.rdb != nil {
		return a.rdb, nil
	}
	rdb, err := cache.Connect(ctx, a.cfg.RedisAddr, a.cfg.RedisDB)
	if err != nil {
		return nil, err
	}
	a.rdb = rdb
	return rdb, nil
}

// prompt reads one line from stdin after printing label.
func (a *app) prompt(label string) (string, error) {
	fmt.Fprint(a.out, label)
	line, err := a.stdin.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
