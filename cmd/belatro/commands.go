// cmd/belatro/commands.go
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"strings"
	"text/tabwriter"

	"github.com/jason-s-yu/belatro/internal/api"
	"github.com/jason-s-yu/belatro/internal/models"
	"github.com/jason-s-yu/belatro/internal/session"
)

// parseArgs parses flags that may appear before, between or after positional
// arguments and returns the positionals.
func parseArgs(fs *flag.FlagSet, args []string, want int) ([]string, error) {
	fs.SetOutput(io.Discard)
	var pos []string
	for {
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		args = fs.Args()
		if len(args) == 0 {
			break
		}
		pos = append(pos, args[0])
		args = args[1:]
	}
	if len(pos) < want {
		return nil, fmt.Errorf("%s: expected %d argument(s), got %d", fs.Name(), want, len(pos))
	}
	return pos, nil
}

func (a *app) me() (models.UserRef, error) {
	u, err := a.sess.User()
	if errors.Is(err, session.ErrNotLoggedIn) {
		return u, errors.New("not logged in, run: belatro login <username>")
	}
	return u, err
}

func (a *app) forgetLobbyPassword(ctx context.Context, lobbyID string) {
	if err := a.sess.ForgetLobbyPassword(ctx, lobbyID); err != nil {
		a.log.WithError(err).WithField("lobby_id", lobbyID).Warn("failed to forget lobby password")
	}
}

func (a *app) table() *tabwriter.Writer {
	return tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
}

/* account */

func cmdLogin(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	password := fs.String("password", "", "password (prompted when empty)")
	pos, err := parseArgs(fs, args, 1)
	if err != nil {
		return err
	}
	if *password == "" {
		if *password, err = a.prompt("password: "); err != nil {
			return err
		}
	}
	res, err := a.api.Login(ctx, pos[0], *password)
	if err != nil {
		return err
	}
	if err := a.sess.Login(ctx, res); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "logged in as %s\n", res.User.Username)
	return nil
}

func cmdSignup(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("signup", flag.ContinueOnError)
	password := fs.String("password", "", "password (prompted when empty)")
	pos, err := parseArgs(fs, args, 2)
	if err != nil {
		return err
	}
	if *password == "" {
		if *password, err = a.prompt("password: "); err != nil {
			return err
		}
	}
	res, err := a.api.Signup(ctx, models.SignupRequest{Username: pos[0], Email: pos[1], Password: *password})
	if err != nil {
		return err
	}
	if err := a.sess.Login(ctx, res); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "welcome, %s\n", res.User.Username)
	return nil
}

func cmdLogout(ctx context.Context, a *app, _ []string) error {
	if err := a.sess.Logout(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "logged out")
	return nil
}

func cmdWhoami(ctx context.Context, a *app, _ []string) error {
	me, err := a.me()
	if err != nil {
		return err
	}
	u, err := a.api.GetUser(ctx, me.ID)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s (%s)\nelo %d, level %d, %d games played\n",
		u.Username, u.ID, u.EloRating, u.Level, u.GamesPlayed)
	return nil
}

func cmdProfile(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("profile", flag.ContinueOnError)
	username := fs.String("username", "", "new username")
	email := fs.String("email", "", "new email")
	password := fs.String("password", "", "password (prompted when empty)")
	if _, err := parseArgs(fs, args, 0); err != nil {
		return err
	}
	me, err := a.me()
	if err != nil {
		return err
	}
	current, err := a.api.GetUser(ctx, me.ID)
	if err != nil {
		return err
	}
	update := models.UserUpdate{Username: current.Username, Email: current.Email}
	if *username != "" {
		update.Username = *username
	}
	if *email != "" {
		update.Email = *email
	}
	if *password == "" {
		if *password, err = a.prompt("password: "); err != nil {
			return err
		}
	}
	update.PasswordHashed = *password

	u, err := a.api.UpdateUser(ctx, me.ID, update)
	if err != nil {
		return err
	}
	if err := a.sess.SetUser(ctx, models.UserRef{ID: me.ID, Username: u.Username}); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "profile updated: %s <%s>\n", u.Username, u.Email)
	return nil
}

func cmdUsers(ctx context.Context, a *app, args []string) error {
	query := strings.Join(args, " ")
	users, err := a.api.SearchUsers(ctx, query)
	if err != nil {
		return err
	}
	w := a.table()
	fmt.Fprintln(w, "USERNAME\tELO\tID")
	for _, u := range users {
		fmt.Fprintf(w, "%s\t%d\t%s\n", u.Username, u.EloRating, u.ID)
	}
	return w.Flush()
}

/* lobbies */

func printLobby(w io.Writer, l *models.Lobby) {
	fmt.Fprintf(w, "%s [%s] %s, host %s, %d/4\n", l.Name, l.ID, l.GameMode, l.HostUser.Username, l.PlayerCount())
	names := func(us []models.UserRef) string {
		out := make([]string, len(us))
		for i, u := range us {
			out[i] = u.Username
		}
		return strings.Join(out, ", ")
	}
	fmt.Fprintf(w, "  team A: %s\n  team B: %s\n", names(l.TeamAPlayers), names(l.TeamBPlayers))
	if len(l.UnassignedPlayers) > 0 {
		fmt.Fprintf(w, "  unassigned: %s\n", names(l.UnassignedPlayers))
	}
}

func cmdLobbies(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("lobbies", flag.ContinueOnError)
	all := fs.Bool("all", false, "include closed lobbies")
	if _, err := parseArgs(fs, args, 0); err != nil {
		return err
	}
	list := a.api.OpenLobbies
	if *all {
		list = a.api.ListLobbies
	}
	lobbies, err := list(ctx)
	if err != nil {
		return err
	}
	w := a.table()
	fmt.Fprintln(w, "ID\tNAME\tMODE\tPLAYERS\tPRIVATE\tSTATUS")
	for _, l := range lobbies {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d/4\t%t\t%s\n", l.ID, l.Name, l.GameMode, l.PlayerCount(), l.PrivateLobby, l.Status)
	}
	return w.Flush()
}

func cmdLobby(ctx context.Context, a *app, args []string) error {
	if len(args) < 1 {
		return errors.New("lobby: expected a lobby id")
	}
	l, err := a.api.GetLobby(ctx, args[0])
	if err != nil {
		return err
	}
	printLobby(a.out, l)
	if l.Status != models.LobbyClosed {
		return nil
	}
	// a closed lobby has started its match
	m, err := a.api.MatchByLobby(ctx, l.ID)
	if err != nil {
		if api.IsStatus(err, http.StatusNotFound) {
			fmt.Fprintln(a.out, "lobby is closed")
			return nil
		}
		return err
	}
	fmt.Fprintf(a.out, "match started: %s\njoin with: belatro play %s\n", m.ID, m.ID)
	return nil
}

func cmdLobbyCreate(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("lobby-create", flag.ContinueOnError)
	name := fs.String("name", "", "lobby name")
	ranked := fs.Bool("ranked", false, "ranked lobby")
	password := fs.String("password", "", "make the lobby private with this password")
	if _, err := parseArgs(fs, args, 0); err != nil {
		return err
	}
	if *name == "" {
		return errors.New("lobby-create: -name is required")
	}
	me, err := a.me()
	if err != nil {
		return err
	}
	mode := models.ModeCasual
	if *ranked {
		mode = models.ModeRanked
	}
	l, err := a.api.CreateLobby(ctx, models.Lobby{
		Name:         *name,
		GameMode:     mode,
		HostUser:     me,
		PrivateLobby: *password != "",
		Password:     *password,
	})
	if err != nil {
		return err
	}
	if *password != "" {
		if err := a.sess.RememberLobbyPassword(ctx, l.ID, *password); err != nil {
			a.log.WithError(err).Warn("failed to remember lobby password")
		}
	}
	printLobby(a.out, l)
	return nil
}

func cmdLobbyJoin(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("lobby-join", flag.ContinueOnError)
	password := fs.String("password", "", "password for a private lobby")
	pos, err := parseArgs(fs, args, 1)
	if err != nil {
		return err
	}
	me, err := a.me()
	if err != nil {
		return err
	}
	lobbyID := pos[0]
	pw := *password
	if pw == "" {
		pw = a.sess.LobbyPassword(ctx, lobbyID)
	}
	l, err := a.api.JoinLobby(ctx, models.JoinLobbyRequest{LobbyID: lobbyID, UserID: me.ID, Password: pw})
	if err != nil {
		if api.IsStatus(err, http.StatusForbidden) || api.IsStatus(err, http.StatusUnauthorized) {
			a.forgetLobbyPassword(ctx, lobbyID)
		}
		return err
	}
	if pw != "" {
		if err := a.sess.RememberLobbyPassword(ctx, lobbyID, pw); err != nil {
			a.log.WithError(err).Warn("failed to remember lobby password")
		}
	}
	printLobby(a.out, l)
	return nil
}

func cmdLobbyTeam(ctx context.Context, a *app, args []string) error {
	if len(args) < 2 {
		return errors.New("lobby-team: expected <lobbyId> A|B")
	}
	team := models.Team(strings.ToUpper(args[1]))
	if team != models.TeamA && team != models.TeamB {
		return fmt.Errorf("lobby-team: unknown team %q", args[1])
	}
	me, err := a.me()
	if err != nil {
		return err
	}
	l, err := a.api.SwitchTeam(ctx, models.TeamSwitchRequest{LobbyID: args[0], UserID: me.ID, TargetTeam: team})
	if err != nil {
		return err
	}
	printLobby(a.out, l)
	return nil
}

func cmdLobbyStart(ctx context.Context, a *app, args []string) error {
	if len(args) < 1 {
		return errors.New("lobby-start: expected a lobby id")
	}
	m, err := a.api.StartMatch(ctx, args[0])
	if err != nil {
		return err
	}
	a.forgetLobbyPassword(ctx, args[0])
	fmt.Fprintf(a.out, "match started: %s\njoin with: belatro play %s\n", m.ID, m.ID)
	return nil
}

func cmdLobbyLeave(ctx context.Context, a *app, args []string) error {
	if len(args) < 1 {
		return errors.New("lobby-leave: expected a lobby id")
	}
	me, err := a.me()
	if err != nil {
		return err
	}
	l, err := a.api.LeaveLobby(ctx, args[0], me.Username)
	if err != nil {
		return err
	}
	a.forgetLobbyPassword(ctx, args[0])
	if l == nil {
		fmt.Fprintln(a.out, "left, the lobby was closed")
		return nil
	}
	fmt.Fprintln(a.out, "left lobby")
	return nil
}

func cmdLobbyKick(ctx context.Context, a *app, args []string) error {
	if len(args) < 2 {
		return errors.New("lobby-kick: expected <lobbyId> <username>")
	}
	me, err := a.me()
	if err != nil {
		return err
	}
	l, err := a.api.KickPlayer(ctx, args[0], models.KickPlayerRequest{RequesterUsername: me.Username, UsernameToKick: args[1]})
	if err != nil {
		return err
	}
	printLobby(a.out, l)
	return nil
}

func cmdLobbyDelete(ctx context.Context, a *app, args []string) error {
	if len(args) < 1 {
		return errors.New("lobby-delete: expected a lobby id")
	}
	if err := a.api.DeleteLobby(ctx, args[0]); err != nil {
		return err
	}
	a.forgetLobbyPassword(ctx, args[0])
	fmt.Fprintln(a.out, "lobby deleted")
	return nil
}

/* friends */

func cmdFriends(ctx context.Context, a *app, _ []string) error {
	me, err := a.me()
	if err != nil {
		return err
	}
	list, err := a.api.Friendships(ctx, me.ID)
	if err != nil {
		return err
	}
	w := a.table()
	fmt.Fprintln(w, "ID\tFRIEND\tSTATUS\tDIRECTION")
	for _, f := range list {
		dir := "incoming"
		if f.FromUser.ID == me.ID {
			dir = "outgoing"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", f.ID, f.Other(me.ID).Username, f.Status, dir)
	}
	return w.Flush()
}

func cmdFriendAdd(ctx context.Context, a *app, args []string) error {
	if len(args) < 1 {
		return errors.New("friend-add: expected a username")
	}
	me, err := a.me()
	if err != nil {
		return err
	}
	users, err := a.api.SearchUsers(ctx, args[0])
	if err != nil {
		return err
	}
	for _, u := range users {
		if strings.EqualFold(u.Username, args[0]) {
			f, err := a.api.CreateFriendship(ctx, me.ID, u.ID)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "friend request sent to %s (%s)\n", u.Username, f.ID)
			return nil
		}
	}
	return fmt.Errorf("no user named %q", args[0])
}

func friendAction(name string, do func(*api.Client, context.Context, string) error, done string) func(context.Context, *app, []string) error {
	return func(ctx context.Context, a *app, args []string) error {
		if len(args) < 1 {
			return fmt.Errorf("%s: expected a friendship id", name)
		}
		if err := do(a.api, ctx, args[0]); err != nil {
			return err
		}
		fmt.Fprintln(a.out, done)
		return nil
	}
}

var (
	cmdFriendAccept = friendAction("friend-accept", (*api.Client).AcceptFriendship, "friend request accepted")
	cmdFriendReject = friendAction("friend-reject", (*api.Client).RejectFriendship, "friend request rejected")
	cmdFriendCancel = friendAction("friend-cancel", (*api.Client).CancelFriendship, "friend request cancelled")
	cmdFriendRemove = friendAction("friend-remove", (*api.Client).DeleteFriendship, "friend removed")
)

/* matches */

func cmdHistory(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("history", flag.ContinueOnError)
	page := fs.Int("page", 0, "page number, from 0")
	size := fs.Int("size", 10, "page size")
	if _, err := parseArgs(fs, args, 0); err != nil {
		return err
	}
	me, err := a.me()
	if err != nil {
		return err
	}
	p, err := a.api.MatchHistory(ctx, me.ID, *page, *size)
	if err != nil {
		return err
	}
	if len(p.Content) == 0 {
		fmt.Fprintln(a.out, "no finished matches yet")
		return nil
	}
	w := a.table()
	fmt.Fprintln(w, "MATCH\tENDED\tMODE\tRESULT\tOUTCOME")
	for _, m := range p.Content {
		ended := "-"
		if m.EndTime != nil {
			ended = m.EndTime.Local().Format("2006-01-02 15:04")
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", m.MatchID, ended, m.GameMode, m.Result, m.YourOutcome)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "page %d of %d (%d matches)\n", p.Number+1, max(p.TotalPages, 1), p.TotalElements)
	return nil
}

func cmdMatch(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("match", flag.ContinueOnError)
	moves := fs.Bool("moves", false, "list recorded moves")
	pos, err := parseArgs(fs, args, 1)
	if err != nil {
		return err
	}
	m, err := a.api.GetMatch(ctx, pos[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s %s %s\n", m.ID, m.GameMode, m.Result)
	if !*moves {
		return nil
	}
	list, err := a.api.MatchMoves(ctx, m.ID)
	if err != nil {
		return err
	}
	for _, mv := range list {
		note := ""
		if mv.Legal != nil && !*mv.Legal {
			note = " (illegal)"
		}
		fmt.Fprintf(a.out, "%3d %-12s %s%s\n", mv.Order, mv.Player, mv.Card, note)
	}
	return nil
}
