// cmd/belatro/play.go
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/jason-s-yu/belatro/internal/cache"
	"github.com/jason-s-yu/belatro/internal/models"
	"github.com/jason-s-yu/belatro/internal/realtime"
)

// input is one parsed line of the play prompt.
type input struct {
	verb   string
	card   *models.Card
	bela   bool
	pass   bool
	trump  *models.Suit
	accept bool
}

const playHelp = `commands:
  play <n> [bela]    play the n-th card of your hand
  bid pass | bid <suit>
  challenge          contest the last play
  refresh            ask the server for a fresh snapshot
  rematch yes|no     vote on a rematch
  cancel             abort the match
  show               print the table again
  quit`

// parseInput turns a prompt line into an input, resolving card indexes
// against hand.
func parseInput(line string, hand []models.Card) (input, error) {
	fields := strings.Fields(strings.ToLower(line))
	if len(fields) == 0 {
		return input{}, errors.New("empty command")
	}
	in := input{verb: fields[0]}
	switch in.verb {
	case "play", "p":
		in.verb = "play"
		if len(fields) < 2 {
			return in, realtime.ErrNoCardSelected
		}
		n, err := strconv.Atoi(fields[1])
		if err != nil || n < 1 || n > len(hand) {
			return in, fmt.Errorf("no card %q in your hand of %d", fields[1], len(hand))
		}
		c := hand[n-1]
		in.card = &c
		in.bela = len(fields) > 2 && fields[2] == "bela"
	case "bid", "b":
		in.verb = "bid"
		if len(fields) < 2 {
			return in, errors.New("bid pass or bid <suit>")
		}
		if fields[1] == "pass" {
			in.pass = true
			break
		}
		s, err := models.ParseSuit(fields[1])
		if err != nil {
			return in, err
		}
		in.trump = &s
	case "rematch":
		if len(fields) < 2 || (fields[1] != "yes" && fields[1] != "no") {
			return in, errors.New("rematch yes or rematch no")
		}
		in.accept = fields[1] == "yes"
	case "challenge", "refresh", "cancel", "show", "help", "quit", "exit":
		if in.verb == "exit" {
			in.verb = "quit"
		}
	default:
		return in, fmt.Errorf("unknown command %q, try help", in.verb)
	}
	return in, nil
}

func dispatch(ctx context.Context, c *realtime.MatchClient, in input) error {
	switch in.verb {
	case "play":
		return c.Play(ctx, in.card, in.bela)
	case "bid":
		return c.Bid(ctx, in.pass, in.trump)
	case "challenge":
		return c.Challenge(ctx)
	case "refresh":
		return c.Refresh(ctx)
	case "cancel":
		return c.Cancel(ctx)
	case "rematch":
		if in.accept {
			return c.VoteRematch(ctx)
		}
		return c.DeclineRematch(ctx)
	}
	return nil
}

func cardList(cards []models.Card) string {
	out := make([]string, len(cards))
	for i, c := range cards {
		out[i] = fmt.Sprintf("%d:%s", i+1, c)
	}
	return strings.Join(out, " ")
}

// renderView prints the table from the local player's seat.
func renderView(w io.Writer, v realtime.View) {
	pub := v.Public
	if pub == nil {
		fmt.Fprintln(w, "waiting for the table...")
		return
	}
	fmt.Fprintf(w, "--- %s | score %d:%d", pub.GameState, pub.TeamAScore, pub.TeamBScore)
	if t := pub.CurrentTrick; t != nil && t.Trump != nil {
		fmt.Fprintf(w, " | trump %s", t.Trump.Symbol())
	}
	fmt.Fprintln(w, " ---")

	if v.SeatsKnown {
		s := v.Seats
		fmt.Fprintf(w, "partner %s (%d) | left %s (%d) | right %s (%d)\n",
			s.Teammate.Username, s.Teammate.CardsLeft,
			s.Left.Username, s.Left.CardsLeft,
			s.Right.Username, s.Right.CardsLeft)
	}
	if len(pub.Bids) > 0 && pub.GameState == models.PhaseBidding {
		var bids []string
		for _, b := range pub.Bids {
			if b.Action == models.BidPass {
				bids = append(bids, b.PlayerID+" pass")
			} else if b.SelectedTrump != nil {
				bids = append(bids, b.PlayerID+" "+b.SelectedTrump.Symbol())
			}
		}
		fmt.Fprintf(w, "bids: %s\n", strings.Join(bids, ", "))
	}
	if len(v.VisiblePlays) > 0 {
		var plays []string
		for _, p := range v.VisiblePlays {
			plays = append(plays, p.Player.Username+" "+p.Card.String())
		}
		fmt.Fprintf(w, "table: %s\n", strings.Join(plays, ", "))
	}
	if priv := v.Private; priv != nil {
		fmt.Fprintf(w, "hand: %s\n", cardList(priv.Hand))
		if priv.YourTurn {
			fmt.Fprintln(w, "your turn")
		}
	}
	if pub.GameState == models.PhaseCompleted {
		fmt.Fprintf(w, "match over, team %s wins\n", pub.WinnerTeamID)
	}
}

func renderUpdate(w io.Writer, u realtime.Update) {
	switch {
	case u.Cancelled:
		fmt.Fprintln(w, "the match was cancelled")
		return
	case u.Rematch != nil:
		r := u.Rematch
		switch r.Type {
		case models.RematchVote:
			fmt.Fprintf(w, "rematch votes: %s\n", strings.Join(r.Accepted, ", "))
		case models.RematchStart:
			fmt.Fprintf(w, "rematch starting: belatro play %s\n", r.NewGameID)
		case models.RematchCancel:
			fmt.Fprintf(w, "rematch declined by %s\n", r.By)
		}
		return
	case u.Err != nil:
		var perr *models.ParseError
		if errors.As(u.Err, &perr) {
			fmt.Fprintf(w, "! ignored a bad update from the server (%s)\n", perr.Field)
			return
		}
		fmt.Fprintf(w, "! %s: %v\n", u.State, u.Err)
		return
	}
	switch u.State {
	case realtime.StateConnected:
		renderView(w, u.View)
	case realtime.StateReconnecting:
		fmt.Fprintln(w, "connection lost, reconnecting...")
	case realtime.StateConnecting:
		fmt.Fprintln(w, "connecting...")
	}
}

func (a *app) connector() realtime.StompConnector {
	return realtime.StompConnector{
		URL:       a.cfg.WSURL,
		HeartBeat: a.cfg.HeartbeatInterval,
		Logger:    a.log,
	}
}

func cmdPlay(ctx context.Context, a *app, args []string) error {
	if len(args) < 1 {
		return errors.New("play: expected a match id")
	}
	return a.play(ctx, args[0])
}

func (a *app) play(ctx context.Context, matchID string) error {
	me, err := a.me()
	if err != nil {
		return err
	}

	cfg := realtime.DefaultConfig(realtime.Credentials{
		MatchID:    matchID,
		Token:      a.sess.Token(),
		PlayerName: me.Username,
	})
	cfg.Backoff = realtime.Backoff{Base: a.cfg.ReconnectBase, Max: a.cfg.ReconnectMax}
	cfg.HeartbeatInterval = a.cfg.HeartbeatInterval

	opts := []realtime.Option{
		realtime.WithLogger(a.log),
		realtime.WithListener(func(u realtime.Update) { renderUpdate(a.out, u) }),
	}
	if a.cfg.Journal {
		rdb, err := a.journalClient(ctx)
		if err != nil {
			a.log.WithError(err).Warn("match journal disabled")
		} else {
			opts = append(opts, realtime.WithJournal(cache.NewJournal(rdb, a.cfg.JournalQueue)))
		}
	}

	client := realtime.NewMatchClient(cfg, a.connector(), opts...)
	if err := client.Start(ctx); err != nil {
		return err
	}
	defer client.Close()
	fmt.Fprintln(a.out, "type help for commands")

	lines := make(chan string)
	go func() {
		defer close(lines)
		for {
			line, err := a.stdin.ReadString('\n')
			if strings.TrimSpace(line) != "" {
				select {
				case lines <- line:
				case <-client.Done():
					return
				}
			}
			if err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-client.Done():
			return nil
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			view := client.View()
			var hand []models.Card
			if view.Private != nil {
				hand = view.Private.Hand
			}
			in, err := parseInput(line, hand)
			if err != nil {
				fmt.Fprintln(a.out, err)
				continue
			}
			switch in.verb {
			case "quit":
				return nil
			case "help":
				fmt.Fprintf(a.out, "%s\nsuits: %s\n", playHelp, strings.Join(suitNames(), ", "))
				continue
			case "show":
				renderView(a.out, view)
				continue
			}
			if err := dispatch(ctx, client, in); err != nil {
				fmt.Fprintf(a.out, "! %v\n", err)
			}
		}
	}
}

func cmdRanked(ctx context.Context, a *app, _ []string) error {
	me, err := a.me()
	if err != nil {
		return err
	}
	w := realtime.NewQueueWatcher(a.api, a.connector(), a.sess.Token(), me.Username, a.log)
	fmt.Fprintln(a.out, "searching for a ranked match, ctrl-c to leave the queue")
	matchID, err := w.Wait(ctx, func(s models.QueueStatus) {
		if s.State != models.QueueInQueue {
			return
		}
		eta := "unknown"
		if s.EstWaitSeconds >= 0 {
			eta = strconv.Itoa(s.EstWaitSeconds) + "s"
		}
		fmt.Fprintf(a.out, "in queue: %d players, mmr %d, estimated wait %s\n", s.QueueSize, s.MMR, eta)
	})
	if err != nil {
		if errors.Is(err, context.Canceled) {
			fmt.Fprintln(a.out, "left the queue")
			return nil
		}
		return err
	}
	fmt.Fprintf(a.out, "match found: %s\n", matchID)
	return a.play(ctx, matchID)
}

// suitNames lists the suits in display order for help output.
func suitNames() []string {
	names := make([]string, 0, len(models.Suits))
	for _, s := range models.Suits {
		names = append(names, strings.ToLower(string(s))+" "+s.Symbol())
	}
	return names
}
