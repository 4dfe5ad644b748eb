// internal/realtime/stomp_test.go
package realtime_test

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/jason-s-yu/belatro/internal/models"
	"github.com/jason-s-yu/belatro/internal/realtime"
	"github.com/jason-s-yu/belatro/internal/stomp/stomptest"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatchClientOverStomp(t *testing.T) {
	broker := stomptest.NewBroker()
	defer broker.Close()

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	cfg := realtime.DefaultConfig(realtime.Credentials{MatchID: "m1", Token: "tok", PlayerName: "ana"})
	cfg.Backoff = realtime.Backoff{Base: 10 * time.Millisecond, Max: 50 * time.Millisecond}
	connector := realtime.StompConnector{URL: broker.URL(), Logger: logger}
	c := realtime.NewMatchClient(cfg, connector, realtime.WithLogger(logger))

	require.NoError(t, c.Start(context.Background()))
	defer c.Close()

	refresh := realtime.ActionDestination("m1", "refresh")
	require.Eventually(t, func() bool {
		return c.State() == realtime.StateConnected && len(broker.SentTo(refresh)) == 1
	}, 2*time.Second, 5*time.Millisecond)

	connects := broker.Connects()
	require.Len(t, connects, 1)
	assert.Equal(t, "Bearer tok", connects[0].Get("Authorization"))
	assert.Equal(t, "ana", connects[0].Get("X-Player-Name"))
	assert.Equal(t, "m1", connects[0].Get("X-Match-ID"))
	assert.True(t, broker.Subscribed(realtime.PublicTopic("m1")))
	assert.True(t, broker.Subscribed(realtime.PrivateQueue("m1")))
	assert.True(t, broker.Subscribed(realtime.RematchTopic("m1")))

	view := `{"gameId":"m1","gameState":"BIDDING","seatingOrder":[
		{"id":"1","username":"ana","cardsLeft":8},{"id":"2","username":"bruno","cardsLeft":8},
		{"id":"3","username":"cata","cardsLeft":8},{"id":"4","username":"dino","cardsLeft":8}]}`
	require.NoError(t, broker.Publish(context.Background(), realtime.PublicTopic("m1"), []byte(view)))
	require.Eventually(t, func() bool {
		return c.View().Phase() == models.PhaseBidding
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, "cata", c.View().Seats.Teammate.Username)

	card := models.Card{Suit: models.SuitKara, Rank: models.RankBaba}
	require.NoError(t, c.Play(context.Background(), &card, false))
	require.Eventually(t, func() bool {
		return len(broker.SentTo(realtime.ActionDestination("m1", "play"))) == 1
	}, 2*time.Second, 5*time.Millisecond)
	assert.JSONEq(t, `{"playerId":"ana","card":{"boja":"KARA","rank":"BABA"},"declareBela":false}`,
		broker.SentTo(realtime.ActionDestination("m1", "play"))[0])

	broker.DropAll()
	require.Eventually(t, func() bool {
		return len(broker.Connects()) == 2 &&
			len(broker.SentTo(refresh)) == 2 &&
			c.State() == realtime.StateConnected
	}, 2*time.Second, 5*time.Millisecond)

	c.Close()
	assert.Equal(t, realtime.StateDisconnected, c.State())
	select {
	case <-c.Done():
	default:
		t.Fatal("client still running after Close")
	}
}
