// internal/api/endpoints.go
package api

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/jason-s-yu/belatro/internal/models"
)

func seg(id string) string { return url.PathEscape(id) }

/* auth */

func (c *Client) Login(ctx context.Context, username, password string) (*models.AuthResponse, error) {
	var out models.AuthResponse
	err := c.do(ctx, http.MethodPost, "/api/auth/login", nil, models.LoginRequest{Username: username, Password: password}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Signup(ctx context.Context, req models.SignupRequest) (*models.AuthResponse, error) {
	var out models.AuthResponse
	if err := c.do(ctx, http.MethodPost, "/api/auth/signup", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

/* users */

func (c *Client) ListUsers(ctx context.Context) ([]models.User, error) {
	var out []models.User
	if err := c.do(ctx, http.MethodGet, "/user/findAll", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetUser(ctx context.Context, id string) (*models.User, error) {
	var out models.User
	if err := c.do(ctx, http.MethodGet, "/user/"+seg(id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateUser(ctx context.Context, id string, update models.UserUpdate) (*models.User, error) {
	var out models.User
	if err := c.do(ctx, http.MethodPut, "/user/"+seg(id), nil, update, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SearchUsers returns users whose username contains query, ignoring case.
// The backend has no search endpoint, so the full list is filtered locally.
func (c *Client) SearchUsers(ctx context.Context, query string) ([]models.User, error) {
	users, err := c.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return users, nil
	}
	var out []models.User
	for _, u := range users {
		if strings.Contains(strings.ToLower(u.Username), q) {
			out = append(out, u)
		}
	}
	return out, nil
}

// MatchHistory returns one page of finished match summaries for a player.
func (c *Client) MatchHistory(ctx context.Context, userID string, page, size int) (*models.Page[models.MatchSummary], error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("size", strconv.Itoa(size))
	var out models.Page[models.MatchSummary]
	if err := c.do(ctx, http.MethodGet, "/user/"+seg(userID)+"/history/summary", q, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

/* lobbies */

func (c *Client) ListLobbies(ctx context.Context) ([]models.Lobby, error) {
	var out []models.Lobby
	if err := c.do(ctx, http.MethodGet, "/lobbies", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) OpenLobbies(ctx context.Context) ([]models.Lobby, error) {
	var out []models.Lobby
	if err := c.do(ctx, http.MethodGet, "/lobbies/open", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetLobby(ctx context.Context, id string) (*models.Lobby, error) {
	var out models.Lobby
	if err := c.do(ctx, http.MethodGet, "/lobbies/"+seg(id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateLobby(ctx context.Context, lobby models.Lobby) (*models.Lobby, error) {
	var out models.Lobby
	if err := c.do(ctx, http.MethodPost, "/lobbies", nil, lobby, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) JoinLobby(ctx context.Context, req models.JoinLobbyRequest) (*models.Lobby, error) {
	var out models.Lobby
	if err := c.do(ctx, http.MethodPost, "/lobbies/join", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) SwitchTeam(ctx context.Context, req models.TeamSwitchRequest) (*models.Lobby, error) {
	var out models.Lobby
	if err := c.do(ctx, http.MethodPost, "/lobbies/switchTeam", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// StartMatch closes the lobby and returns the match created from it.
func (c *Client) StartMatch(ctx context.Context, lobbyID string) (*models.Match, error) {
	var out models.Match
	if err := c.do(ctx, http.MethodPost, "/lobbies/"+seg(lobbyID)+"/start-match", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) KickPlayer(ctx context.Context, lobbyID string, req models.KickPlayerRequest) (*models.Lobby, error) {
	var out models.Lobby
	if err := c.do(ctx, http.MethodPatch, "/lobbies/"+seg(lobbyID)+"/kick", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// LeaveLobby removes username from the lobby. The result is nil when the
// lobby was dissolved because it became empty.
func (c *Client) LeaveLobby(ctx context.Context, lobbyID, username string) (*models.Lobby, error) {
	var out *models.Lobby
	err := c.do(ctx, http.MethodPatch, "/lobbies/"+seg(lobbyID)+"/leave", nil, models.LeaveLobbyRequest{Username: username}, &out)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) DeleteLobby(ctx context.Context, lobbyID string) error {
	return c.do(ctx, http.MethodDelete, "/lobbies/"+seg(lobbyID), nil, nil, nil)
}

/* friendships */

func (c *Client) CreateFriendship(ctx context.Context, fromUserID, toUserID string) (*models.Friendship, error) {
	var out models.Friendship
	req := models.CreateFriendshipRequest{FromUserID: fromUserID, ToUserID: toUserID}
	if err := c.do(ctx, http.MethodPost, "/friendship", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Friendships(ctx context.Context, userID string) ([]models.Friendship, error) {
	var out []models.Friendship
	if err := c.do(ctx, http.MethodGet, "/friendship/getAllByUserId/"+seg(userID), nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) AcceptFriendship(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodPost, "/friendship/"+seg(id)+"/accept", nil, nil, nil)
}

func (c *Client) RejectFriendship(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodPost, "/friendship/"+seg(id)+"/reject", nil, nil, nil)
}

func (c *Client) CancelFriendship(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodPost, "/friendship/"+seg(id)+"/cancel", nil, nil, nil)
}

func (c *Client) DeleteFriendship(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/friendship/"+seg(id), nil, nil, nil)
}

/* matches */

func (c *Client) GetMatch(ctx context.Context, id string) (*models.Match, error) {
	var out models.Match
	if err := c.do(ctx, http.MethodGet, "/matches/"+seg(id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) MatchByLobby(ctx context.Context, lobbyID string) (*models.Match, error) {
	var out models.Match
	if err := c.do(ctx, http.MethodGet, "/matches/getmatchbylobbyid/"+seg(lobbyID), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) MatchMoves(ctx context.Context, id string) ([]models.Move, error) {
	var out []models.Move
	if err := c.do(ctx, http.MethodGet, "/matches/"+seg(id)+"/moves", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

/* ranked queue */

func (c *Client) JoinRankedQueue(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/ranked/queue", nil, nil, nil)
}

func (c *Client) LeaveRankedQueue(ctx context.Context) error {
	return c.do(ctx, http.MethodDelete, "/ranked/queue", nil, nil, nil)
}
