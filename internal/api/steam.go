package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/rs/zerolog"
	"github.com/valyala/fasthttp"

	"steam-achiever/internal/config"
	"steam-achiever/internal/constants"
	"steam-achiever/internal/middleware"
)

const (
	ownedGamesPath         = "/IPlayerService/GetOwnedGames/v0001/"
	playerAchievementsPath = "/ISteamUserStats/GetPlayerAchievements/v0001/"
)

var (
	ErrRequest        = errors.New("steam api request failed")
	ErrStatus         = errors.New("steam api returned an error status")
	ErrDecode         = errors.New("steam api response could not be decoded")
	ErrNoStats        = errors.New("steam api reported no stats")
	ErrNoGames        = errors.New("steam api returned no games list")
	ErrNoAchievements = errors.New("steam api returned no achievements")
)

type SteamClient struct {
	apiKey  string
	baseURL string
	client  middleware.Doer
}

func NewSteamClient(cfg *config.Config, logger zerolog.Logger) *SteamClient {
	client := &fasthttp.Client{
		Name:                "steam-achiever",
		MaxConnsPerHost:     constants.HTTPMaxConnsPerHost,
		ReadTimeout:         constants.HTTPReadTimeout,
		WriteTimeout:        constants.HTTPWriteTimeout,
		MaxIdleConnDuration: constants.HTTPMaxIdleConnDuration,
	}

	return &SteamClient{
		apiKey:  cfg.APIKey,
		baseURL: cfg.BaseURL,
		client:  middleware.RequestID(logger.With().Str("component", "steam").Logger())(client),
	}
}

func (c *SteamClient) GetOwnedGames(ctx context.Context, steamID string) (*OwnedGamesResponse, error) {
	args := fasthttp.AcquireArgs()
	defer fasthttp.ReleaseArgs(args)
	args.Set("steamid", steamID)
	args.Set("include_appinfo", "1")
	args.Set("format", "json")

	result, err := doRequest[OwnedGamesResponse](ctx, c, ownedGamesPath, args)
	if err != nil {
		return nil, err
	}

	// private profiles and unknown ids come back as {"response":{}}
	if result.Response.Games == nil {
		return nil, fmt.Errorf("%w: steam id %s", ErrNoGames, steamID)
	}
	return result, nil
}

func (c *SteamClient) GetPlayerAchievements(ctx context.Context, appID int64, steamID string) (*PlayerAchievementsResponse, error) {
	args := fasthttp.AcquireArgs()
	defer fasthttp.ReleaseArgs(args)
	args.Set("appid", strconv.FormatInt(appID, 10))
	args.Set("steamid", steamID)
	args.Set("l", "en-US")
	args.Set("format", "json")

	result, err := doRequest[PlayerAchievementsResponse](ctx, c, playerAchievementsPath, args)
	if err != nil {
		return nil, err
	}

	stats := result.PlayerStats
	if !stats.Success {
		return nil, fmt.Errorf("%w: app %d: %s", ErrNoStats, appID, stats.Error)
	}
	if stats.Achievements == nil {
		return nil, fmt.Errorf("%w: app %d", ErrNoAchievements, appID)
	}
	return result, nil
}

func doRequest[T any](ctx context.Context, client *SteamClient, path string, args *fasthttp.Args) (*T, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(client.baseURL + path)
	req.Header.SetMethod(fasthttp.MethodGet)
	query := req.URI().QueryArgs()
	args.CopyTo(query)
	query.Set("key", client.apiKey)

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRequest, err)
	}

	deadline, ok := ctx.Deadline()
	if ok {
		if err := client.client.DoDeadline(req, resp, deadline); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrRequest, err)
		}
	} else {
		if err := client.client.Do(req, resp); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrRequest, err)
		}
	}

	if resp.StatusCode() != fasthttp.StatusOK {
		return nil, fmt.Errorf("%w: %d %s", ErrStatus, resp.StatusCode(), path)
	}

	var result T
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	return &result, nil
}

type OwnedGamesResponse struct {
	Response struct {
		GameCount int         `json:"game_count"`
		Games     []OwnedGame `json:"games"`
	} `json:"response"`
}

type OwnedGame struct {
	AppID           int64  `json:"appid"`
	Name            string `json:"name"`
	PlaytimeForever int    `json:"playtime_forever"`
	ImgIconURL      string `json:"img_icon_url"`
}

type PlayerAchievementsResponse struct {
	PlayerStats PlayerStats `json:"playerstats"`
}

type PlayerStats struct {
	SteamID      string        `json:"steamID"`
	GameName     string        `json:"gameName"`
	Achievements []Achievement `json:"achievements"`
	Success      bool          `json:"success"`
	Error        string        `json:"error"`
}

type Achievement struct {
	APIName     string `json:"apiname"`
	Achieved    Flag   `json:"achieved"`
	UnlockTime  int64  `json:"unlocktime"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Flag decodes the 0/1 integers Steam uses for booleans, and plain booleans.
type Flag bool

func (f *Flag) UnmarshalJSON(data []byte) error {
	switch string(bytes.TrimSpace(data)) {
	case "1", "true":
		*f = true
	case "0", "false", "null":
		*f = false
	default:
		return fmt.Errorf("invalid achieved flag %s", data)
	}
	return nil
}
