// Package steam imports a Steam library through the Steam Web API.
package steam

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/desk-dashboard/internal/library"
	"github.com/desk-dashboard/internal/models"
	"github.com/desk-dashboard/internal/storage"
	"github.com/desk-dashboard/pkg/logger"
	"github.com/desk-dashboard/pkg/ratelimit"
)

const (
	// DefaultBaseURL is the public Steam Web API root
	DefaultBaseURL = "https://api.steampowered.com"

	ownedGamesTimeout   = 30 * time.Second
	achievementsTimeout = 10 * time.Second

	iconURLFormat = "https://media.steampowered.com/steamcommunity/public/images/apps/%d/%s.jpg"
)

// ErrNotConfigured is returned when the API key or Steam ID setting is missing
var ErrNotConfigured = errors.New("steam API key and Steam ID are required")

// OwnedGame is one entry of GetOwnedGames
type OwnedGame struct {
	AppID           int    `json:"appid"`
	Name            string `json:"name"`
	PlaytimeForever int    `json:"playtime_forever"` // minutes
	ImgIconURL      string `json:"img_icon_url"`
	RTimeLastPlayed int64  `json:"rtime_last_played"`
}

type ownedGamesResponse struct {
	Response struct {
		GameCount int         `json:"game_count"`
		Games     []OwnedGame `json:"games"`
	} `json:"response"`
}

// Achievement is one entry of GetPlayerAchievements
type Achievement struct {
	APIName  string `json:"apiname"`
	Achieved int    `json:"achieved"`
}

type achievementsResponse struct {
	PlayerStats struct {
		Success      bool          `json:"success"`
		Achievements []Achievement `json:"achievements"`
	} `json:"playerstats"`
}

// Client is the Steam Web API client
type Client struct {
	baseURL     string
	httpClient  *http.Client
	rateLimiter *ratelimit.MultiLimiter
	log         *logger.Logger
}

// NewClient creates a new Steam client. An empty baseURL uses the public API.
func NewClient(baseURL string, limiter *ratelimit.MultiLimiter, log *logger.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:     baseURL,
		httpClient:  &http.Client{},
		rateLimiter: limiter,
		log:         log.WithComponent("steam"),
	}
}

// GetOwnedGames lists the games owned by steamID, including free games
func (c *Client) GetOwnedGames(ctx context.Context, apiKey, steamID string) ([]OwnedGame, error) {
	params := url.Values{}
	params.Set("key", apiKey)
	params.Set("steamid", steamID)
	params.Set("format", "json")
	params.Set("include_appinfo", "true")
	params.Set("include_played_free_games", "true")

	var resp ownedGamesResponse
	if err := c.get(ctx, "/IPlayerService/GetOwnedGames/v0001/", params, ownedGamesTimeout, &resp); err != nil {
		return nil, err
	}
	if resp.Response.Games == nil {
		return nil, fmt.Errorf("invalid response from Steam API: no games list")
	}
	return resp.Response.Games, nil
}

// GetPlayerAchievements returns total and unlocked achievement counts for one game
func (c *Client) GetPlayerAchievements(ctx context.Context, apiKey, steamID string, appID int) (total, unlocked int, err error) {
	params := url.Values{}
	params.Set("key", apiKey)
	params.Set("steamid", steamID)
	params.Set("appid", strconv.Itoa(appID))

	var resp achievementsResponse
	if err := c.get(ctx, "/ISteamUserStats/GetPlayerAchievements/v0001/", params, achievementsTimeout, &resp); err != nil {
		return 0, 0, err
	}

	for _, a := range resp.PlayerStats.Achievements {
		if a.Achieved == 1 {
			unlocked++
		}
	}
	return len(resp.PlayerStats.Achievements), unlocked, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values, timeout time.Duration, out any) error {
	if c.rateLimiter != nil {
		if err := c.rateLimiter.Wait(ctx, ratelimit.LimiterSteam); err != nil {
			return fmt.Errorf("rate limit error: %w", err)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// Importer maps a Steam library into game rows
type Importer struct {
	client *Client
	store  library.Store
	log    *logger.Logger
}

// NewImporter creates a Steam importer
func NewImporter(client *Client, store library.Store, log *logger.Logger) *Importer {
	return &Importer{
		client: client,
		store:  store,
		log:    log.WithComponent("steam-import"),
	}
}

// Import upserts every owned game. Achievement lookups are optional: a
// failure leaves the counts at zero.
func (i *Importer) Import(ctx context.Context) (*library.ImportResult, error) {
	apiKey, err := storage.SettingString(ctx, i.store, models.SettingSteamAPIKey)
	if err != nil {
		return nil, err
	}
	steamID, err := storage.SettingString(ctx, i.store, models.SettingSteamID)
	if err != nil {
		return nil, err
	}
	if apiKey == "" || steamID == "" {
		return nil, ErrNotConfigured
	}

	games, err := i.client.GetOwnedGames(ctx, apiKey, steamID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch owned games: %w", err)
	}

	result := &library.ImportResult{Platform: models.PlatformSteam, Total: len(games)}
	i.log.Info().Int("games", len(games)).Msg("Importing Steam library")

	for n, g := range games {
		game := &models.Game{
			AppID:    strconv.Itoa(g.AppID),
			Name:     g.Name,
			Platform: models.PlatformSteam,
			Playtime: g.PlaytimeForever,
		}
		if g.ImgIconURL != "" {
			game.IconURL = fmt.Sprintf(iconURLFormat, g.AppID, g.ImgIconURL)
		}
		if g.RTimeLastPlayed > 0 {
			t := time.Unix(g.RTimeLastPlayed, 0)
			game.LastPlayed = &t
		}

		total, unlocked, err := i.client.GetPlayerAchievements(ctx, apiKey, steamID, g.AppID)
		if err != nil {
			i.log.Debug().Err(err).Int("appid", g.AppID).Msg("No achievement data")
		} else {
			game.AchievementsTotal = total
			game.AchievementsUnlocked = unlocked
			game.HasAchievements = total > 0
		}

		created, err := i.store.UpsertGame(ctx, game)
		if err != nil {
			err = fmt.Errorf("game %s: %w", game.AppID, err)
			i.log.Warn().Err(err).Msg("Failed to save game")
		}
		result.Record(created, err)

		if (n+1)%50 == 0 {
			i.log.Info().Int("processed", n+1).Int("total", len(games)).Msg("Steam import progress")
		}
	}

	i.log.Info().
		Int("total", result.Total).
		Int("imported", result.Imported).
		Int("updated", result.Updated).
		Int("failed", result.Failed).
		Msg("Steam import completed")

	return result, nil
}
