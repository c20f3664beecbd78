package steam

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/desk-dashboard/internal/models"
	"github.com/desk-dashboard/internal/storage"
	"github.com/desk-dashboard/internal/storage/sqlite"
	"github.com/desk-dashboard/pkg/logger"
)

func newRepo(t *testing.T) *sqlite.Repository {
	t.Helper()
	repo, err := sqlite.New(filepath.Join(t.TempDir(), "steam.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := repo.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func steamServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/IPlayerService/GetOwnedGames/v0001/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("key") != "k" || r.URL.Query().Get("steamid") != "76561198000000000" {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		if r.URL.Query().Get("include_played_free_games") != "true" {
			t.Errorf("free games not requested")
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"response": map[string]any{
				"game_count": 2,
				"games": []map[string]any{
					{"appid": 10, "name": "Counter-Strike", "playtime_forever": 125, "img_icon_url": "abc"},
					{"appid": 20, "name": "Team Fortress Classic", "playtime_forever": 0},
				},
			},
		})
	})
	mux.HandleFunc("/ISteamUserStats/GetPlayerAchievements/v0001/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("appid") != "10" {
			http.Error(w, `{"playerstats":{"error":"Requested app has no stats","success":false}}`, http.StatusBadRequest)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"playerstats": map[string]any{
				"success": true,
				"achievements": []map[string]any{
					{"apiname": "a", "achieved": 1},
					{"apiname": "b", "achieved": 0},
					{"apiname": "c", "achieved": 1},
				},
			},
		})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestImportStoresLibrary(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)
	srv := steamServer(t)

	if err := repo.SetSetting(ctx, models.SettingSteamAPIKey, "k"); err != nil {
		t.Fatal(err)
	}
	if err := repo.SetSetting(ctx, models.SettingSteamID, "76561198000000000"); err != nil {
		t.Fatal(err)
	}

	imp := NewImporter(NewClient(srv.URL, nil, logger.Nop()), repo, logger.Nop())

	result, err := imp.Import(ctx)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if result.Total != 2 || result.Imported != 2 || result.Failed != 0 {
		t.Fatalf("result = %+v", result)
	}

	games, err := repo.ListGames(ctx, storage.DefaultGameFilter())
	if err != nil {
		t.Fatal(err)
	}

	type row struct {
		AppID           string
		Name            string
		Playtime        int
		Total, Unlocked int
		HasAchievements bool
		IconURL         string
	}
	var got []row
	for _, g := range games {
		got = append(got, row{g.AppID, g.Name, g.Playtime, g.AchievementsTotal, g.AchievementsUnlocked, g.HasAchievements, g.IconURL})
	}
	want := []row{
		{"10", "Counter-Strike", 125, 3, 2, true, "https://media.steampowered.com/steamcommunity/public/images/apps/10/abc.jpg"},
		{"20", "Team Fortress Classic", 0, 0, 0, false, ""},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("games mismatch (-want +got):\n%s", diff)
	}

	// A second run only updates.
	result, err = imp.Import(ctx)
	if err != nil {
		t.Fatalf("second Import: %v", err)
	}
	if result.Imported != 0 || result.Updated != 2 {
		t.Errorf("second run = %+v, want 0 imported 2 updated", result)
	}
}

func TestImportRequiresSettings(t *testing.T) {
	repo := newRepo(t)
	imp := NewImporter(NewClient("http://127.0.0.1:0", nil, logger.Nop()), repo, logger.Nop())

	_, err := imp.Import(context.Background())
	if !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("err = %v, want ErrNotConfigured", err)
	}
}

func TestGetOwnedGamesReportsStatus(t *testing.T) {
	srv := steamServer(t)
	c := NewClient(srv.URL, nil, logger.Nop())

	if _, err := c.GetOwnedGames(context.Background(), "wrong", "76561198000000000"); err == nil {
		t.Fatal("expected error for rejected key")
	}
}
