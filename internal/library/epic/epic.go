// Package epic imports an Epic Games library from the legendary CLI.
package epic

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/desk-dashboard/internal/library"
	"github.com/desk-dashboard/internal/models"
	"github.com/desk-dashboard/pkg/logger"
)

// DefaultTimeout bounds one `legendary list` run
const DefaultTimeout = 30 * time.Second

// ErrLegendaryNotFound is returned when the legendary binary is not installed
var ErrLegendaryNotFound = errors.New("legendary CLI not found (pip install legendary-gl)")

// Engine content, marketplace assets and samples show up in `legendary list`
// alongside games.
var (
	skipNameTerms = []string{
		"unreal engine", "ue4", "ue5", "marketplace", "asset pack",
		"content pack", "sample project", "lyra starter game",
		"pixel streaming demo", "stack o bot", "slay animation sample",
		"virtual studio", "unreal learning kit",
	}
	skipVersionTerms = []string{
		"+++ue4+dev-marketplace", "+++ue5+dev-marketplace",
		"+++ue4+release", "+++ue5+release",
		"dev-marketplace-windows", "release-5.", "release-4.",
	}
)

// Entry is one game line of `legendary list`
type Entry struct {
	AppID   string
	Name    string
	Version string
}

// Parse extracts games from `legendary list` output. The second return value
// counts listed entries that were filtered out as non-games.
//
// Lines look like:
//
//	* Celeste (App name: Salt | Version: 1.4.0.0)
func Parse(output string) (games []Entry, skipped int) {
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "*") || !strings.Contains(line, "App name:") {
			continue
		}

		e, ok := parseLine(line)
		if !ok {
			continue
		}
		if isNonGame(e) {
			skipped++
			continue
		}
		games = append(games, e)
	}
	return games, skipped
}

func parseLine(line string) (Entry, bool) {
	namePart, rest, ok := strings.Cut(line, "(App name:")
	if !ok {
		return Entry{}, false
	}
	name := strings.TrimSpace(strings.ReplaceAll(namePart, "*", ""))
	name = strings.Trim(name, `"'`)

	appID, versionPart, _ := strings.Cut(rest, "|")
	appID = strings.TrimSpace(appID)
	appID = strings.TrimSpace(strings.TrimSuffix(appID, ")"))
	if name == "" || appID == "" {
		return Entry{}, false
	}

	var version string
	if _, v, ok := strings.Cut(versionPart, "Version:"); ok {
		version = strings.TrimSpace(strings.TrimRight(strings.TrimSpace(v), ")"))
	}

	return Entry{AppID: appID, Name: name, Version: version}, true
}

func isNonGame(e Entry) bool {
	name := strings.ToLower(e.Name)
	for _, term := range skipNameTerms {
		if strings.Contains(name, term) {
			return true
		}
	}
	version := strings.ToLower(e.Version)
	for _, term := range skipVersionTerms {
		if strings.Contains(version, term) {
			return true
		}
	}
	return false
}

// Runner executes a command and returns its stdout
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if errors.Is(err, exec.ErrNotFound) {
		return nil, ErrLegendaryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%s list failed: %w: %s", name, err, strings.TrimSpace(stderr.String()))
	}
	return out, nil
}

// Importer maps the legendary library into game rows
type Importer struct {
	path    string
	timeout time.Duration
	run     Runner
	store   library.Store
	log     *logger.Logger
}

// Option configures an Importer
type Option func(*Importer)

// WithRunner replaces command execution
func WithRunner(r Runner) Option {
	return func(i *Importer) { i.run = r }
}

// WithTimeout bounds the legendary invocation
func WithTimeout(d time.Duration) Option {
	return func(i *Importer) {
		if d > 0 {
			i.timeout = d
		}
	}
}

// NewImporter creates an Epic importer. An empty path looks up "legendary" on PATH.
func NewImporter(path string, store library.Store, log *logger.Logger, opts ...Option) *Importer {
	if path == "" {
		path = "legendary"
	}
	i := &Importer{
		path:    path,
		timeout: DefaultTimeout,
		run:     execRunner,
		store:   store,
		log:     log.WithComponent("epic-import"),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Import lists the library via legendary and upserts every game. Epic exposes
// no playtime or achievement data here, so those stay zero.
func (i *Importer) Import(ctx context.Context) (*library.ImportResult, error) {
	ctx, cancel := context.WithTimeout(ctx, i.timeout)
	defer cancel()

	out, err := i.run(ctx, i.path, "list")
	if err != nil {
		return nil, err
	}

	games, skipped := Parse(string(out))
	result := &library.ImportResult{
		Platform: models.PlatformEpic,
		Total:    len(games) + skipped,
		Skipped:  skipped,
	}

	for _, e := range games {
		created, err := i.store.UpsertGame(ctx, &models.Game{
			AppID:    e.AppID,
			Name:     e.Name,
			Platform: models.PlatformEpic,
		})
		if err != nil {
			err = fmt.Errorf("game %s: %w", e.AppID, err)
			i.log.Warn().Err(err).Msg("Failed to save game")
		}
		result.Record(created, err)
	}

	i.log.Info().
		Int("total", result.Total).
		Int("imported", result.Imported).
		Int("updated", result.Updated).
		Int("skipped", result.Skipped).
		Msg("Epic import completed")

	return result, nil
}
