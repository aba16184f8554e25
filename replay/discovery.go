package replay

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// DiscoveryConfig holds leaderboard crawl configuration
type DiscoveryConfig struct {
	BaseURL      string
	Leaderboard  string        // arena name, e.g. "standard"
	RequestDelay time.Duration // Delay between HTTP requests to be polite
	MaxPlayers   int           // 0 = unlimited
	UserAgent    string
}

func DefaultDiscoveryConfig() DiscoveryConfig {
	return DiscoveryConfig{
		BaseURL:      "https://play.battlesnake.com",
		Leaderboard:  "standard",
		RequestDelay: 500 * time.Millisecond,
		MaxPlayers:   20,
		UserAgent:    "snekmax-replay/1.0",
	}
}

var (
	gameIDRe = regexp.MustCompile(`/game/([a-f0-9-]+)`)
	// Matches /leaderboard/{arena}/{username}/stats
	playerRe = regexp.MustCompile(`/leaderboard/[^/]+/([^/]+)/stats`)
)

// Discoverer finds recent game ids for players on a leaderboard.
type Discoverer struct {
	config DiscoveryConfig
	client *http.Client
	logger *slog.Logger
}

func NewDiscoverer(config DiscoveryConfig, logger *slog.Logger) *Discoverer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Discoverer{
		config: config,
		client: &http.Client{Timeout: 30 * time.Second},
		logger: logger,
	}
}

type playerInfo struct {
	username string
	statsURL string
}

// Discover returns up to limit distinct game ids (0 = no limit). If player
// is set only that player's games are read, otherwise the leaderboard is
// walked top down.
func (d *Discoverer) Discover(ctx context.Context, player string, limit int) ([]string, error) {
	var players []playerInfo
	if player != "" {
		players = []playerInfo{{
			username: player,
			statsURL: fmt.Sprintf("%s/leaderboard/%s/%s/stats", d.config.BaseURL, d.config.Leaderboard, player),
		}}
	} else {
		var err error
		players, err = d.leaderboardPlayers(ctx)
		if err != nil {
			return nil, err
		}
		d.logger.Info("leaderboard scraped", "leaderboard", d.config.Leaderboard, "players", len(players))
		if d.config.MaxPlayers > 0 && len(players) > d.config.MaxPlayers {
			players = players[:d.config.MaxPlayers]
		}
	}

	var ids []string
	seen := make(map[string]bool)
	for i, p := range players {
		if i > 0 && d.config.RequestDelay > 0 {
			select {
			case <-ctx.Done():
				return ids, ctx.Err()
			case <-time.After(d.config.RequestDelay):
			}
		}
		games, err := d.playerGames(ctx, p.statsURL)
		if err != nil {
			d.logger.Warn("player games", "player", p.username, "error", err)
			continue
		}
		for _, id := range games {
			if seen[id] {
				continue
			}
			seen[id] = true
			ids = append(ids, id)
			if limit > 0 && len(ids) >= limit {
				return ids, nil
			}
		}
	}
	return ids, nil
}

func (d *Discoverer) fetch(ctx context.Context, url string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", d.config.UserAgent)

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GET %s: unexpected status code: %d", url, resp.StatusCode)
	}
	return goquery.NewDocumentFromReader(resp.Body)
}

func (d *Discoverer) leaderboardPlayers(ctx context.Context) ([]playerInfo, error) {
	doc, err := d.fetch(ctx, fmt.Sprintf("%s/leaderboard/%s", d.config.BaseURL, d.config.Leaderboard))
	if err != nil {
		return nil, err
	}

	var players []playerInfo
	seen := make(map[string]bool)
	doc.Find("a[href*='/leaderboard/']").Each(func(i int, s *goquery.Selection) {
		href, exists := s.Attr("href")
		if !exists {
			return
		}
		matches := playerRe.FindStringSubmatch(href)
		if len(matches) < 2 || seen[matches[1]] {
			return
		}
		seen[matches[1]] = true
		statsURL := href
		if strings.HasPrefix(href, "/") {
			statsURL = d.config.BaseURL + href
		}
		players = append(players, playerInfo{username: matches[1], statsURL: statsURL})
	})
	return players, nil
}

func (d *Discoverer) playerGames(ctx context.Context, statsURL string) ([]string, error) {
	doc, err := d.fetch(ctx, statsURL)
	if err != nil {
		return nil, err
	}

	var ids []string
	seen := make(map[string]bool)
	doc.Find("a[href*='/game/']").Each(func(i int, s *goquery.Selection) {
		href, exists := s.Attr("href")
		if !exists {
			return
		}
		matches := gameIDRe.FindStringSubmatch(href)
		if len(matches) >= 2 && !seen[matches[1]] {
			seen[matches[1]] = true
			ids = append(ids, matches[1])
		}
	})
	return ids, nil
}
