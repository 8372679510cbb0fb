package importer

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dco-chess/analysis-service/internal/apperr"
)

// ChessComClient fetches a player's monthly game archives from the public
// chess.com API, following the fixed-User-Agent, timeout-bounded request
// shape of the original username importer.
type ChessComClient struct {
	BaseURL     string
	UserAgent   string
	Concurrency int
	client      *http.Client
}

func NewChessComClient(baseURL, userAgent string, concurrency int, timeout time.Duration) *ChessComClient {
	if concurrency < 1 {
		concurrency = 1
	}
	return &ChessComClient{
		BaseURL:     baseURL,
		UserAgent:   userAgent,
		Concurrency: concurrency,
		client:      &http.Client{Timeout: timeout},
	}
}

type archivesResponse struct {
	Archives []string `json:"archives"`
}

type archiveGamesResponse struct {
	Games []chessComGame `json:"games"`
}

type chessComGame struct {
	PGN       string `json:"pgn"`
	Rated     bool   `json:"rated"`
	TimeClass string `json:"time_class"`
	Rules     string `json:"rules"`
	EndTime   int64  `json:"end_time"`
}

// FetchOptions narrows a username's archives down to the games the caller
// actually wants imported.
type FetchOptions struct {
	StartDate *time.Time // inclusive, UTC
	EndDate   *time.Time // inclusive, UTC
	RatedOnly bool
	TimeClass string // "" = any
	Rules     string // "" = any
}

// FetchPGNs retrieves every matching game's PGN text for username, fetching
// each monthly archive concurrently up to Concurrency at a time. Per-archive
// failures are collected as errors rather than aborting the whole run.
func (c *ChessComClient) FetchPGNs(username string, opts FetchOptions) ([]string, []string) {
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" {
		return nil, []string{"username is required"}
	}

	archiveURLs, errs := c.listArchives(username)
	if len(archiveURLs) == 0 {
		if len(errs) == 0 {
			errs = append(errs, "no archive months available for this username")
		}
		return nil, errs
	}

	type archiveResult struct {
		games []string
		errs  []string
	}

	sem := make(chan struct{}, c.Concurrency)
	results := make([]archiveResult, len(archiveURLs))
	var wg sync.WaitGroup

	for i, url := range archiveURLs {
		if !monthInRange(url, opts.StartDate, opts.EndDate) {
			continue
		}
		wg.Add(1)
		go func(i int, url string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			games, fetchErr := c.fetchArchive(url)
			if fetchErr != nil {
				results[i] = archiveResult{errs: []string{fetchErr.Error()}}
				return
			}
			var pgns []string
			for _, g := range games {
				if g.PGN == "" {
					continue
				}
				if opts.RatedOnly && !g.Rated {
					continue
				}
				if opts.TimeClass != "" && g.TimeClass != opts.TimeClass {
					continue
				}
				if opts.Rules != "" && g.Rules != opts.Rules {
					continue
				}
				if !gameInRange(g.EndTime, opts.StartDate, opts.EndDate) {
					continue
				}
				pgns = append(pgns, g.PGN)
			}
			results[i] = archiveResult{games: pgns}
		}(i, url)
	}
	wg.Wait()

	var pgns []string
	for _, r := range results {
		pgns = append(pgns, r.games...)
		errs = append(errs, r.errs...)
	}
	return pgns, errs
}

func (c *ChessComClient) listArchives(username string) ([]string, []string) {
	url := fmt.Sprintf("%s/%s/games/archives", c.BaseURL, username)
	var resp archivesResponse
	if err := c.getJSON(url, &resp); err != nil {
		return nil, []string{err.Error()}
	}
	return resp.Archives, nil
}

func (c *ChessComClient) fetchArchive(url string) ([]chessComGame, error) {
	var resp archiveGamesResponse
	if err := c.getJSON(url, &resp); err != nil {
		return nil, err
	}
	return resp.Games, nil
}

func (c *ChessComClient) getJSON(url string, out interface{}) error {
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", c.UserAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return apperr.New(apperr.KindImportNetworkError, "request to "+url+" failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return apperr.New(apperr.KindImportNetworkError,
			fmt.Sprintf("http %d for %s", resp.StatusCode, url), nil)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// monthInRange extracts the /YYYY/MM suffix from an archive URL and checks
// it against the requested date range at month granularity.
func monthInRange(archiveURL string, start, end *time.Time) bool {
	year, month, ok := parseArchiveYearMonth(archiveURL)
	if !ok {
		return true
	}
	if start != nil {
		sy, sm := start.Year(), int(start.Month())
		if year < sy || (year == sy && month < sm) {
			return false
		}
	}
	if end != nil {
		ey, em := end.Year(), int(end.Month())
		if year > ey || (year == ey && month > em) {
			return false
		}
	}
	return true
}

func parseArchiveYearMonth(archiveURL string) (year, month int, ok bool) {
	parts := strings.Split(strings.TrimRight(archiveURL, "/"), "/")
	if len(parts) < 2 {
		return 0, 0, false
	}
	m, err := strconv.Atoi(parts[len(parts)-1])
	if err != nil {
		return 0, 0, false
	}
	y, err := strconv.Atoi(parts[len(parts)-2])
	if err != nil {
		return 0, 0, false
	}
	return y, m, true
}

func gameInRange(endTimeUnix int64, start, end *time.Time) bool {
	if start == nil && end == nil {
		return true
	}
	if endTimeUnix == 0 {
		return true
	}
	gameTime := time.Unix(endTimeUnix, 0).UTC()
	if start != nil && gameTime.Before(*start) {
		return false
	}
	if end != nil && gameTime.After(*end) {
		return false
	}
	return true
}
