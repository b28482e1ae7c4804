package subtitle

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const browserUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/110.0.0.0 Safari/537.36"

// fetchTimeout bounds every outbound metadata/subtitle request so a slow
// platform never blocks the fallback chain.
const fetchTimeout = 10 * time.Second

// BilibiliAdapter fetches subtitles through the bilibili web API:
// view endpoint for metadata, player/v2 for multi-part subtitle lists, then
// the subtitle JSON file itself.
type BilibiliAdapter struct {
	httpClient    *http.Client
	sessionTokens []string
	rnd           *rand.Rand
	apiBase       string
}

func NewBilibiliAdapter(sessionTokens []string, rnd *rand.Rand) *BilibiliAdapter {
	return &BilibiliAdapter{
		httpClient:    &http.Client{Timeout: fetchTimeout},
		sessionTokens: sessionTokens,
		rnd:           rnd,
		apiBase:       "https://api.bilibili.com",
	}
}

type bilibiliTrack struct {
	Lan         string `json:"lan"`
	SubtitleURL string `json:"subtitle_url"`
}

type bilibiliPage struct {
	Page     int     `json:"page"`
	Cid      int64   `json:"cid"`
	Duration float64 `json:"duration"`
}

type bilibiliViewResp struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    struct {
		Aid      int64          `json:"aid"`
		Title    string         `json:"title"`
		Desc     string         `json:"desc"`
		Dynamic  string         `json:"dynamic"`
		Duration float64        `json:"duration"`
		Pages    []bilibiliPage `json:"pages"`
		Subtitle struct {
			List []bilibiliTrack `json:"list"`
		} `json:"subtitle"`
	} `json:"data"`
}

type bilibiliPlayerResp struct {
	Data struct {
		Subtitle struct {
			Subtitles []bilibiliTrack `json:"subtitles"`
		} `json:"subtitle"`
	} `json:"data"`
}

type bilibiliSubtitleBody struct {
	Body []struct {
		From    float64 `json:"from"`
		Content string  `json:"content"`
	} `json:"body"`
}

func (a *BilibiliAdapter) FetchTranscript(ctx context.Context, ref VideoRef, withTimestamp bool) (*AcquisitionResult, error) {
	view, err := a.fetchView(ctx, ref.VideoID)
	if err != nil {
		return nil, err
	}
	if view.Code != 0 {
		return nil, fmt.Errorf("bilibili view API code %d: %s", view.Code, view.Message)
	}

	data := view.Data
	result := &AcquisitionResult{
		Title:           data.Title,
		DurationSeconds: data.Duration,
	}
	if data.Desc != "" || data.Dynamic != "" {
		result.DescriptionText = strings.TrimSpace(data.Desc + " " + data.Dynamic)
	}

	tracks := data.Subtitle.List
	if ref.PageNumber != "" || len(data.Pages) > 0 {
		page := pickPage(data.Pages, ref.PageNumber)
		if page != nil {
			result.DurationSeconds = page.Duration
			pageTracks, err := a.fetchPageTracks(ctx, data.Aid, page.Cid)
			if err != nil {
				log.Printf("[bilibili] %s: player/v2 fetch failed: %v", ref.VideoID, err)
			} else {
				tracks = pageTracks
			}
		}
	}

	if len(tracks) == 0 {
		return result, nil
	}

	track := pickBilibiliTrack(tracks)
	cues, err := a.fetchSubtitleFile(ctx, track.SubtitleURL)
	if err != nil {
		log.Printf("[bilibili] %s: subtitle download failed: %v", ref.VideoID, err)
		return result, nil
	}
	result.Transcript = ReduceCues(cues, withTimestamp)
	return result, nil
}

func (a *BilibiliAdapter) fetchView(ctx context.Context, videoID string) (*bilibiliViewResp, error) {
	params := "?bvid=" + videoID
	if strings.HasPrefix(videoID, "av") {
		params = "?aid=" + videoID[2:]
	}
	var view bilibiliViewResp
	if err := a.getJSON(ctx, a.apiBase+"/x/web-interface/view"+params, &view); err != nil {
		return nil, fmt.Errorf("view API: %w", err)
	}
	return &view, nil
}

func (a *BilibiliAdapter) fetchPageTracks(ctx context.Context, aid, cid int64) ([]bilibiliTrack, error) {
	url := fmt.Sprintf("%s/x/player/v2?aid=%d&cid=%d", a.apiBase, aid, cid)
	var player bilibiliPlayerResp
	if err := a.getJSON(ctx, url, &player); err != nil {
		return nil, err
	}
	return player.Data.Subtitle.Subtitles, nil
}

func (a *BilibiliAdapter) fetchSubtitleFile(ctx context.Context, subtitleURL string) ([]Cue, error) {
	if strings.HasPrefix(subtitleURL, "//") {
		subtitleURL = "https:" + subtitleURL
	}
	var body bilibiliSubtitleBody
	if err := a.getJSON(ctx, subtitleURL, &body); err != nil {
		return nil, err
	}
	cues := make([]Cue, 0, len(body.Body))
	for _, line := range body.Body {
		if strings.TrimSpace(line.Content) == "" {
			continue
		}
		cues = append(cues, Cue{Start: line.From, Text: line.Content})
	}
	return cues, nil
}

func (a *BilibiliAdapter) getJSON(ctx context.Context, url string, out any) error {
	ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", browserUserAgent)
	if token := samplePool(a.rnd, a.sessionTokens); token != "" {
		req.Header.Set("Cookie", "SESSDATA="+token)
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// pickPage selects the requested part of a multi-part video, defaulting to
// the first page.
func pickPage(pages []bilibiliPage, pageNumber string) *bilibiliPage {
	if len(pages) == 0 {
		return nil
	}
	want := 1
	if pageNumber != "" {
		if n, err := strconv.Atoi(pageNumber); err == nil {
			want = n
		}
	}
	for i := range pages {
		if pages[i].Page == want {
			return &pages[i]
		}
	}
	return &pages[0]
}

// pickBilibiliTrack prefers the zh-CN track, falling back to the first.
func pickBilibiliTrack(tracks []bilibiliTrack) bilibiliTrack {
	for _, t := range tracks {
		if t.Lan == "zh-CN" {
			return t
		}
	}
	return tracks[0]
}

// samplePool picks one entry from a credential pool. Selection is a pure
// function of the pool and the injected random source.
func samplePool(rnd *rand.Rand, pool []string) string {
	if len(pool) == 0 {
		return ""
	}
	if rnd == nil {
		return pool[0]
	}
	return pool[rnd.Intn(len(pool))]
}
