package transcription

import (
	"bytes"
	"context"
	"encoding/json"
	"encoding/xml"
	"html"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/nijaru/yt-summary/apperrors"
	"github.com/pkg/errors"
)

const (
	DefaultPlayerURL = "https://www.youtube.com/youtubei/v1/player?prettyPrint=false"

	androidClientVersion = "19.09.37"
	androidUserAgent     = "com.google.android.youtube/19.09.37 (Linux; U; Android 11) gzip"
	maxCaptionBytes      = 4 << 20
)

type playerRequest struct {
	Context struct {
		Client struct {
			ClientName        string `json:"clientName"`
			ClientVersion     string `json:"clientVersion"`
			AndroidSdkVersion int    `json:"androidSdkVersion"`
			Hl                string `json:"hl"`
		} `json:"client"`
	} `json:"context"`
	VideoID        string `json:"videoId"`
	RacyCheckOk    bool   `json:"racyCheckOk"`
	ContentCheckOk bool   `json:"contentCheckOk"`
}

type playerResponse struct {
	PlayabilityStatus struct {
		Status string `json:"status"`
		Reason string `json:"reason"`
	} `json:"playabilityStatus"`
	Captions struct {
		PlayerCaptionsTracklistRenderer struct {
			CaptionTracks []captionTrack `json:"captionTracks"`
		} `json:"playerCaptionsTracklistRenderer"`
	} `json:"captions"`
}

type captionTrack struct {
	BaseURL      string `json:"baseUrl"`
	LanguageCode string `json:"languageCode"`
	Kind         string `json:"kind"` // "asr" = auto-generated
}

// timedText covers both caption XML shapes YouTube serves:
// <transcript><text start dur>…</text></transcript> and
// <timedtext format="3"><body><p t d>…</p></body></timedtext>.
type timedText struct {
	Texts []struct {
		Start float64 `xml:"start,attr"`
		Dur   float64 `xml:"dur,attr"`
		Text  string  `xml:",chardata"`
	} `xml:"text"`
	Paragraphs []struct {
		T     int64    `xml:"t,attr"`
		D     int64    `xml:"d,attr"`
		Text  string   `xml:",chardata"`
		Words []string `xml:"s"`
	} `xml:"body>p"`
}

// InnertubeSource reads captions through YouTube's innertube player API.
type InnertubeSource struct {
	PlayerURL  string
	Language   string
	HTTPClient *http.Client
}

func NewInnertubeSource(language string, timeout time.Duration) *InnertubeSource {
	return &InnertubeSource{
		PlayerURL:  DefaultPlayerURL,
		Language:   language,
		HTTPClient: &http.Client{Timeout: timeout},
	}
}

func (s *InnertubeSource) Segments(ctx context.Context, videoID string) ([]Segment, error) {
	const op = "InnertubeSource.Segments"

	pr, err := s.player(ctx, videoID)
	if err != nil {
		return nil, err
	}

	switch pr.PlayabilityStatus.Status {
	case "", "OK":
	default:
		reason := pr.PlayabilityStatus.Reason
		if reason == "" {
			reason = strings.ToLower(pr.PlayabilityStatus.Status)
		}
		return nil, apperrors.TranscriptUnavailable(op, nil, "video unavailable: "+reason)
	}

	track, ok := selectCaptionTrack(pr.Captions.PlayerCaptionsTracklistRenderer.CaptionTracks, s.Language)
	if !ok {
		return nil, apperrors.TranscriptUnavailable(op, nil, "no captions available for this video")
	}

	body, err := s.get(ctx, track.BaseURL)
	if err != nil {
		return nil, errors.Wrap(err, "fetch captions")
	}

	segments, err := parseTimedText(body)
	if err != nil {
		return nil, errors.Wrap(err, "parse captions")
	}
	if len(segments) == 0 {
		return nil, apperrors.TranscriptUnavailable(op, nil, "caption track is empty")
	}
	return segments, nil
}

func (s *InnertubeSource) player(ctx context.Context, videoID string) (*playerResponse, error) {
	var reqBody playerRequest
	reqBody.Context.Client.ClientName = "ANDROID"
	reqBody.Context.Client.ClientVersion = androidClientVersion
	reqBody.Context.Client.AndroidSdkVersion = 30
	reqBody.Context.Client.Hl = s.Language
	reqBody.VideoID = videoID
	reqBody.RacyCheckOk = true
	reqBody.ContentCheckOk = true

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, errors.Wrap(err, "marshal player request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.PlayerURL, bytes.NewReader(payload))
	if err != nil {
		return nil, errors.Wrap(err, "create player request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", androidUserAgent)
	req.Header.Set("X-Youtube-Client-Name", "3")
	req.Header.Set("X-Youtube-Client-Version", androidClientVersion)

	resp, err := s.HTTPClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "player request")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("player API returned status %d", resp.StatusCode)
	}

	var pr playerResponse
	if err := json.NewDecoder(resp.Body).Decode(&pr); err != nil {
		return nil, errors.Wrap(err, "decode player response")
	}
	return &pr, nil
}

func (s *InnertubeSource) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", androidUserAgent)

	resp, err := s.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("status %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxCaptionBytes))
}

// selectCaptionTrack prefers a manual track in lang, then an auto-generated
// one in lang, then a regional variant of lang, then the first track.
func selectCaptionTrack(tracks []captionTrack, lang string) (captionTrack, bool) {
	if len(tracks) == 0 {
		return captionTrack{}, false
	}
	for _, t := range tracks {
		if t.LanguageCode == lang && t.Kind != "asr" {
			return t, true
		}
	}
	for _, t := range tracks {
		if t.LanguageCode == lang {
			return t, true
		}
	}
	for _, t := range tracks {
		if strings.HasPrefix(t.LanguageCode, lang+"-") {
			return t, true
		}
	}
	return tracks[0], true
}

func parseTimedText(data []byte) ([]Segment, error) {
	var tt timedText
	if err := xml.Unmarshal(data, &tt); err != nil {
		return nil, err
	}

	var segments []Segment
	for _, t := range tt.Texts {
		if text := cleanText(t.Text); text != "" {
			segments = append(segments, Segment{Text: text, Start: t.Start, Duration: t.Dur})
		}
	}
	for _, p := range tt.Paragraphs {
		text := cleanText(p.Text + strings.Join(p.Words, ""))
		if text != "" {
			segments = append(segments, Segment{
				Text:     text,
				Start:    float64(p.T) / 1000,
				Duration: float64(p.D) / 1000,
			})
		}
	}
	return segments, nil
}

// cleanText undoes the second level of entity escaping YouTube applies and
// flattens line breaks inside a caption.
func cleanText(s string) string {
	s = html.UnescapeString(s)
	return strings.Join(strings.Fields(s), " ")
}
