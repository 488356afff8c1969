package driven

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/alorle/iptv-player/circuitbreaker"
	"github.com/alorle/iptv-player/internal/catalog"
	"github.com/alorle/iptv-player/internal/stream"
	"github.com/alorle/iptv-player/internal/userdata"
)

const userDataEndpoint = "user-data"

// UserDataHTTPAdapter implements the ProgressStore and LibraryStore ports
// against the panel's user-data REST endpoint. Every call goes through a
// circuit breaker so an unreachable panel fails fast.
type UserDataHTTPAdapter struct {
	baseURL    string
	httpClient *http.Client
	breaker    *circuitbreaker.Breaker
	logger     *slog.Logger
}

// NewUserDataHTTPAdapter creates a new HTTP adapter for the user-data service.
// baseURL is the panel root (e.g., http://panel.example.com).
func NewUserDataHTTPAdapter(baseURL string, timeout time.Duration, breaker *circuitbreaker.Breaker, logger *slog.Logger) *UserDataHTTPAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	if breaker == nil {
		breaker = circuitbreaker.New(circuitbreaker.Config{Name: "user-data", Logger: logger, IsFailure: IsUserDataOutage})
	}
	return &UserDataHTTPAdapter{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		breaker: breaker,
		logger:  logger,
	}
}

// IsUserDataOutage reports whether err means the service is unreachable, as
// opposed to a request the service answered and rejected.
func IsUserDataOutage(err error) bool {
	return err != nil && !errors.Is(err, userdata.ErrRemoteState)
}

type contentDTO struct {
	URL   string `json:"url"`
	Name  string `json:"name"`
	Logo  string `json:"logo,omitempty"`
	Type  string `json:"type"`
	Group string `json:"group,omitempty"`
}

type saveProgressDTO struct {
	contentDTO
	Progress float64 `json:"progress"`
	Duration float64 `json:"duration"`
}

type remoteItemDTO struct {
	ContentURL      string   `json:"content_url"`
	ContentName     string   `json:"content_name"`
	ContentLogo     *string  `json:"content_logo"`
	ContentType     string   `json:"content_type"`
	ContentGroup    string   `json:"content_group"`
	ProgressSeconds float64  `json:"progress_seconds"`
	DurationSeconds float64  `json:"duration_seconds"`
	Completed       flexBool `json:"completed"`
	CreatedAt       string   `json:"created_at"`
	WatchedAt       string   `json:"watched_at"`
	UpdatedAt       string   `json:"updated_at"`
}

type envelopeDTO struct {
	Success          bool            `json:"success"`
	Error            string          `json:"error"`
	Completed        flexBool        `json:"completed"`
	Favorites        []remoteItemDTO `json:"favorites"`
	History          []remoteItemDTO `json:"history"`
	ContinueWatching []remoteItemDTO `json:"continue_watching"`
	Progress         *struct {
		ProgressSeconds float64  `json:"progress_seconds"`
		DurationSeconds float64  `json:"duration_seconds"`
		Completed       flexBool `json:"completed"`
	} `json:"progress"`
}

// flexBool accepts true/false as well as the 0/1 and "0"/"1" forms some
// panels emit.
type flexBool bool

func (b *flexBool) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	switch s {
	case "true", "1":
		*b = true
	case "false", "0", "", "null":
		*b = false
	default:
		return fmt.Errorf("invalid boolean %q", s)
	}
	return nil
}

func refToDTO(ref userdata.ContentRef) contentDTO {
	return contentDTO{
		URL:   ref.URL,
		Name:  ref.Name,
		Logo:  ref.Logo,
		Type:  ref.Type.String(),
		Group: ref.Group,
	}
}

func (d remoteItemDTO) ref() userdata.ContentRef {
	typ, _ := catalog.ParseContentType(d.ContentType)
	logo := ""
	if d.ContentLogo != nil {
		logo = *d.ContentLogo
	}
	return userdata.ContentRef{
		URL:   d.ContentURL,
		Name:  d.ContentName,
		Logo:  logo,
		Group: d.ContentGroup,
		Type:  typ,
	}
}

var remoteTimeLayouts = []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02T15:04:05"}

func parseRemoteTime(s string) time.Time {
	for _, layout := range remoteTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// GetProgress retrieves the saved position for url.
func (a *UserDataHTTPAdapter) GetProgress(ctx context.Context, token, contentURL string) (userdata.Position, bool, error) {
	env, err := a.call(ctx, http.MethodGet, url.Values{
		"action": {"get_progress"},
		"token":  {token},
		"url":    {contentURL},
	}, nil)
	if err != nil {
		return userdata.Position{}, false, err
	}
	if env.Progress == nil {
		return userdata.Position{}, false, nil
	}
	return userdata.Position{
		Seconds:   env.Progress.ProgressSeconds,
		Duration:  env.Progress.DurationSeconds,
		Completed: bool(env.Progress.Completed),
	}, true, nil
}

// SaveProgress stores a position report.
func (a *UserDataHTTPAdapter) SaveProgress(ctx context.Context, token string, rec userdata.ProgressRecord) (bool, error) {
	env, err := a.call(ctx, http.MethodPost, url.Values{
		"action": {"save_progress"},
		"token":  {token},
	}, saveProgressDTO{
		contentDTO: refToDTO(rec.Content),
		Progress:   rec.Seconds,
		Duration:   rec.Duration,
	})
	if err != nil {
		return false, err
	}
	return bool(env.Completed), nil
}

// ResetProgress forgets the saved position for url.
func (a *UserDataHTTPAdapter) ResetProgress(ctx context.Context, token, contentURL string) error {
	_, err := a.call(ctx, http.MethodPost, url.Values{
		"action": {"reset_progress"},
		"token":  {token},
	}, map[string]string{"url": contentURL})
	return err
}

// ContinueWatching lists content with a saved position.
func (a *UserDataHTTPAdapter) ContinueWatching(ctx context.Context, token string) ([]userdata.ProgressItem, error) {
	env, err := a.call(ctx, http.MethodGet, url.Values{
		"action": {"get_progress"},
		"token":  {token},
	}, nil)
	if err != nil {
		return nil, err
	}
	items := make([]userdata.ProgressItem, 0, len(env.ContinueWatching))
	for _, d := range env.ContinueWatching {
		items = append(items, userdata.ProgressItem{
			Content: d.ref(),
			Position: userdata.Position{
				Seconds:   d.ProgressSeconds,
				Duration:  d.DurationSeconds,
				Completed: bool(d.Completed),
			},
			UpdatedAt: parseRemoteTime(d.UpdatedAt),
		})
	}
	return items, nil
}

// Favorites lists the profile's favorites.
func (a *UserDataHTTPAdapter) Favorites(ctx context.Context, token string) ([]userdata.Favorite, error) {
	env, err := a.call(ctx, http.MethodGet, url.Values{
		"action": {"get_favorites"},
		"token":  {token},
	}, nil)
	if err != nil {
		return nil, err
	}
	favs := make([]userdata.Favorite, 0, len(env.Favorites))
	for _, d := range env.Favorites {
		favs = append(favs, userdata.Favorite{Content: d.ref(), CreatedAt: parseRemoteTime(d.CreatedAt)})
	}
	return favs, nil
}

// AddFavorite bookmarks content.
func (a *UserDataHTTPAdapter) AddFavorite(ctx context.Context, token string, ref userdata.ContentRef) error {
	_, err := a.call(ctx, http.MethodPost, url.Values{
		"action": {"add_favorite"},
		"token":  {token},
	}, refToDTO(ref))
	return err
}

// RemoveFavorite drops a bookmark.
func (a *UserDataHTTPAdapter) RemoveFavorite(ctx context.Context, token, contentURL string) error {
	_, err := a.call(ctx, http.MethodPost, url.Values{
		"action": {"remove_favorite"},
		"token":  {token},
	}, map[string]string{"url": contentURL})
	return err
}

// History lists recently opened content, newest first.
func (a *UserDataHTTPAdapter) History(ctx context.Context, token string, limit int) ([]userdata.HistoryItem, error) {
	params := url.Values{
		"action": {"get_history"},
		"token":  {token},
	}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}
	env, err := a.call(ctx, http.MethodGet, params, nil)
	if err != nil {
		return nil, err
	}
	items := make([]userdata.HistoryItem, 0, len(env.History))
	for _, d := range env.History {
		items = append(items, userdata.HistoryItem{Content: d.ref(), WatchedAt: parseRemoteTime(d.WatchedAt)})
	}
	return items, nil
}

// AddHistory records that content was opened.
func (a *UserDataHTTPAdapter) AddHistory(ctx context.Context, token string, ref userdata.ContentRef) error {
	dto := refToDTO(ref)
	dto.Group = ""
	_, err := a.call(ctx, http.MethodPost, url.Values{
		"action": {"add_history"},
		"token":  {token},
	}, dto)
	return err
}

// Ping checks if the user-data service answers at all.
func (a *UserDataHTTPAdapter) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.endpointURL(nil), nil)
	if err != nil {
		return fmt.Errorf("failed to create ping request: %w", err)
	}
	resp, err := a.httpClient.Do(req)
	if err != nil {
		return stream.NewNetworkError(a.baseURL, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= http.StatusInternalServerError {
		return stream.StatusError(a.baseURL, resp.StatusCode)
	}
	return nil
}

func (a *UserDataHTTPAdapter) endpointURL(params url.Values) string {
	u := fmt.Sprintf("%s/api/%s.php", a.baseURL, userDataEndpoint)
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	return u
}

func (a *UserDataHTTPAdapter) call(ctx context.Context, method string, params url.Values, body any) (envelopeDTO, error) {
	var env envelopeDTO
	action := params.Get("action")

	err := a.breaker.Execute(func() error {
		var reader io.Reader
		if body != nil {
			data, err := json.Marshal(body)
			if err != nil {
				return fmt.Errorf("failed to encode %s request: %w", action, err)
			}
			reader = bytes.NewReader(data)
		}

		reqURL := a.endpointURL(params)
		req, err := http.NewRequestWithContext(ctx, method, reqURL, reader)
		if err != nil {
			return fmt.Errorf("failed to create %s request: %w", action, err)
		}
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := a.httpClient.Do(req)
		if err != nil {
			a.logger.Debug("user-data request failed", "action", action, "error", err)
			return stream.NewNetworkError(a.baseURL, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= http.StatusInternalServerError {
			return stream.StatusError(a.baseURL, resp.StatusCode)
		}

		if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
			return fmt.Errorf("failed to decode %s response: %w", action, err)
		}
		if !env.Success {
			msg := env.Error
			if msg == "" {
				msg = fmt.Sprintf("status %d", resp.StatusCode)
			}
			return fmt.Errorf("%s: %w: %s", action, userdata.ErrRemoteState, msg)
		}
		return nil
	})
	if err != nil {
		return envelopeDTO{}, err
	}
	return env, nil
}
