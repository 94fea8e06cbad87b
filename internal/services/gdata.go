package services

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"github.com/desertthunder/youfeed/internal/models"
	"github.com/desertthunder/youfeed/internal/shared"
)

const defaultGDataURL = "https://gdata.youtube.com/feeds/api"

// GDataFeed implements [FeedProvider] against the GData v2 Atom API.
type GDataFeed struct {
	baseURL    string
	pageSize   int
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *log.Logger
}

// GDataOpts configures a [GDataFeed]. Zero values fall back to defaults.
type GDataOpts struct {
	BaseURL   string
	APIToken  string
	PageSize  int
	RateLimit float64
	Timeout   time.Duration
	Client    *http.Client
	Logger    *log.Logger
}

// NewGDataFeed creates a feed client. A non-empty APIToken is sent as an OAuth2 bearer token.
func NewGDataFeed(opts GDataOpts) *GDataFeed {
	if opts.BaseURL == "" {
		opts.BaseURL = defaultGDataURL
	}
	if opts.PageSize <= 0 {
		opts.PageSize = 50
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 5
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}

	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}
	if opts.APIToken != "" {
		ctx := context.WithValue(context.Background(), oauth2.HTTPClient, client)
		client = oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: opts.APIToken}))
		client.Timeout = opts.Timeout
	}

	return &GDataFeed{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		pageSize:   opts.PageSize,
		httpClient: client,
		limiter:    rate.NewLimiter(rate.Limit(opts.RateLimit), 1),
		logger:     opts.Logger,
	}
}

// FetchPage implements [FeedProvider].
func (g *GDataFeed) FetchPage(ctx context.Context, req PageRequest) (*FeedPage, error) {
	target := req.Next
	if target == "" {
		var module string
		switch req.Kind {
		case models.SourcePlaylist:
			module = "playlists/" + url.PathEscape(req.Resource)
		case models.SourceFavorites:
			module = "users/" + url.PathEscape(req.Resource) + "/favorites"
		default:
			return nil, fmt.Errorf("%w: unknown feed kind %q", shared.ErrInvalidArgument, req.Kind)
		}
		target = g.baseURL + "/" + module + "?" + url.Values{"max-results": {strconv.Itoa(g.pageSize)}}.Encode()
	}

	body, err := g.get(ctx, target, -1)
	if err != nil {
		return nil, err
	}

	var feed atomFeed
	if err := xml.Unmarshal(body, &feed); err != nil {
		return nil, fmt.Errorf("%w: failed to parse feed: %v", shared.ErrAPIRequest, err)
	}
	return feed.page(), nil
}

// FetchUser implements [FeedProvider].
func (g *GDataFeed) FetchUser(ctx context.Context, userID string) (*FeedUser, error) {
	body, err := g.get(ctx, g.baseURL+"/users/"+url.PathEscape(userID), -1)
	if err != nil {
		return nil, err
	}

	var entry atomUser
	if err := xml.Unmarshal(body, &entry); err != nil {
		return nil, fmt.Errorf("%w: failed to parse user: %v", shared.ErrAPIRequest, err)
	}
	return &FeedUser{ID: userID, Username: strings.TrimSpace(entry.Username), Name: strings.TrimSpace(entry.Title)}, nil
}

// ProbeVideo implements [FeedProvider]. Private videos answer with a plain-text sentinel instead of an entry.
func (g *GDataFeed) ProbeVideo(ctx context.Context, videoID string) ([]byte, error) {
	return g.get(ctx, g.baseURL+"/videos/"+url.PathEscape(videoID), ProbeSize)
}

// get performs a rate limited GET. limit < 0 reads the whole body. Status codes 403 and 404
// map to [shared.ErrUserSuspended] for user documents; callers of other documents get [shared.ErrAPIRequest].
func (g *GDataFeed) get(ctx context.Context, target string, limit int64) ([]byte, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("GData-Version", "2")

	g.logger.Debug("feed request", "url", target)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	var r io.Reader = resp.Body
	if limit >= 0 {
		r = io.LimitReader(resp.Body, limit)
	}
	body, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	// The private sentinel arrives with an error status, so probes return the body as-is.
	if limit >= 0 && resp.StatusCode == http.StatusForbidden {
		return body, nil
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return body, nil
	case isUserDocument(target) && (resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusNotFound):
		return nil, fmt.Errorf("%w: %s", shared.ErrUserSuspended, strings.TrimSpace(string(body)))
	case resp.StatusCode == http.StatusServiceUnavailable:
		return nil, fmt.Errorf("%w: %s", shared.ErrServiceUnavailable, resp.Status)
	default:
		return nil, fmt.Errorf("%w: status %d for %s", shared.ErrAPIRequest, resp.StatusCode, target)
	}
}

func isUserDocument(target string) bool {
	u, err := url.Parse(target)
	if err != nil {
		return false
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	return len(parts) >= 2 && parts[len(parts)-2] == "users"
}

type atomFeed struct {
	XMLName xml.Name    `xml:"http://www.w3.org/2005/Atom feed"`
	Title   string      `xml:"http://www.w3.org/2005/Atom title"`
	Author  atomAuthor  `xml:"http://www.w3.org/2005/Atom author"`
	Links   []atomLink  `xml:"http://www.w3.org/2005/Atom link"`
	Entries []atomEntry `xml:"http://www.w3.org/2005/Atom entry"`
}

type atomAuthor struct {
	Name   string `xml:"http://www.w3.org/2005/Atom name"`
	UserID string `xml:"http://gdata.youtube.com/schemas/2007 userId"`
}

type atomLink struct {
	Rel  string `xml:"rel,attr"`
	Href string `xml:"href,attr"`
}

type atomEntry struct {
	Position *int       `xml:"http://gdata.youtube.com/schemas/2007 position"`
	Group    mediaGroup `xml:"http://search.yahoo.com/mrss/ group"`
}

type mediaGroup struct {
	VideoID     string           `xml:"http://gdata.youtube.com/schemas/2007 videoid"`
	Title       *string          `xml:"http://search.yahoo.com/mrss/ title"`
	Description *string          `xml:"http://search.yahoo.com/mrss/ description"`
	Keywords    *string          `xml:"http://search.yahoo.com/mrss/ keywords"`
	Categories  []mediaCategory  `xml:"http://search.yahoo.com/mrss/ category"`
	Thumbnails  []mediaThumbnail `xml:"http://search.yahoo.com/mrss/ thumbnail"`
	Credits     []mediaCredit    `xml:"http://search.yahoo.com/mrss/ credit"`
	UploaderID  *string          `xml:"http://gdata.youtube.com/schemas/2007 uploaderId"`
	Uploaded    *string          `xml:"http://gdata.youtube.com/schemas/2007 uploaded"`
	Duration    *ytDuration      `xml:"http://gdata.youtube.com/schemas/2007 duration"`
}

type mediaCategory struct {
	Label string `xml:"label,attr"`
	Term  string `xml:",chardata"`
}

type mediaThumbnail struct {
	URL    string `xml:"url,attr"`
	Width  int    `xml:"width,attr"`
	Height int    `xml:"height,attr"`
	Time   string `xml:"time,attr"`
}

type mediaCredit struct {
	Role     string `xml:"role,attr"`
	Display  string `xml:"http://gdata.youtube.com/schemas/2007 display,attr"`
	Username string `xml:",chardata"`
}

type ytDuration struct {
	Seconds int `xml:"seconds,attr"`
}

type atomUser struct {
	XMLName  xml.Name `xml:"http://www.w3.org/2005/Atom entry"`
	Title    string   `xml:"http://www.w3.org/2005/Atom title"`
	Username string   `xml:"http://gdata.youtube.com/schemas/2007 username"`
}

func (f *atomFeed) page() *FeedPage {
	page := &FeedPage{
		Title:  strings.TrimSpace(f.Title),
		Author: FeedAuthor{Name: strings.TrimSpace(f.Author.Name), UserID: strings.TrimSpace(f.Author.UserID)},
	}
	for _, l := range f.Links {
		if l.Rel == "next" {
			page.Next = l.Href
		}
	}
	for _, e := range f.Entries {
		if entry, ok := e.entry(); ok {
			page.Entries = append(page.Entries, entry)
		}
	}
	return page
}

func (e atomEntry) entry() (FeedEntry, bool) {
	g := e.Group
	id := strings.TrimSpace(g.VideoID)
	if id == "" {
		return FeedEntry{}, false
	}

	entry := FeedEntry{
		VideoID:     id,
		Position:    e.Position,
		Title:       g.Title,
		Description: g.Description,
	}

	if g.UploaderID != nil {
		entry.UploaderID = uploaderID(*g.UploaderID)
	}
	for _, c := range g.Credits {
		if c.Role == "uploader" {
			entry.UploaderName = strings.TrimSpace(c.Display)
			if entry.UploaderName == "" {
				entry.UploaderName = strings.TrimSpace(c.Username)
			}
		}
	}
	if g.Keywords != nil {
		entry.Keywords = splitKeywords(*g.Keywords)
	}
	if g.Categories != nil {
		entry.Categories = make([]string, 0, len(g.Categories))
		for _, c := range g.Categories {
			label := c.Label
			if label == "" {
				label = strings.TrimSpace(c.Term)
			}
			entry.Categories = append(entry.Categories, label)
		}
	}
	if g.Thumbnails != nil {
		entry.Thumbnails = make([]models.Thumbnail, 0, len(g.Thumbnails))
		for _, t := range g.Thumbnails {
			entry.Thumbnails = append(entry.Thumbnails, models.Thumbnail{Width: t.Width, Height: t.Height, Time: t.Time, URL: t.URL})
		}
	}
	if g.Uploaded != nil {
		if ts, err := time.Parse(time.RFC3339, strings.TrimSpace(*g.Uploaded)); err == nil {
			ts = ts.UTC()
			entry.Uploaded = &ts
		}
	}
	if g.Duration != nil {
		d := g.Duration.Seconds
		entry.Duration = &d
	}
	return entry, true
}

// uploaderID strips the two-letter "UC" channel prefix the feed puts in front of user ids.
func uploaderID(raw string) string {
	raw = strings.TrimSpace(raw)
	if len(raw) > 2 && strings.HasPrefix(raw, "UC") {
		return raw[2:]
	}
	return raw
}

func splitKeywords(s string) []string {
	out := []string{}
	for k := range strings.SplitSeq(s, ",") {
		if k = strings.TrimSpace(k); k != "" {
			out = append(out, k)
		}
	}
	return out
}
