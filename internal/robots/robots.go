package robots

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/quizharvest/internal/cache"
)

// ErrDisallowed marks a page URL excluded by its host's robots.txt.
var ErrDisallowed = errors.New("disallowed by robots.txt")

// DefaultTTL is how long parsed rules for an origin are reused.
const DefaultTTL = 30 * time.Minute

// Gate decides whether page URLs may be fetched. Rules are fetched once per
// origin, revalidated through the HTTP cache and kept in memory for TTL.
//
// A 4xx robots.txt allows everything. A 5xx or transport failure disallows
// the whole origin until the entry expires.
type Gate struct {
	Client    *http.Client
	Cache     *cache.HTTPCache
	UserAgent string
	TTL       time.Duration
	// CheckPrivateHosts applies robots.txt to loopback and private hosts too.
	// Local mirrors are otherwise always allowed.
	CheckPrivateHosts bool

	mu    sync.Mutex
	rules map[string]entry
	now   func() time.Time
}

type entry struct {
	rules   Rules
	expires time.Time
}

// Allowed reports whether pageURL may be fetched.
func (g *Gate) Allowed(ctx context.Context, pageURL string) (bool, error) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return false, fmt.Errorf("parse url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false, fmt.Errorf("unsupported url scheme: %q", pageURL)
	}
	if !g.CheckPrivateHosts && isPrivateHost(u.Hostname()) {
		return true, nil
	}
	rules, err := g.Rules(ctx, u.Scheme+"://"+u.Host)
	if err != nil {
		return false, err
	}
	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	if u.RawQuery != "" {
		path += "?" + u.RawQuery
	}
	return rules.Allows(g.UserAgent, path), nil
}

// Rules returns the rules for origin ("scheme://host"), from memory when fresh.
func (g *Gate) Rules(ctx context.Context, origin string) (Rules, error) {
	g.mu.Lock()
	if g.now == nil {
		g.now = time.Now
	}
	if e, ok := g.rules[origin]; ok && g.now().Before(e.expires) {
		g.mu.Unlock()
		return e.rules, nil
	}
	g.mu.Unlock()

	rules, err := g.fetch(ctx, origin+"/robots.txt")
	if err != nil {
		if ctx.Err() != nil {
			return Rules{}, ctx.Err()
		}
		log.Warn().Err(err).Str("origin", origin).Msg("robots.txt unreachable; origin disallowed")
		rules = disallowAll()
	}

	ttl := g.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	g.mu.Lock()
	if g.rules == nil {
		g.rules = make(map[string]entry)
	}
	g.rules[origin] = entry{rules: rules, expires: g.now().Add(ttl)}
	g.mu.Unlock()
	return rules, nil
}

func (g *Gate) fetch(ctx context.Context, robotsURL string) (Rules, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return Rules{}, err
	}
	if g.UserAgent != "" {
		req.Header.Set("User-Agent", g.UserAgent)
	}
	if g.Cache != nil {
		if meta, err := g.Cache.LoadMeta(ctx, robotsURL); err == nil {
			if meta.ETag != "" {
				req.Header.Set("If-None-Match", meta.ETag)
			}
			if meta.LastModified != "" {
				req.Header.Set("If-Modified-Since", meta.LastModified)
			}
		}
	}
	client := g.Client
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	resp, err := client.Do(req)
	if err != nil {
		return Rules{}, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotModified && g.Cache != nil:
		body, err := g.Cache.LoadBody(ctx, robotsURL)
		if err != nil {
			return Rules{}, fmt.Errorf("load cached robots.txt: %w", err)
		}
		return Parse(string(body)), nil
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		body, err := io.ReadAll(io.LimitReader(resp.Body, 512*1024))
		if err != nil {
			return Rules{}, fmt.Errorf("read robots.txt: %w", err)
		}
		if g.Cache != nil {
			_ = g.Cache.Save(ctx, robotsURL, "text/plain", resp.Header.Get("ETag"), resp.Header.Get("Last-Modified"), body)
		}
		return Parse(string(body)), nil
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return Rules{}, nil
	default:
		return Rules{}, fmt.Errorf("robots.txt status %d", resp.StatusCode)
	}
}

// Rules is a parsed robots.txt.
type Rules struct {
	Groups []Group
}

// Group is one User-agent block.
type Group struct {
	Agents []string
	Lines  []Line
}

// Line is a single Allow or Disallow directive.
type Line struct {
	Allow   bool
	Pattern string
}

func disallowAll() Rules {
	return Rules{Groups: []Group{{Agents: []string{"*"}, Lines: []Line{{Pattern: "/"}}}}}
}

// Parse reads robots.txt text. Unknown directives are skipped and an empty
// Disallow value is dropped since it matches nothing.
func Parse(text string) Rules {
	var (
		groups  []Group
		current Group
		inRules bool
	)
	sc := bufio.NewScanner(strings.NewReader(text))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := sc.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		key, val, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		key = strings.ToLower(strings.TrimSpace(key))
		val = strings.TrimSpace(val)
		switch key {
		case "user-agent", "useragent":
			if inRules {
				groups = append(groups, current)
				current = Group{}
				inRules = false
			}
			current.Agents = append(current.Agents, strings.ToLower(val))
		case "allow", "disallow":
			if len(current.Agents) == 0 {
				continue
			}
			inRules = true
			if val == "" {
				continue
			}
			current.Lines = append(current.Lines, Line{Allow: key == "allow", Pattern: val})
		}
	}
	if len(current.Agents) > 0 {
		groups = append(groups, current)
	}
	return Rules{Groups: groups}
}

// Allows reports whether path may be fetched by userAgent. The group whose
// agent token is the longest match for the product token wins, falling back
// to "*". Within it the longest matching pattern decides, and Allow wins ties.
func (r Rules) Allows(userAgent, path string) bool {
	g := r.groupFor(productToken(userAgent))
	if g == nil {
		return true
	}
	best := -1
	allowed := true
	for _, l := range g.Lines {
		if !matches(l.Pattern, path) {
			continue
		}
		n := len(l.Pattern)
		if n > best || (n == best && l.Allow) {
			best = n
			allowed = l.Allow
		}
	}
	return allowed
}

func (r Rules) groupFor(token string) *Group {
	var wildcard *Group
	var best *Group
	bestLen := 0
	for i := range r.Groups {
		g := &r.Groups[i]
		for _, a := range g.Agents {
			if a == "*" {
				if wildcard == nil {
					wildcard = g
				}
				continue
			}
			if token != "" && strings.HasPrefix(token, a) && len(a) > bestLen {
				best, bestLen = g, len(a)
			}
		}
	}
	if best != nil {
		return best
	}
	return wildcard
}

// productToken lowercases the first product name of a User-Agent value,
// e.g. "QuizHarvest/1.0 (+https://x)" gives "quizharvest".
func productToken(ua string) string {
	ua = strings.TrimSpace(ua)
	if i := strings.IndexAny(ua, "/ "); i >= 0 {
		ua = ua[:i]
	}
	return strings.ToLower(ua)
}

// matches applies a robots pattern where '*' matches any run of characters
// and a trailing '$' anchors the end of the path.
func matches(pattern, path string) bool {
	anchored := strings.HasSuffix(pattern, "$")
	if anchored {
		pattern = strings.TrimSuffix(pattern, "$")
	}
	parts := strings.Split(pattern, "*")
	if !strings.HasPrefix(path, parts[0]) {
		return false
	}
	rest := path[len(parts[0]):]
	if len(parts) == 1 {
		return !anchored || rest == ""
	}
	for _, p := range parts[1 : len(parts)-1] {
		i := strings.Index(rest, p)
		if i < 0 {
			return false
		}
		rest = rest[i+len(p):]
	}
	last := parts[len(parts)-1]
	if anchored {
		return strings.HasSuffix(rest, last)
	}
	return strings.Contains(rest, last)
}

func isPrivateHost(host string) bool {
	if strings.EqualFold(host, "localhost") {
		return true
	}
	ip := net.ParseIP(host)
	if ip == nil {
		return false
	}
	return ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast() || ip.IsUnspecified()
}
