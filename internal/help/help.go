// Package help fetches keyword documentation from the online SIMPL+
// language reference.
package help

import (
	"context"
	"errors"
	"fmt"
	"html"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"
)

// ErrNoHelp is returned for every lookup that cannot be answered: unknown
// keywords, network failures and pages without a syntax section.
var ErrNoHelp = errors.New("no help available")

// tocChunks are the table of contents files of the language reference.
var tocChunks = []string{
	"Data/Tocs/Simpl_lr_Chunk0.js",
	"Data/Tocs/Simpl_lr_Chunk1.js",
	"Data/Tocs/Simpl_lr_Chunk2.js",
}

// maxPageSize bounds a single help response.
const maxPageSize = 4 << 20

// Options configures a Client.
type Options struct {
	BaseURL    string
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Client looks up help pages. A nil *Client answers every lookup with
// ErrNoHelp.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger

	tocOnce sync.Once
	toc     map[string]string // lowercase title -> page URL

	mu    sync.Mutex
	pages map[string]*Page
	group singleflight.Group
}

// Page is a fetched help page.
type Page struct {
	Keyword string
	URL     string
	// HTML is the page source with relative links made absolute.
	HTML string
}

// Text returns the page content as plain text.
func (p *Page) Text() string {
	return htmlToText(p.HTML)
}

// Param is one parameter of a documented function.
type Param struct {
	Name string
	Type string
}

// Function is the signature documented for a system function.
type Function struct {
	Name       string
	ReturnType string // "void" when the syntax names none
	Params     []Param
}

// String renders the signature as "TYPE name(T a, T b)".
func (f *Function) String() string {
	var sb strings.Builder
	sb.WriteString(f.ReturnType)
	sb.WriteString(" ")
	sb.WriteString(f.Name)
	sb.WriteString("(")
	for i, p := range f.Params {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(p.Type)
		sb.WriteString(" ")
		sb.WriteString(p.Name)
	}
	sb.WriteString(")")
	return sb.String()
}

// New creates a client.
func New(opts Options) *Client {
	hc := opts.HTTPClient
	if hc == nil {
		hc = http.DefaultClient
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Client{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		http:    hc,
		logger:  logger,
		pages:   make(map[string]*Page),
	}
}

// Has reports whether the table of contents lists keyword.
func (c *Client) Has(ctx context.Context, keyword string) bool {
	if c == nil {
		return false
	}
	c.loadTOC(ctx)
	_, ok := c.toc[strings.ToLower(strings.TrimSpace(keyword))]
	return ok
}

// Page returns the help page for keyword. Pages are cached for the life of
// the client.
func (c *Client) Page(ctx context.Context, keyword string) (*Page, error) {
	if c == nil {
		return nil, ErrNoHelp
	}
	key := strings.ToLower(strings.TrimSpace(keyword))
	c.loadTOC(ctx)
	pageURL, ok := c.toc[key]
	if !ok {
		return nil, ErrNoHelp
	}

	c.mu.Lock()
	page, ok := c.pages[key]
	c.mu.Unlock()
	if ok {
		return page, nil
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		body, err := c.fetch(ctx, pageURL)
		if err != nil {
			return nil, err
		}
		content, err := absolutize(pageURL, body)
		if err != nil {
			return nil, err
		}
		page := &Page{Keyword: strings.TrimSpace(keyword), URL: pageURL, HTML: content}
		c.mu.Lock()
		c.pages[key] = page
		c.mu.Unlock()
		return page, nil
	})
	if err != nil {
		c.logger.Debug("help page unavailable", "keyword", keyword, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrNoHelp, err)
	}
	return v.(*Page), nil
}

var (
	syntaxRe     = regexp.MustCompile(`(?i)Syntax:\s*(.*)\s*Description`)
	optionalRe   = regexp.MustCompile(`\[.*\]`)
	paramRe      = regexp.MustCompile(`(\w+)\W(\w+)`)
	whitespaceRe = regexp.MustCompile(`\s+`)
)

// FunctionInfo reads the signature of a system function from its help page.
func (c *Client) FunctionInfo(ctx context.Context, name string) (*Function, error) {
	page, err := c.Page(ctx, name)
	if err != nil {
		return nil, err
	}
	return ParseFunction(name, page.Text())
}

// ParseFunction extracts a signature from the "Syntax: ... Description"
// section of help text. Optional parameters in brackets are dropped.
func ParseFunction(name, text string) (*Function, error) {
	name = strings.TrimSpace(name)
	text = strings.ReplaceAll(strings.ReplaceAll(text, "\r", " "), "\n", " ")
	m := syntaxRe.FindStringSubmatch(text)
	if m == nil || m[1] == "" {
		return nil, fmt.Errorf("%w: %s has no syntax section", ErrNoHelp, name)
	}

	fn := &Function{Name: name, ReturnType: "void"}
	sigRe, err := regexp.Compile(`(?i)(\w*)?\s*` + regexp.QuoteMeta(name) + `\s*\(([^)]*)`)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoHelp, err)
	}
	sig := sigRe.FindStringSubmatch(m[1])
	if sig == nil {
		return fn, nil
	}
	if rt := strings.TrimSpace(sig[1]); rt != "" {
		fn.ReturnType = rt
	}
	for _, p := range strings.Split(optionalRe.ReplaceAllString(sig[2], ""), ",") {
		pm := paramRe.FindStringSubmatch(p)
		if pm == nil {
			continue
		}
		fn.Params = append(fn.Params, Param{Type: pm[1], Name: pm[2]})
	}
	return fn, nil
}

func (c *Client) fetch(ctx context.Context, target string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return "", err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("GET %s: status %d", target, resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageSize))
	if err != nil {
		return "", err
	}
	return string(body), nil
}

var linkRe = regexp.MustCompile(`(src|href)="([^"]*)"`)

// absolutize resolves relative src and href attributes against the page URL.
func absolutize(pageURL, content string) (string, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return "", err
	}
	return linkRe.ReplaceAllStringFunc(content, func(attr string) string {
		m := linkRe.FindStringSubmatch(attr)
		ref, err := url.Parse(m[2])
		if err != nil || ref.IsAbs() || strings.HasPrefix(m[2], "#") {
			return attr
		}
		return m[1] + `="` + base.ResolveReference(ref).String() + `"`
	}), nil
}

var (
	scriptRe = regexp.MustCompile(`(?is)<(script|style)\b.*?</(script|style)>`)
	breakRe  = regexp.MustCompile(`(?i)<(br|/p|/div|/h\d|/li|/tr|/pre)\b[^>]*>`)
	tagRe    = regexp.MustCompile(`<[^>]*>`)
	blankRe  = regexp.MustCompile(`\n\s*\n+`)
)

func htmlToText(s string) string {
	s = scriptRe.ReplaceAllString(s, "")
	s = breakRe.ReplaceAllString(s, "\n")
	s = tagRe.ReplaceAllString(s, "")
	s = html.UnescapeString(s)
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(whitespaceRe.ReplaceAllString(line, " "))
	}
	return strings.TrimSpace(blankRe.ReplaceAllString(strings.Join(lines, "\n"), "\n\n"))
}
