package help

import (
	"context"
	"regexp"
	"strings"
)

// tocEntryRe matches one entry of a chunk such as
//
//	define({'/Content/Topics/Random.htm':{i:[12],t:['Random'],b:['-1']},...});
var tocEntryRe = regexp.MustCompile(`['"]([^'"]+)['"]\s*:\s*\{\s*i\s*:\s*\[[^\]]*\]\s*,\s*t\s*:\s*\[\s*['"]([^'"]*)['"]`)

// parseTOC maps lowercase topic titles to page URLs. The first entry for a
// title wins.
func parseTOC(baseURL, chunk string, into map[string]string) int {
	n := 0
	for _, m := range tocEntryRe.FindAllStringSubmatch(chunk, -1) {
		title := strings.ToLower(strings.TrimSpace(m[2]))
		if title == "" {
			continue
		}
		if _, ok := into[title]; ok {
			continue
		}
		path := m[1]
		if !strings.HasPrefix(path, "/") {
			path = "/" + path
		}
		into[title] = baseURL + path
		n++
	}
	return n
}

// loadTOC fetches the table of contents once. A chunk that fails to load
// is skipped.
func (c *Client) loadTOC(ctx context.Context) {
	c.tocOnce.Do(func() {
		toc := make(map[string]string)
		for _, chunk := range tocChunks {
			body, err := c.fetch(ctx, c.baseURL+"/"+chunk)
			if err != nil {
				c.logger.Warn("failed to fetch help contents", "chunk", chunk, "error", err)
				continue
			}
			n := parseTOC(c.baseURL, body, toc)
			c.logger.Debug("loaded help contents", "chunk", chunk, "topics", n)
		}
		c.toc = toc
	})
}
