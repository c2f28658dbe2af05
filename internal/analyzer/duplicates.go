package analyzer

import (
	"net/url"
	"sort"
	"strings"

	"github.com/lotas/tabruhe/internal/types"
)

// NormalizeURL strips fragments, sorts query parameters, and trims trailing
// slashes so that trivially different URLs of the same page compare equal.
func NormalizeURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	u.Fragment = ""
	params := u.Query()
	for k := range params {
		sort.Strings(params[k])
	}
	u.RawQuery = params.Encode()
	result := u.String()
	if strings.HasSuffix(result, "/") && result != u.Scheme+"://"+u.Host+"/" {
		result = strings.TrimRight(result, "/")
	}
	return result
}

// FindDuplicates groups tracked tabs that point at the same normalized URL.
// Each returned group holds at least two tab ids, sorted for stable output;
// a suspended copy of an open page counts as a duplicate too.
func FindDuplicates(m *types.Model) [][]string {
	byURL := make(map[string][]string)
	for tid, tab := range m.Tabs {
		normalized := NormalizeURL(tab.URL)
		byURL[normalized] = append(byURL[normalized], tid)
	}

	var groups [][]string
	for _, tids := range byURL {
		if len(tids) < 2 {
			continue
		}
		sort.Strings(tids)
		groups = append(groups, tids)
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i][0] < groups[j][0] })
	return groups
}
