package upstream

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/vietddude/tmdbproxy/internal/core/domain"
	"github.com/vietddude/tmdbproxy/internal/retry"
)

// TrendingRequest builds GET /trending/{media_type}/{time_window}.
func TrendingRequest(p domain.TrendingParams, policy *retry.Policy) CallRequest {
	return CallRequest{
		Kind:   domain.ResourceTrending,
		Path:   fmt.Sprintf("/trending/%s/%s", url.PathEscape(string(p.MediaType)), url.PathEscape(string(p.TimeWindow))),
		Query:  url.Values{},
		Policy: policy,
	}
}

// DetailsRequest builds GET /{media_type}/{id} with credits, images and videos appended.
func DetailsRequest(p domain.DetailsParams, policy *retry.Policy) CallRequest {
	return CallRequest{
		Kind:   domain.ResourceDetails,
		Path:   fmt.Sprintf("/%s/%d", url.PathEscape(string(p.MediaType)), p.ID),
		Query:  url.Values{"append_to_response": {domain.DetailsAppend}},
		Policy: policy,
	}
}

// SearchRequest builds GET /search/{multi|movie|tv|person}. A year narrows
// movies by release year and tv by first air date; other types ignore it.
func SearchRequest(p domain.SearchParams, policy *retry.Policy) CallRequest {
	mediaType := p.MediaType
	if mediaType == "" {
		mediaType = domain.MediaMulti
	}
	page := p.Page
	if page < 1 {
		page = 1
	}

	query := url.Values{
		"query": {p.Query},
		"page":  {strconv.Itoa(page)},
	}
	if p.Year > 0 {
		switch mediaType {
		case domain.MediaMovie:
			query.Set("year", strconv.Itoa(p.Year))
		case domain.MediaTV:
			query.Set("first_air_date_year", strconv.Itoa(p.Year))
		}
	}

	return CallRequest{
		Kind:   domain.ResourceSearch,
		Path:   "/search/" + url.PathEscape(string(mediaType)),
		Query:  query,
		Policy: policy,
	}
}
