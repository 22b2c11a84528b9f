package domain

// ResourceKind identifies one of the proxied upstream resources.
type ResourceKind string

const (
	ResourceTrending ResourceKind = "trending"
	ResourceDetails  ResourceKind = "details"
	ResourceSearch   ResourceKind = "search"
)

// ResourceKinds lists every kind that has a fallback document.
var ResourceKinds = []ResourceKind{ResourceTrending, ResourceDetails, ResourceSearch}

// MediaType values accepted by the upstream API.
type MediaType string

const (
	MediaMovie  MediaType = "movie"
	MediaTV     MediaType = "tv"
	MediaAll    MediaType = "all"
	MediaPerson MediaType = "person"
	MediaMulti  MediaType = "multi"
)

// TimeWindow values accepted by the trending resource.
type TimeWindow string

const (
	WindowDay  TimeWindow = "day"
	WindowWeek TimeWindow = "week"
)

// DetailsAppend is requested alongside every details lookup.
const DetailsAppend = "credits,images,videos"

// TrendingParams selects the trending list.
type TrendingParams struct {
	MediaType  MediaType
	TimeWindow TimeWindow
}

// DetailsParams selects a single title.
type DetailsParams struct {
	ID        int64
	MediaType MediaType
}

// SearchParams describes a search query. Year is zero when unset.
type SearchParams struct {
	Query     string
	MediaType MediaType
	Year      int
	Page      int
}
