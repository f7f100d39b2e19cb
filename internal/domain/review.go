package domain

// Review is one customer review from the review API.
type Review struct {
	ID                   string       `json:"id"`
	Title                string       `json:"title"`
	Comment              string       `json:"comment"`
	StarRating           string       `json:"starRating"`
	Link                 string       `json:"link"`
	Author               string       `json:"author"`
	AuthorAvatar         string       `json:"authorAvatar"`
	ReviewDate           string       `json:"reviewDate"`
	IsVerifiedPurchase   bool         `json:"isVerifiedPurchase"`
	HelpfulVoteStatement *string      `json:"helpfulVoteStatement,omitempty"`
	ReviewedProductASIN  *string      `json:"reviewedProductAsin,omitempty"`
	ReviewImages         []string     `json:"reviewImages"`
	ReviewVideo          *ReviewVideo `json:"reviewVideo,omitempty"`

	// Credibility is derived, never decoded. It is set at most once.
	Credibility *Credibility `json:"credibility,omitempty"`
}

// ReviewVideo is a video attached to a review.
type ReviewVideo struct {
	StreamURL         string  `json:"streamUrl"`
	ClosedCaptionsURL *string `json:"closedCaptionsUrl,omitempty"`
	ThumbnailURL      *string `json:"thumbnailUrl,omitempty"`
}

// ReviewSet is the canonical form of a review API response.
type ReviewSet struct {
	Status       string            `json:"status"`
	RequestID    string            `json:"requestId"`
	Parameters   map[string]string `json:"parameters,omitempty"`
	ASIN         string            `json:"asin"`
	TotalReviews int               `json:"totalReviews"`
	TotalRatings int               `json:"totalRatings"`
	Country      string            `json:"country"`
	Domain       string            `json:"domain"`
	Reviews      []Review          `json:"reviews"`
}

// ReviewQuery identifies a review listing: one ASIN on one marketplace.
type ReviewQuery struct {
	ASIN    string `json:"asin"`
	Country string `json:"country"`
	Page    int    `json:"page"`
}
