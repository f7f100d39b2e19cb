package payload

import (
	"fmt"
	"strconv"

	"github.com/trustscan/backend/internal/domain"
)

// DecodeReviews decodes a review API response. It fails only when the document
// is not an object, data is missing, or a review lacks its id or comment.
func DecodeReviews(data []byte) (*domain.ReviewSet, error) {
	root, err := parseObject(data)
	if err != nil {
		return nil, domain.NewMalformedError(err)
	}

	body, ok := root.child(keyData)
	if !ok {
		return nil, domain.NewMissingFieldError(keyData)
	}

	set := &domain.ReviewSet{
		Status:       root.text(keyStatus),
		RequestID:    root.text(keyRequestID),
		Parameters:   decodeParameters(root),
		ASIN:         body.text(keyDataASIN),
		TotalReviews: body.integer(keyDataTotalReviews),
		TotalRatings: body.integer(keyDataTotalRatings),
		Country:      body.text(keyDataCountry),
		Domain:       body.text(keyDataDomain),
		Reviews:      []domain.Review{},
	}

	elems, ok := body.array(keyDataReviews)
	if !ok {
		return set, nil
	}

	for i, elem := range elems {
		obj, err := parseObject(elem)
		if err != nil {
			continue
		}
		review, err := decodeReview(obj, i)
		if err != nil {
			return nil, err
		}
		set.Reviews = append(set.Reviews, review)
	}

	return set, nil
}

func decodeParameters(root object) map[string]string {
	params, ok := root.child(keyParameters)
	if !ok {
		return nil
	}
	out := make(map[string]string, len(params))
	for key, v := range params {
		if s, ok := scalarString(v); ok {
			out[key] = s
			continue
		}
		var b bool
		if err := codec.Unmarshal(v, &b); err == nil {
			out[key] = strconv.FormatBool(b)
		}
	}
	return out
}

func decodeReview(obj object, index int) (domain.Review, error) {
	id, ok := obj.scalar(keyReviewID)
	if !ok || id == "" {
		return domain.Review{}, domain.NewMissingFieldError(fmt.Sprintf("%s.%s[%d].%s", keyData, keyDataReviews, index, keyReviewID))
	}
	comment, ok := obj.scalar(keyReviewComment)
	if !ok {
		return domain.Review{}, domain.NewMissingFieldError(fmt.Sprintf("%s.%s[%d].%s", keyData, keyDataReviews, index, keyReviewComment))
	}

	review := domain.Review{
		ID:                   id,
		Title:                obj.text(keyReviewTitle),
		Comment:              comment,
		StarRating:           obj.text(keyReviewStarRating),
		Link:                 obj.text(keyReviewLink),
		Author:               obj.text(keyReviewAuthor),
		AuthorAvatar:         obj.text(keyReviewAuthorAvatar),
		ReviewDate:           obj.text(keyReviewDate),
		IsVerifiedPurchase:   obj.boolean(keyReviewVerified),
		HelpfulVoteStatement: obj.optional(keyReviewHelpfulVotes),
		ReviewedProductASIN:  obj.optional(keyReviewedProductASIN),
		ReviewImages:         obj.list(keyReviewImages),
	}

	if video, ok := obj.child(keyReviewVideo); ok {
		if stream, ok := video.scalar(keyVideoStreamURL); ok && stream != "" {
			review.ReviewVideo = &domain.ReviewVideo{
				StreamURL:         stream,
				ClosedCaptionsURL: video.optional(keyVideoClosedCaptions),
				ThumbnailURL:      video.optional(keyVideoThumbnailURL),
			}
		}
	}

	return review, nil
}
