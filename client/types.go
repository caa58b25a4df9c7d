package client

import "github.com/khoitriso/review-service/internal/domain"

// Aliases for the API's data types, so importers of this package can name
// them without reaching into internal/.
type (
	Review            = domain.Review
	ReviewSummary     = domain.ReviewSummary
	DistributionEntry = domain.DistributionEntry
	ItemType          = domain.ItemType
)

const (
	ItemTypeCourse       = domain.ItemTypeCourse
	ItemTypeBook         = domain.ItemTypeBook
	ItemTypeLearningPath = domain.ItemTypeLearningPath
)
