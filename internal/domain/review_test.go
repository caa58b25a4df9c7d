package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseItemType(t *testing.T) {
	tests := []struct {
		input   string
		want    ItemType
		wantErr bool
	}{
		{"1", ItemTypeCourse, false},
		{"2", ItemTypeBook, false},
		{"3", ItemTypeLearningPath, false},
		{"course", ItemTypeCourse, false},
		{"Book", ItemTypeBook, false},
		{"learning_path", ItemTypeLearningPath, false},
		{"learning-path", ItemTypeLearningPath, false},
		{"0", 0, true},
		{"4", 0, true},
		{"webinar", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseItemType(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestItemTypeJSONRoundTrip(t *testing.T) {
	data, err := json.Marshal(ItemTypeLearningPath)
	require.NoError(t, err)
	assert.Equal(t, `"learning_path"`, string(data))

	var fromName ItemType
	require.NoError(t, json.Unmarshal([]byte(`"course"`), &fromName))
	assert.Equal(t, ItemTypeCourse, fromName)

	var fromNumber ItemType
	require.NoError(t, json.Unmarshal([]byte(`2`), &fromNumber))
	assert.Equal(t, ItemTypeBook, fromNumber)

	var invalid ItemType
	assert.Error(t, json.Unmarshal([]byte(`"podcast"`), &invalid))
	assert.Error(t, json.Unmarshal([]byte(`true`), &invalid))
}

func TestNewReviewSummaryDistribution(t *testing.T) {
	summary := NewReviewSummary(ItemTypeCourse, 42, 4.125, map[int]int{
		5: 10,
		4: 5,
		1: 1,
	})

	assert.Equal(t, 16, summary.TotalReviews)
	assert.Equal(t, 4.1, summary.AverageRating)

	// Buckets are ordered 5 down to 1 and always all present.
	require.Len(t, summary.Distribution, 5)
	assert.Equal(t, 5, summary.Distribution[0].Rating)
	assert.Equal(t, 10, summary.Distribution[0].Count)
	assert.Equal(t, float64(63), summary.Distribution[0].Percent)

	assert.Equal(t, 4, summary.Distribution[1].Rating)
	assert.Equal(t, float64(31), summary.Distribution[1].Percent)

	assert.Equal(t, 3, summary.Distribution[2].Rating)
	assert.Equal(t, 0, summary.Distribution[2].Count)
	assert.Zero(t, summary.Distribution[2].Percent)

	assert.Equal(t, 1, summary.Distribution[4].Rating)
	assert.Equal(t, 1, summary.Distribution[4].Count)
	assert.Equal(t, float64(6), summary.Distribution[4].Percent)
}

func TestNewReviewSummaryEmpty(t *testing.T) {
	summary := NewReviewSummary(ItemTypeBook, 7, 0, nil)

	assert.Zero(t, summary.TotalReviews)
	assert.Zero(t, summary.AverageRating)
	for _, entry := range summary.Distribution {
		assert.Zero(t, entry.Count)
		assert.Zero(t, entry.Percent)
	}
}

func TestStarFill(t *testing.T) {
	tests := []struct {
		average  float64
		position int
		want     float64
	}{
		{4.5, 4, 1},
		{4.5, 5, 0.5},
		{4.2, 5, 0},
		{4.7, 5, 0.5},
		{5.0, 5, 1},
		{0, 1, 0},
		{2.5, 3, 0.5},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, StarFill(tt.average, tt.position),
			"average=%v position=%d", tt.average, tt.position)
	}
}

func TestTimeAgo(t *testing.T) {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		at   time.Time
		want string
	}{
		{now.Add(-30 * time.Second), "just now"},
		{now.Add(-time.Minute), "1 minute ago"},
		{now.Add(-45 * time.Minute), "45 minutes ago"},
		{now.Add(-3 * time.Hour), "3 hours ago"},
		{now.Add(-26 * time.Hour), "1 day ago"},
		{now.Add(-40 * 24 * time.Hour), "1 month ago"},
		{now.Add(-2 * 365 * 24 * time.Hour), "2 years ago"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, TimeAgo(tt.at, now))
	}
}
