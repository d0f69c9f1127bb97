package analysis

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/channel-agent/internal/models"
)

func timelineCorpus() *models.Corpus {
	return &models.Corpus{Posts: []models.Post{
		{ID: 1, Date: "2024-01-01T10:15:00", Text: "a"}, // Monday
		{ID: 2, Date: "2024-01-01T18:00:00", Text: "b"},
		{ID: 3, Date: "2024-02-04T10:45:00", Text: "c"}, // Sunday
		{ID: 4, Date: "2024-02-05T10:00:00+01:00", Text: "d"},
		{ID: 5, Date: "ieri", Text: "e"},
	}}
}

func TestTimeline(t *testing.T) {
	tests := []struct {
		g    Granularity
		want []Bucket
	}{
		{ByDay, []Bucket{
			{Key: "2024-01-01", Count: 2, IDs: []int{1, 2}},
			{Key: "2024-02-04", Count: 1, IDs: []int{3}},
			{Key: "2024-02-05", Count: 1, IDs: []int{4}},
		}},
		{ByMonth, []Bucket{
			{Key: "2024-01", Count: 2, IDs: []int{1, 2}},
			{Key: "2024-02", Count: 2, IDs: []int{3, 4}},
		}},
		{ByHour, []Bucket{
			{Key: "10:00", Count: 3, IDs: []int{1, 3, 4}},
			{Key: "18:00", Count: 1, IDs: []int{2}},
		}},
		{ByWeekday, []Bucket{
			{Key: "1-Monday", Count: 3, IDs: []int{1, 2, 4}},
			{Key: "7-Sunday", Count: 1, IDs: []int{3}},
		}},
	}

	for _, tt := range tests {
		t.Run(string(tt.g), func(t *testing.T) {
			r := Timeline(timelineCorpus(), tt.g)
			assert.Equal(t, tt.want, r.Buckets)
			assert.Equal(t, 1, r.Unparsable)
		})
	}
}

func TestTimelineRender(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Timeline(timelineCorpus(), ByMonth).Render(&buf))
	out := buf.String()
	assert.Contains(t, out, "2024-01")
	assert.Contains(t, out, "Unparsable dates: 1")
}

func TestParseGranularity(t *testing.T) {
	g, err := ParseGranularity("weekday")
	require.NoError(t, err)
	assert.Equal(t, ByWeekday, g)

	_, err = ParseGranularity("year")
	assert.Error(t, err)
}
