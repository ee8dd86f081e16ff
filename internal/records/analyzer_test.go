package records_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/musclelog/backend/internal/records"
)

func TestAnalyzer_WeeklyData(t *testing.T) {
	ctrl := gomock.NewController(t)
	repoMock := NewMockweeklyRepo(ctrl)
	analyzer := records.NewAnalyzer(repoMock)

	repoMock.EXPECT().
		WeeklyByCategory(gomock.Any(), "alice1").
		Return([]records.WeeklyCategoryTotal{
			{Week: "2025-01", Category: "chest", Total: 10},
			{Week: "2025-01", Category: "back", Total: 5},
			{Week: "2025-02", Category: "chest", Total: 20},
		}, nil)
	repoMock.EXPECT().
		WeeklyTotals(gomock.Any(), "alice1").
		Return([]records.WeeklyTotal{
			{Week: "2025-01", Total: 15},
			{Week: "2025-02", Total: 20},
		}, nil)

	weeklyData, err := analyzer.WeeklyData(context.Background(), "alice1")
	require.NoError(t, err)
	require.Len(t, weeklyData, 2)

	// oldest week first
	assert.Equal(t, "2025-01", weeklyData[0].Week)
	assert.Equal(t, float64(15), weeklyData[0].TotalMuscle)
	assert.Equal(t, float64(10), weeklyData[0].Categories["chest"])
	assert.Equal(t, float64(5), weeklyData[0].Categories["back"])

	// a category missing in a week must carry an explicit zero
	assert.Equal(t, "2025-02", weeklyData[1].Week)
	assert.Equal(t, float64(20), weeklyData[1].TotalMuscle)
	assert.Equal(t, float64(20), weeklyData[1].Categories["chest"])
	back, present := weeklyData[1].Categories["back"]
	require.True(t, present)
	assert.Equal(t, float64(0), back)
}

func TestAnalyzer_WeeklyData_Empty(t *testing.T) {
	ctrl := gomock.NewController(t)
	repoMock := NewMockweeklyRepo(ctrl)
	analyzer := records.NewAnalyzer(repoMock)

	repoMock.EXPECT().
		WeeklyByCategory(gomock.Any(), "alice1").
		Return([]records.WeeklyCategoryTotal{}, nil)
	repoMock.EXPECT().
		WeeklyTotals(gomock.Any(), "alice1").
		Return([]records.WeeklyTotal{}, nil)

	weeklyData, err := analyzer.WeeklyData(context.Background(), "alice1")
	require.NoError(t, err)
	assert.Empty(t, weeklyData)
}

func TestWeekRow_MarshalJSON(t *testing.T) {
	row := records.WeekRow{
		Week:        "2025-02",
		TotalMuscle: 20,
		Categories: map[string]float64{
			"chest": 20,
			"back":  0,
		},
	}

	rowJson, err := json.Marshal(row)
	require.NoError(t, err)
	assert.JSONEq(t, `{"week":"2025-02","total_muscle":20,"chest":20,"back":0}`, string(rowJson))
}
