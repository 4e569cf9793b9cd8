package selection

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/walteh/shredsync/pkg/catalog"
	"github.com/walteh/shredsync/pkg/config"
)

func setupTestLogger(t *testing.T) context.Context {
	logger := zerolog.New(zerolog.TestWriter{T: t}).With().Timestamp().Logger()
	return logger.WithContext(context.Background())
}

func record(id string, date time.Time) catalog.FolderRecord {
	return catalog.FolderRecord{ID: id, Name: id, Date: catalog.Age{Time: date, Source: catalog.AgeFromName}, Size: -1}
}

func eligibleIDs(sel Selection) []string {
	var out []string
	for _, r := range sel.Eligible {
		out = append(out, r.ID)
	}
	return out
}

func TestThreshold(t *testing.T) {
	now := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	day := 24 * time.Hour

	tests := []struct {
		name   string
		age    time.Duration
		days   int
		want   bool
		reason Reason
	}{
		{"exactly_at_threshold", 60 * day, 60, true, ReasonNone},
		{"later_same_calendar_day", 60*day - 8*time.Hour, 60, true, ReasonNone},
		{"one_calendar_day_short", 60*day - 16*time.Hour, 60, false, ReasonTooRecent},
		{"well_past", 65 * day, 60, true, ReasonNone},
		{"zero_threshold_today", 0, 0, true, ReasonNone},
		{"future_dated", -2 * day, 0, false, ReasonTooRecent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, reason := Threshold{Days: tt.days}.Match(now.Add(-tt.age), now)
			assert.Equal(t, tt.want, ok)
			assert.Equal(t, tt.reason, reason)
		})
	}
}

func TestThresholdAcrossDST(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}

	// 2024-03-10 is the spring-forward day; fewer than 61*24 hours have elapsed
	date := time.Date(2024, 1, 10, 0, 0, 0, 0, ny)
	now := time.Date(2024, 3, 11, 0, 30, 0, 0, ny)

	ok, reason := Threshold{Days: 61}.Match(date, now)
	assert.True(t, ok)
	assert.Equal(t, ReasonNone, reason)

	ok, _ = Threshold{Days: 62}.Match(date, now)
	assert.False(t, ok)
}

func TestWindow(t *testing.T) {
	now := time.Date(2024, 6, 10, 15, 30, 0, 0, time.UTC)
	w := Window{PriorDays: 3, AfterDays: 1}

	tests := []struct {
		name   string
		date   time.Time
		want   bool
		reason Reason
	}{
		{"first_day_late_evening", time.Date(2024, 6, 7, 23, 59, 0, 0, time.UTC), true, ReasonNone},
		{"first_day_midnight", time.Date(2024, 6, 7, 0, 0, 0, 0, time.UTC), true, ReasonNone},
		{"day_before_window", time.Date(2024, 6, 6, 23, 59, 0, 0, time.UTC), false, ReasonBeforeRange},
		{"today", now, true, ReasonNone},
		{"last_day", time.Date(2024, 6, 11, 23, 0, 0, 0, time.UTC), true, ReasonNone},
		{"day_after_window", time.Date(2024, 6, 12, 0, 0, 0, 0, time.UTC), false, ReasonAfterRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, reason := w.Match(tt.date, now)
			assert.Equal(t, tt.want, ok)
			assert.Equal(t, tt.reason, reason)
		})
	}

	t.Run("zero_window_is_today_only", func(t *testing.T) {
		ok, _ := Window{}.Match(time.Date(2024, 6, 10, 0, 0, 1, 0, time.UTC), now)
		assert.True(t, ok)
		ok, _ = Window{}.Match(time.Date(2024, 6, 9, 23, 59, 0, 0, time.UTC), now)
		assert.False(t, ok)
	})
}

func TestSelect(t *testing.T) {
	ctx := setupTestLogger(t)
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	t.Run("threshold_sixty_keeps_only_oldest", func(t *testing.T) {
		records := []catalog.FolderRecord{
			record("old", now.AddDate(0, 0, -65)),
			record("mid", now.AddDate(0, 0, -59)),
			record("new", now.AddDate(0, 0, -10)),
		}

		sel := Select(ctx, records, Threshold{Days: 60}, now)
		assert.Equal(t, []string{"old"}, eligibleIDs(sel))
		require.Len(t, sel.Rejected, 2)
		assert.Equal(t, ReasonTooRecent, sel.Rejected[0].Reason)
	})

	t.Run("invalid_date_is_rejected_not_fatal", func(t *testing.T) {
		records := []catalog.FolderRecord{
			{ID: "undated", Size: -1},
			record("old", now.AddDate(0, 0, -90)),
		}

		sel := Select(ctx, records, Threshold{Days: 60}, now)
		assert.Equal(t, []string{"old"}, eligibleIDs(sel))
		require.Len(t, sel.Rejected, 1)
		assert.Equal(t, "undated", sel.Rejected[0].Record.ID)
		assert.Equal(t, ReasonInvalidDate, sel.Rejected[0].Reason)
	})

	t.Run("window_never_selects_outside", func(t *testing.T) {
		var records []catalog.FolderRecord
		for offset := -10; offset <= 10; offset++ {
			records = append(records, record(now.AddDate(0, 0, offset).Format("2006-01-02"), now.AddDate(0, 0, offset)))
		}

		sel := Select(ctx, records, Window{PriorDays: 2, AfterDays: 0}, now)
		assert.Equal(t, []string{"2024-05-30", "2024-05-31", "2024-06-01"}, eligibleIDs(sel))
		assert.Len(t, sel.Rejected, 18)
	})

	t.Run("empty_input", func(t *testing.T) {
		sel := Select(ctx, nil, Threshold{Days: 1}, now)
		assert.Empty(t, sel.Eligible)
		assert.Empty(t, sel.Rejected)
	})
}

func TestFromConfig(t *testing.T) {
	c, err := FromConfig(config.Selection{DaysThreshold: config.IntPtr(60)})
	require.NoError(t, err)
	assert.Equal(t, Threshold{Days: 60}, c)

	c, err = FromConfig(config.Selection{PriorDays: config.IntPtr(7)})
	require.NoError(t, err)
	assert.Equal(t, Window{PriorDays: 7}, c)

	_, err = FromConfig(config.Selection{DaysThreshold: config.IntPtr(1), AfterDays: config.IntPtr(1)})
	require.Error(t, err)

	_, err = FromConfig(config.Selection{})
	require.Error(t, err)

	_, err = FromConfig(config.Selection{DaysThreshold: config.IntPtr(-1)})
	require.Error(t, err)
}
