package slot

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in      string
		want    Slot
		wantErr bool
	}{
		{in: "18:00-19:00", want: Slot{Start: 18 * 60, End: 19 * 60}},
		{in: " 06:30 - 08:00 ", want: Slot{Start: 6*60 + 30, End: 8 * 60}},
		{in: "23:00-24:00", want: Slot{Start: 23 * 60, End: 24 * 60}},
		{in: "24:00-01:00", wantErr: true},
		{in: "18:00", wantErr: true},
		{in: "18-19", wantErr: true},
		{in: "1800-1900", wantErr: true},
		{in: "18:60-19:00", wantErr: true},
		{in: "ab:cd-19:00", wantErr: true},
		{in: "18:00-19:00-20:00", wantErr: true},
		{in: "+6:00-07:00", wantErr: true},
		{in: "06:00--7:00", wantErr: true},
		{in: "06:+0-07:00", wantErr: true},
		{in: "٠٦:00-07:00", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := Parse(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrMalformedSlot))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidate(t *testing.T) {
	assert.NoError(t, MustParse("10:00-11:00").Validate())
	assert.ErrorIs(t, MustParse("11:00-10:00").Validate(), ErrMalformedSlot)
	assert.ErrorIs(t, MustParse("10:00-10:00").Validate(), ErrMalformedSlot)
}

func TestDuration(t *testing.T) {
	assert.Equal(t, 1.0, MustParse("18:00-19:00").Hours())
	assert.Equal(t, 1.5, MustParse("18:00-19:30").Hours())
	assert.Equal(t, 2.0, Duration(60, 180))
}

func TestOverlaps(t *testing.T) {
	a := MustParse("18:00-19:00")

	assert.True(t, a.Overlaps(MustParse("18:30-19:30")))
	assert.True(t, a.Overlaps(MustParse("17:00-20:00")))
	assert.True(t, a.Overlaps(a))
	assert.False(t, a.Overlaps(MustParse("19:00-20:00")), "touching end")
	assert.False(t, a.Overlaps(MustParse("17:00-18:00")), "touching start")
	assert.False(t, a.Overlaps(MustParse("06:00-07:00")))
}

func TestIsPast(t *testing.T) {
	loc := time.FixedZone("IST", 5*3600+1800)
	now := time.Date(2024, 6, 1, 14, 30, 0, 0, loc)
	today := time.Date(2024, 6, 1, 0, 0, 0, 0, loc)

	assert.True(t, IsPast(today.AddDate(0, 0, -1), MustParse("20:00-21:00"), now), "yesterday")
	assert.True(t, IsPast(today, MustParse("10:00-11:00"), now), "earlier today")
	assert.True(t, IsPast(today, MustParse("14:00-16:00"), now), "already started")
	assert.False(t, IsPast(today, MustParse("15:00-16:00"), now), "later today")
	assert.False(t, IsPast(today.AddDate(0, 0, 1), MustParse("06:00-07:00"), now), "tomorrow")
}

func TestString(t *testing.T) {
	assert.Equal(t, "06:05-24:00", Slot{Start: 6*60 + 5, End: 24 * 60}.String())
}
