package schedule

import (
	"errors"
	"testing"
	"time"
)

func TestNextCronTimeDaily(t *testing.T) {
	// 2026-03-10 08:00 PST == 16:00 UTC
	from := time.Date(2026, 3, 10, 16, 0, 0, 0, time.UTC)

	next, err := NextCronTime("0 9 * * *", "America/Los_Angeles", from)
	if err != nil {
		t.Fatalf("NextCronTime failed: %v", err)
	}

	// 09:00 PST same day == 17:00 UTC
	want := time.Date(2026, 3, 10, 17, 0, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Errorf("expected %v, got %v", want, next)
	}
}

func TestNextCronTimeStrictlyAfter(t *testing.T) {
	// Exactly 09:00 PST: the same instant must not fire; next day does.
	from := time.Date(2026, 3, 10, 17, 0, 0, 0, time.UTC)

	next, err := NextCronTime("0 9 * * *", "America/Los_Angeles", from)
	if err != nil {
		t.Fatalf("NextCronTime failed: %v", err)
	}

	want := time.Date(2026, 3, 11, 17, 0, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Errorf("expected following day %v, got %v", want, next)
	}
}

func TestNextCronTimeWeekday(t *testing.T) {
	// 2026-03-10 is a Tuesday (in PST as well)
	from := time.Date(2026, 3, 10, 16, 0, 0, 0, time.UTC)

	for _, spec := range []string{"0 9 * * MON", "0 9 * * 1", "0 9 * * mon"} {
		next, err := NextCronTime(spec, "America/Los_Angeles", from)
		if err != nil {
			t.Fatalf("NextCronTime(%q) failed: %v", spec, err)
		}
		local := next.Add(TimezoneOffset("America/Los_Angeles"))
		if local.Weekday() != time.Monday {
			t.Errorf("%q: expected Monday in local time, got %v", spec, local.Weekday())
		}
		if local.Hour() != 9 || local.Minute() != 0 {
			t.Errorf("%q: expected 09:00 local, got %02d:%02d", spec, local.Hour(), local.Minute())
		}
		// Next Monday after Tuesday March 10 is March 16
		if local.Day() != 16 {
			t.Errorf("%q: expected March 16, got day %d", spec, local.Day())
		}
	}
}

func TestNextCronTimeUnknownTimezoneFallsBack(t *testing.T) {
	from := time.Date(2026, 3, 10, 16, 0, 0, 0, time.UTC)

	got, err := NextCronTime("30 7 * * *", "Europe/Berlin", from)
	if err != nil {
		t.Fatalf("NextCronTime failed: %v", err)
	}
	want, err := NextCronTime("30 7 * * *", "America/Los_Angeles", from)
	if err != nil {
		t.Fatalf("NextCronTime failed: %v", err)
	}
	if !got.Equal(want) {
		t.Errorf("expected unknown timezone to use the default offset: got %v, want %v", got, want)
	}
}

func TestNextCronTimeStarMinuteHour(t *testing.T) {
	// "*" in minute/hour means 0, so "* * * * *" is daily midnight.
	from := time.Date(2026, 3, 10, 16, 0, 0, 0, time.UTC)

	next, err := NextCronTime("* * * * *", "UTC", from)
	if err != nil {
		t.Fatalf("NextCronTime failed: %v", err)
	}
	want := time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Errorf("expected midnight next day %v, got %v", want, next)
	}
}

func TestNextCronTimeValidation(t *testing.T) {
	from := time.Now()
	cases := []struct {
		name string
		spec string
	}{
		{"too few fields", "0 9 * *"},
		{"garbage", "not a cron line x"},
		{"step minute", "*/5 9 * * *"},
		{"range hour", "0 9-17 * * *"},
		{"minute out of range", "75 9 * * *"},
		{"unknown weekday", "0 9 * * XYZ"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NextCronTime(tc.spec, "UTC", from)
			if !errors.Is(err, ErrValidation) {
				t.Errorf("expected validation error for %q, got %v", tc.spec, err)
			}
		})
	}
}

func TestTimezoneOffset(t *testing.T) {
	if TimezoneOffset("America/New_York") != -5*time.Hour {
		t.Error("expected -5h for America/New_York")
	}
	if TimezoneOffset("UTC") != 0 {
		t.Error("expected 0 for UTC")
	}
	if TimezoneOffset("") != -8*time.Hour {
		t.Error("expected default -8h for empty timezone")
	}
	if TimezoneOffset("Mars/Olympus_Mons") != -8*time.Hour {
		t.Error("expected default -8h for unknown timezone")
	}
	if !KnownTimezone("PST") || KnownTimezone("Mars/Olympus_Mons") {
		t.Error("KnownTimezone mismatch")
	}
}
