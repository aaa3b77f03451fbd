package domain

import (
	"testing"
	"time"
)

func day(s string) time.Time {
	d, err := time.Parse(time.DateOnly, s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestInEffectOnInclusiveBounds(t *testing.T) {
	end := day("2024-01-12")
	r := &Reminder{StartDate: day("2024-01-10"), EndDate: &end}

	cases := []struct {
		d    string
		want bool
	}{
		{"2024-01-09", false},
		{"2024-01-10", true},
		{"2024-01-11", true},
		{"2024-01-12", true},
		{"2024-01-13", false},
	}
	for _, tc := range cases {
		if got := r.InEffectOn(day(tc.d)); got != tc.want {
			t.Errorf("InEffectOn(%s) = %v, want %v", tc.d, got, tc.want)
		}
	}
}

func TestInEffectOnNoEndDate(t *testing.T) {
	r := &Reminder{StartDate: day("2024-01-10")}
	if !r.InEffectOn(day("2099-12-31")) {
		t.Fatalf("reminder without end date must stay in effect")
	}
}

func TestInEffectOnIgnoresTimeOfDay(t *testing.T) {
	end := day("2024-01-10")
	r := &Reminder{StartDate: day("2024-01-10"), EndDate: &end}
	lateEvening, _ := time.Parse("2006-01-02 15:04", "2024-01-10 23:59")
	if !r.InEffectOn(lateEvening) {
		t.Fatalf("only the calendar date should be compared")
	}
}
