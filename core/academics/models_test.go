package academics

import (
	"testing"
	"time"

	"github.com/volatiletech/null/v8"
)

func TestSlotID(t *testing.T) {
	tests := []struct {
		name    string
		day     int
		period  int
		want    int
		wantErr bool
	}{
		{name: "monday first", day: DayMonday, period: PeriodFirst, want: 1},
		{name: "monday fifth", day: DayMonday, period: PeriodFifth, want: 5},
		{name: "tuesday first", day: DayTuesday, period: PeriodFirst, want: 6},
		{name: "friday third", day: DayFriday, period: PeriodThird, want: 23},
		{name: "sunday fifth", day: DaySunday, period: PeriodFifth, want: 35},
		{name: "day too low", day: 0, period: PeriodFirst, wantErr: true},
		{name: "day too high", day: 8, period: PeriodFirst, wantErr: true},
		{name: "period too low", day: DayMonday, period: 0, wantErr: true},
		{name: "period too high", day: DayMonday, period: 6, wantErr: true},
		{name: "both invalid", day: 9, period: 9, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SlotID(tt.day, tt.period)
			if (err != nil) != tt.wantErr {
				t.Fatalf("SlotID() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("SlotID() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAllSlots(t *testing.T) {
	slots := AllSlots()
	if len(slots) != 35 {
		t.Fatalf("len(AllSlots()) = %d, want 35", len(slots))
	}

	// ids are 1..35 in order and round-trip back to (day, period)
	seen := make(map[int]bool, len(slots))
	for i, s := range slots {
		if s.ID != i+1 {
			t.Errorf("slots[%d].ID = %d, want %d", i, s.ID, i+1)
		}
		if seen[s.ID] {
			t.Errorf("duplicate slot id %d", s.ID)
		}
		seen[s.ID] = true

		id, err := SlotID(s.Day, s.Period)
		if err != nil {
			t.Errorf("SlotID(%d, %d) error = %v", s.Day, s.Period, err)
		}
		if id != s.ID {
			t.Errorf("SlotID(%d, %d) = %d, want %d", s.Day, s.Period, id, s.ID)
		}
	}
}

func TestPeriodTimeOf(t *testing.T) {
	tests := []struct {
		period    int
		wantStart string
		wantEnd   string
		wantErr   bool
	}{
		{period: PeriodFirst, wantStart: "09:00", wantEnd: "10:30"},
		{period: PeriodSecond, wantStart: "10:40", wantEnd: "12:10"},
		{period: PeriodThird, wantStart: "13:00", wantEnd: "14:30"},
		{period: PeriodFourth, wantStart: "14:40", wantEnd: "16:10"},
		{period: PeriodFifth, wantStart: "16:20", wantEnd: "17:50"},
		{period: 0, wantErr: true},
		{period: 6, wantErr: true},
	}
	for _, tt := range tests {
		pt, err := PeriodTimeOf(tt.period)
		if (err != nil) != tt.wantErr {
			t.Fatalf("PeriodTimeOf(%d) error = %v, wantErr %v", tt.period, err, tt.wantErr)
		}
		if pt.Start != tt.wantStart || pt.End != tt.wantEnd {
			t.Errorf("PeriodTimeOf(%d) = %v-%v, want %v-%v", tt.period, pt.Start, pt.End, tt.wantStart, tt.wantEnd)
		}
	}
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestTermFiscalYear(t *testing.T) {
	tests := []struct {
		name string
		end  null.Time
		want int
	}{
		{name: "unset", want: 0},
		{name: "april", end: null.TimeFrom(date(2026, time.April, 30)), want: 2026},
		{name: "december", end: null.TimeFrom(date(2026, time.December, 20)), want: 2026},
		{name: "january rolls back", end: null.TimeFrom(date(2027, time.January, 15)), want: 2026},
		{name: "march rolls back", end: null.TimeFrom(date(2027, time.March, 31)), want: 2026},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			term := Term{Number: TermSpring, EndDate: tt.end}
			if got := term.FiscalYear(); got != tt.want {
				t.Errorf("FiscalYear() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTermContains(t *testing.T) {
	term := Term{
		Number:    TermFall,
		StartDate: null.TimeFrom(date(2026, time.October, 1)),
		EndDate:   null.TimeFrom(date(2026, time.December, 20)),
	}
	tests := []struct {
		name string
		term Term
		now  time.Time
		want bool
	}{
		{name: "inside", term: term, now: date(2026, time.November, 5), want: true},
		{name: "start date inclusive", term: term, now: date(2026, time.October, 1), want: true},
		{name: "end date inclusive", term: term, now: date(2026, time.December, 20), want: true},
		{name: "end date late evening", term: term, now: time.Date(2026, time.December, 20, 23, 59, 0, 0, time.UTC), want: true},
		{name: "before", term: term, now: date(2026, time.September, 30), want: false},
		{name: "after", term: term, now: date(2026, time.December, 21), want: false},
		{name: "unset dates", term: Term{Number: TermWinter}, now: date(2026, time.November, 5), want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.term.Contains(tt.now); got != tt.want {
				t.Errorf("Contains(%v) = %v, want %v", tt.now, got, tt.want)
			}
		})
	}
}

func TestLectureSharesTermAndSlot(t *testing.T) {
	base := Lecture{Terms: []int{TermSpring, TermSummer}, Slots: []int{1, 2}}
	tests := []struct {
		name  string
		other Lecture
		want  bool
	}{
		{name: "shares term and slot", other: Lecture{Terms: []int{TermSummer}, Slots: []int{2, 9}}, want: true},
		{name: "shares term only", other: Lecture{Terms: []int{TermSpring}, Slots: []int{9}}, want: false},
		{name: "shares slot only", other: Lecture{Terms: []int{TermWinter}, Slots: []int{1}}, want: false},
		{name: "shares nothing", other: Lecture{Terms: []int{TermWinter}, Slots: []int{9}}, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := base.SharesTermAndSlot(tt.other); got != tt.want {
				t.Errorf("SharesTermAndSlot() = %v, want %v", got, tt.want)
			}
		})
	}
}
