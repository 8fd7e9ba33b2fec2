package money

import "testing"

func TestApplyRateBps(t *testing.T) {
	cases := []struct {
		name   string
		amount int64
		bps    int64
		want   int64
	}{
		{"ten percent", 150000, 1000, 15000},
		{"twenty percent", 100000, 2000, 20000},
		{"fractional rate floors", 99999, 1050, 10499},
		{"zero rate", 150000, 0, 0},
		{"zero base", 0, 2000, 0},
		{"full rate", 12345, 10000, 12345},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ApplyRateBps(tc.amount, tc.bps); got != tc.want {
				t.Fatalf("ApplyRateBps(%d, %d) = %d, want %d", tc.amount, tc.bps, got, tc.want)
			}
		})
	}
}

func TestClampDiscount(t *testing.T) {
	got, clamped := ClampDiscount(100000, 150000)
	if got != 100000 || !clamped {
		t.Fatalf("expected clamp to 100000, got %d (clamped=%v)", got, clamped)
	}

	got, clamped = ClampDiscount(100000, 5000)
	if got != 5000 || clamped {
		t.Fatalf("expected discount unchanged, got %d (clamped=%v)", got, clamped)
	}

	got, clamped = ClampDiscount(100000, 100000)
	if got != 100000 || clamped {
		t.Fatalf("discount equal to subtotal must not clamp, got %d (clamped=%v)", got, clamped)
	}
}

func TestParsePercent(t *testing.T) {
	cases := []struct {
		raw     string
		want    int64
		wantErr bool
	}{
		{"10", 1000, false},
		{"10.5", 1050, false},
		{"0", 0, false},
		{"0.0", 0, false},
		{"100", 10000, false},
		{"7.25", 725, false},
		{"", 0, true},
		{"-5", 0, true},
		{"abc", 0, true},
	}

	for _, tc := range cases {
		got, err := ParsePercent(tc.raw)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("ParsePercent(%q) expected error", tc.raw)
			}
			continue
		}
		if err != nil {
			t.Fatalf("ParsePercent(%q): %v", tc.raw, err)
		}
		if got != tc.want {
			t.Fatalf("ParsePercent(%q) = %d, want %d", tc.raw, got, tc.want)
		}
	}
}

func TestPercentToBps(t *testing.T) {
	if got := PercentToBps(10.5); got != 1050 {
		t.Fatalf("PercentToBps(10.5) = %d", got)
	}
	if got := PercentToBps(0); got != 0 {
		t.Fatalf("PercentToBps(0) = %d", got)
	}
	if got := BpsToPercent(1050); got != 10.5 {
		t.Fatalf("BpsToPercent(1050) = %v", got)
	}
}

func TestValidRateBps(t *testing.T) {
	if !ValidRateBps(0) || !ValidRateBps(10000) {
		t.Fatal("bounds must be valid")
	}
	if ValidRateBps(-1) || ValidRateBps(10001) {
		t.Fatal("out-of-range rates must be invalid")
	}
}

func TestFormatMinor(t *testing.T) {
	if got := FormatMinor(150000); got != "1500.00" {
		t.Fatalf("FormatMinor(150000) = %q", got)
	}
	if got := FormatMinor(-15000); got != "-150.00" {
		t.Fatalf("FormatMinor(-15000) = %q", got)
	}
	if got := FormatMinor(5); got != "0.05" {
		t.Fatalf("FormatMinor(5) = %q", got)
	}
}
