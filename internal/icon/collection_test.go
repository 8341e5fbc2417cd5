package icon

import (
	"net/url"
	"testing"
)

// sized builds an icon whose size is already known, as a trusted markup declaration would.
func sized(t *testing.T, rawURL string, width, height int) *Icon {
	t.Helper()
	u, err := url.Parse(rawURL)
	if err != nil {
		t.Fatalf("parsing %s: %v", rawURL, err)
	}
	ic := New(u)
	ic.Declare(Dimensions{Width: width, Height: height}, true)
	return ic
}

func urls(icons []*Icon) []string {
	out := make([]string, len(icons))
	for i, ic := range icons {
		out[i] = ic.URL.String()
	}
	return out
}

func TestNewCollection_SortsAscendingByArea(t *testing.T) {
	c := NewCollection([]*Icon{
		sized(t, "http://example.com/64.png", 64, 64),
		sized(t, "http://example.com/16.png", 16, 16),
		sized(t, "http://example.com/wide.png", 100, 10),
		sized(t, "http://example.com/32.png", 32, 32),
	})

	got := urls(c.Icons())
	want := []string{
		"http://example.com/16.png",
		"http://example.com/wide.png",
		"http://example.com/32.png",
		"http://example.com/64.png",
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d icons, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("position %d: expected %s, got %s", i, want[i], got[i])
		}
	}
}

func TestNewCollection_StableForEqualAreas(t *testing.T) {
	c := NewCollection([]*Icon{
		sized(t, "http://example.com/a.png", 32, 32),
		sized(t, "http://example.com/b.png", 16, 64),
		sized(t, "http://example.com/c.png", 64, 16),
		sized(t, "http://example.com/small.png", 8, 8),
	})

	got := urls(c.Icons())
	want := []string{
		"http://example.com/small.png",
		"http://example.com/a.png",
		"http://example.com/b.png",
		"http://example.com/c.png",
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("position %d: expected %s, got %s", i, want[i], got[i])
		}
	}
}

func TestNewCollection_DropsUnsized(t *testing.T) {
	u, _ := url.Parse("http://example.com/favicon.ico")
	c := NewCollection([]*Icon{New(u), nil, sized(t, "http://example.com/a.png", 16, 16)})
	if c.Len() != 1 {
		t.Fatalf("expected 1 icon, got %d", c.Len())
	}
}

func TestNewCollection_LargeIconsDoNotOverflow(t *testing.T) {
	c := NewCollection([]*Icon{
		sized(t, "http://example.com/huge.png", 70000, 70000),
		sized(t, "http://example.com/big.png", 60000, 60000),
	})
	if got := c.Largest().URL.String(); got != "http://example.com/huge.png" {
		t.Errorf("expected huge.png to be largest, got %s", got)
	}
}

func TestCollection_Largest(t *testing.T) {
	c := NewCollection([]*Icon{
		sized(t, "http://example.com/16.png", 16, 16),
		sized(t, "http://example.com/first.png", 64, 64),
		sized(t, "http://example.com/second.png", 32, 128),
	})

	// Both large icons have the same area; the earliest one wins.
	if got := c.Largest().URL.String(); got != "http://example.com/first.png" {
		t.Errorf("expected first.png, got %s", got)
	}
}

func TestCollection_AtLeast(t *testing.T) {
	c := NewCollection([]*Icon{
		sized(t, "http://example.com/16.png", 16, 16),
		sized(t, "http://example.com/32.png", 32, 32),
		sized(t, "http://example.com/wide.png", 200, 20),
		sized(t, "http://example.com/180.png", 180, 180),
	})

	tests := []struct {
		name       string
		minW, minH int
		want       string
	}{
		{"zero picks smallest", 0, 0, "http://example.com/16.png"},
		{"exact match", 32, 32, "http://example.com/32.png"},
		{"between sizes", 20, 20, "http://example.com/32.png"},
		{"wide but too short", 150, 100, "http://example.com/180.png"},
		{"one dimension", 190, 10, "http://example.com/wide.png"},
		{"nothing big enough falls back to largest", 512, 512, "http://example.com/180.png"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.AtLeast(tt.minW, tt.minH)
			if got == nil {
				t.Fatal("expected an icon, got nil")
			}
			if got.URL.String() != tt.want {
				t.Errorf("AtLeast(%d, %d) = %s, want %s", tt.minW, tt.minH, got.URL, tt.want)
			}
		})
	}
}

func TestCollection_Empty(t *testing.T) {
	c := NewCollection(nil)

	if c.Len() != 0 {
		t.Errorf("expected empty collection, got %d icons", c.Len())
	}
	if c.Largest() != nil {
		t.Error("expected Largest to be nil")
	}
	if c.AtLeast(16, 16) != nil {
		t.Error("expected AtLeast to be nil")
	}
	if c.PopLargest() != nil {
		t.Error("expected PopLargest to be nil")
	}
	if len(c.Icons()) != 0 {
		t.Error("expected no icons")
	}
}

func TestCollection_PopLargest(t *testing.T) {
	c := NewCollection([]*Icon{
		sized(t, "http://example.com/16.png", 16, 16),
		sized(t, "http://example.com/a.png", 64, 64),
		sized(t, "http://example.com/b.png", 64, 64),
	})
	snapshot := c.Icons()

	var got []string
	for ic := c.PopLargest(); ic != nil; ic = c.PopLargest() {
		got = append(got, ic.URL.String())
	}

	want := []string{
		"http://example.com/a.png",
		"http://example.com/b.png",
		"http://example.com/16.png",
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d pops, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("pop %d: expected %s, got %s", i, want[i], got[i])
		}
	}

	if c.Len() != 0 {
		t.Errorf("expected collection to be drained, got %d", c.Len())
	}
	// Popping must not disturb a list handed out earlier.
	if len(snapshot) != 3 || snapshot[1].URL.String() != "http://example.com/a.png" {
		t.Errorf("snapshot was modified: %v", urls(snapshot))
	}
}

func TestCollection_IconsIsACopy(t *testing.T) {
	c := NewCollection([]*Icon{sized(t, "http://example.com/a.png", 16, 16)})
	icons := c.Icons()
	icons[0] = nil

	if c.Largest() == nil {
		t.Error("modifying the returned slice changed the collection")
	}
}
