package handlers

import "testing"

func TestNewWindow(t *testing.T) {
	tests := []struct {
		name                 string
		total, page, perPage int
		want                 window
	}{
		{
			name:    "empty list",
			total:   0,
			page:    1,
			perPage: 50,
			want:    window{Page: 1, PerPage: 50, Pages: 1},
		},
		{
			name:    "middle page",
			total:   120,
			page:    2,
			perPage: 50,
			want:    window{Page: 2, PerPage: 50, Pages: 3, Offset: 50, End: 100, From: 51, To: 100},
		},
		{
			name:    "page past the end is clamped",
			total:   120,
			page:    9,
			perPage: 50,
			want:    window{Page: 3, PerPage: 50, Pages: 3, Offset: 100, End: 120, From: 101, To: 120},
		},
		{
			name:    "non-positive inputs",
			total:   10,
			page:    0,
			perPage: 0,
			want:    window{Page: 1, PerPage: 1, Pages: 10, Offset: 0, End: 1, From: 1, To: 1},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := newWindow(tt.total, tt.page, tt.perPage); got != tt.want {
				t.Fatalf("newWindow(%d, %d, %d) = %+v, want %+v", tt.total, tt.page, tt.perPage, got, tt.want)
			}
		})
	}
}
