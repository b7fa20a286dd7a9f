package pagination

import (
	"errors"
	"net/url"
	"testing"

	"github.com/sakif/snippets-api/internal/apperror"
)

func TestParseRequest(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		want    int
		wantErr bool
	}{
		{"missing defaults to 1", "", 1, false},
		{"explicit page", "page=3", 3, false},
		{"zero", "page=0", 0, true},
		{"negative", "page=-1", 0, true},
		{"not a number", "page=last", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, _ := url.ParseQuery(tt.query)
			got, err := ParseRequest(q)
			if tt.wantErr {
				if !errors.Is(err, apperror.ErrNotFound) {
					t.Fatalf("ParseRequest(%q) error = %v, want ErrNotFound", tt.query, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseRequest(%q) error = %v", tt.query, err)
			}
			if got.Number != tt.want {
				t.Errorf("Number = %d, want %d", got.Number, tt.want)
			}
		})
	}
}

func TestRequestOffsets(t *testing.T) {
	r := Request{Number: 3}
	if r.Limit() != 10 {
		t.Errorf("Limit() = %d, want 10", r.Limit())
	}
	if r.Offset() != 20 {
		t.Errorf("Offset() = %d, want 20", r.Offset())
	}
}

func TestNumPages(t *testing.T) {
	cases := map[int]int{0: 1, 1: 1, 10: 1, 11: 2, 15: 2, 20: 2, 21: 3}
	for count, want := range cases {
		if got := NumPages(count); got != want {
			t.Errorf("NumPages(%d) = %d, want %d", count, got, want)
		}
	}
}

func TestCheck(t *testing.T) {
	if err := (Request{Number: 1}).Check(0); err != nil {
		t.Errorf("page 1 of an empty list should be valid, got %v", err)
	}
	if err := (Request{Number: 2}).Check(15); err != nil {
		t.Errorf("page 2 of 15 should be valid, got %v", err)
	}
	if err := (Request{Number: 3}).Check(15); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("page 3 of 15 error = %v, want ErrNotFound", err)
	}
}

func TestNew_Links(t *testing.T) {
	base := "http://testserver/snippets/"

	first := New(Request{Number: 1}, 25, []int{1}, base, url.Values{})
	if first.Previous != nil {
		t.Errorf("first page Previous = %q, want nil", *first.Previous)
	}
	if first.Next == nil || *first.Next != base+"?page=2" {
		t.Errorf("first page Next = %v, want %q", first.Next, base+"?page=2")
	}

	second := New(Request{Number: 2}, 25, []int{1}, base, url.Values{"page": {"2"}})
	if second.Previous == nil || *second.Previous != base {
		t.Errorf("second page Previous = %v, want %q", second.Previous, base)
	}

	last := New(Request{Number: 3}, 25, []int{1}, base, url.Values{"page": {"3"}})
	if last.Next != nil {
		t.Errorf("last page Next = %q, want nil", *last.Next)
	}
}

func TestNew_NilResultsBecomeEmpty(t *testing.T) {
	p := New[int](Request{Number: 1}, 0, nil, "http://x/", nil)
	if p.Results == nil {
		t.Error("Results should be an empty slice, not nil")
	}
}
