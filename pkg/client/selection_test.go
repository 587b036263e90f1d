package client

import "testing"

func TestParseSelection(t *testing.T) {
	testCases := []struct {
		in      string
		want    *Selection
		wantErr bool
	}{
		{in: "", want: nil},
		{in: "3:7", want: &Selection{Start: 3, End: 7}},
		{in: "3:", want: &Selection{Start: 3}},
		{in: ":7", want: &Selection{Start: 1, End: 7}},
		{in: "5", want: &Selection{Start: 5, End: 5}},
		{in: "0:2", wantErr: true},
		{in: "7:3", wantErr: true},
		{in: "a:b", wantErr: true},
	}

	for _, tc := range testCases {
		got, err := ParseSelection(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("%q: expected error, got %v", tc.in, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("%q: unexpected error %v", tc.in, err)
			continue
		}
		if (got == nil) != (tc.want == nil) || (got != nil && *got != *tc.want) {
			t.Errorf("%q: expected %v, got %v", tc.in, tc.want, got)
		}
	}
}

func TestSelectionApply(t *testing.T) {
	content := "one\ntwo\nthree\nfour"

	testCases := []struct {
		name string
		sel  *Selection
		want string
	}{
		{name: "nil selection", sel: nil, want: content},
		{name: "middle", sel: &Selection{Start: 2, End: 3}, want: "two\nthree\n"},
		{name: "open end", sel: &Selection{Start: 3}, want: "three\nfour"},
		{name: "end past last line", sel: &Selection{Start: 4, End: 10}, want: "four"},
	}
	for _, tc := range testCases {
		got, err := tc.sel.Apply(content)
		if err != nil {
			t.Errorf("%s: unexpected error %v", tc.name, err)
			continue
		}
		if got != tc.want {
			t.Errorf("%s: expected %q, got %q", tc.name, tc.want, got)
		}
	}

	for _, sel := range []*Selection{{Start: 5}, {Start: 5, End: 3}, {Start: 0, End: 2}, {Start: -1}} {
		if got, err := sel.Apply(content); err == nil {
			t.Errorf("%+v: expected error, got %q", *sel, got)
		}
	}
	if got := (*Selection)(nil).String(); got != "whole file" {
		t.Errorf("expected %q, got %q", "whole file", got)
	}
}
