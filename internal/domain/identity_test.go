package domain

import (
	"fmt"
	"testing"
)

func TestSelectPreferred(t *testing.T) {
	tests := []struct {
		name   string
		list   []MultiValue
		want   string
		wantOK bool
	}{
		{
			name:   "empty list",
			list:   nil,
			wantOK: false,
		},
		{
			name: "no primary falls back to first",
			list: []MultiValue{
				{Value: "first@x.de"},
				{Value: "second@x.de"},
			},
			want:   "first@x.de",
			wantOK: true,
		},
		{
			name: "primary wins over list order",
			list: []MultiValue{
				{Value: "first@x.de"},
				{Value: "second@x.de", Primary: true},
			},
			want:   "second@x.de",
			wantOK: true,
		},
		{
			name: "first of several primaries wins",
			list: []MultiValue{
				{Value: "first@x.de"},
				{Value: "second@x.de", Primary: true},
				{Value: "third@x.de", Primary: true},
			},
			want:   "second@x.de",
			wantOK: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := SelectPreferred(tt.list, IsPrimaryValue)
			if ok != tt.wantOK {
				t.Fatalf("expected ok=%v, got %v", tt.wantOK, ok)
			}
			if got.Value != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, got.Value)
			}
		})
	}
}

func TestSelectPreferred_Addresses(t *testing.T) {
	addresses := []Address{
		{StreetAddress: "Hauptstr. 1"},
		{StreetAddress: "Nebenweg 2", Primary: true},
	}

	got, ok := SelectPreferred(addresses, IsPrimaryAddress)
	if !ok || got.StreetAddress != "Nebenweg 2" {
		t.Fatalf("unexpected selection: %+v ok=%v", got, ok)
	}
}

func TestIsNotFound(t *testing.T) {
	if !IsNotFound(fmt.Errorf("fetch: %w", ErrCartNotFound)) {
		t.Fatal("expected wrapped ErrCartNotFound to be not found")
	}
	if !IsNotFound(ErrOrderNotFound) {
		t.Fatal("expected ErrOrderNotFound to be not found")
	}
	if IsNotFound(ErrBackendUnavailable) {
		t.Fatal("backend failure must not be treated as not found")
	}
}
