package main

import (
	"errors"
	"strings"
	"testing"
)

func TestReadLimited(t *testing.T) {
	data, err := readLimited(strings.NewReader(`{"items":[]}`), 12)
	if err != nil {
		t.Fatalf("readLimited at the limit: %v", err)
	}
	if string(data) != `{"items":[]}` {
		t.Errorf("unexpected data %q", data)
	}

	_, err = readLimited(strings.NewReader(`{"items":[{"name":"too long for the limit"}]}`), 16)
	if !errors.Is(err, errTooLarge) {
		t.Errorf("expected errTooLarge, got %v", err)
	}
}
