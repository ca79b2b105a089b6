package domain

import (
	"errors"
	"testing"
)

func TestParseBackend_Known(t *testing.T) {
	for _, name := range []string{"clickhouse", "postgres", "cassandra"} {
		b, err := ParseBackend(name)
		if err != nil {
			t.Errorf("ParseBackend(%q): unexpected error %v", name, err)
		}
		if b.String() != name {
			t.Errorf("ParseBackend(%q) = %q", name, b)
		}
	}
}

func TestParseBackend_Unknown(t *testing.T) {
	for _, name := range []string{"mongodb", "", "CLICKHOUSE", "direct"} {
		_, err := ParseBackend(name)
		if !errors.Is(err, ErrInvalidBackend) {
			t.Errorf("ParseBackend(%q): expected ErrInvalidBackend, got %v", name, err)
		}
	}
}
