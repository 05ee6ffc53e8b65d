package services

import (
	"errors"
	"testing"
)

func TestBackendsFailClosesOpenedClientsInReverse(t *testing.T) {
	var closed []string
	closer := func(name string, err error) func() error {
		return func() error {
			closed = append(closed, name)
			return err
		}
	}
	errStorage := errors.New("storage close failed")
	errDial := errors.New("dial workflows")

	b := &Backends{}
	b.track(closer("firestore", nil))
	b.track(closer("storage", errStorage))

	err := b.fail(errDial)
	if !errors.Is(err, errDial) || !errors.Is(err, errStorage) {
		t.Fatalf("expected both the cause and the close error, got %v", err)
	}
	if len(closed) != 2 || closed[0] != "storage" || closed[1] != "firestore" {
		t.Fatalf("unexpected close order %v", closed)
	}

	// A second Close has nothing left to release.
	if err := b.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if len(closed) != 2 {
		t.Fatalf("clients closed twice: %v", closed)
	}
}
